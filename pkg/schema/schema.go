// Package schema loads indexer schemas written in GraphQL SDL into an
// ordered, read-only catalog of type definitions.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedDefinition = errors.New("unsupported definition")
	ErrUnsupportedType       = errors.New("unsupported field type")
	ErrDuplicateType         = errors.New("duplicate type")
	ErrDuplicateField        = errors.New("duplicate field")
	ErrUnknownTarget         = errors.New("unknown execution target")
)

type Kind int

const (
	Object Kind = iota
	Union
	Enum
)

func (k Kind) String() string {
	switch k {
	case Object:
		return "object"
	case Union:
		return "union"
	case Enum:
		return "enum"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Target is the runtime an entity's bindings are generated for.
type Target int

const (
	// Sandboxed entities run inside an embedded host that owns persistence.
	Sandboxed Target = iota
	// Native entities persist through a store handle.
	Native
)

func (t Target) String() string {
	switch t {
	case Sandboxed:
		return "sandboxed"
	case Native:
		return "native"
	default:
		return fmt.Sprintf("Target(%d)", int(t))
	}
}

func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(s) {
	case "sandboxed", "wasm":
		return Sandboxed, nil
	case "native":
		return Native, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTarget, s)
	}
}

func (t Target) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Target) UnmarshalText(b []byte) error {
	pt, err := ParseTarget(string(b))
	if err != nil {
		return err
	}
	*t = pt
	return nil
}

// FieldDefinition is one declared field. Type names a scalar, an object,
// a union or an enum. List fields hold non-null elements of Type.
type FieldDefinition struct {
	Name     string
	Type     string
	Nullable bool
	List     bool
}

func (f FieldDefinition) String() string {
	s := f.Type
	if f.List {
		s = "[" + s + "!]"
	}
	if !f.Nullable {
		s += "!"
	}
	return f.Name + ": " + s
}

type TypeDefinition struct {
	Name        string
	Kind        Kind
	Description string

	// Object
	Fields []FieldDefinition

	// Union
	Members []string

	// Enum
	Values []string
}
