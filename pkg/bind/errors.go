package bind

import (
	"errors"
	"fmt"
	"strings"

	"miren.dev/indexer/pkg/scalar"
)

var (
	ErrUnknownScalar              = scalar.ErrUnknownScalar
	ErrDisallowedTypeName         = errors.New("disallowed type name")
	ErrInconsistentUnionFieldType = errors.New("inconsistent union field type")
	ErrMissingUnionMember         = errors.New("missing union member")
	ErrUnrecognizedVariant        = errors.New("unrecognized variant")
	ErrWrongTypeKind              = errors.New("wrong type kind for builder")
)

// SchemaError reports a schema that cannot be compiled. Rule is one of the
// package sentinels.
type SchemaError struct {
	Type   string
	Field  string
	Member string
	Rule   error
	Detail string
}

func (e *SchemaError) Error() string {
	var sb strings.Builder

	sb.WriteString("type ")
	sb.WriteString(e.Type)

	if e.Field != "" {
		sb.WriteString(" field ")
		sb.WriteString(e.Field)
	}

	if e.Member != "" {
		sb.WriteString(" member ")
		sb.WriteString(e.Member)
	}

	sb.WriteString(": ")
	sb.WriteString(e.Rule.Error())

	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}

	return sb.String()
}

func (e *SchemaError) Unwrap() error {
	return e.Rule
}

// UnrecognizedVariantError is returned when a string names no variant of
// an enum.
type UnrecognizedVariantError struct {
	Value    string
	Expected []string
}

func (e *UnrecognizedVariantError) Error() string {
	return fmt.Sprintf("%s %q, expected one of: %s", ErrUnrecognizedVariant, e.Value, strings.Join(e.Expected, ", "))
}

func (e *UnrecognizedVariantError) Unwrap() error {
	return ErrUnrecognizedVariant
}
