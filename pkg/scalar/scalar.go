// Package scalar maps schema scalar names to their row representation.
package scalar

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"sync"

	"miren.dev/indexer/pkg/row"
)

var ErrUnknownScalar = errors.New("unknown scalar")

// CloneStrategy says how the encoder copies a value into a row slot.
type CloneStrategy int

const (
	// Copy values are plain Go values; assignment copies them.
	Copy CloneStrategy = iota
	// Deep values share backing memory and are cloned on encode.
	Deep
)

func (c CloneStrategy) String() string {
	switch c {
	case Copy:
		return "copy"
	case Deep:
		return "deep"
	default:
		return fmt.Sprintf("CloneStrategy(%d)", int(c))
	}
}

type Scalar struct {
	Name    string
	Kind    row.Kind
	GoType  reflect.Type
	Clone   CloneStrategy
	Default any
}

// Encode returns the canonical bytes of v, which must be of the scalar's Go
// type. A nil v encodes the default.
func (s *Scalar) Encode(v any) ([]byte, error) {
	if v == nil {
		return row.Null(s.Kind).Canonical(), nil
	}

	c, err := row.New(s.Kind, v)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", s.Name, err)
	}

	return c.Canonical(), nil
}

// CloneValue applies the clone strategy to v.
func (s *Scalar) CloneValue(v any) any {
	if s.Clone == Deep {
		if b, ok := v.([]byte); ok {
			return slices.Clone(b)
		}
	}
	return v
}

type Registry struct {
	scalars map[string]*Scalar
}

func NewRegistry() *Registry {
	return &Registry{scalars: make(map[string]*Scalar)}
}

// Register adds a scalar named name backed by kind k.
func (r *Registry) Register(name string, k row.Kind) error {
	if !k.Scalar() {
		return fmt.Errorf("scalar %s: %s is not a scalar kind", name, k)
	}

	if _, ok := r.scalars[name]; ok {
		return fmt.Errorf("scalar %s already registered", name)
	}

	s := &Scalar{
		Name:    name,
		Kind:    k,
		GoType:  k.GoType(),
		Default: k.Zero(),
	}

	if s.GoType.Kind() == reflect.Slice {
		s.Clone = Deep
	}

	r.scalars[name] = s
	return nil
}

func (r *Registry) Resolve(name string) (*Scalar, error) {
	s, ok := r.scalars[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScalar, name)
	}
	return s, nil
}

// Has reports whether name is a registered scalar.
func (r *Registry) Has(name string) bool {
	_, ok := r.scalars[name]
	return ok
}

// Names returns the registered scalar names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.scalars))
	for n := range r.scalars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var builtin = []struct {
	name string
	kind row.Kind
}{
	{"ID", row.KindID},
	{"Address", row.KindAddress},
	{"AssetId", row.KindAssetId},
	{"Blob", row.KindBlob},
	{"BlockHeight", row.KindBlockHeight},
	{"Boolean", row.KindBoolean},
	{"Bytes4", row.KindBytes4},
	{"Bytes8", row.KindBytes8},
	{"Bytes32", row.KindBytes32},
	{"Bytes64", row.KindBytes64},
	{"Charfield", row.KindCharfield},
	{"ContractId", row.KindContractId},
	{"HexString", row.KindHexString},
	{"Int1", row.KindInt1},
	{"Int4", row.KindInt4},
	{"Int8", row.KindInt8},
	{"Json", row.KindJson},
	{"MessageId", row.KindMessageId},
	{"Nonce", row.KindNonce},
	{"Salt", row.KindSalt},
	{"Signature", row.KindSignature},
	{"Timestamp", row.KindTimestamp},
	{"TxId", row.KindTxId},
	{"UInt1", row.KindUInt1},
	{"UInt4", row.KindUInt4},
	{"UInt8", row.KindUInt8},
	{"Virtual", row.KindVirtual},
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the shared registry of indexer scalars. It must not be
// modified.
func Default() *Registry {
	defaultOnce.Do(func() {
		r := NewRegistry()
		for _, b := range builtin {
			if err := r.Register(b.name, b.kind); err != nil {
				panic(err)
			}
		}
		defaultRegistry = r
	})

	return defaultRegistry
}
