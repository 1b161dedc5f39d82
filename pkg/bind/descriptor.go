package bind

import (
	"fmt"

	"miren.dev/indexer/pkg/ident"
	"miren.dev/indexer/pkg/row"
	"miren.dev/indexer/pkg/scalar"
	"miren.dev/indexer/pkg/schema"
)

// Descriptor is the compiled form of one type definition, either an
// *EntityDescriptor or an *EnumDescriptor.
type Descriptor interface {
	TypeName() string
	TypeKind() schema.Kind
}

type FieldDescriptor struct {
	Name     string   `yaml:"name"`
	Scalar   string   `yaml:"scalar"`
	Kind     row.Kind `yaml:"-"`
	Nullable bool     `yaml:"nullable"`
	List     bool     `yaml:"list,omitempty"`

	// Ref names the object or union a foreign key field points at.
	Ref string `yaml:"ref,omitempty"`

	// Enum names the enum an enum-valued field stores.
	Enum string `yaml:"enum,omitempty"`
}

// ColumnKind is the tag of the row column holding this field.
func (f FieldDescriptor) ColumnKind() row.Kind {
	if f.List {
		return row.KindArray
	}
	return f.Kind
}

// Extractor reads one field from its row position. Values are the native
// Go type of the field's kind, []any for lists, or nil for null.
type Extractor struct {
	Pos   int
	Field FieldDescriptor

	scalar *scalar.Scalar
}

func (x Extractor) Extract(r row.Row) (any, error) {
	f := x.Field

	if x.Pos >= len(r) {
		if f.Nullable {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s at position %d", row.ErrMissingColumn, f.Name, x.Pos)
	}

	c := r[x.Pos]

	if c.Kind() != f.ColumnKind() || (f.List && c.Elem() != f.Kind) {
		return nil, fmt.Errorf("%w: %s at position %d is %s", row.ErrColumnKind, f.Name, x.Pos, c.Kind())
	}

	if c.IsNull() {
		if f.Nullable {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s at position %d", row.ErrNullColumn, f.Name, x.Pos)
	}

	if f.List {
		elems := c.Elements()
		out := make([]any, len(elems))
		for i, e := range elems {
			out[i] = x.scalar.CloneValue(e.Any())
		}
		return out, nil
	}

	return x.scalar.CloneValue(c.Any()), nil
}

// Encoder writes one field into its row position.
type Encoder struct {
	Pos   int
	Field FieldDescriptor

	scalar *scalar.Scalar
}

func (e Encoder) Encode(v any) (row.Column, error) {
	f := e.Field

	if v == nil {
		if !f.Nullable {
			return row.Column{}, fmt.Errorf("%w: %s", row.ErrNullColumn, f.Name)
		}
		if f.List {
			return row.NullArray(f.Kind), nil
		}
		return row.Null(f.Kind), nil
	}

	if !f.List {
		c, err := row.New(f.Kind, e.scalar.CloneValue(v))
		if err != nil {
			return row.Column{}, fmt.Errorf("field %s: %w", f.Name, err)
		}
		return c, nil
	}

	vs, ok := v.([]any)
	if !ok {
		return row.Column{}, fmt.Errorf("%w: list field %s given %T", row.ErrValueType, f.Name, v)
	}

	cols := make([]row.Column, len(vs))
	for i, ev := range vs {
		c, err := row.New(f.Kind, e.scalar.CloneValue(ev))
		if err != nil {
			return row.Column{}, fmt.Errorf("field %s element %d: %w", f.Name, i, err)
		}
		cols[i] = c
	}

	return row.Array(f.Kind, cols...)
}

// IdentifierSpec describes how the id of a record is derived from its
// other fields.
type IdentifierSpec struct {
	Fields []string `yaml:"fields"`

	// IDPos is the row position of the id field.
	IDPos int `yaml:"-"`

	// Positions are the row positions of Fields.
	Positions []int `yaml:"-"`
}

// Derive hashes the columns at the identifier positions of r in order.
func (s *IdentifierSpec) Derive(r row.Row) (uint64, error) {
	h := ident.NewHasher()

	for i, p := range s.Positions {
		if p >= len(r) {
			return 0, fmt.Errorf("%w: identifier field %s at position %d", row.ErrMissingColumn, s.Fields[i], p)
		}
		h.WriteColumn(r[p])
	}

	return h.Sum(), nil
}

type EntityDescriptor struct {
	Name       string            `yaml:"name"`
	Kind       schema.Kind       `yaml:"kind"`
	TypeID     int64             `yaml:"type_id"`
	Target     schema.Target     `yaml:"target"`
	Fields     []FieldDescriptor `yaml:"fields"`
	Identifier *IdentifierSpec   `yaml:"identifier,omitempty"`
	Members    []string          `yaml:"members,omitempty"`

	Extractors []Extractor `yaml:"-"`
	Encoders   []Encoder   `yaml:"-"`
}

func (d *EntityDescriptor) TypeName() string      { return d.Name }
func (d *EntityDescriptor) TypeKind() schema.Kind { return d.Kind }

// Field returns the named field and its row position.
func (d *EntityDescriptor) Field(name string) (FieldDescriptor, int, bool) {
	for i, f := range d.Fields {
		if f.Name == name {
			return f, i, true
		}
	}
	return FieldDescriptor{}, -1, false
}

// FieldNames returns the field names in row order.
func (d *EntityDescriptor) FieldNames() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// Persistent reports whether the entity carries load and save hooks.
func (d *EntityDescriptor) Persistent() bool {
	return d.Target == schema.Native
}

type EnumDescriptor struct {
	Name     string   `yaml:"name"`
	TypeID   int64    `yaml:"type_id"`
	Variants []string `yaml:"variants"`

	index map[string]int
}

func (d *EnumDescriptor) TypeName() string      { return d.Name }
func (d *EnumDescriptor) TypeKind() schema.Kind { return schema.Enum }

// Qualified returns the string form of variant v, "Name::Variant".
func (d *EnumDescriptor) Qualified(v string) string {
	return d.Name + "::" + v
}

// Parse returns the index of the variant named by s.
func (d *EnumDescriptor) Parse(s string) (int, error) {
	if i, ok := d.index[s]; ok {
		return i, nil
	}

	expected := make([]string, len(d.Variants))
	for i, v := range d.Variants {
		expected[i] = d.Qualified(v)
	}

	return 0, &UnrecognizedVariantError{Value: s, Expected: expected}
}

// Format returns the string form of the variant at index i.
func (d *EnumDescriptor) Format(i int) (string, error) {
	if i < 0 || i >= len(d.Variants) {
		return "", fmt.Errorf("%w: %s index %d", ErrUnrecognizedVariant, d.Name, i)
	}
	return d.Qualified(d.Variants[i]), nil
}

var (
	_ Descriptor = (*EntityDescriptor)(nil)
	_ Descriptor = (*EnumDescriptor)(nil)
)
