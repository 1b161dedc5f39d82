package bind

import (
	"fmt"
	"strings"

	"miren.dev/indexer/pkg/schema"
)

var reservedNames = map[string]struct{}{
	"Query":               {},
	"QueryRoot":           {},
	"Mutation":            {},
	"Subscription":        {},
	"IndexMetadataEntity": {},
}

// builder accumulates the ordered field, extractor and encoder lists of one
// entity before the descriptor is assembled.
type builder struct {
	name string
	tr   *Translator

	fields     []FieldDescriptor
	extractors []Extractor
	encoders   []Encoder

	positions map[string]int
}

func newBuilder(name string, tr *Translator) *builder {
	return &builder{
		name:      name,
		tr:        tr,
		positions: make(map[string]int),
	}
}

func (b *builder) field(fd schema.FieldDefinition) error {
	if _, ok := b.positions[fd.Name]; ok {
		return &SchemaError{
			Type:   b.name,
			Field:  fd.Name,
			Rule:   schema.ErrDuplicateField,
			Detail: "declared twice",
		}
	}

	pos := len(b.fields)

	t, err := b.tr.Translate(b.name, pos, fd)
	if err != nil {
		return err
	}

	b.positions[fd.Name] = pos
	b.fields = append(b.fields, t.Field)
	b.extractors = append(b.extractors, t.Extractor)
	b.encoders = append(b.encoders, t.Encoder)

	return nil
}

// canDeriveID reports whether the named field feeds id derivation. Only the
// literal id field is excluded.
func (b *builder) canDeriveID(name string) bool {
	_, ok := b.positions[name]
	return ok && name != idField
}

func (b *builder) identifier() *IdentifierSpec {
	idPos, ok := b.positions[idField]
	if !ok {
		return nil
	}

	spec := &IdentifierSpec{IDPos: idPos}

	for _, f := range b.fields {
		if b.canDeriveID(f.Name) {
			spec.Fields = append(spec.Fields, f.Name)
			spec.Positions = append(spec.Positions, b.positions[f.Name])
		}
	}

	return spec
}

func (b *builder) descriptor(kind schema.Kind, c *Compiler) *EntityDescriptor {
	return &EntityDescriptor{
		Name:       b.name,
		Kind:       kind,
		TypeID:     c.Catalog.TypeID(b.name),
		Target:     c.Catalog.Target,
		Fields:     b.fields,
		Identifier: b.identifier(),
		Extractors: b.extractors,
		Encoders:   b.encoders,
	}
}

func (c *Compiler) checkName(name string) error {
	var detail string

	switch {
	case c.Registry.Has(name):
		detail = "name of a scalar type"
	case strings.HasPrefix(name, "__"):
		detail = "names starting with __ are reserved"
	default:
		if _, ok := reservedNames[name]; ok {
			detail = "reserved root type"
		}
	}

	if detail == "" {
		return nil
	}

	return &SchemaError{Type: name, Rule: ErrDisallowedTypeName, Detail: detail}
}

func wrongKind(def *schema.TypeDefinition, want schema.Kind) error {
	return &SchemaError{
		Type:   def.Name,
		Rule:   ErrWrongTypeKind,
		Detail: fmt.Sprintf("%s definition given to the %s builder", def.Kind, want),
	}
}

// BuildObject compiles an object type definition.
func (c *Compiler) BuildObject(def *schema.TypeDefinition) (*EntityDescriptor, error) {
	if def.Kind != schema.Object {
		return nil, wrongKind(def, schema.Object)
	}

	if err := c.checkName(def.Name); err != nil {
		return nil, err
	}

	b := newBuilder(def.Name, &c.translator)

	for _, fd := range def.Fields {
		if err := b.field(fd); err != nil {
			return nil, err
		}
	}

	return b.descriptor(schema.Object, c), nil
}

type unionField struct {
	def    schema.FieldDefinition
	member string
}

// BuildUnion compiles a union by merging the fields of its members. The
// first member to declare a field fixes its position; every later
// declaration must agree on type and nullability. Merged fields are
// nullable except id.
func (c *Compiler) BuildUnion(def *schema.TypeDefinition) (*EntityDescriptor, error) {
	if def.Kind != schema.Union {
		return nil, wrongKind(def, schema.Union)
	}

	if err := c.checkName(def.Name); err != nil {
		return nil, err
	}

	var (
		order []string
		seen  = make(map[string]unionField)
	)

	for _, member := range def.Members {
		fields, ok := c.Catalog.ObjectFields(member)
		if !ok {
			detail := "not defined in the schema"
			if _, found := c.Catalog.Lookup(member); found {
				detail = "not an object type"
			}
			return nil, &SchemaError{
				Type:   def.Name,
				Member: member,
				Rule:   ErrMissingUnionMember,
				Detail: detail,
			}
		}

		for _, fd := range fields {
			prev, ok := seen[fd.Name]
			if !ok {
				seen[fd.Name] = unionField{def: fd, member: member}
				order = append(order, fd.Name)
				continue
			}

			if prev.def.Type != fd.Type || prev.def.Nullable != fd.Nullable || prev.def.List != fd.List {
				return nil, &SchemaError{
					Type:   def.Name,
					Field:  fd.Name,
					Member: member,
					Rule:   ErrInconsistentUnionFieldType,
					Detail: fmt.Sprintf("%s declares %s, %s declares %s", prev.member, prev.def, member, fd),
				}
			}
		}
	}

	b := newBuilder(def.Name, &c.translator)

	for _, name := range order {
		fd := seen[name].def
		fd.Nullable = name != idField

		if err := b.field(fd); err != nil {
			return nil, err
		}
	}

	ed := b.descriptor(schema.Union, c)
	ed.Members = append([]string(nil), def.Members...)

	return ed, nil
}

// BuildEnum compiles an enum into its variant mapping.
func (c *Compiler) BuildEnum(def *schema.TypeDefinition) (*EnumDescriptor, error) {
	if def.Kind != schema.Enum {
		return nil, wrongKind(def, schema.Enum)
	}

	if err := c.checkName(def.Name); err != nil {
		return nil, err
	}

	ed := &EnumDescriptor{
		Name:     def.Name,
		TypeID:   c.Catalog.TypeID(def.Name),
		Variants: append([]string(nil), def.Values...),
		index:    make(map[string]int, len(def.Values)),
	}

	for i, v := range ed.Variants {
		ed.index[ed.Qualified(v)] = i
	}

	return ed, nil
}
