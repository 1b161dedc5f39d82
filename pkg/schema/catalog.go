package schema

import (
	"fmt"
	"slices"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"miren.dev/indexer/pkg/ident"
)

type Config struct {
	Namespace  string
	Identifier string
	Target     Target
}

// Catalog is the read-only view of one schema handed to the compiler.
type Catalog struct {
	Namespace  string
	Identifier string
	Target     Target

	defs    []*TypeDefinition
	byName  map[string]*TypeDefinition
	scalars []string
}

// Parse parses SDL text. name is used in error locations.
func Parse(name, sdl string) (*ast.SchemaDocument, error) {
	return parser.ParseSchema(&ast.Source{Name: name, Input: sdl})
}

// Load parses sdl and builds its catalog.
func Load(cfg Config, name, sdl string) (*Catalog, error) {
	doc, err := Parse(name, sdl)
	if err != nil {
		return nil, err
	}

	return NewCatalog(cfg, doc)
}

// NewCatalog converts a parsed document into a catalog, preserving
// declaration order. Scalar declarations and schema blocks are accepted and
// ignored; interfaces, inputs and type extensions are rejected.
func NewCatalog(cfg Config, doc *ast.SchemaDocument) (*Catalog, error) {
	c := &Catalog{
		Namespace:  cfg.Namespace,
		Identifier: cfg.Identifier,
		Target:     cfg.Target,
		byName:     make(map[string]*TypeDefinition),
	}

	if len(doc.Extensions) > 0 {
		return nil, fmt.Errorf("%w: type extension of %s", ErrUnsupportedDefinition, doc.Extensions[0].Name)
	}

	for _, d := range doc.Definitions {
		var (
			td  *TypeDefinition
			err error
		)

		switch d.Kind {
		case ast.Scalar:
			c.scalars = append(c.scalars, d.Name)
			continue
		case ast.Object:
			td, err = convertObject(d)
		case ast.Union:
			td = &TypeDefinition{
				Name:        d.Name,
				Kind:        Union,
				Description: d.Description,
				Members:     slices.Clone(d.Types),
			}
		case ast.Enum:
			td = &TypeDefinition{
				Name:        d.Name,
				Kind:        Enum,
				Description: d.Description,
			}
			for _, v := range d.EnumValues {
				td.Values = append(td.Values, v.Name)
			}
		default:
			return nil, fmt.Errorf("%w: %s %s", ErrUnsupportedDefinition, d.Kind, d.Name)
		}

		if err != nil {
			return nil, err
		}

		if _, ok := c.byName[td.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateType, td.Name)
		}

		c.byName[td.Name] = td
		c.defs = append(c.defs, td)
	}

	return c, nil
}

func convertObject(d *ast.Definition) (*TypeDefinition, error) {
	td := &TypeDefinition{
		Name:        d.Name,
		Kind:        Object,
		Description: d.Description,
	}

	seen := make(map[string]struct{}, len(d.Fields))

	for _, f := range d.Fields {
		if _, ok := seen[f.Name]; ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrDuplicateField, d.Name, f.Name)
		}
		seen[f.Name] = struct{}{}

		fd, err := convertField(f)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", d.Name, f.Name, err)
		}

		td.Fields = append(td.Fields, fd)
	}

	return td, nil
}

func convertField(f *ast.FieldDefinition) (FieldDefinition, error) {
	if len(f.Arguments) > 0 {
		return FieldDefinition{}, fmt.Errorf("%w: fields with arguments", ErrUnsupportedType)
	}

	fd := FieldDefinition{
		Name:     f.Name,
		Nullable: !f.Type.NonNull,
	}

	t := f.Type
	if t.Elem != nil {
		if t.Elem.Elem != nil {
			return FieldDefinition{}, fmt.Errorf("%w: nested list %s", ErrUnsupportedType, t)
		}

		if !t.Elem.NonNull {
			return FieldDefinition{}, fmt.Errorf("%w: nullable list element in %s", ErrUnsupportedType, t)
		}

		fd.List = true
		t = t.Elem
	}

	fd.Type = t.NamedType
	return fd, nil
}

// Definitions returns every type definition in declaration order.
func (c *Catalog) Definitions() []*TypeDefinition {
	return c.defs
}

func (c *Catalog) Lookup(name string) (*TypeDefinition, bool) {
	td, ok := c.byName[name]
	return td, ok
}

// KindOf reports the kind of a named type definition.
func (c *Catalog) KindOf(name string) (Kind, bool) {
	td, ok := c.byName[name]
	if !ok {
		return 0, false
	}
	return td.Kind, true
}

// ObjectFields returns the declared fields of the object type name.
func (c *Catalog) ObjectFields(name string) ([]FieldDefinition, bool) {
	td, ok := c.byName[name]
	if !ok || td.Kind != Object {
		return nil, false
	}
	return td.Fields, true
}

// Scalars lists the custom scalars declared in the schema.
func (c *Catalog) Scalars() []string {
	return c.scalars
}

func (c *Catalog) FullyQualifiedNamespace() string {
	return ident.FullyQualifiedNamespace(c.Namespace, c.Identifier)
}

// TypeID returns the type id of name in this catalog's namespace.
func (c *Catalog) TypeID(name string) int64 {
	return ident.TypeID(c.FullyQualifiedNamespace(), name)
}
