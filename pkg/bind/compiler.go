// Package bind compiles schema type definitions into entity and enum
// descriptors: the field layout, row accessors and identifier derivation
// that generated bindings are rendered from.
package bind

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"miren.dev/indexer/pkg/scalar"
	"miren.dev/indexer/pkg/schema"
)

type Compiler struct {
	Catalog  *schema.Catalog
	Registry *scalar.Registry

	log        *slog.Logger
	translator Translator
}

// NewCompiler returns a compiler over cat. A nil registry uses
// scalar.Default and a nil logger uses slog.Default.
func NewCompiler(cat *schema.Catalog, reg *scalar.Registry, log *slog.Logger) *Compiler {
	if reg == nil {
		reg = scalar.Default()
	}

	if log == nil {
		log = slog.Default()
	}

	return &Compiler{
		Catalog:  cat,
		Registry: reg,
		log:      log.With("module", "bind"),
		translator: Translator{
			Registry: reg,
			Catalog:  cat,
		},
	}
}

// Output is every compiled descriptor of a schema in declaration order.
type Output struct {
	Namespace  string        `yaml:"namespace"`
	Identifier string        `yaml:"identifier,omitempty"`
	Target     schema.Target `yaml:"target"`

	Descriptors []Descriptor        `yaml:"-"`
	Entities    []*EntityDescriptor `yaml:"entities,omitempty"`
	Enums       []*EnumDescriptor   `yaml:"enums,omitempty"`
}

// Entity returns the compiled entity named name.
func (o *Output) Entity(name string) (*EntityDescriptor, bool) {
	for _, e := range o.Entities {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// Enum returns the compiled enum named name.
func (o *Output) Enum(name string) (*EnumDescriptor, bool) {
	for _, e := range o.Enums {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// CompileType dispatches def to the builder for its kind.
func (c *Compiler) CompileType(def *schema.TypeDefinition) (Descriptor, error) {
	switch def.Kind {
	case schema.Object:
		return c.BuildObject(def)
	case schema.Union:
		return c.BuildUnion(def)
	case schema.Enum:
		return c.BuildEnum(def)
	default:
		return nil, &SchemaError{Type: def.Name, Rule: ErrWrongTypeKind, Detail: def.Kind.String()}
	}
}

// Compile compiles every definition of the catalog. Definitions are
// independent so they are built concurrently; the first error aborts the
// whole compilation.
func (c *Compiler) Compile(ctx context.Context) (*Output, error) {
	defs := c.Catalog.Definitions()
	results := make([]Descriptor, len(defs))

	g, ctx := errgroup.WithContext(ctx)

	for i, def := range defs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			d, err := c.CompileType(def)
			if err != nil {
				c.log.Debug("type failed to compile", "type", def.Name, "error", err)
				return err
			}

			c.log.Debug("compiled type", "type", def.Name, "kind", def.Kind)
			results[i] = d
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Output{
		Namespace:   c.Catalog.Namespace,
		Identifier:  c.Catalog.Identifier,
		Target:      c.Catalog.Target,
		Descriptors: results,
	}

	for _, d := range results {
		switch d := d.(type) {
		case *EntityDescriptor:
			out.Entities = append(out.Entities, d)
		case *EnumDescriptor:
			out.Enums = append(out.Enums, d)
		}
	}

	c.log.Info("compiled schema",
		"namespace", c.Catalog.FullyQualifiedNamespace(),
		"entities", len(out.Entities),
		"enums", len(out.Enums))

	return out, nil
}
