package bind

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"miren.dev/indexer/pkg/row"
	"miren.dev/indexer/pkg/schema"
)

func testCompiler(t *testing.T, cfg schema.Config, sdl string) *Compiler {
	t.Helper()

	cat, err := schema.Load(cfg, "test.graphql", sdl)
	require.NoError(t, err)

	return NewCompiler(cat, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func lookup(t *testing.T, c *Compiler, name string) *schema.TypeDefinition {
	t.Helper()

	def, ok := c.Catalog.Lookup(name)
	require.True(t, ok, "missing definition %s", name)
	return def
}

const personSchema = `
type Person {
  id: ID!
  name: Charfield!
  age: UInt1!
}
`

func TestBuildObject(t *testing.T) {
	t.Run("lays out Person in declaration order", func(t *testing.T) {
		r := require.New(t)

		c := testCompiler(t, schema.Config{Namespace: "fuel", Target: schema.Native}, personSchema)

		ed, err := c.BuildObject(lookup(t, c, "Person"))
		r.NoError(err)

		r.Equal([]string{"id", "name", "age"}, ed.FieldNames())
		r.Equal([]FieldDescriptor{
			{Name: "id", Scalar: "ID", Kind: row.KindID},
			{Name: "name", Scalar: "Charfield", Kind: row.KindCharfield},
			{Name: "age", Scalar: "UInt1", Kind: row.KindUInt1},
		}, ed.Fields)

		r.NotNil(ed.Identifier)
		r.Equal([]string{"name", "age"}, ed.Identifier.Fields)
		r.Equal([]int{1, 2}, ed.Identifier.Positions)
		r.Equal(0, ed.Identifier.IDPos)

		sum := blake2b.Sum256([]byte("fuel.Person"))
		r.Equal(int64(binary.BigEndian.Uint64(sum[:8])%(1<<63)), ed.TypeID)
		r.Equal(schema.Native, ed.Target)
		r.True(ed.Persistent())
	})

	t.Run("accessors are keyed by position", func(t *testing.T) {
		r := require.New(t)

		c := testCompiler(t, schema.Config{Namespace: "fuel"}, personSchema)

		ed, err := c.BuildObject(lookup(t, c, "Person"))
		r.NoError(err)

		r.Len(ed.Extractors, 3)
		r.Len(ed.Encoders, 3)

		for i := range ed.Fields {
			r.Equal(i, ed.Extractors[i].Pos)
			r.Equal(i, ed.Encoders[i].Pos)
			r.Equal(ed.Fields[i], ed.Encoders[i].Field)
		}
	})

	t.Run("omits the identifier without an id field", func(t *testing.T) {
		r := require.New(t)

		c := testCompiler(t, schema.Config{Namespace: "fuel"}, `type Log { message: Charfield!, level: UInt1 }`)

		ed, err := c.BuildObject(lookup(t, c, "Log"))
		r.NoError(err)

		r.Nil(ed.Identifier)
		r.False(ed.Persistent())
	})

	t.Run("forces id to a non-null ID", func(t *testing.T) {
		r := require.New(t)

		c := testCompiler(t, schema.Config{Namespace: "fuel"}, `type Thing { id: UInt8, label: Charfield }`)

		ed, err := c.BuildObject(lookup(t, c, "Thing"))
		r.NoError(err)

		r.Equal(FieldDescriptor{Name: "id", Scalar: "ID", Kind: row.KindID}, ed.Fields[0])
		r.True(ed.Fields[1].Nullable)
	})

	t.Run("maps references and enums", func(t *testing.T) {
		r := require.New(t)

		c := testCompiler(t, schema.Config{Namespace: "fuel"}, `
type Owner { id: ID!, name: Charfield! }
enum Color { Red, Green }
type Car {
  id: ID!
  owner: Owner!
  color: Color
  plates: [Charfield!]!
}
`)

		ed, err := c.BuildObject(lookup(t, c, "Car"))
		r.NoError(err)

		owner, _, ok := ed.Field("owner")
		r.True(ok)
		r.Equal("ID", owner.Scalar)
		r.Equal("Owner", owner.Ref)

		color, _, ok := ed.Field("color")
		r.True(ok)
		r.Equal("Charfield", color.Scalar)
		r.Equal("Color", color.Enum)
		r.True(color.Nullable)

		plates, pos, ok := ed.Field("plates")
		r.True(ok)
		r.Equal(3, pos)
		r.True(plates.List)
		r.Equal(row.KindArray, plates.ColumnKind())

		r.Equal([]string{"owner", "color", "plates"}, ed.Identifier.Fields)
	})

	t.Run("rejects unknown scalars", func(t *testing.T) {
		r := require.New(t)

		c := testCompiler(t, schema.Config{Namespace: "fuel"}, `type Coin { id: ID!, amount: Decimal! }`)

		_, err := c.BuildObject(lookup(t, c, "Coin"))
		r.ErrorIs(err, ErrUnknownScalar)

		var se *SchemaError
		r.ErrorAs(err, &se)
		r.Equal("Coin", se.Type)
		r.Equal("amount", se.Field)
		r.Contains(err.Error(), "Decimal")
	})

	t.Run("rejects disallowed names", func(t *testing.T) {
		for _, name := range []string{"Charfield", "QueryRoot", "Query", "IndexMetadataEntity", "__Meta"} {
			t.Run(name, func(t *testing.T) {
				c := testCompiler(t, schema.Config{Namespace: "fuel"}, "type "+name+" { id: ID! }")

				_, err := c.BuildObject(lookup(t, c, name))
				require.ErrorIs(t, err, ErrDisallowedTypeName)
			})
		}
	})

	t.Run("rejects the wrong kind", func(t *testing.T) {
		r := require.New(t)

		c := testCompiler(t, schema.Config{Namespace: "fuel"}, `enum Color { Red }`)

		_, err := c.BuildObject(lookup(t, c, "Color"))
		r.ErrorIs(err, ErrWrongTypeKind)

		_, err = c.BuildUnion(lookup(t, c, "Color"))
		r.ErrorIs(err, ErrWrongTypeKind)
	})
}

const unionSchema = `
type A {
  id: ID!
  name: Charfield!
  age: UInt1!
}

type B {
  id: ID!
  name: Charfield!
}

union U = A | B
`

func TestBuildUnion(t *testing.T) {
	t.Run("merges member fields", func(t *testing.T) {
		r := require.New(t)

		c := testCompiler(t, schema.Config{Namespace: "fuel", Target: schema.Native}, unionSchema)

		ed, err := c.BuildUnion(lookup(t, c, "U"))
		r.NoError(err, spew.Sdump(err))

		r.Equal(schema.Union, ed.Kind)
		r.Equal([]string{"id", "name", "age"}, ed.FieldNames())
		r.Equal([]string{"A", "B"}, ed.Members)

		id, _, _ := ed.Field("id")
		r.False(id.Nullable)

		age, _, _ := ed.Field("age")
		r.True(age.Nullable)

		name, _, _ := ed.Field("name")
		r.True(name.Nullable)

		r.Equal([]string{"name", "age"}, ed.Identifier.Fields)
		r.Equal(c.Catalog.TypeID("U"), ed.TypeID)
	})

	t.Run("rejects inconsistent field types", func(t *testing.T) {
		r := require.New(t)

		c := testCompiler(t, schema.Config{Namespace: "fuel"}, `
type A { id: ID!, name: Charfield!, age: UInt1! }
type B { id: ID!, name: UInt8! }
union U = A | B
`)

		_, err := c.BuildUnion(lookup(t, c, "U"))
		r.ErrorIs(err, ErrInconsistentUnionFieldType)

		var se *SchemaError
		r.ErrorAs(err, &se)
		r.Equal("name", se.Field)
		r.Equal("B", se.Member)
	})

	t.Run("rejects inconsistent nullability", func(t *testing.T) {
		c := testCompiler(t, schema.Config{Namespace: "fuel"}, `
type A { id: ID!, name: Charfield! }
type B { id: ID!, name: Charfield }
union U = A | B
`)

		_, err := c.BuildUnion(lookup(t, c, "U"))
		require.ErrorIs(t, err, ErrInconsistentUnionFieldType)
	})

	t.Run("rejects missing members", func(t *testing.T) {
		r := require.New(t)

		c := testCompiler(t, schema.Config{Namespace: "fuel"}, `
type A { id: ID! }
enum E { X }
union U = A | Ghost
union V = A | E
`)

		_, err := c.BuildUnion(lookup(t, c, "U"))
		r.ErrorIs(err, ErrMissingUnionMember)
		r.Contains(err.Error(), "Ghost")

		_, err = c.BuildUnion(lookup(t, c, "V"))
		r.ErrorIs(err, ErrMissingUnionMember)
		r.Contains(err.Error(), "not an object")
	})

	t.Run("a union without id has no identifier", func(t *testing.T) {
		r := require.New(t)

		c := testCompiler(t, schema.Config{Namespace: "fuel"}, `
type A { x: UInt1! }
type B { y: UInt1! }
union U = A | B
`)

		ed, err := c.BuildUnion(lookup(t, c, "U"))
		r.NoError(err)
		r.Nil(ed.Identifier)
		r.Equal([]string{"x", "y"}, ed.FieldNames())
	})
}

func TestBuildEnum(t *testing.T) {
	c := testCompiler(t, schema.Config{Namespace: "fuel"}, `enum Color { Red, Green, Blue }`)

	ed, err := c.BuildEnum(lookup(t, c, "Color"))
	require.NoError(t, err)

	t.Run("parses qualified variants", func(t *testing.T) {
		r := require.New(t)

		i, err := ed.Parse("Color::Red")
		r.NoError(err)
		r.Equal(0, i)

		i, err = ed.Parse("Color::Blue")
		r.NoError(err)
		r.Equal(2, i)
	})

	t.Run("formats variants", func(t *testing.T) {
		r := require.New(t)

		s, err := ed.Format(0)
		r.NoError(err)
		r.Equal("Color::Red", s)

		_, err = ed.Format(3)
		r.ErrorIs(err, ErrUnrecognizedVariant)
	})

	t.Run("reports unrecognized variants", func(t *testing.T) {
		r := require.New(t)

		_, err := ed.Parse("Color::Purple")
		r.ErrorIs(err, ErrUnrecognizedVariant)

		var uv *UnrecognizedVariantError
		r.ErrorAs(err, &uv)
		r.Equal("Color::Purple", uv.Value)
		r.Equal([]string{"Color::Red", "Color::Green", "Color::Blue"}, uv.Expected)
		r.Contains(err.Error(), "Color::Green")

		_, err = ed.Parse("Red")
		r.ErrorIs(err, ErrUnrecognizedVariant)
	})
}

func TestAccessors(t *testing.T) {
	c := testCompiler(t, schema.Config{Namespace: "fuel"}, `
type Wallet {
  id: ID!
  owner: Address!
  nick: Charfield
  blob: Blob
  tags: [Charfield!]
}
`)

	ed, err := c.BuildObject(lookup(t, c, "Wallet"))
	require.NoError(t, err)

	values := []any{
		uint64(9),
		row.Bytes32{1, 2, 3},
		"satoshi",
		[]byte{0xde, 0xad},
		[]any{"a", "b"},
	}

	t.Run("extract inverts encode", func(t *testing.T) {
		r := require.New(t)

		var rw row.Row
		for i, enc := range ed.Encoders {
			col, err := enc.Encode(values[i])
			r.NoError(err)
			rw = append(rw, col)
		}

		for i, x := range ed.Extractors {
			v, err := x.Extract(rw)
			r.NoError(err)
			r.Equal(values[i], v, ed.Fields[i].Name)
		}
	})

	t.Run("nullable fields encode null", func(t *testing.T) {
		r := require.New(t)

		col, err := ed.Encoders[2].Encode(nil)
		r.NoError(err)
		r.True(col.IsNull())

		col, err = ed.Encoders[4].Encode(nil)
		r.NoError(err)
		r.True(col.IsNull())
		r.Equal(row.KindArray, col.Kind())

		_, err = ed.Encoders[1].Encode(nil)
		r.ErrorIs(err, row.ErrNullColumn)
	})

	t.Run("absent slots", func(t *testing.T) {
		r := require.New(t)

		short := row.Row{row.Of(row.KindID, uint64(1)), row.Of(row.KindAddress, row.Bytes32{})}

		v, err := ed.Extractors[2].Extract(short)
		r.NoError(err)
		r.Nil(v)

		short = short[:1]
		_, err = ed.Extractors[1].Extract(short)
		r.ErrorIs(err, row.ErrMissingColumn)
	})

	t.Run("mismatched tags", func(t *testing.T) {
		r := require.New(t)

		bad := row.Row{row.Of(row.KindUInt8, uint64(1))}

		_, err := ed.Extractors[0].Extract(bad)
		r.ErrorIs(err, row.ErrColumnKind)

		_, err = ed.Encoders[1].Encode("not an address")
		r.ErrorIs(err, row.ErrValueType)
	})

	t.Run("null in a required slot", func(t *testing.T) {
		bad := row.Row{row.Null(row.KindID)}

		_, err := ed.Extractors[0].Extract(bad)
		require.ErrorIs(t, err, row.ErrNullColumn)
	})

	t.Run("blobs are not shared with the row", func(t *testing.T) {
		r := require.New(t)

		rw := row.Row{4: row.Of(row.KindBlob, []byte{1})}
		rw[3] = row.Of(row.KindBlob, []byte{1})

		v, err := ed.Extractors[3].Extract(rw)
		r.NoError(err)

		v.([]byte)[0] = 9

		again, err := ed.Extractors[3].Extract(rw)
		r.NoError(err)
		r.Equal([]byte{1}, again)
	})

	t.Run("identifier hashes the other fields", func(t *testing.T) {
		r := require.New(t)

		var rw row.Row
		for i, enc := range ed.Encoders {
			col, err := enc.Encode(values[i])
			r.NoError(err)
			rw = append(rw, col)
		}

		a, err := ed.Identifier.Derive(rw)
		r.NoError(err)

		rw[0] = row.Of(row.KindID, uint64(12345))
		b, err := ed.Identifier.Derive(rw)
		r.NoError(err)

		assert.Equal(t, a, b, "id column must not feed the digest")

		rw[2] = row.Of(row.KindCharfield, "vitalik")
		c, err := ed.Identifier.Derive(rw)
		r.NoError(err)
		r.NotEqual(a, c)
	})
}

func TestCompile(t *testing.T) {
	t.Run("compiles in declaration order", func(t *testing.T) {
		r := require.New(t)

		c := testCompiler(t, schema.Config{Namespace: "fuel"}, unionSchema+"\nenum Color { Red }\n")

		out, err := c.Compile(context.Background())
		r.NoError(err)

		var names []string
		for _, d := range out.Descriptors {
			names = append(names, d.TypeName())
		}

		r.Equal([]string{"A", "B", "U", "Color"}, names)
		r.Len(out.Entities, 3)
		r.Len(out.Enums, 1)

		u, ok := out.Entity("U")
		r.True(ok)
		r.Equal(schema.Union, u.TypeKind())

		e, ok := out.Enum("Color")
		r.True(ok)
		r.Equal(schema.Enum, e.TypeKind())
	})

	t.Run("aborts on the first error", func(t *testing.T) {
		r := require.New(t)

		c := testCompiler(t, schema.Config{Namespace: "fuel"}, `
type Good { id: ID! }
type Bad { id: ID!, v: Decimal }
`)

		out, err := c.Compile(context.Background())
		r.ErrorIs(err, ErrUnknownScalar)
		r.Nil(out)
	})

	t.Run("respects cancellation", func(t *testing.T) {
		c := testCompiler(t, schema.Config{Namespace: "fuel"}, personSchema)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.Compile(ctx)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("type ids depend on the namespace", func(t *testing.T) {
		r := require.New(t)

		a := testCompiler(t, schema.Config{Namespace: "alpha"}, personSchema)
		b := testCompiler(t, schema.Config{Namespace: "beta"}, personSchema)

		ea, err := a.BuildObject(lookup(t, a, "Person"))
		r.NoError(err)

		eb, err := b.BuildObject(lookup(t, b, "Person"))
		r.NoError(err)

		r.NotEqual(ea.TypeID, eb.TypeID)
	})
}
