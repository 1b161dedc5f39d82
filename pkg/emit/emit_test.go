package emit

import (
	"context"
	"go/parser"
	"go/token"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miren.dev/indexer/pkg/bind"
	"miren.dev/indexer/pkg/schema"
)

const testSchema = `
enum Color {
  Red
  Green
  Blue
}

type Person {
  id: ID!
  name: Charfield!
  age: UInt1!
}

type Pet {
  id: ID!
  name: Charfield!
  color: Color
  owner: Person
  tags: [Charfield!]
  shades: [Color!]!
  wallet: Address
}

type Log {
  message: Charfield!
  block_height: BlockHeight!
}

union Being = Person | Pet
`

func generate(t *testing.T, target schema.Target, sdl string) string {
	t.Helper()

	cat, err := schema.Load(schema.Config{Namespace: "fuel", Target: target}, "test.graphql", sdl)
	require.NoError(t, err)

	out, err := bind.NewCompiler(cat, nil, slog.New(slog.NewTextHandler(io.Discard, nil))).Compile(context.Background())
	require.NoError(t, err)

	code, err := Generate(out, "entities")
	require.NoError(t, err)

	_, err = parser.ParseFile(token.NewFileSet(), "entities.go", code, parser.AllErrors)
	require.NoError(t, err, "generated code does not parse:\n%s", code)

	return code
}

// section returns the text of the function starting with header.
func section(t *testing.T, code, header string) string {
	t.Helper()

	start := strings.Index(code, header)
	require.NotEqual(t, -1, start, "could not find %q in:\n%s", header, code)

	end := strings.Index(code[start:], "\n}")
	require.NotEqual(t, -1, end)

	return code[start : start+end]
}

func TestGenerateObject(t *testing.T) {
	code := generate(t, schema.Native, testSchema)
	cat, err := schema.Load(schema.Config{Namespace: "fuel"}, "test.graphql", testSchema)
	require.NoError(t, err)

	t.Run("type id constant", func(t *testing.T) {
		assert.Contains(t, code, "const PersonTypeID = int64("+strconv.FormatInt(cat.TypeID("Person"), 10)+")")
	})

	t.Run("struct layout", func(t *testing.T) {
		r := require.New(t)

		st := section(t, code, "type Person struct {")
		r.Regexp(regexp.MustCompile(`ID\s+uint64\s+`+"`json:\"id\"`"), st)
		r.Regexp(regexp.MustCompile(`Name\s+string\s+`+"`json:\"name\"`"), st)
		r.Regexp(regexp.MustCompile(`Age\s+uint8\s+`+"`json:\"age\"`"), st)

		r.Less(strings.Index(st, "ID "), strings.Index(st, "Name "))
		r.Less(strings.Index(st, "Name "), strings.Index(st, "Age "))

		pet := section(t, code, "type Pet struct {")
		r.Regexp(`Color\s+\*Color\s+`, pet)
		r.Regexp(`Owner\s+\*uint64\s+`, pet)
		r.Regexp(`Tags\s+\[\]string\s+`, pet)
		r.Regexp(`Shades\s+\[\]Color\s+`, pet)
		r.Regexp(`Wallet\s+\*row\.Bytes32\s+`, pet)

		lg := section(t, code, "type Log struct {")
		r.Regexp(`BlockHeight\s+uint32\s+`+"`json:\"block_height\"`", lg)
	})

	t.Run("from row", func(t *testing.T) {
		r := require.New(t)

		fn := section(t, code, "func PersonFromRow(r row.Row) (*Person, error) {")
		r.Contains(fn, "o.ID, err = row.Get[uint64](r, 0, row.KindID)")
		r.Contains(fn, "o.Name, err = row.Get[string](r, 1, row.KindCharfield)")
		r.Contains(fn, "o.Age, err = row.Get[uint8](r, 2, row.KindUInt1)")
		r.Contains(fn, `fmt.Errorf("Person.age: %w", err)`)

		fn = section(t, code, "func PetFromRow(r row.Row) (*Pet, error) {")
		r.Contains(fn, "o.Color, err = colorFromOptString(row.GetOpt[string](r, 2, row.KindCharfield))")
		r.Contains(fn, "o.Owner, err = row.GetOpt[uint64](r, 3, row.KindID)")
		r.Contains(fn, "o.Tags, err = row.GetList[string](r, 4, row.KindCharfield, true)")
		r.Contains(fn, "o.Shades, err = colorFromStrings(row.GetList[string](r, 5, row.KindCharfield, false))")
		r.Contains(fn, "o.Wallet, err = row.GetOpt[row.Bytes32](r, 6, row.KindAddress)")
	})

	t.Run("to row", func(t *testing.T) {
		r := require.New(t)

		fn := section(t, code, "func (o *Pet) ToRow() row.Row {")
		r.Contains(fn, "row.Of(row.KindID, o.ID),")
		r.Contains(fn, "row.OptMap(row.KindCharfield, o.Color, Color.String),")
		r.Contains(fn, "row.Opt(row.KindID, o.Owner),")
		r.Contains(fn, "row.OptList(row.KindCharfield, o.Tags),")
		r.Contains(fn, "row.ListMap(row.KindCharfield, o.Shades, Color.String),")
		r.Contains(fn, "row.Opt(row.KindAddress, o.Wallet),")
	})

	t.Run("derived id constructor", func(t *testing.T) {
		r := require.New(t)

		r.Contains(code, "func NewPerson(name string, age uint8) *Person {")

		fn := section(t, code, "func (o *Person) DeriveID() uint64 {")
		r.Contains(fn, "return ident.FromColumns(r[1], r[2])")

		r.NotContains(code, "func NewLog(")
	})

	t.Run("native persistence", func(t *testing.T) {
		r := require.New(t)

		r.Contains(code, "func LoadPerson(ctx context.Context, g *store.Guard, id uint64) (*Person, error) {")
		r.Contains(code, "return g.Save(ctx, PersonTypeID, o.ID, o.ToRow())")

		fn := section(t, code, "func (o *Person) GetOrCreate(ctx context.Context, g *store.Guard) (*Person, error) {")
		r.Contains(fn, "LoadPerson(ctx, g, o.ID)")
		r.Contains(fn, "errors.Is(err, store.ErrNotFound)")

		fn = section(t, code, "func (o *Log) Save(ctx context.Context, g *store.Guard) error {")
		r.Contains(fn, "ident.FromColumns(r...)")

		r.NotContains(code, "func (o *Log) GetOrCreate(")
	})

	t.Run("json", func(t *testing.T) {
		r := require.New(t)

		r.Contains(code, "func (o *Person) ToJSON() ([]byte, error) {")
		r.Contains(code, "func PersonFromJSON(data []byte) (*Person, error) {")
	})
}

func TestGenerateSandboxed(t *testing.T) {
	r := require.New(t)

	code := generate(t, schema.Sandboxed, testSchema)

	r.Contains(code, "func PersonFromRow(")
	r.Contains(code, "func NewPerson(")
	r.NotContains(code, "func LoadPerson(")
	r.NotContains(code, ") Save(")
	r.NotContains(code, ") GetOrCreate(")
	r.NotContains(code, "store.Guard")
}

func TestGenerateUnion(t *testing.T) {
	code := generate(t, schema.Native, testSchema)

	t.Run("union struct", func(t *testing.T) {
		r := require.New(t)

		st := section(t, code, "type Being struct {")
		r.Regexp(`ID\s+uint64\s+`, st)
		r.Regexp(`Name\s+\*string\s+`, st)
		r.Regexp(`Age\s+\*uint8\s+`, st)
		r.Regexp(`Color\s+\*Color\s+`, st)

		r.Contains(code, "func NewBeing(")
		r.Contains(code, "func LoadBeing(")
	})

	t.Run("member conversions", func(t *testing.T) {
		r := require.New(t)

		fn := section(t, code, "func NewBeingFromPerson(m *Person) *Being {")
		r.Regexp(`ID:\s+m\.ID,`, fn)
		r.Regexp(`Name:\s+row\.Ptr\(m\.Name\),`, fn)
		r.Regexp(`Age:\s+row\.Ptr\(m\.Age\),`, fn)
		r.NotContains(fn, "Owner")

		fn = section(t, code, "func NewBeingFromPet(m *Pet) *Being {")
		r.Regexp(`Owner:\s+m\.Owner,`, fn)
		r.Regexp(`Shades:\s+m\.Shades,`, fn)
		r.NotContains(fn, "Age")
	})
}

func TestGenerateEnum(t *testing.T) {
	r := require.New(t)

	code := generate(t, schema.Native, testSchema)

	r.Contains(code, "type Color int")
	r.Contains(code, "ColorRed Color = iota")
	r.Contains(code, "ColorBlue\n")
	r.Contains(code, `var colorVariants = [...]string{"Color::Red", "Color::Green", "Color::Blue"}`)

	fn := section(t, code, "func ParseColor(s string) (Color, error) {")
	r.Contains(fn, `case "Color::Red":`)
	r.Contains(fn, "return ColorRed, nil")
	r.Contains(fn, "&bind.UnrecognizedVariantError{")

	r.Contains(code, "func (v Color) String() string {")
	r.Contains(code, "func (v *Color) UnmarshalText(b []byte) error {")

	// enums come first because they are declared first
	r.Less(strings.Index(code, "type Color int"), strings.Index(code, "type Person struct"))
}

func TestGenerateErrors(t *testing.T) {
	cat, err := schema.Load(schema.Config{Namespace: "fuel"}, "test.graphql", `type Bad { id: ID!, save: Charfield! }`)
	require.NoError(t, err)

	out, err := bind.NewCompiler(cat, nil, slog.New(slog.NewTextHandler(io.Discard, nil))).Compile(context.Background())
	require.NoError(t, err)

	_, err = Generate(out, "entities")
	require.ErrorContains(t, err, "collides with generated method")
}

func TestNames(t *testing.T) {
	r := require.New(t)

	r.Equal("BlockHeight", toCamal("block_height"))
	r.Equal("ID", goName("id"))
	r.Equal("Owner", goName("owner"))
	r.Equal("type_", paramName("type"))
	r.Equal("o_", paramName("o"))
	r.Equal("blockHeight", paramName("block_height"))
}
