// Package emit renders compiled descriptors as Go source.
package emit

import (
	"bytes"
	"fmt"
	"go/token"
	"reflect"
	"strings"

	j "github.com/dave/jennifer/jen"

	"miren.dev/indexer/pkg/bind"
	"miren.dev/indexer/pkg/row"
	"miren.dev/indexer/pkg/schema"
)

const (
	rowPkg   = "miren.dev/indexer/pkg/row"
	identPkg = "miren.dev/indexer/pkg/ident"
	storePkg = "miren.dev/indexer/pkg/store"
	bindPkg  = "miren.dev/indexer/pkg/bind"
)

// generated method names a field may not take.
var methodNames = map[string]struct{}{
	"ToRow":       {},
	"DeriveID":    {},
	"Save":        {},
	"GetOrCreate": {},
	"ToJSON":      {},
}

// Generate renders every descriptor of out, in declaration order, as a Go
// file in package pkg.
func Generate(out *bind.Output, pkg string) (string, error) {
	jf := j.NewFile(pkg)
	jf.HeaderComment("Code generated by indexgen. DO NOT EDIT.")

	entities := make(map[string]*bind.EntityDescriptor, len(out.Entities))
	for _, e := range out.Entities {
		entities[e.Name] = e
	}

	for _, d := range out.Descriptors {
		switch d := d.(type) {
		case *bind.EnumDescriptor:
			genEnum(jf, d)
		case *bind.EntityDescriptor:
			g := gen{f: jf, ed: d, structName: toCamal(d.Name)}

			if err := g.build(); err != nil {
				return "", err
			}

			g.generate()

			for _, m := range d.Members {
				med, ok := entities[m]
				if !ok {
					return "", fmt.Errorf("union %s: no descriptor for member %s", d.Name, m)
				}
				genFromMember(jf, d, med)
			}
		default:
			return "", fmt.Errorf("unsupported descriptor %T", d)
		}
	}

	var buf bytes.Buffer
	err := jf.Render(&buf)
	if err != nil {
		return "", fmt.Errorf("failed to render generated code: %w", err)
	}

	return buf.String(), nil
}

type gen struct {
	f          *j.File
	ed         *bind.EntityDescriptor
	structName string

	fields   []j.Code
	decoders []j.Code
	encoders []j.Code

	params  []j.Code
	assigns j.Dict
	idCols  []j.Code
}

func (g *gen) build() error {
	g.assigns = j.Dict{}

	for pos, f := range g.ed.Fields {
		name := goName(f.Name)
		if _, ok := methodNames[name]; ok {
			return fmt.Errorf("%s.%s: field name collides with generated method %s", g.ed.Name, f.Name, name)
		}

		g.fields = append(g.fields,
			j.Id(name).Add(fieldType(f)).Tag(map[string]string{"json": f.Name}))

		g.decoders = append(g.decoders, g.decoder(pos, f, name)...)
		g.encoders = append(g.encoders, encoder(f, name))

		if g.ed.Identifier != nil && pos != g.ed.Identifier.IDPos {
			p := paramName(f.Name)
			g.params = append(g.params, j.Id(p).Add(fieldType(f)))
			g.assigns[j.Id(name)] = j.Id(p)
			g.idCols = append(g.idCols, j.Id("r").Index(j.Lit(pos)))
		}
	}

	return nil
}

func (g *gen) decoder(pos int, f bind.FieldDescriptor, name string) []j.Code {
	kind := kindCode(f.Kind)
	storage := storageType(f.Kind)

	var get *j.Statement
	switch {
	case f.List:
		get = j.Qual(rowPkg, "GetList").Types(storage).Call(j.Id("r"), j.Lit(pos), kind, j.Lit(f.Nullable))
	case f.Nullable:
		get = j.Qual(rowPkg, "GetOpt").Types(storage).Call(j.Id("r"), j.Lit(pos), kind)
	default:
		get = j.Qual(rowPkg, "Get").Types(storage).Call(j.Id("r"), j.Lit(pos), kind)
	}

	if f.Enum != "" {
		helper := lowerFirst(toCamal(f.Enum))
		switch {
		case f.List:
			helper += "FromStrings"
		case f.Nullable:
			helper += "FromOptString"
		default:
			helper += "FromString"
		}
		get = j.Id(helper).Call(get)
	}

	return []j.Code{
		j.List(j.Id("o").Dot(name), j.Err()).Op("=").Add(get),
		j.If(j.Err().Op("!=").Nil()).Block(
			j.Return(j.Nil(), j.Qual("fmt", "Errorf").Call(j.Lit(g.ed.Name+"."+f.Name+": %w"), j.Err())),
		),
	}
}

func encoder(f bind.FieldDescriptor, name string) j.Code {
	kind := kindCode(f.Kind)
	val := j.Id("o").Dot(name)

	if f.Enum != "" {
		str := j.Id(toCamal(f.Enum)).Dot("String")
		switch {
		case f.List && f.Nullable:
			return j.Qual(rowPkg, "OptListMap").Call(kind, val, str)
		case f.List:
			return j.Qual(rowPkg, "ListMap").Call(kind, val, str)
		case f.Nullable:
			return j.Qual(rowPkg, "OptMap").Call(kind, val, str)
		default:
			return j.Qual(rowPkg, "Of").Call(kind, val.Dot("String").Call())
		}
	}

	switch {
	case f.List && f.Nullable:
		return j.Qual(rowPkg, "OptList").Call(kind, val)
	case f.List:
		return j.Qual(rowPkg, "List").Call(kind, val)
	case f.Nullable:
		return j.Qual(rowPkg, "Opt").Call(kind, val)
	default:
		return j.Qual(rowPkg, "Of").Call(kind, val)
	}
}

func (g *gen) generate() {
	f := g.f
	ed := g.ed
	sn := g.structName
	typeID := sn + "TypeID"

	recv := j.Id("o").Op("*").Id(sn)
	ctxParams := []j.Code{
		j.Id("ctx").Qual("context", "Context"),
		j.Id("g").Op("*").Qual(storePkg, "Guard"),
	}

	f.Commentf("%s is the type id of %s.", typeID, sn)
	f.Const().Id(typeID).Op("=").Lit(ed.TypeID)
	f.Line()

	if ed.Kind == schema.Union {
		f.Commentf("%s is the union of %s.", sn, strings.Join(ed.Members, ", "))
	}
	f.Type().Id(sn).Struct(g.fields...)
	f.Line()

	f.Commentf("%sFromRow decodes a %s from its row.", sn, sn)
	f.Func().Id(sn+"FromRow").
		Params(j.Id("r").Qual(rowPkg, "Row")).
		Params(j.Op("*").Id(sn), j.Error()).
		BlockFunc(func(b *j.Group) {
			if len(g.decoders) == 0 {
				b.Return(j.Op("&").Id(sn).Values(), j.Nil())
				return
			}
			b.Var().Defs(
				j.Id("o").Id(sn),
				j.Err().Error(),
			)
			for _, d := range g.decoders {
				b.Add(d)
			}
			b.Return(j.Op("&").Id("o"), j.Nil())
		})
	f.Line()

	f.Comment("ToRow encodes the record in field order.")
	f.Func().Params(recv.Clone()).Id("ToRow").Params().Qual(rowPkg, "Row").
		Block(
			j.Return(j.Qual(rowPkg, "Row").Custom(j.Options{
				Open:      "{",
				Close:     "}",
				Separator: ",",
				Multi:     true,
			}, g.encoders...)),
		)
	f.Line()

	if ed.Identifier != nil {
		f.Commentf("New%s returns a %s whose ID is derived from the other fields.", sn, sn)
		f.Func().Id("New"+sn).Params(g.params...).Op("*").Id(sn).
			Block(
				j.Id("o").Op(":=").Op("&").Id(sn).Values(g.assigns),
				j.Id("o").Dot("ID").Op("=").Id("o").Dot("DeriveID").Call(),
				j.Return(j.Id("o")),
			)
		f.Line()

		f.Commentf("DeriveID hashes %s in declaration order.", strings.Join(ed.Identifier.Fields, ", "))
		f.Func().Params(recv.Clone()).Id("DeriveID").Params().Uint64().
			BlockFunc(func(b *j.Group) {
				if len(g.idCols) == 0 {
					b.Return(j.Qual(identPkg, "FromColumns").Call())
					return
				}
				b.Id("r").Op(":=").Id("o").Dot("ToRow").Call()
				b.Return(j.Qual(identPkg, "FromColumns").Call(g.idCols...))
			})
		f.Line()
	}

	if ed.Persistent() {
		f.Commentf("Load%s reads the %s stored under id.", sn, sn)
		f.Func().Id("Load"+sn).
			Params(append(clone(ctxParams), j.Id("id").Uint64())...).
			Params(j.Op("*").Id(sn), j.Error()).
			Block(
				j.List(j.Id("r"), j.Err()).Op(":=").Id("g").Dot("Load").Call(j.Id("ctx"), j.Id(typeID), j.Id("id")),
				j.If(j.Err().Op("!=").Nil()).Block(j.Return(j.Nil(), j.Err())),
				j.Return(j.Id(sn+"FromRow").Call(j.Id("r"))),
			)
		f.Line()

		f.Comment("Save stores the record.")
		f.Func().Params(recv.Clone()).Id("Save").Params(clone(ctxParams)...).Error().
			BlockFunc(func(b *j.Group) {
				if ed.Identifier != nil {
					b.Return(j.Id("g").Dot("Save").Call(j.Id("ctx"), j.Id(typeID), j.Id("o").Dot("ID"), j.Id("o").Dot("ToRow").Call()))
					return
				}
				b.Id("r").Op(":=").Id("o").Dot("ToRow").Call()
				b.Return(j.Id("g").Dot("Save").Call(
					j.Id("ctx"), j.Id(typeID),
					j.Qual(identPkg, "FromColumns").Call(j.Id("r").Op("...")),
					j.Id("r"),
				))
			})
		f.Line()

		if ed.Identifier != nil {
			f.Comment("GetOrCreate returns the stored record with this ID, saving this one if none exists.")
			f.Func().Params(recv.Clone()).Id("GetOrCreate").Params(clone(ctxParams)...).
				Params(j.Op("*").Id(sn), j.Error()).
				Block(
					j.List(j.Id("existing"), j.Err()).Op(":=").Id("Load"+sn).Call(j.Id("ctx"), j.Id("g"), j.Id("o").Dot("ID")),
					j.If(j.Err().Op("==").Nil()).Block(j.Return(j.Id("existing"), j.Nil())),
					j.If(j.Op("!").Qual("errors", "Is").Call(j.Err(), j.Qual(storePkg, "ErrNotFound"))).Block(
						j.Return(j.Nil(), j.Err()),
					),
					j.If(j.Err().Op(":=").Id("o").Dot("Save").Call(j.Id("ctx"), j.Id("g")), j.Err().Op("!=").Nil()).Block(
						j.Return(j.Nil(), j.Err()),
					),
					j.Return(j.Id("o"), j.Nil()),
				)
			f.Line()
		}
	}

	f.Func().Params(recv.Clone()).Id("ToJSON").Params().Params(j.Index().Byte(), j.Error()).
		Block(j.Return(j.Qual("encoding/json", "Marshal").Call(j.Id("o"))))
	f.Line()

	f.Func().Id(sn+"FromJSON").Params(j.Id("data").Index().Byte()).Params(j.Op("*").Id(sn), j.Error()).
		Block(
			j.Var().Id("o").Id(sn),
			j.If(
				j.Err().Op(":=").Qual("encoding/json", "Unmarshal").Call(j.Id("data"), j.Op("&").Id("o")),
				j.Err().Op("!=").Nil(),
			).Block(j.Return(j.Nil(), j.Err())),
			j.Return(j.Op("&").Id("o"), j.Nil()),
		)
	f.Line()
}

func clone(cs []j.Code) []j.Code {
	return append([]j.Code(nil), cs...)
}

func genFromMember(f *j.File, union, member *bind.EntityDescriptor) {
	un := toCamal(union.Name)
	mn := toCamal(member.Name)

	vals := j.Dict{}
	for _, uf := range union.Fields {
		mf, _, ok := member.Field(uf.Name)
		if !ok {
			continue
		}

		name := goName(uf.Name)
		v := j.Id("m").Dot(name)

		if !mf.List && !mf.Nullable && uf.Nullable {
			v = j.Qual(rowPkg, "Ptr").Call(v)
		}

		vals[j.Id(name)] = v
	}

	f.Commentf("New%sFrom%s converts a %s into a %s.", un, mn, mn, un)
	f.Func().Id("New"+un+"From"+mn).Params(j.Id("m").Op("*").Id(mn)).Op("*").Id(un).
		Block(j.Return(j.Op("&").Id(un).Values(vals)))
	f.Line()
}

func genEnum(f *j.File, ed *bind.EnumDescriptor) {
	tn := toCamal(ed.Name)
	lower := lowerFirst(tn)
	table := lower + "Variants"

	f.Commentf("%s is stored as its qualified variant name, e.g. %q.", tn, ed.Name+"::Variant")
	f.Type().Id(tn).Int()
	f.Line()

	f.Const().DefsFunc(func(b *j.Group) {
		for i, v := range ed.Variants {
			if i == 0 {
				b.Id(tn + toCamal(v)).Id(tn).Op("=").Iota()
				continue
			}
			b.Id(tn + toCamal(v))
		}
	})
	f.Line()

	f.Const().Id(tn + "TypeID").Op("=").Lit(ed.TypeID)
	f.Line()

	f.Var().Id(table).Op("=").Index(j.Op("...")).String().ValuesFunc(func(b *j.Group) {
		for _, v := range ed.Variants {
			b.Lit(ed.Qualified(v))
		}
	})
	f.Line()

	f.Func().Params(j.Id("v").Id(tn)).Id("String").Params().String().
		Block(
			j.If(j.Id("v").Op("<").Lit(0).Op("||").Int().Call(j.Id("v")).Op(">=").Len(j.Id(table))).Block(
				j.Return(j.Lit(tn+"(").Op("+").Qual("strconv", "Itoa").Call(j.Int().Call(j.Id("v"))).Op("+").Lit(")")),
			),
			j.Return(j.Id(table).Index(j.Id("v"))),
		)
	f.Line()

	f.Commentf("Parse%s parses the qualified form of a variant.", tn)
	f.Func().Id("Parse"+tn).Params(j.Id("s").String()).Params(j.Id(tn), j.Error()).
		Block(
			j.Switch(j.Id("s")).BlockFunc(func(b *j.Group) {
				for _, v := range ed.Variants {
					b.Case(j.Lit(ed.Qualified(v))).Block(j.Return(j.Id(tn+toCamal(v)), j.Nil()))
				}
			}),
			j.Return(j.Lit(0), j.Op("&").Qual(bindPkg, "UnrecognizedVariantError").Values(j.Dict{
				j.Id("Value"):    j.Id("s"),
				j.Id("Expected"): j.Qual("slices", "Clone").Call(j.Id(table).Index(j.Empty(), j.Empty())),
			})),
		)
	f.Line()

	f.Func().Params(j.Id("v").Id(tn)).Id("MarshalText").Params().Params(j.Index().Byte(), j.Error()).
		Block(j.Return(j.Index().Byte().Call(j.Id("v").Dot("String").Call()), j.Nil()))
	f.Line()

	f.Func().Params(j.Id("v").Op("*").Id(tn)).Id("UnmarshalText").Params(j.Id("b").Index().Byte()).Error().
		Block(
			j.List(j.Id("p"), j.Err()).Op(":=").Id("Parse"+tn).Call(j.String().Call(j.Id("b"))),
			j.If(j.Err().Op("!=").Nil()).Block(j.Return(j.Err())),
			j.Op("*").Id("v").Op("=").Id("p"),
			j.Return(j.Nil()),
		)
	f.Line()

	f.Func().Id(lower+"FromString").Params(j.Id("s").String(), j.Err().Error()).Params(j.Id(tn), j.Error()).
		Block(
			j.If(j.Err().Op("!=").Nil()).Block(j.Return(j.Lit(0), j.Err())),
			j.Return(j.Id("Parse"+tn).Call(j.Id("s"))),
		)
	f.Line()

	f.Func().Id(lower+"FromOptString").Params(j.Id("s").Op("*").String(), j.Err().Error()).Params(j.Op("*").Id(tn), j.Error()).
		Block(
			j.If(j.Err().Op("!=").Nil().Op("||").Id("s").Op("==").Nil()).Block(j.Return(j.Nil(), j.Err())),
			j.List(j.Id("v"), j.Err()).Op(":=").Id("Parse"+tn).Call(j.Op("*").Id("s")),
			j.If(j.Err().Op("!=").Nil()).Block(j.Return(j.Nil(), j.Err())),
			j.Return(j.Op("&").Id("v"), j.Nil()),
		)
	f.Line()

	f.Func().Id(lower+"FromStrings").Params(j.Id("ss").Index().String(), j.Err().Error()).Params(j.Index().Id(tn), j.Error()).
		Block(
			j.If(j.Err().Op("!=").Nil().Op("||").Id("ss").Op("==").Nil()).Block(j.Return(j.Nil(), j.Err())),
			j.Id("out").Op(":=").Make(j.Index().Id(tn), j.Len(j.Id("ss"))),
			j.For(j.List(j.Id("i"), j.Id("s")).Op(":=").Range().Id("ss")).Block(
				j.If(
					j.List(j.Id("out").Index(j.Id("i")), j.Err()).Op("=").Id("Parse"+tn).Call(j.Id("s")),
					j.Err().Op("!=").Nil(),
				).Block(j.Return(j.Nil(), j.Err())),
			),
			j.Return(j.Id("out"), j.Nil()),
		)
	f.Line()
}

func kindCode(k row.Kind) *j.Statement {
	return j.Qual(rowPkg, "Kind"+k.String())
}

// storageType is the Go type a column of kind k holds.
func storageType(k row.Kind) *j.Statement {
	t := k.GoType()

	switch t.Kind() {
	case reflect.Array:
		return j.Qual(rowPkg, t.Name())
	case reflect.Slice:
		return j.Index().Byte()
	default:
		return j.Id(t.Name())
	}
}

func fieldType(f bind.FieldDescriptor) *j.Statement {
	var base *j.Statement
	if f.Enum != "" {
		base = j.Id(toCamal(f.Enum))
	} else {
		base = storageType(f.Kind)
	}

	switch {
	case f.List:
		return j.Index().Add(base)
	case f.Nullable:
		return j.Op("*").Add(base)
	default:
		return base
	}
}

func goName(field string) string {
	if field == "id" {
		return "ID"
	}
	return toCamal(field)
}

func paramName(field string) string {
	p := lowerFirst(toCamal(field))
	if token.IsKeyword(p) || p == "o" {
		p += "_"
	}
	return p
}

func toCamal(s string) string {
	var b bytes.Buffer

	upper := true

	for _, c := range s {
		if c == '_' {
			upper = true
			continue
		}

		if upper {
			if c >= 'a' && c <= 'z' {
				b.WriteRune(c - 32)
			} else {
				b.WriteRune(c)
			}
			upper = false
		} else {
			b.WriteRune(c)
		}
	}

	return b.String()
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}

	if c := s[0]; c >= 'A' && c <= 'Z' {
		return string(c+32) + s[1:]
	}

	return s
}
