package bind

import (
	"miren.dev/indexer/pkg/scalar"
	"miren.dev/indexer/pkg/schema"
)

const (
	idField     = "id"
	idScalar    = "ID"
	enumStorage = "Charfield"
)

// Translation is the typed field and its row accessors.
type Translation struct {
	Field     FieldDescriptor
	Extractor Extractor
	Encoder   Encoder
}

type Translator struct {
	Registry *scalar.Registry
	Catalog  *schema.Catalog
}

// Translate maps the field declared by owner at row position pos.
//
// The id field is always a non-null ID. Fields typed as an object or union
// store the referenced record's ID; enum fields store the qualified
// variant string.
func (t *Translator) Translate(owner string, pos int, fd schema.FieldDefinition) (Translation, error) {
	f := FieldDescriptor{
		Name:     fd.Name,
		Scalar:   fd.Type,
		Nullable: fd.Nullable,
		List:     fd.List,
	}

	if fd.Name == idField {
		f.Scalar = idScalar
		f.Nullable = false
		f.List = false
	} else if t.Catalog != nil {
		if k, ok := t.Catalog.KindOf(fd.Type); ok {
			switch k {
			case schema.Object, schema.Union:
				f.Scalar = idScalar
				f.Ref = fd.Type
			case schema.Enum:
				f.Scalar = enumStorage
				f.Enum = fd.Type
			}
		}
	}

	s, err := t.Registry.Resolve(f.Scalar)
	if err != nil {
		return Translation{}, &SchemaError{
			Type:   owner,
			Field:  fd.Name,
			Rule:   ErrUnknownScalar,
			Detail: fd.Type,
		}
	}

	f.Kind = s.Kind

	return Translation{
		Field:     f,
		Extractor: Extractor{Pos: pos, Field: f, scalar: s},
		Encoder:   Encoder{Pos: pos, Field: f, scalar: s},
	}, nil
}
