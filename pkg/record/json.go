package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"miren.dev/indexer/pkg/bind"
	"miren.dev/indexer/pkg/row"
)

// MarshalJSON renders the record as an object with keys in field order.
// Fixed byte values use 0x hex, blobs base64.
func (rec *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, f := range rec.b.Desc.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}

		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}

		v, err := json.Marshal(rec.values[i])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}

		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// FromJSON parses the object form produced by MarshalJSON. Absent keys are
// null.
func (b *Binding) FromJSON(data []byte) (*Record, error) {
	var obj map[string]json.RawMessage

	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Desc.Name, err)
	}

	rec := b.empty()

	for name := range obj {
		if _, _, ok := b.Desc.Field(name); !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, b.Desc.Name, name)
		}
	}

	for i, f := range b.Desc.Fields {
		raw, ok := obj[f.Name]
		if !ok || string(raw) == "null" {
			if !f.Nullable {
				return nil, fmt.Errorf("%s: %w: %s", b.Desc.Name, row.ErrNullColumn, f.Name)
			}
			continue
		}

		v, err := decodeValue(f, raw)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", b.Desc.Name, f.Name, err)
		}

		rec.values[i] = v
	}

	return rec, nil
}

func decodeValue(f bind.FieldDescriptor, raw json.RawMessage) (any, error) {
	typ := f.Kind.GoType()
	if f.List {
		typ = reflect.SliceOf(typ)
	}

	p := reflect.New(typ)
	if err := json.Unmarshal(raw, p.Interface()); err != nil {
		return nil, err
	}

	v := p.Elem()
	if !f.List {
		return v.Interface(), nil
	}

	out := make([]any, v.Len())
	for i := range out {
		out[i] = v.Index(i).Interface()
	}

	return out, nil
}
