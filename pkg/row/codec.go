package row

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	encoder cbor.EncMode
	decoder cbor.DecMode
)

func init() {
	var err error

	// Core deterministic encoding keeps identical rows byte-identical in the store.
	encoder, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}

	decoder, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

type columnEncodeTuple struct {
	_     struct{} `cbor:",toarray"`
	Kind  Kind     `cbor:"0" json:"k"`
	Elem  Kind     `cbor:"1" json:"e,omitempty"`
	Value any      `cbor:"2" json:"v"`
}

type columnDecodeTuple struct {
	_     struct{}        `cbor:",toarray"`
	Kind  Kind            `cbor:"0" json:"k"`
	Elem  Kind            `cbor:"1" json:"e,omitempty"`
	Value json.RawMessage `cbor:"2" json:"v"`
}

type cborDecodeTuple struct {
	_     struct{}        `cbor:",toarray"`
	Kind  Kind            `cbor:"0"`
	Elem  Kind            `cbor:"1"`
	Value cbor.RawMessage `cbor:"2"`
}

func (c Column) tuple() columnEncodeTuple {
	t := columnEncodeTuple{Kind: c.kind, Elem: c.elem}
	if !c.null {
		t.Value = c.v
	}
	return t
}

func (c Column) MarshalCBOR() ([]byte, error) {
	return encoder.Marshal(c.tuple())
}

var cborNull = []byte{0xf6}

func (c *Column) UnmarshalCBOR(b []byte) error {
	var t cborDecodeTuple

	if err := decoder.Unmarshal(b, &t); err != nil {
		return err
	}

	null := len(t.Value) == 0 || bytes.Equal(t.Value, cborNull)

	return c.set(t.Kind, t.Elem, null, t.Value, decoder.Unmarshal)
}

func (c Column) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.tuple())
}

func (c *Column) UnmarshalJSON(b []byte) error {
	var t columnDecodeTuple

	if err := json.Unmarshal(b, &t); err != nil {
		return err
	}

	null := len(t.Value) == 0 || string(t.Value) == "null"

	return c.set(t.Kind, t.Elem, null, t.Value, json.Unmarshal)
}

func (c *Column) set(k, elem Kind, null bool, raw []byte, unmarshal func([]byte, any) error) error {
	if !k.valid() {
		return fmt.Errorf("%w: unknown kind %d", ErrColumnKind, k)
	}

	if k == KindArray {
		if !elem.Scalar() {
			return fmt.Errorf("%w: bad array element kind %d", ErrColumnKind, elem)
		}

		if null {
			*c = NullArray(elem)
			return nil
		}

		var elems []Column
		if err := unmarshal(raw, &elems); err != nil {
			return fmt.Errorf("bad array: %w", err)
		}

		ac, err := Array(elem, elems...)
		if err != nil {
			return err
		}

		*c = ac
		return nil
	}

	if null {
		*c = Null(k)
		return nil
	}

	p := reflect.New(kinds[k].typ)
	if err := unmarshal(raw, p.Interface()); err != nil {
		return fmt.Errorf("bad %s: %w", k, err)
	}

	*c = Column{kind: k, v: p.Elem().Interface()}
	return nil
}

// Marshal encodes a row with deterministic CBOR.
func Marshal(r Row) ([]byte, error) {
	return encoder.Marshal([]Column(r))
}

// Unmarshal decodes a row produced by Marshal.
func Unmarshal(data []byte) (Row, error) {
	var cols []Column

	if err := decoder.Unmarshal(data, &cols); err != nil {
		return nil, fmt.Errorf("failed to decode row: %w", err)
	}

	return Row(cols), nil
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.valid() {
		return nil, fmt.Errorf("%w: unknown kind %d", ErrColumnKind, k)
	}
	return []byte(kinds[k].name), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	pk, ok := ParseKind(string(b))
	if !ok {
		return fmt.Errorf("%w: unknown kind %q", ErrColumnKind, b)
	}
	*k = pk
	return nil
}

var (
	_ cbor.Marshaler   = Column{}
	_ cbor.Unmarshaler = &Column{}
	_ json.Marshaler   = Column{}
	_ json.Unmarshaler = &Column{}
)
