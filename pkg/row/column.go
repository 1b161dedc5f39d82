package row

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"

	"github.com/mr-tron/base58"
)

var (
	ErrMissingColumn = errors.New("missing column")
	ErrNullColumn    = errors.New("null column for required field")
	ErrColumnKind    = errors.New("column kind mismatch")
	ErrValueType     = errors.New("value type does not match column kind")
)

// Column is one tagged slot of a Row. A column is either null or holds a
// value of its kind's native Go type (see Kind.GoType). Array columns hold
// a slice of non-null columns of the element kind.
type Column struct {
	_    [0]func() // disallow ==
	kind Kind
	elem Kind
	null bool
	v    any
}

// Row is the ordered sequence of columns representing one persisted record.
type Row []Column

// New returns a column of kind k holding v. v must have exactly the kind's
// native type. Byte slices are copied.
func New(k Kind, v any) (Column, error) {
	if !k.Scalar() {
		return Column{}, fmt.Errorf("%w: %s is not a scalar kind", ErrValueType, k)
	}

	if v == nil {
		return Column{}, fmt.Errorf("%w: nil value for %s", ErrValueType, k)
	}

	if reflect.TypeOf(v) != kinds[k].typ {
		return Column{}, fmt.Errorf("%w: %s holds %s, got %T", ErrValueType, k, kinds[k].typ, v)
	}

	if b, ok := v.([]byte); ok {
		v = slices.Clone(b)
	}

	return Column{kind: k, v: v}, nil
}

// Of is the typed form of New used by generated bindings, where the Go type
// is fixed at generation time. It panics if T does not match k.
func Of[T any](k Kind, v T) Column {
	c, err := New(k, any(v))
	if err != nil {
		panic(err)
	}
	return c
}

// Opt returns a null column for a nil pointer and Of(k, *p) otherwise.
func Opt[T any](k Kind, p *T) Column {
	if p == nil {
		return Null(k)
	}
	return Of(k, *p)
}

// Null returns a null column of kind k.
func Null(k Kind) Column {
	return Column{kind: k, null: true}
}

// NullArray returns a null array column with element kind elem.
func NullArray(elem Kind) Column {
	return Column{kind: KindArray, elem: elem, null: true}
}

// Array returns an array column of element kind elem.
func Array(elem Kind, values ...Column) (Column, error) {
	if !elem.Scalar() {
		return Column{}, fmt.Errorf("%w: %s is not a scalar element kind", ErrValueType, elem)
	}

	out := make([]Column, len(values))
	for i, c := range values {
		if c.kind != elem {
			return Column{}, fmt.Errorf("%w: element %d is %s, want %s", ErrColumnKind, i, c.kind, elem)
		}
		if c.null {
			return Column{}, fmt.Errorf("%w: element %d is null", ErrValueType, i)
		}
		out[i] = c
	}

	return Column{kind: KindArray, elem: elem, v: out}, nil
}

// List builds an array column from a typed slice. A nil slice yields an
// empty array; use OptList for nullable lists.
func List[T any](elem Kind, vs []T) Column {
	cols := make([]Column, len(vs))
	for i, v := range vs {
		cols[i] = Of(elem, v)
	}

	c, err := Array(elem, cols...)
	if err != nil {
		panic(err)
	}
	return c
}

// OptList is List for nullable list fields: a nil slice is a null column.
func OptList[T any](elem Kind, vs []T) Column {
	if vs == nil {
		return NullArray(elem)
	}
	return List(elem, vs)
}

func (c Column) Kind() Kind {
	return c.kind
}

// Elem returns the element kind of an array column.
func (c Column) Elem() Kind {
	return c.elem
}

func (c Column) IsNull() bool {
	return c.null
}

// Any returns the native value, nil for a null column. Array columns return
// their elements as []any.
func (c Column) Any() any {
	if c.null {
		return nil
	}

	if c.kind == KindArray {
		out := make([]any, len(c.array()))
		for i, e := range c.array() {
			out[i] = e.v
		}
		return out
	}

	return c.v
}

func (c Column) array() []Column {
	ary, _ := c.v.([]Column)
	return ary
}

// Elements returns the element columns of an array column.
func (c Column) Elements() []Column {
	if c.kind != KindArray {
		panic(fmt.Sprintf("Column kind is %s, not %s", c.kind, KindArray))
	}
	return c.array()
}

// Equal reports whether both columns have the same tag, nullness and value.
func (c Column) Equal(o Column) bool {
	if c.kind != o.kind || c.elem != o.elem || c.null != o.null {
		return false
	}

	if c.null {
		return true
	}

	switch c.kind {
	case KindArray:
		return slices.EqualFunc(c.array(), o.array(), Column.Equal)
	case KindBlob, KindHexString:
		return bytes.Equal(c.v.([]byte), o.v.([]byte))
	default:
		return c.v == o.v
	}
}

// Equal reports whether two rows hold equal columns in the same order.
func (r Row) Equal(o Row) bool {
	return slices.EqualFunc(r, o, Column.Equal)
}

// String renders the column for humans. Blobs use base58, fixed byte
// arrays use 0x-prefixed hex.
func (c Column) String() string {
	if c.null {
		return c.kind.ShortString() + ": null"
	}

	switch c.kind {
	case KindCharfield, KindJson, KindVirtual:
		return c.v.(string)
	case KindBlob, KindHexString:
		return c.kind.ShortString() + ": " + base58.Encode(c.v.([]byte))
	case KindBoolean:
		return strconv.FormatBool(c.v.(bool))
	case KindArray:
		var buf []byte
		buf = append(buf, '[')
		for i, e := range c.array() {
			if i > 0 {
				buf = append(buf, ", "...)
			}
			buf = append(buf, e.String()...)
		}
		return string(append(buf, ']'))
	default:
		return fmt.Sprint(c.v)
	}
}

func column(r Row, pos int, k Kind) (Column, error) {
	if pos < 0 || pos >= len(r) {
		return Column{}, fmt.Errorf("%w: position %d of %d", ErrMissingColumn, pos, len(r))
	}

	c := r[pos]
	if c.kind != k {
		return Column{}, fmt.Errorf("%w: position %d is %s, want %s", ErrColumnKind, pos, c.kind, k)
	}

	return c, nil
}

// Get extracts the required value at pos.
func Get[T any](r Row, pos int, k Kind) (T, error) {
	var zero T

	c, err := column(r, pos, k)
	if err != nil {
		return zero, err
	}

	if c.null {
		return zero, fmt.Errorf("%w: position %d", ErrNullColumn, pos)
	}

	v, ok := c.v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: position %d holds %T", ErrValueType, pos, c.v)
	}

	return v, nil
}

// GetOpt extracts a nullable value at pos. Absent slots and null columns
// both yield nil.
func GetOpt[T any](r Row, pos int, k Kind) (*T, error) {
	if pos >= len(r) {
		return nil, nil
	}

	c, err := column(r, pos, k)
	if err != nil {
		return nil, err
	}

	if c.null {
		return nil, nil
	}

	v, ok := c.v.(T)
	if !ok {
		return nil, fmt.Errorf("%w: position %d holds %T", ErrValueType, pos, c.v)
	}

	return &v, nil
}

// GetList extracts an array of elem values at pos. A null or absent slot
// yields a nil slice when nullable is set and an error otherwise.
func GetList[T any](r Row, pos int, elem Kind, nullable bool) ([]T, error) {
	if pos >= len(r) && nullable {
		return nil, nil
	}

	c, err := column(r, pos, KindArray)
	if err != nil {
		return nil, err
	}

	if c.elem != elem {
		return nil, fmt.Errorf("%w: position %d holds %s elements, want %s", ErrColumnKind, pos, c.elem, elem)
	}

	if c.null {
		if nullable {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: position %d", ErrNullColumn, pos)
	}

	out := make([]T, len(c.array()))
	for i, e := range c.array() {
		v, ok := e.v.(T)
		if !ok {
			return nil, fmt.Errorf("%w: position %d element %d holds %T", ErrValueType, pos, i, e.v)
		}
		out[i] = v
	}

	return out, nil
}

// OptMap is Opt over f(*p), used for values stored in another
// representation such as enums.
func OptMap[T, U any](k Kind, p *T, f func(T) U) Column {
	if p == nil {
		return Null(k)
	}
	return Of(k, f(*p))
}

// ListMap is List over f applied to each element.
func ListMap[T, U any](elem Kind, vs []T, f func(T) U) Column {
	out := make([]U, len(vs))
	for i, v := range vs {
		out[i] = f(v)
	}
	return List(elem, out)
}

// OptListMap is ListMap where a nil slice is a null column.
func OptListMap[T, U any](elem Kind, vs []T, f func(T) U) Column {
	if vs == nil {
		return NullArray(elem)
	}
	return ListMap(elem, vs, f)
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns *p, or the zero value for a nil pointer.
func Deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
