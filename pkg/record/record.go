// Package record is the runtime form of a compiled entity. A Binding wraps
// an entity descriptor and converts between rows and records, derives ids
// and routes native persistence through a store guard.
package record

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"miren.dev/indexer/pkg/bind"
	"miren.dev/indexer/pkg/ident"
	"miren.dev/indexer/pkg/row"
	"miren.dev/indexer/pkg/store"
)

var (
	ErrSandboxed    = errors.New("persistence belongs to the sandbox host")
	ErrNoIdentifier = errors.New("entity has no id field")
	ErrUnknownField = errors.New("unknown field")
	ErrNotMember    = errors.New("not a member of the union")
)

type Binding struct {
	Desc  *bind.EntityDescriptor
	Guard *store.Guard
}

// New binds desc to guard. guard may be nil, and is ignored for sandboxed
// entities.
func New(desc *bind.EntityDescriptor, guard *store.Guard) *Binding {
	return &Binding{Desc: desc, Guard: guard}
}

// Record holds one value per field in row order. Values follow the
// conventions of bind.Extractor.
type Record struct {
	b      *Binding
	values []any
}

func (b *Binding) empty() *Record {
	return &Record{b: b, values: make([]any, len(b.Desc.Fields))}
}

// FromRow reconstructs a record from r.
func (b *Binding) FromRow(r row.Row) (*Record, error) {
	rec := b.empty()

	for _, x := range b.Desc.Extractors {
		v, err := x.Extract(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Desc.Name, err)
		}
		rec.values[x.Pos] = v
	}

	return rec, nil
}

// ToRow encodes the record in field order.
func (rec *Record) ToRow() (row.Row, error) {
	d := rec.b.Desc
	r := make(row.Row, len(d.Encoders))

	for _, e := range d.Encoders {
		c, err := e.Encode(rec.values[e.Pos])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.Name, err)
		}
		r[e.Pos] = c
	}

	return r, nil
}

// Create builds a record from every field but id and derives the id from
// them. Omitted nullable fields are null.
func (b *Binding) Create(values map[string]any) (*Record, error) {
	spec := b.Desc.Identifier
	if spec == nil {
		return nil, fmt.Errorf("%s: %w", b.Desc.Name, ErrNoIdentifier)
	}

	rec := b.empty()

	for name, v := range values {
		if name == b.Desc.Fields[spec.IDPos].Name {
			return nil, fmt.Errorf("%s: id is derived, not supplied", b.Desc.Name)
		}
		if err := rec.Set(name, v); err != nil {
			return nil, err
		}
	}

	rec.values[spec.IDPos] = uint64(0)

	r, err := rec.ToRow()
	if err != nil {
		return nil, err
	}

	id, err := spec.Derive(r)
	if err != nil {
		return nil, err
	}

	rec.values[spec.IDPos] = id

	return rec, nil
}

func (rec *Record) Binding() *Binding {
	return rec.b
}

// Get returns the value of the named field.
func (rec *Record) Get(name string) (any, bool) {
	_, pos, ok := rec.b.Desc.Field(name)
	if !ok {
		return nil, false
	}
	return rec.values[pos], true
}

// Set replaces the value of the named field. The value is checked when the
// record is encoded.
func (rec *Record) Set(name string, v any) error {
	_, pos, ok := rec.b.Desc.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, rec.b.Desc.Name, name)
	}
	rec.values[pos] = v
	return nil
}

// Values returns a copy of the field values in row order.
func (rec *Record) Values() []any {
	return slices.Clone(rec.values)
}

// ID returns the record's id, or false when the entity has none.
func (rec *Record) ID() (uint64, bool) {
	spec := rec.b.Desc.Identifier
	if spec == nil {
		return 0, false
	}

	id, ok := rec.values[spec.IDPos].(uint64)
	return id, ok
}

// Equal reports whether both records belong to the same entity and encode
// to equal rows.
func (rec *Record) Equal(o *Record) bool {
	if rec.b.Desc.TypeID != o.b.Desc.TypeID {
		return false
	}

	a, err := rec.ToRow()
	if err != nil {
		return false
	}

	b, err := o.ToRow()
	if err != nil {
		return false
	}

	return a.Equal(b)
}

// FromMember converts a record of one of the union's members into a
// record of the union. Fields the member lacks are null.
func (b *Binding) FromMember(member *Record) (*Record, error) {
	if !slices.Contains(b.Desc.Members, member.b.Desc.Name) {
		return nil, fmt.Errorf("%w: %s is not in %s", ErrNotMember, member.b.Desc.Name, b.Desc.Name)
	}

	rec := b.empty()

	for i, f := range b.Desc.Fields {
		if v, ok := member.Get(f.Name); ok {
			rec.values[i] = v
		}
	}

	return rec, nil
}

func (b *Binding) checkNative() error {
	if !b.Desc.Persistent() {
		return fmt.Errorf("%s: %w", b.Desc.Name, ErrSandboxed)
	}
	return nil
}

// Load reads the record stored under id.
func (b *Binding) Load(ctx context.Context, id uint64) (*Record, error) {
	if err := b.checkNative(); err != nil {
		return nil, err
	}

	r, err := b.Guard.Load(ctx, b.Desc.TypeID, id)
	if err != nil {
		return nil, err
	}

	return b.FromRow(r)
}

// key returns the object id the record is stored under: its id, or the
// content digest of the whole row for entities without one.
func (rec *Record) key(r row.Row) uint64 {
	if id, ok := rec.ID(); ok {
		return id
	}
	return ident.FromColumns(r...)
}

// Save stores the record.
func (rec *Record) Save(ctx context.Context) error {
	if err := rec.b.checkNative(); err != nil {
		return err
	}

	r, err := rec.ToRow()
	if err != nil {
		return err
	}

	return rec.b.Guard.Save(ctx, rec.b.Desc.TypeID, rec.key(r), r)
}

// GetOrCreate returns the stored record with this record's id, saving this
// record first if none exists.
func (rec *Record) GetOrCreate(ctx context.Context) (*Record, error) {
	if err := rec.b.checkNative(); err != nil {
		return nil, err
	}

	id, ok := rec.ID()
	if !ok {
		return nil, fmt.Errorf("%s: %w", rec.b.Desc.Name, ErrNoIdentifier)
	}

	existing, err := rec.b.Load(ctx, id)
	if err == nil {
		return existing, nil
	}

	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if err := rec.Save(ctx); err != nil {
		return nil, err
	}

	return rec, nil
}
