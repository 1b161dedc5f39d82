// Package store persists entity rows for native-target bindings. Rows are
// kept as opaque CBOR bytes keyed by type id and object id behind a Handle;
// a Guard serializes access to the handle.
package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrClosed        = errors.New("store closed")
	ErrUnknownDriver = errors.New("unknown store driver")
)

// Key addresses one record.
type Key struct {
	TypeID int64
	ID     uint64
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%d", k.TypeID, k.ID)
}

// Bytes returns the 16 byte big-endian form of the key.
func (k Key) Bytes() []byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], uint64(k.TypeID))
	binary.BigEndian.PutUint64(b[8:], k.ID)
	return b[:]
}

// Handle is a key/value backend. Get returns ErrNotFound for absent keys.
// Handles are not required to be safe for concurrent use; Guard provides
// the locking.
type Handle interface {
	Get(ctx context.Context, key Key) ([]byte, error)
	Put(ctx context.Context, key Key, data []byte) error
	Close() error
}
