package store

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.etcd.io/bbolt"
)

var rowsBucket = []byte("entity_rows")

// BoltHandle stores rows in a bbolt file, one bucket keyed by Key.Bytes.
type BoltHandle struct {
	db *bbolt.DB
}

var _ Handle = (*BoltHandle)(nil)

func NewBoltHandle(path string) (*BoltHandle, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rowsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltHandle{db: db}, nil
}

func (b *BoltHandle) Get(ctx context.Context, key Key) ([]byte, error) {
	var data []byte

	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(rowsBucket).Get(key.Bytes())
		if v == nil {
			return ErrNotFound
		}

		// v is only valid for the life of the transaction.
		data = slices.Clone(v)
		return nil
	})

	return data, err
}

func (b *BoltHandle) Put(ctx context.Context, key Key, data []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(rowsBucket).Put(key.Bytes(), data)
	})
}

func (b *BoltHandle) Close() error {
	return b.db.Close()
}
