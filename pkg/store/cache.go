package store

import (
	"context"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedHandle is a read-through, write-through LRU in front of another
// handle.
type CachedHandle struct {
	next Handle
	rows *lru.Cache[Key, []byte]
}

var _ Handle = (*CachedHandle)(nil)

func NewCachedHandle(next Handle, size int) (*CachedHandle, error) {
	c, err := lru.New[Key, []byte](size)
	if err != nil {
		return nil, err
	}

	return &CachedHandle{next: next, rows: c}, nil
}

func (c *CachedHandle) Get(ctx context.Context, key Key) ([]byte, error) {
	if data, ok := c.rows.Get(key); ok {
		return slices.Clone(data), nil
	}

	data, err := c.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	c.rows.Add(key, slices.Clone(data))

	return data, nil
}

func (c *CachedHandle) Put(ctx context.Context, key Key, data []byte) error {
	if err := c.next.Put(ctx, key, data); err != nil {
		c.rows.Remove(key)
		return err
	}

	c.rows.Add(key, slices.Clone(data))
	return nil
}

// Cached reports whether key is held in the cache.
func (c *CachedHandle) Cached(key Key) bool {
	return c.rows.Contains(key)
}

func (c *CachedHandle) Close() error {
	c.rows.Purge()
	return c.next.Close()
}
