package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mr-tron/base58"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdHandle stores rows in etcd under prefix/<type id>/<base58 object id>.
type EtcdHandle struct {
	client *clientv3.Client
	prefix string
	owned  bool
}

var _ Handle = (*EtcdHandle)(nil)

// NewEtcdHandle uses an existing client. The caller keeps ownership of it.
func NewEtcdHandle(client *clientv3.Client, prefix string) *EtcdHandle {
	return &EtcdHandle{client: client, prefix: prefix}
}

func (e *EtcdHandle) buildKey(key Key) string {
	return e.prefix + "/" + strconv.FormatInt(key.TypeID, 10) + "/" + base58.Encode(key.Bytes()[8:])
}

func (e *EtcdHandle) Get(ctx context.Context, key Key) ([]byte, error) {
	resp, err := e.client.Get(ctx, e.buildKey(key))
	if err != nil {
		return nil, fmt.Errorf("failed to get row from etcd: %w", err)
	}

	if len(resp.Kvs) == 0 {
		return nil, ErrNotFound
	}

	return resp.Kvs[0].Value, nil
}

func (e *EtcdHandle) Put(ctx context.Context, key Key, data []byte) error {
	_, err := e.client.Put(ctx, e.buildKey(key), string(data))
	if err != nil {
		return fmt.Errorf("failed to put row in etcd: %w", err)
	}
	return nil
}

func (e *EtcdHandle) Close() error {
	if e.owned {
		return e.client.Close()
	}
	return nil
}
