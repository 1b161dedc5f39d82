package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
	DriverEtcd   = "etcd"
)

type Config struct {
	Driver      string
	Path        string
	Endpoints   []string
	Prefix      string
	DialTimeout time.Duration
	CacheSize   int
}

// Open builds the handle described by cfg, wrapped in an LRU cache when
// CacheSize is positive.
func Open(ctx context.Context, cfg Config, log *slog.Logger) (Handle, error) {
	if log == nil {
		log = slog.Default()
	}

	var (
		h   Handle
		err error
	)

	switch cfg.Driver {
	case DriverMemory, "":
		h = NewMemoryHandle()
	case DriverSQLite:
		h, err = NewSQLiteHandle(cfg.Path)
	case DriverBolt:
		h, err = NewBoltHandle(cfg.Path)
	case DriverEtcd:
		h, err = openEtcd(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	if err != nil {
		return nil, err
	}

	log.Info("opened store", "driver", cfg.Driver, "path", cfg.Path, "cache_size", cfg.CacheSize)

	if cfg.CacheSize > 0 {
		ch, err := NewCachedHandle(h, cfg.CacheSize)
		if err != nil {
			h.Close()
			return nil, err
		}
		h = ch
	}

	return h, nil
}

func openEtcd(cfg Config) (*EtcdHandle, error) {
	timeout := cfg.DialTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	h := NewEtcdHandle(client, cfg.Prefix)
	h.owned = true

	return h, nil
}

// Opener returns an Opener for cfg, for use with NewLazyGuard.
func (cfg Config) Opener(log *slog.Logger) Opener {
	return func(ctx context.Context) (Handle, error) {
		return Open(ctx, cfg, log)
	}
}
