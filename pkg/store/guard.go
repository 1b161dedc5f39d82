package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"miren.dev/indexer/pkg/row"
)

// Opener opens a handle on first use.
type Opener func(ctx context.Context) (Handle, error)

// Guard owns a Handle and holds an exclusive lock for the duration of each
// load or save. A nil Guard, or one without a handle, loads nothing and
// discards saves.
type Guard struct {
	mu     sync.Mutex
	handle Handle
	open   Opener
	closed bool

	log     *slog.Logger
	metrics *Metrics
}

type GuardOption func(*Guard)

// WithMetrics records guard operations in m.
func WithMetrics(m *Metrics) GuardOption {
	return func(g *Guard) {
		g.metrics = m
	}
}

func newGuard(log *slog.Logger, opts []GuardOption) *Guard {
	if log == nil {
		log = slog.Default()
	}

	g := &Guard{log: log.With("module", "store")}
	for _, o := range opts {
		o(g)
	}

	return g
}

// NewGuard guards an already open handle. h may be nil.
func NewGuard(h Handle, log *slog.Logger, opts ...GuardOption) *Guard {
	g := newGuard(log, opts)
	g.handle = h
	return g
}

// NewLazyGuard defers opening the handle until the first load or save.
func NewLazyGuard(open Opener, log *slog.Logger, opts ...GuardOption) *Guard {
	g := newGuard(log, opts)
	g.open = open
	return g
}

func (g *Guard) handleLocked(ctx context.Context) (Handle, error) {
	if g.closed {
		return nil, ErrClosed
	}

	if g.handle != nil || g.open == nil {
		return g.handle, nil
	}

	h, err := g.open(ctx)
	if err != nil {
		g.log.Error("failed to open store", "error", err)
		return nil, fmt.Errorf("opening store: %w", err)
	}

	g.log.Debug("opened store lazily")

	g.handle = h
	g.open = nil

	return h, nil
}

// Load returns the row stored for (typeID, id).
func (g *Guard) Load(ctx context.Context, typeID int64, id uint64) (row.Row, error) {
	if g == nil {
		return nil, ErrNotFound
	}

	data, err := g.get(ctx, Key{TypeID: typeID, ID: id})
	if err != nil {
		return nil, err
	}

	r, err := row.Unmarshal(data)
	if err != nil {
		g.metrics.observe(opLoad, resultError)
		return nil, fmt.Errorf("loading %d/%d: %w", typeID, id, err)
	}

	return r, nil
}

func (g *Guard) get(ctx context.Context, key Key) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	h, err := g.handleLocked(ctx)
	if err != nil {
		g.metrics.observe(opLoad, resultError)
		return nil, err
	}

	if h == nil {
		g.metrics.observe(opLoad, resultNoHandle)
		return nil, ErrNotFound
	}

	data, err := h.Get(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		g.metrics.observe(opLoad, resultMiss)
		return nil, ErrNotFound
	case err != nil:
		g.metrics.observe(opLoad, resultError)
		g.log.Error("store get failed", "key", key, "error", err)
		return nil, fmt.Errorf("loading %s: %w", key, err)
	}

	g.metrics.observe(opLoad, resultOK)
	return data, nil
}

// Save stores r under (typeID, id), replacing any previous row.
func (g *Guard) Save(ctx context.Context, typeID int64, id uint64, r row.Row) error {
	if g == nil {
		return nil
	}

	data, err := row.Marshal(r)
	if err != nil {
		g.metrics.observe(opSave, resultError)
		return fmt.Errorf("encoding %d/%d: %w", typeID, id, err)
	}

	key := Key{TypeID: typeID, ID: id}

	g.mu.Lock()
	defer g.mu.Unlock()

	h, err := g.handleLocked(ctx)
	if err != nil {
		g.metrics.observe(opSave, resultError)
		return err
	}

	if h == nil {
		g.metrics.observe(opSave, resultNoHandle)
		return nil
	}

	if err := h.Put(ctx, key, data); err != nil {
		g.metrics.observe(opSave, resultError)
		g.log.Error("store put failed", "key", key, "error", err)
		return fmt.Errorf("saving %s: %w", key, err)
	}

	g.metrics.observe(opSave, resultOK)
	return nil
}

// Close closes the handle, if one was opened.
func (g *Guard) Close() error {
	if g == nil {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}

	g.closed = true

	if g.handle == nil {
		return nil
	}

	return g.handle.Close()
}

const (
	opLoad = "load"
	opSave = "save"

	resultOK       = "ok"
	resultMiss     = "miss"
	resultNoHandle = "no_handle"
	resultError    = "error"
)

// Metrics counts guard operations by operation and result.
type Metrics struct {
	ops *prometheus.CounterVec
}

// NewMetrics registers the store counters with reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "indexgen",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store loads and saves by result.",
		}, []string{"op", "result"}),
	}

	if reg != nil {
		if err := reg.Register(m.ops); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) observe(op, result string) {
	if m == nil {
		return
	}
	m.ops.WithLabelValues(op, result).Inc()
}
