// Package store keeps the in-memory property collection in step with the
// backend.
//
// Create, Update, Delete and BulkDelete must be confirmed by the backend:
// the collection changes only after the backend accepts the write, and a
// failed call leaves it untouched. IncrementCounter is best-effort: the
// collection changes first and a failed backend write is only logged.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mesh-intelligence/propsync/internal/logging"
	"github.com/mesh-intelligence/propsync/internal/mapper"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

// Op names the operation behind a Change.
type Op string

// Change operations.
const (
	OpLoad    Op = "load"
	OpCreate  Op = "create"
	OpUpdate  Op = "update"
	OpDelete  Op = "delete"
	OpCounter Op = "counter"
)

// Change is delivered to subscribers after every change to the collection.
// Snapshot is a copy the subscriber may keep.
type Change struct {
	Op       Op
	IDs      []string
	Snapshot []types.Property
}

// Option configures a Store.
type Option func(*Store)

// WithRetryable replaces the predicate that decides whether a failed create
// or update is retried.
func WithRetryable(fn func(error) bool) Option {
	return func(s *Store) {
		if fn != nil {
			s.isRetryable = fn
		}
	}
}

// WithRetry sets the total number of attempts and the base backoff delay.
func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(s *Store) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if baseDelay >= 0 {
			s.baseDelay = baseDelay
		}
	}
}

// WithTable selects the backend table. Defaults to types.PropertiesTable.
func WithTable(table string) Option {
	return func(s *Store) {
		if table != "" {
			s.table = table
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logging.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// Store owns the property collection. It is safe for concurrent use.
// Backend calls run outside the lock, so unrelated mutations do not wait
// for each other.
type Store struct {
	backend types.Backend
	mapper  *mapper.Mapper
	table   string
	log     logging.Logger

	isRetryable func(error) bool
	attempts    int
	baseDelay   time.Duration
	sleep       func(context.Context, time.Duration) error

	mu    sync.RWMutex
	items []types.Property

	subMu   sync.Mutex
	subs    map[int]func(Change)
	nextSub int

	counterMu      sync.Mutex
	counterWriters map[counterKey]*counterWriter
}

type counterKey struct {
	id     string
	column string
}

// counterWriter orders the backend writes of one counter. written is the
// highest value the backend has accepted.
type counterWriter struct {
	mu      sync.Mutex
	written int64
}

// New returns an empty Store. Call Load to fill it.
func New(backend types.Backend, m *mapper.Mapper, opts ...Option) *Store {
	s := &Store{
		backend:     backend,
		mapper:      m,
		table:       types.PropertiesTable,
		log:         logging.Nop(),
		isRetryable: types.IsSchemaCacheStale,
		attempts:    types.DefaultRetryAttempts,
		baseDelay:   types.DefaultRetryDelay,
		sleep:       sleepContext,
		subs:        make(map[int]func(Change)),

		counterWriters: make(map[counterKey]*counterWriter),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mapper == nil {
		s.mapper = mapper.New(nil, s.log)
	}
	s.log = s.log.WithFields(logging.Fields{"component": "store", "table": s.table})
	return s
}

// Load replaces the collection with every row of the table, newest first.
func (s *Store) Load(ctx context.Context) error {
	rows, err := s.backend.Select(ctx, s.table, types.Query{OrderBy: mapper.ColCreatedAt, Descending: true})
	if err != nil {
		return fmt.Errorf("loading %s: %w", s.table, err)
	}
	items := make([]types.Property, 0, len(rows))
	for _, row := range rows {
		if row.ID() == "" {
			s.log.Warn("skipping row without id", nil)
			continue
		}
		items = append(items, s.mapper.ToEntityContext(ctx, row))
	}

	s.mu.Lock()
	s.items = items
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Info("collection loaded", logging.Fields{"count": len(items)})
	s.publish(Change{Op: OpLoad, Snapshot: snap})
	return nil
}

// List returns a copy of the collection.
func (s *Store) List() []types.Property {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Get returns the property with the given id.
// Returns ErrNotFound if it is not in the collection.
func (s *Store) Get(id string) (types.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.items[i], nil
	}
	return types.Property{}, types.ErrNotFound
}

// Create validates patch, inserts it, and prepends the persisted property
// to the collection.
func (s *Store) Create(ctx context.Context, patch types.PropertyPatch) (types.Property, error) {
	if err := validate(patch, true); err != nil {
		return types.Property{}, err
	}
	rec := s.mapper.ToRecord(patch)
	row, err := s.withRetry(ctx, "create", func(ctx context.Context) (types.Record, error) {
		return s.backend.Insert(ctx, s.table, rec.Clone())
	})
	if err != nil {
		s.log.Error("create failed", err, nil)
		return types.Property{}, err
	}
	p := s.mapper.ToEntityContext(ctx, row)

	s.mu.Lock()
	s.items = append([]types.Property{p}, s.items...)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(Change{Op: OpCreate, IDs: []string{p.ID}, Snapshot: snap})
	return p, nil
}

// Update validates patch, writes only its present attributes, and replaces
// the property in the collection with the persisted row.
func (s *Store) Update(ctx context.Context, id string, patch types.PropertyPatch) (types.Property, error) {
	if id == "" {
		return types.Property{}, types.ErrInvalidID
	}
	if err := validate(patch, false); err != nil {
		return types.Property{}, err
	}
	rec := s.mapper.ToRecord(patch)
	row, err := s.withRetry(ctx, "update", func(ctx context.Context) (types.Record, error) {
		return s.backend.Update(ctx, s.table, id, rec.Clone())
	})
	if err != nil {
		s.log.Error("update failed", err, logging.Fields{"id": id})
		return types.Property{}, err
	}
	p := s.mapper.ToEntityContext(ctx, row)

	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 {
		s.items[i] = p
	} else {
		s.items = append([]types.Property{p}, s.items...)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(Change{Op: OpUpdate, IDs: []string{id}, Snapshot: snap})
	return p, nil
}

// Delete removes one property from the backend, then from the collection.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.BulkDelete(ctx, []string{id})
}

// BulkDelete removes the given properties in one backend call, then from
// the collection.
func (s *Store) BulkDelete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	for _, id := range ids {
		if id == "" {
			return types.ErrInvalidID
		}
	}
	if err := s.backend.Delete(ctx, s.table, ids...); err != nil {
		s.log.Error("delete failed", err, logging.Fields{"ids": ids})
		return &types.TerminalError{Op: "delete", Attempts: 1, Err: err}
	}

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	s.mu.Lock()
	kept := s.items[:0:0]
	for _, p := range s.items {
		if !drop[p.ID] {
			kept = append(kept, p)
		}
	}
	s.items = kept
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(Change{Op: OpDelete, IDs: append([]string(nil), ids...), Snapshot: snap})
	return nil
}

// IncrementCounter adds one to a counter of a property in the collection,
// notifies subscribers, and then writes the new value to the backend. A
// failed backend write is logged and the local value is kept. Only local
// failures are returned.
func (s *Store) IncrementCounter(ctx context.Context, id string, counter types.Counter) (int64, error) {
	column, err := mapper.CounterColumn(counter)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return 0, types.ErrNotFound
	}
	value, err := s.items[i].Analytics.Increment(counter)
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(Change{Op: OpCounter, IDs: []string{id}, Snapshot: snap})

	s.writeCounter(ctx, id, column, value)
	return value, nil
}

// writeCounter stores value unless a value at least as high was already
// written, so racing increments never lower the persisted counter. Writes
// of the same counter run one at a time.
func (s *Store) writeCounter(ctx context.Context, id, column string, value int64) {
	key := counterKey{id: id, column: column}
	s.counterMu.Lock()
	w, ok := s.counterWriters[key]
	if !ok {
		w = &counterWriter{}
		s.counterWriters[key] = w
	}
	s.counterMu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()
	if value <= w.written {
		s.log.Debug("stale counter write skipped", logging.Fields{
			"id": id, "column": column, "value": value, "written": w.written,
		})
		return
	}
	if _, err := s.backend.Update(ctx, s.table, id, types.Record{column: value}); err != nil {
		s.log.Warn("counter write failed", logging.Fields{
			"id": id, "column": column, "value": value, "error": err.Error(),
		})
		return
	}
	w.written = value
}

// Subscribe registers fn to receive every Change. Subscribers run
// synchronously on the goroutine that made the change, in registration
// order. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Change)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) publish(c Change) {
	s.subMu.Lock()
	keys := make([]int, 0, len(s.subs))
	for k := range s.subs {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	fns := make([]func(Change), len(keys))
	for i, k := range keys {
		fns[i] = s.subs[k]
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

func (s *Store) indexLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() []types.Property {
	return append([]types.Property{}, s.items...)
}
