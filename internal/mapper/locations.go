package mapper

import (
	"context"
	"fmt"
	"sync"

	"github.com/mesh-intelligence/propsync/internal/logging"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

// Cache is a shared second-level cache for location names.
type Cache interface {
	// Get returns the cached value; found is false on a miss.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Locations resolves country, state and city ids to names. Entries are only
// ever added; concurrent fills of the same key store the same value.
type Locations struct {
	backend types.Backend
	l2      Cache
	log     logging.Logger

	mu    sync.RWMutex
	names map[string]string
}

// NewLocations returns an empty cache backed by backend. l2 may be nil.
func NewLocations(backend types.Backend, l2 Cache, log logging.Logger) *Locations {
	if log == nil {
		log = logging.Nop()
	}
	return &Locations{
		backend: backend,
		l2:      l2,
		log:     log.WithFields(logging.Fields{"component": "locations"}),
		names:   make(map[string]string),
	}
}

func cacheKey(table, id string) string {
	return "location:" + table + ":" + id
}

// Name returns the name of the row id in table. A miss in both cache levels
// falls through to the backend. Returns ErrNotFound when the backend has no
// such row.
func (l *Locations) Name(ctx context.Context, table, id string) (string, error) {
	key := cacheKey(table, id)

	l.mu.RLock()
	name, ok := l.names[key]
	l.mu.RUnlock()
	if ok {
		return name, nil
	}

	if l.l2 != nil {
		cached, found, err := l.l2.Get(ctx, key)
		if err != nil {
			l.log.Warn("location cache read failed", logging.Fields{"key": key, "error": err.Error()})
		} else if found {
			l.store(key, cached)
			return cached, nil
		}
	}

	rows, err := l.backend.Select(ctx, table, types.Query{Eq: map[string]any{types.ColumnID: id}, Limit: 1})
	if err != nil {
		return "", fmt.Errorf("looking up %s %s: %w", table, id, err)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("looking up %s %s: %w", table, id, types.ErrNotFound)
	}
	name = stringField(rows[0], "name", "title")
	l.store(key, name)

	if l.l2 != nil {
		if err := l.l2.Set(ctx, key, name); err != nil {
			l.log.Warn("location cache write failed", logging.Fields{"key": key, "error": err.Error()})
		}
	}
	return name, nil
}

func (l *Locations) store(key, name string) {
	l.mu.Lock()
	l.names[key] = name
	l.mu.Unlock()
}

// Len returns the number of cached entries.
func (l *Locations) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.names)
}

// Resolve fills empty country, state and city names of addr from the id
// references in rec.
func (l *Locations) Resolve(ctx context.Context, rec types.Record, addr *types.Address) {
	refs := []struct {
		column string
		table  string
		target *string
	}{
		{ColCountryID, types.CountriesTable, &addr.Country},
		{ColStateID, types.StatesTable, &addr.State},
		{ColCityID, types.CitiesTable, &addr.City},
	}
	for _, ref := range refs {
		if *ref.target != "" {
			continue
		}
		id := stringField(rec, ref.column)
		if id == "" {
			continue
		}
		name, err := l.Name(ctx, ref.table, id)
		if err != nil {
			l.log.Warn("location lookup failed", logging.Fields{
				"table": ref.table, "id": id, "error": err.Error(),
			})
			continue
		}
		*ref.target = name
	}
}
