package mapper

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/propsync/internal/logging"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

// lookupBackend serves Select from fixed tables and counts calls.
type lookupBackend struct {
	mu      sync.Mutex
	tables  map[string][]types.Record
	selects int
	err     error
}

func (b *lookupBackend) Select(_ context.Context, table string, q types.Query) ([]types.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selects++
	if b.err != nil {
		return nil, b.err
	}
	var out []types.Record
	for _, row := range b.tables[table] {
		if row.ID() == q.Eq[types.ColumnID] {
			out = append(out, row)
		}
	}
	return out, nil
}

func (b *lookupBackend) Insert(context.Context, string, types.Record) (types.Record, error) {
	return nil, errors.New("not supported")
}

func (b *lookupBackend) Update(context.Context, string, string, types.Record) (types.Record, error) {
	return nil, errors.New("not supported")
}

func (b *lookupBackend) Delete(context.Context, string, ...string) error {
	return errors.New("not supported")
}

type mapCache struct {
	values map[string]string
	sets   int
}

func (c *mapCache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key, value string) error {
	c.values[key] = value
	c.sets++
	return nil
}

func newLookupBackend() *lookupBackend {
	return &lookupBackend{tables: map[string][]types.Record{
		types.CountriesTable: {{"id": "c1", "name": "Kenya", "code": "KE"}},
		types.StatesTable:    {{"id": "s1", "name": "Nairobi County"}},
		types.CitiesTable:    {{"id": "t1", "name": "Nairobi"}},
	}}
}

func TestLocationsNameCachesMisses(t *testing.T) {
	backend := newLookupBackend()
	locs := NewLocations(backend, nil, nil)
	ctx := context.Background()

	name, err := locs.Name(ctx, types.CountriesTable, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Kenya", name)

	name, err = locs.Name(ctx, types.CountriesTable, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Kenya", name)
	assert.Equal(t, 1, backend.selects)
	assert.Equal(t, 1, locs.Len())

	_, err = locs.Name(ctx, types.CitiesTable, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestLocationsSecondLevelCache(t *testing.T) {
	backend := newLookupBackend()
	l2 := &mapCache{values: map[string]string{"location:states:s9": "Rift Valley"}}
	locs := NewLocations(backend, l2, nil)
	ctx := context.Background()

	name, err := locs.Name(ctx, types.StatesTable, "s9")
	require.NoError(t, err)
	assert.Equal(t, "Rift Valley", name)
	assert.Zero(t, backend.selects)

	_, err = locs.Name(ctx, types.StatesTable, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, l2.sets)
	assert.Equal(t, "Nairobi County", l2.values["location:states:s1"])
}

func TestToEntityContextResolvesReferences(t *testing.T) {
	m := New(NewLocations(newLookupBackend(), nil, nil), nil)

	p := m.ToEntityContext(context.Background(), types.Record{
		"id":         "1",
		"country_id": "c1",
		"state_id":   "s1",
		"city_id":    "t1",
	})
	assert.Equal(t, "Kenya", p.Address.Country)
	assert.Equal(t, "KE", p.Address.CountryCode)
	assert.Equal(t, "Nairobi County", p.Address.State)
	assert.Equal(t, "Nairobi", p.Address.City)
}

func TestToEntityContextKeepsRecordNamesOnFailure(t *testing.T) {
	backend := newLookupBackend()
	backend.err = &types.BackendError{Code: "08006", Message: "connection refused"}
	log := logging.NewRecorder()
	m := New(NewLocations(backend, nil, log), log)

	p := m.ToEntityContext(context.Background(), types.Record{
		"id":         "1",
		"city":       "Mombasa",
		"country_id": "c1",
		"city_id":    "t1",
	})
	assert.Equal(t, "Mombasa", p.Address.City)
	assert.Empty(t, p.Address.Country)
	assert.Equal(t, 1, backend.selects, "city already named, only country looked up")
	require.Len(t, log.Levels("warn"), 1)
}

func TestCountryCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"United States", "US"},
		{"  usa ", "US"},
		{"UNITED KINGDOM", "GB"},
		{"uk", "GB"},
		{"Deutschland", "DE"},
		{"españa", "ES"},
		{"ke", "KE"},
		{"Atlantis", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CountryCode(tt.in))
		})
	}
}

func TestCountriesCatalogSorted(t *testing.T) {
	list := Countries()
	require.NotEmpty(t, list)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].Code, list[i].Code)
	}
	for _, c := range list {
		assert.Equal(t, c.Code, CountryCode(c.Name))
	}
}
