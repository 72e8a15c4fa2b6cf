package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsIncrement(t *testing.T) {
	var a Analytics
	for _, c := range []Counter{CounterViews, CounterViews, CounterInquiries, CounterFavorites, CounterShares} {
		_, err := a.Increment(c)
		require.NoError(t, err)
	}
	assert.Equal(t, Analytics{Views: 2, Inquiries: 1, Favorites: 1, Shares: 1}, a)

	v, err := a.Value(CounterViews)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	_, err = a.Increment("likes")
	assert.ErrorIs(t, err, ErrInvalidCounter)
	_, err = a.Value("likes")
	assert.ErrorIs(t, err, ErrInvalidCounter)
}

func TestPrimaryImage(t *testing.T) {
	p := Property{}
	_, ok := p.PrimaryImage()
	assert.False(t, ok)

	p.Images = []Media{{URL: "a.jpg"}, {URL: "b.jpg", IsPrimary: true}}
	m, ok := p.PrimaryImage()
	require.True(t, ok)
	assert.Equal(t, "b.jpg", m.URL)

	p.Images[1].IsPrimary = false
	m, _ = p.PrimaryImage()
	assert.Equal(t, "a.jpg", m.URL)
}

func TestPatchFromCopiesSlices(t *testing.T) {
	p := Property{ID: "1", Title: "Loft", Features: []string{"pool"}}
	patch := PatchFrom(p)
	require.NotNil(t, patch.Title)
	assert.Equal(t, "Loft", *patch.Title)

	patch.Features[0] = "gym"
	assert.Equal(t, "pool", p.Features[0])

	empty := PatchFrom(Property{})
	assert.NotNil(t, empty.Images, "absent slices become explicit empty slices")
	assert.Empty(t, empty.Images)
}

func TestRecordID(t *testing.T) {
	tests := []struct {
		rec  Record
		want string
	}{
		{Record{"id": "abc"}, "abc"},
		{Record{"id": float64(42)}, "42"},
		{Record{"id": 7}, "7"},
		{Record{"id": int64(9)}, "9"},
		{Record{"id": nil}, ""},
		{Record{}, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.rec.ID())
	}
}

func TestRangeContains(t *testing.T) {
	lo, hi := 100.0, 200.0
	tests := []struct {
		name string
		r    Range
		v    float64
		want bool
	}{
		{"unbounded", Range{}, -5, true},
		{"min inclusive", Range{Min: &lo}, 100, true},
		{"below min", Range{Min: &lo}, 99.9, false},
		{"max inclusive", Range{Max: &hi}, 200, true},
		{"above max", Range{Max: &hi}, 200.1, false},
		{"inside both", Range{Min: &lo, Max: &hi}, 150, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.Contains(tt.v))
		})
	}
	assert.True(t, Range{}.IsZero())
	assert.False(t, Range{Min: &lo}.IsZero())
}
