package mapper

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/propsync/internal/logging"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

func TestToEntityTotal(t *testing.T) {
	records := []types.Record{
		{"id": "1"},
		{"id": "2", "bedrooms": -3, "bathrooms": "-1"},
		{"id": "3", "bedrooms": "two", "bathrooms": []any{}, "price": "cheap"},
		{"id": "4", "images": 42, "videos": map[string]any{"url": "x"}},
		{"id": "5", "image": "[not json", "video": "", "features": "{"},
		{"id": "6", "price": math.NaN(), "area": math.Inf(1)},
		{"id": float64(7), "created_at": "yesterday", "is_published": "maybe"},
		{"id": "8", "images": []any{nil, 3, map[string]any{"caption": "no url"}}},
		{"id": "9", "price": map[string]any{"amount": "1200", "currency": "eur"}},
	}
	for _, rec := range records {
		t.Run(rec.ID(), func(t *testing.T) {
			var p types.Property
			require.NotPanics(t, func() { p = ToEntity(rec) })
			assert.Equal(t, rec.ID(), p.ID)
			assert.GreaterOrEqual(t, p.Rooms.Bedrooms, 0)
			assert.GreaterOrEqual(t, p.Rooms.Bathrooms, 0)
			assert.NotNil(t, p.Images)
			assert.NotNil(t, p.Videos)
			assert.NotNil(t, p.Features)
			assert.False(t, math.IsNaN(p.Price.Amount))
			assert.Equal(t, !p.Published, p.Draft)
		})
	}
}

func TestToEntityDefaults(t *testing.T) {
	p := ToEntity(types.Record{"id": "1"})

	assert.Equal(t, types.DefaultFurnishing, p.Furnishing)
	assert.Equal(t, types.DefaultCondition, p.Condition)
	assert.Equal(t, types.DefaultCurrency, p.Price.Currency)
	assert.Equal(t, types.DefaultAreaUnit, p.Area.Unit)
	assert.Equal(t, types.DefaultPropertyType, p.Type)
	assert.Equal(t, types.DefaultListingType, p.ListingType)
	assert.Equal(t, types.StatusDraft, p.Status)
	assert.False(t, p.Published)
	assert.True(t, p.Draft)
	assert.Empty(t, p.Images)
	assert.True(t, p.CreatedAt.IsZero())
}

func TestToEntityNumericCoercion(t *testing.T) {
	p := ToEntity(types.Record{
		"id":          "1",
		"bedrooms":    "3",
		"baths":       []any{float64(2)},
		"parking":     int64(1),
		"price":       "250000.50",
		"views_count": float64(12),
		"area":        []any{"80"},
	})
	assert.Equal(t, 3, p.Rooms.Bedrooms)
	assert.Equal(t, 2, p.Rooms.Bathrooms)
	assert.Equal(t, 1, p.Rooms.Parking)
	assert.Equal(t, 250000.50, p.Price.Amount)
	assert.Equal(t, int64(12), p.Analytics.Views)
	assert.Equal(t, 80.0, p.Area.Total)
}

func TestToEntityMixedLegacyImageString(t *testing.T) {
	p := ToEntity(types.Record{"id": "1", "image": `["a.jpg","b.jpg"]`})

	require.Len(t, p.Images, 2)
	assert.Equal(t, "a.jpg", p.Images[0].URL)
	assert.True(t, p.Images[0].IsPrimary)
	assert.Equal(t, 0, p.Images[0].Order)
	assert.Equal(t, "b.jpg", p.Images[1].URL)
	assert.False(t, p.Images[1].IsPrimary)
	assert.Equal(t, 1, p.Images[1].Order)
	assert.NotEqual(t, p.Images[0].ID, p.Images[1].ID)
}

func TestMediaPrecedence(t *testing.T) {
	tests := []struct {
		name string
		rec  types.Record
		want []string
	}{
		{
			name: "canonical array beats legacy single value",
			rec:  types.Record{"id": "1", "images": []any{"canon.jpg"}, "image_url": "legacy.jpg"},
			want: []string{"canon.jpg"},
		},
		{
			name: "canonical array beats mixed field",
			rec:  types.Record{"id": "1", "images": []any{"canon.jpg"}, "image": "mixed.jpg"},
			want: []string{"canon.jpg"},
		},
		{
			name: "empty canonical array is present",
			rec:  types.Record{"id": "1", "images": []any{}, "image_url": "legacy.jpg"},
			want: []string{},
		},
		{
			name: "mixed field plain string is one url",
			rec:  types.Record{"id": "1", "image": "single.jpg", "main_image": "legacy.jpg"},
			want: []string{"single.jpg"},
		},
		{
			name: "mixed field native array",
			rec:  types.Record{"id": "1", "image": []any{"x.jpg", "y.jpg"}},
			want: []string{"x.jpg", "y.jpg"},
		},
		{
			name: "malformed json in mixed field is one url",
			rec:  types.Record{"id": "1", "image": `["a.jpg",`, "thumbnail_url": "thumb.jpg"},
			want: []string{`["a.jpg",`},
		},
		{
			name: "legacy priority order",
			rec:  types.Record{"id": "1", "thumbnail_url": "thumb.jpg", "main_image": "main.jpg"},
			want: []string{"main.jpg"},
		},
		{
			name: "image_url wins among legacy",
			rec:  types.Record{"id": "1", "thumbnail_url": "thumb.jpg", "image_url": "url.jpg"},
			want: []string{"url.jpg"},
		},
		{
			name: "canonical json string",
			rec:  types.Record{"id": "1", "images": `[{"url":"d.jpg"}]`},
			want: []string{"d.jpg"},
		},
		{
			name: "nothing present",
			rec:  types.Record{"id": "1", "image_url": "  "},
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ToEntity(tt.rec)
			urls := make([]string, 0, len(p.Images))
			for _, m := range p.Images {
				urls = append(urls, m.URL)
			}
			assert.Equal(t, tt.want, urls)
		})
	}
}

func TestVideosIndependentOfImages(t *testing.T) {
	p := ToEntity(types.Record{
		"id":               "1",
		"images":           []any{"a.jpg"},
		"virtual_tour_url": "tour.mp4",
		"video_tour_url":   "walk.mp4",
	})
	require.Len(t, p.Videos, 1)
	assert.Equal(t, "walk.mp4", p.Videos[0].URL)
	assert.True(t, p.Videos[0].IsPrimary)
	assert.Len(t, p.Images, 1)
}

func TestMediaDescriptorsKeepSourcePrimary(t *testing.T) {
	p := ToEntity(types.Record{
		"id": "1",
		"images": []any{
			map[string]any{"url": "a.jpg", "caption": "front"},
			map[string]any{"url": "b.jpg", "is_primary": true, "id": "img-b"},
		},
	})
	require.Len(t, p.Images, 2)
	assert.False(t, p.Images[0].IsPrimary)
	assert.True(t, p.Images[1].IsPrimary)
	assert.Equal(t, "front", p.Images[0].Caption)
	assert.Equal(t, "img-b", p.Images[1].ID)
}

func TestMediaIDStable(t *testing.T) {
	rec := types.Record{"id": "p1", "image": "a.jpg"}
	first := ToEntity(rec).Images[0].ID
	second := ToEntity(rec).Images[0].ID
	assert.Equal(t, first, second)
	assert.Equal(t, MediaID("p1", KindImage, 0, "a.jpg"), first)
	assert.NotEqual(t, MediaID("p2", KindImage, 0, "a.jpg"), first)
	assert.NotEqual(t, MediaID("p1", KindVideo, 0, "a.jpg"), first)
}

func TestMalformedJSONIsLoggedAtDebug(t *testing.T) {
	rec := logging.NewRecorder()
	m := New(nil, rec)

	p := m.ToEntity(types.Record{"id": "1", "image": `["a.jpg"`, "image_url": "legacy.jpg"})

	require.Len(t, p.Images, 1)
	assert.Equal(t, `["a.jpg"`, p.Images[0].URL)
	debug := rec.Levels("debug")
	require.Len(t, debug, 1)
	assert.Equal(t, "image", debug[0].Fields["column"])
	assert.Empty(t, rec.Levels("error"))
}

func TestPublishedDraftDerivation(t *testing.T) {
	tests := []struct {
		name string
		rec  types.Record
		want bool
	}{
		{"published flag", types.Record{"id": "1", "is_published": true, "is_draft": true}, true},
		{"legacy published string", types.Record{"id": "1", "published": "false", "status": "published"}, false},
		{"draft flag only", types.Record{"id": "1", "draft": false}, true},
		{"status fallback", types.Record{"id": "1", "status": "Published"}, true},
		{"nothing", types.Record{"id": "1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ToEntity(tt.rec)
			assert.Equal(t, tt.want, p.Published)
			assert.Equal(t, !tt.want, p.Draft)
		})
	}
}

func TestAddressDerivedFields(t *testing.T) {
	p := ToEntity(types.Record{
		"id":        "1",
		"country":   "united kingdom",
		"zip_code":  "SW1A 1AA",
		"latitude":  57.64911,
		"longitude": "10.40744",
	})
	assert.Equal(t, "GB", p.Address.CountryCode)
	assert.Equal(t, "SW1A 1AA", p.Address.PostalCode)
	assert.Regexp(t, "^u4pruydqqvj", p.Address.Geohash)

	noCoords := ToEntity(types.Record{"id": "1", "latitude": 10.0})
	assert.Empty(t, noCoords.Address.Geohash)

	explicit := ToEntity(types.Record{"id": "1", "country": "Narnia", "country_code": "nn"})
	assert.Equal(t, "NN", explicit.Address.CountryCode)
}

func TestRoundTrip(t *testing.T) {
	lat, lng := 40.7128, -74.006
	e := types.Property{
		ID:          "p-1",
		Title:       "Harbour loft",
		Description: "Two floors",
		Price:       types.Price{Amount: 450000, Currency: "USD", Negotiable: true},
		Type:        types.PropertyTypeApartment,
		ListingType: types.ListingTypeRent,
		Status:      types.StatusUnderOffer,
		Address: types.Address{
			Line1: "1 Pier St", City: "New York", State: "NY", PostalCode: "10001",
			Country: "United States", CountryCode: "US", Latitude: &lat, Longitude: &lng,
		},
		Area:       types.Area{Total: 120, Unit: "sqm"},
		Rooms:      types.Rooms{Bedrooms: 2, Bathrooms: 1, Balconies: 1, Parking: 1},
		Furnishing: "furnished",
		Condition:  "new",
		Features:   []string{"gym", "pool"},
		Images: []types.Media{
			{ID: "i1", URL: "a.jpg", IsPrimary: true, Order: 0},
			{ID: "i2", URL: "b.jpg", Order: 1, Caption: "kitchen"},
		},
		Videos:    []types.Media{},
		AgentID:   "agent-9",
		Published: true,
		Featured:  true,
	}

	rec := ToRecord(types.PatchFrom(e))
	rec["id"] = e.ID
	got := ToEntity(rec)

	assert.Equal(t, e.Title, got.Title)
	assert.Equal(t, e.Price.Amount, got.Price.Amount)
	assert.Equal(t, e.Rooms.Bedrooms, got.Rooms.Bedrooms)
	assert.Equal(t, e.Rooms.Bathrooms, got.Rooms.Bathrooms)
	assert.Equal(t, e.Status, got.Status)

	assert.Equal(t, e.Price, got.Price)
	assert.Equal(t, e.Type, got.Type)
	assert.Equal(t, e.ListingType, got.ListingType)
	assert.Equal(t, e.Rooms, got.Rooms)
	assert.Equal(t, e.Area, got.Area)
	assert.Equal(t, e.Features, got.Features)
	assert.Equal(t, e.Images, got.Images)
	assert.Equal(t, e.Videos, got.Videos)
	assert.Equal(t, e.AgentID, got.AgentID)
	assert.True(t, got.Published)
	assert.False(t, got.Draft)
	assert.True(t, got.Featured)
	assert.Equal(t, "US", got.Address.CountryCode)
	assert.NotEmpty(t, got.Address.Geohash)
}

func TestToRecordPartial(t *testing.T) {
	title := "New title"
	rec := ToRecord(types.PropertyPatch{Title: &title})
	assert.Equal(t, types.Record{"title": "New title"}, rec)

	assert.Empty(t, ToRecord(types.PropertyPatch{}))
}

func TestToRecordMediaAndFlags(t *testing.T) {
	draft := true
	rec := ToRecord(types.PropertyPatch{
		Images: []types.Media{{ID: "1", URL: "a.jpg"}, {ID: "2", URL: "b.jpg", IsPrimary: true}},
		Videos: []types.Media{},
		Draft:  &draft,
	})

	assert.Equal(t, "b.jpg", rec[ColImageURL])
	assert.Len(t, rec[ColImages], 2)
	assert.Equal(t, []any{}, rec[ColVideos])
	assert.Nil(t, rec[ColVideoURL])
	assert.Contains(t, rec, ColVideoURL, "clearing media clears the legacy column too")
	assert.Equal(t, false, rec[ColPublished])
	assert.Equal(t, true, rec[ColDraft])
	assert.NotContains(t, rec, ColTitle)
}

func TestCounterColumn(t *testing.T) {
	col, err := CounterColumn(types.CounterViews)
	require.NoError(t, err)
	assert.Equal(t, "views_count", col)

	_, err = CounterColumn("likes")
	assert.ErrorIs(t, err, types.ErrInvalidCounter)
}
