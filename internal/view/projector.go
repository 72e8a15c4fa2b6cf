// Package view computes filtered, sorted and paginated projections of an
// in-memory property collection. Every function is pure and safe for
// concurrent use.
package view

import (
	"slices"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/mesh-intelligence/propsync/pkg/types"
)

// Projection is one page of a filtered, sorted collection.
type Projection struct {
	Items      []types.Property `json:"items"`
	Pagination types.Pagination `json:"pagination"`
}

// Project filters items, sorts the matches, and returns the requested page.
// items is never modified. A page beyond the last yields no items.
func Project(items []types.Property, filters types.FilterCriteria, spec types.SortSpec, page types.PageRequest) Projection {
	matched := Filter(items, filters)
	Sort(matched, spec)

	page = Normalize(page)
	total := len(matched)
	totalPages := total / page.Limit
	if total%page.Limit != 0 {
		totalPages++
	}

	// Compare page numbers before multiplying so huge pages cannot overflow.
	out := []types.Property{}
	if page.Page-1 < totalPages {
		start := (page.Page - 1) * page.Limit
		end := start + min(page.Limit, total-start)
		out = append(out, matched[start:end]...)
	}
	return Projection{
		Items: out,
		Pagination: types.Pagination{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}
}

// Normalize replaces a non-positive page with 1 and a non-positive limit
// with DefaultLimit.
func Normalize(page types.PageRequest) types.PageRequest {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.Limit < 1 {
		page.Limit = types.DefaultLimit
	}
	return page
}

// Filter returns a new slice holding the items that match filters, in
// their original order.
func Filter(items []types.Property, filters types.FilterCriteria) []types.Property {
	m := newMatcher(filters)
	out := make([]types.Property, 0, len(items))
	for i := range items {
		if m.matches(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out
}

// Matches reports whether p satisfies every present predicate of filters.
func Matches(p types.Property, filters types.FilterCriteria) bool {
	return newMatcher(filters).matches(&p)
}

// matcher holds the case-folded text predicates so a filter pass folds
// them once.
type matcher struct {
	f      types.FilterCriteria
	fold   cases.Caser
	search string
	city   string
}

func newMatcher(f types.FilterCriteria) *matcher {
	m := &matcher{f: f, fold: cases.Fold()}
	m.search = m.fold.String(strings.TrimSpace(f.Search))
	m.city = m.fold.String(strings.TrimSpace(f.City))
	return m
}

func (m *matcher) contains(haystack, needle string) bool {
	return strings.Contains(m.fold.String(haystack), needle)
}

func (m *matcher) matches(p *types.Property) bool {
	f := m.f
	if m.search != "" && !m.matchesSearch(p) {
		return false
	}
	if len(f.PropertyTypes) > 0 && !slices.Contains(f.PropertyTypes, p.Type) {
		return false
	}
	if len(f.ListingTypes) > 0 && !slices.Contains(f.ListingTypes, p.ListingType) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, p.Status) {
		return false
	}
	if !f.Price.Contains(p.Price.Amount) ||
		!f.Bedrooms.Contains(float64(p.Rooms.Bedrooms)) ||
		!f.Bathrooms.Contains(float64(p.Rooms.Bathrooms)) ||
		!f.Area.Contains(p.Area.Total) {
		return false
	}
	if m.city != "" && !m.contains(p.Address.City, m.city) {
		return false
	}
	if f.Featured != nil && p.Featured != *f.Featured {
		return false
	}
	if f.Verified != nil && p.Verified != *f.Verified {
		return false
	}
	if f.Published != nil && p.Published != *f.Published {
		return false
	}
	return true
}

func (m *matcher) matchesSearch(p *types.Property) bool {
	fields := []string{
		p.Title,
		p.Description,
		p.Address.Line1,
		p.Address.City,
		p.Address.State,
		p.Address.Country,
		p.Address.PostalCode,
	}
	for _, s := range fields {
		if m.contains(s, m.search) {
			return true
		}
	}
	return false
}

// Sort orders items in place by spec. The sort is stable. A zero spec uses
// DefaultSort; an unknown field leaves items unchanged. An empty direction
// sorts ascending.
func Sort(items []types.Property, spec types.SortSpec) {
	if spec.Field == "" {
		spec = types.DefaultSort
	}
	desc := spec.Direction == types.SortDesc
	if spec.Field == types.SortByTitle {
		sortByTitle(items, desc)
		return
	}
	less := comparator(items, spec.Field)
	if less == nil {
		return
	}
	if desc {
		asc := less
		less = func(i, j int) bool { return asc(j, i) }
	}
	sort.SliceStable(items, less)
}

// comparator returns an ascending less function for a numeric or date
// field, or nil for any other field.
func comparator(items []types.Property, field types.SortField) func(i, j int) bool {
	num := func(key func(p *types.Property) float64) func(i, j int) bool {
		return func(i, j int) bool { return key(&items[i]) < key(&items[j]) }
	}
	date := func(key func(p *types.Property) time.Time) func(i, j int) bool {
		return func(i, j int) bool { return key(&items[i]).Before(key(&items[j])) }
	}
	switch field {
	case types.SortByCreatedAt:
		return date(func(p *types.Property) time.Time { return p.CreatedAt })
	case types.SortByUpdatedAt:
		return date(func(p *types.Property) time.Time { return p.UpdatedAt })
	case types.SortByPrice:
		return num(func(p *types.Property) float64 { return p.Price.Amount })
	case types.SortByBedrooms:
		return num(func(p *types.Property) float64 { return float64(p.Rooms.Bedrooms) })
	case types.SortByBathrooms:
		return num(func(p *types.Property) float64 { return float64(p.Rooms.Bathrooms) })
	case types.SortByArea:
		return num(func(p *types.Property) float64 { return p.Area.Total })
	case types.SortByViews:
		return num(func(p *types.Property) float64 { return float64(p.Analytics.Views) })
	default:
		return nil
	}
}

func sortByTitle(items []types.Property, desc bool) {
	fold := cases.Fold()
	type keyed struct {
		key string
		p   types.Property
	}
	ks := make([]keyed, len(items))
	for i, p := range items {
		ks[i] = keyed{key: fold.String(p.Title), p: p}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		if desc {
			return ks[j].key < ks[i].key
		}
		return ks[i].key < ks[j].key
	})
	for i := range ks {
		items[i] = ks[i].p
	}
}

// ParseSortField returns the sort field named s and whether it is known.
func ParseSortField(s string) (types.SortField, bool) {
	f := types.SortField(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case types.SortByCreatedAt, types.SortByUpdatedAt, types.SortByPrice, types.SortByTitle,
		types.SortByBedrooms, types.SortByBathrooms, types.SortByArea, types.SortByViews:
		return f, true
	}
	return f, false
}
