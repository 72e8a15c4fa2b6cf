package types

// Range is an inclusive numeric interval with independent optional bounds.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// IsZero reports whether neither bound is set.
func (r Range) IsZero() bool {
	return r.Min == nil && r.Max == nil
}

// Contains reports whether v lies within the set bounds.
func (r Range) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// FilterCriteria is a sparse set of predicates. Every absent field imposes
// no constraint; present fields combine with AND.
type FilterCriteria struct {
	Search        string         `json:"search,omitempty"`
	PropertyTypes []PropertyType `json:"property_types,omitempty"`
	ListingTypes  []ListingType  `json:"listing_types,omitempty"`
	Statuses      []Status       `json:"statuses,omitempty"`
	Price         Range          `json:"price,omitempty"`
	Bedrooms      Range          `json:"bedrooms,omitempty"`
	Bathrooms     Range          `json:"bathrooms,omitempty"`
	Area          Range          `json:"area,omitempty"`
	City          string         `json:"city,omitempty"`
	Featured      *bool          `json:"featured,omitempty"`
	Verified      *bool          `json:"verified,omitempty"`
	Published     *bool          `json:"published,omitempty"`
}

// SortField names a sortable attribute.
type SortField string

// Sortable attributes.
const (
	SortByCreatedAt SortField = "created_at"
	SortByUpdatedAt SortField = "updated_at"
	SortByPrice     SortField = "price"
	SortByTitle     SortField = "title"
	SortByBedrooms  SortField = "bedrooms"
	SortByBathrooms SortField = "bathrooms"
	SortByArea      SortField = "area"
	SortByViews     SortField = "views"
)

// SortDirection orders a sort.
type SortDirection string

// Sort directions.
const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortSpec selects the sort field and direction.
type SortSpec struct {
	Field     SortField     `json:"field"`
	Direction SortDirection `json:"direction"`
}

// DefaultSort orders newest first.
var DefaultSort = SortSpec{Field: SortByCreatedAt, Direction: SortDesc}

// DefaultLimit is the page size used when a request gives none.
const DefaultLimit = 10

// PageRequest asks for one page of a projection. Pages start at 1.
type PageRequest struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Pagination describes the page returned by a projection. Total counts the
// filtered collection, not the page.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
