package types

import "time"

// PropertyType classifies the physical asset.
type PropertyType string

// Property types.
const (
	PropertyTypeApartment  PropertyType = "apartment"
	PropertyTypeHouse      PropertyType = "house"
	PropertyTypeVilla      PropertyType = "villa"
	PropertyTypeCondo      PropertyType = "condo"
	PropertyTypeTownhouse  PropertyType = "townhouse"
	PropertyTypeLand       PropertyType = "land"
	PropertyTypeCommercial PropertyType = "commercial"
	PropertyTypeOffice     PropertyType = "office"
	PropertyTypeOther      PropertyType = "other"
)

// ListingType is the commercial arrangement offered.
type ListingType string

// Listing types.
const (
	ListingTypeSale  ListingType = "sale"
	ListingTypeRent  ListingType = "rent"
	ListingTypeLease ListingType = "lease"
)

// Status is the listing lifecycle state.
type Status string

// Lifecycle states.
const (
	StatusDraft      Status = "draft"
	StatusPublished  Status = "published"
	StatusUnderOffer Status = "under_offer"
	StatusSold       Status = "sold"
	StatusLet        Status = "let"
	StatusWithdrawn  Status = "withdrawn"
	StatusArchived   Status = "archived"
)

// validStatuses is the set of recognized lifecycle states.
var validStatuses = map[Status]bool{
	StatusDraft:      true,
	StatusPublished:  true,
	StatusUnderOffer: true,
	StatusSold:       true,
	StatusLet:        true,
	StatusWithdrawn:  true,
	StatusArchived:   true,
}

// IsValidStatus reports whether s is a recognized lifecycle state.
func IsValidStatus(s Status) bool {
	return validStatuses[s]
}

// Defaults applied by the mapper when a record omits a field.
const (
	DefaultCurrency     = "USD"
	DefaultAreaUnit     = "sqft"
	DefaultFurnishing   = "unfurnished"
	DefaultCondition    = "good"
	DefaultPropertyType = PropertyTypeOther
	DefaultListingType  = ListingTypeSale
	DefaultStatus       = StatusDraft
)

// Price is the asking amount of a listing.
type Price struct {
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	Negotiable bool    `json:"negotiable"`
}

// Address is the structured location of a listing. CountryCode and Geohash
// are derived by the mapper.
type Address struct {
	Line1       string   `json:"line1"`
	Line2       string   `json:"line2"`
	City        string   `json:"city"`
	State       string   `json:"state"`
	PostalCode  string   `json:"postal_code"`
	Country     string   `json:"country"`
	CountryCode string   `json:"country_code"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Geohash     string   `json:"geohash,omitempty"`
}

// Area is the total floor or plot area.
type Area struct {
	Total float64 `json:"total"`
	Unit  string  `json:"unit"`
}

// Rooms holds room counts. Counts are never negative.
type Rooms struct {
	Bedrooms  int `json:"bedrooms"`
	Bathrooms int `json:"bathrooms"`
	Balconies int `json:"balconies"`
	Parking   int `json:"parking"`
}

// Media describes one image or video attached to a listing. ID is a stable
// synthetic identifier derived from the listing and the URL.
type Media struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	IsPrimary bool   `json:"is_primary"`
	Order     int    `json:"order"`
	Caption   string `json:"caption,omitempty"`
}

// Analytics holds best-effort engagement counters. Client code only ever
// increments them.
type Analytics struct {
	Views     int64 `json:"views"`
	Inquiries int64 `json:"inquiries"`
	Favorites int64 `json:"favorites"`
	Shares    int64 `json:"shares"`
}

// Property is the canonical in-memory listing.
type Property struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Price       Price        `json:"price"`
	Type        PropertyType `json:"property_type"`
	ListingType ListingType  `json:"listing_type"`
	Status      Status       `json:"status"`
	Address     Address      `json:"address"`
	Area        Area         `json:"area"`
	Rooms       Rooms        `json:"rooms"`
	Furnishing  string       `json:"furnishing"`
	Condition   string       `json:"condition"`
	Features    []string     `json:"features"`
	Images      []Media      `json:"images"`
	Videos      []Media      `json:"videos"`
	Analytics   Analytics    `json:"analytics"`
	AgentID     string       `json:"agent_id,omitempty"`

	// Published is authoritative for visibility; Draft is always its negation.
	Published bool `json:"published"`
	Draft     bool `json:"draft"`
	Featured  bool `json:"featured"`
	Verified  bool `json:"verified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PrimaryImage returns the primary image, or the first image when none is
// marked primary. Returns false when the listing has no images.
func (p *Property) PrimaryImage() (Media, bool) {
	for _, m := range p.Images {
		if m.IsPrimary {
			return m, true
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0], true
	}
	return Media{}, false
}

// Counter names an analytics counter.
type Counter string

// Analytics counters.
const (
	CounterViews     Counter = "views"
	CounterInquiries Counter = "inquiries"
	CounterFavorites Counter = "favorites"
	CounterShares    Counter = "shares"
)

// Value returns the current value of counter c. Returns ErrInvalidCounter
// for an unknown counter.
func (a *Analytics) Value(c Counter) (int64, error) {
	switch c {
	case CounterViews:
		return a.Views, nil
	case CounterInquiries:
		return a.Inquiries, nil
	case CounterFavorites:
		return a.Favorites, nil
	case CounterShares:
		return a.Shares, nil
	default:
		return 0, ErrInvalidCounter
	}
}

// Increment adds one to counter c and returns the new value.
// Returns ErrInvalidCounter for an unknown counter.
func (a *Analytics) Increment(c Counter) (int64, error) {
	switch c {
	case CounterViews:
		a.Views++
		return a.Views, nil
	case CounterInquiries:
		a.Inquiries++
		return a.Inquiries, nil
	case CounterFavorites:
		a.Favorites++
		return a.Favorites, nil
	case CounterShares:
		a.Shares++
		return a.Shares, nil
	default:
		return 0, ErrInvalidCounter
	}
}

// PropertyPatch is a partial Property used for create and update. A nil
// pointer or nil slice means the attribute is absent and must not be
// written; a non-nil empty slice clears the attribute.
type PropertyPatch struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Price       *Price        `json:"price,omitempty"`
	Type        *PropertyType `json:"property_type,omitempty"`
	ListingType *ListingType  `json:"listing_type,omitempty"`
	Status      *Status       `json:"status,omitempty"`
	Address     *Address      `json:"address,omitempty"`
	Area        *Area         `json:"area,omitempty"`
	Bedrooms    *int          `json:"bedrooms,omitempty"`
	Bathrooms   *int          `json:"bathrooms,omitempty"`
	Balconies   *int          `json:"balconies,omitempty"`
	Parking     *int          `json:"parking,omitempty"`
	Furnishing  *string       `json:"furnishing,omitempty"`
	Condition   *string       `json:"condition,omitempty"`
	Features    []string      `json:"features,omitempty"`
	Images      []Media       `json:"images,omitempty"`
	Videos      []Media       `json:"videos,omitempty"`
	AgentID     *string       `json:"agent_id,omitempty"`
	Published   *bool         `json:"published,omitempty"`
	Draft       *bool         `json:"draft,omitempty"`
	Featured    *bool         `json:"featured,omitempty"`
	Verified    *bool         `json:"verified,omitempty"`
}

// PatchFrom builds a patch carrying every canonical attribute of p. It is
// the inverse direction of the mapper's round trip.
func PatchFrom(p Property) PropertyPatch {
	price := p.Price
	address := p.Address
	area := p.Area
	features := append([]string{}, p.Features...)
	images := append([]Media{}, p.Images...)
	videos := append([]Media{}, p.Videos...)
	return PropertyPatch{
		Title:       &p.Title,
		Description: &p.Description,
		Price:       &price,
		Type:        &p.Type,
		ListingType: &p.ListingType,
		Status:      &p.Status,
		Address:     &address,
		Area:        &area,
		Bedrooms:    &p.Rooms.Bedrooms,
		Bathrooms:   &p.Rooms.Bathrooms,
		Balconies:   &p.Rooms.Balconies,
		Parking:     &p.Rooms.Parking,
		Furnishing:  &p.Furnishing,
		Condition:   &p.Condition,
		Features:    features,
		Images:      images,
		Videos:      videos,
		AgentID:     &p.AgentID,
		Published:   &p.Published,
		Featured:    &p.Featured,
		Verified:    &p.Verified,
	}
}
