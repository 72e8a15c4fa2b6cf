// Package mapper converts between backend records and Property entities.
//
// ToEntity is total: any record with an id yields a valid Property, with
// defaults standing in for missing or malformed fields. ToRecord is partial:
// only the attributes present on a patch produce columns, so partial updates
// never overwrite unrelated columns.
package mapper

import (
	"context"
	"math"
	"strings"

	"github.com/mmcloughlin/geohash"

	"github.com/mesh-intelligence/propsync/internal/logging"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

// Current column names. Legacy aliases are read but never written, except
// the single-value media columns which are kept in step with the arrays.
const (
	ColTitle        = "title"
	ColDescription  = "description"
	ColPrice        = "price"
	ColCurrency     = "currency"
	ColNegotiable   = "price_negotiable"
	ColPropertyType = "property_type"
	ColListingType  = "listing_type"
	ColStatus       = "status"
	ColLine1        = "address_line1"
	ColLine2        = "address_line2"
	ColCity         = "city"
	ColState        = "state"
	ColPostalCode   = "postal_code"
	ColCountry      = "country"
	ColCountryCode  = "country_code"
	ColLatitude     = "latitude"
	ColLongitude    = "longitude"
	ColCountryID    = "country_id"
	ColStateID      = "state_id"
	ColCityID       = "city_id"
	ColArea         = "area"
	ColAreaUnit     = "area_unit"
	ColBedrooms     = "bedrooms"
	ColBathrooms    = "bathrooms"
	ColBalconies    = "balconies"
	ColParking      = "parking"
	ColFurnishing   = "furnishing"
	ColCondition    = "condition"
	ColFeatures     = "features"
	ColImages       = "images"
	ColImageURL     = "image_url"
	ColVideos       = "videos"
	ColVideoURL     = "video_url"
	ColAgentID      = "agent_id"
	ColPublished    = "is_published"
	ColDraft        = "is_draft"
	ColFeatured     = "is_featured"
	ColVerified     = "is_verified"
	ColCreatedAt    = "created_at"
	ColUpdatedAt    = "updated_at"
)

// counterColumns maps each analytics counter to its column.
var counterColumns = map[types.Counter]string{
	types.CounterViews:     "views_count",
	types.CounterInquiries: "inquiries_count",
	types.CounterFavorites: "favorites_count",
	types.CounterShares:    "shares_count",
}

// CounterColumn returns the column holding counter c.
func CounterColumn(c types.Counter) (string, error) {
	col, ok := counterColumns[c]
	if !ok {
		return "", types.ErrInvalidCounter
	}
	return col, nil
}

var propertyTypes = map[types.PropertyType]bool{
	types.PropertyTypeApartment:  true,
	types.PropertyTypeHouse:      true,
	types.PropertyTypeVilla:      true,
	types.PropertyTypeCondo:      true,
	types.PropertyTypeTownhouse:  true,
	types.PropertyTypeLand:       true,
	types.PropertyTypeCommercial: true,
	types.PropertyTypeOffice:     true,
	types.PropertyTypeOther:      true,
}

var listingTypes = map[types.ListingType]bool{
	types.ListingTypeSale:  true,
	types.ListingTypeRent:  true,
	types.ListingTypeLease: true,
}

// Mapper converts records using a Locations cache to resolve location
// references. The zero value is not usable; call New.
type Mapper struct {
	locations *Locations
	log       logging.Logger
}

// New returns a Mapper. locations may be nil, in which case location
// references are left unresolved.
func New(locations *Locations, log logging.Logger) *Mapper {
	if log == nil {
		log = logging.Nop()
	}
	return &Mapper{locations: locations, log: log.WithFields(logging.Fields{"component": "mapper"})}
}

// ToEntity converts rec without resolving location references.
func (m *Mapper) ToEntity(rec types.Record) types.Property {
	return toEntity(rec, m.log)
}

// ToEntityContext converts rec and fills missing country, state and city
// names from their id references. Lookup failures are logged and the names
// found in the record are kept.
func (m *Mapper) ToEntityContext(ctx context.Context, rec types.Record) types.Property {
	p := toEntity(rec, m.log)
	if m.locations != nil {
		m.locations.Resolve(ctx, rec, &p.Address)
		if p.Address.CountryCode == "" {
			p.Address.CountryCode = CountryCode(p.Address.Country)
		}
	}
	return p
}

// ToRecord converts the present attributes of patch to columns.
func (m *Mapper) ToRecord(patch types.PropertyPatch) types.Record {
	return ToRecord(patch)
}

// ToEntity converts rec to a Property. It never fails.
func ToEntity(rec types.Record) types.Property {
	return toEntity(rec, logging.Nop())
}

func toEntity(rec types.Record, log logging.Logger) types.Property {
	if rec == nil {
		rec = types.Record{}
	}
	id := rec.ID()

	p := types.Property{
		ID:          id,
		Title:       stringField(rec, ColTitle, "name"),
		Description: stringField(rec, ColDescription, "details"),
		Price:       readPrice(rec),
		Type:        readPropertyType(rec),
		ListingType: readListingType(rec),
		Status:      readStatus(rec),
		Address:     readAddress(rec),
		Area: types.Area{
			Total: nonNegative(floatField(rec, ColArea, "area_sqft", "size")),
			Unit:  defaultString(stringField(rec, ColAreaUnit), types.DefaultAreaUnit),
		},
		Rooms: types.Rooms{
			Bedrooms:  countField(rec, ColBedrooms, "beds"),
			Bathrooms: countField(rec, ColBathrooms, "baths"),
			Balconies: countField(rec, ColBalconies),
			Parking:   countField(rec, ColParking, "parking_spaces"),
		},
		Furnishing: defaultString(stringField(rec, ColFurnishing, "furnishing_status"), types.DefaultFurnishing),
		Condition:  defaultString(stringField(rec, ColCondition), types.DefaultCondition),
		Features:   readFeatures(rec, log),
		Images:     extractMedia(rec, id, KindImage, log),
		Videos:     extractMedia(rec, id, KindVideo, log),
		Analytics: types.Analytics{
			Views:     counterField(rec, counterColumns[types.CounterViews], "views"),
			Inquiries: counterField(rec, counterColumns[types.CounterInquiries], "inquiries"),
			Favorites: counterField(rec, counterColumns[types.CounterFavorites], "favorites"),
			Shares:    counterField(rec, counterColumns[types.CounterShares], "shares"),
		},
		AgentID:   stringField(rec, ColAgentID, "owner_id", "user_id"),
		CreatedAt: timeField(rec, ColCreatedAt),
		UpdatedAt: timeField(rec, ColUpdatedAt),
	}
	p.Featured, _ = boolField(rec, ColFeatured, "featured")
	p.Verified, _ = boolField(rec, ColVerified, "verified")
	p.Published = readPublished(rec, p.Status)
	p.Draft = !p.Published
	return p
}

func readPrice(rec types.Record) types.Price {
	price := types.Price{Currency: types.DefaultCurrency}
	if obj, ok := rec[ColPrice].(map[string]any); ok {
		nested := types.Record(obj)
		price.Amount = nonNegative(floatField(nested, "amount", "value"))
		price.Currency = defaultString(strings.ToUpper(stringField(nested, "currency")), price.Currency)
		price.Negotiable, _ = boolField(nested, "negotiable")
	} else {
		price.Amount = nonNegative(floatField(rec, ColPrice, "price_amount", "asking_price"))
	}
	if c := strings.ToUpper(stringField(rec, ColCurrency, "price_currency")); c != "" {
		price.Currency = c
	}
	if n, ok := boolField(rec, ColNegotiable, "negotiable"); ok {
		price.Negotiable = n
	}
	return price
}

func readPropertyType(rec types.Record) types.PropertyType {
	t := types.PropertyType(strings.ToLower(stringField(rec, ColPropertyType, "type")))
	if propertyTypes[t] {
		return t
	}
	return types.DefaultPropertyType
}

func readListingType(rec types.Record) types.ListingType {
	t := types.ListingType(strings.ToLower(stringField(rec, ColListingType, "listing")))
	if listingTypes[t] {
		return t
	}
	return types.DefaultListingType
}

func readStatus(rec types.Record) types.Status {
	s := types.Status(strings.ToLower(stringField(rec, ColStatus)))
	if types.IsValidStatus(s) {
		return s
	}
	return types.DefaultStatus
}

// readPublished prefers the published flag, then the negated draft flag,
// then the lifecycle status.
func readPublished(rec types.Record, status types.Status) bool {
	if b, ok := boolField(rec, ColPublished, "published"); ok {
		return b
	}
	if d, ok := boolField(rec, ColDraft, "draft"); ok {
		return !d
	}
	return status == types.StatusPublished
}

func readAddress(rec types.Record) types.Address {
	a := types.Address{
		Line1:      stringField(rec, ColLine1, "address", "street"),
		Line2:      stringField(rec, ColLine2),
		City:       stringField(rec, ColCity),
		State:      stringField(rec, ColState, "province", "region"),
		PostalCode: stringField(rec, ColPostalCode, "zip_code", "zip"),
		Country:    stringField(rec, ColCountry),
		Latitude:   floatPtrField(rec, ColLatitude, "lat"),
		Longitude:  floatPtrField(rec, ColLongitude, "lng", "lon"),
	}
	a.CountryCode = strings.ToUpper(stringField(rec, ColCountryCode))
	if a.CountryCode == "" {
		a.CountryCode = CountryCode(a.Country)
	}
	a.Geohash = geohashOf(a.Latitude, a.Longitude)
	return a
}

func geohashOf(lat, lng *float64) string {
	if lat == nil || lng == nil || math.Abs(*lat) > 90 || math.Abs(*lng) > 180 {
		return ""
	}
	return geohash.Encode(*lat, *lng)
}

func readFeatures(rec types.Record, log logging.Logger) []string {
	for _, col := range []string{ColFeatures, "amenities"} {
		v, ok := rec[col]
		if !ok || v == nil {
			continue
		}
		if list, ok := stringList(v); ok {
			return list
		}
		log.Debug("malformed features", logging.Fields{"column": col})
	}
	return []string{}
}

func nonNegative(f float64, ok bool) float64 {
	if !ok || f < 0 {
		return 0
	}
	return f
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// ToRecord converts the present attributes of patch to columns. Absent
// attributes produce no column.
func ToRecord(patch types.PropertyPatch) types.Record {
	rec := types.Record{}
	if patch.Title != nil {
		rec[ColTitle] = *patch.Title
	}
	if patch.Description != nil {
		rec[ColDescription] = *patch.Description
	}
	if patch.Price != nil {
		rec[ColPrice] = patch.Price.Amount
		rec[ColCurrency] = defaultString(strings.ToUpper(patch.Price.Currency), types.DefaultCurrency)
		rec[ColNegotiable] = patch.Price.Negotiable
	}
	if patch.Type != nil {
		rec[ColPropertyType] = string(*patch.Type)
	}
	if patch.ListingType != nil {
		rec[ColListingType] = string(*patch.ListingType)
	}
	if patch.Status != nil {
		rec[ColStatus] = string(*patch.Status)
	}
	if patch.Address != nil {
		writeAddress(rec, *patch.Address)
	}
	if patch.Area != nil {
		rec[ColArea] = patch.Area.Total
		rec[ColAreaUnit] = defaultString(patch.Area.Unit, types.DefaultAreaUnit)
	}
	if patch.Bedrooms != nil {
		rec[ColBedrooms] = *patch.Bedrooms
	}
	if patch.Bathrooms != nil {
		rec[ColBathrooms] = *patch.Bathrooms
	}
	if patch.Balconies != nil {
		rec[ColBalconies] = *patch.Balconies
	}
	if patch.Parking != nil {
		rec[ColParking] = *patch.Parking
	}
	if patch.Furnishing != nil {
		rec[ColFurnishing] = *patch.Furnishing
	}
	if patch.Condition != nil {
		rec[ColCondition] = *patch.Condition
	}
	if patch.Features != nil {
		features := make([]any, len(patch.Features))
		for i, f := range patch.Features {
			features[i] = f
		}
		rec[ColFeatures] = features
	}
	if patch.Images != nil {
		rec[ColImages] = mediaRecord(patch.Images)
		rec[ColImageURL] = primaryURL(patch.Images)
	}
	if patch.Videos != nil {
		rec[ColVideos] = mediaRecord(patch.Videos)
		rec[ColVideoURL] = primaryURL(patch.Videos)
	}
	if patch.AgentID != nil {
		rec[ColAgentID] = *patch.AgentID
	}
	switch {
	case patch.Published != nil:
		rec[ColPublished] = *patch.Published
		rec[ColDraft] = !*patch.Published
	case patch.Draft != nil:
		rec[ColPublished] = !*patch.Draft
		rec[ColDraft] = *patch.Draft
	}
	if patch.Featured != nil {
		rec[ColFeatured] = *patch.Featured
	}
	if patch.Verified != nil {
		rec[ColVerified] = *patch.Verified
	}
	return rec
}

func writeAddress(rec types.Record, a types.Address) {
	rec[ColLine1] = a.Line1
	rec[ColLine2] = a.Line2
	rec[ColCity] = a.City
	rec[ColState] = a.State
	rec[ColPostalCode] = a.PostalCode
	rec[ColCountry] = a.Country
	code := strings.ToUpper(a.CountryCode)
	if code == "" {
		code = CountryCode(a.Country)
	}
	rec[ColCountryCode] = code
	if a.Latitude != nil {
		rec[ColLatitude] = *a.Latitude
	} else {
		rec[ColLatitude] = nil
	}
	if a.Longitude != nil {
		rec[ColLongitude] = *a.Longitude
	} else {
		rec[ColLongitude] = nil
	}
}
