package view

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/propsync/pkg/types"
)

// Request is a parsed projection request.
type Request struct {
	Filters types.FilterCriteria
	Sort    types.SortSpec
	Page    types.PageRequest
}

// Project applies the request to items.
func (r Request) Project(items []types.Property) Projection {
	return Project(items, r.Filters, r.Sort, r.Page)
}

// ParseQuery reads a projection request from query parameters:
//
//	search, city, type, listing_type, status (repeatable or comma separated),
//	min_price, max_price, min_bedrooms, max_bedrooms, min_bathrooms,
//	max_bathrooms, min_area, max_area, featured, verified, published,
//	sort, order, page, limit.
//
// Absent parameters impose no constraint. Malformed numbers and booleans
// are errors.
func ParseQuery(q url.Values) (Request, error) {
	var req Request
	var err error
	f := &req.Filters

	f.Search = strings.TrimSpace(q.Get("search"))
	f.City = strings.TrimSpace(q.Get("city"))
	for _, s := range parseStringSlice(q, "type") {
		f.PropertyTypes = append(f.PropertyTypes, types.PropertyType(s))
	}
	for _, s := range parseStringSlice(q, "listing_type") {
		f.ListingTypes = append(f.ListingTypes, types.ListingType(s))
	}
	for _, s := range parseStringSlice(q, "status") {
		f.Statuses = append(f.Statuses, types.Status(s))
	}

	ranges := []struct {
		name string
		dst  *types.Range
	}{
		{"price", &f.Price},
		{"bedrooms", &f.Bedrooms},
		{"bathrooms", &f.Bathrooms},
		{"area", &f.Area},
	}
	for _, r := range ranges {
		if r.dst.Min, err = parseFloat(q, "min_"+r.name); err != nil {
			return Request{}, err
		}
		if r.dst.Max, err = parseFloat(q, "max_"+r.name); err != nil {
			return Request{}, err
		}
	}

	if f.Featured, err = parseBool(q, "featured"); err != nil {
		return Request{}, err
	}
	if f.Verified, err = parseBool(q, "verified"); err != nil {
		return Request{}, err
	}
	if f.Published, err = parseBool(q, "published"); err != nil {
		return Request{}, err
	}

	if s := q.Get("sort"); s != "" {
		field, ok := ParseSortField(s)
		if !ok {
			return Request{}, fmt.Errorf("sort: unknown field %q", s)
		}
		req.Sort = types.SortSpec{Field: field, Direction: types.SortAsc}
	}
	switch o := strings.ToLower(q.Get("order")); o {
	case "":
	case string(types.SortAsc), string(types.SortDesc):
		if req.Sort.Field == "" {
			req.Sort.Field = types.DefaultSort.Field
		}
		req.Sort.Direction = types.SortDirection(o)
	default:
		return Request{}, fmt.Errorf("order: must be asc or desc, got %q", o)
	}

	if req.Page.Page, err = parseInt(q, "page"); err != nil {
		return Request{}, err
	}
	if req.Page.Limit, err = parseInt(q, "limit"); err != nil {
		return Request{}, err
	}
	return req, nil
}

func parseStringSlice(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func parseFloat(q url.Values, key string) (*float64, error) {
	s := strings.TrimSpace(q.Get(key))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: not a number: %q", key, s)
	}
	return &v, nil
}

func parseBool(q url.Values, key string) (*bool, error) {
	s := strings.TrimSpace(q.Get(key))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("%s: not a boolean: %q", key, s)
	}
	return &v, nil
}

func parseInt(q url.Values, key string) (int, error) {
	s := strings.TrimSpace(q.Get(key))
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: not an integer: %q", key, s)
	}
	return v, nil
}
