package store

import (
	"math"
	"strings"

	"github.com/mesh-intelligence/propsync/pkg/types"
)

// validate rejects a patch before any backend call. A create must carry a
// title; an update may omit it but must not blank it.
func validate(p types.PropertyPatch, creating bool) error {
	if (p.Title == nil && creating) || (p.Title != nil && strings.TrimSpace(*p.Title) == "") {
		return &types.ValidationError{Field: "title", Message: "Property title is required"}
	}
	if p.Price != nil {
		a := p.Price.Amount
		if math.IsNaN(a) || math.IsInf(a, 0) || a < 0 {
			return &types.ValidationError{Field: "price", Message: "Property price must be a non-negative number"}
		}
	}
	if p.Bedrooms != nil && *p.Bedrooms < 0 {
		return &types.ValidationError{Field: "bedrooms", Message: "Bedrooms must be a non-negative number"}
	}
	if p.Bathrooms != nil && *p.Bathrooms < 0 {
		return &types.ValidationError{Field: "bathrooms", Message: "Bathrooms must be a non-negative number"}
	}
	if p.Status != nil && !types.IsValidStatus(*p.Status) {
		return &types.ValidationError{Field: "status", Message: "Property status is not recognized"}
	}
	return nil
}
