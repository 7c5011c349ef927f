package courierit

import (
	"context"
)

// RuralService adapts an APIClient to the courier.RuralChecker interface.
// The rural lookup is a gateway-level endpoint, not a per-provider one.
type RuralService struct {
	api APIClient
}

// NewRuralService creates a rural-postcode checker backed by the gateway.
func NewRuralService(api APIClient) *RuralService {
	return &RuralService{api: api}
}

// CheckRural reports whether the postcode is in a rural delivery zone.
func (s *RuralService) CheckRural(ctx context.Context, postcode string) (bool, error) {
	resp, err := s.api.CheckRural(ctx, postcode)
	if err != nil {
		return false, err
	}
	return resp.IsRural, nil
}
