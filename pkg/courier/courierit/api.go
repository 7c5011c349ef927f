// Package courierit provides the low-level client for the Courier IT
// gateway, which fronts the Fastway and NZ Post provider backends.
package courierit

import (
	"context"
)

// Gateway provider ids.
const (
	ProviderFastway = 1
	ProviderNZPost  = 2
)

// APIClient defines the interface for Courier IT gateway operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// Calculate fetches one provider's price for a delivery.
	Calculate(ctx context.Context, req *CalculateRequest) (*CalculateResponse, error)

	// SendParcel creates a shipment with the given provider.
	SendParcel(ctx context.Context, req *SendParcelRequest) (*SendParcelResponse, error)

	// DownloadLabel retrieves the label PDF for a consignment.
	DownloadLabel(ctx context.Context, consignmentNumber string) ([]byte, error)

	// CheckRural reports whether a postcode is in a rural delivery zone.
	CheckRural(ctx context.Context, postcode string) (*CheckRuralResponse, error)
}

// ============================================================================
// API Request/Response Types (match the Courier IT JSON API)
// ============================================================================

// ParcelItem represents a parcel in gateway requests. Weight is kilograms
// (0.1-35), dimensions are centimetres and optional.
type ParcelItem struct {
	Weight      float64 `json:"weight"`
	Length      float64 `json:"length,omitempty"`
	Width       float64 `json:"width,omitempty"`
	Height      float64 `json:"height,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Location represents a sender or recipient address.
type Location struct {
	Name     string `json:"name"`
	Company  string `json:"company,omitempty"`
	Street   string `json:"street"`
	Street2  string `json:"street2,omitempty"`
	Suburb   string `json:"suburb"`
	City     string `json:"city"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
}

// CalculateRequest is the request body for POST /api/calculate.
type CalculateRequest struct {
	ProviderID       int          `json:"providerId"`
	PickupPostcode   string       `json:"pickupPostcode"`
	DeliveryPostcode string       `json:"deliveryPostcode"`
	Items            []ParcelItem `json:"items"`
	IsRural          bool         `json:"isRural"`
}

// CalculateResponse is the response from POST /api/calculate.
// Some provider backends report the base amount as "basePrice", others as
// "price"; callers must accept either.
type CalculateResponse struct {
	Success        *bool   `json:"success,omitempty"`
	Price          float64 `json:"price,omitempty"`
	BasePrice      float64 `json:"basePrice,omitempty"`
	RuralSurcharge float64 `json:"ruralSurcharge,omitempty"`
	GST            float64 `json:"gst,omitempty"`
	TotalPrice     float64 `json:"totalPrice,omitempty"`
	ServiceType    string  `json:"serviceType,omitempty"`
	EstimatedDays  int     `json:"estimatedDays,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// Usable reports whether the response carries a priced quote. The gateway
// omits "success" on some backends, so only an explicit false is a refusal.
func (r *CalculateResponse) Usable() bool {
	if r.Success != nil && !*r.Success {
		return false
	}
	return r.TotalPrice > 0
}

// Base returns the base amount regardless of which field variant the
// backend used.
func (r *CalculateResponse) Base() float64 {
	if r.BasePrice != 0 {
		return r.BasePrice
	}
	return r.Price
}

// SendParcelRequest is the request body for POST /api/sendparcel.
type SendParcelRequest struct {
	ProviderID        int          `json:"providerId"`
	Reference         string       `json:"reference"`
	Sender            Location     `json:"sender"`
	Recipient         Location     `json:"recipient"`
	Items             []ParcelItem `json:"items"`
	SignatureRequired bool         `json:"signatureRequired"`
	ServiceType       string       `json:"serviceType,omitempty"`
}

// SendParcelResponse is the response from POST /api/sendparcel.
type SendParcelResponse struct {
	Success           *bool  `json:"success,omitempty"`
	ConsignmentNumber string `json:"consignmentNumber,omitempty"`
	TrackingNumber    string `json:"trackingNumber,omitempty"`
	TrackingURL       string `json:"trackingUrl,omitempty"`
	LabelURL          string `json:"labelUrl,omitempty"`
	Error             string `json:"error,omitempty"`
}

// Booked reports whether the shipment was created.
func (r *SendParcelResponse) Booked() bool {
	return r.Success == nil || *r.Success
}

// CheckRuralResponse is the response from POST /api/checkrural.
type CheckRuralResponse struct {
	IsRural bool `json:"isRural"`
}

// APIError represents an error from the Courier IT gateway.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}
