package courier

import (
	"encoding/json"
)

// Parcel weight policy enforced by the gateway. Weights are in kilograms.
const (
	MinItemWeightKG = 0.1
	MaxItemWeightKG = 35.0
)

// ParcelItem represents a single parcel to be quoted or shipped.
// Weight is required; dimensions (cm) are optional.
type ParcelItem struct {
	Description string
	Quantity    int
	Weight      float64
	Length      float64
	Width       float64
	Height      float64
}

// Address represents a sender or recipient address.
type Address struct {
	Name     string
	Company  string
	Street   string
	Street2  string
	Suburb   string
	City     string
	Postcode string
	Country  string // ISO 3166-1 alpha-2, defaults to "NZ"
	Phone    string
	Email    string
}

// QuoteRequest is the request for a price quote from one provider.
type QuoteRequest struct {
	PickupPostcode   string
	DeliveryPostcode string
	Items            []ParcelItem
	IsRural          bool
}

// Quote is one provider's priced offer, normalized across providers.
// TotalPrice is trusted as returned by the provider and never recomputed.
type Quote struct {
	ProviderID     int
	ProviderName   string
	ServiceType    string
	BasePrice      float64
	RuralSurcharge float64
	GST            float64
	TotalPrice     float64
	EstimatedDays  int
	Raw            json.RawMessage // provider response as returned, for audit
}

// ShipmentRequest is the request to book a shipment with a provider.
type ShipmentRequest struct {
	Reference         string
	Sender            Address
	Recipient         Address
	Items             []ParcelItem
	SignatureRequired bool
	ServiceType       string
}

// ShipmentResult is the normalized outcome of a successful booking.
type ShipmentResult struct {
	ProviderID        int
	ProviderName      string
	ConsignmentNumber string
	TrackingNumber    string
	TrackingURL       string
	LabelURL          string
	Raw               json.RawMessage
}
