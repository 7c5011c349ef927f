package store

import (
	"encoding/json"
	"time"
)

// OrderStatus is an order's position in the fulfillment lifecycle.
type OrderStatus string

// The five lifecycle states. Status is mutated only by the engine.
const (
	StatusPendingData  OrderStatus = "PENDING_DATA"
	StatusReadyToQuote OrderStatus = "READY_TO_QUOTE"
	StatusQuoted       OrderStatus = "QUOTED"
	StatusLabelCreated OrderStatus = "LABEL_CREATED"
	StatusError        OrderStatus = "ERROR"
)

// Valid reports whether s is one of the defined states.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPendingData, StatusReadyToQuote, StatusQuoted, StatusLabelCreated, StatusError:
		return true
	}
	return false
}

// Item is one ordered line item, stored as JSON on the order record.
type Item struct {
	Description string  `json:"description,omitempty"`
	Quantity    int     `json:"quantity,omitempty"`
	Weight      float64 `json:"weight,omitempty"`
	Length      float64 `json:"length,omitempty"`
	Width       float64 `json:"width,omitempty"`
	Height      float64 `json:"height,omitempty"`
}

// Order is one warehouse fulfillment request.
type Order struct {
	ID               string
	SourceID         string
	OrderNumber      string
	CustomerName     string
	CustomerEmail    string
	CustomerPhone    string
	DeliveryStreet   string
	DeliverySuburb   string
	DeliveryCity     string
	DeliveryPostcode string
	DeliveryCountry  string
	IsRural          bool
	Items            []Item
	SourceJSON       json.RawMessage
	Status           OrderStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
	SyncedAt         *time.Time
}

// Quotation is one provider's priced offer for one order.
type Quotation struct {
	ID             string
	OrderID        string
	ProviderID     int
	ProviderName   string
	ServiceType    string
	BasePrice      float64
	RuralSurcharge float64
	GST            float64
	TotalPrice     float64
	IsSelected     bool
	ResponseJSON   json.RawMessage
	ExpiresAt      time.Time
	CreatedAt      time.Time
}

// Expired reports whether the quotation can no longer be used to ship.
func (q *Quotation) Expired(now time.Time) bool {
	return now.After(q.ExpiresAt)
}

// Shipment is the booked courier job for one order.
type Shipment struct {
	ID                string
	OrderID           string
	ProviderID        int
	ProviderName      string
	TrackingNumber    string
	TrackingURL       string
	ConsignmentNumber string
	LabelURL          string
	LabelData         []byte
	LabelFileName     string
	LabelDownloaded   bool
	FinalPrice        float64
	ResponseJSON      json.RawMessage
	CreatedAt         time.Time
}

// ErrorLogEntry is a diagnostic record of a failed operation on an order.
type ErrorLogEntry struct {
	ID          string
	OrderID     string
	Action      string
	Message     string
	DetailsJSON json.RawMessage
	CreatedAt   time.Time
}
