// Package courier provides an abstraction layer for courier providers.
package courier

import (
	"context"
)

// Courier defines the interface that all courier providers must implement.
type Courier interface {
	// ProviderID returns the numeric provider identifier used by the
	// upstream gateway (e.g., 1 for Fastway, 2 for NZ Post).
	ProviderID() int

	// Name returns the provider display name (e.g., "Fastway", "NZ Post").
	Name() string

	// GetQuote returns this provider's priced offer for a parcel delivery.
	GetQuote(ctx context.Context, req *QuoteRequest) (*Quote, error)

	// CreateShipment books a shipment with the provider.
	CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResult, error)

	// DownloadLabel retrieves the label PDF for a booked consignment.
	DownloadLabel(ctx context.Context, consignmentNumber string) ([]byte, error)
}

// RuralChecker reports whether a delivery postcode is in a rural zone.
type RuralChecker interface {
	CheckRural(ctx context.Context, postcode string) (bool, error)
}
