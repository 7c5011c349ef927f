// Package mock provides a mock courier implementation for testing.
package mock

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/warelink/shipbridge/pkg/courier"
)

// Client is a mock courier for testing. Behavior can be overridden per
// operation; call counters support assertions on network activity.
type Client struct {
	id   int
	name string

	QuoteFunc func(ctx context.Context, req *courier.QuoteRequest) (*courier.Quote, error)
	ShipFunc  func(ctx context.Context, req *courier.ShipmentRequest) (*courier.ShipmentResult, error)
	LabelFunc func(ctx context.Context, consignmentNumber string) ([]byte, error)

	QuoteCalls atomic.Int64
	ShipCalls  atomic.Int64
	LabelCalls atomic.Int64
}

// New creates a new mock courier.
func New(id int, name string) *Client {
	return &Client{id: id, name: name}
}

// ProviderID returns the mock provider id.
func (c *Client) ProviderID() int {
	return c.id
}

// Name returns the mock provider name.
func (c *Client) Name() string {
	return c.name
}

// GetQuote returns a mock quote with a total derived from the provider id,
// unless QuoteFunc overrides it.
func (c *Client) GetQuote(ctx context.Context, req *courier.QuoteRequest) (*courier.Quote, error) {
	c.QuoteCalls.Add(1)
	if c.QuoteFunc != nil {
		return c.QuoteFunc(ctx, req)
	}

	base := 10.0 + float64(c.id)
	gst := base * 0.15
	return &courier.Quote{
		ProviderID:    c.id,
		ProviderName:  c.name,
		ServiceType:   "Parcel",
		BasePrice:     base,
		GST:           gst,
		TotalPrice:    base + gst,
		EstimatedDays: 2,
	}, nil
}

// CreateShipment returns a mock booking, unless ShipFunc overrides it.
func (c *Client) CreateShipment(ctx context.Context, req *courier.ShipmentRequest) (*courier.ShipmentResult, error) {
	c.ShipCalls.Add(1)
	if c.ShipFunc != nil {
		return c.ShipFunc(ctx, req)
	}

	consignment := fmt.Sprintf("MOCK-%d-%s", c.id, req.Reference)
	return &courier.ShipmentResult{
		ProviderID:        c.id,
		ProviderName:      c.name,
		ConsignmentNumber: consignment,
		TrackingNumber:    "TRK-" + consignment,
		TrackingURL:       "https://track.mock/" + consignment,
	}, nil
}

// DownloadLabel returns mock label bytes, unless LabelFunc overrides it.
func (c *Client) DownloadLabel(ctx context.Context, consignmentNumber string) ([]byte, error) {
	c.LabelCalls.Add(1)
	if c.LabelFunc != nil {
		return c.LabelFunc(ctx, consignmentNumber)
	}
	return []byte("%PDF-1.4 mock label " + consignmentNumber), nil
}

// Ensure Client implements courier.Courier interface
var _ courier.Courier = (*Client)(nil)
