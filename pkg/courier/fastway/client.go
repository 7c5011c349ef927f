// Package fastway provides the Fastway courier integration via the
// Courier IT gateway.
package fastway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/warelink/shipbridge/pkg/courier"
	"github.com/warelink/shipbridge/pkg/courier/courierit"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	providerID   = courierit.ProviderFastway
	providerName = "Fastway"
)

// Config holds Fastway configuration.
type Config struct {
	BaseURL            string
	Username           string
	Password           string
	DefaultServiceType string // used when the gateway omits serviceType
	UseMock            bool   // when true, uses a mock API client
}

// Client is the Fastway courier client.
// It implements the courier.Courier interface and delegates gateway calls
// to the underlying APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient courierit.APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new Fastway client.
// If cfg.UseMock is true, it uses a mock API client for testing.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient courierit.APIClient

	if cfg.UseMock {
		apiClient = courierit.NewMockAPIClient()
	} else {
		apiClient = courierit.NewHTTPAPIClient(courierit.HTTPAPIClientConfig{
			BaseURL:  cfg.BaseURL,
			Username: cfg.Username,
			Password: cfg.Password,
			Timeout:  30 * time.Second,
		})
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// NewWithAPIClient creates a new Fastway client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient courierit.APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// ProviderID returns the gateway provider id.
func (c *Client) ProviderID() int {
	return providerID
}

// Name returns the provider display name.
func (c *Client) Name() string {
	return providerName
}

// GetQuote returns Fastway's price for the delivery.
func (c *Client) GetQuote(ctx context.Context, req *courier.QuoteRequest) (*courier.Quote, error) {
	c.logger.Info("Getting Fastway quote",
		zap.String("pickup_postcode", req.PickupPostcode),
		zap.String("delivery_postcode", req.DeliveryPostcode),
		zap.Int("item_count", len(req.Items)),
		zap.Bool("is_rural", req.IsRural),
	)

	apiReq := &courierit.CalculateRequest{
		ProviderID:       providerID,
		PickupPostcode:   req.PickupPostcode,
		DeliveryPostcode: req.DeliveryPostcode,
		Items:            itemsToAPI(req.Items),
		IsRural:          req.IsRural,
	}

	apiResp, err := c.apiClient.Calculate(ctx, apiReq)
	if err != nil {
		c.logger.Error("Fastway gateway error", zap.Error(err))
		return nil, err
	}

	if !apiResp.Usable() {
		return nil, courier.NewProviderError(providerName, "QUOTE_UNAVAILABLE", apiResp.Error).
			WithCause(courier.ErrQuoteUnavailable)
	}

	return calculateResponseToQuote(apiResp, c.config.DefaultServiceType), nil
}

// CreateShipment books a shipment with Fastway.
func (c *Client) CreateShipment(ctx context.Context, req *courier.ShipmentRequest) (*courier.ShipmentResult, error) {
	c.logger.Info("Creating Fastway shipment",
		zap.String("reference", req.Reference),
		zap.String("recipient", req.Recipient.Name),
	)

	serviceType := req.ServiceType
	if serviceType == "" {
		serviceType = c.config.DefaultServiceType
	}

	apiReq := &courierit.SendParcelRequest{
		ProviderID:        providerID,
		Reference:         req.Reference,
		Sender:            addressToLocation(req.Sender),
		Recipient:         addressToLocation(req.Recipient),
		Items:             itemsToAPI(req.Items),
		SignatureRequired: req.SignatureRequired,
		ServiceType:       serviceType,
	}

	apiResp, err := c.apiClient.SendParcel(ctx, apiReq)
	if err != nil {
		c.logger.Error("Fastway gateway error", zap.Error(err))
		return nil, err
	}

	if !apiResp.Booked() {
		return nil, courier.NewProviderError(providerName, "SHIPMENT_REJECTED", apiResp.Error).
			WithCause(courier.ErrShipmentRejected)
	}

	return sendParcelResponseToResult(apiResp), nil
}

// DownloadLabel retrieves the label PDF for a consignment.
func (c *Client) DownloadLabel(ctx context.Context, consignmentNumber string) ([]byte, error) {
	c.logger.Info("Downloading Fastway label",
		zap.String("consignment_number", consignmentNumber),
	)

	data, err := c.apiClient.DownloadLabel(ctx, consignmentNumber)
	if err != nil {
		c.logger.Error("Fastway gateway error", zap.Error(err))
		return nil, err
	}
	return data, nil
}

// ============================================================================
// Conversion helpers
// ============================================================================

func itemsToAPI(items []courier.ParcelItem) []courierit.ParcelItem {
	result := make([]courierit.ParcelItem, len(items))
	for i, item := range items {
		result[i] = courierit.ParcelItem{
			Weight:      item.Weight,
			Length:      item.Length,
			Width:       item.Width,
			Height:      item.Height,
			Description: item.Description,
		}
	}
	return result
}

func addressToLocation(addr courier.Address) courierit.Location {
	country := addr.Country
	if country == "" {
		country = "NZ"
	}
	return courierit.Location{
		Name:     addr.Name,
		Company:  addr.Company,
		Street:   addr.Street,
		Street2:  addr.Street2,
		Suburb:   addr.Suburb,
		City:     addr.City,
		Postcode: addr.Postcode,
		Country:  country,
		Phone:    addr.Phone,
		Email:    addr.Email,
	}
}

func calculateResponseToQuote(resp *courierit.CalculateResponse, defaultServiceType string) *courier.Quote {
	serviceType := resp.ServiceType
	if serviceType == "" {
		serviceType = defaultServiceType
	}

	raw, _ := json.Marshal(resp)

	return &courier.Quote{
		ProviderID:     providerID,
		ProviderName:   providerName,
		ServiceType:    serviceType,
		BasePrice:      resp.Base(),
		RuralSurcharge: resp.RuralSurcharge,
		GST:            resp.GST,
		TotalPrice:     resp.TotalPrice,
		EstimatedDays:  resp.EstimatedDays,
		Raw:            raw,
	}
}

func sendParcelResponseToResult(resp *courierit.SendParcelResponse) *courier.ShipmentResult {
	raw, _ := json.Marshal(resp)

	return &courier.ShipmentResult{
		ProviderID:        providerID,
		ProviderName:      providerName,
		ConsignmentNumber: resp.ConsignmentNumber,
		TrackingNumber:    resp.TrackingNumber,
		TrackingURL:       resp.TrackingURL,
		LabelURL:          resp.LabelURL,
		Raw:               raw,
	}
}

// Ensure Client implements courier.Courier interface
var _ courier.Courier = (*Client)(nil)
