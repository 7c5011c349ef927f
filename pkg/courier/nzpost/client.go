// Package nzpost provides the NZ Post courier integration via the
// Courier IT gateway.
package nzpost

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
	providerID   = courierit.ProviderNZPost
	providerName = "NZ Post"

	// NZ Post consignments are trackable here when the gateway does not
	// hand back a tracking URL of its own.
	trackingBaseURL = "https://www.nzpost.co.nz/tools/tracking/item/"
)

// Config holds NZ Post configuration.
type Config struct {
	BaseURL            string
	Username           string
	Password           string
	DefaultServiceType string
	UseMock            bool
}

// Client is the NZ Post courier client.
type Client struct {
	config    Config
	apiClient courierit.APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new NZ Post client.
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

// NewWithAPIClient creates a new NZ Post client with a custom API client.
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

// GetQuote returns NZ Post's price for the delivery.
// The NZ Post backend reports its base amount in the "price" field rather
// than "basePrice"; both variants are accepted.
func (c *Client) GetQuote(ctx context.Context, req *courier.QuoteRequest) (*courier.Quote, error) {
	c.logger.Info("Getting NZ Post quote",
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
		c.logger.Error("NZ Post gateway error", zap.Error(err))
		return nil, err
	}

	if !apiResp.Usable() {
		return nil, courier.NewProviderError(providerName, "QUOTE_UNAVAILABLE", apiResp.Error).
			WithCause(courier.ErrQuoteUnavailable)
	}

	serviceType := apiResp.ServiceType
	if serviceType == "" {
		serviceType = c.config.DefaultServiceType
	}

	raw, _ := json.Marshal(apiResp)

	return &courier.Quote{
		ProviderID:     providerID,
		ProviderName:   providerName,
		ServiceType:    serviceType,
		BasePrice:      apiResp.Base(),
		RuralSurcharge: apiResp.RuralSurcharge,
		GST:            apiResp.GST,
		TotalPrice:     apiResp.TotalPrice,
		EstimatedDays:  apiResp.EstimatedDays,
		Raw:            raw,
	}, nil
}

// CreateShipment books a shipment with NZ Post.
func (c *Client) CreateShipment(ctx context.Context, req *courier.ShipmentRequest) (*courier.ShipmentResult, error) {
	c.logger.Info("Creating NZ Post shipment",
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
		c.logger.Error("NZ Post gateway error", zap.Error(err))
		return nil, err
	}

	if !apiResp.Booked() {
		return nil, courier.NewProviderError(providerName, "SHIPMENT_REJECTED", apiResp.Error).
			WithCause(courier.ErrShipmentRejected)
	}

	trackingURL := apiResp.TrackingURL
	if trackingURL == "" && apiResp.TrackingNumber != "" {
		trackingURL = trackingBaseURL + apiResp.TrackingNumber
	}

	raw, _ := json.Marshal(apiResp)

	return &courier.ShipmentResult{
		ProviderID:        providerID,
		ProviderName:      providerName,
		ConsignmentNumber: apiResp.ConsignmentNumber,
		TrackingNumber:    apiResp.TrackingNumber,
		TrackingURL:       trackingURL,
		LabelURL:          apiResp.LabelURL,
		Raw:               raw,
	}, nil
}

// DownloadLabel retrieves the label PDF for a consignment.
func (c *Client) DownloadLabel(ctx context.Context, consignmentNumber string) ([]byte, error) {
	c.logger.Info("Downloading NZ Post label",
		zap.String("consignment_number", consignmentNumber),
	)

	data, err := c.apiClient.DownloadLabel(ctx, consignmentNumber)
	if err != nil {
		c.logger.Error("NZ Post gateway error", zap.Error(err))
		return nil, err
	}
	return data, nil
}

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

// Ensure Client implements courier.Courier interface
var _ courier.Courier = (*Client)(nil)
