package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Client talks to the warehouse-management backend's order API.
type Client struct {
	baseURL      string
	tenantUUID   string
	customerUUID string
	tokens       TokenProvider
	httpClient   *http.Client
	logger       *otelzap.Logger
}

// Config holds warehouse client configuration.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	TenantUUID   string
	CustomerUUID string
	Timeout      time.Duration
}

// New creates a new warehouse client with a client-credentials token source.
func New(cfg Config, logger *otelzap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	tokens := NewTokenSource(TokenSourceConfig{
		TokenURL:     cfg.BaseURL + "/oauth/token",
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	})

	return &Client{
		baseURL:      cfg.BaseURL,
		tenantUUID:   cfg.TenantUUID,
		customerUUID: cfg.CustomerUUID,
		tokens:       tokens,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

// NewWithTokenProvider creates a warehouse client with a custom token
// provider. This is useful for injecting fakes in tests.
func NewWithTokenProvider(cfg Config, tokens TokenProvider, logger *otelzap.Logger) *Client {
	c := New(cfg, logger)
	c.tokens = tokens
	return c
}

// ListOrders fetches one page of orders from the warehouse backend.
func (c *Client) ListOrders(ctx context.Context, params ListOrdersParams) (*OrderPage, error) {
	query := url.Values{}
	if params.Page > 0 {
		query.Set("page", strconv.Itoa(params.Page))
	}
	if params.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(params.PerPage))
	}
	if params.Status != "" {
		query.Set("status", params.Status)
	}
	if params.Search != "" {
		query.Set("search", params.Search)
	}
	if c.customerUUID != "" {
		query.Set("customer_uuid", c.customerUUID)
	}

	endpoint := "/api/v1/orders?" + query.Encode()

	var payload listResponse
	if err := c.doJSON(ctx, http.MethodGet, endpoint, &payload); err != nil {
		return nil, err
	}

	page := &OrderPage{
		Orders:  payload.Data,
		Total:   len(payload.Data),
		Page:    params.Page,
		PerPage: params.PerPage,
	}
	if page.Page == 0 {
		page.Page = 1
	}
	if page.PerPage == 0 {
		page.PerPage = 20
	}
	if payload.Meta != nil {
		if payload.Meta.Total > 0 {
			page.Total = payload.Meta.Total
		}
		if payload.Meta.CurrentPage > 0 {
			page.Page = payload.Meta.CurrentPage
		}
		if payload.Meta.PerPage > 0 {
			page.PerPage = payload.Meta.PerPage
		}
	}

	c.logger.Debug("Fetched warehouse orders",
		zap.Int("count", len(page.Orders)),
		zap.Int("total", page.Total),
		zap.Int("page", page.Page),
	)
	return page, nil
}

// GetOrder fetches a single order by its source id.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*SourceOrder, error) {
	endpoint := "/api/v1/orders/" + url.PathEscape(orderID)

	var payload getResponse
	if err := c.doJSON(ctx, http.MethodGet, endpoint, &payload); err != nil {
		return nil, err
	}
	if payload.Data.ID == "" {
		return nil, fmt.Errorf("warehouse order %s: empty record", orderID)
	}
	return &payload.Data, nil
}

// doJSON performs an authenticated request and decodes a JSON response.
func (c *Client) doJSON(ctx context.Context, method, endpoint string, out interface{}) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("warehouse auth: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	if c.tenantUUID != "" {
		req.Header.Set("X-Tenant-UUID", c.tenantUUID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("warehouse request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("warehouse API error: %d - %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode warehouse response: %w", err)
	}
	return nil
}
