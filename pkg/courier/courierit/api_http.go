package courierit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPAPIClient is the production implementation of APIClient using HTTP.
// All calls authenticate with the gateway's static credential pair via a
// basic-auth header.
type HTTPAPIClient struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPAPIClient{
		baseURL:  cfg.BaseURL,
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Calculate fetches one provider's price via POST /api/calculate.
func (c *HTTPAPIClient) Calculate(ctx context.Context, req *CalculateRequest) (*CalculateResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/calculate", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result CalculateResponse
	if err := decodeBody(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode calculate response: %w", err)
	}
	return &result, nil
}

// SendParcel creates a shipment via POST /api/sendparcel.
func (c *HTTPAPIClient) SendParcel(ctx context.Context, req *SendParcelRequest) (*SendParcelResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/sendparcel", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.parseError(resp)
	}

	var result SendParcelResponse
	if err := decodeBody(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode sendparcel response: %w", err)
	}
	return &result, nil
}

// DownloadLabel retrieves the label PDF via GET /api/downloadlabel.
func (c *HTTPAPIClient) DownloadLabel(ctx context.Context, consignmentNumber string) ([]byte, error) {
	path := "/api/downloadlabel?consignment=" + url.QueryEscape(consignmentNumber)

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read label body: %w", err)
	}
	return data, nil
}

// CheckRural checks a postcode via POST /api/checkrural.
func (c *HTTPAPIClient) CheckRural(ctx context.Context, postcode string) (*CheckRuralResponse, error) {
	body := struct {
		Postcode string `json:"postcode"`
	}{Postcode: postcode}

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/checkrural", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result CheckRuralResponse
	if err := decodeBody(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode checkrural response: %w", err)
	}
	return &result, nil
}

// doRequest performs an HTTP request with proper headers and authentication.
func (c *HTTPAPIClient) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	reqURL := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "warelink-shipbridge/1.0")

	return c.httpClient.Do(req)
}

// decodeBody decodes a JSON body, tolerating an empty response.
func decodeBody(r io.Reader, v interface{}) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// parseError extracts error information from an HTTP response.
func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		return &apiErr
	}

	var simpleErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &simpleErr); err == nil {
		msg := simpleErr.Error
		if msg == "" {
			msg = simpleErr.Message
		}
		if msg != "" {
			return &APIError{
				Code:    fmt.Sprintf("HTTP_%d", resp.StatusCode),
				Message: msg,
			}
		}
	}

	return &APIError{
		Code:    fmt.Sprintf("HTTP_%d", resp.StatusCode),
		Message: string(body),
	}
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
