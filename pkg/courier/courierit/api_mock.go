package courierit

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// MockAPIClient is a mock implementation of APIClient for testing.
// Call counters allow tests to assert that an operation did or did not
// reach the network layer.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration
	RuralPostcodes  map[string]bool

	OnCalculate     func(ctx context.Context, req *CalculateRequest) (*CalculateResponse, error)
	OnSendParcel    func(ctx context.Context, req *SendParcelRequest) (*SendParcelResponse, error)
	OnDownloadLabel func(ctx context.Context, consignmentNumber string) ([]byte, error)
	OnCheckRural    func(ctx context.Context, postcode string) (*CheckRuralResponse, error)

	CalculateCalls     atomic.Int64
	SendParcelCalls    atomic.Int64
	DownloadLabelCalls atomic.Int64
	CheckRuralCalls    atomic.Int64
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) simulate() error {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}
	if m.SimulateErrors {
		return &APIError{Code: "MOCK_ERROR", Message: "Simulated gateway error"}
	}
	return nil
}

// Calculate returns a deterministic mock price per provider.
func (m *MockAPIClient) Calculate(ctx context.Context, req *CalculateRequest) (*CalculateResponse, error) {
	m.CalculateCalls.Add(1)
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCalculate != nil {
		return m.OnCalculate(ctx, req)
	}

	ok := true
	switch req.ProviderID {
	case ProviderFastway:
		return &CalculateResponse{
			Success:       &ok,
			BasePrice:     10.87,
			GST:           1.63,
			TotalPrice:    12.50,
			ServiceType:   "Parcel",
			EstimatedDays: 2,
		}, nil
	case ProviderNZPost:
		return &CalculateResponse{
			Success:       &ok,
			Price:         13.04,
			GST:           1.96,
			TotalPrice:    15.00,
			ServiceType:   "Parcel",
			EstimatedDays: 3,
		}, nil
	default:
		return nil, &APIError{
			Code:    "UNKNOWN_PROVIDER",
			Message: fmt.Sprintf("Unknown provider id: %d", req.ProviderID),
		}
	}
}

// SendParcel returns a mock booking.
func (m *MockAPIClient) SendParcel(ctx context.Context, req *SendParcelRequest) (*SendParcelResponse, error) {
	m.SendParcelCalls.Add(1)
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnSendParcel != nil {
		return m.OnSendParcel(ctx, req)
	}

	ok := true
	consignment := fmt.Sprintf("CON-%d-%s", req.ProviderID, req.Reference)
	return &SendParcelResponse{
		Success:           &ok,
		ConsignmentNumber: consignment,
		TrackingNumber:    "TRK-" + consignment,
		TrackingURL:       "https://track.courierit.test/" + consignment,
		LabelURL:          "https://labels.courierit.test/" + consignment + ".pdf",
	}, nil
}

// DownloadLabel returns mock PDF bytes.
func (m *MockAPIClient) DownloadLabel(ctx context.Context, consignmentNumber string) ([]byte, error) {
	m.DownloadLabelCalls.Add(1)
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnDownloadLabel != nil {
		return m.OnDownloadLabel(ctx, consignmentNumber)
	}
	return []byte("%PDF-1.4 mock label " + consignmentNumber), nil
}

// CheckRural reports rural status from the RuralPostcodes map.
func (m *MockAPIClient) CheckRural(ctx context.Context, postcode string) (*CheckRuralResponse, error) {
	m.CheckRuralCalls.Add(1)
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCheckRural != nil {
		return m.OnCheckRural(ctx, postcode)
	}
	return &CheckRuralResponse{IsRural: m.RuralPostcodes[postcode]}, nil
}

// Ensure MockAPIClient implements APIClient interface
var _ APIClient = (*MockAPIClient)(nil)
