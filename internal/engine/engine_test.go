package engine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/warelink/shipbridge/internal/engine"
	"github.com/warelink/shipbridge/internal/store"
	"github.com/warelink/shipbridge/internal/warehouse"
	"github.com/warelink/shipbridge/pkg/courier"
	"github.com/warelink/shipbridge/pkg/courier/courierit"
	"github.com/warelink/shipbridge/pkg/courier/fastway"
	"github.com/warelink/shipbridge/pkg/courier/mock"
	"github.com/warelink/shipbridge/pkg/courier/nzpost"
	"go.uber.org/zap"
)

// fakeSource is an in-memory warehouse backend.
type fakeSource struct {
	orders map[string]*warehouse.SourceOrder
}

func (f *fakeSource) ListOrders(ctx context.Context, params warehouse.ListOrdersParams) (*warehouse.OrderPage, error) {
	page := &warehouse.OrderPage{Page: params.Page, PerPage: params.PerPage}
	for _, o := range f.orders {
		page.Orders = append(page.Orders, *o)
	}
	page.Total = len(page.Orders)
	return page, nil
}

func (f *fakeSource) GetOrder(ctx context.Context, orderID string) (*warehouse.SourceOrder, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s not found", orderID)
	}
	return o, nil
}

type testEnv struct {
	store    *store.Store
	registry *courier.Registry
	gateway  *courierit.MockAPIClient
	engine   *engine.Engine
}

// newTestEnv builds an engine over an in-memory store with the Fastway and
// NZ Post clients sharing one mock gateway.
func newTestEnv(t *testing.T, opts engine.Options, source engine.OrderSource) *testEnv {
	t.Helper()

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := otelzap.New(zap.NewNop())
	gateway := courierit.NewMockAPIClient()

	registry := courier.NewRegistry()
	registry.Register(fastway.NewWithAPIClient(fastway.Config{DefaultServiceType: "Parcel"}, gateway, logger, nil))
	registry.Register(nzpost.NewWithAPIClient(nzpost.Config{DefaultServiceType: "Parcel"}, gateway, logger, nil))

	eng := engine.New(st, source, registry, courierit.NewRuralService(gateway), logger, nil, opts)

	return &testEnv{
		store:    st,
		registry: registry,
		gateway:  gateway,
		engine:   eng,
	}
}

func seedShippableOrder(t *testing.T, st *store.Store, sourceID string) *store.Order {
	t.Helper()
	order, err := st.UpsertOrder(context.Background(), &store.Order{
		SourceID:         sourceID,
		OrderNumber:      "ORD-" + sourceID,
		CustomerName:     "Jess Example",
		CustomerEmail:    "jess@example.co.nz",
		DeliveryStreet:   "12 Harbour St",
		DeliverySuburb:   "Te Aro",
		DeliveryCity:     "Wellington",
		DeliveryPostcode: "6011",
		DeliveryCountry:  "NZ",
		Items:            []store.Item{{Description: "Widget", Quantity: 1, Weight: 2.5}},
		Status:           store.StatusReadyToQuote,
	})
	require.NoError(t, err)
	return order
}

func TestRequestQuotes_SortedAndStored(t *testing.T) {
	env := newTestEnv(t, engine.Options{}, nil)
	ctx := context.Background()

	order := seedShippableOrder(t, env.store, "src-1")

	outcome, err := env.engine.RequestQuotes(ctx, order.ID, "")
	require.NoError(t, err)

	// Mock gateway prices: Fastway 12.50, NZ Post 15.00
	require.Len(t, outcome.Quotations, 2)
	assert.Equal(t, "Fastway", outcome.Quotations[0].ProviderName)
	assert.Equal(t, 12.50, outcome.Quotations[0].TotalPrice)
	assert.Equal(t, "NZ Post", outcome.Quotations[1].ProviderName)
	assert.Equal(t, 15.00, outcome.Quotations[1].TotalPrice)
	assert.False(t, outcome.IsRural)

	got, err := env.store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusQuoted, got.Status)

	for _, q := range outcome.Quotations {
		assert.WithinDuration(t, time.Now().Add(24*time.Hour), q.ExpiresAt, time.Minute,
			"quotations expire 24h out")
	}
}

func TestRequestQuotes_ReplacesNotAppends(t *testing.T) {
	env := newTestEnv(t, engine.Options{}, nil)
	ctx := context.Background()

	order := seedShippableOrder(t, env.store, "src-1")

	_, err := env.engine.RequestQuotes(ctx, order.ID, "")
	require.NoError(t, err)
	outcome, err := env.engine.RequestQuotes(ctx, order.ID, "")
	require.NoError(t, err)

	assert.Len(t, outcome.Quotations, 2)

	stored, err := env.store.GetQuotations(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2, "a re-quote replaces the batch")
}

func TestRequestQuotes_RuralPersisted(t *testing.T) {
	env := newTestEnv(t, engine.Options{}, nil)
	env.gateway.RuralPostcodes = map[string]bool{"6011": true}
	ctx := context.Background()

	order := seedShippableOrder(t, env.store, "src-1")

	outcome, err := env.engine.RequestQuotes(ctx, order.ID, "")
	require.NoError(t, err)
	assert.True(t, outcome.IsRural)

	got, err := env.store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRural)
}

func TestRequestQuotes_RuralLookupFailureDefaultsFalse(t *testing.T) {
	env := newTestEnv(t, engine.Options{}, nil)
	env.gateway.OnCheckRural = func(ctx context.Context, postcode string) (*courierit.CheckRuralResponse, error) {
		return nil, &courierit.APIError{Code: "TIMEOUT", Message: "lookup timed out"}
	}
	ctx := context.Background()

	order := seedShippableOrder(t, env.store, "src-1")

	outcome, err := env.engine.RequestQuotes(ctx, order.ID, "")
	require.NoError(t, err, "a failed rural lookup must not block quoting")
	assert.False(t, outcome.IsRural)
}

func TestRequestQuotes_IncompleteOrder(t *testing.T) {
	env := newTestEnv(t, engine.Options{}, nil)
	ctx := context.Background()

	order, err := env.store.UpsertOrder(ctx, &store.Order{
		SourceID:         "src-1",
		DeliveryStreet:   "12 Harbour St",
		DeliveryCity:     "Wellington",
		DeliveryPostcode: "6011",
		Items:            []store.Item{{Weight: 2.5}},
		Status:           store.StatusPendingData,
	})
	require.NoError(t, err)

	_, err = env.engine.RequestQuotes(ctx, order.ID, "")

	var validationErr *engine.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, []string{"Delivery suburb"}, validationErr.MissingFields)
}

func TestRequestQuotes_AllProvidersFail(t *testing.T) {
	env := newTestEnv(t, engine.Options{}, nil)
	env.gateway.OnCalculate = func(ctx context.Context, req *courierit.CalculateRequest) (*courierit.CalculateResponse, error) {
		return nil, &courierit.APIError{Code: "DOWN", Message: "gateway down"}
	}
	ctx := context.Background()

	order := seedShippableOrder(t, env.store, "src-1")

	_, err := env.engine.RequestQuotes(ctx, order.ID, "")
	assert.True(t, errors.Is(err, engine.ErrNoQuotes))

	got, err := env.store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusReadyToQuote, got.Status, "status unchanged on a failed run")

	logs, err := env.store.RecentErrorLogs(ctx, order.ID, 5)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "quote", logs[0].Action)
	assert.Equal(t, "No quotes available from any provider", logs[0].Message)
}

func TestRequestQuotes_PartialFailureStillQuotes(t *testing.T) {
	env := newTestEnv(t, engine.Options{}, nil)
	env.gateway.OnCalculate = func(ctx context.Context, req *courierit.CalculateRequest) (*courierit.CalculateResponse, error) {
		if req.ProviderID == courierit.ProviderNZPost {
			return nil, &courierit.APIError{Code: "DOWN", Message: "backend down"}
		}
		ok := true
		return &courierit.CalculateResponse{Success: &ok, BasePrice: 10.87, GST: 1.63, TotalPrice: 12.50}, nil
	}
	ctx := context.Background()

	order := seedShippableOrder(t, env.store, "src-1")

	outcome, err := env.engine.RequestQuotes(ctx, order.ID, "")
	require.NoError(t, err)
	require.Len(t, outcome.Quotations, 1)
	assert.Equal(t, "Fastway", outcome.Quotations[0].ProviderName)
}

func TestRequestQuotes_OrderNotFound(t *testing.T) {
	env := newTestEnv(t, engine.Options{}, nil)

	_, err := env.engine.RequestQuotes(context.Background(), "missing", "")
	assert.True(t, errors.Is(err, engine.ErrOrderNotFound))
}

func TestRequestQuotes_AlreadyShipped(t *testing.T) {
	env := newTestEnv(t, engine.Options{}, nil)
	ctx := context.Background()

	order := seedShippableOrder(t, env.store, "src-1")
	require.NoError(t, env.store.SetOrderStatus(ctx, order.ID, store.StatusLabelCreated))

	_, err := env.engine.RequestQuotes(ctx, order.ID, "")
	assert.True(t, errors.Is(err, engine.ErrOrderShipped))
}

func TestSelectQuoteAndShip_Success(t *testing.T) {
	env := newTestEnv(t, engine.Options{}, nil)
	ctx := context.Background()

	order := seedShippableOrder(t, env.store, "src-1")
	outcome, err := env.engine.RequestQuotes(ctx, order.ID, "")
	require.NoError(t, err)

	chosen := outcome.Quotations[0]
	shipment, err := env.engine.SelectQuoteAndShip(ctx, order.ID, chosen.ID, courier.Address{
		Name:     "Warehouse",
		Postcode: "2013",
	})
	require.NoError(t, err)

	assert.Equal(t, chosen.TotalPrice, shipment.FinalPrice, "final price taken from the quotation verbatim")
	assert.Equal(t, "CON-1-ORD-src-1", shipment.ConsignmentNumber)
	assert.True(t, shipment.LabelDownloaded)
	assert.Equal(t, "label-CON-1-ORD-src-1.pdf", shipment.LabelFileName)

	got, err := env.store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusLabelCreated, got.Status)

	quotation, err := env.store.GetQuotation(ctx, chosen.ID)
	require.NoError(t, err)
	assert.True(t, quotation.IsSelected)
}

func TestSelectQuoteAndShip_Idempotent(t *testing.T) {
	env := newTestEnv(t, engine.Options{}, nil)
	ctx := context.Background()

	order := seedShippableOrder(t, env.store, "src-1")
	outcome, err := env.engine.RequestQuotes(ctx, order.ID, "")
	require.NoError(t, err)

	first, err := env.engine.SelectQuoteAndShip(ctx, order.ID, outcome.Quotations[0].ID, courier.Address{})
	require.NoError(t, err)

	_, err = env.engine.SelectQuoteAndShip(ctx, order.ID, outcome.Quotations[0].ID, courier.Address{})
	var conflict *engine.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.ID, conflict.Shipment.ID, "retry returns the existing shipment")

	assert.Equal(t, int64(1), env.gateway.SendParcelCalls.Load(), "no second booking")
}

func TestSelectQuoteAndShip_ExpiredQuotation(t *testing.T) {
	// Negative expiry makes every stored quotation already expired
	env := newTestEnv(t, engine.Options{QuoteExpiry: -time.Hour}, nil)
	ctx := context.Background()

	order := seedShippableOrder(t, env.store, "src-1")
	outcome, err := env.engine.RequestQuotes(ctx, order.ID, "")
	require.NoError(t, err)

	_, err = env.engine.SelectQuoteAndShip(ctx, order.ID, outcome.Quotations[0].ID, courier.Address{})
	assert.True(t, errors.Is(err, engine.ErrQuotationExpired))

	_, err = env.store.GetShipmentByOrderID(ctx, order.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound), "no shipment on an expired quotation")

	got, err := env.store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusQuoted, got.Status)
}

func TestSelectQuoteAndShip_UnknownQuotation(t *testing.T) {
	env := newTestEnv(t, engine.Options{}, nil)
	ctx := context.Background()

	order := seedShippableOrder(t, env.store, "src-1")
	_, err := env.engine.RequestQuotes(ctx, order.ID, "")
	require.NoError(t, err)

	_, err = env.engine.SelectQuoteAndShip(ctx, order.ID, "not-a-quotation", courier.Address{})
	assert.True(t, errors.Is(err, engine.ErrQuotationNotFound))
}

func TestSelectQuoteAndShip_ProviderFailure(t *testing.T) {
	env := newTestEnv(t, engine.Options{}, nil)
	env.gateway.OnSendParcel = func(ctx context.Context, req *courierit.SendParcelRequest) (*courierit.SendParcelResponse, error) {
		no := false
		return &courierit.SendParcelResponse{Success: &no, Error: "Address rejected"}, nil
	}
	ctx := context.Background()

	order := seedShippableOrder(t, env.store, "src-1")
	outcome, err := env.engine.RequestQuotes(ctx, order.ID, "")
	require.NoError(t, err)

	_, err = env.engine.SelectQuoteAndShip(ctx, order.ID, outcome.Quotations[0].ID, courier.Address{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, courier.ErrShipmentRejected))

	got, err := env.store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusError, got.Status)

	logs, err := env.store.RecentErrorLogs(ctx, order.ID, 5)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "ship", logs[0].Action)
}

func TestSelectQuoteAndShip_LabelFailureIsNonFatal(t *testing.T) {
	env := newTestEnv(t, engine.Options{}, nil)
	env.gateway.OnDownloadLabel = func(ctx context.Context, consignmentNumber string) ([]byte, error) {
		return nil, &courierit.APIError{Code: "NOT_READY", Message: "label not generated yet"}
	}
	ctx := context.Background()

	order := seedShippableOrder(t, env.store, "src-1")
	outcome, err := env.engine.RequestQuotes(ctx, order.ID, "")
	require.NoError(t, err)

	shipment, err := env.engine.SelectQuoteAndShip(ctx, order.ID, outcome.Quotations[0].ID, courier.Address{})
	require.NoError(t, err, "label failure must not fail the shipment")
	assert.False(t, shipment.LabelDownloaded)

	got, err := env.store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusLabelCreated, got.Status)

	// Label becomes available later; GetLabel fetches and caches it
	env.gateway.OnDownloadLabel = nil
	label, err := env.engine.GetLabel(ctx, shipment.ID)
	require.NoError(t, err)
	assert.Contains(t, string(label.Data), "%PDF")

	cached, err := env.store.GetShipment(ctx, shipment.ID)
	require.NoError(t, err)
	assert.True(t, cached.LabelDownloaded)
}

func TestGetLabel_ServesCacheWithoutNetwork(t *testing.T) {
	env := newTestEnv(t, engine.Options{}, nil)
	ctx := context.Background()

	order := seedShippableOrder(t, env.store, "src-1")
	outcome, err := env.engine.RequestQuotes(ctx, order.ID, "")
	require.NoError(t, err)
	shipment, err := env.engine.SelectQuoteAndShip(ctx, order.ID, outcome.Quotations[0].ID, courier.Address{})
	require.NoError(t, err)

	downloadsAfterShip := env.gateway.DownloadLabelCalls.Load()

	label, err := env.engine.GetLabel(ctx, shipment.ID)
	require.NoError(t, err)
	assert.Equal(t, "label-CON-1-ORD-src-1.pdf", label.FileName)
	assert.Equal(t, "application/pdf", label.ContentType)

	assert.Equal(t, downloadsAfterShip, env.gateway.DownloadLabelCalls.Load(),
		"cached label must not hit the gateway")
}

func TestGetLabel_ShipmentNotFound(t *testing.T) {
	env := newTestEnv(t, engine.Options{}, nil)

	_, err := env.engine.GetLabel(context.Background(), "missing")
	assert.True(t, errors.Is(err, engine.ErrShipmentNotFound))
}

func TestSyncAndGetOrder_FetchesFromSource(t *testing.T) {
	source := &fakeSource{orders: map[string]*warehouse.SourceOrder{
		"wh-1": {
			ID:          "wh-1",
			OrderNumber: "ORD-1001",
			Customer:    &warehouse.Customer{Name: "Jess Example"},
			DeliveryAddress: &warehouse.DeliveryAddress{
				Street:   "12 Harbour St",
				Suburb:   "Te Aro",
				City:     "Wellington",
				Postcode: "6011",
			},
			Items: []warehouse.OrderItem{{Description: "Widget", Quantity: 1, Weight: 2.5}},
		},
	}}
	env := newTestEnv(t, engine.Options{}, source)

	detail, err := env.engine.SyncAndGetOrder(context.Background(), "wh-1")
	require.NoError(t, err)

	assert.Equal(t, "wh-1", detail.Order.SourceID)
	assert.Equal(t, "ORD-1001", detail.Order.OrderNumber)
	assert.Equal(t, store.StatusReadyToQuote, detail.Order.Status)
	assert.Empty(t, detail.ValidationErrors)
	assert.Nil(t, detail.Shipment)
}

func TestSyncAndGetOrder_IncompleteSourceOrder(t *testing.T) {
	source := &fakeSource{orders: map[string]*warehouse.SourceOrder{
		"wh-2": {
			ID:        "wh-2",
			Reference: "REF-77",
			DeliveryAddress: &warehouse.DeliveryAddress{
				Street:   "12 Harbour St",
				City:     "Wellington",
				Postcode: "6011",
			},
			Items: []warehouse.OrderItem{{Weight: 2.5}},
		},
	}}
	env := newTestEnv(t, engine.Options{}, source)

	detail, err := env.engine.SyncAndGetOrder(context.Background(), "wh-2")
	require.NoError(t, err)

	assert.Equal(t, "REF-77", detail.Order.OrderNumber, "reference is the fallback order number")
	assert.Equal(t, "Unknown", detail.Order.CustomerName)
	assert.Equal(t, store.StatusPendingData, detail.Order.Status)
	assert.Equal(t, []string{"Delivery suburb"}, detail.ValidationErrors)
}

func TestSyncAndGetOrder_NotFoundAnywhere(t *testing.T) {
	env := newTestEnv(t, engine.Options{}, &fakeSource{orders: map[string]*warehouse.SourceOrder{}})

	_, err := env.engine.SyncAndGetOrder(context.Background(), "missing")
	assert.True(t, errors.Is(err, engine.ErrOrderNotFound))
}

func TestSyncAndGetOrder_LocalOnlyWithoutSource(t *testing.T) {
	env := newTestEnv(t, engine.Options{}, nil)
	ctx := context.Background()

	order := seedShippableOrder(t, env.store, "src-1")

	detail, err := env.engine.SyncAndGetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, detail.Order.ID)

	// Source ids resolve too
	detail, err = env.engine.SyncAndGetOrder(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, detail.Order.ID)

	_, err = env.engine.SyncAndGetOrder(ctx, "missing")
	assert.True(t, errors.Is(err, engine.ErrOrderNotFound))
}

func TestListOrders_LocalFilters(t *testing.T) {
	env := newTestEnv(t, engine.Options{}, nil)
	ctx := context.Background()

	seedShippableOrder(t, env.store, "src-1")
	pending, err := env.store.UpsertOrder(ctx, &store.Order{
		SourceID: "src-2",
		Status:   store.StatusPendingData,
	})
	require.NoError(t, err)

	list, err := env.engine.ListOrders(ctx, engine.ListParams{Status: "PENDING_DATA"})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, pending.ID, list.Orders[0].Order.ID)
	assert.Equal(t, 1, list.Pagination.Total)

	// "all" passes every status through
	list, err = env.engine.ListOrders(ctx, engine.ListParams{Status: "all"})
	require.NoError(t, err)
	assert.Len(t, list.Orders, 2)
}

func TestListOrders_SyncsFromSource(t *testing.T) {
	source := &fakeSource{orders: map[string]*warehouse.SourceOrder{
		"wh-1": {
			ID:          "wh-1",
			OrderNumber: "ORD-1001",
			DeliveryAddress: &warehouse.DeliveryAddress{
				Street: "12 Harbour St", Suburb: "Te Aro",
				City: "Wellington", Postcode: "6011",
			},
			Items: []warehouse.OrderItem{{Weight: 1}},
		},
	}}
	env := newTestEnv(t, engine.Options{}, source)
	ctx := context.Background()

	list, err := env.engine.ListOrders(ctx, engine.ListParams{})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)

	// The sync persisted the order locally
	local, err := env.store.GetOrderBySourceID(ctx, "wh-1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1001", local.OrderNumber)
}

func TestEndToEnd_QuoteShipLabel(t *testing.T) {
	env := newTestEnv(t, engine.Options{}, nil)
	ctx := context.Background()

	order := seedShippableOrder(t, env.store, "src-1")

	outcome, err := env.engine.RequestQuotes(ctx, order.ID, "2013")
	require.NoError(t, err)
	require.Len(t, outcome.Quotations, 2)

	shipment, err := env.engine.SelectQuoteAndShip(ctx, order.ID, outcome.Quotations[1].ID, courier.Address{
		Name: "Warehouse", Postcode: "2013",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, shipment.ProviderID, "the chosen quotation's provider books the shipment")
	assert.Equal(t, 15.00, shipment.FinalPrice)

	label, err := env.engine.GetLabel(ctx, shipment.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, label.Data)

	detail, err := env.engine.SyncAndGetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusLabelCreated, detail.Order.Status)
	require.NotNil(t, detail.Shipment)
	assert.Equal(t, shipment.ID, detail.Shipment.ID)
}

// mockCourierRegistry exercises the engine against a provider that is not
// behind the shared gateway.
func TestRequestQuotes_CustomCourier(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := otelzap.New(zap.NewNop())
	registry := courier.NewRegistry()
	registry.Register(mock.New(7, "Test Courier"))

	eng := engine.New(st, nil, registry, nil, logger, nil, engine.Options{})

	order := seedShippableOrder(t, st, "src-1")

	outcome, err := eng.RequestQuotes(context.Background(), order.ID, "")
	require.NoError(t, err)
	require.Len(t, outcome.Quotations, 1)
	assert.Equal(t, 7, outcome.Quotations[0].ProviderID)
}
