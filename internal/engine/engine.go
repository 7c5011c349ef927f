// Package engine implements the order fulfillment lifecycle: syncing orders
// from the warehouse source, validating them for shippability, aggregating
// courier quotes, issuing shipments and serving labels. It is the only
// component the external UI/API layer talks to.
package engine

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/warelink/shipbridge/internal/store"
	"github.com/warelink/shipbridge/internal/telemetry"
	"github.com/warelink/shipbridge/internal/warehouse"
	"github.com/warelink/shipbridge/pkg/courier"
)

// recentErrorLimit caps the error history attached to order detail
// responses. Full history stays in storage.
const recentErrorLimit = 5

// OrderSource pulls fulfillment orders from the warehouse backend.
type OrderSource interface {
	ListOrders(ctx context.Context, params warehouse.ListOrdersParams) (*warehouse.OrderPage, error)
	GetOrder(ctx context.Context, orderID string) (*warehouse.SourceOrder, error)
}

// Options tunes engine behavior.
type Options struct {
	// PickupPostcode is the warehouse postcode used when a quote request
	// does not name one.
	PickupPostcode string

	// QuoteExpiry is how long a stored quotation stays usable.
	QuoteExpiry time.Duration

	// QuoteTimeout bounds each provider's quote call.
	QuoteTimeout time.Duration

	// SignatureRequired is the default signature flag on shipments.
	SignatureRequired bool
}

func (o Options) withDefaults() Options {
	if o.PickupPostcode == "" {
		o.PickupPostcode = "2013"
	}
	if o.QuoteExpiry == 0 {
		o.QuoteExpiry = 24 * time.Hour
	}
	if o.QuoteTimeout == 0 {
		o.QuoteTimeout = 15 * time.Second
	}
	return o
}

// Engine is the order lifecycle controller.
type Engine struct {
	store    *store.Store
	source   OrderSource // nil when the warehouse source is not configured
	registry *courier.Registry
	rural    courier.RuralChecker
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
	opts     Options
	now      func() time.Time
}

// New creates an engine. source may be nil, in which case order listings are
// served from local storage only. rural may be nil to skip rural lookups.
func New(st *store.Store, source OrderSource, registry *courier.Registry,
	rural courier.RuralChecker, logger *otelzap.Logger, metrics *telemetry.Metrics,
	opts Options) *Engine {
	return &Engine{
		store:    st,
		source:   source,
		registry: registry,
		rural:    rural,
		logger:   logger,
		metrics:  metrics,
		opts:     opts.withDefaults(),
		now:      time.Now,
	}
}

// OrderDetail is an order with its related records and shippability
// diagnostics.
type OrderDetail struct {
	Order            *store.Order
	Quotations       []*store.Quotation
	Shipment         *store.Shipment
	ErrorLogs        []*store.ErrorLogEntry
	ValidationErrors []string
}

func (e *Engine) recordOperation(operation, outcome string, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordOperation(operation, outcome, time.Since(start).Seconds())
}

func (e *Engine) recordProviderError(provider, errorType string) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordProviderError(provider, errorType)
}
