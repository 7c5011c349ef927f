package engine

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/warelink/shipbridge/internal/store"
	"github.com/warelink/shipbridge/pkg/courier"
	"go.uber.org/zap"
)

// QuoteOutcome is the result of a successful quote aggregation.
type QuoteOutcome struct {
	IsRural    bool
	Quotations []*store.Quotation
}

// RequestQuotes solicits quotes from every configured provider in parallel,
// replaces the order's quotation batch with the successes and advances the
// order to QUOTED. Individual provider failures are absorbed; only a run
// where no provider quotes is reported as ErrNoQuotes, with the order
// status left unchanged and an error log entry recorded.
func (e *Engine) RequestQuotes(ctx context.Context, orderID, pickupPostcode string) (*QuoteOutcome, error) {
	start := e.now()

	order, err := e.store.GetOrder(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		e.recordOperation("request_quotes", "not_found", start)
		return nil, ErrOrderNotFound
	}
	if err != nil {
		e.recordOperation("request_quotes", "error", start)
		return nil, err
	}

	if order.Status == store.StatusLabelCreated {
		e.recordOperation("request_quotes", "conflict", start)
		return nil, ErrOrderShipped
	}
	if order.DeliveryPostcode == "" {
		e.recordOperation("request_quotes", "invalid", start)
		return nil, ErrMissingPostcode
	}
	if len(order.Items) == 0 {
		e.recordOperation("request_quotes", "invalid", start)
		return nil, ErrNoItems
	}
	if validation := validateOrder(order); !validation.IsValid {
		e.recordOperation("request_quotes", "invalid", start)
		return nil, &ValidationError{MissingFields: validation.MissingFields}
	}

	// The rural flag is (re-)determined and persisted regardless of how
	// the quote run turns out. A failed lookup defaults to not-rural.
	isRural := e.checkRural(ctx, order)
	if err := e.store.SetOrderRural(ctx, order.ID, isRural); err != nil {
		e.recordOperation("request_quotes", "error", start)
		return nil, err
	}

	if pickupPostcode == "" {
		pickupPostcode = e.opts.PickupPostcode
	}

	req := &courier.QuoteRequest{
		PickupPostcode:   pickupPostcode,
		DeliveryPostcode: order.DeliveryPostcode,
		Items:            itemsToParcels(order.Items),
		IsRural:          isRural,
	}

	quotes, provErrs := e.registry.GetAllQuotes(ctx, req, e.opts.QuoteTimeout)
	for _, provErr := range provErrs {
		e.logger.Warn("Provider quote failed",
			zap.String("order_id", order.ID),
			zap.Error(provErr),
		)
		e.recordProviderError(providerFromError(provErr), "quote")
	}
	if e.metrics != nil {
		e.metrics.QuotesReturned.Observe(float64(len(quotes)))
	}

	if len(quotes) == 0 {
		e.logQuoteFailure(ctx, order.ID, provErrs)
		e.recordOperation("request_quotes", "no_quotes", start)
		return nil, ErrNoQuotes
	}

	batch := make([]*store.Quotation, 0, len(quotes))
	expiresAt := e.now().Add(e.opts.QuoteExpiry)
	for _, q := range quotes {
		batch = append(batch, &store.Quotation{
			ProviderID:     q.ProviderID,
			ProviderName:   q.ProviderName,
			ServiceType:    q.ServiceType,
			BasePrice:      q.BasePrice,
			RuralSurcharge: q.RuralSurcharge,
			GST:            q.GST,
			TotalPrice:     q.TotalPrice,
			ResponseJSON:   q.Raw,
			ExpiresAt:      expiresAt,
		})
	}

	saved, err := e.store.ReplaceQuotations(ctx, order.ID, batch)
	if err != nil {
		e.recordOperation("request_quotes", "error", start)
		return nil, err
	}

	e.logger.Info("Quotes stored",
		zap.String("order_id", order.ID),
		zap.Int("quote_count", len(saved)),
		zap.Bool("is_rural", isRural),
	)
	e.recordOperation("request_quotes", "ok", start)
	return &QuoteOutcome{IsRural: isRural, Quotations: saved}, nil
}

// checkRural looks up the delivery postcode's rural status. Lookup failure
// defaults to false.
func (e *Engine) checkRural(ctx context.Context, order *store.Order) bool {
	if e.rural == nil {
		return order.IsRural
	}
	isRural, err := e.rural.CheckRural(ctx, order.DeliveryPostcode)
	if err != nil {
		e.logger.Warn("Rural lookup failed, assuming not rural",
			zap.String("order_id", order.ID),
			zap.String("postcode", order.DeliveryPostcode),
			zap.Error(err),
		)
		return false
	}
	return isRural
}

// logQuoteFailure durably records an aggregate quote failure.
func (e *Engine) logQuoteFailure(ctx context.Context, orderID string, provErrs []error) {
	messages := make([]string, 0, len(provErrs))
	for _, err := range provErrs {
		messages = append(messages, err.Error())
	}
	details, _ := json.Marshal(map[string]interface{}{"providerErrors": messages})

	if _, err := e.store.AppendErrorLog(ctx, &store.ErrorLogEntry{
		OrderID:     orderID,
		Action:      "quote",
		Message:     "No quotes available from any provider",
		DetailsJSON: details,
	}); err != nil {
		e.logger.Error("Failed to record quote error log",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
}

// itemsToParcels maps stored items to courier parcels. A missing weight is
// quoted as 1kg, matching the gateway's minimum sensible default.
func itemsToParcels(items []store.Item) []courier.ParcelItem {
	parcels := make([]courier.ParcelItem, 0, len(items))
	for _, item := range items {
		weight := item.Weight
		if weight <= 0 {
			weight = 1
		}
		parcels = append(parcels, courier.ParcelItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			Weight:      weight,
			Length:      item.Length,
			Width:       item.Width,
			Height:      item.Height,
		})
	}
	return parcels
}

// providerFromError extracts the provider prefix the registry adds to
// failed quote errors.
func providerFromError(err error) string {
	var provErr *courier.ProviderError
	if errors.As(err, &provErr) {
		return provErr.Provider
	}
	msg := err.Error()
	for i := 0; i < len(msg); i++ {
		if msg[i] == ':' {
			return msg[:i]
		}
	}
	return "unknown"
}
