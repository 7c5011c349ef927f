package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/warelink/shipbridge/internal/store"
	"github.com/warelink/shipbridge/pkg/courier"
	"go.uber.org/zap"
)

// SelectQuoteAndShip books a shipment from a chosen quotation. The
// operation is idempotent: once an order has a shipment, further calls
// return a ConflictError carrying the existing record and nothing is
// re-booked. The shipment's final price is the quotation's total, taken
// verbatim.
func (e *Engine) SelectQuoteAndShip(ctx context.Context, orderID, quotationID string, sender courier.Address) (*store.Shipment, error) {
	start := e.now()

	order, err := e.store.GetOrder(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		e.recordOperation("ship", "not_found", start)
		return nil, ErrOrderNotFound
	}
	if err != nil {
		e.recordOperation("ship", "error", start)
		return nil, err
	}

	// Idempotency guard: an order's shipment, once created, is never
	// overwritten.
	existing, err := e.store.GetShipmentByOrderID(ctx, order.ID)
	if err == nil {
		e.recordOperation("ship", "conflict", start)
		return nil, &ConflictError{Shipment: existing}
	}
	if !errors.Is(err, store.ErrNotFound) {
		e.recordOperation("ship", "error", start)
		return nil, err
	}

	quotation, err := e.findQuotation(ctx, order.ID, quotationID)
	if err != nil {
		e.recordOperation("ship", "invalid", start)
		return nil, err
	}
	if quotation.Expired(e.now()) {
		e.recordOperation("ship", "expired", start)
		return nil, ErrQuotationExpired
	}

	provider, err := e.registry.Get(quotation.ProviderID)
	if err != nil {
		e.recordOperation("ship", "error", start)
		return nil, fmt.Errorf("quotation provider: %w", err)
	}

	req := &courier.ShipmentRequest{
		Reference: order.OrderNumber,
		Sender:    sender,
		Recipient: courier.Address{
			Name:     order.CustomerName,
			Street:   order.DeliveryStreet,
			Suburb:   order.DeliverySuburb,
			City:     order.DeliveryCity,
			Postcode: order.DeliveryPostcode,
			Country:  order.DeliveryCountry,
			Phone:    order.CustomerPhone,
			Email:    order.CustomerEmail,
		},
		Items:             itemsToParcels(order.Items),
		SignatureRequired: e.opts.SignatureRequired,
		ServiceType:       quotation.ServiceType,
	}

	result, err := provider.CreateShipment(ctx, req)
	if err != nil {
		e.failShipment(ctx, order.ID, provider.Name(), err)
		e.recordOperation("ship", "failed", start)
		return nil, fmt.Errorf("create shipment: %w", err)
	}

	// Label download failure is non-fatal; the label can be fetched later.
	var labelData []byte
	var labelFileName string
	if result.ConsignmentNumber != "" {
		labelData, err = provider.DownloadLabel(ctx, result.ConsignmentNumber)
		if err != nil {
			e.logger.Warn("Label download failed, shipment still recorded",
				zap.String("order_id", order.ID),
				zap.String("consignment_number", result.ConsignmentNumber),
				zap.Error(err),
			)
			e.recordProviderError(provider.Name(), "label")
			labelData = nil
		} else {
			labelFileName = labelFileNameFor(result.ConsignmentNumber)
		}
	}

	shipment, err := e.store.CreateShipment(ctx, &store.Shipment{
		OrderID:           order.ID,
		ProviderID:        result.ProviderID,
		ProviderName:      result.ProviderName,
		TrackingNumber:    result.TrackingNumber,
		TrackingURL:       result.TrackingURL,
		ConsignmentNumber: result.ConsignmentNumber,
		LabelURL:          result.LabelURL,
		LabelData:         labelData,
		LabelFileName:     labelFileName,
		LabelDownloaded:   len(labelData) > 0,
		FinalPrice:        quotation.TotalPrice,
		ResponseJSON:      result.Raw,
	})
	if errors.Is(err, store.ErrConflict) {
		// Lost a race with a concurrent ship call for this order.
		if existing, lookupErr := e.store.GetShipmentByOrderID(ctx, order.ID); lookupErr == nil {
			e.recordOperation("ship", "conflict", start)
			return nil, &ConflictError{Shipment: existing}
		}
		e.recordOperation("ship", "error", start)
		return nil, err
	}
	if err != nil {
		e.recordOperation("ship", "error", start)
		return nil, err
	}

	if err := e.store.MarkQuotationSelected(ctx, quotation.ID); err != nil {
		e.logger.Error("Failed to mark quotation selected",
			zap.String("quotation_id", quotation.ID),
			zap.Error(err),
		)
	}
	if err := e.store.SetOrderStatus(ctx, order.ID, store.StatusLabelCreated); err != nil {
		e.recordOperation("ship", "error", start)
		return nil, err
	}

	e.logger.Info("Shipment created",
		zap.String("order_id", order.ID),
		zap.String("provider", result.ProviderName),
		zap.String("consignment_number", result.ConsignmentNumber),
		zap.Bool("label_downloaded", shipment.LabelDownloaded),
	)
	e.recordOperation("ship", "ok", start)
	return shipment, nil
}

// findQuotation resolves the chosen quotation within the order's current
// batch only; ids from superseded batches are not found.
func (e *Engine) findQuotation(ctx context.Context, orderID, quotationID string) (*store.Quotation, error) {
	quotations, err := e.store.GetQuotations(ctx, orderID)
	if err != nil {
		return nil, err
	}
	for _, q := range quotations {
		if q.ID == quotationID {
			return q, nil
		}
	}
	return nil, ErrQuotationNotFound
}

// failShipment records a terminal shipment failure and moves the order to
// ERROR.
func (e *Engine) failShipment(ctx context.Context, orderID, providerName string, cause error) {
	e.recordProviderError(providerName, "ship")

	details, _ := json.Marshal(map[string]string{
		"provider": providerName,
		"error":    cause.Error(),
	})
	if _, err := e.store.AppendErrorLog(ctx, &store.ErrorLogEntry{
		OrderID:     orderID,
		Action:      "ship",
		Message:     cause.Error(),
		DetailsJSON: details,
	}); err != nil {
		e.logger.Error("Failed to record ship error log",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
	if err := e.store.SetOrderStatus(ctx, orderID, store.StatusError); err != nil {
		e.logger.Error("Failed to set order error status",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
}

func labelFileNameFor(consignmentNumber string) string {
	return "label-" + consignmentNumber + ".pdf"
}
