package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/warelink/shipbridge/internal/store"
	"go.uber.org/zap"
)

// Label is a shipping label document ready to serve.
type Label struct {
	FileName    string
	ContentType string
	Data        []byte
}

// GetLabel returns the label for a shipment, fetching it from the courier on
// first access and serving the cached copy afterwards. A successful fetch is
// persisted so the provider is only hit once per shipment.
func (e *Engine) GetLabel(ctx context.Context, shipmentID string) (*Label, error) {
	start := e.now()

	shipment, err := e.store.GetShipment(ctx, shipmentID)
	if errors.Is(err, store.ErrNotFound) {
		e.recordOperation("label", "not_found", start)
		return nil, ErrShipmentNotFound
	}
	if err != nil {
		e.recordOperation("label", "error", start)
		return nil, err
	}

	if len(shipment.LabelData) > 0 {
		e.recordOperation("label", "cached", start)
		return &Label{
			FileName:    shipment.LabelFileName,
			ContentType: "application/pdf",
			Data:        shipment.LabelData,
		}, nil
	}

	if shipment.ConsignmentNumber == "" {
		e.recordOperation("label", "invalid", start)
		return nil, ErrNoConsignment
	}

	provider, err := e.registry.Get(shipment.ProviderID)
	if err != nil {
		e.recordOperation("label", "error", start)
		return nil, fmt.Errorf("shipment provider: %w", err)
	}

	data, err := provider.DownloadLabel(ctx, shipment.ConsignmentNumber)
	if err != nil {
		e.recordProviderError(provider.Name(), "label")
		e.recordOperation("label", "failed", start)
		return nil, fmt.Errorf("download label: %w", err)
	}

	fileName := labelFileNameFor(shipment.ConsignmentNumber)
	if err := e.store.AttachLabel(ctx, shipment.ID, data, fileName); err != nil {
		// Cache write failure is non-fatal; the label is still usable.
		e.logger.Warn("Failed to cache label",
			zap.String("shipment_id", shipment.ID),
			zap.Error(err),
		)
	}

	e.logger.Info("Label downloaded",
		zap.String("shipment_id", shipment.ID),
		zap.String("consignment_number", shipment.ConsignmentNumber),
	)
	e.recordOperation("label", "ok", start)
	return &Label{
		FileName:    fileName,
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}
