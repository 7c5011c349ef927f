package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const shipmentColumns = `id, order_id, provider_id, provider_name,
	tracking_number, tracking_url, consignment_number, label_url, label_data,
	label_file_name, label_downloaded, final_price, response_json, created_at`

// CreateShipment inserts the order's shipment record. The unique constraint
// on order_id enforces the one-shipment-per-order invariant; a second insert
// for the same order returns ErrConflict.
func (s *Store) CreateShipment(ctx context.Context, sh *Shipment) (*Shipment, error) {
	if sh.OrderID == "" {
		return nil, fmt.Errorf("order id is required")
	}

	stored := *sh
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	stored.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shipments (
			id, order_id, provider_id, provider_name, tracking_number,
			tracking_url, consignment_number, label_url, label_data,
			label_file_name, label_downloaded, final_price, response_json,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.OrderID, stored.ProviderID, stored.ProviderName,
		stored.TrackingNumber, stored.TrackingURL, stored.ConsignmentNumber,
		stored.LabelURL, stored.LabelData, stored.LabelFileName,
		boolToInt(stored.LabelDownloaded), stored.FinalPrice,
		string(stored.ResponseJSON), toMillis(stored.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("shipment for order %s: %w", stored.OrderID, ErrConflict)
		}
		return nil, fmt.Errorf("insert shipment: %w", err)
	}
	return &stored, nil
}

// GetShipment loads a shipment by id.
func (s *Store) GetShipment(ctx context.Context, id string) (*Shipment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE id = ?`, id)
	return scanShipment(row)
}

// GetShipmentByOrderID loads an order's shipment, if any.
func (s *Store) GetShipmentByOrderID(ctx context.Context, orderID string) (*Shipment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE order_id = ?`, orderID)
	return scanShipment(row)
}

// AttachLabel stores the downloaded label bytes on the shipment once.
func (s *Store) AttachLabel(ctx context.Context, shipmentID string, data []byte, fileName string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE shipments
		SET label_data = ?, label_file_name = ?, label_downloaded = 1
		WHERE id = ?`,
		data, fileName, shipmentID)
	if err != nil {
		return fmt.Errorf("attach label: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("attach label: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("shipment %s: %w", shipmentID, ErrNotFound)
	}
	return nil
}

func scanShipment(row rowScanner) (*Shipment, error) {
	var (
		sh              Shipment
		labelData       []byte
		labelDownloaded int64
		responseJSON    string
		createdAt       int64
	)
	err := row.Scan(
		&sh.ID, &sh.OrderID, &sh.ProviderID, &sh.ProviderName,
		&sh.TrackingNumber, &sh.TrackingURL, &sh.ConsignmentNumber,
		&sh.LabelURL, &labelData, &sh.LabelFileName, &labelDownloaded,
		&sh.FinalPrice, &responseJSON, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan shipment: %w", err)
	}

	sh.LabelData = labelData
	sh.LabelDownloaded = labelDownloaded != 0
	if responseJSON != "" {
		sh.ResponseJSON = json.RawMessage(responseJSON)
	}
	sh.CreatedAt = fromMillis(createdAt)
	return &sh, nil
}
