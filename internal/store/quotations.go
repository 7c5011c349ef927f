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

const quotationColumns = `id, order_id, provider_id, provider_name, service_type,
	base_price, rural_surcharge, gst, total_price, is_selected, response_json,
	expires_at, created_at`

// ReplaceQuotations atomically discards every prior quotation for the order,
// stores the new batch, and advances the order to QUOTED. Running this in
// one transaction keeps a concurrent shipment attempt from selecting a
// quotation that is being superseded.
func (s *Store) ReplaceQuotations(ctx context.Context, orderID string, quotations []*Quotation) ([]*Quotation, error) {
	if len(quotations) == 0 {
		return nil, fmt.Errorf("quotation batch is empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin replace quotations: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM quotations WHERE order_id = ?`, orderID); err != nil {
		return nil, fmt.Errorf("clear quotations: %w", err)
	}

	now := time.Now().UTC()
	saved := make([]*Quotation, 0, len(quotations))
	for _, q := range quotations {
		stored := *q
		stored.OrderID = orderID
		stored.CreatedAt = now
		if stored.ID == "" {
			stored.ID = uuid.New().String()
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO quotations (
				id, order_id, provider_id, provider_name, service_type,
				base_price, rural_surcharge, gst, total_price, is_selected,
				response_json, expires_at, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			stored.ID, orderID, stored.ProviderID, stored.ProviderName,
			stored.ServiceType, stored.BasePrice, stored.RuralSurcharge,
			stored.GST, stored.TotalPrice, boolToInt(stored.IsSelected),
			string(stored.ResponseJSON), toMillis(stored.ExpiresAt),
			toMillis(now),
		)
		if err != nil {
			return nil, fmt.Errorf("insert quotation: %w", err)
		}
		saved = append(saved, &stored)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		string(StatusQuoted), toMillis(now), orderID)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit replace quotations: %w", err)
	}
	return saved, nil
}

// GetQuotations returns the order's current quotation batch, cheapest first.
func (s *Store) GetQuotations(ctx context.Context, orderID string) ([]*Quotation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+quotationColumns+` FROM quotations
		 WHERE order_id = ? ORDER BY total_price ASC, created_at ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list quotations: %w", err)
	}
	defer rows.Close()

	var quotations []*Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, err
		}
		quotations = append(quotations, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list quotations: %w", err)
	}
	return quotations, nil
}

// GetQuotation loads a quotation by id.
func (s *Store) GetQuotation(ctx context.Context, id string) (*Quotation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+quotationColumns+` FROM quotations WHERE id = ?`, id)
	return scanQuotation(row)
}

// MarkQuotationSelected flags the quotation a shipment was created from.
func (s *Store) MarkQuotationSelected(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE quotations SET is_selected = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark quotation selected: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark quotation selected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("quotation %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanQuotation(row rowScanner) (*Quotation, error) {
	var (
		q            Quotation
		isSelected   int64
		responseJSON string
		expiresAt    int64
		createdAt    int64
	)
	err := row.Scan(
		&q.ID, &q.OrderID, &q.ProviderID, &q.ProviderName, &q.ServiceType,
		&q.BasePrice, &q.RuralSurcharge, &q.GST, &q.TotalPrice, &isSelected,
		&responseJSON, &expiresAt, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan quotation: %w", err)
	}

	q.IsSelected = isSelected != 0
	if responseJSON != "" {
		q.ResponseJSON = json.RawMessage(responseJSON)
	}
	q.ExpiresAt = fromMillis(expiresAt)
	q.CreatedAt = fromMillis(createdAt)
	return &q, nil
}
