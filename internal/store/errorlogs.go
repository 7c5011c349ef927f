package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AppendErrorLog records a failed operation against an order. Entries are
// append-only.
func (s *Store) AppendErrorLog(ctx context.Context, entry *ErrorLogEntry) (*ErrorLogEntry, error) {
	stored := *entry
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	stored.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO error_logs (id, order_id, action, message, details_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.OrderID, stored.Action, stored.Message,
		string(stored.DetailsJSON), toMillis(stored.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("append error log: %w", err)
	}
	return &stored, nil
}

// RecentErrorLogs returns the order's most recent error entries, newest
// first, capped at limit.
func (s *Store) RecentErrorLogs(ctx context.Context, orderID string, limit int) ([]*ErrorLogEntry, error) {
	if limit < 1 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, action, message, details_json, created_at
		FROM error_logs
		WHERE order_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, orderID, limit)
	if err != nil {
		return nil, fmt.Errorf("list error logs: %w", err)
	}
	defer rows.Close()

	var entries []*ErrorLogEntry
	for rows.Next() {
		var (
			e           ErrorLogEntry
			detailsJSON string
			createdAt   int64
		)
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Action, &e.Message,
			&detailsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan error log: %w", err)
		}
		if detailsJSON != "" {
			e.DetailsJSON = json.RawMessage(detailsJSON)
		}
		e.CreatedAt = fromMillis(createdAt)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list error logs: %w", err)
	}
	return entries, nil
}
