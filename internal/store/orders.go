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

const orderColumns = `id, source_id, order_number, customer_name, customer_email,
	customer_phone, delivery_street, delivery_suburb, delivery_city,
	delivery_postcode, delivery_country, is_rural, items_json, source_json,
	status, created_at, updated_at, synced_at`

// UpsertOrder inserts or refreshes an order from a source sync. On update,
// the stored status is replaced by o.Status only while the order is still
// in PENDING_DATA or READY_TO_QUOTE; later states are never clobbered by a
// sync.
func (s *Store) UpsertOrder(ctx context.Context, o *Order) (*Order, error) {
	if o.SourceID == "" {
		return nil, fmt.Errorf("source id is required")
	}
	if !o.Status.Valid() {
		return nil, fmt.Errorf("invalid order status: %q", o.Status)
	}

	id := o.ID
	if id == "" {
		id = uuid.New().String()
	}
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (
			id, source_id, order_number, customer_name, customer_email,
			customer_phone, delivery_street, delivery_suburb, delivery_city,
			delivery_postcode, delivery_country, is_rural, items_json,
			source_json, status, created_at, updated_at, synced_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			order_number      = excluded.order_number,
			customer_name     = excluded.customer_name,
			customer_email    = excluded.customer_email,
			customer_phone    = excluded.customer_phone,
			delivery_street   = excluded.delivery_street,
			delivery_suburb   = excluded.delivery_suburb,
			delivery_city     = excluded.delivery_city,
			delivery_postcode = excluded.delivery_postcode,
			delivery_country  = excluded.delivery_country,
			items_json        = excluded.items_json,
			source_json       = excluded.source_json,
			status            = CASE
				WHEN orders.status IN ('PENDING_DATA', 'READY_TO_QUOTE')
				THEN excluded.status
				ELSE orders.status
			END,
			updated_at        = excluded.updated_at,
			synced_at         = excluded.synced_at`,
		id, o.SourceID, o.OrderNumber, o.CustomerName, o.CustomerEmail,
		o.CustomerPhone, o.DeliveryStreet, o.DeliverySuburb, o.DeliveryCity,
		o.DeliveryPostcode, o.DeliveryCountry, boolToInt(o.IsRural),
		string(itemsJSON), string(o.SourceJSON), string(o.Status),
		toMillis(now), toMillis(now), toMillis(now),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert order: %w", err)
	}

	return s.GetOrderBySourceID(ctx, o.SourceID)
}

// GetOrder loads an order by its local id.
func (s *Store) GetOrder(ctx context.Context, id string) (*Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	return scanOrder(row)
}

// GetOrderBySourceID loads an order by its external source id.
func (s *Store) GetOrderBySourceID(ctx context.Context, sourceID string) (*Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE source_id = ?`, sourceID)
	return scanOrder(row)
}

// ListFilter narrows and pages a local order listing.
type ListFilter struct {
	Status  OrderStatus
	Search  string
	Page    int
	PerPage int
}

// ListOrders returns a page of locally stored orders, newest first, and the
// total matching count.
func (s *Store) ListOrders(ctx context.Context, filter ListFilter) ([]*Order, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 20
	}

	where := "1=1"
	args := []interface{}{}
	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		where += ` AND (order_number LIKE ? OR customer_name LIKE ? OR delivery_postcode LIKE ?)`
		args = append(args, like, like, like)
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + where +
		` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, perPage, (page-1)*perPage)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// SetOrderRural persists the rural-delivery flag.
func (s *Store) SetOrderRural(ctx context.Context, id string, isRural bool) error {
	return s.updateOrder(ctx, id,
		`UPDATE orders SET is_rural = ?, updated_at = ? WHERE id = ?`,
		boolToInt(isRural), toMillis(time.Now()), id)
}

// SetOrderStatus moves an order to the given lifecycle state.
func (s *Store) SetOrderStatus(ctx context.Context, id string, status OrderStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid order status: %q", status)
	}
	return s.updateOrder(ctx, id,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), toMillis(time.Now()), id)
}

func (s *Store) updateOrder(ctx context.Context, id, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var (
		o          Order
		isRural    int64
		itemsJSON  string
		sourceJSON string
		status     string
		createdAt  int64
		updatedAt  int64
		syncedAt   sql.NullInt64
	)
	err := row.Scan(
		&o.ID, &o.SourceID, &o.OrderNumber, &o.CustomerName, &o.CustomerEmail,
		&o.CustomerPhone, &o.DeliveryStreet, &o.DeliverySuburb, &o.DeliveryCity,
		&o.DeliveryPostcode, &o.DeliveryCountry, &isRural, &itemsJSON,
		&sourceJSON, &status, &createdAt, &updatedAt, &syncedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}

	o.IsRural = isRural != 0
	if err := json.Unmarshal([]byte(itemsJSON), &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if sourceJSON != "" {
		o.SourceJSON = json.RawMessage(sourceJSON)
	}
	o.Status = OrderStatus(status)
	o.CreatedAt = fromMillis(createdAt)
	o.UpdatedAt = fromMillis(updatedAt)
	if syncedAt.Valid {
		t := fromMillis(syncedAt.Int64)
		o.SyncedAt = &t
	}
	return &o, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
