package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/warelink/shipbridge/internal/store"
	"github.com/warelink/shipbridge/internal/warehouse"
	"go.uber.org/zap"
)

// SyncAndGetOrder returns the order with its quotations, shipment and
// recent error history. Unknown orders are fetched from the warehouse
// source on demand and created locally with their initial lifecycle state.
func (e *Engine) SyncAndGetOrder(ctx context.Context, orderID string) (*OrderDetail, error) {
	start := e.now()

	order, err := e.store.GetOrder(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		order, err = e.store.GetOrderBySourceID(ctx, orderID)
	}
	if errors.Is(err, store.ErrNotFound) {
		if e.source == nil {
			e.recordOperation("sync_order", "not_found", start)
			return nil, ErrOrderNotFound
		}
		order, err = e.fetchAndCreate(ctx, orderID)
	}
	if err != nil {
		e.recordOperation("sync_order", "error", start)
		return nil, err
	}

	detail, err := e.attachRelated(ctx, order)
	if err != nil {
		e.recordOperation("sync_order", "error", start)
		return nil, err
	}
	e.recordOperation("sync_order", "ok", start)
	return detail, nil
}

// fetchAndCreate pulls an order from the warehouse source and stores it
// with its validation-derived initial status.
func (e *Engine) fetchAndCreate(ctx context.Context, orderID string) (*store.Order, error) {
	src, err := e.source.GetOrder(ctx, orderID)
	if err != nil {
		e.logger.Warn("Warehouse order fetch failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return e.store.UpsertOrder(ctx, sourceToOrder(src))
}

// ListParams narrows and pages an order listing.
type ListParams struct {
	Page    int
	PerPage int
	Status  string
	Search  string
}

// Pagination describes the returned page.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// OrderList is one page of orders with their related records.
type OrderList struct {
	Orders     []*OrderDetail
	Pagination Pagination
}

// ListOrders returns a page of orders. When the warehouse source is
// configured, the page is fetched from it and each order synced into local
// storage first; otherwise local records are served with status/search
// filters.
func (e *Engine) ListOrders(ctx context.Context, params ListParams) (*OrderList, error) {
	start := e.now()

	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 {
		params.PerPage = 20
	}

	var (
		list *OrderList
		err  error
	)
	if e.source == nil {
		list, err = e.listLocal(ctx, params)
	} else {
		list, err = e.listSynced(ctx, params)
	}
	if err != nil {
		e.recordOperation("list_orders", "error", start)
		return nil, err
	}
	e.recordOperation("list_orders", "ok", start)
	return list, nil
}

func (e *Engine) listLocal(ctx context.Context, params ListParams) (*OrderList, error) {
	filter := store.ListFilter{
		Search:  params.Search,
		Page:    params.Page,
		PerPage: params.PerPage,
	}
	if params.Status != "" && params.Status != "all" {
		filter.Status = store.OrderStatus(params.Status)
	}

	orders, total, err := e.store.ListOrders(ctx, filter)
	if err != nil {
		return nil, err
	}

	details := make([]*OrderDetail, 0, len(orders))
	for _, o := range orders {
		detail, err := e.attachRelated(ctx, o)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return &OrderList{
		Orders:     details,
		Pagination: paginate(params, total),
	}, nil
}

func (e *Engine) listSynced(ctx context.Context, params ListParams) (*OrderList, error) {
	page, err := e.source.ListOrders(ctx, warehouse.ListOrdersParams{
		Page:    params.Page,
		PerPage: params.PerPage,
		Status:  params.Status,
		Search:  params.Search,
	})
	if err != nil {
		return nil, fmt.Errorf("sync orders: %w", err)
	}

	details := make([]*OrderDetail, 0, len(page.Orders))
	for i := range page.Orders {
		order, err := e.store.UpsertOrder(ctx, sourceToOrder(&page.Orders[i]))
		if err != nil {
			return nil, err
		}
		detail, err := e.attachRelated(ctx, order)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return &OrderList{
		Orders:     details,
		Pagination: paginate(params, page.Total),
	}, nil
}

// attachRelated loads an order's quotations, shipment and recent error
// history, and recomputes its validation diagnostics.
func (e *Engine) attachRelated(ctx context.Context, order *store.Order) (*OrderDetail, error) {
	quotations, err := e.store.GetQuotations(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	shipment, err := e.store.GetShipmentByOrderID(ctx, order.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	errorLogs, err := e.store.RecentErrorLogs(ctx, order.ID, recentErrorLimit)
	if err != nil {
		return nil, err
	}

	validation := validateOrder(order)
	return &OrderDetail{
		Order:            order,
		Quotations:       quotations,
		Shipment:         shipment,
		ErrorLogs:        errorLogs,
		ValidationErrors: validation.MissingFields,
	}, nil
}

// sourceToOrder maps a warehouse record to a local order. The status on the
// returned order is the validation-derived initial state; the store keeps
// the existing status for orders already past quoting.
func sourceToOrder(src *warehouse.SourceOrder) *store.Order {
	o := &store.Order{
		SourceID:        src.ID,
		OrderNumber:     src.Number(),
		CustomerName:    "Unknown",
		DeliveryCountry: "NZ",
	}

	if src.Customer != nil {
		if src.Customer.Name != "" {
			o.CustomerName = src.Customer.Name
		}
		o.CustomerEmail = src.Customer.Email
		o.CustomerPhone = src.Customer.Phone
	}
	if src.DeliveryAddress != nil {
		o.DeliveryStreet = src.DeliveryAddress.Street
		o.DeliverySuburb = src.DeliveryAddress.Suburb
		o.DeliveryCity = src.DeliveryAddress.City
		o.DeliveryPostcode = src.DeliveryAddress.Postcode
		if src.DeliveryAddress.Country != "" {
			o.DeliveryCountry = src.DeliveryAddress.Country
		}
	}

	o.Items = make([]store.Item, 0, len(src.Items))
	for _, item := range src.Items {
		o.Items = append(o.Items, store.Item{
			Description: item.Description,
			Quantity:    item.Quantity,
			Weight:      item.Weight,
			Length:      item.Length,
			Width:       item.Width,
			Height:      item.Height,
		})
	}

	if raw, err := json.Marshal(src); err == nil {
		o.SourceJSON = raw
	}

	validation := ValidateForShipping(DeliveryAddress{
		Street:   o.DeliveryStreet,
		Suburb:   o.DeliverySuburb,
		City:     o.DeliveryCity,
		Postcode: o.DeliveryPostcode,
	}, o.Items)
	if validation.IsValid {
		o.Status = store.StatusReadyToQuote
	} else {
		o.Status = store.StatusPendingData
	}
	return o
}

func paginate(params ListParams, total int) Pagination {
	totalPages := int(math.Ceil(float64(total) / float64(params.PerPage)))
	return Pagination{
		Page:       params.Page,
		PerPage:    params.PerPage,
		Total:      total,
		TotalPages: totalPages,
	}
}
