// Package warehouse provides the client for the warehouse-management
// backend that fulfillment orders are pulled from.
package warehouse

// SourceOrder is an order record as returned by the warehouse backend.
// Most fields are optional upstream; the engine validates completeness.
type SourceOrder struct {
	ID              string           `json:"id"`
	OrderNumber     string           `json:"orderNumber,omitempty"`
	Reference       string           `json:"reference,omitempty"`
	Customer        *Customer        `json:"customer,omitempty"`
	DeliveryAddress *DeliveryAddress `json:"deliveryAddress,omitempty"`
	Items           []OrderItem      `json:"items,omitempty"`
	Status          string           `json:"status,omitempty"`
	CreatedAt       string           `json:"createdAt,omitempty"`
	UpdatedAt       string           `json:"updatedAt,omitempty"`
}

// Number returns the human order number, falling back to the reference.
func (o *SourceOrder) Number() string {
	if o.OrderNumber != "" {
		return o.OrderNumber
	}
	return o.Reference
}

// Customer holds order contact details.
type Customer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// DeliveryAddress is the structured delivery address of an order.
type DeliveryAddress struct {
	Street   string `json:"street,omitempty"`
	Street2  string `json:"street2,omitempty"`
	Suburb   string `json:"suburb,omitempty"`
	City     string `json:"city,omitempty"`
	Postcode string `json:"postcode,omitempty"`
	Country  string `json:"country,omitempty"`
}

// OrderItem is one ordered line item.
type OrderItem struct {
	ID          string  `json:"id,omitempty"`
	SKU         string  `json:"sku,omitempty"`
	Description string  `json:"description,omitempty"`
	Quantity    int     `json:"quantity,omitempty"`
	Weight      float64 `json:"weight,omitempty"`
	Length      float64 `json:"length,omitempty"`
	Width       float64 `json:"width,omitempty"`
	Height      float64 `json:"height,omitempty"`
}

// ListOrdersParams are the paging and filter parameters for ListOrders.
type ListOrdersParams struct {
	Page    int
	PerPage int
	Status  string
	Search  string
}

// OrderPage is one page of orders from the warehouse backend.
type OrderPage struct {
	Orders  []SourceOrder
	Total   int
	Page    int
	PerPage int
}

// listResponse is the backend's list envelope.
type listResponse struct {
	Data []SourceOrder `json:"data"`
	Meta *struct {
		Total       int `json:"total,omitempty"`
		CurrentPage int `json:"current_page,omitempty"`
		PerPage     int `json:"per_page,omitempty"`
	} `json:"meta,omitempty"`
}

// getResponse is the backend's single-record envelope.
type getResponse struct {
	Data SourceOrder `json:"data"`
}
