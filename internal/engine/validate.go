package engine

import (
	"fmt"

	"github.com/warelink/shipbridge/internal/store"
)

// DeliveryAddress is the subset of an order's address that shipping
// requires.
type DeliveryAddress struct {
	Street   string
	Suburb   string
	City     string
	Postcode string
}

// Validation is the result of a shippability check.
type Validation struct {
	IsValid       bool
	MissingFields []string
}

// ValidateForShipping decides whether an order's address and items are
// complete enough to quote and ship. Every rule is evaluated so all
// violations are reported, not just the first. Pure and deterministic.
func ValidateForShipping(addr DeliveryAddress, items []store.Item) Validation {
	var missing []string

	if addr.Street == "" {
		missing = append(missing, "Delivery street")
	}
	if addr.Suburb == "" {
		missing = append(missing, "Delivery suburb")
	}
	if addr.City == "" {
		missing = append(missing, "Delivery city")
	}
	if addr.Postcode == "" {
		missing = append(missing, "Delivery postcode")
	}

	if len(items) == 0 {
		missing = append(missing, "Order items")
	} else {
		for i, item := range items {
			if item.Weight <= 0 {
				missing = append(missing, fmt.Sprintf("Item %d weight", i+1))
			}
			if item.Weight > 35 {
				missing = append(missing, fmt.Sprintf("Item %d exceeds 35kg limit", i+1))
			}
		}
	}

	return Validation{
		IsValid:       len(missing) == 0,
		MissingFields: missing,
	}
}

// validateOrder runs the shippability check against a stored order.
func validateOrder(o *store.Order) Validation {
	return ValidateForShipping(DeliveryAddress{
		Street:   o.DeliveryStreet,
		Suburb:   o.DeliverySuburb,
		City:     o.DeliveryCity,
		Postcode: o.DeliveryPostcode,
	}, o.Items)
}
