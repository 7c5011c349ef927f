package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/warelink/shipbridge/internal/store"
)

// Typed outcomes surfaced to the API layer. Each maps to a distinct HTTP
// status in the server package.
var (
	// ErrOrderNotFound indicates the order exists neither locally nor at
	// the source.
	ErrOrderNotFound = errors.New("order not found")

	// ErrShipmentNotFound indicates there is no such shipment record.
	ErrShipmentNotFound = errors.New("shipment not found")

	// ErrQuotationNotFound indicates the quotation id is not part of the
	// order's current quotation set.
	ErrQuotationNotFound = errors.New("quotation not found")

	// ErrQuotationExpired indicates the selected quotation's expiry has
	// passed; the caller must re-quote.
	ErrQuotationExpired = errors.New("quotation has expired, please re-quote")

	// ErrNoQuotes indicates no provider returned a usable quote.
	ErrNoQuotes = errors.New("no quotes available")

	// ErrMissingPostcode indicates the order has no delivery postcode.
	ErrMissingPostcode = errors.New("order missing delivery postcode")

	// ErrNoItems indicates the order has no line items to quote or ship.
	ErrNoItems = errors.New("order has no items")

	// ErrOrderShipped indicates the order already reached LABEL_CREATED
	// and cannot be re-quoted.
	ErrOrderShipped = errors.New("order already has a shipment")

	// ErrNoConsignment indicates the shipment has no consignment number to
	// fetch a label with.
	ErrNoConsignment = errors.New("no consignment number available")
)

// ConflictError reports that a shipment already exists for the order. It is
// an "already done" outcome rather than a failure: the existing shipment is
// attached so retried requests stay idempotent.
type ConflictError struct {
	Shipment *store.Shipment
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return "shipment already exists for this order"
}

// Is makes the conflict matchable against ErrOrderShipped.
func (e *ConflictError) Is(target error) bool {
	return target == ErrOrderShipped
}

// ValidationError reports that order data is incomplete or out of policy.
// Recoverable by the source data changing, never fatal.
type ValidationError struct {
	MissingFields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("order not ready to ship: %s", strings.Join(e.MissingFields, ", "))
}
