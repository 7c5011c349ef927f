package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warelink/shipbridge/internal/engine"
	"github.com/warelink/shipbridge/internal/store"
)

func completeAddress() engine.DeliveryAddress {
	return engine.DeliveryAddress{
		Street:   "12 Harbour St",
		Suburb:   "Te Aro",
		City:     "Wellington",
		Postcode: "6011",
	}
}

func TestValidateForShipping_Valid(t *testing.T) {
	v := engine.ValidateForShipping(completeAddress(), []store.Item{
		{Description: "Widget", Quantity: 1, Weight: 2.5},
	})

	assert.True(t, v.IsValid)
	assert.Empty(t, v.MissingFields)
}

func TestValidateForShipping_MissingAddressFields(t *testing.T) {
	v := engine.ValidateForShipping(engine.DeliveryAddress{}, []store.Item{
		{Weight: 1},
	})

	assert.False(t, v.IsValid)
	assert.Equal(t, []string{
		"Delivery street",
		"Delivery suburb",
		"Delivery city",
		"Delivery postcode",
	}, v.MissingFields)
}

func TestValidateForShipping_MissingSuburbOnly(t *testing.T) {
	addr := completeAddress()
	addr.Suburb = ""

	v := engine.ValidateForShipping(addr, []store.Item{{Weight: 1}})

	assert.False(t, v.IsValid)
	assert.Equal(t, []string{"Delivery suburb"}, v.MissingFields)
}

func TestValidateForShipping_NoItems(t *testing.T) {
	v := engine.ValidateForShipping(completeAddress(), nil)

	assert.False(t, v.IsValid)
	assert.Equal(t, []string{"Order items"}, v.MissingFields)
}

func TestValidateForShipping_ItemWeights(t *testing.T) {
	v := engine.ValidateForShipping(completeAddress(), []store.Item{
		{Weight: 0},    // item 1: missing weight
		{Weight: 2.5},  // item 2: fine
		{Weight: 36.0}, // item 3: over the cap
	})

	assert.False(t, v.IsValid)
	assert.Equal(t, []string{
		"Item 1 weight",
		"Item 3 exceeds 35kg limit",
	}, v.MissingFields)
}

func TestValidateForShipping_WeightAtLimit(t *testing.T) {
	v := engine.ValidateForShipping(completeAddress(), []store.Item{
		{Weight: 35.0},
	})

	assert.True(t, v.IsValid, "35kg exactly is allowed")
}
