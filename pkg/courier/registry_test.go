package courier_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warelink/shipbridge/pkg/courier"
	"github.com/warelink/shipbridge/pkg/courier/mock"
)

func TestRegistry_Register(t *testing.T) {
	registry := courier.NewRegistry()

	registry.Register(mock.New(1, "Fastway"))

	got, err := registry.Get(1)
	require.NoError(t, err, "courier should be registered")
	assert.Equal(t, "Fastway", got.Name())
}

func TestRegistry_Register_Override(t *testing.T) {
	registry := courier.NewRegistry()

	registry.Register(mock.New(1, "Fastway"))
	assert.Equal(t, 1, registry.Count())

	// Same provider id replaces the earlier entry
	registry.Register(mock.New(1, "Fastway v2"))
	assert.Equal(t, 1, registry.Count())

	got, err := registry.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "Fastway v2", got.Name())
}

func TestRegistry_Get_NotFound(t *testing.T) {
	registry := courier.NewRegistry()

	_, err := registry.Get(99)
	assert.Error(t, err, "should return error for unregistered provider")
	assert.True(t, errors.Is(err, courier.ErrProviderNotFound))
}

func TestRegistry_All_KeepsRegistrationOrder(t *testing.T) {
	registry := courier.NewRegistry()

	registry.Register(mock.New(2, "NZ Post"))
	registry.Register(mock.New(1, "Fastway"))

	all := registry.All()
	require.Len(t, all, 2)
	assert.Equal(t, "NZ Post", all[0].Name())
	assert.Equal(t, "Fastway", all[1].Name())
}

func TestRegistry_Names(t *testing.T) {
	registry := courier.NewRegistry()

	registry.Register(mock.New(1, "Fastway"))
	registry.Register(mock.New(2, "NZ Post"))

	assert.Equal(t, []string{"Fastway", "NZ Post"}, registry.Names())
}

func TestRegistry_GetAllQuotes_SortedByTotal(t *testing.T) {
	registry := courier.NewRegistry()

	expensive := mock.New(1, "Fastway")
	expensive.QuoteFunc = func(ctx context.Context, req *courier.QuoteRequest) (*courier.Quote, error) {
		return &courier.Quote{ProviderID: 1, ProviderName: "Fastway", TotalPrice: 15.00}, nil
	}
	cheap := mock.New(2, "NZ Post")
	cheap.QuoteFunc = func(ctx context.Context, req *courier.QuoteRequest) (*courier.Quote, error) {
		return &courier.Quote{ProviderID: 2, ProviderName: "NZ Post", TotalPrice: 12.50}, nil
	}
	registry.Register(expensive)
	registry.Register(cheap)

	quotes, errs := registry.GetAllQuotes(context.Background(), &courier.QuoteRequest{
		PickupPostcode:   "2013",
		DeliveryPostcode: "6011",
	}, time.Second)

	assert.Empty(t, errs)
	require.Len(t, quotes, 2)
	assert.Equal(t, 12.50, quotes[0].TotalPrice)
	assert.Equal(t, 15.00, quotes[1].TotalPrice)
}

func TestRegistry_GetAllQuotes_EqualTotalsKeepRegistrationOrder(t *testing.T) {
	registry := courier.NewRegistry()

	for _, p := range []struct {
		id   int
		name string
	}{{2, "NZ Post"}, {1, "Fastway"}} {
		p := p
		c := mock.New(p.id, p.name)
		c.QuoteFunc = func(ctx context.Context, req *courier.QuoteRequest) (*courier.Quote, error) {
			return &courier.Quote{ProviderID: p.id, ProviderName: p.name, TotalPrice: 10.00}, nil
		}
		registry.Register(c)
	}

	quotes, errs := registry.GetAllQuotes(context.Background(), &courier.QuoteRequest{}, 0)

	assert.Empty(t, errs)
	require.Len(t, quotes, 2)
	assert.Equal(t, "NZ Post", quotes[0].ProviderName)
	assert.Equal(t, "Fastway", quotes[1].ProviderName)
}

func TestRegistry_GetAllQuotes_PartialFailure(t *testing.T) {
	registry := courier.NewRegistry()

	working := mock.New(1, "Fastway")
	broken := mock.New(2, "NZ Post")
	broken.QuoteFunc = func(ctx context.Context, req *courier.QuoteRequest) (*courier.Quote, error) {
		return nil, courier.NewProviderError("NZ Post", "TIMEOUT", "gateway timed out")
	}
	registry.Register(working)
	registry.Register(broken)

	quotes, errs := registry.GetAllQuotes(context.Background(), &courier.QuoteRequest{}, time.Second)

	require.Len(t, quotes, 1, "surviving provider's quote should be returned")
	assert.Equal(t, 1, quotes[0].ProviderID)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "NZ Post")
}

func TestRegistry_GetAllQuotes_AllFail(t *testing.T) {
	registry := courier.NewRegistry()

	for id, name := range map[int]string{1: "Fastway", 2: "NZ Post"} {
		c := mock.New(id, name)
		c.QuoteFunc = func(ctx context.Context, req *courier.QuoteRequest) (*courier.Quote, error) {
			return nil, courier.ErrQuoteUnavailable
		}
		registry.Register(c)
	}

	quotes, errs := registry.GetAllQuotes(context.Background(), &courier.QuoteRequest{}, time.Second)

	assert.Empty(t, quotes)
	assert.Len(t, errs, 2)
}

func TestRegistry_GetAllQuotes_NoProviders(t *testing.T) {
	registry := courier.NewRegistry()

	quotes, errs := registry.GetAllQuotes(context.Background(), &courier.QuoteRequest{}, time.Second)

	assert.Empty(t, quotes)
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], courier.ErrProviderNotFound))
}
