package courier

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Registry manages registered courier providers. Providers are kept in
// registration order, which is the tiebreak order for equal quote totals.
type Registry struct {
	couriers map[int]Courier
	order    []int
	mu       sync.RWMutex
}

// NewRegistry creates a new courier registry.
func NewRegistry() *Registry {
	return &Registry{
		couriers: make(map[int]Courier),
	}
}

// Register adds a courier to the registry. Registering the same provider id
// twice replaces the earlier entry but keeps its position.
func (r *Registry) Register(c Courier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.couriers[c.ProviderID()]; !ok {
		r.order = append(r.order, c.ProviderID())
	}
	r.couriers[c.ProviderID()] = c
}

// Get returns a courier by provider id.
func (r *Registry) Get(providerID int) (Courier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.couriers[providerID]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrProviderNotFound, providerID)
}

// All returns all registered couriers in registration order.
func (r *Registry) All() []Courier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Courier, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.couriers[id])
	}
	return result
}

// Names returns the display names of all registered couriers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.order))
	for _, id := range r.order {
		names = append(names, r.couriers[id].Name())
	}
	return names
}

// Count returns the number of registered couriers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.couriers)
}

// GetAllQuotes fetches quotes from all registered providers in parallel.
// Each provider call is bounded by perProviderTimeout (no bound when zero).
// Individual provider failures are returned alongside the successes and
// never abort the other providers. The surviving quotes are sorted by
// ascending total price; equal totals keep registration order.
func (r *Registry) GetAllQuotes(ctx context.Context, req *QuoteRequest, perProviderTimeout time.Duration) ([]*Quote, []error) {
	couriers := r.All()
	if len(couriers) == 0 {
		return nil, []error{ErrProviderNotFound}
	}

	// Indexed by registration position so the sort tiebreak is stable.
	results := make([]*Quote, len(couriers))
	errs := make([]error, 0)
	mu := &sync.Mutex{}

	g := &errgroup.Group{}

	for i, c := range couriers {
		i, c := i, c
		g.Go(func() error {
			callCtx := ctx
			if perProviderTimeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, perProviderTimeout)
				defer cancel()
			}

			quote, err := c.GetQuote(callCtx, req)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
				mu.Unlock()
				return nil // other providers keep going
			}
			results[i] = quote
			return nil
		})
	}

	g.Wait()

	quotes := make([]*Quote, 0, len(results))
	for _, q := range results {
		if q != nil {
			quotes = append(quotes, q)
		}
	}
	sort.SliceStable(quotes, func(a, b int) bool {
		return quotes[a].TotalPrice < quotes[b].TotalPrice
	})
	return quotes, errs
}
