package memory

import (
	"context"
	"sync"

	dominv "github.com/hamimarket/minimart/internal/domain/inventory"
)

// ProductStore is an in-memory stand-in for the CSV-backed store, used
// in tests and as a wiring fallback. It clones on both sides of the
// boundary so callers never share state with the store.
type ProductStore struct {
	mu       sync.RWMutex
	products []*dominv.Product

	// FailSaves makes every Save return this error, for exercising
	// persistence-failure paths.
	FailSaves error
}

func NewProductStore(seed ...*dominv.Product) *ProductStore {
	s := &ProductStore{}
	s.products = cloneProducts(seed)
	return s
}

func (s *ProductStore) Load(ctx context.Context) ([]*dominv.Product, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneProducts(s.products), nil
}

func (s *ProductStore) Save(ctx context.Context, products []*dominv.Product) error {
	_ = ctx
	if s.FailSaves != nil {
		return s.FailSaves
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = cloneProducts(products)
	return nil
}

func cloneProducts(products []*dominv.Product) []*dominv.Product {
	out := make([]*dominv.Product, len(products))
	for i, p := range products {
		out[i] = p.Clone()
	}
	return out
}
