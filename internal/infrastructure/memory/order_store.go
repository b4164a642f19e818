package memory

import (
	"context"
	"sync"

	domorder "github.com/hamimarket/minimart/internal/domain/order"
)

// OrderStore is the in-memory counterpart of the JSON-backed order
// store.
type OrderStore struct {
	mu     sync.RWMutex
	orders []*domorder.Order

	FailSaves error
}

func NewOrderStore(seed ...*domorder.Order) *OrderStore {
	s := &OrderStore{}
	s.orders = cloneOrders(seed)
	return s
}

func (s *OrderStore) Load(ctx context.Context) ([]*domorder.Order, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneOrders(s.orders), nil
}

func (s *OrderStore) Save(ctx context.Context, orders []*domorder.Order) error {
	_ = ctx
	if s.FailSaves != nil {
		return s.FailSaves
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders = cloneOrders(orders)
	return nil
}

func cloneOrders(orders []*domorder.Order) []*domorder.Order {
	out := make([]*domorder.Order, len(orders))
	for i, o := range orders {
		out[i] = o.Clone()
	}
	return out
}
