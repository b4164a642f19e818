package order

import (
	domorder "github.com/hamimarket/minimart/internal/domain/order"
)

// Cart accumulates line items before checkout. It holds no reservation:
// stock is only decremented when the cart is confirmed, so discarding a
// cart has no side effects.
type Cart struct {
	ID    string
	items []domorder.LineItem
}

func (c *Cart) Items() []domorder.LineItem {
	out := make([]domorder.LineItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Empty() bool {
	return c == nil || len(c.items) == 0
}

// requiredQuantities aggregates requested quantities per product name so
// duplicate lines for the same product are validated as one demand.
func (c *Cart) requiredQuantities() map[string]int {
	req := make(map[string]int, len(c.items))
	for _, item := range c.items {
		req[item.Name] += item.Quantity
	}
	return req
}
