package order

import (
	"context"

	dominv "github.com/hamimarket/minimart/internal/domain/inventory"
	domorder "github.com/hamimarket/minimart/internal/domain/order"
)

type IDGenerator interface {
	NewID() string
}

// Ledger is the slice of the inventory service the engine depends on.
// Stock adjustments go through Reserve/Release and are made durable in
// one batch with Persist.
type Ledger interface {
	Find(name string) (*dominv.Product, error)
	Reserve(ctx context.Context, name string, quantity int) error
	Release(ctx context.Context, name string, quantity int)
	Persist(ctx context.Context) error
}

// ReceiptWriter renders and removes the durable receipt artifact for an
// order.
type ReceiptWriter interface {
	Write(o *domorder.Order) error
	Remove(o *domorder.Order) error
}
