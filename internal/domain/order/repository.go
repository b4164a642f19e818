package order

import "context"

// Store is the persistence gateway for the order collection. Like the
// inventory store, every mutation rewrites the whole ordered collection.
type Store interface {
	Load(ctx context.Context) ([]*Order, error)
	Save(ctx context.Context, orders []*Order) error
}
