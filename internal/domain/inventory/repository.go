package inventory

import "context"

// Store is the persistence gateway for the product collection. Every
// mutation rewrites the whole ordered collection; load order is the
// stored order.
type Store interface {
	Load(ctx context.Context) ([]*Product, error)
	Save(ctx context.Context, products []*Product) error
}
