package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	dominv "github.com/hamimarket/minimart/internal/domain/inventory"
	"github.com/hamimarket/minimart/internal/observability"
	"github.com/hamimarket/minimart/internal/observability/logctx"
)

var ErrRepository = errors.New("inventory: repository failure")

func wrapRepositoryError(err error) error {
	return fmt.Errorf("%w: %v", ErrRepository, err)
}

const componentLedger = "inventory_ledger"

// Service is the inventory ledger: it owns the in-memory product
// collection, persists the whole collection on every mutation, and keeps
// a single-slot undo buffer for the most recent change.
type Service struct {
	store      dominv.Store
	log        observability.Logger
	opCounter  observability.Counter
	products   []*dominv.Product
	lastChange *dominv.Change
}

// NewService loads the persisted collection and returns a ready ledger.
func NewService(ctx context.Context, store dominv.Store, tel observability.Observability) (*Service, error) {
	if tel == nil {
		tel = observability.Nop()
	}
	products, err := store.Load(ctx)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	return &Service{
		store:     store,
		log:       tel.Logger().With(observability.F("component", componentLedger)),
		opCounter: tel.Metrics().Counter(observability.MOperationRequests),
		products:  products,
	}, nil
}

// Products returns a cloned snapshot of the collection in stored order.
func (s *Service) Products() []*dominv.Product {
	out := make([]*dominv.Product, len(s.products))
	for i, p := range s.products {
		out[i] = p.Clone()
	}
	return out
}

// Search returns the products whose name contains the term,
// case-insensitively. An empty result is not an error.
func (s *Service) Search(term string) []*dominv.Product {
	term = strings.ToLower(strings.TrimSpace(term))
	var out []*dominv.Product
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.Name), term) {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Find returns a clone of the product keyed by name.
func (s *Service) Find(name string) (*dominv.Product, error) {
	if i := s.indexOf(name); i >= 0 {
		return s.products[i].Clone(), nil
	}
	return nil, dominv.ErrNotFound
}

// AddProduct validates and appends a new product, persists the
// collection, and records the change in the undo slot.
func (s *Service) AddProduct(ctx context.Context, name, category string, price float64, quantity int) (*dominv.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	product, err := dominv.NewProduct(name, category, price, quantity)
	if err != nil {
		return nil, err
	}
	if s.indexOf(product.Name) >= 0 {
		return nil, dominv.ErrDuplicateProduct
	}

	s.products = append(s.products, product)
	if err := s.persist(ctx); err != nil {
		s.products = s.products[:len(s.products)-1]
		return nil, err
	}
	s.lastChange = &dominv.Change{Kind: dominv.ChangeAdd, Product: product.Clone()}

	s.logOp(ctx, "product_added",
		observability.F("name", product.Name),
		observability.F("quantity", product.Quantity),
	)
	s.count("add_product")
	return product.Clone(), nil
}

// UpdateProduct applies the set fields of the patch to the named
// product. An update that changes nothing returns ErrNoChange without
// persisting or touching the undo slot.
func (s *Service) UpdateProduct(ctx context.Context, name string, patch dominv.Patch) (*dominv.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i := s.indexOf(name)
	if i < 0 {
		return nil, dominv.ErrNotFound
	}
	old := s.products[i]
	updated, err := patch.Apply(old)
	if err != nil {
		return nil, err
	}
	if *updated == *old {
		return nil, dominv.ErrNoChange
	}

	s.products[i] = updated
	if err := s.persist(ctx); err != nil {
		s.products[i] = old
		return nil, err
	}
	s.lastChange = &dominv.Change{Kind: dominv.ChangeUpdate, Old: old.Clone(), New: updated.Clone()}

	s.logOp(ctx, "product_updated", observability.F("name", updated.Name))
	s.count("update_product")
	return updated.Clone(), nil
}

// DeleteProduct removes the named product, persists, and records the
// deleted snapshot for undo.
func (s *Service) DeleteProduct(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	i := s.indexOf(name)
	if i < 0 {
		return dominv.ErrNotFound
	}
	deleted := s.products[i]

	s.products = append(s.products[:i], s.products[i+1:]...)
	if err := s.persist(ctx); err != nil {
		rest := append([]*dominv.Product{deleted}, s.products[i:]...)
		s.products = append(s.products[:i], rest...)
		return err
	}
	s.lastChange = &dominv.Change{Kind: dominv.ChangeDelete, Product: deleted.Clone()}

	s.logOp(ctx, "product_deleted", observability.F("name", deleted.Name))
	s.count("delete_product")
	return nil
}

// UndoLastChange reverses exactly the most recent mutation. The undo
// slot is cleared unconditionally, even when the target record has gone
// missing since the change was recorded (stale undo is a silent no-op).
func (s *Service) UndoLastChange(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	change := s.lastChange
	if change == nil {
		return dominv.ErrNothingToUndo
	}
	s.lastChange = nil

	switch change.Kind {
	case dominv.ChangeAdd:
		if i := s.indexOf(change.Product.Name); i >= 0 {
			s.products = append(s.products[:i], s.products[i+1:]...)
		}
	case dominv.ChangeDelete:
		s.products = append(s.products, change.Product.Clone())
	case dominv.ChangeUpdate:
		if i := s.indexOf(change.Old.Name); i >= 0 {
			s.products[i] = change.Old.Clone()
		}
	}

	if err := s.persist(ctx); err != nil {
		return err
	}
	s.logOp(ctx, "change_undone", observability.F("kind", string(change.Kind)))
	s.count("undo")
	return nil
}

// Reserve decrements stock for a confirmed order line. The caller is
// expected to have validated availability; Deduct still refuses to take
// the quantity negative.
func (s *Service) Reserve(ctx context.Context, name string, quantity int) error {
	_ = ctx
	i := s.indexOf(name)
	if i < 0 {
		return dominv.ErrNotFound
	}
	return s.products[i].Deduct(quantity)
}

// Release returns a reserved quantity to stock. Missing products are
// skipped: the order may reference a product deleted after confirmation.
func (s *Service) Release(ctx context.Context, name string, quantity int) {
	_ = ctx
	if i := s.indexOf(name); i >= 0 {
		s.products[i].Restore(quantity)
	}
}

// Persist writes the current collection through the store. The order
// engine calls this after batched stock adjustments.
func (s *Service) Persist(ctx context.Context) error {
	return s.persist(ctx)
}

func (s *Service) persist(ctx context.Context) error {
	if err := s.store.Save(ctx, s.products); err != nil {
		return wrapRepositoryError(err)
	}
	return nil
}

func (s *Service) indexOf(name string) int {
	for i, p := range s.products {
		if p.NameMatches(name) {
			return i
		}
	}
	return -1
}

func (s *Service) logOp(ctx context.Context, event string, fields ...observability.Field) {
	logctx.FromOr(ctx, s.log).Info(event, fields...)
}

func (s *Service) count(op string) {
	if s.opCounter != nil {
		s.opCounter.Add(1,
			observability.L("component", componentLedger),
			observability.L("operation", op),
			observability.L("outcome", "success"),
		)
	}
}
