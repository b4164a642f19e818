package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	dominv "github.com/hamimarket/minimart/internal/domain/inventory"
	domorder "github.com/hamimarket/minimart/internal/domain/order"
	"github.com/hamimarket/minimart/internal/observability"
	"github.com/hamimarket/minimart/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrRepository = errors.New("order: repository failure")

func wrapRepositoryError(err error) error {
	return fmt.Errorf("%w: %v", ErrRepository, err)
}

const (
	componentEngine = "order_engine"
	spanPrefix      = "OP."
)

// Service is the order engine. It owns the order collection, reserves
// and releases ledger stock, and drives receipt emission. Orders become
// read-only once their modification window elapses.
type Service struct {
	store    domorder.Store
	ledger   Ledger
	receipts ReceiptWriter
	ids      IDGenerator
	window   time.Duration

	tel           observability.Observability
	log           observability.Logger
	opCounter     observability.Counter
	opDuration    observability.Histogram
	confirmed     observability.Counter
	cleaned       observability.Counter
	receiptWrites observability.Counter

	orders []*domorder.Order
}

// NewService loads the persisted order collection and returns a ready
// engine. A non-positive window falls back to the default.
func NewService(
	ctx context.Context,
	store domorder.Store,
	ledger Ledger,
	receipts ReceiptWriter,
	ids IDGenerator,
	window time.Duration,
	tel observability.Observability,
) (*Service, error) {
	if tel == nil {
		tel = observability.Nop()
	}
	if window <= 0 {
		window = domorder.DefaultModifyWindow
	}
	orders, err := store.Load(ctx)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	return &Service{
		store:         store,
		ledger:        ledger,
		receipts:      receipts,
		ids:           ids,
		window:        window,
		tel:           tel,
		log:           tel.Logger().With(observability.F("component", componentEngine)),
		opCounter:     tel.Metrics().Counter(observability.MOperationRequests),
		opDuration:    tel.Metrics().Histogram(observability.MOperationDuration),
		confirmed:     tel.Metrics().Counter(observability.MOrdersConfirmed),
		cleaned:       tel.Metrics().Counter(observability.MOrdersCleaned),
		receiptWrites: tel.Metrics().Counter(observability.MReceiptWrites),
		orders:        orders,
	}, nil
}

// NewCart starts an empty cart with its own id.
func (s *Service) NewCart() *Cart {
	return &Cart{ID: s.ids.NewID()}
}

// AddToCart validates the request against live stock and appends a line
// item with the product's current price snapshotted. Nothing is reserved
// yet; failure leaves the cart untouched.
func (s *Service) AddToCart(cart *Cart, name string, quantity int) (domorder.LineItem, error) {
	if quantity <= 0 {
		return domorder.LineItem{}, domorder.ErrInvalidInput
	}
	product, err := s.ledger.Find(name)
	if err != nil {
		return domorder.LineItem{}, domorder.ErrProductNotFound
	}
	// Lines already in the cart count against available stock.
	if cart.requiredQuantities()[product.Name]+quantity > product.Quantity {
		return domorder.LineItem{}, dominv.ErrInsufficientStock
	}
	item := domorder.LineItem{
		Name:     product.Name,
		Price:    product.Price,
		Quantity: quantity,
	}
	cart.items = append(cart.items, item)
	return item, nil
}

// Quote prices the cart without committing anything.
func (s *Service) Quote(cart *Cart, discountOptIn bool) domorder.Amounts {
	if cart == nil {
		return domorder.Amounts{}
	}
	return domorder.PriceItems(cart.items, discountOptIn)
}

// Confirm turns a cart into a persisted order: stock is reserved for
// every line, the next sequential id is allocated, both collections are
// persisted, and the receipt is written.
func (s *Service) Confirm(ctx context.Context, cart *Cart, username string, discountOptIn bool) (_ *domorder.Order, err error) {
	start := time.Now()
	outcome, statusText := "success", "OK"

	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+"ConfirmOrder",
		attribute.String("order.username", username),
	)
	logger := logctx.FromOr(ctx, s.log).With(observability.F("operation", "confirm_order"))

	defer func() {
		lat := time.Since(start).Seconds()
		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, statusText)
			} else {
				span.SetStatus(codes.Ok, statusText)
			}
			span.End()
		}
		s.count("confirm_order", outcome)
		if s.opDuration != nil {
			s.opDuration.Observe(lat, observability.L("operation", "confirm_order"))
		}
		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("confirm_order_done", fields...)
	}()

	if err = ctx.Err(); err != nil {
		outcome, statusText = "error", "CONTEXT_CANCELED"
		return nil, err
	}
	if username == "" {
		outcome, statusText = "error", "USERNAME_REQUIRED"
		return nil, domorder.ErrInvalidInput
	}
	if cart.Empty() {
		outcome, statusText = "error", "EMPTY_ORDER"
		return nil, domorder.ErrEmptyOrder
	}

	// Stock may have moved since the lines entered the cart; re-validate
	// the aggregate demand before reserving anything.
	for name, required := range cart.requiredQuantities() {
		product, findErr := s.ledger.Find(name)
		if findErr != nil {
			outcome, statusText = "error", "PRODUCT_NOT_FOUND"
			err = domorder.ErrProductNotFound
			return nil, err
		}
		if required > product.Quantity {
			outcome, statusText = "error", "INSUFFICIENT_STOCK"
			err = dominv.ErrInsufficientStock
			return nil, err
		}
	}

	for _, item := range cart.items {
		if err = s.ledger.Reserve(ctx, item.Name, item.Quantity); err != nil {
			outcome, statusText = "error", "RESERVE_FAILED"
			return nil, err
		}
	}
	if err = s.ledger.Persist(ctx); err != nil {
		s.releaseItems(ctx, cart.items)
		outcome, statusText = "error", "INVENTORY_PERSIST_FAILED"
		return nil, err
	}

	now := time.Now()
	o := &domorder.Order{
		ID:            domorder.NextID(s.orders),
		Username:      username,
		Items:         cart.Items(),
		DiscountOptIn: discountOptIn,
		Timestamp:     now,
		ReceiptFile:   fmt.Sprintf("receipt_%s_%s.txt", username, now.Format(domorder.FileTimestampLayout)),
	}
	o.Reprice()

	s.orders = append(s.orders, o)
	if err = s.persist(ctx); err != nil {
		s.orders = s.orders[:len(s.orders)-1]
		s.releaseItems(ctx, o.Items)
		_ = s.ledger.Persist(ctx)
		outcome, statusText = "error", "ORDERS_PERSIST_FAILED"
		return nil, err
	}

	if writeErr := s.receipts.Write(o); writeErr != nil {
		// The order is already durable; a failed receipt only loses the artifact.
		logger.Error("receipt_write_failed",
			observability.F("order_id", o.ID),
			observability.F("error", writeErr.Error()),
		)
		s.countReceipt("error")
	} else {
		s.countReceipt("success")
	}

	if span != nil {
		span.SetAttributes(attribute.String("order.id", o.ID))
	}
	if s.confirmed != nil {
		s.confirmed.Add(1)
	}
	return o.Clone(), nil
}

// Orders returns cloned snapshots in stored order.
func (s *Service) Orders() []*domorder.Order {
	out := make([]*domorder.Order, len(s.orders))
	for i, o := range s.orders {
		out[i] = o.Clone()
	}
	return out
}

// Get returns a clone of the identified order.
func (s *Service) Get(orderID string) (*domorder.Order, error) {
	o := s.find(orderID)
	if o == nil {
		return nil, domorder.ErrNotFound
	}
	return o.Clone(), nil
}

// IsExpired reports whether the order's modification window has elapsed.
func (s *Service) IsExpired(o *domorder.Order) bool {
	return o.Expired(time.Now(), s.window)
}

// MinutesRemaining reports the minutes left in the modification window.
func (s *Service) MinutesRemaining(o *domorder.Order) int {
	return o.MinutesRemaining(time.Now(), s.window)
}

// EditItemQuantity changes one line item of a live order. The old
// reservation is provisionally returned to the ledger, the new quantity
// is validated against the restored stock, and the whole order is
// repriced. A successful edit refreshes the timestamp, restarting the
// modification window, and rewrites the receipt.
func (s *Service) EditItemQuantity(ctx context.Context, orderID string, index, newQuantity int) (*domorder.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o := s.find(orderID)
	if o == nil {
		return nil, domorder.ErrNotFound
	}
	if o.Expired(time.Now(), s.window) {
		return nil, domorder.ErrExpired
	}
	if index < 1 || index > len(o.Items) {
		return nil, domorder.ErrInvalidIndex
	}
	if newQuantity <= 0 {
		return nil, domorder.ErrInvalidInput
	}

	item := &o.Items[index-1]
	if _, err := s.ledger.Find(item.Name); err == nil {
		// Provisionally return the current reservation, then validate the
		// new quantity against the restored stock.
		s.ledger.Release(ctx, item.Name, item.Quantity)
		if err := s.ledger.Reserve(ctx, item.Name, newQuantity); err != nil {
			if reserveErr := s.ledger.Reserve(ctx, item.Name, item.Quantity); reserveErr != nil {
				return nil, reserveErr
			}
			return nil, err
		}
	}
	// A product deleted since confirmation gets no stock adjustment; the
	// line itself is still editable.

	oldQuantity := item.Quantity
	item.Quantity = newQuantity
	o.Reprice()
	o.Timestamp = time.Now()

	if err := s.ledger.Persist(ctx); err != nil {
		return nil, err
	}
	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	if writeErr := s.receipts.Write(o); writeErr != nil {
		s.logOp(ctx, "receipt_write_failed",
			observability.F("order_id", o.ID),
			observability.F("error", writeErr.Error()),
		)
		s.countReceipt("error")
	} else {
		s.countReceipt("success")
	}

	s.logOp(ctx, "order_item_edited",
		observability.F("order_id", o.ID),
		observability.F("item", item.Name),
		observability.F("old_quantity", oldQuantity),
		observability.F("new_quantity", newQuantity),
	)
	s.count("edit_order", "success")
	return o.Clone(), nil
}

// Delete removes a live order: every reservation is released back to
// the ledger, the receipt artifact is removed, and both collections are
// persisted.
func (s *Service) Delete(ctx context.Context, orderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	i := s.indexOf(orderID)
	if i < 0 {
		return domorder.ErrNotFound
	}
	o := s.orders[i]
	if o.Expired(time.Now(), s.window) {
		return domorder.ErrExpired
	}

	s.releaseItems(ctx, o.Items)
	if err := s.receipts.Remove(o); err != nil {
		s.logOp(ctx, "receipt_remove_failed",
			observability.F("order_id", o.ID),
			observability.F("error", err.Error()),
		)
	}
	s.orders = append(s.orders[:i], s.orders[i+1:]...)

	if err := s.persist(ctx); err != nil {
		return err
	}
	if err := s.ledger.Persist(ctx); err != nil {
		return err
	}

	s.logOp(ctx, "order_deleted", observability.F("order_id", o.ID))
	s.count("delete_order", "success")
	return nil
}

// CleanupExpired releases stock and removes receipts for every order
// whose modification window has elapsed, then persists both collections
// once. It returns the number of orders removed.
func (s *Service) CleanupExpired(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	now := time.Now()
	remaining := s.orders[:0:0]
	removed := 0
	for _, o := range s.orders {
		if !o.Expired(now, s.window) {
			remaining = append(remaining, o)
			continue
		}
		s.releaseItems(ctx, o.Items)
		if err := s.receipts.Remove(o); err != nil {
			s.logOp(ctx, "receipt_remove_failed",
				observability.F("order_id", o.ID),
				observability.F("error", err.Error()),
			)
		}
		removed++
	}
	if removed == 0 {
		return 0, nil
	}

	s.orders = remaining
	if err := s.persist(ctx); err != nil {
		return 0, err
	}
	if err := s.ledger.Persist(ctx); err != nil {
		return 0, err
	}

	if s.cleaned != nil {
		s.cleaned.Add(float64(removed))
	}
	s.logOp(ctx, "expired_orders_cleaned", observability.F("count", removed))
	return removed, nil
}

func (s *Service) releaseItems(ctx context.Context, items []domorder.LineItem) {
	for _, item := range items {
		s.ledger.Release(ctx, item.Name, item.Quantity)
	}
}

func (s *Service) find(orderID string) *domorder.Order {
	if i := s.indexOf(orderID); i >= 0 {
		return s.orders[i]
	}
	return nil
}

func (s *Service) indexOf(orderID string) int {
	for i, o := range s.orders {
		if o.ID == orderID {
			return i
		}
	}
	return -1
}

func (s *Service) persist(ctx context.Context) error {
	if err := s.store.Save(ctx, s.orders); err != nil {
		return wrapRepositoryError(err)
	}
	return nil
}

func (s *Service) logOp(ctx context.Context, event string, fields ...observability.Field) {
	logctx.FromOr(ctx, s.log).Info(event, fields...)
}

func (s *Service) count(op, outcome string) {
	if s.opCounter != nil {
		s.opCounter.Add(1,
			observability.L("component", componentEngine),
			observability.L("operation", op),
			observability.L("outcome", outcome),
		)
	}
}

func (s *Service) countReceipt(outcome string) {
	if s.receiptWrites != nil {
		s.receiptWrites.Add(1, observability.L("outcome", outcome))
	}
}
