package order

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinventory "github.com/hamimarket/minimart/internal/application/inventory"
	dominv "github.com/hamimarket/minimart/internal/domain/inventory"
	domorder "github.com/hamimarket/minimart/internal/domain/order"
	"github.com/hamimarket/minimart/internal/infrastructure/id"
	"github.com/hamimarket/minimart/internal/infrastructure/memory"
	"github.com/hamimarket/minimart/internal/infrastructure/receipt"
)

type fixture struct {
	engine     *Service
	ledger     *appinventory.Service
	orderStore *memory.OrderStore
	receipts   *receipt.Writer
}

func newFixture(t *testing.T, seed ...*dominv.Product) *fixture {
	t.Helper()
	ctx := context.Background()

	ledger, err := appinventory.NewService(ctx, memory.NewProductStore(seed...), nil)
	require.NoError(t, err)

	receipts, err := receipt.NewWriter(t.TempDir(), "Hami MiniMarket")
	require.NoError(t, err)

	orderStore := memory.NewOrderStore()
	engine, err := NewService(ctx, orderStore, ledger, receipts, id.NewUUIDGenerator(), 0, nil)
	require.NoError(t, err)

	return &fixture{engine: engine, ledger: ledger, orderStore: orderStore, receipts: receipts}
}

func seedApple(qty int) *dominv.Product {
	return &dominv.Product{Name: "Apple", Category: "Fruit", Price: 10.00, Quantity: qty}
}

func mustStock(t *testing.T, ledger *appinventory.Service, name string) int {
	t.Helper()
	p, err := ledger.Find(name)
	require.NoError(t, err)
	return p.Quantity
}

func TestAddToCart(t *testing.T) {
	f := newFixture(t, seedApple(5))
	cart := f.engine.NewCart()
	assert.NotEmpty(t, cart.ID)

	_, err := f.engine.AddToCart(cart, "Banana", 1)
	assert.ErrorIs(t, err, domorder.ErrProductNotFound)

	_, err = f.engine.AddToCart(cart, "Apple", 0)
	assert.ErrorIs(t, err, domorder.ErrInvalidInput)

	_, err = f.engine.AddToCart(cart, "Apple", 6)
	assert.ErrorIs(t, err, dominv.ErrInsufficientStock)
	assert.True(t, cart.Empty(), "failed adds leave the cart untouched")

	item, err := f.engine.AddToCart(cart, "apple", 3)
	require.NoError(t, err)
	assert.Equal(t, "Apple", item.Name, "line items carry the catalog spelling")
	assert.Equal(t, 10.00, item.Price)

	// Existing cart demand counts against stock.
	_, err = f.engine.AddToCart(cart, "Apple", 3)
	assert.ErrorIs(t, err, dominv.ErrInsufficientStock)

	assert.Equal(t, 5, mustStock(t, f.ledger, "Apple"), "carting reserves nothing")
}

func TestQuote_DoesNotCommit(t *testing.T) {
	f := newFixture(t, seedApple(50))
	cart := f.engine.NewCart()
	_, err := f.engine.AddToCart(cart, "Apple", 3)
	require.NoError(t, err)

	a := f.engine.Quote(cart, true)
	assert.InDelta(t, 30.00, a.Subtotal, 1e-9)
	assert.InDelta(t, 1.50, a.Tax, 1e-9)
	assert.InDelta(t, 3.00, a.Discount, 1e-9)
	assert.InDelta(t, 28.50, a.Total, 1e-9)

	assert.Equal(t, 50, mustStock(t, f.ledger, "Apple"))
	assert.Empty(t, f.engine.Orders())
}

func TestConfirm_ReservesStockAndPersists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, seedApple(50))

	cart := f.engine.NewCart()
	_, err := f.engine.AddToCart(cart, "Apple", 3)
	require.NoError(t, err)

	o, err := f.engine.Confirm(ctx, cart, "dana", true)
	require.NoError(t, err)

	assert.Equal(t, "ORD_001", o.ID)
	assert.Equal(t, "dana", o.Username)
	assert.InDelta(t, 28.50, o.Total, 1e-9)
	assert.Equal(t, 47, mustStock(t, f.ledger, "Apple"))

	persisted, err := f.orderStore.Load(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, "ORD_001", persisted[0].ID)

	data, err := os.ReadFile(f.receipts.Path(o))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Hami MiniMarket - Receipt")
	assert.Contains(t, content, "Order ID: ORD_001")
	assert.Contains(t, content, "Total: $28.50")
	assert.True(t, strings.HasPrefix(o.ReceiptFile, "receipt_dana_"))
}

func TestConfirm_EmptyCart(t *testing.T) {
	f := newFixture(t, seedApple(50))
	_, err := f.engine.Confirm(context.Background(), f.engine.NewCart(), "dana", false)
	assert.ErrorIs(t, err, domorder.ErrEmptyOrder)
}

func TestConfirm_RevalidatesStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, seedApple(5))

	cart := f.engine.NewCart()
	_, err := f.engine.AddToCart(cart, "Apple", 5)
	require.NoError(t, err)

	// Stock moves between carting and confirmation.
	qty := 2
	_, err = f.ledger.UpdateProduct(ctx, "Apple", dominv.Patch{Quantity: &qty})
	require.NoError(t, err)

	_, err = f.engine.Confirm(ctx, cart, "dana", false)
	assert.ErrorIs(t, err, dominv.ErrInsufficientStock)
	assert.Equal(t, 2, mustStock(t, f.ledger, "Apple"), "failed confirm reserves nothing")
	assert.Empty(t, f.engine.Orders())
}

func TestConfirm_SnapshottedPriceSurvivesCatalogChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, seedApple(50))

	cart := f.engine.NewCart()
	_, err := f.engine.AddToCart(cart, "Apple", 3)
	require.NoError(t, err)

	price := 99.99
	_, err = f.ledger.UpdateProduct(ctx, "Apple", dominv.Patch{Price: &price})
	require.NoError(t, err)

	o, err := f.engine.Confirm(ctx, cart, "dana", false)
	require.NoError(t, err)
	assert.InDelta(t, 30.00, o.Subtotal, 1e-9, "cart-time price wins over the live catalog")
}

func TestConfirm_SequentialIDsSkipDeleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, seedApple(500))

	confirm := func() *domorder.Order {
		cart := f.engine.NewCart()
		_, err := f.engine.AddToCart(cart, "Apple", 1)
		require.NoError(t, err)
		o, err := f.engine.Confirm(ctx, cart, "dana", false)
		require.NoError(t, err)
		return o
	}

	o1, o2, o3 := confirm(), confirm(), confirm()
	assert.Equal(t, []string{"ORD_001", "ORD_002", "ORD_003"}, []string{o1.ID, o2.ID, o3.ID})

	require.NoError(t, f.engine.Delete(ctx, "ORD_002"))

	o4 := confirm()
	assert.Equal(t, "ORD_004", o4.ID, "deleted ids are never reused")
}

func TestEditItemQuantity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, seedApple(50))

	cart := f.engine.NewCart()
	_, err := f.engine.AddToCart(cart, "Apple", 10)
	require.NoError(t, err)
	o, err := f.engine.Confirm(ctx, cart, "dana", true)
	require.NoError(t, err)
	require.Equal(t, 40, mustStock(t, f.ledger, "Apple"))

	_, err = f.engine.EditItemQuantity(ctx, "ORD_999", 1, 5)
	assert.ErrorIs(t, err, domorder.ErrNotFound)

	_, err = f.engine.EditItemQuantity(ctx, o.ID, 0, 5)
	assert.ErrorIs(t, err, domorder.ErrInvalidIndex)
	_, err = f.engine.EditItemQuantity(ctx, o.ID, 2, 5)
	assert.ErrorIs(t, err, domorder.ErrInvalidIndex)

	before := f.engine.find(o.ID).Timestamp
	edited, err := f.engine.EditItemQuantity(ctx, o.ID, 1, 25)
	require.NoError(t, err)

	assert.Equal(t, 25, edited.Items[0].Quantity)
	assert.Equal(t, 25, mustStock(t, f.ledger, "Apple"), "stock reflects the new reservation")
	assert.InDelta(t, 250.00, edited.Subtotal, 1e-9)
	assert.InDelta(t, 25.00, edited.Discount, 1e-9, "opt-in recorded at checkout still applies")
	assert.False(t, edited.Timestamp.Before(before), "edit refreshes the modification window")

	data, err := os.ReadFile(f.receipts.Path(edited))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Total: $", "receipt rewritten after edit")
}

func TestEditItemQuantity_InsufficientStockRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, seedApple(10))

	cart := f.engine.NewCart()
	_, err := f.engine.AddToCart(cart, "Apple", 4)
	require.NoError(t, err)
	o, err := f.engine.Confirm(ctx, cart, "dana", false)
	require.NoError(t, err)
	require.Equal(t, 6, mustStock(t, f.ledger, "Apple"))

	// Restored stock would be 10; 11 exceeds it.
	_, err = f.engine.EditItemQuantity(ctx, o.ID, 1, 11)
	assert.ErrorIs(t, err, dominv.ErrInsufficientStock)

	assert.Equal(t, 6, mustStock(t, f.ledger, "Apple"), "provisional restoration rolled back")
	current, err := f.engine.Get(o.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, current.Items[0].Quantity, "line item unchanged")
}

func TestModify_RefusesExpiredOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, seedApple(50))

	cart := f.engine.NewCart()
	_, err := f.engine.AddToCart(cart, "Apple", 2)
	require.NoError(t, err)
	o, err := f.engine.Confirm(ctx, cart, "dana", false)
	require.NoError(t, err)

	// Age the order past the window.
	f.engine.find(o.ID).Timestamp = time.Now().Add(-61 * time.Minute)

	_, err = f.engine.EditItemQuantity(ctx, o.ID, 1, 1)
	assert.ErrorIs(t, err, domorder.ErrExpired)
	assert.ErrorIs(t, f.engine.Delete(ctx, o.ID), domorder.ErrExpired)
	assert.Equal(t, 48, mustStock(t, f.ledger, "Apple"), "refusal changes nothing")
}

func TestDelete_ReleasesReservation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, seedApple(50))

	cart := f.engine.NewCart()
	_, err := f.engine.AddToCart(cart, "Apple", 7)
	require.NoError(t, err)
	o, err := f.engine.Confirm(ctx, cart, "dana", false)
	require.NoError(t, err)
	require.Equal(t, 43, mustStock(t, f.ledger, "Apple"))

	receiptPath := f.receipts.Path(o)
	_, err = os.Stat(receiptPath)
	require.NoError(t, err)

	require.NoError(t, f.engine.Delete(ctx, o.ID))

	assert.Equal(t, 50, mustStock(t, f.ledger, "Apple"), "reserve/release round-trip")
	assert.Empty(t, f.engine.Orders())
	_, err = os.Stat(receiptPath)
	assert.True(t, errors.Is(err, os.ErrNotExist), "receipt artifact removed")

	assert.ErrorIs(t, f.engine.Delete(ctx, o.ID), domorder.ErrNotFound)
}

func TestCleanupExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, seedApple(50))

	confirm := func(qty int) *domorder.Order {
		cart := f.engine.NewCart()
		_, err := f.engine.AddToCart(cart, "Apple", qty)
		require.NoError(t, err)
		o, err := f.engine.Confirm(ctx, cart, "dana", false)
		require.NoError(t, err)
		return o
	}

	o1 := confirm(5)
	o2 := confirm(3)
	confirm(2)
	require.Equal(t, 40, mustStock(t, f.ledger, "Apple"))

	n, err := f.engine.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing expired yet")

	f.engine.find(o1.ID).Timestamp = time.Now().Add(-2 * time.Hour)
	f.engine.find(o2.ID).Timestamp = time.Now().Add(-90 * time.Minute)

	n, err = f.engine.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, 48, mustStock(t, f.ledger, "Apple"), "expired reservations released")
	remaining := f.engine.Orders()
	require.Len(t, remaining, 1)
	assert.Equal(t, "ORD_003", remaining[0].ID)

	persisted, err := f.orderStore.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, persisted, 1)
}

func TestOrdersAndGet_ReturnClones(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, seedApple(50))

	cart := f.engine.NewCart()
	_, err := f.engine.AddToCart(cart, "Apple", 1)
	require.NoError(t, err)
	o, err := f.engine.Confirm(ctx, cart, "dana", false)
	require.NoError(t, err)

	got, err := f.engine.Get(o.ID)
	require.NoError(t, err)
	got.Items[0].Quantity = 999

	again, err := f.engine.Get(o.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Items[0].Quantity)

	_, err = f.engine.Get("ORD_404")
	assert.ErrorIs(t, err, domorder.ErrNotFound)
}

func TestExpiryHelpers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, seedApple(50))

	cart := f.engine.NewCart()
	_, err := f.engine.AddToCart(cart, "Apple", 1)
	require.NoError(t, err)
	o, err := f.engine.Confirm(ctx, cart, "dana", false)
	require.NoError(t, err)

	assert.False(t, f.engine.IsExpired(o))
	assert.Greater(t, f.engine.MinutesRemaining(o), 55)

	o.Timestamp = time.Now().Add(-2 * time.Hour)
	assert.True(t, f.engine.IsExpired(o))
	assert.Zero(t, f.engine.MinutesRemaining(o))
}

func TestConfirm_OrdersPersistFailureReleasesStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, seedApple(50))

	cart := f.engine.NewCart()
	_, err := f.engine.AddToCart(cart, "Apple", 3)
	require.NoError(t, err)

	f.orderStore.FailSaves = errors.New("disk full")

	_, err = f.engine.Confirm(ctx, cart, "dana", false)
	assert.ErrorIs(t, err, ErrRepository)
	assert.Equal(t, 50, mustStock(t, f.ledger, "Apple"), "reservation released on persist failure")
	assert.Empty(t, f.engine.Orders())
}
