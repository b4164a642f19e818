package order

import (
	"errors"
	"math"
	"time"
)

var (
	ErrInvalidInput    = errors.New("order: invalid input")
	ErrNotFound        = errors.New("order: not found")
	ErrExpired         = errors.New("order: modification window elapsed")
	ErrEmptyOrder      = errors.New("order: empty order")
	ErrInvalidIndex    = errors.New("order: invalid item index")
	ErrProductNotFound = errors.New("order: product not found")
)

const (
	TaxRate           = 0.05
	DiscountRate      = 0.10
	DiscountThreshold = 20.0

	// DefaultModifyWindow is how long after creation or last edit an
	// order stays editable.
	DefaultModifyWindow = 60 * time.Minute
)

const (
	// TimestampLayout is the persisted and receipt-visible timestamp format.
	TimestampLayout = "2006-01-02 15:04:05"
	// FileTimestampLayout is the filesystem-safe variant used in receipt names.
	FileTimestampLayout = "2006-01-02_15-04-05"
)

// LineItem references a product by name. Price is snapshotted when the
// item enters the cart so later catalog changes never reprice history.
type LineItem struct {
	Name     string
	Price    float64
	Quantity int
}

func (li LineItem) Total() float64 {
	return li.Price * float64(li.Quantity)
}

// Order is a confirmed purchase. Timestamp is the creation or
// last-modification instant and anchors the modification window.
type Order struct {
	ID            string
	Username      string
	Items         []LineItem
	Subtotal      float64
	Tax           float64
	Discount      float64
	Total         float64
	DiscountOptIn bool
	Timestamp     time.Time
	ReceiptFile   string
}

// Amounts are the derived money fields of an order or cart quote.
type Amounts struct {
	Subtotal float64
	Tax      float64
	Discount float64
	Total    float64
}

// PriceItems computes the amounts for a set of line items using the
// snapshotted prices. The discount applies only when the caller opted in
// and the subtotal clears the threshold; tax and discount are both
// computed on the same subtotal.
func PriceItems(items []LineItem, discountOptIn bool) Amounts {
	subtotal := 0.0
	for _, item := range items {
		subtotal += item.Total()
	}
	a := Amounts{
		Subtotal: subtotal,
		Tax:      subtotal * TaxRate,
	}
	if discountOptIn && subtotal > DiscountThreshold {
		a.Discount = subtotal * DiscountRate
	}
	a.Total = a.Subtotal + a.Tax - a.Discount
	return a
}

// Reprice recomputes the derived amounts from the current line items,
// honoring the discount opt-in recorded at checkout.
func (o *Order) Reprice() {
	a := PriceItems(o.Items, o.DiscountOptIn)
	o.Subtotal = a.Subtotal
	o.Tax = a.Tax
	o.Discount = a.Discount
	o.Total = a.Total
}

// Expired reports whether the modification window has elapsed.
func (o *Order) Expired(now time.Time, window time.Duration) bool {
	return now.Sub(o.Timestamp) >= window
}

// MinutesRemaining returns the whole minutes left in the modification
// window, clamped to zero.
func (o *Order) MinutesRemaining(now time.Time, window time.Duration) int {
	remaining := window - now.Sub(o.Timestamp)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Minutes()))
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = make([]LineItem, len(o.Items))
	copy(clone.Items, o.Items)
	return &clone
}
