package inventory

import (
	"errors"
	"strings"
)

var (
	ErrInvalidInput      = errors.New("inventory: invalid input")
	ErrDuplicateProduct  = errors.New("inventory: product already exists")
	ErrNotFound          = errors.New("inventory: product not found")
	ErrNoChange          = errors.New("inventory: no change")
	ErrNothingToUndo     = errors.New("inventory: nothing to undo")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

// Product is a single catalog entry. Name is the collection key,
// compared case-insensitively.
type Product struct {
	Name     string
	Category string
	Price    float64
	Quantity int
}

func NewProduct(name, category string, price float64, quantity int) (*Product, error) {
	name = strings.TrimSpace(name)
	category = strings.TrimSpace(category)
	if name == "" || category == "" {
		return nil, ErrInvalidInput
	}
	if price < 0 || quantity < 0 {
		return nil, ErrInvalidInput
	}
	return &Product{
		Name:     name,
		Category: category,
		Price:    price,
		Quantity: quantity,
	}, nil
}

// NameMatches reports whether the product is keyed by the given name.
func (p *Product) NameMatches(name string) bool {
	return strings.EqualFold(p.Name, name)
}

// Deduct reserves quantity units of stock.
func (p *Product) Deduct(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidInput
	}
	if quantity > p.Quantity {
		return ErrInsufficientStock
	}
	p.Quantity -= quantity
	return nil
}

// Restore releases a previous reservation back into stock.
func (p *Product) Restore(quantity int) {
	if quantity > 0 {
		p.Quantity += quantity
	}
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// Patch carries the fields of a partial update. Blank strings and nil
// numerics mean "keep the current value".
type Patch struct {
	Name     string
	Category string
	Price    *float64
	Quantity *int
}

// Apply returns a copy of p with the set fields of the patch applied.
func (patch Patch) Apply(p *Product) (*Product, error) {
	updated := p.Clone()
	if name := strings.TrimSpace(patch.Name); name != "" {
		updated.Name = name
	}
	if category := strings.TrimSpace(patch.Category); category != "" {
		updated.Category = category
	}
	if patch.Price != nil {
		if *patch.Price < 0 {
			return nil, ErrInvalidInput
		}
		updated.Price = *patch.Price
	}
	if patch.Quantity != nil {
		if *patch.Quantity < 0 {
			return nil, ErrInvalidInput
		}
		updated.Quantity = *patch.Quantity
	}
	return updated, nil
}

type StockLevel string

const (
	StockLow      StockLevel = "low"
	StockModerate StockLevel = "moderate"
	StockGood     StockLevel = "good"
)

const (
	lowStockThreshold      = 20
	moderateStockThreshold = 100
)

// StockStatus classifies a quantity into a display band. It never gates
// any operation.
func StockStatus(quantity int) StockLevel {
	switch {
	case quantity < lowStockThreshold:
		return StockLow
	case quantity < moderateStockThreshold:
		return StockModerate
	default:
		return StockGood
	}
}
