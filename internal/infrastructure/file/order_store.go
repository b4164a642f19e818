package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"

	domorder "github.com/hamimarket/minimart/internal/domain/order"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type itemDoc struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type orderDoc struct {
	OrderID       string    `json:"order_id"`
	Username      string    `json:"username"`
	Products      []itemDoc `json:"products"`
	Subtotal      float64   `json:"subtotal"`
	Tax           float64   `json:"tax"`
	Discount      float64   `json:"discount"`
	Total         float64   `json:"total"`
	DiscountOptIn *bool     `json:"discount_opt_in,omitempty"`
	Timestamp     string    `json:"timestamp"`
	ReceiptFile   string    `json:"receipt_file"`
}

// OrderStore persists the order collection as an indented JSON array,
// rewritten whole on every save.
type OrderStore struct {
	path string
}

func NewOrderStore(path string) (*OrderStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("order store: prepare dir: %w", err)
	}
	return &OrderStore{path: path}, nil
}

func (s *OrderStore) Load(ctx context.Context) ([]*domorder.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("order store: read: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var docs []orderDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("order store: decode: %w", err)
	}

	orders := make([]*domorder.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, docToOrder(doc))
	}
	return orders, nil
}

func (s *OrderStore) Save(ctx context.Context, orders []*domorder.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	docs := make([]orderDoc, 0, len(orders))
	for _, o := range orders {
		docs = append(docs, orderToDoc(o))
	}

	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("order store: encode: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("order store: write: %w", err)
	}
	return nil
}

func docToOrder(doc orderDoc) *domorder.Order {
	items := make([]domorder.LineItem, 0, len(doc.Products))
	for _, it := range doc.Products {
		items = append(items, domorder.LineItem{
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
		})
	}

	// Rows written before the opt-in flag existed derive it from the
	// recorded discount.
	optIn := doc.Discount > 0
	if doc.DiscountOptIn != nil {
		optIn = *doc.DiscountOptIn
	}

	// A malformed timestamp loads as the zero time, which reads as
	// long-expired rather than failing the collection.
	ts, _ := time.ParseInLocation(domorder.TimestampLayout, doc.Timestamp, time.Local)

	return &domorder.Order{
		ID:            doc.OrderID,
		Username:      doc.Username,
		Items:         items,
		Subtotal:      doc.Subtotal,
		Tax:           doc.Tax,
		Discount:      doc.Discount,
		Total:         doc.Total,
		DiscountOptIn: optIn,
		Timestamp:     ts,
		ReceiptFile:   doc.ReceiptFile,
	}
}

func orderToDoc(o *domorder.Order) orderDoc {
	items := make([]itemDoc, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, itemDoc{
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
		})
	}
	optIn := o.DiscountOptIn
	return orderDoc{
		OrderID:       o.ID,
		Username:      o.Username,
		Products:      items,
		Subtotal:      o.Subtotal,
		Tax:           o.Tax,
		Discount:      o.Discount,
		Total:         o.Total,
		DiscountOptIn: &optIn,
		Timestamp:     o.Timestamp.Format(domorder.TimestampLayout),
		ReceiptFile:   o.ReceiptFile,
	}
}
