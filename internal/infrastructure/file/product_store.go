package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cast"

	dominv "github.com/hamimarket/minimart/internal/domain/inventory"
)

// productRow is the CSV shape of a product. Numeric fields stay strings
// on the wire and are re-parsed tolerantly: a missing or malformed
// price/quantity loads as zero instead of failing the whole file.
type productRow struct {
	Name     string `csv:"name"`
	Category string `csv:"category"`
	Price    string `csv:"price"`
	Quantity string `csv:"quantity"`
}

// ProductStore persists the product collection as a headed CSV file.
// Every save rewrites the whole file; a crash mid-write can truncate it,
// which the single-operator deployment accepts.
type ProductStore struct {
	path string
}

func NewProductStore(path string) (*ProductStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("product store: prepare dir: %w", err)
	}
	return &ProductStore{path: path}, nil
}

func (s *ProductStore) Load(ctx context.Context) ([]*dominv.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("product store: open: %w", err)
	}
	defer f.Close()

	var rows []*productRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("product store: decode: %w", err)
	}

	products := make([]*dominv.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, &dominv.Product{
			Name:     row.Name,
			Category: row.Category,
			Price:    cast.ToFloat64(row.Price),
			Quantity: cast.ToInt(row.Quantity),
		})
	}
	return products, nil
}

func (s *ProductStore) Save(ctx context.Context, products []*dominv.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows := make([]*productRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, &productRow{
			Name:     p.Name,
			Category: p.Category,
			Price:    fmt.Sprintf("%g", p.Price),
			Quantity: cast.ToString(p.Quantity),
		})
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("product store: create: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return fmt.Errorf("product store: encode: %w", err)
	}
	return nil
}
