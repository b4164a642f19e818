package receipt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	domorder "github.com/hamimarket/minimart/internal/domain/order"
)

const rule = "--------------------------------------------------"

// Writer renders one plain-text receipt file per order under a
// dedicated directory. Write overwrites any existing artifact for the
// same order.
type Writer struct {
	dir       string
	storeName string
}

func NewWriter(dir, storeName string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("receipt: prepare dir: %w", err)
	}
	return &Writer{dir: dir, storeName: storeName}, nil
}

func (w *Writer) Write(o *domorder.Order) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - Receipt\n", w.storeName)
	fmt.Fprintf(&b, "Order ID: %s\n", o.ID)
	fmt.Fprintf(&b, "User: %s\n", o.Username)
	fmt.Fprintf(&b, "Timestamp: %s\n\n", o.Timestamp.Format(domorder.TimestampLayout))

	fmt.Fprintf(&b, "%-15s%-6s%-10s%-12s\n", "Name", "Qty", "Price", "Line")
	b.WriteString(rule + "\n")
	for _, item := range o.Items {
		fmt.Fprintf(&b, "%-15s%-6d%-10.2f%-12.2f\n", item.Name, item.Quantity, item.Price, item.Total())
	}
	b.WriteString(rule + "\n")

	fmt.Fprintf(&b, "Subtotal: $%.2f\n", o.Subtotal)
	fmt.Fprintf(&b, "Tax: $%.2f\n", o.Tax)
	fmt.Fprintf(&b, "Discount: $%.2f\n", o.Discount)
	fmt.Fprintf(&b, "Total: $%.2f\n", o.Total)

	if err := os.WriteFile(w.Path(o), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("receipt: write: %w", err)
	}
	return nil
}

// Remove deletes the order's receipt artifact. A receipt that never got
// written, or was already removed, is not an error.
func (w *Writer) Remove(o *domorder.Order) error {
	err := os.Remove(w.Path(o))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("receipt: remove: %w", err)
	}
	return nil
}

// Path returns where the order's receipt lives on disk.
func (w *Writer) Path(o *domorder.Order) string {
	return filepath.Join(w.dir, o.ReceiptFile)
}
