package order

import (
	"fmt"
	"strconv"
	"strings"
)

const idPrefix = "ORD_"

// NextID allocates the next sequential order id: one greater than the
// highest numeric suffix present, zero-padded to three digits. Deleted
// orders leave gaps; their ids are never reused.
func NextID(orders []*Order) string {
	max := 0
	for _, o := range orders {
		suffix, ok := strings.CutPrefix(o.ID, idPrefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil || n <= max {
			continue
		}
		max = n
	}
	return fmt.Sprintf("%s%03d", idPrefix, max+1)
}
