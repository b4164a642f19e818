package inventory

type ChangeKind string

const (
	ChangeAdd    ChangeKind = "add"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// Change captures enough state to reverse a single ledger mutation.
// At most one is retained at a time; every new mutation overwrites it.
type Change struct {
	Kind ChangeKind

	// Product is the created or deleted snapshot for add/delete changes.
	Product *Product

	// Old and New are the before/after snapshots for update changes.
	Old *Product
	New *Product
}
