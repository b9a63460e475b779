package model

// Collection names shared by the remote store contract and the local replica.
const (
	CollectionUsers      = "users"
	CollectionCategories = "categories"
	CollectionProducts   = "products"
	CollectionShifts     = "shifts"
	CollectionReceipts   = "receipts"
	CollectionTickets    = "tickets"
)

// OperatorScoped reports whether records in a collection belong to a single
// operator and must be hidden from other operators' sessions.
func OperatorScoped(collection string) bool {
	switch collection {
	case CollectionReceipts, CollectionTickets:
		return true
	default:
		return false
	}
}

// MoneyBearing reports whether a collection holds money-handling records for
// which sync conflicts must be surfaced instead of resolved last-write-wins.
func MoneyBearing(collection string) bool {
	switch collection {
	case CollectionShifts, CollectionReceipts:
		return true
	default:
		return false
	}
}
