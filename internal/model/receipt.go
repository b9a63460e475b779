package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptItem is one line of a finalized sale.
type ReceiptItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Receipt is a finalized sale. Receipts are created at the terminal, written
// to the local replica first, and pushed to the remote store opportunistically.
// CreatedAt is set at the terminal and preserved through sync.
type Receipt struct {
	ID            string          `json:"id"`
	OperatorID    string          `json:"operatorId"`
	ShiftID       string          `json:"shiftId"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"paymentMethod"`
	Items         []ReceiptItem   `json:"items,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Ticket is a parked (suspended) cart that can be resumed later.
type Ticket struct {
	ID         string        `json:"id"`
	OperatorID string        `json:"operatorId"`
	Name       string        `json:"name"`
	Items      []ReceiptItem `json:"items,omitempty"`
	Status     string        `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}
