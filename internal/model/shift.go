package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shift status. A shift is a cash-drawer session bounded by clock-in/clock-out.
// Once closed it is immutable.
const (
	ShiftActive = "active"
	ShiftClosed = "closed"
)

// Payment methods recognized on receipts. Anything else counts as "other"
// in the shift running totals.
const (
	PayCash = "cash"
	PayCard = "card"
)

// Cash movement kinds.
const (
	MovementPayIn  = "payin"
	MovementPayOut = "payout"
)

// CashMovement is a pay-in or pay-out recorded against an active shift.
// Movements are append-only; corrections are inverse entries.
type CashMovement struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Shift is one operator's cash-drawer session. ExpectedCash is maintained as
// sales and movements are recorded: startingCash + cash sales + pay-ins −
// pay-outs. Variance is computed once, at close, from the declared count.
type Shift struct {
	ID           string           `json:"id"`
	OperatorID   string           `json:"operatorId"`
	OperatorName string           `json:"operatorName,omitempty"`
	StartingCash decimal.Decimal  `json:"startingCash"`
	ExpectedCash decimal.Decimal  `json:"expectedCash"`
	ActualCash   *decimal.Decimal `json:"actualCash,omitempty"`
	Variance     *decimal.Decimal `json:"variance,omitempty"`

	TotalSales       decimal.Decimal `json:"totalSales"`
	CashSales        decimal.Decimal `json:"cashSales"`
	CardSales        decimal.Decimal `json:"cardSales"`
	OtherSales       decimal.Decimal `json:"otherSales"`
	TransactionCount int             `json:"transactionCount"`

	CashMovements []CashMovement `json:"cashMovements,omitempty"`
	Notes         string         `json:"notes,omitempty"`

	Status    string     `json:"status"`
	OpenedAt  time.Time  `json:"openedAt"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// RecomputeExpectedCash refreshes the running drawer expectation.
func (s *Shift) RecomputeExpectedCash() {
	expected := s.StartingCash.Add(s.CashSales)
	for _, m := range s.CashMovements {
		switch m.Kind {
		case MovementPayIn:
			expected = expected.Add(m.Amount)
		case MovementPayOut:
			expected = expected.Sub(m.Amount)
		}
	}
	s.ExpectedCash = expected
}
