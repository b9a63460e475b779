package dto

import (
	"github.com/shopspring/decimal"

	"tillsync/internal/model"
)

// OpenShiftRequest opens a drawer session. A nil StartingCash requests
// view-only mode. ConfirmOffline must be set to open while the shift history
// could not be verified against the remote store.
type OpenShiftRequest struct {
	StartingCash   *decimal.Decimal `json:"starting_cash" validate:"omitempty,min=0"`
	Notes          string           `json:"notes" validate:"max=500"`
	ConfirmOffline bool             `json:"confirm_offline"`
}

type CloseShiftRequest struct {
	ActualCash decimal.Decimal `json:"actual_cash" validate:"min=0"`
	Notes      string          `json:"notes" validate:"max=500"`
}

type CashMovementRequest struct {
	Kind   string          `json:"kind" validate:"required,oneof=payin payout"`
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Note   string          `json:"note" validate:"max=200"`
}

type ShiftResponse struct {
	Shift    model.Shift `json:"shift"`
	ViewOnly bool        `json:"view_only"`
	Queued   bool        `json:"queued,omitempty"`
}
