// Package shift manages the cash-drawer session lifecycle: opening with a
// counted float, accumulating sale and movement totals while active, and a
// single immutable close with variance.
package shift

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"tillsync/internal/model"
	"tillsync/internal/syncer"
)

var (
	// ErrOfflineUnconfirmed means the shift history could not be verified
	// against the remote store and the operator has not explicitly accepted
	// opening on possibly stale data. Shift creation fails closed.
	ErrOfflineUnconfirmed = errors.New("shift history unverified while offline, confirmation required")
	// ErrViewOnly means the session has no drawer open.
	ErrViewOnly = errors.New("session is view-only, no drawer operations allowed")
	// ErrShiftClosed means the target shift was already closed.
	ErrShiftClosed = errors.New("shift is closed and immutable")
	// ErrNoActiveShift means the operator has no open shift.
	ErrNoActiveShift = errors.New("no active shift for operator")
)

// OpenParams controls shift opening. A nil StartingCash requests view-only
// mode: the operator logs in without a drawer and no shift record is created.
type OpenParams struct {
	StartingCash   *decimal.Decimal
	Notes          string
	ConfirmOffline bool
}

// Service is the shift surface consumed by the session guard and HTTP
// handlers.
type Service interface {
	Open(ctx context.Context, sess model.SessionContext, params OpenParams) (*model.Shift, error)
	Resume(ctx context.Context, sess model.SessionContext) (*model.Shift, error)
	Close(ctx context.Context, sess model.SessionContext, actualCash decimal.Decimal, notes string) (*model.Shift, error)
	RecordSale(ctx context.Context, sess model.SessionContext, receipt *model.Receipt) (*model.Receipt, error)
	RecordCashMovement(ctx context.Context, sess model.SessionContext, kind string, amount decimal.Decimal, note string) (*model.Shift, error)
}

type Manager struct {
	co syncer.Service
}

func NewManager(co syncer.Service) *Manager {
	return &Manager{co: co}
}

// Open starts a drawer session for the operator. If the operator already has
// an active shift it is resumed as-is: opening is idempotent and never
// duplicates a drawer. When the shift history can only be read from the local
// replica, opening requires ConfirmOffline; a stale "no active shift" answer
// must never silently create a second drawer. Returns (nil, nil) for
// view-only mode.
func (m *Manager) Open(ctx context.Context, sess model.SessionContext, params OpenParams) (*model.Shift, error) {
	existing, stale, err := m.findActive(ctx, sess)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.Info().Str("shift_id", existing.ID).Str("operator_id", sess.OperatorID).
			Msg("shift: resuming active shift")
		return existing, nil
	}
	if params.StartingCash == nil {
		return nil, nil
	}
	if stale && !params.ConfirmOffline {
		return nil, ErrOfflineUnconfirmed
	}

	now := time.Now().UTC()
	sh := &model.Shift{
		ID:           uuid.NewString(),
		OperatorID:   sess.OperatorID,
		OperatorName: sess.OperatorName,
		StartingCash: *params.StartingCash,
		ExpectedCash: *params.StartingCash,
		Notes:        params.Notes,
		Status:       model.ShiftActive,
		OpenedAt:     now,
		UpdatedAt:    now,
	}
	if err := m.write(ctx, sess, sh); err != nil {
		return nil, err
	}
	log.Info().Str("shift_id", sh.ID).Str("operator_id", sess.OperatorID).
		Str("starting_cash", sh.StartingCash.String()).Msg("shift: opened")
	return sh, nil
}

// Resume returns the operator's active shift, or ErrNoActiveShift.
func (m *Manager) Resume(ctx context.Context, sess model.SessionContext) (*model.Shift, error) {
	existing, _, err := m.findActive(ctx, sess)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNoActiveShift
	}
	return existing, nil
}

// Close ends the session's shift. The declared drawer count fixes ActualCash
// and Variance once; a closed shift is never written again.
func (m *Manager) Close(ctx context.Context, sess model.SessionContext, actualCash decimal.Decimal, notes string) (*model.Shift, error) {
	sh, err := m.loadSessionShift(ctx, sess)
	if err != nil {
		return nil, err
	}
	if sh.Status == model.ShiftClosed {
		return nil, ErrShiftClosed
	}

	sh.RecomputeExpectedCash()
	variance := actualCash.Sub(sh.ExpectedCash)
	now := time.Now().UTC()
	sh.ActualCash = &actualCash
	sh.Variance = &variance
	if notes != "" {
		sh.Notes = notes
	}
	sh.Status = model.ShiftClosed
	sh.ClosedAt = &now
	sh.UpdatedAt = now

	if err := m.write(ctx, sess, sh); err != nil {
		return nil, err
	}
	log.Info().Str("shift_id", sh.ID).
		Str("expected", sh.ExpectedCash.String()).
		Str("actual", actualCash.String()).
		Str("variance", variance.String()).
		Msg("shift: closed")
	return sh, nil
}

// RecordSale finalizes a receipt and folds it into the shift's running
// totals. The receipt is written first so a crash between the two writes
// loses a total update, never a sale.
func (m *Manager) RecordSale(ctx context.Context, sess model.SessionContext, receipt *model.Receipt) (*model.Receipt, error) {
	sh, err := m.loadSessionShift(ctx, sess)
	if err != nil {
		return nil, err
	}
	if sh.Status == model.ShiftClosed {
		return nil, ErrShiftClosed
	}

	if receipt.ID == "" {
		receipt.ID = uuid.NewString()
	}
	receipt.OperatorID = sess.OperatorID
	receipt.ShiftID = sh.ID
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = time.Now().UTC()
	}

	rec, err := model.ToRecord(receipt)
	if err != nil {
		return nil, err
	}
	if _, err := m.co.Write(ctx, sess, model.CollectionReceipts, receipt.ID, rec); err != nil {
		return nil, err
	}

	sh.TotalSales = sh.TotalSales.Add(receipt.Total)
	switch receipt.PaymentMethod {
	case model.PayCash:
		sh.CashSales = sh.CashSales.Add(receipt.Total)
	case model.PayCard:
		sh.CardSales = sh.CardSales.Add(receipt.Total)
	default:
		sh.OtherSales = sh.OtherSales.Add(receipt.Total)
	}
	sh.TransactionCount++
	sh.RecomputeExpectedCash()
	sh.UpdatedAt = time.Now().UTC()

	if err := m.write(ctx, sess, sh); err != nil {
		return nil, err
	}
	return receipt, nil
}

// RecordCashMovement appends a pay-in or pay-out to the active shift.
func (m *Manager) RecordCashMovement(ctx context.Context, sess model.SessionContext, kind string, amount decimal.Decimal, note string) (*model.Shift, error) {
	if kind != model.MovementPayIn && kind != model.MovementPayOut {
		return nil, errors.New("cash movement kind must be payin or payout")
	}
	if !amount.IsPositive() {
		return nil, errors.New("cash movement amount must be positive")
	}

	sh, err := m.loadSessionShift(ctx, sess)
	if err != nil {
		return nil, err
	}
	if sh.Status == model.ShiftClosed {
		return nil, ErrShiftClosed
	}

	now := time.Now().UTC()
	sh.CashMovements = append(sh.CashMovements, model.CashMovement{
		ID:        uuid.NewString(),
		Kind:      kind,
		Amount:    amount,
		Note:      note,
		CreatedAt: now,
	})
	sh.RecomputeExpectedCash()
	sh.UpdatedAt = now

	if err := m.write(ctx, sess, sh); err != nil {
		return nil, err
	}
	return sh, nil
}

// findActive locates the operator's active shift. stale reports that the
// answer came from the local replica and could not be verified remotely.
func (m *Manager) findActive(ctx context.Context, sess model.SessionContext) (*model.Shift, bool, error) {
	res, err := m.co.Read(ctx, sess, model.CollectionShifts, syncer.Filter{
		Equals: map[string]string{
			"operatorId": sess.OperatorID,
			"status":     model.ShiftActive,
		},
	})
	if err != nil {
		return nil, false, err
	}
	shifts, err := model.DecodeRecords[model.Shift](res.Records)
	if err != nil {
		return nil, res.Stale, err
	}
	for i := range shifts {
		if shifts[i].Status == model.ShiftActive {
			return &shifts[i], res.Stale, nil
		}
	}
	return nil, res.Stale, nil
}

func (m *Manager) loadSessionShift(ctx context.Context, sess model.SessionContext) (*model.Shift, error) {
	if sess.ViewOnly {
		return nil, ErrViewOnly
	}
	if sess.ShiftID == "" {
		return nil, ErrNoActiveShift
	}
	res, err := m.co.Read(ctx, sess, model.CollectionShifts, syncer.Filter{
		Equals: map[string]string{"id": sess.ShiftID},
	})
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, ErrNoActiveShift
	}
	sh, err := model.DecodeRecord[model.Shift](res.Records[0])
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

func (m *Manager) write(ctx context.Context, sess model.SessionContext, sh *model.Shift) error {
	rec, err := model.ToRecord(sh)
	if err != nil {
		return err
	}
	_, err = m.co.Write(ctx, sess, model.CollectionShifts, sh.ID, rec)
	return err
}
