package replica

import (
	"context"
	"time"

	"tillsync/internal/model"
)

// Enqueue appends a write to the durable pending queue. Seq is assigned by
// the database, preserving local commit order for the flusher.
func (s *Store) Enqueue(ctx context.Context, pw *model.PendingWrite) error {
	if pw.Status == "" {
		pw.Status = model.WritePending
	}
	if pw.EnqueuedAt.IsZero() {
		pw.EnqueuedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(pw).Error
}

// Due returns pending writes ready for a push attempt, in local commit order.
// Entries waiting out a retry backoff are excluded.
func (s *Store) Due(ctx context.Context, now time.Time, limit int) ([]model.PendingWrite, error) {
	var out []model.PendingWrite
	err := s.db.WithContext(ctx).
		Where("status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?)", model.WritePending, now).
		Order("seq asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountPending returns the number of writes still awaiting acknowledgement.
func (s *Store) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.PendingWrite{}).
		Where("status = ?", model.WritePending).
		Count(&n).Error
	return n, err
}

// MarkWriteSynced records a remote acknowledgement.
func (s *Store) MarkWriteSynced(ctx context.Context, seq int64) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&model.PendingWrite{}).
		Where("seq = ?", seq).
		Updates(map[string]any{
			"status":        model.WriteSynced,
			"last_attempt":  now,
			"last_error":    nil,
			"next_retry_at": nil,
		}).Error
}

// MarkWriteRetry records a failed attempt and schedules the next one.
func (s *Store) MarkWriteRetry(ctx context.Context, seq int64, attempts int, reason string, nextRetry time.Time) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&model.PendingWrite{}).
		Where("seq = ?", seq).
		Updates(map[string]any{
			"attempts":      attempts,
			"status":        model.WritePending,
			"last_error":    reason,
			"last_attempt":  now,
			"next_retry_at": nextRetry,
		}).Error
}

// MarkWriteFailed parks a write in the error state; it will not be retried.
func (s *Store) MarkWriteFailed(ctx context.Context, seq int64, attempts int, reason string) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&model.PendingWrite{}).
		Where("seq = ?", seq).
		Updates(map[string]any{
			"attempts":      attempts,
			"status":        model.WriteError,
			"last_error":    reason,
			"last_attempt":  now,
			"next_retry_at": nil,
		}).Error
}

// PurgeSynced removes acknowledged queue entries. A write is only ever
// deleted after the remote store has confirmed it.
func (s *Store) PurgeSynced(ctx context.Context) error {
	return s.db.WithContext(ctx).
		Delete(&model.PendingWrite{}, "status = ?", model.WriteSynced).Error
}
