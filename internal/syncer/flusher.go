package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"tillsync/internal/bus"
	"tillsync/internal/infra"
	"tillsync/internal/model"
)

// FlusherConfig tunes the background push loop.
type FlusherConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// Flusher drains the pending write queue toward the remote store. It wakes
// on a fixed interval, on coordinator kicks after any successful remote
// contact, and on reconnect transitions from the probe. Writes are pushed
// strictly in enqueue order so the remote store replays the terminal's
// history as it happened.
type Flusher struct {
	co  *Coordinator
	cb  *infra.CircuitBreaker
	rdb *redis.Client
	pub bus.Publisher
	cfg FlusherConfig
}

func NewFlusher(co *Coordinator, cb *infra.CircuitBreaker, rdb *redis.Client, pub bus.Publisher, cfg FlusherConfig) *Flusher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 8
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Flusher{co: co, cb: cb, rdb: rdb, pub: pub, cfg: cfg}
}

// Start runs the flush loop until ctx is cancelled.
func (f *Flusher) Start(ctx context.Context) {
	ticker := time.NewTicker(f.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-f.co.flushKick:
		case online, ok := <-f.co.probe.Events():
			if !ok {
				return
			}
			if !online {
				continue
			}
			log.Info().Msg("flusher: reconnected, draining pending writes")
		}
		if err := f.FlushOnce(ctx); err != nil {
			log.Error().Err(err).Msg("flusher: flush pass failed")
		}
	}
}

// FlushOnce pushes one batch of due pending writes. An unreachable remote
// aborts the batch without burning any item's retry budget; per-item terminal
// failures are marked, parked in the DLQ, and announced on the bus.
func (f *Flusher) FlushOnce(ctx context.Context) error {
	if !f.co.probe.Online() {
		return nil
	}

	due, err := f.co.replica.Due(ctx, time.Now().UTC(), f.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("load due writes: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	pushed := 0
	for i := range due {
		pw := &due[i]
		err := f.push(ctx, pw)
		if err == nil {
			if err := f.co.replica.MarkWriteSynced(ctx, pw.Seq); err != nil {
				return err
			}
			pushed++
			continue
		}
		if errors.Is(err, ErrRemoteUnavailable) {
			log.Debug().Int64("seq", pw.Seq).Msg("flusher: remote unavailable, stopping batch")
			break
		}
		f.fail(ctx, pw, err)
	}

	if pushed > 0 {
		if err := f.co.replica.PurgeSynced(ctx); err != nil {
			return err
		}
		now := time.Now().UTC().Format(time.RFC3339)
		if err := f.co.replica.SetSetting(ctx, model.SettingLastSyncTime, now); err != nil {
			return err
		}
		log.Info().Int("pushed", pushed).Int("batch", len(due)).Msg("flusher: pending writes synced")
	}
	return nil
}

func (f *Flusher) push(ctx context.Context, pw *model.PendingWrite) error {
	switch pw.Action {
	case model.ActionCreate:
		return f.pushCreate(ctx, pw)
	case model.ActionUpdate:
		return f.pushUpdate(ctx, pw)
	case model.ActionDelete:
		return f.pushDelete(ctx, pw)
	default:
		return fmt.Errorf("unknown pending action %q", pw.Action)
	}
}

func (f *Flusher) pushCreate(ctx context.Context, pw *model.PendingWrite) error {
	var rec model.Record
	if err := decode(pw.Payload, &rec); err != nil {
		return err
	}
	if err := f.execute(func() error {
		_, err := f.co.remote.Create(ctx, pw.Collection, rec)
		return err
	}); err != nil {
		return err
	}
	return f.co.replica.MarkSynced(ctx, pw.Collection, pw.RecordID)
}

func (f *Flusher) pushUpdate(ctx context.Context, pw *model.PendingWrite) error {
	var rec model.Record
	if err := decode(pw.Payload, &rec); err != nil {
		return err
	}

	// Money-handling records are never merged last-write-wins: if the remote
	// copy changed after this write was queued, the item is a conflict for
	// an operator to resolve, not something the terminal overwrites.
	if model.MoneyBearing(pw.Collection) {
		var current model.Record
		if err := f.execute(func() error {
			var gerr error
			current, gerr = f.co.remote.Get(ctx, pw.Collection, pw.RecordID)
			return gerr
		}); err != nil {
			return err
		}
		if current != nil {
			if t, ok := current.Time("updatedAt"); ok && t.After(pw.EnqueuedAt) {
				return &ConflictError{
					Collection: pw.Collection,
					ID:         pw.RecordID,
					Detail:     "remote record changed while this terminal was offline",
				}
			}
		}
	}

	if err := f.execute(func() error {
		_, err := f.co.remote.Update(ctx, pw.Collection, pw.RecordID, rec)
		return err
	}); err != nil {
		return err
	}
	return f.co.replica.MarkSynced(ctx, pw.Collection, pw.RecordID)
}

func (f *Flusher) pushDelete(ctx context.Context, pw *model.PendingWrite) error {
	if pw.Conditional {
		var guard DependencyGuard
		if err := decode(pw.Guard, &guard); err != nil {
			return err
		}
		var hasDeps bool
		if err := f.execute(func() error {
			var cerr error
			hasDeps, cerr = guard.checkRemote(ctx, f.co.remote)
			return cerr
		}); err != nil {
			return err
		}
		if hasDeps {
			return f.revert(ctx, pw, guard.Reason)
		}
	}
	return f.execute(func() error {
		return f.co.remote.Delete(ctx, pw.Collection, pw.RecordID)
	})
}

// revert restores a locally deleted record whose delete guard failed against
// remote state. The record was never removed remotely, so the stashed copy is
// re-installed as synced.
func (f *Flusher) revert(ctx context.Context, pw *model.PendingWrite, reason string) error {
	if len(pw.Stash) > 0 {
		var stash model.Record
		if err := decode(pw.Stash, &stash); err != nil {
			return err
		}
		if err := f.co.replica.UpsertMany(ctx, pw.Collection, []model.Record{stash}); err != nil {
			return err
		}
	}
	f.publish(ctx, bus.Event{
		Type:       bus.EventDeleteReverted,
		Collection: pw.Collection,
		RecordID:   pw.RecordID,
		Detail:     reason,
	})
	log.Warn().
		Str("collection", pw.Collection).
		Str("record_id", pw.RecordID).
		Str("reason", reason).
		Msg("flusher: offline delete rejected by remote re-validation, record restored")
	return nil
}

// fail handles a per-item push error: retryable failures back off with an
// exponential delay; terminal failures are marked, parked in the DLQ, and
// broadcast.
func (f *Flusher) fail(ctx context.Context, pw *model.PendingWrite, err error) {
	attempts := pw.Attempts + 1

	var conflict *ConflictError
	var rejected *RejectedError
	terminal := errors.As(err, &conflict) || errors.As(err, &rejected) || attempts >= f.cfg.MaxRetries

	if !terminal {
		next := time.Now().UTC().Add(computeBackoff(attempts))
		if merr := f.co.replica.MarkWriteRetry(ctx, pw.Seq, attempts, err.Error(), next); merr != nil {
			log.Error().Err(merr).Int64("seq", pw.Seq).Msg("flusher: failed to schedule retry")
		}
		log.Warn().
			Int64("seq", pw.Seq).
			Int("attempts", attempts).
			Time("next_retry", next).
			Err(err).
			Msg("flusher: push failed, retry scheduled")
		return
	}

	if merr := f.co.replica.MarkWriteFailed(ctx, pw.Seq, attempts, err.Error()); merr != nil {
		log.Error().Err(merr).Int64("seq", pw.Seq).Msg("flusher: failed to mark write failed")
	}
	SendToDLQ(ctx, f.rdb, DLQEntry{
		Collection: pw.Collection,
		RecordID:   pw.RecordID,
		Action:     pw.Action,
		Payload:    pw.Payload,
		Reason:     err.Error(),
		Attempts:   attempts,
	})
	f.publish(ctx, bus.Event{
		Type:       bus.EventSyncConflict,
		OperatorID: pw.OperatorID,
		Collection: pw.Collection,
		RecordID:   pw.RecordID,
		Detail:     err.Error(),
	})
}

// execute routes a remote call through the circuit breaker, folding an open
// breaker into the unavailability class so callers see one failure mode.
func (f *Flusher) execute(fn func() error) error {
	if f.cb == nil {
		return fn()
	}
	err := f.cb.Execute(fn)
	if errors.Is(err, infra.ErrCircuitOpen) {
		return fmt.Errorf("%w: %s", ErrRemoteUnavailable, err)
	}
	return err
}

func (f *Flusher) publish(ctx context.Context, ev bus.Event) {
	if f.pub != nil {
		f.pub.Publish(ctx, ev)
	}
}

func computeBackoff(attempts int) time.Duration {
	d := 2 * time.Second
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= 5*time.Minute {
			return 5 * time.Minute
		}
	}
	return d
}
