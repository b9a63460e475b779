// Package syncer mediates every read and write between the terminal's local
// replica and the remote authoritative store. Operations go remote-first;
// remote results are written through into the replica, and remote failures
// fall back to the replica as an explicit branch, never an exception path.
package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"tillsync/internal/model"
	"tillsync/internal/probe"
)

// Source tells callers which store answered an operation.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// Filter narrows a collection read. Equality filters are forwarded to the
// remote store and re-applied locally; UpdatedAfter supports incremental pulls.
type Filter struct {
	Equals       map[string]string
	UpdatedAfter *time.Time
}

// Result is a read answer. Stale is set whenever the answer came from the
// local replica and therefore cannot be proven current.
type Result struct {
	Records []model.Record
	Source  Source
	Stale   bool
}

// WriteResult is a write answer. Queued means the remote store was
// unreachable and the write was durably accepted locally for later push.
type WriteResult struct {
	Record model.Record
	Source Source
	Queued bool
}

// ItemFailure is one failed entry of a bulk operation.
type ItemFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BulkReport is the uniform result shape of bulk operations: items are
// processed independently and failures never block the rest.
type BulkReport struct {
	Succeeded int           `json:"succeeded"`
	Failed    []ItemFailure `json:"failed"`
}

// Status summarizes the terminal's sync position.
type Status struct {
	Online       bool       `json:"online"`
	PendingCount int64      `json:"pendingCount"`
	LastSyncAt   *time.Time `json:"lastSyncAt,omitempty"`
}

// Service is the coordinator surface consumed by the session guard, the shift
// manager, and the HTTP handlers.
type Service interface {
	Read(ctx context.Context, sess model.SessionContext, collection string, f Filter) (*Result, error)
	Write(ctx context.Context, sess model.SessionContext, collection, id string, rec model.Record) (*WriteResult, error)
	GuardedDelete(ctx context.Context, sess model.SessionContext, collection, id string, guard *DependencyGuard) error
	BulkGuardedDelete(ctx context.Context, sess model.SessionContext, collection string, ids []string, guards map[string]*DependencyGuard) (*BulkReport, error)
	Status(ctx context.Context) (*Status, error)
}

type Coordinator struct {
	remote    RemoteStore
	replica   LocalReplica
	probe     probe.Probe
	validator SessionValidator
	timeout   time.Duration
	flushKick chan struct{}
}

func New(remote RemoteStore, replica LocalReplica, p probe.Probe, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Coordinator{
		remote:    remote,
		replica:   replica,
		probe:     p,
		timeout:   timeout,
		flushKick: make(chan struct{}, 1),
	}
}

// SetValidator installs the session validator. Wired after construction
// because the session guard itself depends on the coordinator.
func (c *Coordinator) SetValidator(v SessionValidator) {
	c.validator = v
}

// Kick nudges the flusher without blocking: any successful remote contact is
// an opportunity to drain the pending queue.
func (c *Coordinator) Kick() {
	select {
	case c.flushKick <- struct{}{}:
	default:
	}
}

// Read answers from the remote store when reachable, mirroring the result
// into the replica, and falls back to the replica otherwise. Connectivity
// failures never surface as errors on the read path.
func (c *Coordinator) Read(ctx context.Context, sess model.SessionContext, collection string, f Filter) (*Result, error) {
	if err := c.validate(sess); err != nil {
		return nil, err
	}
	f = c.scope(sess, collection, f)

	if c.probe.Online() {
		rctx, cancel := context.WithTimeout(ctx, c.timeout)
		recs, err := c.remote.GetAll(rctx, collection, f.Equals)
		cancel()
		if err == nil {
			if err := c.replica.UpsertMany(ctx, collection, recs); err != nil {
				return nil, err
			}
			c.Kick()
			return &Result{Records: applyFilter(recs, f), Source: SourceRemote}, nil
		}
		log.Debug().Err(err).Str("collection", collection).Msg("remote read failed, serving replica")
	}

	recs, err := c.replica.GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	return &Result{Records: applyFilter(recs, f), Source: SourceLocal, Stale: true}, nil
}

// Write goes remote-first with write-through. When the remote store is
// unreachable the write is persisted locally, tagged unsynced, queued for
// push, and reported as success immediately; the caller is never blocked
// waiting for connectivity. Non-retryable remote rejections are surfaced.
func (c *Coordinator) Write(ctx context.Context, sess model.SessionContext, collection, id string, rec model.Record) (*WriteResult, error) {
	if err := c.validate(sess); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	action := model.ActionUpdate
	if id == "" {
		id = uuid.NewString()
		action = model.ActionCreate
	} else if existing, err := c.replica.GetByID(ctx, collection, id); err != nil {
		return nil, err
	} else if existing == nil {
		action = model.ActionCreate
	}
	rec["id"] = id
	if model.OperatorScoped(collection) && rec.String("operatorId") == "" {
		rec["operatorId"] = sess.OperatorID
	}
	if action == model.ActionCreate && rec.String("createdAt") == "" {
		rec["createdAt"] = now
	}
	rec["updatedAt"] = now

	if c.probe.Online() {
		remoteRec, err := c.writeRemote(ctx, collection, id, rec, action)
		if err == nil {
			if err := c.replica.UpsertMany(ctx, collection, []model.Record{remoteRec}); err != nil {
				return nil, err
			}
			c.Kick()
			return &WriteResult{Record: remoteRec, Source: SourceRemote}, nil
		}
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			return nil, err
		}
		log.Debug().Err(err).Str("collection", collection).Msg("remote write failed, queueing locally")
	}

	// Re-check the session before committing the fallback: an operator
	// switch during the remote attempt must abort, not write as the old
	// operator.
	if err := c.validate(sess); err != nil {
		return nil, err
	}

	if err := c.replica.UpsertUnsynced(ctx, collection, rec); err != nil {
		return nil, err
	}
	payload, err := encode(rec)
	if err != nil {
		return nil, err
	}
	pw := &model.PendingWrite{
		ID:         uuid.NewString(),
		Collection: collection,
		RecordID:   id,
		Action:     action,
		Payload:    payload,
		OperatorID: sess.OperatorID,
	}
	if err := c.replica.Enqueue(ctx, pw); err != nil {
		return nil, err
	}
	return &WriteResult{Record: rec, Source: SourceLocal, Queued: true}, nil
}

// GuardedDelete deletes a record only if its dependency guard passes against
// the currently reachable store. A delete accepted in local degraded mode is
// queued as conditional: the guard is re-validated against the remote store
// before the delete propagates, and the local delete is reverted if remote
// state diverged.
func (c *Coordinator) GuardedDelete(ctx context.Context, sess model.SessionContext, collection, id string, guard *DependencyGuard) error {
	if err := c.validate(sess); err != nil {
		return err
	}

	if c.probe.Online() {
		rctx, cancel := context.WithTimeout(ctx, c.timeout)
		var hasDeps bool
		var err error
		if guard != nil {
			hasDeps, err = guard.checkRemote(rctx, c.remote)
		}
		if err == nil {
			if hasDeps {
				cancel()
				return &PreconditionError{Collection: collection, ID: id, Reason: guard.Reason}
			}
			err = c.remote.Delete(rctx, collection, id)
			cancel()
			if err == nil {
				if err := c.replica.DeleteByID(ctx, collection, id); err != nil {
					return err
				}
				c.Kick()
				return nil
			}
			var rejected *RejectedError
			if errors.As(err, &rejected) {
				return err
			}
		} else {
			cancel()
		}
		log.Debug().Str("collection", collection).Str("id", id).
			Msg("remote unreachable, evaluating delete guard against replica")
	}

	if guard != nil {
		deps, err := c.replica.GetAll(ctx, guard.Collection)
		if err != nil {
			return err
		}
		if guard.checkLocal(deps) {
			return &PreconditionError{Collection: collection, ID: id, Reason: guard.Reason}
		}
	}

	stash, err := c.replica.GetByID(ctx, collection, id)
	if err != nil {
		return err
	}
	if err := c.replica.DeleteByID(ctx, collection, id); err != nil {
		return err
	}

	var guardJSON, stashJSON []byte
	if guard != nil {
		if guardJSON, err = encode(guard); err != nil {
			return err
		}
	}
	if stash != nil {
		if stashJSON, err = encode(stash); err != nil {
			return err
		}
	}
	return c.replica.Enqueue(ctx, &model.PendingWrite{
		ID:          uuid.NewString(),
		Collection:  collection,
		RecordID:    id,
		Action:      model.ActionDelete,
		OperatorID:  sess.OperatorID,
		Conditional: guard != nil,
		Guard:       guardJSON,
		Stash:       stashJSON,
	})
}

// BulkGuardedDelete processes each id independently; bulk operations are
// explicitly not atomic. Failures are collected per item; one failing entry
// never blocks the rest.
func (c *Coordinator) BulkGuardedDelete(ctx context.Context, sess model.SessionContext, collection string, ids []string, guards map[string]*DependencyGuard) (*BulkReport, error) {
	if err := c.validate(sess); err != nil {
		return nil, err
	}
	report := &BulkReport{Failed: []ItemFailure{}}
	for _, id := range ids {
		guard, ok := guards[id]
		if !ok {
			report.Failed = append(report.Failed, ItemFailure{ID: id, Reason: "missing_guard"})
			continue
		}
		err := c.GuardedDelete(ctx, sess, collection, id, guard)
		if err == nil {
			report.Succeeded++
			continue
		}
		var pre *PreconditionError
		if errors.As(err, &pre) {
			report.Failed = append(report.Failed, ItemFailure{ID: id, Reason: pre.Reason})
			continue
		}
		report.Failed = append(report.Failed, ItemFailure{ID: id, Reason: err.Error()})
	}
	return report, nil
}

// Status reports connectivity and queue depth for the UI's sync indicator.
func (c *Coordinator) Status(ctx context.Context) (*Status, error) {
	pending, err := c.replica.CountPending(ctx)
	if err != nil {
		return nil, err
	}
	st := &Status{Online: c.probe.Online(), PendingCount: pending}
	if raw, err := c.replica.GetSetting(ctx, model.SettingLastSyncTime); err == nil && raw != "" {
		if t, perr := time.Parse(time.RFC3339, raw); perr == nil {
			st.LastSyncAt = &t
		}
	}
	return st, nil
}

func (c *Coordinator) writeRemote(ctx context.Context, collection, id string, rec model.Record, action string) (model.Record, error) {
	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if action == model.ActionCreate {
		return c.remote.Create(rctx, collection, rec)
	}
	return c.remote.Update(rctx, collection, id, rec)
}

func (c *Coordinator) validate(sess model.SessionContext) error {
	if c.validator == nil || sess.IsSystem() {
		return nil
	}
	return c.validator.Validate(sess)
}

// scope restricts operator-scoped collections to the calling operator's
// records: after a switch, nothing tagged with the previous operator is
// reachable through the new session's view.
func (c *Coordinator) scope(sess model.SessionContext, collection string, f Filter) Filter {
	if sess.IsSystem() || !model.OperatorScoped(collection) {
		return f
	}
	if f.Equals == nil {
		f.Equals = map[string]string{}
	}
	f.Equals["operatorId"] = sess.OperatorID
	return f
}

func applyFilter(recs []model.Record, f Filter) []model.Record {
	if len(f.Equals) == 0 && f.UpdatedAfter == nil {
		return recs
	}
	out := make([]model.Record, 0, len(recs))
	for _, rec := range recs {
		if !matches(rec, f) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func matches(rec model.Record, f Filter) bool {
	for k, v := range f.Equals {
		if rec.String(k) != v {
			return false
		}
	}
	if f.UpdatedAfter != nil {
		t, ok := rec.Time("updatedAt")
		if !ok || !t.After(*f.UpdatedAfter) {
			return false
		}
	}
	return true
}
