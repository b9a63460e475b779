package syncer

// In-memory stubs for the remote store and local replica, shared by the
// coordinator and flusher tests.

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tillsync/internal/model"
)

// ── Remote store stub ────────────────────────────────────────────────────────

type stubRemote struct {
	mu          sync.Mutex
	data        map[string]map[string]model.Record
	unavailable bool
	rejectWith  int   // non-zero: every mutation answers this HTTP status
	failWith    error // non-nil: every mutation fails with this error
	calls       []string
}

func newStubRemote() *stubRemote {
	return &stubRemote{data: make(map[string]map[string]model.Record)}
}

func (r *stubRemote) seed(collection string, recs ...model.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data[collection] == nil {
		r.data[collection] = make(map[string]model.Record)
	}
	for _, rec := range recs {
		r.data[collection][rec.ID()] = rec
	}
}

func (r *stubRemote) callLog() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *stubRemote) GetAll(_ context.Context, collection string, filter map[string]string) ([]model.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unavailable {
		return nil, ErrRemoteUnavailable
	}
	var out []model.Record
	for _, rec := range r.data[collection] {
		ok := true
		for k, v := range filter {
			if rec.String(k) != v {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (r *stubRemote) Get(_ context.Context, collection, id string) (model.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unavailable {
		return nil, ErrRemoteUnavailable
	}
	return r.data[collection][id], nil
}

func (r *stubRemote) Create(_ context.Context, collection string, rec model.Record) (model.Record, error) {
	return r.mutate("create", collection, rec.ID(), rec)
}

func (r *stubRemote) Update(_ context.Context, collection, id string, partial model.Record) (model.Record, error) {
	return r.mutate("update", collection, id, partial)
}

func (r *stubRemote) Delete(_ context.Context, collection, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unavailable {
		return ErrRemoteUnavailable
	}
	if r.rejectWith != 0 {
		return &RejectedError{Collection: collection, Status: r.rejectWith}
	}
	r.calls = append(r.calls, fmt.Sprintf("delete %s/%s", collection, id))
	delete(r.data[collection], id)
	return nil
}

func (r *stubRemote) mutate(verb, collection, id string, rec model.Record) (model.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unavailable {
		return nil, ErrRemoteUnavailable
	}
	if r.rejectWith != 0 {
		return nil, &RejectedError{Collection: collection, Status: r.rejectWith}
	}
	if r.failWith != nil {
		return nil, r.failWith
	}
	r.calls = append(r.calls, fmt.Sprintf("%s %s/%s", verb, collection, id))
	if r.data[collection] == nil {
		r.data[collection] = make(map[string]model.Record)
	}
	r.data[collection][id] = rec
	return rec, nil
}

// ── Local replica stub ───────────────────────────────────────────────────────

type stubDoc struct {
	rec      model.Record
	unsynced bool
}

type stubReplica struct {
	mu       sync.Mutex
	docs     map[string]map[string]*stubDoc
	queue    []*model.PendingWrite
	settings map[string]string
	nextSeq  int64

	clearedOperators []string
	clearedAll       bool
}

func newStubReplica() *stubReplica {
	return &stubReplica{
		docs:     make(map[string]map[string]*stubDoc),
		settings: make(map[string]string),
	}
}

func (s *stubReplica) seed(collection string, recs ...model.Record) {
	for _, rec := range recs {
		_ = s.UpsertMany(context.Background(), collection, []model.Record{rec})
	}
}

func (s *stubReplica) doc(collection, id string) *stubDoc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[collection][id]
}

func (s *stubReplica) UpsertMany(_ context.Context, collection string, recs []model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]*stubDoc)
	}
	for _, rec := range recs {
		if existing, ok := s.docs[collection][rec.ID()]; ok && existing.unsynced {
			continue
		}
		s.docs[collection][rec.ID()] = &stubDoc{rec: rec}
	}
	return nil
}

func (s *stubReplica) UpsertUnsynced(_ context.Context, collection string, rec model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]*stubDoc)
	}
	s.docs[collection][rec.ID()] = &stubDoc{rec: rec, unsynced: true}
	return nil
}

func (s *stubReplica) MarkSynced(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.docs[collection][id]; ok {
		d.unsynced = false
	}
	return nil
}

func (s *stubReplica) GetAll(_ context.Context, collection string) ([]model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Record
	for _, d := range s.docs[collection] {
		out = append(out, d.rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (s *stubReplica) GetByID(_ context.Context, collection, id string) (model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.docs[collection][id]; ok {
		return d.rec, nil
	}
	return nil, nil
}

func (s *stubReplica) DeleteByID(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs[collection], id)
	return nil
}

func (s *stubReplica) ClearOperatorData(_ context.Context, operatorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearedOperators = append(s.clearedOperators, operatorID)
	for collection, byID := range s.docs {
		if !model.OperatorScoped(collection) {
			continue
		}
		for id, d := range byID {
			if d.rec.String("operatorId") == operatorID {
				delete(byID, id)
			}
		}
	}
	return nil
}

func (s *stubReplica) ClearAllData(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearedAll = true
	s.docs = make(map[string]map[string]*stubDoc)
	s.queue = nil
	s.settings = make(map[string]string)
	return nil
}

func (s *stubReplica) Enqueue(_ context.Context, pw *model.PendingWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	pw.Seq = s.nextSeq
	if pw.Status == "" {
		pw.Status = model.WritePending
	}
	if pw.EnqueuedAt.IsZero() {
		pw.EnqueuedAt = time.Now()
	}
	s.queue = append(s.queue, pw)
	return nil
}

func (s *stubReplica) Due(_ context.Context, now time.Time, limit int) ([]model.PendingWrite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.PendingWrite
	for _, pw := range s.queue {
		if pw.Status != model.WritePending {
			continue
		}
		if pw.NextRetryAt != nil && pw.NextRetryAt.After(now) {
			continue
		}
		out = append(out, *pw)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *stubReplica) CountPending(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, pw := range s.queue {
		if pw.Status == model.WritePending {
			n++
		}
	}
	return n, nil
}

func (s *stubReplica) find(seq int64) *model.PendingWrite {
	for _, pw := range s.queue {
		if pw.Seq == seq {
			return pw
		}
	}
	return nil
}

func (s *stubReplica) MarkWriteSynced(_ context.Context, seq int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pw := s.find(seq); pw != nil {
		pw.Status = model.WriteSynced
		pw.NextRetryAt = nil
	}
	return nil
}

func (s *stubReplica) MarkWriteRetry(_ context.Context, seq int64, attempts int, reason string, nextRetry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pw := s.find(seq); pw != nil {
		pw.Attempts = attempts
		pw.LastError = &reason
		pw.NextRetryAt = &nextRetry
	}
	return nil
}

func (s *stubReplica) MarkWriteFailed(_ context.Context, seq int64, attempts int, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pw := s.find(seq); pw != nil {
		pw.Status = model.WriteError
		pw.Attempts = attempts
		pw.LastError = &reason
		pw.NextRetryAt = nil
	}
	return nil
}

func (s *stubReplica) PurgeSynced(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.queue[:0]
	for _, pw := range s.queue {
		if pw.Status != model.WriteSynced {
			kept = append(kept, pw)
		}
	}
	s.queue = kept
	return nil
}

func (s *stubReplica) GetSetting(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings[key], nil
}

func (s *stubReplica) SetSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}

func (s *stubReplica) DeleteSetting(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.settings, key)
	return nil
}
