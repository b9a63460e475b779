package syncer

import (
	"context"
	"time"

	"tillsync/internal/model"
)

// RemoteStore is the authoritative cloud data service, reachable only when
// online. Implementations must wrap connectivity-class failures in
// ErrRemoteUnavailable and non-retryable rejections in RejectedError.
type RemoteStore interface {
	GetAll(ctx context.Context, collection string, filter map[string]string) ([]model.Record, error)
	Get(ctx context.Context, collection, id string) (model.Record, error)
	Create(ctx context.Context, collection string, rec model.Record) (model.Record, error)
	Update(ctx context.Context, collection, id string, partial model.Record) (model.Record, error)
	Delete(ctx context.Context, collection, id string) error
}

// LocalReplica is the embedded durable store on the terminal. Calls are
// assumed fast and local; they are never suspension points.
type LocalReplica interface {
	UpsertMany(ctx context.Context, collection string, recs []model.Record) error
	UpsertUnsynced(ctx context.Context, collection string, rec model.Record) error
	MarkSynced(ctx context.Context, collection, id string) error
	GetAll(ctx context.Context, collection string) ([]model.Record, error)
	GetByID(ctx context.Context, collection, id string) (model.Record, error)
	DeleteByID(ctx context.Context, collection, id string) error
	ClearOperatorData(ctx context.Context, operatorID string) error
	ClearAllData(ctx context.Context) error

	Enqueue(ctx context.Context, pw *model.PendingWrite) error
	Due(ctx context.Context, now time.Time, limit int) ([]model.PendingWrite, error)
	CountPending(ctx context.Context) (int64, error)
	MarkWriteSynced(ctx context.Context, seq int64) error
	MarkWriteRetry(ctx context.Context, seq int64, attempts int, reason string, nextRetry time.Time) error
	MarkWriteFailed(ctx context.Context, seq int64, attempts int, reason string) error
	PurgeSynced(ctx context.Context) error

	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}

// SessionValidator lets the coordinator reject operations carrying a stale
// session: an operator switch mid-operation aborts the in-flight call rather
// than letting it complete under the previous identity.
type SessionValidator interface {
	Validate(sess model.SessionContext) error
}
