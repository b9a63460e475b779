package syncer

// Pending writes that exceed the retry budget are parked in a Redis list for
// manual inspection instead of blocking the queue forever.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQKey = "dlq:pending-writes"

// DLQEntry wraps an abandoned pending write with enough metadata to replay
// it by hand.
type DLQEntry struct {
	Collection string          `json:"collection"`
	RecordID   string          `json:"record_id"`
	Action     string          `json:"action"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Reason     string          `json:"reason"`
	Attempts   int             `json:"attempts"`
	FailedAt   string          `json:"failed_at"` // ISO 8601
}

// SendToDLQ parks a write that will never be retried. Best-effort: with no
// Redis configured the write is still marked failed in the local queue, the
// DLQ copy is just skipped.
func SendToDLQ(ctx context.Context, rdb *redis.Client, entry DLQEntry) {
	if rdb == nil {
		return
	}
	entry.FailedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("record_id", entry.RecordID).Msg("dlq: failed to marshal entry")
		return
	}
	if err := rdb.LPush(ctx, DLQKey, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq_key", DLQKey).Msg("dlq: failed to push entry")
		return
	}

	log.Warn().
		Str("collection", entry.Collection).
		Str("record_id", entry.RecordID).
		Str("reason", entry.Reason).
		Int("attempts", entry.Attempts).
		Msg("dlq: pending write moved to dead letter queue")
}

// DLQLength returns the number of parked writes for monitoring.
func DLQLength(ctx context.Context, rdb *redis.Client) (int64, error) {
	if rdb == nil {
		return 0, nil
	}
	return rdb.LLen(ctx, DLQKey).Result()
}
