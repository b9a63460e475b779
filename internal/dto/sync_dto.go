package dto

import "time"

type SyncStatusResponse struct {
	Online       bool       `json:"online"`
	PendingCount int64      `json:"pending_count"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
	DLQLength    int64      `json:"dlq_length"`
}

type FlushResponse struct {
	Triggered bool `json:"triggered"`
}
