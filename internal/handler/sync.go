package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"tillsync/internal/dto"
	"tillsync/internal/syncer"
)

type SyncHandler struct {
	co  *syncer.Coordinator
	rdb *redis.Client
}

func NewSyncHandler(co *syncer.Coordinator, rdb *redis.Client) *SyncHandler {
	return &SyncHandler{co: co, rdb: rdb}
}

// Status GET /v1/sync/status
func (h *SyncHandler) Status(c *gin.Context) {
	st, err := h.co.Status(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	dlqLen, _ := syncer.DLQLength(c.Request.Context(), h.rdb)
	c.JSON(http.StatusOK, dto.SyncStatusResponse{
		Online:       st.Online,
		PendingCount: st.PendingCount,
		LastSyncAt:   st.LastSyncAt,
		DLQLength:    dlqLen,
	})
}

// Flush POST /v1/sync/flush
//
// Manual flush trigger for the UI's "sync now" button. The flusher picks the
// kick up on its next select; the request does not wait for the flush.
func (h *SyncHandler) Flush(c *gin.Context) {
	h.co.Kick()
	c.JSON(http.StatusAccepted, dto.FlushResponse{Triggered: true})
}
