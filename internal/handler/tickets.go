package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tillsync/internal/dto"
	"tillsync/internal/middleware"
	"tillsync/internal/model"
	"tillsync/internal/syncer"
)

// TicketsHandler manages parked carts. Tickets live in the same replicated
// collections as everything else; parking works offline and the cart follows
// the operator to any terminal once synced.
type TicketsHandler struct {
	co syncer.Service
}

func NewTicketsHandler(co syncer.Service) *TicketsHandler {
	return &TicketsHandler{co: co}
}

// List GET /v1/tickets
func (h *TicketsHandler) List(c *gin.Context) {
	sess := middleware.GetSession(c)
	res, err := h.co.Read(c.Request.Context(), sess, model.CollectionTickets, syncer.Filter{
		Equals: map[string]string{"status": "parked"},
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":   res.Records,
		"source": res.Source,
		"stale":  res.Stale,
	})
}

// Park POST /v1/tickets
func (h *TicketsHandler) Park(c *gin.Context) {
	var req dto.TicketRequest
	if !bindAndValidate(c, &req) {
		return
	}
	sess := middleware.GetSession(c)
	result, err := h.co.Write(c.Request.Context(), sess, model.CollectionTickets, "", model.Record{
		"name":   req.Name,
		"items":  req.Items,
		"status": "parked",
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": result.Record, "queued": result.Queued})
}

// Resume POST /v1/tickets/:id/resume
//
// Resuming marks the ticket consumed; the cart contents come back to the UI
// and the parked copy stops showing up in lists.
func (h *TicketsHandler) Resume(c *gin.Context) {
	sess := middleware.GetSession(c)
	res, err := h.co.Read(c.Request.Context(), sess, model.CollectionTickets, syncer.Filter{
		Equals: map[string]string{"id": c.Param("id")},
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if len(res.Records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "ticket not found"})
		return
	}
	rec := res.Records[0]
	rec["status"] = "resumed"
	rec["resumedAt"] = time.Now().UTC().Format(time.RFC3339)
	if _, err := h.co.Write(c.Request.Context(), sess, model.CollectionTickets, rec.ID(), rec); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rec})
}

// Delete DELETE /v1/tickets/:id
func (h *TicketsHandler) Delete(c *gin.Context) {
	sess := middleware.GetSession(c)
	if err := h.co.GuardedDelete(c.Request.Context(), sess, model.CollectionTickets, c.Param("id"), nil); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}
