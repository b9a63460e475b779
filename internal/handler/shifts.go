package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tillsync/internal/dto"
	"tillsync/internal/middleware"
	"tillsync/internal/session"
	"tillsync/internal/shift"
)

type ShiftsHandler struct {
	shifts shift.Service
	guard  *session.Guard
}

func NewShiftsHandler(shifts shift.Service, guard *session.Guard) *ShiftsHandler {
	return &ShiftsHandler{shifts: shifts, guard: guard}
}

// Open POST /v1/shifts/open
func (h *ShiftsHandler) Open(c *gin.Context) {
	var req dto.OpenShiftRequest
	if !bindAndValidate(c, &req) {
		return
	}
	sess := middleware.GetSession(c)
	sh, err := h.shifts.Open(c.Request.Context(), sess, shift.OpenParams{
		StartingCash:   req.StartingCash,
		Notes:          req.Notes,
		ConfirmOffline: req.ConfirmOffline,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if sh == nil {
		c.JSON(http.StatusOK, dto.ShiftResponse{ViewOnly: true})
		return
	}
	if _, err := h.guard.BindShift(sess, sh.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ShiftResponse{Shift: *sh})
}

// Current GET /v1/shifts/current
func (h *ShiftsHandler) Current(c *gin.Context) {
	sess := middleware.GetSession(c)
	sh, err := h.shifts.Resume(c.Request.Context(), sess)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ShiftResponse{Shift: *sh})
}

// Close POST /v1/shifts/close
func (h *ShiftsHandler) Close(c *gin.Context) {
	var req dto.CloseShiftRequest
	if !bindAndValidate(c, &req) {
		return
	}
	sess := middleware.GetSession(c)
	sh, err := h.shifts.Close(c.Request.Context(), sess, req.ActualCash, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ShiftResponse{Shift: *sh})
}

// Movement POST /v1/shifts/movements
func (h *ShiftsHandler) Movement(c *gin.Context) {
	var req dto.CashMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	sess := middleware.GetSession(c)
	sh, err := h.shifts.RecordCashMovement(c.Request.Context(), sess, req.Kind, req.Amount, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ShiftResponse{Shift: *sh})
}
