package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tillsync/internal/dto"
	"tillsync/internal/middleware"
	"tillsync/internal/session"
)

type AuthHandler struct {
	guard *session.Guard
}

func NewAuthHandler(guard *session.Guard) *AuthHandler {
	return &AuthHandler{guard: guard}
}

// Login POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindAndValidate(c, &req) {
		return
	}
	result, err := h.guard.Login(c.Request.Context(), req.PIN)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := dto.LoginResponse{
		Token:     result.Token,
		TokenType: "bearer",
		Operator: dto.OperatorResponse{
			ID:   result.Operator.ID,
			Name: result.Operator.Name,
			Role: result.Operator.Role,
		},
		Session: result.Session,
	}
	if result.Shift != nil {
		resp.Shift = &dto.ShiftResponse{Shift: *result.Shift}
	}
	c.JSON(http.StatusOK, resp)
}

// Logout POST /v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.guard.Logout(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

// Session GET /v1/auth/session
func (h *AuthHandler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, dto.SessionResponse{Session: middleware.GetSession(c)})
}
