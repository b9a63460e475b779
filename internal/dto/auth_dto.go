package dto

import (
	"tillsync/internal/model"
)

type LoginRequest struct {
	PIN string `json:"pin" validate:"required,numeric,min=4,max=6"`
}

type OperatorResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type LoginResponse struct {
	Token     string               `json:"token"`
	TokenType string               `json:"token_type"`
	Operator  OperatorResponse     `json:"operator"`
	Session   model.SessionContext `json:"session"`
	Shift     *ShiftResponse       `json:"shift,omitempty"`
}

type SessionResponse struct {
	Session model.SessionContext `json:"session"`
}
