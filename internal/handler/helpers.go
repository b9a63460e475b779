package handler

import (
	"errors"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"tillsync/internal/apierror"
	"tillsync/internal/session"
	"tillsync/internal/shift"
	"tillsync/internal/syncer"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondError maps domain errors to HTTP responses. Anything unrecognized
// goes through the error handler middleware as a 500.
func respondError(c *gin.Context, err error) {
	var pre *syncer.PreconditionError
	var rejected *syncer.RejectedError

	switch {
	case errors.As(err, &pre):
		c.JSON(http.StatusConflict, apierror.New(pre.Error()))
	case errors.As(err, &rejected):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(rejected.Error()))
	case errors.Is(err, session.ErrAuthFailure):
		c.JSON(http.StatusUnauthorized, apierror.New("authentication failed"))
	case errors.Is(err, session.ErrSessionIntegrity), errors.Is(err, session.ErrNoSession):
		c.JSON(http.StatusUnauthorized, apierror.New(err.Error()))
	case errors.Is(err, shift.ErrOfflineUnconfirmed):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.Is(err, shift.ErrViewOnly):
		c.JSON(http.StatusForbidden, apierror.New(err.Error()))
	case errors.Is(err, shift.ErrShiftClosed):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.Is(err, shift.ErrNoActiveShift):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	default:
		_ = c.Error(err)
	}
}
