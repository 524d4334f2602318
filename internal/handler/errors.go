package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-prep/internal/engine"
	"github.com/stemsi/exstem-prep/internal/provider"
	"github.com/stemsi/exstem-prep/internal/response"
	"github.com/stemsi/exstem-prep/internal/service"
)

// classify maps a service or engine error to an HTTP status and error code.
// The bool reports whether the error text is safe to return as detail.
func classify(err error) (int, response.ErrCode, bool) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, response.ErrSessionNotFound, false
	case errors.Is(err, service.ErrResultNotFound):
		return http.StatusNotFound, response.ErrNotFound, false
	case errors.Is(err, service.ErrTooManySessions):
		return http.StatusConflict, response.ErrTooManySessions, false
	case errors.Is(err, engine.ErrInvalidConfig):
		return http.StatusUnprocessableEntity, response.ErrInvalidConfig, true
	case errors.Is(err, engine.ErrEmptyQuestionSet):
		return http.StatusUnprocessableEntity, response.ErrNoQuestions, false
	case errors.Is(err, engine.ErrOutOfRange):
		return http.StatusBadRequest, response.ErrOutOfRange, true
	case errors.Is(err, provider.ErrInvalidSpecialization):
		return http.StatusBadRequest, response.ErrInvalidSpecialization, true
	case errors.Is(err, provider.ErrInsufficientQuestions):
		return http.StatusUnprocessableEntity, response.ErrInsufficientQuestions, true
	case errors.Is(err, provider.ErrGenerationFailed):
		return http.StatusBadGateway, response.ErrQuestionGenerationError, false
	case errors.Is(err, provider.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, response.ErrProviderUnavailable, false
	default:
		return http.StatusInternalServerError, response.ErrInternal, false
	}
}

// failWith writes the error envelope for err.
func failWith(c *gin.Context, err error) {
	status, code, expose := classify(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	if expose {
		response.FailWithDetail(c, status, code, err.Error())
		return
	}
	response.Fail(c, status, code)
}
