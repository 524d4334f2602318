package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/exstem-prep/internal/middleware"
	"github.com/stemsi/exstem-prep/internal/model"
	"github.com/stemsi/exstem-prep/internal/response"
	"github.com/stemsi/exstem-prep/internal/service"
	"github.com/stemsi/exstem-prep/internal/validator"
)

// SessionHandler handles the REST surface of timed sessions.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// target extracts the caller and the :id param, writing the error response on failure.
func target(c *gin.Context) (int, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return 0, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, uuid.Nil, false
	}
	return claims.UserID, id, true
}

// Start godoc
// POST /api/v1/sessions
// Acquires questions and starts the countdown.
func (h *SessionHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.sessionService.Start(c.Request.Context(), claims.UserID, req.Config())
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusCreated, view)
}

// Get godoc
// GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	userID, id, ok := target(c)
	if !ok {
		return
	}
	view, err := h.sessionService.View(userID, id)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// SelectAnswer godoc
// PUT /api/v1/sessions/:id/answers/:position
func (h *SessionHandler) SelectAnswer(c *gin.Context) {
	userID, id, ok := target(c)
	if !ok {
		return
	}
	position, err := strconv.Atoi(c.Param("position"))
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"position": "position must be an integer"})
		return
	}

	var req model.SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.sessionService.SelectAnswer(userID, id, position, *req.Option)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// GoTo godoc
// POST /api/v1/sessions/:id/goto
func (h *SessionHandler) GoTo(c *gin.Context) {
	userID, id, ok := target(c)
	if !ok {
		return
	}

	var req model.GoToRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.sessionService.GoTo(userID, id, *req.Position)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// Next godoc
// POST /api/v1/sessions/:id/next
func (h *SessionHandler) Next(c *gin.Context) {
	userID, id, ok := target(c)
	if !ok {
		return
	}
	view, err := h.sessionService.Next(userID, id)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// Previous godoc
// POST /api/v1/sessions/:id/previous
func (h *SessionHandler) Previous(c *gin.Context) {
	userID, id, ok := target(c)
	if !ok {
		return
	}
	view, err := h.sessionService.Previous(userID, id)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// Submit godoc
// POST /api/v1/sessions/:id/submit
// Repeated submits return the same result.
func (h *SessionHandler) Submit(c *gin.Context) {
	userID, id, ok := target(c)
	if !ok {
		return
	}
	res, err := h.sessionService.Submit(userID, id)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// Abandon godoc
// DELETE /api/v1/sessions/:id
func (h *SessionHandler) Abandon(c *gin.Context) {
	userID, id, ok := target(c)
	if !ok {
		return
	}
	if err := h.sessionService.Abandon(userID, id); err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session_id": id, "abandoned": true})
}

// ListHistory godoc
// GET /api/v1/history?page=1&per_page=20
func (h *SessionHandler) ListHistory(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	results, total, err := h.sessionService.History(c.Request.Context(), claims.UserID, page, perPage)
	if err != nil {
		failWith(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, response.NewPagination(page, perPage, total))
}

// GetHistory godoc
// GET /api/v1/history/:id
func (h *SessionHandler) GetHistory(c *gin.Context) {
	userID, id, ok := target(c)
	if !ok {
		return
	}
	res, err := h.sessionService.HistoryItem(c.Request.Context(), userID, id)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}
