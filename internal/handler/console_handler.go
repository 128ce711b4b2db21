package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sched-console/internal/dto"
	"github.com/noah-isme/sched-console/internal/models"
	appErrors "github.com/noah-isme/sched-console/pkg/errors"
	"github.com/noah-isme/sched-console/pkg/response"
)

type consoleService interface {
	State(ctx context.Context, sessionID string) (*dto.ConsoleState, error)
	SelectTab(ctx context.Context, sessionID string, kind models.Kind) (*dto.ConsoleState, error)
	OpenForm(ctx context.Context, sessionID string) (*dto.ConsoleState, error)
	CancelForm(ctx context.Context, sessionID string) (*dto.ConsoleState, error)
	Draft(ctx context.Context, sessionID string, kind models.Kind) (*dto.DraftView, error)
	EditField(ctx context.Context, sessionID string, kind models.Kind, req dto.EditFieldRequest) (*dto.DraftView, error)
	Submit(ctx context.Context, sessionID string, kind models.Kind) (*dto.MutationResult, error)
	AssignmentOptions(ctx context.Context, sessionID string) (*dto.AssignmentOptions, error)
	Notifications(ctx context.Context, sessionID string) []models.Notification
	Dismiss(ctx context.Context, sessionID string, severity models.Severity) []models.Notification
}

// ConsoleHandler exposes the per-session console state.
type ConsoleHandler struct {
	service consoleService
}

// NewConsoleHandler builds a new handler.
func NewConsoleHandler(service consoleService) *ConsoleHandler {
	return &ConsoleHandler{service: service}
}

// State godoc
// @Summary Current console state
// @Tags Console
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /console/state [get]
func (h *ConsoleHandler) State(c *gin.Context) {
	state, err := h.service.State(c.Request.Context(), sessionFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// SelectTab godoc
// @Summary Switch the active tab
// @Tags Console
// @Accept json
// @Produce json
// @Param payload body dto.SelectTabRequest true "Tab"
// @Success 200 {object} response.Envelope
// @Router /console/tab [put]
func (h *ConsoleHandler) SelectTab(c *gin.Context) {
	var req dto.SelectTabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid tab payload"))
		return
	}
	kind, ok := models.ParseKind(req.Kind)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrUnknownKind, fmt.Sprintf("unknown entity kind %q", req.Kind)))
		return
	}
	state, err := h.service.SelectTab(c.Request.Context(), sessionFromContext(c), kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// OpenForm godoc
// @Summary Show the active kind's form
// @Tags Console
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /console/form/open [post]
func (h *ConsoleHandler) OpenForm(c *gin.Context) {
	state, err := h.service.OpenForm(c.Request.Context(), sessionFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// CancelForm godoc
// @Summary Discard the active draft and hide its form
// @Tags Console
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /console/form/cancel [post]
func (h *ConsoleHandler) CancelForm(c *gin.Context) {
	state, err := h.service.CancelForm(c.Request.Context(), sessionFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// GetDraft godoc
// @Summary Get a draft
// @Tags Drafts
// @Produce json
// @Param kind path string true "teachers, courses, sections or assignments"
// @Success 200 {object} response.Envelope
// @Router /console/drafts/{kind} [get]
func (h *ConsoleHandler) GetDraft(c *gin.Context) {
	kind, err := kindParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	draft, err := h.service.Draft(c.Request.Context(), sessionFromContext(c), kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// EditDraft godoc
// @Summary Set one draft field
// @Tags Drafts
// @Accept json
// @Produce json
// @Param kind path string true "Entity kind"
// @Param payload body dto.EditFieldRequest true "Field value"
// @Success 200 {object} response.Envelope
// @Router /console/drafts/{kind} [patch]
func (h *ConsoleHandler) EditDraft(c *gin.Context) {
	kind, err := kindParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.EditFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid draft payload"))
		return
	}
	draft, err := h.service.EditField(c.Request.Context(), sessionFromContext(c), kind, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// Submit godoc
// @Summary Create an entity from the draft
// @Tags Drafts
// @Produce json
// @Param kind path string true "Entity kind"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /console/drafts/{kind}/submit [post]
func (h *ConsoleHandler) Submit(c *gin.Context) {
	kind, err := kindParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	session := sessionFromContext(c)
	result, err := h.service.Submit(c.Request.Context(), session, kind)
	if err != nil {
		response.Error(c, err, h.failureMeta(c, session, err))
		return
	}
	response.Created(c, result)
}

// AssignmentOptions godoc
// @Summary Selectable references for the assignment form
// @Tags Console
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /console/assignments/options [get]
func (h *ConsoleHandler) AssignmentOptions(c *gin.Context) {
	options, err := h.service.AssignmentOptions(c.Request.Context(), sessionFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// Notifications godoc
// @Summary Visible notifications
// @Tags Console
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /console/notifications [get]
func (h *ConsoleHandler) Notifications(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Notifications(c.Request.Context(), sessionFromContext(c)), nil)
}

// Dismiss godoc
// @Summary Dismiss a notification
// @Tags Console
// @Produce json
// @Param severity path string true "success or error"
// @Success 200 {object} response.Envelope
// @Router /console/notifications/{severity} [delete]
func (h *ConsoleHandler) Dismiss(c *gin.Context) {
	severity, ok := models.ParseSeverity(c.Param("severity"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "severity must be success or error"))
		return
	}
	response.JSON(c, http.StatusOK, h.service.Dismiss(c.Request.Context(), sessionFromContext(c), severity), nil)
}

// failureMeta attaches the error notification a failed mutation produced.
func (h *ConsoleHandler) failureMeta(c *gin.Context, session string, err error) map[string]interface{} {
	if !appErrors.HasCode(err, appErrors.ErrMutation.Code) {
		return nil
	}
	return map[string]interface{}{"notifications": h.service.Notifications(c.Request.Context(), session)}
}
