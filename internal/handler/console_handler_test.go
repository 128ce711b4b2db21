package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sched-console/internal/dto"
	"github.com/noah-isme/sched-console/internal/middleware"
	"github.com/noah-isme/sched-console/internal/models"
	appErrors "github.com/noah-isme/sched-console/pkg/errors"
)

type consoleServiceMock struct {
	state       *dto.ConsoleState
	draft       *dto.DraftView
	submitResp  *dto.MutationResult
	submitErr   error
	notes       []models.Notification
	lastSession string
	lastKind    models.Kind
	lastEdit    dto.EditFieldRequest
	dismissed   models.Severity
}

func (m *consoleServiceMock) State(ctx context.Context, sessionID string) (*dto.ConsoleState, error) {
	m.lastSession = sessionID
	return m.state, nil
}

func (m *consoleServiceMock) SelectTab(ctx context.Context, sessionID string, kind models.Kind) (*dto.ConsoleState, error) {
	m.lastSession, m.lastKind = sessionID, kind
	return &dto.ConsoleState{ActiveKind: kind}, nil
}

func (m *consoleServiceMock) OpenForm(ctx context.Context, sessionID string) (*dto.ConsoleState, error) {
	return &dto.ConsoleState{FormVisible: true}, nil
}

func (m *consoleServiceMock) CancelForm(ctx context.Context, sessionID string) (*dto.ConsoleState, error) {
	return &dto.ConsoleState{}, nil
}

func (m *consoleServiceMock) Draft(ctx context.Context, sessionID string, kind models.Kind) (*dto.DraftView, error) {
	m.lastKind = kind
	return m.draft, nil
}

func (m *consoleServiceMock) EditField(ctx context.Context, sessionID string, kind models.Kind, req dto.EditFieldRequest) (*dto.DraftView, error) {
	m.lastKind, m.lastEdit = kind, req
	return m.draft, nil
}

func (m *consoleServiceMock) Submit(ctx context.Context, sessionID string, kind models.Kind) (*dto.MutationResult, error) {
	m.lastSession, m.lastKind = sessionID, kind
	return m.submitResp, m.submitErr
}

func (m *consoleServiceMock) AssignmentOptions(ctx context.Context, sessionID string) (*dto.AssignmentOptions, error) {
	return &dto.AssignmentOptions{}, nil
}

func (m *consoleServiceMock) Notifications(ctx context.Context, sessionID string) []models.Notification {
	return m.notes
}

func (m *consoleServiceMock) Dismiss(ctx context.Context, sessionID string, severity models.Severity) []models.Notification {
	m.dismissed = severity
	return nil
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func newContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	c.Request = req
	c.Set(middleware.ContextSessionKey, "anon:tab-1")
	return c, w
}

func TestConsoleHandlerState(t *testing.T) {
	mockSvc := &consoleServiceMock{state: &dto.ConsoleState{ActiveKind: models.KindTeacher}}
	handler := NewConsoleHandler(mockSvc)

	c, w := newContext(http.MethodGet, "/console/state", nil)
	handler.State(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anon:tab-1", mockSvc.lastSession)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var state dto.ConsoleState
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &state))
	assert.Equal(t, models.KindTeacher, state.ActiveKind)
}

func TestConsoleHandlerSelectTab(t *testing.T) {
	mockSvc := &consoleServiceMock{}
	handler := NewConsoleHandler(mockSvc)

	c, w := newContext(http.MethodPut, "/console/tab", []byte(`{"kind":"sections"}`))
	handler.SelectTab(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.KindSection, mockSvc.lastKind)

	c, w = newContext(http.MethodPut, "/console/tab", []byte(`{"kind":"rooms"}`))
	handler.SelectTab(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = newContext(http.MethodPut, "/console/tab", []byte(`{"kind":`))
	handler.SelectTab(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConsoleHandlerEditDraft(t *testing.T) {
	mockSvc := &consoleServiceMock{draft: &dto.DraftView{Kind: models.KindCourse}}
	handler := NewConsoleHandler(mockSvc)

	c, w := newContext(http.MethodPatch, "/console/drafts/courses", []byte(`{"field":"units","value":"3"}`))
	c.Params = gin.Params{{Key: "kind", Value: "courses"}}
	handler.EditDraft(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.KindCourse, mockSvc.lastKind)
	assert.Equal(t, dto.EditFieldRequest{Field: "units", Value: "3"}, mockSvc.lastEdit)
}

func TestConsoleHandlerSubmitCreated(t *testing.T) {
	mockSvc := &consoleServiceMock{submitResp: &dto.MutationResult{Kind: models.KindTeacher, Message: "Teacher created successfully"}}
	handler := NewConsoleHandler(mockSvc)

	c, w := newContext(http.MethodPost, "/console/drafts/teachers/submit", nil)
	c.Params = gin.Params{{Key: "kind", Value: "teachers"}}
	handler.Submit(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var result dto.MutationResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &result))
	assert.Equal(t, "Teacher created successfully", result.Message)
}

func TestConsoleHandlerSubmitStoreFailureCarriesNotification(t *testing.T) {
	mockSvc := &consoleServiceMock{
		submitErr: appErrors.Wrap(errors.New("store said no"), appErrors.ErrMutation.Code, http.StatusConflict, "Course code already exists"),
		notes:     []models.Notification{{Severity: models.SeverityError, Message: "Course code already exists"}},
	}
	handler := NewConsoleHandler(mockSvc)

	c, w := newContext(http.MethodPost, "/console/drafts/courses/submit", nil)
	c.Params = gin.Params{{Key: "kind", Value: "courses"}}
	handler.Submit(c)

	require.Equal(t, http.StatusConflict, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "MUTATION_FAILED", env.Error.Code)
	assert.Equal(t, "Course code already exists", env.Error.Message)
	assert.Contains(t, env.Meta, "notifications")
}

func TestConsoleHandlerSubmitGapHasNoMeta(t *testing.T) {
	mockSvc := &consoleServiceMock{submitErr: appErrors.Clone(appErrors.ErrValidationGap, "Units is required")}
	handler := NewConsoleHandler(mockSvc)

	c, w := newContext(http.MethodPost, "/console/drafts/courses/submit", nil)
	c.Params = gin.Params{{Key: "kind", Value: "courses"}}
	handler.Submit(c)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, decodeEnvelope(t, w).Meta)
}

func TestConsoleHandlerDismiss(t *testing.T) {
	mockSvc := &consoleServiceMock{}
	handler := NewConsoleHandler(mockSvc)

	c, w := newContext(http.MethodDelete, "/console/notifications/error", nil)
	c.Params = gin.Params{{Key: "severity", Value: "error"}}
	handler.Dismiss(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.SeverityError, mockSvc.dismissed)

	c, w = newContext(http.MethodDelete, "/console/notifications/info", nil)
	c.Params = gin.Params{{Key: "severity", Value: "info"}}
	handler.Dismiss(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
