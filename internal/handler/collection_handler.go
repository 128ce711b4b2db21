package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sched-console/internal/dto"
	"github.com/noah-isme/sched-console/internal/models"
	"github.com/noah-isme/sched-console/internal/service"
	appErrors "github.com/noah-isme/sched-console/pkg/errors"
	"github.com/noah-isme/sched-console/pkg/response"
)

type collectionService interface {
	Collection(ctx context.Context, kind models.Kind) (*dto.CollectionView, error)
	Refresh(ctx context.Context, kind models.Kind) (*dto.CollectionView, error)
	Delete(ctx context.Context, sessionID string, kind models.Kind, id int64) (*dto.MutationResult, error)
	Notifications(ctx context.Context, sessionID string) []models.Notification
}

// CollectionHandler serves the cached master-data collections.
type CollectionHandler struct {
	service collectionService
}

// NewCollectionHandler builds a new handler.
func NewCollectionHandler(service collectionService) *CollectionHandler {
	return &CollectionHandler{service: service}
}

// List godoc
// @Summary List a collection
// @Description A store failure yields an empty list with meta.state=unavailable instead of an error.
// @Tags Collections
// @Produce json
// @Param kind path string true "teachers, courses, sections or assignments"
// @Success 200 {object} response.Envelope
// @Router /collections/{kind} [get]
func (h *CollectionHandler) List(c *gin.Context) {
	kind, err := kindParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, kind, func(ctx context.Context) (*dto.CollectionView, error) {
		return h.service.Collection(ctx, kind)
	})
}

// Refresh godoc
// @Summary Invalidate and refetch a collection
// @Tags Collections
// @Produce json
// @Param kind path string true "Entity kind"
// @Success 200 {object} response.Envelope
// @Router /collections/{kind}/refresh [post]
func (h *CollectionHandler) Refresh(c *gin.Context) {
	kind, err := kindParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, kind, func(ctx context.Context) (*dto.CollectionView, error) {
		return h.service.Refresh(ctx, kind)
	})
}

// Delete godoc
// @Summary Delete an entity
// @Tags Collections
// @Produce json
// @Param kind path string true "Entity kind"
// @Param id path int true "Entity id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /collections/{kind}/{id} [delete]
func (h *CollectionHandler) Delete(c *gin.Context) {
	kind, err := kindParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := service.ParseEntityID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	session := sessionFromContext(c)
	result, err := h.service.Delete(c.Request.Context(), session, kind, id)
	if err != nil {
		var meta map[string]interface{}
		if appErrors.HasCode(err, appErrors.ErrMutation.Code) {
			meta = map[string]interface{}{"notifications": h.service.Notifications(c.Request.Context(), session)}
		}
		response.Error(c, err, meta)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func (h *CollectionHandler) respond(c *gin.Context, kind models.Kind, load func(context.Context) (*dto.CollectionView, error)) {
	view, err := load(c.Request.Context())
	if err != nil {
		if !appErrors.HasCode(err, appErrors.ErrFetch.Code) {
			response.Error(c, err)
			return
		}
		_ = c.Error(err)
		response.JSON(c, http.StatusOK, &dto.CollectionView{Kind: kind, Items: []models.Entity{}}, map[string]interface{}{
			"state": "unavailable",
			"error": appErrors.FromError(err).Message,
		})
		return
	}
	response.JSON(c, http.StatusOK, view, map[string]interface{}{"state": "ready"})
}
