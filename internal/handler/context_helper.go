package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sched-console/internal/middleware"
	"github.com/noah-isme/sched-console/internal/models"
	appErrors "github.com/noah-isme/sched-console/pkg/errors"
)

func sessionFromContext(c *gin.Context) string {
	return middleware.SessionID(c)
}

func kindParam(c *gin.Context) (models.Kind, error) {
	raw := c.Param("kind")
	kind, ok := models.ParseKind(raw)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrUnknownKind, fmt.Sprintf("unknown entity kind %q", raw))
	}
	return kind, nil
}
