package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/codecraft-io/codecraft/internal/middleware"
	"github.com/codecraft-io/codecraft/internal/modules/model"
	"github.com/codecraft-io/codecraft/internal/modules/repo"
	"github.com/codecraft-io/codecraft/internal/modules/serializer"
	"github.com/codecraft-io/codecraft/internal/modules/service"
	"github.com/codecraft-io/codecraft/internal/pkg/paging"
)

// currentUser pulls the authenticated user set by middleware.UserAuth.
func currentUser(c *gin.Context) (*model.User, bool) {
	user, ok := c.MustGet(middleware.ContextUserKey).(*model.User)
	return user, ok
}

func parseProjectID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid project id", err))
		return uuid.Nil, false
	}
	return id, true
}

// respondServiceError maps service and repo sentinels onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repo.ErrProjectNotFound), errors.Is(err, repo.ErrUserNotFound):
		c.JSON(http.StatusNotFound, serializer.NotFoundErr("", err))
	case errors.Is(err, service.ErrNotOwner):
		c.JSON(http.StatusForbidden, serializer.Err(http.StatusForbidden, "forbidden", err))
	case errors.Is(err, service.ErrGenerationInFlight):
		c.JSON(http.StatusConflict, serializer.Err(http.StatusConflict, "a generation is already running for this project", err))
	case errors.Is(err, service.ErrGeneration):
		c.JSON(http.StatusBadGateway, serializer.Err(http.StatusBadGateway, "generation failed", err))
	case errors.Is(err, repo.ErrInvalidRole),
		errors.Is(err, repo.ErrOwnerNotFound),
		errors.Is(err, service.ErrEmptyPrompt),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, paging.ErrInvalidCursor):
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
	default:
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
	}
}
