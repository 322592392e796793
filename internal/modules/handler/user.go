package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codecraft-io/codecraft/internal/middleware"
	"github.com/codecraft-io/codecraft/internal/modules/serializer"
	"github.com/codecraft-io/codecraft/internal/modules/service"
)

type UserHandler struct {
	svc service.UserService
}

func NewUserHandler(s service.UserService) *UserHandler {
	return &UserHandler{svc: s}
}

type SyncUserReq struct {
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarURL string `json:"avatar_url"`
}

// SyncUser upserts the signed-in user from identity provider claims plus the
// profile fields the client sends on sign-in.
func (h *UserHandler) SyncUser(c *gin.Context) {
	req := SyncUserReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	subject, ok := c.MustGet(middleware.ContextSubjectKey).(string)
	if !ok || subject == "" {
		c.JSON(http.StatusUnauthorized, serializer.AuthErr(""))
		return
	}

	user, err := h.svc.Sync(c.Request.Context(), service.SyncUserInput{
		Subject:   subject,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: user})
}

// Me returns the authenticated user's record.
func (h *UserHandler) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", errors.New("user not found in context")))
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: user})
}
