package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codecraft-io/codecraft/internal/modules/serializer"
	"github.com/codecraft-io/codecraft/internal/modules/service"
)

type WorkspaceHandler struct {
	svc service.WorkspaceService
}

func NewWorkspaceHandler(s service.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{svc: s}
}

type GenerateReq struct {
	Prompt string `json:"prompt" binding:"required,max=8000"`
}

// Generate creates a project from a natural-language description.
func (h *WorkspaceHandler) Generate(c *gin.Context) {
	req := GenerateReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", errors.New("user not found in context")))
		return
	}

	out, err := h.svc.Generate(c.Request.Context(), service.GenerateInput{
		OwnerID: user.ID,
		Prompt:  req.Prompt,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

type ChatTurnReq struct {
	Message string `json:"message" binding:"required,max=8000"`
}

// ChatTurn applies a follow-up instruction to an existing project.
func (h *WorkspaceHandler) ChatTurn(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}

	req := ChatTurnReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", errors.New("user not found in context")))
		return
	}

	out, err := h.svc.ChatTurn(c.Request.Context(), service.ChatTurnInput{
		ProjectID: projectID,
		OwnerID:   user.ID,
		Message:   req.Message,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: out})
}
