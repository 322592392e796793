package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codecraft-io/codecraft/internal/modules/serializer"
	"github.com/codecraft-io/codecraft/internal/modules/service"
)

type ProjectHandler struct {
	svc       service.ProjectService
	workspace service.WorkspaceService
}

func NewProjectHandler(s service.ProjectService, w service.WorkspaceService) *ProjectHandler {
	return &ProjectHandler{svc: s, workspace: w}
}

type CreateProjectReq struct {
	Name        string            `json:"name" binding:"required,max=200"`
	Description string            `json:"description" binding:"omitempty,max=2000"`
	Files       map[string]string `json:"files"`
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	req := CreateProjectReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", errors.New("user not found in context")))
		return
	}

	project, err := h.svc.Create(c.Request.Context(), service.CreateProjectInput{
		OwnerID:     user.ID,
		Name:        req.Name,
		Description: req.Description,
		Files:       req.Files,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: project})
}

type GetProjectResp struct {
	Project  interface{} `json:"project"`
	Files    interface{} `json:"files"`
	Messages interface{} `json:"messages"`
	Status   string      `json:"status"`
}

// GetProject returns the full aggregate plus the derived workspace status.
func (h *ProjectHandler) GetProject(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", errors.New("user not found in context")))
		return
	}

	agg, err := h.svc.Get(c.Request.Context(), projectID, user.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	status, err := h.workspace.Status(c.Request.Context(), agg)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: GetProjectResp{
		Project:  agg.Project,
		Files:    agg.Files,
		Messages: agg.Messages,
		Status:   status,
	}})
}

type ListProjectsReq struct {
	Limit    *int   `form:"limit" json:"limit" binding:"omitempty,min=0,max=200" example:"20"`
	Cursor   string `form:"cursor" json:"cursor"`
	TimeDesc bool   `form:"time_desc,default=true" json:"time_desc" example:"true"`
}

// ListProjects lists the caller's projects, most recently created first by
// default.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	req := ListProjectsReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", errors.New("user not found in context")))
		return
	}

	limit := 0
	if req.Limit != nil {
		limit = *req.Limit
	}

	out, err := h.svc.List(c.Request.Context(), service.ListProjectsInput{
		OwnerID:  user.ID,
		Limit:    limit,
		Cursor:   req.Cursor,
		TimeDesc: req.TimeDesc,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", errors.New("user not found in context")))
		return
	}

	if err := h.svc.Delete(c.Request.Context(), projectID, user.ID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{})
}

type ReplaceFilesReq struct {
	Files map[string]string `json:"files" binding:"required"`
}

// ReplaceFiles swaps the project's whole file set with the editor's current
// state.
func (h *ProjectHandler) ReplaceFiles(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}

	req := ReplaceFilesReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", errors.New("user not found in context")))
		return
	}

	if err := h.svc.ReplaceFiles(c.Request.Context(), projectID, user.ID, req.Files); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{})
}

// GetEditorFiles returns the project files in the shape the in-browser
// editor consumes.
func (h *ProjectHandler) GetEditorFiles(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", errors.New("user not found in context")))
		return
	}

	files, err := h.svc.EditorFileSet(c.Request.Context(), projectID, user.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: files})
}

// ExportProject streams the project as a zip download.
func (h *ProjectHandler) ExportProject(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", errors.New("user not found in context")))
		return
	}

	out, err := h.svc.Export(c.Request.Context(), projectID, user.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	c.Data(http.StatusOK, "application/zip", out.Data)
}
