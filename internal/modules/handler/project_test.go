package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/codecraft-io/codecraft/internal/modules/model"
	"github.com/codecraft-io/codecraft/internal/modules/repo"
	"github.com/codecraft-io/codecraft/internal/modules/service"
)

func testUser() *model.User {
	return &model.User{ID: uuid.New(), Subject: "user_2abc", Email: "alice@codecraft.dev"}
}

func newProjectRouter(u *model.User, svc service.ProjectService, ws service.WorkspaceService) *gin.Engine {
	h := NewProjectHandler(svc, ws)
	r := gin.New()
	g := r.Group("/projects", withUser(u))
	g.POST("", h.CreateProject)
	g.GET("", h.ListProjects)
	g.GET("/:project_id", h.GetProject)
	g.DELETE("/:project_id", h.DeleteProject)
	g.PUT("/:project_id/files", h.ReplaceFiles)
	g.GET("/:project_id/editor", h.GetEditorFiles)
	g.GET("/:project_id/export", h.ExportProject)
	return r
}

func TestProjectHandler_CreateProject(t *testing.T) {
	user := testUser()

	tests := []struct {
		name     string
		body     interface{}
		setup    func(*MockProjectService)
		wantCode int
	}{
		{
			name: "successful create",
			body: CreateProjectReq{Name: "portfolio", Files: map[string]string{"/index.html": "<html></html>"}},
			setup: func(s *MockProjectService) {
				s.On("Create", mock.Anything, mock.MatchedBy(func(in service.CreateProjectInput) bool {
					return in.OwnerID == user.ID && in.Name == "portfolio"
				})).Return(&model.Project{ID: uuid.New(), OwnerID: user.ID, Name: "portfolio"}, nil)
			},
			wantCode: http.StatusOK,
		},
		{
			name:     "missing name",
			body:     map[string]string{"description": "no name"},
			setup:    func(s *MockProjectService) {},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "owner not found",
			body: CreateProjectReq{Name: "portfolio"},
			setup: func(s *MockProjectService) {
				s.On("Create", mock.Anything, mock.Anything).Return(nil, repo.ErrOwnerNotFound)
			},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := &MockProjectService{}
			tt.setup(mockSvc)

			r := newProjectRouter(user, mockSvc, &MockWorkspaceService{})
			w := doRequest(r, http.MethodPost, "/projects", jsonBody(t, tt.body))

			assert.Equal(t, tt.wantCode, w.Code)
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestProjectHandler_GetProject(t *testing.T) {
	user := testUser()
	projectID := uuid.New()

	tests := []struct {
		name     string
		path     string
		setup    func(*MockProjectService, *MockWorkspaceService)
		wantCode int
		wantBody string
	}{
		{
			name: "aggregate with status",
			path: "/projects/" + projectID.String(),
			setup: func(s *MockProjectService, ws *MockWorkspaceService) {
				agg := &repo.ProjectAggregate{
					Project: model.Project{ID: projectID, OwnerID: user.ID, Name: "portfolio"},
					Files:   []model.ProjectFile{{Path: "index.html", Content: "<html></html>"}},
				}
				s.On("Get", mock.Anything, projectID, user.ID).Return(agg, nil)
				ws.On("Status", mock.Anything, agg).Return(service.StatusReady, nil)
			},
			wantCode: http.StatusOK,
			wantBody: `"status":"ready"`,
		},
		{
			name: "unknown project",
			path: "/projects/" + projectID.String(),
			setup: func(s *MockProjectService, ws *MockWorkspaceService) {
				s.On("Get", mock.Anything, projectID, user.ID).Return(nil, repo.ErrProjectNotFound)
			},
			wantCode: http.StatusNotFound,
		},
		{
			name: "someone else's project",
			path: "/projects/" + projectID.String(),
			setup: func(s *MockProjectService, ws *MockWorkspaceService) {
				s.On("Get", mock.Anything, projectID, user.ID).Return(nil, service.ErrNotOwner)
			},
			wantCode: http.StatusForbidden,
		},
		{
			name:     "malformed project id",
			path:     "/projects/not-a-uuid",
			setup:    func(s *MockProjectService, ws *MockWorkspaceService) {},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := &MockProjectService{}
			mockWs := &MockWorkspaceService{}
			tt.setup(mockSvc, mockWs)

			r := newProjectRouter(user, mockSvc, mockWs)
			w := doRequest(r, http.MethodGet, tt.path, nil)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
			}
			mockSvc.AssertExpectations(t)
			mockWs.AssertExpectations(t)
		})
	}
}

func TestProjectHandler_ListProjects(t *testing.T) {
	user := testUser()

	mockSvc := &MockProjectService{}
	mockSvc.On("List", mock.Anything, mock.MatchedBy(func(in service.ListProjectsInput) bool {
		return in.OwnerID == user.ID && in.Limit == 20 && in.TimeDesc
	})).Return(&service.ListProjectsOutput{
		Items:   []*model.Project{{ID: uuid.New(), OwnerID: user.ID, Name: "portfolio"}},
		HasMore: false,
	}, nil)

	r := newProjectRouter(user, mockSvc, &MockWorkspaceService{})
	w := doRequest(r, http.MethodGet, "/projects?limit=20", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "portfolio")
	mockSvc.AssertExpectations(t)
}

func TestProjectHandler_DeleteProject(t *testing.T) {
	user := testUser()
	projectID := uuid.New()

	mockSvc := &MockProjectService{}
	mockSvc.On("Delete", mock.Anything, projectID, user.ID).Return(nil)

	r := newProjectRouter(user, mockSvc, &MockWorkspaceService{})
	w := doRequest(r, http.MethodDelete, "/projects/"+projectID.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestProjectHandler_ReplaceFiles(t *testing.T) {
	user := testUser()
	projectID := uuid.New()

	t.Run("successful replace", func(t *testing.T) {
		mockSvc := &MockProjectService{}
		mockSvc.On("ReplaceFiles", mock.Anything, projectID, user.ID, map[string]string{
			"/index.html": "<html></html>",
		}).Return(nil)

		r := newProjectRouter(user, mockSvc, &MockWorkspaceService{})
		w := doRequest(r, http.MethodPut, "/projects/"+projectID.String()+"/files",
			jsonBody(t, ReplaceFilesReq{Files: map[string]string{"/index.html": "<html></html>"}}))

		assert.Equal(t, http.StatusOK, w.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("missing files field", func(t *testing.T) {
		r := newProjectRouter(user, &MockProjectService{}, &MockWorkspaceService{})
		w := doRequest(r, http.MethodPut, "/projects/"+projectID.String()+"/files",
			jsonBody(t, map[string]string{}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestProjectHandler_ExportProject(t *testing.T) {
	user := testUser()
	projectID := uuid.New()

	mockSvc := &MockProjectService{}
	mockSvc.On("Export", mock.Anything, projectID, user.ID).Return(&service.ExportOutput{
		Filename: "portfolio.zip",
		Data:     []byte("PK\x03\x04"),
	}, nil)

	r := newProjectRouter(user, mockSvc, &MockWorkspaceService{})
	w := doRequest(r, http.MethodGet, "/projects/"+projectID.String()+"/export", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="portfolio.zip"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "PK\x03\x04", w.Body.String())
	mockSvc.AssertExpectations(t)
}
