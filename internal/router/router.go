package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/codecraft-io/codecraft/internal/config"
	"github.com/codecraft-io/codecraft/internal/middleware"
	"github.com/codecraft-io/codecraft/internal/modules/handler"
	"github.com/codecraft-io/codecraft/internal/modules/serializer"
	"github.com/codecraft-io/codecraft/internal/modules/service"
)

type RouterDeps struct {
	Config           *config.Config
	Log              *zap.Logger
	UserService      service.UserService
	UserHandler      *handler.UserHandler
	ProjectHandler   *handler.ProjectHandler
	WorkspaceHandler *handler.WorkspaceHandler
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.ZapLogger(d.Log))

	// health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, serializer.Response{Msg: "ok"}) })

	v1 := r.Group("/api/v1")
	{
		// Sync runs before the user row exists, so it only needs a valid token.
		v1.POST("/users/sync", middleware.UserAuth(d.Config, d.UserService, false), d.UserHandler.SyncUser)

		authed := v1.Group("")
		authed.Use(middleware.UserAuth(d.Config, d.UserService, true))
		{
			authed.GET("/me", d.UserHandler.Me)

			authed.POST("/generate", d.WorkspaceHandler.Generate)

			project := authed.Group("/projects")
			{
				project.GET("", d.ProjectHandler.ListProjects)
				project.POST("", d.ProjectHandler.CreateProject)
				project.GET("/:project_id", d.ProjectHandler.GetProject)
				project.DELETE("/:project_id", d.ProjectHandler.DeleteProject)

				project.PUT("/:project_id/files", d.ProjectHandler.ReplaceFiles)
				project.GET("/:project_id/editor", d.ProjectHandler.GetEditorFiles)
				project.GET("/:project_id/export", d.ProjectHandler.ExportProject)

				project.POST("/:project_id/chat", d.WorkspaceHandler.ChatTurn)
			}
		}
	}
	return r
}
