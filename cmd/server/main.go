package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do"
	"go.uber.org/zap"

	"github.com/codecraft-io/codecraft/internal/bootstrap"
	"github.com/codecraft-io/codecraft/internal/config"
	"github.com/codecraft-io/codecraft/internal/modules/handler"
	"github.com/codecraft-io/codecraft/internal/modules/service"
	"github.com/codecraft-io/codecraft/internal/router"
)

func main() {
	inj := bootstrap.BuildContainer()

	cfg := do.MustInvoke[*config.Config](inj)
	log := do.MustInvoke[*zap.Logger](inj)
	defer func() { _ = log.Sync() }()

	r := router.NewRouter(router.RouterDeps{
		Config:           cfg,
		Log:              log,
		UserService:      do.MustInvoke[service.UserService](inj),
		UserHandler:      do.MustInvoke[*handler.UserHandler](inj),
		ProjectHandler:   do.MustInvoke[*handler.ProjectHandler](inj),
		WorkspaceHandler: do.MustInvoke[*handler.WorkspaceHandler](inj),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}

	if err := inj.Shutdown(); err != nil {
		log.Error("container shutdown", zap.Error(err))
	}
}
