// Package server exposes the recommender over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/logger"
)

const (
	DefaultAddress  = ":8000"
	shutdownTimeout = 30 * time.Second
)

func NewRouter(h *Handler, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(Recovery(log))
	r.Use(RequestLogger(log))

	r.GET("/health", h.HealthCheck)
	r.POST("/initial_recommend_jobs/", h.InitialRecommend)
	r.POST("/update_recommend_jobs/", h.UpdateRecommend)

	return r
}

// Run serves handler on addr until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, addr string, handler http.Handler, log *zap.Logger) error {
	log = logger.OrNop(log)
	if addr == "" {
		addr = DefaultAddress
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
