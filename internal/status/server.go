// Package status exposes a watch session over HTTP: a liveness probe,
// a JSON snapshot of the loop's progress, and Prometheus metrics.
package status

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agnesscodex/s4/pkg/logger"
)

// NewRouter builds the status routes around a tracker.
func NewRouter(tracker *Tracker) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(requestLogger(), recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, tracker.Snapshot())
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// Serve runs the status server until ctx is cancelled, then shuts it
// down, allowing in-flight requests five seconds to finish.
func Serve(ctx context.Context, addr string, tracker *Tracker) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      NewRouter(tracker),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info().Str("addr", addr).Msg("status server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Log.Info().Msg("status server stopped")
	return <-errCh
}
