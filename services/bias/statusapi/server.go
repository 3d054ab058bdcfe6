// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package statusapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/libra-go/libra/services/bias/stats"
)

// Server runs the status/metrics HTTP server for the lifetime of an
// analysis run.
type Server struct {
	httpServer *http.Server
	handlers   *Handlers
}

// NewServer builds a Server bound to addr, reporting on counters.
func NewServer(addr string, counters *stats.Counters) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("libra-bias"))

	handlers := NewHandlers(counters)
	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)
	RegisterMetricsRoute(router)

	return &Server{
		handlers: handlers,
		httpServer: &http.Server{
			Addr:    addr,
			Handler: router,
		},
	}
}

// Run starts the hub's broadcast loop and serves HTTP until ctx is
// cancelled, then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go s.handlers.Run()

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("statusapi: graceful shutdown failed", slog.String("error", err.Error()))
			return err
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// PublishLoop calls Publish every interval until ctx is cancelled. Intended
// to be run in its own goroutine alongside a driver's analysis.
func (s *Server) PublishLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.handlers.Publish()
		}
	}
}
