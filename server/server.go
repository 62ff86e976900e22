// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

// Package server is the authenticated HTTP boundary in front of the update
// synchronizer.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/VozzyUp/vozzysmartoficial/metrics"
	"github.com/VozzyUp/vozzysmartoficial/workflow"
)

// Synchronizer is the slice of the updater the HTTP boundary needs.
type Synchronizer interface {
	Check(ctx context.Context) (workflow.CheckResult, error)
	Apply(ctx context.Context) (workflow.ApplyResult, error)
}

type Config struct {
	Addr string
	// APIKey authenticates dashboard calls. Serving without one is refused.
	APIKey  string
	Sync    Synchronizer
	Metrics *metrics.Metrics
	Log     *slog.Logger
}

type Server struct {
	echo    *echo.Echo
	addr    string
	sync    Synchronizer
	metrics *metrics.Metrics
	log     *slog.Logger
}

func New(config Config) (*Server, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if config.Sync == nil {
		return nil, fmt.Errorf("synchronizer is required")
	}
	m := config.Metrics
	if m == nil {
		m = metrics.New()
	}
	log := config.Log
	if log == nil {
		log = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:    e,
		addr:    config.Addr,
		sync:    config.Sync,
		metrics: m,
		log:     log,
	}

	e.GET("/healthz", s.health)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	api := e.Group("/api/update", requireAPIKey(config.APIKey))
	api.GET("/check", s.check)
	api.POST("/apply", s.apply)

	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until an error or an interrupt, then drains in-flight
// requests before returning.
func (s *Server) Start() error {
	errs := make(chan error, 1)
	go func() {
		s.log.Info("server starting", "addr", s.addr)
		errs <- s.echo.Start(s.addr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errs:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		s.log.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.echo.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.log.Info("shutdown complete")
	}

	return nil
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
