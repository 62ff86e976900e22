// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/VozzyUp/vozzysmartoficial/manifest"
	"github.com/VozzyUp/vozzysmartoficial/metrics"
	"github.com/VozzyUp/vozzysmartoficial/state"
	"github.com/VozzyUp/vozzysmartoficial/transport"
	"github.com/VozzyUp/vozzysmartoficial/updater"
	"github.com/VozzyUp/vozzysmartoficial/workflow"
)

type checkResponse struct {
	workflow.CheckResult
	Error string `json:"error,omitempty"`
}

type applyResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	workflow.ApplyResult
	Error            string   `json:"error,omitempty"`
	BlockedFiles     []string `json:"blockedFiles,omitempty"`
	RollbackFailures []string `json:"rollbackFailures,omitempty"`
}

// GET /api/update/check
func (s *Server) check(c echo.Context) error {
	result, err := s.sync.Check(c.Request().Context())
	if err == nil {
		s.metrics.ChecksTotal.WithLabelValues(metrics.OutcomeOK).Inc()
		return c.JSON(http.StatusOK, checkResponse{CheckResult: result})
	}

	s.log.Warn("update check failed", "error", err)

	var protected *workflow.ProtectedFilesError
	switch {
	case errors.Is(err, state.ErrNotConfigured):
		s.metrics.ChecksTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return c.JSON(http.StatusNotFound, errorBody("template state is not configured"))
	case errors.As(err, &protected):
		s.metrics.ChecksTotal.WithLabelValues(metrics.OutcomeRefused).Inc()
		return c.JSON(http.StatusForbidden, checkResponse{
			CheckResult: result,
			Error:       protected.Error(),
		})
	case errors.Is(err, manifest.ErrGatewayTimeout):
		s.metrics.ChecksTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return c.JSON(http.StatusGatewayTimeout, checkResponse{
			CheckResult: result,
			Error:       err.Error(),
		})
	default:
		// The installed version is known even when the remote is not; the
		// dashboard still shows "you are on vX".
		s.metrics.ChecksTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return c.JSON(http.StatusInternalServerError, checkResponse{
			CheckResult: result,
			Error:       err.Error(),
		})
	}
}

// POST /api/update/apply
func (s *Server) apply(c echo.Context) error {
	started := time.Now()
	result, err := s.sync.Apply(c.Request().Context())
	s.metrics.ApplyDuration.Observe(time.Since(started).Seconds())

	if err == nil {
		s.metrics.AppliesTotal.WithLabelValues(metrics.OutcomeOK).Inc()
		return c.JSON(http.StatusOK, applyResponse{
			Success:     true,
			Status:      "applied",
			ApplyResult: result,
		})
	}

	s.log.Warn("update apply failed", "error", err)

	var (
		protected  *workflow.ProtectedFilesError
		rolledBack *workflow.RollbackError
	)
	switch {
	case errors.Is(err, workflow.ErrNoUpdateNeeded):
		s.metrics.AppliesTotal.WithLabelValues(metrics.OutcomeRefused).Inc()
		return c.JSON(http.StatusBadRequest, applyResponse{
			Status: "up_to_date",
			Error:  err.Error(),
		})
	case errors.As(err, &protected):
		s.metrics.AppliesTotal.WithLabelValues(metrics.OutcomeRefused).Inc()
		return c.JSON(http.StatusForbidden, applyResponse{
			Status:       "refused",
			Error:        protected.Error(),
			BlockedFiles: protected.Blocked,
		})
	case errors.Is(err, updater.ErrCredentialMissing):
		s.metrics.AppliesTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return c.JSON(http.StatusUnauthorized, applyResponse{
			Status: "needs_auth",
			Error:  err.Error(),
		})
	case errors.Is(err, updater.ErrUpdateInProgress):
		s.metrics.AppliesTotal.WithLabelValues(metrics.OutcomeRefused).Inc()
		return c.JSON(http.StatusConflict, applyResponse{
			Status: "in_progress",
			Error:  err.Error(),
		})
	case errors.Is(err, state.ErrNotConfigured):
		s.metrics.AppliesTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return c.JSON(http.StatusNotFound, applyResponse{
			Status: "error",
			Error:  "template state is not configured",
		})
	case errors.As(err, &rolledBack):
		s.metrics.AppliesTotal.WithLabelValues(metrics.OutcomeRolledBack).Inc()
		return c.JSON(http.StatusInternalServerError, applyResponse{
			Status:           "rolled_back",
			ApplyResult:      result,
			Error:            rolledBack.Error(),
			RollbackFailures: rolledBack.RollbackFailures,
		})
	case errors.Is(err, manifest.ErrGatewayTimeout), errors.Is(err, transport.ErrGatewayTimeout):
		s.metrics.AppliesTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return c.JSON(http.StatusGatewayTimeout, applyResponse{
			Status: "error",
			Error:  err.Error(),
		})
	case errors.Is(err, transport.ErrRemoteRejected):
		s.metrics.AppliesTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return c.JSON(http.StatusBadGateway, applyResponse{
			Status: "error",
			Error:  err.Error(),
		})
	default:
		s.metrics.AppliesTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return c.JSON(http.StatusInternalServerError, applyResponse{
			Status: "error",
			Error:  err.Error(),
		})
	}
}
