// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const apiKeyHeader = "X-API-Key"

// requireAPIKey rejects unauthenticated calls before any update logic runs.
// The key may arrive as an X-API-Key header or an Authorization bearer token.
func requireAPIKey(key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			presented := c.Request().Header.Get(apiKeyHeader)
			if presented == "" {
				auth := c.Request().Header.Get("Authorization")
				presented = strings.TrimPrefix(auth, "Bearer ")
			}
			if presented == "" {
				return c.JSON(http.StatusUnauthorized, errorBody("authentication required"))
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
				return c.JSON(http.StatusUnauthorized, errorBody("invalid credentials"))
			}
			return next(c)
		}
	}
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}
