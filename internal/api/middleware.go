/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"perkle/internal/models"
	"perkle/internal/period"
	"perkle/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userIdKey = "user_id"

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		zap.L().Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

// requestMeta stores client details on the request context for session
// bookkeeping.
func requestMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := models.WithRequestMeta(c.Request.Context(), models.RequestMeta{
			UserAgent: c.Request.UserAgent(),
			IpAddress: c.ClientIP(),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// requireAuth verifies the bearer access token and stores its subject.
func (s *Service) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			token = ""
		}
		userId, err := s.deps.Auth.Authenticate(strings.TrimSpace(token))
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			respondError(c, err)
			c.Abort()
			return
		}
		c.Set(userIdKey, userId)
		c.Next()
	}
}

func currentUserId(c *gin.Context) string {
	return c.GetString(userIdKey)
}

var sentinels = []error{
	store.ErrNotFound,
	store.ErrConflict,
	store.ErrValidation,
	store.ErrAuthRequired,
	store.ErrAuthInvalid,
	period.ErrBadCadence,
	period.ErrBadAnniversary,
}

// errorMessage drops the leading sentinel text from wrapped errors.
func errorMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range sentinels {
		if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
			return rest
		}
	}
	return msg
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrAuthRequired), errors.Is(err, store.ErrAuthInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrValidation),
		errors.Is(err, period.ErrBadCadence),
		errors.Is(err, period.ErrBadAnniversary):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": errorMessage(err)})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
