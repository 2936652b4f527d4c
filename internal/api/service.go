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

// Package api exposes the HTTP surface of the application.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"perkle/internal/auth"
	"perkle/internal/benefits"
	"perkle/internal/importer"
	"perkle/internal/models"
	"perkle/internal/notify"
	"perkle/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CatalogReader lists the card catalog.
type CatalogReader interface {
	ListAll() []models.CardConfig
}

// Dependencies are the services the handlers call into.
type Dependencies struct {
	Store    store.Store
	Catalog  CatalogReader
	Engine   *benefits.Engine
	Importer *importer.Importer
	Auth     *auth.Service
	Composer *notify.Composer
}

// Service owns the gin router and its handlers.
type Service struct {
	deps   Dependencies
	cfg    *models.Config
	router *gin.Engine
}

func NewService(cfg *models.Config, deps Dependencies) *Service {
	s := &Service{deps: deps, cfg: cfg}
	s.router = s.buildRouter()
	return s
}

// Handler returns the root http.Handler.
func (s *Service) Handler() http.Handler {
	return s.router
}

func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.deps.Store.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func (s *Service) buildRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), requestMeta())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.Server.CorsOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", s.health)

	apiGroup := r.Group("/api")

	authGroup := apiGroup.Group("/auth")
	authGroup.POST("/register", s.register)
	authGroup.POST("/login", s.login)
	authGroup.POST("/refresh", s.refresh)

	protected := apiGroup.Group("")
	protected.Use(s.requireAuth())
	{
		protected.POST("/auth/logout", s.logout)
		protected.GET("/auth/me", s.me)
		protected.PUT("/auth/me/settings", s.updateSettings)

		protected.GET("/cards/my", s.listMyCards)
		protected.POST("/cards/my", s.addMyCard)
		protected.PATCH("/cards/my/:id", s.updateMyCard)
		protected.DELETE("/cards/my/:id", s.deleteMyCard)
		protected.GET("/cards/my/:id/benefits/settings", s.listBenefitSettings)
		protected.PUT("/cards/my/:id/benefits/settings", s.updateBenefitSetting)

		protected.POST("/transactions/upload", s.uploadTransactions)
		protected.GET("/transactions", s.listTransactions)

		protected.GET("/benefits/status", s.benefitStatus)
		protected.POST("/benefits/detect", s.detectBenefits)
		protected.POST("/benefits/mark-used", s.markUsed)
		protected.GET("/benefits/history/:card/:slug", s.benefitHistory)

		protected.GET("/notifications", s.listNotifications)
		protected.POST("/notifications/:id/read", s.readNotification)
		protected.GET("/notifications/digest/preview", s.previewDigest)
		protected.POST("/notifications/digest/send", s.sendDigest)
	}

	apiGroup.GET("/cards/available", s.availableCards)

	return r
}

func (s *Service) health(c *gin.Context) {
	if err := s.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "app": s.cfg.AppName})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "app": s.cfg.AppName})
}
