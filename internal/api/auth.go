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
	"net/http"
	"time"

	"perkle/internal/auth"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type settingsRequest struct {
	EmailNotifications *bool `json:"email_notifications"`
}

func (s *Service) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := s.deps.Auth.Register(c.Request.Context(), auth.RegisterParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (s *Service) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tokens, err := s.deps.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	s.setRefreshCookie(c, tokens)
	c.JSON(http.StatusOK, tokenResponse{AccessToken: tokens.AccessToken, TokenType: "bearer"})
}

func (s *Service) refresh(c *gin.Context) {
	cookie, _ := c.Cookie(s.cfg.Auth.CookieName)
	tokens, err := s.deps.Auth.Refresh(c.Request.Context(), cookie)
	if err != nil {
		s.clearRefreshCookie(c)
		respondError(c, err)
		return
	}
	s.setRefreshCookie(c, tokens)
	c.JSON(http.StatusOK, tokenResponse{AccessToken: tokens.AccessToken, TokenType: "bearer"})
}

func (s *Service) logout(c *gin.Context) {
	if err := s.deps.Auth.Logout(c.Request.Context(), currentUserId(c)); err != nil {
		respondError(c, err)
		return
	}
	s.clearRefreshCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (s *Service) me(c *gin.Context) {
	user, err := s.deps.Store.GetUserById(c.Request.Context(), currentUserId(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Service) updateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	user, err := s.deps.Store.GetUserById(ctx, currentUserId(c))
	if err != nil {
		respondError(c, err)
		return
	}
	settings := user.Settings
	if req.EmailNotifications != nil {
		settings.EmailNotifications = *req.EmailNotifications
	}
	if err := s.deps.Store.UpdateUserSettings(ctx, user.Id, settings); err != nil {
		respondError(c, err)
		return
	}
	user.Settings = settings
	c.JSON(http.StatusOK, user)
}

func (s *Service) setRefreshCookie(c *gin.Context, tokens *auth.Tokens) {
	maxAge := int(time.Until(tokens.RefreshExpiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = int(s.cfg.Auth.RefreshTokenExpiry.Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cfg.Auth.CookieName, tokens.RefreshToken, maxAge, s.cfg.Auth.CookiePath, "", s.cfg.Auth.CookieSecure, true)
}

func (s *Service) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cfg.Auth.CookieName, "", -1, s.cfg.Auth.CookiePath, "", s.cfg.Auth.CookieSecure, true)
}
