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

// Package auth registers users and manages access tokens and rotating
// refresh sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"perkle/internal/models"
	"perkle/internal/store"

	"go.uber.org/zap"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 8
)

// RegisterParams is a registration request.
type RegisterParams struct {
	Username string
	Email    string
	Password string
}

// Tokens is the result of a login or a refresh.
type Tokens struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
	UserId           string
}

type Service struct {
	store  store.Store
	tokens *TokenManager
	now    func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source used for token and session stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(s store.Store, cfg models.AuthConfig, opts ...Option) *Service {
	svc := &Service{
		store:  s,
		tokens: NewTokenManager(cfg.SecretKey, cfg.AccessTokenExpiry, cfg.RefreshTokenExpiry),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func validateRegistration(p RegisterParams) error {
	if n := len(p.Username); n < MinUsernameLength || n > MaxUsernameLength {
		return fmt.Errorf("%w: username must be %d-%d characters", store.ErrValidation, MinUsernameLength, MaxUsernameLength)
	}
	if addr, err := mail.ParseAddress(p.Email); err != nil || addr.Address != p.Email {
		return fmt.Errorf("%w: invalid email address", store.ErrValidation)
	}
	if len(p.Password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", store.ErrValidation, MinPasswordLength)
	}
	return nil
}

// Register creates a user with email notifications enabled.
func (s *Service) Register(ctx context.Context, p RegisterParams) (*models.User, error) {
	p.Username = strings.TrimSpace(p.Username)
	p.Email = strings.TrimSpace(p.Email)
	if err := validateRegistration(p); err != nil {
		return nil, err
	}

	hash, err := HashPassword(p.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.store.CreateUser(ctx, store.CreateUserParams{
		Username:           p.Username,
		Email:              p.Email,
		PasswordHash:       hash,
		EmailNotifications: true,
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("User registered", zap.String("user_id", user.Id), zap.String("username", user.Username))
	return user, nil
}

// Login accepts a username or an email. Unknown users and wrong passwords
// fail the same way.
func (s *Service) Login(ctx context.Context, login, password string) (*Tokens, error) {
	user, err := s.store.GetUserByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: incorrect username or password", store.ErrAuthInvalid)
		}
		return nil, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, fmt.Errorf("%w: incorrect username or password", store.ErrAuthInvalid)
	}

	now := s.now().UTC()
	var tokens *Tokens
	err = s.store.InTx(ctx, func(q store.Queries) error {
		var err error
		tokens, err = s.startSession(ctx, q, user.Id, "", now)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("User logged in", zap.String("user_id", user.Id))
	return tokens, nil
}

// startSession issues an access token and persists a new refresh session.
func (s *Service) startSession(ctx context.Context, q store.Queries, userId, rotatedFrom string, now time.Time) (*Tokens, error) {
	access, err := s.tokens.IssueAccess(userId, now)
	if err != nil {
		return nil, err
	}
	refresh, jti, expiresAt, err := s.tokens.IssueRefresh(userId, now)
	if err != nil {
		return nil, err
	}

	meta := models.GetRequestMeta(ctx)
	err = q.CreateRefreshSession(ctx, &models.RefreshSession{
		UserId:        userId,
		TokenHash:     HashTokenID(jti),
		CreatedAt:     now,
		ExpiresAt:     expiresAt,
		RotatedFromId: rotatedFrom,
		UserAgent:     truncate(meta.UserAgent, 255),
		IpAddress:     truncate(meta.IpAddress, 45),
	})
	if err != nil {
		return nil, err
	}

	return &Tokens{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: expiresAt,
		UserId:           userId,
	}, nil
}

// Refresh exchanges a refresh token for a new token pair. The presented
// session is revoked, so replaying the same token fails.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: missing refresh token", store.ErrAuthRequired)
	}
	now := s.now().UTC()
	claims, err := s.tokens.Parse(refreshToken, TokenTypeRefresh, now)
	if err != nil {
		return nil, err
	}

	var tokens *Tokens
	err = s.store.InTx(ctx, func(q store.Queries) error {
		session, err := q.GetRefreshSession(ctx, claims.Subject, HashTokenID(claims.ID))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: unknown refresh session", store.ErrAuthInvalid)
			}
			return err
		}
		if !session.Active(now) {
			zap.L().Warn("Inactive refresh session presented",
				zap.String("user_id", session.UserId),
				zap.String("session_id", session.Id),
				zap.Bool("revoked", session.RevokedAt != nil))
			return fmt.Errorf("%w: refresh session is no longer active", store.ErrAuthInvalid)
		}
		if _, err := q.GetUserById(ctx, session.UserId); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: user not found", store.ErrAuthInvalid)
			}
			return err
		}

		revoked, err := q.RevokeRefreshSession(ctx, session.Id, now)
		if err != nil {
			return err
		}
		if !revoked {
			return fmt.Errorf("%w: refresh session is no longer active", store.ErrAuthInvalid)
		}

		tokens, err = s.startSession(ctx, q, session.UserId, session.Id, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Refresh session rotated", zap.String("user_id", tokens.UserId))
	return tokens, nil
}

// Logout revokes every refresh session of the user.
func (s *Service) Logout(ctx context.Context, userId string) error {
	_, err := s.store.RevokeAllRefreshSessions(ctx, userId, s.now().UTC())
	return err
}

// Authenticate verifies an access token and returns its user id.
func (s *Service) Authenticate(accessToken string) (string, error) {
	if accessToken == "" {
		return "", fmt.Errorf("%w: missing access token", store.ErrAuthRequired)
	}
	claims, err := s.tokens.Parse(accessToken, TokenTypeAccess, s.now().UTC())
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
