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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"perkle/internal/models"
	"perkle/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Queries) CreateRefreshSession(ctx context.Context, session *models.RefreshSession) error {
	if session.Id == "" {
		session.Id = uuid.New().String()
	}
	_, err := s.q.ExecContext(ctx, queryInsertRefreshSession,
		session.Id, session.UserId, session.TokenHash, session.CreatedAt.UTC(), session.ExpiresAt.UTC(),
		nullTime(session.RevokedAt), nullTime(session.LastUsedAt), nullString(session.RotatedFromId),
		nullString(session.UserAgent), nullString(session.IpAddress))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: refresh session", store.ErrConflict)
		}
		return fmt.Errorf("unable to insert refresh session: %w", err)
	}
	zap.L().Debug("Refresh session created", zap.String("user_id", session.UserId), zap.String("session_id", session.Id))
	return nil
}

func (s *Queries) GetRefreshSession(ctx context.Context, userId, tokenHash string) (*models.RefreshSession, error) {
	var (
		session                        models.RefreshSession
		revokedAt, lastUsedAt          sql.NullTime
		rotatedFrom, userAgent, ipAddr sql.NullString
	)
	err := s.q.QueryRowContext(ctx, queryGetRefreshSession, userId, tokenHash).Scan(
		&session.Id, &session.UserId, &session.TokenHash, &session.CreatedAt, &session.ExpiresAt,
		&revokedAt, &lastUsedAt, &rotatedFrom, &userAgent, &ipAddr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: refresh session", store.ErrNotFound)
		}
		return nil, fmt.Errorf("unable to query refresh session: %w", err)
	}
	session.RevokedAt = timePtr(revokedAt)
	session.LastUsedAt = timePtr(lastUsedAt)
	session.RotatedFromId = rotatedFrom.String
	session.UserAgent = userAgent.String
	session.IpAddress = ipAddr.String
	return &session, nil
}

// RevokeRefreshSession revokes a session that is still active. It reports
// false when another caller revoked it first.
func (s *Queries) RevokeRefreshSession(ctx context.Context, sessionId string, at time.Time) (bool, error) {
	at = at.UTC()
	result, err := s.q.ExecContext(ctx, queryRevokeRefreshSession, at, at, sessionId)
	if err != nil {
		return false, fmt.Errorf("unable to revoke refresh session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unable to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *Queries) RevokeAllRefreshSessions(ctx context.Context, userId string, at time.Time) (int64, error) {
	result, err := s.q.ExecContext(ctx, queryRevokeAllRefreshSessions, at.UTC(), userId)
	if err != nil {
		return 0, fmt.Errorf("unable to revoke refresh sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("unable to get rows affected: %w", err)
	}
	zap.L().Info("Refresh sessions revoked", zap.String("user_id", userId), zap.Int64("count", n))
	return n, nil
}
