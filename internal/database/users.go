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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.Id, &user.Username, &user.Email, &user.PasswordHash,
		&user.Settings.EmailNotifications, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Queries) CreateUser(ctx context.Context, params store.CreateUserParams) (*models.User, error) {
	userId := uuid.New().String()
	now := time.Now().UTC()
	zap.L().Info("Creating user", zap.String("id", userId), zap.String("username", params.Username), zap.String("email", params.Email))

	_, err := s.q.ExecContext(ctx, queryInsertUser, userId, params.Username, params.Email,
		params.PasswordHash, params.EmailNotifications, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: username or email already registered", store.ErrConflict)
		}
		zap.L().Error("Failed to insert user", zap.String("email", params.Email), zap.Error(err))
		return nil, fmt.Errorf("unable to insert user: %w", err)
	}

	return s.GetUserById(ctx, userId)
}

func (s *Queries) GetUsers(ctx context.Context) ([]models.User, error) {
	zap.L().Debug("Querying users")

	rows, err := s.q.QueryContext(ctx, queryGetUsers)
	if err != nil {
		zap.L().Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("unable to query users: %w", err)
	}
	defer closeRows(rows)

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			zap.L().Error("Failed to scan user row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}
		users = append(users, *user)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during user row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	zap.L().Debug("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

func (s *Queries) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	return s.getUser(ctx, "id", queryGetUserById, userId)
}

func (s *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email", queryGetUserByEmail, email)
}

// GetUserByLogin matches a username first, then an email.
func (s *Queries) GetUserByLogin(ctx context.Context, usernameOrEmail string) (*models.User, error) {
	return s.getUser(ctx, "login", queryGetUserByLogin, usernameOrEmail, usernameOrEmail, usernameOrEmail)
}

func (s *Queries) getUser(ctx context.Context, by, query string, args ...any) (*models.User, error) {
	user, err := scanUser(s.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user", store.ErrNotFound)
		}
		zap.L().Error("Failed to query user", zap.String("by", by), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by %s: %w", by, err)
	}
	return user, nil
}

func (s *Queries) UpdateUserSettings(ctx context.Context, userId string, settings models.UserSettings) error {
	result, err := s.q.ExecContext(ctx, queryUpdateUserSettings, settings.EmailNotifications, time.Now().UTC(), userId)
	if err != nil {
		return fmt.Errorf("unable to update user settings: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("%w: user", store.ErrNotFound)
	}

	zap.L().Info("User settings updated",
		zap.String("user_id", userId),
		zap.Bool("email_notifications", settings.EmailNotifications))
	return nil
}
