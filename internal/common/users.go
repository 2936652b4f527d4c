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

package common

import (
	"context"
	"fmt"

	"perkle/internal/models"
	"perkle/internal/store"

	"go.uber.org/zap"
)

// LoadUsers returns the user matching login (username or email), or every
// user when login is empty.
func LoadUsers(ctx context.Context, users store.UserStore, login string, logger *zap.Logger) ([]models.User, error) {
	if login != "" {
		logger.Info("Looking up user", zap.String("login", login))
		user, err := users.GetUserByLogin(ctx, login)
		if err != nil {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return []models.User{*user}, nil
	}

	all, err := users.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	logger.Info("Retrieved users", zap.Int("count", len(all)))
	return all, nil
}
