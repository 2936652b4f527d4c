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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"perkle/internal/models"
	"perkle/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UpsertCardConfig inserts or refreshes a catalog card by slug and returns its id.
func (s *Queries) UpsertCardConfig(ctx context.Context, card *models.CardConfig) (string, error) {
	patterns, err := json.Marshal(card.AccountPatterns)
	if err != nil {
		return "", fmt.Errorf("unable to encode account patterns for %s: %w", card.Slug, err)
	}
	benefits, err := json.Marshal(card.Benefits)
	if err != nil {
		return "", fmt.Errorf("unable to encode benefits for %s: %w", card.Slug, err)
	}

	now := time.Now().UTC()
	var id string
	err = s.q.QueryRowContext(ctx, queryUpsertCardConfig,
		uuid.New().String(), card.Slug, card.Name, card.Issuer, card.AnnualFee.String(),
		card.BenefitsURL, string(patterns), string(benefits), now, now).Scan(&id)
	if err != nil {
		zap.L().Error("Failed to upsert card config", zap.String("slug", card.Slug), zap.Error(err))
		return "", fmt.Errorf("unable to upsert card config %s: %w", card.Slug, err)
	}

	zap.L().Debug("Card config upserted", zap.String("slug", card.Slug), zap.String("id", id))
	return id, nil
}

func (s *Queries) ListCardConfigs(ctx context.Context) ([]models.CardConfig, error) {
	rows, err := s.q.QueryContext(ctx, queryListCardConfigs)
	if err != nil {
		return nil, fmt.Errorf("unable to query card configs: %w", err)
	}
	defer closeRows(rows)

	var cards []models.CardConfig
	for rows.Next() {
		var card models.CardConfig
		var fee, patterns, benefitsBlob string
		if err := rows.Scan(&card.Id, &card.Slug, &card.Name, &card.Issuer, &fee,
			&card.BenefitsURL, &patterns, &benefitsBlob); err != nil {
			return nil, fmt.Errorf("unable to scan card config row: %w", err)
		}
		if card.AnnualFee, err = decimal.NewFromString(fee); err != nil {
			return nil, fmt.Errorf("failed to parse annual fee '%s' for %s: %w", fee, card.Slug, err)
		}
		if err := json.Unmarshal([]byte(patterns), &card.AccountPatterns); err != nil {
			return nil, fmt.Errorf("failed to decode account patterns for %s: %w", card.Slug, err)
		}
		if err := json.Unmarshal([]byte(benefitsBlob), &card.Benefits); err != nil {
			return nil, fmt.Errorf("failed to decode benefits for %s: %w", card.Slug, err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating card config rows: %w", err)
	}
	return cards, nil
}

func scanUserCard(row rowScanner) (*models.UserCard, error) {
	var (
		card                  models.UserCard
		nickname, anniversary sql.NullString
	)
	err := row.Scan(&card.Id, &card.UserId, &card.CardConfigId, &nickname, &anniversary, &card.Active, &card.AddedAt)
	if err != nil {
		return nil, err
	}
	card.Nickname = nickname.String
	card.CardAnniversary = anniversary.String
	return &card, nil
}

func (s *Queries) CreateUserCard(ctx context.Context, params store.CreateUserCardParams) (*models.UserCard, error) {
	id := uuid.New().String()
	_, err := s.q.ExecContext(ctx, queryInsertUserCard, id, params.UserId, params.CardConfigId,
		nullString(params.Nickname), nullString(params.CardAnniversary), time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: card already in portfolio", store.ErrConflict)
		}
		zap.L().Error("Failed to insert user card", zap.String("user_id", params.UserId), zap.Error(err))
		return nil, fmt.Errorf("unable to insert user card: %w", err)
	}

	zap.L().Info("Card added to portfolio",
		zap.String("user_id", params.UserId),
		zap.String("user_card_id", id),
		zap.String("card_config_id", params.CardConfigId))
	return s.GetUserCard(ctx, params.UserId, id)
}

// GetUserCard returns ErrNotFound both for unknown ids and for cards owned by someone else.
func (s *Queries) GetUserCard(ctx context.Context, userId, userCardId string) (*models.UserCard, error) {
	card, err := scanUserCard(s.q.QueryRowContext(ctx, queryGetUserCard, userCardId, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: card not found in your portfolio", store.ErrNotFound)
		}
		return nil, fmt.Errorf("unable to query user card: %w", err)
	}
	return card, nil
}

func (s *Queries) ListUserCards(ctx context.Context, userId string, activeOnly bool) ([]models.UserCard, error) {
	query := queryListUserCards
	if activeOnly {
		query = queryListActiveUserCards
	}
	rows, err := s.q.QueryContext(ctx, query, userId)
	if err != nil {
		return nil, fmt.Errorf("unable to query user cards: %w", err)
	}
	defer closeRows(rows)

	var cards []models.UserCard
	for rows.Next() {
		card, err := scanUserCard(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan user card row: %w", err)
		}
		cards = append(cards, *card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user card rows: %w", err)
	}
	return cards, nil
}

func (s *Queries) UpdateUserCard(ctx context.Context, card *models.UserCard) error {
	result, err := s.q.ExecContext(ctx, queryUpdateUserCard,
		nullString(card.Nickname), nullString(card.CardAnniversary), card.Active, card.Id, card.UserId)
	if err != nil {
		return fmt.Errorf("unable to update user card: %w", err)
	}
	return requireRow(result, "card not found in your portfolio")
}

func (s *Queries) DeleteUserCard(ctx context.Context, userId, userCardId string) error {
	result, err := s.q.ExecContext(ctx, queryDeleteUserCard, userCardId, userId)
	if err != nil {
		return fmt.Errorf("unable to delete user card: %w", err)
	}
	if err := requireRow(result, "card not found in your portfolio"); err != nil {
		return err
	}
	zap.L().Info("Card removed from portfolio", zap.String("user_id", userId), zap.String("user_card_id", userCardId))
	return nil
}

func requireRow(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, what)
	}
	return nil
}
