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

func scanBenefitSetting(row rowScanner) (*models.UserBenefitSetting, error) {
	var (
		setting models.UserBenefitSetting
		mutedAt sql.NullTime
		notes   sql.NullString
	)
	err := row.Scan(&setting.Id, &setting.UserId, &setting.UserCardId, &setting.BenefitSlug,
		&setting.Muted, &mutedAt, &notes, &setting.CreatedAt, &setting.UpdatedAt)
	if err != nil {
		return nil, err
	}
	setting.MutedAt = timePtr(mutedAt)
	setting.Notes = notes.String
	return &setting, nil
}

func (s *Queries) ListBenefitSettings(ctx context.Context, userId, userCardId string) ([]models.UserBenefitSetting, error) {
	rows, err := s.q.QueryContext(ctx, queryListBenefitSettings, userId, userCardId)
	if err != nil {
		return nil, fmt.Errorf("unable to query benefit settings: %w", err)
	}
	defer closeRows(rows)

	var settings []models.UserBenefitSetting
	for rows.Next() {
		setting, err := scanBenefitSetting(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan benefit setting row: %w", err)
		}
		settings = append(settings, *setting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating benefit setting rows: %w", err)
	}
	return settings, nil
}

// UpsertBenefitSetting merges the given fields into the stored setting.
// Muting stamps muted_at; unmuting clears it.
func (s *Queries) UpsertBenefitSetting(ctx context.Context, p store.BenefitSettingParams) (*models.UserBenefitSetting, error) {
	if p.Now.IsZero() {
		p.Now = time.Now()
	}
	now := p.Now.UTC()

	current, err := scanBenefitSetting(s.q.QueryRowContext(ctx, queryGetBenefitSetting, p.UserId, p.UserCardId, p.BenefitSlug))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("unable to query benefit setting: %w", err)
		}
		current = &models.UserBenefitSetting{
			Id:          uuid.New().String(),
			UserId:      p.UserId,
			UserCardId:  p.UserCardId,
			BenefitSlug: p.BenefitSlug,
			CreatedAt:   now,
		}
	}

	if p.Muted != nil && *p.Muted != current.Muted {
		current.Muted = *p.Muted
		if current.Muted {
			current.MutedAt = &now
		} else {
			current.MutedAt = nil
		}
	}
	if p.Notes != nil {
		current.Notes = *p.Notes
	}

	_, err = s.q.ExecContext(ctx, queryUpsertBenefitSetting,
		current.Id, current.UserId, current.UserCardId, current.BenefitSlug,
		current.Muted, nullTime(current.MutedAt), nullString(current.Notes), current.CreatedAt.UTC(), now)
	if err != nil {
		return nil, fmt.Errorf("unable to upsert benefit setting: %w", err)
	}

	zap.L().Info("Benefit setting saved",
		zap.String("user_id", p.UserId),
		zap.String("user_card_id", p.UserCardId),
		zap.String("benefit_slug", p.BenefitSlug),
		zap.Bool("muted", current.Muted))

	saved, err := scanBenefitSetting(s.q.QueryRowContext(ctx, queryGetBenefitSetting, p.UserId, p.UserCardId, p.BenefitSlug))
	if err != nil {
		return nil, fmt.Errorf("unable to reload benefit setting: %w", err)
	}
	return saved, nil
}
