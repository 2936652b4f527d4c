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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanBenefitPeriod(row rowScanner) (*models.BenefitPeriod, error) {
	var (
		bp                models.BenefitPeriod
		limitStr, usedStr string
		completedAt       sql.NullTime
		manualNotes       sql.NullString
	)
	err := row.Scan(&bp.Id, &bp.UserCardId, &bp.BenefitSlug, &bp.PeriodStart, &bp.PeriodEnd,
		&limitStr, &usedStr, &bp.UsageCount, &bp.Completed, &completedAt,
		&bp.ManualChecked, &manualNotes, &bp.CreatedAt, &bp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if bp.AmountLimit, err = decimal.NewFromString(limitStr); err != nil {
		return nil, fmt.Errorf("failed to parse amount_limit '%s': %w", limitStr, err)
	}
	if bp.AmountUsed, err = decimal.NewFromString(usedStr); err != nil {
		return nil, fmt.Errorf("failed to parse amount_used '%s': %w", usedStr, err)
	}
	bp.CompletedAt = timePtr(completedAt)
	bp.ManualNotes = manualNotes.String
	return &bp, nil
}

// RecordUsage applies an amount to the accumulator of (user card, benefit,
// period start). A transaction already tagged with this benefit is reported
// as already applied and nothing is written. Otherwise the period row is
// created or accumulated, clamped to its limit, and the transaction is tagged.
// Callers outside a transaction should use Service.RecordUsage.
func (s *Queries) RecordUsage(ctx context.Context, p store.RecordUsageParams) (store.UsageOutcome, *models.BenefitPeriod, error) {
	if !p.Amount.IsPositive() {
		return 0, nil, fmt.Errorf("%w: usage amount must be positive, got %s", store.ErrValidation, p.Amount)
	}
	if p.Now.IsZero() {
		p.Now = time.Now()
	}
	p.Now = p.Now.UTC()

	if p.TransactionId != "" {
		applied, err := s.transactionBenefit(ctx, p.TransactionId)
		if err != nil {
			return 0, nil, err
		}
		if applied == p.BenefitSlug {
			zap.L().Debug("Transaction already applied",
				zap.String("transaction_id", p.TransactionId),
				zap.String("benefit_slug", p.BenefitSlug))
			return store.UsageAlreadyApplied, nil, nil
		}
	}

	outcome := store.UsageAccumulated
	bp, err := s.GetBenefitPeriod(ctx, p.UserCardId, p.BenefitSlug, p.PeriodStart)
	if errors.Is(err, store.ErrNotFound) {
		bp, err = s.insertBenefitPeriod(ctx, p)
		if err == nil {
			outcome = store.UsageCreated
		} else if isUniqueViolation(err) {
			// Lost an insert race; the row exists now, accumulate into it.
			bp, err = s.GetBenefitPeriod(ctx, p.UserCardId, p.BenefitSlug, p.PeriodStart)
			if err == nil {
				bp, err = s.accumulate(ctx, bp, p)
			}
		}
	} else if err == nil {
		bp, err = s.accumulate(ctx, bp, p)
	}
	if err != nil {
		return 0, nil, err
	}

	if p.TransactionId != "" {
		if err := s.setTransactionBenefit(ctx, p.TransactionId, p.BenefitSlug); err != nil {
			return 0, nil, err
		}
	}

	zap.L().Info("Benefit usage recorded",
		zap.String("user_card_id", p.UserCardId),
		zap.String("benefit_slug", p.BenefitSlug),
		zap.String("period_start", p.PeriodStart),
		zap.String("outcome", outcome.String()),
		zap.String("amount_used", bp.AmountUsed.String()),
		zap.String("amount_limit", bp.AmountLimit.String()),
		zap.Bool("completed", bp.Completed))
	return outcome, bp, nil
}

func (s *Queries) insertBenefitPeriod(ctx context.Context, p store.RecordUsageParams) (*models.BenefitPeriod, error) {
	used := decimal.Min(p.Amount, p.Limit)
	completed := used.GreaterThanOrEqual(p.Limit)
	var completedAt *time.Time
	if completed {
		completedAt = &p.Now
	}

	id := uuid.New().String()
	_, err := s.q.ExecContext(ctx, queryInsertBenefitPeriod,
		id, p.UserCardId, p.BenefitSlug, p.PeriodStart, p.PeriodEnd,
		p.Limit.String(), used.String(), 1, completed, nullTime(completedAt),
		p.Manual, nullString(p.ManualNotes), p.Now, p.Now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("unable to insert benefit period: %w", err)
	}
	return s.GetBenefitPeriod(ctx, p.UserCardId, p.BenefitSlug, p.PeriodStart)
}

// accumulate clamps to the limit stored on the period. Completion never reverts.
func (s *Queries) accumulate(ctx context.Context, bp *models.BenefitPeriod, p store.RecordUsageParams) (*models.BenefitPeriod, error) {
	used := decimal.Min(bp.AmountUsed.Add(p.Amount), bp.AmountLimit)
	completed := bp.Completed || used.GreaterThanOrEqual(bp.AmountLimit)
	completedAt := bp.CompletedAt
	if completed && completedAt == nil {
		completedAt = &p.Now
	}
	manualNotes := bp.ManualNotes
	if p.ManualNotes != "" {
		manualNotes = p.ManualNotes
	}

	_, err := s.q.ExecContext(ctx, queryUpdateBenefitPeriodUsage,
		used.String(), bp.UsageCount+1, completed, nullTime(completedAt),
		bp.ManualChecked || p.Manual, nullString(manualNotes), p.Now, bp.Id)
	if err != nil {
		return nil, fmt.Errorf("unable to update benefit period: %w", err)
	}
	return s.GetBenefitPeriod(ctx, bp.UserCardId, bp.BenefitSlug, bp.PeriodStart)
}

func (s *Queries) GetBenefitPeriod(ctx context.Context, userCardId, benefitSlug, periodStart string) (*models.BenefitPeriod, error) {
	bp, err := scanBenefitPeriod(s.q.QueryRowContext(ctx, queryGetBenefitPeriod, userCardId, benefitSlug, periodStart))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: benefit period", store.ErrNotFound)
		}
		return nil, fmt.Errorf("unable to query benefit period: %w", err)
	}
	return bp, nil
}

// LatestBenefitPeriod returns the period with the greatest start for a benefit.
func (s *Queries) LatestBenefitPeriod(ctx context.Context, userCardId, benefitSlug string) (*models.BenefitPeriod, error) {
	bp, err := scanBenefitPeriod(s.q.QueryRowContext(ctx, queryLatestBenefitPeriod, userCardId, benefitSlug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: benefit period", store.ErrNotFound)
		}
		return nil, fmt.Errorf("unable to query latest benefit period: %w", err)
	}
	return bp, nil
}

// ListBenefitPeriods returns every stored period of a benefit, newest first.
func (s *Queries) ListBenefitPeriods(ctx context.Context, userCardId, benefitSlug string) ([]models.BenefitPeriod, error) {
	rows, err := s.q.QueryContext(ctx, queryListBenefitPeriods, userCardId, benefitSlug)
	if err != nil {
		return nil, fmt.Errorf("unable to query benefit periods: %w", err)
	}
	defer closeRows(rows)

	var periods []models.BenefitPeriod
	for rows.Next() {
		bp, err := scanBenefitPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan benefit period row: %w", err)
		}
		periods = append(periods, *bp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating benefit period rows: %w", err)
	}
	return periods, nil
}
