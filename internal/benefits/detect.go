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

package benefits

import (
	"context"
	"fmt"
	"time"

	"perkle/internal/matcher"
	"perkle/internal/models"
	"perkle/internal/period"
	"perkle/internal/store"

	"go.uber.org/zap"
)

// Detect scans the user's credit transactions and applies every credit that
// matches an automatic benefit to that benefit's current period. Each
// transaction counts toward at most one benefit, so running Detect again over
// the same data changes nothing.
func (e *Engine) Detect(ctx context.Context, userId string) (*models.DetectionResult, error) {
	today := e.today()
	result := &models.DetectionResult{Benefits: []models.DetectedBenefit{}}

	err := e.store.InTx(ctx, func(q store.Queries) error {
		cards, err := q.ListUserCards(ctx, userId, true)
		if err != nil {
			return err
		}

		for i := range cards {
			uc := &cards[i]
			cfg, ok := e.catalog.GetByID(uc.CardConfigId)
			if !ok {
				zap.L().Warn("Skipping user card with unknown card config",
					zap.String("user_card_id", uc.Id),
					zap.String("card_config_id", uc.CardConfigId))
				continue
			}
			result.CardsChecked++

			for j := range cfg.Benefits {
				b := &cfg.Benefits[j]
				if b.TrackingMode != period.TrackAuto || len(b.DetectionRules.CreditPatterns) == 0 {
					continue
				}
				found, err := e.detectBenefit(ctx, q, userId, uc, cfg, b, today)
				if err != nil {
					return fmt.Errorf("detect %s/%s: %w", cfg.Slug, b.Slug, err)
				}
				result.Benefits = append(result.Benefits, found...)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Detected = len(result.Benefits)
	zap.L().Info("Benefit detection complete",
		zap.String("user_id", userId),
		zap.Int("cards_checked", result.CardsChecked),
		zap.Int("detected", result.Detected))
	return result, nil
}

func (e *Engine) detectBenefit(
	ctx context.Context,
	q store.Queries,
	userId string,
	uc *models.UserCard,
	cfg *models.CardConfig,
	b *models.BenefitDef,
	today time.Time,
) ([]models.DetectedBenefit, error) {
	s, err := resolve(ctx, q, uc, b, today)
	if err != nil {
		return nil, err
	}

	txns, err := q.ListCreditTransactions(ctx, userId, cfg.Id,
		period.FormatDate(s.window.Start), period.FormatDate(s.window.End))
	if err != nil {
		return nil, err
	}

	var found []models.DetectedBenefit
	for i := range txns {
		txn := &txns[i]
		if txn.BenefitSlug != "" && txn.BenefitSlug != b.Slug {
			continue
		}
		if !matcher.Matches(txn.Name, b.DetectionRules.CreditPatterns) {
			continue
		}
		date, err := period.ParseDate(txn.Date)
		if err != nil {
			zap.L().Warn("Skipping transaction with unparseable date",
				zap.String("transaction_id", txn.Id),
				zap.String("date", txn.Date))
			continue
		}

		w, err := s.windowFor(date)
		if err != nil {
			return nil, err
		}
		if !w.Contains(date) {
			continue
		}

		amount := txn.Amount.Abs()
		outcome, _, err := q.RecordUsage(ctx, store.RecordUsageParams{
			UserCardId:    uc.Id,
			BenefitSlug:   b.Slug,
			PeriodStart:   period.FormatDate(w.Start),
			PeriodEnd:     period.FormatDate(w.End),
			Limit:         b.Value,
			Amount:        amount,
			TransactionId: txn.Id,
			Now:           e.now().UTC(),
		})
		if err != nil {
			return nil, err
		}
		if outcome == store.UsageAlreadyApplied {
			continue
		}

		s.used(w)
		found = append(found, models.DetectedBenefit{
			Card:            cfg.Name,
			Benefit:         b.Name,
			Amount:          amount,
			Date:            txn.Date,
			TransactionName: txn.Name,
		})
	}
	return found, nil
}
