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

	"perkle/internal/models"
	"perkle/internal/period"
	"perkle/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MarkParams is a manual usage mark. A nil Amount marks the remaining value
// of the current period.
type MarkParams struct {
	UserCardId  string
	BenefitSlug string
	Amount      *decimal.Decimal
	Notes       string
}

// MarkUsed records manual usage of a benefit in its current period.
func (e *Engine) MarkUsed(ctx context.Context, userId string, params MarkParams) (*models.BenefitPeriod, error) {
	today := e.today()
	var bp *models.BenefitPeriod

	err := e.store.InTx(ctx, func(q store.Queries) error {
		uc, _, b, err := e.lookupBenefit(ctx, q, userId, params.UserCardId, params.BenefitSlug)
		if err != nil {
			return err
		}
		if b.TrackingMode == period.TrackInfo {
			return fmt.Errorf("%w: %s is informational and has no usage to record", store.ErrValidation, b.Name)
		}

		s, err := resolve(ctx, q, uc, b, today)
		if err != nil {
			return err
		}
		w, err := s.windowFor(today)
		if err != nil {
			return err
		}
		if s.record != nil {
			w, err = storedWindow(s.record)
			if err != nil {
				return err
			}
		}

		amount, err := markAmount(params.Amount, s.record, b.Value)
		if err != nil {
			return err
		}

		_, bp, err = q.RecordUsage(ctx, store.RecordUsageParams{
			UserCardId:  uc.Id,
			BenefitSlug: b.Slug,
			PeriodStart: period.FormatDate(w.Start),
			PeriodEnd:   period.FormatDate(w.End),
			Limit:       b.Value,
			Amount:      amount,
			Manual:      true,
			ManualNotes: params.Notes,
			Now:         e.now().UTC(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Benefit marked used",
		zap.String("user_id", userId),
		zap.String("user_card_id", params.UserCardId),
		zap.String("benefit", params.BenefitSlug),
		zap.String("amount_used", bp.AmountUsed.String()))
	return bp, nil
}

// markAmount validates a manual amount against the period limit.
func markAmount(requested *decimal.Decimal, record *models.BenefitPeriod, value decimal.Decimal) (decimal.Decimal, error) {
	if record == nil {
		amount := value
		if requested != nil {
			amount = *requested
		}
		if !amount.IsPositive() {
			return decimal.Zero, fmt.Errorf("%w: amount must be greater than zero", store.ErrValidation)
		}
		if amount.GreaterThan(value) {
			return decimal.Zero, fmt.Errorf("%w: amount ($%s) exceeds benefit limit ($%s)",
				store.ErrValidation, amount.StringFixed(2), value.StringFixed(2))
		}
		return amount, nil
	}

	amount := record.AmountLimit.Sub(record.AmountUsed)
	if requested != nil {
		amount = *requested
	}
	if !amount.IsPositive() {
		if requested == nil {
			return decimal.Zero, fmt.Errorf("%w: benefit already fully used this period", store.ErrValidation)
		}
		return decimal.Zero, fmt.Errorf("%w: amount must be greater than zero", store.ErrValidation)
	}
	if total := record.AmountUsed.Add(amount); total.GreaterThan(record.AmountLimit) {
		return decimal.Zero, fmt.Errorf("%w: amount would exceed benefit limit ($%s). Current: $%s, Adding: $%s",
			store.ErrValidation, record.AmountLimit.StringFixed(2), record.AmountUsed.StringFixed(2), amount.StringFixed(2))
	}
	return amount, nil
}

// History returns every stored period of a benefit on an owned card, newest
// first.
func (e *Engine) History(ctx context.Context, userId, userCardId, benefitSlug string) ([]models.BenefitPeriod, error) {
	if _, err := e.store.GetUserCard(ctx, userId, userCardId); err != nil {
		return nil, err
	}
	periods, err := e.store.ListBenefitPeriods(ctx, userCardId, benefitSlug)
	if err != nil {
		return nil, err
	}
	if periods == nil {
		periods = []models.BenefitPeriod{}
	}
	return periods, nil
}
