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

	"perkle/internal/models"
	"perkle/internal/period"
	"perkle/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ExpiringDays is the window, in days, in which an unused benefit is flagged
// as expiring.
const ExpiringDays = 7

// Classify derives the status label of a benefit in its current period.
// record may be nil when nothing has been recorded for the period.
func Classify(mode period.TrackingMode, cadence period.Cadence, record *models.BenefitPeriod, daysRemaining int) models.Status {
	switch {
	case mode == period.TrackInfo || cadence == period.PerBooking:
		return models.StatusInfo
	case record != nil && record.Completed:
		return models.StatusUsed
	case record != nil && record.AmountUsed.IsPositive():
		return models.StatusPartial
	case daysRemaining == 0:
		return models.StatusExpired
	case daysRemaining <= ExpiringDays:
		return models.StatusExpiring
	default:
		return models.StatusAvailable
	}
}

// Summarize rolls projected cards up into dashboard totals.
func Summarize(cards []models.CardStatus) models.StatusSummary {
	summary := models.StatusSummary{
		TotalAvailableValue: decimal.Zero,
		TotalUsedValue:      decimal.Zero,
		CardsCount:          len(cards),
	}
	for _, card := range cards {
		for _, b := range card.Benefits {
			switch b.Status {
			case models.StatusAvailable:
				summary.TotalAvailableValue = summary.TotalAvailableValue.Add(b.AmountLimit)
			case models.StatusExpiring:
				summary.TotalAvailableValue = summary.TotalAvailableValue.Add(b.AmountLimit)
				summary.ExpiringSoonCount++
			case models.StatusUsed:
				summary.TotalUsedValue = summary.TotalUsedValue.Add(b.AmountUsed)
			}
		}
	}
	return summary
}

// Status projects every benefit of every active card of the user onto its
// current period. Muted benefits are left out unless includeHidden is set.
func (e *Engine) Status(ctx context.Context, userId string, includeHidden bool) (*models.StatusReport, error) {
	today := e.today()
	report := &models.StatusReport{Cards: []models.CardStatus{}}

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
			card, err := e.cardStatus(ctx, q, userId, uc, cfg, today, includeHidden)
			if err != nil {
				return fmt.Errorf("status of card %s: %w", uc.Id, err)
			}
			report.Cards = append(report.Cards, *card)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report.Summary = Summarize(report.Cards)
	return report, nil
}

func (e *Engine) cardStatus(
	ctx context.Context,
	q store.Queries,
	userId string,
	uc *models.UserCard,
	cfg *models.CardConfig,
	today time.Time,
	includeHidden bool,
) (*models.CardStatus, error) {
	card := &models.CardStatus{
		UserCardId:      uc.Id,
		CardName:        cfg.Name,
		CardSlug:        cfg.Slug,
		Nickname:        uc.Nickname,
		CardAnniversary: uc.CardAnniversary,
		AnnualFee:       cfg.AnnualFee,
		BenefitsURL:     cfg.BenefitsURL,
		Benefits:        []models.BenefitStatus{},
	}
	if uc.CardAnniversary != "" {
		a, err := period.ParseAnniversary(uc.CardAnniversary)
		if err != nil {
			return nil, err
		}
		days := a.DaysUntilRenewal(today)
		card.NextRenewalDate = period.FormatDate(a.NextOccurrence(today))
		card.DaysUntilRenewal = &days
	}

	settings, err := q.ListBenefitSettings(ctx, userId, uc.Id)
	if err != nil {
		return nil, err
	}
	muted := make(map[string]bool, len(settings))
	for _, s := range settings {
		muted[s.BenefitSlug] = s.Muted
	}

	for i := range cfg.Benefits {
		b := &cfg.Benefits[i]
		if muted[b.Slug] && !includeHidden {
			continue
		}
		s, err := resolve(ctx, q, uc, b, today)
		if err != nil {
			return nil, fmt.Errorf("benefit %s: %w", b.Slug, err)
		}
		days := s.window.DaysRemaining(today)

		bs := models.BenefitStatus{
			Slug:          b.Slug,
			Name:          b.Name,
			Value:         b.Value,
			Cadence:       string(b.Cadence),
			TrackingMode:  string(b.TrackingMode),
			ResetType:     string(b.ResetType),
			PeriodStart:   period.FormatDate(s.window.Start),
			PeriodEnd:     period.FormatDate(s.window.End),
			DaysRemaining: days,
			Status:        Classify(b.TrackingMode, b.Cadence, s.record, days),
			AmountUsed:    decimal.Zero,
			AmountLimit:   b.Value,
			Notes:         b.Notes,
			Muted:         muted[b.Slug],
		}
		if s.record != nil {
			bs.AmountUsed = s.record.AmountUsed
			bs.AmountLimit = s.record.AmountLimit
			bs.ManualNotes = s.record.ManualNotes
		}
		card.Benefits = append(card.Benefits, bs)
	}
	return card, nil
}
