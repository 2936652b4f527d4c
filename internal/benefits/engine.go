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

// Package benefits tracks benefit usage per card period: detection from
// credit transactions, manual marks and the status projection.
package benefits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"perkle/internal/models"
	"perkle/internal/period"
	"perkle/internal/store"

	"go.uber.org/zap"
)

// CardLookup resolves catalog cards by database id.
type CardLookup interface {
	GetByID(id string) (*models.CardConfig, bool)
}

// Engine is safe for concurrent use; all mutable state lives in the store.
type Engine struct {
	store   store.Store
	catalog CardLookup
	now     func() time.Time
}

type Option func(*Engine)

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(s store.Store, catalog CardLookup, opts ...Option) *Engine {
	e := &Engine{store: s, catalog: catalog, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) today() time.Time {
	return period.Civil(e.now().UTC())
}

// slot is the current window of one benefit on one user card.
type slot struct {
	window period.Window
	// record is the stored period for window, if any.
	record *models.BenefitPeriod
	// opensAtUse is set for rolling benefits without a live period: a use
	// opens a new window starting on the usage date.
	opensAtUse bool
	opened     *period.Window
	params     period.Params
}

// windowFor returns the window a usage on date should be recorded in.
// Dates must be presented in ascending order.
func (s *slot) windowFor(date time.Time) (period.Window, error) {
	if !s.opensAtUse {
		return s.window, nil
	}
	if s.opened != nil && s.opened.Contains(date) {
		return *s.opened, nil
	}
	p := s.params
	p.LastUsed = &date
	return period.Bounds(p, date)
}

// used records that a usage landed in w.
func (s *slot) used(w period.Window) {
	if s.opensAtUse {
		s.opened = &w
	}
}

func paramsFor(uc *models.UserCard, b *models.BenefitDef) (period.Params, error) {
	p := period.Params{Cadence: b.Cadence, Reset: b.ResetType, ResetYears: b.ResetYears}
	if b.ResetType == period.CardmemberYear && uc.CardAnniversary != "" {
		a, err := period.ParseAnniversary(uc.CardAnniversary)
		if err != nil {
			return p, err
		}
		p.Anniversary = &a
	}
	return p, nil
}

func storedWindow(bp *models.BenefitPeriod) (period.Window, error) {
	start, err := period.ParseDate(bp.PeriodStart)
	if err != nil {
		return period.Window{}, err
	}
	end, err := period.ParseDate(bp.PeriodEnd)
	if err != nil {
		return period.Window{}, err
	}
	return period.Window{Start: start, End: end}, nil
}

// resolve finds the current window of b on uc and the period stored for it.
//
// A stored period that still contains today is reused as the window, even
// when the card anniversary has changed since it was opened. Otherwise a
// fresh window is trimmed against the latest stored period so stored periods
// never overlap.
func resolve(ctx context.Context, q store.Queries, uc *models.UserCard, b *models.BenefitDef, today time.Time) (*slot, error) {
	p, err := paramsFor(uc, b)
	if err != nil {
		return nil, err
	}
	s := &slot{params: p}

	latest, err := q.LatestBenefitPeriod(ctx, uc.Id, b.Slug)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	var stored *period.Window
	if latest != nil {
		w, err := storedWindow(latest)
		if err != nil {
			return nil, fmt.Errorf("stored period %s: %w", latest.Id, err)
		}
		if w.Contains(today) {
			s.window, s.record = w, latest
			return s, nil
		}
		stored = &w
	}

	w, err := period.Bounds(p, today)
	if err != nil {
		return nil, err
	}
	if stored != nil && !w.Start.After(stored.End) && !stored.Start.After(w.End) {
		if stored.End.Before(today) {
			w.Start = stored.End.AddDate(0, 0, 1)
		} else {
			w.End = stored.Start.AddDate(0, 0, -1)
		}
	}
	s.window = w
	s.opensAtUse = b.Cadence == period.Rolling
	return s, nil
}

// lookupBenefit loads an owned user card and one benefit of its catalog card.
func (e *Engine) lookupBenefit(ctx context.Context, q store.Queries, userId, userCardId, slug string) (*models.UserCard, *models.CardConfig, *models.BenefitDef, error) {
	uc, err := q.GetUserCard(ctx, userId, userCardId)
	if err != nil {
		return nil, nil, nil, err
	}
	cfg, ok := e.catalog.GetByID(uc.CardConfigId)
	if !ok {
		zap.L().Warn("User card references unknown card config",
			zap.String("user_card_id", uc.Id),
			zap.String("card_config_id", uc.CardConfigId))
		return nil, nil, nil, fmt.Errorf("%w: card config", store.ErrNotFound)
	}
	b := cfg.Benefit(slug)
	if b == nil {
		return nil, nil, nil, fmt.Errorf("%w: benefit not found for this card", store.ErrNotFound)
	}
	return uc, cfg, b, nil
}
