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
	"strings"

	"perkle/internal/models"
	"perkle/internal/period"
	"perkle/internal/store"
)

// AddCardParams adds a catalog card to a portfolio.
type AddCardParams struct {
	CardConfigId    string
	Nickname        string
	CardAnniversary string
}

// UpdateCardParams patches a portfolio entry. Nil fields are left unchanged.
type UpdateCardParams struct {
	Nickname        *string
	CardAnniversary *string
	Active          *bool
}

// normalizeAnniversary validates an anniversary and returns its canonical
// form. Empty means unknown.
func normalizeAnniversary(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	a, err := period.ParseAnniversary(value)
	if err != nil {
		return "", err
	}
	return a.String(), nil
}

func (e *Engine) view(uc models.UserCard) models.UserCardView {
	v := models.UserCardView{UserCard: uc}
	if cfg, ok := e.catalog.GetByID(uc.CardConfigId); ok {
		v.CardName, v.CardSlug, v.CardIssuer = cfg.Name, cfg.Slug, cfg.Issuer
	}
	return v
}

// ListCards returns the user's portfolio, inactive cards included.
func (e *Engine) ListCards(ctx context.Context, userId string) ([]models.UserCardView, error) {
	cards, err := e.store.ListUserCards(ctx, userId, false)
	if err != nil {
		return nil, err
	}
	views := make([]models.UserCardView, 0, len(cards))
	for _, uc := range cards {
		views = append(views, e.view(uc))
	}
	return views, nil
}

func (e *Engine) AddCard(ctx context.Context, userId string, params AddCardParams) (*models.UserCardView, error) {
	if _, ok := e.catalog.GetByID(params.CardConfigId); !ok {
		return nil, fmt.Errorf("%w: card configuration %q", store.ErrNotFound, params.CardConfigId)
	}
	anniversary, err := normalizeAnniversary(params.CardAnniversary)
	if err != nil {
		return nil, err
	}

	uc, err := e.store.CreateUserCard(ctx, store.CreateUserCardParams{
		UserId:          userId,
		CardConfigId:    params.CardConfigId,
		Nickname:        strings.TrimSpace(params.Nickname),
		CardAnniversary: anniversary,
	})
	if err != nil {
		return nil, err
	}
	v := e.view(*uc)
	return &v, nil
}

func (e *Engine) UpdateCard(ctx context.Context, userId, userCardId string, params UpdateCardParams) (*models.UserCardView, error) {
	var updated *models.UserCard
	err := e.store.InTx(ctx, func(q store.Queries) error {
		uc, err := q.GetUserCard(ctx, userId, userCardId)
		if err != nil {
			return err
		}
		if params.Nickname != nil {
			uc.Nickname = strings.TrimSpace(*params.Nickname)
		}
		if params.CardAnniversary != nil {
			if uc.CardAnniversary, err = normalizeAnniversary(*params.CardAnniversary); err != nil {
				return err
			}
		}
		if params.Active != nil {
			uc.Active = *params.Active
		}
		if err := q.UpdateUserCard(ctx, uc); err != nil {
			return err
		}
		updated = uc
		return nil
	})
	if err != nil {
		return nil, err
	}
	v := e.view(*updated)
	return &v, nil
}

// RemoveCard deletes a portfolio entry with its periods and settings.
func (e *Engine) RemoveCard(ctx context.Context, userId, userCardId string) error {
	return e.store.DeleteUserCard(ctx, userId, userCardId)
}

// BenefitSettings lists the hide flags of an owned card.
func (e *Engine) BenefitSettings(ctx context.Context, userId, userCardId string) ([]models.UserBenefitSetting, error) {
	if _, err := e.store.GetUserCard(ctx, userId, userCardId); err != nil {
		return nil, err
	}
	settings, err := e.store.ListBenefitSettings(ctx, userId, userCardId)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = []models.UserBenefitSetting{}
	}
	return settings, nil
}

// UpdateBenefitSetting mutes, unmutes or annotates a benefit of an owned card.
func (e *Engine) UpdateBenefitSetting(ctx context.Context, userId, userCardId, benefitSlug string, muted *bool, notes *string) (*models.UserBenefitSetting, error) {
	var setting *models.UserBenefitSetting
	err := e.store.InTx(ctx, func(q store.Queries) error {
		if _, _, _, err := e.lookupBenefit(ctx, q, userId, userCardId, benefitSlug); err != nil {
			return err
		}
		var err error
		setting, err = q.UpsertBenefitSetting(ctx, store.BenefitSettingParams{
			UserId:      userId,
			UserCardId:  userCardId,
			BenefitSlug: benefitSlug,
			Muted:       muted,
			Notes:       notes,
			Now:         e.now().UTC(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return setting, nil
}
