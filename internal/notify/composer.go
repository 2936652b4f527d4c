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

// Package notify composes the weekly benefit digest and delivers it by email.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"perkle/internal/models"
	"perkle/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultExpiringDays = 7
	DefaultRenewalDays  = 30

	NotificationTypeDigest = "digest"
)

// ErrNotSent is returned by SendForUser when there was nothing to deliver.
var ErrNotSent = errors.New("digest not sent")

// StatusSource projects benefit status for a user.
type StatusSource interface {
	Status(ctx context.Context, userId string, includeHidden bool) (*models.StatusReport, error)
}

// Composer builds digests from the status projection and hands them to a
// Sender. A nil Sender means email is disabled.
type Composer struct {
	store        store.Store
	status       StatusSource
	sender       Sender
	expiringDays int
	renewalDays  int
	now          func() time.Time
}

type Option func(*Composer)

func WithClock(now func() time.Time) Option {
	return func(c *Composer) {
		c.now = now
	}
}

// WithThresholds sets the expiring and renewal look-ahead in days.
func WithThresholds(expiringDays, renewalDays int) Option {
	return func(c *Composer) {
		if expiringDays > 0 {
			c.expiringDays = expiringDays
		}
		if renewalDays > 0 {
			c.renewalDays = renewalDays
		}
	}
}

func NewComposer(s store.Store, status StatusSource, sender Sender, opts ...Option) *Composer {
	c := &Composer{
		store:        s,
		status:       status,
		sender:       sender,
		expiringDays: DefaultExpiringDays,
		renewalDays:  DefaultRenewalDays,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Build selects expiring benefits and upcoming renewals for the user. Muted
// benefits are never reported as expiring; muting does not hide renewals.
func (c *Composer) Build(ctx context.Context, user *models.User) (*models.Digest, error) {
	report, err := c.status.Status(ctx, user.Id, true)
	if err != nil {
		return nil, fmt.Errorf("unable to project status: %w", err)
	}

	digest := &models.Digest{
		UserId:           user.Id,
		Username:         user.Username,
		Email:            user.Email,
		ExpiringBenefits: []models.ExpiringBenefit{},
		UpcomingRenewals: []models.UpcomingRenewal{},
	}

	for _, card := range report.Cards {
		for _, b := range card.Benefits {
			if b.Muted || !c.isExpiring(b) {
				continue
			}
			digest.ExpiringBenefits = append(digest.ExpiringBenefits, models.ExpiringBenefit{
				UserCardId:    card.UserCardId,
				CardName:      card.CardName,
				BenefitSlug:   b.Slug,
				BenefitName:   b.Name,
				Remaining:     b.Remaining(),
				DaysRemaining: b.DaysRemaining,
				PeriodEnd:     b.PeriodEnd,
			})
		}

		if card.DaysUntilRenewal != nil && *card.DaysUntilRenewal >= 0 && *card.DaysUntilRenewal <= c.renewalDays {
			digest.UpcomingRenewals = append(digest.UpcomingRenewals, models.UpcomingRenewal{
				UserCardId:       card.UserCardId,
				CardName:         card.CardName,
				AnnualFee:        card.AnnualFee,
				CardAnniversary:  card.CardAnniversary,
				RenewalDate:      card.NextRenewalDate,
				DaysUntilRenewal: *card.DaysUntilRenewal,
			})
		}
	}
	return digest, nil
}

func (c *Composer) isExpiring(b models.BenefitStatus) bool {
	switch b.Status {
	case models.StatusExpiring:
		return true
	case models.StatusAvailable, models.StatusPartial:
		return b.DaysRemaining > 0 && b.DaysRemaining <= c.expiringDays
	}
	return false
}

// Preview builds the digest of a user without sending it.
func (c *Composer) Preview(ctx context.Context, userId string) (*models.Digest, error) {
	user, err := c.store.GetUserById(ctx, userId)
	if err != nil {
		return nil, err
	}
	return c.Build(ctx, user)
}

// SendForUser emails the digest and records an in-app notification. It
// returns ErrNotSent when notifications are disabled, email is not configured
// or there is nothing to report.
func (c *Composer) SendForUser(ctx context.Context, user *models.User) error {
	if !user.Settings.EmailNotifications {
		return fmt.Errorf("%w: email notifications disabled", ErrNotSent)
	}

	digest, err := c.Build(ctx, user)
	if err != nil {
		return err
	}
	if digest.Empty() {
		return fmt.Errorf("%w: nothing to report", ErrNotSent)
	}
	if c.sender == nil {
		zap.L().Warn("SMTP not configured, skipping digest email", zap.String("user_id", user.Id))
		return fmt.Errorf("%w: email not configured", ErrNotSent)
	}

	msg, err := Render(digest, c.expiringDays)
	if err != nil {
		return err
	}
	if err := c.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("unable to send digest to %s: %w", user.Email, err)
	}

	err = c.store.CreateNotification(ctx, &models.Notification{
		Id:        uuid.New().String(),
		UserId:    user.Id,
		Type:      NotificationTypeDigest,
		Title:     "Weekly digest sent",
		Message:   msg.Subject,
		CreatedAt: c.now().UTC(),
	})
	if err != nil {
		return err
	}

	zap.L().Info("Digest sent",
		zap.String("user_id", user.Id),
		zap.Int("expiring", len(digest.ExpiringBenefits)),
		zap.Int("renewals", len(digest.UpcomingRenewals)))
	return nil
}

// SendAll sends the digest to every user. One user's failure does not stop
// the run.
func (c *Composer) SendAll(ctx context.Context) (*models.DigestRunResult, error) {
	users, err := c.store.GetUsers(ctx)
	if err != nil {
		return nil, err
	}

	result := &models.DigestRunResult{}
	for i := range users {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		err := c.SendForUser(ctx, &users[i])
		switch {
		case err == nil:
			result.Sent++
		case errors.Is(err, ErrNotSent):
			result.Skipped++
		default:
			result.Failed++
			zap.L().Error("Failed to send digest",
				zap.String("user_id", users[i].Id),
				zap.Error(err))
		}
	}

	zap.L().Info("Digest run complete",
		zap.Int("sent", result.Sent),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	return result, nil
}
