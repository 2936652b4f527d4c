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

package models

import (
	"github.com/shopspring/decimal"
)

// Status is the projected state of a benefit in its current period
type Status string

const (
	StatusUsed      Status = "used"
	StatusPartial   Status = "partial"
	StatusAvailable Status = "available"
	StatusExpiring  Status = "expiring"
	StatusExpired   Status = "expired"
	StatusInfo      Status = "info"
)

// BenefitStatus is one benefit of one user card, projected for display
type BenefitStatus struct {
	Slug          string          `json:"slug"`
	Name          string          `json:"name"`
	Value         decimal.Decimal `json:"value"`
	Cadence       string          `json:"cadence"`
	TrackingMode  string          `json:"tracking_mode"`
	ResetType     string          `json:"reset_type,omitempty"`
	PeriodStart   string          `json:"period_start"`
	PeriodEnd     string          `json:"period_end"`
	DaysRemaining int             `json:"days_remaining"`
	Status        Status          `json:"status"`
	AmountUsed    decimal.Decimal `json:"amount_used"`
	AmountLimit   decimal.Decimal `json:"amount_limit"`
	Notes         string          `json:"notes,omitempty"`
	ManualNotes   string          `json:"manual_notes,omitempty"`
	Muted         bool            `json:"muted"`
}

// Remaining is limit minus used, floored at zero.
func (b BenefitStatus) Remaining() decimal.Decimal {
	r := b.AmountLimit.Sub(b.AmountUsed)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// CardStatus groups the benefit statuses of one user card
type CardStatus struct {
	UserCardId       string          `json:"user_card_id"`
	CardName         string          `json:"card_name"`
	CardSlug         string          `json:"card_slug"`
	Nickname         string          `json:"nickname,omitempty"`
	CardAnniversary  string          `json:"card_anniversary,omitempty"`
	NextRenewalDate  string          `json:"next_renewal_date,omitempty"`
	DaysUntilRenewal *int            `json:"days_until_renewal,omitempty"`
	AnnualFee        decimal.Decimal `json:"annual_fee"`
	BenefitsURL      string          `json:"benefits_url,omitempty"`
	Benefits         []BenefitStatus `json:"benefits"`
}

// StatusSummary is the dashboard rollup
type StatusSummary struct {
	TotalAvailableValue decimal.Decimal `json:"total_available_value"`
	TotalUsedValue      decimal.Decimal `json:"total_used_value"`
	ExpiringSoonCount   int             `json:"expiring_soon_count"`
	CardsCount          int             `json:"cards_count"`
}

// StatusReport is the response of the status projection
type StatusReport struct {
	Cards   []CardStatus  `json:"cards"`
	Summary StatusSummary `json:"summary"`
}

// DetectedBenefit is one transaction applied to a benefit by the detector
type DetectedBenefit struct {
	Card            string          `json:"card"`
	Benefit         string          `json:"benefit"`
	Amount          decimal.Decimal `json:"amount"`
	Date            string          `json:"date"`
	TransactionName string          `json:"transaction_name"`
}

// DetectionResult summarises one detector run
type DetectionResult struct {
	Detected     int               `json:"detected"`
	CardsChecked int               `json:"cards_checked"`
	Benefits     []DetectedBenefit `json:"benefits"`
}

// ImportResult summarises a CSV upload
type ImportResult struct {
	Imported    int      `json:"imported"`
	Skipped     int      `json:"skipped"`
	Errors      []string `json:"errors"`
	TotalErrors int      `json:"total_errors"`
}

// TransactionPage is a paginated transaction listing
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Total        int           `json:"total"`
	Limit        int           `json:"limit"`
	Offset       int           `json:"offset"`
}

// ExpiringBenefit is a digest line for a benefit about to lapse
type ExpiringBenefit struct {
	UserCardId    string          `json:"user_card_id"`
	CardName      string          `json:"card_name"`
	BenefitSlug   string          `json:"benefit_slug"`
	BenefitName   string          `json:"benefit_name"`
	Remaining     decimal.Decimal `json:"remaining"`
	DaysRemaining int             `json:"days_remaining"`
	PeriodEnd     string          `json:"period_end"`
}

// UpcomingRenewal is a digest line for a card whose annual fee is due soon
type UpcomingRenewal struct {
	UserCardId       string          `json:"user_card_id"`
	CardName         string          `json:"card_name"`
	AnnualFee        decimal.Decimal `json:"annual_fee"`
	CardAnniversary  string          `json:"card_anniversary"`
	RenewalDate      string          `json:"renewal_date"`
	DaysUntilRenewal int             `json:"days_until_renewal"`
}

// Digest is the weekly report for one user
type Digest struct {
	UserId           string            `json:"user_id"`
	Username         string            `json:"username"`
	Email            string            `json:"email"`
	ExpiringBenefits []ExpiringBenefit `json:"expiring_benefits"`
	UpcomingRenewals []UpcomingRenewal `json:"upcoming_renewals"`
}

// Empty reports whether the digest has nothing to say.
func (d *Digest) Empty() bool {
	return len(d.ExpiringBenefits) == 0 && len(d.UpcomingRenewals) == 0
}

// DigestRunResult counts outcomes of a send-all run
type DigestRunResult struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}
