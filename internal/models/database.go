package models

import (
	"time"

	"perkle/internal/period"

	"github.com/shopspring/decimal"
)

// UserSettings holds per-user preferences
type UserSettings struct {
	EmailNotifications bool `json:"email_notifications"`
}

// User represents a registered cardholder
type User struct {
	Id           string       `db:"id" json:"id"`
	Username     string       `db:"username" json:"username"`
	Email        string       `db:"email" json:"email"`
	PasswordHash string       `db:"password_hash" json:"-"`
	Settings     UserSettings `json:"settings"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// DetectionRules drive automatic usage detection for a benefit
type DetectionRules struct {
	CreditPatterns []string `json:"credit_patterns"`
	LookbackDays   int      `json:"lookback_days,omitempty"`
}

// BenefitDef is one benefit of a catalog card. Identity within a card is Slug.
type BenefitDef struct {
	Slug           string              `json:"slug"`
	Name           string              `json:"name"`
	Value          decimal.Decimal     `json:"value"`
	Cadence        period.Cadence      `json:"cadence"`
	TrackingMode   period.TrackingMode `json:"tracking_mode"`
	ResetType      period.ResetType    `json:"reset_type,omitempty"`
	ResetYears     int                 `json:"reset_years,omitempty"`
	DetectionRules DetectionRules      `json:"detection_rules"`
	Notes          string              `json:"notes,omitempty"`
}

// CardConfig is a shared catalog entry
type CardConfig struct {
	Id              string          `db:"id" json:"id"`
	Slug            string          `db:"slug" json:"slug"`
	Name            string          `db:"name" json:"name"`
	Issuer          string          `db:"issuer" json:"issuer"`
	AnnualFee       decimal.Decimal `db:"annual_fee" json:"annual_fee"`
	BenefitsURL     string          `db:"benefits_url" json:"benefits_url,omitempty"`
	AccountPatterns []string        `db:"account_patterns" json:"account_patterns"`
	Benefits        []BenefitDef    `db:"benefits" json:"benefits"`
}

// Benefit returns the benefit with the given slug, or nil.
func (c *CardConfig) Benefit(slug string) *BenefitDef {
	for i := range c.Benefits {
		if c.Benefits[i].Slug == slug {
			return &c.Benefits[i]
		}
	}
	return nil
}

// UserCard is a card in a user's portfolio
type UserCard struct {
	Id              string    `db:"id" json:"id"`
	UserId          string    `db:"user_id" json:"user_id"`
	CardConfigId    string    `db:"card_config_id" json:"card_config_id"`
	Nickname        string    `db:"nickname" json:"nickname,omitempty"`
	CardAnniversary string    `db:"card_anniversary" json:"card_anniversary,omitempty"` // MM-DD or YYYY-MM-DD
	Active          bool      `db:"active" json:"active"`
	AddedAt         time.Time `db:"added_at" json:"added_at"`
}

// UserCardView is a portfolio entry joined with its catalog card
type UserCardView struct {
	UserCard
	CardName   string `json:"card_name"`
	CardSlug   string `json:"card_slug"`
	CardIssuer string `json:"card_issuer"`
}

// Transaction is an imported statement line. Positive amounts are spend,
// negative amounts are credits.
type Transaction struct {
	Id             string          `db:"id" json:"id"`
	UserId         string          `db:"user_id" json:"user_id"`
	CardConfigId   string          `db:"card_config_id" json:"card_config_id,omitempty"`
	Date           string          `db:"date" json:"date"` // YYYY-MM-DD
	Name           string          `db:"name" json:"name"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	Status         string          `db:"status" json:"status,omitempty"`
	Category       string          `db:"category" json:"category,omitempty"`
	ParentCategory string          `db:"parent_category" json:"parent_category,omitempty"`
	Excluded       bool            `db:"excluded" json:"excluded"`
	Tags           string          `db:"tags" json:"tags,omitempty"`
	Type           string          `db:"type" json:"type,omitempty"`
	Account        string          `db:"account" json:"account"`
	AccountMask    string          `db:"account_mask" json:"account_mask,omitempty"`
	Note           string          `db:"note" json:"note,omitempty"`
	Recurring      string          `db:"recurring" json:"recurring,omitempty"`
	BenefitSlug    string          `db:"benefit_slug" json:"benefit_slug,omitempty"`
	ImportedAt     time.Time       `db:"imported_at" json:"imported_at"`
}

// IsCredit reports whether the transaction is refund direction.
func (t *Transaction) IsCredit() bool {
	return t.Amount.IsNegative()
}

// BenefitPeriod is the usage accumulator for one benefit window of a user card
type BenefitPeriod struct {
	Id            string          `db:"id" json:"id"`
	UserCardId    string          `db:"user_card_id" json:"user_card_id"`
	BenefitSlug   string          `db:"benefit_slug" json:"benefit_slug"`
	PeriodStart   string          `db:"period_start" json:"period_start"` // YYYY-MM-DD
	PeriodEnd     string          `db:"period_end" json:"period_end"`     // YYYY-MM-DD
	AmountLimit   decimal.Decimal `db:"amount_limit" json:"amount_limit"`
	AmountUsed    decimal.Decimal `db:"amount_used" json:"amount_used"`
	UsageCount    int             `db:"usage_count" json:"usage_count"`
	Completed     bool            `db:"completed" json:"completed"`
	CompletedAt   *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	ManualChecked bool            `db:"manual_checked" json:"manual_checked"`
	ManualNotes   string          `db:"manual_notes" json:"manual_notes,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// UserBenefitSetting is a per-user hide flag and note on a card benefit
type UserBenefitSetting struct {
	Id          string     `db:"id" json:"id"`
	UserId      string     `db:"user_id" json:"user_id"`
	UserCardId  string     `db:"user_card_id" json:"user_card_id"`
	BenefitSlug string     `db:"benefit_slug" json:"benefit_slug"`
	Muted       bool       `db:"muted" json:"muted"`
	MutedAt     *time.Time `db:"muted_at" json:"muted_at,omitempty"`
	Notes       string     `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// RefreshSession tracks one issued refresh token by the hash of its jti
type RefreshSession struct {
	Id            string     `db:"id"`
	UserId        string     `db:"user_id"`
	TokenHash     string     `db:"token_hash"`
	CreatedAt     time.Time  `db:"created_at"`
	ExpiresAt     time.Time  `db:"expires_at"`
	RevokedAt     *time.Time `db:"revoked_at"`
	LastUsedAt    *time.Time `db:"last_used_at"`
	RotatedFromId string     `db:"rotated_from_id"`
	UserAgent     string     `db:"user_agent"`
	IpAddress     string     `db:"ip_address"`
}

// Active reports whether the session can still be exchanged at now.
func (s *RefreshSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// Notification is an in-app message
type Notification struct {
	Id        string     `db:"id" json:"id"`
	UserId    string     `db:"user_id" json:"user_id"`
	Type      string     `db:"type" json:"type"`
	Title     string     `db:"title" json:"title"`
	Message   string     `db:"message" json:"message"`
	Read      bool       `db:"read" json:"read"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
