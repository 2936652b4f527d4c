package store

import (
	"context"
	"errors"
	"time"

	"perkle/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across the storage layer and its callers.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrAuthRequired = errors.New("authentication required")
	ErrAuthInvalid  = errors.New("invalid credentials")
)

// UsageOutcome reports what RecordUsage did.
type UsageOutcome int

const (
	UsageCreated UsageOutcome = iota + 1
	UsageAccumulated
	UsageAlreadyApplied
)

func (o UsageOutcome) String() string {
	switch o {
	case UsageCreated:
		return "created"
	case UsageAccumulated:
		return "accumulated"
	case UsageAlreadyApplied:
		return "already_applied"
	default:
		return "unknown"
	}
}

// CreateUserParams contains the parameters for registering a user.
type CreateUserParams struct {
	Username           string
	Email              string
	PasswordHash       string
	EmailNotifications bool
}

// CreateUserCardParams contains the parameters for adding a card to a portfolio.
type CreateUserCardParams struct {
	UserId          string
	CardConfigId    string
	Nickname        string
	CardAnniversary string
}

// RecordUsageParams identifies a usage key and the amount to apply to it.
// TransactionId is empty for manual marks.
type RecordUsageParams struct {
	UserCardId    string
	BenefitSlug   string
	PeriodStart   string
	PeriodEnd     string
	Limit         decimal.Decimal
	Amount        decimal.Decimal
	TransactionId string
	Manual        bool
	ManualNotes   string
	Now           time.Time
}

// BenefitSettingParams upserts a hide flag. Nil fields are left unchanged.
type BenefitSettingParams struct {
	UserId      string
	UserCardId  string
	BenefitSlug string
	Muted       *bool
	Notes       *string
	Now         time.Time
}

// TransactionFilter narrows a transaction listing.
type TransactionFilter struct {
	UserId       string
	CardConfigId string
	StartDate    string
	EndDate      string
	CreditsOnly  bool
	Limit        int
	Offset       int
}

type UserStore interface {
	CreateUser(ctx context.Context, params CreateUserParams) (*models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByLogin(ctx context.Context, usernameOrEmail string) (*models.User, error)
	UpdateUserSettings(ctx context.Context, userId string, settings models.UserSettings) error
}

type CardStore interface {
	UpsertCardConfig(ctx context.Context, card *models.CardConfig) (string, error)
	ListCardConfigs(ctx context.Context) ([]models.CardConfig, error)
	CreateUserCard(ctx context.Context, params CreateUserCardParams) (*models.UserCard, error)
	GetUserCard(ctx context.Context, userId, userCardId string) (*models.UserCard, error)
	ListUserCards(ctx context.Context, userId string, activeOnly bool) ([]models.UserCard, error)
	UpdateUserCard(ctx context.Context, card *models.UserCard) error
	DeleteUserCard(ctx context.Context, userId, userCardId string) error
}

type TransactionStore interface {
	InsertTransaction(ctx context.Context, txn *models.Transaction) (bool, error)
	ListCreditTransactions(ctx context.Context, userId, cardConfigId, startDate, endDate string) ([]models.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, int, error)
}

type BenefitStore interface {
	RecordUsage(ctx context.Context, params RecordUsageParams) (UsageOutcome, *models.BenefitPeriod, error)
	GetBenefitPeriod(ctx context.Context, userCardId, benefitSlug, periodStart string) (*models.BenefitPeriod, error)
	LatestBenefitPeriod(ctx context.Context, userCardId, benefitSlug string) (*models.BenefitPeriod, error)
	ListBenefitPeriods(ctx context.Context, userCardId, benefitSlug string) ([]models.BenefitPeriod, error)
	ListBenefitSettings(ctx context.Context, userId, userCardId string) ([]models.UserBenefitSetting, error)
	UpsertBenefitSetting(ctx context.Context, params BenefitSettingParams) (*models.UserBenefitSetting, error)
}

type SessionStore interface {
	CreateRefreshSession(ctx context.Context, session *models.RefreshSession) error
	GetRefreshSession(ctx context.Context, userId, tokenHash string) (*models.RefreshSession, error)
	RevokeRefreshSession(ctx context.Context, sessionId string, at time.Time) (bool, error)
	RevokeAllRefreshSessions(ctx context.Context, userId string, at time.Time) (int64, error)
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userId string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userId, notificationId string, at time.Time) error
}

// Queries is every read and write the application performs. It is
// satisfied both by the database service and by a transaction scope.
type Queries interface {
	UserStore
	CardStore
	TransactionStore
	BenefitStore
	SessionStore
	NotificationStore
}

// Store is the top-level persistence contract.
type Store interface {
	Queries
	// InTx runs fn in one database transaction. fn must only use the
	// Queries it is given; the transaction commits iff fn returns nil.
	InTx(ctx context.Context, fn func(q Queries) error) error
	Ping(ctx context.Context) error
	Close()
}
