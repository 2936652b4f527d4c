package benefits

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"perkle/internal/catalog"
	"perkle/internal/database"
	"perkle/internal/models"
	"perkle/internal/period"
	"perkle/internal/store"

	"github.com/shopspring/decimal"
)

type testEnv struct {
	engine  *Engine
	store   *database.Service
	catalog *catalog.Catalog
	user    *models.User
	card    *models.UserCard
	today   time.Time
}

func testCards() []models.CardConfig {
	return []models.CardConfig{
		{
			Slug:            "test-gold",
			Name:            "Test Gold",
			Issuer:          "Test Bank",
			AnnualFee:       decimal.NewFromInt(250),
			AccountPatterns: []string{"Gold Card"},
			Benefits: []models.BenefitDef{
				{
					Slug: "dining", Name: "Dining Credit", Value: decimal.NewFromInt(10),
					Cadence: period.Monthly, TrackingMode: period.TrackAuto,
					DetectionRules: models.DetectionRules{CreditPatterns: []string{"Dining Credit"}},
				},
				{
					Slug: "travel", Name: "Travel Credit", Value: decimal.NewFromInt(300),
					Cadence: period.Annual, TrackingMode: period.TrackAuto, ResetType: period.CardmemberYear,
					DetectionRules: models.DetectionRules{CreditPatterns: []string{"Travel Credit"}},
				},
				{
					Slug: "global-entry", Name: "Global Entry", Value: decimal.NewFromInt(120),
					Cadence: period.Rolling, TrackingMode: period.TrackAuto, ResetType: period.RollingYears, ResetYears: 4,
					DetectionRules: models.DetectionRules{CreditPatterns: []string{"Global Entry"}},
				},
				{
					Slug: "welcome", Name: "Welcome Bonus", Value: decimal.NewFromInt(100),
					Cadence: period.OneTime, TrackingMode: period.TrackManual,
				},
				{
					Slug: "lounge", Name: "Lounge Access", Value: decimal.Zero,
					Cadence: period.Annual, TrackingMode: period.TrackInfo,
				},
			},
		},
		{
			Slug:            "test-blue",
			Name:            "Test Blue",
			Issuer:          "Other Bank",
			AnnualFee:       decimal.Zero,
			AccountPatterns: []string{"Blue Card"},
			Benefits: []models.BenefitDef{
				{
					Slug: "dining", Name: "Blue Dining", Value: decimal.NewFromInt(5),
					Cadence: period.Monthly, TrackingMode: period.TrackAuto,
					DetectionRules: models.DetectionRules{CreditPatterns: []string{"Dining Credit"}},
				},
			},
		},
		{
			Slug:            "test-green",
			Name:            "Test Green",
			Issuer:          "Test Bank",
			AnnualFee:       decimal.NewFromInt(95),
			AccountPatterns: []string{"Green Card"},
			Benefits: []models.BenefitDef{
				{
					Slug: "info", Name: "Shared Perk", Value: decimal.NewFromInt(50),
					Cadence: period.Monthly, TrackingMode: period.TrackInfo,
					DetectionRules: models.DetectionRules{CreditPatterns: []string{"Shared Credit"}},
				},
				{
					Slug: "a", Name: "Shared A", Value: decimal.NewFromInt(100),
					Cadence: period.Monthly, TrackingMode: period.TrackAuto,
					DetectionRules: models.DetectionRules{CreditPatterns: []string{"Shared Credit"}},
				},
				{
					Slug: "b", Name: "Shared B", Value: decimal.NewFromInt(100),
					Cadence: period.Monthly, TrackingMode: period.TrackAuto,
					DetectionRules: models.DetectionRules{CreditPatterns: []string{"shared credit"}},
				},
			},
		},
	}
}

func setupEngine(t *testing.T, today string, anniversary string) (*testEnv, func()) {
	t.Helper()
	ctx := context.Background()

	service, err := database.NewService(ctx, models.DatabaseConfig{
		URL:          "sqlite:///:memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	cat, err := catalog.Sync(ctx, service, testCards())
	if err != nil {
		t.Fatalf("catalog.Sync failed: %v", err)
	}

	user, err := service.CreateUser(ctx, store.CreateUserParams{
		Username:           "alice",
		Email:              "alice@example.com",
		PasswordHash:       "hash",
		EmailNotifications: true,
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	gold, _ := cat.Get("test-gold")
	card, err := service.CreateUserCard(ctx, store.CreateUserCardParams{
		UserId:          user.Id,
		CardConfigId:    gold.Id,
		CardAnniversary: anniversary,
	})
	if err != nil {
		t.Fatalf("CreateUserCard failed: %v", err)
	}

	now, err := period.ParseDate(today)
	if err != nil {
		t.Fatalf("bad test date %q: %v", today, err)
	}
	clock := now.Add(10 * time.Hour)

	env := &testEnv{
		engine:  NewEngine(service, cat, WithClock(func() time.Time { return clock })),
		store:   service,
		catalog: cat,
		user:    user,
		card:    card,
		today:   now,
	}
	return env, func() { service.Close() }
}

func (env *testEnv) addTxn(t *testing.T, cardSlug, date, name, amount string) *models.Transaction {
	t.Helper()
	cfg, ok := env.catalog.Get(cardSlug)
	if !ok {
		t.Fatalf("unknown card %s", cardSlug)
	}
	txn := &models.Transaction{
		UserId:       env.user.Id,
		CardConfigId: cfg.Id,
		Date:         date,
		Name:         name,
		Amount:       decimal.RequireFromString(amount),
		Account:      cfg.Name,
		ImportedAt:   time.Now(),
	}
	if _, err := env.store.InsertTransaction(context.Background(), txn); err != nil {
		t.Fatalf("InsertTransaction failed: %v", err)
	}
	return txn
}

func (env *testEnv) benefitStatus(t *testing.T, slug string) models.BenefitStatus {
	t.Helper()
	report, err := env.engine.Status(context.Background(), env.user.Id, true)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	for _, card := range report.Cards {
		if card.UserCardId != env.card.Id {
			continue
		}
		for _, b := range card.Benefits {
			if b.Slug == slug {
				return b
			}
		}
	}
	t.Fatalf("benefit %s not in status report", slug)
	return models.BenefitStatus{}
}

func TestDetect_MonthlyPartialThenIdempotent(t *testing.T) {
	env, cleanup := setupEngine(t, "2025-03-15", "")
	defer cleanup()
	ctx := context.Background()

	env.addTxn(t, "test-gold", "2025-03-10", "Dining Credit - X", "-7")

	result, err := env.engine.Detect(ctx, env.user.Id)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.Detected != 1 || result.CardsChecked != 1 {
		t.Fatalf("Expected detected=1 cards_checked=1, got %d/%d", result.Detected, result.CardsChecked)
	}
	if got := result.Benefits[0]; got.Card != "Test Gold" || got.Benefit != "Dining Credit" || !got.Amount.Equal(decimal.NewFromInt(7)) {
		t.Errorf("Unexpected detected benefit: %+v", got)
	}

	b := env.benefitStatus(t, "dining")
	if b.Status != models.StatusPartial {
		t.Errorf("Expected partial, got %s", b.Status)
	}
	if b.PeriodStart != "2025-03-01" || b.PeriodEnd != "2025-03-31" {
		t.Errorf("Unexpected period %s..%s", b.PeriodStart, b.PeriodEnd)
	}
	if !b.AmountUsed.Equal(decimal.NewFromInt(7)) || !b.AmountLimit.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected 7/10, got %s/%s", b.AmountUsed, b.AmountLimit)
	}

	result, err = env.engine.Detect(ctx, env.user.Id)
	if err != nil {
		t.Fatalf("second Detect failed: %v", err)
	}
	if result.Detected != 0 {
		t.Errorf("Expected rerun to detect nothing, got %d", result.Detected)
	}

	bp, err := env.store.GetBenefitPeriod(ctx, env.card.Id, "dining", "2025-03-01")
	if err != nil {
		t.Fatalf("GetBenefitPeriod failed: %v", err)
	}
	if bp.UsageCount != 1 || !bp.AmountUsed.Equal(decimal.NewFromInt(7)) {
		t.Errorf("Expected usage_count=1 amount_used=7, got %d/%s", bp.UsageCount, bp.AmountUsed)
	}
}

func TestDetect_AccumulatesToCompletion(t *testing.T) {
	env, cleanup := setupEngine(t, "2025-03-15", "")
	defer cleanup()
	ctx := context.Background()

	env.addTxn(t, "test-gold", "2025-03-10", "Dining Credit - X", "-7")
	if _, err := env.engine.Detect(ctx, env.user.Id); err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	env.addTxn(t, "test-gold", "2025-03-12", "Dining Credit - Y", "-4")
	result, err := env.engine.Detect(ctx, env.user.Id)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.Detected != 1 {
		t.Errorf("Expected detected=1, got %d", result.Detected)
	}

	b := env.benefitStatus(t, "dining")
	if b.Status != models.StatusUsed {
		t.Errorf("Expected used, got %s", b.Status)
	}
	if !b.AmountUsed.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected amount_used clamped to 10, got %s", b.AmountUsed)
	}
}

func TestDetect_SkipsOutOfPeriodAndOtherCards(t *testing.T) {
	env, cleanup := setupEngine(t, "2025-03-15", "")
	defer cleanup()
	ctx := context.Background()

	env.addTxn(t, "test-gold", "2025-02-27", "Dining Credit - last month", "-10")
	env.addTxn(t, "test-gold", "2025-03-05", "Dining purchase", "35")
	env.addTxn(t, "test-blue", "2025-03-06", "Dining Credit - blue", "-5")

	result, err := env.engine.Detect(ctx, env.user.Id)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.Detected != 0 {
		t.Errorf("Expected nothing detected, got %+v", result.Benefits)
	}
	if b := env.benefitStatus(t, "dining"); b.Status != models.StatusAvailable || !b.AmountUsed.IsZero() {
		t.Errorf("Expected untouched available benefit, got %s used=%s", b.Status, b.AmountUsed)
	}
}

func TestDetect_CardmemberYear(t *testing.T) {
	env, cleanup := setupEngine(t, "2025-03-15", "06-15")
	defer cleanup()

	env.addTxn(t, "test-gold", "2024-07-01", "Travel Credit - Airline", "-300")
	env.addTxn(t, "test-gold", "2024-06-10", "Travel Credit - Hotel", "-50")

	result, err := env.engine.Detect(context.Background(), env.user.Id)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.Detected != 1 {
		t.Fatalf("Expected only the in-year credit, got %+v", result.Benefits)
	}

	b := env.benefitStatus(t, "travel")
	if b.PeriodStart != "2024-06-15" || b.PeriodEnd != "2025-06-14" {
		t.Errorf("Expected cardmember year 2024-06-15..2025-06-14, got %s..%s", b.PeriodStart, b.PeriodEnd)
	}
	if b.Status != models.StatusUsed {
		t.Errorf("Expected used, got %s", b.Status)
	}
}

func TestDetect_RollingOpensWindowAtUse(t *testing.T) {
	env, cleanup := setupEngine(t, "2025-03-15", "")
	defer cleanup()
	ctx := context.Background()

	env.addTxn(t, "test-gold", "2023-05-01", "Global Entry Credit", "-120")
	env.addTxn(t, "test-gold", "2024-01-10", "Global Entry Credit", "-120")

	result, err := env.engine.Detect(ctx, env.user.Id)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.Detected != 2 {
		t.Fatalf("Expected both credits applied to the open window, got %d", result.Detected)
	}

	b := env.benefitStatus(t, "global-entry")
	if b.PeriodStart != "2023-05-01" || b.PeriodEnd != "2027-04-30" {
		t.Errorf("Expected rolling window 2023-05-01..2027-04-30, got %s..%s", b.PeriodStart, b.PeriodEnd)
	}
	if b.Status != models.StatusUsed {
		t.Errorf("Expected used, got %s", b.Status)
	}

	periods, err := env.engine.History(ctx, env.user.Id, env.card.Id, "global-entry")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(periods) != 1 || periods[0].UsageCount != 2 {
		t.Errorf("Expected one period with two uses, got %+v", periods)
	}
}

func TestStatus_Labels(t *testing.T) {
	tests := []struct {
		name   string
		today  string
		status models.Status
		days   int
	}{
		{"available mid month", "2025-03-10", models.StatusAvailable, 21},
		{"expiring within a week", "2025-03-28", models.StatusExpiring, 3},
		{"expired on last day", "2025-03-31", models.StatusExpired, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, cleanup := setupEngine(t, tt.today, "")
			defer cleanup()

			b := env.benefitStatus(t, "dining")
			if b.Status != tt.status {
				t.Errorf("Expected %s, got %s", tt.status, b.Status)
			}
			if b.DaysRemaining != tt.days {
				t.Errorf("Expected days_remaining=%d, got %d", tt.days, b.DaysRemaining)
			}
			if info := env.benefitStatus(t, "lounge"); info.Status != models.StatusInfo {
				t.Errorf("Expected info benefit, got %s", info.Status)
			}
		})
	}
}

func TestStatus_MutedAndSummary(t *testing.T) {
	env, cleanup := setupEngine(t, "2025-03-15", "04-01")
	defer cleanup()
	ctx := context.Background()

	muted := true
	if _, err := env.engine.UpdateBenefitSetting(ctx, env.user.Id, env.card.Id, "welcome", &muted, nil); err != nil {
		t.Fatalf("UpdateBenefitSetting failed: %v", err)
	}

	report, err := env.engine.Status(ctx, env.user.Id, false)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(report.Cards) != 1 {
		t.Fatalf("Expected one card, got %d", len(report.Cards))
	}
	card := report.Cards[0]
	for _, b := range card.Benefits {
		if b.Slug == "welcome" {
			t.Errorf("Muted benefit should be hidden")
		}
	}
	if card.DaysUntilRenewal == nil || *card.DaysUntilRenewal != 17 || card.NextRenewalDate != "2025-04-01" {
		t.Errorf("Unexpected renewal fields: %v %s", card.DaysUntilRenewal, card.NextRenewalDate)
	}

	// dining 10 + travel 300 + global entry 120 are available.
	if !report.Summary.TotalAvailableValue.Equal(decimal.NewFromInt(430)) {
		t.Errorf("Expected available 430, got %s", report.Summary.TotalAvailableValue)
	}
	if report.Summary.CardsCount != 1 {
		t.Errorf("Expected cards_count=1, got %d", report.Summary.CardsCount)
	}

	report, err = env.engine.Status(ctx, env.user.Id, true)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	found := false
	for _, b := range report.Cards[0].Benefits {
		if b.Slug == "welcome" {
			found = b.Muted
		}
	}
	if !found {
		t.Errorf("Expected muted benefit with include_hidden")
	}
}

func TestSummarize(t *testing.T) {
	cards := []models.CardStatus{{Benefits: []models.BenefitStatus{
		{Status: models.StatusAvailable, AmountLimit: decimal.NewFromInt(10)},
		{Status: models.StatusExpiring, AmountLimit: decimal.NewFromInt(15)},
		{Status: models.StatusUsed, AmountUsed: decimal.NewFromInt(20), AmountLimit: decimal.NewFromInt(20)},
		{Status: models.StatusPartial, AmountUsed: decimal.NewFromInt(3), AmountLimit: decimal.NewFromInt(50)},
		{Status: models.StatusInfo, AmountLimit: decimal.NewFromInt(99)},
	}}}

	summary := Summarize(cards)
	if !summary.TotalAvailableValue.Equal(decimal.NewFromInt(25)) {
		t.Errorf("Expected available 25, got %s", summary.TotalAvailableValue)
	}
	if !summary.TotalUsedValue.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Expected used 20, got %s", summary.TotalUsedValue)
	}
	if summary.ExpiringSoonCount != 1 || summary.CardsCount != 1 {
		t.Errorf("Unexpected counts: %+v", summary)
	}
}

func TestMarkUsed(t *testing.T) {
	env, cleanup := setupEngine(t, "2025-03-15", "")
	defer cleanup()
	ctx := context.Background()

	amount := func(v string) *decimal.Decimal {
		d := decimal.RequireFromString(v)
		return &d
	}

	tests := []struct {
		name    string
		params  MarkParams
		wantErr error
		used    string
	}{
		{"zero amount", MarkParams{BenefitSlug: "dining", Amount: amount("0")}, store.ErrValidation, ""},
		{"over limit on new period", MarkParams{BenefitSlug: "dining", Amount: amount("11")}, store.ErrValidation, ""},
		{"partial", MarkParams{BenefitSlug: "dining", Amount: amount("4"), Notes: "brunch"}, nil, "4"},
		{"would exceed limit", MarkParams{BenefitSlug: "dining", Amount: amount("7")}, store.ErrValidation, ""},
		{"remaining by default", MarkParams{BenefitSlug: "dining"}, nil, "10"},
		{"nothing left", MarkParams{BenefitSlug: "dining"}, store.ErrValidation, ""},
		{"info benefit", MarkParams{BenefitSlug: "lounge"}, store.ErrValidation, ""},
		{"unknown benefit", MarkParams{BenefitSlug: "nope"}, store.ErrNotFound, ""},
		{"one-time full value", MarkParams{BenefitSlug: "welcome"}, nil, "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.params.UserCardId = env.card.Id
			bp, err := env.engine.MarkUsed(ctx, env.user.Id, tt.params)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("MarkUsed failed: %v", err)
			}
			if !bp.AmountUsed.Equal(decimal.RequireFromString(tt.used)) {
				t.Errorf("Expected amount_used=%s, got %s", tt.used, bp.AmountUsed)
			}
			if !bp.ManualChecked {
				t.Errorf("Expected manual_checked")
			}
		})
	}

	b := env.benefitStatus(t, "dining")
	if b.Status != models.StatusUsed || b.ManualNotes != "brunch" {
		t.Errorf("Expected used with notes, got %s %q", b.Status, b.ManualNotes)
	}

	// A one-time benefit keeps its open period on later marks.
	if w := env.benefitStatus(t, "welcome"); w.Status != models.StatusUsed {
		t.Errorf("Expected one-time benefit used, got %s", w.Status)
	}
}

func TestMarkUsed_NotOwned(t *testing.T) {
	env, cleanup := setupEngine(t, "2025-03-15", "")
	defer cleanup()
	ctx := context.Background()

	other, err := env.store.CreateUser(ctx, store.CreateUserParams{Username: "bob", Email: "bob@example.com", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	_, err = env.engine.MarkUsed(ctx, other.Id, MarkParams{UserCardId: env.card.Id, BenefitSlug: "dining"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := env.engine.History(ctx, other.Id, env.card.Id, "dining"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from History, got %v", err)
	}
}

func TestPortfolio(t *testing.T) {
	env, cleanup := setupEngine(t, "2025-03-15", "")
	defer cleanup()
	ctx := context.Background()

	blue, _ := env.catalog.Get("test-blue")

	if _, err := env.engine.AddCard(ctx, env.user.Id, AddCardParams{CardConfigId: "missing"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown card, got %v", err)
	}
	if _, err := env.engine.AddCard(ctx, env.user.Id, AddCardParams{CardConfigId: blue.Id, CardAnniversary: "13-01"}); !errors.Is(err, period.ErrBadAnniversary) {
		t.Errorf("Expected ErrBadAnniversary, got %v", err)
	}

	added, err := env.engine.AddCard(ctx, env.user.Id, AddCardParams{CardConfigId: blue.Id, Nickname: " daily ", CardAnniversary: "2021-02-29"})
	if err == nil {
		t.Fatalf("Expected invalid calendar date to be rejected, got %+v", added)
	}

	added, err = env.engine.AddCard(ctx, env.user.Id, AddCardParams{CardConfigId: blue.Id, Nickname: " daily ", CardAnniversary: "02-29"})
	if err != nil {
		t.Fatalf("AddCard failed: %v", err)
	}
	if added.CardName != "Test Blue" || added.Nickname != "daily" || added.CardAnniversary != "02-29" {
		t.Errorf("Unexpected card view: %+v", added)
	}
	if _, err := env.engine.AddCard(ctx, env.user.Id, AddCardParams{CardConfigId: blue.Id}); !errors.Is(err, store.ErrConflict) {
		t.Errorf("Expected ErrConflict on duplicate, got %v", err)
	}

	inactive := false
	if _, err := env.engine.UpdateCard(ctx, env.user.Id, added.Id, UpdateCardParams{Active: &inactive}); err != nil {
		t.Fatalf("UpdateCard failed: %v", err)
	}
	report, err := env.engine.Status(ctx, env.user.Id, true)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(report.Cards) != 1 {
		t.Errorf("Inactive cards should not be projected, got %d cards", len(report.Cards))
	}

	cards, err := env.engine.ListCards(ctx, env.user.Id)
	if err != nil {
		t.Fatalf("ListCards failed: %v", err)
	}
	if len(cards) != 2 {
		t.Errorf("Expected 2 portfolio entries, got %d", len(cards))
	}

	if err := env.engine.RemoveCard(ctx, env.user.Id, added.Id); err != nil {
		t.Fatalf("RemoveCard failed: %v", err)
	}
	if err := env.engine.RemoveCard(ctx, env.user.Id, added.Id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestResolve_AnniversaryChangeKeepsPeriodsDisjoint(t *testing.T) {
	env, cleanup := setupEngine(t, "2025-03-15", "07-15")
	defer cleanup()
	ctx := context.Background()

	env.addTxn(t, "test-gold", "2025-01-10", "Travel Credit - Hotel", "-100")
	if _, err := env.engine.Detect(ctx, env.user.Id); err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	anniversary := "09-01"
	if _, err := env.engine.UpdateCard(ctx, env.user.Id, env.card.Id, UpdateCardParams{CardAnniversary: &anniversary}); err != nil {
		t.Fatalf("UpdateCard failed: %v", err)
	}

	b := env.benefitStatus(t, "travel")
	if b.PeriodStart != "2024-07-15" || b.PeriodEnd != "2025-07-14" {
		t.Errorf("Expected the open period to be kept, got %s..%s", b.PeriodStart, b.PeriodEnd)
	}

	bp, err := env.engine.MarkUsed(ctx, env.user.Id, MarkParams{UserCardId: env.card.Id, BenefitSlug: "travel"})
	if err != nil {
		t.Fatalf("MarkUsed failed: %v", err)
	}
	if bp.PeriodStart != "2024-07-15" || !bp.AmountUsed.Equal(decimal.NewFromInt(300)) {
		t.Errorf("Expected the remaining 200 on the open period, got %s used=%s", bp.PeriodStart, bp.AmountUsed)
	}

	periods, err := env.engine.History(ctx, env.user.Id, env.card.Id, "travel")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(periods) != 1 {
		t.Fatalf("Expected one stored period, got %+v", periods)
	}

	// After the old period ends the next window starts the following day.
	later := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	engine := NewEngine(env.store, env.catalog, WithClock(func() time.Time { return later }))
	report, err := engine.Status(ctx, env.user.Id, true)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	for _, b := range report.Cards[0].Benefits {
		if b.Slug != "travel" {
			continue
		}
		if b.PeriodStart != "2025-07-15" || b.PeriodEnd != "2025-08-31" {
			t.Errorf("Expected trimmed window 2025-07-15..2025-08-31, got %s..%s", b.PeriodStart, b.PeriodEnd)
		}
		if b.Status != models.StatusAvailable {
			t.Errorf("Expected available, got %s", b.Status)
		}
	}
}

func TestResolve_AnniversaryAddedKeepsCalendarPeriod(t *testing.T) {
	env, cleanup := setupEngine(t, "2025-03-15", "")
	defer cleanup()
	ctx := context.Background()

	env.addTxn(t, "test-gold", "2025-02-01", "Travel Credit - Airline", "-250")
	if _, err := env.engine.Detect(ctx, env.user.Id); err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	anniversary := "06-15"
	if _, err := env.engine.UpdateCard(ctx, env.user.Id, env.card.Id, UpdateCardParams{CardAnniversary: &anniversary}); err != nil {
		t.Fatalf("UpdateCard failed: %v", err)
	}

	amount := decimal.NewFromInt(100)
	_, err := env.engine.MarkUsed(ctx, env.user.Id, MarkParams{UserCardId: env.card.Id, BenefitSlug: "travel", Amount: &amount})
	if !errors.Is(err, store.ErrValidation) {
		t.Errorf("Expected ErrValidation past the stored limit, got %v", err)
	}

	periods, err := env.engine.History(ctx, env.user.Id, env.card.Id, "travel")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(periods) != 1 || periods[0].PeriodStart != "2025-01-01" {
		t.Errorf("Expected only the calendar period, got %+v", periods)
	}
}

func (env *testEnv) addGreenCard(t *testing.T) *models.UserCard {
	t.Helper()
	green, _ := env.catalog.Get("test-green")
	card, err := env.store.CreateUserCard(context.Background(), store.CreateUserCardParams{
		UserId:       env.user.Id,
		CardConfigId: green.Id,
	})
	if err != nil {
		t.Fatalf("CreateUserCard failed: %v", err)
	}
	return card
}

func TestDetect_FirstMatchingBenefitWins(t *testing.T) {
	env, cleanup := setupEngine(t, "2025-03-15", "")
	defer cleanup()
	ctx := context.Background()
	green := env.addGreenCard(t)

	env.addTxn(t, "test-green", "2025-03-03", "Shared Credit", "-20")

	result, err := env.engine.Detect(ctx, env.user.Id)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.Detected != 1 || result.Benefits[0].Benefit != "Shared A" {
		t.Fatalf("Expected one credit applied to Shared A, got %+v", result.Benefits)
	}

	for _, slug := range []string{"b", "info"} {
		if _, err := env.store.LatestBenefitPeriod(ctx, green.Id, slug); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected no period for %s, got %v", slug, err)
		}
	}
}

func TestDetect_ConcurrentRunsApplyOnce(t *testing.T) {
	env, cleanup := setupEngine(t, "2025-03-15", "")
	defer cleanup()
	ctx := context.Background()
	green := env.addGreenCard(t)

	env.addTxn(t, "test-green", "2025-03-02", "Shared Credit 1", "-10")
	env.addTxn(t, "test-green", "2025-03-04", "Shared Credit 2", "-10")
	env.addTxn(t, "test-green", "2025-03-06", "Shared Credit 3", "-10")

	const runs = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		detected int
		errs     []error
	)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := env.engine.Detect(ctx, env.user.Id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			detected += result.Detected
		}()
	}
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("Detect failed: %v", errs)
	}
	if detected != 3 {
		t.Errorf("Expected 3 credits applied across all runs, got %d", detected)
	}

	bp, err := env.store.GetBenefitPeriod(ctx, green.Id, "a", "2025-03-01")
	if err != nil {
		t.Fatalf("GetBenefitPeriod failed: %v", err)
	}
	if bp.UsageCount != 3 || !bp.AmountUsed.Equal(decimal.NewFromInt(30)) {
		t.Errorf("Expected usage_count=3 amount_used=30, got %d/%s", bp.UsageCount, bp.AmountUsed)
	}
	for _, slug := range []string{"b", "info"} {
		if _, err := env.store.LatestBenefitPeriod(ctx, green.Id, slug); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected no period for %s, got %v", slug, err)
		}
	}
}
