package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"perkle/internal/models"
	"perkle/internal/period"

	"github.com/shopspring/decimal"
)

type fakeUpserter struct {
	ids map[string]string
}

func (f *fakeUpserter) UpsertCardConfig(_ context.Context, card *models.CardConfig) (string, error) {
	if f.ids == nil {
		f.ids = map[string]string{}
	}
	if id, ok := f.ids[card.Slug]; ok {
		return id, nil
	}
	id := fmt.Sprintf("id-%d", len(f.ids)+1)
	f.ids[card.Slug] = id
	return id, nil
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

const goldYaml = `
slug: gold
name: Gold Card
issuer: Test Bank
annual_fee: 250
account_patterns: ["Gold Card"]
benefits:
  - slug: dining
    name: Dining Credit
    value: 10
    cadence: monthly
    tracking_mode: auto
    detection_rules:
      credit_patterns: ["Dining Credit"]
  - slug: lounge
    name: Lounge
    value: 0
    cadence: annual
    tracking_mode: info
`

const platinumYaml = `
slug: platinum
name: Platinum Card
annual_fee: 695.5
account_patterns: ["Card"]
benefits:
  - slug: travel
    value: 300
    cadence: annual
    reset_type: cardmember_year
`

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a-gold.yaml", goldYaml)
	writeFile(t, dir, "b-platinum.yaml", platinumYaml)
	writeFile(t, dir, "ignored.txt", "not yaml")

	cards, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("Expected 2 cards, got %d", len(cards))
	}
	if cards[0].Slug != "gold" || cards[1].Slug != "platinum" {
		t.Errorf("Expected file-name order, got %s, %s", cards[0].Slug, cards[1].Slug)
	}

	dining := cards[0].Benefit("dining")
	if dining == nil {
		t.Fatal("Expected dining benefit")
	}
	if !dining.Value.Equal(decimal.NewFromInt(10)) || dining.Cadence != period.Monthly || dining.TrackingMode != period.TrackAuto {
		t.Errorf("Unexpected dining benefit %+v", dining)
	}

	travel := cards[1].Benefits[0]
	if travel.TrackingMode != period.TrackManual {
		t.Errorf("Expected missing tracking_mode to default to manual, got %s", travel.TrackingMode)
	}
	if travel.Name != "travel" || cards[1].Issuer != "Unknown" {
		t.Errorf("Expected name and issuer defaults, got %q / %q", travel.Name, cards[1].Issuer)
	}
	if !cards[1].AnnualFee.Equal(decimal.RequireFromString("695.5")) {
		t.Errorf("Expected annual fee 695.5, got %s", cards[1].AnnualFee)
	}
}

func TestLoadDir_RejectsBadDefinitions(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"unknown cadence", "slug: x\nbenefits:\n  - slug: b\n    cadence: weekly\n", period.ErrBadCadence},
		{"unknown reset type", "slug: x\nbenefits:\n  - slug: b\n    cadence: annual\n    reset_type: fiscal\n", period.ErrBadCadence},
		{"unknown tracking mode", "slug: x\nbenefits:\n  - slug: b\n    cadence: annual\n    tracking_mode: magic\n", period.ErrBadCadence},
		{"missing slug", "name: nameless\n", nil},
		{"duplicate benefit", "slug: x\nbenefits:\n  - slug: b\n    cadence: monthly\n  - slug: b\n    cadence: monthly\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "card.yaml", tt.body)
			_, err := LoadDir(dir)
			if err == nil {
				t.Fatal("Expected load error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadDir_Missing(t *testing.T) {
	cards, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("Expected missing directory to be tolerated, got %v", err)
	}
	if len(cards) != 0 {
		t.Errorf("Expected no cards, got %d", len(cards))
	}
}

func TestSyncAndMatchAccount(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a-gold.yaml", goldYaml)
	writeFile(t, dir, "b-platinum.yaml", platinumYaml)

	upserter := &fakeUpserter{}
	c, err := Load(context.Background(), dir, upserter)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	gold, ok := c.Get("gold")
	if !ok || gold.Id == "" {
		t.Fatalf("Expected gold card with id, got %+v", gold)
	}
	if byId, ok := c.GetByID(gold.Id); !ok || byId.Slug != "gold" {
		t.Errorf("GetByID did not return gold card")
	}

	// Both cards match "Gold Card"; the first loaded wins.
	id, ok := c.MatchAccount("AMEX GOLD CARD ...1001")
	if !ok || id != gold.Id {
		t.Errorf("Expected gold to win the match, got %q", id)
	}

	platinum, _ := c.Get("platinum")
	if id, _ := c.MatchAccount("Some Card"); id != platinum.Id {
		t.Errorf("Expected platinum match, got %q", id)
	}
	if _, ok := c.MatchAccount("Checking"); ok {
		t.Error("Expected no match for unrelated account")
	}
	if len(c.ListAll()) != 2 || c.Len() != 2 {
		t.Errorf("Expected 2 cards listed")
	}
}

func TestShippedCardConfigsLoad(t *testing.T) {
	cards, err := LoadDir(filepath.Join("..", "..", "configs", "cards"))
	if err != nil {
		t.Fatalf("Shipped card configs failed to load: %v", err)
	}
	if len(cards) == 0 {
		t.Fatal("Expected shipped card configs")
	}
}
