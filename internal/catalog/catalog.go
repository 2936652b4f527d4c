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

// Package catalog loads card definitions from YAML files and serves them
// read-only for the life of the process.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"perkle/internal/matcher"
	"perkle/internal/models"
	"perkle/internal/period"
	"perkle/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

type detectionRulesFile struct {
	CreditPatterns []string `yaml:"credit_patterns"`
	LookbackDays   int      `yaml:"lookback_days"`
}

type benefitFile struct {
	Slug           string             `yaml:"slug"`
	Name           string             `yaml:"name"`
	Value          float64            `yaml:"value"`
	Cadence        string             `yaml:"cadence"`
	TrackingMode   string             `yaml:"tracking_mode"`
	ResetType      string             `yaml:"reset_type"`
	ResetYears     int                `yaml:"reset_years"`
	Notes          string             `yaml:"notes"`
	DetectionRules detectionRulesFile `yaml:"detection_rules"`
}

type cardFile struct {
	Slug            string        `yaml:"slug"`
	Name            string        `yaml:"name"`
	Issuer          string        `yaml:"issuer"`
	AnnualFee       float64       `yaml:"annual_fee"`
	BenefitsURL     string        `yaml:"benefits_url"`
	AccountPatterns []string      `yaml:"account_patterns"`
	Benefits        []benefitFile `yaml:"benefits"`
}

// LoadDir parses every *.yaml file in dir in file-name order. A missing
// directory yields an empty list; a malformed definition is an error.
func LoadDir(dir string) ([]models.CardConfig, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		zap.L().Warn("Card configs directory not found", zap.String("dir", dir))
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("unable to list card configs in %s: %w", dir, err)
	}
	sort.Strings(files)

	var cards []models.CardConfig
	seen := map[string]string{}
	for _, file := range files {
		card, err := loadFile(file)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[card.Slug]; ok {
			return nil, fmt.Errorf("duplicate card slug %q in %s and %s", card.Slug, prev, file)
		}
		seen[card.Slug] = file
		cards = append(cards, *card)
		zap.L().Debug("Card config parsed", zap.String("slug", card.Slug), zap.Int("benefits", len(card.Benefits)))
	}

	zap.L().Info("Card configs loaded", zap.String("dir", dir), zap.Int("count", len(cards)))
	return cards, nil
}

func loadFile(path string) (*models.CardConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}

	var raw cardFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", path, err)
	}

	card, err := raw.toModel()
	if err != nil {
		return nil, fmt.Errorf("invalid card config %s: %w", path, err)
	}
	return card, nil
}

func (f *cardFile) toModel() (*models.CardConfig, error) {
	if f.Slug == "" {
		return nil, fmt.Errorf("missing slug")
	}
	if f.AnnualFee < 0 {
		return nil, fmt.Errorf("card %s: annual_fee cannot be negative", f.Slug)
	}

	card := &models.CardConfig{
		Slug:            f.Slug,
		Name:            f.Name,
		Issuer:          f.Issuer,
		AnnualFee:       decimal.NewFromFloat(f.AnnualFee),
		BenefitsURL:     f.BenefitsURL,
		AccountPatterns: f.AccountPatterns,
	}
	if card.Name == "" {
		card.Name = f.Slug
	}
	if card.Issuer == "" {
		card.Issuer = "Unknown"
	}
	if card.AccountPatterns == nil {
		card.AccountPatterns = []string{}
	}

	slugs := map[string]bool{}
	for i, b := range f.Benefits {
		if b.Slug == "" {
			return nil, fmt.Errorf("card %s: benefit at index %d missing slug", f.Slug, i)
		}
		if slugs[b.Slug] {
			return nil, fmt.Errorf("card %s: duplicate benefit slug %q", f.Slug, b.Slug)
		}
		slugs[b.Slug] = true

		def, err := b.toModel()
		if err != nil {
			return nil, fmt.Errorf("card %s benefit %s: %w", f.Slug, b.Slug, err)
		}
		card.Benefits = append(card.Benefits, *def)
	}
	return card, nil
}

func (b *benefitFile) toModel() (*models.BenefitDef, error) {
	cadence, err := period.ParseCadence(b.Cadence)
	if err != nil {
		return nil, err
	}
	reset, err := period.ParseResetType(b.ResetType)
	if err != nil {
		return nil, err
	}
	mode, err := period.ParseTrackingMode(b.TrackingMode)
	if err != nil {
		return nil, err
	}
	if b.Value < 0 {
		return nil, fmt.Errorf("value cannot be negative")
	}
	if b.ResetYears < 0 {
		return nil, fmt.Errorf("reset_years cannot be negative")
	}

	name := b.Name
	if name == "" {
		name = b.Slug
	}
	patterns := b.DetectionRules.CreditPatterns
	if patterns == nil {
		patterns = []string{}
	}
	return &models.BenefitDef{
		Slug:         b.Slug,
		Name:         name,
		Value:        decimal.NewFromFloat(b.Value),
		Cadence:      cadence,
		TrackingMode: mode,
		ResetType:    reset,
		ResetYears:   b.ResetYears,
		DetectionRules: models.DetectionRules{
			CreditPatterns: patterns,
			LookbackDays:   b.DetectionRules.LookbackDays,
		},
		Notes: b.Notes,
	}, nil
}

// Catalog is the in-memory card catalog. It is safe for concurrent reads.
type Catalog struct {
	cards  []models.CardConfig
	bySlug map[string]int
	byId   map[string]int
}

// New indexes cards, keeping their order for account matching.
func New(cards []models.CardConfig) *Catalog {
	c := &Catalog{
		cards:  cards,
		bySlug: make(map[string]int, len(cards)),
		byId:   make(map[string]int, len(cards)),
	}
	for i, card := range cards {
		c.bySlug[card.Slug] = i
		if card.Id != "" {
			c.byId[card.Id] = i
		}
	}
	return c
}

// Upserter persists a catalog card and returns its id.
type Upserter interface {
	UpsertCardConfig(ctx context.Context, card *models.CardConfig) (string, error)
}

var _ Upserter = (store.CardStore)(nil)

// Sync upserts cards by slug, records their ids and returns the catalog.
func Sync(ctx context.Context, s Upserter, cards []models.CardConfig) (*Catalog, error) {
	for i := range cards {
		id, err := s.UpsertCardConfig(ctx, &cards[i])
		if err != nil {
			return nil, err
		}
		cards[i].Id = id
	}
	zap.L().Info("Card catalog synced", zap.Int("count", len(cards)))
	return New(cards), nil
}

// Load reads dir and syncs it into the store.
func Load(ctx context.Context, dir string, s Upserter) (*Catalog, error) {
	cards, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	return Sync(ctx, s, cards)
}

func (c *Catalog) ListAll() []models.CardConfig {
	out := make([]models.CardConfig, len(c.cards))
	copy(out, c.cards)
	return out
}

func (c *Catalog) Get(slug string) (*models.CardConfig, bool) {
	i, ok := c.bySlug[slug]
	if !ok {
		return nil, false
	}
	return &c.cards[i], true
}

func (c *Catalog) GetByID(id string) (*models.CardConfig, bool) {
	i, ok := c.byId[id]
	if !ok {
		return nil, false
	}
	return &c.cards[i], true
}

// MatchAccount returns the id of the first card, in load order, with an
// account pattern contained in accountName.
func (c *Catalog) MatchAccount(accountName string) (string, bool) {
	lists := make([][]string, len(c.cards))
	for i := range c.cards {
		lists[i] = c.cards[i].AccountPatterns
	}
	i := matcher.FirstMatch(accountName, lists)
	if i < 0 {
		return "", false
	}
	return c.cards[i].Id, true
}

func (c *Catalog) Len() int {
	return len(c.cards)
}
