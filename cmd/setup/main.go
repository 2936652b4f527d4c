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

package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"perkle/internal/common"
	"perkle/internal/config"
	"perkle/internal/models"

	"go.uber.org/zap"
)

func describeBenefit(b models.BenefitDef) string {
	value := common.Money(b.Value)
	if b.Value.IsZero() {
		value = "-"
	}
	cadence := string(b.Cadence)
	if b.ResetType != "" {
		cadence += "/" + string(b.ResetType)
	}
	if b.ResetYears > 0 {
		cadence += fmt.Sprintf(" (%dy)", b.ResetYears)
	}
	return fmt.Sprintf("%-30s %10s  %-26s %s", b.Name, value, cadence, b.TrackingMode)
}

func printCard(card models.CardConfig) {
	fmt.Printf("\n┌─ %s (%s)\n", card.Name, card.Slug)
	fmt.Printf("│  Issuer: %s  Annual fee: %s\n", card.Issuer, common.Money(card.AnnualFee))
	fmt.Printf("│  Accounts: %s\n", strings.Join(card.AccountPatterns, ", "))
	common.PrintBoxSeparator(78)
	for i, b := range card.Benefits {
		fmt.Printf("%s %s\n", common.BoxPrefix(i == len(card.Benefits)-1), describeBenefit(b))
	}
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	dirFlag := flag.String("dir", "", "Card definition directory (defaults to $CARD_CONFIGS_DIR)")
	quietFlag := flag.Bool("quiet", false, "Only sync, do not print the catalog")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}
	if *dirFlag != "" {
		cfg.Catalog.Dir = *dirFlag
	}

	// Opening the services creates the schema and upserts every card file.
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	cards := services.Catalog.ListAll()
	benefitCount := 0
	for _, card := range cards {
		benefitCount += len(card.Benefits)
	}

	zap.L().Info("Card catalog synced",
		zap.String("dir", cfg.Catalog.Dir),
		zap.Int("cards", len(cards)),
		zap.Int("benefits", benefitCount))

	if *quietFlag {
		return
	}

	common.PrintHeader("CARD CATALOG", common.WideWidth)
	for _, card := range cards {
		printCard(card)
	}
	common.PrintFooter(fmt.Sprintf("SUMMARY: %d cards, %d benefits synced from %s", len(cards), benefitCount, cfg.Catalog.Dir), common.WideWidth)
}
