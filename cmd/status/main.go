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

	"perkle/internal/common"
	"perkle/internal/config"
	"perkle/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type reportStats struct {
	totalUsers     int
	usersWithCards int
	detected       int
	available      decimal.Decimal
	expiring       int
}

func printBenefit(b models.BenefitStatus, isLast bool) {
	symbol := common.BoxPrefix(isLast)
	amount := fmt.Sprintf("%s / %s", common.Money(b.AmountUsed), common.Money(b.AmountLimit))
	if b.Status == models.StatusInfo {
		amount = "-"
	}
	muted := ""
	if b.Muted {
		muted = " (muted)"
	}
	fmt.Printf("%s %s %-28s %21s  ends %s (%d days)%s\n",
		symbol,
		common.StatusLabel(b.Status),
		b.Name,
		amount,
		b.PeriodEnd,
		b.DaysRemaining,
		muted)
}

func printCard(card models.CardStatus) {
	name := card.CardName
	if card.Nickname != "" {
		name = fmt.Sprintf("%s \"%s\"", card.CardName, card.Nickname)
	}
	fmt.Printf("│\n├─ %s  annual fee %s\n", name, common.Money(card.AnnualFee))
	if card.DaysUntilRenewal != nil {
		fmt.Printf("│  Renews %s (in %d days)\n", card.NextRenewalDate, *card.DaysUntilRenewal)
	}
	for i, b := range card.Benefits {
		printBenefit(b, i == len(card.Benefits)-1)
	}
}

func printUserHeader(user models.User, summary models.StatusSummary) {
	fmt.Printf("\n┌─ User: %s (%s)\n", user.Username, user.Email)
	fmt.Printf("│  ID: %s\n", user.Id)
	fmt.Printf("│  Cards: %d  Available: %s  Used: %s  Expiring soon: %d\n",
		summary.CardsCount,
		common.Money(summary.TotalAvailableValue),
		common.Money(summary.TotalUsedValue),
		summary.ExpiringSoonCount)
	common.PrintBoxSeparator(78)
}

func processUser(ctx context.Context, services *common.Services, user models.User, detect bool, stats *reportStats) error {
	if detect {
		result, err := services.Engine.Detect(ctx, user.Id)
		if err != nil {
			return fmt.Errorf("failed to detect benefits: %w", err)
		}
		stats.detected += result.Detected
	}

	report, err := services.Engine.Status(ctx, user.Id, true)
	if err != nil {
		return fmt.Errorf("failed to build status: %w", err)
	}
	if len(report.Cards) == 0 {
		return nil
	}

	stats.usersWithCards++
	stats.available = stats.available.Add(report.Summary.TotalAvailableValue)
	stats.expiring += report.Summary.ExpiringSoonCount

	printUserHeader(user, report.Summary)
	for _, card := range report.Cards {
		printCard(card)
	}
	return nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	userFlag := flag.String("user", "", "Filter by username or email (optional)")
	detectFlag := flag.Bool("detect", false, "Run credit detection before printing status")
	flag.Parse()

	logger.Info("Starting benefit status report")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	users, err := common.LoadUsers(ctx, services.DbService, *userFlag, logger)
	if err != nil {
		logger.Fatal("Failed to load users", zap.Error(err))
	}

	common.PrintHeader("BENEFIT STATUS REPORT", common.WideWidth)

	stats := reportStats{}
	for _, user := range users {
		stats.totalUsers++
		if err := processUser(ctx, services, user, *detectFlag, &stats); err != nil {
			logger.Error("Failed to process user",
				zap.String("user_id", user.Id),
				zap.String("username", user.Username),
				zap.Error(err))
		}
	}

	summary := fmt.Sprintf("SUMMARY: %d of %d users with cards, %s available, %d expiring soon",
		stats.usersWithCards, stats.totalUsers, common.Money(stats.available), stats.expiring)
	if *detectFlag {
		summary += fmt.Sprintf(", %d credits detected", stats.detected)
	}
	common.PrintFooter(summary, common.WideWidth)

	logger.Info("Benefit status report completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_cards", stats.usersWithCards),
		zap.Int("detected", stats.detected))
}
