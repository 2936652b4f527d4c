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
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"perkle/internal/common"
	"perkle/internal/config"
	"perkle/internal/models"
	"perkle/internal/notify"

	"go.uber.org/zap"
)

func printDigest(d *models.Digest) {
	fmt.Printf("\n┌─ User: %s (%s)\n", d.Username, d.Email)
	common.PrintBoxSeparator(78)
	for i, b := range d.ExpiringBenefits {
		isLast := i == len(d.ExpiringBenefits)-1 && len(d.UpcomingRenewals) == 0
		fmt.Printf("%s expiring  %-20s %-28s %10s left, %d days\n",
			common.BoxPrefix(isLast), b.CardName, b.BenefitName, common.Money(b.Remaining), b.DaysRemaining)
	}
	for i, r := range d.UpcomingRenewals {
		fmt.Printf("%s renewal   %-20s fee %-10s due %s (%d days)\n",
			common.BoxPrefix(i == len(d.UpcomingRenewals)-1), r.CardName, common.Money(r.AnnualFee), r.RenewalDate, r.DaysUntilRenewal)
	}
}

func main() {
	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "Only this username or email (optional)")
	previewFlag := flag.Bool("preview", false, "Print digests without sending email")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if *previewFlag {
		users, err := common.LoadUsers(ctx, services.DbService, *userFlag, logger)
		if err != nil {
			logger.Fatal("Failed to load users", zap.Error(err))
		}
		common.PrintHeader("DIGEST PREVIEW", common.WideWidth)
		empty := 0
		for i := range users {
			digest, err := services.Composer.Build(ctx, &users[i])
			if err != nil {
				logger.Error("Failed to build digest", zap.String("user_id", users[i].Id), zap.Error(err))
				continue
			}
			if digest.Empty() {
				empty++
				continue
			}
			printDigest(digest)
		}
		common.PrintFooter(fmt.Sprintf("SUMMARY: %d users, %d with nothing to report", len(users), empty), common.WideWidth)
		return
	}

	if *userFlag != "" {
		users, err := common.LoadUsers(ctx, services.DbService, *userFlag, logger)
		if err != nil {
			logger.Fatal("Failed to load users", zap.Error(err))
		}
		err = services.Composer.SendForUser(ctx, &users[0])
		switch {
		case err == nil:
			fmt.Printf("Digest sent to %s\n", users[0].Email)
		case errors.Is(err, notify.ErrNotSent):
			fmt.Printf("Digest not sent: %v\n", err)
		default:
			logger.Fatal("Failed to send digest", zap.Error(err))
		}
		return
	}

	result, err := services.Composer.SendAll(ctx)
	if err != nil {
		logger.Fatal("Digest run failed", zap.Error(err))
	}

	common.PrintFooter(fmt.Sprintf("SUMMARY: %d sent, %d skipped, %d failed", result.Sent, result.Skipped, result.Failed), common.DefaultWidth)
	logger.Info("Digest run completed",
		zap.Int("sent", result.Sent),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
}
