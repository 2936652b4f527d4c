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

	"perkle/internal/auth"
	"perkle/internal/common"
	"perkle/internal/config"
	"perkle/internal/store"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	usernameFlag := flag.String("username", "", "Username, 3 to 50 characters (required)")
	emailFlag := flag.String("email", "", "User's email address (required)")
	passwordFlag := flag.String("password", "", "Password, at least 8 characters (defaults to $PERKLE_PASSWORD)")
	flag.Parse()

	password := *passwordFlag
	if password == "" {
		password = os.Getenv("PERKLE_PASSWORD")
	}

	if *usernameFlag == "" || *emailFlag == "" || password == "" {
		zap.L().Fatal("Flags --username, --email and --password are required")
	}

	zap.L().Info("Starting user creation process",
		zap.String("username", *usernameFlag),
		zap.String("email", *emailFlag))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	authService := auth.NewService(dbService, cfg.Auth)
	user, err := authService.Register(ctx, auth.RegisterParams{
		Username: *usernameFlag,
		Email:    *emailFlag,
		Password: password,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			zap.L().Fatal("User already exists", zap.String("username", *usernameFlag), zap.String("email", *emailFlag))
		case errors.Is(err, store.ErrValidation):
			zap.L().Fatal("Invalid user details", zap.Error(err))
		}
		zap.L().Fatal("Failed to create user", zap.Error(err))
	}

	fmt.Println()
	common.PrintHeader("USER CREATED", common.DefaultWidth)
	fmt.Printf("ID:       %s\n", user.Id)
	fmt.Printf("Username: %s\n", user.Username)
	fmt.Printf("Email:    %s\n", user.Email)
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()

	zap.L().Info("User created successfully", zap.String("id", user.Id))
}
