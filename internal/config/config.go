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

package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"perkle/internal/dburl"
	"perkle/internal/models"
)

// ErrConfig marks a configuration the process must refuse to start with.
var ErrConfig = errors.New("invalid configuration")

const (
	minSecretLength      = 32
	minSecretEntropyBits = 100.0
)

var weakSecrets = map[string]bool{
	"changeme":               true,
	"changeme-in-production": true,
	"secret":                 true,
	"password":               true,
	"test":                   true,
}

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	digestInterval, err := getEnvDuration("DIGEST_INTERVAL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &models.Config{
		AppName: getEnvString("APP_NAME", "Perkle"),
		Database: models.DatabaseConfig{
			URL:             getEnvString("DATABASE_URL", "sqlite:///./data/perkle.db"),
			Key:             os.Getenv("DATABASE_KEY"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Auth: models.AuthConfig{
			SecretKey:          os.Getenv("SECRET_KEY"),
			Algorithm:          "HS256",
			AccessTokenExpiry:  time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 15)) * time.Minute,
			RefreshTokenExpiry: time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRE_DAYS", 7)) * 24 * time.Hour,
			CookieName:         getEnvString("REFRESH_COOKIE_NAME", "perkle_refresh"),
			CookiePath:         getEnvString("REFRESH_COOKIE_PATH", "/api/auth"),
			CookieSecure:       getEnvBool("REFRESH_COOKIE_SECURE", true),
		},
		Server: models.ServerConfig{
			Addr:            getEnvString("HTTP_ADDR", ":8000"),
			CorsOrigins:     getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
			ShutdownTimeout: shutdownTimeout,
		},
		SMTP: models.SMTPConfig{
			Host:      os.Getenv("SMTP_HOST"),
			Port:      getEnvInt("SMTP_PORT", 587),
			User:      os.Getenv("SMTP_USER"),
			Password:  os.Getenv("SMTP_PASSWORD"),
			FromEmail: getEnvString("SMTP_FROM_EMAIL", "noreply@perkle.app"),
		},
		Digest: models.DigestConfig{
			Enabled:      getEnvBool("DIGEST_ENABLED", true),
			Interval:     digestInterval,
			ExpiringDays: getEnvInt("DIGEST_EXPIRING_DAYS", 7),
			RenewalDays:  getEnvInt("DIGEST_RENEWAL_DAYS", 30),
		},
		Catalog: models.CatalogConfig{
			Dir: getEnvString("CARD_CONFIGS_DIR", "configs/cards"),
		},
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails closed on a missing database key, an unusable database URL
// or a weak signing secret.
func Validate(cfg *models.Config) error {
	if cfg.Database.Key == "" {
		return fmt.Errorf("%w: DATABASE_KEY must be set", ErrConfig)
	}
	if _, err := dburl.ParseURL(cfg.Database.URL, cfg.Database.Key); err != nil {
		return fmt.Errorf("%w: DATABASE_URL: %v", ErrConfig, err)
	}
	if err := ValidateSecret(cfg.Auth.SecretKey); err != nil {
		return err
	}
	if cfg.Auth.AccessTokenExpiry <= 0 || cfg.Auth.RefreshTokenExpiry <= 0 {
		return fmt.Errorf("%w: token lifetimes must be positive", ErrConfig)
	}
	if cfg.Digest.Enabled && cfg.Digest.Interval <= 0 {
		return fmt.Errorf("%w: DIGEST_INTERVAL must be positive", ErrConfig)
	}
	return nil
}

// ValidateSecret rejects short, placeholder and low-entropy signing secrets.
func ValidateSecret(secret string) error {
	if secret == "" {
		return fmt.Errorf("%w: SECRET_KEY must be set", ErrConfig)
	}
	if utf8.RuneCountInString(secret) < minSecretLength {
		return fmt.Errorf("%w: SECRET_KEY must be at least %d characters", ErrConfig, minSecretLength)
	}
	lowered := strings.ToLower(secret)
	if weakSecrets[lowered] || strings.Contains(lowered, "changeme") {
		return fmt.Errorf("%w: SECRET_KEY must not be a placeholder value", ErrConfig)
	}
	if bits := entropyBits(secret); bits < minSecretEntropyBits {
		return fmt.Errorf("%w: SECRET_KEY entropy is too low (%.0f bits); use a cryptographically random value", ErrConfig, bits)
	}
	return nil
}

// entropyBits estimates Shannon entropy per character times length.
func entropyBits(s string) float64 {
	counts := make(map[rune]int)
	n := 0
	for _, r := range s {
		counts[r]++
		n++
	}
	if n == 0 {
		return 0
	}
	var perChar float64
	for _, c := range counts {
		p := float64(c) / float64(n)
		perChar -= p * math.Log2(p)
	}
	return perChar * float64(n)
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
