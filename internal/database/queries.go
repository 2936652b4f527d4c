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

package database

const schema = `
	-- Users
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		email_notifications INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	-- Shared card catalog, upserted from the card definition files
	CREATE TABLE IF NOT EXISTS card_configs (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		issuer TEXT NOT NULL DEFAULT '',
		annual_fee TEXT NOT NULL DEFAULT '0',
		benefits_url TEXT NOT NULL DEFAULT '',
		account_patterns TEXT NOT NULL DEFAULT '[]',
		benefits TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_cards (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		card_config_id TEXT NOT NULL REFERENCES card_configs(id) ON DELETE RESTRICT,
		nickname TEXT,
		card_anniversary TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		added_at TIMESTAMP NOT NULL,
		UNIQUE (user_id, card_config_id)
	);

	CREATE INDEX IF NOT EXISTS idx_user_cards_user ON user_cards(user_id, active);

	-- Imported statement lines. Amounts are signed decimals stored as text.
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		card_config_id TEXT REFERENCES card_configs(id) ON DELETE RESTRICT,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		parent_category TEXT NOT NULL DEFAULT '',
		excluded INTEGER NOT NULL DEFAULT 0,
		tags TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT '',
		account TEXT NOT NULL,
		account_mask TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		recurring TEXT NOT NULL DEFAULT '',
		benefit_slug TEXT,
		imported_at TIMESTAMP NOT NULL,
		UNIQUE (user_id, date, name, amount, account)
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date);
	CREATE INDEX IF NOT EXISTS idx_transactions_card_date ON transactions(user_id, card_config_id, date);

	-- Usage accumulators, one row per benefit window
	CREATE TABLE IF NOT EXISTS benefit_periods (
		id TEXT PRIMARY KEY,
		user_card_id TEXT NOT NULL REFERENCES user_cards(id) ON DELETE CASCADE,
		benefit_slug TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		amount_limit TEXT NOT NULL,
		amount_used TEXT NOT NULL DEFAULT '0',
		usage_count INTEGER NOT NULL DEFAULT 0,
		completed INTEGER NOT NULL DEFAULT 0,
		completed_at TIMESTAMP,
		manual_checked INTEGER NOT NULL DEFAULT 0,
		manual_notes TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (user_card_id, benefit_slug, period_start)
	);

	CREATE TABLE IF NOT EXISTS user_benefit_settings (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		user_card_id TEXT NOT NULL REFERENCES user_cards(id) ON DELETE CASCADE,
		benefit_slug TEXT NOT NULL,
		muted INTEGER NOT NULL DEFAULT 0,
		muted_at TIMESTAMP,
		notes TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (user_id, user_card_id, benefit_slug)
	);

	-- Refresh sessions keyed by sha256 of the token jti
	CREATE TABLE IF NOT EXISTS refresh_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		revoked_at TIMESTAMP,
		last_used_at TIMESTAMP,
		rotated_from_id TEXT,
		user_agent TEXT,
		ip_address TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_refresh_sessions_user ON refresh_sessions(user_id);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		read INTEGER NOT NULL DEFAULT 0,
		read_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at);
`

const (
	// User queries
	userColumns = `id, username, email, password_hash, email_notifications, created_at, updated_at`

	queryInsertUser = `
		INSERT INTO users (id, username, email, password_hash, email_notifications, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryGetUsers = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at`

	queryGetUserById = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = ?`

	queryGetUserByEmail = `
		SELECT ` + userColumns + `
		FROM users
		WHERE LOWER(email) = LOWER(?)`

	queryGetUserByLogin = `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = ? OR LOWER(email) = LOWER(?)
		ORDER BY CASE WHEN username = ? THEN 0 ELSE 1 END
		LIMIT 1`

	queryUpdateUserSettings = `
		UPDATE users SET email_notifications = ?, updated_at = ? WHERE id = ?`

	// Card catalog queries
	queryUpsertCardConfig = `
		INSERT INTO card_configs (id, slug, name, issuer, annual_fee, benefits_url, account_patterns, benefits, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			name = excluded.name,
			issuer = excluded.issuer,
			annual_fee = excluded.annual_fee,
			benefits_url = excluded.benefits_url,
			account_patterns = excluded.account_patterns,
			benefits = excluded.benefits,
			updated_at = excluded.updated_at
		RETURNING id`

	queryListCardConfigs = `
		SELECT id, slug, name, issuer, annual_fee, benefits_url, account_patterns, benefits
		FROM card_configs
		ORDER BY slug`

	// User card queries
	userCardColumns = `id, user_id, card_config_id, nickname, card_anniversary, active, added_at`

	queryInsertUserCard = `
		INSERT INTO user_cards (id, user_id, card_config_id, nickname, card_anniversary, active, added_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)`

	queryGetUserCard = `
		SELECT ` + userCardColumns + `
		FROM user_cards
		WHERE id = ? AND user_id = ?`

	queryListUserCards = `
		SELECT ` + userCardColumns + `
		FROM user_cards
		WHERE user_id = ?
		ORDER BY added_at, id`

	queryListActiveUserCards = `
		SELECT ` + userCardColumns + `
		FROM user_cards
		WHERE user_id = ? AND active = 1
		ORDER BY added_at, id`

	queryUpdateUserCard = `
		UPDATE user_cards SET nickname = ?, card_anniversary = ?, active = ?
		WHERE id = ? AND user_id = ?`

	queryDeleteUserCard = `
		DELETE FROM user_cards WHERE id = ? AND user_id = ?`

	// Transaction queries
	transactionColumns = `id, user_id, card_config_id, date, name, amount, status, category, parent_category,
		excluded, tags, type, account, account_mask, note, recurring, benefit_slug, imported_at`

	queryInsertTransaction = `
		INSERT OR IGNORE INTO transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryListCreditTransactions = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = ? AND card_config_id = ? AND CAST(amount AS REAL) < 0
		  AND date >= ? AND date <= ?
		ORDER BY date, imported_at, id`

	queryGetTransactionBenefit = `
		SELECT benefit_slug FROM transactions WHERE id = ?`

	querySetTransactionBenefit = `
		UPDATE transactions SET benefit_slug = ? WHERE id = ?`

	// Benefit period queries
	benefitPeriodColumns = `id, user_card_id, benefit_slug, period_start, period_end, amount_limit, amount_used,
		usage_count, completed, completed_at, manual_checked, manual_notes, created_at, updated_at`

	queryInsertBenefitPeriod = `
		INSERT INTO benefit_periods (` + benefitPeriodColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryUpdateBenefitPeriodUsage = `
		UPDATE benefit_periods
		SET amount_used = ?, usage_count = ?, completed = ?, completed_at = ?,
		    manual_checked = ?, manual_notes = ?, updated_at = ?
		WHERE id = ?`

	queryGetBenefitPeriod = `
		SELECT ` + benefitPeriodColumns + `
		FROM benefit_periods
		WHERE user_card_id = ? AND benefit_slug = ? AND period_start = ?`

	queryLatestBenefitPeriod = `
		SELECT ` + benefitPeriodColumns + `
		FROM benefit_periods
		WHERE user_card_id = ? AND benefit_slug = ?
		ORDER BY period_start DESC
		LIMIT 1`

	queryListBenefitPeriods = `
		SELECT ` + benefitPeriodColumns + `
		FROM benefit_periods
		WHERE user_card_id = ? AND benefit_slug = ?
		ORDER BY period_start DESC`

	// Benefit setting queries
	benefitSettingColumns = `id, user_id, user_card_id, benefit_slug, muted, muted_at, notes, created_at, updated_at`

	queryGetBenefitSetting = `
		SELECT ` + benefitSettingColumns + `
		FROM user_benefit_settings
		WHERE user_id = ? AND user_card_id = ? AND benefit_slug = ?`

	queryListBenefitSettings = `
		SELECT ` + benefitSettingColumns + `
		FROM user_benefit_settings
		WHERE user_id = ? AND user_card_id = ?
		ORDER BY benefit_slug`

	queryUpsertBenefitSetting = `
		INSERT INTO user_benefit_settings (` + benefitSettingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, user_card_id, benefit_slug) DO UPDATE SET
			muted = excluded.muted,
			muted_at = excluded.muted_at,
			notes = excluded.notes,
			updated_at = excluded.updated_at`

	// Refresh session queries
	sessionColumns = `id, user_id, token_hash, created_at, expires_at, revoked_at, last_used_at,
		rotated_from_id, user_agent, ip_address`

	queryInsertRefreshSession = `
		INSERT INTO refresh_sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetRefreshSession = `
		SELECT ` + sessionColumns + `
		FROM refresh_sessions
		WHERE user_id = ? AND token_hash = ?`

	queryRevokeRefreshSession = `
		UPDATE refresh_sessions SET revoked_at = ?, last_used_at = ?
		WHERE id = ? AND revoked_at IS NULL`

	queryRevokeAllRefreshSessions = `
		UPDATE refresh_sessions SET revoked_at = ?
		WHERE user_id = ? AND revoked_at IS NULL`

	// Notification queries
	notificationColumns = `id, user_id, type, title, message, read, read_at, created_at`

	queryInsertNotification = `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryListNotifications = `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?`

	queryListUnreadNotifications = `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = ? AND read = 0
		ORDER BY created_at DESC, id
		LIMIT ?`

	queryMarkNotificationRead = `
		UPDATE notifications SET read = 1, read_at = COALESCE(read_at, ?)
		WHERE id = ? AND user_id = ?`
)
