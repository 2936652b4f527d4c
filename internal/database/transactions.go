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

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"perkle/internal/models"
	"perkle/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		txn                   models.Transaction
		cardConfigId, benefit sql.NullString
		amountStr             string
	)
	err := row.Scan(&txn.Id, &txn.UserId, &cardConfigId, &txn.Date, &txn.Name, &amountStr,
		&txn.Status, &txn.Category, &txn.ParentCategory, &txn.Excluded, &txn.Tags, &txn.Type,
		&txn.Account, &txn.AccountMask, &txn.Note, &txn.Recurring, &benefit, &txn.ImportedAt)
	if err != nil {
		return nil, err
	}
	txn.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	txn.CardConfigId = cardConfigId.String
	txn.BenefitSlug = benefit.String
	return &txn, nil
}

// InsertTransaction stores txn unless an identical (user, date, name, amount,
// account) row already exists. It reports whether a row was written.
func (s *Queries) InsertTransaction(ctx context.Context, txn *models.Transaction) (bool, error) {
	if txn.Id == "" {
		txn.Id = uuid.New().String()
	}
	result, err := s.q.ExecContext(ctx, queryInsertTransaction,
		txn.Id, txn.UserId, nullString(txn.CardConfigId), txn.Date, txn.Name, txn.Amount.String(),
		txn.Status, txn.Category, txn.ParentCategory, txn.Excluded, txn.Tags, txn.Type,
		txn.Account, txn.AccountMask, txn.Note, txn.Recurring, nullString(txn.BenefitSlug), txn.ImportedAt.UTC())
	if err != nil {
		zap.L().Error("Failed to insert transaction", zap.String("user_id", txn.UserId), zap.Error(err))
		return false, fmt.Errorf("unable to insert transaction: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unable to get rows affected: %w", err)
	}
	return n > 0, nil
}

// ListCreditTransactions returns negative-amount transactions of one card
// dated within [startDate, endDate], oldest first.
func (s *Queries) ListCreditTransactions(ctx context.Context, userId, cardConfigId, startDate, endDate string) ([]models.Transaction, error) {
	rows, err := s.q.QueryContext(ctx, queryListCreditTransactions, userId, cardConfigId, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("unable to query credit transactions: %w", err)
	}
	defer closeRows(rows)
	return collectTransactions(rows)
}

func (s *Queries) ListTransactions(ctx context.Context, filter store.TransactionFilter) ([]models.Transaction, int, error) {
	where := []string{"user_id = ?"}
	args := []any{filter.UserId}
	if filter.CardConfigId != "" {
		where = append(where, "card_config_id = ?")
		args = append(args, filter.CardConfigId)
	}
	if filter.StartDate != "" {
		where = append(where, "date >= ?")
		args = append(args, filter.StartDate)
	}
	if filter.EndDate != "" {
		where = append(where, "date <= ?")
		args = append(args, filter.EndDate)
	}
	if filter.CreditsOnly {
		where = append(where, "CAST(amount AS REAL) < 0")
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions WHERE "+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("unable to count transactions: %w", err)
	}

	query := "SELECT " + transactionColumns + " FROM transactions WHERE " + clause +
		" ORDER BY date DESC, imported_at DESC, id LIMIT ? OFFSET ?"
	rows, err := s.q.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to query transactions: %w", err)
	}
	defer closeRows(rows)

	txns, err := collectTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

func collectTransactions(rows *sql.Rows) ([]models.Transaction, error) {
	var txns []models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan transaction row: %w", err)
		}
		txns = append(txns, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return txns, nil
}

// transactionBenefit returns the benefit slug a transaction was applied to, or "".
func (s *Queries) transactionBenefit(ctx context.Context, txnId string) (string, error) {
	var slug sql.NullString
	err := s.q.QueryRowContext(ctx, queryGetTransactionBenefit, txnId).Scan(&slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: transaction %s", store.ErrNotFound, txnId)
		}
		return "", fmt.Errorf("unable to query transaction benefit: %w", err)
	}
	return slug.String, nil
}

func (s *Queries) setTransactionBenefit(ctx context.Context, txnId, slug string) error {
	if _, err := s.q.ExecContext(ctx, querySetTransactionBenefit, slug, txnId); err != nil {
		return fmt.Errorf("unable to tag transaction %s: %w", txnId, err)
	}
	return nil
}
