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

// Package importer loads transaction CSV exports from personal-finance tools.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"perkle/internal/models"
	"perkle/internal/period"
	"perkle/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxReportedErrors caps the row errors returned to the caller.
const MaxReportedErrors = 10

var requiredColumns = []string{"date", "name", "amount", "account"}

// Row is one parsed CSV line. Line counts the header as line 1.
type Row struct {
	Line int
	Txn  models.Transaction
}

// Parse reads a CSV with a header row. Rows with missing required fields or a
// bad amount are reported as errors and left out; a missing header fails the
// whole file.
func Parse(r io.Reader) ([]Row, []string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%w: csv file is empty", store.ErrValidation)
		}
		return nil, nil, fmt.Errorf("%w: unreadable csv header: %v", store.ErrValidation, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		columns[clean(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, nil, fmt.Errorf("%w: csv header is missing column %q", store.ErrValidation, name)
		}
	}

	var (
		rows   []Row
		errs   []string
		lineNo = 1
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		lineNo++
		if err != nil {
			errs = append(errs, fmt.Sprintf("Row %d: %v", lineNo, err))
			continue
		}

		field := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(record) {
				return ""
			}
			return clean(record[i])
		}

		date, name, amountStr, account := field("date"), field("name"), field("amount"), field("account")
		if date == "" || name == "" || amountStr == "" || account == "" {
			errs = append(errs, fmt.Sprintf("Row %d: Missing required field", lineNo))
			continue
		}
		if _, err := period.ParseDate(date); err != nil {
			errs = append(errs, fmt.Sprintf("Row %d: Invalid date '%s'", lineNo, date))
			continue
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Row %d: Invalid amount '%s'", lineNo, amountStr))
			continue
		}

		rows = append(rows, Row{
			Line: lineNo,
			Txn: models.Transaction{
				Date:           date,
				Name:           name,
				Amount:         amount,
				Status:         field("status"),
				Category:       field("category"),
				ParentCategory: field("parent category"),
				Excluded:       isTrue(field("excluded")),
				Tags:           field("tags"),
				Type:           field("type"),
				Account:        account,
				AccountMask:    field("account mask"),
				Note:           field("note"),
				Recurring:      field("recurring"),
			},
		})
	}
	return rows, errs, nil
}

func clean(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}

func isTrue(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// AccountMatcher maps an account name to a card config id.
type AccountMatcher interface {
	MatchAccount(accountName string) (string, bool)
}

// Importer persists parsed rows for a user.
type Importer struct {
	store    store.Store
	accounts AccountMatcher
	now      func() time.Time
}

func New(s store.Store, accounts AccountMatcher) *Importer {
	return &Importer{store: s, accounts: accounts, now: time.Now}
}

// Import parses r and stores its transactions for userId in one database
// transaction. Rows identical on (date, name, amount, account) to an earlier
// row of the file or to a stored transaction are counted as skipped.
func (im *Importer) Import(ctx context.Context, userId string, r io.Reader) (*models.ImportResult, error) {
	rows, errs, err := Parse(r)
	if err != nil {
		return nil, err
	}

	result := &models.ImportResult{}
	importedAt := im.now().UTC()
	seen := make(map[string]struct{}, len(rows))

	err = im.store.InTx(ctx, func(q store.Queries) error {
		for i := range rows {
			txn := rows[i].Txn
			key := strings.Join([]string{txn.Date, txn.Name, txn.Amount.String(), txn.Account}, "\x00")
			if _, dup := seen[key]; dup {
				result.Skipped++
				continue
			}
			seen[key] = struct{}{}

			txn.UserId = userId
			txn.ImportedAt = importedAt
			if id, ok := im.accounts.MatchAccount(txn.Account); ok {
				txn.CardConfigId = id
			}

			inserted, err := q.InsertTransaction(ctx, &txn)
			if err != nil {
				return fmt.Errorf("row %d: %w", rows[i].Line, err)
			}
			if inserted {
				result.Imported++
			} else {
				result.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.TotalErrors = len(errs)
	if len(errs) > MaxReportedErrors {
		errs = errs[:MaxReportedErrors]
	}
	result.Errors = errs
	if result.Errors == nil {
		result.Errors = []string{}
	}

	zap.L().Info("Transactions imported",
		zap.String("user_id", userId),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.TotalErrors))
	return result, nil
}
