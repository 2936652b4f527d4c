package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"perkle/internal/catalog"
	"perkle/internal/database"
	"perkle/internal/models"
	"perkle/internal/store"

	"github.com/shopspring/decimal"
)

const header = "date,name,amount,status,category,parent category,excluded,tags,type,account,account mask,note,recurring\n"

func TestParse(t *testing.T) {
	csvData := header +
		`2025-03-10,"Dining Credit - X",-7.00,posted,Dining,Food,,,credit,"Gold Card",1234,,` + "\n" +
		`2025-03-11,Coffee,4.50,posted,Coffee,Food,YES,,debit,Gold Card,1234,note,` + "\n" +
		`2025-03-12,,3,,,,,,,Gold Card,,,` + "\n" +
		`2025-03-13,Bad,abc,,,,,,,Gold Card,,,` + "\n" +
		`3/10/2025,Slashed,5,,,,,,,Gold Card,,,` + "\n" +
		`2025-02-30,Overflow,5,,,,,,,Gold Card,,,` + "\n"

	rows, errs, err := Parse(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}

	first := rows[0].Txn
	if first.Name != "Dining Credit - X" || first.Account != "Gold Card" || !first.Amount.Equal(decimal.NewFromInt(-7)) {
		t.Errorf("Unexpected first row: %+v", first)
	}
	if first.Excluded || first.AccountMask != "1234" || first.ParentCategory != "Food" {
		t.Errorf("Unexpected optional fields: %+v", first)
	}
	if !rows[1].Txn.Excluded || rows[1].Txn.Note != "note" || rows[1].Line != 3 {
		t.Errorf("Unexpected second row: %+v", rows[1])
	}

	wantErrs := []string{
		"Row 4: Missing required field",
		"Row 5: Invalid amount 'abc'",
		"Row 6: Invalid date '3/10/2025'",
		"Row 7: Invalid date '2025-02-30'",
	}
	if len(errs) != len(wantErrs) {
		t.Fatalf("Expected errors %v, got %v", wantErrs, errs)
	}
	for i := range wantErrs {
		if errs[i] != wantErrs[i] {
			t.Errorf("Expected error %q, got %q", wantErrs[i], errs[i])
		}
	}
}

func TestParse_BadHeader(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty file", ""},
		{"missing account column", "date,name,amount\n2025-03-10,X,1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(strings.NewReader(tt.data))
			if !errors.Is(err, store.ErrValidation) {
				t.Errorf("Expected ErrValidation, got %v", err)
			}
		})
	}
}

func setupImporter(t *testing.T) (*Importer, *database.Service, *catalog.Catalog, string) {
	t.Helper()
	ctx := context.Background()

	service, err := database.NewService(ctx, models.DatabaseConfig{
		URL:          "sqlite:///:memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(service.Close)

	cat, err := catalog.Sync(ctx, service, []models.CardConfig{
		{Slug: "gold", Name: "Gold", Issuer: "Bank", AccountPatterns: []string{"gold card"}},
		{Slug: "blue", Name: "Blue", Issuer: "Bank", AccountPatterns: []string{"blue"}},
	})
	if err != nil {
		t.Fatalf("catalog.Sync failed: %v", err)
	}

	user, err := service.CreateUser(ctx, store.CreateUserParams{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	return New(service, cat), service, cat, user.Id
}

func TestImport_DedupAndMatch(t *testing.T) {
	im, service, cat, userId := setupImporter(t)
	ctx := context.Background()

	csvData := header +
		"2025-03-10,Dining Credit,-7,,,,,,,Amex GOLD CARD,,,\n" +
		"2025-03-10,Dining Credit,-7.00,,,,,,,Amex GOLD CARD,,,\n" +
		"2025-03-11,Groceries,40,,,,,,,Checking,,,\n"

	result, err := im.Import(ctx, userId, strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.Imported != 2 || result.Skipped != 1 || result.TotalErrors != 0 {
		t.Errorf("Expected imported=2 skipped=1 errors=0, got %+v", result)
	}

	result, err = im.Import(ctx, userId, strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("second Import failed: %v", err)
	}
	if result.Imported != 0 || result.Skipped != 3 {
		t.Errorf("Expected reimport to skip everything, got %+v", result)
	}

	gold, _ := cat.Get("gold")
	txns, total, err := service.ListTransactions(ctx, store.TransactionFilter{UserId: userId, Limit: 100})
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("Expected 2 stored transactions, got %d", total)
	}
	for _, txn := range txns {
		switch txn.Name {
		case "Dining Credit":
			if txn.CardConfigId != gold.Id {
				t.Errorf("Expected credit matched to gold card, got %q", txn.CardConfigId)
			}
		case "Groceries":
			if txn.CardConfigId != "" {
				t.Errorf("Expected unmatched account, got %q", txn.CardConfigId)
			}
		}
	}
}

func TestImport_CapsErrors(t *testing.T) {
	im, _, _, userId := setupImporter(t)

	var b strings.Builder
	b.WriteString(header)
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&b, "2025-03-%02d,Row,not-a-number,,,,,,,Gold Card,,,\n", i+1)
	}
	b.WriteString("2025-03-20,Good,1,,,,,,,Gold Card,,,\n")

	result, err := im.Import(context.Background(), userId, strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.Imported != 1 {
		t.Errorf("Expected good row imported, got %d", result.Imported)
	}
	if len(result.Errors) != MaxReportedErrors || result.TotalErrors != 15 {
		t.Errorf("Expected %d reported of 15 errors, got %d of %d", MaxReportedErrors, len(result.Errors), result.TotalErrors)
	}
}
