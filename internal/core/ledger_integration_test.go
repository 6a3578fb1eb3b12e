package core_test

import (
	"context"
	"os"
	"testing"
	"time"

	"numa/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `TRUNCATE TABLE transactions, users RESTART IDENTITY CASCADE;`)
	if err != nil {
		t.Fatalf("Failed to truncate test database: %v", err)
	}

	return pool
}

func TestLedger_CreateProvisional_RejectsNonPositiveAmount(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedger(pool, nil, 0.7)
	ctx := context.Background()

	_, err := ledger.CreateProvisional(ctx, "owner-1", decimal.Zero, "coffee", core.Expense, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for zero amount, got nil")
	}
}

func TestLedger_VerifyManual_RequiresMerchant(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedger(pool, nil, 0.7)
	ctx := context.Background()

	amount := decimal.NewFromInt(500)
	tx, err := ledger.CreateProvisional(ctx, "owner-1", amount, "taxi", core.Expense, nil, nil, nil)
	if err != nil {
		t.Fatalf("create provisional: %v", err)
	}

	_, err = ledger.VerifyManual(ctx, tx.ID, "owner-1")
	if err == nil {
		t.Fatal("expected merchant-missing error, got nil")
	}
}

func TestLedger_VerifyWithDocument_TransitionsToVerified(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedger(pool, nil, 0.7)
	ctx := context.Background()

	amount := decimal.NewFromInt(1000)
	tx, err := ledger.CreateProvisional(ctx, "owner-1", amount, "groceries", core.Expense, nil, nil, nil)
	if err != nil {
		t.Fatalf("create provisional: %v", err)
	}

	docAmount := decimal.NewFromInt(1050)
	verified, err := ledger.VerifyWithDocument(ctx, tx.ID, "owner-1", core.DocumentFacts{
		Vendor:      "Super Market",
		TotalAmount: docAmount,
	})
	if err != nil {
		t.Fatalf("verify with document: %v", err)
	}
	if verified.Status != core.Verified {
		t.Errorf("expected status VERIFIED, got %s", verified.Status)
	}
	if !verified.Amount.Equal(docAmount) {
		t.Errorf("expected document amount %s to overwrite provisional amount, got %s", docAmount, verified.Amount)
	}
	if verified.Category == nil || *verified.Category != core.DefaultCategory {
		t.Errorf("expected fallback category %s, got %v", core.DefaultCategory, verified.Category)
	}

	// Re-verifying an already-terminal transaction must fail.
	_, err = ledger.VerifyManual(ctx, tx.ID, "owner-1")
	if err == nil {
		t.Fatal("expected error re-verifying a terminal transaction")
	}
}

func TestLedger_VerifyWithDocument_RejectsCrossOwner(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedger(pool, nil, 0.7)
	ctx := context.Background()

	tx, err := ledger.CreateProvisional(ctx, "owner-1", decimal.NewFromInt(200), "lunch", core.Expense, nil, nil, nil)
	if err != nil {
		t.Fatalf("create provisional: %v", err)
	}

	_, err = ledger.VerifyWithDocument(ctx, tx.ID, "owner-2", core.DocumentFacts{
		Vendor:      "Cafe",
		TotalAmount: decimal.NewFromInt(200),
	})
	if err == nil {
		t.Fatal("expected cross-owner verify to fail")
	}
}

func TestLedger_DailySummary_SplitsValidatedAndProvisional(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedger(pool, nil, 0.7)
	ctx := context.Background()
	now := time.Now()

	merchant := "Employer Inc"
	income, err := ledger.CreateProvisional(ctx, "owner-1", decimal.NewFromInt(50000), "salary", core.Income, &merchant, nil, &now)
	if err != nil {
		t.Fatalf("create income: %v", err)
	}
	if _, err := ledger.VerifyManual(ctx, income.ID, "owner-1"); err != nil {
		t.Fatalf("verify income: %v", err)
	}

	if _, err := ledger.CreateProvisional(ctx, "owner-1", decimal.NewFromInt(300), "snacks", core.Expense, nil, nil, &now); err != nil {
		t.Fatalf("create expense: %v", err)
	}

	summary, err := ledger.DailySummary(ctx, "owner-1", now)
	if err != nil {
		t.Fatalf("daily summary: %v", err)
	}
	if summary.Validated.Income.Count != 1 {
		t.Errorf("expected 1 validated income row, got %d", summary.Validated.Income.Count)
	}
	if summary.Provisional.Expense.Count != 1 {
		t.Errorf("expected 1 provisional expense row, got %d", summary.Provisional.Expense.Count)
	}
}

func TestLedger_ListByOwner_ScopesToOwner(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedger(pool, nil, 0.7)
	ctx := context.Background()

	if _, err := ledger.CreateProvisional(ctx, "owner-1", decimal.NewFromInt(100), "a", core.Expense, nil, nil, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := ledger.CreateProvisional(ctx, "owner-2", decimal.NewFromInt(999), "b", core.Expense, nil, nil, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	rows, err := ledger.ListByOwner(ctx, "owner-1", core.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row scoped to owner-1, got %d", len(rows))
	}
	if rows[0].OwnerID != "owner-1" {
		t.Errorf("row leaked across owners: %+v", rows[0])
	}
}
