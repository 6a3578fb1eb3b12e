package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// AutoCategorizer is the Intent Motor capability the Ledger calls on a
// transition to a terminal status when the Transaction has no category yet;
// an existing category is kept. It always returns a label drawn from the
// closed taxonomy; confidence below the configured threshold means the
// Ledger falls back to the default discretionary bucket.
type AutoCategorizer interface {
	ClassifyCategory(ctx context.Context, concept, merchant string) (category string, confidence float64, err error)
}

// DefaultCategory is the lowest-risk taxonomy bucket assigned whenever a
// terminal-status Transaction would otherwise be left without a category.
const DefaultCategory = "Compras"

// LedgerService is the public contract described in spec.md §4.1.
type LedgerService interface {
	CreateProvisional(ctx context.Context, ownerID string, amount decimal.Decimal, concept string, txType TransactionType, merchant, category *string, date *time.Time) (*Transaction, error)
	VerifyWithDocument(ctx context.Context, id int, ownerID string, doc DocumentFacts) (*Transaction, error)
	VerifyManual(ctx context.Context, id int, ownerID string) (*Transaction, error)
	ListByOwner(ctx context.Context, ownerID string, filter Filter) ([]Transaction, error)
	SumByOwner(ctx context.Context, ownerID string, filter Filter) (Aggregate, error)
	DailySummary(ctx context.Context, ownerID string, date time.Time) (DailySummary, error)
}

// Ledger is the PostgreSQL-backed LedgerService implementation, grounded on
// the teacher's core.Ledger / core.documentService row-locking idiom.
type Ledger struct {
	pool           *pgxpool.Pool
	autoCategorize AutoCategorizer
	threshold      float64
}

// NewLedger constructs a Ledger. threshold is the confidence floor (spec.md
// §4.1/§4.2, default 0.7) at or above which an auto-categorizer label is
// accepted.
func NewLedger(pool *pgxpool.Pool, autoCategorize AutoCategorizer, threshold float64) *Ledger {
	return &Ledger{pool: pool, autoCategorize: autoCategorize, threshold: threshold}
}

// CreateProvisional inserts a new PROVISIONAL Transaction. merchant,
// category and date are stored when non-nil. The confidence gate on a
// write-time category is applied by FIM before the record reaches here.
func (l *Ledger) CreateProvisional(ctx context.Context, ownerID string, amount decimal.Decimal, concept string, txType TransactionType, merchant, category *string, date *time.Time) (*Transaction, error) {
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount %s for owner %q: %w", amount, ownerID, ErrInvalidAmount)
	}
	if strings.TrimSpace(concept) == "" {
		return nil, fmt.Errorf("owner %q: %w", ownerID, ErrInvalidConcept)
	}

	t := &Transaction{}
	err := l.pool.QueryRow(ctx, `
		INSERT INTO transactions (owner_id, type, amount, concept, category, merchant, status, transaction_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, owner_id, type, amount, concept, category, merchant, status, transaction_date, created_at, verified_at
	`, ownerID, string(txType), amount, concept, category, merchant, string(Provisional), date).Scan(
		&t.ID, &t.OwnerID, &t.Type, &t.Amount, &t.Concept, &t.Category, &t.Merchant,
		&t.Status, &t.TransactionDate, &t.CreatedAt, &t.VerifiedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provisional transaction for owner %q: %w", ownerID, err)
	}
	return t, nil
}

// VerifyWithDocument transitions a PROVISIONAL Transaction to VERIFIED using
// an authoritative document's amount/merchant/date. The document's amount
// always overwrites the provisional amount (document is ground truth); the
// original concept is preserved.
func (l *Ledger) VerifyWithDocument(ctx context.Context, id int, ownerID string, doc DocumentFacts) (*Transaction, error) {
	if strings.TrimSpace(doc.Vendor) == "" {
		return nil, fmt.Errorf("transaction %d: %w", id, ErrMissingMerchant)
	}
	return l.verify(ctx, id, ownerID, Verified, &doc)
}

// VerifyManual transitions a PROVISIONAL Transaction to VERIFIED_MANUAL.
// Rejects with ErrMissingMerchant if the existing merchant is null/empty —
// the merchant-integrity rule applies regardless of verification path.
func (l *Ledger) VerifyManual(ctx context.Context, id int, ownerID string) (*Transaction, error) {
	return l.verify(ctx, id, ownerID, VerifiedManual, nil)
}

// verify performs the shared row-locked transition logic. doc is non-nil
// only for the document-backed path; nil means the merchant already stored
// on the row must satisfy the integrity rule on its own.
func (l *Ledger) verify(ctx context.Context, id int, ownerID string, target TransactionStatus, doc *DocumentFacts) (*Transaction, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var t Transaction
	err = tx.QueryRow(ctx, `
		SELECT id, owner_id, type, amount, concept, category, merchant, status, transaction_date, created_at, verified_at
		FROM transactions
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(
		&t.ID, &t.OwnerID, &t.Type, &t.Amount, &t.Concept, &t.Category, &t.Merchant,
		&t.Status, &t.TransactionDate, &t.CreatedAt, &t.VerifiedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load transaction %d: %w", id, err)
	}

	// Cross-tenant access must be indistinguishable from not-found at the
	// boundary; here it carries ErrNotOwner so the caller can map it.
	if t.OwnerID != ownerID {
		return nil, fmt.Errorf("transaction %d: %w", id, ErrNotOwner)
	}
	if t.Status != Provisional {
		return nil, fmt.Errorf("transaction %d: %w", id, ErrNotProvisional)
	}

	merchant := t.Merchant
	amount := t.Amount
	date := t.TransactionDate
	if doc != nil {
		merchant = &doc.Vendor
		amount = doc.TotalAmount
		if doc.Date != nil {
			date = doc.Date
		}
	}
	if merchant == nil || strings.TrimSpace(*merchant) == "" {
		return nil, fmt.Errorf("transaction %d: %w", id, ErrMissingMerchant)
	}

	category := t.Category
	if category == nil {
		label := l.resolveCategory(ctx, t.Concept, *merchant)
		category = &label
	}

	err = tx.QueryRow(ctx, `
		UPDATE transactions
		SET status = $1, amount = $2, merchant = $3, category = $4, transaction_date = $5, verified_at = NOW()
		WHERE id = $6
		RETURNING id, owner_id, type, amount, concept, category, merchant, status, transaction_date, created_at, verified_at
	`, string(target), amount, merchant, category, date, id).Scan(
		&t.ID, &t.OwnerID, &t.Type, &t.Amount, &t.Concept, &t.Category, &t.Merchant,
		&t.Status, &t.TransactionDate, &t.CreatedAt, &t.VerifiedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to verify transaction %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit verification of transaction %d: %w", id, err)
	}
	return &t, nil
}

// resolveCategory calls the auto-categorizer best-effort. A ProviderError
// (or any failure) falls back to DefaultCategory rather than failing the
// verify — auto-categorization is explicitly non-critical per spec.md §7.
func (l *Ledger) resolveCategory(ctx context.Context, concept, merchant string) string {
	if l.autoCategorize == nil {
		return DefaultCategory
	}
	label, confidence, err := l.autoCategorize.ClassifyCategory(ctx, concept, merchant)
	if err != nil || confidence < l.threshold || label == "" {
		return DefaultCategory
	}
	return label
}
