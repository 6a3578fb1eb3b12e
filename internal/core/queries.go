package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// buildFilterClause appends conditionally-present predicates to base,
// starting placeholders at $2 (owner_id is always $1). Grounded on the
// teacher's GetAccountStatement, which builds its WHERE clause the same way:
// only append a predicate, and its placeholder, when the caller supplied it.
func buildFilterClause(filter Filter, args []any) (string, []any) {
	var b strings.Builder
	n := len(args)

	if filter.Period != nil {
		from, to := periodBounds(*filter.Period)
		n++
		b.WriteString(fmt.Sprintf(" AND transaction_date >= $%d", n))
		args = append(args, from)
		n++
		b.WriteString(fmt.Sprintf(" AND transaction_date < $%d", n))
		args = append(args, to)
	}
	if filter.Category != "" {
		n++
		b.WriteString(fmt.Sprintf(" AND category = $%d", n))
		args = append(args, filter.Category)
	}
	if filter.Status != "" {
		n++
		b.WriteString(fmt.Sprintf(" AND status = $%d", n))
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		n++
		b.WriteString(fmt.Sprintf(" AND type = $%d", n))
		args = append(args, string(filter.Type))
	}
	return b.String(), args
}

// periodBounds resolves a Period into a half-open [from, to) range. Named
// shortcuts start at midnight of p.From, in p.From's location.
func periodBounds(p Period) (time.Time, time.Time) {
	switch p.Kind {
	case PeriodToday:
		from := p.From
		y, m, d := from.Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, from.Location())
		return start, start.AddDate(0, 0, 1)
	case PeriodThisWeek:
		from := p.From
		y, m, d := from.Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, from.Location())
		offset := int(start.Weekday())
		if offset == 0 {
			offset = 7
		}
		start = start.AddDate(0, 0, -(offset - 1))
		return start, start.AddDate(0, 0, 7)
	case PeriodThisMonth:
		from := p.From
		y, m, _ := from.Date()
		start := time.Date(y, m, 1, 0, 0, 0, 0, from.Location())
		return start, start.AddDate(0, 1, 0)
	default:
		return p.From, p.To
	}
}

// ListByOwner returns the Transactions matching filter for ownerID, newest
// first. Every query in this file filters by owner_id — cross-tenant reads
// are structurally impossible, not merely checked.
func (l *Ledger) ListByOwner(ctx context.Context, ownerID string, filter Filter) ([]Transaction, error) {
	args := []any{ownerID}
	clause, args := buildFilterClause(filter, args)

	rows, err := l.pool.Query(ctx, `
		SELECT id, owner_id, type, amount, concept, category, merchant, status, transaction_date, created_at, verified_at
		FROM transactions
		WHERE owner_id = $1`+clause+`
		ORDER BY created_at DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for owner %q: %w", ownerID, err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(
			&t.ID, &t.OwnerID, &t.Type, &t.Amount, &t.Concept, &t.Category, &t.Merchant,
			&t.Status, &t.TransactionDate, &t.CreatedAt, &t.VerifiedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row for owner %q: %w", ownerID, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions for owner %q: %w", ownerID, err)
	}
	return out, nil
}

// SumByOwner aggregates amount and row count for the rows matching filter.
// Used for the zero-hallucination rule: any number surfaced in a READ or
// ADVICE response must originate here, never from the reasoning model.
func (l *Ledger) SumByOwner(ctx context.Context, ownerID string, filter Filter) (Aggregate, error) {
	args := []any{ownerID}
	clause, args := buildFilterClause(filter, args)

	var agg Aggregate
	var total *decimal.Decimal
	err := l.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0), COUNT(*)
		FROM transactions
		WHERE owner_id = $1`+clause,
		args...,
	).Scan(&total, &agg.Count)
	if err != nil {
		return Aggregate{}, fmt.Errorf("failed to sum transactions for owner %q: %w", ownerID, err)
	}
	if total != nil {
		agg.Total = *total
	}
	return agg, nil
}

// DailySummary splits a single calendar date into validated (VERIFIED or
// VERIFIED_MANUAL) and provisional buckets, each broken down by
// income/expense. DEBT movements are excluded from both buckets — spec.md
// §4.1 scopes DailySummary to income/expense only.
func (l *Ledger) DailySummary(ctx context.Context, ownerID string, date time.Time) (DailySummary, error) {
	period := &Period{Kind: PeriodToday, From: date}

	validatedIncome, err := l.sumStatusType(ctx, ownerID, period, Verified, Income)
	if err != nil {
		return DailySummary{}, err
	}
	validatedIncomeManual, err := l.sumStatusType(ctx, ownerID, period, VerifiedManual, Income)
	if err != nil {
		return DailySummary{}, err
	}
	validatedExpense, err := l.sumStatusType(ctx, ownerID, period, Verified, Expense)
	if err != nil {
		return DailySummary{}, err
	}
	validatedExpenseManual, err := l.sumStatusType(ctx, ownerID, period, VerifiedManual, Expense)
	if err != nil {
		return DailySummary{}, err
	}
	provisionalIncome, err := l.sumStatusType(ctx, ownerID, period, Provisional, Income)
	if err != nil {
		return DailySummary{}, err
	}
	provisionalExpense, err := l.sumStatusType(ctx, ownerID, period, Provisional, Expense)
	if err != nil {
		return DailySummary{}, err
	}

	return DailySummary{
		Validated: BucketTotals{
			Income:  combineAggregate(validatedIncome, validatedIncomeManual),
			Expense: combineAggregate(validatedExpense, validatedExpenseManual),
		},
		Provisional: BucketTotals{
			Income:  provisionalIncome,
			Expense: provisionalExpense,
		},
	}, nil
}

func (l *Ledger) sumStatusType(ctx context.Context, ownerID string, period *Period, status TransactionStatus, txType TransactionType) (Aggregate, error) {
	return l.SumByOwner(ctx, ownerID, Filter{Period: period, Status: status, Type: txType})
}

func combineAggregate(a, b Aggregate) Aggregate {
	return Aggregate{Total: a.Total.Add(b.Total), Count: a.Count + b.Count}
}
