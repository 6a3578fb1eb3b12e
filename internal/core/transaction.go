package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the closed set of financial movement kinds a
// Transaction can represent.
type TransactionType string

const (
	Expense TransactionType = "EXPENSE"
	Income  TransactionType = "INCOME"
	Debt    TransactionType = "DEBT"
)

// TransactionStatus is the Transaction lifecycle state. A Transaction
// transitions only PROVISIONAL → VERIFIED or PROVISIONAL → VERIFIED_MANUAL;
// both targets are terminal.
type TransactionStatus string

const (
	Provisional    TransactionStatus = "PROVISIONAL"
	Verified       TransactionStatus = "VERIFIED"
	VerifiedManual TransactionStatus = "VERIFIED_MANUAL"
)

// Transaction is a single atomic financial movement owned by one User.
// amount, concept and owner_id are invariant: amount > 0, concept is never
// empty, and every query in this package filters by owner_id.
type Transaction struct {
	ID              int               `json:"id"`
	OwnerID         string            `json:"owner_id"`
	Type            TransactionType   `json:"type"`
	Amount          decimal.Decimal   `json:"amount"`
	Concept         string            `json:"concept"`
	Category        *string           `json:"category,omitempty"`
	Merchant        *string           `json:"merchant,omitempty"`
	Status          TransactionStatus `json:"status"`
	TransactionDate *time.Time        `json:"transaction_date,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	VerifiedAt      *time.Time        `json:"verified_at,omitempty"`
}

// DocumentFacts is the authoritative data a receipt/invoice document yields
// once analyzed by the Intent Motor's document capability. It is never
// persisted — only its fields overwrite the matching Transaction columns.
type DocumentFacts struct {
	Vendor      string
	Date        *time.Time
	TotalAmount decimal.Decimal
}

// Period identifies a date range for read queries. Exactly one of the
// named shortcuts or an explicit [From, To] range is set by the caller.
type PeriodKind string

const (
	PeriodToday     PeriodKind = "today"
	PeriodThisWeek  PeriodKind = "this_week"
	PeriodThisMonth PeriodKind = "this_month"
	PeriodRange     PeriodKind = "range"
)

type Period struct {
	Kind PeriodKind
	From time.Time
	To   time.Time
}

// Filter narrows ListByOwner / SumByOwner queries. Zero-value fields are
// unfiltered (nil Period means all time, empty Category means all
// categories, empty Status/Type means any).
type Filter struct {
	Period   *Period
	Category string
	Status   TransactionStatus
	Type     TransactionType
}

// Aggregate is the result of SumByOwner: a deterministic total and count.
type Aggregate struct {
	Total decimal.Decimal
	Count int
}

// BucketTotals is income/expense totals+counts for one status bucket,
// used by DailySummary.
type BucketTotals struct {
	Income  Aggregate
	Expense Aggregate
}

// DailySummary is the result of Ledger.DailySummary: validated (VERIFIED or
// VERIFIED_MANUAL) and provisional movements for a single calendar date,
// scoped to one owner.
type DailySummary struct {
	Validated   BucketTotals
	Provisional BucketTotals
}
