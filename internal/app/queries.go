package app

import (
	"context"
	"errors"
	"time"

	"numa/internal/core"
	"numa/internal/fim"

	"github.com/shopspring/decimal"
)

// VerifyDocument analyzes an uploaded receipt/invoice and applies its facts
// to the named Transaction, transitioning it to VERIFIED. Cross-tenant
// access is rejected the same way the Ledger rejects not-found — the
// caller cannot distinguish "doesn't exist" from "belongs to someone
// else" (spec.md §4.1 tenancy invariant).
func (o *Orchestrator) VerifyDocument(ctx context.Context, ownerID string, transactionID int, documentBytes []byte, mimeType string) ResponseEnvelope {
	motorFacts, err := o.motor.AnalyzeDocument(ctx, documentBytes, mimeType)
	if err != nil {
		if errors.Is(err, fim.ErrTimeout) {
			return errorEnvelope(ErrorKindTimeout, "el análisis del documento tardó demasiado, intenta de nuevo")
		}
		return errorEnvelope(ErrorKindProvider, "no pude leer el documento adjunto")
	}

	amount, err := decimal.NewFromString(motorFacts.TotalAmount)
	if err != nil {
		return errorEnvelope(ErrorKindProvider, "el documento no contiene un monto reconocible")
	}
	doc := core.DocumentFacts{Vendor: motorFacts.Vendor, Date: motorFacts.Date, TotalAmount: amount}
	tx, err := o.ledger.VerifyWithDocument(ctx, transactionID, ownerID, doc)
	if err != nil {
		return verifyErrorEnvelope(err)
	}
	return transactionEnvelope([]core.Transaction{*tx}, "movimiento verificado con documento")
}

// ManualVerify transitions a PROVISIONAL Transaction to VERIFIED_MANUAL
// without a supporting document, subject to the same merchant-integrity
// rule the Ledger enforces on every verification path.
func (o *Orchestrator) ManualVerify(ctx context.Context, ownerID string, transactionID int) ResponseEnvelope {
	tx, err := o.ledger.VerifyManual(ctx, transactionID, ownerID)
	if err != nil {
		return verifyErrorEnvelope(err)
	}
	return transactionEnvelope([]core.Transaction{*tx}, "movimiento confirmado manualmente")
}

func verifyErrorEnvelope(err error) ResponseEnvelope {
	switch {
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrNotOwner):
		return errorEnvelope(ErrorKindValidation, "no encontré ese movimiento")
	case errors.Is(err, core.ErrMissingMerchant):
		return errorEnvelope(ErrorKindValidation, "necesito el nombre del comercio para verificar este movimiento")
	case errors.Is(err, core.ErrNotProvisional):
		return errorEnvelope(ErrorKindValidation, "ese movimiento ya fue verificado")
	default:
		return errorEnvelope(ErrorKindProvider, "no pude verificar el movimiento")
	}
}

// ListTransactions returns the owner-scoped Transaction list matching
// filter, wrapped as a transaction envelope with no message.
func (o *Orchestrator) ListTransactions(ctx context.Context, ownerID string, filter core.Filter) ResponseEnvelope {
	txs, err := o.ledger.ListByOwner(ctx, ownerID, filter)
	if err != nil {
		return errorEnvelope(ErrorKindProvider, "no pude obtener tus movimientos")
	}
	return transactionEnvelope(txs, "")
}

// DailySummary reports the validated/provisional income/expense split for a
// single calendar date, humanized from the Ledger's precomputed buckets.
func (o *Orchestrator) DailySummary(ctx context.Context, ownerID string, date time.Time) ResponseEnvelope {
	summary, err := o.ledger.DailySummary(ctx, ownerID, date)
	if err != nil {
		return errorEnvelope(ErrorKindProvider, "no pude calcular el resumen del día")
	}

	facts := map[string]string{
		"ingresos_validados":   summary.Validated.Income.Total.StringFixed(2),
		"gastos_validados":     summary.Validated.Expense.Total.StringFixed(2),
		"ingresos_provisionales": summary.Provisional.Income.Total.StringFixed(2),
		"gastos_provisionales": summary.Provisional.Expense.Total.StringFixed(2),
	}
	message, err := o.motor.Humanize(ctx, "Resume el día financiero del usuario con estas cifras.", facts)
	if err != nil {
		message = summary.Validated.Expense.Total.StringFixed(2) + " en gastos validados hoy"
	}
	return chatEnvelope(message)
}
