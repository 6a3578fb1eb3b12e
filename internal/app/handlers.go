package app

import (
	"context"
	"fmt"
	"time"

	"numa/internal/core"
	"numa/internal/fim"

	"github.com/shopspring/decimal"
)

func newZeroDecimal() decimal.Decimal { return decimal.NewFromInt(0) }

// createFromRecord maps a WRITE_LOG IntentRecord's entities onto
// Ledger.CreateProvisional, per spec.md §4.3's WRITE_LOG handler row.
func (o *Orchestrator) createFromRecord(ctx context.Context, ownerID string, r fim.IntentRecord) (*core.Transaction, error) {
	if r.Entities.Amount == nil || r.Entities.Concept == "" {
		return nil, fmt.Errorf("write_log record missing amount or concept")
	}
	amount, err := decimal.NewFromString(*r.Entities.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", *r.Entities.Amount, err)
	}

	txType := subIntentToTransactionType(r.SubIntent)

	var category *string
	if r.Entities.Category != nil {
		category = r.Entities.Category
	}
	merchant := r.Entities.Merchant

	var date *time.Time
	if r.Entities.Date != nil {
		if parsed, err := time.Parse("2006-01-02", *r.Entities.Date); err == nil {
			date = &parsed
		}
	}
	if date == nil {
		now := o.clock.Now()
		date = &now
	}

	return o.ledger.CreateProvisional(ctx, ownerID, amount, r.Entities.Concept, txType, merchant, category, date)
}

func subIntentToTransactionType(sub fim.SubIntent) core.TransactionType {
	switch sub {
	case fim.SubIntentIncome:
		return core.Income
	case fim.SubIntentDebt:
		return core.Debt
	default:
		return core.Expense
	}
}

// summarizeBatch builds the "N registered, total X" message spec.md §4.3
// requires for multi-record WRITE_LOG responses.
func summarizeBatch(created []core.Transaction, total decimal.Decimal) string {
	if len(created) == 0 {
		return ""
	}
	return fmt.Sprintf("%d registrados, total %s", len(created), total.StringFixed(2))
}

// handleReadQuery runs the deterministic aggregation on the Ledger and
// humanizes the precomputed figure — the reasoning model never invents a
// number (spec.md §4.3 zero-hallucination rule).
func (o *Orchestrator) handleReadQuery(ctx context.Context, ownerID string, r fim.IntentRecord) ResponseEnvelope {
	filter := core.Filter{}
	if r.Entities.Period != nil {
		filter.Period = &core.Period{Kind: core.PeriodKind(*r.Entities.Period), From: o.clock.Now(), To: o.clock.Now()}
	} else {
		filter.Period = &core.Period{Kind: core.PeriodToday, From: o.clock.Now()}
	}
	if r.Entities.Category != nil {
		filter.Category = *r.Entities.Category
	}

	agg, err := o.ledger.SumByOwner(ctx, ownerID, filter)
	if err != nil {
		return errorEnvelope(ErrorKindProvider, "no pude calcular el total solicitado")
	}

	facts := map[string]string{
		"total":              agg.Total.StringFixed(2),
		"cantidad_de_movimientos": fmt.Sprintf("%d", agg.Count),
	}
	message, err := o.motor.Humanize(ctx, "Describe este resultado de una consulta de gastos/ingresos al usuario.", facts)
	if err != nil {
		message = fmt.Sprintf("Total: %s (%d movimientos)", agg.Total.StringFixed(2), agg.Count)
	}
	return chatEnvelope(message)
}

// handleConfirmUpdate locates the most recent provisional Transaction for
// the owner and, when the record names a merchant, verifies it through
// VerifyManual. The record's merchant and category are not written to the
// Transaction, and its amount is never changed.
func (o *Orchestrator) handleConfirmUpdate(ctx context.Context, ownerID string, r fim.IntentRecord) ResponseEnvelope {
	pending, err := o.ledger.ListByOwner(ctx, ownerID, core.Filter{Status: core.Provisional})
	if err != nil || len(pending) == 0 {
		return errorEnvelope(ErrorKindValidation, "no encontré un movimiento pendiente para actualizar")
	}

	target := pending[0]
	if r.Entities.Merchant == nil {
		return errorEnvelope(ErrorKindValidation, "necesito el nombre del comercio para confirmar este movimiento")
	}

	verified, err := o.ledger.VerifyManual(ctx, target.ID, ownerID)
	if err != nil {
		return errorEnvelope(ErrorKindValidation, "no pude confirmar el movimiento")
	}
	return transactionEnvelope([]core.Transaction{*verified}, "movimiento confirmado")
}

// handleAdvicePlan gathers precomputed Ledger context (this month's expense
// total and movement count; no per-category breakdown) and passes only those
// figures to the Humanize capability — no number in the response may
// originate from the reasoning model alone.
func (o *Orchestrator) handleAdvicePlan(ctx context.Context, ownerID string, r fim.IntentRecord) ResponseEnvelope {
	period := &core.Period{Kind: core.PeriodThisMonth, From: o.clock.Now()}
	agg, err := o.ledger.SumByOwner(ctx, ownerID, core.Filter{Period: period, Type: core.Expense})
	if err != nil {
		return errorEnvelope(ErrorKindProvider, "no pude preparar un análisis en este momento")
	}

	facts := map[string]string{
		"gasto_total_del_mes":    agg.Total.StringFixed(2),
		"cantidad_de_movimientos": fmt.Sprintf("%d", agg.Count),
	}
	message, err := o.motor.Humanize(ctx, "Da un consejo financiero breve basado únicamente en estas cifras.", facts)
	if err != nil {
		message = fmt.Sprintf("Este mes has gastado %s en %d movimientos.", agg.Total.StringFixed(2), agg.Count)
	}
	return chatEnvelope(message)
}

// handleSteer produces a conversational redirect with no Ledger touch.
func (o *Orchestrator) handleSteer(r fim.IntentRecord) ResponseEnvelope {
	if r.SubIntent == fim.SubIntentMeta {
		return chatEnvelope("Puedo registrar tus gastos e ingresos por voz o texto, y responder preguntas sobre tus finanzas.")
	}
	return chatEnvelope("¡Hola! Dime qué gastaste o qué quieres consultar.")
}

// handleClarify produces a question asking for the missing concept/amount,
// with no Ledger touch. CLARIFY is always a chat-type response — the
// error-type "unintelligible_audio" kind is reserved for HandleVoice's own
// transcription failure, not for text that merely lacked enough signal.
func (o *Orchestrator) handleClarify(r fim.IntentRecord) ResponseEnvelope {
	if r.Entities.Reason == "unintelligible" {
		return chatEnvelope("no logré entender eso, ¿puedes darme más detalles?")
	}
	return chatEnvelope("me falta el monto o el concepto, ¿me das más detalles?")
}
