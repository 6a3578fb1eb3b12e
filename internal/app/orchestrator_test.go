package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"numa/internal/core"
	"numa/internal/fim"

	"github.com/shopspring/decimal"
)

// fakeLedger is an in-memory core.LedgerService double, letting orchestrator
// tests assert on writes/reads without a database — grounded on the
// teacher's preference for constructor-injected interfaces that tests can
// swap for fakes (spec.md §9: "tests inject deterministic fakes").
type fakeLedger struct {
	nextID int
	rows   []core.Transaction
	failOn string // concept value that causes CreateProvisional to fail
}

func (f *fakeLedger) CreateProvisional(_ context.Context, ownerID string, amount decimal.Decimal, concept string, txType core.TransactionType, merchant, category *string, date *time.Time) (*core.Transaction, error) {
	if f.failOn != "" && concept == f.failOn {
		return nil, fmt.Errorf("simulated failure for %s", concept)
	}
	f.nextID++
	tx := core.Transaction{
		ID: f.nextID, OwnerID: ownerID, Type: txType, Amount: amount, Concept: concept,
		Merchant: merchant, Category: category, Status: core.Provisional, TransactionDate: date, CreatedAt: time.Now(),
	}
	f.rows = append(f.rows, tx)
	return &tx, nil
}

func (f *fakeLedger) VerifyWithDocument(_ context.Context, id int, ownerID string, doc core.DocumentFacts) (*core.Transaction, error) {
	return nil, fmt.Errorf("not implemented in fake")
}

func (f *fakeLedger) VerifyManual(_ context.Context, id int, ownerID string) (*core.Transaction, error) {
	for i := range f.rows {
		if f.rows[i].ID == id && f.rows[i].OwnerID == ownerID {
			f.rows[i].Status = core.VerifiedManual
			return &f.rows[i], nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeLedger) ListByOwner(_ context.Context, ownerID string, filter core.Filter) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, r := range f.rows {
		if r.OwnerID != ownerID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeLedger) SumByOwner(_ context.Context, ownerID string, filter core.Filter) (core.Aggregate, error) {
	agg := core.Aggregate{Total: decimal.Zero}
	for _, r := range f.rows {
		if r.OwnerID != ownerID {
			continue
		}
		if filter.Type != "" && r.Type != filter.Type {
			continue
		}
		agg.Total = agg.Total.Add(r.Amount)
		agg.Count++
	}
	return agg, nil
}

func (f *fakeLedger) DailySummary(_ context.Context, ownerID string, date time.Time) (core.DailySummary, error) {
	return core.DailySummary{}, nil
}

// fakeFIM is a deterministic FIM double.
type fakeFIM struct {
	transcript string
	records    []fim.IntentRecord
	transcribeErr error
	humanizeFn func(facts map[string]string) string
	classifyCalls int
}

func (f *fakeFIM) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	if f.transcribeErr != nil {
		return "", f.transcribeErr
	}
	return f.transcript, nil
}

func (f *fakeFIM) Classify(_ context.Context, _ string) ([]fim.IntentRecord, error) {
	f.classifyCalls++
	return f.records, nil
}

func (f *fakeFIM) Humanize(_ context.Context, _ string, facts map[string]string) (string, error) {
	if f.humanizeFn != nil {
		return f.humanizeFn(facts), nil
	}
	return fmt.Sprintf("total %s", facts["total"]), nil
}

func (f *fakeFIM) AnalyzeDocument(_ context.Context, _ []byte, _ string) (fim.DocumentFacts, error) {
	return fim.DocumentFacts{}, fmt.Errorf("not implemented in fake")
}

func strp(s string) *string { return &s }

func TestHandleText_SingleWriteLog_ProducesTransactionEnvelope(t *testing.T) {
	ledger := &fakeLedger{}
	motor := &fakeFIM{records: []fim.IntentRecord{
		{Intent: fim.IntentWriteLog, SubIntent: fim.SubIntentExpense, Confidence: 0.95,
			Entities: fim.Entities{Amount: strp("500"), Concept: "súper"}},
	}}
	o := NewOrchestrator(ledger, motor, FixedClock{At: time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)})

	env := o.HandleText(context.Background(), "owner-1", "Gasté 500 pesos en el súper")
	if env.Type != EnvelopeTransaction {
		t.Fatalf("expected transaction envelope, got %+v", env)
	}
	if len(env.Data) != 1 || env.Data[0].Concept != "súper" {
		t.Fatalf("expected 1 transaction for súper, got %+v", env.Data)
	}
	if !env.Data[0].Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected amount 500, got %s", env.Data[0].Amount)
	}
}

func TestHandleText_MultipleWriteLogs_SummarizesCountAndTotal(t *testing.T) {
	ledger := &fakeLedger{}
	motor := &fakeFIM{records: []fim.IntentRecord{
		{Intent: fim.IntentWriteLog, SubIntent: fim.SubIntentExpense,
			Entities: fim.Entities{Amount: strp("100"), Concept: "luz"}},
		{Intent: fim.IntentWriteLog, SubIntent: fim.SubIntentExpense,
			Entities: fim.Entities{Amount: strp("200"), Concept: "agua"}},
	}}
	o := NewOrchestrator(ledger, motor, FixedClock{At: time.Now()})

	env := o.HandleText(context.Background(), "owner-1", "Gasté 100 en luz y 200 en agua")
	if env.Type != EnvelopeTransaction || len(env.Data) != 2 {
		t.Fatalf("expected 2 transactions, got %+v", env)
	}
	if env.Message == "" {
		t.Fatal("expected a summary message")
	}
}

func TestHandleText_WriteLogBatch_AbortsOnFirstFailure(t *testing.T) {
	ledger := &fakeLedger{failOn: "agua"}
	motor := &fakeFIM{records: []fim.IntentRecord{
		{Intent: fim.IntentWriteLog, Entities: fim.Entities{Amount: strp("100"), Concept: "luz"}},
		{Intent: fim.IntentWriteLog, Entities: fim.Entities{Amount: strp("200"), Concept: "agua"}},
	}}
	o := NewOrchestrator(ledger, motor, FixedClock{At: time.Now()})

	env := o.HandleText(context.Background(), "owner-1", "Gasté 100 en luz y 200 en agua")
	if len(env.Data) != 1 {
		t.Fatalf("expected only the first write to have succeeded, got %d", len(env.Data))
	}
}

func TestHandleText_SingleWord_ReturnsClarifyChat(t *testing.T) {
	ledger := &fakeLedger{}
	motor := &fakeFIM{records: []fim.IntentRecord{
		{Intent: fim.IntentClarify, Entities: fim.Entities{Reason: "write_log requires both amount and concept"}},
	}}
	o := NewOrchestrator(ledger, motor, FixedClock{At: time.Now()})

	env := o.HandleText(context.Background(), "owner-1", "gasto")
	if env.Type != EnvelopeChat {
		t.Fatalf("expected chat envelope, got %+v", env)
	}
	if len(env.Data) != 0 {
		t.Error("expected zero Ledger writes for a CLARIFY response")
	}
}

func TestHandleText_ReadQuery_MessageReflectsPrecomputedTotal(t *testing.T) {
	ledger := &fakeLedger{}
	ctx := context.Background()
	if _, err := ledger.CreateProvisional(ctx, "owner-1", decimal.NewFromInt(500), "a", core.Expense, nil, nil, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := ledger.CreateProvisional(ctx, "owner-1", decimal.NewFromInt(300), "b", core.Expense, nil, nil, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	motor := &fakeFIM{
		records: []fim.IntentRecord{{Intent: fim.IntentReadQuery, Entities: fim.Entities{Period: strp("today")}}},
		humanizeFn: func(facts map[string]string) string {
			return fmt.Sprintf("Has gastado %s en total.", facts["total"])
		},
	}
	o := NewOrchestrator(ledger, motor, FixedClock{At: time.Now()})

	env := o.HandleText(ctx, "owner-1", "¿cuánto gasté hoy?")
	if env.Type != EnvelopeChat {
		t.Fatalf("expected chat envelope, got %+v", env)
	}
	if !contains(env.Message, "800") {
		t.Errorf("expected message to contain precomputed total 800, got %q", env.Message)
	}
}

func TestHandleVoice_UnintelligibleAudio_ReturnsErrorEnvelopeWithoutClassifying(t *testing.T) {
	ledger := &fakeLedger{}
	motor := &fakeFIM{transcribeErr: fim.ErrUnintelligibleAudio}
	o := NewOrchestrator(ledger, motor, FixedClock{At: time.Now()})

	env := o.HandleVoice(context.Background(), "owner-1", []byte{}, "es")
	if env.Type != EnvelopeError || env.Kind != ErrorKindUnintelligibleAudio {
		t.Fatalf("expected unintelligible_audio error envelope, got %+v", env)
	}
	if motor.classifyCalls != 0 {
		t.Errorf("expected Classify never to be called, got %d calls", motor.classifyCalls)
	}
}

func TestHandleText_Steer_NeverTouchesLedger(t *testing.T) {
	ledger := &fakeLedger{}
	motor := &fakeFIM{records: []fim.IntentRecord{{Intent: fim.IntentSteer, SubIntent: fim.SubIntentSocial}}}
	o := NewOrchestrator(ledger, motor, FixedClock{At: time.Now()})

	env := o.HandleText(context.Background(), "owner-1", "Hola")
	if env.Type != EnvelopeChat {
		t.Fatalf("expected chat envelope, got %+v", env)
	}
	if len(ledger.rows) != 0 {
		t.Error("expected STEER to never touch the Ledger")
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
