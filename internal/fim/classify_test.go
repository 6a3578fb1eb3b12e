package fim

import (
	"context"
	"testing"
)

// TestClassify_Level1_Unintelligible covers the Validity gate: inputs
// below the intelligibility floor never reach Level 2 or 3 and always
// terminate as CLARIFY without a network call (*Motor is nil-safe for this
// path since it returns before touching m.client).
func TestClassify_Level1_Unintelligible(t *testing.T) {
	var m *Motor
	records, err := m.Classify(context.Background(), "  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Intent != IntentClarify {
		t.Fatalf("expected single CLARIFY record, got %+v", records)
	}
	if records[0].Entities.Reason != "unintelligible" {
		t.Errorf("expected unintelligible reason, got %q", records[0].Entities.Reason)
	}
}

func TestClassify_Level1_OnomatopoeiaIsUnintelligible(t *testing.T) {
	var m *Motor
	for _, in := range []string{"eh", "uhh", "mmm", "ah"} {
		records, err := m.Classify(context.Background(), in)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", in, err)
		}
		if records[0].Intent != IntentClarify {
			t.Errorf("expected CLARIFY for %q, got %s", in, records[0].Intent)
		}
	}
}

func TestClassify_Level2_SocialGreetingSteersWithoutLedgerTouch(t *testing.T) {
	var m *Motor
	records, err := m.Classify(context.Background(), "Hola, buenos días")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Intent != IntentSteer || records[0].SubIntent != SubIntentSocial {
		t.Fatalf("expected STEER/SOCIAL, got %+v", records)
	}
}

func TestClassify_Level2_MetaQuestionSteers(t *testing.T) {
	var m *Motor
	records, err := m.Classify(context.Background(), "¿Qué puedes hacer?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Intent != IntentSteer || records[0].SubIntent != SubIntentMeta {
		t.Fatalf("expected STEER/META, got %+v", records)
	}
}

func TestClauseToIntentRecord_WriteLogMissingAmountBecomesClarify(t *testing.T) {
	c := intentClauseSchema{
		Intent:     string(IntentWriteLog),
		Entities:   intentEntitiesSchema{Concept: "taxi"},
		Confidence: 0.9,
	}
	record, err := clauseToIntentRecord(c, AntExpenseThreshold)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Intent != IntentClarify {
		t.Errorf("expected CLARIFY when amount is missing, got %s", record.Intent)
	}
}

func TestClauseToIntentRecord_WriteLogMissingConceptBecomesClarify(t *testing.T) {
	amount := "150.00"
	c := intentClauseSchema{
		Intent:     string(IntentWriteLog),
		Entities:   intentEntitiesSchema{Amount: &amount},
		Confidence: 0.9,
	}
	record, err := clauseToIntentRecord(c, AntExpenseThreshold)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Intent != IntentClarify {
		t.Errorf("expected CLARIFY when concept is missing, got %s", record.Intent)
	}
}

func TestClauseToIntentRecord_ValidWriteLogKeepsIntent(t *testing.T) {
	amount := "75.50"
	sub := string(SubIntentExpense)
	c := intentClauseSchema{
		Intent:     string(IntentWriteLog),
		SubIntent:  &sub,
		Entities:   intentEntitiesSchema{Amount: &amount, Concept: "coffee"},
		Confidence: 0.95,
	}
	record, err := clauseToIntentRecord(c, AntExpenseThreshold)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Intent != IntentWriteLog || record.SubIntent != SubIntentExpense {
		t.Errorf("expected WRITE_LOG/EXPENSE to survive, got %+v", record)
	}
}

func TestClauseToIntentRecord_UnknownIntentIsRejected(t *testing.T) {
	c := intentClauseSchema{Intent: "DANCE", Confidence: 0.5}
	_, err := clauseToIntentRecord(c, AntExpenseThreshold)
	if err == nil {
		t.Fatal("expected error for unknown intent discriminator")
	}
}

func TestClauseToIntentRecord_UnknownCategoryCoercedToDefault(t *testing.T) {
	label := "Yates"
	c := intentClauseSchema{
		Intent:     string(IntentReadQuery),
		Entities:   intentEntitiesSchema{Category: &label},
		Confidence: 0.8,
	}
	record, err := clauseToIntentRecord(c, AntExpenseThreshold)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Entities.Category == nil || *record.Entities.Category != string(CategoryDefault) {
		t.Errorf("expected unknown category coerced to %s, got %v", CategoryDefault, record.Entities.Category)
	}
}

func TestClauseToIntentRecord_AntExpenseRuleAppliedAtExtractionTime(t *testing.T) {
	label := "Despensa"
	amount := "150"
	merchant := "Cafe Luna"
	c := intentClauseSchema{
		Intent: string(IntentWriteLog),
		SubIntent: strPtr(string(SubIntentExpense)),
		Entities: intentEntitiesSchema{
			Amount: &amount, Concept: "snack", Category: &label, Merchant: &merchant,
		},
		Confidence: 0.9,
	}
	record, err := clauseToIntentRecord(c, AntExpenseThreshold)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Entities.Category == nil || *record.Entities.Category != string(CategoryCafeSnacks) {
		t.Errorf("expected ant-expense reassignment to Café/Snacks, got %v", record.Entities.Category)
	}
}

func strPtr(s string) *string { return &s }
