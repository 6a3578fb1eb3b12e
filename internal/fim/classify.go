package fim

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Intent is the closed set of terminal classifications a clause can
// resolve to.
type Intent string

const (
	IntentReadQuery      Intent = "READ_QUERY"
	IntentWriteLog       Intent = "WRITE_LOG"
	IntentClarify        Intent = "CLARIFY"
	IntentSteer          Intent = "STEER"
	IntentConfirmUpdate  Intent = "CONFIRM_UPDATE"
	IntentAdvice         Intent = "ADVICE"
	IntentPlan           Intent = "PLAN"
)

// SubIntent further qualifies WRITE_LOG and STEER intents.
type SubIntent string

const (
	SubIntentExpense SubIntent = "EXPENSE"
	SubIntentIncome  SubIntent = "INCOME"
	SubIntentDebt    SubIntent = "DEBT"
	SubIntentMeta    SubIntent = "META"
	SubIntentSocial  SubIntent = "SOCIAL"
	SubIntentNone    SubIntent = ""
)

// Entities is the set of recognized extraction keys per spec.md §3.3.
type Entities struct {
	Amount   *string
	Concept  string
	Category *string
	Merchant *string
	Period   *string
	Date     *string
	Reason   string // populated for CLARIFY: why clarification is needed
}

// IntentRecord is one resolved clause of an utterance. Classify always
// returns a non-empty slice of these — multi-clause utterances never
// collapse to one record (spec.md §9 Open Question).
type IntentRecord struct {
	Intent     Intent
	SubIntent  SubIntent
	Entities   Entities
	Confidence float64
}

// minIntelligibleRunes is the Level-1 validity floor: inputs shorter than
// this (after trimming) cannot carry enough signal to classify.
const minIntelligibleRunes = 2

var onomatopoeiaPattern = regexp.MustCompile(`^(?i)(eh+|uh+|hm+|ah+|mm+)[.\s]*$`)

// socialKeywords and metaKeywords are the Level-2 closed keyword gates.
// They run before any reasoning-model call, per spec.md §4.2's "Only
// FINANCIERO touches the Ledger" rule — non-financial input never reaches
// Level 3.
var socialKeywords = []string{
	"hola", "buenos días", "buenas tardes", "buenas noches", "gracias",
	"cómo estás", "qué tal", "adiós", "hasta luego",
}

var metaKeywords = []string{
	"ayuda", "qué puedes hacer", "cómo funciona", "quién eres", "help",
}

// Classify runs the deterministic 3-level cascade (Validity → Domain →
// Financial Resolution) against normalized, transcribed text. Levels 1 and
// 2 never return an error; Level 3 returns an error when the Reasoner call
// fails or its reply falls outside the closed discriminator set.
func (m *Motor) Classify(ctx context.Context, text string) ([]IntentRecord, error) {
	trimmed := strings.TrimSpace(text)

	// Level 1 — Validity.
	if len([]rune(trimmed)) < minIntelligibleRunes || onomatopoeiaPattern.MatchString(trimmed) {
		return []IntentRecord{{
			Intent:   IntentClarify,
			Entities: Entities{Reason: "unintelligible"},
		}}, nil
	}

	lower := strings.ToLower(trimmed)

	// Level 2 — Domain.
	for _, kw := range socialKeywords {
		if strings.Contains(lower, kw) {
			return []IntentRecord{{Intent: IntentSteer, SubIntent: SubIntentSocial, Confidence: 1}}, nil
		}
	}
	for _, kw := range metaKeywords {
		if strings.Contains(lower, kw) {
			return []IntentRecord{{Intent: IntentSteer, SubIntent: SubIntentMeta, Confidence: 1}}, nil
		}
	}

	// Level 3 — Financial Resolution: delegate clause extraction to the
	// Reasoner, always requesting the list form.
	return m.resolveFinancial(ctx, trimmed)
}

// resolveFinancial issues one structured-output call against
// intentCascadeJSONSchema and converts the closed discriminator set into
// IntentRecords, validating categories and rejecting unknown shapes
// outright (ErrBadIntentShape) rather than guessing.
func (m *Motor) resolveFinancial(ctx context.Context, text string) ([]IntentRecord, error) {
	systemPrompt := fmt.Sprintf(`You resolve a financial utterance in Spanish or English into one or more
clauses. Each clause must have intent one of READ_QUERY, WRITE_LOG, CLARIFY.

WRITE_LOG requires both an identifiable concept AND an explicit numeric
amount; set sub_intent to EXPENSE, INCOME, or DEBT. If the user named a
movement type without a concept or without an amount, emit CLARIFY instead
— do not guess the missing value.

READ_QUERY is for questions about past or current state; extract period
(today, this_week, this_month, or range) and, if named, category.

category, when present, must be exactly one of: %s. If you are unsure,
leave it null — do not invent a label outside this list.

Always return at least one clause, one per distinct financial statement in
the utterance. Today's date: %s.`,
		strings.Join(taxonomyLabels(), ", "), time.Now().Format("2006-01-02"))

	raw, err := m.Complete(ctx, systemPrompt, text, intentCascadeJSONSchema(), "intent_cascade")
	if err != nil {
		return nil, err
	}

	var parsed intentCascadeSchema
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("resolve financial: %w: %v", ErrBadIntentShape, err)
	}
	if len(parsed.Clauses) == 0 {
		return nil, fmt.Errorf("resolve financial: %w: empty clause list", ErrBadIntentShape)
	}

	records := make([]IntentRecord, 0, len(parsed.Clauses))
	for _, c := range parsed.Clauses {
		record, err := clauseToIntentRecord(c, m.antThreshold)
		if err != nil {
			return nil, err
		}
		// A WRITE_LOG category below the confidence floor is dropped so the
		// Transaction stays uncategorized until verification.
		if record.Intent == IntentWriteLog && record.Confidence < m.confidenceFloor {
			record.Entities.Category = nil
		}
		records = append(records, record)
	}
	return records, nil
}

func clauseToIntentRecord(c intentClauseSchema, antThreshold float64) (IntentRecord, error) {
	var intent Intent
	switch c.Intent {
	case string(IntentReadQuery):
		intent = IntentReadQuery
	case string(IntentWriteLog):
		intent = IntentWriteLog
	case string(IntentClarify):
		intent = IntentClarify
	default:
		return IntentRecord{}, fmt.Errorf("resolve financial: %w: unknown intent %q", ErrBadIntentShape, c.Intent)
	}

	var sub SubIntent
	if c.SubIntent != nil {
		switch SubIntent(*c.SubIntent) {
		case SubIntentExpense, SubIntentIncome, SubIntentDebt:
			sub = SubIntent(*c.SubIntent)
		default:
			return IntentRecord{}, fmt.Errorf("resolve financial: %w: unknown sub_intent %q", ErrBadIntentShape, *c.SubIntent)
		}
	}

	entities := Entities{
		Amount:   c.Entities.Amount,
		Concept:  c.Entities.Concept,
		Merchant: c.Entities.Merchant,
		Period:   c.Entities.Period,
		Date:     c.Entities.Date,
	}
	if c.Entities.Category != nil {
		category := CoerceCategory(*c.Entities.Category)
		if entities.Amount != nil && entities.Merchant != nil {
			if amount, err := strconv.ParseFloat(*entities.Amount, 64); err == nil {
				category = ApplyAntExpenseRule(category, amount, *entities.Merchant, antThreshold)
			}
		}
		label := string(category)
		entities.Category = &label
	}

	if intent == IntentWriteLog && (entities.Amount == nil || entities.Concept == "") {
		return IntentRecord{
			Intent:   IntentClarify,
			Entities: Entities{Reason: "write_log requires both amount and concept"},
		}, nil
	}

	return IntentRecord{
		Intent:     intent,
		SubIntent:  sub,
		Entities:   entities,
		Confidence: c.Confidence,
	}, nil
}

func taxonomyLabels() []string {
	labels := make([]string, 0, len(closedTaxonomy))
	for c := range closedTaxonomy {
		labels = append(labels, string(c))
	}
	return labels
}
