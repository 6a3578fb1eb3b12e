package fim

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ClassifyCategory implements core.AutoCategorizer: it strictly returns a
// label from the closed taxonomy plus a confidence in [0,1]. Grounded on
// the teacher's single structured-output call pattern (agent.go's
// InterpretEvent), here scoped to the narrow category-classification
// schema. classify_category's contract (spec.md §4.2) takes no amount — the
// ant-expense rule is instead applied where amount is actually known, at
// WRITE_LOG extraction time in classify.go's clauseToIntentRecord.
func (m *Motor) ClassifyCategory(ctx context.Context, concept, merchant string) (string, float64, error) {
	systemPrompt := fmt.Sprintf(`Classify a single expense or income line into exactly one category from
this closed list: %s. Respond with the single best-fitting label and your
confidence in [0,1]. If nothing fits well, use Compras.`,
		strings.Join(taxonomyLabels(), ", "))

	userPrompt := fmt.Sprintf("Concept: %s\nMerchant: %s", concept, merchant)

	raw, err := m.Complete(ctx, systemPrompt, userPrompt, categoryClassificationJSONSchema(), "category_classification")
	if err != nil {
		return string(CategoryDefault), 0, err
	}

	var parsed categoryClassificationSchema
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return string(CategoryDefault), 0, fmt.Errorf("classify category: %w: %v", ErrBadIntentShape, err)
	}

	category := CoerceCategory(parsed.Category)

	confidence := parsed.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return string(category), confidence, nil
}
