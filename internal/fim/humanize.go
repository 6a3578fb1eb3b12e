package fim

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
)

// Humanize repackages precomputed Ledger figures into a user-facing
// sentence. It never lets the reasoning model invent numbers: facts is
// rendered verbatim into the prompt as the only permitted numerals, per
// spec.md §4.3's zero-hallucination rule. This call uses free-text output,
// not a JSON schema — there is nothing to validate, only to paraphrase.
func (m *Motor) Humanize(ctx context.Context, instruction string, facts map[string]string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.deadline)
	defer cancel()

	prompt := fmt.Sprintf(`%s

You may use ONLY the following precomputed figures — do not calculate,
estimate, or invent any other number:
%s

Respond with one short, natural sentence in Spanish.`, instruction, renderFacts(facts))

	var text string
	err := m.withRetry(ctx, "humanize", func() error {
		params := responses.ResponseNewParams{
			Model: openai.ChatModel(m.reasoningModel),
			Input: responses.ResponseNewParamsInputUnion{
				OfString: openai.String(prompt),
			},
		}
		resp, err := m.client.Responses.New(ctx, params)
		if err != nil {
			return err
		}
		text = resp.OutputText()
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("humanize: %w", errProviderOrTimeout(ctx, err))
	}
	if text == "" {
		return "", fmt.Errorf("humanize: %w", ErrProviderError)
	}
	return text, nil
}

func renderFacts(facts map[string]string) string {
	out := ""
	for k, v := range facts {
		out += fmt.Sprintf("- %s: %s\n", k, v)
	}
	return out
}
