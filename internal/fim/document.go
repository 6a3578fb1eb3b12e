package fim

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared/constant"
)

// AnalyzeDocument sends a receipt/invoice image through the vision-capable
// Responses API and extracts DocumentFacts via structured output, grounded
// on the teacher's InterpretDomainAction image-attachment encoding
// (base64 data URL, ResponseInputImageParam).
func (m *Motor) AnalyzeDocument(ctx context.Context, documentBytes []byte, mimeType string) (DocumentFacts, error) {
	ctx, cancel := context.WithTimeout(ctx, m.deadline)
	defer cancel()

	schema := documentFactsJSONSchema()
	contentList := responses.ResponseInputMessageContentListParam{
		responses.ResponseInputContentParamOfInputText(
			"Extract the vendor name, document date, and total amount from this receipt or invoice."),
		{
			OfInputImage: &responses.ResponseInputImageParam{
				Detail:   responses.ResponseInputImageDetailAuto,
				ImageURL: param.NewOpt(dataURL(mimeType, documentBytes)),
			},
		},
	}

	var content string
	err := m.withRetry(ctx, "analyze_document", func() error {
		params := responses.ResponseNewParams{
			Model: openai.ChatModel(m.reasoningModel),
			Input: responses.ResponseNewParamsInputUnion{
				OfInputItemList: []responses.ResponseInputItemUnionParam{
					responses.ResponseInputItemParamOfMessage(contentList, responses.EasyInputMessageRoleUser),
				},
			},
			Text: responses.ResponseTextConfigParam{
				Format: responses.ResponseFormatTextConfigUnionParam{
					OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
						Type:   constant.JSONSchema("json_schema"),
						Name:   "document_facts",
						Strict: openai.Bool(true),
						Schema: schema,
					},
				},
			},
		}
		resp, err := m.client.Responses.New(ctx, params)
		if err != nil {
			return err
		}
		content = resp.OutputText()
		return nil
	})
	if err != nil {
		return DocumentFacts{}, fmt.Errorf("analyze document: %w", errProviderOrTimeout(ctx, err))
	}
	if content == "" {
		return DocumentFacts{}, fmt.Errorf("analyze document: %w", ErrProviderError)
	}

	var raw documentFactsSchema
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return DocumentFacts{}, fmt.Errorf("analyze document: failed to parse extraction: %w", err)
	}

	facts := DocumentFacts{Vendor: raw.Vendor, TotalAmount: raw.TotalAmount}
	if raw.Date != nil {
		if parsed, err := time.Parse("2006-01-02", *raw.Date); err == nil {
			facts.Date = &parsed
		}
	}
	return facts, nil
}
