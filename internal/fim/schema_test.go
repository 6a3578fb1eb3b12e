package fim

import "testing"

func TestReflectStrict_TopLevelIsClosedObject(t *testing.T) {
	schema := intentCascadeJSONSchema()
	if schema["type"] != "object" {
		t.Fatalf("expected object schema, got %v", schema["type"])
	}
	if schema["additionalProperties"] != false {
		t.Errorf("expected additionalProperties=false, got %v", schema["additionalProperties"])
	}
	required, ok := schema["required"].([]string)
	if !ok || len(required) == 0 {
		t.Fatalf("expected non-empty required list, got %v", schema["required"])
	}
}

func TestReflectStrict_NestedObjectsAreAlsoClosed(t *testing.T) {
	schema := intentCascadeJSONSchema()
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected properties map, got %T", schema["properties"])
	}
	clauses, ok := props["clauses"].(map[string]any)
	if !ok {
		t.Fatalf("expected clauses property, got %v", props["clauses"])
	}
	items, ok := clauses["items"].(map[string]any)
	if !ok {
		t.Fatalf("expected clauses.items, got %v", clauses["items"])
	}
	if items["additionalProperties"] != false {
		t.Errorf("expected clause items to be closed, got %v", items["additionalProperties"])
	}
}

func TestDocumentFactsJSONSchema_IsClosed(t *testing.T) {
	schema := documentFactsJSONSchema()
	if schema["additionalProperties"] != false {
		t.Errorf("expected additionalProperties=false, got %v", schema["additionalProperties"])
	}
}
