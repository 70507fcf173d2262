package prompt

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestLoadPromptSetNonEmpty(t *testing.T) {
	t.Parallel()

	set := LoadPromptSet()
	for name, p := range map[string]string{
		"planner": set.Planner,
		"caller":  set.Caller,
		"email":   set.Email,
		"scout":   set.Scout,
	} {
		if p == "" {
			t.Fatalf("%s prompt is empty", name)
		}
		// Prompts are used as FString templates; literal braces would be read as variables.
		if strings.ContainsAny(p, "{}") {
			t.Fatalf("%s prompt must not contain braces", name)
		}
	}
}

type sampleOutput struct {
	Steps []struct {
		LeadID string `json:"lead_id" jsonschema:"required"`
		Action string `json:"action" jsonschema:"required,enum=EMAIL,enum=CALL"`
	} `json:"steps" jsonschema:"required"`
}

func TestOutputSchemaInlinesDefinitions(t *testing.T) {
	t.Parallel()

	raw := OutputSchema(&sampleOutput{})

	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		t.Fatalf("schema is not valid json: %v", err)
	}
	if parsed["type"] != "object" {
		t.Fatalf("unexpected schema type: %#v", parsed["type"])
	}
	if strings.Contains(raw, "$ref") {
		t.Fatalf("schema must not use references: %s", raw)
	}
	if !strings.Contains(raw, `"enum":["EMAIL","CALL"]`) {
		t.Fatalf("schema missing enum: %s", raw)
	}
}
