package prompt

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// OutputSchema renders the JSON schema of v for inclusion in a prompt.
func OutputSchema(v any) string {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	raw, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		return "{}"
	}
	return string(raw)
}
