package records

import (
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
)

func validKind(kind contractx.CollectionKind) bool {
	switch kind {
	case contractx.CollectionLeads, contractx.CollectionPlans, contractx.CollectionCallLogs, contractx.CollectionEmailLogs:
		return true
	}
	return false
}

func validate(kind contractx.CollectionKind, ownerID string) error {
	if !validKind(kind) {
		return fmt.Errorf("%w: unknown collection %q", contractx.ErrValidation, kind)
	}
	if strings.TrimSpace(ownerID) == "" {
		return fmt.Errorf("%w: owner id is required", contractx.ErrValidation)
	}
	return nil
}

func encode(data any) ([]byte, error) {
	if raw, ok := data.(json.RawMessage); ok {
		if !json.Valid(raw) {
			return nil, fmt.Errorf("%w: record data is not valid json", contractx.ErrValidation)
		}
		return raw, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal record data: %v", contractx.ErrValidation, err)
	}
	return raw, nil
}
