package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/planner.txt
	plannerRaw string

	//go:embed template/caller.txt
	callerRaw string

	//go:embed template/email.txt
	emailRaw string

	//go:embed template/scout.txt
	scoutRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Planner string
	Caller  string
	Email   string
	Scout   string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Planner: strings.TrimSpace(plannerRaw),
		Caller:  strings.TrimSpace(callerRaw),
		Email:   strings.TrimSpace(emailRaw),
		Scout:   strings.TrimSpace(scoutRaw),
	}
}
