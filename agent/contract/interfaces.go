package contract

import "context"

// LeadSource is one independent lead provider.
type LeadSource interface {
	ID() string
	Search(ctx context.Context, profile string) ([]RawLead, error)
}

// Enricher looks up supplementary attributes for a single lead.
type Enricher interface {
	Enrich(ctx context.Context, lead Lead) (*Enrichment, error)
}

type OutreachPlanner interface {
	Plan(ctx context.Context, campaignID, solutionDescription string, leads []Lead) (OutreachPlan, error)
}

// VoiceAgent generates the next agent utterance on a call.
type VoiceAgent interface {
	Reply(ctx context.Context, req VoiceTurnRequest) (VoiceReply, error)
}

// EmailAnalyst drafts a reply over a whole email thread.
type EmailAnalyst interface {
	Analyze(ctx context.Context, req EmailAnalysisRequest) (EmailAnalysisResponse, error)
}

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// LeadScout proposes leads from model knowledge; used as a fallback source.
type LeadScout interface {
	Scout(ctx context.Context, profile string) ([]RawLead, error)
}

// RecordStore is the owner-scoped document store.
type RecordStore interface {
	CreateRecord(ctx context.Context, kind CollectionKind, ownerID string, data any) (Record, error)
	QueryRecords(ctx context.Context, kind CollectionKind, ownerID string) ([]Record, error)
}

// MailDispatcher hands an approved reply to the mail transport.
type MailDispatcher interface {
	Dispatch(ctx context.Context, sessionID, to, body string) error
}

type Registry interface {
	Planner() OutreachPlanner
	Caller() VoiceAgent
	Email() EmailAnalyst
	Scout() LeadScout
}
