package contract

import (
	"errors"
	"fmt"
)

var (
	ErrModelInvoke           = errors.New("model invoke failed")
	ErrSchemaViolation       = errors.New("model response violates schema")
	ErrPromptMissing         = errors.New("required prompt is missing")
	ErrValidation            = errors.New("validation failed")
	ErrPlanning              = errors.New("outreach planning failed")
	ErrGenerationUnavailable = errors.New("generation unavailable")
	ErrSynthesis             = errors.New("speech synthesis failed")
	ErrSourceMalformed       = errors.New("lead source returned malformed data")
	ErrSessionTerminal       = errors.New("session already ended")
	ErrSessionCancelled      = errors.New("session cancelled")
	ErrEscalationNotFound    = errors.New("escalation not found")
	ErrRecordNotFound        = errors.New("record not found")
)

// SourceError reports one lead source that contributed no leads to a discovery call.
type SourceError struct {
	ProviderID string
	Cause      error
}

func (e *SourceError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause == nil {
		return fmt.Sprintf("source %s failed", e.ProviderID)
	}
	return fmt.Sprintf("source %s failed: %v", e.ProviderID, e.Cause)
}

func (e *SourceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// EnrichmentError reports a lead whose enrichment was skipped or partial.
type EnrichmentError struct {
	LeadID string
	Cause  error
}

func (e *EnrichmentError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("enrich lead %s: %v", e.LeadID, e.Cause)
}

func (e *EnrichmentError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// SynthesisError reports an agent turn that was appended without audio.
type SynthesisError struct {
	TurnIndex int
	Cause     error
}

func (e *SynthesisError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%v: turn %d: %v", ErrSynthesis, e.TurnIndex, e.Cause)
}

func (e *SynthesisError) Unwrap() []error {
	if e == nil {
		return nil
	}
	return []error{ErrSynthesis, e.Cause}
}

// TransientError marks an error as retryable.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
