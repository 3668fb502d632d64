package generation

import (
	"fmt"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
)

type FailureKind string

const (
	// FailureBackend: the backend call itself failed.
	FailureBackend FailureKind = "backend"
	// FailureParse: the backend answered but the output broke the contract.
	FailureParse FailureKind = "parse"
)

// Draft is a successfully generated section.
type Draft struct {
	Content            string
	LineReferences     []domain.LineReference
	ConfidenceScore    float64
	PreferencesApplied bool
}

// Failure describes one failed attempt.
type Failure struct {
	Kind    FailureKind
	Message string
	Trace   string
}

func (f Failure) Error() string { return fmt.Sprintf("%s failure: %s", f.Kind, f.Message) }

// Sentinel renders the failure in the legacy "Error: ..." content form.
func (f Failure) Sentinel() string {
	switch f.Kind {
	case FailureParse:
		return "Error: Failed to parse LLM response: " + f.Message
	default:
		return "Error: Failed to generate section: " + f.Message
	}
}

// Outcome holds exactly one of Draft or Failure.
type Outcome struct {
	Draft   *Draft
	Failure *Failure
}

func Ok(d Draft) Outcome { return Outcome{Draft: &d} }

func Fail(kind FailureKind, message, trace string) Outcome {
	return Outcome{Failure: &Failure{Kind: kind, Message: message, Trace: trace}}
}

func (o Outcome) OK() bool { return o.Draft != nil && o.Failure == nil }
