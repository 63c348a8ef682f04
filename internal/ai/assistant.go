package ai

import (
	"context"

	"github.com/spigell/havewant/internal/domain"
)

// FallbackRationale is stored when the text service cannot produce a rationale.
const FallbackRationale = "AI analysis temporarily unavailable"

// Rationale is the prose explanation and deal structures for a match.
type Rationale struct {
	Text       string
	Structures domain.Structures
}

// Fallback returns the degraded rationale used when the text service fails.
func Fallback() *Rationale {
	return &Rationale{Text: FallbackRationale, Structures: domain.EmptyStructures()}
}

// RationaleGenerator explains why a HAVE and a WANT fit together. Implementations
// never fail: any upstream problem degrades to Fallback or empty structures.
type RationaleGenerator interface {
	Generate(ctx context.Context, haveSummary, wantSummary string) *Rationale
}

// Completer sends a single prompt to a generative-text backend.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
	Provider() string
	Model() string
}

// Disabled is used when no text service is configured.
type Disabled struct{}

func (Disabled) Generate(context.Context, string, string) *Rationale {
	return Fallback()
}
