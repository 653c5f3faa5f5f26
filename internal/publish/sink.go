package publish

import (
	"context"

	"github.com/jihopark/mathshorts/internal/content"
)

// Result is the fails-soft outcome of publishing one language.
type Result struct {
	LanguageTag string `json:"language_tag"`
	Succeeded   bool   `json:"succeeded"`
	ExternalRef string `json:"external_ref,omitempty"`
	ErrorDetail string `json:"error_detail,omitempty"`
}

// Sink hands an approved bundle to the external publishing collaborator, one
// language at a time. One language's failure never affects its siblings, so
// failures are reported in the result value rather than returned.
type Sink interface {
	Publish(ctx context.Context, bundle content.Bundle, languageTag string) Result
}

// Discard is the sink used when no publish target is configured. Every
// publish reports failure so the run result shows the content did not ship.
type Discard struct{}

// Publish reports that no publish target is available.
func (Discard) Publish(ctx context.Context, bundle content.Bundle, languageTag string) Result {
	return Result{
		LanguageTag: languageTag,
		ErrorDetail: "no publish target configured",
	}
}
