package driven

import (
	"context"

	"github.com/custodia-labs/merchant-resolver/internal/core/domain"
)

// MerchantClassifier judges ambiguous merchant names that vector
// similarity could not settle: is the observed name a variant of the
// candidate, or a genuinely new merchant?
//
// The call is network-bound and non-deterministic. Implementations
// apply their own timeout; a timed-out or unparseable call returns
// domain.ErrClassificationFailed and the resolver surfaces it without
// guessing either way, since defaulting to "new merchant" or "alias"
// both risk corrupting the registry.
type MerchantClassifier interface {
	// Verify asks whether observedName refers to the candidate
	// merchant. candidate may be nil when vector search produced no
	// usable match; languageHints are forwarded to the prompt as
	// context only.
	Verify(ctx context.Context, observedName string, candidate *domain.Merchant, languageHints []string) (*domain.Verdict, error)
}
