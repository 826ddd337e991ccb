package driving

import (
	"context"

	"github.com/custodia-labs/merchant-resolver/internal/core/domain"
)

// ResolverService is the public entry point of the resolution core.
// One call resolves one observed merchant name to exactly one terminal
// outcome: a merge into an existing merchant or a newly minted one.
type ResolverService interface {
	// ClassifyMerchant resolves an observed merchant name against the
	// registry, mutating it (new record or new synonym) as decided by
	// the resolution policy. On any returned error the registry is
	// unchanged.
	ClassifyMerchant(ctx context.Context, req domain.ResolveRequest) (*domain.Resolution, error)
}
