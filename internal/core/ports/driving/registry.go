package driving

import (
	"context"

	"github.com/custodia-labs/merchant-resolver/internal/core/domain"
)

// RegistryService exposes read access to the merchant registry.
type RegistryService interface {
	// GetMerchant returns full merchant details by ID.
	GetMerchant(ctx context.Context, id string) (*domain.Merchant, error)

	// Synonyms returns all recorded aliases for a canonical name.
	Synonyms(ctx context.Context, canonicalName string) ([]string, error)

	// ListMerchants returns every merchant in the registry, ordered by
	// canonical name.
	ListMerchants(ctx context.Context) ([]domain.Merchant, error)
}
