package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/merchant-resolver/internal/core/domain"
	"github.com/custodia-labs/merchant-resolver/internal/core/ports/driven"
	"github.com/custodia-labs/merchant-resolver/internal/core/ports/driving"
)

// Ensure RegistryService implements the interface.
var _ driving.RegistryService = (*RegistryService)(nil)

// RegistryService provides read access to the merchant registry for
// callers outside the resolution pipeline (CLI, reporting).
type RegistryService struct {
	store driven.MerchantStore
}

// NewRegistryService creates a new registry service.
func NewRegistryService(store driven.MerchantStore) *RegistryService {
	return &RegistryService{store: store}
}

// GetMerchant returns full merchant details by ID.
func (s *RegistryService) GetMerchant(ctx context.Context, id string) (*domain.Merchant, error) {
	merchant, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get merchant %s: %w", id, err)
	}
	return merchant, nil
}

// Synonyms returns all recorded aliases for a canonical name.
func (s *RegistryService) Synonyms(ctx context.Context, canonicalName string) ([]string, error) {
	merchant, err := s.store.GetByCanonicalName(ctx, canonicalName)
	if err != nil {
		return nil, fmt.Errorf("get merchant %q: %w", canonicalName, err)
	}
	return merchant.Synonyms, nil
}

// ListMerchants returns every merchant in the registry.
func (s *RegistryService) ListMerchants(ctx context.Context) ([]domain.Merchant, error) {
	merchants, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list merchants: %w", err)
	}
	return merchants, nil
}
