// Package memory provides in-memory adapter implementations, used as
// test doubles and for ephemeral runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/merchant-resolver/internal/core/domain"
	"github.com/custodia-labs/merchant-resolver/internal/core/ports/driven"
)

// Ensure MerchantStore implements the interface.
var _ driven.MerchantStore = (*MerchantStore)(nil)

// MerchantStore is an in-memory implementation of driven.MerchantStore.
// It enforces the same canonical-name uniqueness as the SQLite store,
// so concurrent-create race tests behave identically.
type MerchantStore struct {
	mu        sync.RWMutex
	merchants map[string]domain.Merchant // by ID
	byName    map[string]string          // canonical name -> ID
}

// NewMerchantStore creates a new in-memory merchant store.
func NewMerchantStore() *MerchantStore {
	return &MerchantStore{
		merchants: make(map[string]domain.Merchant),
		byName:    make(map[string]string),
	}
}

// Create inserts a new merchant record.
func (s *MerchantStore) Create(_ context.Context, merchant domain.Merchant) error {
	if merchant.ID == "" || merchant.CanonicalName == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byName[merchant.CanonicalName]; taken {
		return fmt.Errorf("canonical name %q: %w", merchant.CanonicalName, domain.ErrDuplicateCanonicalName)
	}

	s.merchants[merchant.ID] = cloneMerchant(merchant)
	s.byName[merchant.CanonicalName] = merchant.ID
	return nil
}

// Get retrieves a merchant by ID.
func (s *MerchantStore) Get(_ context.Context, id string) (*domain.Merchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.merchants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneMerchant(m)
	return &out, nil
}

// GetByCanonicalName retrieves a merchant by its exact canonical name.
func (s *MerchantStore) GetByCanonicalName(_ context.Context, name string) (*domain.Merchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneMerchant(s.merchants[id])
	return &out, nil
}

// FindByExactAlias returns the merchant whose synonym set contains name.
func (s *MerchantStore) FindByExactAlias(_ context.Context, name string) (*domain.Merchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owners []string
	for id, m := range s.merchants {
		if m.HasSynonym(name) {
			owners = append(owners, id)
		}
	}

	switch len(owners) {
	case 0:
		return nil, domain.ErrNotFound
	case 1:
		out := cloneMerchant(s.merchants[owners[0]])
		return &out, nil
	default:
		return nil, fmt.Errorf("alias %q bound to %d merchants: %w",
			name, len(owners), domain.ErrAliasConflict)
	}
}

// AddSynonym records alias for the merchant, idempotently.
func (s *MerchantStore) AddSynonym(_ context.Context, id, alias string) error {
	if alias == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.merchants[id]
	if !ok {
		return domain.ErrNotFound
	}

	if alias == m.CanonicalName || m.HasSynonym(alias) {
		return nil
	}

	for otherID, other := range s.merchants {
		if otherID != id && other.HasSynonym(alias) {
			return fmt.Errorf("alias %q already belongs to merchant %s: %w",
				alias, otherID, domain.ErrAliasConflict)
		}
	}

	m.Synonyms = append(append([]string(nil), m.Synonyms...), alias)
	m.LastUpdated = time.Now().UTC()
	s.merchants[id] = m
	return nil
}

// UpdateEmbedding replaces the merchant's stored embedding.
func (s *MerchantStore) UpdateEmbedding(_ context.Context, id string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.merchants[id]
	if !ok {
		return domain.ErrNotFound
	}

	m.Embedding = append([]float32(nil), embedding...)
	m.LastUpdated = time.Now().UTC()
	s.merchants[id] = m
	return nil
}

// List returns all merchants, ordered by canonical name.
func (s *MerchantStore) List(_ context.Context) ([]domain.Merchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Merchant, 0, len(s.merchants))
	for _, m := range s.merchants {
		out = append(out, cloneMerchant(m))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CanonicalName < out[j].CanonicalName
	})
	return out, nil
}

// Close releases resources.
func (s *MerchantStore) Close() error {
	return nil
}

// cloneMerchant copies a merchant so callers cannot mutate store state.
func cloneMerchant(m domain.Merchant) domain.Merchant {
	m.Synonyms = append([]string(nil), m.Synonyms...)
	m.Embedding = append([]float32(nil), m.Embedding...)
	m.LanguageHints = append([]string(nil), m.LanguageHints...)
	return m
}
