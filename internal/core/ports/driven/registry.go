package driven

import (
	"context"

	"github.com/custodia-labs/merchant-resolver/internal/core/domain"
)

// MerchantStore is the durable registry of canonical merchants.
//
// Correctness under concurrent resolutions rests on the store, not on
// locks in the resolver: the canonical name carries a uniqueness
// constraint, and a lost create race surfaces as
// domain.ErrDuplicateCanonicalName for the resolver to retry. Alias
// lookups are verbatim and case-sensitive.
type MerchantStore interface {
	// Create inserts a new merchant record. Returns
	// domain.ErrDuplicateCanonicalName if the canonical name is
	// already taken.
	Create(ctx context.Context, merchant domain.Merchant) error

	// Get retrieves a merchant by ID.
	Get(ctx context.Context, id string) (*domain.Merchant, error)

	// GetByCanonicalName retrieves a merchant by its exact canonical name.
	GetByCanonicalName(ctx context.Context, name string) (*domain.Merchant, error)

	// FindByExactAlias returns the merchant whose synonym set contains
	// name verbatim, or domain.ErrNotFound. Canonical names are not
	// consulted; they are never stored as their own synonyms.
	FindByExactAlias(ctx context.Context, name string) (*domain.Merchant, error)

	// AddSynonym records alias for the merchant and bumps LastUpdated.
	// Adding an alias the merchant already has is a no-op. An alias
	// already bound to a different merchant returns
	// domain.ErrAliasConflict without modifying anything.
	AddSynonym(ctx context.Context, id, alias string) error

	// UpdateEmbedding replaces the merchant's stored embedding and
	// bumps LastUpdated.
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error

	// List returns all merchants, ordered by canonical name.
	List(ctx context.Context) ([]domain.Merchant, error)

	// Close releases resources.
	Close() error
}

// VectorIndex provides nearest-neighbor search over canonical merchant
// embeddings. Only canonical embeddings are indexed; synonyms share
// their merchant's vector.
type VectorIndex interface {
	// Upsert inserts or replaces the vector for a merchant.
	Upsert(ctx context.Context, merchantID string, embedding []float32) error

	// Search returns up to k merchants ranked by descending cosine
	// similarity to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Count returns the number of indexed merchants.
	Count() int

	// Close releases resources.
	Close() error
}

// VectorHit is one nearest-neighbor result.
type VectorHit struct {
	// MerchantID identifies the matched merchant.
	MerchantID string

	// Similarity is the cosine similarity score. Nominally [-1,1],
	// in practice [0,1] for sentence-embedding models.
	Similarity float64
}
