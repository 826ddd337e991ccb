// Package vecgo implements the vector index port on top of the embedded
// vecgo store. The index is held in memory and rebuilt from the merchant
// registry at startup; SQLite remains the source of truth for embeddings.
package vecgo

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/vecgo"

	"github.com/custodia-labs/merchant-resolver/internal/core/domain"
	"github.com/custodia-labs/merchant-resolver/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index wraps a flat cosine vecgo store keyed by merchant ID.
type Index struct {
	mu         sync.RWMutex
	db         *vecgo.Vecgo[string]
	ids        map[string]uint64 // merchant ID -> vecgo internal ID
	dimensions int
}

// NewIndex creates an empty index for vectors of the given dimensionality.
// A flat index is exact and fast enough for registry-sized corpora; HNSW
// buys nothing below a few hundred thousand merchants.
func NewIndex(dimensions int) (*Index, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("vector index dimensions must be positive, got %d: %w",
			dimensions, domain.ErrInvalidInput)
	}

	db, err := vecgo.Flat[string](dimensions).Cosine().Build()
	if err != nil {
		return nil, fmt.Errorf("building vector index: %w", err)
	}

	return &Index{
		db:         db,
		ids:        make(map[string]uint64),
		dimensions: dimensions,
	}, nil
}

// Upsert inserts or replaces the vector for a merchant.
func (i *Index) Upsert(ctx context.Context, merchantID string, vector []float32) error {
	if merchantID == "" {
		return domain.ErrInvalidInput
	}
	if len(vector) != i.dimensions {
		return fmt.Errorf("vector has %d dimensions, index expects %d: %w",
			len(vector), i.dimensions, domain.ErrDimensionMismatch)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	item := vecgo.VectorWithData[string]{
		Vector: vector,
		Data:   merchantID,
	}

	if internalID, ok := i.ids[merchantID]; ok {
		if err := i.db.Update(ctx, internalID, item); err != nil {
			return fmt.Errorf("updating vector for merchant %s: %w", merchantID, err)
		}
		return nil
	}

	internalID, err := i.db.Insert(ctx, item)
	if err != nil {
		return fmt.Errorf("inserting vector for merchant %s: %w", merchantID, err)
	}
	i.ids[merchantID] = internalID
	return nil
}

// Search returns up to k merchants ranked by cosine similarity to the
// query vector, highest first.
func (i *Index) Search(ctx context.Context, vector []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(vector) != i.dimensions {
		return nil, fmt.Errorf("query has %d dimensions, index expects %d: %w",
			len(vector), i.dimensions, domain.ErrDimensionMismatch)
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if len(i.ids) == 0 {
		return nil, nil
	}

	results, err := i.db.Search(vector).KNN(k).Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("searching vector index: %w", err)
	}

	hits := make([]driven.VectorHit, 0, len(results))
	for _, res := range results {
		hits = append(hits, driven.VectorHit{
			MerchantID: res.Data,
			Similarity: cosineFromDistance(res.Distance),
		})
	}
	return hits, nil
}

// cosineFromDistance recovers cosine similarity from the index's
// reported distance. The cosine flat index L2-normalizes both stored
// and query vectors and reports squared euclidean distance, which for
// unit vectors is 2 - 2*cos. Float error can push the result a hair
// outside [-1, 1], so it is clamped.
func cosineFromDistance(distance float32) float64 {
	sim := 1 - float64(distance)/2
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}

// Count reports the number of indexed merchants.
func (i *Index) Count() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.ids)
}

// Close releases the underlying store.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.db.Close()
}
