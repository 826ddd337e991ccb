package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/merchant-resolver/internal/core/domain"
	"github.com/custodia-labs/merchant-resolver/internal/core/ports/driven"
	"github.com/custodia-labs/merchant-resolver/internal/core/ports/driving"
	"github.com/custodia-labs/merchant-resolver/internal/logger"
)

// Ensure ResolverService implements the interface.
var _ driving.ResolverService = (*ResolverService)(nil)

// ResolverService decides, for each observed merchant name, whether it
// refers to an already-known canonical merchant or a brand-new one, and
// issues the matching registry mutation.
//
// The decision runs three strategies in order of cost: exact alias
// lookup, nearest-neighbor vector similarity, and a classifier
// fallback for anything ambiguous. No lock is held across the pipeline;
// a create that loses a race against a concurrent resolution surfaces
// as domain.ErrDuplicateCanonicalName and restarts the whole decision,
// at which point the competing record is visible.
type ResolverService struct {
	store      driven.MerchantStore
	index      driven.VectorIndex
	embedder   driven.EmbeddingService
	classifier driven.MerchantClassifier
	settings   domain.ResolverSettings
}

// NewResolverService creates a new resolver service. All dependencies
// are required; settings falls back to defaults when invalid.
func NewResolverService(
	store driven.MerchantStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	classifier driven.MerchantClassifier,
	settings domain.ResolverSettings,
) *ResolverService {
	if !settings.IsValid() {
		settings = domain.DefaultAppSettings().Resolver
	}
	return &ResolverService{
		store:      store,
		index:      index,
		embedder:   embedder,
		classifier: classifier,
		settings:   settings,
	}
}

// ClassifyMerchant resolves one observed merchant name to exactly one
// terminal outcome: a merge into an existing merchant or a newly minted
// record. On any returned error the registry is unchanged.
func (s *ResolverService) ClassifyMerchant(
	ctx context.Context, req domain.ResolveRequest,
) (*domain.Resolution, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("observed name is empty: %w", domain.ErrInvalidInput)
	}
	req.Name = name

	logger.Section("Merchant Resolution")
	logger.Debug("Observed name: %q", name)

	// The duplicate-canonical-name race is the only retried failure.
	// Everything else propagates on the first occurrence.
	var lastErr error
	for attempt := 1; attempt <= s.settings.MaxCreateRetries; attempt++ {
		resolution, err := s.resolveOnce(ctx, req)
		if err == nil {
			return resolution, nil
		}
		if !errors.Is(err, domain.ErrDuplicateCanonicalName) {
			return nil, err
		}
		logger.Warn("Create lost a race (attempt %d/%d), re-resolving %q",
			attempt, s.settings.MaxCreateRetries, name)
		lastErr = err
	}

	return nil, fmt.Errorf("resolution retries exhausted for %q: %w", name, lastErr)
}

// resolveOnce runs the full decision pipeline a single time.
func (s *ResolverService) resolveOnce(
	ctx context.Context, req domain.ResolveRequest,
) (*domain.Resolution, error) {
	// 1. Exact alias lookup. A historical alias is treated as certain:
	// no embedding, no classifier, no mutation (the alias is already
	// stored).
	match, err := s.store.FindByExactAlias(ctx, req.Name)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("exact alias lookup: %w", err)
	}
	if match != nil {
		logger.Info("Exact alias hit: %q -> %s", req.Name, match.CanonicalName)
		return &domain.Resolution{
			MerchantID:    match.ID,
			CanonicalName: match.CanonicalName,
			IsNewMerchant: false,
			Confidence:    1.0,
		}, nil
	}

	// A name equal to an existing canonical name is just as certain.
	// Canonical names are never stored as their own synonyms, so the
	// alias index cannot answer this.
	match, err = s.store.GetByCanonicalName(ctx, req.Name)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("canonical name lookup: %w", err)
	}
	if match != nil {
		logger.Info("Canonical name hit: %q", req.Name)
		return &domain.Resolution{
			MerchantID:    match.ID,
			CanonicalName: match.CanonicalName,
			IsNewMerchant: false,
			Confidence:    1.0,
		}, nil
	}

	// 2. Vector similarity against canonical embeddings.
	queryVec, err := s.embedder.Embed(ctx, req.Name)
	if err != nil {
		return nil, fmt.Errorf("embed %q: %w", req.Name, err)
	}

	hits, err := s.index.Search(ctx, queryVec, s.settings.NearestNeighbors)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	var candidate *domain.Merchant
	var similarity float64
	if len(hits) > 0 {
		// Hits arrive ranked by descending similarity; the best one is
		// the only candidate the policy considers further.
		similarity = hits[0].Similarity
		candidate, err = s.store.Get(ctx, hits[0].MerchantID)
		if err != nil {
			return nil, fmt.Errorf("load candidate %s: %w", hits[0].MerchantID, err)
		}
		logger.Debug("Best vector candidate: %q (similarity %.3f)",
			candidate.CanonicalName, similarity)
	} else {
		logger.Debug("Vector search returned no candidates")
	}

	// 3. High-confidence vector match merges without the classifier.
	// The stored embedding stays untouched on this path.
	if candidate != nil && similarity > s.settings.HighConfidenceThreshold {
		if err := s.mergeAlias(ctx, candidate, req.Name, nil); err != nil {
			return nil, err
		}
		logger.Info("High-confidence merge: %q -> %s (%.3f)",
			req.Name, candidate.CanonicalName, similarity)
		return &domain.Resolution{
			MerchantID:    candidate.ID,
			CanonicalName: candidate.CanonicalName,
			IsNewMerchant: false,
			Confidence:    similarity,
		}, nil
	}

	// 4. Ambiguous: ask the classifier. Its failure fails the whole
	// resolution; defaulting to either outcome could corrupt the
	// registry.
	verdict, err := s.classifier.Verify(ctx, req.Name, candidate, req.LanguageHints)
	if err != nil {
		return nil, fmt.Errorf("classifier verdict for %q: %w", req.Name, err)
	}
	logger.Debug("Classifier verdict: new=%t canonical=%q confidence=%.2f reasoning=%s",
		verdict.IsNewMerchant, verdict.CanonicalName, verdict.Confidence, verdict.Reasoning)

	if !verdict.IsNewMerchant && candidate != nil {
		// Classifier-confirmed merge. Optionally let the stored vector
		// drift toward the just-confirmed spelling.
		var refresh []float32
		if s.settings.RefreshEmbeddingOnClassifiedMerge {
			refresh = queryVec
		}
		if err := s.mergeAlias(ctx, candidate, req.Name, refresh); err != nil {
			return nil, err
		}

		canonical := verdict.CanonicalName
		if canonical == "" {
			canonical = candidate.CanonicalName
		}
		logger.Info("Classified merge: %q -> %s", req.Name, canonical)
		return &domain.Resolution{
			MerchantID:    candidate.ID,
			CanonicalName: canonical,
			IsNewMerchant: false,
			Confidence:    verdict.Confidence,
		}, nil
	}

	return s.createMerchant(ctx, req, verdict, queryVec)
}

// mergeAlias records the observed name as a synonym and, when refresh
// is non-nil, replaces the stored canonical embedding with it in both
// the store and the vector index.
func (s *ResolverService) mergeAlias(
	ctx context.Context, merchant *domain.Merchant, alias string, refresh []float32,
) error {
	if err := s.store.AddSynonym(ctx, merchant.ID, alias); err != nil {
		return fmt.Errorf("add synonym %q to %s: %w", alias, merchant.ID, err)
	}

	if refresh == nil {
		return nil
	}
	if err := s.store.UpdateEmbedding(ctx, merchant.ID, refresh); err != nil {
		return fmt.Errorf("refresh embedding for %s: %w", merchant.ID, err)
	}
	if err := s.index.Upsert(ctx, merchant.ID, refresh); err != nil {
		return fmt.Errorf("reindex embedding for %s: %w", merchant.ID, err)
	}
	logger.Debug("Refreshed canonical embedding for %s from %q", merchant.ID, alias)
	return nil
}

// createMerchant mints a new canonical record. A duplicate canonical
// name here means a concurrent resolution won the race; the error
// propagates so ClassifyMerchant can retry from the top.
func (s *ResolverService) createMerchant(
	ctx context.Context, req domain.ResolveRequest, verdict *domain.Verdict, queryVec []float32,
) (*domain.Resolution, error) {
	canonical := strings.TrimSpace(verdict.CanonicalName)
	if canonical == "" {
		canonical = req.Name
	}

	// The stored embedding always represents the canonical form. When
	// the classifier suggested a different spelling, re-encode it.
	embedding := queryVec
	if canonical != req.Name {
		var err error
		embedding, err = s.embedder.Embed(ctx, canonical)
		if err != nil {
			return nil, fmt.Errorf("embed canonical %q: %w", canonical, err)
		}
	}

	source := req.Source
	if source == "" {
		source = s.settings.DefaultSource
	}

	now := time.Now().UTC()
	merchant := domain.Merchant{
		ID:            uuid.New().String(),
		CanonicalName: canonical,
		Synonyms:      nil,
		Embedding:     embedding,
		FirstSeen:     now,
		LastUpdated:   now,
		Source:        source,
		LanguageHints: req.LanguageHints,
	}

	if err := s.store.Create(ctx, merchant); err != nil {
		return nil, fmt.Errorf("create merchant %q: %w", canonical, err)
	}
	if err := s.index.Upsert(ctx, merchant.ID, embedding); err != nil {
		// The record is durable; the index catches up on next rebuild.
		logger.Warn("Index insert failed for %s: %v", merchant.ID, err)
	}

	logger.Info("Created merchant %q (%s)", canonical, merchant.ID)
	return &domain.Resolution{
		MerchantID:    merchant.ID,
		CanonicalName: canonical,
		IsNewMerchant: true,
		Confidence:    verdict.Confidence,
	}, nil
}
