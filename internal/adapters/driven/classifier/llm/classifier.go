// Package llm implements the merchant classifier on top of a language
// model. It owns the prompt, the strict verdict parsing, and the rate
// limit that keeps bursts of resolutions from hammering the provider.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/merchant-resolver/internal/core/domain"
	"github.com/custodia-labs/merchant-resolver/internal/core/ports/driven"
	"github.com/custodia-labs/merchant-resolver/internal/logger"
)

// Ensure Classifier implements the interface.
var _ driven.MerchantClassifier = (*Classifier)(nil)

// Default configuration values.
const (
	DefaultMaxTokens      = 1000
	DefaultTimeout        = 60 * time.Second
	DefaultRequestsPerMin = 30
)

// Config holds configuration for the classifier.
type Config struct {
	// MaxTokens caps the verdict completion length (default: 1000).
	MaxTokens int

	// Timeout bounds a single classification call (default: 60s).
	Timeout time.Duration

	// RequestsPerMinute throttles calls to the LLM provider
	// (default: 30). Negative disables throttling.
	RequestsPerMinute int
}

// Classifier asks an LLM whether an observed merchant name is a
// variation of a known canonical merchant. A verdict that cannot be
// parsed is an error, never a guess: the caller must not mutate the
// registry on grounds this adapter could not verify.
type Classifier struct {
	llm       driven.LLMService
	maxTokens int
	timeout   time.Duration
	limiter   *rate.Limiter
}

// verdictPayload is the JSON shape the prompt demands. Pointer fields
// distinguish absent keys from zero values during strict parsing.
type verdictPayload struct {
	IsNewMerchant *bool    `json:"is_new_merchant"`
	CanonicalName *string  `json:"canonical_name"`
	Confidence    *float64 `json:"confidence"`
	Reasoning     *string  `json:"reasoning"`
}

// NewClassifier creates a classifier backed by the given LLM service.
func NewClassifier(llm driven.LLMService, cfg Config) *Classifier {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = DefaultRequestsPerMin
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute)
	}

	return &Classifier{
		llm:       llm,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		limiter:   limiter,
	}
}

// Verify asks the LLM whether observedName refers to the candidate
// merchant. candidate may be nil when the vector search found nothing,
// in which case the model is asked to judge the name on its own and
// suggest a canonical form.
func (c *Classifier) Verify(ctx context.Context, observedName string, candidate *domain.Merchant, languageHints []string) (*domain.Verdict, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for classifier rate limit: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := c.buildPrompt(observedName, candidate, languageHints)

	logger.Debug("Classifying %q against candidate via %s", observedName, c.llm.ModelName())

	raw, err := c.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   c.maxTokens,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrClassificationFailed, err)
	}

	verdict, err := parseVerdict(raw)
	if err != nil {
		logger.Warn("Classifier returned an unparseable verdict for %q: %v", observedName, err)
		return nil, err
	}

	return verdict, nil
}

// buildPrompt renders the classification prompt. The candidate's
// synonyms are shown so the model sees the names already accepted as
// the same merchant.
func (c *Classifier) buildPrompt(observedName string, candidate *domain.Merchant, languageHints []string) string {
	candidateName := "None"
	var knownAs string
	if candidate != nil {
		candidateName = candidate.CanonicalName
		if len(candidate.Synonyms) > 0 {
			knownAs = fmt.Sprintf("The existing merchant is also known as: %s.\n", strings.Join(candidate.Synonyms, ", "))
		}
	}

	var languageContext string
	if len(languageHints) > 0 {
		languageContext = fmt.Sprintf("Consider that the names might be in any of these languages: %s. ", strings.Join(languageHints, ", "))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze if '%s' is a synonym or variation of '%s' if one exists.\n", observedName, candidateName)
	b.WriteString(knownAs)
	b.WriteString(languageContext)
	b.WriteString("Consider common variations, misspellings, and business name patterns.\n")
	b.WriteString("Return ONLY a JSON object with these fields:\n")
	b.WriteString("- is_new_merchant: boolean\n")
	b.WriteString("- canonical_name: string (either existing or suggested new name)\n")
	b.WriteString("- confidence: float (0-1)\n")
	b.WriteString("- reasoning: string\n")
	return b.String()
}

// parseVerdict decodes the model output into a verdict. Every field
// must be present and well-formed; anything else fails closed with
// domain.ErrClassificationFailed.
func parseVerdict(raw string) (*domain.Verdict, error) {
	cleaned := stripCodeFence(strings.TrimSpace(raw))

	var payload verdictPayload
	dec := json.NewDecoder(strings.NewReader(cleaned))
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decoding verdict JSON: %w", domain.ErrClassificationFailed, err)
	}

	switch {
	case payload.IsNewMerchant == nil:
		return nil, fmt.Errorf("%w: verdict missing is_new_merchant", domain.ErrClassificationFailed)
	case payload.CanonicalName == nil:
		return nil, fmt.Errorf("%w: verdict missing canonical_name", domain.ErrClassificationFailed)
	case payload.Confidence == nil:
		return nil, fmt.Errorf("%w: verdict missing confidence", domain.ErrClassificationFailed)
	case payload.Reasoning == nil:
		return nil, fmt.Errorf("%w: verdict missing reasoning", domain.ErrClassificationFailed)
	case *payload.Confidence < 0 || *payload.Confidence > 1:
		return nil, fmt.Errorf("%w: confidence %f out of range", domain.ErrClassificationFailed, *payload.Confidence)
	}

	return &domain.Verdict{
		IsNewMerchant: *payload.IsNewMerchant,
		CanonicalName: strings.TrimSpace(*payload.CanonicalName),
		Confidence:    *payload.Confidence,
		Reasoning:     *payload.Reasoning,
	}, nil
}

// stripCodeFence removes a surrounding markdown code fence, which some
// models emit even when told to return bare JSON.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
