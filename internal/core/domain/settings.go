package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the embedding vector size. Fixed for the life of
	// the registry; the store refuses vectors of any other size.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds configuration for the LLM behind the classifier.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ResolverSettings holds resolution policy configuration.
type ResolverSettings struct {
	// HighConfidenceThreshold is the similarity score above which a
	// vector match merges without consulting the classifier.
	HighConfidenceThreshold float64

	// NearestNeighbors is how many candidates the vector search
	// retrieves per query.
	NearestNeighbors int

	// MaxCreateRetries bounds re-resolution after a duplicate
	// canonical name race. This is the only retry in the policy.
	MaxCreateRetries int

	// RefreshEmbeddingOnClassifiedMerge controls whether a merge
	// confirmed by the classifier overwrites the stored canonical
	// embedding with the newly observed spelling's embedding. Exact
	// and high-confidence vector merges never touch the embedding.
	RefreshEmbeddingOnClassifiedMerge bool

	// DefaultSource is recorded as provenance on merchants created
	// from requests that carry no source of their own.
	DefaultSource string
}

// IsValid returns true if the resolver settings are usable.
func (r ResolverSettings) IsValid() bool {
	return r.HighConfidenceThreshold > 0 && r.HighConfidenceThreshold <= 1 &&
		r.NearestNeighbors > 0 && r.MaxCreateRetries > 0
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "paraphrase-multilingual-mpnet-base-v2",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Multilingual sentence-transformer served via Ollama
		"paraphrase-multilingual-mpnet-base-v2": 768,
		// Other Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds classifier LLM provider settings.
	LLM LLMSettings

	// Resolver holds resolution policy settings.
	Resolver ResolverSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The thresholds mirror the production classifier: merge above 0.85
// cosine similarity, otherwise ask the classifier; check 5 neighbors;
// retry a lost create race at most twice more.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:   AIProviderOllama,
			Model:      "paraphrase-multilingual-mpnet-base-v2",
			Dimensions: 768,
		},
		// LLM is left unconfigured - user must supply provider + key.
		LLM: LLMSettings{},
		Resolver: ResolverSettings{
			HighConfidenceThreshold:           0.85,
			NearestNeighbors:                  5,
			MaxCreateRetries:                  3,
			RefreshEmbeddingOnClassifiedMerge: true,
			DefaultSource:                     "pdf_extraction",
		},
	}
}
