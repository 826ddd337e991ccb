package driven

import "context"

// EmbeddingService generates vector embeddings from merchant names.
// It is stateless and safe for concurrent use; for a fixed model
// version the same input always yields the same vector.
//
// The registry's vector index is built with the service's Dimensions(),
// so the service must be constructed (and preferably pinged) before the
// store opens. An unreachable provider is fatal to the whole resolver:
// nothing can be matched without embeddings, so callers fail fast
// rather than degrade.
//
// Implementations may include:
//   - Ollama serving a multilingual sentence-embedding model
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	// This is more efficient than calling Embed in a loop for large batches.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 768, 1536).
	// This is determined by the model and fixed for the life of the registry.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request. Run at startup; failure here aborts the resolver.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
