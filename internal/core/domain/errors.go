package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateCanonicalName indicates a create collided with an
	// existing record's canonical name. This is the expected outcome of
	// two concurrent creates for the same merchant; the resolver
	// retries the whole resolution when it sees this.
	ErrDuplicateCanonicalName = errors.New("duplicate canonical name")

	// ErrAliasConflict indicates an alias is already bound to a
	// different merchant. The registry never repairs this on its own,
	// since an automatic repair could merge unrelated merchants.
	ErrAliasConflict = errors.New("alias already bound to another merchant")

	// ErrClassificationFailed indicates the external classifier timed
	// out, was unreachable, or returned a response that does not decode
	// to a complete verdict. The observed name is neither merged nor
	// created; the caller decides whether to re-queue.
	ErrClassificationFailed = errors.New("classification failed")

	// ErrEmbeddingUnavailable indicates the embedding provider is not
	// configured or unreachable. Nothing can be resolved without it, so
	// this is fatal at startup.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrStoreUnavailable indicates the registry store cannot be
	// reached. Surfaced to the caller without retry.
	ErrStoreUnavailable = errors.New("registry store unavailable")

	// ErrLLMUnavailable indicates the LLM service backing the
	// classifier is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrDimensionMismatch indicates a vector's dimensionality does not
	// match the registry's. Dimensionality is fixed for the life of the
	// store by the embedding model.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
