package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrDuplicateCanonicalName", ErrDuplicateCanonicalName},
		{"ErrAliasConflict", ErrAliasConflict},
		{"ErrClassificationFailed", ErrClassificationFailed},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrStoreUnavailable", ErrStoreUnavailable},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrDimensionMismatch", ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrors_AreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrDuplicateCanonicalName, ErrAliasConflict))
	assert.False(t, errors.Is(ErrNotFound, ErrInvalidInput))
	assert.False(t, errors.Is(ErrEmbeddingUnavailable, ErrLLMUnavailable))
}

func TestErrors_WrapAndMatch(t *testing.T) {
	wrapped := fmt.Errorf("create merchant %q: %w", "Grab", ErrDuplicateCanonicalName)

	assert.True(t, errors.Is(wrapped, ErrDuplicateCanonicalName))
	assert.False(t, errors.Is(wrapped, ErrAliasConflict))
}
