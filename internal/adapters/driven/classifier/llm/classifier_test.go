package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/merchant-resolver/internal/core/domain"
	"github.com/custodia-labs/merchant-resolver/internal/core/ports/driven"
)

// stubLLM returns a canned response and records the prompts and options
// it was called with.
type stubLLM struct {
	response string
	err      error
	prompts  []string
	opts     []driven.GenerateOptions
}

func (s *stubLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	s.prompts = append(s.prompts, prompt)
	s.opts = append(s.opts, opts)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubLLM) ModelName() string          { return "stub-model" }
func (s *stubLLM) Ping(context.Context) error { return nil }
func (s *stubLLM) Close() error               { return nil }

func grabMerchant() *domain.Merchant {
	return &domain.Merchant{
		ID:            "m1",
		CanonicalName: "Grab",
		Synonyms:      []string{"Grab SG", "GRAB*TRANSPORT"},
	}
}

func TestVerify_MergeVerdict(t *testing.T) {
	llm := &stubLLM{
		response: `{"is_new_merchant": false, "canonical_name": "Grab", "confidence": 0.92, "reasoning": "regional suffix"}`,
	}
	c := NewClassifier(llm, Config{})

	verdict, err := c.Verify(context.Background(), "Grab Singapore", grabMerchant(), []string{"en", "ms"})
	require.NoError(t, err)
	assert.False(t, verdict.IsNewMerchant)
	assert.Equal(t, "Grab", verdict.CanonicalName)
	assert.InDelta(t, 0.92, verdict.Confidence, 1e-9)
	assert.Equal(t, "regional suffix", verdict.Reasoning)
}

func TestVerify_PromptContents(t *testing.T) {
	llm := &stubLLM{
		response: `{"is_new_merchant": false, "canonical_name": "Grab", "confidence": 0.9, "reasoning": "r"}`,
	}
	c := NewClassifier(llm, Config{})

	_, err := c.Verify(context.Background(), "Grab Singapore", grabMerchant(), []string{"en", "ms"})
	require.NoError(t, err)

	require.Len(t, llm.prompts, 1)
	prompt := llm.prompts[0]
	assert.Contains(t, prompt, "'Grab Singapore'")
	assert.Contains(t, prompt, "'Grab'")
	assert.Contains(t, prompt, "Grab SG, GRAB*TRANSPORT")
	assert.Contains(t, prompt, "any of these languages: en, ms")
	assert.Contains(t, prompt, "is_new_merchant")

	// Classification is deterministic and bounded.
	require.Len(t, llm.opts, 1)
	assert.Equal(t, 0.0, llm.opts[0].Temperature)
	assert.Equal(t, DefaultMaxTokens, llm.opts[0].MaxTokens)
}

func TestVerify_NoCandidate(t *testing.T) {
	llm := &stubLLM{
		response: `{"is_new_merchant": true, "canonical_name": "Warung Makan Sederhana", "confidence": 0.7, "reasoning": "no known match"}`,
	}
	c := NewClassifier(llm, Config{})

	verdict, err := c.Verify(context.Background(), "Warung Makan Sederhana", nil, nil)
	require.NoError(t, err)
	assert.True(t, verdict.IsNewMerchant)

	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "'None'")
	assert.NotContains(t, llm.prompts[0], "languages:")
}

func TestVerify_LLMErrorFailsClosed(t *testing.T) {
	llm := &stubLLM{err: errors.New("connection refused")}
	c := NewClassifier(llm, Config{})

	_, err := c.Verify(context.Background(), "Grab Singapore", grabMerchant(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrClassificationFailed)
}

func TestVerify_CodeFencedJSON(t *testing.T) {
	llm := &stubLLM{
		response: "```json\n{\"is_new_merchant\": false, \"canonical_name\": \"Grab\", \"confidence\": 0.9, \"reasoning\": \"r\"}\n```",
	}
	c := NewClassifier(llm, Config{})

	verdict, err := c.Verify(context.Background(), "Grab SG", grabMerchant(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Grab", verdict.CanonicalName)
}

func TestParseVerdict_Strict(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "Not JSON", raw: "I think this is the same merchant."},
		{name: "Missing is_new_merchant", raw: `{"canonical_name": "Grab", "confidence": 0.9, "reasoning": "r"}`},
		{name: "Missing canonical_name", raw: `{"is_new_merchant": false, "confidence": 0.9, "reasoning": "r"}`},
		{name: "Missing confidence", raw: `{"is_new_merchant": false, "canonical_name": "Grab", "reasoning": "r"}`},
		{name: "Missing reasoning", raw: `{"is_new_merchant": false, "canonical_name": "Grab", "confidence": 0.9}`},
		{name: "Confidence above one", raw: `{"is_new_merchant": false, "canonical_name": "Grab", "confidence": 1.5, "reasoning": "r"}`},
		{name: "Negative confidence", raw: `{"is_new_merchant": false, "canonical_name": "Grab", "confidence": -0.1, "reasoning": "r"}`},
		{name: "Wrong type", raw: `{"is_new_merchant": "no", "canonical_name": "Grab", "confidence": 0.9, "reasoning": "r"}`},
		{name: "Empty", raw: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseVerdict(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrClassificationFailed)
		})
	}
}

func TestParseVerdict_Valid(t *testing.T) {
	verdict, err := parseVerdict(`  {"is_new_merchant": true, "canonical_name": " Gojek ", "confidence": 0, "reasoning": ""}  `)
	require.NoError(t, err)
	assert.True(t, verdict.IsNewMerchant)
	assert.Equal(t, "Gojek", verdict.CanonicalName)
	assert.Zero(t, verdict.Confidence)
}
