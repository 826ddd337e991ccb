package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *ConfigStore {
	t.Helper()

	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestNewConfigStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "config")

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.Set("embedding.provider", "ollama"))
	require.NoError(t, store.Set("resolver.nearest_neighbors", 5))
	require.NoError(t, store.Set("resolver.high_confidence_threshold", 0.85))
	require.NoError(t, store.Set("resolver.refresh_embedding_on_classified_merge", true))
	require.NoError(t, store.Set("languages", []string{"en", "ms"}))

	assert.Equal(t, "ollama", store.GetString("embedding.provider"))
	assert.Equal(t, 5, store.GetInt("resolver.nearest_neighbors"))
	assert.InDelta(t, 0.85, store.GetFloat("resolver.high_confidence_threshold"), 1e-9)
	assert.True(t, store.GetBool("resolver.refresh_embedding_on_classified_merge"))
	assert.Equal(t, []string{"en", "ms"}, store.GetStringSlice("languages"))
}

func TestConfigStore_MissingKeys(t *testing.T) {
	store := setupTestStore(t)

	_, ok := store.Get("missing")
	assert.False(t, ok)
	assert.Empty(t, store.GetString("missing"))
	assert.Zero(t, store.GetInt("missing"))
	assert.Zero(t, store.GetFloat("missing"))
	assert.False(t, store.GetBool("missing"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_PersistsAcrossLoads(t *testing.T) {
	dir := t.TempDir()

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("llm.provider", "anthropic"))
	require.NoError(t, store.Set("llm.model", "claude-3-5-sonnet-latest"))
	require.NoError(t, store.Set("resolver.high_confidence_threshold", 0.85))

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", reloaded.GetString("llm.provider"))
	assert.Equal(t, "claude-3-5-sonnet-latest", reloaded.GetString("llm.model"))
	assert.InDelta(t, 0.85, reloaded.GetFloat("resolver.high_confidence_threshold"), 1e-9)
}

func TestConfigStore_Delete(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.Set("llm.api_key", "sk-test"))
	require.NoError(t, store.Delete("llm.api_key"))

	_, ok := store.Get("llm.api_key")
	assert.False(t, ok)

	// Deleting a missing key is not an error.
	assert.NoError(t, store.Delete("llm.api_key"))
}

func TestConfigStore_GetFloat_FromInt(t *testing.T) {
	store := setupTestStore(t)

	// A threshold written as a whole number still reads as a float.
	require.NoError(t, store.Set("resolver.high_confidence_threshold", int64(1)))
	assert.InDelta(t, 1.0, store.GetFloat("resolver.high_confidence_threshold"), 1e-9)
}

func TestConfigStore_WrongTypes(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.Set("key", "not a number"))
	assert.Zero(t, store.GetInt("key"))
	assert.Zero(t, store.GetFloat("key"))
	assert.False(t, store.GetBool("key"))
	assert.Nil(t, store.GetStringSlice("key"))
}

func TestFlattenUnflattenRoundTrip(t *testing.T) {
	nested := map[string]any{
		"embedding": map[string]any{
			"provider": "ollama",
			"model":    "paraphrase-multilingual-mpnet-base-v2",
		},
		"top": "level",
	}

	flat := flattenMap(nested, "")
	assert.Equal(t, "ollama", flat["embedding.provider"])
	assert.Equal(t, "level", flat["top"])

	back := unflattenMap(flat)
	assert.Equal(t, nested, back)
}
