package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/merchant-resolver/internal/core/domain"
)

const testDimensions = 4

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir(), testDimensions)
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func testMerchant(id, name string) domain.Merchant {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.Merchant{
		ID:            id,
		CanonicalName: name,
		Embedding:     []float32{0.1, 0.2, 0.3, 0.4},
		FirstSeen:     now,
		LastUpdated:   now,
		Source:        "pdf_extraction",
		LanguageHints: []string{"en", "ms"},
	}
}

// ==================== Store Creation Tests ====================

func TestNewStore_InvalidDimensions(t *testing.T) {
	_, err := NewStore(t.TempDir(), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewStore_Reopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir, testDimensions)
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), testMerchant("m1", "Grab")))
	require.NoError(t, store.Close())

	// Reopening with matching dimensions works and keeps data.
	store, err = NewStore(dir, testDimensions)
	require.NoError(t, err)
	defer store.Close()

	m, err := store.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "Grab", m.CanonicalName)
}

func TestNewStore_DimensionMismatchOnReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir, testDimensions)
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), testMerchant("m1", "Grab")))
	require.NoError(t, store.Close())

	// A registry written with 4-dimensional vectors refuses a
	// 8-dimensional configuration.
	_, err = NewStore(dir, 8)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

// ==================== Create Tests ====================

func TestCreate_AndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	want := testMerchant("m1", "Grab")
	require.NoError(t, store.Create(ctx, want))

	got, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.CanonicalName, got.CanonicalName)
	assert.Equal(t, want.Embedding, got.Embedding)
	assert.Equal(t, want.Source, got.Source)
	assert.Equal(t, want.LanguageHints, got.LanguageHints)
	assert.Empty(t, got.Synonyms)
}

func TestCreate_DuplicateCanonicalName(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testMerchant("m1", "Grab")))

	err := store.Create(ctx, testMerchant("m2", "Grab"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicateCanonicalName)

	// The losing create left no trace.
	_, err = store.Get(ctx, "m2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreate_InvalidInput(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	m := testMerchant("", "Grab")
	assert.ErrorIs(t, store.Create(ctx, m), domain.ErrInvalidInput)

	m = testMerchant("m1", "")
	assert.ErrorIs(t, store.Create(ctx, m), domain.ErrInvalidInput)
}

func TestCreate_WrongDimensions(t *testing.T) {
	store := setupTestStore(t)

	m := testMerchant("m1", "Grab")
	m.Embedding = []float32{0.1, 0.2}
	err := store.Create(context.Background(), m)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

// ==================== Lookup Tests ====================

func TestGet_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetByCanonicalName(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testMerchant("m1", "Grab")))

	got, err := store.GetByCanonicalName(ctx, "Grab")
	require.NoError(t, err)
	assert.Equal(t, "m1", got.ID)

	// Matching is verbatim, not case-insensitive.
	_, err = store.GetByCanonicalName(ctx, "grab")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFindByExactAlias(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testMerchant("m1", "Grab")))
	require.NoError(t, store.AddSynonym(ctx, "m1", "Grab SG"))

	got, err := store.FindByExactAlias(ctx, "Grab SG")
	require.NoError(t, err)
	assert.Equal(t, "m1", got.ID)
	assert.Equal(t, []string{"Grab SG"}, got.Synonyms)

	// The canonical name itself is not an alias.
	_, err = store.FindByExactAlias(ctx, "Grab")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.FindByExactAlias(ctx, "grab sg")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ==================== AddSynonym Tests ====================

func TestAddSynonym_Idempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testMerchant("m1", "Grab")))
	require.NoError(t, store.AddSynonym(ctx, "m1", "Grab SG"))
	require.NoError(t, store.AddSynonym(ctx, "m1", "Grab SG"))

	got, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Grab SG"}, got.Synonyms)
}

func TestAddSynonym_CanonicalNameIsNoOp(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testMerchant("m1", "Grab")))
	require.NoError(t, store.AddSynonym(ctx, "m1", "Grab"))

	got, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, got.Synonyms)
}

func TestAddSynonym_BumpsLastUpdated(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	m := testMerchant("m1", "Grab")
	m.LastUpdated = m.LastUpdated.Add(-time.Hour)
	m.FirstSeen = m.LastUpdated
	require.NoError(t, store.Create(ctx, m))

	require.NoError(t, store.AddSynonym(ctx, "m1", "Grab SG"))

	got, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, got.LastUpdated.After(m.LastUpdated))
	assert.Equal(t, m.FirstSeen.Unix(), got.FirstSeen.Unix())
}

func TestAddSynonym_UnknownMerchant(t *testing.T) {
	store := setupTestStore(t)

	err := store.AddSynonym(context.Background(), "missing", "alias")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddSynonym_ConflictAcrossMerchants(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testMerchant("m1", "Grab")))
	require.NoError(t, store.Create(ctx, testMerchant("m2", "Gojek")))
	require.NoError(t, store.AddSynonym(ctx, "m1", "GRB*TRANSPORT"))

	err := store.AddSynonym(ctx, "m2", "GRB*TRANSPORT")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAliasConflict)

	// The conflicting write changed nothing.
	got, err := store.Get(ctx, "m2")
	require.NoError(t, err)
	assert.Empty(t, got.Synonyms)
}

func TestAddSynonym_EmptyAlias(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testMerchant("m1", "Grab")))
	assert.ErrorIs(t, store.AddSynonym(ctx, "m1", ""), domain.ErrInvalidInput)
}

// ==================== UpdateEmbedding Tests ====================

func TestUpdateEmbedding(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testMerchant("m1", "Grab")))

	updated := []float32{0.9, 0.8, 0.7, 0.6}
	require.NoError(t, store.UpdateEmbedding(ctx, "m1", updated))

	got, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, updated, got.Embedding)
}

func TestUpdateEmbedding_NotFound(t *testing.T) {
	store := setupTestStore(t)

	err := store.UpdateEmbedding(context.Background(), "missing", []float32{1, 2, 3, 4})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateEmbedding_WrongDimensions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testMerchant("m1", "Grab")))

	err := store.UpdateEmbedding(ctx, "m1", []float32{1, 2})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

// ==================== List Tests ====================

func TestList_OrderedByCanonicalName(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testMerchant("m1", "Starbucks")))
	require.NoError(t, store.Create(ctx, testMerchant("m2", "Grab")))
	require.NoError(t, store.Create(ctx, testMerchant("m3", "McDonald's")))
	require.NoError(t, store.AddSynonym(ctx, "m2", "Grab SG"))

	merchants, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, merchants, 3)
	assert.Equal(t, "Grab", merchants[0].CanonicalName)
	assert.Equal(t, "McDonald's", merchants[1].CanonicalName)
	assert.Equal(t, "Starbucks", merchants[2].CanonicalName)
	assert.Equal(t, []string{"Grab SG"}, merchants[0].Synonyms)
}

func TestList_Empty(t *testing.T) {
	store := setupTestStore(t)

	merchants, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, merchants)
}

// ==================== Helper Tests ====================

func TestFloat32SliceRoundTrip(t *testing.T) {
	vec := []float32{0.5, -1.25, 3.75, 0}
	assert.Equal(t, vec, bytesToFloat32Slice(float32SliceToBytes(vec)))

	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(errors.New("some other error")))
	assert.True(t, isUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: merchants.canonical_name")))
}
