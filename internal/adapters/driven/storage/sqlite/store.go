// Package sqlite provides the durable merchant registry store backed by
// SQLite (pure-Go driver, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/merchant-resolver/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/merchant-resolver/internal/core/domain"
	"github.com/custodia-labs/merchant-resolver/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.MerchantStore = (*Store)(nil)

// Store is the SQLite-backed merchant registry.
//
// The canonical_name UNIQUE constraint is the only concurrency control
// for creates: two racing inserts for one merchant leave exactly one
// row, and the loser gets domain.ErrDuplicateCanonicalName.
type Store struct {
	db         *sql.DB
	path       string
	dimensions int
}

// NewStore opens (or creates) the registry database at the specified
// data directory. If dataDir is empty, defaults to
// ~/.merchant-resolver/data/registry.db. dimensions fixes the accepted
// embedding size; writes with any other size fail.
func NewStore(dataDir string, dimensions int) (*Store, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive: %w", domain.ErrInvalidInput)
	}

	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".merchant-resolver", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "registry.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:         db,
		path:       dbPath,
		dimensions: dimensions,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	// Dimensionality is fixed at index-creation time; refuse to open a
	// registry written by a different embedding model.
	if err := s.checkDimensions(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version,
		); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// checkDimensions verifies stored embeddings match the configured size.
func (s *Store) checkDimensions() error {
	var blob []byte
	row := s.db.QueryRow("SELECT embedding FROM merchants LIMIT 1")
	if err := row.Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil // Empty registry accepts any configured size
		}
		return fmt.Errorf("checking stored dimensions: %w", err)
	}

	if stored := len(blob) / 4; stored != s.dimensions {
		return fmt.Errorf("registry holds %d-dimensional embeddings, configured for %d: %w",
			stored, s.dimensions, domain.ErrDimensionMismatch)
	}
	return nil
}

// Create inserts a new merchant record.
func (s *Store) Create(ctx context.Context, merchant domain.Merchant) error {
	if merchant.ID == "" || merchant.CanonicalName == "" {
		return domain.ErrInvalidInput
	}
	if len(merchant.Embedding) != s.dimensions {
		return fmt.Errorf("embedding has %d dimensions, registry expects %d: %w",
			len(merchant.Embedding), s.dimensions, domain.ErrDimensionMismatch)
	}

	hintsJSON, err := json.Marshal(merchant.LanguageHints)
	if err != nil {
		return fmt.Errorf("marshalling language hints: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO merchants (id, canonical_name, embedding, first_seen, last_updated, source, language_hints)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, merchant.ID, merchant.CanonicalName, float32SliceToBytes(merchant.Embedding),
		merchant.FirstSeen.UTC(), merchant.LastUpdated.UTC(), merchant.Source, string(hintsJSON))

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("canonical name %q: %w", merchant.CanonicalName, domain.ErrDuplicateCanonicalName)
		}
		return fmt.Errorf("creating merchant: %w", err)
	}
	return nil
}

// Get retrieves a merchant by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.Merchant, error) {
	return s.getOne(ctx, "id = ?", id)
}

// GetByCanonicalName retrieves a merchant by its exact canonical name.
func (s *Store) GetByCanonicalName(ctx context.Context, name string) (*domain.Merchant, error) {
	return s.getOne(ctx, "canonical_name = ?", name)
}

// FindByExactAlias returns the merchant whose synonym set contains name
// verbatim. If the alias turns out to be bound to more than one
// merchant, the conflict is surfaced, not repaired: silently picking a
// winner could merge unrelated merchants.
func (s *Store) FindByExactAlias(ctx context.Context, name string) (*domain.Merchant, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT merchant_id FROM synonyms WHERE alias = ?", name)
	if err != nil {
		return nil, fmt.Errorf("querying alias: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning alias owner: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alias owners: %w", err)
	}

	switch len(ids) {
	case 0:
		return nil, domain.ErrNotFound
	case 1:
		return s.Get(ctx, ids[0])
	default:
		return nil, fmt.Errorf("alias %q bound to %d merchants: %w",
			name, len(ids), domain.ErrAliasConflict)
	}
}

// AddSynonym records alias for the merchant and bumps last_updated.
// Adding an alias the merchant already has is a no-op; an alias equal
// to the merchant's own canonical name is also a no-op.
func (s *Store) AddSynonym(ctx context.Context, id, alias string) error {
	if alias == "" {
		return domain.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var canonicalName string
	row := tx.QueryRowContext(ctx, "SELECT canonical_name FROM merchants WHERE id = ?", id)
	if err := row.Scan(&canonicalName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("loading merchant: %w", err)
	}

	// A canonical name is never stored as its own synonym.
	if alias == canonicalName {
		return tx.Commit()
	}

	// Detect the alias already belonging to someone else. Best-effort
	// only: the schema carries no cross-merchant uniqueness constraint
	// on aliases.
	var other string
	row = tx.QueryRowContext(ctx,
		"SELECT merchant_id FROM synonyms WHERE alias = ? AND merchant_id != ? LIMIT 1", alias, id)
	if err := row.Scan(&other); err == nil {
		return fmt.Errorf("alias %q already belongs to merchant %s: %w",
			alias, other, domain.ErrAliasConflict)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking alias ownership: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO synonyms (merchant_id, alias, added_at)
		VALUES (?, ?, ?)
		ON CONFLICT(merchant_id, alias) DO NOTHING
	`, id, alias, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("inserting synonym: %w", err)
	}

	// Only a genuinely new alias advances last_updated.
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		if _, err := tx.ExecContext(ctx,
			"UPDATE merchants SET last_updated = ? WHERE id = ?", time.Now().UTC(), id); err != nil {
			return fmt.Errorf("touching merchant: %w", err)
		}
	}

	return tx.Commit()
}

// UpdateEmbedding replaces the merchant's stored embedding.
func (s *Store) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	if len(embedding) != s.dimensions {
		return fmt.Errorf("embedding has %d dimensions, registry expects %d: %w",
			len(embedding), s.dimensions, domain.ErrDimensionMismatch)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE merchants SET embedding = ?, last_updated = ? WHERE id = ?
	`, float32SliceToBytes(embedding), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating embedding: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns all merchants, ordered by canonical name.
func (s *Store) List(ctx context.Context) ([]domain.Merchant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, canonical_name, embedding, first_seen, last_updated, source, language_hints
		FROM merchants ORDER BY canonical_name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying merchants: %w", err)
	}
	defer rows.Close()

	var merchants []domain.Merchant //nolint:prealloc // size unknown from query
	for rows.Next() {
		m, err := scanMerchantRows(rows)
		if err != nil {
			return nil, err
		}
		merchants = append(merchants, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating merchants: %w", err)
	}

	for i := range merchants {
		if err := s.loadSynonyms(ctx, &merchants[i]); err != nil {
			return nil, err
		}
	}

	return merchants, nil
}

// getOne fetches a single merchant by an indexed column.
func (s *Store) getOne(ctx context.Context, where string, arg any) (*domain.Merchant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, canonical_name, embedding, first_seen, last_updated, source, language_hints
		FROM merchants WHERE `+where, arg)

	m, err := scanMerchantRow(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadSynonyms(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// loadSynonyms hydrates the merchant's synonym set.
func (s *Store) loadSynonyms(ctx context.Context, m *domain.Merchant) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT alias FROM synonyms WHERE merchant_id = ? ORDER BY added_at", m.ID)
	if err != nil {
		return fmt.Errorf("querying synonyms: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var alias string
		if err := rows.Scan(&alias); err != nil {
			return fmt.Errorf("scanning synonym: %w", err)
		}
		m.Synonyms = append(m.Synonyms, alias)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating synonyms: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure. The pure-Go driver exposes this only through the message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// scanMerchantRow scans a single merchant row.
func scanMerchantRow(row *sql.Row) (*domain.Merchant, error) {
	var m domain.Merchant
	var blob []byte
	var hintsJSON string

	if err := row.Scan(&m.ID, &m.CanonicalName, &blob,
		&m.FirstSeen, &m.LastUpdated, &m.Source, &hintsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning merchant: %w", err)
	}

	m.Embedding = bytesToFloat32Slice(blob)
	if err := json.Unmarshal([]byte(hintsJSON), &m.LanguageHints); err != nil {
		return nil, fmt.Errorf("unmarshaling language hints: %w", err)
	}
	return &m, nil
}

// scanMerchantRows scans a merchant from *sql.Rows.
func scanMerchantRows(rows *sql.Rows) (*domain.Merchant, error) {
	var m domain.Merchant
	var blob []byte
	var hintsJSON string

	if err := rows.Scan(&m.ID, &m.CanonicalName, &blob,
		&m.FirstSeen, &m.LastUpdated, &m.Source, &hintsJSON); err != nil {
		return nil, fmt.Errorf("scanning merchant: %w", err)
	}

	m.Embedding = bytesToFloat32Slice(blob)
	if err := json.Unmarshal([]byte(hintsJSON), &m.LanguageHints); err != nil {
		return nil, fmt.Errorf("unmarshaling language hints: %w", err)
	}
	return &m, nil
}
