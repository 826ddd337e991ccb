package domain

import (
	"slices"
	"time"
)

// Merchant is the canonical record for one real-world business entity.
// Every observed spelling of the merchant either is the canonical name
// or lives in Synonyms.
type Merchant struct {
	// ID is the unique identifier, assigned at creation, immutable.
	ID string `json:"id"`

	// CanonicalName is the human-readable display name.
	// It is unique across the whole registry.
	CanonicalName string `json:"canonical_name"`

	// Synonyms holds every string observed as a non-canonical alias of
	// this merchant. It never contains CanonicalName itself.
	Synonyms []string `json:"synonyms"`

	// Embedding is the vector representation of the canonical name.
	// All merchants in a registry share the same dimensionality.
	Embedding []float32 `json:"-"`

	// FirstSeen is when the merchant was first created.
	FirstSeen time.Time `json:"first_seen"`

	// LastUpdated advances on every alias addition or embedding refresh.
	LastUpdated time.Time `json:"last_updated"`

	// Source records where the first observation came from
	// (e.g. "pdf_extraction"). Informational only.
	Source string `json:"source"`

	// LanguageHints are the language hints supplied with the first
	// observation. Informational only.
	LanguageHints []string `json:"languages,omitempty"`
}

// HasSynonym reports whether alias is already recorded for this merchant.
// Matching is verbatim and case-sensitive.
func (m *Merchant) HasSynonym(alias string) bool {
	return slices.Contains(m.Synonyms, alias)
}

// KnownAs reports whether name refers to this merchant, either as the
// canonical name or as a recorded synonym.
func (m *Merchant) KnownAs(name string) bool {
	return m.CanonicalName == name || m.HasSynonym(name)
}
