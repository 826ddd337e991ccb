package domain

// Resolution is the outcome of resolving one observed merchant name.
// It is transient: callers stamp it onto whatever record they are
// building, the registry itself never stores it.
type Resolution struct {
	// MerchantID identifies the merchant the name resolved to.
	MerchantID string `json:"merchant_id"`

	// CanonicalName is the merchant's display name at resolution time.
	CanonicalName string `json:"canonical_name"`

	// IsNewMerchant is true when this resolution minted a new record
	// rather than merging into an existing one.
	IsNewMerchant bool `json:"is_new_merchant"`

	// Confidence expresses how certain the policy is, in [0,1].
	// Exact alias hits are always 1.0.
	Confidence float64 `json:"confidence"`
}

// Verdict is the classifier's judgement on an ambiguous merchant name.
// It mirrors the strict response contract of the external classifier:
// every field must be present or the response is rejected.
type Verdict struct {
	// IsNewMerchant is true when the observed name is a genuinely new
	// merchant rather than a variant of the candidate.
	IsNewMerchant bool

	// CanonicalName is the name the classifier judges canonical. For a
	// merge this may pick between two near-duplicate spellings; for a
	// new merchant it is the suggested display name.
	CanonicalName string

	// Confidence is the classifier's self-reported certainty in [0,1].
	Confidence float64

	// Reasoning is the classifier's free-form explanation. Logged,
	// never branched on.
	Reasoning string
}

// ResolveRequest carries one observed name through the resolution
// pipeline.
type ResolveRequest struct {
	// Name is the observed merchant name, verbatim as extracted.
	Name string

	// LanguageHints are forwarded to the classifier prompt as context.
	// They are never used for branching inside the resolver.
	LanguageHints []string

	// Source is provenance metadata recorded on newly created
	// merchants (e.g. "pdf_extraction").
	Source string
}
