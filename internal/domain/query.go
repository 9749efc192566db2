package domain

// QueryEntities holds numeric and literal entities extracted from the query.
type QueryEntities struct {
	Percentages []float64
	UNNumbers   []string
	Proofs      []float64
}

// FamilyFilter is a structural pre-filter derived from the query text.
// BaseNamePattern is a regex applied to the candidate base-name field;
// HazardClassPattern, when non-empty, is AND-ed against the hazard class.
type FamilyFilter struct {
	Family             string
	BaseNamePattern    string
	HazardClassPattern string
}

// QueryContext is the ephemeral per-request state built by the query
// processor. It is never persisted.
type QueryContext struct {
	RawText      string
	Normalized   string
	ChemicalOnly string // normalized text with container/packaging tokens stripped
	Expanded     string // normalized text plus synonym cluster and proof-derived terms
	Entities     QueryEntities
	Family       *FamilyFilter
}
