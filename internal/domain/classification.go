package domain

// ClassificationSource identifies which pipeline stage produced the answer.
type ClassificationSource string

const (
	SourceNonHazardRule  ClassificationSource = "non_hazard_rule"
	SourceDirectRule     ClassificationSource = "direct_rule"
	SourceVerifiedRecord ClassificationSource = "verified_record"
	SourceVectorMatch    ClassificationSource = "vector_match"
	SourceNoMatch        ClassificationSource = "no_match"
)

// Classification is the immutable pipeline output.
//
// A terminal result is always one of:
//   - Classified:   UNNumber non-empty
//   - NonHazardous: UNNumber empty, Source == SourceNonHazardRule
//   - Unclassified: UNNumber empty, Source == SourceNoMatch
//
// Invariant: if UNNumber is empty, HazardClass and PackingGroup are empty too.
type Classification struct {
	UNNumber           string
	ProperShippingName string
	HazardClass        string
	PackingGroup       PackingGroup
	ERGGuide           string
	Confidence         float64
	Source             ClassificationSource
	Explanation        string
	Citations          []string
}

// IsHazardous reports whether the result carries a UN number.
func (c Classification) IsHazardous() bool {
	return c.UNNumber != ""
}
