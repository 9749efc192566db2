package domain

import "time"

// CandidateSource tags where a knowledge-base entry came from. Verified
// entries outrank regulatory-table entries during reranking, which outrank
// heuristic and historical ones.
type CandidateSource string

const (
	SourceRegulatoryTable CandidateSource = "regulatory_table"
	SourceEmergencyGuide  CandidateSource = "emergency_guide"
	SourceVerifiedProduct CandidateSource = "verified_product"
	SourceHistorical      CandidateSource = "historical_record"
)

// PackingGroup is the regulatory packing group enumeration.
// Empty string means "not applicable / unknown".
type PackingGroup string

const (
	PackingGroupI    PackingGroup = "I"
	PackingGroupII   PackingGroup = "II"
	PackingGroupIII  PackingGroup = "III"
	PackingGroupNone PackingGroup = "NONE"
)

// CandidateMetadata holds the structured regulatory attributes of one
// knowledge-base entry.
type CandidateMetadata struct {
	UNNumber          string
	BaseName          string
	Qualifier         string // concentration / form descriptor, e.g. "with more than 51% acid"
	HazardClass       string
	PackingGroup      PackingGroup
	LabelCodes        []string
	SpecialProvisions string
	ERGGuide          string
	SKU               string // set for verified_product entries only
}

// CandidateEntry is one row of the regulatory knowledge base, loaded
// read-only at startup with a precomputed embedding.
type CandidateEntry struct {
	ID        string
	Source    CandidateSource
	Text      string
	Embedding []float32
	Metadata  CandidateMetadata
	CreatedAt time.Time
}
