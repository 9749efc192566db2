package pipeline

import "hazmat-classifier/internal/domain"

// Confidence bounds for retrieval-sourced results. Verified records bypass
// the formula entirely (exactly 1.0); rule results carry their own fixed
// constants.
const (
	confidenceFloor   = 0.3
	confidenceCeiling = 0.99
	agreementStep     = 0.1
)

// FamilyFloors maps a detected family to a hand-tuned minimum confidence.
// The values are empirically calibrated, so they live in configuration
// data rather than inline in the formula.
type FamilyFloors map[string]float64

// DefaultFamilyFloors returns the tuned per-family floors.
func DefaultFamilyFloors() FamilyFloors {
	return FamilyFloors{
		"acid":         0.75,
		"caustic":      0.75,
		"oxidizer":     0.8,
		"peroxide":     0.8,
		"alcohol":      0.75,
		"petroleum":    0.75,
		"solvent":      0.75,
		"hypochlorite": 0.75,
	}
}

// Confidence blends the top candidate's rerank score with cross-candidate
// agreement: each additional top-K candidate resolving to the same UN
// number adds agreementStep, capped at the ceiling. The family floor is
// applied only when the gating filter fired, i.e. the query is structurally
// recognized even if the scores run low.
func Confidence(top ScoredCandidate, topK []ScoredCandidate, family *domain.FamilyFilter, floors FamilyFloors) float64 {
	base := top.Score
	if base < 0 {
		base = 0
	}
	if base > 1 {
		base = 1
	}

	agreeing := 0
	for _, c := range topK {
		if c.Entry.Metadata.UNNumber != "" && c.Entry.Metadata.UNNumber == top.Entry.Metadata.UNNumber {
			agreeing++
		}
	}
	if agreeing >= 2 {
		base += agreementStep * float64(agreeing-1)
	}

	if family != nil {
		if floor, ok := floors[family.Family]; ok && base < floor {
			base = floor
		}
	}

	if base < confidenceFloor {
		base = confidenceFloor
	}
	if base > confidenceCeiling {
		base = confidenceCeiling
	}
	return base
}
