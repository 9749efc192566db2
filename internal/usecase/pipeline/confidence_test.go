package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hazmat-classifier/internal/domain"
)

func candidateWithUN(id, un string, score float64) ScoredCandidate {
	return ScoredCandidate{
		Entry: domain.CandidateEntry{
			ID:       id,
			Metadata: domain.CandidateMetadata{UNNumber: un},
		},
		Score: score,
	}
}

func TestConfidence_BaseOnly(t *testing.T) {
	top := candidateWithUN("a", "UN1830", 0.7)
	got := Confidence(top, []ScoredCandidate{top}, nil, DefaultFamilyFloors())
	assert.InDelta(t, 0.7, got, 1e-9)
}

func TestConfidence_AgreementBonus(t *testing.T) {
	top := candidateWithUN("a", "UN1830", 0.6)
	topK := []ScoredCandidate{
		top,
		candidateWithUN("b", "UN1830", 0.55),
		candidateWithUN("c", "UN1830", 0.50),
		candidateWithUN("d", "UN1090", 0.45),
	}

	got := Confidence(top, topK, nil, DefaultFamilyFloors())
	// Three agreeing candidates: +0.1 * 2.
	assert.InDelta(t, 0.8, got, 1e-9)
}

func TestConfidence_CeilingCap(t *testing.T) {
	top := candidateWithUN("a", "UN1830", 0.95)
	topK := []ScoredCandidate{
		top,
		candidateWithUN("b", "UN1830", 0.9),
		candidateWithUN("c", "UN1830", 0.9),
	}

	got := Confidence(top, topK, nil, DefaultFamilyFloors())
	assert.Equal(t, 0.99, got)
}

func TestConfidence_Floor(t *testing.T) {
	top := candidateWithUN("a", "UN1830", 0.05)
	got := Confidence(top, []ScoredCandidate{top}, nil, DefaultFamilyFloors())
	assert.Equal(t, 0.3, got)
}

func TestConfidence_FamilyFloorApplies(t *testing.T) {
	top := candidateWithUN("a", "UN1830", 0.5)
	family := &domain.FamilyFilter{Family: "acid"}

	got := Confidence(top, []ScoredCandidate{top}, family, DefaultFamilyFloors())
	assert.Equal(t, 0.75, got, "acid family floor lifts a low-scoring but gated match")
}

func TestConfidence_FamilyFloorDoesNotLower(t *testing.T) {
	top := candidateWithUN("a", "UN1830", 0.9)
	family := &domain.FamilyFilter{Family: "acid"}

	got := Confidence(top, []ScoredCandidate{top}, family, DefaultFamilyFloors())
	assert.InDelta(t, 0.9, got, 1e-9)
}

func TestConfidence_OutOfRangeBaseClamped(t *testing.T) {
	top := candidateWithUN("a", "UN1830", 1.35)
	got := Confidence(top, []ScoredCandidate{top}, nil, DefaultFamilyFloors())
	assert.LessOrEqual(t, got, 0.99)

	top = candidateWithUN("a", "UN1830", -0.2)
	got = Confidence(top, []ScoredCandidate{top}, nil, DefaultFamilyFloors())
	assert.Equal(t, 0.3, got)
}
