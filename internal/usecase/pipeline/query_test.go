package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Sulfuric ACID", "sulfuric acid"},
		{"keeps percent", "Acetic Acid 10%", "acetic acid 10%"},
		{"strips punctuation", "acetone, (technical grade)!", "acetone technical grade"},
		{"keeps decimal in number", "hydrogen peroxide 8.5%", "hydrogen peroxide 8.5%"},
		{"drops trailing dot", "inc. acetone", "inc acetone"},
		{"collapses whitespace", "  sulfuric \t acid  ", "sulfuric acid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestDetectEntities(t *testing.T) {
	ents := DetectEntities(Normalize("UN1830 Sulfuric Acid 98% and 150 proof ethanol"))

	assert.Equal(t, []float64{98}, ents.Percentages)
	assert.Equal(t, []string{"UN1830"}, ents.UNNumbers)
	assert.Equal(t, []float64{150}, ents.Proofs)
}

func TestDetectEntities_DecimalPercent(t *testing.T) {
	ents := DetectEntities(Normalize("peroxide 8.5 %"))
	require.Len(t, ents.Percentages, 1)
	assert.InDelta(t, 8.5, ents.Percentages[0], 1e-9)
}

func TestStripContainers(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"sulfuric acid 55 gallon drum", "sulfuric acid"},
		{"acetone 5 l jug", "acetone"},
		{"kerosene 2.5 gal cans", "kerosene"},
		{"toluene tote", "toluene"},
		{"nitric acid", "nitric acid"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripContainers(Normalize(tt.input)), tt.input)
	}
}

func TestProofToPercent(t *testing.T) {
	assert.Equal(t, 75.0, ProofToPercent(150))
	assert.Equal(t, 50.5, ProofToPercent(101))
	assert.Equal(t, 40.0, ProofToPercent(80))
}

func TestBuildQueryContext_SynonymExpansion(t *testing.T) {
	qc := BuildQueryContext("Sulfuric Acid 98% in 55 gallon drum")

	assert.Equal(t, "sulfuric acid 98%", qc.ChemicalOnly)
	assert.Contains(t, qc.Expanded, "oleum")
	assert.Contains(t, qc.Expanded, "oil of vitriol")
	require.NotNil(t, qc.Family)
	assert.Equal(t, "acid", qc.Family.Family)
}

func TestBuildQueryContext_ProofAppendsPercent(t *testing.T) {
	qc := BuildQueryContext("Vodka 80 proof")

	assert.Contains(t, qc.Expanded, "40%")
	assert.Contains(t, qc.Entities.Percentages, 40.0)
}

func TestBuildQueryContext_NoFamily(t *testing.T) {
	qc := BuildQueryContext("mystery product xyz")
	assert.Nil(t, qc.Family)
}
