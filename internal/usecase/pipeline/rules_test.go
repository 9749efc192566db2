package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hazmat-classifier/internal/domain"
)

func TestMatchDirectRule_KnownSubstances(t *testing.T) {
	tests := []struct {
		query  string
		wantUN string
	}{
		{"sulfuric acid 98%", "UN1830"},
		{"fuming sulfuric acid", "UN1831"},
		{"sulfuric acid drain cleaner", "UN1760"},
		{"muriatic acid 31%", "UN1789"},
		{"caustic soda solution", "UN1824"},
		{"acetone technical grade", "UN1090"},
		{"kerosene", "UN1223"},
		{"glacial acetic acid", "UN2789"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rule := MatchDirectRule(Normalize(tt.query))
			require.NotNil(t, rule)
			assert.Equal(t, tt.wantUN, rule.UNNumber)
		})
	}
}

func TestMatchDirectRule_NoMatch(t *testing.T) {
	assert.Nil(t, MatchDirectRule(Normalize("gibberish-not-a-chemical-xyz123")))
}

func TestMatchDirectRule_SpecificBeforeGeneric(t *testing.T) {
	// The drain-cleaner qualifier must win over the bare substance pattern.
	rule := MatchDirectRule("sulfuric acid drain cleaner 1 gallon")
	require.NotNil(t, rule)
	assert.Equal(t, "UN1760", rule.UNNumber)

	rule = MatchDirectRule("oleum 20%")
	require.NotNil(t, rule)
	assert.Equal(t, "UN1831", rule.UNNumber)
}

// Every rule's canonical sample must be claimed by that rule itself, not an
// earlier one. This makes rule order an explicit contract: appending a new
// rule at the end can never change the outcome for existing matching inputs.
func TestDirectRules_NonShadowing(t *testing.T) {
	rules := DirectRules()
	for i, rule := range rules {
		require.NotEmpty(t, rule.Sample, "rule %d (%s) needs a sample", i, rule.UNNumber)
		require.True(t, rule.Pattern.MatchString(rule.Sample),
			"rule %d (%s): sample %q does not match its own pattern", i, rule.UNNumber, rule.Sample)

		matched := MatchDirectRule(rule.Sample)
		require.NotNil(t, matched)
		assert.Equal(t, rule.UNNumber, matched.UNNumber,
			"rule %d (%s): sample %q shadowed by an earlier rule (%s)", i, rule.UNNumber, rule.Sample, matched.UNNumber)
	}
}

func TestNonHazardRules_NonShadowing(t *testing.T) {
	rules := NonHazardRules()
	for i, rule := range rules {
		require.NotEmpty(t, rule.Sample, "rule %d needs a sample", i)
		require.True(t, rule.Pattern.MatchString(rule.Sample),
			"rule %d: sample %q does not match its own pattern", i, rule.Sample)

		for j := 0; j < i; j++ {
			assert.False(t, rules[j].Pattern.MatchString(rule.Sample),
				"rule %d sample %q shadowed by earlier rule %d", i, rule.Sample, j)
		}
	}
}

func TestMatchNonHazardRule_Thresholds(t *testing.T) {
	// At or below the threshold: exempt.
	normalized := Normalize("Acetic Acid 10%")
	rule := MatchNonHazardRule(normalized, DetectEntities(normalized))
	require.NotNil(t, rule)
	assert.Contains(t, rule.Reason, "10%")

	// Above the threshold: not exempt.
	normalized = Normalize("Acetic Acid 80%")
	assert.Nil(t, MatchNonHazardRule(normalized, DetectEntities(normalized)))

	// No explicit concentration: a threshold rule must not fire.
	normalized = Normalize("Acetic Acid")
	assert.Nil(t, MatchNonHazardRule(normalized, DetectEntities(normalized)))
}

func TestMatchNonHazardRule_Unconditional(t *testing.T) {
	normalized := Normalize("distilled water 1 gallon")
	rule := MatchNonHazardRule(normalized, DetectEntities(normalized))
	require.NotNil(t, rule)
}

func TestRuleResults_Shape(t *testing.T) {
	direct := MatchDirectRule("sulfuric acid")
	require.NotNil(t, direct)
	result := DirectRuleResult(direct)
	assert.Equal(t, "UN1830", result.UNNumber)
	assert.Equal(t, "8", result.HazardClass)
	assert.Equal(t, domain.PackingGroupII, result.PackingGroup)
	assert.Equal(t, DirectRuleConfidence, result.Confidence)
	assert.Equal(t, domain.SourceDirectRule, result.Source)

	normalized := Normalize("vinegar 5%")
	exempt := MatchNonHazardRule(normalized, DetectEntities(normalized))
	require.NotNil(t, exempt)
	nh := NonHazardResult(exempt)
	assert.Empty(t, nh.UNNumber)
	assert.Empty(t, nh.HazardClass)
	assert.Empty(t, nh.PackingGroup)
	assert.Equal(t, NonHazardConfidence, nh.Confidence)

	nm := NoMatchResult()
	assert.Empty(t, nm.UNNumber)
	assert.Equal(t, NoMatchConfidence, nm.Confidence)
}
