package pipeline

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"hazmat-classifier/internal/domain"
)

// Rerank boost/penalty weights. Hybrid scores live roughly in [0,1], so the
// adjustments are sized to reorder close candidates without letting a weak
// match leapfrog a strong one.
const (
	exactNameBoost    = 0.30
	verifiedBoost     = 0.15
	regulatoryBoost   = 0.10
	emergencyBoost    = 0.02
	numericMatchBoost = 0.15
	confusablePenalty = 0.20

	// A query and candidate concentration within this band count as the
	// same concentration grade.
	percentTolerance = 2.5
)

// confusablePair penalizes a candidate family that embeds close to the
// query family but maps to a different regulation entry.
type confusablePair struct {
	queryPattern     *regexp.Regexp
	candidatePattern *regexp.Regexp
}

var confusablePairs = []confusablePair{
	// Petroleum ether is a light naphtha (PG I), nothing like kerosene.
	{regexp.MustCompile(`\bkerosene\b`), regexp.MustCompile(`petroleum ether`)},
	// Fuming acid entries outrank plain acid solutions on similarity alone.
	{regexp.MustCompile(`\bsulfuric acid\b`), regexp.MustCompile(`fuming|oleum`)},
	{regexp.MustCompile(`\bnitric acid\b`), regexp.MustCompile(`fuming|red fuming`)},
	// Methanol vs ethanol: one ngram apart, different UN entries.
	{regexp.MustCompile(`\bethanol\b|\bethyl alcohol\b`), regexp.MustCompile(`\bmethanol\b|\bmethyl alcohol\b`)},
	{regexp.MustCompile(`\bmethanol\b|\bmethyl alcohol\b`), regexp.MustCompile(`\bethanol\b|\bethyl alcohol\b`)},
	// Hypochlorite solution vs dry calcium hypochlorite: different class.
	{regexp.MustCompile(`\bbleach\b|\bhypochlorite solution\b`), regexp.MustCompile(`calcium hypochlorite`)},
}

var candidatePercentRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)

// Rerank applies substance-specific tie-break heuristics to the hybrid
// search results and re-sorts. The fuming-query exception: when the query
// itself asks for the fuming/oleum grade, the confusable penalty must not
// fire against it.
func Rerank(qc domain.QueryContext, candidates []ScoredCandidate) []ScoredCandidate {
	out := make([]ScoredCandidate, len(candidates))
	copy(out, candidates)

	for i := range out {
		out[i].Score += adjustment(qc, out[i].Entry)
	}

	return SortCandidates(out)
}

func adjustment(qc domain.QueryContext, entry domain.CandidateEntry) float64 {
	var adj float64

	if baseName := strings.ToLower(entry.Metadata.BaseName); baseName != "" && baseName == qc.ChemicalOnly {
		adj += exactNameBoost
	}

	switch entry.Source {
	case domain.SourceVerifiedProduct:
		adj += verifiedBoost
	case domain.SourceRegulatoryTable:
		adj += regulatoryBoost
	case domain.SourceEmergencyGuide:
		adj += emergencyBoost
	}

	candidateText := strings.ToLower(entry.Text + " " + entry.Metadata.Qualifier)
	for _, pair := range confusablePairs {
		if pair.queryPattern.MatchString(qc.ChemicalOnly) &&
			pair.candidatePattern.MatchString(candidateText) &&
			!pair.candidatePattern.MatchString(qc.ChemicalOnly) {
			adj -= confusablePenalty
		}
	}

	if percentMatches(qc.Entities.Percentages, candidateText) {
		adj += numericMatchBoost
	}

	return adj
}

// percentMatches reports whether any detected query concentration lands
// within tolerance of a concentration written into the candidate text.
func percentMatches(queryPercents []float64, candidateText string) bool {
	if len(queryPercents) == 0 {
		return false
	}
	matches := candidatePercentRe.FindAllStringSubmatch(candidateText, -1)
	if len(matches) == 0 {
		return false
	}
	for _, qp := range queryPercents {
		for _, m := range matches {
			cp, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			if math.Abs(qp-cp) <= percentTolerance {
				return true
			}
		}
	}
	return false
}
