package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"hazmat-classifier/internal/domain"
)

var (
	punctRe      = regexp.MustCompile(`[^a-z0-9%. ]+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	percentRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	unNumberRe   = regexp.MustCompile(`\bun\s*(\d{3,4})\b`)
	proofRe      = regexp.MustCompile(`(\d+(?:\.\d+)?)[\s-]*proof\b`)

	// Container and packaging tokens carry no chemical signal and pull
	// vector matches toward unrelated entries that mention packaging.
	containerRe = regexp.MustCompile(`\b\d+(?:\.\d+)?\s*(?:gallon|gal|liter|litre|l|ml|quart|qt|oz|ounce|lb|pound|kg|g)s?\b`)
	packagingRe = regexp.MustCompile(`\b(?:drum|drums|pail|pails|tote|totes|carboy|carboys|ibc|jug|jugs|bottle|bottles|can|cans|case|cases|box|boxes|bag|bags|container|containers|cylinder|cylinders)\b`)
)

// Normalize lowercases, strips punctuation except percent signs and
// intra-number decimal points, and collapses whitespace.
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = punctRe.ReplaceAllString(s, " ")
	s = stripStrayDots(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripStrayDots keeps a '.' only when it sits between two digits.
func stripStrayDots(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			prevDigit := i > 0 && s[i-1] >= '0' && s[i-1] <= '9'
			nextDigit := i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9'
			if !prevDigit || !nextDigit {
				b.WriteByte(' ')
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// DetectEntities extracts percentages, UN-number literals, and proof values.
func DetectEntities(normalized string) domain.QueryEntities {
	var ents domain.QueryEntities

	for _, m := range percentRe.FindAllStringSubmatch(normalized, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			ents.Percentages = append(ents.Percentages, v)
		}
	}
	for _, m := range unNumberRe.FindAllStringSubmatch(normalized, -1) {
		ents.UNNumbers = append(ents.UNNumbers, "UN"+m[1])
	}
	for _, m := range proofRe.FindAllStringSubmatch(normalized, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			ents.Proofs = append(ents.Proofs, v)
		}
	}
	return ents
}

// StripContainers removes packaging size and vessel tokens, producing the
// chemical-only query variant preferred for exact-name matching.
func StripContainers(normalized string) string {
	s := containerRe.ReplaceAllString(normalized, " ")
	s = packagingRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ProofToPercent converts a US proof value to an approximate volume
// percentage, rounded to one decimal.
func ProofToPercent(proof float64) float64 {
	pct := proof / 2
	return float64(int(pct*10+0.5)) / 10
}

// BuildQueryContext runs the full query processing pass: normalization,
// entity extraction, container stripping, synonym expansion, and family
// detection.
func BuildQueryContext(raw string) domain.QueryContext {
	normalized := Normalize(raw)
	entities := DetectEntities(normalized)
	chemicalOnly := StripContainers(normalized)

	expanded := chemicalOnly
	if terms := SynonymTerms(chemicalOnly); len(terms) > 0 {
		expanded = expanded + " " + strings.Join(terms, " ")
	}
	// Append the proof-derived percentage so concentration-aware matching
	// can fire on proof-labeled spirits.
	for _, proof := range entities.Proofs {
		pct := ProofToPercent(proof)
		expanded = expanded + " " + formatPercent(pct)
		entities.Percentages = append(entities.Percentages, pct)
	}

	return domain.QueryContext{
		RawText:      raw,
		Normalized:   normalized,
		ChemicalOnly: chemicalOnly,
		Expanded:     expanded,
		Entities:     entities,
		Family:       DetectFamily(chemicalOnly),
	}
}

func formatPercent(pct float64) string {
	if pct == float64(int(pct)) {
		return strconv.Itoa(int(pct)) + "%"
	}
	return fmt.Sprintf("%.1f%%", pct)
}
