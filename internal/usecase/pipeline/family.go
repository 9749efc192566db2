package pipeline

import (
	"regexp"

	"hazmat-classifier/internal/domain"
)

// familyRule derives a structural pre-filter from the query. The table is
// ordered and first match wins: more specific families must precede the
// generic ones they would otherwise shadow.
type familyRule struct {
	family       string
	queryPattern *regexp.Regexp
	// sample is a canonical query fragment that matches queryPattern,
	// used by the non-shadowing test.
	sample             string
	baseNamePattern    string
	hazardClassPattern string
}

var familyRules = []familyRule{
	{
		family:          "peroxide",
		queryPattern:    regexp.MustCompile(`\bperoxide\b`),
		sample:          "hydrogen peroxide",
		baseNamePattern: `peroxide`,
	},
	{
		family:             "hypochlorite",
		queryPattern:       regexp.MustCompile(`\b(hypochlorite|bleach|pool (chlorine|shock))\b`),
		sample:             "sodium hypochlorite",
		baseNamePattern:    `hypochlorite`,
		hazardClassPattern: `^(5\.1|8)`,
	},
	{
		family:             "acid",
		queryPattern:       regexp.MustCompile(`\b(acid|oleum|vitriol|muriatic|aqua fortis)\b`),
		sample:             "sulfuric acid",
		baseNamePattern:    `acid|oleum`,
		hazardClassPattern: `^8`,
	},
	{
		family:             "caustic",
		queryPattern:       regexp.MustCompile(`\b(hydroxide|caustic|lye|potash)\b`),
		sample:             "sodium hydroxide",
		baseNamePattern:    `hydroxide|caustic`,
		hazardClassPattern: `^8`,
	},
	{
		family:             "oxidizer",
		queryPattern:       regexp.MustCompile(`\b(nitrate|chlorate|perchlorate|permanganate|oxidizer)\b`),
		sample:             "ammonium nitrate",
		baseNamePattern:    `nitrate|chlorate|perchlorate|permanganate|oxidiz`,
		hazardClassPattern: `^5`,
	},
	{
		family:             "alcohol",
		queryPattern:       regexp.MustCompile(`\b(alcohol|ethanol|methanol|isopropanol|isopropyl|ipa|spirits|proof)\b`),
		sample:             "isopropyl alcohol",
		baseNamePattern:    `alcohol|ethanol|methanol|isopropanol`,
		hazardClassPattern: `^3`,
	},
	{
		family:             "petroleum",
		queryPattern:       regexp.MustCompile(`\b(kerosene|gasoline|petrol|diesel|naphtha|petroleum|fuel oil)\b`),
		sample:             "kerosene",
		baseNamePattern:    `kerosene|gasoline|petrol|diesel|naphtha|petroleum|fuel`,
		hazardClassPattern: `^3`,
	},
	{
		family:             "solvent",
		queryPattern:       regexp.MustCompile(`\b(acetone|toluene|xylene|ketone|thinner|solvent)\b`),
		sample:             "acetone",
		baseNamePattern:    `acetone|toluene|xylene|ketone|solvent|thinner`,
		hazardClassPattern: `^3`,
	},
}

// DetectFamily returns the gating filter for the first matching family
// rule, or nil when no family matches (full, ungated search).
func DetectFamily(text string) *domain.FamilyFilter {
	for _, rule := range familyRules {
		if rule.queryPattern.MatchString(text) {
			return &domain.FamilyFilter{
				Family:             rule.family,
				BaseNamePattern:    rule.baseNamePattern,
				HazardClassPattern: rule.hazardClassPattern,
			}
		}
	}
	return nil
}
