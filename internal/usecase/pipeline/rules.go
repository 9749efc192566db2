package pipeline

import (
	"fmt"
	"regexp"

	"hazmat-classifier/internal/domain"
)

// Confidence constants for the rule layer. Rules are auditable and curated,
// so they carry a fixed high confidence; the unmatched floor marks "searched
// but nothing close".
const (
	DirectRuleConfidence = 0.92
	NonHazardConfidence  = 0.95
	NoMatchConfidence    = 0.1
)

// DirectRule maps a product-name pattern straight to a regulatory entry,
// bypassing retrieval. The table is ordered and first match wins, so more
// specific patterns (a "drain cleaner" qualifier) must precede the generic
// substance patterns that would otherwise mask them.
type DirectRule struct {
	Pattern      *regexp.Regexp
	Sample       string // canonical matching input, used by the non-shadowing test
	UNNumber     string
	ShippingName string
	HazardClass  string
	PackingGroup domain.PackingGroup
	ERGGuide     string
}

var directRules = []DirectRule{
	{
		Pattern:      regexp.MustCompile(`\bdrain (cleaner|opener)\b`),
		Sample:       "sulfuric acid drain cleaner",
		UNNumber:     "UN1760",
		ShippingName: "Corrosive liquid, n.o.s.",
		HazardClass:  "8",
		PackingGroup: domain.PackingGroupII,
		ERGGuide:     "154",
	},
	{
		Pattern:      regexp.MustCompile(`\b(fuming sulfuric|oleum)\b`),
		Sample:       "oleum",
		UNNumber:     "UN1831",
		ShippingName: "Sulfuric acid, fuming",
		HazardClass:  "8",
		PackingGroup: domain.PackingGroupI,
		ERGGuide:     "137",
	},
	{
		Pattern:      regexp.MustCompile(`\b(sulfuric acid|battery acid|oil of vitriol)\b`),
		Sample:       "sulfuric acid",
		UNNumber:     "UN1830",
		ShippingName: "Sulfuric acid",
		HazardClass:  "8",
		PackingGroup: domain.PackingGroupII,
		ERGGuide:     "137",
	},
	{
		Pattern:      regexp.MustCompile(`\b(hydrochloric|muriatic) acid\b`),
		Sample:       "hydrochloric acid",
		UNNumber:     "UN1789",
		ShippingName: "Hydrochloric acid",
		HazardClass:  "8",
		PackingGroup: domain.PackingGroupII,
		ERGGuide:     "157",
	},
	{
		Pattern:      regexp.MustCompile(`\b(nitric acid|aqua fortis)\b`),
		Sample:       "nitric acid",
		UNNumber:     "UN2031",
		ShippingName: "Nitric acid",
		HazardClass:  "8",
		PackingGroup: domain.PackingGroupII,
		ERGGuide:     "157",
	},
	{
		Pattern:      regexp.MustCompile(`\bphosphoric acid\b`),
		Sample:       "phosphoric acid",
		UNNumber:     "UN1805",
		ShippingName: "Phosphoric acid solution",
		HazardClass:  "8",
		PackingGroup: domain.PackingGroupIII,
		ERGGuide:     "154",
	},
	{
		Pattern:      regexp.MustCompile(`\b(glacial acetic|acetic acid)\b`),
		Sample:       "acetic acid",
		UNNumber:     "UN2789",
		ShippingName: "Acetic acid, glacial",
		HazardClass:  "8",
		PackingGroup: domain.PackingGroupII,
		ERGGuide:     "132",
	},
	{
		Pattern:      regexp.MustCompile(`\b(sodium hydroxide|caustic soda|soda lye)\b`),
		Sample:       "sodium hydroxide",
		UNNumber:     "UN1824",
		ShippingName: "Sodium hydroxide solution",
		HazardClass:  "8",
		PackingGroup: domain.PackingGroupII,
		ERGGuide:     "154",
	},
	{
		Pattern:      regexp.MustCompile(`\b(potassium hydroxide|caustic potash)\b`),
		Sample:       "potassium hydroxide",
		UNNumber:     "UN1814",
		ShippingName: "Potassium hydroxide solution",
		HazardClass:  "8",
		PackingGroup: domain.PackingGroupII,
		ERGGuide:     "154",
	},
	{
		Pattern:      regexp.MustCompile(`\b(ammonium hydroxide|ammonia solution|aqua ammonia)\b`),
		Sample:       "ammonium hydroxide",
		UNNumber:     "UN2672",
		ShippingName: "Ammonia solution",
		HazardClass:  "8",
		PackingGroup: domain.PackingGroupIII,
		ERGGuide:     "154",
	},
	{
		Pattern:      regexp.MustCompile(`\b(sodium hypochlorite|chlorine bleach)\b`),
		Sample:       "sodium hypochlorite",
		UNNumber:     "UN1791",
		ShippingName: "Hypochlorite solution",
		HazardClass:  "8",
		PackingGroup: domain.PackingGroupIII,
		ERGGuide:     "154",
	},
	{
		Pattern:      regexp.MustCompile(`\bhydrogen peroxide\b`),
		Sample:       "hydrogen peroxide",
		UNNumber:     "UN2014",
		ShippingName: "Hydrogen peroxide, aqueous solution",
		HazardClass:  "5.1",
		PackingGroup: domain.PackingGroupII,
		ERGGuide:     "140",
	},
	{
		Pattern:      regexp.MustCompile(`\b(acetone|propanone|dimethyl ketone)\b`),
		Sample:       "acetone",
		UNNumber:     "UN1090",
		ShippingName: "Acetone",
		HazardClass:  "3",
		PackingGroup: domain.PackingGroupII,
		ERGGuide:     "127",
	},
	{
		Pattern:      regexp.MustCompile(`\b(toluene|toluol)\b`),
		Sample:       "toluene",
		UNNumber:     "UN1294",
		ShippingName: "Toluene",
		HazardClass:  "3",
		PackingGroup: domain.PackingGroupII,
		ERGGuide:     "130",
	},
	{
		Pattern:      regexp.MustCompile(`\b(xylene|xylol)\b`),
		Sample:       "xylene",
		UNNumber:     "UN1307",
		ShippingName: "Xylenes",
		HazardClass:  "3",
		PackingGroup: domain.PackingGroupIII,
		ERGGuide:     "130",
	},
	{
		Pattern:      regexp.MustCompile(`\b(methanol|methyl alcohol|wood alcohol)\b`),
		Sample:       "methanol",
		UNNumber:     "UN1230",
		ShippingName: "Methanol",
		HazardClass:  "3",
		PackingGroup: domain.PackingGroupII,
		ERGGuide:     "131",
	},
	{
		Pattern:      regexp.MustCompile(`\b(isopropyl alcohol|isopropanol|rubbing alcohol)\b`),
		Sample:       "isopropyl alcohol",
		UNNumber:     "UN1219",
		ShippingName: "Isopropanol",
		HazardClass:  "3",
		PackingGroup: domain.PackingGroupII,
		ERGGuide:     "129",
	},
	{
		Pattern:      regexp.MustCompile(`\b(gasoline|petrol|motor spirit)\b`),
		Sample:       "gasoline",
		UNNumber:     "UN1203",
		ShippingName: "Gasoline",
		HazardClass:  "3",
		PackingGroup: domain.PackingGroupII,
		ERGGuide:     "128",
	},
	{
		Pattern:      regexp.MustCompile(`\bkerosene\b`),
		Sample:       "kerosene",
		UNNumber:     "UN1223",
		ShippingName: "Kerosene",
		HazardClass:  "3",
		PackingGroup: domain.PackingGroupIII,
		ERGGuide:     "128",
	},
	{
		Pattern:      regexp.MustCompile(`\bdiesel\b`),
		Sample:       "diesel",
		UNNumber:     "UN1202",
		ShippingName: "Diesel fuel",
		HazardClass:  "3",
		PackingGroup: domain.PackingGroupIII,
		ERGGuide:     "128",
	},
	{
		Pattern:      regexp.MustCompile(`\b(formaldehyde|formalin)\b`),
		Sample:       "formaldehyde",
		UNNumber:     "UN2209",
		ShippingName: "Formaldehyde solution",
		HazardClass:  "8",
		PackingGroup: domain.PackingGroupIII,
		ERGGuide:     "132",
	},
	{
		Pattern:      regexp.MustCompile(`\bcalcium hypochlorite\b|\bpool (chlorine|shock)\b`),
		Sample:       "calcium hypochlorite",
		UNNumber:     "UN1748",
		ShippingName: "Calcium hypochlorite, dry",
		HazardClass:  "5.1",
		PackingGroup: domain.PackingGroupII,
		ERGGuide:     "140",
	},
}

// NonHazardRule exempts a substance from regulation, optionally only below
// a concentration threshold. Also an ordered, first-match-wins table.
type NonHazardRule struct {
	Pattern    *regexp.Regexp
	Sample     string
	MaxPercent float64 // 0 means no concentration condition
	Reason     string
}

var nonHazardRules = []NonHazardRule{
	{
		Pattern:    regexp.MustCompile(`\b(vinegar|acetic acid)\b`),
		Sample:     "acetic acid 5%",
		MaxPercent: 10,
		Reason:     "acetic acid solutions at or below 10% are not regulated for transport",
	},
	{
		Pattern:    regexp.MustCompile(`\bhydrogen peroxide\b`),
		Sample:     "hydrogen peroxide 3%",
		MaxPercent: 8,
		Reason:     "hydrogen peroxide solutions below 8% are not regulated for transport",
	},
	{
		Pattern:    regexp.MustCompile(`\b(ammonium hydroxide|ammonia solution|aqua ammonia|household ammonia)\b`),
		Sample:     "household ammonia 5%",
		MaxPercent: 10,
		Reason:     "ammonia solutions at or below 10% are not regulated for transport",
	},
	{
		Pattern:    regexp.MustCompile(`\b(ethanol|ethyl alcohol|isopropyl alcohol|isopropanol|alcohol|wine|beer)\b`),
		Sample:     "wine 12%",
		MaxPercent: 24,
		Reason:     "aqueous alcohol solutions at or below 24% by volume are not regulated",
	},
	{
		Pattern: regexp.MustCompile(`\b(distilled water|deionized water|saline( solution)?)\b`),
		Sample:  "distilled water",
		Reason:  "water and saline carry no transport hazard",
	},
	{
		Pattern: regexp.MustCompile(`\b(dish soap|hand soap|laundry detergent|fabric softener)\b`),
		Sample:  "dish soap",
		Reason:  "household cleaning surfactants are not regulated for transport",
	},
	{
		Pattern: regexp.MustCompile(`\b(vegetable oil|olive oil|canola oil|mineral oil)\b`),
		Sample:  "vegetable oil",
		Reason:  "food and mineral oils are not regulated for transport",
	},
	{
		Pattern: regexp.MustCompile(`\bwindshield washer fluid\b`),
		Sample:  "windshield washer fluid 3%",
		// Concentrated washer fluid is methanol-based and regulated, so the
		// threshold keeps winter formulas out of the exemption.
		MaxPercent: 5,
		Reason:     "diluted washer fluid at or below 5% methanol is not regulated",
	},
}

// MatchDirectRule returns the first direct rule matching the normalized
// query, or nil.
func MatchDirectRule(normalized string) *DirectRule {
	for i := range directRules {
		if directRules[i].Pattern.MatchString(normalized) {
			return &directRules[i]
		}
	}
	return nil
}

// MatchNonHazardRule returns the first exemption rule applicable to the
// query. A rule with a concentration threshold applies only when the query
// carries an explicit percentage at or below the threshold.
func MatchNonHazardRule(normalized string, entities domain.QueryEntities) *NonHazardRule {
	for i := range nonHazardRules {
		rule := &nonHazardRules[i]
		if !rule.Pattern.MatchString(normalized) {
			continue
		}
		if rule.MaxPercent == 0 {
			return rule
		}
		if len(entities.Percentages) == 0 {
			continue
		}
		within := true
		for _, pct := range entities.Percentages {
			if pct > rule.MaxPercent {
				within = false
				break
			}
		}
		if within {
			return rule
		}
	}
	return nil
}

// DirectRules exposes the ordered rule table for order-contract tests.
func DirectRules() []DirectRule { return directRules }

// NonHazardRules exposes the ordered exemption table for order-contract tests.
func NonHazardRules() []NonHazardRule { return nonHazardRules }

// Classify-side helpers to turn a rule hit into a terminal result.

func DirectRuleResult(rule *DirectRule) domain.Classification {
	return domain.Classification{
		UNNumber:           rule.UNNumber,
		ProperShippingName: rule.ShippingName,
		HazardClass:        rule.HazardClass,
		PackingGroup:       rule.PackingGroup,
		ERGGuide:           rule.ERGGuide,
		Confidence:         DirectRuleConfidence,
		Source:             domain.SourceDirectRule,
		Explanation:        fmt.Sprintf("matched curated rule for %s (%s)", rule.ShippingName, rule.UNNumber),
		Citations:          []string{"rule:" + rule.UNNumber},
	}
}

func NonHazardResult(rule *NonHazardRule) domain.Classification {
	return domain.Classification{
		Confidence:  NonHazardConfidence,
		Source:      domain.SourceNonHazardRule,
		Explanation: "not regulated: " + rule.Reason,
	}
}

func NoMatchResult() domain.Classification {
	return domain.Classification{
		Confidence:  NoMatchConfidence,
		Source:      domain.SourceNoMatch,
		Explanation: "no sufficiently close match in the regulatory knowledge base",
	}
}
