package pipeline

import "strings"

// synonymClusters maps a canonical chemical name to trade and archaic names
// that appear on freight paperwork. Matching any member of a cluster appends
// the whole cluster to the expanded query.
var synonymClusters = [][]string{
	{"sulfuric acid", "oleum", "oil of vitriol", "battery acid"},
	{"hydrochloric acid", "muriatic acid", "spirits of salt"},
	{"sodium hydroxide", "caustic soda", "lye", "soda lye"},
	{"potassium hydroxide", "caustic potash", "potash lye"},
	{"nitric acid", "aqua fortis"},
	{"acetic acid", "ethanoic acid", "vinegar acid"},
	{"ethanol", "ethyl alcohol", "grain alcohol", "spirits"},
	{"methanol", "methyl alcohol", "wood alcohol", "methyl spirits"},
	{"isopropyl alcohol", "isopropanol", "rubbing alcohol", "ipa"},
	{"acetone", "propanone", "dimethyl ketone"},
	{"hydrogen peroxide", "peroxide solution"},
	{"sodium hypochlorite", "bleach", "chlorine bleach"},
	{"ammonium hydroxide", "ammonia solution", "aqua ammonia"},
	{"kerosene", "paraffin oil", "lamp oil"},
	{"gasoline", "petrol", "motor spirit"},
	{"diesel", "diesel fuel", "gas oil"},
	{"toluene", "toluol", "methylbenzene"},
	{"xylene", "xylol", "dimethylbenzene"},
	{"formaldehyde", "formalin", "methanal"},
	{"calcium hypochlorite", "pool chlorine", "pool shock"},
}

// SynonymTerms returns the members of every cluster touched by the text,
// excluding terms already present.
func SynonymTerms(text string) []string {
	var out []string
	for _, cluster := range synonymClusters {
		matched := false
		for _, term := range cluster {
			if strings.Contains(text, term) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		for _, term := range cluster {
			if !strings.Contains(text, term) {
				out = append(out, term)
			}
		}
	}
	return out
}
