package rules

import "github.com/rotisserie/eris"

// DomainCORINE names the CORINE land-cover nomenclature for which a built-in
// suitability table exists.
const DomainCORINE = "corine"

// corineSuitability scores recreation suitability for CORINE land-cover
// classes 1-45. Index 0 is class 1.
var corineSuitability = []float64{
	0, 0.1, 0, 0, 0, 0, 0, 0, 0, 1,
	0.1, 0.3, 0.3, 0.4, 0.5, 0.5, 0.5, 0.6, 0.3, 0.3,
	0.6, 0.6, 1, 0.8, 1, 0.8, 0.8, 0.8, 0.8, 1,
	0.8, 0.7, 0, 0.8, 1, 0.8, 1, 0.8, 1, 1,
	1, 1, 0.8, 1, 0.3,
}

// BuiltinTable returns the built-in score table for a named input domain.
func BuiltinTable(domain string) (*Table, error) {
	switch domain {
	case DomainCORINE:
		return corineTable(), nil
	}
	return nil, eris.Errorf("rules: no built-in table for domain %q", domain)
}

func corineTable() *Table {
	t := &Table{rules: make([]Rule, 0, len(corineSuitability))}
	for i, score := range corineSuitability {
		class := float64(i + 1)
		t.rules = append(t.rules, Rule{Min: class, Max: class, Score: score, AltScore: score, HasAlt: true})
	}
	return t
}
