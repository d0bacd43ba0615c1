package formula

import "sort"

// ElectronMass is the rest mass of an electron in unified atomic mass units.
const ElectronMass = 0.00054857990946

// Element carries the per-element constants the rules and the generator need:
// monoisotopic mass of the most abundant isotope, its nominal (integer) mass
// and the lowest common valence used for ring/double-bond equivalents.
type Element struct {
	Symbol      string
	Mass        float64
	NominalMass int
	Valence     int
}

var elementTable = map[string]Element{
	"H":  {Symbol: "H", Mass: 1.00782503207, NominalMass: 1, Valence: 1},
	"B":  {Symbol: "B", Mass: 11.0093054, NominalMass: 11, Valence: 3},
	"C":  {Symbol: "C", Mass: 12.0, NominalMass: 12, Valence: 4},
	"N":  {Symbol: "N", Mass: 14.0030740048, NominalMass: 14, Valence: 3},
	"O":  {Symbol: "O", Mass: 15.99491461956, NominalMass: 16, Valence: 2},
	"F":  {Symbol: "F", Mass: 18.99840322, NominalMass: 19, Valence: 1},
	"Na": {Symbol: "Na", Mass: 22.9897692809, NominalMass: 23, Valence: 1},
	"Si": {Symbol: "Si", Mass: 27.9769265325, NominalMass: 28, Valence: 4},
	"P":  {Symbol: "P", Mass: 30.97376163, NominalMass: 31, Valence: 3},
	"S":  {Symbol: "S", Mass: 31.97207100, NominalMass: 32, Valence: 2},
	"Cl": {Symbol: "Cl", Mass: 34.96885268, NominalMass: 35, Valence: 1},
	"K":  {Symbol: "K", Mass: 38.96370668, NominalMass: 39, Valence: 1},
	"Se": {Symbol: "Se", Mass: 79.9165213, NominalMass: 80, Valence: 2},
	"Br": {Symbol: "Br", Mass: 78.9183371, NominalMass: 79, Valence: 1},
	"I":  {Symbol: "I", Mass: 126.904473, NominalMass: 127, Valence: 1},
}

// LookupElement returns the constants for symbol.
func LookupElement(symbol string) (Element, bool) {
	e, ok := elementTable[symbol]
	return e, ok
}

// IsSupportedElement reports whether symbol has mass data.
func IsSupportedElement(symbol string) bool {
	_, ok := elementTable[symbol]
	return ok
}

// SupportedElements returns every known symbol in alphabetical order.
func SupportedElements() []string {
	out := make([]string, 0, len(elementTable))
	for sym := range elementTable {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

//Personal.AI order the ending
