// Package formula models molecular sum formulas and the Seven Golden Rules
// plausibility filters applied to candidates produced from an accurate mass.
package formula

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

var (
	reChargedFormula = regexp.MustCompile(`^\[([A-Za-z0-9]+)\](\d*)([+-])$`)
	reFormula        = regexp.MustCompile(`^([A-Z][a-z]?\d*)+$`)
	reFormulaElement = regexp.MustCompile(`([A-Z][a-z]?)(\d*)`)
)

// MolecularFormula is an immutable element→count multiset plus a net charge.
// Absent elements have an implicit count of zero.
type MolecularFormula struct {
	counts map[string]int
	charge int
}

// NewMolecularFormula builds a formula from counts.  Zero counts are dropped;
// negative counts and elements without mass data are rejected.
func NewMolecularFormula(counts map[string]int, charge int) (*MolecularFormula, error) {
	f := &MolecularFormula{counts: make(map[string]int, len(counts)), charge: charge}
	for sym, n := range counts {
		if n < 0 {
			return nil, errors.New(errors.ErrCodeFormulaParseFailed, "element count must be non-negative").
				WithDetail(fmt.Sprintf("%s=%d", sym, n))
		}
		if !IsSupportedElement(sym) {
			return nil, errors.New(errors.ErrCodeElementUnsupported, "element has no mass data").WithDetail(sym)
		}
		if n > 0 {
			f.counts[sym] = n
		}
	}
	return f, nil
}

// ParseFormula parses Hill-like strings: "C6H6", "C2H5Cl", "CH3COOH" and the
// bracketed charged form "[C6H7N]+" or "[C5H5]2-".  Repeated elements are
// summed.
func ParseFormula(s string) (*MolecularFormula, error) {
	text := strings.TrimSpace(s)
	if text == "" {
		return nil, errors.New(errors.ErrCodeFormulaParseFailed, "formula is empty")
	}

	charge := 0
	if m := reChargedFormula.FindStringSubmatch(text); m != nil {
		text = m[1]
		magnitude := 1
		if m[2] != "" {
			v, err := strconv.Atoi(m[2])
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeFormulaParseFailed, "invalid charge").WithDetail(s)
			}
			magnitude = v
		}
		charge = magnitude
		if m[3] == "-" {
			charge = -magnitude
		}
	}

	if !reFormula.MatchString(text) {
		return nil, errors.New(errors.ErrCodeFormulaParseFailed, "formula syntax is invalid").WithDetail(s)
	}

	counts := make(map[string]int)
	for _, m := range reFormulaElement.FindAllStringSubmatch(text, -1) {
		n := 1
		if m[2] != "" {
			v, err := strconv.Atoi(m[2])
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeFormulaParseFailed, "invalid element count").WithDetail(s)
			}
			n = v
		}
		counts[m[1]] += n
	}
	return NewMolecularFormula(counts, charge)
}

// MustParseFormula is ParseFormula that panics on error.  Intended for
// constants and tests.
func MustParseFormula(s string) *MolecularFormula {
	f, err := ParseFormula(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Count returns the number of atoms of symbol (0 when absent).
func (f *MolecularFormula) Count(symbol string) int {
	if f == nil {
		return 0
	}
	return f.counts[symbol]
}

// Charge returns the net charge.
func (f *MolecularFormula) Charge() int {
	if f == nil {
		return 0
	}
	return f.charge
}

// Elements returns the symbols present, in alphabetical order.
func (f *MolecularFormula) Elements() []string {
	if f == nil {
		return nil
	}
	out := make([]string, 0, len(f.counts))
	for sym := range f.counts {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Counts returns a copy of the element counts.
func (f *MolecularFormula) Counts() map[string]int {
	if f == nil {
		return map[string]int{}
	}
	out := make(map[string]int, len(f.counts))
	for k, v := range f.counts {
		out[k] = v
	}
	return out
}

// IsEmpty reports whether the formula has no atoms.
func (f *MolecularFormula) IsEmpty() bool {
	return f == nil || len(f.counts) == 0
}

// AtomCount returns the total number of atoms.
func (f *MolecularFormula) AtomCount() int {
	if f == nil {
		return 0
	}
	total := 0
	for _, n := range f.counts {
		total += n
	}
	return total
}

// MonoisotopicMass returns the exact mass from the most abundant isotopes,
// corrected by the electron mass for the net charge.
func (f *MolecularFormula) MonoisotopicMass() float64 {
	if f == nil {
		return 0
	}
	mass := 0.0
	for sym, n := range f.counts {
		e, _ := LookupElement(sym)
		mass += float64(n) * e.Mass
	}
	return mass - float64(f.charge)*ElectronMass
}

// NominalMass returns the integer mass from nominal isotope masses.
func (f *MolecularFormula) NominalMass() int {
	if f == nil {
		return 0
	}
	mass := 0
	for sym, n := range f.counts {
		e, _ := LookupElement(sym)
		mass += n * e.NominalMass
	}
	return mass
}

// Equal reports whether both formulas have identical counts and charge.
func (f *MolecularFormula) Equal(other *MolecularFormula) bool {
	if f == nil || other == nil {
		return f == other
	}
	if f.charge != other.charge || len(f.counts) != len(other.counts) {
		return false
	}
	for sym, n := range f.counts {
		if other.counts[sym] != n {
			return false
		}
	}
	return true
}

// String renders Hill notation: C then H then the rest alphabetically, or
// fully alphabetical when there is no carbon.  Charged formulas are wrapped
// as "[...]n+".
func (f *MolecularFormula) String() string {
	if f == nil {
		return ""
	}
	var sb strings.Builder
	write := func(sym string) {
		n := f.counts[sym]
		if n == 0 {
			return
		}
		sb.WriteString(sym)
		if n > 1 {
			sb.WriteString(strconv.Itoa(n))
		}
	}

	syms := f.Elements()
	if f.counts["C"] > 0 {
		write("C")
		write("H")
		for _, sym := range syms {
			if sym != "C" && sym != "H" {
				write(sym)
			}
		}
	} else {
		for _, sym := range syms {
			write(sym)
		}
	}

	if f.charge == 0 {
		return sb.String()
	}
	sign := "+"
	magnitude := f.charge
	if magnitude < 0 {
		sign = "-"
		magnitude = -magnitude
	}
	if magnitude == 1 {
		return "[" + sb.String() + "]" + sign
	}
	return "[" + sb.String() + "]" + strconv.Itoa(magnitude) + sign
}

//Personal.AI order the ending
