package formula

import (
	"fmt"
	"sort"
	"strings"

	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// ElementRange is an inclusive [Min, Max] atom-count window.
type ElementRange struct {
	Min int `json:"min" yaml:"min" mapstructure:"min"`
	Max int `json:"max" yaml:"max" mapstructure:"max"`
}

// FormulaRange bounds the atom count of every element a generator may use or
// an ElementRule accepts.
type FormulaRange struct {
	ranges map[string]ElementRange
}

// NewFormulaRange returns an empty range set.
func NewFormulaRange() *FormulaRange {
	return &FormulaRange{ranges: make(map[string]ElementRange)}
}

// DefaultGeneratorRange is the element window used for candidate generation
// when none is configured.
func DefaultGeneratorRange() *FormulaRange {
	r := NewFormulaRange()
	_ = r.Add("C", 0, 50)
	_ = r.Add("H", 0, 100)
	_ = r.Add("N", 0, 20)
	_ = r.Add("O", 0, 20)
	_ = r.Add("P", 0, 5)
	_ = r.Add("S", 0, 5)
	return r
}

// DefaultElementRuleRange is the element window ElementRule checks against
// when none is configured.
func DefaultElementRuleRange() *FormulaRange {
	r := NewFormulaRange()
	_ = r.Add("C", 0, 50)
	_ = r.Add("H", 0, 50)
	_ = r.Add("N", 0, 50)
	_ = r.Add("O", 0, 50)
	return r
}

// Add registers (or replaces) the window for symbol.
func (r *FormulaRange) Add(symbol string, min, max int) error {
	if !IsSupportedElement(symbol) {
		return errors.New(errors.ErrCodeElementUnsupported, "element has no mass data").WithDetail(symbol)
	}
	if min < 0 || max < min {
		return errors.InvalidParam("element range must satisfy 0 <= min <= max").
			WithDetail(fmt.Sprintf("%s=[%d,%d]", symbol, min, max))
	}
	r.ranges[symbol] = ElementRange{Min: min, Max: max}
	return nil
}

// Range returns the window for symbol.
func (r *FormulaRange) Range(symbol string) (ElementRange, bool) {
	if r == nil {
		return ElementRange{}, false
	}
	er, ok := r.ranges[symbol]
	return er, ok
}

// Elements returns the symbols with a window, alphabetically.
func (r *FormulaRange) Elements() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.ranges))
	for sym := range r.ranges {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of elements with a window.
func (r *FormulaRange) Len() int {
	if r == nil {
		return 0
	}
	return len(r.ranges)
}

// String renders "C[0-50] H[0-100] ..." in alphabetical order.
func (r *FormulaRange) String() string {
	parts := make([]string, 0, r.Len())
	for _, sym := range r.Elements() {
		er := r.ranges[sym]
		parts = append(parts, fmt.Sprintf("%s[%d-%d]", sym, er.Min, er.Max))
	}
	return strings.Join(parts, " ")
}

// FormulaRangeFromMap builds a range set from configuration.  Symbols are
// canonicalised first, since configuration loaders may lower-case keys.
func FormulaRangeFromMap(m map[string]ElementRange) (*FormulaRange, error) {
	r := NewFormulaRange()
	for sym, er := range m {
		if err := r.Add(CanonicalSymbol(sym), er.Min, er.Max); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// CanonicalSymbol upper-cases the first letter of an element symbol and
// lower-cases the rest: "cl" → "Cl".
func CanonicalSymbol(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

//Personal.AI order the ending
