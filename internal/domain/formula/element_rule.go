package formula

import (
	"fmt"
	"sync/atomic"

	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// ElementRule accepts a formula only when every element it contains has a
// window in the configured FormulaRange and its count lies inside that window.
// Elements of the range that the formula lacks must allow a count of zero.
type ElementRule struct {
	rng atomic.Pointer[FormulaRange]
}

// NewElementRule returns a rule over rng, or DefaultElementRuleRange when rng
// is nil.
func NewElementRule(rng *FormulaRange) *ElementRule {
	r := &ElementRule{}
	if rng != nil {
		r.rng.Store(rng)
	}
	return r
}

// Name implements Rule.
func (r *ElementRule) Name() string { return RuleNameElement }

// SetParameters expects a single *FormulaRange.
func (r *ElementRule) SetParameters(params ...interface{}) error {
	if len(params) != 1 {
		return errors.InvalidConfiguration("element rule expects exactly 1 parameter").
			WithDetail(fmt.Sprintf("got %d", len(params)))
	}
	rng, ok := params[0].(*FormulaRange)
	if !ok || rng == nil {
		return errors.InvalidConfiguration("element rule parameter must be a non-nil *FormulaRange").
			WithDetail(fmt.Sprintf("%T", params[0]))
	}
	r.rng.Store(rng)
	return nil
}

// Parameters implements ConfigurableRule.
func (r *ElementRule) Parameters() []interface{} {
	return []interface{}{r.formulaRange()}
}

func (r *ElementRule) formulaRange() *FormulaRange {
	if rng := r.rng.Load(); rng != nil {
		return rng
	}
	return DefaultElementRuleRange()
}

// Validate implements Rule.
func (r *ElementRule) Validate(f *MolecularFormula) float64 {
	if f == nil {
		return ScoreFail
	}
	rng := r.formulaRange()
	for _, sym := range f.Elements() {
		er, ok := rng.Range(sym)
		if !ok {
			return ScoreFail
		}
		if n := f.Count(sym); n < er.Min || n > er.Max {
			return ScoreFail
		}
	}
	for _, sym := range rng.Elements() {
		er, _ := rng.Range(sym)
		if f.Count(sym) == 0 && er.Min > 0 {
			return ScoreFail
		}
	}
	return ScorePass
}

//Personal.AI order the ending
