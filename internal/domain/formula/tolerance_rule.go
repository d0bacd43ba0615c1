package formula

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// DefaultTolerance is the mass window, in Da, used when none is configured.
const DefaultTolerance = 0.05

type massWindow struct {
	mass, tolerance float64
}

// ToleranceRangeRule accepts formulas whose monoisotopic mass is within
// tolerance of a reference mass.
type ToleranceRangeRule struct {
	window atomic.Pointer[massWindow]
}

// NewToleranceRangeRule returns a rule centred on mass.
func NewToleranceRangeRule(mass, tolerance float64) (*ToleranceRangeRule, error) {
	r := &ToleranceRangeRule{}
	if err := r.SetParameters(mass, tolerance); err != nil {
		return nil, err
	}
	return r, nil
}

// Name implements Rule.
func (r *ToleranceRangeRule) Name() string { return RuleNameToleranceRange }

// SetParameters expects (mass, tolerance float64), both finite and >= 0.
func (r *ToleranceRangeRule) SetParameters(params ...interface{}) error {
	if len(params) != 2 {
		return errors.InvalidConfiguration("tolerance range rule expects exactly 2 parameters").
			WithDetail(fmt.Sprintf("got %d", len(params)))
	}
	mass, ok1 := params[0].(float64)
	tol, ok2 := params[1].(float64)
	if !ok1 || !ok2 {
		return errors.InvalidConfiguration("tolerance range rule parameters must be float64").
			WithDetail(fmt.Sprintf("%T, %T", params[0], params[1]))
	}
	if !isFiniteNonNegative(mass) || !isFiniteNonNegative(tol) {
		return errors.InvalidConfiguration("mass and tolerance must be finite and non-negative").
			WithDetail(fmt.Sprintf("mass=%g tolerance=%g", mass, tol))
	}
	r.window.Store(&massWindow{mass: mass, tolerance: tol})
	return nil
}

// Parameters implements ConfigurableRule.
func (r *ToleranceRangeRule) Parameters() []interface{} {
	w := r.current()
	return []interface{}{w.mass, w.tolerance}
}

func (r *ToleranceRangeRule) current() massWindow {
	if w := r.window.Load(); w != nil {
		return *w
	}
	return massWindow{mass: 0, tolerance: DefaultTolerance}
}

// Validate implements Rule.
func (r *ToleranceRangeRule) Validate(f *MolecularFormula) float64 {
	if f == nil {
		return ScoreFail
	}
	w := r.current()
	if math.Abs(f.MonoisotopicMass()-w.mass) <= w.tolerance {
		return ScorePass
	}
	return ScoreFail
}

func isFiniteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

//Personal.AI order the ending
