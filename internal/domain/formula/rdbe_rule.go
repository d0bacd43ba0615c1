package formula

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// Default RDBE window.
const (
	DefaultRDBEMin = -0.5
	DefaultRDBEMax = 30.0
)

// RDBE returns the ring plus double-bond equivalents 1 + ½·Σ nᵢ(vᵢ − 2).
func RDBE(f *MolecularFormula) float64 {
	if f == nil {
		return 0
	}
	sum := 0
	for sym, n := range f.counts {
		e, _ := LookupElement(sym)
		sum += n * (e.Valence - 2)
	}
	return 1 + float64(sum)/2
}

type rdbeWindow struct {
	min, max float64
}

// RDBERule accepts formulas whose RDBE lies in [min, max].  Neutral formulas
// must also have an integral RDBE; ions may sit on a half value.
type RDBERule struct {
	window atomic.Pointer[rdbeWindow]
}

// NewRDBERule returns a rule with the default window.
func NewRDBERule() *RDBERule { return &RDBERule{} }

// Name implements Rule.
func (r *RDBERule) Name() string { return RuleNameRDBE }

// SetParameters expects (min, max float64) with min <= max.
func (r *RDBERule) SetParameters(params ...interface{}) error {
	if len(params) != 2 {
		return errors.InvalidConfiguration("rdbe rule expects exactly 2 parameters").
			WithDetail(fmt.Sprintf("got %d", len(params)))
	}
	lo, ok1 := params[0].(float64)
	hi, ok2 := params[1].(float64)
	if !ok1 || !ok2 {
		return errors.InvalidConfiguration("rdbe rule parameters must be float64").
			WithDetail(fmt.Sprintf("%T, %T", params[0], params[1]))
	}
	if math.IsNaN(lo) || math.IsNaN(hi) || lo > hi {
		return errors.InvalidConfiguration("rdbe window must satisfy min <= max").
			WithDetail(fmt.Sprintf("[%g, %g]", lo, hi))
	}
	r.window.Store(&rdbeWindow{min: lo, max: hi})
	return nil
}

// Parameters implements ConfigurableRule.
func (r *RDBERule) Parameters() []interface{} {
	w := r.current()
	return []interface{}{w.min, w.max}
}

func (r *RDBERule) current() rdbeWindow {
	if w := r.window.Load(); w != nil {
		return *w
	}
	return rdbeWindow{min: DefaultRDBEMin, max: DefaultRDBEMax}
}

// Validate implements Rule.
func (r *RDBERule) Validate(f *MolecularFormula) float64 {
	if f == nil {
		return ScoreFail
	}
	w := r.current()
	rdbe := RDBE(f)
	if rdbe < w.min || rdbe > w.max {
		return ScoreFail
	}
	if f.Charge() == 0 && rdbe != math.Trunc(rdbe) {
		return ScoreFail
	}
	return ScorePass
}

//Personal.AI order the ending
