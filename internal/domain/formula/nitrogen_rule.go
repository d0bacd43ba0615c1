package formula

import (
	"fmt"

	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// NitrogenRule applies the nitrogen rule to neutral formulas: an odd number
// of nitrogen atoms goes with an odd nominal mass.  Ions pass unconditionally.
type NitrogenRule struct{}

// NewNitrogenRule returns the rule.
func NewNitrogenRule() *NitrogenRule { return &NitrogenRule{} }

// Name implements Rule.
func (r *NitrogenRule) Name() string { return RuleNameNitrogen }

// SetParameters accepts no parameters.
func (r *NitrogenRule) SetParameters(params ...interface{}) error {
	if len(params) != 0 {
		return errors.InvalidConfiguration("nitrogen rule takes no parameters").
			WithDetail(fmt.Sprintf("got %d", len(params)))
	}
	return nil
}

// Parameters implements ConfigurableRule.
func (r *NitrogenRule) Parameters() []interface{} { return nil }

// Validate implements Rule.
func (r *NitrogenRule) Validate(f *MolecularFormula) float64 {
	if f == nil {
		return ScoreFail
	}
	if f.Charge() != 0 {
		return ScorePass
	}
	if f.Count("N")%2 == f.NominalMass()%2 {
		return ScorePass
	}
	return ScoreFail
}

//Personal.AI order the ending
