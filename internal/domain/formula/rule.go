package formula

// Scores produced by every plausibility rule.
const (
	ScorePass = 1.0
	ScoreFail = 0.0
)

// Rule names, used as metric labels and annotation keys.
const (
	RuleNameElementRatio   = "element_ratio"
	RuleNameElement        = "element"
	RuleNameNitrogen       = "nitrogen"
	RuleNameRDBE           = "rdbe"
	RuleNameToleranceRange = "tolerance_range"
	RuleNameMMElement      = "mm_element"
)

// Rule scores one candidate formula: ScorePass or ScoreFail.  Implementations
// must be safe for concurrent use once configured.
type Rule interface {
	Name() string
	Validate(f *MolecularFormula) float64
}

// ConfigurableRule is a Rule whose parameters can be replaced as a whole.
// SetParameters either applies every parameter or none.
type ConfigurableRule interface {
	Rule
	SetParameters(params ...interface{}) error
	Parameters() []interface{}
}

// RuleFunc adapts a plain function to the Rule interface.
type RuleFunc struct {
	name string
	fn   func(*MolecularFormula) float64
}

// NewRuleFunc wraps fn under name.
func NewRuleFunc(name string, fn func(*MolecularFormula) float64) RuleFunc {
	return RuleFunc{name: name, fn: fn}
}

// Name implements Rule.
func (r RuleFunc) Name() string { return r.name }

// Validate implements Rule.
func (r RuleFunc) Validate(f *MolecularFormula) float64 { return r.fn(f) }

//Personal.AI order the ending
