package formula

import (
	"fmt"
	"sync/atomic"

	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// ElementRatioRule rejects candidates whose heteroatom/carbon or
// hydrogen/carbon ratios fall outside the Kind & Fiehn (2007) bounds derived
// from the Wiley mass-spectral database (30–1500 Da).
//
// The zero value evaluates HYDROGEN_CARBON against the COMMON table.
type ElementRatioRule struct {
	cfg atomic.Pointer[ratioConfig]
}

type ratioConfig struct {
	ratioType  RatioType
	ratioRange RatioRange
	bounds     *RatioBoundsTable
}

var defaultRatioConfig = mustRatioConfig(RatioHydrogenCarbon, RangeCommon)

func mustRatioConfig(t RatioType, r RatioRange) *ratioConfig {
	bounds, err := NewRatioBoundsTable(r)
	if err != nil {
		panic(err)
	}
	return &ratioConfig{ratioType: t, ratioRange: r, bounds: bounds}
}

// NewElementRatioRule returns a rule configured with t and r, or an
// InvalidConfiguration error and no rule.
func NewElementRatioRule(t RatioType, r RatioRange) (*ElementRatioRule, error) {
	rule := &ElementRatioRule{}
	if err := rule.SetParameters(t, r); err != nil {
		return nil, err
	}
	return rule, nil
}

// Name implements Rule.
func (r *ElementRatioRule) Name() string { return RuleNameElementRatio }

// SetParameters expects exactly (RatioType, RatioRange).  On any error the
// previous configuration is kept.
func (r *ElementRatioRule) SetParameters(params ...interface{}) error {
	if len(params) != 2 {
		return errors.InvalidConfiguration("element ratio rule expects exactly 2 parameters").
			WithDetail(fmt.Sprintf("got %d", len(params)))
	}
	if params[0] == nil || params[1] == nil {
		return errors.InvalidConfiguration("element ratio rule parameters must not be nil")
	}

	ratioType, ok := params[0].(RatioType)
	if !ok {
		return errors.InvalidConfiguration("first parameter must be a RatioType").
			WithDetail(fmt.Sprintf("%T", params[0]))
	}
	if !ratioType.IsValid() {
		return errors.InvalidConfiguration("ratio type is not set").WithDetail(ratioType.String())
	}

	ratioRange, ok := params[1].(RatioRange)
	if !ok {
		return errors.InvalidConfiguration("second parameter must be a RatioRange").
			WithDetail(fmt.Sprintf("%T", params[1]))
	}

	bounds, err := NewRatioBoundsTable(ratioRange)
	if err != nil {
		return err
	}

	r.cfg.Store(&ratioConfig{ratioType: ratioType, ratioRange: ratioRange, bounds: bounds})
	return nil
}

// Parameters implements ConfigurableRule.
func (r *ElementRatioRule) Parameters() []interface{} {
	cfg := r.config()
	return []interface{}{cfg.ratioType, cfg.ratioRange}
}

// RatioType returns the configured ratio type.
func (r *ElementRatioRule) RatioType() RatioType { return r.config().ratioType }

// RatioRange returns the configured ratio range.
func (r *ElementRatioRule) RatioRange() RatioRange { return r.config().ratioRange }

// Bounds returns the active bound table.
func (r *ElementRatioRule) Bounds() *RatioBoundsTable { return r.config().bounds }

func (r *ElementRatioRule) config() *ratioConfig {
	if cfg := r.cfg.Load(); cfg != nil {
		return cfg
	}
	return defaultRatioConfig
}

// Validate implements Rule.  It never fails: errors from Evaluate score 0.
func (r *ElementRatioRule) Validate(f *MolecularFormula) float64 {
	score, err := r.Evaluate(f)
	if err != nil {
		return ScoreFail
	}
	return score
}

// Evaluate scores f.  A nil formula fails; a carbon-free formula passes
// because the ratios are undefined.  Every tracked element is checked even
// after a failure, and a failure is never undone.
func (r *ElementRatioRule) Evaluate(f *MolecularFormula) (float64, error) {
	if f == nil {
		return ScoreFail, nil
	}

	nC := float64(f.Count("C"))
	if nC == 0 {
		return ScorePass, nil
	}

	cfg := r.config()
	score := ScorePass

	switch cfg.ratioType {
	case RatioHydrogenCarbon:
		ratio := float64(f.Count("H")) / nC
		if b, ok := cfg.bounds.Lookup("H"); ok && b.Rejects(ratio) {
			score = ScoreFail
		}

	case RatioHeteroatomsCarbon:
		// Only Lo/Hi are consulted here, including under EXTREME.
		for _, sym := range f.Elements() {
			if sym == "H" || sym == "C" {
				continue
			}
			b, ok := cfg.bounds.Lookup(sym)
			if !ok {
				continue
			}
			if b.outsideInterval(float64(f.Count(sym)) / nC) {
				score = ScoreFail
			}
		}

	case RatioAll:
		for _, sym := range f.Elements() {
			if sym == "C" {
				continue
			}
			b, ok := cfg.bounds.Lookup(sym)
			if !ok {
				continue
			}
			if b.Rejects(float64(f.Count(sym)) / nC) {
				score = ScoreFail
			}
		}

	default:
		return ScoreFail, errors.New(errors.ErrCodeUnknownRatioType, "unknown ratio type").
			WithDetail(cfg.ratioType.String())
	}

	return score, nil
}

//Personal.AI order the ending
