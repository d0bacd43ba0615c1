package sumformula

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/turtacn/SumFormula-Intelligence/internal/config"
	"github.com/turtacn/SumFormula-Intelligence/internal/domain/formula"
	"github.com/turtacn/SumFormula-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// ruleSet is an immutable snapshot of the configured rules.  The tolerance
// rule depends on the request mass, so it is only flagged here and built per
// prediction.
type ruleSet struct {
	static      []formula.Rule
	tolerance   bool
	aggregation formula.Aggregation
	threshold   float64
	version     string
}

// buildRuleSet assembles rules from cfg.  A rule whose parameters are
// unusable is kept with its defaults and a warning; unknown names are
// skipped.
func buildRuleSet(cfg config.RulesConfig, log logging.Logger) *ruleSet {
	rs := &ruleSet{threshold: cfg.Threshold, version: rulesVersion(cfg)}
	if rs.threshold == 0 {
		rs.threshold = config.DefaultThreshold
	}

	agg, ok := formula.ParseAggregation(cfg.Aggregation)
	if !ok {
		log.Warn("unknown aggregation, using mean", logging.String("aggregation", cfg.Aggregation))
	}
	rs.aggregation = agg

	seen := make(map[string]bool, len(cfg.Enabled))
	for _, raw := range cfg.Enabled {
		name := strings.ToLower(strings.TrimSpace(raw))
		if seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case formula.RuleNameElementRatio:
			rs.static = append(rs.static, buildElementRatioRule(cfg.ElementRatio, log))
		case formula.RuleNameElement:
			rs.static = append(rs.static, buildElementRule(cfg.Element, log))
		case formula.RuleNameNitrogen:
			rs.static = append(rs.static, formula.NewNitrogenRule())
		case formula.RuleNameRDBE:
			rs.static = append(rs.static, buildRDBERule(cfg.RDBE, log))
		case formula.RuleNameMMElement:
			rs.static = append(rs.static, buildMMElementRule(cfg.MMElement, log))
		case formula.RuleNameToleranceRange:
			rs.tolerance = true
		default:
			err := errors.New(errors.ErrCodeUnknownRule, "unknown rule").WithDetail(raw)
			log.Warn("skipping rule", logging.Err(err))
		}
	}
	return rs
}

func buildElementRatioRule(cfg config.ElementRatioConfig, log logging.Logger) formula.Rule {
	rule := &formula.ElementRatioRule{}
	ratioType, err := formula.ParseRatioType(cfg.Type)
	if err != nil {
		log.Warn("element ratio type rejected, using defaults", logging.Err(err))
		return rule
	}
	ratioRange, err := formula.ParseRatioRange(cfg.Range)
	if err != nil {
		log.Warn("element ratio range rejected, using defaults", logging.Err(err))
		return rule
	}
	if err := rule.SetParameters(ratioType, ratioRange); err != nil {
		log.Warn("element ratio parameters rejected, using defaults", logging.Err(err))
	}
	return rule
}

func buildElementRule(cfg config.ElementRuleConfig, log logging.Logger) formula.Rule {
	if len(cfg.Elements) == 0 {
		return formula.NewElementRule(nil)
	}
	m := make(map[string]formula.ElementRange, len(cfg.Elements))
	for sym, er := range cfg.Elements {
		m[sym] = formula.ElementRange{Min: er.Min, Max: er.Max}
	}
	rng, err := formula.FormulaRangeFromMap(m)
	if err != nil {
		log.Warn("element rule range rejected, using defaults", logging.Err(err))
		return formula.NewElementRule(nil)
	}
	return formula.NewElementRule(rng)
}

func buildRDBERule(cfg config.RDBEConfig, log logging.Logger) formula.Rule {
	rule := formula.NewRDBERule()
	if err := rule.SetParameters(cfg.Min, cfg.Max); err != nil {
		log.Warn("rdbe window rejected, using defaults", logging.Err(err))
	}
	return rule
}

func buildMMElementRule(cfg config.MMElementConfig, log logging.Logger) formula.Rule {
	rule := &formula.MMElementRule{}
	db, err := formula.ParseDatabase(cfg.Database)
	if err != nil {
		log.Warn("mm element database rejected, using defaults", logging.Err(err))
		return rule
	}
	rm, err := formula.ParseRangeMass(cfg.RangeMass)
	if err != nil {
		log.Warn("mm element range mass rejected, using defaults", logging.Err(err))
		return rule
	}
	if err := rule.SetParameters(db, rm); err != nil {
		log.Warn("mm element parameters rejected, using defaults", logging.Err(err))
	}
	return rule
}

// checker returns a checker over the static rules, plus a tolerance rule
// around mass when one is enabled and mass is positive.
func (rs *ruleSet) checker(mass, tolerance float64) (*formula.Checker, error) {
	rules := rs.static
	if rs.tolerance && mass > 0 {
		tr, err := formula.NewToleranceRangeRule(mass, tolerance)
		if err != nil {
			return nil, err
		}
		rules = append(append(make([]formula.Rule, 0, len(rs.static)+1), rs.static...), tr)
	}
	return formula.NewChecker(rules, formula.WithAggregation(rs.aggregation)), nil
}

func (rs *ruleSet) summary() *RuleSummary {
	out := &RuleSummary{
		Rules:       make([]RuleInfo, 0, len(rs.static)+1),
		Aggregation: rs.aggregation.String(),
		Threshold:   rs.threshold,
	}
	for _, r := range rs.static {
		info := RuleInfo{Name: r.Name()}
		if cr, ok := r.(formula.ConfigurableRule); ok {
			for _, p := range cr.Parameters() {
				info.Parameters = append(info.Parameters, fmt.Sprint(p))
			}
		}
		out.Rules = append(out.Rules, info)

		if er, ok := r.(*formula.ElementRatioRule); ok {
			out.RatioType = er.RatioType().String()
			out.RatioRange = er.RatioRange().String()
			bounds := er.Bounds()
			for _, sym := range bounds.Elements() {
				b, _ := bounds.Lookup(sym)
				out.RatioBounds = append(out.RatioBounds, BoundInfo{Element: sym, Bound: b.String()})
			}
		}
	}
	if rs.tolerance {
		out.Rules = append(out.Rules, RuleInfo{Name: formula.RuleNameToleranceRange, Parameters: []string{"request mass", "request tolerance"}})
	}
	return out
}

// rulesVersion fingerprints cfg so cached predictions made under another
// rule set are never served.
func rulesVersion(cfg config.RulesConfig) string {
	return fingerprint(fmt.Sprintf("%v|%s|%s|%v|%g|%g|%s|%d|%s|%g",
		cfg.Enabled, cfg.ElementRatio.Type, cfg.ElementRatio.Range, sortedRanges(cfg.Element.Elements),
		cfg.RDBE.Min, cfg.RDBE.Max, cfg.MMElement.Database, cfg.MMElement.RangeMass,
		cfg.Aggregation, cfg.Threshold))
}

func fingerprint(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}

func sortedRanges(m map[string]config.ElementRangeConfig) string {
	rng := formula.NewFormulaRange()
	for sym, er := range m {
		if err := rng.Add(formula.CanonicalSymbol(sym), er.Min, er.Max); err != nil {
			return fmt.Sprintf("invalid:%d", len(m))
		}
	}
	return rng.String()
}

//Personal.AI order the ending
