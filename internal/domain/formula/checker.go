package formula

import (
	"fmt"
	"strings"
)

// Aggregation combines per-rule scores into one.
type Aggregation int

const (
	// AggregateMean is the arithmetic mean of the rule scores.
	AggregateMean Aggregation = iota
	// AggregateProduct multiplies the rule scores, so any failure yields 0.
	AggregateProduct
)

func (a Aggregation) String() string {
	switch a {
	case AggregateMean:
		return "mean"
	case AggregateProduct:
		return "product"
	default:
		return fmt.Sprintf("Aggregation(%d)", int(a))
	}
}

// ParseAggregation accepts "mean" or "product".
func ParseAggregation(s string) (Aggregation, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mean":
		return AggregateMean, true
	case "product":
		return AggregateProduct, true
	}
	return AggregateMean, false
}

// RuleScore is one rule's verdict on a formula.
type RuleScore struct {
	Name  string  `json:"name" yaml:"name"`
	Score float64 `json:"score" yaml:"score"`
}

// Annotation holds every rule score for a formula plus their aggregate.
type Annotation struct {
	Scores    []RuleScore `json:"scores" yaml:"scores"`
	Aggregate float64     `json:"aggregate" yaml:"aggregate"`
}

// Failed returns the names of the rules that scored below ScorePass.
func (a Annotation) Failed() []string {
	var out []string
	for _, s := range a.Scores {
		if s.Score < ScorePass {
			out = append(out, s.Name)
		}
	}
	return out
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithAggregation selects how rule scores are combined.
func WithAggregation(a Aggregation) CheckerOption {
	return func(c *Checker) { c.aggregation = a }
}

// Checker evaluates a fixed, ordered rule set.  It is immutable after
// construction.
type Checker struct {
	rules       []Rule
	aggregation Aggregation
}

// NewChecker returns a checker over a copy of rules.  Nil rules are skipped.
func NewChecker(rules []Rule, opts ...CheckerOption) *Checker {
	c := &Checker{rules: make([]Rule, 0, len(rules))}
	for _, r := range rules {
		if r != nil {
			c.rules = append(c.rules, r)
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rules returns the rule set in evaluation order.
func (c *Checker) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Aggregation returns the configured aggregation.
func (c *Checker) Aggregation() Aggregation { return c.aggregation }

// IsValidSum returns the aggregate score of f.
func (c *Checker) IsValidSum(f *MolecularFormula) float64 {
	return c.Annotate(f).Aggregate
}

// Passes reports whether the aggregate of f reaches threshold.
func (c *Checker) Passes(f *MolecularFormula, threshold float64) bool {
	return c.IsValidSum(f) >= threshold
}

// Annotate scores f with every rule.  A nil formula scores 0 without running
// any rule; an empty rule set scores 1.
func (c *Checker) Annotate(f *MolecularFormula) Annotation {
	if f == nil {
		return Annotation{Aggregate: ScoreFail}
	}
	if len(c.rules) == 0 {
		return Annotation{Aggregate: ScorePass}
	}

	scores := make([]RuleScore, 0, len(c.rules))
	for _, r := range c.rules {
		scores = append(scores, RuleScore{Name: r.Name(), Score: r.Validate(f)})
	}
	return Annotation{Scores: scores, Aggregate: c.aggregate(scores)}
}

func (c *Checker) aggregate(scores []RuleScore) float64 {
	switch c.aggregation {
	case AggregateProduct:
		p := 1.0
		for _, s := range scores {
			p *= s.Score
		}
		return p
	default:
		sum := 0.0
		for _, s := range scores {
			sum += s.Score
		}
		return sum / float64(len(scores))
	}
}

//Personal.AI order the ending
