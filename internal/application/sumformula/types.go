package sumformula

import (
	"github.com/turtacn/SumFormula-Intelligence/internal/domain/formula"
)

// PredictRequest asks for the sum formulas explaining an accurate mass.
// Zero Tolerance and MaxResults fall back to the configured generator values.
type PredictRequest struct {
	Mass       float64 `json:"mass" yaml:"mass"`
	Tolerance  float64 `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
	Charge     int     `json:"charge,omitempty" yaml:"charge,omitempty"`
	MaxResults int     `json:"max_results,omitempty" yaml:"max_results,omitempty"`
	OnlyValid  bool    `json:"only_valid,omitempty" yaml:"only_valid,omitempty"`
}

// Candidate is one generated formula with its rule annotation.
type Candidate struct {
	Formula  string              `json:"formula" yaml:"formula"`
	Mass     float64             `json:"mass" yaml:"mass"`
	Error    float64             `json:"error" yaml:"error"`
	ErrorPPM float64             `json:"error_ppm" yaml:"error_ppm"`
	RDBE     float64             `json:"rdbe" yaml:"rdbe"`
	Scores   []formula.RuleScore `json:"scores,omitempty" yaml:"scores,omitempty"`
	Score    float64             `json:"score" yaml:"score"`
	Valid    bool                `json:"valid" yaml:"valid"`
	Failed   []string            `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// Prediction is the result of one PredictRequest.
type Prediction struct {
	ID         string       `json:"id" yaml:"id"`
	Mass       float64      `json:"mass" yaml:"mass"`
	Tolerance  float64      `json:"tolerance" yaml:"tolerance"`
	Charge     int          `json:"charge" yaml:"charge"`
	Candidates []*Candidate `json:"candidates" yaml:"candidates"`
	Generated  int          `json:"generated" yaml:"generated"`
	Accepted   int          `json:"accepted" yaml:"accepted"`
	Cached     bool         `json:"cached" yaml:"cached"`
}

// ItemError describes why one batch item failed.
type ItemError struct {
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

// BatchItem is the outcome of one request within a batch.
type BatchItem struct {
	Index      int             `json:"index" yaml:"index"`
	Request    *PredictRequest `json:"request" yaml:"request"`
	Prediction *Prediction     `json:"prediction,omitempty" yaml:"prediction,omitempty"`
	Error      *ItemError      `json:"error,omitempty" yaml:"error,omitempty"`
}

// BatchResult collects every item of a batch in request order.
type BatchResult struct {
	Items     []*BatchItem `json:"items" yaml:"items"`
	Succeeded int          `json:"succeeded" yaml:"succeeded"`
	Failed    int          `json:"failed" yaml:"failed"`
}

// CheckResult is the rule annotation of a single formula.
type CheckResult struct {
	Formula     string              `json:"formula" yaml:"formula"`
	Mass        float64             `json:"mass" yaml:"mass"`
	NominalMass int                 `json:"nominal_mass" yaml:"nominal_mass"`
	Charge      int                 `json:"charge" yaml:"charge"`
	RDBE        float64             `json:"rdbe" yaml:"rdbe"`
	Scores      []formula.RuleScore `json:"scores" yaml:"scores"`
	Score       float64             `json:"score" yaml:"score"`
	Valid       bool                `json:"valid" yaml:"valid"`
	Failed      []string            `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// RuleInfo describes one active rule.
type RuleInfo struct {
	Name       string   `json:"name" yaml:"name"`
	Parameters []string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// BoundInfo is one row of the active element-ratio table.
type BoundInfo struct {
	Element string `json:"element" yaml:"element"`
	Bound   string `json:"bound" yaml:"bound"`
}

// RuleSummary describes the active rule set.
type RuleSummary struct {
	Rules       []RuleInfo  `json:"rules" yaml:"rules"`
	Aggregation string      `json:"aggregation" yaml:"aggregation"`
	Threshold   float64     `json:"threshold" yaml:"threshold"`
	RatioType   string      `json:"ratio_type,omitempty" yaml:"ratio_type,omitempty"`
	RatioRange  string      `json:"ratio_range,omitempty" yaml:"ratio_range,omitempty"`
	RatioBounds []BoundInfo `json:"ratio_bounds,omitempty" yaml:"ratio_bounds,omitempty"`
}

//Personal.AI order the ending
