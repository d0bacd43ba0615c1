package client

import (
	"context"
	"math"
	"strings"

	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// PredictRequest asks for the sum formulas explaining an accurate mass.  Zero
// Tolerance and MaxResults use the server defaults.
type PredictRequest struct {
	Mass       float64 `json:"mass"`
	Tolerance  float64 `json:"tolerance,omitempty"`
	Charge     int     `json:"charge,omitempty"`
	MaxResults int     `json:"max_results,omitempty"`
	OnlyValid  bool    `json:"only_valid,omitempty"`
}

// RuleScore is one rule's verdict on a formula.
type RuleScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Candidate is one generated formula with its rule annotation.
type Candidate struct {
	Formula  string      `json:"formula"`
	Mass     float64     `json:"mass"`
	Error    float64     `json:"error"`
	ErrorPPM float64     `json:"error_ppm"`
	RDBE     float64     `json:"rdbe"`
	Scores   []RuleScore `json:"scores,omitempty"`
	Score    float64     `json:"score"`
	Valid    bool        `json:"valid"`
	Failed   []string    `json:"failed,omitempty"`
}

// Prediction is the server's answer to a PredictRequest.
type Prediction struct {
	ID         string       `json:"id"`
	Mass       float64      `json:"mass"`
	Tolerance  float64      `json:"tolerance"`
	Charge     int          `json:"charge"`
	Candidates []*Candidate `json:"candidates"`
	Generated  int          `json:"generated"`
	Accepted   int          `json:"accepted"`
	Cached     bool         `json:"cached"`
}

// Best returns the first valid candidate, or nil.
func (p *Prediction) Best() *Candidate {
	if p == nil {
		return nil
	}
	for _, c := range p.Candidates {
		if c.Valid {
			return c
		}
	}
	return nil
}

// ItemError describes why one batch item failed.
type ItemError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BatchItem is the outcome of one request within a batch.
type BatchItem struct {
	Index      int             `json:"index"`
	Request    *PredictRequest `json:"request"`
	Prediction *Prediction     `json:"prediction,omitempty"`
	Error      *ItemError      `json:"error,omitempty"`
}

// BatchResult holds every item in request order.
type BatchResult struct {
	Items     []*BatchItem `json:"items"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
}

// CheckResult is the rule annotation of a single formula.
type CheckResult struct {
	Formula     string      `json:"formula"`
	Mass        float64     `json:"mass"`
	NominalMass int         `json:"nominal_mass"`
	Charge      int         `json:"charge"`
	RDBE        float64     `json:"rdbe"`
	Scores      []RuleScore `json:"scores"`
	Score       float64     `json:"score"`
	Valid       bool        `json:"valid"`
	Failed      []string    `json:"failed,omitempty"`
}

// RuleInfo describes one active rule.
type RuleInfo struct {
	Name       string   `json:"name"`
	Parameters []string `json:"parameters,omitempty"`
}

// BoundInfo is one row of the active element-ratio table.
type BoundInfo struct {
	Element string `json:"element"`
	Bound   string `json:"bound"`
}

// RuleSummary describes the server's active rule set.
type RuleSummary struct {
	Rules       []RuleInfo  `json:"rules"`
	Aggregation string      `json:"aggregation"`
	Threshold   float64     `json:"threshold"`
	RatioType   string      `json:"ratio_type,omitempty"`
	RatioRange  string      `json:"ratio_range,omitempty"`
	RatioBounds []BoundInfo `json:"ratio_bounds,omitempty"`
}

// HealthStatus is the body of the liveness and readiness probes.
type HealthStatus struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime,omitempty"`
	Components map[string]ComponentStatus `json:"components,omitempty"`
}

// ComponentStatus is one dependency's readiness.
type ComponentStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ---------------------------------------------------------------------------
// Formulas sub-client
// ---------------------------------------------------------------------------

const (
	apiPrefix    = "/api/v1"
	formulasPath = apiPrefix + "/formulas"
)

// FormulasClient calls the formula endpoints.
type FormulasClient struct {
	client *Client
}

// Predict enumerates and scores candidate formulas for one mass.
func (f *FormulasClient) Predict(ctx context.Context, req *PredictRequest) (*Prediction, error) {
	if err := validatePredictRequest(req); err != nil {
		return nil, err
	}
	var out Prediction
	if err := f.client.post(ctx, formulasPath+"/predict", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PredictBatch runs several predictions in one call.  Per-item failures are
// reported on the items; validation happens server-side.
func (f *FormulasClient) PredictBatch(ctx context.Context, reqs []*PredictRequest) (*BatchResult, error) {
	if len(reqs) == 0 {
		return nil, errors.InvalidParam("batch must contain at least one request")
	}
	body := struct {
		Requests []*PredictRequest `json:"requests"`
	}{Requests: reqs}

	var out BatchResult
	if err := f.client.post(ctx, formulasPath+"/predict/batch", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Check scores a single formula such as "C6H12O6" or "[C6H7N]+".
func (f *FormulasClient) Check(ctx context.Context, formula string) (*CheckResult, error) {
	formula = strings.TrimSpace(formula)
	if formula == "" {
		return nil, errors.InvalidParam("formula is required")
	}
	body := struct {
		Formula string `json:"formula"`
	}{Formula: formula}

	var out CheckResult
	if err := f.client.post(ctx, formulasPath+"/check", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Rules returns the active rule set.
func (f *FormulasClient) Rules(ctx context.Context) (*RuleSummary, error) {
	var out RuleSummary
	if err := f.client.get(ctx, apiPrefix+"/rules", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func validatePredictRequest(req *PredictRequest) error {
	if req == nil {
		return errors.InvalidParam("request is required")
	}
	if req.Mass <= 0 || math.IsNaN(req.Mass) || math.IsInf(req.Mass, 0) {
		return errors.New(errors.ErrCodeMassInvalid, "mass must be a positive finite number")
	}
	if req.Tolerance < 0 || req.MaxResults < 0 {
		return errors.InvalidParam("tolerance and max_results must be non-negative")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

// Liveness calls /healthz.
func (c *Client) Liveness(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.get(ctx, "/healthz", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Readiness calls /readyz.  A not-ready server yields an *APIError with
// status 503 after retries are exhausted.
func (c *Client) Readiness(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.get(ctx, "/readyz", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

//Personal.AI order the ending
