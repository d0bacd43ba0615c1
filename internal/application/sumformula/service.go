// Package sumformula is the application service that turns an accurate mass
// into ranked, rule-annotated sum formula candidates.
package sumformula

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/SumFormula-Intelligence/internal/config"
	"github.com/turtacn/SumFormula-Intelligence/internal/domain/formula"
	"github.com/turtacn/SumFormula-Intelligence/internal/infrastructure/monitoring/logging"
	prom "github.com/turtacn/SumFormula-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

const predictionCacheName = "prediction"

// Service defines the application service for sum formula prediction.
type Service interface {
	Predict(ctx context.Context, req *PredictRequest) (*Prediction, error)
	PredictBatch(ctx context.Context, reqs []*PredictRequest) (*BatchResult, error)
	Check(ctx context.Context, text string) (*CheckResult, error)
	Rules() *RuleSummary
	// Reload swaps the active rule set.  In-flight requests finish with the
	// rule set they started with.
	Reload(cfg config.RulesConfig)
	Ready(ctx context.Context) error
}

// PredictionCache is the subset of the Redis cache the service uses.
type PredictionCache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) (bool, error)
	Ping(ctx context.Context) error
}

type serviceImpl struct {
	generator config.GeneratorConfig
	worker    config.WorkerConfig
	cacheTTL  time.Duration
	elements  *formula.FormulaRange
	rangeKey  string

	rules   atomic.Pointer[ruleSet]
	cache   PredictionCache
	metrics *prom.FormulaMetrics
	logger  logging.Logger
}

// NewService creates a new sum formula Service.  cache may be nil, in which
// case every prediction is computed.
func NewService(cfg *config.Config, cache PredictionCache, metrics *prom.FormulaMetrics, logger logging.Logger) (Service, error) {
	if cfg == nil {
		return nil, errors.InvalidParam("config is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prom.NewNoopFormulaMetrics()
	}

	m := make(map[string]formula.ElementRange, len(cfg.Generator.Elements))
	for sym, er := range cfg.Generator.Elements {
		m[sym] = formula.ElementRange{Min: er.Min, Max: er.Max}
	}
	elements, err := formula.FormulaRangeFromMap(m)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidConfiguration, "invalid generator elements")
	}

	s := &serviceImpl{
		generator: cfg.Generator,
		worker:    cfg.Worker,
		cacheTTL:  cfg.Redis.TTL,
		elements:  elements,
		rangeKey:  fingerprint(elements.String()),
		cache:     cache,
		metrics:   metrics,
		logger:    logger.Named("sumformula"),
	}
	s.rules.Store(buildRuleSet(cfg.Rules, s.logger))
	return s, nil
}

func (s *serviceImpl) Predict(ctx context.Context, req *PredictRequest) (*Prediction, error) {
	start := time.Now()
	norm, err := s.normalize(req)
	if err != nil {
		prom.RecordPrediction(s.metrics, "invalid", false, time.Since(start), 0, 0)
		return nil, err
	}
	rs := s.rules.Load()

	if s.worker.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.worker.Timeout)
		defer cancel()
	}

	var (
		pred   *Prediction
		cached bool
	)
	if s.cache != nil {
		var out Prediction
		cached, err = s.cache.GetOrSet(ctx, s.predictionKey(rs, norm), &out, s.cacheTTL, func(ctx context.Context) (interface{}, error) {
			return s.compute(ctx, rs, norm)
		})
		prom.RecordCacheAccess(s.metrics, predictionCacheName, cached)
		if err == nil {
			pred = &out
		}
	} else {
		pred, err = s.compute(ctx, rs, norm)
	}
	if err != nil {
		prom.RecordPrediction(s.metrics, "error", false, time.Since(start), 0, 0)
		s.logger.Warn("prediction failed", logging.Float64("mass", norm.Mass), logging.Err(err))
		return nil, err
	}

	pred.ID = uuid.NewString()
	pred.Cached = cached
	prom.RecordPrediction(s.metrics, "success", cached, time.Since(start), pred.Generated, pred.Accepted)
	if !cached {
		for _, c := range pred.Candidates {
			for _, name := range c.Failed {
				prom.RecordRuleRejection(s.metrics, name)
			}
		}
	}
	s.logger.Debug("prediction complete",
		logging.String("id", pred.ID),
		logging.Float64("mass", pred.Mass),
		logging.Int("generated", pred.Generated),
		logging.Int("accepted", pred.Accepted),
		logging.Bool("cached", cached),
	)
	return pred, nil
}

// normalize validates req and fills the configured defaults into a copy.
func (s *serviceImpl) normalize(req *PredictRequest) (*PredictRequest, error) {
	if req == nil {
		return nil, errors.InvalidParam("request is required")
	}
	if math.IsNaN(req.Mass) || math.IsInf(req.Mass, 0) || req.Mass <= 0 {
		return nil, errors.New(errors.ErrCodeMassInvalid, "mass must be a positive finite number").
			WithDetail(fmt.Sprintf("%g", req.Mass))
	}
	if math.IsNaN(req.Tolerance) || math.IsInf(req.Tolerance, 0) || req.Tolerance < 0 {
		return nil, errors.InvalidParam("tolerance must be a non-negative finite number").
			WithDetail(fmt.Sprintf("%g", req.Tolerance))
	}
	if s.generator.MaxTolerance > 0 && req.Tolerance > s.generator.MaxTolerance {
		return nil, errors.InvalidParam("tolerance exceeds the configured maximum").
			WithDetail(fmt.Sprintf("%g > %g", req.Tolerance, s.generator.MaxTolerance))
	}
	if req.MaxResults < 0 {
		return nil, errors.InvalidParam("max_results must be >= 0").WithDetail(fmt.Sprintf("%d", req.MaxResults))
	}

	out := *req
	if out.Tolerance == 0 {
		out.Tolerance = s.generator.Tolerance
	}
	if out.MaxResults == 0 {
		out.MaxResults = s.generator.MaxResults
	}
	return &out, nil
}

func (s *serviceImpl) compute(ctx context.Context, rs *ruleSet, req *PredictRequest) (*Prediction, error) {
	gen, err := formula.NewMassToFormula(s.elements,
		formula.WithTolerance(req.Tolerance),
		formula.WithCharge(req.Charge),
		formula.WithMaxResults(req.MaxResults),
	)
	if err != nil {
		return nil, err
	}
	formulas, err := gen.Generate(ctx, req.Mass)
	if err != nil {
		return nil, err
	}
	checker, err := rs.checker(req.Mass, req.Tolerance)
	if err != nil {
		return nil, err
	}

	pred := &Prediction{
		Mass:       req.Mass,
		Tolerance:  req.Tolerance,
		Charge:     req.Charge,
		Candidates: make([]*Candidate, 0, len(formulas)),
		Generated:  len(formulas),
	}
	for _, f := range formulas {
		ann := checker.Annotate(f)
		valid := ann.Aggregate >= rs.threshold
		if valid {
			pred.Accepted++
		} else if req.OnlyValid {
			continue
		}
		mass := f.MonoisotopicMass()
		pred.Candidates = append(pred.Candidates, &Candidate{
			Formula:  f.String(),
			Mass:     mass,
			Error:    mass - req.Mass,
			ErrorPPM: (mass - req.Mass) / req.Mass * 1e6,
			RDBE:     formula.RDBE(f),
			Scores:   ann.Scores,
			Score:    ann.Aggregate,
			Valid:    valid,
			Failed:   ann.Failed(),
		})
	}
	return pred, nil
}

// PredictBatch runs every request on a bounded pool.  A failing item is
// reported on that item; only cancellation of ctx fails the batch.
func (s *serviceImpl) PredictBatch(ctx context.Context, reqs []*PredictRequest) (*BatchResult, error) {
	if len(reqs) == 0 {
		return nil, errors.InvalidParam("batch must contain at least one request")
	}
	if s.worker.MaxBatch > 0 && len(reqs) > s.worker.MaxBatch {
		return nil, errors.InvalidParam("batch too large").
			WithDetail(fmt.Sprintf("%d > %d", len(reqs), s.worker.MaxBatch))
	}
	prom.ObserveBatchSize(s.metrics, len(reqs))

	concurrency := s.worker.Concurrency
	if concurrency <= 0 {
		concurrency = config.DefaultWorkerConcurrency
	}

	items := make([]*BatchItem, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			item := &BatchItem{Index: i, Request: req}
			pred, err := s.Predict(gctx, req)
			if err != nil {
				item.Error = NewItemError(err)
			} else {
				item.Prediction = pred
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGenerationFailed, "batch cancelled")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGenerationFailed, "batch cancelled")
	}

	res := &BatchResult{Items: items}
	for _, item := range items {
		if item.Error != nil {
			res.Failed++
		} else {
			res.Succeeded++
		}
	}
	return res, nil
}

// NewItemError flattens err into the code and message reported per item.
func NewItemError(err error) *ItemError {
	var ae *errors.AppError
	if stderrors.As(err, &ae) {
		msg := ae.Message
		if ae.Detail != "" {
			msg += ": " + ae.Detail
		}
		return &ItemError{Code: ae.Code.String(), Message: msg}
	}
	return &ItemError{Code: errors.CodeUnknown.String(), Message: err.Error()}
}

func (s *serviceImpl) Check(ctx context.Context, text string) (*CheckResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := formula.ParseFormula(text)
	if err != nil {
		return nil, err
	}
	rs := s.rules.Load()
	// The tolerance rule needs a measured mass, which a bare formula lacks.
	checker, err := rs.checker(0, 0)
	if err != nil {
		return nil, err
	}
	ann := checker.Annotate(f)
	return &CheckResult{
		Formula:     f.String(),
		Mass:        f.MonoisotopicMass(),
		NominalMass: f.NominalMass(),
		Charge:      f.Charge(),
		RDBE:        formula.RDBE(f),
		Scores:      ann.Scores,
		Score:       ann.Aggregate,
		Valid:       ann.Aggregate >= rs.threshold,
		Failed:      ann.Failed(),
	}, nil
}

func (s *serviceImpl) Rules() *RuleSummary {
	return s.rules.Load().summary()
}

func (s *serviceImpl) Reload(cfg config.RulesConfig) {
	rs := buildRuleSet(cfg, s.logger)
	s.rules.Store(rs)
	s.logger.Info("rule set reloaded",
		logging.Int("rules", len(rs.static)),
		logging.Bool("tolerance", rs.tolerance),
		logging.String("version", rs.version),
	)
}

func (s *serviceImpl) Ready(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Ping(ctx); err != nil {
		prom.RecordCacheError(s.metrics, predictionCacheName, "ping")
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "prediction cache unavailable")
	}
	return nil
}

// predictionKey identifies a normalized request under the active rules and
// generator range.
func (s *serviceImpl) predictionKey(rs *ruleSet, req *PredictRequest) string {
	return fmt.Sprintf("predict:%s:%s:%g:%g:%d:%d:%t",
		rs.version, s.rangeKey, req.Mass, req.Tolerance, req.Charge, req.MaxResults, req.OnlyValid)
}

//Personal.AI order the ending
