package sumformula

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SumFormula-Intelligence/internal/config"
	"github.com/turtacn/SumFormula-Intelligence/internal/domain/formula"
	"github.com/turtacn/SumFormula-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SumFormula-Intelligence/internal/testutil"
	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// --- Mocks ---

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) (bool, error) {
	args := m.Called(ctx, key, dest, ttl, loader)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// runLoader makes the mock behave like a cache miss: the loader result is
// round-tripped through JSON into dest.
func runLoader(args mock.Arguments) {
	ctx := args.Get(0).(context.Context)
	dest := args.Get(2)
	loader := args.Get(4).(func(context.Context) (interface{}, error))
	v, err := loader(ctx)
	if err != nil {
		return
	}
	data, _ := json.Marshal(v)
	_ = json.Unmarshal(data, dest)
}

// --- Helpers ---

func newTestService(t *testing.T, cache PredictionCache, mutate ...func(*config.Config)) Service {
	t.Helper()
	cfg := config.NewDefaultConfig()
	for _, fn := range mutate {
		fn(cfg)
	}
	svc, err := NewService(cfg, cache, nil, logging.NewNopLogger())
	require.NoError(t, err)
	return svc
}

func findCandidate(p *Prediction, f string) *Candidate {
	for _, c := range p.Candidates {
		if c.Formula == f {
			return c
		}
	}
	return nil
}

// --- Tests ---

func TestNewService(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := NewService(nil, nil, nil, nil)
		assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
	})

	t.Run("unsupported generator element", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		cfg.Generator.Elements = map[string]config.ElementRangeConfig{"Xx": {Min: 0, Max: 1}}
		_, err := NewService(cfg, nil, nil, nil)
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidConfiguration))
	})
}

func TestPredict_Glucose(t *testing.T) {
	svc := newTestService(t, nil)

	pred, err := svc.Predict(context.Background(), &PredictRequest{Mass: 180.0634, Tolerance: 0.001})
	require.NoError(t, err)
	assert.NotEmpty(t, pred.ID)
	assert.False(t, pred.Cached)
	assert.Equal(t, 0.001, pred.Tolerance)
	assert.Equal(t, len(pred.Candidates), pred.Generated)

	c := findCandidate(pred, "C6H12O6")
	require.NotNil(t, c)
	assert.True(t, c.Valid)
	assert.Equal(t, formula.ScorePass, c.Score)
	assert.Empty(t, c.Failed)
	assert.InDelta(t, 1.0, c.RDBE, 1e-9)
	assert.InDelta(t, 180.06339, c.Mass, 1e-4)
	assert.Len(t, c.Scores, 5)
	assert.LessOrEqual(t, pred.Accepted, pred.Generated)
	assert.GreaterOrEqual(t, pred.Accepted, 1)
}

func TestPredict_OnlyValid(t *testing.T) {
	svc := newTestService(t, nil)

	all, err := svc.Predict(context.Background(), &PredictRequest{Mass: 180.0634, Tolerance: 0.01})
	require.NoError(t, err)
	valid, err := svc.Predict(context.Background(), &PredictRequest{Mass: 180.0634, Tolerance: 0.01, OnlyValid: true})
	require.NoError(t, err)

	assert.Equal(t, all.Generated, valid.Generated)
	assert.Equal(t, all.Accepted, valid.Accepted)
	assert.Len(t, valid.Candidates, valid.Accepted)
	for _, c := range valid.Candidates {
		assert.True(t, c.Valid, c.Formula)
	}
}

func TestPredict_Defaults(t *testing.T) {
	svc := newTestService(t, nil, func(c *config.Config) {
		c.Generator.Tolerance = 0.002
		c.Generator.MaxResults = 3
	})

	pred, err := svc.Predict(context.Background(), &PredictRequest{Mass: 180.0634})
	require.NoError(t, err)
	assert.Equal(t, 0.002, pred.Tolerance)
	assert.LessOrEqual(t, pred.Generated, 3)
}

func TestPredict_InvalidRequest(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *PredictRequest
		code errors.ErrorCode
	}{
		{"nil", nil, errors.CodeInvalidParam},
		{"zero mass", &PredictRequest{Mass: 0}, errors.ErrCodeMassInvalid},
		{"negative mass", &PredictRequest{Mass: -1}, errors.ErrCodeMassInvalid},
		{"negative tolerance", &PredictRequest{Mass: 100, Tolerance: -0.1}, errors.CodeInvalidParam},
		{"negative max results", &PredictRequest{Mass: 100, MaxResults: -1}, errors.CodeInvalidParam},
		{"tolerance above maximum", &PredictRequest{Mass: 400, Tolerance: 40}, errors.CodeInvalidParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Predict(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code), err.Error())
			assert.True(t, errors.IsValidation(err))
		})
	}
}

func TestPredict_Cancelled(t *testing.T) {
	svc := newTestService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Predict(ctx, &PredictRequest{Mass: 900, Tolerance: 0.5})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, context.Canceled))
}

func TestPredict_TimesOut(t *testing.T) {
	svc := newTestService(t, nil, func(c *config.Config) { c.Worker.Timeout = time.Nanosecond })

	_, err := svc.Predict(context.Background(), &PredictRequest{Mass: 900, Tolerance: 0.5})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
}

func TestPredict_CacheMiss(t *testing.T) {
	cache := new(MockCache)
	cache.On("GetOrSet", mock.Anything, mock.AnythingOfType("string"), mock.Anything, config.DefaultRedisTTL, mock.Anything).
		Run(runLoader).Return(false, nil).Once()
	svc := newTestService(t, cache)

	pred, err := svc.Predict(context.Background(), &PredictRequest{Mass: 180.0634, Tolerance: 0.001})
	require.NoError(t, err)
	assert.False(t, pred.Cached)
	assert.NotNil(t, findCandidate(pred, "C6H12O6"))
	cache.AssertExpectations(t)
}

func TestPredict_CacheHit(t *testing.T) {
	cache := new(MockCache)
	cache.On("GetOrSet", mock.Anything, mock.AnythingOfType("string"), mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			dest := args.Get(2).(*Prediction)
			*dest = Prediction{
				Mass:       180.0634,
				Tolerance:  0.001,
				Candidates: []*Candidate{{Formula: "C6H12O6", Valid: true, Score: 1}},
				Generated:  1,
				Accepted:   1,
			}
		}).Return(true, nil).Once()
	svc := newTestService(t, cache)

	pred, err := svc.Predict(context.Background(), &PredictRequest{Mass: 180.0634, Tolerance: 0.001})
	require.NoError(t, err)
	assert.True(t, pred.Cached)
	assert.NotEmpty(t, pred.ID)
	assert.Equal(t, 1, pred.Accepted)
	cache.AssertExpectations(t)
}

func TestPredict_CacheKeyFollowsRules(t *testing.T) {
	var keys []string
	cache := new(MockCache)
	cache.On("GetOrSet", mock.Anything, mock.AnythingOfType("string"), mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			keys = append(keys, args.String(1))
			runLoader(args)
		}).Return(false, nil)
	svc := newTestService(t, cache)
	req := &PredictRequest{Mass: 78.04695, Tolerance: 0.001}

	_, err := svc.Predict(context.Background(), req)
	require.NoError(t, err)
	_, err = svc.Predict(context.Background(), req)
	require.NoError(t, err)

	rules := config.NewDefaultConfig().Rules
	rules.ElementRatio.Range = "extended"
	svc.Reload(rules)
	_, err = svc.Predict(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, keys, 3)
	assert.Equal(t, keys[0], keys[1])
	assert.NotEqual(t, keys[0], keys[2])
}

func TestPredict_CacheKeyDistinguishesRequests(t *testing.T) {
	var keys []string
	cache := new(MockCache)
	cache.On("GetOrSet", mock.Anything, mock.AnythingOfType("string"), mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			keys = append(keys, args.String(1))
			runLoader(args)
		}).Return(false, nil)

	svc := newTestService(t, cache)
	for _, mass := range []float64{78.0469500, 78.0469504} {
		pred, err := svc.Predict(context.Background(), &PredictRequest{Mass: mass, Tolerance: 0.001})
		require.NoError(t, err)
		assert.Equal(t, mass, pred.Mass)
	}

	narrow := newTestService(t, cache, func(c *config.Config) {
		c.Generator.Elements = map[string]config.ElementRangeConfig{"C": {Max: 10}, "H": {Max: 10}}
	})
	_, err := narrow.Predict(context.Background(), &PredictRequest{Mass: 78.0469500, Tolerance: 0.001})
	require.NoError(t, err)

	require.Len(t, keys, 3)
	assert.NotEqual(t, keys[0], keys[1])
	assert.NotEqual(t, keys[0], keys[2])
}

func TestPredict_CacheError(t *testing.T) {
	cache := new(MockCache)
	cache.On("GetOrSet", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(false, errors.New(errors.ErrCodeGenerationFailed, "boom")).Once()
	svc := newTestService(t, cache)

	_, err := svc.Predict(context.Background(), &PredictRequest{Mass: 100})
	assert.True(t, errors.IsCode(err, errors.ErrCodeGenerationFailed))
}

func TestPredictBatch(t *testing.T) {
	svc := newTestService(t, nil)

	res, err := svc.PredictBatch(context.Background(), []*PredictRequest{
		{Mass: 180.0634, Tolerance: 0.001},
		{Mass: -5},
		{Mass: 78.04695, Tolerance: 0.001},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)

	for i, item := range res.Items {
		assert.Equal(t, i, item.Index)
	}
	assert.NotNil(t, findCandidate(res.Items[0].Prediction, "C6H12O6"))
	require.NotNil(t, res.Items[1].Error)
	assert.Equal(t, errors.ErrCodeMassInvalid.String(), res.Items[1].Error.Code)
	assert.NotNil(t, findCandidate(res.Items[2].Prediction, "C6H6"))
}

func TestPredictBatch_Limits(t *testing.T) {
	svc := newTestService(t, nil, func(c *config.Config) { c.Worker.MaxBatch = 2 })

	_, err := svc.PredictBatch(context.Background(), nil)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	_, err = svc.PredictBatch(context.Background(), []*PredictRequest{{Mass: 1}, {Mass: 2}, {Mass: 3}})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestPredictBatch_Cancelled(t *testing.T) {
	svc := newTestService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.PredictBatch(ctx, []*PredictRequest{{Mass: 180.0634}})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, context.Canceled))
}

func TestCheck(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	t.Run("benzene passes", func(t *testing.T) {
		res, err := svc.Check(ctx, "C6H6")
		require.NoError(t, err)
		assert.Equal(t, "C6H6", res.Formula)
		assert.Equal(t, 78, res.NominalMass)
		assert.InDelta(t, 4.0, res.RDBE, 1e-9)
		assert.True(t, res.Valid)
		assert.Len(t, res.Scores, 4)
	})

	t.Run("implausible hydrogen count fails", func(t *testing.T) {
		res, err := svc.Check(ctx, "CH40")
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.Contains(t, res.Failed, formula.RuleNameElementRatio)
		assert.Contains(t, res.Failed, formula.RuleNameRDBE)
		assert.NotContains(t, res.Failed, formula.RuleNameNitrogen)
		assert.InDelta(t, 0.5, res.Score, 1e-9)
	})

	t.Run("parse error", func(t *testing.T) {
		_, err := svc.Check(ctx, "c6h6")
		assert.True(t, errors.IsCode(err, errors.ErrCodeFormulaParseFailed))
	})
}

func TestRules_Summary(t *testing.T) {
	svc := newTestService(t, nil)

	sum := svc.Rules()
	require.Len(t, sum.Rules, 5)
	assert.Equal(t, formula.RuleNameElementRatio, sum.Rules[0].Name)
	assert.Equal(t, []string{"HYDROGEN_CARBON", "COMMON"}, sum.Rules[0].Parameters)
	assert.Equal(t, formula.RuleNameToleranceRange, sum.Rules[4].Name)
	assert.Equal(t, "mean", sum.Aggregation)
	assert.Equal(t, 1.0, sum.Threshold)
	assert.Equal(t, "HYDROGEN_CARBON", sum.RatioType)
	assert.Equal(t, "COMMON", sum.RatioRange)
	require.Len(t, sum.RatioBounds, 9)
	assert.Equal(t, BoundInfo{Element: "H", Bound: "[0.2, 3.1]"}, sum.RatioBounds[0])
}

func TestReload(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	before, err := svc.Check(ctx, "CH40")
	require.NoError(t, err)
	require.False(t, before.Valid)

	svc.Reload(config.RulesConfig{Enabled: []string{"nitrogen"}, Threshold: 1})

	after, err := svc.Check(ctx, "CH40")
	require.NoError(t, err)
	assert.True(t, after.Valid)
	assert.Len(t, after.Scores, 1)
	assert.Len(t, svc.Rules().Rules, 1)
}

func TestBuildRuleSet_FallsBackOnBadParameters(t *testing.T) {
	log := testutil.NewMockLogger()
	rs := buildRuleSet(config.RulesConfig{
		Enabled:      []string{"element_ratio", "rdbe", "mm_element", "bogus", "element_ratio", "element"},
		ElementRatio: config.ElementRatioConfig{Type: "nonsense", Range: "common"},
		Element:      config.ElementRuleConfig{Elements: map[string]config.ElementRangeConfig{"Zz": {Max: 1}}},
		RDBE:         config.RDBEConfig{Min: 5, Max: 1},
		MMElement:    config.MMElementConfig{Database: "dnp", RangeMass: 750},
		Aggregation:  "geometric",
	}, log)

	require.Len(t, rs.static, 4)
	assert.True(t, log.HasMessage("warn", "unknown aggregation"))
	assert.True(t, log.HasMessage("warn", "element ratio type rejected"))
	assert.True(t, log.HasMessage("warn", "rdbe window rejected"))
	var skipped bool
	for _, msg := range log.Filter("warn") {
		if msg.Message != "skipping rule" {
			continue
		}
		v, ok := msg.Field("error")
		require.True(t, ok)
		skipped = strings.Contains(v.(string), errors.ErrCodeUnknownRule.String()) &&
			strings.Contains(v.(string), "bogus")
	}
	assert.True(t, skipped, "unknown rule should be logged with its code")
	assert.False(t, rs.tolerance)
	assert.Equal(t, formula.AggregateMean, rs.aggregation)
	assert.Equal(t, config.DefaultThreshold, rs.threshold)

	ratio := rs.static[0].(*formula.ElementRatioRule)
	assert.Equal(t, formula.RatioHydrogenCarbon, ratio.RatioType())
	assert.Equal(t, formula.RangeCommon, ratio.RatioRange())

	rdbe := rs.static[1].(*formula.RDBERule)
	assert.Equal(t, []interface{}{-0.5, 30.0}, rdbe.Parameters())

	mm := rs.static[2].(*formula.MMElementRule)
	assert.Equal(t, []interface{}{formula.DatabaseWiley, formula.RangeMass500}, mm.Parameters())

	assert.Equal(t, formula.RuleNameElement, rs.static[3].Name())
}

func TestBuildRuleSet_ConfiguresRules(t *testing.T) {
	rs := buildRuleSet(config.RulesConfig{
		Enabled:      []string{" Element_Ratio ", "tolerance_range"},
		ElementRatio: config.ElementRatioConfig{Type: "all", Range: "extreme"},
		Aggregation:  "product",
		Threshold:    0.5,
	}, logging.NewNopLogger())

	require.Len(t, rs.static, 1)
	assert.True(t, rs.tolerance)
	assert.Equal(t, formula.AggregateProduct, rs.aggregation)
	assert.Equal(t, 0.5, rs.threshold)

	ratio := rs.static[0].(*formula.ElementRatioRule)
	assert.Equal(t, formula.RatioAll, ratio.RatioType())
	assert.Equal(t, formula.RangeExtreme, ratio.RatioRange())

	checker, err := rs.checker(100, 0.01)
	require.NoError(t, err)
	assert.Len(t, checker.Rules(), 2)

	checker, err = rs.checker(0, 0)
	require.NoError(t, err)
	assert.Len(t, checker.Rules(), 1)
}

func TestReady(t *testing.T) {
	t.Run("no cache", func(t *testing.T) {
		assert.NoError(t, newTestService(t, nil).Ready(context.Background()))
	})

	t.Run("cache down", func(t *testing.T) {
		cache := new(MockCache)
		cache.On("Ping", mock.Anything).Return(stderrors.New("connection refused"))
		err := newTestService(t, cache).Ready(context.Background())
		assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
	})

	t.Run("cache up", func(t *testing.T) {
		cache := new(MockCache)
		cache.On("Ping", mock.Anything).Return(nil)
		assert.NoError(t, newTestService(t, cache).Ready(context.Background()))
	})
}

//Personal.AI order the ending
