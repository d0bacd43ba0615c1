package client

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SumFormula-Intelligence/internal/application/sumformula"
	"github.com/turtacn/SumFormula-Intelligence/internal/config"
	"github.com/turtacn/SumFormula-Intelligence/internal/infrastructure/monitoring/logging"
	httpapi "github.com/turtacn/SumFormula-Intelligence/internal/interfaces/http"
	"github.com/turtacn/SumFormula-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// newAPIClient serves the real router over httptest.
func newAPIClient(t *testing.T) *Client {
	t.Helper()
	svc, err := sumformula.NewService(config.NewDefaultConfig(), nil, nil, logging.NewNopLogger())
	require.NoError(t, err)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		FormulaHandler: handlers.NewFormulaHandler(svc, logging.NewNopLogger(), 0),
		HealthHandler:  handlers.NewHealthHandler("sdk-test", handlers.NewCheckFunc("service", svc.Ready)),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, WithoutRetries())
	require.NoError(t, err)
	return c
}

func TestFormulas_Predict(t *testing.T) {
	c := newAPIClient(t)

	pred, err := c.Formulas().Predict(context.Background(), &PredictRequest{
		Mass:      78.04695,
		Tolerance: 0.001,
		OnlyValid: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, pred.ID)
	assert.InDelta(t, 0.001, pred.Tolerance, 1e-12)
	require.NotEmpty(t, pred.Candidates)

	var benzene *Candidate
	for _, cand := range pred.Candidates {
		assert.True(t, cand.Valid)
		if cand.Formula == "C6H6" {
			benzene = cand
		}
	}
	require.NotNil(t, benzene)
	assert.InDelta(t, 4.0, benzene.RDBE, 1e-9)
	assert.NotNil(t, pred.Best())
}

func TestFormulas_PredictBatch(t *testing.T) {
	c := newAPIClient(t)

	res, err := c.Formulas().PredictBatch(context.Background(), []*PredictRequest{
		{Mass: 180.06339, Tolerance: 0.001},
		{Mass: -5},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.NotNil(t, res.Items[0].Prediction)
	require.NotNil(t, res.Items[1].Error)
	assert.Equal(t, errors.ErrCodeMassInvalid.String(), res.Items[1].Error.Code)
}

func TestFormulas_Check(t *testing.T) {
	c := newAPIClient(t)
	ctx := context.Background()

	res, err := c.Formulas().Check(ctx, " C6H12O6 ")
	require.NoError(t, err)
	assert.Equal(t, "C6H12O6", res.Formula)
	assert.Equal(t, 180, res.NominalMass)
	assert.True(t, res.Valid)

	res, err = c.Formulas().Check(ctx, "CH40")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Failed, "element_ratio")

	_, err = c.Formulas().Check(ctx, "not a formula")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsBadRequest())
	assert.Equal(t, errors.ErrCodeFormulaParseFailed.String(), apiErr.Code)
}

func TestFormulas_Rules(t *testing.T) {
	c := newAPIClient(t)

	summary, err := c.Formulas().Rules(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mean", summary.Aggregation)
	assert.Equal(t, "HYDROGEN_CARBON", summary.RatioType)
	assert.NotEmpty(t, summary.RatioBounds)

	names := make([]string, 0, len(summary.Rules))
	for _, r := range summary.Rules {
		names = append(names, r.Name)
	}
	assert.Contains(t, names, "element_ratio")
}

func TestFormulas_ClientSideValidation(t *testing.T) {
	// Nothing listens here; validation must fail before any request.
	c, err := NewClient("http://127.0.0.1:1", WithoutRetries())
	require.NoError(t, err)
	f := c.Formulas()
	ctx := context.Background()

	_, err = f.Predict(ctx, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	for _, m := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err = f.Predict(ctx, &PredictRequest{Mass: m})
		assert.True(t, errors.IsCode(err, errors.ErrCodeMassInvalid), "mass %v", m)
	}

	_, err = f.Predict(ctx, &PredictRequest{Mass: 100, Tolerance: -1})
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	_, err = f.PredictBatch(ctx, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	_, err = f.Check(ctx, "   ")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestHealth(t *testing.T) {
	c := newAPIClient(t)
	ctx := context.Background()

	live, err := c.Liveness(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alive", live.Status)
	assert.Equal(t, "sdk-test", live.Version)

	ready, err := c.Readiness(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ready", ready.Status)
}

func TestHealth_NotReady(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not_ready"}`))
	}, WithoutRetries())

	_, err := c.Readiness(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsServerError())
}

//Personal.AI order the ending
