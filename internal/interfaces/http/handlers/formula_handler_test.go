package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SumFormula-Intelligence/internal/application/sumformula"
	"github.com/turtacn/SumFormula-Intelligence/internal/config"
	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Predict(ctx context.Context, req *sumformula.PredictRequest) (*sumformula.Prediction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sumformula.Prediction), args.Error(1)
}

func (m *MockService) PredictBatch(ctx context.Context, reqs []*sumformula.PredictRequest) (*sumformula.BatchResult, error) {
	args := m.Called(ctx, reqs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sumformula.BatchResult), args.Error(1)
}

func (m *MockService) Check(ctx context.Context, text string) (*sumformula.CheckResult, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sumformula.CheckResult), args.Error(1)
}

func (m *MockService) Rules() *sumformula.RuleSummary {
	args := m.Called()
	return args.Get(0).(*sumformula.RuleSummary)
}

func (m *MockService) Reload(cfg config.RulesConfig) {
	m.Called(cfg)
}

func (m *MockService) Ready(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func doRequest(h http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestFormulaHandler_Predict(t *testing.T) {
	svc := new(MockService)
	svc.On("Predict", mock.Anything, &sumformula.PredictRequest{Mass: 180.0634, Tolerance: 0.001}).
		Return(&sumformula.Prediction{
			ID:         "abc",
			Mass:       180.0634,
			Candidates: []*sumformula.Candidate{{Formula: "C6H12O6", Valid: true, Score: 1}},
			Generated:  1,
			Accepted:   1,
		}, nil)
	h := NewFormulaHandler(svc, nil, 0)

	rec := doRequest(h.Predict, http.MethodPost, "/api/v1/formulas/predict", `{"mass":180.0634,"tolerance":0.001}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var pred sumformula.Prediction
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&pred))
	assert.Equal(t, "abc", pred.ID)
	require.Len(t, pred.Candidates, 1)
	assert.Equal(t, "C6H12O6", pred.Candidates[0].Formula)
	svc.AssertExpectations(t)
}

func TestFormulaHandler_Predict_BadBody(t *testing.T) {
	h := NewFormulaHandler(new(MockService), nil, 0)

	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"malformed", `{"mass":`},
		{"unknown field", `{"mass":1,"colour":"red"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(h.Predict, http.MethodPost, "/api/v1/formulas/predict", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, errors.CodeInvalidParam.String(), decodeError(t, rec).Code)
		})
	}
}

func TestFormulaHandler_Predict_BodyTooLarge(t *testing.T) {
	h := NewFormulaHandler(new(MockService), nil, 16)
	body := `{"mass":180.0634,"tolerance":0.001,"max_results":10}`

	rec := doRequest(h.Predict, http.MethodPost, "/api/v1/formulas/predict", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFormulaHandler_Predict_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid mass", errors.New(errors.ErrCodeMassInvalid, "mass must be positive"), http.StatusBadRequest, "FRM_002"},
		{"generation failed", errors.New(errors.ErrCodeGenerationFailed, "boom"), http.StatusInternalServerError, "COMMON_001"},
		{"plain error", assert.AnError, http.StatusInternalServerError, "COMMON_001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("Predict", mock.Anything, mock.Anything).Return(nil, tt.err)
			h := NewFormulaHandler(svc, nil, 0)

			rec := doRequest(h.Predict, http.MethodPost, "/api/v1/formulas/predict", `{"mass":-1}`)
			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, resp.Code)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, resp.Message, "boom")
			}
		})
	}
}

func TestFormulaHandler_PredictBatch(t *testing.T) {
	svc := new(MockService)
	svc.On("PredictBatch", mock.Anything, mock.MatchedBy(func(reqs []*sumformula.PredictRequest) bool {
		return len(reqs) == 2 && reqs[0].Mass == 78.04695 && reqs[1].Mass == -1
	})).Return(&sumformula.BatchResult{
		Items: []*sumformula.BatchItem{
			{Index: 0, Prediction: &sumformula.Prediction{ID: "a"}},
			{Index: 1, Error: &sumformula.ItemError{Code: "FRM_002", Message: "invalid mass"}},
		},
		Succeeded: 1,
		Failed:    1,
	}, nil)
	h := NewFormulaHandler(svc, nil, 0)

	rec := doRequest(h.PredictBatch, http.MethodPost, "/api/v1/formulas/predict/batch",
		`{"requests":[{"mass":78.04695},{"mass":-1}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var res sumformula.BatchResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, "FRM_002", res.Items[1].Error.Code)
}

func TestFormulaHandler_Check(t *testing.T) {
	svc := new(MockService)
	svc.On("Check", mock.Anything, "C6H6").Return(&sumformula.CheckResult{Formula: "C6H6", Valid: true, Score: 1}, nil)
	svc.On("Check", mock.Anything, "c6h6").Return(nil, errors.New(errors.ErrCodeFormulaParseFailed, "formula syntax is invalid").WithDetail("c6h6"))
	h := NewFormulaHandler(svc, nil, 0)

	rec := doRequest(h.Check, http.MethodPost, "/api/v1/formulas/check", `{"formula":"C6H6"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var res sumformula.CheckResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.True(t, res.Valid)

	rec = doRequest(h.Check, http.MethodPost, "/api/v1/formulas/check", `{"formula":"c6h6"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "FRM_001", resp.Code)
	assert.Equal(t, "c6h6", resp.Detail)

	rec = doRequest(h.Check, http.MethodPost, "/api/v1/formulas/check", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFormulaHandler_Rules(t *testing.T) {
	svc := new(MockService)
	svc.On("Rules").Return(&sumformula.RuleSummary{
		Rules:       []sumformula.RuleInfo{{Name: "element_ratio", Parameters: []string{"HYDROGEN_CARBON", "COMMON"}}},
		Aggregation: "mean",
		Threshold:   1,
	})
	h := NewFormulaHandler(svc, nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rules", &bytes.Buffer{})
	rec := httptest.NewRecorder()
	h.Rules(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var sum sumformula.RuleSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sum))
	assert.Equal(t, "element_ratio", sum.Rules[0].Name)
}

//Personal.AI order the ending
