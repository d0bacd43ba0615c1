package handlers

import (
	"net/http"

	"github.com/turtacn/SumFormula-Intelligence/internal/application/sumformula"
	"github.com/turtacn/SumFormula-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// FormulaHandler exposes prediction, batch prediction, formula checking and
// the active rule set.
type FormulaHandler struct {
	svc         sumformula.Service
	logger      logging.Logger
	maxBodySize int64
}

// NewFormulaHandler creates a FormulaHandler.  maxBodySize <= 0 selects
// DefaultMaxBodySize.
func NewFormulaHandler(svc sumformula.Service, logger logging.Logger, maxBodySize int64) *FormulaHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	return &FormulaHandler{svc: svc, logger: logger, maxBodySize: maxBodySize}
}

// CheckRequest is the body of POST /formulas/check.
type CheckRequest struct {
	Formula string `json:"formula"`
}

// BatchRequest is the body of POST /formulas/predict/batch.
type BatchRequest struct {
	Requests []*sumformula.PredictRequest `json:"requests"`
}

// Predict handles POST /api/v1/formulas/predict.
func (h *FormulaHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req sumformula.PredictRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		writeAppError(w, err)
		return
	}

	pred, err := h.svc.Predict(r.Context(), &req)
	if err != nil {
		h.logFailure("predict", err)
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pred)
}

// PredictBatch handles POST /api/v1/formulas/predict/batch.
func (h *FormulaHandler) PredictBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		writeAppError(w, err)
		return
	}

	res, err := h.svc.PredictBatch(r.Context(), req.Requests)
	if err != nil {
		h.logFailure("predict batch", err)
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Check handles POST /api/v1/formulas/check.
func (h *FormulaHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		writeAppError(w, err)
		return
	}
	if req.Formula == "" {
		writeAppError(w, errors.InvalidParam("formula is required"))
		return
	}

	res, err := h.svc.Check(r.Context(), req.Formula)
	if err != nil {
		h.logFailure("check", err)
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Rules handles GET /api/v1/rules.
func (h *FormulaHandler) Rules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Rules())
}

func (h *FormulaHandler) logFailure(op string, err error) {
	if errors.IsValidation(err) {
		h.logger.Debug(op+" rejected", logging.Err(err))
		return
	}
	h.logger.Error(op+" failed", logging.Err(err))
}

//Personal.AI order the ending
