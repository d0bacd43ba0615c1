package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// DefaultMaxBodySize bounds request bodies when the handler is not told
// otherwise.
const DefaultMaxBodySize int64 = 1 << 20

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeAppError maps an error to its HTTP status.  Client errors carry their
// message; anything else is masked.
func writeAppError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	var ae *errors.AppError
	if status < http.StatusInternalServerError && stderrors.As(err, &ae) {
		writeJSON(w, status, ErrorResponse{Code: ae.Code.String(), Message: ae.Message, Detail: ae.Detail})
		return
	}
	if status == http.StatusServiceUnavailable {
		writeJSON(w, status, ErrorResponse{Code: code.String(), Message: errors.DefaultMessageForCode(code)})
		return
	}
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Code:    errors.ErrCodeInternal.String(),
		Message: errors.DefaultMessageForCode(errors.ErrCodeInternal),
	})
}

// decodeJSON reads a single JSON document of at most limit bytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst interface{}) error {
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return errors.InvalidParam("request body is empty")
		}
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.InvalidParam("request body too large")
		}
		return errors.Wrap(err, errors.CodeInvalidParam, "invalid JSON body").WithDetail(err.Error())
	}
	return nil
}

//Personal.AI order the ending
