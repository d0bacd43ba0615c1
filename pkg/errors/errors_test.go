// Package errors_test provides unit tests for the AppError type, factory
// functions, and error-chain helpers defined in pkg/errors.
package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// TestNew
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"invalid configuration", errors.ErrCodeInvalidConfiguration, "ratio rule expects 2 parameters"},
		{"parse failure", errors.ErrCodeFormulaParseFailed, "unexpected character"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
		})
	}
}

func TestAppError_ErrorFormat(t *testing.T) {
	ae := errors.New(errors.ErrCodeInvalidConfiguration, "bad params")
	assert.Equal(t, "[RULE_001] bad params", ae.Error())

	withDetail := ae.WithDetail("got 1")
	assert.Equal(t, "[RULE_001] bad params: got 1", withDetail.Error())
	// WithDetail must not mutate the receiver.
	assert.Empty(t, ae.Detail)
}

func TestAppError_NilReceiverBuilders(t *testing.T) {
	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(stderrors.New("y")))
}

// ─────────────────────────────────────────────────────────────────────────────
// TestWrap
// ─────────────────────────────────────────────────────────────────────────────

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "noop"))
}

func TestWrap_PreservesCodeWhenUnknown(t *testing.T) {
	inner := errors.New(errors.ErrCodeFormulaParseFailed, "bad formula")
	outer := errors.Wrap(inner, errors.CodeUnknown, "check failed")

	assert.Equal(t, errors.ErrCodeFormulaParseFailed, outer.Code)
	assert.True(t, stderrors.Is(outer, inner))
}

func TestIsCode_TraversesChain(t *testing.T) {
	inner := errors.InvalidConfiguration("null parameter")
	wrapped := fmt.Errorf("context: %w", inner)

	assert.True(t, errors.IsCode(wrapped, errors.ErrCodeInvalidConfiguration))
	assert.False(t, errors.IsCode(wrapped, errors.ErrCodeUnknownRatioType))
	assert.False(t, errors.IsCode(nil, errors.ErrCodeInvalidConfiguration))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.ErrCodeMassInvalid, errors.GetCode(errors.New(errors.ErrCodeMassInvalid, "negative")))
}

func TestIsValidation(t *testing.T) {
	assert.True(t, errors.IsValidation(errors.InvalidConfiguration("x")))
	assert.True(t, errors.IsValidation(errors.InvalidParam("x")))
	assert.True(t, errors.IsValidation(errors.Errorf("mass %f", -1.0)))
	assert.False(t, errors.IsValidation(errors.Internal("x")))
	assert.False(t, errors.IsValidation(stderrors.New("plain")))
	assert.False(t, errors.IsValidation(nil))
}

// ─────────────────────────────────────────────────────────────────────────────
// Codes
// ─────────────────────────────────────────────────────────────────────────────

func TestHTTPStatusForCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, errors.HTTPStatusForCode(errors.ErrCodeInvalidConfiguration))
	assert.Equal(t, http.StatusBadRequest, errors.HTTPStatusForCode(errors.ErrCodeFormulaParseFailed))
	assert.Equal(t, http.StatusInternalServerError, errors.HTTPStatusForCode(errors.ErrCodeUnknownRatioType))
	assert.Equal(t, http.StatusTooManyRequests, errors.HTTPStatusForCode(errors.ErrCodeRateLimited))
	assert.Equal(t, http.StatusInternalServerError, errors.HTTPStatusForCode(errors.ErrorCode("NOPE_999")))
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "invalid rule configuration", errors.DefaultMessageForCode(errors.ErrCodeInvalidConfiguration))
	assert.Equal(t, "unknown error", errors.DefaultMessageForCode(errors.ErrorCode("NOPE_999")))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "RULE", errors.ModuleForCode(errors.ErrCodeUnknownRatioType))
	assert.Equal(t, "FRM", errors.ModuleForCode(errors.ErrCodeMassInvalid))
	assert.Equal(t, "UNKNOWN", errors.ModuleForCode(errors.ErrorCode("")))
}

//Personal.AI order the ending
