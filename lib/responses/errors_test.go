package responses

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngineErrorsMatchByKind(t *testing.T) {
	err := NewUnbalancedTransactionError([]string{"debits 150 != credits 150.0001"})

	assert.True(t, errors.Is(err, UnbalancedTransactionError))
	assert.False(t, errors.Is(err, ValidationError))

	wrapped := fmt.Errorf("posting salary: %w", err)
	assert.True(t, errors.Is(wrapped, UnbalancedTransactionError))
	assert.Equal(t, []string{"debits 150 != credits 150.0001"}, Violations(wrapped))
}

func TestNewErrorDoesNotMutateSentinel(t *testing.T) {
	_ = NewInvalidAccountError("account %s is inactive", "abc")

	assert.Equal(t, "invalid account", InvalidAccountError.Message)
	assert.Nil(t, InvalidAccountError.Violations)
}

func TestErrorMessageIncludesViolations(t *testing.T) {
	err := NewValidationErrors([]string{"name is required", "type must be one of ASSET LIABILITY INCOME EXPENSE EQUITY"})

	assert.Equal(t, "Bad arguments: name is required; type must be one of ASSET LIABILITY INCOME EXPENSE EQUITY", err.Error())
}

func TestToErrorResponse(t *testing.T) {
	resp := ToErrorResponse(NewInvalidStateTransitionError("transaction is VOID"))
	assert.True(t, resp.Error)
	assert.Equal(t, 22, resp.Code)
	assert.Equal(t, KindInvalidStateTransition, resp.Kind)
	assert.Equal(t, "transaction is VOID", resp.Message)
	assert.Equal(t, http.StatusConflict, resp.HttpStatusCode)

	assert.Equal(t, GeneralServerError, ToErrorResponse(errors.New("connection reset")))
}

func TestEngineErrorsNotAllowedForSentry(t *testing.T) {
	assert.False(t, IsErrAllowedForSentry(NewValidationError("gross salary must be positive")))
	assert.False(t, IsErrAllowedForSentry(NewInvalidStateTransitionError("already void")))
}

func TestConfigurationMissingAllowedForSentry(t *testing.T) {
	assert.True(t, IsErrAllowedForSentry(NewConfigurationMissingError("no housing levy for 2019-01-01")))
}

func TestNonEngineErrorsAllowedForSentry(t *testing.T) {
	err := errors.New("random error")

	assert.True(t, IsErrAllowedForSentry(err))
}
