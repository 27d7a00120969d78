package service

import (
	"errors"
	"testing"

	"github.com/getAlby/finhub.go/common"
	"github.com/getAlby/finhub.go/lib/responses"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(entryType, amount string) EntryInput {
	return EntryInput{AccountID: uuid.New(), EntryType: entryType, Amount: dec(amount)}
}

func violationsOf(t *testing.T, err error) []string {
	t.Helper()
	require.True(t, errors.Is(err, responses.ValidationError), "%v", err)
	return responses.Violations(err)
}

func TestValidateEntriesBalanced(t *testing.T) {
	result := ValidateEntries([]EntryInput{
		line(common.EntryTypeDebit, "100.5"),
		line(common.EntryTypeDebit, "49.4999"),
		line(common.EntryTypeCredit, "149.9999"),
	})
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateEntriesRejectsSmallestImbalance(t *testing.T) {
	result := ValidateEntries([]EntryInput{
		line(common.EntryTypeDebit, "150.0001"),
		line(common.EntryTypeCredit, "150"),
	})
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"debits (150.0001) do not equal credits (150.0000)"}, result.Errors)
}

func TestValidateEntriesNeedsTwoEntries(t *testing.T) {
	result := ValidateEntries([]EntryInput{line(common.EntryTypeDebit, "10")})
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "a transaction needs at least 2 entries (debit and credit)")

	result = ValidateEntries(nil)
	assert.False(t, result.Valid)
}

func TestValidateEntriesCollectsEveryViolation(t *testing.T) {
	result := ValidateEntries([]EntryInput{
		{EntryType: common.EntryTypeDebit, Amount: dec("10")},
		line(common.EntryTypeCredit, "0"),
		line(common.EntryTypeCredit, "-3"),
		line(common.EntryTypeCredit, "1.23456"),
		line("REFUND", "10"),
	})
	assert.False(t, result.Valid)
	assert.Equal(t, []string{
		"entries[0].account_id is required",
		"entries[1].amount 0 must be greater than 0",
		"entries[2].amount -3 must be greater than 0",
		"entries[3].amount 1.23456 has more than 4 decimal places",
		`entries[4].entry_type "REFUND" must be DEBIT or CREDIT`,
		"debits (10.0000) do not equal credits (0.0000)",
	}, result.Errors)
}

func TestCanTransitionTo(t *testing.T) {
	assert.True(t, common.TransactionStatusDraft.CanTransitionTo(common.TransactionStatusPosted))
	assert.True(t, common.TransactionStatusPosted.CanTransitionTo(common.TransactionStatusVoid))
	assert.False(t, common.TransactionStatusDraft.CanTransitionTo(common.TransactionStatusVoid))
	assert.False(t, common.TransactionStatusVoid.CanTransitionTo(common.TransactionStatusPosted))
	assert.False(t, common.TransactionStatusVoid.CanTransitionTo(common.TransactionStatusVoid))
	assert.False(t, common.TransactionStatusPosted.CanTransitionTo(common.TransactionStatusDraft))
}

func TestCreateParamsValidation(t *testing.T) {
	err := validateParams(CreateAccountParams{Type: "CASHFLOW", Subtype: "BANK", Currency: "KENYA"})
	violations := violationsOf(t, err)
	assert.Contains(t, violations, "name is required")
	assert.Contains(t, violations, "type must be one of ASSET LIABILITY INCOME EXPENSE EQUITY")
	assert.Contains(t, violations, "currency failed len validation")

	err = validateParams(TransferParams{Amount: dec("-1")})
	violations = violationsOf(t, err)
	assert.Contains(t, violations, "amount must be greater than 0")
	assert.Contains(t, violations, "from_account_id is required")
	assert.Contains(t, violations, "date is required")

	assert.NoError(t, validateParams(CreateEmployerParams{Name: "Acme", Email: "payroll@acme.co.ke"}))
}
