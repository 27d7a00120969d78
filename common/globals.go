package common

const (
	AccountTypeAsset     = "ASSET"
	AccountTypeLiability = "LIABILITY"
	AccountTypeIncome    = "INCOME"
	AccountTypeExpense   = "EXPENSE"
	AccountTypeEquity    = "EQUITY"

	AccountSubtypeBank       = "BANK"
	AccountSubtypeCash       = "CASH"
	AccountSubtypeMpesa      = "MPESA"
	AccountSubtypeInvestment = "INVESTMENT"
	AccountSubtypeVirtual    = "VIRTUAL"
	AccountSubtypeSalary     = "SALARY"

	SystemKeySalaryIncome = "salary_income"

	EntryTypeDebit  = "DEBIT"
	EntryTypeCredit = "CREDIT"

	IncomeTypeSalary     = "SALARY"
	IncomeTypeBusiness   = "BUSINESS"
	IncomeTypeInvestment = "INVESTMENT"
	IncomeTypeOther      = "OTHER"

	CategoryTypeIncome  = "INCOME"
	CategoryTypeExpense = "EXPENSE"

	// expense accounts are created per category on first use
	AccountSubtypeExpenseCategory = "CATEGORY"
	SystemKeyExpensePrefix        = "expense_category:"

	DefaultCurrency = "KES"

	EventTransactionPosted = "transaction.posted"
	EventTransactionVoided = "transaction.voided"
	EventIncomeRecorded    = "income.recorded"
	EventExpenseRecorded   = "expense.recorded"
	EventExpenseDeleted    = "expense.deleted"
)

type TransactionStatus string

const (
	TransactionStatusDraft  TransactionStatus = "DRAFT"
	TransactionStatusPosted TransactionStatus = "POSTED"
	TransactionStatusVoid   TransactionStatus = "VOID"
)

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// DRAFT -> POSTED -> VOID; VOID is terminal.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	switch s {
	case TransactionStatusDraft:
		return next == TransactionStatusPosted
	case TransactionStatusPosted:
		return next == TransactionStatusVoid
	}
	return false
}

// DebitNormal reports whether accounts of the given type carry a natural debit balance.
func DebitNormal(accountType string) bool {
	return accountType == AccountTypeAsset || accountType == AccountTypeExpense
}

var AccountTypes = []string{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeIncome,
	AccountTypeExpense,
	AccountTypeEquity,
}

var LiquidSubtypes = []string{
	AccountSubtypeBank,
	AccountSubtypeCash,
	AccountSubtypeMpesa,
}
