package integration_tests

import (
	"errors"
	"log"
	"testing"

	"github.com/getAlby/finhub.go/common"
	"github.com/getAlby/finhub.go/db/models"
	"github.com/getAlby/finhub.go/lib/responses"
	"github.com/getAlby/finhub.go/lib/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ExpensesTestSuite struct {
	TestSuite
	user *models.User
	bank *models.Account
}

func (suite *ExpensesTestSuite) SetupSuite() {
	svc, err := FinhubTestServiceInit(nil)
	if err != nil {
		log.Fatalf("Error initializing test service: %v", err)
	}
	suite.svc = svc
	suite.user = suite.createUser("expenses-user")
	suite.bank = suite.createAccount(suite.user.ID, "Household Bank", common.AccountTypeAsset, common.AccountSubtypeBank)
}

func (suite *ExpensesTestSuite) TearDownSuite() {
	suite.svc.DB.Close()
}

func (suite *ExpensesTestSuite) category(userID uuid.UUID, categoryType, name string) *models.Category {
	categories, err := suite.svc.GetCategories(suite.ctx(), userID, categoryType)
	suite.Require().NoError(err)
	for i := range categories {
		if categories[i].Name == name {
			return &categories[i]
		}
	}
	suite.FailNow("category not found", name)
	return nil
}

func (suite *ExpensesTestSuite) spend(userID uuid.UUID, category, amount, merchant string, day int) *models.Expense {
	expense, err := suite.svc.RecordExpense(suite.ctx(), userID, service.RecordExpenseParams{
		CategoryID:  suite.category(userID, common.CategoryTypeExpense, category).ID,
		Description: category,
		Amount:      dec(amount),
		ExpenseDate: date(2024, 6, day),
		Merchant:    merchant,
	})
	suite.Require().NoError(err)
	return expense
}

func (suite *ExpensesTestSuite) TestSystemCategoriesAreShared() {
	expense, err := suite.svc.GetCategories(suite.ctx(), suite.user.ID, common.CategoryTypeExpense)
	suite.Require().NoError(err)
	assert.Len(suite.T(), expense, 8)
	for _, c := range expense {
		assert.True(suite.T(), c.IsSystem)
		assert.False(suite.T(), c.UserID.Valid)
	}

	income, err := suite.svc.GetCategories(suite.ctx(), suite.user.ID, common.CategoryTypeIncome)
	suite.Require().NoError(err)
	assert.Len(suite.T(), income, 4)
}

func (suite *ExpensesTestSuite) TestCustomCategoriesAreOwnerScoped() {
	owner := suite.createUser("category-owner")
	other := suite.createUser("category-other")

	created, err := suite.svc.CreateCategory(suite.ctx(), owner.ID, service.CreateCategoryParams{
		Name:  "School Fees",
		Type:  common.CategoryTypeExpense,
		Color: "#F59E0B",
	})
	suite.Require().NoError(err)
	assert.False(suite.T(), created.IsSystem)
	assert.Equal(suite.T(), "School Fees", suite.category(owner.ID, common.CategoryTypeExpense, "School Fees").Name)

	_, err = suite.svc.CreateCategory(suite.ctx(), owner.ID, service.CreateCategoryParams{Name: "School Fees", Type: common.CategoryTypeExpense})
	suite.Require().True(errors.Is(err, responses.ValidationError))
	assert.Equal(suite.T(), []string{`EXPENSE category "School Fees" already exists`}, responses.Violations(err))

	_, err = suite.svc.CreateCategory(suite.ctx(), owner.ID, service.CreateCategoryParams{Name: "Groceries", Type: common.CategoryTypeExpense})
	assert.True(suite.T(), errors.Is(err, responses.ValidationError))

	categories, err := suite.svc.GetCategories(suite.ctx(), other.ID, common.CategoryTypeExpense)
	suite.Require().NoError(err)
	assert.Len(suite.T(), categories, 8)

	_, err = suite.svc.RecordExpense(suite.ctx(), other.ID, service.RecordExpenseParams{
		CategoryID:  created.ID,
		Description: "Term two",
		Amount:      dec("45000"),
		ExpenseDate: date(2024, 5, 6),
	})
	assert.True(suite.T(), errors.Is(err, responses.NotFoundError))
}

func (suite *ExpensesTestSuite) TestRecordExpenseWithoutPosting() {
	user := suite.createUser("unposted-expense")
	bankBefore := suite.balance(suite.bank.ID)

	expense, err := suite.svc.RecordExpense(suite.ctx(), user.ID, service.RecordExpenseParams{
		CategoryID:    suite.category(user.ID, common.CategoryTypeExpense, "Dining").ID,
		Description:   "Lunch",
		Amount:        dec("850.50"),
		ExpenseDate:   date(2024, 6, 3),
		Merchant:      "Java House",
		PaymentMethod: "MPESA",
		Tags:          []string{"work"},
	})
	suite.Require().NoError(err)
	assert.False(suite.T(), expense.TransactionID.Valid)
	assert.Equal(suite.T(), common.DefaultCurrency, expense.Currency)
	assert.True(suite.T(), suite.balance(suite.bank.ID).Equal(bankBefore))

	stored, err := suite.svc.GetExpenses(suite.ctx(), user.ID, service.ExpenseFilter{})
	suite.Require().NoError(err)
	suite.Require().Len(stored, 1)
	assert.Equal(suite.T(), "Dining", stored[0].Category.Name)
	assert.Equal(suite.T(), []string{"work"}, stored[0].Tags)
	assert.True(suite.T(), dec("850.5").Equal(stored[0].Amount))
}

func (suite *ExpensesTestSuite) TestRecordExpensePostsAgainstPayingAccount() {
	bankBefore := suite.balance(suite.bank.ID)

	expense, err := suite.svc.RecordExpense(suite.ctx(), suite.user.ID, service.RecordExpenseParams{
		CategoryID:        suite.category(suite.user.ID, common.CategoryTypeExpense, "Utilities").ID,
		AccountID:         uuid.NullUUID{UUID: suite.bank.ID, Valid: true},
		CreateTransaction: true,
		Description:       "KPLC tokens",
		Amount:            dec("2500"),
		ExpenseDate:       date(2024, 6, 5),
		Merchant:          "KPLC",
	})
	suite.Require().NoError(err)
	suite.Require().True(expense.TransactionID.Valid)
	assert.Equal(suite.T(), "-2500", suite.balance(suite.bank.ID).Sub(bankBefore).String())

	transaction, err := suite.svc.GetTransactionByID(suite.ctx(), suite.user.ID, expense.TransactionID.UUID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), common.TransactionStatusPosted, transaction.Status)
	suite.Require().Len(transaction.Entries, 2)
	assert.Equal(suite.T(), common.EntryTypeDebit, transaction.Entries[0].EntryType)
	assert.Equal(suite.T(), common.EntryTypeCredit, transaction.Entries[1].EntryType)
	assert.Equal(suite.T(), suite.bank.ID, transaction.Entries[1].AccountID)

	utilities, err := suite.svc.GetAccountByID(suite.ctx(), suite.user.ID, transaction.Entries[0].AccountID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), common.AccountTypeExpense, utilities.Type)
	assert.Equal(suite.T(), common.AccountSubtypeExpenseCategory, utilities.Subtype)
	assert.Equal(suite.T(), common.SystemKeyExpensePrefix+expense.CategoryID.String(), utilities.SystemKey)
	assert.Equal(suite.T(), "2500", suite.balance(utilities.ID).String())

	// the same category account is reused
	second, err := suite.svc.RecordExpense(suite.ctx(), suite.user.ID, service.RecordExpenseParams{
		CategoryID:        expense.CategoryID,
		AccountID:         uuid.NullUUID{UUID: suite.bank.ID, Valid: true},
		CreateTransaction: true,
		Description:       "Water bill",
		Amount:            dec("900"),
		ExpenseDate:       date(2024, 6, 6),
	})
	suite.Require().NoError(err)
	transaction, err = suite.svc.GetTransactionByID(suite.ctx(), suite.user.ID, second.TransactionID.UUID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), utilities.ID, transaction.Entries[0].AccountID)
	assert.Equal(suite.T(), "3400", suite.balance(utilities.ID).String())
}

func (suite *ExpensesTestSuite) TestRecordExpenseRejectsBadInput() {
	salary := suite.category(suite.user.ID, common.CategoryTypeIncome, "Salary")
	_, err := suite.svc.RecordExpense(suite.ctx(), suite.user.ID, service.RecordExpenseParams{
		CategoryID:  salary.ID,
		Description: "Not spending",
		Amount:      dec("100"),
		ExpenseDate: date(2024, 6, 1),
	})
	suite.Require().True(errors.Is(err, responses.ValidationError))
	assert.Equal(suite.T(), []string{"category Salary is not an active expense category"}, responses.Violations(err))

	groceries := suite.category(suite.user.ID, common.CategoryTypeExpense, "Groceries")
	_, err = suite.svc.RecordExpense(suite.ctx(), suite.user.ID, service.RecordExpenseParams{
		CategoryID:  groceries.ID,
		Description: "Milk",
		Amount:      dec("60.125"),
		ExpenseDate: date(2024, 6, 1),
	})
	suite.Require().True(errors.Is(err, responses.ValidationError))
	assert.Equal(suite.T(), []string{"amount must have at most 2 decimal places"}, responses.Violations(err))

	_, err = suite.svc.RecordExpense(suite.ctx(), suite.user.ID, service.RecordExpenseParams{
		CategoryID:        groceries.ID,
		CreateTransaction: true,
		Description:       "Milk",
		Amount:            dec("60"),
		ExpenseDate:       date(2024, 6, 1),
	})
	assert.True(suite.T(), errors.Is(err, responses.ValidationError))

	_, err = suite.svc.RecordExpense(suite.ctx(), suite.user.ID, service.RecordExpenseParams{
		CategoryID:        groceries.ID,
		AccountID:         uuid.NullUUID{UUID: uuid.New(), Valid: true},
		CreateTransaction: true,
		Description:       "Milk",
		Amount:            dec("60"),
		ExpenseDate:       date(2024, 6, 1),
	})
	assert.True(suite.T(), errors.Is(err, responses.InvalidAccountError))

	_, err = suite.svc.RecordExpense(suite.ctx(), suite.user.ID, service.RecordExpenseParams{
		CategoryID:  uuid.New(),
		Description: "Milk",
		Amount:      dec("60"),
		ExpenseDate: date(2024, 6, 1),
	})
	assert.True(suite.T(), errors.Is(err, responses.NotFoundError))
}

func (suite *ExpensesTestSuite) TestDeleteExpenseVoidsItsTransaction() {
	bankBefore := suite.balance(suite.bank.ID)
	expense, err := suite.svc.RecordExpense(suite.ctx(), suite.user.ID, service.RecordExpenseParams{
		CategoryID:        suite.category(suite.user.ID, common.CategoryTypeExpense, "Entertainment").ID,
		AccountID:         uuid.NullUUID{UUID: suite.bank.ID, Valid: true},
		CreateTransaction: true,
		Description:       "Cinema",
		Amount:            dec("1200"),
		ExpenseDate:       date(2024, 6, 8),
	})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "-1200", suite.balance(suite.bank.ID).Sub(bankBefore).String())

	deleted, err := suite.svc.DeleteExpense(suite.ctx(), suite.user.ID, expense.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), expense.ID, deleted.ID)
	assert.True(suite.T(), suite.balance(suite.bank.ID).Equal(bankBefore))

	transaction, err := suite.svc.GetTransactionByID(suite.ctx(), suite.user.ID, expense.TransactionID.UUID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), common.TransactionStatusVoid, transaction.Status)
	assert.Equal(suite.T(), "expense deleted", transaction.VoidReason)

	_, err = suite.svc.DeleteExpense(suite.ctx(), suite.user.ID, expense.ID)
	assert.True(suite.T(), errors.Is(err, responses.NotFoundError))
}

func (suite *ExpensesTestSuite) TestExpenseSummary() {
	user := suite.createUser("summary-spender")
	suite.spend(user.ID, "Groceries", "1200", "Naivas", 2)
	suite.spend(user.ID, "Groceries", "300", "Carrefour", 9)
	suite.spend(user.ID, "Transport", "500", "Uber", 12)
	_, err := suite.svc.RecordExpense(suite.ctx(), user.ID, service.RecordExpenseParams{
		CategoryID:  suite.category(user.ID, common.CategoryTypeExpense, "Shopping").ID,
		Description: "Next month",
		Amount:      dec("9999"),
		ExpenseDate: date(2024, 7, 1),
	})
	suite.Require().NoError(err)

	summary, err := suite.svc.GetExpenseSummary(suite.ctx(), user.ID, date(2024, 6, 1), date(2024, 6, 30))
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "2000", summary.TotalExpenses.String())
	assert.Equal(suite.T(), 3, summary.ExpenseCount)
	assert.Equal(suite.T(), "666.67", summary.AverageExpense.String())
	assert.Equal(suite.T(), "Groceries", summary.TopCategory)
	assert.Equal(suite.T(), "Naivas", summary.TopMerchant)

	suite.Require().Len(summary.ByCategory, 2)
	assert.Equal(suite.T(), "Groceries", summary.ByCategory[0].CategoryName)
	assert.Equal(suite.T(), 2, summary.ByCategory[0].ExpenseCount)
	assert.True(suite.T(), dec("75").Equal(summary.ByCategory[0].Percentage))
	assert.Equal(suite.T(), "Transport", summary.ByCategory[1].CategoryName)
	assert.True(suite.T(), dec("25").Equal(summary.ByCategory[1].Percentage))

	_, err = suite.svc.GetExpenseSummary(suite.ctx(), user.ID, date(2024, 6, 30), date(2024, 6, 1))
	assert.True(suite.T(), errors.Is(err, responses.ValidationError))
}

func (suite *ExpensesTestSuite) TestDashboardComparesWithPreviousPeriod() {
	user := suite.createUser("dashboard-user")
	income, err := suite.svc.RecordIncome(suite.ctx(), user.ID, service.RecordIncomeParams{
		GrossAmount: dec("20000"),
		IncomeDate:  date(2024, 6, 28),
		Description: "June salary",
	})
	suite.Require().NoError(err)
	suite.spend(user.ID, "Groceries", "5000", "Naivas", 10)
	_, err = suite.svc.RecordExpense(suite.ctx(), user.ID, service.RecordExpenseParams{
		CategoryID:  suite.category(user.ID, common.CategoryTypeExpense, "Transport").ID,
		Description: "Matatu fares",
		Amount:      dec("2500"),
		ExpenseDate: date(2024, 5, 15),
	})
	suite.Require().NoError(err)

	stats, err := suite.svc.GetDashboardStats(suite.ctx(), user.ID, date(2024, 6, 1), date(2024, 6, 30))
	suite.Require().NoError(err)

	assert.Equal(suite.T(), date(2024, 5, 2), stats.Previous.From)
	assert.Equal(suite.T(), date(2024, 5, 31), stats.Previous.To)
	assert.True(suite.T(), income.NetAmount.Equal(stats.Current.TotalIncome))
	assert.Equal(suite.T(), "5000", stats.Current.TotalExpenses.String())
	assert.True(suite.T(), income.NetAmount.Sub(dec("5000")).Equal(stats.Current.NetSavings))
	assert.Equal(suite.T(), 2, stats.Current.EntryCount)
	assert.True(suite.T(), stats.Current.SavingsRate.IsPositive())

	assert.True(suite.T(), stats.Previous.TotalIncome.IsZero())
	assert.Equal(suite.T(), "2500", stats.Previous.TotalExpenses.String())
	assert.True(suite.T(), stats.Previous.SavingsRate.IsZero())

	assert.Equal(suite.T(), "100", stats.Comparison.IncomeChange.String())
	assert.Equal(suite.T(), "100", stats.Comparison.ExpenseChange.String())

	suite.Require().Len(stats.SpendingByCategory, 1)
	assert.Equal(suite.T(), "Groceries", stats.SpendingByCategory[0].CategoryName)

	suite.Require().Len(stats.MonthlyTrend, 12)
	assert.Equal(suite.T(), "2023-07", stats.MonthlyTrend[0].Month)
	assert.Equal(suite.T(), "2024-05", stats.MonthlyTrend[10].Month)
	assert.Equal(suite.T(), "2500", stats.MonthlyTrend[10].Expenses.String())
	assert.Equal(suite.T(), "-2500", stats.MonthlyTrend[10].Savings.String())
	assert.Equal(suite.T(), "2024-06", stats.MonthlyTrend[11].Month)
	assert.True(suite.T(), income.NetAmount.Equal(stats.MonthlyTrend[11].Income))
}

func TestExpensesSuite(t *testing.T) {
	suite.Run(t, new(ExpensesTestSuite))
}
