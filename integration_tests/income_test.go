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

type IncomeTestSuite struct {
	TestSuite
	user *models.User
	bank *models.Account
}

func (suite *IncomeTestSuite) SetupSuite() {
	svc, err := FinhubTestServiceInit(nil)
	if err != nil {
		log.Fatalf("Error initializing test service: %v", err)
	}
	suite.svc = svc
	suite.user = suite.createUser("income-user")
	suite.bank = suite.createAccount(suite.user.ID, "Salary Bank", common.AccountTypeAsset, common.AccountSubtypeBank)
}

func (suite *IncomeTestSuite) TearDownSuite() {
	suite.svc.DB.Close()
}

func (suite *IncomeTestSuite) TestRecordIncomeWithoutPosting() {
	entry, err := suite.svc.RecordIncome(suite.ctx(), suite.user.ID, service.RecordIncomeParams{
		GrossAmount: dec("150000"),
		IncomeDate:  date(2024, 6, 30),
		Description: "June salary",
	})
	suite.Require().NoError(err)

	assert.Equal(suite.T(), common.IncomeTypeSalary, entry.IncomeType)
	assert.Equal(suite.T(), "37383.4", entry.Paye.String())
	assert.Equal(suite.T(), "1700", entry.Nhif.String())
	assert.Equal(suite.T(), "420", entry.NssfTier1.String())
	assert.Equal(suite.T(), "1740", entry.NssfTier2.String())
	assert.Equal(suite.T(), "2160", entry.NssfTotal.String())
	assert.Equal(suite.T(), "2250", entry.HousingLevy.String())
	assert.Equal(suite.T(), "43493.4", entry.TotalDeductions.String())
	assert.Equal(suite.T(), "106506.6", entry.NetAmount.String())
	assert.False(suite.T(), entry.TransactionID.Valid)
	assert.Len(suite.T(), entry.CalculationBreakdown.Bands, 3)

	stored, err := suite.svc.GetIncomeEntryByID(suite.ctx(), suite.user.ID, entry.ID)
	suite.Require().NoError(err)
	assert.True(suite.T(), entry.NetAmount.Equal(stored.NetAmount))
	assert.Len(suite.T(), stored.CalculationBreakdown.Bands, 3)
	assert.Equal(suite.T(), "35300.4", stored.CalculationBreakdown.Bands[2].Tax.String())
}

func (suite *IncomeTestSuite) TestRecordIncomePostsNetPay() {
	bankBefore := suite.balance(suite.bank.ID)

	entry, err := suite.svc.RecordIncome(suite.ctx(), suite.user.ID, service.RecordIncomeParams{
		GrossAmount:       dec("20000"),
		IncomeDate:        date(2024, 7, 31),
		Description:       "July salary",
		BankAccountID:     uuid.NullUUID{UUID: suite.bank.ID, Valid: true},
		CreateTransaction: true,
		OtherDeductions:   decPtr("250"),
	})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "0", entry.Paye.String())
	assert.Equal(suite.T(), "2500", entry.TotalDeductions.String())
	assert.Equal(suite.T(), "17500", entry.NetAmount.String())
	suite.Require().True(entry.TransactionID.Valid)

	assert.Equal(suite.T(), "17500", suite.balance(suite.bank.ID).Sub(bankBefore).String())

	transaction, err := suite.svc.GetTransactionByID(suite.ctx(), suite.user.ID, entry.TransactionID.UUID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), common.TransactionStatusPosted, transaction.Status)
	suite.Require().Len(transaction.Entries, 2)
	assert.Equal(suite.T(), common.EntryTypeDebit, transaction.Entries[0].EntryType)
	assert.Equal(suite.T(), suite.bank.ID, transaction.Entries[0].AccountID)

	salary, err := suite.svc.GetAccountByID(suite.ctx(), suite.user.ID, transaction.Entries[1].AccountID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), common.SystemKeySalaryIncome, salary.SystemKey)
	assert.Equal(suite.T(), common.AccountTypeIncome, salary.Type)

	// the salary account is reused, never duplicated
	_, err = suite.svc.RecordIncome(suite.ctx(), suite.user.ID, service.RecordIncomeParams{
		GrossAmount:       dec("20000"),
		IncomeDate:        date(2024, 8, 31),
		Description:       "August salary",
		BankAccountID:     uuid.NullUUID{UUID: suite.bank.ID, Valid: true},
		CreateTransaction: true,
	})
	suite.Require().NoError(err)
	accounts, err := suite.svc.GetAccounts(suite.ctx(), suite.user.ID, service.AccountFilter{Subtype: common.AccountSubtypeSalary})
	suite.Require().NoError(err)
	assert.Len(suite.T(), accounts, 1)
}

func (suite *IncomeTestSuite) TestPostingFailureLeavesNoRecord() {
	closed := suite.createAccount(suite.user.ID, "Closed Bank", common.AccountTypeAsset, common.AccountSubtypeBank)
	_, err := suite.svc.SetAccountActive(suite.ctx(), suite.user.ID, closed.ID, false)
	suite.Require().NoError(err)

	_, err = suite.svc.RecordIncome(suite.ctx(), suite.user.ID, service.RecordIncomeParams{
		GrossAmount:       dec("50000"),
		IncomeDate:        date(2024, 9, 30),
		Description:       "Rolled back salary",
		BankAccountID:     uuid.NullUUID{UUID: closed.ID, Valid: true},
		CreateTransaction: true,
	})
	assert.True(suite.T(), errors.Is(err, responses.InvalidAccountError))

	count, err := suite.svc.DB.NewSelect().
		Model((*models.IncomeEntry)(nil)).
		Where("description = ?", "Rolled back salary").
		Count(suite.ctx())
	suite.Require().NoError(err)
	assert.Equal(suite.T(), 0, count)
}

func (suite *IncomeTestSuite) TestGrossWithMoreThanTwoPlacesIsRejected() {
	bankBefore := suite.balance(suite.bank.ID)

	_, err := suite.svc.RecordIncome(suite.ctx(), suite.user.ID, service.RecordIncomeParams{
		GrossAmount:       dec("150000.555"),
		IncomeDate:        date(2024, 11, 30),
		Description:       "Fractional cents",
		BankAccountID:     uuid.NullUUID{UUID: suite.bank.ID, Valid: true},
		CreateTransaction: true,
	})
	suite.Require().True(errors.Is(err, responses.ValidationError))
	assert.Equal(suite.T(), []string{"gross_amount must have at most 2 decimal places"}, responses.Violations(err))
	assert.True(suite.T(), bankBefore.Equal(suite.balance(suite.bank.ID)))

	entry, err := suite.svc.RecordIncome(suite.ctx(), suite.user.ID, service.RecordIncomeParams{
		GrossAmount:       dec("150000.55"),
		IncomeDate:        date(2024, 11, 30),
		Description:       "Salary with cents",
		BankAccountID:     uuid.NullUUID{UUID: suite.bank.ID, Valid: true},
		CreateTransaction: true,
	})
	suite.Require().NoError(err)
	assert.True(suite.T(), entry.NetAmount.Equal(entry.NetAmount.Round(2)))
	assert.True(suite.T(), entry.GrossAmount.Sub(entry.TotalDeductions).Equal(entry.NetAmount))

	posted, err := suite.svc.GetTransactionByID(suite.ctx(), suite.user.ID, entry.TransactionID.UUID)
	suite.Require().NoError(err)
	for _, line := range posted.Entries {
		assert.True(suite.T(), entry.NetAmount.Equal(line.Amount))
	}
	assert.True(suite.T(), entry.NetAmount.Equal(suite.balance(suite.bank.ID).Sub(bankBefore)))
}

func (suite *IncomeTestSuite) TestForeignCurrencyBankIsRejected() {
	user := suite.createUser("income-usd")
	usd, err := suite.svc.CreateAccount(suite.ctx(), user.ID, service.CreateAccountParams{
		Name:     "Dollar Account",
		Type:     common.AccountTypeAsset,
		Subtype:  common.AccountSubtypeBank,
		Currency: "USD",
	})
	suite.Require().NoError(err)

	_, err = suite.svc.RecordIncome(suite.ctx(), user.ID, service.RecordIncomeParams{
		GrossAmount:       dec("150000"),
		IncomeDate:        date(2024, 6, 30),
		Description:       "Salary into dollars",
		BankAccountID:     uuid.NullUUID{UUID: usd.ID, Valid: true},
		CreateTransaction: true,
	})
	suite.Require().True(errors.Is(err, responses.ValidationError))
	assert.Contains(suite.T(), responses.Violations(err)[0], "is in KES but the transaction is in USD")
	assert.True(suite.T(), suite.balance(usd.ID).IsZero())

	entries, err := suite.svc.GetIncomeEntries(suite.ctx(), user.ID, service.IncomeFilter{})
	suite.Require().NoError(err)
	assert.Empty(suite.T(), entries)
}

func (suite *IncomeTestSuite) TestPostingNeedsBankAccount() {
	_, err := suite.svc.RecordIncome(suite.ctx(), suite.user.ID, service.RecordIncomeParams{
		GrossAmount:       dec("50000"),
		IncomeDate:        date(2024, 9, 30),
		Description:       "No bank",
		CreateTransaction: true,
	})
	assert.True(suite.T(), errors.Is(err, responses.ValidationError))
}

func (suite *IncomeTestSuite) TestRecordIncomeValidation() {
	_, err := suite.svc.RecordIncome(suite.ctx(), suite.user.ID, service.RecordIncomeParams{
		GrossAmount: dec("-1"),
		IncomeType:  "LOTTERY",
	})
	suite.Require().True(errors.Is(err, responses.ValidationError))
	violations := responses.Violations(err)
	assert.Contains(suite.T(), violations, "gross_amount must be greater than 0")
	assert.Contains(suite.T(), violations, "income_date is required")
	assert.Contains(suite.T(), violations, "description is required")
	assert.Contains(suite.T(), violations, "income_type must be one of SALARY BUSINESS INVESTMENT OTHER")
}

func (suite *IncomeTestSuite) TestManualOverridesAreFlagged() {
	entry, err := suite.svc.RecordIncome(suite.ctx(), suite.user.ID, service.RecordIncomeParams{
		GrossAmount:   dec("150000"),
		IncomeDate:    date(2024, 10, 31),
		Description:   "October salary per payslip",
		Overrides:     service.PayeOverrides{Nhif: decPtr("500")},
		OverrideNotes: "payslip shows 500",
	})
	suite.Require().NoError(err)
	assert.True(suite.T(), entry.IsManualOverride)
	assert.Equal(suite.T(), "500", entry.Nhif.String())
	assert.Equal(suite.T(), "42293.4", entry.TotalDeductions.String())
	assert.Equal(suite.T(), "107706.6", entry.NetAmount.String())
	assert.Equal(suite.T(), []string{service.ComponentNhif}, entry.CalculationBreakdown.Overridden)
}

func (suite *IncomeTestSuite) TestEmployersAndSummary() {
	user := suite.createUser("income-summary")
	first, err := suite.svc.CreateEmployer(suite.ctx(), user.ID, service.CreateEmployerParams{Name: "Acme Ltd"})
	suite.Require().NoError(err)
	assert.True(suite.T(), first.IsCurrent)
	second, err := suite.svc.CreateEmployer(suite.ctx(), user.ID, service.CreateEmployerParams{Name: "Beta Ltd", PinNumber: "P051234567X"})
	suite.Require().NoError(err)

	employers, err := suite.svc.GetEmployers(suite.ctx(), user.ID)
	suite.Require().NoError(err)
	suite.Require().Len(employers, 2)
	assert.Equal(suite.T(), second.ID, employers[0].ID)
	assert.True(suite.T(), employers[0].IsCurrent)
	assert.False(suite.T(), employers[1].IsCurrent)

	_, err = suite.svc.CreateEmployer(suite.ctx(), user.ID, service.CreateEmployerParams{Name: "Bad", Email: "not-an-email"})
	assert.True(suite.T(), errors.Is(err, responses.ValidationError))

	for _, gross := range []string{"150000", "20000"} {
		_, err := suite.svc.RecordIncome(suite.ctx(), user.ID, service.RecordIncomeParams{
			GrossAmount: dec(gross),
			IncomeDate:  date(2024, 5, 31),
			Description: "May",
			EmployerID:  uuid.NullUUID{UUID: second.ID, Valid: true},
		})
		suite.Require().NoError(err)
	}
	_, err = suite.svc.RecordIncome(suite.ctx(), user.ID, service.RecordIncomeParams{
		GrossAmount: dec("20000"),
		IncomeDate:  date(2024, 12, 31),
		Description: "Outside the window",
	})
	suite.Require().NoError(err)

	summary, err := suite.svc.GetIncomeSummary(suite.ctx(), user.ID, date(2024, 1, 1), date(2024, 6, 30))
	suite.Require().NoError(err)
	assert.Equal(suite.T(), 2, summary.EntryCount)
	assert.Equal(suite.T(), "170000", summary.TotalGross.String())
	assert.Equal(suite.T(), "37383.4", summary.TotalPaye.String())
	assert.Equal(suite.T(), "2450", summary.TotalNhif.String())
	assert.Equal(suite.T(), "3360", summary.TotalNssf.String())
	assert.Equal(suite.T(), "2550", summary.TotalHousingLevy.String())
	assert.Equal(suite.T(), "45743.4", summary.TotalDeductions.String())
	assert.Equal(suite.T(), "124256.6", summary.TotalNet.String())

	byEmployer, err := suite.svc.GetIncomeEntries(suite.ctx(), user.ID, service.IncomeFilter{EmployerID: second.ID})
	suite.Require().NoError(err)
	assert.Len(suite.T(), byEmployer, 2)

	_, err = suite.svc.RecordIncome(suite.ctx(), user.ID, service.RecordIncomeParams{
		GrossAmount: dec("20000"),
		IncomeDate:  date(2024, 5, 31),
		Description: "Foreign employer",
		EmployerID:  uuid.NullUUID{UUID: uuid.New(), Valid: true},
	})
	assert.True(suite.T(), errors.Is(err, responses.NotFoundError))
}

func TestIncomeSuite(t *testing.T) {
	suite.Run(t, new(IncomeTestSuite))
}
