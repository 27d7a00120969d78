package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/getAlby/finhub.go/common"
	"github.com/getAlby/finhub.go/db/models"
	"github.com/getAlby/finhub.go/lib/responses"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type CreateAccountParams struct {
	Name          string                 `json:"name" validate:"required,max=255"`
	Type          string                 `json:"type" validate:"required,oneof=ASSET LIABILITY INCOME EXPENSE EQUITY"`
	Subtype       string                 `json:"subtype" validate:"required,max=50"`
	Currency      string                 `json:"currency,omitempty" validate:"omitempty,len=3"`
	AccountNumber string                 `json:"account_number,omitempty" validate:"max=100"`
	Description   string                 `json:"description,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

type AccountFilter struct {
	Type     string
	Subtype  string
	IsActive *bool
}

// SystemAccountSpec describes an account the engine creates on demand, keyed per owner.
type SystemAccountSpec struct {
	Key         string
	Name        string
	Type        string
	Subtype     string
	Description string
}

type AccountSummary struct {
	TotalAssets      decimal.Decimal  `json:"total_assets"`
	TotalLiabilities decimal.Decimal  `json:"total_liabilities"`
	NetWorth         decimal.Decimal  `json:"net_worth"`
	LiquidCash       decimal.Decimal  `json:"liquid_cash"`
	Investments      decimal.Decimal  `json:"investments"`
	VirtualBalance   decimal.Decimal  `json:"virtual_balance"`
	Accounts         []AccountBalance `json:"accounts"`
}

func (svc *FinhubService) salaryAccountSpec() SystemAccountSpec {
	name := "Salary Income"
	if svc.Config != nil && svc.Config.SalaryAccountName != "" {
		name = svc.Config.SalaryAccountName
	}
	return SystemAccountSpec{
		Key:         common.SystemKeySalaryIncome,
		Name:        name,
		Type:        common.AccountTypeIncome,
		Subtype:     common.AccountSubtypeSalary,
		Description: "Salary and employment income",
	}
}

func (svc *FinhubService) CreateAccount(ctx context.Context, userID uuid.UUID, params CreateAccountParams) (*models.Account, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}
	account := &models.Account{
		ID:            uuid.New(),
		UserID:        userID,
		Name:          params.Name,
		Type:          params.Type,
		Subtype:       params.Subtype,
		Currency:      svc.currency(params.Currency),
		AccountNumber: params.AccountNumber,
		Description:   params.Description,
		IsActive:      true,
		Metadata:      params.Metadata,
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := svc.DB.NewInsert().Model(account).Exec(ctx); err != nil {
		return nil, err
	}
	return account, nil
}

func (svc *FinhubService) GetAccounts(ctx context.Context, userID uuid.UUID, filter AccountFilter) ([]models.Account, error) {
	accounts := []models.Account{}
	query := svc.DB.NewSelect().Model(&accounts).Where("user_id = ?", userID)
	if filter.Type != "" {
		query.Where("type = ?", filter.Type)
	}
	if filter.Subtype != "" {
		query.Where("subtype = ?", filter.Subtype)
	}
	if filter.IsActive != nil {
		query.Where("is_active = ?", *filter.IsActive)
	}
	query.Order("type ASC", "name ASC")
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return accounts, nil
}

// GetAccountByID returns NotFound both for missing accounts and for accounts of another owner.
func (svc *FinhubService) GetAccountByID(ctx context.Context, userID uuid.UUID, accountID uuid.UUID) (*models.Account, error) {
	account := &models.Account{}
	err := svc.DB.NewSelect().
		Model(account).
		Where("id = ?", accountID).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, responses.NewNotFoundError("account %s not found", accountID)
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

// SetAccountActive toggles the only mutable attribute of an account.
func (svc *FinhubService) SetAccountActive(ctx context.Context, userID uuid.UUID, accountID uuid.UUID, active bool) (*models.Account, error) {
	account, err := svc.GetAccountByID(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	account.IsActive = active
	_, err = svc.DB.NewUpdate().
		Model(account).
		Column("is_active", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// GetOrCreateSystemAccount is safe to call concurrently: the unique (user_id, system_key)
// index turns a racing insert into a no-op and the select picks up the winner.
func (svc *FinhubService) GetOrCreateSystemAccount(ctx context.Context, idb bun.IDB, userID uuid.UUID, spec SystemAccountSpec) (*models.Account, error) {
	candidate := &models.Account{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        spec.Name,
		Type:        spec.Type,
		Subtype:     spec.Subtype,
		Currency:    svc.currency(""),
		Description: spec.Description,
		IsActive:    true,
		SystemKey:   spec.Key,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := idb.NewInsert().
		Model(candidate).
		On("CONFLICT (user_id, system_key) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	account := &models.Account{}
	err = idb.NewSelect().
		Model(account).
		Where("user_id = ?", userID).
		Where("system_key = ?", spec.Key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// GetAccountSummary rolls the owner's active balance sheet accounts up into net worth.
func (svc *FinhubService) GetAccountSummary(ctx context.Context, userID uuid.UUID) (*AccountSummary, error) {
	active := true
	accounts, err := svc.GetAccounts(ctx, userID, AccountFilter{IsActive: &active})
	if err != nil {
		return nil, err
	}

	summary := &AccountSummary{
		TotalAssets:      decimal.Zero,
		TotalLiabilities: decimal.Zero,
		LiquidCash:       decimal.Zero,
		Investments:      decimal.Zero,
		VirtualBalance:   decimal.Zero,
		Accounts:         []AccountBalance{},
	}
	for i := range accounts {
		account := &accounts[i]
		if account.Type != common.AccountTypeAsset && account.Type != common.AccountTypeLiability {
			continue
		}
		balance, err := svc.accountBalance(ctx, svc.DB, account)
		if err != nil {
			return nil, err
		}
		summary.Accounts = append(summary.Accounts, *balance)

		if account.Type == common.AccountTypeLiability {
			summary.TotalLiabilities = summary.TotalLiabilities.Add(balance.Balance)
			continue
		}
		summary.TotalAssets = summary.TotalAssets.Add(balance.Balance)
		switch {
		case isLiquid(account.Subtype):
			summary.LiquidCash = summary.LiquidCash.Add(balance.Balance)
		case account.Subtype == common.AccountSubtypeInvestment:
			summary.Investments = summary.Investments.Add(balance.Balance)
		case account.Subtype == common.AccountSubtypeVirtual:
			summary.VirtualBalance = summary.VirtualBalance.Add(balance.Balance)
		}
	}
	summary.NetWorth = summary.TotalAssets.Sub(summary.TotalLiabilities)
	return summary, nil
}

// PostOpeningBalance books an existing balance against the owner's opening balances equity account.
func (svc *FinhubService) PostOpeningBalance(ctx context.Context, userID uuid.UUID, accountID uuid.UUID, amount decimal.Decimal, date time.Time) (*models.Transaction, error) {
	account, err := svc.GetAccountByID(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, responses.NewValidationErrors([]string{"amount must be greater than 0"})
	}

	var transaction *models.Transaction
	err = svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		equity, err := svc.GetOrCreateSystemAccount(ctx, tx, userID, openingBalancesSpec)
		if err != nil {
			return err
		}
		accountSide, equitySide := common.EntryTypeCredit, common.EntryTypeDebit
		if account.DebitNormal() {
			accountSide, equitySide = common.EntryTypeDebit, common.EntryTypeCredit
		}
		transaction, _, err = svc.postTransaction(ctx, tx, userID, CreateTransactionParams{
			Description:     "Opening balance: " + account.Name,
			TransactionDate: date,
			Metadata:        map[string]interface{}{"kind": "opening_balance"},
			Entries: []EntryInput{
				{AccountID: account.ID, EntryType: accountSide, Amount: amount},
				{AccountID: equity.ID, EntryType: equitySide, Amount: amount},
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	svc.publishLedgerEvent(ctx, common.EventTransactionPosted, transaction)
	return transaction, nil
}

func isLiquid(subtype string) bool {
	for _, s := range common.LiquidSubtypes {
		if s == subtype {
			return true
		}
	}
	return false
}
