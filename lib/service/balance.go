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

type AccountBalance struct {
	AccountID    uuid.UUID       `json:"account_id"`
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Subtype      string          `json:"subtype"`
	Currency     string          `json:"currency"`
	Balance      decimal.Decimal `json:"balance"`
	TotalDebits  decimal.Decimal `json:"total_debits"`
	TotalCredits decimal.Decimal `json:"total_credits"`
	EntryCount   int             `json:"entry_count"`
	LastActivity bun.NullTime    `json:"last_activity"`
}

type postedEntryRow struct {
	EntryType       string          `bun:"entry_type"`
	Amount          decimal.Decimal `bun:"amount"`
	TransactionDate time.Time       `bun:"transaction_date"`
}

// postedEntries returns the account's entries that belong to POSTED transactions.
// DRAFT and VOID transactions never contribute to a balance.
func postedEntries(ctx context.Context, idb bun.IDB, accountID uuid.UUID) ([]postedEntryRow, error) {
	var rows []postedEntryRow
	err := idb.NewSelect().
		TableExpr("ledger_entries AS le").
		Join("JOIN transactions AS t ON t.id = le.transaction_id").
		ColumnExpr("le.entry_type, le.amount, t.transaction_date").
		Where("le.account_id = ?", accountID).
		Where("t.status = ?", common.TransactionStatusPosted).
		Scan(ctx, &rows)
	return rows, err
}

// tally folds entry rows into a balance under the account type's sign convention.
func tally(account *models.Account, rows []postedEntryRow) *AccountBalance {
	balance := &AccountBalance{
		AccountID:    account.ID,
		Name:         account.Name,
		Type:         account.Type,
		Subtype:      account.Subtype,
		Currency:     account.Currency,
		TotalDebits:  decimal.Zero,
		TotalCredits: decimal.Zero,
		EntryCount:   len(rows),
	}
	for _, row := range rows {
		switch row.EntryType {
		case common.EntryTypeDebit:
			balance.TotalDebits = balance.TotalDebits.Add(row.Amount)
		case common.EntryTypeCredit:
			balance.TotalCredits = balance.TotalCredits.Add(row.Amount)
		}
		if row.TransactionDate.After(balance.LastActivity.Time) {
			balance.LastActivity = bun.NullTime{Time: row.TransactionDate}
		}
	}
	if account.DebitNormal() {
		balance.Balance = balance.TotalDebits.Sub(balance.TotalCredits)
	} else {
		balance.Balance = balance.TotalCredits.Sub(balance.TotalDebits)
	}
	return balance
}

func (svc *FinhubService) accountBalance(ctx context.Context, idb bun.IDB, account *models.Account) (*AccountBalance, error) {
	rows, err := postedEntries(ctx, idb, account.ID)
	if err != nil {
		return nil, err
	}
	return tally(account, rows), nil
}

// ComputeAccountBalance derives the balance from posted entries. Nothing is stored.
func (svc *FinhubService) ComputeAccountBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	account := &models.Account{}
	err := svc.DB.NewSelect().Model(account).Where("id = ?", accountID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, responses.NewNotFoundError("account %s not found", accountID)
	}
	if err != nil {
		return decimal.Zero, err
	}
	balance, err := svc.accountBalance(ctx, svc.DB, account)
	if err != nil {
		return decimal.Zero, err
	}
	return balance.Balance, nil
}

func (svc *FinhubService) GetAccountBalance(ctx context.Context, userID uuid.UUID, accountID uuid.UUID) (*AccountBalance, error) {
	account, err := svc.GetAccountByID(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	return svc.accountBalance(ctx, svc.DB, account)
}
