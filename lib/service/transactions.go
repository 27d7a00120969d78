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
	"github.com/uptrace/bun"
)

const defaultListLimit = 100

type TransactionFilter struct {
	Status    common.TransactionStatus
	From      time.Time
	To        time.Time
	AccountID uuid.UUID
	Limit     int
	Offset    int
}

func loadEntries(ctx context.Context, idb bun.IDB, transaction *models.Transaction) error {
	return idb.NewSelect().
		Model(&transaction.Entries).
		Where("transaction_id = ?", transaction.ID).
		Order("line_no ASC").
		Scan(ctx)
}

func (svc *FinhubService) GetTransactionByID(ctx context.Context, userID uuid.UUID, transactionID uuid.UUID) (*models.Transaction, error) {
	transaction := &models.Transaction{}
	err := svc.DB.NewSelect().
		Model(transaction).
		Where("id = ?", transactionID).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, responses.NewNotFoundError("transaction %s not found", transactionID)
	}
	if err != nil {
		return nil, err
	}
	if err := loadEntries(ctx, svc.DB, transaction); err != nil {
		return nil, err
	}
	return transaction, nil
}

// GetTransactions lists the owner's transactions newest first, without entries.
func (svc *FinhubService) GetTransactions(ctx context.Context, userID uuid.UUID, filter TransactionFilter) ([]models.Transaction, error) {
	transactions := []models.Transaction{}
	query := svc.DB.NewSelect().Model(&transactions).Where("t.user_id = ?", userID)
	if filter.Status != "" {
		query.Where("t.status = ?", filter.Status)
	}
	if !filter.From.IsZero() {
		query.Where("t.transaction_date >= ?", common.Date(filter.From))
	}
	if !filter.To.IsZero() {
		query.Where("t.transaction_date <= ?", common.Date(filter.To))
	}
	if filter.AccountID != uuid.Nil {
		query.Where("EXISTS (SELECT 1 FROM ledger_entries AS le WHERE le.transaction_id = t.id AND le.account_id = ?)", filter.AccountID)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query.Order("t.transaction_date DESC", "t.created_at DESC").Limit(limit).Offset(filter.Offset)
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return transactions, nil
}
