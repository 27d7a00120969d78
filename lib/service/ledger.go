package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/getAlby/finhub.go/common"
	"github.com/getAlby/finhub.go/db/models"
	"github.com/getAlby/finhub.go/lib/responses"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type EntryInput struct {
	AccountID   uuid.UUID       `json:"account_id"`
	EntryType   string          `json:"entry_type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
	Description string          `json:"description,omitempty"`
}

type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

type CreateTransactionParams struct {
	Description     string                 `json:"description" validate:"required,max=500"`
	Notes           string                 `json:"notes,omitempty" validate:"max=2000"`
	TransactionDate time.Time              `json:"transaction_date" validate:"required"`
	IdempotencyKey  string                 `json:"idempotency_key,omitempty" validate:"max=255"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	Entries         []EntryInput           `json:"entries"`
}

type TransferParams struct {
	FromAccountID uuid.UUID       `json:"from_account_id" validate:"required"`
	ToAccountID   uuid.UUID       `json:"to_account_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"dgt0"`
	Description   string          `json:"description" validate:"required,max=500"`
	Date          time.Time       `json:"date" validate:"required"`
	Notes         string          `json:"notes,omitempty"`
}

// ValidateEntries checks the double-entry rules and reports every violation it finds.
func ValidateEntries(entries []EntryInput) ValidationResult {
	violations := []string{}
	if len(entries) < 2 {
		violations = append(violations, "a transaction needs at least 2 entries (debit and credit)")
	}

	debits, credits := decimal.Zero, decimal.Zero
	for i, entry := range entries {
		field := fmt.Sprintf("entries[%d]", i)
		if entry.AccountID == uuid.Nil {
			violations = append(violations, field+".account_id is required")
		}
		amountOK := true
		if !entry.Amount.IsPositive() {
			violations = append(violations, fmt.Sprintf("%s.amount %s must be greater than 0", field, entry.Amount))
			amountOK = false
		} else if !entry.Amount.Equal(entry.Amount.Truncate(ledgerPlaces)) {
			violations = append(violations, fmt.Sprintf("%s.amount %s has more than %d decimal places", field, entry.Amount, ledgerPlaces))
			amountOK = false
		}
		switch entry.EntryType {
		case common.EntryTypeDebit:
			if amountOK {
				debits = debits.Add(entry.Amount)
			}
		case common.EntryTypeCredit:
			if amountOK {
				credits = credits.Add(entry.Amount)
			}
		default:
			violations = append(violations, fmt.Sprintf("%s.entry_type %q must be DEBIT or CREDIT", field, entry.EntryType))
		}
	}

	if debits.Sub(credits).Abs().GreaterThanOrEqual(ledgerTolerance) {
		violations = append(violations, fmt.Sprintf("debits (%s) do not equal credits (%s)", debits.StringFixed(ledgerPlaces), credits.StringFixed(ledgerPlaces)))
	}

	if len(violations) == 0 {
		return ValidationResult{Valid: true}
	}
	return ValidationResult{Valid: false, Errors: violations}
}

// CreateTransaction validates and posts a balanced transaction in one unit of work.
func (svc *FinhubService) CreateTransaction(ctx context.Context, userID uuid.UUID, params CreateTransactionParams) (*models.Transaction, error) {
	var (
		transaction *models.Transaction
		replayed    bool
	)
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		transaction, replayed, err = svc.postTransaction(ctx, tx, userID, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !replayed {
		svc.publishLedgerEvent(ctx, common.EventTransactionPosted, transaction)
	}
	return transaction, nil
}

// postTransaction runs on a unit of work the caller owns. The bool reports an idempotent replay.
func (svc *FinhubService) postTransaction(ctx context.Context, idb bun.IDB, userID uuid.UUID, params CreateTransactionParams) (*models.Transaction, bool, error) {
	if err := validateParams(params); err != nil {
		return nil, false, err
	}

	if params.IdempotencyKey != "" {
		existing, err := svc.transactionByIdempotencyKey(ctx, idb, userID, params.IdempotencyKey)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			svc.Logger.Infof("idempotent replay of transaction %s (key %s)", existing.ID, params.IdempotencyKey)
			return existing, true, nil
		}
	}

	if result := ValidateEntries(params.Entries); !result.Valid {
		return nil, false, responses.NewUnbalancedTransactionError(result.Errors)
	}

	accounts, err := svc.loadPostingAccounts(ctx, idb, userID, params.Entries)
	if err != nil {
		return nil, false, err
	}
	if err := checkCurrencies(params.Entries, accounts); err != nil {
		return nil, false, err
	}

	now := time.Now().UTC()
	transaction := &models.Transaction{
		ID:              uuid.New(),
		UserID:          userID,
		Description:     params.Description,
		Notes:           params.Notes,
		TransactionDate: common.Date(params.TransactionDate),
		Status:          common.TransactionStatusDraft,
		IdempotencyKey:  params.IdempotencyKey,
		Metadata:        params.Metadata,
		CreatedAt:       now,
	}
	existing, err := svc.insertTransaction(ctx, idb, transaction)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		svc.Logger.Infof("idempotent replay of transaction %s after a concurrent post (key %s)", existing.ID, params.IdempotencyKey)
		return existing, true, nil
	}

	entries := make([]models.LedgerEntry, 0, len(params.Entries))
	for i, input := range params.Entries {
		account := accounts[input.AccountID]
		entries = append(entries, models.LedgerEntry{
			ID:            uuid.New(),
			TransactionID: transaction.ID,
			AccountID:     input.AccountID,
			LineNo:        i + 1,
			EntryType:     input.EntryType,
			Amount:        input.Amount,
			Currency:      account.Currency,
			Description:   input.Description,
			CreatedAt:     now,
		})
	}
	if _, err := idb.NewInsert().Model(&entries).Exec(ctx); err != nil {
		return nil, false, err
	}

	if !transaction.Status.CanTransitionTo(common.TransactionStatusPosted) {
		return nil, false, responses.NewInvalidStateTransitionError("transaction %s cannot move from %s to %s", transaction.ID, transaction.Status, common.TransactionStatusPosted)
	}
	transaction.Status = common.TransactionStatusPosted
	transaction.PostedAt = bun.NullTime{Time: now}
	_, err = idb.NewUpdate().
		Model(transaction).
		Column("status", "posted_at", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, false, err
	}
	transaction.Entries = entries
	return transaction, false, nil
}

// insertTransaction stores a new transaction row. When a concurrent post with the same
// idempotency key committed first the insert does nothing and the stored transaction is returned.
func (svc *FinhubService) insertTransaction(ctx context.Context, idb bun.IDB, transaction *models.Transaction) (*models.Transaction, error) {
	res, err := idb.NewInsert().
		Model(transaction).
		On("CONFLICT (user_id, idempotency_key) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if inserted > 0 {
		return nil, nil
	}
	existing, err := svc.transactionByIdempotencyKey(ctx, idb, transaction.UserID, transaction.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("transaction %s was not stored and no transaction holds key %q", transaction.ID, transaction.IdempotencyKey)
	}
	return existing, nil
}

// checkCurrencies requires every leg to be in its account's currency and all legs to share one.
func checkCurrencies(entries []EntryInput, accounts map[uuid.UUID]*models.Account) error {
	violations := []string{}
	currency := ""
	for i, input := range entries {
		account := accounts[input.AccountID]
		if input.Currency != "" && input.Currency != account.Currency {
			violations = append(violations, fmt.Sprintf("entries[%d].currency %s does not match account currency %s", i, input.Currency, account.Currency))
		}
		switch {
		case currency == "":
			currency = account.Currency
		case account.Currency != currency:
			violations = append(violations, fmt.Sprintf("entries[%d] account %s is in %s but the transaction is in %s", i, account.Name, account.Currency, currency))
		}
	}
	if len(violations) > 0 {
		return responses.NewValidationErrors(violations)
	}
	return nil
}

func (svc *FinhubService) transactionByIdempotencyKey(ctx context.Context, idb bun.IDB, userID uuid.UUID, key string) (*models.Transaction, error) {
	transaction := &models.Transaction{}
	err := idb.NewSelect().
		Model(transaction).
		Where("user_id = ?", userID).
		Where("idempotency_key = ?", key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := loadEntries(ctx, idb, transaction); err != nil {
		return nil, err
	}
	return transaction, nil
}

// loadPostingAccounts resolves every referenced account within the owner's scope.
func (svc *FinhubService) loadPostingAccounts(ctx context.Context, idb bun.IDB, userID uuid.UUID, entries []EntryInput) (map[uuid.UUID]*models.Account, error) {
	ids := []uuid.UUID{}
	seen := map[uuid.UUID]bool{}
	for _, entry := range entries {
		if !seen[entry.AccountID] {
			seen[entry.AccountID] = true
			ids = append(ids, entry.AccountID)
		}
	}

	var accounts []models.Account
	err := idb.NewSelect().
		Model(&accounts).
		Where("user_id = ?", userID).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.Account, len(accounts))
	for i := range accounts {
		byID[accounts[i].ID] = &accounts[i]
	}
	for _, id := range ids {
		account, ok := byID[id]
		if !ok {
			return nil, responses.NewInvalidAccountError("account %s does not exist", id)
		}
		if !account.IsActive {
			return nil, responses.NewInvalidAccountError("account %s (%s) is inactive", id, account.Name)
		}
	}
	return byID, nil
}

// VoidTransaction moves a POSTED transaction to VOID. Its entries stay in place and stop counting.
func (svc *FinhubService) VoidTransaction(ctx context.Context, userID uuid.UUID, transactionID uuid.UUID, reason string) (*models.Transaction, error) {
	if reason == "" {
		return nil, responses.NewValidationErrors([]string{"reason is required"})
	}
	var transaction *models.Transaction
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		transaction, err = svc.voidTransaction(ctx, tx, userID, transactionID, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	svc.publishLedgerEvent(ctx, common.EventTransactionVoided, transaction)
	return transaction, nil
}

// voidTransaction runs on a unit of work the caller owns.
func (svc *FinhubService) voidTransaction(ctx context.Context, idb bun.IDB, userID uuid.UUID, transactionID uuid.UUID, reason string) (*models.Transaction, error) {
	transaction := &models.Transaction{}
	err := idb.NewSelect().
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
	if !transaction.Status.CanTransitionTo(common.TransactionStatusVoid) {
		return nil, responses.NewInvalidStateTransitionError("transaction %s is %s, only POSTED transactions can be voided", transactionID, transaction.Status)
	}

	if transaction.Metadata == nil {
		transaction.Metadata = map[string]interface{}{}
	}
	transaction.Metadata["void_reason"] = reason
	transaction.Status = common.TransactionStatusVoid
	transaction.VoidedAt = bun.NullTime{Time: time.Now().UTC()}
	transaction.VoidReason = reason
	res, err := idb.NewUpdate().
		Model(transaction).
		Column("status", "voided_at", "void_reason", "metadata", "updated_at").
		WherePK().
		Where("status = ?", common.TransactionStatusPosted).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, responses.NewInvalidStateTransitionError("transaction %s was voided concurrently", transactionID)
	}
	if err := loadEntries(ctx, idb, transaction); err != nil {
		return nil, err
	}
	return transaction, nil
}

// Transfer moves money between two of the owner's accounts: DEBIT the destination, CREDIT the source.
func (svc *FinhubService) Transfer(ctx context.Context, userID uuid.UUID, params TransferParams) (*models.Transaction, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}
	if params.FromAccountID == params.ToAccountID {
		return nil, responses.NewValidationErrors([]string{"from_account_id and to_account_id must differ"})
	}
	return svc.CreateTransaction(ctx, userID, CreateTransactionParams{
		Description:     params.Description,
		Notes:           params.Notes,
		TransactionDate: params.Date,
		Metadata:        map[string]interface{}{"kind": "transfer"},
		Entries: []EntryInput{
			{AccountID: params.ToAccountID, EntryType: common.EntryTypeDebit, Amount: params.Amount, Description: "Transfer in"},
			{AccountID: params.FromAccountID, EntryType: common.EntryTypeCredit, Amount: params.Amount, Description: "Transfer out"},
		},
	})
}
