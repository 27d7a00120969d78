package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/getAlby/finhub.go/common"
	"github.com/getAlby/finhub.go/db/models"
	"github.com/getAlby/finhub.go/lib/responses"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

const defaultCategoryColor = "#6366f1"

type CreateCategoryParams struct {
	Name        string `json:"name" validate:"required,max=100"`
	Type        string `json:"type" validate:"required,oneof=INCOME EXPENSE"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty" validate:"max=50"`
	Color       string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

type RecordExpenseParams struct {
	CategoryID        uuid.UUID       `json:"category_id" validate:"required"`
	AccountID         uuid.NullUUID   `json:"account_id"`
	CreateTransaction bool            `json:"create_transaction"`
	Description       string          `json:"description" validate:"required,max=500"`
	Amount            decimal.Decimal `json:"amount" validate:"dgt0,dplaces2"`
	ExpenseDate       time.Time       `json:"expense_date" validate:"required"`
	Merchant          string          `json:"merchant,omitempty" validate:"max=255"`
	PaymentMethod     string          `json:"payment_method,omitempty" validate:"omitempty,oneof=CASH CARD MPESA BANK_TRANSFER"`
	ReferenceNumber   string          `json:"reference_number,omitempty" validate:"max=100"`
	Notes             string          `json:"notes,omitempty" validate:"max=2000"`
	Tags              []string        `json:"tags,omitempty" validate:"max=20,dive,required,max=50"`
}

type ExpenseFilter struct {
	CategoryID    uuid.UUID
	PaymentMethod string
	From          time.Time
	To            time.Time
	Limit         int
	Offset        int
}

type CategoryBreakdown struct {
	CategoryID    uuid.UUID       `json:"category_id"`
	CategoryName  string          `json:"category_name"`
	CategoryColor string          `json:"category_color"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	ExpenseCount  int             `json:"expense_count"`
	Percentage    decimal.Decimal `json:"percentage"`
}

type ExpenseSummary struct {
	From           time.Time           `json:"from"`
	To             time.Time           `json:"to"`
	TotalExpenses  decimal.Decimal     `json:"total_expenses"`
	ExpenseCount   int                 `json:"expense_count"`
	AverageExpense decimal.Decimal     `json:"average_expense"`
	TopCategory    string              `json:"top_category,omitempty"`
	TopMerchant    string              `json:"top_merchant,omitempty"`
	ByCategory     []CategoryBreakdown `json:"by_category"`
}

func visibleTo(userID uuid.UUID) func(*bun.SelectQuery) *bun.SelectQuery {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id IS NULL").WhereOr("user_id = ?", userID)
	}
}

func (svc *FinhubService) CreateCategory(ctx context.Context, userID uuid.UUID, params CreateCategoryParams) (*models.Category, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}
	category := &models.Category{
		ID:          uuid.New(),
		UserID:      uuid.NullUUID{UUID: userID, Valid: true},
		Name:        params.Name,
		Description: params.Description,
		Type:        params.Type,
		Icon:        params.Icon,
		Color:       params.Color,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*models.Category)(nil)).
			WhereGroup(" AND ", visibleTo(userID)).
			Where("name = ?", params.Name).
			Where("type = ?", params.Type).
			Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return responses.NewValidationErrors([]string{fmt.Sprintf("%s category %q already exists", params.Type, params.Name)})
		}
		_, err = tx.NewInsert().Model(category).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// GetCategories lists the shared system categories together with the owner's own.
func (svc *FinhubService) GetCategories(ctx context.Context, userID uuid.UUID, categoryType string) ([]models.Category, error) {
	categories := []models.Category{}
	query := svc.DB.NewSelect().
		Model(&categories).
		WhereGroup(" AND ", visibleTo(userID)).
		Where("is_active = ?", true)
	if categoryType != "" {
		query.Where("type = ?", categoryType)
	}
	if err := query.Order("type ASC", "name ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return categories, nil
}

func expenseAccountSpec(category *models.Category) SystemAccountSpec {
	return SystemAccountSpec{
		Key:         common.SystemKeyExpensePrefix + category.ID.String(),
		Name:        category.Name,
		Type:        common.AccountTypeExpense,
		Subtype:     common.AccountSubtypeExpenseCategory,
		Description: "Spending on " + category.Name,
	}
}

// RecordExpense stores an expense. When asked, it is posted in the same unit of work:
// DEBIT the category's expense account, CREDIT the paying account.
func (svc *FinhubService) RecordExpense(ctx context.Context, userID uuid.UUID, params RecordExpenseParams) (*models.Expense, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}
	if params.CreateTransaction && !params.AccountID.Valid {
		return nil, responses.NewValidationErrors([]string{"account_id is required when create_transaction is set"})
	}

	expense := &models.Expense{
		ID:              uuid.New(),
		UserID:          userID,
		CategoryID:      params.CategoryID,
		AccountID:       params.AccountID,
		Description:     params.Description,
		Amount:          params.Amount,
		Currency:        svc.currency(""),
		ExpenseDate:     common.Date(params.ExpenseDate),
		Merchant:        params.Merchant,
		PaymentMethod:   params.PaymentMethod,
		ReferenceNumber: params.ReferenceNumber,
		Notes:           params.Notes,
		Tags:            params.Tags,
		CreatedAt:       time.Now().UTC(),
	}

	var posted *models.Transaction
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		category := &models.Category{}
		err := tx.NewSelect().
			Model(category).
			Where("id = ?", params.CategoryID).
			WhereGroup(" AND ", visibleTo(userID)).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return responses.NewNotFoundError("category %s not found", params.CategoryID)
		}
		if err != nil {
			return err
		}
		if category.Type != common.CategoryTypeExpense || !category.IsActive {
			return responses.NewValidationErrors([]string{fmt.Sprintf("category %s is not an active expense category", category.Name)})
		}
		expense.Category = category

		if params.AccountID.Valid {
			account := &models.Account{}
			err := tx.NewSelect().
				Model(account).
				Where("id = ?", params.AccountID.UUID).
				Where("user_id = ?", userID).
				Limit(1).
				Scan(ctx)
			if errors.Is(err, sql.ErrNoRows) {
				return responses.NewInvalidAccountError("account %s does not exist", params.AccountID.UUID)
			}
			if err != nil {
				return err
			}
			expense.Currency = account.Currency
		}

		if _, err := tx.NewInsert().Model(expense).Exec(ctx); err != nil {
			return err
		}
		if !params.CreateTransaction {
			return nil
		}

		expenseAccount, err := svc.GetOrCreateSystemAccount(ctx, tx, userID, expenseAccountSpec(category))
		if err != nil {
			return err
		}
		notes := params.Notes
		if params.Merchant != "" {
			notes = fmt.Sprintf("Paid to %s. %s", params.Merchant, params.Notes)
		}
		posted, _, err = svc.postTransaction(ctx, tx, userID, CreateTransactionParams{
			Description:     params.Description,
			Notes:           notes,
			TransactionDate: params.ExpenseDate,
			Metadata:        map[string]interface{}{"expense_id": expense.ID.String()},
			Entries: []EntryInput{
				{AccountID: expenseAccount.ID, EntryType: common.EntryTypeDebit, Amount: params.Amount, Description: category.Name},
				{AccountID: params.AccountID.UUID, EntryType: common.EntryTypeCredit, Amount: params.Amount, Description: "Expense paid"},
			},
		})
		if err != nil {
			return err
		}

		expense.TransactionID = uuid.NullUUID{UUID: posted.ID, Valid: true}
		_, err = tx.NewUpdate().
			Model(expense).
			Column("transaction_id", "updated_at").
			WherePK().
			Exec(ctx)
		return err
	})
	if err != nil {
		svc.Logger.Errorf("recording expense for user %s failed: %v", userID, err)
		return nil, err
	}

	svc.publishLedgerEvent(ctx, common.EventExpenseRecorded, expense)
	if posted != nil {
		svc.publishLedgerEvent(ctx, common.EventTransactionPosted, posted)
	}
	return expense, nil
}

func (svc *FinhubService) GetExpenses(ctx context.Context, userID uuid.UUID, filter ExpenseFilter) ([]models.Expense, error) {
	expenses := []models.Expense{}
	query := svc.DB.NewSelect().
		Model(&expenses).
		Relation("Category").
		Where("ex.user_id = ?", userID)
	if filter.CategoryID != uuid.Nil {
		query.Where("ex.category_id = ?", filter.CategoryID)
	}
	if filter.PaymentMethod != "" {
		query.Where("ex.payment_method = ?", filter.PaymentMethod)
	}
	if !filter.From.IsZero() {
		query.Where("ex.expense_date >= ?", common.Date(filter.From))
	}
	if !filter.To.IsZero() {
		query.Where("ex.expense_date <= ?", common.Date(filter.To))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query.Order("ex.expense_date DESC", "ex.created_at DESC").Limit(limit).Offset(filter.Offset)
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return expenses, nil
}

// DeleteExpense removes an expense. A posted ledger transaction behind it is voided in the same unit of work.
func (svc *FinhubService) DeleteExpense(ctx context.Context, userID uuid.UUID, expenseID uuid.UUID) (*models.Expense, error) {
	expense := &models.Expense{}
	var voided *models.Transaction
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(expense).
			Where("id = ?", expenseID).
			Where("user_id = ?", userID).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return responses.NewNotFoundError("expense %s not found", expenseID)
		}
		if err != nil {
			return err
		}

		if expense.TransactionID.Valid {
			var status common.TransactionStatus
			err := tx.NewSelect().
				Model((*models.Transaction)(nil)).
				Column("status").
				Where("id = ?", expense.TransactionID.UUID).
				Scan(ctx, &status)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			if status == common.TransactionStatusPosted {
				voided, err = svc.voidTransaction(ctx, tx, userID, expense.TransactionID.UUID, "expense deleted")
				if err != nil {
					return err
				}
			}
		}

		_, err = tx.NewDelete().Model(expense).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	svc.publishLedgerEvent(ctx, common.EventExpenseDeleted, expense)
	if voided != nil {
		svc.publishLedgerEvent(ctx, common.EventTransactionVoided, voided)
	}
	return expense, nil
}

func (svc *FinhubService) expensesBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Expense, error) {
	var expenses []models.Expense
	err := svc.DB.NewSelect().
		Model(&expenses).
		Relation("Category").
		Where("ex.user_id = ?", userID).
		Where("ex.expense_date >= ?", from).
		Where("ex.expense_date <= ?", to).
		Scan(ctx)
	return expenses, err
}

// GetExpenseSummary totals the expenses dated within [from, to] and breaks them down by category.
func (svc *FinhubService) GetExpenseSummary(ctx context.Context, userID uuid.UUID, from, to time.Time) (*ExpenseSummary, error) {
	from, to = common.Date(from), common.Date(to)
	if to.Before(from) {
		return nil, responses.NewValidationError("to %s is before from %s", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}
	expenses, err := svc.expensesBetween(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	summary := &ExpenseSummary{
		From:           from,
		To:             to,
		TotalExpenses:  decimal.Zero,
		ExpenseCount:   len(expenses),
		AverageExpense: decimal.Zero,
		ByCategory:     breakdownByCategory(expenses),
	}
	byMerchant := map[string]decimal.Decimal{}
	for _, e := range expenses {
		summary.TotalExpenses = summary.TotalExpenses.Add(e.Amount)
		if e.Merchant != "" {
			byMerchant[e.Merchant] = byMerchant[e.Merchant].Add(e.Amount)
		}
	}
	if len(expenses) > 0 {
		summary.AverageExpense = round2(summary.TotalExpenses.Div(decimal.NewFromInt(int64(len(expenses)))))
	}
	if len(summary.ByCategory) > 0 {
		summary.TopCategory = summary.ByCategory[0].CategoryName
	}
	top := decimal.Zero
	for merchant, amount := range byMerchant {
		if amount.GreaterThan(top) || (amount.Equal(top) && merchant < summary.TopMerchant) {
			summary.TopMerchant, top = merchant, amount
		}
	}
	return summary, nil
}

// breakdownByCategory groups expenses by category, largest total first.
func breakdownByCategory(expenses []models.Expense) []CategoryBreakdown {
	index := map[uuid.UUID]int{}
	breakdown := []CategoryBreakdown{}
	total := decimal.Zero
	for _, e := range expenses {
		i, ok := index[e.CategoryID]
		if !ok {
			line := CategoryBreakdown{CategoryID: e.CategoryID, CategoryColor: defaultCategoryColor, TotalAmount: decimal.Zero}
			if e.Category != nil {
				line.CategoryName = e.Category.Name
				if e.Category.Color != "" {
					line.CategoryColor = e.Category.Color
				}
			}
			breakdown = append(breakdown, line)
			i = len(breakdown) - 1
			index[e.CategoryID] = i
		}
		breakdown[i].TotalAmount = breakdown[i].TotalAmount.Add(e.Amount)
		breakdown[i].ExpenseCount++
		total = total.Add(e.Amount)
	}
	for i := range breakdown {
		breakdown[i].Percentage = percentOf(breakdown[i].TotalAmount, total)
	}
	sort.SliceStable(breakdown, func(i, j int) bool {
		if !breakdown[i].TotalAmount.Equal(breakdown[j].TotalAmount) {
			return breakdown[i].TotalAmount.GreaterThan(breakdown[j].TotalAmount)
		}
		return breakdown[i].CategoryName < breakdown[j].CategoryName
	})
	return breakdown
}

// percentOf is part as a percentage of whole, to one decimal place.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(1)
}
