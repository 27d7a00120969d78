package migrations

import (
	"context"
	"time"

	"github.com/getAlby/finhub.go/common"
	"github.com/getAlby/finhub.go/db/models"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var systemCategories = []struct {
	name, categoryType, icon, color string
}{
	{"Groceries", common.CategoryTypeExpense, "shopping-cart", "#10B981"},
	{"Transport", common.CategoryTypeExpense, "car", "#3B82F6"},
	{"Utilities", common.CategoryTypeExpense, "zap", "#F59E0B"},
	{"Entertainment", common.CategoryTypeExpense, "film", "#8B5CF6"},
	{"Healthcare", common.CategoryTypeExpense, "heart", "#EF4444"},
	{"Education", common.CategoryTypeExpense, "book", "#06B6D4"},
	{"Dining", common.CategoryTypeExpense, "utensils", "#EC4899"},
	{"Shopping", common.CategoryTypeExpense, "shopping-bag", "#14B8A6"},
	{"Salary", common.CategoryTypeIncome, "briefcase", "#10B981"},
	{"Business", common.CategoryTypeIncome, "trending-up", "#3B82F6"},
	{"Investments", common.CategoryTypeIncome, "dollar-sign", "#F59E0B"},
	{"Other Income", common.CategoryTypeIncome, "plus-circle", "#8B5CF6"},
}

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			_, err := tx.NewCreateTable().
				Model((*models.Category)(nil)).
				ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return err
			}
			_, err = tx.NewCreateTable().
				Model((*models.Expense)(nil)).
				ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
				ForeignKey(`("category_id") REFERENCES "categories" ("id") ON DELETE RESTRICT`).
				ForeignKey(`("account_id") REFERENCES "accounts" ("id") ON DELETE SET NULL`).
				ForeignKey(`("transaction_id") REFERENCES "transactions" ("id") ON DELETE SET NULL`).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return err
			}

			indexes := []struct {
				model   interface{}
				name    string
				unique  bool
				columns []string
			}{
				{(*models.Category)(nil), "categories_user_name_type_idx", true, []string{"user_id", "name", "type"}},
				{(*models.Expense)(nil), "expenses_user_date_idx", false, []string{"user_id", "expense_date"}},
				{(*models.Expense)(nil), "expenses_user_category_idx", false, []string{"user_id", "category_id"}},
			}
			for _, idx := range indexes {
				q := tx.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.columns...).IfNotExists()
				if idx.unique {
					q = q.Unique()
				}
				if _, err := q.Exec(ctx); err != nil {
					return err
				}
			}

			now := time.Now().UTC()
			categories := make([]models.Category, 0, len(systemCategories))
			for _, c := range systemCategories {
				categories = append(categories, models.Category{
					ID:        uuid.New(),
					Name:      c.name,
					Type:      c.categoryType,
					Icon:      c.icon,
					Color:     c.color,
					IsSystem:  true,
					IsActive:  true,
					CreatedAt: now,
				})
			}
			_, err = tx.NewInsert().Model(&categories).Exec(ctx)
			return err
		})
	}, nil)
}
