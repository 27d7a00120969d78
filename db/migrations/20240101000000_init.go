package migrations

import (
	"context"

	"github.com/getAlby/finhub.go/db/models"
	"github.com/uptrace/bun"
)

/* Since this init will reflect the latest model fields when run on fresh db
make sure that when you add/remove columns in subsequent migrations IfNotExists/IfExists is used
otherwise it's going to result in errors.
*/
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			tables := []struct {
				model       interface{}
				foreignKeys []string
			}{
				{model: (*models.User)(nil)},
				{
					model: (*models.Account)(nil),
					foreignKeys: []string{
						`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`,
					},
				},
				{
					model: (*models.Transaction)(nil),
					foreignKeys: []string{
						`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`,
					},
				},
				{
					model: (*models.LedgerEntry)(nil),
					foreignKeys: []string{
						`("transaction_id") REFERENCES "transactions" ("id") ON DELETE CASCADE`,
						`("account_id") REFERENCES "accounts" ("id") ON DELETE RESTRICT`,
					},
				},
				{model: (*models.TaxBand)(nil)},
				{model: (*models.HealthInsuranceBracket)(nil)},
				{model: (*models.SocialSecurityConfig)(nil)},
				{model: (*models.HousingLevyConfig)(nil)},
				{
					model: (*models.Employer)(nil),
					foreignKeys: []string{
						`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`,
					},
				},
				{
					model: (*models.IncomeEntry)(nil),
					foreignKeys: []string{
						`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`,
						`("employer_id") REFERENCES "employers" ("id") ON DELETE SET NULL`,
						`("transaction_id") REFERENCES "transactions" ("id") ON DELETE SET NULL`,
					},
				},
			}
			for _, t := range tables {
				q := tx.NewCreateTable().Model(t.model).IfNotExists()
				for _, fk := range t.foreignKeys {
					q = q.ForeignKey(fk)
				}
				if _, err := q.Exec(ctx); err != nil {
					return err
				}
			}

			indexes := []struct {
				model   interface{}
				name    string
				unique  bool
				columns []string
			}{
				{(*models.Account)(nil), "accounts_user_id_idx", false, []string{"user_id"}},
				// one system account (e.g. salary income) per owner and key
				{(*models.Account)(nil), "accounts_user_system_key_idx", true, []string{"user_id", "system_key"}},
				{(*models.Transaction)(nil), "transactions_user_date_idx", false, []string{"user_id", "transaction_date"}},
				{(*models.Transaction)(nil), "transactions_user_idempotency_key_idx", true, []string{"user_id", "idempotency_key"}},
				{(*models.LedgerEntry)(nil), "ledger_entries_transaction_id_idx", false, []string{"transaction_id"}},
				{(*models.LedgerEntry)(nil), "ledger_entries_account_id_idx", false, []string{"account_id"}},
				{(*models.TaxBand)(nil), "paye_tax_bands_effective_idx", false, []string{"effective_from", "band_order"}},
				{(*models.HealthInsuranceBracket)(nil), "health_insurance_brackets_effective_idx", false, []string{"effective_from", "min_gross"}},
				{(*models.IncomeEntry)(nil), "income_entries_user_date_idx", false, []string{"user_id", "income_date"}},
				{(*models.Employer)(nil), "employers_user_id_idx", false, []string{"user_id"}},
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
			return nil
		})
	}, nil)
}
