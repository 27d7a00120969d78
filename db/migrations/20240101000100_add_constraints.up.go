package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {

		if db.Dialect().Name().String() != "pg" {
			fmt.Printf("\033[1;31m%s\033[0m", "You are not using PostgreSQL. DB level checks can not be enabled!\n")
			return nil
		}
		sql := `
			-- entry amounts are strictly positive
				alter table ledger_entries
				ADD CONSTRAINT check_positive_amount
				CHECK (amount > 0);

				alter table ledger_entries
				ADD CONSTRAINT check_entry_type
				CHECK (entry_type IN ('DEBIT', 'CREDIT'));

				alter table accounts
				ADD CONSTRAINT check_account_type
				CHECK (type IN ('ASSET', 'LIABILITY', 'INCOME', 'EXPENSE', 'EQUITY'));

				alter table transactions
				ADD CONSTRAINT check_status
				CHECK (status IN ('DRAFT', 'POSTED', 'VOID'));

			-- a transaction can only become POSTED when its entries balance
				CREATE OR REPLACE FUNCTION check_transaction_balanced()
					RETURNS TRIGGER AS $$
				DECLARE
					debits NUMERIC;
					credits NUMERIC;
				BEGIN
					SELECT INTO debits COALESCE(SUM(amount), 0)
					FROM ledger_entries
					WHERE transaction_id = NEW.id AND entry_type = 'DEBIT';

					SELECT INTO credits COALESCE(SUM(amount), 0)
					FROM ledger_entries
					WHERE transaction_id = NEW.id AND entry_type = 'CREDIT';

					IF debits <> credits
					THEN
						RAISE EXCEPTION 'unbalanced transaction [id:%] debits [%] credits [%]',
						NEW.id,
						debits,
						credits;
					END IF;
					RETURN NEW;
				END;
				$$ LANGUAGE plpgsql;
				CREATE TRIGGER check_transaction_balanced
				AFTER UPDATE OF status ON transactions
				FOR EACH ROW
				WHEN (NEW.status = 'POSTED')
				EXECUTE PROCEDURE check_transaction_balanced();

			-- only DRAFT -> POSTED -> VOID is allowed
				CREATE OR REPLACE FUNCTION check_transaction_status()
					RETURNS TRIGGER AS $$
				BEGIN
					IF OLD.status = NEW.status THEN
						RETURN NEW;
					END IF;
					IF NOT ((OLD.status = 'DRAFT' AND NEW.status = 'POSTED') OR (OLD.status = 'POSTED' AND NEW.status = 'VOID'))
					THEN
						RAISE EXCEPTION 'invalid status transition [id:%] % -> %',
						NEW.id,
						OLD.status,
						NEW.status;
					END IF;
					RETURN NEW;
				END;
				$$ LANGUAGE plpgsql;
				CREATE TRIGGER check_transaction_status
				BEFORE UPDATE OF status ON transactions
				FOR EACH ROW EXECUTE PROCEDURE check_transaction_status();
		`
		if _, err := db.Exec(sql); err != nil {
			return err
		}
		return nil
	}, nil)
}
