package rateschedule

import (
	"context"

	"github.com/getAlby/finhub.go/db/models"
	"github.com/getAlby/finhub.go/lib/responses"
	"github.com/uptrace/bun"
)

// Import writes rows as a new version of each table they contain.
// Open ended versions that started earlier are closed the day before the new version starts;
// any remaining overlap with an existing version is rejected, so a date never has two active versions.
// Callers run it inside a transaction.
func Import(ctx context.Context, db bun.IDB, rows *Rows) error {
	if len(rows.TaxBands) > 0 {
		if err := supersede(ctx, db, (*models.TaxBand)(nil), "paye_tax_bands", rows); err != nil {
			return err
		}
		if _, err := db.NewInsert().Model(&rows.TaxBands).Exec(ctx); err != nil {
			return err
		}
	}
	if len(rows.Brackets) > 0 {
		if err := supersede(ctx, db, (*models.HealthInsuranceBracket)(nil), "health_insurance_brackets", rows); err != nil {
			return err
		}
		if _, err := db.NewInsert().Model(&rows.Brackets).Exec(ctx); err != nil {
			return err
		}
	}
	if rows.SocialSecurity != nil {
		if err := supersede(ctx, db, (*models.SocialSecurityConfig)(nil), "social_security_configs", rows); err != nil {
			return err
		}
		if _, err := db.NewInsert().Model(rows.SocialSecurity).Exec(ctx); err != nil {
			return err
		}
	}
	if rows.HousingLevy != nil {
		if err := supersede(ctx, db, (*models.HousingLevyConfig)(nil), "housing_levy_configs", rows); err != nil {
			return err
		}
		if _, err := db.NewInsert().Model(rows.HousingLevy).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func supersede(ctx context.Context, db bun.IDB, model interface{}, table string, rows *Rows) error {
	_, err := db.NewUpdate().Model(model).
		Set("effective_to = ?", rows.EffectiveFrom.AddDate(0, 0, -1)).
		Where("effective_to IS NULL").
		Where("effective_from < ?", rows.EffectiveFrom).
		Exec(ctx)
	if err != nil {
		return err
	}

	q := db.NewSelect().Model(model).
		Where("effective_to IS NULL OR effective_to >= ?", rows.EffectiveFrom)
	if !rows.EffectiveTo.IsZero() {
		q = q.Where("effective_from <= ?", rows.EffectiveTo.Time)
	}
	overlapping, err := q.Count(ctx)
	if err != nil {
		return err
	}
	if overlapping > 0 {
		return responses.NewValidationError("%s: %d existing rows overlap the version starting %s", table, overlapping, rows.EffectiveFrom.Format(dateLayout))
	}
	return nil
}
