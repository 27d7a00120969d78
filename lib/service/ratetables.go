package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/getAlby/finhub.go/common"
	"github.com/getAlby/finhub.go/db/models"
	"github.com/getAlby/finhub.go/lib/rateschedule"
	"github.com/getAlby/finhub.go/lib/responses"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// RateSet is every rate needed to compute one payroll, resolved for a single date.
type RateSet struct {
	AsOf            time.Time
	TaxBands        []models.TaxBand
	HealthInsurance *models.HealthInsuranceBracket
	SocialSecurity  models.SocialSecurityConfig
	HousingLevy     models.HousingLevyConfig
}

type TaxTables struct {
	Year                    int                             `json:"year"`
	AsOf                    time.Time                       `json:"as_of"`
	TaxBands                []models.TaxBand                `json:"paye_bands"`
	HealthInsuranceBrackets []models.HealthInsuranceBracket `json:"health_insurance_brackets"`
	SocialSecurity          models.SocialSecurityConfig     `json:"social_security"`
	HousingLevy             models.HousingLevyConfig        `json:"housing_levy"`
}

// activeOn restricts q to rows whose validity window contains asOf.
func activeOn(q *bun.SelectQuery, asOf time.Time) *bun.SelectQuery {
	return q.
		Where("effective_from <= ?", asOf).
		Where("effective_to IS NULL OR effective_to >= ?", asOf)
}

func (svc *FinhubService) configurationMissing(table string, asOf time.Time, detail string) error {
	err := responses.NewConfigurationMissingError("%s: %s on %s", table, detail, asOf.Format("2006-01-02"))
	svc.Logger.Errorf("rate configuration error: %v", err)
	return err
}

func (svc *FinhubService) ResolveTaxBands(ctx context.Context, asOf time.Time) ([]models.TaxBand, error) {
	asOf = common.Date(asOf)
	var bands []models.TaxBand
	err := activeOn(svc.DB.NewSelect().Model(&bands), asOf).
		Order("band_order ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(bands) == 0 {
		return nil, svc.configurationMissing("paye_tax_bands", asOf, "no active bands")
	}
	version := bands[0].EffectiveFrom
	seen := map[int]bool{}
	for _, band := range bands {
		if !band.EffectiveFrom.Equal(version) || seen[band.BandOrder] {
			return nil, svc.configurationMissing("paye_tax_bands", asOf, "more than one active version")
		}
		seen[band.BandOrder] = true
	}
	return bands, nil
}

func (svc *FinhubService) ResolveHealthInsuranceBracket(ctx context.Context, gross decimal.Decimal, asOf time.Time) (*models.HealthInsuranceBracket, error) {
	asOf = common.Date(asOf)
	var brackets []models.HealthInsuranceBracket
	err := activeOn(svc.DB.NewSelect().Model(&brackets), asOf).
		Where("min_gross <= ?", gross).
		Where("max_gross IS NULL OR max_gross >= ?", gross).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	switch len(brackets) {
	case 0:
		return nil, svc.configurationMissing("health_insurance_brackets", asOf, "no bracket for gross "+gross.StringFixed(2))
	case 1:
		return &brackets[0], nil
	}
	return nil, svc.configurationMissing("health_insurance_brackets", asOf, "overlapping brackets for gross "+gross.StringFixed(2))
}

func (svc *FinhubService) ResolveSocialSecurityConfig(ctx context.Context, asOf time.Time) (*models.SocialSecurityConfig, error) {
	var configs []models.SocialSecurityConfig
	if err := svc.resolveSingle(ctx, &configs, "social_security_configs", asOf, func() int { return len(configs) }); err != nil {
		return nil, err
	}
	return &configs[0], nil
}

func (svc *FinhubService) ResolveHousingLevyConfig(ctx context.Context, asOf time.Time) (*models.HousingLevyConfig, error) {
	var configs []models.HousingLevyConfig
	if err := svc.resolveSingle(ctx, &configs, "housing_levy_configs", asOf, func() int { return len(configs) }); err != nil {
		return nil, err
	}
	return &configs[0], nil
}

// resolveSingle loads the active rows of a single-row table into dest and insists on exactly one.
func (svc *FinhubService) resolveSingle(ctx context.Context, dest interface{}, table string, asOf time.Time, count func() int) error {
	asOf = common.Date(asOf)
	if err := activeOn(svc.DB.NewSelect().Model(dest), asOf).Scan(ctx); err != nil {
		return err
	}
	switch count() {
	case 0:
		return svc.configurationMissing(table, asOf, "no active row")
	case 1:
		return nil
	}
	return svc.configurationMissing(table, asOf, "more than one active row")
}

// ResolveRates resolves every table for one calculation. Nothing is cached between calls:
// the answer depends on asOf.
func (svc *FinhubService) ResolveRates(ctx context.Context, gross decimal.Decimal, asOf time.Time) (*RateSet, error) {
	return svc.resolveRates(ctx, gross, asOf, true)
}

// resolveRates skips the bracket lookup when the caller supplies the contribution itself.
func (svc *FinhubService) resolveRates(ctx context.Context, gross decimal.Decimal, asOf time.Time, withBracket bool) (*RateSet, error) {
	asOf = common.Date(asOf)
	bands, err := svc.ResolveTaxBands(ctx, asOf)
	if err != nil {
		return nil, err
	}
	var bracket *models.HealthInsuranceBracket
	if withBracket {
		bracket, err = svc.ResolveHealthInsuranceBracket(ctx, gross, asOf)
		if err != nil {
			return nil, err
		}
	}
	socialSecurity, err := svc.ResolveSocialSecurityConfig(ctx, asOf)
	if err != nil {
		return nil, err
	}
	housingLevy, err := svc.ResolveHousingLevyConfig(ctx, asOf)
	if err != nil {
		return nil, err
	}
	return &RateSet{
		AsOf:            asOf,
		TaxBands:        bands,
		HealthInsurance: bracket,
		SocialSecurity:  *socialSecurity,
		HousingLevy:     *housingLevy,
	}, nil
}

// GetTaxTables returns the tables in force at the end of year, or today for the current year.
func (svc *FinhubService) GetTaxTables(ctx context.Context, year int) (*TaxTables, error) {
	if year < 1900 || year > 9999 {
		return nil, responses.NewValidationError("year %d is out of range", year)
	}
	asOf := time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)
	if today := common.Date(time.Now()); today.Year() == year {
		asOf = today
	}

	bands, err := svc.ResolveTaxBands(ctx, asOf)
	if err != nil {
		return nil, err
	}
	var brackets []models.HealthInsuranceBracket
	err = activeOn(svc.DB.NewSelect().Model(&brackets), asOf).
		Order("min_gross ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(brackets) == 0 {
		return nil, svc.configurationMissing("health_insurance_brackets", asOf, "no active brackets")
	}
	socialSecurity, err := svc.ResolveSocialSecurityConfig(ctx, asOf)
	if err != nil {
		return nil, err
	}
	housingLevy, err := svc.ResolveHousingLevyConfig(ctx, asOf)
	if err != nil {
		return nil, err
	}
	return &TaxTables{
		Year:                    year,
		AsOf:                    asOf,
		TaxBands:                bands,
		HealthInsuranceBrackets: brackets,
		SocialSecurity:          *socialSecurity,
		HousingLevy:             *housingLevy,
	}, nil
}

// ImportRateSchedule writes a new rate version, closing the versions it supersedes.
func (svc *FinhubService) ImportRateSchedule(ctx context.Context, schedule *rateschedule.Schedule) (*rateschedule.Rows, error) {
	rows, err := schedule.Rows()
	if err != nil {
		return nil, err
	}
	err = svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return rateschedule.Import(ctx, tx, rows)
	})
	if err != nil {
		return nil, err
	}
	svc.Logger.Infof("imported rate schedule %q effective %s", schedule.Name, rows.EffectiveFrom.Format("2006-01-02"))
	return rows, nil
}
