package service

import (
	"context"
	"time"

	"github.com/getAlby/finhub.go/common"
	"github.com/getAlby/finhub.go/db/models"
	"github.com/getAlby/finhub.go/lib/responses"
	"github.com/shopspring/decimal"
)

// ReliefPolicy holds the statutory relief constants. They are not date versioned.
type ReliefPolicy struct {
	PersonalRelief   decimal.Decimal
	InsuranceRate    decimal.Decimal
	InsuranceCap     decimal.Decimal
	PensionRate      decimal.Decimal
	PensionGrossRate decimal.Decimal
	PensionCap       decimal.Decimal
	MortgageCap      decimal.Decimal
}

var DefaultReliefPolicy = ReliefPolicy{
	PersonalRelief:   decimal.NewFromInt(2400),
	InsuranceRate:    decimal.RequireFromString("0.15"),
	InsuranceCap:     decimal.NewFromInt(5000),
	PensionRate:      decimal.RequireFromString("0.30"),
	PensionGrossRate: decimal.RequireFromString("0.30"),
	PensionCap:       decimal.NewFromInt(20000),
	MortgageCap:      decimal.NewFromInt(25000),
}

const (
	ReliefPersonal  = "personal"
	ReliefInsurance = "insurance"
	ReliefPension   = "pension"
	ReliefMortgage  = "mortgage_interest"

	ComponentPaye        = "paye"
	ComponentNhif        = "nhif"
	ComponentNssfTier1   = "nssf_tier1"
	ComponentNssfTier2   = "nssf_tier2"
	ComponentHousingLevy = "housing_levy"
)

// PayeOverrides replace individual computed components. A nil field means "compute it".
type PayeOverrides struct {
	Paye        *decimal.Decimal `json:"paye_override,omitempty" validate:"omitempty,dgte0,dplaces2"`
	Nhif        *decimal.Decimal `json:"nhif_override,omitempty" validate:"omitempty,dgte0,dplaces2"`
	NssfTier1   *decimal.Decimal `json:"nssf_tier1_override,omitempty" validate:"omitempty,dgte0,dplaces2"`
	NssfTier2   *decimal.Decimal `json:"nssf_tier2_override,omitempty" validate:"omitempty,dgte0,dplaces2"`
	HousingLevy *decimal.Decimal `json:"housing_levy_override,omitempty" validate:"omitempty,dgte0,dplaces2"`
}

func (o PayeOverrides) any() bool {
	return o.Paye != nil || o.Nhif != nil || o.NssfTier1 != nil || o.NssfTier2 != nil || o.HousingLevy != nil
}

type PayeInput struct {
	GrossSalary         decimal.Decimal  `json:"gross_salary" validate:"dgt0,dplaces2"`
	CalculationDate     time.Time        `json:"calculation_date"`
	InsurancePremium    *decimal.Decimal `json:"insurance_premium,omitempty" validate:"omitempty,dgte0,dplaces2"`
	PensionContribution *decimal.Decimal `json:"pension_contribution,omitempty" validate:"omitempty,dgte0,dplaces2"`
	MortgageInterest    *decimal.Decimal `json:"mortgage_interest,omitempty" validate:"omitempty,dgte0,dplaces2"`
	Overrides           PayeOverrides    `json:"overrides"`
}

type PayeResult struct {
	GrossSalary     decimal.Decimal             `json:"gross_salary"`
	CalculationDate time.Time                   `json:"calculation_date"`
	PreReliefTax    decimal.Decimal             `json:"paye_before_relief"`
	TotalReliefs    decimal.Decimal             `json:"total_reliefs"`
	Paye            decimal.Decimal             `json:"paye"`
	Nhif            decimal.Decimal             `json:"nhif"`
	NssfTier1       decimal.Decimal             `json:"nssf_tier1"`
	NssfTier2       decimal.Decimal             `json:"nssf_tier2"`
	NssfTotal       decimal.Decimal             `json:"nssf_total"`
	HousingLevy     decimal.Decimal             `json:"housing_levy"`
	TotalDeductions decimal.Decimal             `json:"total_deductions"`
	NetSalary       decimal.Decimal             `json:"net_salary"`
	EffectiveRate   decimal.Decimal             `json:"effective_rate"`
	Breakdown       models.CalculationBreakdown `json:"breakdown"`
}

// CalculatePaye resolves the rates in force on the calculation date and computes the payroll.
func (svc *FinhubService) CalculatePaye(ctx context.Context, input PayeInput) (*PayeResult, error) {
	if err := validateParams(input); err != nil {
		return nil, err
	}
	if input.CalculationDate.IsZero() {
		input.CalculationDate = time.Now()
	}
	input.CalculationDate = common.Date(input.CalculationDate)

	rates, err := svc.resolveRates(ctx, input.GrossSalary, input.CalculationDate, input.Overrides.Nhif == nil)
	if err != nil {
		return nil, err
	}
	return CalculatePayeWithRates(input, *rates)
}

// CalculatePayeWithRates is the pure calculation over already resolved rates.
func CalculatePayeWithRates(input PayeInput, rates RateSet) (*PayeResult, error) {
	return CalculatePayeWithPolicy(input, rates, DefaultReliefPolicy)
}

func CalculatePayeWithPolicy(input PayeInput, rates RateSet, policy ReliefPolicy) (*PayeResult, error) {
	if err := validateParams(input); err != nil {
		return nil, err
	}
	gross := input.GrossSalary
	if len(rates.TaxBands) == 0 {
		return nil, responses.NewConfigurationMissingError("paye_tax_bands: no bands supplied")
	}
	if rates.HealthInsurance == nil && input.Overrides.Nhif == nil {
		return nil, responses.NewConfigurationMissingError("health_insurance_brackets: no bracket supplied for gross %s", gross.StringFixed(2))
	}

	result := &PayeResult{
		GrossSalary:     gross,
		CalculationDate: input.CalculationDate,
		Breakdown:       models.CalculationBreakdown{RatesAsOf: rates.AsOf},
	}

	bands, preRelief := progressiveTax(gross, rates.TaxBands)
	result.Breakdown.Bands = bands
	result.PreReliefTax = preRelief

	reliefs, totalReliefs := policy.reliefs(input)
	result.Breakdown.Reliefs = reliefs
	result.TotalReliefs = totalReliefs

	result.Paye = maxDecimal(decimal.Zero, preRelief.Sub(totalReliefs))
	if rates.HealthInsurance != nil {
		result.Nhif = rates.HealthInsurance.Contribution
	}
	ss := rates.SocialSecurity
	result.NssfTier1 = round2(minDecimal(gross, ss.Tier1Limit).Mul(ss.Tier1Rate))
	result.NssfTier2 = round2(maxDecimal(decimal.Zero, minDecimal(gross, ss.Tier2Limit).Sub(ss.Tier1Limit)).Mul(ss.Tier2Rate))
	result.HousingLevy = round2(gross.Mul(rates.HousingLevy.Rate))

	overrides := []struct {
		name  string
		value *decimal.Decimal
		field *decimal.Decimal
	}{
		{ComponentPaye, input.Overrides.Paye, &result.Paye},
		{ComponentNhif, input.Overrides.Nhif, &result.Nhif},
		{ComponentNssfTier1, input.Overrides.NssfTier1, &result.NssfTier1},
		{ComponentNssfTier2, input.Overrides.NssfTier2, &result.NssfTier2},
		{ComponentHousingLevy, input.Overrides.HousingLevy, &result.HousingLevy},
	}
	for _, o := range overrides {
		if o.value != nil {
			*o.field = round2(*o.value)
			result.Breakdown.Overridden = append(result.Breakdown.Overridden, o.name)
		}
	}

	result.NssfTotal = result.NssfTier1.Add(result.NssfTier2)
	result.TotalDeductions = result.Paye.Add(result.Nhif).Add(result.NssfTotal).Add(result.HousingLevy)
	result.NetSalary = gross.Sub(result.TotalDeductions)
	result.EffectiveRate = result.TotalDeductions.Div(gross).Round(4)
	return result, nil
}

// progressiveTax walks the bands in order, taxing each slice of gross at its band's rate.
func progressiveTax(gross decimal.Decimal, bands []models.TaxBand) ([]models.BandLine, decimal.Decimal) {
	lines := make([]models.BandLine, 0, len(bands))
	total := decimal.Zero
	remaining := gross
	for i, band := range bands {
		if !remaining.IsPositive() {
			break
		}
		taxable := remaining
		if band.MaxAmount.Valid && i < len(bands)-1 {
			taxable = minDecimal(remaining, band.MaxAmount.Decimal.Sub(band.MinAmount))
		}
		if !taxable.IsPositive() {
			continue
		}
		tax := round2(taxable.Mul(band.Rate))
		lines = append(lines, models.BandLine{
			BandOrder: band.BandOrder,
			Min:       band.MinAmount,
			Max:       band.MaxAmount,
			Rate:      band.Rate,
			Taxable:   taxable,
			Tax:       tax,
		})
		total = total.Add(tax)
		remaining = remaining.Sub(taxable)
	}
	return lines, total
}

func (p ReliefPolicy) reliefs(input PayeInput) ([]models.ReliefLine, decimal.Decimal) {
	lines := []models.ReliefLine{{
		Name:     ReliefPersonal,
		Uncapped: p.PersonalRelief,
		Amount:   p.PersonalRelief,
	}}
	total := p.PersonalRelief

	add := func(name string, basis, uncapped, cap decimal.Decimal) {
		amount := round2(minDecimal(uncapped, cap))
		if !amount.IsPositive() {
			return
		}
		lines = append(lines, models.ReliefLine{
			Name:     name,
			Basis:    basis,
			Uncapped: uncapped,
			Cap:      decimal.NewNullDecimal(cap),
			Amount:   amount,
		})
		total = total.Add(amount)
	}

	premium := optional(input.InsurancePremium)
	add(ReliefInsurance, premium, premium.Mul(p.InsuranceRate), p.InsuranceCap)

	contribution := optional(input.PensionContribution)
	pensionCap := minDecimal(input.GrossSalary.Mul(p.PensionGrossRate), p.PensionCap)
	add(ReliefPension, contribution, contribution.Mul(p.PensionRate), pensionCap)

	interest := optional(input.MortgageInterest)
	add(ReliefMortgage, interest, interest, p.MortgageCap)

	return lines, total
}
