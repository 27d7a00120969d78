package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Effective is the validity window shared by every rate table row.
// A null EffectiveTo means the row is open ended.
type Effective struct {
	EffectiveFrom time.Time    `json:"effective_from" bun:"type:date,notnull"`
	EffectiveTo   bun.NullTime `json:"effective_to" bun:"type:date"`
}

// TaxBand : one progressive PAYE band
type TaxBand struct {
	bun.BaseModel `bun:"table:paye_tax_bands,alias:tb"`

	ID uuid.UUID `json:"id" bun:"id,pk,type:uuid"`
	Effective
	TaxYear     int                 `json:"tax_year" bun:",notnull"`
	BandOrder   int                 `json:"band_order" bun:",notnull"`
	MinAmount   decimal.Decimal     `json:"min_amount" bun:"type:numeric(20,2),notnull"`
	MaxAmount   decimal.NullDecimal `json:"max_amount" bun:"type:numeric(20,2)"`
	Rate        decimal.Decimal     `json:"rate" bun:"type:numeric(10,6),notnull"`
	Description string              `json:"description,omitempty" bun:",nullzero"`
}

// HealthInsuranceBracket : flat NHIF contribution for a gross salary range
type HealthInsuranceBracket struct {
	bun.BaseModel `bun:"table:health_insurance_brackets,alias:hib"`

	ID uuid.UUID `json:"id" bun:"id,pk,type:uuid"`
	Effective
	MinGross     decimal.Decimal     `json:"min_gross" bun:"type:numeric(20,2),notnull"`
	MaxGross     decimal.NullDecimal `json:"max_gross" bun:"type:numeric(20,2)"`
	Contribution decimal.Decimal     `json:"contribution" bun:"type:numeric(20,2),notnull"`
	Description  string              `json:"description,omitempty" bun:",nullzero"`
}

// SocialSecurityConfig : two tier NSSF parameters
type SocialSecurityConfig struct {
	bun.BaseModel `bun:"table:social_security_configs,alias:ssc"`

	ID uuid.UUID `json:"id" bun:"id,pk,type:uuid"`
	Effective
	Tier1Limit  decimal.Decimal `json:"tier1_limit" bun:"type:numeric(20,2),notnull"`
	Tier1Rate   decimal.Decimal `json:"tier1_rate" bun:"type:numeric(10,6),notnull"`
	Tier2Limit  decimal.Decimal `json:"tier2_limit" bun:"type:numeric(20,2),notnull"`
	Tier2Rate   decimal.Decimal `json:"tier2_rate" bun:"type:numeric(10,6),notnull"`
	Description string          `json:"description,omitempty" bun:",nullzero"`
}

// HousingLevyConfig : flat housing levy rate
type HousingLevyConfig struct {
	bun.BaseModel `bun:"table:housing_levy_configs,alias:hlc"`

	ID uuid.UUID `json:"id" bun:"id,pk,type:uuid"`
	Effective
	Rate        decimal.Decimal `json:"rate" bun:"type:numeric(10,6),notnull"`
	Description string          `json:"description,omitempty" bun:",nullzero"`
}
