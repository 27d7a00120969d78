package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// BandLine is the audit trace of one PAYE band.
type BandLine struct {
	BandOrder int                 `json:"band_order"`
	Min       decimal.Decimal     `json:"min"`
	Max       decimal.NullDecimal `json:"max"`
	Rate      decimal.Decimal     `json:"rate"`
	Taxable   decimal.Decimal     `json:"taxable"`
	Tax       decimal.Decimal     `json:"tax"`
}

// ReliefLine is the audit trace of one relief: the uncapped value, the cap and what was granted.
type ReliefLine struct {
	Name     string              `json:"name"`
	Basis    decimal.Decimal     `json:"basis"`
	Uncapped decimal.Decimal     `json:"uncapped"`
	Cap      decimal.NullDecimal `json:"cap"`
	Amount   decimal.Decimal     `json:"amount"`
}

// CalculationBreakdown is stored verbatim on the payroll record.
type CalculationBreakdown struct {
	RatesAsOf  time.Time    `json:"rates_as_of"`
	Bands      []BandLine   `json:"bands"`
	Reliefs    []ReliefLine `json:"reliefs"`
	Overridden []string     `json:"overridden,omitempty"`
}

// IncomeEntry : persisted payroll record of one income event
type IncomeEntry struct {
	bun.BaseModel `bun:"table:income_entries,alias:ie"`

	ID                   uuid.UUID            `json:"id" bun:"id,pk,type:uuid"`
	UserID               uuid.UUID            `json:"user_id" bun:"user_id,type:uuid,notnull"`
	EmployerID           uuid.NullUUID        `json:"employer_id" bun:"employer_id,type:uuid"`
	IncomeType           string               `json:"income_type" bun:",notnull"`
	Description          string               `json:"description" bun:",notnull"`
	IncomeDate           time.Time            `json:"income_date" bun:"type:date,notnull"`
	GrossAmount          decimal.Decimal      `json:"gross_amount" bun:"type:numeric(20,2),notnull"`
	Paye                 decimal.Decimal      `json:"paye" bun:"type:numeric(20,2),notnull"`
	Nhif                 decimal.Decimal      `json:"nhif" bun:"type:numeric(20,2),notnull"`
	NssfTier1            decimal.Decimal      `json:"nssf_tier1" bun:"type:numeric(20,2),notnull"`
	NssfTier2            decimal.Decimal      `json:"nssf_tier2" bun:"type:numeric(20,2),notnull"`
	NssfTotal            decimal.Decimal      `json:"nssf_total" bun:"type:numeric(20,2),notnull"`
	HousingLevy          decimal.Decimal      `json:"housing_levy" bun:"type:numeric(20,2),notnull"`
	OtherDeductions      decimal.Decimal      `json:"other_deductions" bun:"type:numeric(20,2),notnull"`
	OtherDeductionsNotes string               `json:"other_deductions_notes,omitempty" bun:",nullzero"`
	TotalDeductions      decimal.Decimal      `json:"total_deductions" bun:"type:numeric(20,2),notnull"`
	NetAmount            decimal.Decimal      `json:"net_amount" bun:"type:numeric(20,2),notnull"`
	IsManualOverride     bool                 `json:"is_manual_override" bun:",notnull"`
	OverrideNotes        string               `json:"override_notes,omitempty" bun:",nullzero"`
	CalculationBreakdown CalculationBreakdown `json:"calculation_breakdown" bun:"type:jsonb"`
	TransactionID        uuid.NullUUID        `json:"transaction_id" bun:"transaction_id,type:uuid"`
	CreatedAt            time.Time            `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt            bun.NullTime         `json:"updated_at"`
}

func (i *IncomeEntry) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		i.UpdatedAt = bun.NullTime{Time: time.Now().UTC()}
	}
	return nil
}

var _ bun.BeforeAppendModelHook = (*IncomeEntry)(nil)

// Employer : an employer income can be attributed to
type Employer struct {
	bun.BaseModel `bun:"table:employers,alias:e"`

	ID        uuid.UUID `json:"id" bun:"id,pk,type:uuid"`
	UserID    uuid.UUID `json:"user_id" bun:"user_id,type:uuid,notnull"`
	Name      string    `json:"name" bun:",notnull"`
	PinNumber string    `json:"pin_number,omitempty" bun:",nullzero"`
	Address   string    `json:"address,omitempty" bun:",nullzero"`
	Phone     string    `json:"phone,omitempty" bun:",nullzero"`
	Email     string    `json:"email,omitempty" bun:",nullzero"`
	IsCurrent bool      `json:"is_current" bun:",notnull"`
	CreatedAt time.Time `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}
