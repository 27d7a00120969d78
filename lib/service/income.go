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

type RecordIncomeParams struct {
	GrossAmount          decimal.Decimal  `json:"gross_amount" validate:"dgt0,dplaces2"`
	IncomeDate           time.Time        `json:"income_date" validate:"required"`
	Description          string           `json:"description" validate:"required,max=500"`
	IncomeType           string           `json:"income_type,omitempty" validate:"omitempty,oneof=SALARY BUSINESS INVESTMENT OTHER"`
	EmployerID           uuid.NullUUID    `json:"employer_id"`
	BankAccountID        uuid.NullUUID    `json:"bank_account_id"`
	CreateTransaction    bool             `json:"create_transaction"`
	InsurancePremium     *decimal.Decimal `json:"insurance_premium,omitempty" validate:"omitempty,dgte0,dplaces2"`
	PensionContribution  *decimal.Decimal `json:"pension_contribution,omitempty" validate:"omitempty,dgte0,dplaces2"`
	MortgageInterest     *decimal.Decimal `json:"mortgage_interest,omitempty" validate:"omitempty,dgte0,dplaces2"`
	Overrides            PayeOverrides    `json:"overrides"`
	OtherDeductions      *decimal.Decimal `json:"other_deductions,omitempty" validate:"omitempty,dgte0,dplaces2"`
	OtherDeductionsNotes string           `json:"other_deductions_notes,omitempty"`
	IsManualOverride     bool             `json:"is_manual_override"`
	OverrideNotes        string           `json:"override_notes,omitempty"`
}

type IncomeFilter struct {
	IncomeType string
	EmployerID uuid.UUID
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

type IncomeSummary struct {
	From                 time.Time       `json:"from"`
	To                   time.Time       `json:"to"`
	EntryCount           int             `json:"entry_count"`
	TotalGross           decimal.Decimal `json:"total_gross"`
	TotalPaye            decimal.Decimal `json:"total_paye"`
	TotalNhif            decimal.Decimal `json:"total_nhif"`
	TotalNssf            decimal.Decimal `json:"total_nssf"`
	TotalHousingLevy     decimal.Decimal `json:"total_housing_levy"`
	TotalOtherDeductions decimal.Decimal `json:"total_other_deductions"`
	TotalDeductions      decimal.Decimal `json:"total_deductions"`
	TotalNet             decimal.Decimal `json:"total_net"`
}

// RecordIncome computes the payroll for the income date and stores it. When asked, net pay is
// posted to the ledger in the same unit of work: the record and the posting commit or fail together.
func (svc *FinhubService) RecordIncome(ctx context.Context, userID uuid.UUID, params RecordIncomeParams) (*models.IncomeEntry, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}
	if params.CreateTransaction && !params.BankAccountID.Valid {
		return nil, responses.NewValidationErrors([]string{"bank_account_id is required when create_transaction is set"})
	}
	if params.IncomeType == "" {
		params.IncomeType = common.IncomeTypeSalary
	}

	payroll, err := svc.CalculatePaye(ctx, PayeInput{
		GrossSalary:         params.GrossAmount,
		CalculationDate:     params.IncomeDate,
		InsurancePremium:    params.InsurancePremium,
		PensionContribution: params.PensionContribution,
		MortgageInterest:    params.MortgageInterest,
		Overrides:           params.Overrides,
	})
	if err != nil {
		return nil, err
	}

	otherDeductions := round2(optional(params.OtherDeductions))
	totalDeductions := payroll.TotalDeductions.Add(otherDeductions)
	net := params.GrossAmount.Sub(totalDeductions)
	if params.CreateTransaction && !net.IsPositive() {
		return nil, responses.NewValidationErrors([]string{fmt.Sprintf("net_amount %s must be greater than 0 to post to the ledger", net.StringFixed(2))})
	}

	entry := &models.IncomeEntry{
		ID:                   uuid.New(),
		UserID:               userID,
		EmployerID:           params.EmployerID,
		IncomeType:           params.IncomeType,
		Description:          params.Description,
		IncomeDate:           common.Date(params.IncomeDate),
		GrossAmount:          params.GrossAmount,
		Paye:                 payroll.Paye,
		Nhif:                 payroll.Nhif,
		NssfTier1:            payroll.NssfTier1,
		NssfTier2:            payroll.NssfTier2,
		NssfTotal:            payroll.NssfTotal,
		HousingLevy:          payroll.HousingLevy,
		OtherDeductions:      otherDeductions,
		OtherDeductionsNotes: params.OtherDeductionsNotes,
		TotalDeductions:      totalDeductions,
		NetAmount:            net,
		IsManualOverride:     params.IsManualOverride || params.Overrides.any(),
		OverrideNotes:        params.OverrideNotes,
		CalculationBreakdown: payroll.Breakdown,
		CreatedAt:            time.Now().UTC(),
	}

	var posted *models.Transaction
	err = svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if params.EmployerID.Valid {
			exists, err := tx.NewSelect().
				Model((*models.Employer)(nil)).
				Where("id = ?", params.EmployerID.UUID).
				Where("user_id = ?", userID).
				Exists(ctx)
			if err != nil {
				return err
			}
			if !exists {
				return responses.NewNotFoundError("employer %s not found", params.EmployerID.UUID)
			}
		}

		if _, err := tx.NewInsert().Model(entry).Exec(ctx); err != nil {
			return err
		}
		if !params.CreateTransaction {
			return nil
		}

		salary, err := svc.GetOrCreateSystemAccount(ctx, tx, userID, svc.salaryAccountSpec())
		if err != nil {
			return err
		}
		posted, _, err = svc.postTransaction(ctx, tx, userID, CreateTransactionParams{
			Description:     params.Description,
			Notes:           fmt.Sprintf("Net salary after deductions. Gross: %s %s", salary.Currency, params.GrossAmount.StringFixed(2)),
			TransactionDate: params.IncomeDate,
			Metadata:        map[string]interface{}{"income_entry_id": entry.ID.String()},
			Entries: []EntryInput{
				{AccountID: params.BankAccountID.UUID, EntryType: common.EntryTypeDebit, Amount: net, Description: "Salary received (net)"},
				{AccountID: salary.ID, EntryType: common.EntryTypeCredit, Amount: net, Description: "Salary earned"},
			},
		})
		if err != nil {
			return err
		}

		entry.TransactionID = uuid.NullUUID{UUID: posted.ID, Valid: true}
		_, err = tx.NewUpdate().
			Model(entry).
			Column("transaction_id", "updated_at").
			WherePK().
			Exec(ctx)
		return err
	})
	if err != nil {
		svc.Logger.Errorf("recording income for user %s failed: %v", userID, err)
		return nil, err
	}

	svc.publishLedgerEvent(ctx, common.EventIncomeRecorded, entry)
	if posted != nil {
		svc.publishLedgerEvent(ctx, common.EventTransactionPosted, posted)
	}
	return entry, nil
}

func (svc *FinhubService) GetIncomeEntries(ctx context.Context, userID uuid.UUID, filter IncomeFilter) ([]models.IncomeEntry, error) {
	entries := []models.IncomeEntry{}
	query := svc.DB.NewSelect().Model(&entries).Where("user_id = ?", userID)
	if filter.IncomeType != "" {
		query.Where("income_type = ?", filter.IncomeType)
	}
	if filter.EmployerID != uuid.Nil {
		query.Where("employer_id = ?", filter.EmployerID)
	}
	if !filter.From.IsZero() {
		query.Where("income_date >= ?", common.Date(filter.From))
	}
	if !filter.To.IsZero() {
		query.Where("income_date <= ?", common.Date(filter.To))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query.Order("income_date DESC", "created_at DESC").Limit(limit).Offset(filter.Offset)
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return entries, nil
}

func (svc *FinhubService) GetIncomeEntryByID(ctx context.Context, userID uuid.UUID, id uuid.UUID) (*models.IncomeEntry, error) {
	entry := &models.IncomeEntry{}
	err := svc.DB.NewSelect().
		Model(entry).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, responses.NewNotFoundError("income entry %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetIncomeSummary totals the payroll records dated within [from, to].
func (svc *FinhubService) GetIncomeSummary(ctx context.Context, userID uuid.UUID, from, to time.Time) (*IncomeSummary, error) {
	from, to = common.Date(from), common.Date(to)
	if to.Before(from) {
		return nil, responses.NewValidationError("to %s is before from %s", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}
	var entries []models.IncomeEntry
	err := svc.DB.NewSelect().
		Model(&entries).
		Where("user_id = ?", userID).
		Where("income_date >= ?", from).
		Where("income_date <= ?", to).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	summary := &IncomeSummary{
		From:                 from,
		To:                   to,
		EntryCount:           len(entries),
		TotalGross:           decimal.Zero,
		TotalPaye:            decimal.Zero,
		TotalNhif:            decimal.Zero,
		TotalNssf:            decimal.Zero,
		TotalHousingLevy:     decimal.Zero,
		TotalOtherDeductions: decimal.Zero,
		TotalDeductions:      decimal.Zero,
		TotalNet:             decimal.Zero,
	}
	for _, e := range entries {
		summary.TotalGross = summary.TotalGross.Add(e.GrossAmount)
		summary.TotalPaye = summary.TotalPaye.Add(e.Paye)
		summary.TotalNhif = summary.TotalNhif.Add(e.Nhif)
		summary.TotalNssf = summary.TotalNssf.Add(e.NssfTotal)
		summary.TotalHousingLevy = summary.TotalHousingLevy.Add(e.HousingLevy)
		summary.TotalOtherDeductions = summary.TotalOtherDeductions.Add(e.OtherDeductions)
		summary.TotalDeductions = summary.TotalDeductions.Add(e.TotalDeductions)
		summary.TotalNet = summary.TotalNet.Add(e.NetAmount)
	}
	return summary, nil
}
