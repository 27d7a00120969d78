package main

import (
	"context"
	"time"

	"github.com/getAlby/finhub.go/lib/service"
	"github.com/spf13/cobra"
)

func (a *app) employerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "employer",
		Short: "Manage employers income is attributed to",
	}

	var user string
	var notCurrent bool
	params := service.CreateEmployerParams{}
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an employer; by default it becomes the current one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUUID("user", user)
			if err != nil {
				return err
			}
			current := !notCurrent
			params.IsCurrent = &current
			return a.run(cmd, func(ctx context.Context, svc *service.FinhubService) (interface{}, error) {
				return svc.CreateEmployer(ctx, userID, params)
			})
		},
	}
	createCmd.Flags().StringVar(&user, "user", "", "owner id (required)")
	_ = createCmd.MarkFlagRequired("user")
	createCmd.Flags().StringVar(&params.Name, "name", "", "employer name (required)")
	createCmd.Flags().StringVar(&params.PinNumber, "pin", "", "KRA PIN")
	createCmd.Flags().StringVar(&params.Address, "address", "", "postal address")
	createCmd.Flags().StringVar(&params.Phone, "phone", "", "phone number")
	createCmd.Flags().StringVar(&params.Email, "email", "", "email address")
	createCmd.Flags().BoolVar(&notCurrent, "past", false, "record a past employer")

	cmd.AddCommand(createCmd)
	return cmd
}

func (a *app) incomeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "income",
		Short: "Record and summarize income",
	}
	cmd.AddCommand(a.incomeRecordCommand(), a.incomeSummaryCommand())
	return cmd
}

func (a *app) incomeRecordCommand() *cobra.Command {
	var user, gross, date, employer, bank, insurance, pension, mortgage, other string
	var payeOverride, nhifOverride, tier1Override, tier2Override, housingOverride string
	params := service.RecordIncomeParams{}

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a payroll, optionally posting the net pay to a bank account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUUID("user", user)
			if err != nil {
				return err
			}
			if params.GrossAmount, err = parseDecimal("gross", gross); err != nil {
				return err
			}
			if params.IncomeDate, err = parseDate("date", date); err != nil {
				return err
			}
			if params.EmployerID, err = parseOptionalUUID("employer", employer); err != nil {
				return err
			}
			if params.BankAccountID, err = parseOptionalUUID("bank", bank); err != nil {
				return err
			}
			params.CreateTransaction = params.BankAccountID.Valid

			if params.InsurancePremium, err = parseOptionalDecimal("insurance", insurance); err != nil {
				return err
			}
			if params.PensionContribution, err = parseOptionalDecimal("pension", pension); err != nil {
				return err
			}
			if params.MortgageInterest, err = parseOptionalDecimal("mortgage", mortgage); err != nil {
				return err
			}
			if params.OtherDeductions, err = parseOptionalDecimal("other-deductions", other); err != nil {
				return err
			}
			if params.Overrides.Paye, err = parseOptionalDecimal("paye", payeOverride); err != nil {
				return err
			}
			if params.Overrides.Nhif, err = parseOptionalDecimal("nhif", nhifOverride); err != nil {
				return err
			}
			if params.Overrides.NssfTier1, err = parseOptionalDecimal("nssf-tier1", tier1Override); err != nil {
				return err
			}
			if params.Overrides.NssfTier2, err = parseOptionalDecimal("nssf-tier2", tier2Override); err != nil {
				return err
			}
			if params.Overrides.HousingLevy, err = parseOptionalDecimal("housing-levy", housingOverride); err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, svc *service.FinhubService) (interface{}, error) {
				return svc.RecordIncome(ctx, userID, params)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&user, "user", "", "owner id (required)")
	flags.StringVar(&gross, "gross", "", "gross amount (required)")
	flags.StringVar(&params.Description, "description", "", "description (required)")
	for _, name := range []string{"user", "gross", "description"} {
		_ = cmd.MarkFlagRequired(name)
	}
	flags.StringVar(&date, "date", "", "income date, YYYY-MM-DD (default today)")
	flags.StringVar(&params.IncomeType, "type", "", "SALARY, BUSINESS, INVESTMENT or OTHER (default SALARY)")
	flags.StringVar(&employer, "employer", "", "employer id")
	flags.StringVar(&bank, "bank", "", "post the net pay to this bank account")
	flags.StringVar(&insurance, "insurance", "", "monthly insurance premium")
	flags.StringVar(&pension, "pension", "", "monthly pension contribution")
	flags.StringVar(&mortgage, "mortgage", "", "monthly mortgage interest")
	flags.StringVar(&other, "other-deductions", "", "non statutory deductions")
	flags.StringVar(&params.OtherDeductionsNotes, "other-deductions-notes", "", "what the other deductions are")
	flags.StringVar(&payeOverride, "paye", "", "PAYE as shown on the payslip")
	flags.StringVar(&nhifOverride, "nhif", "", "NHIF as shown on the payslip")
	flags.StringVar(&tier1Override, "nssf-tier1", "", "NSSF tier I as shown on the payslip")
	flags.StringVar(&tier2Override, "nssf-tier2", "", "NSSF tier II as shown on the payslip")
	flags.StringVar(&housingOverride, "housing-levy", "", "housing levy as shown on the payslip")
	flags.StringVar(&params.OverrideNotes, "override-notes", "", "why the payslip differs")
	return cmd
}

func (a *app) incomeSummaryCommand() *cobra.Command {
	var user, from, to string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Total the payroll records within a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUUID("user", user)
			if err != nil {
				return err
			}
			start, err := parseDate("from", from)
			if err != nil {
				return err
			}
			end, err := parseDate("to", to)
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, svc *service.FinhubService) (interface{}, error) {
				return svc.GetIncomeSummary(ctx, userID, start, end)
			})
		},
	}
	now := time.Now().UTC()
	cmd.Flags().StringVar(&user, "user", "", "owner id (required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().StringVar(&from, "from", time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC).Format(dateLayout), "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD (default today)")
	return cmd
}
