package main

import (
	"context"
	"time"

	"github.com/getAlby/finhub.go/lib/rateschedule"
	"github.com/getAlby/finhub.go/lib/service"
	"github.com/spf13/cobra"
)

func (a *app) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations, including the bundled rate tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, svc *service.FinhubService) (interface{}, error) {
				if err := runMigrations(ctx, svc.DB); err != nil {
					return nil, err
				}
				svc.Logger.Info("database migrated")
				return nil, nil
			})
		},
	}
}

func (a *app) ratesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Manage the date versioned statutory rate tables",
	}

	importCmd := &cobra.Command{
		Use:   "import <schedule.yaml>",
		Short: "Import a rate schedule, closing the versions it supersedes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schedule, err := rateschedule.Load(args[0])
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, svc *service.FinhubService) (interface{}, error) {
				return svc.ImportRateSchedule(ctx, schedule)
			})
		},
	}

	var year int
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the tax tables in force for a year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, svc *service.FinhubService) (interface{}, error) {
				return svc.GetTaxTables(ctx, year)
			})
		},
	}
	showCmd.Flags().IntVar(&year, "year", time.Now().Year(), "tax year")

	cmd.AddCommand(importCmd, showCmd)
	return cmd
}

func (a *app) payeCommand() *cobra.Command {
	var gross, date, insurance, pension, mortgage string

	cmd := &cobra.Command{
		Use:   "paye",
		Short: "Calculate PAYE and statutory deductions for a gross monthly salary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := service.PayeInput{}
			var err error
			if input.GrossSalary, err = parseDecimal("gross", gross); err != nil {
				return err
			}
			if input.CalculationDate, err = parseDate("date", date); err != nil {
				return err
			}
			if input.InsurancePremium, err = parseOptionalDecimal("insurance", insurance); err != nil {
				return err
			}
			if input.PensionContribution, err = parseOptionalDecimal("pension", pension); err != nil {
				return err
			}
			if input.MortgageInterest, err = parseOptionalDecimal("mortgage", mortgage); err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, svc *service.FinhubService) (interface{}, error) {
				return svc.CalculatePaye(ctx, input)
			})
		},
	}

	cmd.Flags().StringVar(&gross, "gross", "", "gross monthly salary (required)")
	_ = cmd.MarkFlagRequired("gross")
	cmd.Flags().StringVar(&date, "date", "", "calculation date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&insurance, "insurance", "", "monthly insurance premium")
	cmd.Flags().StringVar(&pension, "pension", "", "monthly pension contribution")
	cmd.Flags().StringVar(&mortgage, "mortgage", "", "monthly mortgage interest")
	return cmd
}
