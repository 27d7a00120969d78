package main

import (
	"context"
	"time"

	"github.com/getAlby/finhub.go/lib/service"
	"github.com/spf13/cobra"
)

func (a *app) categoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage income and expense categories",
	}

	var user string
	params := service.CreateCategoryParams{}
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a category of the owner's own",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUUID("user", user)
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, svc *service.FinhubService) (interface{}, error) {
				return svc.CreateCategory(ctx, userID, params)
			})
		},
	}
	createCmd.Flags().StringVar(&user, "user", "", "owner id (required)")
	createCmd.Flags().StringVar(&params.Name, "name", "", "category name (required)")
	createCmd.Flags().StringVar(&params.Type, "type", "EXPENSE", "INCOME or EXPENSE")
	createCmd.Flags().StringVar(&params.Description, "description", "", "free text description")
	createCmd.Flags().StringVar(&params.Icon, "icon", "", "icon name")
	createCmd.Flags().StringVar(&params.Color, "color", "", "hex color such as #10B981")
	for _, name := range []string{"user", "name"} {
		_ = createCmd.MarkFlagRequired(name)
	}

	var listUser, listType string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the system categories and the owner's own",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUUID("user", listUser)
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, svc *service.FinhubService) (interface{}, error) {
				return svc.GetCategories(ctx, userID, listType)
			})
		},
	}
	listCmd.Flags().StringVar(&listUser, "user", "", "owner id (required)")
	_ = listCmd.MarkFlagRequired("user")
	listCmd.Flags().StringVar(&listType, "type", "", "only INCOME or EXPENSE categories")

	cmd.AddCommand(createCmd, listCmd)
	return cmd
}

func (a *app) expenseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expense",
		Short: "Record and summarize expenses",
	}
	cmd.AddCommand(a.expenseRecordCommand(), a.expenseListCommand(), a.expenseSummaryCommand(), a.expenseDeleteCommand())
	return cmd
}

func (a *app) expenseRecordCommand() *cobra.Command {
	var user, category, account, amount, date string
	params := service.RecordExpenseParams{}

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record an expense, optionally posting it against the paying account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUUID("user", user)
			if err != nil {
				return err
			}
			if params.CategoryID, err = parseUUID("category", category); err != nil {
				return err
			}
			if params.AccountID, err = parseOptionalUUID("account", account); err != nil {
				return err
			}
			params.CreateTransaction = params.AccountID.Valid
			if params.Amount, err = parseDecimal("amount", amount); err != nil {
				return err
			}
			if params.ExpenseDate, err = parseDate("date", date); err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, svc *service.FinhubService) (interface{}, error) {
				return svc.RecordExpense(ctx, userID, params)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&user, "user", "", "owner id (required)")
	flags.StringVar(&category, "category", "", "expense category id (required)")
	flags.StringVar(&amount, "amount", "", "amount spent (required)")
	flags.StringVar(&params.Description, "description", "", "description (required)")
	for _, name := range []string{"user", "category", "amount", "description"} {
		_ = cmd.MarkFlagRequired(name)
	}
	flags.StringVar(&account, "account", "", "post the expense against this paying account")
	flags.StringVar(&date, "date", "", "expense date, YYYY-MM-DD (default today)")
	flags.StringVar(&params.Merchant, "merchant", "", "who was paid")
	flags.StringVar(&params.PaymentMethod, "method", "", "CASH, CARD, MPESA or BANK_TRANSFER")
	flags.StringVar(&params.ReferenceNumber, "reference", "", "receipt or M-Pesa reference")
	flags.StringVar(&params.Notes, "notes", "", "notes")
	flags.StringSliceVar(&params.Tags, "tag", nil, "tag, repeatable")
	return cmd
}

func (a *app) expenseListCommand() *cobra.Command {
	var user, category, from, to string
	filter := service.ExpenseFilter{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUUID("user", user)
			if err != nil {
				return err
			}
			categoryID, err := parseOptionalUUID("category", category)
			if err != nil {
				return err
			}
			filter.CategoryID = categoryID.UUID
			if from != "" {
				if filter.From, err = parseDate("from", from); err != nil {
					return err
				}
			}
			if to != "" {
				if filter.To, err = parseDate("to", to); err != nil {
					return err
				}
			}
			return a.run(cmd, func(ctx context.Context, svc *service.FinhubService) (interface{}, error) {
				return svc.GetExpenses(ctx, userID, filter)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "owner id (required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().StringVar(&category, "category", "", "only this category")
	cmd.Flags().StringVar(&filter.PaymentMethod, "method", "", "only this payment method")
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum number of expenses")
	return cmd
}

func (a *app) expenseSummaryCommand() *cobra.Command {
	var user, from, to string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Total the expenses within a date range by category",
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
				return svc.GetExpenseSummary(ctx, userID, start, end)
			})
		},
	}
	now := time.Now().UTC()
	cmd.Flags().StringVar(&user, "user", "", "owner id (required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().StringVar(&from, "from", time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).Format(dateLayout), "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD (default today)")
	return cmd
}

func (a *app) expenseDeleteCommand() *cobra.Command {
	var user, expense string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an expense, voiding its ledger transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUUID("user", user)
			if err != nil {
				return err
			}
			expenseID, err := parseUUID("expense", expense)
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, svc *service.FinhubService) (interface{}, error) {
				return svc.DeleteExpense(ctx, userID, expenseID)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "owner id (required)")
	cmd.Flags().StringVar(&expense, "expense", "", "expense id (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("expense")
	return cmd
}

func (a *app) dashboardCommand() *cobra.Command {
	var user, from, to string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Compare income, spending and savings with the previous period",
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
				return svc.GetDashboardStats(ctx, userID, start, end)
			})
		},
	}
	now := time.Now().UTC()
	cmd.Flags().StringVar(&user, "user", "", "owner id (required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().StringVar(&from, "from", time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).Format(dateLayout), "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD (default today)")
	return cmd
}
