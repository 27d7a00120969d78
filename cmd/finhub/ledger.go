package main

import (
	"context"

	"github.com/getAlby/finhub.go/lib/service"
	"github.com/spf13/cobra"
)

func (a *app) userCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage ledger owners",
	}

	var login string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an owner together with its opening balances account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, svc *service.FinhubService) (interface{}, error) {
				return svc.CreateUser(ctx, login)
			})
		},
	}
	createCmd.Flags().StringVar(&login, "login", "", "unique login (required)")
	_ = createCmd.MarkFlagRequired("login")

	cmd.AddCommand(createCmd)
	return cmd
}

func (a *app) accountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}

	var user, opening, openingDate string
	params := service.CreateAccountParams{}
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account, optionally booking an opening balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUUID("user", user)
			if err != nil {
				return err
			}
			amount, err := parseOptionalDecimal("opening-balance", opening)
			if err != nil {
				return err
			}
			date, err := parseDate("opening-date", openingDate)
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, svc *service.FinhubService) (interface{}, error) {
				account, err := svc.CreateAccount(ctx, userID, params)
				if err != nil {
					return nil, err
				}
				if amount != nil && !amount.IsZero() {
					if _, err := svc.PostOpeningBalance(ctx, userID, account.ID, *amount, date); err != nil {
						return nil, err
					}
				}
				return account, nil
			})
		},
	}
	createCmd.Flags().StringVar(&user, "user", "", "owner id (required)")
	_ = createCmd.MarkFlagRequired("user")
	createCmd.Flags().StringVar(&params.Name, "name", "", "account name (required)")
	createCmd.Flags().StringVar(&params.Type, "type", "", "ASSET, LIABILITY, INCOME, EXPENSE or EQUITY (required)")
	createCmd.Flags().StringVar(&params.Subtype, "subtype", "", "subtype such as BANK, MPESA or CREDIT_CARD (required)")
	createCmd.Flags().StringVar(&params.Currency, "currency", "", "ISO currency code (default DEFAULT_CURRENCY)")
	createCmd.Flags().StringVar(&params.AccountNumber, "number", "", "external account number")
	createCmd.Flags().StringVar(&params.Description, "description", "", "free text description")
	createCmd.Flags().StringVar(&opening, "opening-balance", "", "existing balance to book against opening balances")
	createCmd.Flags().StringVar(&openingDate, "opening-date", "", "date of the opening balance, YYYY-MM-DD (default today)")

	var listUser, listType string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List an owner's accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUUID("user", listUser)
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, svc *service.FinhubService) (interface{}, error) {
				return svc.GetAccounts(ctx, userID, service.AccountFilter{Type: listType})
			})
		},
	}
	listCmd.Flags().StringVar(&listUser, "user", "", "owner id (required)")
	_ = listCmd.MarkFlagRequired("user")
	listCmd.Flags().StringVar(&listType, "type", "", "only accounts of this type")

	cmd.AddCommand(createCmd, listCmd)
	return cmd
}

func (a *app) transferCommand() *cobra.Command {
	var user, from, to, amount, date string
	params := service.TransferParams{}

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move money between two of an owner's accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUUID("user", user)
			if err != nil {
				return err
			}
			if params.FromAccountID, err = parseUUID("from", from); err != nil {
				return err
			}
			if params.ToAccountID, err = parseUUID("to", to); err != nil {
				return err
			}
			if params.Amount, err = parseDecimal("amount", amount); err != nil {
				return err
			}
			if params.Date, err = parseDate("date", date); err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, svc *service.FinhubService) (interface{}, error) {
				return svc.Transfer(ctx, userID, params)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "owner id (required)")
	cmd.Flags().StringVar(&from, "from", "", "source account id (required)")
	cmd.Flags().StringVar(&to, "to", "", "destination account id (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "amount to move (required)")
	for _, name := range []string{"user", "from", "to", "amount"} {
		_ = cmd.MarkFlagRequired(name)
	}
	cmd.Flags().StringVar(&date, "date", "", "transaction date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&params.Description, "description", "Transfer", "description")
	cmd.Flags().StringVar(&params.Notes, "notes", "", "notes")
	return cmd
}

func (a *app) balanceCommand() *cobra.Command {
	var user, account string

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the balance of one account from its posted entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUUID("user", user)
			if err != nil {
				return err
			}
			accountID, err := parseUUID("account", account)
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, svc *service.FinhubService) (interface{}, error) {
				return svc.GetAccountBalance(ctx, userID, accountID)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "owner id (required)")
	cmd.Flags().StringVar(&account, "account", "", "account id (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func (a *app) summaryCommand() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show net worth and the balance of every active balance sheet account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUUID("user", user)
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, svc *service.FinhubService) (interface{}, error) {
				return svc.GetAccountSummary(ctx, userID)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "owner id (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func (a *app) voidCommand() *cobra.Command {
	var user, transaction, reason string

	cmd := &cobra.Command{
		Use:   "void",
		Short: "Void a posted transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUUID("user", user)
			if err != nil {
				return err
			}
			transactionID, err := parseUUID("tx", transaction)
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, svc *service.FinhubService) (interface{}, error) {
				return svc.VoidTransaction(ctx, userID, transactionID, reason)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "owner id (required)")
	cmd.Flags().StringVar(&transaction, "tx", "", "transaction id (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "why the transaction is voided (required)")
	for _, name := range []string{"user", "tx", "reason"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
