package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/getAlby/finhub.go/db"
	"github.com/getAlby/finhub.go/db/migrations"
	"github.com/getAlby/finhub.go/lib/logging"
	"github.com/getAlby/finhub.go/lib/responses"
	"github.com/getAlby/finhub.go/lib/service"
	"github.com/getAlby/finhub.go/rabbitmq"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// app carries the service across one command invocation. It is built lazily so
// that commands like --help never touch the database.
type app struct {
	config  *service.Config
	svc     *service.FinhubService
	closers []func()
}

func main() {
	a := &app{}
	rootCmd := a.rootCommand()
	err := rootCmd.Execute()
	a.close()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

func (a *app) rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "finhub",
		Short: "Personal finance ledger with Kenyan payroll deductions",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		a.migrateCommand(),
		a.ratesCommand(),
		a.payeCommand(),
		a.userCommand(),
		a.accountCommand(),
		a.transferCommand(),
		a.balanceCommand(),
		a.summaryCommand(),
		a.voidCommand(),
		a.employerCommand(),
		a.incomeCommand(),
		a.categoryCommand(),
		a.expenseCommand(),
		a.dashboardCommand(),
	)
	return rootCmd
}

func (a *app) loadConfig() (*service.Config, error) {
	if a.config != nil {
		return a.config, nil
	}
	c := &service.Config{}
	// Load configruation from environment variables
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load .env file")
	}
	if err = envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}
	a.config = c
	return c, nil
}

// service opens the database and the optional broker connection on first use.
func (a *app) service(ctx context.Context) (*service.FinhubService, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	c, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.Logger(c.LogFilePath)

	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{
			Dsn:              c.SentryDSN,
			EnableTracing:    c.SentryTracesSampleRate > 0,
			TracesSampleRate: c.SentryTracesSampleRate,
		}); err != nil {
			logger.Errorf("sentry init error: %v", err)
		} else {
			a.closers = append(a.closers, func() { sentry.Flush(2 * time.Second) })
		}
	}

	if c.DatadogAgentUrl != "" {
		tracer.Start(tracer.WithAgentAddr(c.DatadogAgentUrl), tracer.WithService("finhub.go"))
		a.closers = append(a.closers, tracer.Stop)
	}

	dbConn, err := db.Open(c)
	if err != nil {
		return nil, fmt.Errorf("error initializing db connection: %w", err)
	}
	a.closers = append(a.closers, func() { dbConn.Close() })

	if c.MigrateOnStart {
		if err = runMigrations(ctx, dbConn); err != nil {
			return nil, err
		}
	}

	// If no RABBITMQ_URI was provided we will not attempt to create a client
	// and no ledger events are published.
	var rabbitmqClient rabbitmq.Client
	if c.RabbitMQUri != "" {
		amqpClient, err := rabbitmq.DialAMQP(c.RabbitMQUri, logger)
		if err != nil {
			return nil, err
		}
		rabbitmqClient, err = rabbitmq.NewClient(amqpClient,
			rabbitmq.WithLogger(logger),
			rabbitmq.WithLedgerExchange(c.RabbitMQLedgerExchange),
		)
		if err != nil {
			amqpClient.Close()
			return nil, err
		}
		// closes the underlying connection as well
		a.closers = append(a.closers, func() { rabbitmqClient.Close() })
	}

	a.svc = &service.FinhubService{
		Config:         c,
		DB:             dbConn,
		Logger:         logger,
		RabbitMQClient: rabbitmqClient,
	}
	return a.svc, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// run executes fn with a configured service inside a span and the database timeout.
func (a *app) run(cmd *cobra.Command, fn func(ctx context.Context, svc *service.FinhubService) (interface{}, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	if svc.Config.DatabaseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(svc.Config.DatabaseTimeout)*time.Second)
		defer cancel()
	}

	span, ctx := tracer.StartSpanFromContext(ctx, "finhub.command", tracer.ResourceName(cmd.CommandPath()))
	result, err := fn(ctx, svc)
	span.Finish(tracer.WithError(err))
	if err != nil {
		if responses.IsErrAllowedForSentry(err) {
			sentry.CaptureException(err)
		}
		svc.Logger.Errorf("%s failed: %v", cmd.CommandPath(), err)
		return err
	}
	if result == nil {
		return nil
	}
	return printJSON(cmd, result)
}

func runMigrations(ctx context.Context, dbConn *bun.DB) error {
	migrator := migrate.NewMigrator(dbConn, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("error initializing db migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("error migrating database: %w", err)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printError(err error) {
	response := responses.ToErrorResponse(err)
	if response.Code == responses.GeneralServerError.Code {
		response.Message = err.Error()
	}
	enc := json.NewEncoder(os.Stderr)
	enc.SetIndent("", "  ")
	_ = enc.Encode(response)
}
