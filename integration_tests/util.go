package integration_tests

import (
	"context"
	"fmt"
	"time"

	"github.com/getAlby/finhub.go/common"
	"github.com/getAlby/finhub.go/db"
	"github.com/getAlby/finhub.go/db/migrations"
	"github.com/getAlby/finhub.go/db/models"
	"github.com/getAlby/finhub.go/lib/logging"
	"github.com/getAlby/finhub.go/lib/service"
	"github.com/getAlby/finhub.go/rabbitmq"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/uptrace/bun/migrate"
)

// FinhubTestServiceInit opens a private in-memory SQLite database, runs every migration
// (including the 2024 rate seed) and wires a service on top of it.
func FinhubTestServiceInit(rabbitmqClient rabbitmq.Client) (svc *service.FinhubService, err error) {
	dbUri := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	c := &service.Config{
		DatabaseUri:             dbUri,
		DatabaseMaxConns:        1,
		DatabaseMaxIdleConns:    1,
		DatabaseConnMaxLifetime: 10,
		DatabaseTimeout:         5,
		DefaultCurrency:         common.DefaultCurrency,
		SalaryAccountName:       "Salary Income",
	}

	dbConn, err := db.Open(c)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx := context.Background()
	migrator := migrate.NewMigrator(dbConn, migrations.Migrations)
	err = migrator.Init(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init migrations: %w", err)
	}
	_, err = migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	svc = &service.FinhubService{
		Config:         c,
		DB:             dbConn,
		Logger:         logging.Discard(),
		RabbitMQClient: rabbitmqClient,
	}
	return svc, nil
}

type TestSuite struct {
	suite.Suite
	svc *service.FinhubService
}

func (suite *TestSuite) ctx() context.Context {
	return context.Background()
}

func (suite *TestSuite) createUser(login string) *models.User {
	user, err := suite.svc.CreateUser(suite.ctx(), login)
	suite.Require().NoError(err)
	return user
}

func (suite *TestSuite) createAccount(userID uuid.UUID, name, accountType, subtype string) *models.Account {
	account, err := suite.svc.CreateAccount(suite.ctx(), userID, service.CreateAccountParams{
		Name:    name,
		Type:    accountType,
		Subtype: subtype,
	})
	suite.Require().NoError(err)
	return account
}

func (suite *TestSuite) balance(accountID uuid.UUID) decimal.Decimal {
	balance, err := suite.svc.ComputeAccountBalance(suite.ctx(), accountID)
	suite.Require().NoError(err)
	return balance
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func entry(accountID uuid.UUID, entryType, amount string) service.EntryInput {
	return service.EntryInput{AccountID: accountID, EntryType: entryType, Amount: dec(amount)}
}
