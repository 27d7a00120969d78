package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/getAlby/finhub.go/common"
	"github.com/getAlby/finhub.go/db/models"
	"github.com/getAlby/finhub.go/lib/responses"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const SystemKeyOpeningBalances = "opening_balances"

var openingBalancesSpec = SystemAccountSpec{
	Key:         SystemKeyOpeningBalances,
	Name:        "Opening Balances",
	Type:        common.AccountTypeEquity,
	Subtype:     common.AccountSubtypeVirtual,
	Description: "Counterpart for opening balances",
}

// CreateUser registers an owner together with the equity account opening balances are booked against.
func (svc *FinhubService) CreateUser(ctx context.Context, login string) (user *models.User, err error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, responses.NewValidationErrors([]string{"login is required"})
	}

	user = &models.User{
		ID:        uuid.New(),
		Login:     login,
		CreatedAt: time.Now().UTC(),
	}

	// Wrapping this in a transaction in case something fails
	err = svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*models.User)(nil)).Where("login = ?", login).Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return responses.NewValidationError("login %q is already taken", login)
		}
		if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
			return err
		}
		_, err = svc.GetOrCreateSystemAccount(ctx, tx, user.ID, openingBalancesSpec)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (svc *FinhubService) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User

	err := svc.DB.NewSelect().Model(&user).Where("id = ?", userID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, responses.NewNotFoundError("user %s not found", userID)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (svc *FinhubService) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var user models.User

	err := svc.DB.NewSelect().Model(&user).Where("login = ?", login).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, responses.NewNotFoundError("user %q not found", login)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
