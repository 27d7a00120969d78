package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/getAlby/finhub.go/db/models"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type CreateEmployerParams struct {
	Name      string `json:"name" validate:"required,max=255"`
	PinNumber string `json:"pin_number,omitempty" validate:"max=20"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty" validate:"max=30"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	// nil means current
	IsCurrent *bool `json:"is_current,omitempty"`
}

// CreateEmployer stores an employer. A current employer replaces the owner's previous current one.
func (svc *FinhubService) CreateEmployer(ctx context.Context, userID uuid.UUID, params CreateEmployerParams) (*models.Employer, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}
	employer := &models.Employer{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      params.Name,
		PinNumber: params.PinNumber,
		Address:   params.Address,
		Phone:     params.Phone,
		Email:     params.Email,
		IsCurrent: params.IsCurrent == nil || *params.IsCurrent,
		CreatedAt: time.Now().UTC(),
	}
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if employer.IsCurrent {
			_, err := tx.NewUpdate().
				Model((*models.Employer)(nil)).
				Set("is_current = ?", false).
				Where("user_id = ?", userID).
				Where("is_current = ?", true).
				Exec(ctx)
			if err != nil {
				return err
			}
		}
		_, err := tx.NewInsert().Model(employer).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return employer, nil
}

func (svc *FinhubService) GetEmployers(ctx context.Context, userID uuid.UUID) ([]models.Employer, error) {
	employers := []models.Employer{}
	err := svc.DB.NewSelect().
		Model(&employers).
		Where("user_id = ?", userID).
		Order("is_current DESC", "name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return employers, nil
}
