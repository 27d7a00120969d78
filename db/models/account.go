package models

import (
	"context"
	"time"

	"github.com/getAlby/finhub.go/common"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account : Account Model
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID            uuid.UUID              `json:"id" bun:"id,pk,type:uuid"`
	UserID        uuid.UUID              `json:"user_id" bun:"user_id,type:uuid,notnull"`
	User          *User                  `json:"-" bun:"rel:belongs-to,join:user_id=id"`
	Name          string                 `json:"name" bun:",notnull"`
	Type          string                 `json:"type" bun:",notnull"`
	Subtype       string                 `json:"subtype" bun:",notnull"`
	Currency      string                 `json:"currency" bun:",notnull"`
	AccountNumber string                 `json:"account_number,omitempty" bun:",nullzero"`
	Description   string                 `json:"description,omitempty" bun:",nullzero"`
	IsActive      bool                   `json:"is_active" bun:",notnull"`
	SystemKey     string                 `json:"system_key,omitempty" bun:",nullzero"`
	Metadata      map[string]interface{} `json:"metadata,omitempty" bun:"type:jsonb"`
	CreatedAt     time.Time              `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt     bun.NullTime           `json:"updated_at"`
}

func (a *Account) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		a.UpdatedAt = bun.NullTime{Time: time.Now().UTC()}
	}
	return nil
}

// DebitNormal reports whether the account's balance grows with debits.
func (a *Account) DebitNormal() bool {
	return common.DebitNormal(a.Type)
}

var _ bun.BeforeAppendModelHook = (*Account)(nil)
