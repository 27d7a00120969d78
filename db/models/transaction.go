package models

import (
	"context"
	"time"

	"github.com/getAlby/finhub.go/common"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Transaction : a set of ledger entries posted as one unit
type Transaction struct {
	bun.BaseModel `bun:"table:transactions,alias:t"`

	ID              uuid.UUID                `json:"id" bun:"id,pk,type:uuid"`
	UserID          uuid.UUID                `json:"user_id" bun:"user_id,type:uuid,notnull"`
	User            *User                    `json:"-" bun:"rel:belongs-to,join:user_id=id"`
	Description     string                   `json:"description" bun:",notnull"`
	Notes           string                   `json:"notes,omitempty" bun:",nullzero"`
	TransactionDate time.Time                `json:"transaction_date" bun:"type:date,notnull"`
	Status          common.TransactionStatus `json:"status" bun:",notnull"`
	IdempotencyKey  string                   `json:"idempotency_key,omitempty" bun:",nullzero"`
	PostedAt        bun.NullTime             `json:"posted_at"`
	VoidedAt        bun.NullTime             `json:"voided_at"`
	VoidReason      string                   `json:"void_reason,omitempty" bun:",nullzero"`
	Metadata        map[string]interface{}   `json:"metadata,omitempty" bun:"type:jsonb"`
	CreatedAt       time.Time                `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt       bun.NullTime             `json:"updated_at"`

	Entries []LedgerEntry `json:"entries,omitempty" bun:"-"`
}

func (t *Transaction) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		t.UpdatedAt = bun.NullTime{Time: time.Now().UTC()}
	}
	return nil
}

var _ bun.BeforeAppendModelHook = (*Transaction)(nil)
