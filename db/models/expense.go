package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Category : a spending or income heading. System categories have no owner and are shared.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	ID          uuid.UUID     `json:"id" bun:"id,pk,type:uuid"`
	UserID      uuid.NullUUID `json:"user_id" bun:"user_id,type:uuid"`
	Name        string        `json:"name" bun:",notnull"`
	Description string        `json:"description,omitempty" bun:",nullzero"`
	Type        string        `json:"type" bun:",notnull"`
	Icon        string        `json:"icon,omitempty" bun:",nullzero"`
	Color       string        `json:"color,omitempty" bun:",nullzero"`
	IsSystem    bool          `json:"is_system" bun:",notnull"`
	IsActive    bool          `json:"is_active" bun:",notnull"`
	CreatedAt   time.Time     `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}

// Expense : one spending event, optionally posted to the ledger against the paying account
type Expense struct {
	bun.BaseModel `bun:"table:expenses,alias:ex"`

	ID              uuid.UUID       `json:"id" bun:"id,pk,type:uuid"`
	UserID          uuid.UUID       `json:"user_id" bun:"user_id,type:uuid,notnull"`
	CategoryID      uuid.UUID       `json:"category_id" bun:"category_id,type:uuid,notnull"`
	Category        *Category       `json:"category,omitempty" bun:"rel:belongs-to,join:category_id=id"`
	AccountID       uuid.NullUUID   `json:"account_id" bun:"account_id,type:uuid"`
	TransactionID   uuid.NullUUID   `json:"transaction_id" bun:"transaction_id,type:uuid"`
	Description     string          `json:"description" bun:",notnull"`
	Amount          decimal.Decimal `json:"amount" bun:"type:numeric(20,2),notnull"`
	Currency        string          `json:"currency" bun:",notnull"`
	ExpenseDate     time.Time       `json:"expense_date" bun:"type:date,notnull"`
	Merchant        string          `json:"merchant,omitempty" bun:",nullzero"`
	PaymentMethod   string          `json:"payment_method,omitempty" bun:",nullzero"`
	ReferenceNumber string          `json:"reference_number,omitempty" bun:",nullzero"`
	Notes           string          `json:"notes,omitempty" bun:",nullzero"`
	Tags            []string        `json:"tags,omitempty" bun:"type:jsonb"`
	CreatedAt       time.Time       `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt       bun.NullTime    `json:"updated_at"`
}

func (e *Expense) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		e.UpdatedAt = bun.NullTime{Time: time.Now().UTC()}
	}
	return nil
}

var _ bun.BeforeAppendModelHook = (*Expense)(nil)
