package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// LedgerEntry : one DEBIT or CREDIT leg of a transaction
type LedgerEntry struct {
	bun.BaseModel `bun:"table:ledger_entries,alias:le"`

	ID            uuid.UUID       `json:"id" bun:"id,pk,type:uuid"`
	TransactionID uuid.UUID       `json:"transaction_id" bun:"transaction_id,type:uuid,notnull"`
	AccountID     uuid.UUID       `json:"account_id" bun:"account_id,type:uuid,notnull"`
	LineNo        int             `json:"line_no" bun:",notnull"`
	EntryType     string          `json:"entry_type" bun:",notnull"`
	Amount        decimal.Decimal `json:"amount" bun:"type:numeric(20,4),notnull"`
	Currency      string          `json:"currency" bun:",notnull"`
	Description   string          `json:"description,omitempty" bun:",nullzero"`
	CreatedAt     time.Time       `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}
