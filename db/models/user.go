package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User : owner of accounts, transactions and payroll records.
// Identity is issued elsewhere; this row only anchors foreign keys.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        uuid.UUID `json:"id" bun:"id,pk,type:uuid"`
	Login     string    `json:"login" bun:",unique,notnull"`
	CreatedAt time.Time `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}
