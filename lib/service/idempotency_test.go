package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/getAlby/finhub.go/common"
	"github.com/getAlby/finhub.go/db/models"
	"github.com/getAlby/finhub.go/lib/logging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"
)

// transactionsDB holds just the tables insertTransaction touches.
func transactionsDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	for _, model := range []interface{}{(*models.Transaction)(nil), (*models.LedgerEntry)(nil)} {
		_, err := db.NewCreateTable().Model(model).Exec(ctx)
		require.NoError(t, err)
	}
	_, err = db.NewCreateIndex().
		Model((*models.Transaction)(nil)).
		Index("transactions_user_idempotency_key_idx").
		Unique().
		Column("user_id", "idempotency_key").
		Exec(ctx)
	require.NoError(t, err)
	return db
}

func draft(userID uuid.UUID, key string) *models.Transaction {
	return &models.Transaction{
		ID:              uuid.New(),
		UserID:          userID,
		Description:     "Rent",
		TransactionDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:          common.TransactionStatusDraft,
		IdempotencyKey:  key,
		CreatedAt:       time.Now().UTC(),
	}
}

func TestInsertTransactionReturnsTheConcurrentWinner(t *testing.T) {
	db := transactionsDB(t)
	svc := &FinhubService{DB: db, Logger: logging.Discard()}
	ctx := context.Background()
	userID := uuid.New()

	winner := draft(userID, "rent-2024-03")
	existing, err := svc.insertTransaction(ctx, db, winner)
	require.NoError(t, err)
	assert.Nil(t, existing)

	// the loser already missed the replay lookup and reaches the insert
	loser := draft(userID, "rent-2024-03")
	existing, err = svc.insertTransaction(ctx, db, loser)
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, winner.ID, existing.ID)

	count, err := db.NewSelect().Model((*models.Transaction)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInsertTransactionKeysAreScopedPerOwner(t *testing.T) {
	db := transactionsDB(t)
	svc := &FinhubService{DB: db, Logger: logging.Discard()}
	ctx := context.Background()

	for _, transaction := range []*models.Transaction{
		draft(uuid.New(), "rent-2024-03"),
		draft(uuid.New(), "rent-2024-03"),
		draft(uuid.New(), ""),
		draft(uuid.New(), ""),
	} {
		existing, err := svc.insertTransaction(ctx, db, transaction)
		require.NoError(t, err)
		assert.Nil(t, existing)
	}
}
