package migrations

import (
	"context"
	_ "embed"

	"github.com/getAlby/finhub.go/lib/rateschedule"
	"github.com/uptrace/bun"
)

//go:embed rates/kenya_2024.yaml
var kenya2024 []byte

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		schedule, err := rateschedule.ParseBytes(kenya2024)
		if err != nil {
			return err
		}
		rows, err := schedule.Rows()
		if err != nil {
			return err
		}
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return rateschedule.Import(ctx, tx, rows)
		})
	}, nil)
}
