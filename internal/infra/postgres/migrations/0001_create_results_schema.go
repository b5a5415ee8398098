package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed 0001_create_results_schema.sql
var createResultsSchemaSQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createResultsSchemaSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`
				DROP TABLE IF EXISTS audit_logs;
				DROP TABLE IF EXISTS certificates;
				DROP TABLE IF EXISTS roll_sequences;
				DROP TABLE IF EXISTS result_summaries;
				DROP TABLE IF EXISTS exam_marks;
				DROP TABLE IF EXISTS exam_sessions;
			`)
			return err
		},
	)
}
