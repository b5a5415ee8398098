package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed 0002_create_reference_tables.sql
var createReferenceTablesSQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createReferenceTablesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`
				DROP TABLE IF EXISTS academic_years;
				DROP TABLE IF EXISTS subjects;
				DROP TABLE IF EXISTS students;
				DROP TABLE IF EXISTS schools;
			`)
			return err
		},
	)
}
