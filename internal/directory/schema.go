package directory

import (
	"context"
	"embed"

	"github.com/jmoiron/sqlx"

	"github.com/nao1215/pushrelay/pkg/migration"
)

//go:embed migrations
var migrationsFS embed.FS

// initSchema はマイグレーションを実行してディレクトリのスキーマを適用する。
func initSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := migration.Run(ctx, db.DB, migrationsFS, "migrations")
	return err
}
