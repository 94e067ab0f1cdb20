package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; each index is that schema version
// minus one. Append only.
var migrations = [][]string{
	{
		`CREATE TABLE snapshots (
			provider   TEXT    NOT NULL,
			scope      TEXT    NOT NULL,
			emotes     TEXT    NOT NULL DEFAULT '[]',
			fetched_at INTEGER NOT NULL,
			PRIMARY KEY (provider, scope)
		)`,
		`CREATE INDEX idx_snapshots_fetched ON snapshots(fetched_at)`,
	},
}

// migrate applies the migrations the database has not seen yet, each in
// its own transaction. The version lives in PRAGMA user_version.
func migrate(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("sqlite: schema version %d is newer than this build (%d)", version, len(migrations))
	}

	for v := version; v < len(migrations); v++ {
		if err := applyMigration(ctx, db, v+1, migrations[v]); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, version int, stmts []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: migration %d: %w", version, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migration %d: %w", version, err)
		}
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("sqlite: migration %d: %w", version, err)
	}
	return tx.Commit()
}
