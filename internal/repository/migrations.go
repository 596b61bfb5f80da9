package repository

import (
	"context"
	"database/sql"
	"fmt"
)

type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		name:    "notices",
		sql:     noticesSchemaV1,
	},
	{
		version: 2,
		name:    "personal_access_tokens",
		sql:     personalAccessTokensSchemaV2,
	},
	{
		version: 3,
		name:    "notices_listing_indexes",
		sql:     noticesIndexesV3,
	},
}

const noticesSchemaV1 = `
CREATE TABLE IF NOT EXISTS notices (
	id             UUID PRIMARY KEY,
	user_id        BIGINT NULL,
	creditor_name  TEXT NOT NULL DEFAULT '',
	debtor_name    TEXT NOT NULL DEFAULT '',
	invoice_number TEXT NOT NULL DEFAULT '',
	amount         NUMERIC(18, 2) NOT NULL DEFAULT 0,
	currency       VARCHAR(8) NOT NULL DEFAULT 'EUR',
	file_key       TEXT NOT NULL,
	file_name      TEXT NOT NULL,
	pages          INTEGER NOT NULL,
	size           BIGINT NOT NULL,
	email_to       TEXT NULL,
	email_status   VARCHAR(16) NOT NULL DEFAULT 'skipped',
	email_error    TEXT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Tokens are normally issued by the main web application sharing this
// database; the table is created here so the service can run on its own.
const personalAccessTokensSchemaV2 = `
CREATE TABLE IF NOT EXISTS personal_access_tokens (
	id             BIGSERIAL PRIMARY KEY,
	tokenable_type TEXT NOT NULL,
	tokenable_id   BIGINT NOT NULL,
	name           TEXT NOT NULL DEFAULT '',
	token          VARCHAR(64) NOT NULL UNIQUE,
	abilities      TEXT NULL,
	last_used_at   TIMESTAMPTZ NULL,
	expires_at     TIMESTAMPTZ NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const noticesIndexesV3 = `
CREATE INDEX IF NOT EXISTS notices_user_created_idx ON notices (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS notices_email_status_idx ON notices (email_status);`

// ApplyMigrations brings the schema to the latest version. Already applied
// versions are skipped, so it is safe to run on every start.
func ApplyMigrations(ctx context.Context, database *sql.DB) error {
	if _, err := database.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_version (
	version     INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`); err != nil {
		return fmt.Errorf("ensure schema_version table: %w", err)
	}

	for _, m := range migrations {
		applied, err := migrationApplied(ctx, database, m.version)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if applied {
			continue
		}
		if err := applyMigration(ctx, database, m); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.version, m.name, err)
		}
	}

	return nil
}

// LatestVersion is the schema version ApplyMigrations converges to.
func LatestVersion() int {
	return migrations[len(migrations)-1].version
}

func migrationApplied(ctx context.Context, database *sql.DB, version int) (bool, error) {
	var count int
	if err := database.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM schema_version WHERE version = $1",
		version,
	).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func applyMigration(ctx context.Context, database *sql.DB, m migration) error {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_version (version, name) VALUES ($1, $2)",
		m.version, m.name,
	); err != nil {
		return err
	}

	return tx.Commit()
}
