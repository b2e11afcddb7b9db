package postgresql

import (
	"context"
	"database/sql"
	"fmt"

	"parking_reserve/internal/repository"
)

type migration struct {
	version string
	stmts   []string
}

var migrations = []migration{
	{
		version: "001_initial_schema",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id SERIAL PRIMARY KEY,
				email TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL DEFAULT '',
				display_name TEXT NOT NULL DEFAULT '',
				role TEXT NOT NULL DEFAULT 'user',
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				oidc_subject TEXT,
				oidc_provider_id INT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (oidc_provider_id, oidc_subject)
			)`,
			`CREATE TABLE IF NOT EXISTS parking_lots (
				id SERIAL PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				address TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS parking_spaces (
				id SERIAL PRIMARY KEY,
				lot_id INT NOT NULL REFERENCES parking_lots(id),
				space_number TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'available',
				pos_x DOUBLE PRECISION NOT NULL DEFAULT 0,
				pos_y DOUBLE PRECISION NOT NULL DEFAULT 0,
				width DOUBLE PRECISION NOT NULL DEFAULT 60,
				height DOUBLE PRECISION NOT NULL DEFAULT 30,
				rotation DOUBLE PRECISION NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (lot_id, space_number)
			)`,
			`CREATE TABLE IF NOT EXISTS bookings (
				id SERIAL PRIMARY KEY,
				reference UUID NOT NULL UNIQUE,
				space_id INT NOT NULL REFERENCES parking_spaces(id),
				user_id INT NOT NULL REFERENCES users(id),
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ NOT NULL,
				status TEXT NOT NULL DEFAULT 'active',
				notes TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				CHECK (start_time < end_time)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_bookings_space_interval
				ON bookings (space_id, start_time, end_time) WHERE status = 'active'`,
		},
	},
	{
		version: "002_oidc",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS oidc_providers (
				id SERIAL PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				issuer_url TEXT NOT NULL,
				client_id TEXT NOT NULL,
				client_secret TEXT NOT NULL DEFAULT '',
				scopes TEXT NOT NULL DEFAULT 'openid profile email',
				enabled BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS oidc_claim_mappings (
				id SERIAL PRIMARY KEY,
				provider_id INT NOT NULL REFERENCES oidc_providers(id) ON DELETE CASCADE,
				claim_name TEXT NOT NULL,
				user_field TEXT NOT NULL,
				default_value TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (provider_id, user_field)
			)`,
		},
	},
	{
		version: "003_admin_settings",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS email_settings (
				id INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
				smtp_host TEXT NOT NULL DEFAULT '',
				smtp_port INT NOT NULL DEFAULT 587,
				username TEXT NOT NULL DEFAULT '',
				password TEXT NOT NULL DEFAULT '',
				from_address TEXT NOT NULL DEFAULT '',
				from_name TEXT NOT NULL DEFAULT '',
				use_tls BOOLEAN NOT NULL DEFAULT TRUE,
				enabled BOOLEAN NOT NULL DEFAULT FALSE,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`INSERT INTO email_settings (id) VALUES (1) ON CONFLICT DO NOTHING`,
			`CREATE TABLE IF NOT EXISTS backup_settings (
				id INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
				enabled BOOLEAN NOT NULL DEFAULT FALSE,
				interval_hours INT NOT NULL DEFAULT 24,
				bucket TEXT NOT NULL DEFAULT '',
				prefix TEXT NOT NULL DEFAULT 'backups/',
				retention_count INT NOT NULL DEFAULT 7,
				last_run_at TIMESTAMPTZ,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`INSERT INTO backup_settings (id) VALUES (1) ON CONFLICT DO NOTHING`,
			`CREATE TABLE IF NOT EXISTS app_config (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL DEFAULT '',
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
	},
	{
		version: "004_logs_reports",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS application_logs (
				id BIGSERIAL PRIMARY KEY,
				level TEXT NOT NULL,
				component TEXT NOT NULL DEFAULT '',
				message TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_application_logs_created ON application_logs (created_at DESC)`,
			`CREATE TABLE IF NOT EXISTS report_templates (
				id SERIAL PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				columns TEXT NOT NULL,
				schedule_hour INT,
				recipients TEXT NOT NULL DEFAULT '',
				enabled BOOLEAN NOT NULL DEFAULT TRUE,
				last_run_at TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
	},
}

// Migrate applies pending schema migrations in order, recording each version
// in schema_migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	applied := map[string]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("reading applied migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return fmt.Errorf("scanning migration version: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", m.version, err)
		}
		for _, stmt := range m.stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("applying migration %s: %w", m.version, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", m.version, err)
		}
	}
	return nil
}

type pgMigrationRepository struct {
	db *sql.DB
}

func NewPgMigrationRepository(db *sql.DB) repository.MigrationRepository {
	return &pgMigrationRepository{db: db}
}

func (r *pgMigrationRepository) AppliedVersions(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("MigrationRepository.AppliedVersions: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("MigrationRepository.AppliedVersions (scanning row): %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("MigrationRepository.AppliedVersions (rows error): %w", err)
	}
	return versions, nil
}
