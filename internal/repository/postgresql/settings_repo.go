package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"
)

type pgSettingsRepository struct {
	db *sql.DB
}

func NewPgSettingsRepository(db *sql.DB) repository.SettingsRepository {
	return &pgSettingsRepository{db: db}
}

func (r *pgSettingsRepository) GetEmailSettings(ctx context.Context) (*domain.EmailSettings, error) {
	s := &domain.EmailSettings{}
	query := `SELECT id, smtp_host, smtp_port, username, password, from_address, from_name, use_tls, enabled, updated_at
	          FROM email_settings WHERE id = 1`
	err := r.db.QueryRowContext(ctx, query).Scan(&s.ID, &s.SMTPHost, &s.SMTPPort, &s.Username, &s.Password,
		&s.FromAddress, &s.FromName, &s.UseTLS, &s.Enabled, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("SettingsRepository.GetEmailSettings: %w", err)
	}
	s.UpdatedAt = s.UpdatedAt.In(time.UTC)
	return s, nil
}

func (r *pgSettingsRepository) UpdateEmailSettings(ctx context.Context, s *domain.EmailSettings) (*domain.EmailSettings, error) {
	query := `UPDATE email_settings SET smtp_host = $1, smtp_port = $2, username = $3, password = $4,
	          from_address = $5, from_name = $6, use_tls = $7, enabled = $8, updated_at = CURRENT_TIMESTAMP
	          WHERE id = 1 RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, s.SMTPHost, s.SMTPPort, s.Username, s.Password,
		s.FromAddress, s.FromName, s.UseTLS, s.Enabled).Scan(&s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("SettingsRepository.UpdateEmailSettings: %w", err)
	}
	s.UpdatedAt = s.UpdatedAt.In(time.UTC)
	return s, nil
}

func (r *pgSettingsRepository) GetBackupSettings(ctx context.Context) (*domain.BackupSettings, error) {
	s := &domain.BackupSettings{}
	query := `SELECT id, enabled, interval_hours, bucket, prefix, retention_count, last_run_at, updated_at
	          FROM backup_settings WHERE id = 1`
	err := r.db.QueryRowContext(ctx, query).Scan(&s.ID, &s.Enabled, &s.IntervalHours, &s.Bucket, &s.Prefix,
		&s.RetentionCount, &s.LastRunAt, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("SettingsRepository.GetBackupSettings: %w", err)
	}
	s.UpdatedAt = s.UpdatedAt.In(time.UTC)
	return s, nil
}

func (r *pgSettingsRepository) UpdateBackupSettings(ctx context.Context, s *domain.BackupSettings) (*domain.BackupSettings, error) {
	query := `UPDATE backup_settings SET enabled = $1, interval_hours = $2, bucket = $3, prefix = $4,
	          retention_count = $5, updated_at = CURRENT_TIMESTAMP WHERE id = 1 RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, s.Enabled, s.IntervalHours, s.Bucket, s.Prefix, s.RetentionCount).
		Scan(&s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("SettingsRepository.UpdateBackupSettings: %w", err)
	}
	s.UpdatedAt = s.UpdatedAt.In(time.UTC)
	return s, nil
}

func (r *pgSettingsRepository) MarkBackupRun(ctx context.Context, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE backup_settings SET last_run_at = $1 WHERE id = 1`, at)
	if err != nil {
		return fmt.Errorf("SettingsRepository.MarkBackupRun: %w", err)
	}
	return nil
}

func (r *pgSettingsRepository) GetStyling(ctx context.Context) ([]domain.AppConfig, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value, updated_at FROM app_config ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("SettingsRepository.GetStyling: %w", err)
	}
	defer rows.Close()

	var entries []domain.AppConfig
	for rows.Next() {
		var e domain.AppConfig
		if err := rows.Scan(&e.Key, &e.Value, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("SettingsRepository.GetStyling (scanning row): %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("SettingsRepository.GetStyling (rows error): %w", err)
	}
	return entries, nil
}

func (r *pgSettingsRepository) SetStyling(ctx context.Context, entries map[string]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SettingsRepository.SetStyling (begin): %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO app_config (key, value) VALUES ($1, $2)
	          ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = CURRENT_TIMESTAMP`
	for key, value := range entries {
		if _, err := tx.ExecContext(ctx, query, key, value); err != nil {
			return fmt.Errorf("SettingsRepository.SetStyling: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("SettingsRepository.SetStyling (commit): %w", err)
	}
	return nil
}
