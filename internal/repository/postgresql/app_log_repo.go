package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"
)

type pgApplicationLogRepository struct {
	db *sql.DB
}

func NewPgApplicationLogRepository(db *sql.DB) repository.ApplicationLogRepository {
	return &pgApplicationLogRepository{db: db}
}

func (r *pgApplicationLogRepository) Create(ctx context.Context, entry *domain.ApplicationLog) error {
	query := `INSERT INTO application_logs (level, component, message, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, entry.Level, entry.Component, entry.Message, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("ApplicationLogRepository.Create: %w", err)
	}
	return nil
}

func (r *pgApplicationLogRepository) Find(ctx context.Context, filter domain.LogFilterDTO) ([]domain.ApplicationLog, error) {
	var conditions []string
	var args []any

	if filter.Level != nil {
		args = append(args, *filter.Level)
		conditions = append(conditions, `level = $`+strconv.Itoa(len(args)))
	}
	if filter.Component != nil {
		args = append(args, *filter.Component)
		conditions = append(conditions, `component = $`+strconv.Itoa(len(args)))
	}

	query := `SELECT id, level, component, message, created_at FROM application_logs`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	args = append(args, limit)
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ApplicationLogRepository.Find: %w", err)
	}
	defer rows.Close()

	var entries []domain.ApplicationLog
	for rows.Next() {
		var e domain.ApplicationLog
		if err := rows.Scan(&e.ID, &e.Level, &e.Component, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ApplicationLogRepository.Find (scanning row): %w", err)
		}
		e.CreatedAt = e.CreatedAt.In(time.UTC)
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ApplicationLogRepository.Find (rows error): %w", err)
	}
	return entries, nil
}

func (r *pgApplicationLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM application_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("ApplicationLogRepository.DeleteOlderThan: %w", err)
	}
	return result.RowsAffected()
}
