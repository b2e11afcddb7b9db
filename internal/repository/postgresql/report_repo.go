package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"
)

type pgReportTemplateRepository struct {
	db *sql.DB
}

func NewPgReportTemplateRepository(db *sql.DB) repository.ReportTemplateRepository {
	return &pgReportTemplateRepository{db: db}
}

const templateColumns = `id, name, columns, schedule_hour, recipients, enabled, last_run_at, created_at, updated_at`

func scanTemplate(row interface{ Scan(...any) error }) (*domain.ReportTemplate, error) {
	t := &domain.ReportTemplate{}
	var columns string
	err := row.Scan(&t.ID, &t.Name, &columns, &t.ScheduleHour, &t.Recipients, &t.Enabled,
		&t.LastRunAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if columns != "" {
		t.Columns = strings.Split(columns, ",")
	}
	t.CreatedAt = t.CreatedAt.In(time.UTC)
	t.UpdatedAt = t.UpdatedAt.In(time.UTC)
	return t, nil
}

func (r *pgReportTemplateRepository) Create(ctx context.Context, template *domain.ReportTemplate) (*domain.ReportTemplate, error) {
	query := `INSERT INTO report_templates (name, columns, schedule_hour, recipients, enabled)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, template.Name, strings.Join(template.Columns, ","),
		template.ScheduleHour, template.Recipients, template.Enabled).
		Scan(&template.ID, &template.CreatedAt, &template.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: report template '%s' already exists", repository.ErrDuplicateEntry, template.Name)
		}
		return nil, fmt.Errorf("ReportTemplateRepository.Create: %w", err)
	}
	return template, nil
}

func (r *pgReportTemplateRepository) FindByID(ctx context.Context, id int) (*domain.ReportTemplate, error) {
	template, err := scanTemplate(r.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM report_templates WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ReportTemplateRepository.FindByID: %w", err)
	}
	return template, nil
}

func (r *pgReportTemplateRepository) findMany(ctx context.Context, query string) ([]domain.ReportTemplate, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []domain.ReportTemplate
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *template)
	}
	return templates, rows.Err()
}

func (r *pgReportTemplateRepository) FindAll(ctx context.Context) ([]domain.ReportTemplate, error) {
	templates, err := r.findMany(ctx, `SELECT `+templateColumns+` FROM report_templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("ReportTemplateRepository.FindAll: %w", err)
	}
	return templates, nil
}

func (r *pgReportTemplateRepository) FindScheduled(ctx context.Context) ([]domain.ReportTemplate, error) {
	templates, err := r.findMany(ctx,
		`SELECT `+templateColumns+` FROM report_templates WHERE enabled AND schedule_hour IS NOT NULL ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("ReportTemplateRepository.FindScheduled: %w", err)
	}
	return templates, nil
}

func (r *pgReportTemplateRepository) Update(ctx context.Context, template *domain.ReportTemplate) (*domain.ReportTemplate, error) {
	query := `UPDATE report_templates SET name = $1, columns = $2, schedule_hour = $3, recipients = $4,
	          enabled = $5, updated_at = CURRENT_TIMESTAMP WHERE id = $6 RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, template.Name, strings.Join(template.Columns, ","),
		template.ScheduleHour, template.Recipients, template.Enabled, template.ID).Scan(&template.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: report template '%s' already exists", repository.ErrDuplicateEntry, template.Name)
		}
		return nil, fmt.Errorf("ReportTemplateRepository.Update: %w", err)
	}
	return template, nil
}

func (r *pgReportTemplateRepository) MarkRun(ctx context.Context, id int, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE report_templates SET last_run_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("ReportTemplateRepository.MarkRun: %w", err)
	}
	return nil
}

func (r *pgReportTemplateRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM report_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ReportTemplateRepository.Delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ReportTemplateRepository.Delete (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
