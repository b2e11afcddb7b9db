package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"time"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"gopkg.in/guregu/null.v4"
)

var ErrUnknownColumn = errors.New("unknown report column")
var ErrNoRecipients = errors.New("report template has no recipients")

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ReportService generates column-selectable booking exports, on demand or
// on a daily schedule, and mails scheduled runs to the template recipients.
type ReportService struct {
	templateRepo repository.ReportTemplateRepository
	bookingRepo  repository.BookingRepository
	emailService *EmailService
	logger       zerolog.Logger
}

func NewReportService(
	templateRepo repository.ReportTemplateRepository,
	bookingRepo repository.BookingRepository,
	emailService *EmailService,
	logger zerolog.Logger,
) *ReportService {
	return &ReportService{
		templateRepo: templateRepo,
		bookingRepo:  bookingRepo,
		emailService: emailService,
		logger:       logger.With().Str("component", "reports").Logger(),
	}
}

// --- Template administration ---

func (s *ReportService) ListTemplates(ctx context.Context) ([]domain.ReportTemplate, error) {
	return s.templateRepo.FindAll(ctx)
}

func (s *ReportService) GetTemplate(ctx context.Context, id int) (*domain.ReportTemplate, error) {
	return s.templateRepo.FindByID(ctx, id)
}

func (s *ReportService) CreateTemplate(ctx context.Context, dto domain.ReportTemplateDTO) (*domain.ReportTemplate, error) {
	if err := validateColumns(dto.Columns); err != nil {
		return nil, err
	}
	template := &domain.ReportTemplate{
		Name:       dto.Name,
		Columns:    dto.Columns,
		Recipients: dto.Recipients,
		Enabled:    true,
	}
	if dto.ScheduleHour != nil {
		template.ScheduleHour = null.IntFrom(int64(*dto.ScheduleHour))
	}
	if dto.Enabled != nil {
		template.Enabled = *dto.Enabled
	}
	return s.templateRepo.Create(ctx, template)
}

func (s *ReportService) UpdateTemplate(ctx context.Context, id int, dto domain.ReportTemplateDTO) (*domain.ReportTemplate, error) {
	if err := validateColumns(dto.Columns); err != nil {
		return nil, err
	}
	template, err := s.templateRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	template.Name = dto.Name
	template.Columns = dto.Columns
	template.Recipients = dto.Recipients
	template.ScheduleHour = null.Int{}
	if dto.ScheduleHour != nil {
		template.ScheduleHour = null.IntFrom(int64(*dto.ScheduleHour))
	}
	if dto.Enabled != nil {
		template.Enabled = *dto.Enabled
	}
	return s.templateRepo.Update(ctx, template)
}

func (s *ReportService) DeleteTemplate(ctx context.Context, id int) error {
	return s.templateRepo.Delete(ctx, id)
}

func validateColumns(columns []string) error {
	for _, c := range columns {
		if !domain.IsReportColumn(c) {
			return fmt.Errorf("%w: %s", ErrUnknownColumn, c)
		}
	}
	return nil
}

// --- Generation ---

// Generate renders the template against the booking data in the requested
// format and returns the file content plus a filename.
func (s *ReportService) Generate(ctx context.Context, id int, format string, filter domain.BookingFilterDTO) ([]byte, string, error) {
	template, err := s.templateRepo.FindByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	rows, err := s.bookingRepo.ExportRows(ctx, filter)
	if err != nil {
		return nil, "", err
	}

	var content []byte
	switch format {
	case FormatXLSX:
		content, err = renderXLSX(template.Columns, rows)
	case FormatCSV, "":
		format = FormatCSV
		content, err = renderCSV(template.Columns, rows)
	default:
		return nil, "", fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("%s-%s.%s",
		strings.ReplaceAll(strings.ToLower(template.Name), " ", "-"),
		time.Now().UTC().Format("20060102"), format)
	return content, filename, nil
}

// RunScheduled generates the export and emails it to the recipients.
// Called by the admin run endpoint and the scheduler.
func (s *ReportService) RunScheduled(ctx context.Context, template *domain.ReportTemplate) error {
	recipients := splitRecipients(template.Recipients)
	if len(recipients) == 0 {
		return ErrNoRecipients
	}

	// Scheduled reports cover the previous 24 hours of bookings.
	now := time.Now().UTC()
	from := now.Add(-24 * time.Hour)
	content, filename, err := s.Generate(ctx, template.ID, FormatCSV, domain.BookingFilterDTO{From: &from, To: &now})
	if err != nil {
		return err
	}

	err = s.emailService.Send(ctx, EmailMessage{
		To:             recipients,
		Subject:        fmt.Sprintf("Scheduled report: %s", template.Name),
		Body:           fmt.Sprintf("Attached is the scheduled booking report %q generated at %s.", template.Name, now.Format(time.RFC3339)),
		AttachmentName: filename,
		Attachment:     content,
	})
	if err != nil {
		return err
	}

	if err := s.templateRepo.MarkRun(ctx, template.ID, now); err != nil {
		return err
	}
	s.logger.Info().Str("template", template.Name).Int("recipients", len(recipients)).Msg("scheduled report delivered")
	return nil
}

// DueTemplates returns scheduled templates that should fire: the current
// hour matches and they have not run yet today.
func (s *ReportService) DueTemplates(ctx context.Context, now time.Time) ([]domain.ReportTemplate, error) {
	templates, err := s.templateRepo.FindScheduled(ctx)
	if err != nil {
		return nil, err
	}
	var due []domain.ReportTemplate
	for _, t := range templates {
		if IsReportDue(&t, now) {
			due = append(due, t)
		}
	}
	return due, nil
}

// IsReportDue reports whether a template should run at the given instant.
func IsReportDue(t *domain.ReportTemplate, now time.Time) bool {
	if !t.Enabled || !t.ScheduleHour.Valid {
		return false
	}
	if now.UTC().Hour() != int(t.ScheduleHour.Int64) {
		return false
	}
	if t.LastRunAt.Valid {
		last := t.LastRunAt.Time.UTC()
		nowDay := now.UTC().Truncate(24 * time.Hour)
		if !last.Before(nowDay) {
			return false // already ran today
		}
	}
	return true
}

func splitRecipients(recipients string) []string {
	var out []string
	for _, r := range strings.Split(recipients, ",") {
		r = strings.TrimSpace(r)
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

func renderCSV(columns []string, rows []domain.ReportRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("writing CSV header: %w", err)
	}
	record := make([]string, len(columns))
	for i := range rows {
		for j, col := range columns {
			record[j] = rows[i].Value(col)
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("writing CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func renderXLSX(columns []string, rows []domain.ReportRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Bookings"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("writing XLSX header: %w", err)
	}
	for i := range rows {
		record := make([]any, len(columns))
		for j, col := range columns {
			record[j] = rows[i].Value(col)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &record); err != nil {
			return nil, fmt.Errorf("writing XLSX row: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("encoding XLSX: %w", err)
	}
	return buf.Bytes(), nil
}
