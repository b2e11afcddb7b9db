package service

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"parking_reserve/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"
)

func newReportFixture(t *testing.T) (*ReportService, *fakeTemplateRepo, *fakeBookingRepo) {
	t.Helper()
	templateRepo := newFakeTemplateRepo()
	bookingRepo := newFakeBookingRepo()
	emailService := NewEmailService(newFakeSettingsRepo(), zerolog.Nop())
	svc := NewReportService(templateRepo, bookingRepo, emailService, zerolog.Nop())
	return svc, templateRepo, bookingRepo
}

func TestCreateTemplateRejectsUnknownColumn(t *testing.T) {
	svc, _, _ := newReportFixture(t)

	_, err := svc.CreateTemplate(context.Background(), domain.ReportTemplateDTO{
		Name:    "bad",
		Columns: []string{"reference", "license_plate"},
	})
	assert.ErrorIs(t, err, ErrUnknownColumn)

	template, err := svc.CreateTemplate(context.Background(), domain.ReportTemplateDTO{
		Name:    "good",
		Columns: []string{"reference", "user_email", "start_time"},
	})
	require.NoError(t, err)
	assert.True(t, template.Enabled)
	assert.False(t, template.ScheduleHour.Valid)
}

func TestGenerateCSV(t *testing.T) {
	svc, _, bookingRepo := newReportFixture(t)

	start := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	bookingRepo.rows = []domain.ReportRow{
		{
			Reference:   "ref-1",
			LotName:     "North Lot",
			SpaceNumber: "A1",
			UserEmail:   "alice@example.com",
			StartTime:   start,
			EndTime:     start.Add(2 * time.Hour),
			Status:      "active",
		},
		{
			Reference:   "ref-2",
			LotName:     "North Lot",
			SpaceNumber: "A2",
			UserEmail:   "bob@example.com",
			StartTime:   start.Add(time.Hour),
			EndTime:     start.Add(3 * time.Hour),
			Status:      "cancelled",
		},
	}

	template, err := svc.CreateTemplate(context.Background(), domain.ReportTemplateDTO{
		Name:    "Daily Bookings",
		Columns: []string{"reference", "space_number", "user_email", "status"},
	})
	require.NoError(t, err)

	content, filename, err := svc.Generate(context.Background(), template.ID, FormatCSV, domain.BookingFilterDTO{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filename, "daily-bookings-"))
	assert.True(t, strings.HasSuffix(filename, ".csv"))

	records, err := csv.NewReader(strings.NewReader(string(content))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"reference", "space_number", "user_email", "status"}, records[0])
	assert.Equal(t, []string{"ref-1", "A1", "alice@example.com", "active"}, records[1])
	assert.Equal(t, []string{"ref-2", "A2", "bob@example.com", "cancelled"}, records[2])
}

func TestGenerateXLSX(t *testing.T) {
	svc, _, bookingRepo := newReportFixture(t)
	bookingRepo.rows = []domain.ReportRow{{Reference: "ref-1", Status: "active"}}

	template, err := svc.CreateTemplate(context.Background(), domain.ReportTemplateDTO{
		Name:    "Spreadsheet",
		Columns: []string{"reference", "status"},
	})
	require.NoError(t, err)

	content, filename, err := svc.Generate(context.Background(), template.ID, FormatXLSX, domain.BookingFilterDTO{})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(filename, ".xlsx"))
	assert.NotEmpty(t, content)

	_, _, err = svc.Generate(context.Background(), template.ID, "pdf", domain.BookingFilterDTO{})
	assert.Error(t, err)
}

func TestIsReportDue(t *testing.T) {
	now := time.Date(2026, 4, 2, 7, 30, 0, 0, time.UTC)

	due := &domain.ReportTemplate{Enabled: true, ScheduleHour: null.IntFrom(7)}
	assert.True(t, IsReportDue(due, now))

	wrongHour := &domain.ReportTemplate{Enabled: true, ScheduleHour: null.IntFrom(8)}
	assert.False(t, IsReportDue(wrongHour, now))

	disabled := &domain.ReportTemplate{Enabled: false, ScheduleHour: null.IntFrom(7)}
	assert.False(t, IsReportDue(disabled, now))

	manualOnly := &domain.ReportTemplate{Enabled: true}
	assert.False(t, IsReportDue(manualOnly, now))

	ranToday := &domain.ReportTemplate{
		Enabled:      true,
		ScheduleHour: null.IntFrom(7),
		LastRunAt:    null.TimeFrom(now.Add(-10 * time.Minute)),
	}
	assert.False(t, IsReportDue(ranToday, now))

	ranYesterday := &domain.ReportTemplate{
		Enabled:      true,
		ScheduleHour: null.IntFrom(7),
		LastRunAt:    null.TimeFrom(now.Add(-24 * time.Hour)),
	}
	assert.True(t, IsReportDue(ranYesterday, now))
}

func TestRunScheduledRequiresRecipients(t *testing.T) {
	svc, templateRepo, _ := newReportFixture(t)

	template, err := templateRepo.Create(context.Background(), &domain.ReportTemplate{
		Name:    "No Recipients",
		Columns: []string{"reference"},
		Enabled: true,
	})
	require.NoError(t, err)

	err = svc.RunScheduled(context.Background(), template)
	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestSplitRecipients(t *testing.T) {
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, splitRecipients("a@x.com, b@x.com"))
	assert.Equal(t, []string{"a@x.com"}, splitRecipients("a@x.com,"))
	assert.Nil(t, splitRecipients(""))
	assert.Nil(t, splitRecipients(" , "))
}
