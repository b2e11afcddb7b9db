package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// Exportable booking columns. Column order in a template is the order in
// the generated file.
var ReportColumns = []string{
	"reference", "lot_name", "space_number", "user_email", "user_name",
	"start_time", "end_time", "status", "notes", "created_at",
}

func IsReportColumn(name string) bool {
	for _, c := range ReportColumns {
		if c == name {
			return true
		}
	}
	return false
}

type ReportTemplate struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	Columns       []string  `json:"columns"`
	ScheduleHour  null.Int  `json:"schedule_hour"` // 0-23, null = manual only
	Recipients    string    `json:"recipients"`    // comma separated emails
	Enabled       bool      `json:"enabled"`
	LastRunAt     null.Time `json:"last_run_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ReportTemplateDTO struct {
	Name         string   `json:"name" binding:"required,min=1,max=100"`
	Columns      []string `json:"columns" binding:"required,min=1"`
	ScheduleHour *int     `json:"schedule_hour" binding:"omitempty,min=0,max=23"`
	Recipients   string   `json:"recipients"`
	Enabled      *bool    `json:"enabled"`
}

// ReportRow is one flattened booking for export.
type ReportRow struct {
	Reference   string
	LotName     string
	SpaceNumber string
	UserEmail   string
	UserName    string
	StartTime   time.Time
	EndTime     time.Time
	Status      string
	Notes       string
	CreatedAt   time.Time
}

// Value returns the cell for a named column.
func (r *ReportRow) Value(column string) string {
	switch column {
	case "reference":
		return r.Reference
	case "lot_name":
		return r.LotName
	case "space_number":
		return r.SpaceNumber
	case "user_email":
		return r.UserEmail
	case "user_name":
		return r.UserName
	case "start_time":
		return r.StartTime.UTC().Format(time.RFC3339)
	case "end_time":
		return r.EndTime.UTC().Format(time.RFC3339)
	case "status":
		return r.Status
	case "notes":
		return r.Notes
	case "created_at":
		return r.CreatedAt.UTC().Format(time.RFC3339)
	}
	return ""
}
