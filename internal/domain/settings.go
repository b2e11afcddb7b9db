package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// EmailSettings is a singleton row configuring the SMTP relay.
type EmailSettings struct {
	ID          int       `json:"id"`
	SMTPHost    string    `json:"smtp_host"`
	SMTPPort    int       `json:"smtp_port"`
	Username    string    `json:"username"`
	Password    string    `json:"-"`
	FromAddress string    `json:"from_address"`
	FromName    string    `json:"from_name"`
	UseTLS      bool      `json:"use_tls"`
	Enabled     bool      `json:"enabled"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type EmailSettingsDTO struct {
	SMTPHost    string `json:"smtp_host" binding:"required"`
	SMTPPort    int    `json:"smtp_port" binding:"required,min=1,max=65535"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	FromAddress string `json:"from_address" binding:"required,email"`
	FromName    string `json:"from_name"`
	UseTLS      *bool  `json:"use_tls"`
	Enabled     *bool  `json:"enabled"`
}

type TestEmailDTO struct {
	Recipient string `json:"recipient" binding:"required,email"`
}

// BackupSettings is a singleton row configuring periodic database exports
// to S3-compatible object storage.
type BackupSettings struct {
	ID             int       `json:"id"`
	Enabled        bool      `json:"enabled"`
	IntervalHours  int       `json:"interval_hours"`
	Bucket         string    `json:"bucket"`
	Prefix         string    `json:"prefix"`
	RetentionCount int       `json:"retention_count"`
	LastRunAt      null.Time `json:"last_run_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type BackupSettingsDTO struct {
	Enabled        *bool  `json:"enabled"`
	IntervalHours  int    `json:"interval_hours" binding:"omitempty,min=1,max=720"`
	Bucket         string `json:"bucket"`
	Prefix         string `json:"prefix"`
	RetentionCount int    `json:"retention_count" binding:"omitempty,min=1,max=365"`
}

// BackupObject describes one stored backup in the bucket listing.
type BackupObject struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// AppConfig holds one styling/branding key-value pair (title, logo URL,
// colors). Keys are free-form so the front-end can add theme entries
// without a schema change.
type AppConfig struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StylingDTO struct {
	Entries map[string]string `json:"entries" binding:"required"`
}
