package repository

import (
	"context"
	"errors"
	"time"

	"parking_reserve/internal/domain"
)

var ErrNotFound = errors.New("record not found")
var ErrDuplicateEntry = errors.New("record already exists")
var ErrBookingConflict = errors.New("booking interval overlaps an existing active booking")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
	FindByOIDCSubject(ctx context.Context, providerID int, subject string) (*domain.User, error)
	FindAll(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	LinkOIDCSubject(ctx context.Context, id int, providerID int, subject string) error
	Delete(ctx context.Context, id int) error
}

type ParkingLotRepository interface {
	Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	FindByID(ctx context.Context, id int) (*domain.ParkingLot, error)
	FindAll(ctx context.Context) ([]domain.ParkingLot, error)
	Update(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	Delete(ctx context.Context, id int) error
}

type ParkingSpaceRepository interface {
	Create(ctx context.Context, space *domain.ParkingSpace) (*domain.ParkingSpace, error)
	FindByID(ctx context.Context, id int) (*domain.ParkingSpace, error)
	FindByLotID(ctx context.Context, lotID int) ([]domain.ParkingSpace, error)
	Update(ctx context.Context, space *domain.ParkingSpace) (*domain.ParkingSpace, error)
	UpdateLayout(ctx context.Context, lotID int, layout []domain.SpaceLayoutDTO) error
	Delete(ctx context.Context, id int) error
}

type BookingRepository interface {
	// Create runs the conflict check and the insert in one transaction,
	// holding a row lock on the parking space. Returns ErrBookingConflict
	// when an active booking overlaps the requested interval.
	Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error)
	// UpdateInterval re-runs the conflict check (ignoring the booking
	// itself) before persisting new times.
	UpdateInterval(ctx context.Context, booking *domain.Booking) (*domain.Booking, error)
	FindByID(ctx context.Context, id int) (*domain.Booking, error)
	Find(ctx context.Context, filter domain.BookingFilterDTO) ([]domain.Booking, error)
	// FindAll returns every booking, bypassing the listing limit.
	FindAll(ctx context.Context) ([]domain.Booking, error)
	FindActiveBySpaceAndRange(ctx context.Context, spaceID int, start, end time.Time) ([]domain.Booking, error)
	UpdateStatus(ctx context.Context, id int, status domain.BookingStatus) error
	UpdateNotes(ctx context.Context, id int, notes string) error
	Delete(ctx context.Context, id int) error
	// CompleteExpired marks active bookings whose end time has passed as
	// completed and returns how many rows changed.
	CompleteExpired(ctx context.Context, now time.Time) (int64, error)
	ExportRows(ctx context.Context, filter domain.BookingFilterDTO) ([]domain.ReportRow, error)
}

type OIDCProviderRepository interface {
	Create(ctx context.Context, provider *domain.OIDCProvider) (*domain.OIDCProvider, error)
	FindByID(ctx context.Context, id int) (*domain.OIDCProvider, error)
	FindByName(ctx context.Context, name string) (*domain.OIDCProvider, error)
	FindAll(ctx context.Context) ([]domain.OIDCProvider, error)
	FindEnabled(ctx context.Context) ([]domain.OIDCProvider, error)
	Update(ctx context.Context, provider *domain.OIDCProvider) (*domain.OIDCProvider, error)
	Delete(ctx context.Context, id int) error

	CreateClaimMapping(ctx context.Context, mapping *domain.OIDCClaimMapping) (*domain.OIDCClaimMapping, error)
	FindClaimMappings(ctx context.Context, providerID int) ([]domain.OIDCClaimMapping, error)
	UpdateClaimMapping(ctx context.Context, mapping *domain.OIDCClaimMapping) (*domain.OIDCClaimMapping, error)
	DeleteClaimMapping(ctx context.Context, id int) error
}

type SettingsRepository interface {
	GetEmailSettings(ctx context.Context) (*domain.EmailSettings, error)
	UpdateEmailSettings(ctx context.Context, settings *domain.EmailSettings) (*domain.EmailSettings, error)
	GetBackupSettings(ctx context.Context) (*domain.BackupSettings, error)
	UpdateBackupSettings(ctx context.Context, settings *domain.BackupSettings) (*domain.BackupSettings, error)
	MarkBackupRun(ctx context.Context, at time.Time) error

	GetStyling(ctx context.Context) ([]domain.AppConfig, error)
	SetStyling(ctx context.Context, entries map[string]string) error
}

type ApplicationLogRepository interface {
	Create(ctx context.Context, entry *domain.ApplicationLog) error
	Find(ctx context.Context, filter domain.LogFilterDTO) ([]domain.ApplicationLog, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type ReportTemplateRepository interface {
	Create(ctx context.Context, template *domain.ReportTemplate) (*domain.ReportTemplate, error)
	FindByID(ctx context.Context, id int) (*domain.ReportTemplate, error)
	FindAll(ctx context.Context) ([]domain.ReportTemplate, error)
	FindScheduled(ctx context.Context) ([]domain.ReportTemplate, error)
	Update(ctx context.Context, template *domain.ReportTemplate) (*domain.ReportTemplate, error)
	MarkRun(ctx context.Context, id int, at time.Time) error
	Delete(ctx context.Context, id int) error
}

type MigrationRepository interface {
	AppliedVersions(ctx context.Context) ([]string, error)
}
