package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

var ErrBackupNotConfigured = errors.New("backup bucket is not configured")

// S3Client is the subset of the S3 API the backup service uses.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// BackupService exports the reservation data as a JSON snapshot to
// S3-compatible object storage and prunes old snapshots past retention.
type BackupService struct {
	settingsRepo repository.SettingsRepository
	lotRepo      repository.ParkingLotRepository
	spaceRepo    repository.ParkingSpaceRepository
	bookingRepo  repository.BookingRepository
	userRepo     repository.UserRepository
	s3Client     S3Client
	logger       zerolog.Logger
}

func NewBackupService(
	settingsRepo repository.SettingsRepository,
	lotRepo repository.ParkingLotRepository,
	spaceRepo repository.ParkingSpaceRepository,
	bookingRepo repository.BookingRepository,
	userRepo repository.UserRepository,
	s3Client S3Client,
	logger zerolog.Logger,
) *BackupService {
	return &BackupService{
		settingsRepo: settingsRepo,
		lotRepo:      lotRepo,
		spaceRepo:    spaceRepo,
		bookingRepo:  bookingRepo,
		userRepo:     userRepo,
		s3Client:     s3Client,
		logger:       logger.With().Str("component", "backup").Logger(),
	}
}

func (s *BackupService) GetSettings(ctx context.Context) (*domain.BackupSettings, error) {
	return s.settingsRepo.GetBackupSettings(ctx)
}

func (s *BackupService) UpdateSettings(ctx context.Context, dto domain.BackupSettingsDTO) (*domain.BackupSettings, error) {
	settings, err := s.settingsRepo.GetBackupSettings(ctx)
	if err != nil {
		return nil, err
	}
	if dto.Enabled != nil {
		settings.Enabled = *dto.Enabled
	}
	if dto.IntervalHours > 0 {
		settings.IntervalHours = dto.IntervalHours
	}
	if dto.Bucket != "" {
		settings.Bucket = dto.Bucket
	}
	if dto.Prefix != "" {
		settings.Prefix = dto.Prefix
	}
	if dto.RetentionCount > 0 {
		settings.RetentionCount = dto.RetentionCount
	}
	return s.settingsRepo.UpdateBackupSettings(ctx, settings)
}

// snapshot is the serialized backup payload.
type snapshot struct {
	CreatedAt time.Time             `json:"created_at"`
	Lots      []domain.ParkingLot   `json:"parking_lots"`
	Spaces    []domain.ParkingSpace `json:"parking_spaces"`
	Users     []domain.User         `json:"users"`
	Bookings  []domain.Booking      `json:"bookings"`
}

// Run builds the snapshot and uploads it. Returns the object key.
func (s *BackupService) Run(ctx context.Context) (string, error) {
	settings, err := s.settingsRepo.GetBackupSettings(ctx)
	if err != nil {
		return "", err
	}
	if settings.Bucket == "" {
		return "", ErrBackupNotConfigured
	}

	snap := snapshot{CreatedAt: time.Now().UTC()}
	if snap.Lots, err = s.lotRepo.FindAll(ctx); err != nil {
		return "", fmt.Errorf("collecting lots: %w", err)
	}
	for _, lot := range snap.Lots {
		spaces, err := s.spaceRepo.FindByLotID(ctx, lot.ID)
		if err != nil {
			return "", fmt.Errorf("collecting spaces for lot %d: %w", lot.ID, err)
		}
		snap.Spaces = append(snap.Spaces, spaces...)
	}
	if snap.Users, err = s.userRepo.FindAll(ctx); err != nil {
		return "", fmt.Errorf("collecting users: %w", err)
	}
	if snap.Bookings, err = s.bookingRepo.FindAll(ctx); err != nil {
		return "", fmt.Errorf("collecting bookings: %w", err)
	}

	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}

	key := fmt.Sprintf("%s%s.json", normalizePrefix(settings.Prefix), snap.CreatedAt.Format("20060102T150405Z"))
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(settings.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("uploading backup: %w", err)
	}

	if err := s.settingsRepo.MarkBackupRun(ctx, snap.CreatedAt); err != nil {
		return "", err
	}
	if err := s.prune(ctx, settings); err != nil {
		s.logger.Warn().Err(err).Msg("backup retention pruning failed")
	}

	s.logger.Info().Str("key", key).Int("bytes", len(payload)).Msg("backup uploaded")
	return key, nil
}

// List returns the stored backups, newest first.
func (s *BackupService) List(ctx context.Context) ([]domain.BackupObject, error) {
	settings, err := s.settingsRepo.GetBackupSettings(ctx)
	if err != nil {
		return nil, err
	}
	if settings.Bucket == "" {
		return nil, ErrBackupNotConfigured
	}
	objects, err := s.listObjects(ctx, settings)
	if err != nil {
		return nil, err
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].LastModified.After(objects[j].LastModified) })
	return objects, nil
}

func (s *BackupService) listObjects(ctx context.Context, settings *domain.BackupSettings) ([]domain.BackupObject, error) {
	out, err := s.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(settings.Bucket),
		Prefix: aws.String(normalizePrefix(settings.Prefix)),
	})
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	objects := make([]domain.BackupObject, 0, len(out.Contents))
	for _, obj := range out.Contents {
		o := domain.BackupObject{Key: aws.ToString(obj.Key), Size: aws.ToInt64(obj.Size)}
		if obj.LastModified != nil {
			o.LastModified = obj.LastModified.UTC()
		}
		objects = append(objects, o)
	}
	return objects, nil
}

// prune deletes the oldest snapshots beyond the retention count.
func (s *BackupService) prune(ctx context.Context, settings *domain.BackupSettings) error {
	if settings.RetentionCount <= 0 {
		return nil
	}
	objects, err := s.listObjects(ctx, settings)
	if err != nil {
		return err
	}
	if len(objects) <= settings.RetentionCount {
		return nil
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].LastModified.After(objects[j].LastModified) })
	for _, obj := range objects[settings.RetentionCount:] {
		_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(settings.Bucket),
			Key:    aws.String(obj.Key),
		})
		if err != nil {
			return fmt.Errorf("deleting %s: %w", obj.Key, err)
		}
	}
	return nil
}

// IsBackupDue reports whether the configured interval has elapsed.
func IsBackupDue(settings *domain.BackupSettings, now time.Time) bool {
	if !settings.Enabled || settings.Bucket == "" {
		return false
	}
	if !settings.LastRunAt.Valid {
		return true
	}
	return now.Sub(settings.LastRunAt.Time) >= time.Duration(settings.IntervalHours)*time.Hour
}

func normalizePrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	if !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}
