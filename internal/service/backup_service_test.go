package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"parking_reserve/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"
)

func newBackupFixture(t *testing.T) (*BackupService, *fakeSettingsRepo, *fakeS3) {
	t.Helper()
	settingsRepo := newFakeSettingsRepo()
	lotRepo := newFakeLotRepo()
	spaceRepo := newFakeSpaceRepo()
	bookingRepo := newFakeBookingRepo()
	userRepo := newFakeUserRepo()
	s3Client := newFakeS3()

	lot, err := lotRepo.Create(context.Background(), &domain.ParkingLot{Name: "North Lot"})
	require.NoError(t, err)
	_, err = spaceRepo.Create(context.Background(), &domain.ParkingSpace{LotID: lot.ID, SpaceNumber: "A1", Status: domain.SpaceAvailable})
	require.NoError(t, err)
	_, err = userRepo.Create(context.Background(), &domain.User{Email: "alice@example.com", Role: domain.RoleUser, IsActive: true})
	require.NoError(t, err)

	svc := NewBackupService(settingsRepo, lotRepo, spaceRepo, bookingRepo, userRepo, s3Client, zerolog.Nop())
	return svc, settingsRepo, s3Client
}

func TestBackupRun(t *testing.T) {
	svc, settingsRepo, s3Client := newBackupFixture(t)
	settingsRepo.backup = domain.BackupSettings{Enabled: true, Bucket: "parking-backups", Prefix: "snapshots"}

	key, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "snapshots/"))
	assert.True(t, strings.HasSuffix(key, ".json"))

	payload, ok := s3Client.objects[key]
	require.True(t, ok)

	var snap struct {
		Lots   []domain.ParkingLot   `json:"parking_lots"`
		Spaces []domain.ParkingSpace `json:"parking_spaces"`
		Users  []domain.User         `json:"users"`
	}
	require.NoError(t, json.Unmarshal(payload, &snap))
	assert.Len(t, snap.Lots, 1)
	assert.Len(t, snap.Spaces, 1)
	assert.Len(t, snap.Users, 1)

	settings, err := settingsRepo.GetBackupSettings(context.Background())
	require.NoError(t, err)
	assert.True(t, settings.LastRunAt.Valid)
}

func TestBackupSnapshotContainsEveryBooking(t *testing.T) {
	settingsRepo := newFakeSettingsRepo()
	bookingRepo := newFakeBookingRepo()
	s3Client := newFakeS3()
	settingsRepo.backup = domain.BackupSettings{Enabled: true, Bucket: "parking-backups"}

	// more bookings than the listing query ever returns in one page
	const total = 230
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < total; i++ {
		_, err := bookingRepo.Create(context.Background(), &domain.Booking{
			Reference: uuid.NewString(),
			SpaceID:   1,
			UserID:    1,
			StartTime: base.Add(time.Duration(i) * time.Hour),
			EndTime:   base.Add(time.Duration(i)*time.Hour + 30*time.Minute),
			Status:    domain.BookingActive,
		})
		require.NoError(t, err)
	}

	page, err := bookingRepo.Find(context.Background(), domain.BookingFilterDTO{})
	require.NoError(t, err)
	require.Less(t, len(page), total)

	svc := NewBackupService(settingsRepo, newFakeLotRepo(), newFakeSpaceRepo(), bookingRepo, newFakeUserRepo(), s3Client, zerolog.Nop())
	key, err := svc.Run(context.Background())
	require.NoError(t, err)

	var snap struct {
		Bookings []domain.Booking `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(s3Client.objects[key], &snap))
	assert.Len(t, snap.Bookings, total)
}

func TestBackupRunUnconfigured(t *testing.T) {
	svc, _, _ := newBackupFixture(t)
	_, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, ErrBackupNotConfigured)
}

func TestBackupRetentionPrune(t *testing.T) {
	svc, settingsRepo, s3Client := newBackupFixture(t)
	settingsRepo.backup = domain.BackupSettings{Enabled: true, Bucket: "parking-backups", RetentionCount: 2}

	// pre-existing snapshots beyond retention
	s3Client.objects["20260101T000000Z.json"] = []byte("{}")
	s3Client.objects["20260102T000000Z.json"] = []byte("{}")

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, s3Client.objects, 2)
	assert.NotEmpty(t, s3Client.deleted)
}

func TestIsBackupDue(t *testing.T) {
	now := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)

	disabled := &domain.BackupSettings{Enabled: false, Bucket: "b", IntervalHours: 24}
	assert.False(t, IsBackupDue(disabled, now))

	noBucket := &domain.BackupSettings{Enabled: true, IntervalHours: 24}
	assert.False(t, IsBackupDue(noBucket, now))

	neverRan := &domain.BackupSettings{Enabled: true, Bucket: "b", IntervalHours: 24}
	assert.True(t, IsBackupDue(neverRan, now))

	recent := &domain.BackupSettings{
		Enabled: true, Bucket: "b", IntervalHours: 24,
		LastRunAt: null.TimeFrom(now.Add(-2 * time.Hour)),
	}
	assert.False(t, IsBackupDue(recent, now))

	stale := &domain.BackupSettings{
		Enabled: true, Bucket: "b", IntervalHours: 24,
		LastRunAt: null.TimeFrom(now.Add(-25 * time.Hour)),
	}
	assert.True(t, IsBackupDue(stale, now))
}

func TestNormalizePrefix(t *testing.T) {
	assert.Equal(t, "", normalizePrefix(""))
	assert.Equal(t, "snapshots/", normalizePrefix("snapshots"))
	assert.Equal(t, "snapshots/", normalizePrefix("snapshots/"))
}
