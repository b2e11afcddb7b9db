package service

import (
	"context"
	"testing"
	"time"

	"parking_reserve/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newParkingFixture(t *testing.T) (*ParkingService, *fakeLotRepo, *fakeSpaceRepo, *fakeBookingRepo) {
	t.Helper()
	lotRepo := newFakeLotRepo()
	spaceRepo := newFakeSpaceRepo()
	bookingRepo := newFakeBookingRepo()
	return NewParkingService(lotRepo, spaceRepo, bookingRepo), lotRepo, spaceRepo, bookingRepo
}

func TestDeleteLotBlockedWhileSpacesExist(t *testing.T) {
	svc, _, _, _ := newParkingFixture(t)

	lot, err := svc.CreateParkingLot(context.Background(), domain.ParkingLotDTO{Name: "North Lot"})
	require.NoError(t, err)
	space, err := svc.CreateParkingSpace(context.Background(), lot.ID, domain.ParkingSpaceDTO{SpaceNumber: "A1"})
	require.NoError(t, err)

	err = svc.DeleteParkingLot(context.Background(), lot.ID)
	assert.Error(t, err)

	require.NoError(t, svc.DeleteParkingSpace(context.Background(), space.ID))
	assert.NoError(t, svc.DeleteParkingLot(context.Background(), lot.ID))
}

func TestCreateSpaceDefaultsToAvailable(t *testing.T) {
	svc, _, _, _ := newParkingFixture(t)

	lot, err := svc.CreateParkingLot(context.Background(), domain.ParkingLotDTO{Name: "North Lot"})
	require.NoError(t, err)

	space, err := svc.CreateParkingSpace(context.Background(), lot.ID, domain.ParkingSpaceDTO{SpaceNumber: "A1"})
	require.NoError(t, err)
	assert.Equal(t, domain.SpaceAvailable, space.Status)

	_, err = svc.CreateParkingSpace(context.Background(), 999, domain.ParkingSpaceDTO{SpaceNumber: "B1"})
	assert.Error(t, err)
}

func TestUpdateLayout(t *testing.T) {
	svc, _, spaceRepo, _ := newParkingFixture(t)

	lot, err := svc.CreateParkingLot(context.Background(), domain.ParkingLotDTO{Name: "North Lot"})
	require.NoError(t, err)
	space, err := svc.CreateParkingSpace(context.Background(), lot.ID, domain.ParkingSpaceDTO{SpaceNumber: "A1"})
	require.NoError(t, err)

	err = svc.UpdateLayout(context.Background(), lot.ID, []domain.SpaceLayoutDTO{
		{SpaceID: space.ID, PosX: 10, PosY: 20, Width: 40, Height: 80, Rotation: 90},
	})
	require.NoError(t, err)

	moved, err := spaceRepo.FindByID(context.Background(), space.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, moved.PosX)
	assert.Equal(t, 90.0, moved.Rotation)
}

func TestGetAvailability(t *testing.T) {
	svc, _, spaceRepo, bookingRepo := newParkingFixture(t)

	lot, err := svc.CreateParkingLot(context.Background(), domain.ParkingLotDTO{Name: "North Lot"})
	require.NoError(t, err)
	_, err = svc.CreateParkingSpace(context.Background(), lot.ID, domain.ParkingSpaceDTO{SpaceNumber: "A1"})
	require.NoError(t, err)
	booked, err := svc.CreateParkingSpace(context.Background(), lot.ID, domain.ParkingSpaceDTO{SpaceNumber: "A2"})
	require.NoError(t, err)
	_, err = spaceRepo.Create(context.Background(), &domain.ParkingSpace{LotID: lot.ID, SpaceNumber: "A3", Status: domain.SpaceMaintenance})
	require.NoError(t, err)

	start := time.Now().UTC().Add(time.Hour)
	end := start.Add(2 * time.Hour)
	_, err = bookingRepo.Create(context.Background(), &domain.Booking{
		Reference: "ref-1",
		SpaceID:   booked.ID,
		UserID:    1,
		StartTime: start,
		EndTime:   end,
		Status:    domain.BookingActive,
	})
	require.NoError(t, err)

	availability, err := svc.GetAvailability(context.Background(), lot.ID, start, end)
	require.NoError(t, err)
	require.Len(t, availability, 3)

	byNumber := make(map[string]bool, len(availability))
	for _, a := range availability {
		byNumber[a.SpaceNumber] = a.Free
	}
	assert.True(t, byNumber["A1"])
	assert.False(t, byNumber["A2"], "overlapping active booking")
	assert.False(t, byNumber["A3"], "maintenance space is never free")

	// a non-overlapping window frees the booked space
	later, err := svc.GetAvailability(context.Background(), lot.ID, end, end.Add(time.Hour))
	require.NoError(t, err)
	byNumber = make(map[string]bool, len(later))
	for _, a := range later {
		byNumber[a.SpaceNumber] = a.Free
	}
	assert.True(t, byNumber["A2"])

	_, err = svc.GetAvailability(context.Background(), lot.ID, end, start)
	assert.Error(t, err)
}
