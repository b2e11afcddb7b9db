package service

import (
	"context"
	"testing"
	"time"

	"parking_reserve/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBookingFixture(t *testing.T) (*BookingService, *fakeBookingRepo, *fakeSpaceRepo, *fakeUserRepo, *fakeNotifier, *domain.User, *domain.User, *domain.ParkingSpace) {
	t.Helper()
	bookingRepo := newFakeBookingRepo()
	spaceRepo := newFakeSpaceRepo()
	userRepo := newFakeUserRepo()
	notifier := &fakeNotifier{}

	user, err := userRepo.Create(context.Background(), &domain.User{Email: "alice@example.com", Role: domain.RoleUser, IsActive: true})
	require.NoError(t, err)
	admin, err := userRepo.Create(context.Background(), &domain.User{Email: "admin@example.com", Role: domain.RoleAdmin, IsActive: true})
	require.NoError(t, err)
	space, err := spaceRepo.Create(context.Background(), &domain.ParkingSpace{LotID: 1, SpaceNumber: "A1", Status: domain.SpaceAvailable})
	require.NoError(t, err)

	svc := NewBookingService(bookingRepo, spaceRepo, userRepo, notifier)
	return svc, bookingRepo, spaceRepo, userRepo, notifier, user, admin, space
}

func futureInterval(startHours, durationHours int) (time.Time, time.Time) {
	start := time.Now().UTC().Add(time.Duration(startHours) * time.Hour).Truncate(time.Second)
	return start, start.Add(time.Duration(durationHours) * time.Hour)
}

func TestCreateBooking(t *testing.T) {
	svc, _, _, _, notifier, user, _, space := newBookingFixture(t)
	start, end := futureInterval(1, 2)

	booking, err := svc.Create(context.Background(), user, domain.CreateBookingDTO{
		SpaceID:   space.ID,
		StartTime: start,
		EndTime:   end,
		Notes:     "near the entrance",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, booking.Reference)
	assert.Equal(t, user.ID, booking.UserID)
	assert.Equal(t, domain.BookingActive, booking.Status)
	assert.Equal(t, "near the entrance", booking.Notes.String)

	events := notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "booking_created", events[0].Event)
	assert.Equal(t, booking.ID, events[0].BookingID)
}

func TestCreateBookingConflict(t *testing.T) {
	svc, _, _, _, _, user, _, space := newBookingFixture(t)
	start, end := futureInterval(1, 2)

	_, err := svc.Create(context.Background(), user, domain.CreateBookingDTO{SpaceID: space.ID, StartTime: start, EndTime: end})
	require.NoError(t, err)

	// fully inside the existing interval
	_, err = svc.Create(context.Background(), user, domain.CreateBookingDTO{
		SpaceID:   space.ID,
		StartTime: start.Add(30 * time.Minute),
		EndTime:   end.Add(-30 * time.Minute),
	})
	assert.ErrorIs(t, err, ErrBookingConflict)

	// straddling the start
	_, err = svc.Create(context.Background(), user, domain.CreateBookingDTO{
		SpaceID:   space.ID,
		StartTime: start.Add(-time.Hour),
		EndTime:   start.Add(30 * time.Minute),
	})
	assert.ErrorIs(t, err, ErrBookingConflict)

	// back to back intervals do not conflict
	_, err = svc.Create(context.Background(), user, domain.CreateBookingDTO{SpaceID: space.ID, StartTime: end, EndTime: end.Add(time.Hour)})
	assert.NoError(t, err)
}

func TestCreateBookingValidation(t *testing.T) {
	svc, _, spaceRepo, _, _, user, _, space := newBookingFixture(t)
	start, end := futureInterval(1, 2)

	_, err := svc.Create(context.Background(), user, domain.CreateBookingDTO{SpaceID: space.ID, StartTime: end, EndTime: start})
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = svc.Create(context.Background(), user, domain.CreateBookingDTO{
		SpaceID:   space.ID,
		StartTime: time.Now().UTC().Add(-3 * time.Hour),
		EndTime:   time.Now().UTC().Add(-2 * time.Hour),
	})
	assert.ErrorIs(t, err, ErrBookingInPast)

	// an interval already under way is fine as long as it ends in the future
	_, err = svc.Create(context.Background(), user, domain.CreateBookingDTO{
		SpaceID:   space.ID,
		StartTime: time.Now().UTC().Add(-30 * time.Minute),
		EndTime:   time.Now().UTC().Add(30 * time.Minute),
	})
	assert.NoError(t, err)

	blocked, err := spaceRepo.Create(context.Background(), &domain.ParkingSpace{LotID: 1, SpaceNumber: "A2", Status: domain.SpaceBlocked})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), user, domain.CreateBookingDTO{SpaceID: blocked.ID, StartTime: start, EndTime: end})
	assert.ErrorIs(t, err, ErrNotBookable)
}

func TestCreateBookingOnBehalf(t *testing.T) {
	svc, _, _, _, _, user, admin, space := newBookingFixture(t)
	start, end := futureInterval(1, 2)

	// regular users cannot book for someone else
	_, err := svc.Create(context.Background(), user, domain.CreateBookingDTO{
		SpaceID: space.ID, UserID: admin.ID, StartTime: start, EndTime: end,
	})
	assert.ErrorIs(t, err, ErrForbidden)

	// admins can
	booking, err := svc.Create(context.Background(), admin, domain.CreateBookingDTO{
		SpaceID: space.ID, UserID: user.ID, StartTime: start, EndTime: end,
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, booking.UserID)
}

func TestListBookingsScopedToOwner(t *testing.T) {
	svc, _, _, _, _, user, admin, space := newBookingFixture(t)
	start, end := futureInterval(1, 1)

	_, err := svc.Create(context.Background(), user, domain.CreateBookingDTO{SpaceID: space.ID, StartTime: start, EndTime: end})
	require.NoError(t, err)
	start2, end2 := futureInterval(3, 1)
	_, err = svc.Create(context.Background(), admin, domain.CreateBookingDTO{SpaceID: space.ID, StartTime: start2, EndTime: end2})
	require.NoError(t, err)

	mine, err := svc.List(context.Background(), user, domain.BookingFilterDTO{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, user.ID, mine[0].UserID)

	all, err := svc.List(context.Background(), admin, domain.BookingFilterDTO{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// a non-admin cannot see others even with an explicit filter
	others, err := svc.List(context.Background(), user, domain.BookingFilterDTO{UserID: &admin.ID})
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, user.ID, others[0].UserID)
}

func TestUpdateBookingInterval(t *testing.T) {
	svc, _, _, _, notifier, user, _, space := newBookingFixture(t)
	start, end := futureInterval(1, 2)

	first, err := svc.Create(context.Background(), user, domain.CreateBookingDTO{SpaceID: space.ID, StartTime: start, EndTime: end})
	require.NoError(t, err)
	start2, end2 := futureInterval(5, 2)
	second, err := svc.Create(context.Background(), user, domain.CreateBookingDTO{SpaceID: space.ID, StartTime: start2, EndTime: end2})
	require.NoError(t, err)

	// moving the second booking onto the first conflicts
	_, err = svc.Update(context.Background(), user, second.ID, domain.UpdateBookingDTO{StartTime: &start, EndTime: &end})
	assert.ErrorIs(t, err, ErrBookingConflict)

	// moving into a free slot works
	newStart, newEnd := futureInterval(8, 2)
	updated, err := svc.Update(context.Background(), user, second.ID, domain.UpdateBookingDTO{StartTime: &newStart, EndTime: &newEnd})
	require.NoError(t, err)
	assert.True(t, updated.StartTime.Equal(newStart))
	assert.True(t, updated.EndTime.Equal(newEnd))

	events := notifier.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "booking_updated", events[2].Event)
	assert.Equal(t, space.LotID, events[2].LotID)

	// a foreign booking cannot be touched
	_, err = svc.Update(context.Background(), &domain.User{ID: 99, Role: domain.RoleUser}, first.ID, domain.UpdateBookingDTO{StartTime: &newStart})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCancelBooking(t *testing.T) {
	svc, _, _, _, notifier, user, _, space := newBookingFixture(t)
	start, end := futureInterval(1, 2)

	booking, err := svc.Create(context.Background(), user, domain.CreateBookingDTO{SpaceID: space.ID, StartTime: start, EndTime: end})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), user, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, cancelled.Status)

	// cancelled bookings cannot be cancelled or edited again
	_, err = svc.Cancel(context.Background(), user, booking.ID)
	assert.ErrorIs(t, err, ErrBookingNotActive)
	_, err = svc.Update(context.Background(), user, booking.ID, domain.UpdateBookingDTO{StartTime: &start})
	assert.ErrorIs(t, err, ErrBookingNotActive)

	// cancelling frees the slot for a new booking
	_, err = svc.Create(context.Background(), user, domain.CreateBookingDTO{SpaceID: space.ID, StartTime: start, EndTime: end})
	assert.NoError(t, err)

	events := notifier.Events()
	assert.Equal(t, "booking_cancelled", events[1].Event)
	assert.Equal(t, space.LotID, events[1].LotID)
}

func TestCompleteExpired(t *testing.T) {
	svc, bookingRepo, _, _, _, user, _, space := newBookingFixture(t)

	past := &domain.Booking{
		Reference: "ref-past",
		SpaceID:   space.ID,
		UserID:    user.ID,
		StartTime: time.Now().UTC().Add(-4 * time.Hour),
		EndTime:   time.Now().UTC().Add(-2 * time.Hour),
		Status:    domain.BookingActive,
	}
	stored, err := bookingRepo.Create(context.Background(), past)
	require.NoError(t, err)

	count, err := svc.CompleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	after, err := bookingRepo.FindByID(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCompleted, after.Status)
}
