package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"
)

var ErrBookingConflict = errors.New("the space is already booked for this interval")
var ErrInvalidInterval = errors.New("start time must be before end time")
var ErrBookingInPast = errors.New("booking must not end in the past")
var ErrNotBookable = errors.New("the space is not available for booking")
var ErrForbidden = errors.New("not allowed to access this booking")
var ErrBookingNotActive = errors.New("only active bookings can be modified")

// Notifier pushes booking events to connected dashboard clients.
type Notifier interface {
	BroadcastBooking(event domain.BookingNotification)
}

type BookingService struct {
	bookingRepo repository.BookingRepository
	spaceRepo   repository.ParkingSpaceRepository
	userRepo    repository.UserRepository
	notifier    Notifier
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	spaceRepo repository.ParkingSpaceRepository,
	userRepo repository.UserRepository,
	notifier Notifier,
) *BookingService {
	return &BookingService{
		bookingRepo: bookingRepo,
		spaceRepo:   spaceRepo,
		userRepo:    userRepo,
		notifier:    notifier,
	}
}

// Create books a space for the acting user. Admins may pass dto.UserID to
// book on behalf of somebody else. The repository performs the overlap
// check and insert in one transaction. An already-started interval is
// accepted as long as it ends in the future.
func (s *BookingService) Create(ctx context.Context, actor *domain.User, dto domain.CreateBookingDTO) (*domain.Booking, error) {
	if !dto.StartTime.Before(dto.EndTime) {
		return nil, ErrInvalidInterval
	}
	if dto.EndTime.Before(time.Now()) {
		return nil, ErrBookingInPast
	}

	userID := actor.ID
	if dto.UserID != 0 && dto.UserID != actor.ID {
		if !actor.IsAdmin() {
			return nil, ErrForbidden
		}
		if _, err := s.userRepo.FindByID(ctx, dto.UserID); err != nil {
			return nil, fmt.Errorf("checking booking user: %w", err)
		}
		userID = dto.UserID
	}

	space, err := s.spaceRepo.FindByID(ctx, dto.SpaceID)
	if err != nil {
		return nil, err
	}
	if space.Status != domain.SpaceAvailable {
		return nil, ErrNotBookable
	}

	booking := &domain.Booking{
		Reference: uuid.NewString(),
		SpaceID:   dto.SpaceID,
		UserID:    userID,
		StartTime: dto.StartTime.UTC(),
		EndTime:   dto.EndTime.UTC(),
		Status:    domain.BookingActive,
		Notes:     null.NewString(dto.Notes, dto.Notes != ""),
	}

	created, err := s.bookingRepo.Create(ctx, booking)
	if err != nil {
		if errors.Is(err, repository.ErrBookingConflict) {
			return nil, ErrBookingConflict
		}
		return nil, err
	}
	created.Space = space

	s.notify("booking_created", created, space.LotID)
	return created, nil
}

func (s *BookingService) Get(ctx context.Context, actor *domain.User, id int) (*domain.Booking, error) {
	booking, err := s.bookingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.UserID != actor.ID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if space, err := s.spaceRepo.FindByID(ctx, booking.SpaceID); err == nil {
		booking.Space = space
	}
	return booking, nil
}

// List returns the actor's own bookings; admins may filter across all users.
func (s *BookingService) List(ctx context.Context, actor *domain.User, filter domain.BookingFilterDTO) ([]domain.Booking, error) {
	if !actor.IsAdmin() {
		filter.UserID = &actor.ID
	}
	return s.bookingRepo.Find(ctx, filter)
}

// Update changes the interval and/or notes of an active booking, re-running
// the conflict check when times move.
func (s *BookingService) Update(ctx context.Context, actor *domain.User, id int, dto domain.UpdateBookingDTO) (*domain.Booking, error) {
	booking, err := s.bookingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.UserID != actor.ID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if booking.Status != domain.BookingActive {
		return nil, ErrBookingNotActive
	}

	intervalChanged := false
	if dto.StartTime != nil {
		booking.StartTime = dto.StartTime.UTC()
		intervalChanged = true
	}
	if dto.EndTime != nil {
		booking.EndTime = dto.EndTime.UTC()
		intervalChanged = true
	}
	if dto.Notes != nil {
		booking.Notes = null.NewString(*dto.Notes, *dto.Notes != "")
	}
	if !booking.StartTime.Before(booking.EndTime) {
		return nil, ErrInvalidInterval
	}

	if intervalChanged {
		updated, err := s.bookingRepo.UpdateInterval(ctx, booking)
		if err != nil {
			if errors.Is(err, repository.ErrBookingConflict) {
				return nil, ErrBookingConflict
			}
			return nil, err
		}
		booking = updated
	} else if dto.Notes != nil {
		if err := s.bookingRepo.UpdateNotes(ctx, id, booking.Notes.ValueOrZero()); err != nil {
			return nil, err
		}
	}

	s.notify("booking_updated", booking, s.lotIDFor(ctx, booking.SpaceID))
	return booking, nil
}

func (s *BookingService) Cancel(ctx context.Context, actor *domain.User, id int) (*domain.Booking, error) {
	booking, err := s.bookingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.UserID != actor.ID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if booking.Status != domain.BookingActive {
		return nil, ErrBookingNotActive
	}
	if err := s.bookingRepo.UpdateStatus(ctx, id, domain.BookingCancelled); err != nil {
		return nil, err
	}
	booking.Status = domain.BookingCancelled

	s.notify("booking_cancelled", booking, s.lotIDFor(ctx, booking.SpaceID))
	return booking, nil
}

// Delete removes a booking row entirely. Admin only, enforced at the router.
func (s *BookingService) Delete(ctx context.Context, id int) error {
	return s.bookingRepo.Delete(ctx, id)
}

// CompleteExpired is invoked by the scheduler.
func (s *BookingService) CompleteExpired(ctx context.Context) (int64, error) {
	return s.bookingRepo.CompleteExpired(ctx, time.Now().UTC())
}

// lotIDFor resolves the lot a space belongs to for notifications. A
// lookup failure yields 0 rather than suppressing the event.
func (s *BookingService) lotIDFor(ctx context.Context, spaceID int) int {
	space, err := s.spaceRepo.FindByID(ctx, spaceID)
	if err != nil {
		return 0
	}
	return space.LotID
}

func (s *BookingService) notify(event string, booking *domain.Booking, lotID int) {
	if s.notifier == nil {
		return
	}
	s.notifier.BroadcastBooking(domain.BookingNotification{
		Event:     event,
		BookingID: booking.ID,
		Reference: booking.Reference,
		SpaceID:   booking.SpaceID,
		LotID:     lotID,
		StartTime: booking.StartTime,
		EndTime:   booking.EndTime,
		Timestamp: time.Now().UTC(),
	})
}
