package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"
)

type ParkingService struct {
	lotRepo     repository.ParkingLotRepository
	spaceRepo   repository.ParkingSpaceRepository
	bookingRepo repository.BookingRepository
}

func NewParkingService(
	lotRepo repository.ParkingLotRepository,
	spaceRepo repository.ParkingSpaceRepository,
	bookingRepo repository.BookingRepository,
) *ParkingService {
	return &ParkingService{
		lotRepo:     lotRepo,
		spaceRepo:   spaceRepo,
		bookingRepo: bookingRepo,
	}
}

// --- ParkingLot ---

func (s *ParkingService) CreateParkingLot(ctx context.Context, dto domain.ParkingLotDTO) (*domain.ParkingLot, error) {
	lot := &domain.ParkingLot{
		Name:        dto.Name,
		Address:     dto.Address,
		Description: dto.Description,
	}
	return s.lotRepo.Create(ctx, lot)
}

func (s *ParkingService) GetParkingLotByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	return s.lotRepo.FindByID(ctx, id)
}

func (s *ParkingService) GetAllParkingLots(ctx context.Context) ([]domain.ParkingLot, error) {
	return s.lotRepo.FindAll(ctx)
}

func (s *ParkingService) UpdateParkingLot(ctx context.Context, id int, dto domain.ParkingLotDTO) (*domain.ParkingLot, error) {
	lot, err := s.lotRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	lot.Name = dto.Name
	lot.Address = dto.Address
	lot.Description = dto.Description
	return s.lotRepo.Update(ctx, lot)
}

func (s *ParkingService) DeleteParkingLot(ctx context.Context, id int) error {
	spaces, err := s.spaceRepo.FindByLotID(ctx, id)
	if err != nil {
		return fmt.Errorf("checking spaces of lot %d: %w", id, err)
	}
	if len(spaces) > 0 {
		return fmt.Errorf("cannot delete lot %d: %d spaces still assigned", id, len(spaces))
	}
	return s.lotRepo.Delete(ctx, id)
}

// --- ParkingSpace ---

func (s *ParkingService) CreateParkingSpace(ctx context.Context, lotID int, dto domain.ParkingSpaceDTO) (*domain.ParkingSpace, error) {
	if _, err := s.lotRepo.FindByID(ctx, lotID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("parking lot %d does not exist", lotID)
		}
		return nil, fmt.Errorf("checking parking lot: %w", err)
	}

	status := domain.SpaceStatus(dto.Status)
	if status == "" {
		status = domain.SpaceAvailable
	}
	space := &domain.ParkingSpace{
		LotID:       lotID,
		SpaceNumber: dto.SpaceNumber,
		Status:      status,
		PosX:        dto.PosX,
		PosY:        dto.PosY,
		Width:       dto.Width,
		Height:      dto.Height,
		Rotation:    dto.Rotation,
	}
	return s.spaceRepo.Create(ctx, space)
}

func (s *ParkingService) GetParkingSpaceByID(ctx context.Context, spaceID int) (*domain.ParkingSpace, error) {
	return s.spaceRepo.FindByID(ctx, spaceID)
}

func (s *ParkingService) GetSpacesByLotID(ctx context.Context, lotID int) ([]domain.ParkingSpace, error) {
	return s.spaceRepo.FindByLotID(ctx, lotID)
}

func (s *ParkingService) UpdateParkingSpace(ctx context.Context, spaceID int, dto domain.ParkingSpaceDTO) (*domain.ParkingSpace, error) {
	space, err := s.spaceRepo.FindByID(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	space.SpaceNumber = dto.SpaceNumber
	if dto.Status != "" {
		space.Status = domain.SpaceStatus(dto.Status)
	}
	space.PosX = dto.PosX
	space.PosY = dto.PosY
	space.Width = dto.Width
	space.Height = dto.Height
	space.Rotation = dto.Rotation
	return s.spaceRepo.Update(ctx, space)
}

func (s *ParkingService) UpdateLayout(ctx context.Context, lotID int, layout []domain.SpaceLayoutDTO) error {
	if _, err := s.lotRepo.FindByID(ctx, lotID); err != nil {
		return err
	}
	return s.spaceRepo.UpdateLayout(ctx, lotID, layout)
}

func (s *ParkingService) DeleteParkingSpace(ctx context.Context, spaceID int) error {
	return s.spaceRepo.Delete(ctx, spaceID)
}

// GetAvailability returns every space of a lot with a flag telling whether
// it can be booked for [start, end). Blocked and maintenance spaces are
// never free.
func (s *ParkingService) GetAvailability(ctx context.Context, lotID int, start, end time.Time) ([]domain.SpaceAvailability, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("start time must be before end time")
	}
	spaces, err := s.spaceRepo.FindByLotID(ctx, lotID)
	if err != nil {
		return nil, err
	}

	result := make([]domain.SpaceAvailability, 0, len(spaces))
	for _, space := range spaces {
		free := space.Status == domain.SpaceAvailable
		if free {
			overlapping, err := s.bookingRepo.FindActiveBySpaceAndRange(ctx, space.ID, start, end)
			if err != nil {
				return nil, err
			}
			free = len(overlapping) == 0
		}
		result = append(result, domain.SpaceAvailability{ParkingSpace: space, Free: free})
	}
	return result, nil
}
