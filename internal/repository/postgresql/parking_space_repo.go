package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"
)

type pgParkingSpaceRepository struct {
	db *sql.DB
}

func NewPgParkingSpaceRepository(db *sql.DB) repository.ParkingSpaceRepository {
	return &pgParkingSpaceRepository{db: db}
}

const spaceColumns = `id, lot_id, space_number, status, pos_x, pos_y, width, height, rotation, created_at, updated_at`

func scanSpace(row interface{ Scan(...any) error }) (*domain.ParkingSpace, error) {
	space := &domain.ParkingSpace{}
	err := row.Scan(&space.ID, &space.LotID, &space.SpaceNumber, &space.Status,
		&space.PosX, &space.PosY, &space.Width, &space.Height, &space.Rotation,
		&space.CreatedAt, &space.UpdatedAt)
	if err != nil {
		return nil, err
	}
	space.CreatedAt = space.CreatedAt.In(time.UTC)
	space.UpdatedAt = space.UpdatedAt.In(time.UTC)
	return space, nil
}

func (r *pgParkingSpaceRepository) Create(ctx context.Context, space *domain.ParkingSpace) (*domain.ParkingSpace, error) {
	query := `INSERT INTO parking_spaces (lot_id, space_number, status, pos_x, pos_y, width, height, rotation)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, space.LotID, space.SpaceNumber, space.Status,
		space.PosX, space.PosY, space.Width, space.Height, space.Rotation).
		Scan(&space.ID, &space.CreatedAt, &space.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: space number '%s' already exists in lot %d", repository.ErrDuplicateEntry, space.SpaceNumber, space.LotID)
		}
		return nil, fmt.Errorf("ParkingSpaceRepository.Create: %w", err)
	}
	space.CreatedAt = space.CreatedAt.In(time.UTC)
	space.UpdatedAt = space.UpdatedAt.In(time.UTC)
	return space, nil
}

func (r *pgParkingSpaceRepository) FindByID(ctx context.Context, id int) (*domain.ParkingSpace, error) {
	query := `SELECT ` + spaceColumns + ` FROM parking_spaces WHERE id = $1`
	space, err := scanSpace(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSpaceRepository.FindByID: %w", err)
	}
	return space, nil
}

func (r *pgParkingSpaceRepository) FindByLotID(ctx context.Context, lotID int) ([]domain.ParkingSpace, error) {
	query := `SELECT ` + spaceColumns + ` FROM parking_spaces WHERE lot_id = $1 ORDER BY space_number`
	rows, err := r.db.QueryContext(ctx, query, lotID)
	if err != nil {
		return nil, fmt.Errorf("ParkingSpaceRepository.FindByLotID: %w", err)
	}
	defer rows.Close()

	var spaces []domain.ParkingSpace
	for rows.Next() {
		space, err := scanSpace(rows)
		if err != nil {
			return nil, fmt.Errorf("ParkingSpaceRepository.FindByLotID (scanning row): %w", err)
		}
		spaces = append(spaces, *space)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingSpaceRepository.FindByLotID (rows error): %w", err)
	}
	return spaces, nil
}

func (r *pgParkingSpaceRepository) Update(ctx context.Context, space *domain.ParkingSpace) (*domain.ParkingSpace, error) {
	query := `UPDATE parking_spaces SET space_number = $1, status = $2, pos_x = $3, pos_y = $4,
	          width = $5, height = $6, rotation = $7, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $8 RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, space.SpaceNumber, space.Status,
		space.PosX, space.PosY, space.Width, space.Height, space.Rotation, space.ID).Scan(&space.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: space number '%s' already exists in lot %d", repository.ErrDuplicateEntry, space.SpaceNumber, space.LotID)
		}
		return nil, fmt.Errorf("ParkingSpaceRepository.Update: %w", err)
	}
	space.UpdatedAt = space.UpdatedAt.In(time.UTC)
	return space, nil
}

// UpdateLayout saves the canvas editor geometry for many spaces at once.
// All rows must belong to the given lot; the whole save is one transaction.
func (r *pgParkingSpaceRepository) UpdateLayout(ctx context.Context, lotID int, layout []domain.SpaceLayoutDTO) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ParkingSpaceRepository.UpdateLayout (begin): %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE parking_spaces SET pos_x = $1, pos_y = $2, width = $3, height = $4, rotation = $5,
	          updated_at = CURRENT_TIMESTAMP WHERE id = $6 AND lot_id = $7`
	for _, item := range layout {
		result, err := tx.ExecContext(ctx, query, item.PosX, item.PosY, item.Width, item.Height, item.Rotation, item.SpaceID, lotID)
		if err != nil {
			return fmt.Errorf("ParkingSpaceRepository.UpdateLayout: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("ParkingSpaceRepository.UpdateLayout (checking rows affected): %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("%w: space %d in lot %d", repository.ErrNotFound, item.SpaceID, lotID)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ParkingSpaceRepository.UpdateLayout (commit): %w", err)
	}
	return nil
}

func (r *pgParkingSpaceRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM parking_spaces WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ParkingSpaceRepository.Delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingSpaceRepository.Delete (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
