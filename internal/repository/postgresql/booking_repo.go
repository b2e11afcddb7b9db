package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"
)

type pgBookingRepository struct {
	db *sql.DB
}

func NewPgBookingRepository(db *sql.DB) repository.BookingRepository {
	return &pgBookingRepository{db: db}
}

const bookingColumns = `id, reference, space_id, user_id, start_time, end_time, status, notes, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*domain.Booking, error) {
	b := &domain.Booking{}
	err := row.Scan(&b.ID, &b.Reference, &b.SpaceID, &b.UserID, &b.StartTime, &b.EndTime,
		&b.Status, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.StartTime = b.StartTime.In(time.UTC)
	b.EndTime = b.EndTime.In(time.UTC)
	b.CreatedAt = b.CreatedAt.In(time.UTC)
	b.UpdatedAt = b.UpdatedAt.In(time.UTC)
	return b, nil
}

// lockSpace takes a row lock on the parking space so two concurrent
// bookings for the same space serialize on the conflict check.
func lockSpace(ctx context.Context, tx *sql.Tx, spaceID int) error {
	var id int
	err := tx.QueryRowContext(ctx, `SELECT id FROM parking_spaces WHERE id = $1 FOR UPDATE`, spaceID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return err
	}
	return nil
}

func hasOverlap(ctx context.Context, tx *sql.Tx, spaceID int, start, end time.Time, excludeID int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (
		SELECT 1 FROM bookings
		WHERE space_id = $1 AND status = 'active' AND id <> $2
		  AND start_time < $4 AND end_time > $3
	)`
	err := tx.QueryRowContext(ctx, query, spaceID, excludeID, start, end).Scan(&exists)
	return exists, err
}

func (r *pgBookingRepository) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("BookingRepository.Create (begin): %w", err)
	}
	defer tx.Rollback()

	if err := lockSpace(ctx, tx, booking.SpaceID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("BookingRepository.Create (locking space): %w", err)
	}

	overlap, err := hasOverlap(ctx, tx, booking.SpaceID, booking.StartTime, booking.EndTime, 0)
	if err != nil {
		return nil, fmt.Errorf("BookingRepository.Create (overlap check): %w", err)
	}
	if overlap {
		return nil, repository.ErrBookingConflict
	}

	query := `INSERT INTO bookings (reference, space_id, user_id, start_time, end_time, status, notes)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id, created_at, updated_at`
	err = tx.QueryRowContext(ctx, query, booking.Reference, booking.SpaceID, booking.UserID,
		booking.StartTime, booking.EndTime, booking.Status, booking.Notes).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("BookingRepository.Create: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("BookingRepository.Create (commit): %w", err)
	}
	booking.CreatedAt = booking.CreatedAt.In(time.UTC)
	booking.UpdatedAt = booking.UpdatedAt.In(time.UTC)
	return booking, nil
}

func (r *pgBookingRepository) UpdateInterval(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("BookingRepository.UpdateInterval (begin): %w", err)
	}
	defer tx.Rollback()

	if err := lockSpace(ctx, tx, booking.SpaceID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("BookingRepository.UpdateInterval (locking space): %w", err)
	}

	overlap, err := hasOverlap(ctx, tx, booking.SpaceID, booking.StartTime, booking.EndTime, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("BookingRepository.UpdateInterval (overlap check): %w", err)
	}
	if overlap {
		return nil, repository.ErrBookingConflict
	}

	query := `UPDATE bookings SET start_time = $1, end_time = $2, notes = $3, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $4 RETURNING updated_at`
	err = tx.QueryRowContext(ctx, query, booking.StartTime, booking.EndTime, booking.Notes, booking.ID).Scan(&booking.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("BookingRepository.UpdateInterval: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("BookingRepository.UpdateInterval (commit): %w", err)
	}
	booking.UpdatedAt = booking.UpdatedAt.In(time.UTC)
	return booking, nil
}

func (r *pgBookingRepository) FindByID(ctx context.Context, id int) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("BookingRepository.FindByID: %w", err)
	}
	return booking, nil
}

func (r *pgBookingRepository) Find(ctx context.Context, filter domain.BookingFilterDTO) ([]domain.Booking, error) {
	var conditions []string
	var args []any

	add := func(cond string, value any) {
		args = append(args, value)
		conditions = append(conditions, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}

	if filter.LotID != nil {
		add(`b.space_id IN (SELECT id FROM parking_spaces WHERE lot_id = ?)`, *filter.LotID)
	}
	if filter.SpaceID != nil {
		add(`b.space_id = ?`, *filter.SpaceID)
	}
	if filter.UserID != nil {
		add(`b.user_id = ?`, *filter.UserID)
	}
	if filter.Status != nil {
		add(`b.status = ?`, *filter.Status)
	}
	if filter.From != nil {
		add(`b.end_time > ?`, *filter.From)
	}
	if filter.To != nil {
		add(`b.start_time < ?`, *filter.To)
	}

	query := `SELECT b.id, b.reference, b.space_id, b.user_id, b.start_time, b.end_time, b.status, b.notes, b.created_at, b.updated_at
	          FROM bookings b`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY b.start_time DESC`
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("BookingRepository.Find: %w", err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("BookingRepository.Find (scanning row): %w", err)
		}
		bookings = append(bookings, *booking)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("BookingRepository.Find (rows error): %w", err)
	}
	return bookings, nil
}

// FindAll returns every booking. Backup snapshots must contain the
// complete table, so no limit applies here.
func (r *pgBookingRepository) FindAll(ctx context.Context) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("BookingRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("BookingRepository.FindAll (scanning row): %w", err)
		}
		bookings = append(bookings, *booking)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("BookingRepository.FindAll (rows error): %w", err)
	}
	return bookings, nil
}

func (r *pgBookingRepository) FindActiveBySpaceAndRange(ctx context.Context, spaceID int, start, end time.Time) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
	          WHERE space_id = $1 AND status = 'active' AND start_time < $3 AND end_time > $2
	          ORDER BY start_time`
	rows, err := r.db.QueryContext(ctx, query, spaceID, start, end)
	if err != nil {
		return nil, fmt.Errorf("BookingRepository.FindActiveBySpaceAndRange: %w", err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("BookingRepository.FindActiveBySpaceAndRange (scanning row): %w", err)
		}
		bookings = append(bookings, *booking)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("BookingRepository.FindActiveBySpaceAndRange (rows error): %w", err)
	}
	return bookings, nil
}

func (r *pgBookingRepository) UpdateStatus(ctx context.Context, id int, status domain.BookingStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("BookingRepository.UpdateStatus: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("BookingRepository.UpdateStatus (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgBookingRepository) UpdateNotes(ctx context.Context, id int, notes string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET notes = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, notes, id)
	if err != nil {
		return fmt.Errorf("BookingRepository.UpdateNotes: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("BookingRepository.UpdateNotes (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgBookingRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("BookingRepository.Delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("BookingRepository.Delete (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgBookingRepository) CompleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = 'completed', updated_at = CURRENT_TIMESTAMP
		 WHERE status = 'active' AND end_time <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("BookingRepository.CompleteExpired: %w", err)
	}
	return result.RowsAffected()
}

func (r *pgBookingRepository) ExportRows(ctx context.Context, filter domain.BookingFilterDTO) ([]domain.ReportRow, error) {
	var conditions []string
	var args []any

	add := func(cond string, value any) {
		args = append(args, value)
		conditions = append(conditions, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if filter.LotID != nil {
		add(`l.id = ?`, *filter.LotID)
	}
	if filter.Status != nil {
		add(`b.status = ?`, *filter.Status)
	}
	if filter.From != nil {
		add(`b.end_time > ?`, *filter.From)
	}
	if filter.To != nil {
		add(`b.start_time < ?`, *filter.To)
	}

	query := `SELECT b.reference, l.name, s.space_number, u.email, u.display_name,
	                 b.start_time, b.end_time, b.status, COALESCE(b.notes, ''), b.created_at
	          FROM bookings b
	          JOIN parking_spaces s ON s.id = b.space_id
	          JOIN parking_lots l ON l.id = s.lot_id
	          JOIN users u ON u.id = b.user_id`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY b.start_time`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("BookingRepository.ExportRows: %w", err)
	}
	defer rows.Close()

	var out []domain.ReportRow
	for rows.Next() {
		var row domain.ReportRow
		if err := rows.Scan(&row.Reference, &row.LotName, &row.SpaceNumber, &row.UserEmail, &row.UserName,
			&row.StartTime, &row.EndTime, &row.Status, &row.Notes, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("BookingRepository.ExportRows (scanning row): %w", err)
		}
		out = append(out, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("BookingRepository.ExportRows (rows error): %w", err)
	}
	return out, nil
}
