package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type BookingStatus string

const (
	BookingActive    BookingStatus = "active"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

type Booking struct {
	ID        int           `json:"id"`
	Reference string        `json:"reference"`
	SpaceID   int           `json:"space_id"`
	UserID    int           `json:"user_id"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Status    BookingStatus `json:"status"`
	Notes     null.String   `json:"notes"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	// Joined for API responses, not persisted on the booking row.
	Space *ParkingSpace `json:"space,omitempty"`
	User  *User         `json:"user,omitempty"`
}

// Overlaps reports whether the booking interval intersects [start, end).
// Touching intervals (end == start) do not conflict.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}

type CreateBookingDTO struct {
	SpaceID   int       `json:"space_id" binding:"required"`
	UserID    int       `json:"user_id"` // admins may book on behalf of others
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
	Notes     string    `json:"notes"`
}

type UpdateBookingDTO struct {
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Notes     *string    `json:"notes"`
}

type BookingFilterDTO struct {
	LotID   *int       `form:"lot_id"`
	SpaceID *int       `form:"space_id"`
	UserID  *int       `form:"user_id"`
	Status  *string    `form:"status"`
	From    *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To      *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit   int        `form:"limit"`
}

// BookingNotification is broadcast over the WebSocket channel whenever a
// booking is created, updated or cancelled.
type BookingNotification struct {
	Event     string    `json:"event"` // "booking_created", "booking_updated", "booking_cancelled"
	BookingID int       `json:"booking_id"`
	Reference string    `json:"reference"`
	SpaceID   int       `json:"space_id"`
	LotID     int       `json:"lot_id,omitempty"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Timestamp time.Time `json:"timestamp"`
}
