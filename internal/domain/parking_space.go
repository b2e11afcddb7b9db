package domain

import "time"

type SpaceStatus string

const (
	SpaceAvailable   SpaceStatus = "available"
	SpaceBlocked     SpaceStatus = "blocked"
	SpaceMaintenance SpaceStatus = "maintenance"
)

// ParkingSpace carries the canvas geometry (pos_x/pos_y/width/height/rotation)
// so the front-end can place spaces on the lot drawing.
type ParkingSpace struct {
	ID          int         `json:"id"`
	LotID       int         `json:"lot_id"`
	SpaceNumber string      `json:"space_number"`
	Status      SpaceStatus `json:"status"`
	PosX        float64     `json:"pos_x"`
	PosY        float64     `json:"pos_y"`
	Width       float64     `json:"width"`
	Height      float64     `json:"height"`
	Rotation    float64     `json:"rotation"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type ParkingSpaceDTO struct {
	SpaceNumber string  `json:"space_number" binding:"required,min=1,max=20"`
	Status      string  `json:"status" binding:"omitempty,oneof=available blocked maintenance"`
	PosX        float64 `json:"pos_x"`
	PosY        float64 `json:"pos_y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Rotation    float64 `json:"rotation"`
}

// SpaceLayoutDTO is one element of a bulk layout save from the canvas editor.
type SpaceLayoutDTO struct {
	SpaceID  int     `json:"space_id" binding:"required"`
	PosX     float64 `json:"pos_x"`
	PosY     float64 `json:"pos_y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
}

// SpaceAvailability is a space plus its bookability for a requested interval.
type SpaceAvailability struct {
	ParkingSpace
	Free bool `json:"free"`
}
