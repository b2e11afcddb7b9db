package domain

import "time"

type ParkingLot struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ParkingLotDTO struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Address     string `json:"address"`
	Description string `json:"description"`
}
