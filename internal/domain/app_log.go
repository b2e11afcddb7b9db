package domain

import "time"

type ApplicationLog struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Component string    `json:"component"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type LogFilterDTO struct {
	Level     *string `form:"level"`
	Component *string `form:"component"`
	Limit     int     `form:"limit"`
}
