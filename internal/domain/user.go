package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID           int         `json:"id"`
	Email        string      `json:"email"`
	Password     string      `json:"-"` // bcrypt hash, empty for OIDC-only accounts
	DisplayName  string      `json:"display_name"`
	Role         string      `json:"role"`
	IsActive     bool        `json:"is_active"`
	OIDCSubject  null.String `json:"oidc_subject,omitempty"`
	OIDCProvider null.Int    `json:"oidc_provider_id,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type RegisterUserDTO struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8,max=100"`
	DisplayName string `json:"display_name" binding:"required,min=2,max=100"`
}

type LoginUserDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponseDTO struct {
	Token       string `json:"token"`
	UserID      int    `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// CreateUserDTO is the admin-side user creation payload.
type CreateUserDTO struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8,max=100"`
	DisplayName string `json:"display_name" binding:"required,min=2,max=100"`
	Role        string `json:"role" binding:"omitempty,oneof=admin user"`
}

type UpdateUserDTO struct {
	Email       *string `json:"email" binding:"omitempty,email"`
	DisplayName *string `json:"display_name" binding:"omitempty,min=2,max=100"`
	Role        *string `json:"role" binding:"omitempty,oneof=admin user"`
	IsActive    *bool   `json:"is_active"`
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=100"`
}
