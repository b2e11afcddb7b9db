package domain

import "time"

type OIDCProvider struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	IssuerURL    string    `json:"issuer_url"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"-"`
	Scopes       string    `json:"scopes"` // space separated, "openid profile email" by default
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type OIDCProviderDTO struct {
	Name         string `json:"name" binding:"required,min=1,max=50"`
	IssuerURL    string `json:"issuer_url" binding:"required,url"`
	ClientID     string `json:"client_id" binding:"required"`
	ClientSecret string `json:"client_secret"`
	Scopes       string `json:"scopes"`
	Enabled      *bool  `json:"enabled"`
}

// Claim mapping targets. Role values resolved from claims must still be one
// of the internal roles, otherwise the mapping default applies.
const (
	ClaimFieldEmail       = "email"
	ClaimFieldDisplayName = "display_name"
	ClaimFieldRole        = "role"
)

type OIDCClaimMapping struct {
	ID           int       `json:"id"`
	ProviderID   int       `json:"provider_id"`
	ClaimName    string    `json:"claim_name"`
	UserField    string    `json:"user_field"`
	DefaultValue string    `json:"default_value"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type OIDCClaimMappingDTO struct {
	ClaimName    string `json:"claim_name" binding:"required"`
	UserField    string `json:"user_field" binding:"required,oneof=email display_name role"`
	DefaultValue string `json:"default_value"`
}

// PublicProviderDTO is what the login page sees: no client credentials.
type PublicProviderDTO struct {
	Name     string `json:"name"`
	LoginURL string `json:"login_url"`
}
