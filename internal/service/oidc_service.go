package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"

	"github.com/rs/zerolog"
	"github.com/zitadel/oidc/v3/pkg/client/rp"
	"github.com/zitadel/oidc/v3/pkg/oidc"
	"gopkg.in/guregu/null.v4"
)

var ErrProviderDisabled = errors.New("the OIDC provider is disabled")
var ErrStateInvalid = errors.New("login state is invalid or expired")
var ErrProvisioningFailed = errors.New("could not provision user from OIDC claims")

const stateTTL = 10 * time.Minute

// loginState holds per-login flow data between the redirect and the callback.
type loginState struct {
	providerID   int
	codeVerifier string
	expiresAt    time.Time
}

// OIDCService drives the authorization-code flow with PKCE against
// DB-configured providers and maps external claims onto local users.
type OIDCService struct {
	providerRepo repository.OIDCProviderRepository
	userRepo     repository.UserRepository
	authService  *AuthService
	baseURL      string
	logger       zerolog.Logger

	mu     sync.Mutex
	states map[string]loginState
	// relying parties are cached per provider and rebuilt when the
	// provider row changes
	parties map[int]cachedParty
}

type cachedParty struct {
	party     rp.RelyingParty
	updatedAt time.Time
}

func NewOIDCService(
	providerRepo repository.OIDCProviderRepository,
	userRepo repository.UserRepository,
	authService *AuthService,
	baseURL string,
	logger zerolog.Logger,
) *OIDCService {
	return &OIDCService{
		providerRepo: providerRepo,
		userRepo:     userRepo,
		authService:  authService,
		baseURL:      strings.TrimRight(baseURL, "/"),
		logger:       logger.With().Str("component", "oidc").Logger(),
		states:       make(map[string]loginState),
		parties:      make(map[int]cachedParty),
	}
}

// PublicProviders lists enabled providers for the login page.
func (s *OIDCService) PublicProviders(ctx context.Context) ([]domain.PublicProviderDTO, error) {
	providers, err := s.providerRepo.FindEnabled(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PublicProviderDTO, 0, len(providers))
	for _, p := range providers {
		out = append(out, domain.PublicProviderDTO{
			Name:     p.Name,
			LoginURL: fmt.Sprintf("%s/auth/oidc/%s/login", s.baseURL, p.Name),
		})
	}
	return out, nil
}

// BeginLogin returns the provider's authorization URL with state and PKCE
// challenge attached.
func (s *OIDCService) BeginLogin(ctx context.Context, providerName string) (string, error) {
	provider, err := s.providerRepo.FindByName(ctx, providerName)
	if err != nil {
		return "", err
	}
	if !provider.Enabled {
		return "", ErrProviderDisabled
	}

	party, err := s.relyingParty(ctx, provider)
	if err != nil {
		return "", err
	}

	state, err := randomToken()
	if err != nil {
		return "", err
	}
	verifier, err := randomToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.pruneStatesLocked()
	s.states[state] = loginState{
		providerID:   provider.ID,
		codeVerifier: verifier,
		expiresAt:    time.Now().Add(stateTTL),
	}
	s.mu.Unlock()

	authURL := rp.AuthURL(state, party, rp.WithCodeChallenge(oidc.NewSHACodeChallenge(verifier)))
	s.logger.Debug().Str("provider", provider.Name).Msg("generated OIDC authorization URL")
	return authURL, nil
}

// HandleCallback exchanges the authorization code, applies the configured
// claim mappings, provisions the user if needed and issues an app token.
func (s *OIDCService) HandleCallback(ctx context.Context, providerName, state, code string) (*domain.AuthResponseDTO, error) {
	provider, err := s.providerRepo.FindByName(ctx, providerName)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	ls, ok := s.states[state]
	delete(s.states, state)
	s.mu.Unlock()
	if !ok || ls.providerID != provider.ID || time.Now().After(ls.expiresAt) {
		return nil, ErrStateInvalid
	}

	party, err := s.relyingParty(ctx, provider)
	if err != nil {
		return nil, err
	}

	tokens, err := rp.CodeExchange[*oidc.IDTokenClaims](ctx, code, party, rp.WithCodeVerifier(ls.codeVerifier))
	if err != nil {
		s.logger.Warn().Err(err).Str("provider", provider.Name).Msg("token exchange failed")
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	if tokens.IDTokenClaims == nil {
		return nil, fmt.Errorf("%w: no ID token claims", ErrProvisioningFailed)
	}

	mappings, err := s.providerRepo.FindClaimMappings(ctx, provider.ID)
	if err != nil {
		return nil, err
	}

	user, err := s.provisionUser(ctx, provider, tokens.IDTokenClaims, mappings)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}
	return s.authService.IssueToken(user)
}

// applyClaimMappings resolves email, display name and role from the ID
// token per the provider's configured mappings, falling back to standard
// claims and then to mapping defaults.
func applyClaimMappings(claims *oidc.IDTokenClaims, mappings []domain.OIDCClaimMapping) (email, displayName, role string) {
	email = claims.Email
	displayName = claims.Name
	if displayName == "" {
		displayName = claims.PreferredUsername
	}
	role = domain.RoleUser

	for _, m := range mappings {
		value := claimString(claims, m.ClaimName)
		if value == "" {
			value = m.DefaultValue
		}
		if value == "" {
			continue
		}
		switch m.UserField {
		case domain.ClaimFieldEmail:
			email = value
		case domain.ClaimFieldDisplayName:
			displayName = value
		case domain.ClaimFieldRole:
			if value == domain.RoleAdmin || value == domain.RoleUser {
				role = value
			}
		}
	}
	return email, displayName, role
}

func claimString(claims *oidc.IDTokenClaims, name string) string {
	switch name {
	case "email":
		return claims.Email
	case "name":
		return claims.Name
	case "preferred_username":
		return claims.PreferredUsername
	case "sub":
		return claims.Subject
	}
	if v, ok := claims.Claims[name]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return ""
}

func (s *OIDCService) provisionUser(ctx context.Context, provider *domain.OIDCProvider, claims *oidc.IDTokenClaims, mappings []domain.OIDCClaimMapping) (*domain.User, error) {
	user, err := s.userRepo.FindByOIDCSubject(ctx, provider.ID, claims.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	email, displayName, role := applyClaimMappings(claims, mappings)
	if email == "" {
		return nil, fmt.Errorf("%w: no email claim", ErrProvisioningFailed)
	}
	if displayName == "" {
		displayName = email
	}

	// Link an existing local account with the same email instead of
	// creating a duplicate.
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		if err := s.userRepo.LinkOIDCSubject(ctx, existing.ID, provider.ID, claims.Subject); err != nil {
			return nil, err
		}
		existing.OIDCSubject = null.StringFrom(claims.Subject)
		existing.OIDCProvider = null.IntFrom(int64(provider.ID))
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	created, err := s.userRepo.Create(ctx, &domain.User{
		Email:        email,
		DisplayName:  displayName,
		Role:         role,
		IsActive:     true,
		OIDCSubject:  null.StringFrom(claims.Subject),
		OIDCProvider: null.IntFrom(int64(provider.ID)),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("provider", provider.Name).Str("email", email).Msg("provisioned user from OIDC login")
	return created, nil
}

// relyingParty returns the cached client for a provider, performing OIDC
// discovery on first use or after the provider row changed.
func (s *OIDCService) relyingParty(ctx context.Context, provider *domain.OIDCProvider) (rp.RelyingParty, error) {
	s.mu.Lock()
	cached, ok := s.parties[provider.ID]
	s.mu.Unlock()
	if ok && cached.updatedAt.Equal(provider.UpdatedAt) {
		return cached.party, nil
	}

	scopes := strings.Fields(provider.Scopes)
	if len(scopes) == 0 {
		scopes = []string{"openid", "profile", "email"}
	}
	redirectURL := fmt.Sprintf("%s/auth/oidc/%s/callback", s.baseURL, provider.Name)

	party, err := rp.NewRelyingPartyOIDC(ctx,
		provider.IssuerURL,
		provider.ClientID,
		provider.ClientSecret,
		redirectURL,
		scopes,
		rp.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating relying party for '%s': %w", provider.Name, err)
	}

	s.mu.Lock()
	s.parties[provider.ID] = cachedParty{party: party, updatedAt: provider.UpdatedAt}
	s.mu.Unlock()
	return party, nil
}

func (s *OIDCService) pruneStatesLocked() {
	now := time.Now()
	for key, ls := range s.states {
		if now.After(ls.expiresAt) {
			delete(s.states, key)
		}
	}
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// --- Provider administration ---

func (s *OIDCService) ListProviders(ctx context.Context) ([]domain.OIDCProvider, error) {
	return s.providerRepo.FindAll(ctx)
}

func (s *OIDCService) GetProvider(ctx context.Context, id int) (*domain.OIDCProvider, error) {
	return s.providerRepo.FindByID(ctx, id)
}

func (s *OIDCService) CreateProvider(ctx context.Context, dto domain.OIDCProviderDTO) (*domain.OIDCProvider, error) {
	provider := &domain.OIDCProvider{
		Name:         dto.Name,
		IssuerURL:    dto.IssuerURL,
		ClientID:     dto.ClientID,
		ClientSecret: dto.ClientSecret,
		Scopes:       dto.Scopes,
		Enabled:      true,
	}
	if provider.Scopes == "" {
		provider.Scopes = "openid profile email"
	}
	if dto.Enabled != nil {
		provider.Enabled = *dto.Enabled
	}
	return s.providerRepo.Create(ctx, provider)
}

func (s *OIDCService) UpdateProvider(ctx context.Context, id int, dto domain.OIDCProviderDTO) (*domain.OIDCProvider, error) {
	provider, err := s.providerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	provider.Name = dto.Name
	provider.IssuerURL = dto.IssuerURL
	provider.ClientID = dto.ClientID
	if dto.ClientSecret != "" {
		provider.ClientSecret = dto.ClientSecret
	}
	if dto.Scopes != "" {
		provider.Scopes = dto.Scopes
	}
	if dto.Enabled != nil {
		provider.Enabled = *dto.Enabled
	}
	updated, err := s.providerRepo.Update(ctx, provider)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.parties, id)
	s.mu.Unlock()
	return updated, nil
}

func (s *OIDCService) DeleteProvider(ctx context.Context, id int) error {
	if err := s.providerRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.parties, id)
	s.mu.Unlock()
	return nil
}

func (s *OIDCService) ListClaimMappings(ctx context.Context, providerID int) ([]domain.OIDCClaimMapping, error) {
	if _, err := s.providerRepo.FindByID(ctx, providerID); err != nil {
		return nil, err
	}
	return s.providerRepo.FindClaimMappings(ctx, providerID)
}

func (s *OIDCService) CreateClaimMapping(ctx context.Context, providerID int, dto domain.OIDCClaimMappingDTO) (*domain.OIDCClaimMapping, error) {
	if _, err := s.providerRepo.FindByID(ctx, providerID); err != nil {
		return nil, err
	}
	mapping := &domain.OIDCClaimMapping{
		ProviderID:   providerID,
		ClaimName:    dto.ClaimName,
		UserField:    dto.UserField,
		DefaultValue: dto.DefaultValue,
	}
	return s.providerRepo.CreateClaimMapping(ctx, mapping)
}

func (s *OIDCService) UpdateClaimMapping(ctx context.Context, id int, dto domain.OIDCClaimMappingDTO) (*domain.OIDCClaimMapping, error) {
	mapping := &domain.OIDCClaimMapping{
		ID:           id,
		ClaimName:    dto.ClaimName,
		UserField:    dto.UserField,
		DefaultValue: dto.DefaultValue,
	}
	return s.providerRepo.UpdateClaimMapping(ctx, mapping)
}

func (s *OIDCService) DeleteClaimMapping(ctx context.Context, id int) error {
	return s.providerRepo.DeleteClaimMapping(ctx, id)
}
