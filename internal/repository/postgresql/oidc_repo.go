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

type pgOIDCProviderRepository struct {
	db *sql.DB
}

func NewPgOIDCProviderRepository(db *sql.DB) repository.OIDCProviderRepository {
	return &pgOIDCProviderRepository{db: db}
}

const providerColumns = `id, name, issuer_url, client_id, client_secret, scopes, enabled, created_at, updated_at`

func scanProvider(row interface{ Scan(...any) error }) (*domain.OIDCProvider, error) {
	p := &domain.OIDCProvider{}
	err := row.Scan(&p.ID, &p.Name, &p.IssuerURL, &p.ClientID, &p.ClientSecret, &p.Scopes,
		&p.Enabled, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.In(time.UTC)
	p.UpdatedAt = p.UpdatedAt.In(time.UTC)
	return p, nil
}

func (r *pgOIDCProviderRepository) Create(ctx context.Context, provider *domain.OIDCProvider) (*domain.OIDCProvider, error) {
	query := `INSERT INTO oidc_providers (name, issuer_url, client_id, client_secret, scopes, enabled)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, provider.Name, provider.IssuerURL, provider.ClientID,
		provider.ClientSecret, provider.Scopes, provider.Enabled).
		Scan(&provider.ID, &provider.CreatedAt, &provider.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: provider '%s' already exists", repository.ErrDuplicateEntry, provider.Name)
		}
		return nil, fmt.Errorf("OIDCProviderRepository.Create: %w", err)
	}
	return provider, nil
}

func (r *pgOIDCProviderRepository) FindByID(ctx context.Context, id int) (*domain.OIDCProvider, error) {
	provider, err := scanProvider(r.db.QueryRowContext(ctx, `SELECT `+providerColumns+` FROM oidc_providers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("OIDCProviderRepository.FindByID: %w", err)
	}
	return provider, nil
}

func (r *pgOIDCProviderRepository) FindByName(ctx context.Context, name string) (*domain.OIDCProvider, error) {
	provider, err := scanProvider(r.db.QueryRowContext(ctx, `SELECT `+providerColumns+` FROM oidc_providers WHERE name = $1`, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("OIDCProviderRepository.FindByName: %w", err)
	}
	return provider, nil
}

func (r *pgOIDCProviderRepository) findMany(ctx context.Context, query string) ([]domain.OIDCProvider, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var providers []domain.OIDCProvider
	for rows.Next() {
		provider, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		providers = append(providers, *provider)
	}
	return providers, rows.Err()
}

func (r *pgOIDCProviderRepository) FindAll(ctx context.Context) ([]domain.OIDCProvider, error) {
	providers, err := r.findMany(ctx, `SELECT `+providerColumns+` FROM oidc_providers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("OIDCProviderRepository.FindAll: %w", err)
	}
	return providers, nil
}

func (r *pgOIDCProviderRepository) FindEnabled(ctx context.Context) ([]domain.OIDCProvider, error) {
	providers, err := r.findMany(ctx, `SELECT `+providerColumns+` FROM oidc_providers WHERE enabled ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("OIDCProviderRepository.FindEnabled: %w", err)
	}
	return providers, nil
}

func (r *pgOIDCProviderRepository) Update(ctx context.Context, provider *domain.OIDCProvider) (*domain.OIDCProvider, error) {
	query := `UPDATE oidc_providers SET name = $1, issuer_url = $2, client_id = $3, client_secret = $4,
	          scopes = $5, enabled = $6, updated_at = CURRENT_TIMESTAMP WHERE id = $7 RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, provider.Name, provider.IssuerURL, provider.ClientID,
		provider.ClientSecret, provider.Scopes, provider.Enabled, provider.ID).Scan(&provider.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: provider '%s' already exists", repository.ErrDuplicateEntry, provider.Name)
		}
		return nil, fmt.Errorf("OIDCProviderRepository.Update: %w", err)
	}
	return provider, nil
}

func (r *pgOIDCProviderRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM oidc_providers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("OIDCProviderRepository.Delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("OIDCProviderRepository.Delete (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgOIDCProviderRepository) CreateClaimMapping(ctx context.Context, mapping *domain.OIDCClaimMapping) (*domain.OIDCClaimMapping, error) {
	query := `INSERT INTO oidc_claim_mappings (provider_id, claim_name, user_field, default_value)
	          VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, mapping.ProviderID, mapping.ClaimName, mapping.UserField, mapping.DefaultValue).
		Scan(&mapping.ID, &mapping.CreatedAt, &mapping.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: a mapping for field '%s' already exists", repository.ErrDuplicateEntry, mapping.UserField)
		}
		return nil, fmt.Errorf("OIDCProviderRepository.CreateClaimMapping: %w", err)
	}
	return mapping, nil
}

func (r *pgOIDCProviderRepository) FindClaimMappings(ctx context.Context, providerID int) ([]domain.OIDCClaimMapping, error) {
	query := `SELECT id, provider_id, claim_name, user_field, default_value, created_at, updated_at
	          FROM oidc_claim_mappings WHERE provider_id = $1 ORDER BY user_field`
	rows, err := r.db.QueryContext(ctx, query, providerID)
	if err != nil {
		return nil, fmt.Errorf("OIDCProviderRepository.FindClaimMappings: %w", err)
	}
	defer rows.Close()

	var mappings []domain.OIDCClaimMapping
	for rows.Next() {
		var m domain.OIDCClaimMapping
		if err := rows.Scan(&m.ID, &m.ProviderID, &m.ClaimName, &m.UserField, &m.DefaultValue, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("OIDCProviderRepository.FindClaimMappings (scanning row): %w", err)
		}
		mappings = append(mappings, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("OIDCProviderRepository.FindClaimMappings (rows error): %w", err)
	}
	return mappings, nil
}

func (r *pgOIDCProviderRepository) UpdateClaimMapping(ctx context.Context, mapping *domain.OIDCClaimMapping) (*domain.OIDCClaimMapping, error) {
	query := `UPDATE oidc_claim_mappings SET claim_name = $1, user_field = $2, default_value = $3,
	          updated_at = CURRENT_TIMESTAMP WHERE id = $4 RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, mapping.ClaimName, mapping.UserField, mapping.DefaultValue, mapping.ID).
		Scan(&mapping.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("OIDCProviderRepository.UpdateClaimMapping: %w", err)
	}
	return mapping, nil
}

func (r *pgOIDCProviderRepository) DeleteClaimMapping(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM oidc_claim_mappings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("OIDCProviderRepository.DeleteClaimMapping: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("OIDCProviderRepository.DeleteClaimMapping (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
