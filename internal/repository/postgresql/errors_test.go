package postgresql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"testing"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

// stubConnector yields connections that fail every statement with a
// fixed error, matching what the pgx stdlib driver surfaces.
type stubConnector struct {
	err error
}

func (c stubConnector) Connect(context.Context) (driver.Conn, error) { return stubConn{err: c.err}, nil }
func (c stubConnector) Driver() driver.Driver                        { return stubDriver{err: c.err} }

type stubDriver struct {
	err error
}

func (d stubDriver) Open(string) (driver.Conn, error) { return stubConn{err: d.err}, nil }

type stubConn struct {
	err error
}

func (c stubConn) Prepare(string) (driver.Stmt, error) { return nil, c.err }
func (c stubConn) Close() error                        { return nil }
func (c stubConn) Begin() (driver.Tx, error)           { return nil, c.err }

func uniqueViolationErr() *pgconn.PgError {
	return &pgconn.PgError{
		Code:    uniqueViolation,
		Message: `duplicate key value violates unique constraint "users_email_key"`,
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(uniqueViolationErr()))
	assert.True(t, isUniqueViolation(fmt.Errorf("inserting: %w", uniqueViolationErr())))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(fmt.Errorf("plain failure")))
}

func TestCreateMapsUniqueViolation(t *testing.T) {
	db := sql.OpenDB(stubConnector{err: uniqueViolationErr()})
	defer db.Close()

	_, err := NewPgUserRepository(db).Create(context.Background(), &domain.User{Email: "alice@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)

	_, err = NewPgParkingLotRepository(db).Create(context.Background(), &domain.ParkingLot{Name: "North Lot"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)

	_, err = NewPgOIDCProviderRepository(db).Create(context.Background(), &domain.OIDCProvider{Name: "corp"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)
}

func TestCreatePassesThroughOtherErrors(t *testing.T) {
	db := sql.OpenDB(stubConnector{err: &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"}})
	defer db.Close()

	_, err := NewPgUserRepository(db).Create(context.Background(), &domain.User{Email: "alice@example.com"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrDuplicateEntry)
}
