package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"
	"parking_reserve/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUserRepo struct {
	users map[int]*domain.User
}

func (r *stubUserRepo) FindByID(_ context.Context, id int) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r *stubUserRepo) Create(context.Context, *domain.User) (*domain.User, error) {
	return nil, repository.ErrNotFound
}
func (r *stubUserRepo) FindByEmail(context.Context, string) (*domain.User, error) {
	return nil, repository.ErrNotFound
}
func (r *stubUserRepo) FindByOIDCSubject(context.Context, int, string) (*domain.User, error) {
	return nil, repository.ErrNotFound
}
func (r *stubUserRepo) FindAll(context.Context) ([]domain.User, error) { return nil, nil }
func (r *stubUserRepo) Update(context.Context, *domain.User) (*domain.User, error) {
	return nil, repository.ErrNotFound
}
func (r *stubUserRepo) UpdatePassword(context.Context, int, string) error { return nil }
func (r *stubUserRepo) LinkOIDCSubject(context.Context, int, int, string) error {
	return nil
}
func (r *stubUserRepo) Delete(context.Context, int) error { return nil }

func setupRouter(t *testing.T) (*gin.Engine, *service.AuthService, *stubUserRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := &stubUserRepo{users: map[int]*domain.User{
		1: {ID: 1, Email: "alice@example.com", Role: domain.RoleUser, IsActive: true},
		2: {ID: 2, Email: "admin@example.com", Role: domain.RoleAdmin, IsActive: true},
		3: {ID: 3, Email: "off@example.com", Role: domain.RoleUser, IsActive: false},
	}}
	authService := service.NewAuthService(repo, "test-secret", time.Hour)
	mw := NewAuthMiddleware(authService)

	r := gin.New()
	r.GET("/me", mw.Authenticate(), func(c *gin.Context) {
		c.JSON(http.StatusOK, CurrentUser(c))
	})
	r.GET("/admin", mw.Authenticate(), mw.AuthorizeRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r, authService, repo
}

func doRequest(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	r, authService, repo := setupRouter(t)

	auth, err := authService.IssueToken(repo.users[1])
	require.NoError(t, err)

	w := doRequest(r, "/me", auth.Token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice@example.com")

	w = doRequest(r, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"error_type":"unauthorized"`)

	w = doRequest(r, "/me", "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticateDisabledUser(t *testing.T) {
	r, authService, repo := setupRouter(t)

	auth, err := authService.IssueToken(repo.users[3])
	require.NoError(t, err)

	w := doRequest(r, "/me", auth.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthenticateDeletedUser(t *testing.T) {
	r, authService, _ := setupRouter(t)

	auth, err := authService.IssueToken(&domain.User{ID: 99, Email: "gone@example.com", Role: domain.RoleUser})
	require.NoError(t, err)

	w := doRequest(r, "/me", auth.Token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthorizeRole(t *testing.T) {
	r, authService, repo := setupRouter(t)

	userAuth, err := authService.IssueToken(repo.users[1])
	require.NoError(t, err)
	adminAuth, err := authService.IssueToken(repo.users[2])
	require.NoError(t, err)

	w := doRequest(r, "/admin", userAuth.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"error_type":"forbidden"`)

	w = doRequest(r, "/admin", adminAuth.Token)
	assert.Equal(t, http.StatusOK, w.Code)
}
