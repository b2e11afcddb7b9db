package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"parking_reserve/internal/api/response"
	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"
	"parking_reserve/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	AuthorizationHeaderKey  = "Authorization"
	AuthorizationTypeBearer = "Bearer"
	// UserKey holds the acting *domain.User in the gin context.
	UserKey = "currentUser"
)

type AuthMiddleware struct {
	authService *service.AuthService
}

func NewAuthMiddleware(authService *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Authenticate validates the bearer token and loads the acting user so
// handlers can enforce ownership. Disabled accounts are rejected even if
// their token is still valid.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeaderKey)
		if authHeader == "" {
			response.AbortError(c, http.StatusUnauthorized, "missing authorization header")
			return
		}

		fields := strings.Fields(authHeader)
		if len(fields) < 2 || !strings.EqualFold(fields[0], AuthorizationTypeBearer) {
			response.AbortError(c, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		_, claims, err := m.authService.ValidateToken(fields[1])
		if err != nil {
			response.AbortError(c, http.StatusUnauthorized, "token is invalid or expired")
			return
		}

		sub, ok := claims["sub"].(string)
		if !ok {
			response.AbortError(c, http.StatusUnauthorized, "token is missing a subject")
			return
		}
		userID, err := strconv.Atoi(sub)
		if err != nil {
			response.AbortError(c, http.StatusUnauthorized, "token subject is not a user id")
			return
		}

		user, err := m.authService.GetUser(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				response.AbortError(c, http.StatusUnauthorized, "user no longer exists")
				return
			}
			response.AbortError(c, http.StatusInternalServerError, "could not load user")
			return
		}
		if !user.IsActive {
			response.AbortError(c, http.StatusForbidden, "user account is disabled")
			return
		}

		c.Set(UserKey, user)
		c.Next()
	}
}

// AuthorizeRole allows the request through only when the acting user has
// one of the given roles. Must run after Authenticate.
func (m *AuthMiddleware) AuthorizeRole(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			response.AbortError(c, http.StatusForbidden, "no authenticated user")
			return
		}
		for _, role := range requiredRoles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		response.AbortError(c, http.StatusForbidden, "insufficient role")
	}
}

// CurrentUser returns the acting user set by Authenticate, or nil.
func CurrentUser(c *gin.Context) *domain.User {
	val, exists := c.Get(UserKey)
	if !exists {
		return nil
	}
	user, ok := val.(*domain.User)
	if !ok {
		return nil
	}
	return user
}
