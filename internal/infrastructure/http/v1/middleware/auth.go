package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"credvault/internal/core/apperror"
	appctx "credvault/internal/core/context"
	"credvault/internal/core/id"
	"credvault/internal/core/security"
	"credvault/internal/domain/auth"
)

// principalKey is the gin context key for the resolved principal.
const principalKey = "principal"

// TokenValidator verifies a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// PrincipalResolver turns a verified token subject into a fresh user
// snapshot. The token only names the account; role and memberships come
// from the store on every request.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, userID id.ID) (*auth.User, error)
}

// Auth middleware validates the bearer token, resolves the principal
// from the store and populates both request context and gin context.
func Auth(validator TokenValidator, resolver PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		claims, err := validator.ValidateToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		userID, err := id.Parse(claims.UserID)
		if err != nil {
			abortUnauthorized(c, "invalid token subject")
			return
		}

		user, err := resolver.ResolvePrincipal(c.Request.Context(), userID)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		divisionIDs := make([]string, len(user.DivisionIDs))
		for i, divID := range user.DivisionIDs {
			divisionIDs[i] = divID.String()
		}

		ctx := appctx.WithUser(c.Request.Context(), &appctx.UserContext{
			UserID:      user.ID.String(),
			Username:    user.Username,
			Role:        string(user.Role),
			DivisionIDs: divisionIDs,
		})
		c.Request = c.Request.WithContext(ctx)

		c.Set("user_id", user.ID.String())
		c.Set(principalKey, user.Principal())

		c.Next()
	}
}

// GetPrincipal returns the resolved principal for the request.
func GetPrincipal(c *gin.Context) (security.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return security.Principal{}, false
	}
	p, ok := v.(security.Principal)
	return p, ok
}

// RequireAdmin gates a route group to admin principals.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			abortUnauthorized(c, "authentication required")
			return
		}
		if !p.IsAdmin() {
			_ = c.Error(apperror.NewForbidden("admin role required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
