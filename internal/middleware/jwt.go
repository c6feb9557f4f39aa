package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/orgkudos/backend/internal/auth"
	"github.com/orgkudos/backend/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextUsername is the key for username in gin context.
	ContextUsername = "username"
)

// Revoker reports whether a token ID has been revoked (logout). A lookup
// error fails open: the token stays valid for the rest of its lifetime
// rather than locking every user out while the denylist store is down.
type Revoker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// JWT returns a middleware that validates JWT and sets user claims in
// context. revoker may be nil to skip the denylist check.
func JWT(jwtService *auth.JWTService, revoker Revoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		if revoker != nil {
			// Fail open on lookup errors, see Revoker.
			revoked, err := revoker.IsRevoked(c.Request.Context(), claims.ID)
			if err == nil && revoked {
				response.Unauthorized(c, "token has been revoked")
				c.Abort()
				return
			}
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextUsername, claims.Username)
		c.Next()
	}
}
