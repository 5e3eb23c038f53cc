package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modular-banking-backend/internal/domain/identity"
)

const (
	// UserIDHeader carries the authenticated user id set by the upstream auth layer
	UserIDHeader = "X-User-ID"

	// UserRoleHeader carries the authenticated user's role
	UserRoleHeader = "X-User-Role"

	// IdentityKey is the key used to store the caller identity in the context
	IdentityKey = "caller_identity"
)

// Identity middleware extracts the authenticated caller from the trusted
// headers set by the upstream auth layer. Requests without a valid identity
// are rejected; role checks themselves happen per operation in the services.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(UserIDHeader)
		if userID == "" {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing user identity")
			return
		}

		role, ok := identity.ParseRole(c.GetHeader(UserRoleHeader))
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or unknown user role")
			return
		}

		c.Set(IdentityKey, identity.Identity{UserID: userID, Role: role})
		c.Next()
	}
}

// GetIdentity retrieves the caller identity from the gin context.
// The second return is false when the Identity middleware did not run.
func GetIdentity(c *gin.Context) (identity.Identity, bool) {
	if v, exists := c.Get(IdentityKey); exists {
		if id, ok := v.(identity.Identity); ok {
			return id, true
		}
	}
	return identity.Identity{}, false
}
