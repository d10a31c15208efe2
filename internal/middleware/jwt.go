package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quartzcap/dataroom/internal/pkg/jwt"
	"github.com/quartzcap/dataroom/internal/pkg/response"
)

const (
	ContextUserIDKey    = "user_id"
	ContextUserEmailKey = "user_email"
	ContextUserNameKey  = "user_name"
)

// JWTAuth gates the staff surface. The token is minted upstream by the
// platform's authentication layer and carries the verified {email, name}
// identity this subsystem relies on.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, http.StatusUnauthorized, "unauthorized", "missing authorization")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, http.StatusUnauthorized, "unauthorized", "invalid authorization")
			c.Abort()
			return
		}
		claims, err := jwt.ParseToken(parts[1], secret)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			c.Abort()
			return
		}
		c.Set(ContextUserIDKey, claims.UserID)
		if claims.Email != "" {
			c.Set(ContextUserEmailKey, claims.Email)
		}
		if claims.Name != "" {
			c.Set(ContextUserNameKey, claims.Name)
		}
		c.Next()
	}
}

// OptionalJWT attaches the verified staff identity when a valid bearer
// token is present but never rejects the request. Public share routes use
// it so a logged-in staff member browsing a link is identified by their
// session rather than by self-asserted fields.
func OptionalJWT(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if claims, err := jwt.ParseToken(parts[1], secret); err == nil {
				c.Set(ContextUserIDKey, claims.UserID)
				c.Set(ContextUserEmailKey, claims.Email)
				c.Set(ContextUserNameKey, claims.Name)
			}
		}
		c.Next()
	}
}
