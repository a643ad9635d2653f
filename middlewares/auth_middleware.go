package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/steamybites/utils"
)

const (
	ctxUserID = "userID"
	ctxRole   = "role"
)

// bearerToken reads "Authorization: Bearer <jwt>". Browsers cannot set headers on a
// websocket handshake, so a token query parameter is accepted as well.
func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if strings.HasPrefix(header, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		}
		return ""
	}
	return c.Query("token")
}

// Authenticate requires a valid token and stores the user id and role on the context.
func Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			utils.AbortWithError(c, http.StatusUnauthorized, errors.New("No token, authorization denied"))
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			utils.AbortWithError(c, http.StatusUnauthorized, errors.New("Token is not valid"))
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// CurrentUserID returns the id Authenticate stored on the context.
func CurrentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}
