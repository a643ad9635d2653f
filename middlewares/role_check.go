package middlewares

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/steamybites/models"
	"github.com/yeremiapane/steamybites/utils"
)

type UserLookup interface {
	UserByID(ctx context.Context, id uint) (*models.User, error)
}

// RequireAdmin re-reads the user so a token issued before a role change cannot
// reach admin routes. It must run after Authenticate.
func RequireAdmin(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentUserID(c)
		if !ok {
			utils.AbortWithError(c, http.StatusUnauthorized, errors.New("Not authorized"))
			return
		}

		user, err := users.UserByID(c.Request.Context(), id)
		if err != nil {
			utils.AbortWithError(c, http.StatusUnauthorized, errors.New("Not authorized"))
			return
		}
		if !user.IsAdmin() {
			utils.AbortWithError(c, http.StatusForbidden, errors.New("Access denied. Admins only."))
			return
		}

		c.Set(ctxRole, user.Role)
		c.Next()
	}
}
