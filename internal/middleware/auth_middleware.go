package middleware

import (
	"net/http"
	"strings"

	"neuroscan/internal/services"
	"neuroscan/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

const UserIDKey = "user_id"

// AuthMiddleware requires a valid Bearer token and stores the user id on
// the gin context.
func AuthMiddleware(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpdto.NewErrorResponse("missing bearer token"))
			return
		}

		userID, err := authService.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpdto.NewErrorResponse("invalid token"))
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}
