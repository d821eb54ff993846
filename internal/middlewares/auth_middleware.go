package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"schemaboard/internal/repositories"
	"schemaboard/internal/utils"
)

// Authenticate validates the Bearer access token and rejects tokens revoked
// through logout.
func Authenticate(redisRepo *repositories.RedisRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Missing Authorization header"})
			return
		}

		// Expected format: "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid Authorization format"})
			return
		}

		claims, err := utils.VerifyJWT(parts[1], utils.AccessTokenSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}

		revoked, err := redisRepo.IsBlacklisted(c.Request.Context(), claims.ID)
		if err != nil || revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token has been revoked"})
			return
		}

		// Store the user ID in context for handlers
		c.Set("userId", claims.UserID)
		c.Set("tokenId", claims.ID)

		c.Next()
	}
}
