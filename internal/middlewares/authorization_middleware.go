package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"schemaboard/internal/repositories"
)

// RequireVerified allows only users with a verified email through.
// This middleware should be used after Authenticate middleware.
func RequireVerified(userRepo *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userId")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}

		var authenticatedUserID uuid.UUID
		switch v := userID.(type) {
		case uuid.UUID:
			authenticatedUserID = v
		case string:
			parsed, err := uuid.Parse(v)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid user ID format"})
				return
			}
			authenticatedUserID = parsed
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid user ID format"})
			return
		}

		user, err := userRepo.FindUserByID(authenticatedUserID)
		if err != nil || user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "User not found"})
			return
		}

		if !user.Verified {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Please verify your email address first."})
			return
		}

		c.Set("authenticatedUser", user)
		c.Next()
	}
}
