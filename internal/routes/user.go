package routes

import (
	"github.com/gin-gonic/gin"

	"schemaboard/internal/handlers"
	"schemaboard/internal/middlewares"
	"schemaboard/internal/repositories"
)

type UserRoutes struct {
	userHandler *handlers.UserHandler
	redisRepo   *repositories.RedisRepository
}

func NewUserRoutes(userHandler *handlers.UserHandler, redisRepo *repositories.RedisRepository) *UserRoutes {
	return &UserRoutes{userHandler: userHandler, redisRepo: redisRepo}
}

func (r *UserRoutes) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	users.Use(middlewares.Authenticate(r.redisRepo)) // All user routes require authentication
	{
		users.GET("/me", r.userHandler.GetMe)
		users.PATCH("/me", r.userHandler.UpdateMe)
		users.DELETE("/me", r.userHandler.DeleteMe)
	}
}
