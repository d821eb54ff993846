package routes

import (
	"github.com/gin-gonic/gin"

	"schemaboard/internal/handlers"
	"schemaboard/internal/middlewares"
	"schemaboard/internal/repositories"
)

type AuthRoutes struct {
	handler   *handlers.AuthHandler
	redisRepo *repositories.RedisRepository
}

func NewAuthRoutes(handler *handlers.AuthHandler, redisRepo *repositories.RedisRepository) *AuthRoutes {
	return &AuthRoutes{handler: handler, redisRepo: redisRepo}
}

func (r *AuthRoutes) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		// Public routes
		auth.POST("/register", r.handler.Register)
		auth.POST("/login", r.handler.Login)
		auth.POST("/refresh", r.handler.Refresh)

		// Protected routes
		protected := auth.Group("/")
		protected.Use(middlewares.Authenticate(r.redisRepo))
		protected.POST("/logout", r.handler.Logout)
	}
}
