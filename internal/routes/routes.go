package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"schemaboard/internal/handlers"
	"schemaboard/internal/repositories"
)

func RegisterRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	diagramHandler *handlers.DiagramHandler,
	schemaHandler *handlers.SchemaHandler,
	collabHandler *handlers.CollabHandler,
	userRepo *repositories.UserRepository,
	redisRepo *repositories.RedisRepository,
) {
	api := router.Group("/api/v1")

	authRoutes := NewAuthRoutes(authHandler, redisRepo)
	authRoutes.RegisterRoutes(api)

	userRoutes := NewUserRoutes(userHandler, redisRepo)
	userRoutes.RegisterRoutes(api)

	diagramRoutes := NewDiagramRoutes(diagramHandler, userRepo, redisRepo)
	diagramRoutes.RegisterRoutes(api)

	schemaRoutes := NewSchemaRoutes(schemaHandler, redisRepo)
	schemaRoutes.RegisterRoutes(api)

	collabRoutes := NewCollabRoutes(collabHandler)
	collabRoutes.RegisterRoutes(api)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
}
