package routes

import (
	"github.com/gin-gonic/gin"

	"schemaboard/internal/handlers"
	"schemaboard/internal/middlewares"
	"schemaboard/internal/repositories"
)

type DiagramRoutes struct {
	diagramHandler *handlers.DiagramHandler
	userRepo       *repositories.UserRepository
	redisRepo      *repositories.RedisRepository
}

func NewDiagramRoutes(diagramHandler *handlers.DiagramHandler, userRepo *repositories.UserRepository, redisRepo *repositories.RedisRepository) *DiagramRoutes {
	return &DiagramRoutes{
		diagramHandler: diagramHandler,
		userRepo:       userRepo,
		redisRepo:      redisRepo,
	}
}

func (r *DiagramRoutes) RegisterRoutes(router *gin.RouterGroup) {
	// The public share link needs no token at all.
	router.GET("/public/diagrams/:slug", r.diagramHandler.GetPublic)

	diagrams := router.Group("/diagrams")
	diagrams.Use(middlewares.Authenticate(r.redisRepo))
	{
		diagrams.POST("", r.diagramHandler.Create)
		diagrams.GET("", r.diagramHandler.List)
		diagrams.GET("/:diagram_id", r.diagramHandler.Get)
		diagrams.PUT("/:diagram_id", r.diagramHandler.Update)
		diagrams.DELETE("/:diagram_id", r.diagramHandler.Delete)

		// Sharing is owner-only and gated on a verified account.
		sharing := diagrams.Group("/:diagram_id/collaborators")
		sharing.Use(middlewares.RequireVerified(r.userRepo))
		sharing.POST("", r.diagramHandler.Share)
		sharing.GET("", r.diagramHandler.Collaborators)
		sharing.DELETE("/:user_id", r.diagramHandler.Unshare)
	}
}
