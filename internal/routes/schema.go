package routes

import (
	"github.com/gin-gonic/gin"

	"schemaboard/internal/handlers"
	"schemaboard/internal/middlewares"
	"schemaboard/internal/repositories"
)

type SchemaRoutes struct {
	schemaHandler *handlers.SchemaHandler
	redisRepo     *repositories.RedisRepository
}

func NewSchemaRoutes(schemaHandler *handlers.SchemaHandler, redisRepo *repositories.RedisRepository) *SchemaRoutes {
	return &SchemaRoutes{schemaHandler: schemaHandler, redisRepo: redisRepo}
}

func (r *SchemaRoutes) RegisterRoutes(router *gin.RouterGroup) {
	schemas := router.Group("/schema")
	schemas.Use(middlewares.Authenticate(r.redisRepo))
	{
		schemas.POST("/import-sql", r.schemaHandler.ImportSQL)
		schemas.POST("/export-sql", r.schemaHandler.ExportSQL)
		schemas.POST("/import-database", r.schemaHandler.ImportDatabase)
	}
}
