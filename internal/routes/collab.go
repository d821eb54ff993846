package routes

import (
	"github.com/gin-gonic/gin"

	"schemaboard/internal/handlers"
)

type CollabRoutes struct {
	collabHandler *handlers.CollabHandler
}

func NewCollabRoutes(collabHandler *handlers.CollabHandler) *CollabRoutes {
	return &CollabRoutes{collabHandler: collabHandler}
}

func (r *CollabRoutes) RegisterRoutes(router *gin.RouterGroup) {
	// Token auth happens inside the handler: the browser WebSocket API cannot
	// attach an Authorization header to the handshake.
	router.GET("/collab/ws", r.collabHandler.Connect)
}
