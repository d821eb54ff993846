package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"schemaboard/internal/models"
	"schemaboard/internal/responses"
	"schemaboard/internal/services"
)

type DiagramHandler struct {
	diagramService *services.DiagramService
}

func NewDiagramHandler(diagramService *services.DiagramService) *DiagramHandler {
	return &DiagramHandler{diagramService: diagramService}
}

func diagramIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("diagram_id"))
	if err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid diagram ID format")
		return uuid.Nil, false
	}
	return id, true
}

func failDiagram(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrDiagramNotFound):
		responses.Fail(c, http.StatusNotFound, err, "Diagram not found")
	case errors.Is(err, services.ErrNotOwner), errors.Is(err, services.ErrNoAccess):
		responses.Fail(c, http.StatusForbidden, err, err.Error())
	default:
		responses.Fail(c, http.StatusInternalServerError, err, fallback)
	}
}

// Create handles POST /api/v1/diagrams
func (h *DiagramHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.Diagram
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	diagram, err := h.diagramService.Create(userID, &req)
	if err != nil {
		responses.Fail(c, http.StatusInternalServerError, err, "Failed to create diagram")
		return
	}

	responses.Success(c, http.StatusCreated, diagram, "Diagram created successfully")
}

// List handles GET /api/v1/diagrams — the caller's own diagrams plus the
// ones shared with them.
func (h *DiagramHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	owned, err := h.diagramService.ListOwned(userID)
	if err != nil {
		responses.Fail(c, http.StatusInternalServerError, err, "Failed to list diagrams")
		return
	}
	shared, err := h.diagramService.ListShared(userID)
	if err != nil {
		responses.Fail(c, http.StatusInternalServerError, err, "Failed to list diagrams")
		return
	}

	res := gin.H{
		"owned":  owned,
		"shared": shared,
	}

	responses.Success(c, http.StatusOK, res, "Diagrams retrieved successfully")
}

// Get handles GET /api/v1/diagrams/:diagram_id
func (h *DiagramHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	diagramID, ok := diagramIDParam(c)
	if !ok {
		return
	}

	diagram, err := h.diagramService.Get(diagramID, userID)
	if err != nil {
		failDiagram(c, err, "Failed to retrieve diagram")
		return
	}

	responses.Success(c, http.StatusOK, diagram, "Diagram retrieved successfully")
}

// GetPublic handles GET /api/v1/public/diagrams/:slug — no auth, read only.
func (h *DiagramHandler) GetPublic(c *gin.Context) {
	diagram, err := h.diagramService.GetBySlug(c.Param("slug"))
	if err != nil {
		failDiagram(c, err, "Failed to retrieve diagram")
		return
	}

	responses.Success(c, http.StatusOK, diagram, "Diagram retrieved successfully")
}

// Update handles PUT /api/v1/diagrams/:diagram_id
func (h *DiagramHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	diagramID, ok := diagramIDParam(c)
	if !ok {
		return
	}

	var req models.Diagram
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	diagram, err := h.diagramService.Update(diagramID, userID, &req)
	if err != nil {
		failDiagram(c, err, "Failed to update diagram")
		return
	}

	responses.Success(c, http.StatusOK, diagram, "Diagram updated successfully")
}

// Delete handles DELETE /api/v1/diagrams/:diagram_id
func (h *DiagramHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	diagramID, ok := diagramIDParam(c)
	if !ok {
		return
	}

	if err := h.diagramService.Delete(diagramID, userID); err != nil {
		failDiagram(c, err, "Failed to delete diagram")
		return
	}

	responses.Success(c, http.StatusOK, nil, "Diagram deleted successfully")
}

// Share handles POST /api/v1/diagrams/:diagram_id/collaborators
func (h *DiagramHandler) Share(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	diagramID, ok := diagramIDParam(c)
	if !ok {
		return
	}

	var req struct {
		Email      string `json:"email"      binding:"required,email"`
		Permission string `json:"permission" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	grant, err := h.diagramService.Share(diagramID, userID, req.Email, models.Permission(req.Permission))
	if err != nil {
		failDiagram(c, err, "Failed to share diagram")
		return
	}

	responses.Success(c, http.StatusOK, grant, "Diagram shared successfully")
}

// Unshare handles DELETE /api/v1/diagrams/:diagram_id/collaborators/:user_id
func (h *DiagramHandler) Unshare(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	diagramID, ok := diagramIDParam(c)
	if !ok {
		return
	}
	collaboratorID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid user ID format")
		return
	}

	if err := h.diagramService.Unshare(diagramID, userID, collaboratorID); err != nil {
		failDiagram(c, err, "Failed to remove collaborator")
		return
	}

	responses.Success(c, http.StatusOK, nil, "Collaborator removed successfully")
}

// Collaborators handles GET /api/v1/diagrams/:diagram_id/collaborators
func (h *DiagramHandler) Collaborators(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	diagramID, ok := diagramIDParam(c)
	if !ok {
		return
	}

	grants, err := h.diagramService.Collaborators(diagramID, userID)
	if err != nil {
		failDiagram(c, err, "Failed to list collaborators")
		return
	}

	responses.Success(c, http.StatusOK, grants, "Collaborators retrieved successfully")
}
