package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"schemaboard/internal/responses"
	"schemaboard/internal/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// currentUserID reads the authenticated user ID placed on the context by the
// Authenticate middleware.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get("userId")
	if !exists {
		responses.Fail(c, http.StatusUnauthorized, nil, "Unauthorized")
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		responses.Fail(c, http.StatusBadRequest, nil, "Invalid user ID format")
		return uuid.Nil, false
	}
	return id, true
}

// GetMe handles GET /api/v1/users/me
func (h *UserHandler) GetMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.userService.GetByID(userID)
	if err != nil {
		if err.Error() == "user not found" {
			responses.Fail(c, http.StatusNotFound, err, "User not found")
			return
		}
		responses.Fail(c, http.StatusInternalServerError, err, "Failed to retrieve user")
		return
	}

	responses.Success(c, http.StatusOK, user, "User retrieved successfully")
}

// UpdateMe handles PATCH /api/v1/users/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Fail(c, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	user, err := h.userService.UpdateProfile(userID, req.Name)
	if err != nil {
		responses.Fail(c, http.StatusInternalServerError, err, "Failed to update user")
		return
	}

	responses.Success(c, http.StatusOK, user, "User updated successfully")
}

// DeleteMe handles DELETE /api/v1/users/me
func (h *UserHandler) DeleteMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.userService.Delete(userID); err != nil {
		responses.Fail(c, http.StatusInternalServerError, err, "Failed to delete user")
		return
	}

	c.SetCookie(RefreshTokenCookieName, "", -1, "/", "", true, true)

	responses.Success(c, http.StatusOK, nil, "User deleted successfully")
}
