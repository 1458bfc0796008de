package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pipevault/internal/domain/access"
	"pipevault/internal/domain/users"
)

type Handler struct {
	policies access.Loader
}

func NewHandler(policies access.Loader) *Handler {
	return &Handler{policies: policies}
}

// GET /me
func (h *Handler) GetCurrentUser(c *gin.Context) {
	email := c.GetString("email")
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, policy, err := h.policies.PolicyFor(c.Request.Context(), email)
	if errors.Is(err, users.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	c.JSON(http.StatusOK, BuildMeResponse(user, policy))
}
