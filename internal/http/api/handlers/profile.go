package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/authflow-app/authflow/internal/security"
	"github.com/authflow-app/authflow/internal/store"
	"github.com/gin-gonic/gin"
)

// ProfileHandler serves the authenticated user's profile endpoints.
type ProfileHandler struct {
	users *store.Users
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(users *store.Users) *ProfileHandler {
	return &ProfileHandler{users: users}
}

// Get returns the caller's profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	userID := c.GetUint64("userID")
	user := h.users.FindByID(c.Request.Context(), userID)
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":                 user.ID,
		"username":           user.Username,
		"email":              user.Email,
		"two_factor_enabled": user.TwoFactorEnabled,
		"created_at":         user.CreatedAt,
	})
}

// updateProfileRequest defines the request body for profile updates.
type updateProfileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

// Update modifies the caller's username and email.
func (h *ProfileHandler) Update(c *gin.Context) {
	userID := c.GetUint64("userID")
	var body updateProfileRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{}
	if body.Username != nil {
		username := strings.TrimSpace(*body.Username)
		if len(username) < 3 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username must be at least 3 characters."})
			return
		}
		updates["username"] = username
	}
	if body.Email != nil {
		email := strings.TrimSpace(*body.Email)
		if email == "" || !strings.Contains(email, "@") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a valid email address."})
			return
		}
		updates["email"] = email
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	if errUpdate := h.users.Update(c.Request.Context(), userID, updates); errUpdate != nil {
		if errors.Is(errUpdate, store.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email or username already exists."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// changePasswordRequest defines the request body for password changes.
type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword updates the caller's password after re-verifying the
// current one.
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	userID := c.GetUint64("userID")
	var body changePasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(body.NewPassword) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters."})
		return
	}

	user := h.users.FindByID(c.Request.Context(), userID)
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if !security.CheckPassword(user.Password, body.CurrentPassword) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password."})
		return
	}

	hash, errHash := security.HashPassword(body.NewPassword)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}
	if errUpdate := h.users.Update(c.Request.Context(), userID, map[string]any{"password": hash}); errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "change password failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
