package handlers

import (
	"errors"
	"net/http"

	"rangebet-market/internal/auth"
	"rangebet-market/internal/services"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles operator authentication endpoints
type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login mints an admin token for the configured operator account
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Operator string `json:"operator" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.authService.Login(req.Operator, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoginDisabled):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Operator login is not configured"})
		case errors.Is(err, services.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"operator": req.Operator,
	})
}

// GetMe returns the authenticated operator's identity
// GET /auth/me
func (h *AuthHandler) GetMe(c *gin.Context) {
	operator, exists := auth.GetOperator(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"operator": operator,
		"is_admin": c.GetBool("is_admin"),
	})
}
