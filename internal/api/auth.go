package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rgayle/waterwatch/internal/auth"
	"github.com/rgayle/waterwatch/internal/middleware"
	"github.com/rgayle/waterwatch/internal/repository"
)

const tokenTTL = 24 * time.Hour

type AuthHandler struct {
	users  repository.UserRepository
	secret string
	logger *zap.Logger
}

func NewAuthHandler(users repository.UserRepository, secret string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, secret: secret, logger: logger}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
	Parish   string `json:"parish"`
}

// Login handles POST /api/v1/auth/login.
//
// Unknown username and wrong password produce the identical response, so
// the endpoint cannot be used to enumerate accounts.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := auth.GenerateToken(user, h.secret, tokenTTL)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("user logged in",
		zap.String("username", user.Username),
		zap.String("parish", user.Parish),
	)
	c.JSON(http.StatusOK, loginResponse{
		Token:    token,
		Role:     string(user.Role),
		FullName: user.FullName,
		Parish:   user.Parish,
	})
}

// Me handles GET /api/v1/auth/me. It reads the identity straight from the
// validated claims, no database round trip.
func (h *AuthHandler) Me(c *gin.Context) {
	sc := middleware.GetScope(c)
	c.JSON(http.StatusOK, gin.H{
		"id":        sc.UserID,
		"role":      sc.Role,
		"parish":    sc.Parish,
		"full_name": middleware.GetFullName(c),
	})
}
