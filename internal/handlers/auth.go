package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"shop_back_end/internal/models"
)

type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

type TokenIssuer interface {
	Issue(username string, userID int64) (string, error)
}

type AuthHandler struct {
	auth   AuthService
	tokens TokenIssuer
	log    *slog.Logger
}

func NewAuthHandler(auth AuthService, tokens TokenIssuer, log *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, tokens: tokens, log: log}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register : POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, MsgBadRequest)
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info("✅ utilisateur inscrit", slog.String("username", user.Username), slog.Int64("user_id", user.ID))
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "註冊成功",
		"username": user.Username,
	})
}

// Login : POST /api/auth/login. Même réponse 401 pour un utilisateur inconnu ou un mauvais mot de passe.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, MsgBadRequest)
		return
	}

	user, err := h.auth.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	token, err := h.tokens.Issue(user.Username, user.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "登入成功",
		"username": user.Username,
		"userId":   user.ID,
		"token":    token,
	})
}

// Logout : les jetons sont sans état, le client se contente de jeter le sien.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "登出成功",
	})
}
