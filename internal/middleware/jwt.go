package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Clés du contexte gin posées par Authenticate.
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
)

type TokenVerifier interface {
	ExtractUsername(token string) (string, error)
	ExtractUserID(token string) (int64, error)
	Validate(token, expectedUsername string) bool
}

// Authenticate lit "Authorization: Bearer <token>" et, si le jeton est valide, attache l'identité
// au contexte. Ne bloque jamais : c'est RequireAuth qui décide selon la route.
func Authenticate(tokens TokenVerifier, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		username, err := tokens.ExtractUsername(token)
		if err != nil {
			log.Debug("jeton illisible", slog.String("token_prefix", prefix(token)), slog.Any("error", err))
			c.Next()
			return
		}

		if !tokens.Validate(token, username) {
			log.Debug("jeton invalide ou expiré", slog.String("username", username))
			c.Next()
			return
		}

		userID, err := tokens.ExtractUserID(token)
		if err != nil {
			c.Next()
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextUsername, username)
		c.Next()
	}
}

// RequireAuth rejette en 401 une requête qu'Authenticate n'a pas pu identifier.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); !ok {
			AbortWithError(c, http.StatusUnauthorized, "未授權，請先登入")
			return
		}
		c.Next()
	}
}

func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func Username(c *gin.Context) string {
	return c.GetString(ContextUsername)
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != "Bearer" {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// prefix : jamais plus de 10 caractères d'un jeton dans les logs.
func prefix(token string) string {
	if len(token) > 10 {
		return token[:10] + "..."
	}
	return token
}
