package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// AbortWithError écrit le corps d'erreur commun à toute l'API et interrompt la chaîne.
func AbortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorBody(status, message))
}

func ErrorBody(status int, message string) gin.H {
	return gin.H{
		"success":   false,
		"status":    status,
		"error":     http.StatusText(status),
		"message":   message,
		"timestamp": time.Now().UTC(),
	}
}
