package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// AttemptLimiter : compteur de tentatives avec cooldown (cache.RateLimiter).
type AttemptLimiter interface {
	Check(ctx context.Context, subject string) (time.Duration, error)
	Hit(ctx context.Context, subject string) (int, error)
	Reset(ctx context.Context, subject string) error
}

// WindowLimiter : nombre de requêtes par fenêtre fixe (cache.RateLimiter).
type WindowLimiter interface {
	Allow(ctx context.Context, subject string) (bool, error)
	Window() time.Duration
}

// LoginRateLimit limite les échecs de connexion par username. Redis en panne : on laisse passer.
func LoginRateLimit(limiter AttemptLimiter, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Lire le body sans le consommer
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Next()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		var input struct {
			Username string `json:"username"`
		}
		if err := json.Unmarshal(bodyBytes, &input); err != nil || input.Username == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		wait, err := limiter.Check(ctx, input.Username)
		if err != nil {
			log.Warn("⚠️ rate limit login indisponible", slog.Any("error", err))
		}
		if wait > 0 {
			tooManyRequests(c, wait, fmt.Sprintf("登入失敗次數過多，請於 %d 分鐘後再試", minutes(wait)))
			return
		}

		c.Next()

		// Seul un 401 compte comme tentative : une panne (5xx) ne doit pas verrouiller le compte.
		// Les en-têtes sont déjà envoyés ici, le reste n'est donc que journalisé.
		switch c.Writer.Status() {
		case http.StatusUnauthorized:
			remaining, err := limiter.Hit(ctx, input.Username)
			if err != nil {
				log.Warn("⚠️ rate limit login indisponible", slog.Any("error", err))
				return
			}
			log.Debug("échec de connexion", slog.String("username", input.Username), slog.Int("remaining", remaining))
		case http.StatusOK:
			if err := limiter.Reset(ctx, input.Username); err != nil {
				log.Warn("⚠️ reset rate limit login échoué", slog.Any("error", err))
			}
		}
	}
}

// RegisterRateLimit limite les inscriptions réussies par IP.
func RegisterRateLimit(limiter AttemptLimiter, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ip := c.ClientIP()

		wait, err := limiter.Check(ctx, ip)
		if err != nil {
			log.Warn("⚠️ rate limit inscription indisponible", slog.Any("error", err))
		}
		if wait > 0 {
			tooManyRequests(c, wait, fmt.Sprintf("註冊次數過多，請於 %d 分鐘後再試", minutes(wait)))
			return
		}

		c.Next()

		if c.Writer.Status() == http.StatusOK {
			if _, err := limiter.Hit(ctx, ip); err != nil {
				log.Warn("⚠️ rate limit inscription indisponible", slog.Any("error", err))
			}
		}
	}
}

// CartRateLimit limite les écritures panier par utilisateur. À placer après RequireAuth.
func CartRateLimit(limiter WindowLimiter, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			c.Next()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), strconv.FormatInt(userID, 10))
		if err != nil {
			log.Warn("⚠️ rate limit panier indisponible", slog.Any("error", err))
		}
		if !allowed {
			tooManyRequests(c, limiter.Window(), "購物車操作過於頻繁，請稍後再試")
			return
		}
		c.Next()
	}
}

func tooManyRequests(c *gin.Context, retryAfter time.Duration, message string) {
	seconds := int(math.Ceil(retryAfter.Seconds()))
	c.Header("Retry-After", strconv.Itoa(seconds))

	body := ErrorBody(http.StatusTooManyRequests, message)
	body["retry_after"] = seconds
	c.AbortWithStatusJSON(http.StatusTooManyRequests, body)
}

func minutes(d time.Duration) int {
	return int(math.Ceil(d.Minutes()))
}
