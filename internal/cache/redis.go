package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter compte des tentatives par sujet (username, IP, user id) dans Redis.
// Au-delà de max, le sujet passe en cooldown pendant window.
type RateLimiter struct {
	client *redis.Client
	prefix string
	max    int
	window time.Duration
}

func NewRateLimiter(client *redis.Client, prefix string, max int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix, max: max, window: window}
}

func (l *RateLimiter) Enabled() bool {
	return l.client != nil && l.max > 0
}

func (l *RateLimiter) Max() int {
	return l.max
}

func (l *RateLimiter) Window() time.Duration {
	return l.window
}

// Check retourne la durée restante du blocage, 0 si le sujet peut continuer.
// Atteindre max active le cooldown et remet le compteur à zéro.
func (l *RateLimiter) Check(ctx context.Context, subject string) (time.Duration, error) {
	if !l.Enabled() {
		return 0, nil
	}

	ttl, err := l.client.TTL(ctx, l.cooldownKey(subject)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis ttl failed: %w", err)
	}
	if ttl > 0 {
		return ttl, nil
	}

	attempts, err := l.client.Get(ctx, l.attemptsKey(subject)).Int()
	if err != nil && err != redis.Nil {
		return 0, fmt.Errorf("redis get failed: %w", err)
	}
	if attempts < l.max {
		return 0, nil
	}

	pipe := l.client.TxPipeline()
	pipe.Set(ctx, l.cooldownKey(subject), "1", l.window)
	pipe.Del(ctx, l.attemptsKey(subject))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis cooldown failed: %w", err)
	}
	return l.window, nil
}

// Hit incrémente le compteur du sujet et retourne le nombre de tentatives restantes.
func (l *RateLimiter) Hit(ctx context.Context, subject string) (int, error) {
	if !l.Enabled() {
		return l.max, nil
	}

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, l.attemptsKey(subject))
	pipe.Expire(ctx, l.attemptsKey(subject), l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr failed: %w", err)
	}

	remaining := l.max - int(incr.Val())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset efface compteur et cooldown (login réussi).
func (l *RateLimiter) Reset(ctx context.Context, subject string) error {
	if !l.Enabled() {
		return nil
	}
	return l.client.Del(ctx, l.attemptsKey(subject), l.cooldownKey(subject)).Err()
}

// Allow : fenêtre fixe, max requêtes par window. Retourne false une fois la limite dépassée.
func (l *RateLimiter) Allow(ctx context.Context, subject string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}

	key := l.attemptsKey(subject)
	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return true, fmt.Errorf("redis incr failed: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return true, fmt.Errorf("redis expire failed: %w", err)
		}
	}
	return n <= int64(l.max), nil
}

func (l *RateLimiter) attemptsKey(subject string) string {
	return l.prefix + "_attempts:" + subject
}

func (l *RateLimiter) cooldownKey(subject string) string {
	return l.prefix + "_cooldown:" + subject
}
