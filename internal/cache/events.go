package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	CartEventUpdated = "updated"
	CartEventCleared = "cleared"
)

var ErrEventsDisabled = errors.New("notifications panier désactivées (Redis absent)")

type CartEvent struct {
	Type   string    `json:"type"`
	UserID int64     `json:"userId"`
	At     time.Time `json:"at"`
}

// CartEvents publie les modifications de panier sur le canal Redis "cart:<userId>".
type CartEvents struct {
	client *redis.Client
}

func NewCartEvents(client *redis.Client) *CartEvents {
	return &CartEvents{client: client}
}

func (e *CartEvents) Enabled() bool {
	return e.client != nil
}

func (e *CartEvents) Publish(ctx context.Context, userID int64, eventType string) error {
	if !e.Enabled() {
		return nil
	}

	data, err := json.Marshal(CartEvent{Type: eventType, UserID: userID, At: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := e.client.Publish(ctx, CartChannel(userID), data).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

// Subscribe retourne les événements du panier de userID jusqu'à l'annulation de ctx ou l'appel de stop.
func (e *CartEvents) Subscribe(ctx context.Context, userID int64) (<-chan CartEvent, func() error, error) {
	if !e.Enabled() {
		return nil, nil, ErrEventsDisabled
	}

	pubsub := e.client.Subscribe(ctx, CartChannel(userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("redis subscribe failed: %w", err)
	}

	out := make(chan CartEvent)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var ev CartEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, pubsub.Close, nil
}

func CartChannel(userID int64) string {
	return "cart:" + strconv.FormatInt(userID, 10)
}
