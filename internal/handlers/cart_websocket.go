package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"shop_back_end/internal/apperrors"
	"shop_back_end/internal/cache"
	"shop_back_end/internal/middleware"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
	wsPongWait   = wsPingPeriod + 10*time.Second
)

type wsMessage struct {
	Type    string `json:"type"`
	Event   string `json:"event,omitempty"`
	Message string `json:"message,omitempty"`
	Cart    any    `json:"cart,omitempty"`
}

// CartWebSocket gère la synchronisation temps réel du panier : GET /api/cart/ws
func (h *CartHandler) CartWebSocket(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// S'abonner avant l'upgrade pour pouvoir encore répondre en HTTP
	events, stop, err := h.events.Subscribe(ctx, userID)
	if err != nil {
		if errors.Is(err, cache.ErrEventsDisabled) {
			middleware.AbortWithError(c, http.StatusServiceUnavailable, "購物車即時同步未啟用")
			return
		}
		respondError(c, h.log, apperrors.System(err))
		return
	}
	defer stop()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("❌ upgrade WebSocket échoué", slog.Int64("user_id", userID), slog.Any("error", err))
		return
	}
	defer conn.Close()

	log := h.log.With(slog.Int64("user_id", userID))
	log.Info("✅ WebSocket panier connectée")

	// Lecture : uniquement pour les pong et la fermeture côté client
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeJSON(conn, wsMessage{Type: "connected", Message: "購物車同步已啟用"}); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("WebSocket panier fermée")
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			msg := wsMessage{Type: "cart_updated", Event: ev.Type}
			cart, err := h.carts.GetCart(ctx, userID)
			if err != nil {
				if apperrors.KindOf(err) == apperrors.KindSystem {
					log.Error("❌ lecture panier pour WebSocket", slog.Any("error", err))
				}
				msg = wsMessage{Type: "error", Event: ev.Type, Message: apperrors.PublicMessage(err)}
			} else {
				msg.Cart = cart
			}
			if err := writeJSON(conn, msg); err != nil {
				log.Warn("❌ envoi WebSocket échoué", slog.Any("error", err))
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(v)
}

// checkOrigin : "*" accepte tout; sinon l'origine doit figurer dans la liste CORS.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return slices.ContainsFunc(allowed, func(a string) bool {
			return strings.EqualFold(strings.TrimSuffix(a, "/"), u.Scheme+"://"+u.Host)
		})
	}
}
