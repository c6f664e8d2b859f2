package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"shop_back_end/internal/cache"
	"shop_back_end/internal/models"
)

type CartService interface {
	AddToCart(ctx context.Context, userID, productID int64, quantity int) (*models.CartResponse, error)
	GetCart(ctx context.Context, userID int64) (*models.CartResponse, error)
	UpdateQuantity(ctx context.Context, userID, productID int64, quantity *int) (*models.CartResponse, error)
	RemoveFromCart(ctx context.Context, userID, productID int64) (*models.CartResponse, error)
	ClearCart(ctx context.Context, userID int64) error
	Checkout(ctx context.Context, userID int64) (*models.Receipt, error)
}

// CartSubscriber fournit le flux d'événements utilisé par la WebSocket panier.
type CartSubscriber interface {
	Subscribe(ctx context.Context, userID int64) (<-chan cache.CartEvent, func() error, error)
}

type CartHandler struct {
	carts    CartService
	events   CartSubscriber
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewCartHandler(carts CartService, events CartSubscriber, allowedOrigins []string, log *slog.Logger) *CartHandler {
	return &CartHandler{
		carts:  carts,
		events: events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		log: log,
	}
}

type addToCartRequest struct {
	ProductID *int64 `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

// GetCart : GET /api/cart
func (h *CartHandler) GetCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	cart, err := h.carts.GetCart(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// AddToCart : POST /api/cart, quantité 1 par défaut.
func (h *CartHandler) AddToCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, MsgBadRequest)
		return
	}
	if req.ProductID == nil {
		badRequest(c, "商品ID不能為空")
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	cart, err := h.carts.AddToCart(c.Request.Context(), userID, *req.ProductID, quantity)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "商品已加入購物車",
		"cart":    cart,
	})
}

// UpdateQuantity : PUT /api/cart/:productId. Une quantité 0 retire la ligne.
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	productID, err := parseID(c, "productId")
	if err != nil {
		badRequest(c, "無效的商品ID")
		return
	}

	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, MsgBadRequest)
		return
	}

	cart, err := h.carts.UpdateQuantity(c.Request.Context(), userID, productID, req.Quantity)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// RemoveFromCart : DELETE /api/cart/:productId
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	productID, err := parseID(c, "productId")
	if err != nil {
		badRequest(c, "無效的商品ID")
		return
	}

	cart, err := h.carts.RemoveFromCart(c.Request.Context(), userID, productID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// ClearCart : DELETE /api/cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.carts.ClearCart(c.Request.Context(), userID); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "購物車已清空",
	})
}

// Checkout : POST /api/cart/checkout (paiement simulé).
func (h *CartHandler) Checkout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	receipt, err := h.carts.Checkout(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "結帳成功！感謝您的購買！",
		"totalPrice": receipt.TotalPrice,
		"totalItems": receipt.TotalItems,
	})
}
