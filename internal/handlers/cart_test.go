package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop_back_end/internal/apperrors"
	"shop_back_end/internal/models"
)

// fakeCartService enregistre les arguments reçus et renvoie un panier fixe.
type fakeCartService struct {
	userID    int64
	productID int64
	quantity  int
	update    *int
	cleared   bool
	err       error
	receipt   *models.Receipt
}

func sampleCart() *models.CartResponse {
	return &models.CartResponse{
		CartID: 3,
		Items: []models.CartItemResponse{{
			CartItemID:  11,
			ProductID:   42,
			ProductName: "Chai",
			UnitPrice:   decimal.RequireFromString("10.00"),
			Quantity:    2,
			Subtotal:    decimal.RequireFromString("20.00"),
		}},
		TotalItems: 2,
		TotalPrice: decimal.RequireFromString("20.00"),
	}
}

func (f *fakeCartService) AddToCart(_ context.Context, userID, productID int64, quantity int) (*models.CartResponse, error) {
	f.userID, f.productID, f.quantity = userID, productID, quantity
	if f.err != nil {
		return nil, f.err
	}
	return sampleCart(), nil
}

func (f *fakeCartService) GetCart(_ context.Context, userID int64) (*models.CartResponse, error) {
	f.userID = userID
	if f.err != nil {
		return nil, f.err
	}
	return sampleCart(), nil
}

func (f *fakeCartService) UpdateQuantity(_ context.Context, userID, productID int64, quantity *int) (*models.CartResponse, error) {
	f.userID, f.productID, f.update = userID, productID, quantity
	if quantity == nil {
		return nil, apperrors.Invalid("商品數量不能為空")
	}
	if f.err != nil {
		return nil, f.err
	}
	return sampleCart(), nil
}

func (f *fakeCartService) RemoveFromCart(_ context.Context, userID, productID int64) (*models.CartResponse, error) {
	f.userID, f.productID = userID, productID
	if f.err != nil {
		return nil, f.err
	}
	return &models.CartResponse{CartID: 3, Items: []models.CartItemResponse{}, TotalPrice: decimal.Zero}, nil
}

func (f *fakeCartService) ClearCart(_ context.Context, userID int64) error {
	f.userID, f.cleared = userID, true
	return f.err
}

func (f *fakeCartService) Checkout(_ context.Context, userID int64) (*models.Receipt, error) {
	f.userID = userID
	if f.err != nil {
		return nil, f.err
	}
	return f.receipt, nil
}

func newCartRouter(svc CartService, userID int64) *gin.Engine {
	h := NewCartHandler(svc, nil, []string{"*"}, discardLogger())
	r := gin.New()
	g := r.Group("/api/cart")
	if userID != 0 {
		g.Use(asUser(userID))
	}
	g.GET("", h.GetCart)
	g.POST("", h.AddToCart)
	g.PUT("/:productId", h.UpdateQuantity)
	g.DELETE("/:productId", h.RemoveFromCart)
	g.DELETE("", h.ClearCart)
	g.POST("/checkout", h.Checkout)
	return r
}

func TestGetCart(t *testing.T) {
	svc := &fakeCartService{}
	r := newCartRouter(svc, 7)

	w := perform(r, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 7, svc.userID)
	assert.JSONEq(t, `{
		"cartId": 3,
		"items": [{"cartItemId": 11, "productId": 42, "productName": "Chai", "unitPrice": 10, "quantity": 2, "subtotal": 20}],
		"totalItems": 2,
		"totalPrice": 20
	}`, w.Body.String())
}

func TestCart_RequiresIdentity(t *testing.T) {
	r := newCartRouter(&fakeCartService{}, 0)
	w := perform(r, http.MethodGet, "/api/cart", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAddToCart(t *testing.T) {
	t.Run("quantité par défaut", func(t *testing.T) {
		svc := &fakeCartService{}
		w := perform(newCartRouter(svc, 7), http.MethodPost, "/api/cart", `{"productId":42}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 42, svc.productID)
		assert.Equal(t, 1, svc.quantity)

		body := decode(t, w)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "商品已加入購物車", body["message"])
		assert.NotNil(t, body["cart"])
	})

	t.Run("quantité explicite", func(t *testing.T) {
		svc := &fakeCartService{}
		perform(newCartRouter(svc, 7), http.MethodPost, "/api/cart", `{"productId":42,"quantity":5}`)
		assert.Equal(t, 5, svc.quantity)
	})

	t.Run("produit manquant", func(t *testing.T) {
		svc := &fakeCartService{}
		w := perform(newCartRouter(svc, 7), http.MethodPost, "/api/cart", `{"quantity":5}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, svc.userID, "le service ne doit pas être appelé")
	})

	t.Run("produit introuvable", func(t *testing.T) {
		svc := &fakeCartService{err: apperrors.NotFound("商品不存在：ID = 99")}
		w := perform(newCartRouter(svc, 7), http.MethodPost, "/api/cart", `{"productId":99}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "商品不存在：ID = 99", decode(t, w)["message"])
	})
}

func TestUpdateQuantity(t *testing.T) {
	t.Run("succès", func(t *testing.T) {
		svc := &fakeCartService{}
		w := perform(newCartRouter(svc, 7), http.MethodPut, "/api/cart/42", `{"quantity":3}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 42, svc.productID)
		require.NotNil(t, svc.update)
		assert.Equal(t, 3, *svc.update)
	})

	t.Run("quantité absente", func(t *testing.T) {
		w := perform(newCartRouter(&fakeCartService{}, 7), http.MethodPut, "/api/cart/42", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "商品數量不能為空", decode(t, w)["message"])
	})

	t.Run("identifiant invalide", func(t *testing.T) {
		w := perform(newCartRouter(&fakeCartService{}, 7), http.MethodPut, "/api/cart/abc", `{"quantity":3}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRemoveFromCart(t *testing.T) {
	svc := &fakeCartService{}
	w := perform(newCartRouter(svc, 7), http.MethodDelete, "/api/cart/42", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 42, svc.productID)
	assert.Contains(t, w.Body.String(), `"items":[]`)

	svc = &fakeCartService{err: apperrors.NotFound("購物車中沒有此商品：商品ID = 42")}
	w = perform(newCartRouter(svc, 7), http.MethodDelete, "/api/cart/42", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClearCart(t *testing.T) {
	svc := &fakeCartService{}
	w := perform(newCartRouter(svc, 7), http.MethodDelete, "/api/cart", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.cleared)
	assert.Equal(t, "購物車已清空", decode(t, w)["message"])
}

func TestCheckout(t *testing.T) {
	t.Run("succès", func(t *testing.T) {
		svc := &fakeCartService{receipt: &models.Receipt{TotalItems: 2, TotalPrice: decimal.RequireFromString("20.00")}}
		w := perform(newCartRouter(svc, 7), http.MethodPost, "/api/cart/checkout", "")
		require.Equal(t, http.StatusOK, w.Code)

		body := decode(t, w)
		assert.Equal(t, "結帳成功！感謝您的購買！", body["message"])
		assert.EqualValues(t, 20, body["totalPrice"])
		assert.EqualValues(t, 2, body["totalItems"])
	})

	t.Run("panier vide", func(t *testing.T) {
		svc := &fakeCartService{err: apperrors.Invalid("購物車是空的")}
		w := perform(newCartRouter(svc, 7), http.MethodPost, "/api/cart/checkout", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "購物車是空的", decode(t, w)["message"])
	})

	t.Run("erreur système", func(t *testing.T) {
		svc := &fakeCartService{err: errors.New("deadlock detected")}
		w := perform(newCartRouter(svc, 7), http.MethodPost, "/api/cart/checkout", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "deadlock")
	})
}

