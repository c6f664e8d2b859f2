package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MinCartQuantity = 1
	MaxCartQuantity = 999
)

// Cart : un seul panier par utilisateur (contrainte unique sur user_id).
type Cart struct {
	CartID    int64      `gorm:"column:cart_id;primaryKey" json:"cartId"`
	UserID    int64      `gorm:"column:user_id;uniqueIndex;not null" json:"userId"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"column:updated_at" json:"updatedAt"`
}

func (Cart) TableName() string {
	return "carts"
}

// CartItem garde le prix unitaire capturé à l'ajout; il n'est jamais relu depuis le catalogue.
type CartItem struct {
	CartItemID int64           `gorm:"column:cart_item_id;primaryKey" json:"cartItemId"`
	CartID     int64           `gorm:"column:cart_id;not null;uniqueIndex:uq_cart_items_cart_product" json:"cartId"`
	ProductID  int64           `gorm:"column:product_id;not null;uniqueIndex:uq_cart_items_cart_product" json:"productId"`
	Quantity   int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null" json:"unitPrice"`
	CreatedAt  time.Time       `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt  time.Time       `gorm:"column:updated_at" json:"updatedAt"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type CartItemResponse struct {
	CartItemID  int64           `json:"cartItemId"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type CartResponse struct {
	CartID     int64              `json:"cartId"`
	Items      []CartItemResponse `json:"items"`
	TotalItems int                `json:"totalItems"`
	TotalPrice decimal.Decimal    `json:"totalPrice"`
}

// Receipt : totaux du panier juste avant qu'il soit vidé par le checkout.
type Receipt struct {
	TotalItems int             `json:"totalItems"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}
