package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shop_back_end/internal/models"
)

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) FindByUserID(ctx context.Context, userID int64) (*models.Cart, error) {
	var c models.Cart
	if err := conn(ctx, r.db).Where("user_id = ?", userID).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// FindByUserIDWithItems charge le panier et ses lignes dans l'ordre d'insertion.
func (r *CartRepository) FindByUserIDWithItems(ctx context.Context, userID int64) (*models.Cart, error) {
	var c models.Cart
	err := conn(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("cart_item_id") }).
		Where("user_id = ?", userID).
		First(&c).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// Create insère le panier de userID. Si un panier existe déjà (course entre deux premières
// requêtes), aucune ligne n'est écrite et ErrCartExists est retourné : l'appelant relit.
func (r *CartRepository) Create(ctx context.Context, userID int64) (*models.Cart, error) {
	c := &models.Cart{UserID: userID}
	res := conn(ctx, r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(c)
	if res.Error != nil {
		return nil, fmt.Errorf("insert cart: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrCartExists
	}
	c.Items = []models.CartItem{}
	return c, nil
}

func (r *CartRepository) FindItem(ctx context.Context, cartID, productID int64) (*models.CartItem, error) {
	var item models.CartItem
	err := conn(ctx, r.db).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// SaveItem insère la ligne si CartItemID vaut 0, sinon la met à jour.
func (r *CartRepository) SaveItem(ctx context.Context, item *models.CartItem) error {
	if err := conn(ctx, r.db).Save(item).Error; err != nil {
		return fmt.Errorf("save cart item: %w", err)
	}
	return nil
}

func (r *CartRepository) DeleteItem(ctx context.Context, cartItemID int64) error {
	res := conn(ctx, r.db).Delete(&models.CartItem{}, "cart_item_id = ?", cartItemID)
	if res.Error != nil {
		return fmt.Errorf("delete cart item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteItems vide le panier et retourne le nombre de lignes supprimées.
func (r *CartRepository) DeleteItems(ctx context.Context, cartID int64) (int64, error) {
	res := conn(ctx, r.db).Where("cart_id = ?", cartID).Delete(&models.CartItem{})
	if res.Error != nil {
		return 0, fmt.Errorf("clear cart: %w", res.Error)
	}
	return res.RowsAffected, nil
}
