package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"shop_back_end/internal/apperrors"
	"shop_back_end/internal/cache"
	"shop_back_end/internal/models"
	"shop_back_end/internal/repository"
)

// ProductLookup : lecture du catalogue en base, dans la transaction du panier (jamais via le cache).
type ProductLookup interface {
	Current(ctx context.Context, id int64) (*models.Product, error)
}

// CartService : chaque méthode publique tourne dans une seule transaction.
// Les notifications partent après le commit.
type CartService struct {
	tx       Transactor
	carts    CartStore
	products ProductLookup
	notifier CartNotifier
	log      *slog.Logger
}

func NewCartService(tx Transactor, carts CartStore, products ProductLookup, notifier CartNotifier, log *slog.Logger) *CartService {
	return &CartService{tx: tx, carts: carts, products: products, notifier: notifier, log: log}
}

// AddToCart ajoute quantity unités du produit. Une ligne existante est fusionnée;
// le prix unitaire est figé à la création de la ligne.
func (s *CartService) AddToCart(ctx context.Context, userID, productID int64, quantity int) (*models.CartResponse, error) {
	if quantity < models.MinCartQuantity {
		return nil, apperrors.Invalid("商品數量必須大於 0")
	}
	if quantity > models.MaxCartQuantity {
		return nil, apperrors.Invalid("商品數量不能超過 999")
	}

	s.log.Info("ajout au panier",
		slog.Int64("user_id", userID), slog.Int64("product_id", productID), slog.Int("quantity", quantity))

	var view *models.CartResponse
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		product, err := s.lookupProduct(ctx, productID)
		if err != nil {
			return err
		}

		cart, err := s.getOrCreateCart(ctx, userID)
		if err != nil {
			return err
		}

		item, err := s.carts.FindItem(ctx, cart.CartID, productID)
		switch {
		case err == nil:
			merged := item.Quantity + quantity
			if merged > models.MaxCartQuantity {
				return apperrors.Invalid("商品數量不能超過 999")
			}
			item.Quantity = merged
		case errors.Is(err, repository.ErrNotFound):
			item = &models.CartItem{
				CartID:    cart.CartID,
				ProductID: productID,
				Quantity:  quantity,
				UnitPrice: product.UnitPrice,
			}
		default:
			return apperrors.System(err)
		}

		if err := s.carts.SaveItem(ctx, item); err != nil {
			return apperrors.System(err)
		}

		view, err = s.buildView(ctx, userID)
		return err
	})
	if err != nil {
		return nil, s.fail("ajout au panier", userID, err)
	}

	s.notify(ctx, userID, cache.CartEventUpdated)
	return view, nil
}

// GetCart crée le panier au premier accès.
func (s *CartService) GetCart(ctx context.Context, userID int64) (*models.CartResponse, error) {
	var view *models.CartResponse
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		view, err = s.buildView(ctx, userID)
		return err
	})
	if err != nil {
		return nil, s.fail("lecture du panier", userID, err)
	}
	return view, nil
}

// UpdateQuantity fixe la quantité; 0 supprime la ligne.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID int64, quantity *int) (*models.CartResponse, error) {
	if quantity == nil {
		return nil, apperrors.Invalid("商品數量不能為空")
	}
	if *quantity < 0 {
		return nil, apperrors.Invalid("商品數量不能小於 0")
	}
	if *quantity > models.MaxCartQuantity {
		return nil, apperrors.Invalid("商品數量不能超過 999")
	}
	q := *quantity

	var view *models.CartResponse
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		item, err := s.findCartItem(ctx, userID, productID)
		if err != nil {
			return err
		}

		if q == 0 {
			s.log.Info("ligne supprimée (quantité 0)", slog.Int64("user_id", userID), slog.Int64("product_id", productID))
			if err := s.carts.DeleteItem(ctx, item.CartItemID); err != nil {
				return apperrors.System(err)
			}
		} else {
			item.Quantity = q
			if err := s.carts.SaveItem(ctx, item); err != nil {
				return apperrors.System(err)
			}
		}

		view, err = s.buildView(ctx, userID)
		return err
	})
	if err != nil {
		return nil, s.fail("mise à jour de quantité", userID, err)
	}

	s.notify(ctx, userID, cache.CartEventUpdated)
	return view, nil
}

func (s *CartService) RemoveFromCart(ctx context.Context, userID, productID int64) (*models.CartResponse, error) {
	var view *models.CartResponse
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		item, err := s.findCartItem(ctx, userID, productID)
		if err != nil {
			return err
		}
		if err := s.carts.DeleteItem(ctx, item.CartItemID); err != nil {
			return apperrors.System(err)
		}

		view, err = s.buildView(ctx, userID)
		return err
	})
	if err != nil {
		return nil, s.fail("retrait du panier", userID, err)
	}

	s.notify(ctx, userID, cache.CartEventUpdated)
	return view, nil
}

// ClearCart ne fait rien si l'utilisateur n'a pas encore de panier.
func (s *CartService) ClearCart(ctx context.Context, userID int64) error {
	var removed int64
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		cart, err := s.carts.FindByUserID(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return apperrors.System(err)
		}

		removed, err = s.carts.DeleteItems(ctx, cart.CartID)
		if err != nil {
			return apperrors.System(err)
		}
		return nil
	})
	if err != nil {
		return s.fail("vidage du panier", userID, err)
	}

	if removed > 0 {
		s.notify(ctx, userID, cache.CartEventCleared)
	}
	return nil
}

// Checkout vide le panier et retourne les totaux d'avant vidage. Un panier vide est refusé
// et la transaction annulée, donc rien n'est modifié.
func (s *CartService) Checkout(ctx context.Context, userID int64) (*models.Receipt, error) {
	var receipt *models.Receipt
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		view, err := s.buildView(ctx, userID)
		if err != nil {
			return err
		}
		if len(view.Items) == 0 {
			return apperrors.Invalid("購物車是空的")
		}

		if _, err := s.carts.DeleteItems(ctx, view.CartID); err != nil {
			return apperrors.System(err)
		}

		receipt = &models.Receipt{TotalItems: view.TotalItems, TotalPrice: view.TotalPrice}
		return nil
	})
	if err != nil {
		return nil, s.fail("checkout", userID, err)
	}

	s.log.Info("✅ checkout",
		slog.Int64("user_id", userID),
		slog.Int("total_items", receipt.TotalItems),
		slog.String("total_price", receipt.TotalPrice.StringFixed(2)))
	s.notify(ctx, userID, cache.CartEventCleared)
	return receipt, nil
}

// getOrCreateCart : si un autre appel crée le panier en même temps, on relit celui-ci.
func (s *CartService) getOrCreateCart(ctx context.Context, userID int64) (*models.Cart, error) {
	cart, err := s.carts.FindByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.System(err)
	}

	cart, err = s.carts.Create(ctx, userID)
	if errors.Is(err, repository.ErrCartExists) {
		s.log.Debug("panier créé en parallèle, relecture", slog.Int64("user_id", userID))
		cart, err = s.carts.FindByUserID(ctx, userID)
	}
	if err != nil {
		return nil, apperrors.System(err)
	}
	return cart, nil
}

func (s *CartService) findCartItem(ctx context.Context, userID, productID int64) (*models.CartItem, error) {
	cart, err := s.carts.FindByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound(fmt.Sprintf("購物車不存在：User ID = %d", userID))
	}
	if err != nil {
		return nil, apperrors.System(err)
	}

	item, err := s.carts.FindItem(ctx, cart.CartID, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound(fmt.Sprintf("商品不在購物車中：Product ID = %d", productID))
	}
	if err != nil {
		return nil, apperrors.System(err)
	}
	return item, nil
}

func (s *CartService) lookupProduct(ctx context.Context, productID int64) (*models.Product, error) {
	p, err := s.products.Current(ctx, productID)
	if apperrors.KindOf(err) == apperrors.KindNotFound {
		return nil, apperrors.NotFound(fmt.Sprintf("商品不存在：ID = %d", productID))
	}
	if err != nil {
		return nil, asAppError(err)
	}
	return p, nil
}

// buildView recalcule la vue du panier. Le nom vient du catalogue, le prix de la ligne.
func (s *CartService) buildView(ctx context.Context, userID int64) (*models.CartResponse, error) {
	cart, err := s.carts.FindByUserIDWithItems(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		cart, err = s.getOrCreateCart(ctx, userID)
	}
	if err != nil {
		return nil, asAppError(err)
	}

	view := &models.CartResponse{
		CartID:     cart.CartID,
		Items:      make([]models.CartItemResponse, 0, len(cart.Items)),
		TotalPrice: decimal.Zero,
	}
	for _, item := range cart.Items {
		product, err := s.lookupProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}

		subtotal := item.Subtotal()
		view.Items = append(view.Items, models.CartItemResponse{
			CartItemID:  item.CartItemID,
			ProductID:   item.ProductID,
			ProductName: product.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			Subtotal:    subtotal,
		})
		view.TotalItems += item.Quantity
		view.TotalPrice = view.TotalPrice.Add(subtotal)
	}
	return view, nil
}

func (s *CartService) notify(ctx context.Context, userID int64, eventType string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.notifier.Publish(ctx, userID, eventType); err != nil {
		s.log.Warn("⚠️ notification panier échouée", slog.Int64("user_id", userID), slog.Any("error", err))
	}
}

func (s *CartService) fail(op string, userID int64, err error) error {
	err = asAppError(err)
	if apperrors.KindOf(err) == apperrors.KindSystem {
		s.log.Error("❌ "+op, slog.Int64("user_id", userID), slog.Any("error", err))
	} else {
		s.log.Warn(op+" refusé", slog.Int64("user_id", userID), slog.String("reason", apperrors.PublicMessage(err)))
	}
	return err
}
