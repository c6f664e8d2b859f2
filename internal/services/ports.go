package services

import (
	"context"

	"shop_back_end/internal/cache"
	"shop_back_end/internal/models"
)

// Transactor exécute fn dans une seule transaction base de données.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
}

type ProductStore interface {
	List(ctx context.Context, categoryID *int64) ([]models.Product, error)
	FindByID(ctx context.Context, id int64) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Save(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, query string, limit int) ([]models.Product, error)
	Count(ctx context.Context) (int64, error)
}

type CartStore interface {
	FindByUserID(ctx context.Context, userID int64) (*models.Cart, error)
	FindByUserIDWithItems(ctx context.Context, userID int64) (*models.Cart, error)
	Create(ctx context.Context, userID int64) (*models.Cart, error)
	FindItem(ctx context.Context, cartID, productID int64) (*models.CartItem, error)
	SaveItem(ctx context.Context, item *models.CartItem) error
	DeleteItem(ctx context.Context, cartItemID int64) error
	DeleteItems(ctx context.Context, cartID int64) (int64, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) bool
	DummyVerify(password string)
}

type ProductCache interface {
	GetOrLoad(ctx context.Context, id int64, load cache.ProductLoader) (*models.Product, error)
	Invalidate(ctx context.Context, id int64) error
}

type ProductIndex interface {
	Enabled() bool
	Index(ctx context.Context, p *models.Product) error
	Remove(ctx context.Context, id int64) error
	Search(ctx context.Context, query string, limit int) ([]int64, error)
}

type CartNotifier interface {
	Publish(ctx context.Context, userID int64, eventType string) error
}
