package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shop_back_end/internal/database"
	"shop_back_end/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("test d'intégration PostgreSQL ignoré avec -short")
	}

	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return db
}

func createUser(t *testing.T, repo *UserRepository, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@x.com", Password: "hash"}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestUserRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := createUser(t, repo, "alice")
	assert.NotZero(t, alice.ID)

	t.Run("find by username and email", func(t *testing.T) {
		got, err := repo.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)

		got, err = repo.FindByEmail(ctx, "alice@x.com")
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)

		_, err = repo.FindByUsername(ctx, "bob")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate username maps to ErrDuplicateUsername", func(t *testing.T) {
		err := repo.Create(ctx, &models.User{Username: "alice", Email: "other@x.com", Password: "h"})
		assert.ErrorIs(t, err, ErrDuplicateUsername)
	})

	t.Run("duplicate email maps to ErrDuplicateEmail", func(t *testing.T) {
		err := repo.Create(ctx, &models.User{Username: "alice2", Email: "alice@x.com", Password: "h"})
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})
}

func TestProductRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	cat := int64(3)
	keyboard := &models.Product{ProductName: "Clavier mécanique", UnitPrice: decimal.RequireFromString("89.90"), CategoryID: &cat}
	mouse := &models.Product{ProductName: "Souris", Description: "100% sans fil", UnitPrice: decimal.RequireFromString("25.00")}
	require.NoError(t, repo.Create(ctx, keyboard))
	require.NoError(t, repo.Create(ctx, mouse))

	t.Run("list with and without category", func(t *testing.T) {
		all, err := repo.List(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		filtered, err := repo.List(ctx, &cat)
		require.NoError(t, err)
		require.Len(t, filtered, 1)
		assert.Equal(t, keyboard.ProductID, filtered[0].ProductID)
	})

	t.Run("find by ids keeps order", func(t *testing.T) {
		got, err := repo.FindByIDs(ctx, []int64{mouse.ProductID, 9999, keyboard.ProductID})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, mouse.ProductID, got[0].ProductID)
		assert.Equal(t, keyboard.ProductID, got[1].ProductID)
	})

	t.Run("search escapes like wildcards", func(t *testing.T) {
		got, err := repo.Search(ctx, "clavier", 10)
		require.NoError(t, err)
		require.Len(t, got, 1)

		got, err = repo.Search(ctx, "100%", 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, mouse.ProductID, got[0].ProductID)
	})

	t.Run("save and delete", func(t *testing.T) {
		mouse.UnitPrice = decimal.RequireFromString("19.99")
		require.NoError(t, repo.Save(ctx, mouse))

		got, err := repo.FindByID(ctx, mouse.ProductID)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("19.99").Equal(got.UnitPrice))

		require.NoError(t, repo.Delete(ctx, mouse.ProductID))
		assert.ErrorIs(t, repo.Delete(ctx, mouse.ProductID), ErrNotFound)

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}

func TestCartRepository(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	carts := NewCartRepository(db)
	ctx := context.Background()

	alice := createUser(t, users, "alice")

	_, err := carts.FindByUserID(ctx, alice.ID)
	require.ErrorIs(t, err, ErrNotFound)

	cart, err := carts.Create(ctx, alice.ID)
	require.NoError(t, err)
	assert.NotZero(t, cart.CartID)

	t.Run("second create reports ErrCartExists", func(t *testing.T) {
		_, err := carts.Create(ctx, alice.ID)
		assert.ErrorIs(t, err, ErrCartExists)
	})

	t.Run("items are saved, merged and cleared", func(t *testing.T) {
		item := &models.CartItem{CartID: cart.CartID, ProductID: 42, Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")}
		require.NoError(t, carts.SaveItem(ctx, item))
		require.NotZero(t, item.CartItemID)

		item.Quantity = 5
		require.NoError(t, carts.SaveItem(ctx, item))

		got, err := carts.FindItem(ctx, cart.CartID, 42)
		require.NoError(t, err)
		assert.Equal(t, 5, got.Quantity)

		require.NoError(t, carts.SaveItem(ctx, &models.CartItem{CartID: cart.CartID, ProductID: 7, Quantity: 1, UnitPrice: decimal.NewFromInt(3)}))

		withItems, err := carts.FindByUserIDWithItems(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, withItems.Items, 2)
		assert.Equal(t, int64(42), withItems.Items[0].ProductID)

		require.NoError(t, carts.DeleteItem(ctx, item.CartItemID))
		assert.ErrorIs(t, carts.DeleteItem(ctx, item.CartItemID), ErrNotFound)

		n, err := carts.DeleteItems(ctx, cart.CartID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("quantity check constraint", func(t *testing.T) {
		err := carts.SaveItem(ctx, &models.CartItem{CartID: cart.CartID, ProductID: 8, Quantity: 1000, UnitPrice: decimal.NewFromInt(1)})
		assert.Error(t, err)
	})
}

func TestCartRepository_ConcurrentCreate(t *testing.T) {
	db := setupTestDB(t)
	bob := createUser(t, NewUserRepository(db), "bob")
	carts := NewCartRepository(db)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		exists  int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := carts.Create(context.Background(), bob.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case assert.ErrorIs(t, err, ErrCartExists):
				exists++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, 7, exists)
}

func TestTxManager_RollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	tx := NewTxManager(db)
	ctx := context.Background()

	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		createUserCtx := &models.User{Username: "carol", Email: "carol@x.com", Password: "h"}
		require.NoError(t, users.Create(ctx, createUserCtx))

		// imbriqué : même transaction
		return tx.WithinTransaction(ctx, func(ctx context.Context) error {
			return users.Create(ctx, &models.User{Username: "carol", Email: "c2@x.com", Password: "h"})
		})
	})
	require.ErrorIs(t, err, ErrDuplicateUsername)

	_, err = users.FindByUsername(ctx, "carol")
	assert.ErrorIs(t, err, ErrNotFound)
}
