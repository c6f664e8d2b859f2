package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"

	"shop_back_end/internal/cache"
	"shop_back_end/internal/models"
	"shop_back_end/internal/repository"
)

var errDB = errors.New("connexion perdue")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockTx exécute fn directement et compte les transactions ouvertes.
type mockTx struct {
	calls int
}

func (m *mockTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

// mockHasher : "hash:" + mot de passe, suffisant pour tester la logique du service.
type mockHasher struct {
	dummyCalls int
	err        error
}

func (m *mockHasher) Hash(password string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "hash:" + password, nil
}

func (m *mockHasher) Verify(password, encodedHash string) bool {
	return encodedHash == "hash:"+password
}

func (m *mockHasher) DummyVerify(string) {
	m.dummyCalls++
}

type mockUserStore struct {
	mu        sync.Mutex
	users     map[string]*models.User
	nextID    int64
	findErr   error
	createErr error
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: map[string]*models.User{}}
}

func (m *mockUserStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserStore) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	u.ID = m.nextID
	cp := *u
	m.users[u.Username] = &cp
	return nil
}

type mockProductStore struct {
	mu       sync.Mutex
	products map[int64]*models.Product
	nextID   int64
	err      error
	searched []string
}

func newMockProductStore(products ...*models.Product) *mockProductStore {
	m := &mockProductStore{products: map[int64]*models.Product{}}
	for _, p := range products {
		m.products[p.ProductID] = p
		if p.ProductID > m.nextID {
			m.nextID = p.ProductID
		}
	}
	return m
}

func (m *mockProductStore) List(_ context.Context, categoryID *int64) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []models.Product{}
	for _, p := range m.products {
		if categoryID != nil && (p.CategoryID == nil || *p.CategoryID != *categoryID) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (m *mockProductStore) FindByID(_ context.Context, id int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductStore) FindByIDs(_ context.Context, ids []int64) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductStore) Create(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.nextID++
	p.ProductID = m.nextID
	cp := *p
	m.products[p.ProductID] = &cp
	return nil
}

func (m *mockProductStore) Save(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := *p
	m.products[p.ProductID] = &cp
	return nil
}

func (m *mockProductStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductStore) Search(_ context.Context, query string, _ int) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searched = append(m.searched, query)
	out := []models.Product{}
	for _, p := range m.products {
		if p.ProductName == query {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductStore) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.products)), m.err
}

// passthroughCache : pas de mise en cache, compte les invalidations.
type passthroughCache struct {
	invalidated []int64
}

func (c *passthroughCache) GetOrLoad(ctx context.Context, id int64, load cache.ProductLoader) (*models.Product, error) {
	return load(ctx, id)
}

func (c *passthroughCache) Invalidate(_ context.Context, id int64) error {
	c.invalidated = append(c.invalidated, id)
	return nil
}

type mockIndex struct {
	enabled   bool
	ids       []int64
	searchErr error
	indexErr  error
	indexed   []int64
	removed   []int64
}

func (m *mockIndex) Enabled() bool { return m.enabled }

func (m *mockIndex) Index(_ context.Context, p *models.Product) error {
	m.indexed = append(m.indexed, p.ProductID)
	return m.indexErr
}

func (m *mockIndex) Remove(_ context.Context, id int64) error {
	m.removed = append(m.removed, id)
	return m.indexErr
}

func (m *mockIndex) Search(context.Context, string, int) ([]int64, error) {
	return m.ids, m.searchErr
}

// mockCartStore reproduit les contraintes de la base : un panier par user, une ligne par produit.
type mockCartStore struct {
	mu         sync.Mutex
	carts      map[int64]*models.Cart // par user id
	items      map[int64]*models.CartItem
	nextCart   int64
	nextItem   int64
	err        error
	createRace bool // simule un panier créé par une requête concurrente
}

func newMockCartStore() *mockCartStore {
	return &mockCartStore{carts: map[int64]*models.Cart{}, items: map[int64]*models.CartItem{}}
}

func (m *mockCartStore) FindByUserID(_ context.Context, userID int64) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.carts[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &models.Cart{CartID: c.CartID, UserID: c.UserID}, nil
}

func (m *mockCartStore) FindByUserIDWithItems(ctx context.Context, userID int64) (*models.Cart, error) {
	c, err := m.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c.Items = []models.CartItem{}
	for _, it := range m.items {
		if it.CartID == c.CartID {
			c.Items = append(c.Items, *it)
		}
	}
	sort.Slice(c.Items, func(i, j int) bool { return c.Items[i].CartItemID < c.Items[j].CartItemID })
	return c, nil
}

func (m *mockCartStore) Create(_ context.Context, userID int64) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.createRace {
		m.createRace = false
		m.nextCart++
		m.carts[userID] = &models.Cart{CartID: m.nextCart, UserID: userID}
	}
	if _, ok := m.carts[userID]; ok {
		return nil, repository.ErrCartExists
	}
	m.nextCart++
	c := &models.Cart{CartID: m.nextCart, UserID: userID}
	m.carts[userID] = c
	return &models.Cart{CartID: c.CartID, UserID: userID, Items: []models.CartItem{}}, nil
}

func (m *mockCartStore) FindItem(_ context.Context, cartID, productID int64) (*models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.CartID == cartID && it.ProductID == productID {
			cp := *it
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockCartStore) SaveItem(_ context.Context, item *models.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if item.CartItemID == 0 {
		for _, it := range m.items {
			if it.CartID == item.CartID && it.ProductID == item.ProductID {
				return errors.New("violation uq_cart_items_cart_product")
			}
		}
		m.nextItem++
		item.CartItemID = m.nextItem
	}
	cp := *item
	m.items[item.CartItemID] = &cp
	return nil
}

func (m *mockCartStore) DeleteItem(_ context.Context, cartItemID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[cartItemID]; !ok {
		return repository.ErrNotFound
	}
	delete(m.items, cartItemID)
	return nil
}

func (m *mockCartStore) DeleteItems(_ context.Context, cartID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, it := range m.items {
		if it.CartID == cartID {
			delete(m.items, id)
			n++
		}
	}
	return n, nil
}

func (m *mockCartStore) itemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type publishedEvent struct {
	userID    int64
	eventType string
}

type mockNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (m *mockNotifier) Publish(_ context.Context, userID int64, eventType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{userID, eventType})
	return m.err
}
