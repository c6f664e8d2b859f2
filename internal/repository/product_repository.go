package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"shop_back_end/internal/models"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// List retourne les produits triés par id, filtrés par catégorie si categoryID != nil.
func (r *ProductRepository) List(ctx context.Context, categoryID *int64) ([]models.Product, error) {
	q := conn(ctx, r.db).Order("product_id")
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}

	var products []models.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	if err := conn(ctx, r.db).First(&p, "product_id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// FindByIDs conserve l'ordre de ids (ordre de pertinence de la recherche).
func (r *ProductRepository) FindByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	var found []models.Product
	if err := conn(ctx, r.db).Where("product_id IN ?", ids).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("find products by ids: %w", err)
	}

	byID := make(map[int64]models.Product, len(found))
	for _, p := range found {
		byID[p.ProductID] = p
	}

	out := make([]models.Product, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	if err := conn(ctx, r.db).Create(p).Error; err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Save(ctx context.Context, p *models.Product) error {
	if err := conn(ctx, r.db).Save(p).Error; err != nil {
		return fmt.Errorf("save product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	res := conn(ctx, r.db).Delete(&models.Product{}, "product_id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Search : recherche de secours quand Elasticsearch n'est pas disponible.
func (r *ProductRepository) Search(ctx context.Context, query string, limit int) ([]models.Product, error) {
	pattern := "%" + escapeLike(query) + "%"

	var products []models.Product
	err := conn(ctx, r.db).
		Where("product_name ILIKE ? OR description ILIKE ?", pattern, pattern).
		Order("product_id").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return products, nil
}

func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := conn(ctx, r.db).Model(&models.Product{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
