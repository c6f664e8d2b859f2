package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"shop_back_end/internal/apperrors"
	"shop_back_end/internal/models"
	"shop_back_end/internal/repository"
)

const SearchLimit = 50

type CatalogService struct {
	products ProductStore
	cache    ProductCache
	index    ProductIndex
	log      *slog.Logger
}

func NewCatalogService(products ProductStore, cache ProductCache, index ProductIndex, log *slog.Logger) *CatalogService {
	return &CatalogService{products: products, cache: cache, index: index, log: log}
}

func (s *CatalogService) List(ctx context.Context, categoryID *int64) ([]models.Product, error) {
	products, err := s.products.List(ctx, categoryID)
	if err != nil {
		return nil, apperrors.System(err)
	}
	s.log.Debug("produits listés", slog.Int("count", len(products)))
	return products, nil
}

// Get lit le produit via le cache Redis.
func (s *CatalogService) Get(ctx context.Context, id int64) (*models.Product, error) {
	p, err := s.cache.GetOrLoad(ctx, id, s.products.FindByID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound(fmt.Sprintf("產品不存在：ID = %d", id))
	}
	if err != nil {
		return nil, apperrors.System(err)
	}
	return p, nil
}

func (s *CatalogService) Create(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	if err := requireFullInput(in); err != nil {
		return nil, err
	}

	p := &models.Product{}
	in.ApplyTo(p)
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	if err := s.products.Create(ctx, p); err != nil {
		return nil, apperrors.System(err)
	}

	s.log.Info("✅ produit créé", slog.Int64("product_id", p.ProductID))
	s.reindex(ctx, p)
	return p, nil
}

// Replace (PUT) remplace tous les champs modifiables; un champ absent est remis à zéro.
func (s *CatalogService) Replace(ctx context.Context, id int64, in models.ProductInput) (*models.Product, error) {
	if err := requireFullInput(in); err != nil {
		return nil, err
	}

	existing, err := s.findForWrite(ctx, id)
	if err != nil {
		return nil, err
	}

	p := &models.Product{ProductID: existing.ProductID, CreatedAt: existing.CreatedAt}
	in.ApplyTo(p)
	return s.save(ctx, p)
}

// Patch ne modifie que les champs présents.
func (s *CatalogService) Patch(ctx context.Context, id int64, in models.ProductInput) (*models.Product, error) {
	p, err := s.findForWrite(ctx, id)
	if err != nil {
		return nil, err
	}

	in.ApplyTo(p)
	return s.save(ctx, p)
}

// Delete laisse les lignes de panier qui référencent le produit : getCart échouera sur elles.
func (s *CatalogService) Delete(ctx context.Context, id int64) error {
	err := s.products.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(fmt.Sprintf("產品不存在，無法刪除：ID = %d", id))
	}
	if err != nil {
		return apperrors.System(err)
	}

	s.log.Info("produit supprimé", slog.Int64("product_id", id))
	s.evict(ctx, id)
	if s.index.Enabled() {
		if err := s.index.Remove(ctx, id); err != nil {
			s.log.Warn("⚠️ suppression Elasticsearch échouée", slog.Int64("product_id", id), slog.Any("error", err))
		}
	}
	return nil
}

// Search interroge Elasticsearch et retombe sur un ILIKE SQL si l'index est indisponible.
func (s *CatalogService) Search(ctx context.Context, query string) ([]models.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.Invalid("搜尋關鍵字不能為空")
	}

	if s.index.Enabled() {
		ids, err := s.index.Search(ctx, query, SearchLimit)
		if err == nil {
			products, err := s.products.FindByIDs(ctx, ids)
			if err != nil {
				return nil, apperrors.System(err)
			}
			return products, nil
		}
		s.log.Warn("⚠️ recherche Elasticsearch indisponible, repli SQL", slog.Any("error", err))
	}

	products, err := s.products.Search(ctx, query, SearchLimit)
	if err != nil {
		return nil, apperrors.System(err)
	}
	return products, nil
}

func (s *CatalogService) Count(ctx context.Context) (int64, error) {
	n, err := s.products.Count(ctx)
	if err != nil {
		return 0, apperrors.System(err)
	}
	return n, nil
}

// Current lit le produit en base sans passer par le cache : prix figé au panier, détection des orphelins.
func (s *CatalogService) Current(ctx context.Context, id int64) (*models.Product, error) {
	return s.findForWrite(ctx, id)
}

// findForWrite lit directement en base, sans passer par le cache.
func (s *CatalogService) findForWrite(ctx context.Context, id int64) (*models.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound(fmt.Sprintf("產品不存在：ID = %d", id))
	}
	if err != nil {
		return nil, apperrors.System(err)
	}
	return p, nil
}

func (s *CatalogService) save(ctx context.Context, p *models.Product) (*models.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.products.Save(ctx, p); err != nil {
		return nil, apperrors.System(err)
	}

	s.log.Info("produit mis à jour", slog.Int64("product_id", p.ProductID))
	s.evict(ctx, p.ProductID)
	s.reindex(ctx, p)
	return p, nil
}

func (s *CatalogService) evict(ctx context.Context, id int64) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.Warn("⚠️ invalidation cache produit échouée", slog.Int64("product_id", id), slog.Any("error", err))
	}
}

func (s *CatalogService) reindex(ctx context.Context, p *models.Product) {
	if !s.index.Enabled() {
		return
	}
	if err := s.index.Index(ctx, p); err != nil {
		s.log.Warn("⚠️ indexation Elasticsearch échouée", slog.Int64("product_id", p.ProductID), slog.Any("error", err))
	}
}

// requireFullInput : POST et PUT exigent le nom et le prix.
func requireFullInput(in models.ProductInput) error {
	if in.ProductName == nil {
		return apperrors.Invalid("產品名稱不能為空")
	}
	if in.UnitPrice == nil {
		return apperrors.Invalid("產品價格不能為空")
	}
	return nil
}

func validateProduct(p *models.Product) error {
	name := strings.TrimSpace(p.ProductName)
	if name == "" {
		return apperrors.Invalid("產品名稱不能為空")
	}
	if len([]rune(name)) > models.ProductNameMaxLength {
		return apperrors.Invalid("產品名稱不能超過 100 個字元")
	}
	if p.UnitPrice.IsNegative() {
		return apperrors.Invalid("產品價格不能小於 0")
	}
	price := p.UnitPrice.Round(2)
	if price.GreaterThanOrEqual(models.MaxUnitPrice) {
		return apperrors.Invalid("產品價格不能超過 99999999.99")
	}
	p.ProductName = name
	p.UnitPrice = price
	return nil
}
