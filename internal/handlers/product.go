package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shop_back_end/internal/models"
)

type CatalogService interface {
	List(ctx context.Context, categoryID *int64) ([]models.Product, error)
	Get(ctx context.Context, id int64) (*models.Product, error)
	Create(ctx context.Context, in models.ProductInput) (*models.Product, error)
	Replace(ctx context.Context, id int64, in models.ProductInput) (*models.Product, error)
	Patch(ctx context.Context, id int64, in models.ProductInput) (*models.Product, error)
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, query string) ([]models.Product, error)
}

type ProductHandler struct {
	catalog CatalogService
	log     *slog.Logger
}

func NewProductHandler(catalog CatalogService, log *slog.Logger) *ProductHandler {
	return &ProductHandler{catalog: catalog, log: log}
}

// ListProducts : GET /api/products[?categoryId=]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	var categoryID *int64
	if raw := c.Query("categoryId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "無效的分類ID")
			return
		}
		categoryID = &id
	}

	products, err := h.catalog.List(c.Request.Context(), categoryID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// SearchProducts : GET /api/products/search?q=
func (h *ProductHandler) SearchProducts(c *gin.Context) {
	products, err := h.catalog.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}

	p, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var in models.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, MsgBadRequest)
		return
	}

	p, err := h.catalog.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// UpdateProduct : PUT, remplacement complet.
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}

	var in models.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, MsgBadRequest)
		return
	}

	p, err := h.catalog.Replace(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// PatchProduct : PATCH, seuls les champs présents sont modifiés.
func (h *ProductHandler) PatchProduct(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}

	var in models.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, MsgBadRequest)
		return
	}

	p, err := h.catalog.Patch(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}

	if err := h.catalog.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProductHandler) productID(c *gin.Context) (int64, bool) {
	id, err := parseID(c, "id")
	if err != nil {
		badRequest(c, "無效的產品ID")
		return 0, false
	}
	return id, true
}
