package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Les montants sortent en nombres JSON, pas en chaînes.
	decimal.MarshalJSONWithoutQuotes = true
}

const ProductNameMaxLength = 100

// MaxUnitPrice : borne exclusive de numeric(10,2).
var MaxUnitPrice = decimal.New(1, 8)

type Product struct {
	ProductID   int64           `gorm:"column:product_id;primaryKey" json:"productId"`
	ProductName string          `gorm:"column:product_name;size:100;not null" json:"productName"`
	CategoryID  *int64          `gorm:"column:category_id;index" json:"categoryId"`
	SupplierID  *int64          `gorm:"column:supplier_id" json:"supplierId"`
	Description string          `gorm:"column:description;type:text" json:"description"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null" json:"unitPrice"`
	CreatedAt   time.Time       `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time       `gorm:"column:updated_at" json:"updatedAt"`
}

func (Product) TableName() string {
	return "products"
}

// ProductInput sert à POST, PUT et PATCH : nil signifie "champ absent".
type ProductInput struct {
	ProductName *string          `json:"productName"`
	CategoryID  *int64           `json:"categoryId"`
	SupplierID  *int64           `json:"supplierId"`
	Description *string          `json:"description"`
	UnitPrice   *decimal.Decimal `json:"unitPrice"`
}

// ApplyTo copie les champs présents sur p.
func (in ProductInput) ApplyTo(p *Product) {
	if in.ProductName != nil {
		p.ProductName = *in.ProductName
	}
	if in.CategoryID != nil {
		p.CategoryID = in.CategoryID
	}
	if in.SupplierID != nil {
		p.SupplierID = in.SupplierID
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.UnitPrice != nil {
		p.UnitPrice = *in.UnitPrice
	}
}
