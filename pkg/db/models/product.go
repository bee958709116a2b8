package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog entry a cart line item points at. SellingPrice is a
// high-precision numeric column; consumers normalize it to a float before
// arithmetic (see internal/pricing).
type Product struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string           `gorm:"column:name;not null"`
	SellingPrice decimal.Decimal  `gorm:"column:selling_price;type:numeric(12,2);not null;default:0"`
	IsActive     bool             `gorm:"column:is_active;not null;default:true"`
	Variants     []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductVariant is an optional refinement of a product (size, color). A
// variant-level selling price, when present, takes precedence over the
// product price.
type ProductVariant struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID    uuid.UUID        `gorm:"column:product_id;type:uuid;not null"`
	Name         string           `gorm:"column:name;not null"`
	SellingPrice *decimal.Decimal `gorm:"column:selling_price;type:numeric(12,2)"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
