package models

import (
	"time"

	"github.com/google/uuid"
)

// AbandonedCartSetting is the admin-managed reminder/discount policy. Only
// the first active row (created_at, id order) is consulted by the sweeps.
type AbandonedCartSetting struct {
	ID                      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	HoursAfterEmailIsSent   int       `gorm:"column:hours_after_email_is_sent;not null"`
	DiscountPercent         float64   `gorm:"column:discount_percent;type:numeric(5,2);not null"`
	HoursAfterCartIsEmptied int       `gorm:"column:hours_after_cart_is_emptied;not null"`
	IsActive                bool      `gorm:"column:is_active;not null;default:false"`
	CreatedAt               time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// AbandonedCartItem is a snapshot of a cart line item taken by the reminder
// sweep. The discount percent is frozen at snapshot time; later policy edits
// never touch existing rows. Snapshots are matched against live items by the
// (product_id, variant_id, quantity) triple and deleted in bulk when the
// cart expires.
type AbandonedCartItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID          uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;index"`
	UserID          uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	VariantID       *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	Quantity        int             `gorm:"column:quantity;not null"`
	DiscountPercent float64         `gorm:"column:discount_percent;type:numeric(5,2);not null"`
	Product         *Product        `gorm:"foreignKey:ProductID"`
	Variant         *ProductVariant `gorm:"foreignKey:VariantID"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}
