package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/calebmonroy/storefront-backend/pkg/enums"
)

// Cart is the single active cart owned by a user. The reminder fields are
// written only by the abandoned-cart sweeps: the reminder sweep moves the
// state to reminded and freezes the accrued discount, the expiry sweep wipes
// the cart and resets all three. Normal cart activity bumps UpdatedAt, which
// re-qualifies the cart as fresh until it idles past the policy threshold
// again.
type Cart struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID                uuid.UUID           `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	ReminderState         enums.ReminderState `gorm:"column:reminder_state;type:reminder_state;not null;default:'not_reminded'"`
	LastReminderAt        *time.Time          `gorm:"column:last_reminder_at"`
	ReminderDiscountTotal *float64            `gorm:"column:reminder_discount_total;type:numeric(12,2)"`
	AppliedFinalTotal     *float64            `gorm:"column:applied_final_total;type:numeric(12,2)"`
	User                  *User               `gorm:"foreignKey:UserID"`
	Items                 []CartItem          `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// CartItem is a live line item. It references the catalog rather than
// snapshotting prices; pricing is resolved at read time.
type CartItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID    uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	VariantID *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	Quantity  int             `gorm:"column:quantity;not null;default:1"`
	Product   *Product        `gorm:"foreignKey:ProductID"`
	Variant   *ProductVariant `gorm:"foreignKey:VariantID"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
