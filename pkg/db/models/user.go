package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a storefront account. Guest users are created for anonymous
// sessions and never carry an email address.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     *string   `gorm:"column:email;uniqueIndex"`
	Name      string    `gorm:"column:name;not null;default:''"`
	IsGuest   bool      `gorm:"column:is_guest;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
