package models

import "time"

// Billing provider constants used across billing-related models.
const (
	BillingProviderCreem = "creem"
)

// Customer links a Creem customer identity to a local user account and
// carries the credits balance consumed by the rest of the application.
// At most one row per user_id and at most one row per creem_customer_id.
type Customer struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          *string   `gorm:"type:varchar(64);uniqueIndex:ux_customers_user_id" json:"user_id,omitempty"`
	CreemCustomerID string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_customers_creem_customer_id" json:"creem_customer_id"`
	Email           string    `gorm:"type:varchar(200);default:''" json:"email"`
	Name            string    `gorm:"type:varchar(200);default:''" json:"name"`
	Country         string    `gorm:"type:varchar(8);default:''" json:"country"`
	Credits         int64     `gorm:"not null;default:0" json:"credits"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
