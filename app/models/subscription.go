package models

import "time"

const (
	SubscriptionStatusIncomplete = "incomplete"
	SubscriptionStatusTrialing   = "trialing"
	SubscriptionStatusActive     = "active"
	SubscriptionStatusPaid       = "paid"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusCanceled   = "canceled"
	SubscriptionStatusExpired    = "expired"
	SubscriptionStatusUnknown    = "unknown"
)

// Subscription is a projection of a Creem subscription. All mutable fields
// are owned by the provider and fully replaced on every webhook event; the
// row is never deleted.
type Subscription struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	CustomerID          uint       `gorm:"not null;index" json:"customer_id"`
	CreemSubscriptionID string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_subscriptions_creem_subscription_id" json:"creem_subscription_id"`
	CreemProductID      string     `gorm:"type:varchar(191);not null;default:'';index" json:"creem_product_id"`
	Status              string     `gorm:"type:varchar(32);not null;default:'incomplete';index" json:"status"`
	CurrentPeriodStart  *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd    *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CanceledAt          *time.Time `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
	MetadataJSON        string     `gorm:"type:longtext" json:"metadata_json"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsEntitling reports whether the status grants access to paid features.
func (s *Subscription) IsEntitling() bool {
	switch s.Status {
	case SubscriptionStatusActive, SubscriptionStatusPaid, SubscriptionStatusTrialing:
		return true
	default:
		return false
	}
}
