package models

import "time"

const (
	CreditsTypeAdd      = "add"
	CreditsTypeSubtract = "subtract"
)

// CreditsHistoryEntry is an append-only record of a single balance-changing
// operation. Rows are never updated or deleted; the signed sum of all rows
// for a customer must always equal the customer's current balance.
type CreditsHistoryEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CustomerID   uint      `gorm:"not null;index" json:"customer_id"`
	Amount       int64     `gorm:"not null" json:"amount"`
	Type         string    `gorm:"type:varchar(16);not null" json:"type"`
	Description  string    `gorm:"type:varchar(500);default:''" json:"description"`
	CreemOrderID *string   `gorm:"type:varchar(191);uniqueIndex:ux_credits_history_creem_order_id" json:"creem_order_id,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName keeps the provider-era table name.
func (CreditsHistoryEntry) TableName() string {
	return "credits_history"
}

// SignedAmount returns the amount with the sign implied by the entry type.
func (e *CreditsHistoryEntry) SignedAmount() int64 {
	if e.Type == CreditsTypeSubtract {
		return -e.Amount
	}
	return e.Amount
}
