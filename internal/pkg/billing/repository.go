package billing

import (
	"time"

	"github.com/creemops/creemledger/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	GetCustomerByCreemID(creemCustomerID string) (*models.Customer, error)
	GetCustomerByUserID(userID string) (*models.Customer, error)
	GetCustomerByID(id uint) (*models.Customer, error)
	CreateCustomer(customer *models.Customer) error
	UpdateCustomerFields(id uint, fields map[string]interface{}) error

	GetSubscriptionByCreemID(creemSubscriptionID string) (*models.Subscription, error)
	UpsertSubscription(sub *models.Subscription) error
	GetActiveSubscriptionByUserID(userID string) (*models.Subscription, error)

	AddCreditsTx(customerID uint, amount int64, entry *models.CreditsHistoryEntry) (int64, error)
	UseCreditsTx(customerID uint, amount int64, entry *models.CreditsHistoryEntry) (int64, error)
	GetCreditsBalance(customerID uint) (int64, error)
	ListCreditsHistory(customerID uint) ([]models.CreditsHistoryEntry, error)
	HasCreditsEntryForOrder(creemOrderID string) (bool, error)

	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetCustomerByCreemID(creemCustomerID string) (*models.Customer, error) {
	var c models.Customer
	if err := r.db.Where("creem_customer_id = ?", creemCustomerID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *gormRepository) GetCustomerByUserID(userID string) (*models.Customer, error) {
	var c models.Customer
	if err := r.db.Where("user_id = ?", userID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *gormRepository) GetCustomerByID(id uint) (*models.Customer, error) {
	var c models.Customer
	if err := r.db.First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *gormRepository) CreateCustomer(customer *models.Customer) error {
	return r.db.Create(customer).Error
}

func (r *gormRepository) UpdateCustomerFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.Customer{}).Where("id = ?", id).Updates(fields).Error
}

func (r *gormRepository) GetSubscriptionByCreemID(creemSubscriptionID string) (*models.Subscription, error) {
	var s models.Subscription
	if err := r.db.Where("creem_subscription_id = ?", creemSubscriptionID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *gormRepository) UpsertSubscription(sub *models.Subscription) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "creem_subscription_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"customer_id",
			"creem_product_id",
			"status",
			"current_period_start",
			"current_period_end",
			"canceled_at",
			"metadata_json",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("creem_subscription_id = ?", sub.CreemSubscriptionID).First(sub).Error
}

func (r *gormRepository) GetActiveSubscriptionByUserID(userID string) (*models.Subscription, error) {
	var s models.Subscription
	err := r.db.
		Joins("JOIN customers ON customers.id = subscriptions.customer_id").
		Where("customers.user_id = ? AND subscriptions.status = ?", userID, models.SubscriptionStatusActive).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// AddCreditsTx applies a store-level atomic increment and appends the
// history entry in the same transaction. The balance is never computed from
// a previously read value, so concurrent writers cannot lose an update.
func (r *gormRepository) AddCreditsTx(customerID uint, amount int64, entry *models.CreditsHistoryEntry) (int64, error) {
	var balance int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Customer{}).
			Where("id = ?", customerID).
			Update("credits", gorm.Expr("credits + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		var c models.Customer
		if err := tx.Select("credits").First(&c, customerID).Error; err != nil {
			return err
		}
		balance = c.Credits
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// UseCreditsTx decrements the balance only when it covers the amount. The
// guard lives in the WHERE clause, so an insufficient balance or a lost
// race both surface as zero affected rows and nothing is written.
func (r *gormRepository) UseCreditsTx(customerID uint, amount int64, entry *models.CreditsHistoryEntry) (int64, error) {
	var balance int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Customer{}).
			Where("id = ? AND credits >= ?", customerID, amount).
			Update("credits", gorm.Expr("credits - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var c models.Customer
			if err := tx.Select("id").First(&c, customerID).Error; err != nil {
				return err
			}
			return ErrInsufficientCredits
		}
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		var c models.Customer
		if err := tx.Select("credits").First(&c, customerID).Error; err != nil {
			return err
		}
		balance = c.Credits
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *gormRepository) GetCreditsBalance(customerID uint) (int64, error) {
	var c models.Customer
	if err := r.db.Select("credits").First(&c, customerID).Error; err != nil {
		return 0, err
	}
	return c.Credits, nil
}

func (r *gormRepository) ListCreditsHistory(customerID uint) ([]models.CreditsHistoryEntry, error) {
	var entries []models.CreditsHistoryEntry
	err := r.db.
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

func (r *gormRepository) HasCreditsEntryForOrder(creemOrderID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.CreditsHistoryEntry{}).
		Where("creem_order_id = ?", creemOrderID).
		Count(&count).Error
	return count > 0, err
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
