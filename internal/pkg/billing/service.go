package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/creemops/creemledger/app/models"
	"github.com/creemops/creemledger/internal/pkg/env"
	"gorm.io/gorm"
)

// ExternalCustomer is the provider-side customer identity attached to an
// event.
type ExternalCustomer struct {
	ID      string
	Email   string
	Name    string
	Country string
}

// ExternalSubscription is the normalized provider subscription state used
// when projecting into the local subscriptions table.
type ExternalSubscription struct {
	ID                 string
	ProductID          string
	Status             string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CanceledAt         *time.Time
	MetadataJSON       string
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// Service provides customer reconciliation, subscription projection and the
// credits ledger on top of an injected repository.
type Service struct {
	repo Repository

	// MonotonicPeriodGuard discards subscription projections whose period
	// start is older than the stored row's. Off by default: the provider is
	// the source of truth and last-committed write wins.
	MonotonicPeriodGuard bool
}

// NewService creates a billing service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a billing service from a GORM DB handle with the
// monotonic guard taken from the environment.
func NewServiceFromDB(db *gorm.DB) *Service {
	svc := NewService(NewRepository(db))
	svc.MonotonicPeriodGuard = env.GetBool("BILLING_MONOTONIC_GUARD", false)
	return svc
}

// ReconcileCustomer maps a provider customer identity plus an optional local
// user id to exactly one customer row. Resolution order: creem customer id,
// then user id (first-time linkage), then insert. Repeated calls for the
// same provider identity always resolve to the same row.
func (s *Service) ReconcileCustomer(ctx context.Context, ext ExternalCustomer, userID string) (uint, error) {
	_ = ctx
	creemID := strings.TrimSpace(ext.ID)
	if creemID == "" {
		return 0, fmt.Errorf("%w: customer id is required", ErrValidation)
	}
	userID = strings.TrimSpace(userID)

	existing, err := s.repo.GetCustomerByCreemID(creemID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	if existing != nil {
		if err := s.repo.UpdateCustomerFields(existing.ID, map[string]interface{}{
			"email":      strings.TrimSpace(ext.Email),
			"name":       strings.TrimSpace(ext.Name),
			"country":    strings.TrimSpace(ext.Country),
			"updated_at": time.Now(),
		}); err != nil {
			return 0, err
		}
		return existing.ID, nil
	}

	// A local user record may pre-date any provider identity; link it
	// instead of violating the user_id unique constraint with an insert.
	if userID != "" {
		byUser, err := s.repo.GetCustomerByUserID(userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
		if byUser != nil {
			if err := s.repo.UpdateCustomerFields(byUser.ID, map[string]interface{}{
				"creem_customer_id": creemID,
				"email":             strings.TrimSpace(ext.Email),
				"name":              strings.TrimSpace(ext.Name),
				"country":           strings.TrimSpace(ext.Country),
				"updated_at":        time.Now(),
			}); err != nil {
				return 0, err
			}
			return byUser.ID, nil
		}
	}

	customer := &models.Customer{
		CreemCustomerID: creemID,
		Email:           strings.TrimSpace(ext.Email),
		Name:            strings.TrimSpace(ext.Name),
		Country:         strings.TrimSpace(ext.Country),
	}
	if userID != "" {
		customer.UserID = &userID
	}
	if err := s.repo.CreateCustomer(customer); err != nil {
		return 0, err
	}
	return customer.ID, nil
}

// ProjectSubscription upserts the provider subscription state. The mutable
// projection is fully replaced, never merged; status transition legality is
// not checked because the provider owns subscription state.
func (s *Service) ProjectSubscription(ctx context.Context, ext ExternalSubscription, customerID uint) (uint, error) {
	_ = ctx
	subID := strings.TrimSpace(ext.ID)
	if subID == "" || customerID == 0 {
		return 0, fmt.Errorf("%w: subscription id and customer id are required", ErrValidation)
	}

	status := strings.ToLower(strings.TrimSpace(ext.Status))
	if status == "" {
		status = models.SubscriptionStatusUnknown
	}

	if s.MonotonicPeriodGuard && ext.CurrentPeriodStart != nil {
		stored, err := s.repo.GetSubscriptionByCreemID(subID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
		if stored != nil && stored.CurrentPeriodStart != nil &&
			ext.CurrentPeriodStart.Before(*stored.CurrentPeriodStart) {
			return stored.ID, nil
		}
	}

	sub := &models.Subscription{
		CustomerID:          customerID,
		CreemSubscriptionID: subID,
		CreemProductID:      strings.TrimSpace(ext.ProductID),
		Status:              status,
		CurrentPeriodStart:  ext.CurrentPeriodStart,
		CurrentPeriodEnd:    ext.CurrentPeriodEnd,
		CanceledAt:          ext.CanceledAt,
		MetadataJSON:        ext.MetadataJSON,
	}
	if err := s.repo.UpsertSubscription(sub); err != nil {
		return 0, err
	}
	return sub.ID, nil
}

// AddCredits credits a customer and appends the audit entry. When an order
// reference is supplied the operation is idempotent: a redelivered order
// returns the current balance without writing anything.
func (s *Service) AddCredits(ctx context.Context, customerID uint, amount int64, creemOrderID, description string) (int64, error) {
	_ = ctx
	if customerID == 0 {
		return 0, fmt.Errorf("%w: customer id is required", ErrValidation)
	}
	if amount < 0 {
		return 0, fmt.Errorf("%w: credits amount must not be negative", ErrValidation)
	}

	orderID := strings.TrimSpace(creemOrderID)
	if orderID != "" {
		seen, err := s.repo.HasCreditsEntryForOrder(orderID)
		if err != nil {
			return 0, err
		}
		if seen {
			return s.GetBalance(ctx, customerID)
		}
	}

	// Zero-credit checkouts still reconcile the customer but leave no
	// ledger trace; history amounts are strictly positive.
	if amount == 0 {
		return s.GetBalance(ctx, customerID)
	}

	if description == "" {
		description = "Credits purchase"
	}
	entry := &models.CreditsHistoryEntry{
		CustomerID:  customerID,
		Amount:      amount,
		Type:        models.CreditsTypeAdd,
		Description: description,
	}
	if orderID != "" {
		entry.CreemOrderID = &orderID
	}

	balance, err := s.repo.AddCreditsTx(customerID, amount, entry)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrCustomerNotFound
	}
	return balance, err
}

// UseCredits debits a customer. There is no partial debit: an insufficient
// balance fails with ErrInsufficientCredits and leaves balance and history
// unchanged.
func (s *Service) UseCredits(ctx context.Context, customerID uint, amount int64, description string) (int64, error) {
	_ = ctx
	if customerID == 0 {
		return 0, fmt.Errorf("%w: customer id is required", ErrValidation)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: debit amount must be positive", ErrValidation)
	}

	entry := &models.CreditsHistoryEntry{
		CustomerID:  customerID,
		Amount:      amount,
		Type:        models.CreditsTypeSubtract,
		Description: description,
	}
	balance, err := s.repo.UseCreditsTx(customerID, amount, entry)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrCustomerNotFound
	}
	return balance, err
}

// GetBalance returns the current credits balance for a customer.
func (s *Service) GetBalance(ctx context.Context, customerID uint) (int64, error) {
	_ = ctx
	balance, err := s.repo.GetCreditsBalance(customerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrCustomerNotFound
	}
	return balance, err
}

// GetHistory returns the customer's balance-changing operations, newest
// first.
func (s *Service) GetHistory(ctx context.Context, customerID uint) ([]models.CreditsHistoryEntry, error) {
	_ = ctx
	return s.repo.ListCreditsHistory(customerID)
}

// GetCustomer resolves a customer row by internal id.
func (s *Service) GetCustomer(ctx context.Context, customerID uint) (*models.Customer, error) {
	_ = ctx
	c, err := s.repo.GetCustomerByID(customerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCustomerNotFound
	}
	return c, err
}

// GetActiveSubscriptionForUser returns the user's active subscription, or
// nil when none exists.
func (s *Service) GetActiveSubscriptionForUser(ctx context.Context, userID string) (*models.Subscription, error) {
	_ = ctx
	sub, err := s.repo.GetActiveSubscriptionByUserID(strings.TrimSpace(userID))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// RecordWebhookEvent persists webhook payloads idempotently. Events without
// a provider event id are deduplicated by payload hash, which also catches
// byte-identical redeliveries.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.WebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.WebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional
// error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}
