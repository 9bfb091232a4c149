package billing

import (
	"sort"
	"sync"
	"time"

	"github.com/creemops/creemledger/app/models"
	"gorm.io/gorm"
)

// fakeRepo is an in-memory Repository used to test service semantics
// without a database. It mirrors the store-level behavior the GORM
// implementation relies on: unique keys, guarded decrements and upserts.
// A mutex stands in for the database's transaction isolation so stress
// tests can drive it from parallel writers.
type fakeRepo struct {
	mu sync.Mutex

	customers map[uint]*models.Customer
	subs      map[string]*models.Subscription
	history   []models.CreditsHistoryEntry
	events    map[string]*models.WebhookEvent

	nextCustomerID uint
	nextSubID      uint
	nextEntryID    uint
	nextEventID    uint
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		customers: make(map[uint]*models.Customer),
		subs:      make(map[string]*models.Subscription),
		events:    make(map[string]*models.WebhookEvent),
	}
}

func (f *fakeRepo) GetCustomerByCreemID(creemCustomerID string) (*models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.customers {
		if c.CreemCustomerID == creemCustomerID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetCustomerByUserID(userID string) (*models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.customers {
		if c.UserID != nil && *c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetCustomerByID(id uint) (*models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeRepo) CreateCustomer(customer *models.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextCustomerID++
	customer.ID = f.nextCustomerID
	cp := *customer
	f.customers[customer.ID] = &cp
	return nil
}

func (f *fakeRepo) UpdateCustomerFields(id uint, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := fields["creem_customer_id"].(string); ok {
		c.CreemCustomerID = v
	}
	if v, ok := fields["email"].(string); ok {
		c.Email = v
	}
	if v, ok := fields["name"].(string); ok {
		c.Name = v
	}
	if v, ok := fields["country"].(string); ok {
		c.Country = v
	}
	return nil
}

func (f *fakeRepo) GetSubscriptionByCreemID(creemSubscriptionID string) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[creemSubscriptionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeRepo) UpsertSubscription(sub *models.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.subs[sub.CreemSubscriptionID]; ok {
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	} else {
		f.nextSubID++
		sub.ID = f.nextSubID
	}
	cp := *sub
	f.subs[sub.CreemSubscriptionID] = &cp
	return nil
}

func (f *fakeRepo) GetActiveSubscriptionByUserID(userID string) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		if s.Status != models.SubscriptionStatusActive {
			continue
		}
		c, ok := f.customers[s.CustomerID]
		if ok && c.UserID != nil && *c.UserID == userID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) AddCreditsTx(customerID uint, amount int64, entry *models.CreditsHistoryEntry) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[customerID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	c.Credits += amount
	f.appendEntry(entry)
	return c.Credits, nil
}

func (f *fakeRepo) UseCreditsTx(customerID uint, amount int64, entry *models.CreditsHistoryEntry) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[customerID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	if c.Credits < amount {
		return 0, ErrInsufficientCredits
	}
	c.Credits -= amount
	f.appendEntry(entry)
	return c.Credits, nil
}

// appendEntry must be called with f.mu held.
func (f *fakeRepo) appendEntry(entry *models.CreditsHistoryEntry) {
	f.nextEntryID++
	entry.ID = f.nextEntryID
	entry.CreatedAt = time.Now()
	f.history = append(f.history, *entry)
}

func (f *fakeRepo) GetCreditsBalance(customerID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[customerID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	return c.Credits, nil
}

func (f *fakeRepo) ListCreditsHistory(customerID uint) ([]models.CreditsHistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.CreditsHistoryEntry
	for _, e := range f.history {
		if e.CustomerID == customerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeRepo) HasCreditsEntryForOrder(creemOrderID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.history {
		if e.CreemOrderID != nil && *e.CreemOrderID == creemOrderID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := event.Provider + "|" + event.ProviderEventID
	if existing, ok := f.events[key]; ok {
		cp := *existing
		return false, &cp, nil
	}
	f.nextEventID++
	event.ID = f.nextEventID
	cp := *event
	f.events[key] = &cp
	stored := cp
	return true, &stored, nil
}

func (f *fakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

var _ Repository = (*fakeRepo)(nil)
