package billing

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/creemops/creemledger/app/models"
	"github.com/creemops/creemledger/internal/pkg/env"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var validate = validator.New()

// checkoutRequired captures the fields a completed checkout must carry
// before any ledger or subscription mutation is attempted.
type checkoutRequired struct {
	UserID     string `validate:"required"`
	CustomerID string `validate:"required"`
}

// AckResult is the acknowledgment returned to the transport boundary.
// Received is the only externally required success signal; the flags exist
// for operators reading responses.
type AckResult struct {
	Received  bool   `json:"received"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
	EventType string `json:"-"`
}

// Dispatcher validates event authenticity, classifies the event type and
// routes it to reconciliation, projection and ledger operations.
type Dispatcher struct {
	svc    *Service
	secret string
}

// NewDispatcher creates a dispatcher with an injected service and webhook
// secret.
func NewDispatcher(svc *Service, webhookSecret string) *Dispatcher {
	return &Dispatcher{svc: svc, secret: webhookSecret}
}

// NewDispatcherFromDB wires the dispatcher from a GORM handle and the
// environment.
func NewDispatcherFromDB(db *gorm.DB) *Dispatcher {
	return NewDispatcher(NewServiceFromDB(db), env.GetEnv("CREEM_WEBHOOK_SECRET", ""))
}

// Handle processes a single raw webhook delivery. Authentication happens
// before any store interaction; duplicate deliveries are acknowledged
// without re-applying mutations; downstream errors are recorded on the
// event row and propagated so the caller maps them to a retryable response.
func (d *Dispatcher) Handle(ctx context.Context, rawBody []byte, signatureHeader, eventIDHeader string) (*AckResult, error) {
	if strings.TrimSpace(signatureHeader) == "" {
		return nil, ErrMissingSignature
	}
	if !VerifyCreemWebhookSignature(rawBody, signatureHeader, d.secret) {
		return nil, ErrInvalidSignature
	}

	envelope, err := ParseWebhookEnvelope(rawBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	created, stored, err := d.svc.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:        models.BillingProviderCreem,
		ProviderEventID: strings.TrimSpace(eventIDHeader),
		EventType:       envelope.EventType,
		PayloadJSON:     string(rawBody),
		SignatureValid:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("record webhook event: %w", err)
	}

	ack := &AckResult{Received: true, EventType: envelope.EventType}
	if !created {
		// Only a delivery that finished cleanly is safe to swallow. A retry
		// of a failed or interrupted delivery re-runs routing; the downstream
		// operations dedupe on their own keys, so re-applying is safe.
		if stored.ProcessedAt != nil && stored.ProcessingError == "" {
			ack.Duplicate = true
			return ack, nil
		}
	}

	var procErr error
	switch ClassifyEventType(envelope.EventType) {
	case EventClassCheckout:
		procErr = d.handleCheckoutCompleted(ctx, &envelope.Object)
	case EventClassSubscription:
		procErr = d.handleSubscriptionEvent(ctx, &envelope.Object)
	default:
		log.Printf("creem webhook: unhandled event type %q (object %s)", envelope.EventType, envelope.Object.ID)
		ack.Ignored = true
	}

	if markErr := d.svc.MarkWebhookProcessed(ctx, stored.ID, procErr); markErr != nil {
		log.Printf("creem webhook: failed to mark event %d processed: %v", stored.ID, markErr)
	}
	if procErr != nil {
		return nil, fmt.Errorf("process %s event for object %s: %w", envelope.EventType, envelope.Object.ID, procErr)
	}
	return ack, nil
}

func (d *Dispatcher) handleCheckoutCompleted(ctx context.Context, o *EventObject) error {
	md := ParseEventMetadata(o.Metadata)
	if err := validate.Struct(checkoutRequired{UserID: md.UserID, CustomerID: o.Customer.ID}); err != nil {
		return fmt.Errorf("%w: checkout requires metadata.user_id and customer data", ErrValidation)
	}

	customerID, err := d.svc.ReconcileCustomer(ctx, ExternalCustomer{
		ID:      o.Customer.ID,
		Email:   o.Customer.Email,
		Name:    o.Customer.Name,
		Country: o.Customer.Country,
	}, md.UserID)
	if err != nil {
		return fmt.Errorf("reconcile customer %s: %w", o.Customer.ID, err)
	}

	switch o.ResolveCheckoutKind(md) {
	case CheckoutCredits:
		amount := int64(md.Credits)
		description := fmt.Sprintf("Purchased %d credits", amount)
		if _, err := d.svc.AddCredits(ctx, customerID, amount, o.Order.ID, description); err != nil {
			return fmt.Errorf("add credits for order %s: %w", o.Order.ID, err)
		}
	case CheckoutSubscription:
		sub := o.Subscription
		if _, err := d.svc.ProjectSubscription(ctx, ExternalSubscription{
			ID:                 sub.ID,
			ProductID:          sub.Product.ID,
			Status:             sub.Status,
			CurrentPeriodStart: sub.CurrentPeriodStartDate.Ptr(),
			CurrentPeriodEnd:   sub.CurrentPeriodEndDate.Ptr(),
			CanceledAt:         sub.CanceledAt.Ptr(),
			MetadataJSON:       string(sub.Metadata),
		}, customerID); err != nil {
			return fmt.Errorf("project subscription %s: %w", sub.ID, err)
		}
	case CheckoutPlain:
		// Customer linkage only; nothing else to apply.
	}
	return nil
}

func (d *Dispatcher) handleSubscriptionEvent(ctx context.Context, o *EventObject) error {
	// user_id may be absent here; the subscription usually links to an
	// already reconciled customer.
	md := ParseEventMetadata(o.Metadata)

	customerID, err := d.svc.ReconcileCustomer(ctx, ExternalCustomer{
		ID:      o.Customer.ID,
		Email:   o.Customer.Email,
		Name:    o.Customer.Name,
		Country: o.Customer.Country,
	}, md.UserID)
	if err != nil {
		return fmt.Errorf("reconcile customer %s: %w", o.Customer.ID, err)
	}

	if _, err := d.svc.ProjectSubscription(ctx, ExternalSubscription{
		ID:                 o.ID,
		ProductID:          o.Product.ID,
		Status:             o.Status,
		CurrentPeriodStart: o.CurrentPeriodStartDate.Ptr(),
		CurrentPeriodEnd:   o.CurrentPeriodEndDate.Ptr(),
		CanceledAt:         o.CanceledAt.Ptr(),
		MetadataJSON:       string(o.Metadata),
	}, customerID); err != nil {
		return fmt.Errorf("project subscription %s: %w", o.ID, err)
	}
	return nil
}
