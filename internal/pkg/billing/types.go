package billing

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Event type classification. Unrecognized events are acknowledged as a
// no-op so the provider does not retry them.
const (
	EventCheckoutCompleted    = "checkout.completed"
	EventSubscriptionActive   = "subscription.active"
	EventSubscriptionPaid     = "subscription.paid"
	EventSubscriptionCanceled = "subscription.canceled"
	EventSubscriptionExpired  = "subscription.expired"
	EventSubscriptionTrialing = "subscription.trialing"
)

type EventClass int

const (
	EventClassUnrecognized EventClass = iota
	EventClassCheckout
	EventClassSubscription
)

// ClassifyEventType maps a provider event type string onto the routing
// class. Status differentiation between the subscription.* variants is
// carried entirely in the payload, not here.
func ClassifyEventType(eventType string) EventClass {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case EventCheckoutCompleted:
		return EventClassCheckout
	case EventSubscriptionActive, EventSubscriptionPaid, EventSubscriptionCanceled,
		EventSubscriptionExpired, EventSubscriptionTrialing:
		return EventClassSubscription
	default:
		return EventClassUnrecognized
	}
}

// CheckoutKind is the resolved shape of a completed checkout. The payload is
// inspected once at the dispatcher boundary and routed as a tagged variant.
type CheckoutKind int

const (
	CheckoutPlain CheckoutKind = iota
	CheckoutCredits
	CheckoutSubscription
)

// WebhookEnvelope is the outer shape of every Creem webhook request body.
type WebhookEnvelope struct {
	EventType string      `json:"eventType"`
	Object    EventObject `json:"object"`
}

// EventObject is the provider object carried in the envelope. For
// checkout.completed it is a checkout; for subscription.* events it is the
// subscription itself.
type EventObject struct {
	ID           string           `json:"id"`
	Customer     CustomerRef      `json:"customer"`
	Order        OrderRef         `json:"order"`
	Product      ProductRef       `json:"product"`
	Subscription *SubscriptionRef `json:"subscription"`
	Status       string           `json:"status"`

	CurrentPeriodStartDate FlexTime `json:"current_period_start_date"`
	CurrentPeriodEndDate   FlexTime `json:"current_period_end_date"`
	CanceledAt             FlexTime `json:"canceled_at"`

	Metadata json.RawMessage `json:"metadata"`
}

// ParseWebhookEnvelope decodes a raw webhook body.
func ParseWebhookEnvelope(rawBody []byte) (*WebhookEnvelope, error) {
	var env WebhookEnvelope
	dec := json.NewDecoder(bytes.NewReader(rawBody))
	if err := dec.Decode(&env); err != nil {
		return nil, err
	}
	return &env, nil
}

// ResolveCheckoutKind classifies a completed checkout payload.
func (o *EventObject) ResolveCheckoutKind(md EventMetadata) CheckoutKind {
	if md.ProductType == "credits" {
		return CheckoutCredits
	}
	if o.Subscription != nil && o.Subscription.ID != "" {
		return CheckoutSubscription
	}
	return CheckoutPlain
}

// CustomerRef accepts both a bare customer id and an expanded customer
// object; subscription events frequently carry only the id.
type CustomerRef struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

func (r *CustomerRef) UnmarshalJSON(data []byte) error {
	if id, ok := unquote(data); ok {
		*r = CustomerRef{ID: id}
		return nil
	}
	type alias CustomerRef
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = CustomerRef(a)
	return nil
}

// OrderRef carries the checkout order identity used to tag credit
// purchases.
type OrderRef struct {
	ID string `json:"id"`
}

func (r *OrderRef) UnmarshalJSON(data []byte) error {
	if id, ok := unquote(data); ok {
		*r = OrderRef{ID: id}
		return nil
	}
	type alias OrderRef
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = OrderRef(a)
	return nil
}

// ProductRef accepts both representations Creem uses for the product field:
// a bare product id or an expanded product object.
type ProductRef struct {
	ID string `json:"id"`
}

func (r *ProductRef) UnmarshalJSON(data []byte) error {
	if id, ok := unquote(data); ok {
		*r = ProductRef{ID: id}
		return nil
	}
	type alias ProductRef
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = ProductRef(a)
	return nil
}

// SubscriptionRef is the subscription attached to a checkout payload,
// accepted either as a bare id or an expanded object.
type SubscriptionRef struct {
	ID                     string          `json:"id"`
	Product                ProductRef      `json:"product"`
	Status                 string          `json:"status"`
	CurrentPeriodStartDate FlexTime        `json:"current_period_start_date"`
	CurrentPeriodEndDate   FlexTime        `json:"current_period_end_date"`
	CanceledAt             FlexTime        `json:"canceled_at"`
	Metadata               json.RawMessage `json:"metadata"`
}

func (r *SubscriptionRef) UnmarshalJSON(data []byte) error {
	if id, ok := unquote(data); ok {
		*r = SubscriptionRef{ID: id}
		return nil
	}
	type alias SubscriptionRef
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = SubscriptionRef(a)
	return nil
}

// EventMetadata is the checkout metadata bag our own checkout flow attaches.
// Subscription events may omit user_id when the subscription already links
// to a known customer.
type EventMetadata struct {
	UserID      string  `json:"user_id"`
	ProductType string  `json:"product_type"`
	Credits     FlexInt `json:"credits"`
}

// ParseEventMetadata decodes the opaque metadata bag. A missing or
// undecodable bag yields zero values; metadata is optional on most events.
func ParseEventMetadata(raw json.RawMessage) EventMetadata {
	var md EventMetadata
	if len(raw) == 0 {
		return md
	}
	_ = json.Unmarshal(raw, &md)
	return md
}

// FlexInt decodes an integer that providers serialize either as a JSON
// number or as a numeric string. Absent or unparseable values decode to 0.
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if unquoted, ok := unquote(data); ok {
		s = strings.TrimSpace(unquoted)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexInt(n)
	return nil
}

// FlexTime decodes provider timestamps in the handful of formats Creem has
// been seen sending. Null and empty values decode to the zero time.
type FlexTime struct {
	time.Time
}

var flexTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *FlexTime) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	if unquoted, ok := unquote(data); ok {
		s = strings.TrimSpace(unquoted)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range flexTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	// Unix seconds as a last resort.
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		t.Time = time.Unix(n, 0).UTC()
		return nil
	}
	t.Time = time.Time{}
	return nil
}

// Ptr returns the timestamp as a nullable pointer for persistence.
func (t FlexTime) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	tt := t.Time
	return &tt
}

func unquote(data []byte) (string, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) < 2 || trimmed[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return "", false
	}
	return s, true
}
