package billing

import (
	"encoding/json"
	"testing"
	"time"
)

func TestClassifyEventType(t *testing.T) {
	tests := []struct {
		in   string
		want EventClass
	}{
		{in: "checkout.completed", want: EventClassCheckout},
		{in: "Checkout.Completed", want: EventClassCheckout},
		{in: "subscription.active", want: EventClassSubscription},
		{in: "subscription.paid", want: EventClassSubscription},
		{in: "subscription.canceled", want: EventClassSubscription},
		{in: "subscription.expired", want: EventClassSubscription},
		{in: "subscription.trialing", want: EventClassSubscription},
		{in: "refund.created", want: EventClassUnrecognized},
		{in: "", want: EventClassUnrecognized},
	}

	for _, tt := range tests {
		if got := ClassifyEventType(tt.in); got != tt.want {
			t.Fatalf("ClassifyEventType(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCustomerRef_StringOrObject(t *testing.T) {
	var asString CustomerRef
	if err := json.Unmarshal([]byte(`"cus_1"`), &asString); err != nil {
		t.Fatalf("string form: %v", err)
	}
	if asString.ID != "cus_1" {
		t.Fatalf("expected id cus_1, got %q", asString.ID)
	}

	var asObject CustomerRef
	if err := json.Unmarshal([]byte(`{"id":"cus_2","email":"x@example.com"}`), &asObject); err != nil {
		t.Fatalf("object form: %v", err)
	}
	if asObject.ID != "cus_2" || asObject.Email != "x@example.com" {
		t.Fatalf("unexpected object decode: %+v", asObject)
	}
}

func TestSubscriptionRef_StringOrObject(t *testing.T) {
	var asString SubscriptionRef
	if err := json.Unmarshal([]byte(`"sub_1"`), &asString); err != nil {
		t.Fatalf("string form: %v", err)
	}
	if asString.ID != "sub_1" {
		t.Fatalf("expected id sub_1, got %q", asString.ID)
	}

	var asObject SubscriptionRef
	raw := `{"id":"sub_2","product":"prod_1","status":"active"}`
	if err := json.Unmarshal([]byte(raw), &asObject); err != nil {
		t.Fatalf("object form: %v", err)
	}
	if asObject.ID != "sub_2" || asObject.Product.ID != "prod_1" {
		t.Fatalf("unexpected object decode: %+v", asObject)
	}
}

func TestFlexInt(t *testing.T) {
	tests := []struct {
		in   string
		want FlexInt
	}{
		{in: `6`, want: 6},
		{in: `"6"`, want: 6},
		{in: `"  9 "`, want: 9},
		{in: `null`, want: 0},
		{in: `""`, want: 0},
		{in: `"not-a-number"`, want: 0},
	}

	for _, tt := range tests {
		var got FlexInt
		if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
			t.Fatalf("FlexInt(%s) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("FlexInt(%s) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFlexTime(t *testing.T) {
	tests := []struct {
		in       string
		wantZero bool
		want     time.Time
	}{
		{in: `"2025-06-01T00:00:00Z"`, want: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		{in: `"2025-06-01T12:30:00"`, want: time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)},
		{in: `"2025-06-01 12:30:00"`, want: time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)},
		{in: `"2025-06-01"`, want: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		{in: `1748736000`, want: time.Unix(1748736000, 0).UTC()},
		{in: `null`, wantZero: true},
		{in: `""`, wantZero: true},
		{in: `"garbage"`, wantZero: true},
	}

	for _, tt := range tests {
		var got FlexTime
		if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
			t.Fatalf("FlexTime(%s) unexpected error: %v", tt.in, err)
		}
		if tt.wantZero {
			if !got.IsZero() {
				t.Fatalf("FlexTime(%s) = %v, want zero", tt.in, got.Time)
			}
			if got.Ptr() != nil {
				t.Fatalf("FlexTime(%s).Ptr() must be nil for zero time", tt.in)
			}
			continue
		}
		if !got.Time.Equal(tt.want) {
			t.Fatalf("FlexTime(%s) = %v, want %v", tt.in, got.Time, tt.want)
		}
		if got.Ptr() == nil {
			t.Fatalf("FlexTime(%s).Ptr() must not be nil", tt.in)
		}
	}
}

func TestResolveCheckoutKind(t *testing.T) {
	creditsObj := &EventObject{}
	if got := creditsObj.ResolveCheckoutKind(EventMetadata{ProductType: "credits", Credits: 6}); got != CheckoutCredits {
		t.Fatalf("expected CheckoutCredits, got %d", got)
	}

	subObj := &EventObject{Subscription: &SubscriptionRef{ID: "sub_1"}}
	if got := subObj.ResolveCheckoutKind(EventMetadata{}); got != CheckoutSubscription {
		t.Fatalf("expected CheckoutSubscription, got %d", got)
	}

	plainObj := &EventObject{}
	if got := plainObj.ResolveCheckoutKind(EventMetadata{}); got != CheckoutPlain {
		t.Fatalf("expected CheckoutPlain, got %d", got)
	}

	// Metadata wins over an attached subscription ref.
	both := &EventObject{Subscription: &SubscriptionRef{ID: "sub_1"}}
	if got := both.ResolveCheckoutKind(EventMetadata{ProductType: "credits"}); got != CheckoutCredits {
		t.Fatalf("expected credits to take precedence, got %d", got)
	}
}

func TestParseEventMetadata(t *testing.T) {
	md := ParseEventMetadata(json.RawMessage(`{"user_id":"u1","product_type":"credits","credits":"3"}`))
	if md.UserID != "u1" || md.ProductType != "credits" || md.Credits != 3 {
		t.Fatalf("unexpected metadata: %+v", md)
	}

	empty := ParseEventMetadata(nil)
	if empty.UserID != "" || empty.Credits != 0 {
		t.Fatalf("expected zero metadata, got %+v", empty)
	}

	garbage := ParseEventMetadata(json.RawMessage(`"not an object"`))
	if garbage.UserID != "" {
		t.Fatalf("expected tolerant decode, got %+v", garbage)
	}
}

func TestParseWebhookEnvelope(t *testing.T) {
	raw := []byte(`{
		"eventType": "checkout.completed",
		"object": {
			"id": "ch_1",
			"customer": "cus_1",
			"order": "ord_1",
			"product": "prod_1"
		}
	}`)
	env, err := ParseWebhookEnvelope(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if env.EventType != EventCheckoutCompleted {
		t.Fatalf("unexpected event type %q", env.EventType)
	}
	if env.Object.Customer.ID != "cus_1" || env.Object.Order.ID != "ord_1" || env.Object.Product.ID != "prod_1" {
		t.Fatalf("unexpected object decode: %+v", env.Object)
	}

	if _, err := ParseWebhookEnvelope([]byte(`{`)); err == nil {
		t.Fatalf("expected malformed body to fail")
	}
}
