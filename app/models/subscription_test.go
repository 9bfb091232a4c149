package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionIsEntitling(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{status: SubscriptionStatusActive, want: true},
		{status: SubscriptionStatusPaid, want: true},
		{status: SubscriptionStatusTrialing, want: true},
		{status: SubscriptionStatusCanceled, want: false},
		{status: SubscriptionStatusExpired, want: false},
		{status: SubscriptionStatusPastDue, want: false},
		{status: SubscriptionStatusIncomplete, want: false},
		{status: SubscriptionStatusUnknown, want: false},
	}

	for _, tt := range tests {
		s := &Subscription{Status: tt.status}
		assert.Equal(t, tt.want, s.IsEntitling(), "status %q", tt.status)
	}
}
