package counter

import (
	"context"

	"github.com/creemops/creemledger/internal/pkg/cache"
)

const (
	webhookReceivedKey  = "webhook:counters:received"
	webhookProcessedKey = "webhook:counters:processed"
	webhookFailedKey    = "webhook:counters:failed"
)

// AddWebhookReceived increments the received counter for an event type in Redis
func AddWebhookReceived(eventType string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhookReceivedKey, field(eventType), 1).Err()
}

// AddWebhookProcessed increments the processed counter for an event type in Redis
func AddWebhookProcessed(eventType string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhookProcessedKey, field(eventType), 1).Err()
}

// AddWebhookFailed increments the failure counter for an event type in Redis
func AddWebhookFailed(eventType string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhookFailedKey, field(eventType), 1).Err()
}

// Snapshot returns the current counters keyed by event type.
func Snapshot() (map[string]map[string]string, error) {
	ctx := context.Background()
	rdb := cache.GetClient()

	out := make(map[string]map[string]string, 3)
	for name, key := range map[string]string{
		"received":  webhookReceivedKey,
		"processed": webhookProcessedKey,
		"failed":    webhookFailedKey,
	} {
		vals, err := rdb.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		out[name] = vals
	}
	return out, nil
}

func field(eventType string) string {
	if eventType == "" {
		return "unknown"
	}
	return eventType
}
