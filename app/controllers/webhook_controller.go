package controllers

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/creemops/creemledger/internal/pkg/billing"
	"github.com/creemops/creemledger/internal/pkg/database"
	"github.com/creemops/creemledger/internal/pkg/metrics/counter"
	"github.com/gofiber/fiber/v2"
)

// HandleCreemWebhook receives Creem webhook deliveries. The dispatcher owns
// authentication, dedupe and routing; this handler only shapes the HTTP
// response. Processing failures return 5xx so the provider retries the
// delivery.
func HandleCreemWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("creem-signature"))
	eventID := firstHeaderValue(c, "creem-event-id", "creem-delivery-id")

	dispatcher := billing.NewDispatcherFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	res, err := dispatcher.Handle(ctx, rawBody, signature, eventID)
	if err != nil {
		status, body := webhookErrorResponse(err)
		log.Printf("creem webhook failed: %v", err)
		if !billing.IsAuthError(err) {
			if cntErr := counter.AddWebhookFailed("unknown"); cntErr != nil {
				log.Printf("webhook counter update failed: %v", cntErr)
			}
		}
		return c.Status(status).JSON(body)
	}

	if cntErr := counter.AddWebhookReceived(res.EventType); cntErr != nil {
		log.Printf("webhook counter update failed: %v", cntErr)
	}
	if !res.Duplicate && !res.Ignored {
		if cntErr := counter.AddWebhookProcessed(res.EventType); cntErr != nil {
			log.Printf("webhook counter update failed: %v", cntErr)
		}
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

// webhookErrorResponse maps dispatcher errors to transport responses.
// Authentication failures carry a generic message that does not reveal
// which check failed; processing failures carry human-readable details but
// never secret material.
func webhookErrorResponse(err error) (int, fiber.Map) {
	switch {
	case billing.IsAuthError(err):
		return fiber.StatusUnauthorized, fiber.Map{"error": "invalid_signature"}
	case errors.Is(err, billing.ErrMalformedEvent):
		return fiber.StatusBadRequest, fiber.Map{"error": "invalid_payload"}
	default:
		return fiber.StatusInternalServerError, fiber.Map{
			"error":   "webhook_processing_failed",
			"details": err.Error(),
		}
	}
}

func firstHeaderValue(c *fiber.Ctx, keys ...string) string {
	for _, k := range keys {
		v := strings.TrimSpace(c.Get(k))
		if v != "" {
			return v
		}
	}
	return ""
}
