package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/creemops/creemledger/app/models"
	"github.com/creemops/creemledger/internal/pkg/billing"
	"github.com/creemops/creemledger/internal/pkg/database"
	"github.com/creemops/creemledger/internal/pkg/entitlements"
	"github.com/creemops/creemledger/internal/pkg/env"
	"github.com/creemops/creemledger/internal/pkg/metrics/counter"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

type useCreditsRequest struct {
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Description string `json:"description" validate:"required"`
}

type createCheckoutRequest struct {
	TierID string `json:"tier_id" validate:"required"`
	UserID string `json:"user_id" validate:"required"`
	Email  string `json:"email" validate:"omitempty,email"`
}

// HandleGetCustomer returns a customer row by internal id.
func HandleGetCustomer(c *fiber.Ctx) error {
	customerID, ok := parseCustomerID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid customer id"})
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	customer, err := svc.GetCustomer(c.Context(), customerID)
	if err != nil {
		return billingErrorResponse(c, err)
	}
	return c.JSON(customer)
}

// HandleGetCredits returns the current credits balance for a customer.
func HandleGetCredits(c *fiber.Ctx) error {
	customerID, ok := parseCustomerID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid customer id"})
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	balance, err := svc.GetBalance(c.Context(), customerID)
	if err != nil {
		return billingErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"customer_id": customerID, "credits": balance})
}

// HandleGetCreditsHistory returns balance-changing operations, newest first.
func HandleGetCreditsHistory(c *fiber.Ctx) error {
	customerID, ok := parseCustomerID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid customer id"})
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	history, err := svc.GetHistory(c.Context(), customerID)
	if err != nil {
		return billingErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"customer_id": customerID, "history": history})
}

// HandleUseCredits debits credits from a customer on behalf of other parts
// of the application.
func HandleUseCredits(c *fiber.Ctx) error {
	customerID, ok := parseCustomerID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid customer id"})
	}

	var req useCreditsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "amount must be positive and description is required"})
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	balance, err := svc.UseCredits(c.Context(), customerID, req.Amount, req.Description)
	if err != nil {
		return billingErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"customer_id": customerID, "credits": balance})
}

// HandleGetUserSubscription returns the active subscription for a local
// user id, or null when none exists.
func HandleGetUserSubscription(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "user_id query parameter is required"})
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	sub, err := svc.GetActiveSubscriptionForUser(c.Context(), userID)
	if err != nil {
		return billingErrorResponse(c, err)
	}

	plan := entitlements.ForSubscription(sub, tierIDFromMetadata(sub))
	return c.JSON(fiber.Map{
		"user_id":      userID,
		"subscription": sub,
		"plan":         plan,
		"limits":       entitlements.LimitsFor(plan),
	})
}

// tierIDFromMetadata extracts the catalog tier id our checkout flow stores
// in the subscription metadata.
func tierIDFromMetadata(sub *models.Subscription) string {
	if sub == nil || sub.MetadataJSON == "" {
		return ""
	}
	var md struct {
		TierID string `json:"tier_id"`
	}
	if err := json.Unmarshal([]byte(sub.MetadataJSON), &md); err != nil {
		return ""
	}
	return md.TierID
}

// HandleCreateCheckout creates a hosted Creem checkout session for a tier
// from the catalog. The metadata attached here comes back on the
// checkout.completed webhook and drives reconciliation.
func HandleCreateCheckout(c *fiber.Ctx) error {
	var req createCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "tier_id and user_id are required"})
	}

	tier, ok := billing.TierByID(req.TierID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "unknown tier"})
	}

	checkoutReq := billing.CreemCheckoutRequest{
		ProductID:    tier.ProductID,
		UserID:       req.UserID,
		Email:        req.Email,
		TierID:       tier.ID,
		DiscountCode: tier.DiscountCode,
	}
	if tier.IsCreditsTier() {
		checkoutReq.ProductType = "credits"
		checkoutReq.Credits = tier.CreditAmount
	}

	client := billing.NewCreemClientFromEnv()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	session, err := client.CreateCheckout(ctx, checkoutReq)
	if err != nil {
		log.Printf("creem checkout creation failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "checkout_failed", "message": "could not create checkout session"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"checkout_id":  session.ID,
		"checkout_url": session.CheckoutURL,
	})
}

// HandleBillingStats exposes the Redis webhook counters.
func HandleBillingStats(c *fiber.Ctx) error {
	stats, err := counter.Snapshot()
	if err != nil {
		log.Printf("billing stats snapshot failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "stats unavailable"})
	}
	return c.JSON(fiber.Map{"webhooks": stats})
}

// HandleConfigCheck reports which billing configuration values are present
// without echoing any of them.
func HandleConfigCheck(c *fiber.Ctx) error {
	check := fiber.Map{
		"CREEM_API_URL":        env.GetEnv("CREEM_API_URL", "") != "",
		"CREEM_API_KEY":        env.GetEnv("CREEM_API_KEY", "") != "",
		"CREEM_WEBHOOK_SECRET": env.GetEnv("CREEM_WEBHOOK_SECRET", "") != "",
		"CREEM_SUCCESS_URL":    env.GetEnv("CREEM_SUCCESS_URL", "") != "",
		"DB_NAME":              env.GetEnv("DB_NAME", "") != "",
		"ADMIN_API_TOKEN":      env.GetEnv("ADMIN_API_TOKEN", "") != "",
	}
	return c.JSON(fiber.Map{"env_check": check, "timestamp": time.Now().UTC().Format(time.RFC3339)})
}

// billingErrorResponse maps service errors onto the query API response
// shapes.
func billingErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, billing.ErrCustomerNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "customer not found"})
	case errors.Is(err, billing.ErrInsufficientCredits):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "insufficient_credits", "message": "balance does not cover the requested amount"})
	case errors.Is(err, billing.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid request"})
	default:
		log.Printf("billing api error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "unexpected error"})
	}
}
