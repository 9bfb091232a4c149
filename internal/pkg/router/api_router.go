package router

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/creemops/creemledger/app/controllers"
	"github.com/creemops/creemledger/internal/pkg/cache"
	"github.com/creemops/creemledger/internal/pkg/constants"
	"github.com/creemops/creemledger/internal/pkg/env"
	"github.com/creemops/creemledger/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// Webhook deliveries are exempt from the limiter: the provider retries
	// on 429 and a retry storm would starve real deliveries. The endpoint
	// authenticates via HMAC signature instead.
	api := app.Group(constants.APIRoute, limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
		Storage:    newLimiterStorage(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), constants.APIRoute+constants.WebhooksRoute)
		},
	}))

	api.Get("/", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "creemledger api",
		})
	})

	api.Post(constants.CreemWebhookRoute, controllers.HandleCreemWebhook)

	billing := api.Group(constants.BillingRoute, middleware.AdminTokenMiddleware())
	billing.Get("/customers/:id", controllers.HandleGetCustomer)
	billing.Get("/customers/:id/credits", controllers.HandleGetCredits)
	billing.Get("/customers/:id/credits/history", controllers.HandleGetCreditsHistory)
	billing.Post("/customers/:id/credits/use", controllers.HandleUseCredits)
	billing.Get("/subscriptions", controllers.HandleGetUserSubscription)
	billing.Post("/checkouts", controllers.HandleCreateCheckout)
	billing.Get("/stats", controllers.HandleBillingStats)
	billing.Get("/config-check", controllers.HandleConfigCheck)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

// newLimiterStorage backs the rate limiter with Redis so limits hold across
// instances. Connection settings come from the shared cache client; database
// 1 keeps limiter keys out of the cache keyspace.
func newLimiterStorage() *redis.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient := cache.GetClient(); cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})
}
