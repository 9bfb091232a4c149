package constants

// Static route constants
const (
	PublicRoute       = "/"
	HealthRoute       = "/healthz"
	APIRoute          = "/api"
	WebhooksRoute     = "/webhooks"
	CreemWebhookRoute = "/webhooks/creem"
	BillingRoute      = "/billing"
)
