package constants

// Static route constants
const (
	HealthRoute  = "/health"
	MetricsRoute = "/metrics"
	// Full path as seen by middleware running on the /api group
	BillingWebhookRoute = "/api/v1/billing/webhook"
)
