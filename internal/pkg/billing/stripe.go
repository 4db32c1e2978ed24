package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/duedesk/DueDesk/internal/pkg/env"
)

const defaultStripeAPIBaseURL = "https://api.stripe.com/v1"

// Webhook event types the handler acts on. Anything else is acknowledged and
// ignored.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventInvoiceFailed       = "invoice.payment_failed"
	EventInvoiceSucceeded    = "invoice.payment_succeeded"
)

// StripeClient is a minimal REST client for the provider calls this service
// needs: creating customers and hosted checkout sessions.
type StripeClient struct {
	SecretKey  string
	APIBaseURL string

	HTTPClient *http.Client
}

func NewStripeClientFromEnv() *StripeClient {
	return &StripeClient{
		SecretKey:  strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type StripeCustomer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type StripeCheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateCustomer registers a provider customer carrying the local user id as
// metadata so webhook events can be traced back.
func (c *StripeClient) CreateCustomer(ctx context.Context, userID uint, email string) (*StripeCustomer, error) {
	form := url.Values{}
	form.Set("email", strings.TrimSpace(email))
	form.Set("metadata[user_id]", fmt.Sprintf("%d", userID))

	var out StripeCustomer
	if err := c.postForm(ctx, "/customers", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCheckoutSession opens a hosted subscription checkout and returns the
// redirect URL.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string) (*StripeCheckoutSession, error) {
	if strings.TrimSpace(customerID) == "" || strings.TrimSpace(priceID) == "" {
		return nil, errors.New("customer id and price id are required")
	}

	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("customer", customerID)
	form.Set("line_items[0][price]", priceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", successURL)
	form.Set("cancel_url", cancelURL)

	var out StripeCheckoutSession
	if err := c.postForm(ctx, "/checkout/sessions", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *StripeClient) postForm(ctx context.Context, path string, form url.Values, out any) error {
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("STRIPE_SECRET_KEY is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.SecretKey, "")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("stripe call %s failed: status=%d body=%s", path, resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}

// WebhookEvent is the parsed provider event envelope.
type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// SubscriptionObject is the provider subscription payload carried by
// customer.subscription.* events and embedded references.
type SubscriptionObject struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	TrialEnd           int64  `json:"trial_end"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CanceledAt         int64  `json:"canceled_at"`
	Items              struct {
		Data []struct {
			Price struct {
				ID        string `json:"id"`
				Recurring struct {
					Interval string `json:"interval"`
				} `json:"recurring"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// CheckoutSessionObject is the payload of checkout.session.completed.
type CheckoutSessionObject struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	Mode         string `json:"mode"`
}

// InvoiceObject is the payload of invoice.payment_* events.
type InvoiceObject struct {
	ID            string `json:"id"`
	Customer      string `json:"customer"`
	Subscription  string `json:"subscription"`
	BillingReason string `json:"billing_reason"`
}

// ParseWebhookEvent decodes the provider event envelope.
func ParseWebhookEvent(payload []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	if strings.TrimSpace(ev.Type) == "" {
		return nil, errors.New("webhook event has no type")
	}
	return &ev, nil
}

// ParseSubscription decodes the subscription object of an event.
func ParseSubscription(object json.RawMessage) (*SubscriptionObject, error) {
	var sub SubscriptionObject
	if err := json.Unmarshal(object, &sub); err != nil {
		return nil, fmt.Errorf("invalid subscription object: %w", err)
	}
	if sub.ID == "" {
		return nil, errors.New("subscription object has no id")
	}
	return &sub, nil
}

// ParseCheckoutSession decodes the checkout session object of an event.
func ParseCheckoutSession(object json.RawMessage) (*CheckoutSessionObject, error) {
	var cs CheckoutSessionObject
	if err := json.Unmarshal(object, &cs); err != nil {
		return nil, fmt.Errorf("invalid checkout session object: %w", err)
	}
	return &cs, nil
}

// ParseInvoice decodes the invoice object of an event.
func ParseInvoice(object json.RawMessage) (*InvoiceObject, error) {
	var inv InvoiceObject
	if err := json.Unmarshal(object, &inv); err != nil {
		return nil, fmt.Errorf("invalid invoice object: %w", err)
	}
	return &inv, nil
}

// PriceID returns the first line-item price of a subscription.
func (s *SubscriptionObject) PriceID() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return s.Items.Data[0].Price.ID
}

// Interval returns the recurring interval of the first line item.
func (s *SubscriptionObject) Interval() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return s.Items.Data[0].Price.Recurring.Interval
}

// NormalizedStatus maps the provider status to local billing status. A
// subscription the provider reports as active while its trial end is still in
// the future is normalized to trialing.
func (s *SubscriptionObject) NormalizedStatus(now time.Time) string {
	status := strings.ToLower(strings.TrimSpace(s.Status))
	if status == "active" && s.TrialEnd > 0 && time.Unix(s.TrialEnd, 0).After(now) {
		return "trialing"
	}
	return status
}

func unixPtr(v int64) *time.Time {
	if v <= 0 {
		return nil
	}
	t := time.Unix(v, 0).UTC()
	return &t
}

// Normalize converts a parsed subscription object into the provider-agnostic
// sync input. The caller supplies the resolved local user id.
func (s *SubscriptionObject) Normalize(userID uint, provider string, raw []byte, now time.Time) NormalizedSubscription {
	return NormalizedSubscription{
		UserID:                 userID,
		Provider:               provider,
		ProviderSubscriptionID: s.ID,
		ProviderPriceID:        s.PriceID(),
		BillingInterval:        s.Interval(),
		Status:                 s.NormalizedStatus(now),
		CurrentPeriodStart:     unixPtr(s.CurrentPeriodStart),
		CurrentPeriodEnd:       unixPtr(s.CurrentPeriodEnd),
		TrialEnd:               unixPtr(s.TrialEnd),
		CancelAtPeriodEnd:      s.CancelAtPeriodEnd,
		CanceledAt:             unixPtr(s.CanceledAt),
		RawPayloadJSON:         string(raw),
	}
}
