package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/duedesk/DueDesk/app/models"
	"github.com/duedesk/DueDesk/internal/pkg/entitlements"
)

// Service provides provider-neutral billing synchronization: webhook event
// dedup, subscription upserts, plan reconciliation and checkout creation.
type Service struct {
	repo   Repository
	client *StripeClient
	now    func() time.Time
}

// NewService creates a billing service from injected dependencies.
func NewService(repo Repository, client *StripeClient) *Service {
	return &Service{repo: repo, client: client, now: time.Now}
}

// NewServiceFromDB creates a billing service from a GORM DB handle with the
// env-configured provider client.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), NewStripeClientFromEnv())
}

func normalizeInterval(interval string) string {
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case models.BillingIntervalMonth, models.BillingIntervalYear:
		return strings.ToLower(strings.TrimSpace(interval))
	default:
		return models.BillingIntervalUnknown
	}
}

// ResolveMappedPlan resolves a provider price id to an internal plan via the
// plan mapping table, preferring an exact interval match.
func (s *Service) ResolveMappedPlan(ctx context.Context, provider, providerPriceID, interval string) (entitlements.Plan, error) {
	_ = ctx
	p := strings.ToLower(strings.TrimSpace(provider))
	ref := strings.TrimSpace(providerPriceID)
	if p == "" || ref == "" {
		return entitlements.PlanFree, gorm.ErrRecordNotFound
	}

	m, err := s.repo.FindActivePlanMapping(p, ref, normalizeInterval(interval))
	if err == nil {
		return entitlements.NormalizePlan(m.InternalPlan), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return entitlements.PlanFree, err
	}

	// Fallback for mappings registered without a concrete interval.
	m, err = s.repo.FindActivePlanMapping(p, ref, models.BillingIntervalUnknown)
	if err == nil {
		return entitlements.NormalizePlan(m.InternalPlan), nil
	}
	return entitlements.PlanFree, err
}

// SyncSubscription upserts provider subscription data and reconciles the
// owning user's effective plan. Safe under webhook replays: the upsert is
// keyed on (provider, provider_subscription_id).
func (s *Service) SyncSubscription(ctx context.Context, in NormalizedSubscription) (*models.BillingSubscription, entitlements.Plan, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if in.UserID == 0 || provider == "" || strings.TrimSpace(in.ProviderSubscriptionID) == "" {
		return nil, "", errors.New("user_id, provider and provider_subscription_id are required")
	}

	status := strings.ToLower(strings.TrimSpace(in.Status))
	if status == "" {
		status = models.BillingStatusActive
	}

	internalPlan, err := s.ResolveMappedPlan(ctx, provider, in.ProviderPriceID, in.BillingInterval)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	sub := &models.BillingSubscription{
		UserID:                 in.UserID,
		Provider:               provider,
		ProviderSubscriptionID: strings.TrimSpace(in.ProviderSubscriptionID),
		ProviderPriceID:        strings.TrimSpace(in.ProviderPriceID),
		InternalPlan:           string(internalPlan),
		BillingInterval:        normalizeInterval(in.BillingInterval),
		Status:                 status,
		CurrentPeriodStart:     in.CurrentPeriodStart,
		CurrentPeriodEnd:       in.CurrentPeriodEnd,
		TrialEnd:               in.TrialEnd,
		CancelAtPeriodEnd:      in.CancelAtPeriodEnd,
		CanceledAt:             in.CanceledAt,
		RawPayloadJSON:         in.RawPayloadJSON,
	}
	if err := s.repo.UpsertSubscription(sub); err != nil {
		return nil, "", err
	}

	effectivePlan, err := s.ReconcileUserPlan(ctx, in.UserID)
	if err != nil {
		return sub, "", err
	}
	return sub, effectivePlan, nil
}

// ReconcileUserPlan computes the best plan among the user's entitling
// subscriptions and writes it to user settings.
func (s *Service) ReconcileUserPlan(ctx context.Context, userID uint) (entitlements.Plan, error) {
	_ = ctx
	if userID == 0 {
		return "", errors.New("user_id is required")
	}

	subs, err := s.repo.ListSubscriptionsByUser(userID)
	if err != nil {
		return "", err
	}

	best := entitlements.PlanFree
	for _, sub := range subs {
		if !entitlements.IsEntitlingStatus(sub.Status) {
			continue
		}
		candidate := entitlements.NormalizePlan(sub.InternalPlan)
		if entitlements.PlanRank(candidate) > entitlements.PlanRank(best) {
			best = candidate
		}
	}

	us, err := s.repo.GetOrCreateUserSettings(userID)
	if err != nil {
		return "", err
	}
	if entitlements.NormalizePlan(us.Plan) == best {
		return best, nil
	}
	us.Plan = string(best)
	if err := s.repo.SaveUserSettings(us); err != nil {
		return "", err
	}
	return best, nil
}

// RecordWebhookEvent persists webhook payloads idempotently. Events without a
// provider id are keyed by payload hash.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

// ErrEventIgnored marks event types or payloads the handler deliberately
// skips. The webhook endpoint still acknowledges them with 200.
var ErrEventIgnored = errors.New("event ignored")

// ProcessEvent applies a verified provider event to local subscription state.
// Unrecognized event types return ErrEventIgnored, not a failure.
func (s *Service) ProcessEvent(ctx context.Context, ev *WebhookEvent, raw []byte) error {
	switch ev.Type {
	case EventCheckoutCompleted:
		return s.processCheckoutCompleted(ctx, ev)
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		return s.processSubscriptionChange(ctx, ev, raw)
	case EventSubscriptionDeleted:
		return s.processSubscriptionDeleted(ctx, ev, raw)
	case EventInvoiceFailed:
		return s.processInvoiceStatus(ctx, ev, models.BillingStatusPastDue, false)
	case EventInvoiceSucceeded:
		return s.processInvoiceStatus(ctx, ev, models.BillingStatusActive, true)
	default:
		return ErrEventIgnored
	}
}

// processCheckoutCompleted anchors the provider subscription to the local
// user. Price and trial detail arrive with the subscription events the
// provider emits alongside; until then the row carries active status. When a
// subscription event has already written the row, the checkout event is a
// no-op so its sparse payload never overwrites price or plan detail.
func (s *Service) processCheckoutCompleted(ctx context.Context, ev *WebhookEvent) error {
	cs, err := ParseCheckoutSession(ev.Data.Object)
	if err != nil {
		return err
	}
	if cs.Mode != "" && cs.Mode != "subscription" {
		return ErrEventIgnored
	}
	if cs.Subscription == "" || cs.Customer == "" {
		return errors.New("checkout session lacks subscription or customer")
	}

	if _, err := s.repo.GetSubscriptionByProviderID(models.BillingProviderStripe, cs.Subscription); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	customer, err := s.repo.GetCustomerByProviderCustomerID(models.BillingProviderStripe, cs.Customer)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("no local user for provider customer %s", cs.Customer)
		}
		return err
	}

	_, _, err = s.SyncSubscription(ctx, NormalizedSubscription{
		UserID:                 customer.UserID,
		Provider:               models.BillingProviderStripe,
		ProviderSubscriptionID: cs.Subscription,
		Status:                 models.BillingStatusActive,
	})
	return err
}

func (s *Service) processSubscriptionChange(ctx context.Context, ev *WebhookEvent, raw []byte) error {
	sub, err := ParseSubscription(ev.Data.Object)
	if err != nil {
		return err
	}

	customer, err := s.repo.GetCustomerByProviderCustomerID(models.BillingProviderStripe, sub.Customer)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("no local user for provider customer %s", sub.Customer)
		}
		return err
	}

	_, _, err = s.SyncSubscription(ctx, sub.Normalize(customer.UserID, models.BillingProviderStripe, raw, s.now()))
	return err
}

func (s *Service) processSubscriptionDeleted(ctx context.Context, ev *WebhookEvent, raw []byte) error {
	sub, err := ParseSubscription(ev.Data.Object)
	if err != nil {
		return err
	}

	customer, err := s.repo.GetCustomerByProviderCustomerID(models.BillingProviderStripe, sub.Customer)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("no local user for provider customer %s", sub.Customer)
		}
		return err
	}

	in := sub.Normalize(customer.UserID, models.BillingProviderStripe, raw, s.now())
	in.Status = models.BillingStatusCanceled
	if in.CanceledAt == nil {
		now := s.now().UTC()
		in.CanceledAt = &now
	}
	_, _, err = s.SyncSubscription(ctx, in)
	return err
}

// processInvoiceStatus transitions an existing subscription's status from an
// invoice event. Succeeded invoices only count when they belong to a renewal
// cycle; invoices without a subscription reference are ignored.
func (s *Service) processInvoiceStatus(ctx context.Context, ev *WebhookEvent, status string, renewalOnly bool) error {
	inv, err := ParseInvoice(ev.Data.Object)
	if err != nil {
		return err
	}
	if inv.Subscription == "" {
		return ErrEventIgnored
	}
	if renewalOnly && inv.BillingReason != "subscription_cycle" {
		return ErrEventIgnored
	}

	existing, err := s.repo.GetSubscriptionByProviderID(models.BillingProviderStripe, inv.Subscription)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("invoice references unknown subscription %s", inv.Subscription)
		}
		return err
	}

	_, _, err = s.SyncSubscription(ctx, NormalizedSubscription{
		UserID:                 existing.UserID,
		Provider:               existing.Provider,
		ProviderSubscriptionID: existing.ProviderSubscriptionID,
		ProviderPriceID:        existing.ProviderPriceID,
		BillingInterval:        existing.BillingInterval,
		Status:                 status,
		CurrentPeriodStart:     existing.CurrentPeriodStart,
		CurrentPeriodEnd:       existing.CurrentPeriodEnd,
		TrialEnd:               existing.TrialEnd,
		CancelAtPeriodEnd:      existing.CancelAtPeriodEnd,
		CanceledAt:             existing.CanceledAt,
		RawPayloadJSON:         existing.RawPayloadJSON,
	})
	return err
}

// EnsureCustomer returns the provider customer for a user, creating one on
// first use so each user maps to exactly one provider customer.
func (s *Service) EnsureCustomer(ctx context.Context, userID uint, email string) (*models.BillingCustomer, error) {
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}

	customer, err := s.repo.GetCustomerByUser(models.BillingProviderStripe, userID)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created, err := s.client.CreateCustomer(ctx, userID, email)
	if err != nil {
		return nil, err
	}

	customer = &models.BillingCustomer{
		UserID:             userID,
		Provider:           models.BillingProviderStripe,
		ProviderCustomerID: created.ID,
		Email:              email,
	}
	if err := s.repo.UpsertCustomer(customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// CreateCheckout resolves the public price key, reuses or creates the provider
// customer, and opens a hosted checkout session. Returns the redirect URL.
func (s *Service) CreateCheckout(ctx context.Context, in CheckoutInput) (string, error) {
	if strings.TrimSpace(in.SuccessURL) == "" || strings.TrimSpace(in.CancelURL) == "" {
		return "", errors.New("successUrl and cancelUrl are required")
	}

	priceID, _, err := ResolvePriceKey(in.PriceKey)
	if err != nil {
		return "", err
	}

	customer, err := s.EnsureCustomer(ctx, in.UserID, in.UserEmail)
	if err != nil {
		return "", err
	}

	session, err := s.client.CreateCheckoutSession(ctx, customer.ProviderCustomerID, priceID, in.SuccessURL, in.CancelURL)
	if err != nil {
		return "", err
	}
	return session.URL, nil
}
