package billing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/duedesk/DueDesk/app/models"
	"github.com/duedesk/DueDesk/internal/pkg/entitlements"
)

type fakeBillingRepo struct {
	mappings      []models.BillingPlanMapping
	customers     []*models.BillingCustomer
	subscriptions []*models.BillingSubscription
	settings      map[uint]*models.UserSettings
	events        map[string]*models.BillingWebhookEvent
	nextID        uint
}

func newFakeBillingRepo() *fakeBillingRepo {
	return &fakeBillingRepo{
		settings: make(map[uint]*models.UserSettings),
		events:   make(map[string]*models.BillingWebhookEvent),
	}
}

func (r *fakeBillingRepo) FindActivePlanMapping(provider, priceID, interval string) (*models.BillingPlanMapping, error) {
	for i := range r.mappings {
		m := &r.mappings[i]
		if m.Provider == provider && m.ProviderPriceID == priceID && m.BillingInterval == interval && m.IsActive {
			return m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeBillingRepo) UpsertCustomer(c *models.BillingCustomer) error {
	for _, existing := range r.customers {
		if existing.Provider == c.Provider && existing.ProviderCustomerID == c.ProviderCustomerID {
			existing.UserID = c.UserID
			existing.Email = c.Email
			*c = *existing
			return nil
		}
	}
	r.nextID++
	c.ID = r.nextID
	cp := *c
	r.customers = append(r.customers, &cp)
	return nil
}

func (r *fakeBillingRepo) GetCustomerByUser(provider string, userID uint) (*models.BillingCustomer, error) {
	for _, c := range r.customers {
		if c.Provider == provider && c.UserID == userID {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeBillingRepo) GetCustomerByProviderCustomerID(provider, providerCustomerID string) (*models.BillingCustomer, error) {
	for _, c := range r.customers {
		if c.Provider == provider && c.ProviderCustomerID == providerCustomerID {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeBillingRepo) UpsertSubscription(sub *models.BillingSubscription) error {
	for _, existing := range r.subscriptions {
		if existing.Provider == sub.Provider && existing.ProviderSubscriptionID == sub.ProviderSubscriptionID {
			id := existing.ID
			*existing = *sub
			existing.ID = id
			*sub = *existing
			return nil
		}
	}
	r.nextID++
	sub.ID = r.nextID
	cp := *sub
	r.subscriptions = append(r.subscriptions, &cp)
	return nil
}

func (r *fakeBillingRepo) GetSubscriptionByProviderID(provider, providerSubscriptionID string) (*models.BillingSubscription, error) {
	for _, s := range r.subscriptions {
		if s.Provider == provider && s.ProviderSubscriptionID == providerSubscriptionID {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeBillingRepo) ListSubscriptionsByUser(userID uint) ([]models.BillingSubscription, error) {
	var out []models.BillingSubscription
	for _, s := range r.subscriptions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeBillingRepo) GetOrCreateUserSettings(userID uint) (*models.UserSettings, error) {
	if us, ok := r.settings[userID]; ok {
		return us, nil
	}
	us := &models.UserSettings{UserID: userID, Plan: "free", EmailReminders: true}
	r.settings[userID] = us
	return us, nil
}

func (r *fakeBillingRepo) SaveUserSettings(us *models.UserSettings) error {
	r.settings[us.UserID] = us
	return nil
}

func (r *fakeBillingRepo) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	key := event.Provider + "/" + event.ProviderEventID
	if stored, ok := r.events[key]; ok {
		return false, stored, nil
	}
	r.nextID++
	event.ID = r.nextID
	r.events[key] = event
	return true, event, nil
}

func (r *fakeBillingRepo) MarkWebhookProcessed(id uint, processingError string) error {
	for _, ev := range r.events {
		if ev.ID == id {
			now := time.Now()
			ev.ProcessedAt = &now
			ev.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func newTestService(repo *fakeBillingRepo) *Service {
	svc := NewService(repo, &StripeClient{})
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestRecordWebhookEventDeduplicates(t *testing.T) {
	repo := newFakeBillingRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	in := WebhookEventInput{Provider: "stripe", ProviderEventID: "evt_1", EventType: EventCheckoutCompleted, PayloadJSON: "{}", SignatureValid: true}

	created, first, err := svc.RecordWebhookEvent(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)

	created, second, err := svc.RecordWebhookEvent(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestSyncSubscriptionResolvesPlanAndReconciles(t *testing.T) {
	repo := newFakeBillingRepo()
	repo.mappings = append(repo.mappings, models.BillingPlanMapping{
		Provider: "stripe", ProviderPriceID: "price_team_month", InternalPlan: "team", BillingInterval: "month", IsActive: true,
	})
	svc := newTestService(repo)
	ctx := context.Background()

	sub, plan, err := svc.SyncSubscription(ctx, NormalizedSubscription{
		UserID:                 7,
		Provider:               "stripe",
		ProviderSubscriptionID: "sub_1",
		ProviderPriceID:        "price_team_month",
		BillingInterval:        "month",
		Status:                 "active",
	})
	require.NoError(t, err)
	assert.Equal(t, "team", sub.InternalPlan)
	assert.Equal(t, entitlements.PlanTeam, plan)
	assert.Equal(t, "team", repo.settings[7].Plan)
}

func TestSyncSubscriptionCanceledDowngradesPlan(t *testing.T) {
	repo := newFakeBillingRepo()
	repo.mappings = append(repo.mappings, models.BillingPlanMapping{
		Provider: "stripe", ProviderPriceID: "price_pro_month", InternalPlan: "pro", BillingInterval: "month", IsActive: true,
	})
	svc := newTestService(repo)
	ctx := context.Background()

	_, plan, err := svc.SyncSubscription(ctx, NormalizedSubscription{
		UserID: 7, Provider: "stripe", ProviderSubscriptionID: "sub_1",
		ProviderPriceID: "price_pro_month", BillingInterval: "month", Status: "active",
	})
	require.NoError(t, err)
	assert.Equal(t, entitlements.PlanPro, plan)

	_, plan, err = svc.SyncSubscription(ctx, NormalizedSubscription{
		UserID: 7, Provider: "stripe", ProviderSubscriptionID: "sub_1",
		ProviderPriceID: "price_pro_month", BillingInterval: "month", Status: "canceled",
	})
	require.NoError(t, err)
	assert.Equal(t, entitlements.PlanFree, plan)
	assert.Len(t, repo.subscriptions, 1)
}

func TestProcessEventCheckoutCompletedIsIdempotent(t *testing.T) {
	repo := newFakeBillingRepo()
	repo.customers = append(repo.customers, &models.BillingCustomer{ID: 1, UserID: 7, Provider: "stripe", ProviderCustomerID: "cus_1"})
	svc := newTestService(repo)
	ctx := context.Background()

	payload := []byte(`{
		"id": "evt_co",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "customer": "cus_1", "subscription": "sub_9", "mode": "subscription"}}
	}`)
	ev, err := ParseWebhookEvent(payload)
	require.NoError(t, err)

	require.NoError(t, svc.ProcessEvent(ctx, ev, payload))
	require.NoError(t, svc.ProcessEvent(ctx, ev, payload))

	assert.Len(t, repo.subscriptions, 1)
	assert.Equal(t, uint(7), repo.subscriptions[0].UserID)
	assert.Equal(t, "sub_9", repo.subscriptions[0].ProviderSubscriptionID)
}

func TestProcessEventCheckoutAfterSubscriptionKeepsPlanDetail(t *testing.T) {
	repo := newFakeBillingRepo()
	repo.customers = append(repo.customers, &models.BillingCustomer{ID: 1, UserID: 7, Provider: "stripe", ProviderCustomerID: "cus_1"})
	repo.mappings = append(repo.mappings, models.BillingPlanMapping{
		Provider: "stripe", ProviderPriceID: "price_pro_month", InternalPlan: "pro", BillingInterval: "month", IsActive: true,
	})
	svc := newTestService(repo)
	ctx := context.Background()

	// The provider does not guarantee delivery order: the subscription event
	// carrying price detail can land before the checkout event.
	updated := []byte(`{
		"id": "evt_su",
		"type": "customer.subscription.updated",
		"data": {"object": {
			"id": "sub_9", "customer": "cus_1", "status": "active",
			"items": {"data": [{"price": {"id": "price_pro_month", "recurring": {"interval": "month"}}}]}
		}}
	}`)
	ev, err := ParseWebhookEvent(updated)
	require.NoError(t, err)
	require.NoError(t, svc.ProcessEvent(ctx, ev, updated))
	require.Equal(t, "pro", repo.settings[7].Plan)

	checkout := []byte(`{
		"id": "evt_co",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "customer": "cus_1", "subscription": "sub_9", "mode": "subscription"}}
	}`)
	ev, err = ParseWebhookEvent(checkout)
	require.NoError(t, err)
	require.NoError(t, svc.ProcessEvent(ctx, ev, checkout))

	require.Len(t, repo.subscriptions, 1)
	assert.Equal(t, "price_pro_month", repo.subscriptions[0].ProviderPriceID)
	assert.Equal(t, "pro", repo.subscriptions[0].InternalPlan)
	assert.Equal(t, "pro", repo.settings[7].Plan)
}

func TestProcessEventSubscriptionUpdateNormalizesTrialing(t *testing.T) {
	repo := newFakeBillingRepo()
	repo.customers = append(repo.customers, &models.BillingCustomer{ID: 1, UserID: 7, Provider: "stripe", ProviderCustomerID: "cus_1"})
	repo.mappings = append(repo.mappings, models.BillingPlanMapping{
		Provider: "stripe", ProviderPriceID: "price_pro_month", InternalPlan: "pro", BillingInterval: "month", IsActive: true,
	})
	svc := newTestService(repo)
	ctx := context.Background()

	trialEnd := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC).Unix()
	payload := []byte(fmt.Sprintf(`{
		"id": "evt_su",
		"type": "customer.subscription.updated",
		"data": {"object": {
			"id": "sub_9", "customer": "cus_1", "status": "active", "trial_end": %d,
			"items": {"data": [{"price": {"id": "price_pro_month", "recurring": {"interval": "month"}}}]}
		}}
	}`, trialEnd))
	ev, err := ParseWebhookEvent(payload)
	require.NoError(t, err)

	require.NoError(t, svc.ProcessEvent(ctx, ev, payload))

	require.Len(t, repo.subscriptions, 1)
	assert.Equal(t, models.BillingStatusTrialing, repo.subscriptions[0].Status)
	assert.Equal(t, "pro", repo.subscriptions[0].InternalPlan)
	assert.Equal(t, "pro", repo.settings[7].Plan)
}

func TestProcessEventInvoiceTransitions(t *testing.T) {
	repo := newFakeBillingRepo()
	repo.customers = append(repo.customers, &models.BillingCustomer{ID: 1, UserID: 7, Provider: "stripe", ProviderCustomerID: "cus_1"})
	repo.subscriptions = append(repo.subscriptions, &models.BillingSubscription{
		ID: 2, UserID: 7, Provider: "stripe", ProviderSubscriptionID: "sub_9",
		ProviderPriceID: "price_pro_month", InternalPlan: "pro", BillingInterval: "month", Status: "active",
	})
	svc := newTestService(repo)
	ctx := context.Background()

	failed := []byte(`{
		"id": "evt_if", "type": "invoice.payment_failed",
		"data": {"object": {"id": "in_1", "customer": "cus_1", "subscription": "sub_9", "billing_reason": "subscription_cycle"}}
	}`)
	ev, err := ParseWebhookEvent(failed)
	require.NoError(t, err)
	require.NoError(t, svc.ProcessEvent(ctx, ev, failed))
	assert.Equal(t, models.BillingStatusPastDue, repo.subscriptions[0].Status)

	succeeded := []byte(`{
		"id": "evt_is", "type": "invoice.payment_succeeded",
		"data": {"object": {"id": "in_2", "customer": "cus_1", "subscription": "sub_9", "billing_reason": "subscription_cycle"}}
	}`)
	ev, err = ParseWebhookEvent(succeeded)
	require.NoError(t, err)
	require.NoError(t, svc.ProcessEvent(ctx, ev, succeeded))
	assert.Equal(t, models.BillingStatusActive, repo.subscriptions[0].Status)

	// A non-renewal invoice (e.g. the initial subscription_create) is skipped.
	initial := []byte(`{
		"id": "evt_ii", "type": "invoice.payment_succeeded",
		"data": {"object": {"id": "in_3", "customer": "cus_1", "subscription": "sub_9", "billing_reason": "subscription_create"}}
	}`)
	ev, err = ParseWebhookEvent(initial)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.ProcessEvent(ctx, ev, initial), ErrEventIgnored)
}

func TestProcessEventIgnoresUnknownTypes(t *testing.T) {
	repo := newFakeBillingRepo()
	svc := newTestService(repo)

	payload := []byte(`{"id": "evt_x", "type": "customer.updated", "data": {"object": {}}}`)
	ev, err := ParseWebhookEvent(payload)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ProcessEvent(context.Background(), ev, payload), ErrEventIgnored)
}
