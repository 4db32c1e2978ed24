package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const subscriptionEventPayload = `{
	"id": "evt_100",
	"type": "customer.subscription.updated",
	"data": {
		"object": {
			"id": "sub_1",
			"customer": "cus_1",
			"status": "active",
			"current_period_start": 1767225600,
			"current_period_end": 1769904000,
			"trial_end": 0,
			"cancel_at_period_end": false,
			"items": {
				"data": [
					{"price": {"id": "price_pro_month", "recurring": {"interval": "month"}}}
				]
			}
		}
	}
}`

func TestParseWebhookEvent(t *testing.T) {
	ev, err := ParseWebhookEvent([]byte(subscriptionEventPayload))
	require.NoError(t, err)
	assert.Equal(t, "evt_100", ev.ID)
	assert.Equal(t, EventSubscriptionUpdated, ev.Type)

	sub, err := ParseSubscription(ev.Data.Object)
	require.NoError(t, err)
	assert.Equal(t, "sub_1", sub.ID)
	assert.Equal(t, "cus_1", sub.Customer)
	assert.Equal(t, "price_pro_month", sub.PriceID())
	assert.Equal(t, "month", sub.Interval())
}

func TestParseWebhookEventRejectsGarbage(t *testing.T) {
	if _, err := ParseWebhookEvent([]byte("not json")); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := ParseWebhookEvent([]byte(`{"id":"evt_1"}`)); err == nil {
		t.Fatalf("expected missing type to fail")
	}
}

func TestNormalizedStatusTrialingSpecialCase(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	sub := &SubscriptionObject{Status: "active", TrialEnd: now.Add(72 * time.Hour).Unix()}
	assert.Equal(t, "trialing", sub.NormalizedStatus(now))

	sub = &SubscriptionObject{Status: "active", TrialEnd: now.Add(-time.Hour).Unix()}
	assert.Equal(t, "active", sub.NormalizedStatus(now))

	sub = &SubscriptionObject{Status: "active"}
	assert.Equal(t, "active", sub.NormalizedStatus(now))

	sub = &SubscriptionObject{Status: "past_due", TrialEnd: now.Add(time.Hour).Unix()}
	assert.Equal(t, "past_due", sub.NormalizedStatus(now))
}

func TestSubscriptionNormalize(t *testing.T) {
	ev, err := ParseWebhookEvent([]byte(subscriptionEventPayload))
	require.NoError(t, err)
	sub, err := ParseSubscription(ev.Data.Object)
	require.NoError(t, err)

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	in := sub.Normalize(7, "stripe", []byte(subscriptionEventPayload), now)

	assert.Equal(t, uint(7), in.UserID)
	assert.Equal(t, "sub_1", in.ProviderSubscriptionID)
	assert.Equal(t, "price_pro_month", in.ProviderPriceID)
	assert.Equal(t, "month", in.BillingInterval)
	assert.Equal(t, "active", in.Status)
	require.NotNil(t, in.CurrentPeriodStart)
	require.NotNil(t, in.CurrentPeriodEnd)
	assert.Nil(t, in.TrialEnd)
}
