package billing

import (
	"testing"
	"time"
)

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"customer.subscription.updated"}`)
	secret := "whsec_test"
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	header := SignWebhookPayload(payload, secret, now)

	if !VerifyWebhookSignature(payload, header, secret, now) {
		t.Fatalf("expected freshly signed payload to verify")
	}
	if VerifyWebhookSignature(payload, header, "whsec_other", now) {
		t.Fatalf("expected wrong secret to fail")
	}
	if VerifyWebhookSignature([]byte(`{"tampered":true}`), header, secret, now) {
		t.Fatalf("expected tampered payload to fail")
	}
}

func TestVerifyWebhookSignatureRejectsMissingHeader(t *testing.T) {
	now := time.Now()
	if VerifyWebhookSignature([]byte("x"), "", "whsec_test", now) {
		t.Fatalf("expected empty header to fail")
	}
	if VerifyWebhookSignature([]byte("x"), "t=123", "whsec_test", now) {
		t.Fatalf("expected header without v1 to fail")
	}
	if VerifyWebhookSignature([]byte("x"), "v1=deadbeef", "whsec_test", now) {
		t.Fatalf("expected header without timestamp to fail")
	}
	if VerifyWebhookSignature([]byte("x"), "garbage", "whsec_test", now) {
		t.Fatalf("expected malformed header to fail")
	}
}

func TestVerifyWebhookSignatureRejectsStaleTimestamp(t *testing.T) {
	payload := []byte(`{}`)
	secret := "whsec_test"
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	stale := SignWebhookPayload(payload, secret, now.Add(-10*time.Minute))
	if VerifyWebhookSignature(payload, stale, secret, now) {
		t.Fatalf("expected stale signature to fail")
	}

	future := SignWebhookPayload(payload, secret, now.Add(10*time.Minute))
	if VerifyWebhookSignature(payload, future, secret, now) {
		t.Fatalf("expected far-future signature to fail")
	}

	fresh := SignWebhookPayload(payload, secret, now.Add(-2*time.Minute))
	if !VerifyWebhookSignature(payload, fresh, secret, now) {
		t.Fatalf("expected signature within tolerance to verify")
	}
}
