package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func signPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"eventType":"purchase_approved","contactIdentifier":"a@b.c"}`)
	secret := "whsec_test"

	valid := signPayload(payload, secret)
	if !VerifyWebhookSignature(payload, valid, secret) {
		t.Fatalf("expected valid signature to verify")
	}
	if !VerifyWebhookSignature(payload, strings.ToUpper(valid), secret) {
		t.Fatalf("expected uppercase hex signature to verify")
	}

	if VerifyWebhookSignature(payload, signPayload(payload, "other-secret"), secret) {
		t.Fatalf("signature from a different secret must fail")
	}
	if VerifyWebhookSignature([]byte(`{"tampered":true}`), valid, secret) {
		t.Fatalf("signature over a different payload must fail")
	}
	if VerifyWebhookSignature(payload, "not-hex!", secret) {
		t.Fatalf("non-hex signature must fail")
	}
}

func TestVerifyWebhookSignature_NeverValidatesUnconfigured(t *testing.T) {
	payload := []byte(`{}`)

	if VerifyWebhookSignature(payload, "", "secret") {
		t.Fatalf("empty signature must fail")
	}
	if VerifyWebhookSignature(payload, signPayload(payload, ""), "") {
		t.Fatalf("unconfigured secret must reject every delivery")
	}
}
