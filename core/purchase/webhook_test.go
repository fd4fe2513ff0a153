package purchase

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

const testSecret = "whsec_unit_test"

func signedEvent(t *testing.T, eventType string, session map[string]any, secret string) ([]byte, string) {
	t.Helper()

	raw, err := json.Marshal(session)
	if err != nil {
		t.Fatal(err)
	}

	evt := stripe.Event{
		APIVersion: stripe.APIVersion,
		Type:       eventType,
		Data: &stripe.EventData{
			Raw: json.RawMessage(raw),
		},
	}

	b, err := json.Marshal(evt)
	if err != nil {
		t.Fatal(err)
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   b,
		Secret:    secret,
		Timestamp: time.Now(),
	})

	return b, signed.Header
}

func TestParseCompletedSession(t *testing.T) {
	session := map[string]any{
		"id":           "cs_test_1",
		"mode":         stripe.CheckoutSessionModePayment,
		"amount_total": 5000,
	}

	t.Run("valid", func(t *testing.T) {
		b, sig := signedEvent(t, "checkout.session.completed", session, testSecret)

		got, ok, err := parseCompletedSession(b, sig, testSecret)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Fatal("completed payment session not recognized as actionable")
		}
		if got.ID != "cs_test_1" || got.AmountTotal != 5000 {
			t.Fatalf("parsed session %+v", got)
		}
	})

	t.Run("missing signature", func(t *testing.T) {
		b, _ := signedEvent(t, "checkout.session.completed", session, testSecret)

		if _, _, err := parseCompletedSession(b, "", testSecret); !errors.Is(err, errNotSigned) {
			t.Fatalf("got %v, want %v", err, errNotSigned)
		}
	})

	t.Run("missing secret", func(t *testing.T) {
		b, sig := signedEvent(t, "checkout.session.completed", session, testSecret)

		if _, _, err := parseCompletedSession(b, sig, ""); !errors.Is(err, errNoSecret) {
			t.Fatalf("got %v, want %v", err, errNoSecret)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		b, sig := signedEvent(t, "checkout.session.completed", session, "whsec_forged")

		if _, _, err := parseCompletedSession(b, sig, testSecret); !errors.Is(err, errBadSignature) {
			t.Fatalf("got %v, want %v", err, errBadSignature)
		}
	})

	t.Run("other event kind", func(t *testing.T) {
		b, sig := signedEvent(t, "payment_intent.succeeded", session, testSecret)

		_, ok, err := parseCompletedSession(b, sig, testSecret)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Fatal("unrelated event kind reported as actionable")
		}
	})

	t.Run("subscription mode", func(t *testing.T) {
		sub := map[string]any{
			"id":   "cs_test_2",
			"mode": stripe.CheckoutSessionModeSubscription,
		}
		b, sig := signedEvent(t, "checkout.session.completed", sub, testSecret)

		_, ok, err := parseCompletedSession(b, sig, testSecret)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Fatal("non-payment session reported as actionable")
		}
	})
}
