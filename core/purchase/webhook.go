package purchase

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

var (
	errNotSigned    = errors.New("received stripe event is not signed")
	errNoSecret     = errors.New("no webhook secret configured")
	errBadSignature = errors.New("stripe event signature verification failed")
)

// parseCompletedSession verifies the raw webhook payload against the
// shared secret and extracts the checkout session when the event is a
// completed payment-mode checkout. It fails closed: a missing
// signature or secret rejects the payload regardless of content. The
// bool reports whether the event is one this system acts on; verified
// events of any other kind are acknowledged without state change.
func parseCompletedSession(b []byte, sig string, secret string) (stripe.CheckoutSession, bool, error) {
	if sig == "" {
		return stripe.CheckoutSession{}, false, errNotSigned
	}
	if secret == "" {
		return stripe.CheckoutSession{}, false, errNoSecret
	}

	event, err := webhook.ConstructEvent(b, sig, secret)
	if err != nil {
		return stripe.CheckoutSession{}, false, fmt.Errorf("%w: %s", errBadSignature, err)
	}

	if event.Type != "checkout.session.completed" {
		return stripe.CheckoutSession{}, false, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return stripe.CheckoutSession{}, false, fmt.Errorf("unable to decode stripe event: %w", err)
	}

	if session.Mode != stripe.CheckoutSessionModePayment {
		return stripe.CheckoutSession{}, false, nil
	}

	return session, true, nil
}
