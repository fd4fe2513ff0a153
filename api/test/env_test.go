package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/rahmatfadhil/elearn/api"
	"github.com/rahmatfadhil/elearn/api/background"
	"github.com/rahmatfadhil/elearn/config"
	"github.com/rahmatfadhil/elearn/core/purchase"
	"github.com/rahmatfadhil/elearn/core/user"
	"github.com/rahmatfadhil/elearn/database"
	"github.com/rahmatfadhil/elearn/rate"
)

const webhookSecret = "whsec_test_secret"

type TestEnv struct {
	DB     *sqlx.DB
	Server *httptest.Server
	URL    string

	Stripe *mockStripe
	Paypal *mockPaypal
	Blob   *fakeBlob

	WebhookSecret string

	client *http.Client
}

// NewTestEnv spins up a throwaway Postgres container, migrates the
// schema and serves the full API over mocked payment providers. All
// resources are torn down with the test.
func NewTestEnv(t *testing.T, name string) (*TestEnv, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("connecting to docker: %w", err)
	}

	res, err := pool.Run("postgres", "15-alpine", []string{
		"POSTGRES_USER=postgres",
		"POSTGRES_PASSWORD=postgres",
		"POSTGRES_DB=" + name,
	})
	if err != nil {
		return nil, fmt.Errorf("starting postgres container: %w", err)
	}
	t.Cleanup(func() { pool.Purge(res) })

	cfg := config.DB{
		User:       "postgres",
		Password:   "postgres",
		Host:       "localhost:" + res.GetPort("5432/tcp"),
		Name:       name,
		DisableTLS: true,
	}

	var db *sqlx.DB
	if err := pool.Retry(func() error {
		db, err = database.Open(cfg)
		if err != nil {
			return err
		}
		return database.StatusCheck(context.Background(), db)
	}); err != nil {
		return nil, fmt.Errorf("waiting for postgres: %w", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	ms := newMockStripe()
	stripeSrv := httptest.NewServer(ms.handle())
	t.Cleanup(stripeSrv.Close)

	strp := &stripecl.API{}
	strp.Init("sk_test_xyz", &stripe.Backends{
		API: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:           stripe.String(stripeSrv.URL),
			LeveledLogger: &stripe.LeveledLogger{Level: stripe.LevelError},
		}),
	})

	stripeCfg := config.Stripe{
		APISecret:     "sk_test_xyz",
		WebhookSecret: webhookSecret,
		SuccessURL:    "http://localhost/success",
		CancelURL:     "http://localhost/cancel",
	}

	mp := newMockPaypal()
	paypalSrv := httptest.NewServer(mp.handle())
	t.Cleanup(paypalSrv.Close)

	pp, err := paypal.NewClient("client", "secret", paypalSrv.URL)
	if err != nil {
		return nil, fmt.Errorf("building paypal client: %w", err)
	}
	if _, err := pp.GetAccessToken(context.Background()); err != nil {
		return nil, fmt.Errorf("getting paypal access token: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	sessionManager := scs.New()
	sessionManager.Lifetime = time.Hour

	fb := newFakeBlob()
	bg := background.New(logger)

	mux := api.APIMux(api.APIConfig{
		Log:           logger,
		DB:            db,
		Session:       sessionManager,
		Background:    bg,
		Blob:          fb,
		Gateway:       purchase.NewStripeGateway(strp, stripeCfg),
		Paypal:        pp,
		WebhookSecret: stripeCfg.WebhookSecret,
		Limiter:       rate.NewLimiter(1000, 10, 1000),
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("building cookie jar: %w", err)
	}

	te := TestEnv{
		DB:            db,
		Server:        srv,
		URL:           srv.URL,
		Stripe:        ms,
		Paypal:        mp,
		Blob:          fb,
		WebhookSecret: stripeCfg.WebhookSecret,
		client:        &http.Client{Jar: jar},
	}
	return &te, nil
}

func (te *TestEnv) Client() *http.Client {
	return te.client
}

// do runs an authenticated JSON round trip and fails the test on a
// status mismatch. A nil out skips response decoding.
func (te *TestEnv) do(t *testing.T, method string, path string, body any, out any, wantStatus int) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling %s %s body: %v", method, path, err)
		}
		rd = bytes.NewReader(b)
	}

	r, err := http.NewRequest(method, te.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}

	w, err := te.client.Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != wantStatus {
		msg, _ := io.ReadAll(w.Body)
		t.Fatalf("%s %s: status code %s, want %d: %s", method, path, w.Status, wantStatus, msg)
	}

	if out != nil {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s response: %v", method, path, err)
		}
	}
}

func (te *TestEnv) Signup(t *testing.T, name string, email string, pass string, role string) user.User {
	t.Helper()

	body := map[string]string{
		"name":     name,
		"email":    email,
		"password": pass,
		"role":     role,
	}

	var usr user.User
	te.do(t, http.MethodPost, "/auth/signup", body, &usr, http.StatusCreated)
	return usr
}

func (te *TestEnv) Login(t *testing.T, email string, pass string) {
	t.Helper()
	body := map[string]string{"email": email, "password": pass}
	te.do(t, http.MethodPost, "/auth/login", body, nil, http.StatusOK)
}

func (te *TestEnv) Logout(t *testing.T) {
	t.Helper()
	te.do(t, http.MethodPost, "/auth/logout", nil, nil, http.StatusNoContent)
}

// DeliverWebhook signs a checkout.session.completed event for the
// session and posts it the way the gateway would. It returns the
// response status code so tests can assert rejection paths too.
func (te *TestEnv) DeliverWebhook(t *testing.T, sessionID string, amountCents int64) int {
	t.Helper()

	raw, err := json.Marshal(map[string]any{
		"id":           sessionID,
		"mode":         stripe.CheckoutSessionModePayment,
		"amount_total": amountCents,
	})
	if err != nil {
		t.Fatal(err)
	}

	evt := stripe.Event{
		APIVersion: stripe.APIVersion,
		Type:       "checkout.session.completed",
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
		Secret:    te.WebhookSecret,
		Timestamp: time.Now(),
	})

	r, err := http.NewRequest(http.MethodPost, te.URL+"/purchases/stripe/webhook", bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Stripe-Signature", signed.Header)

	w, err := te.client.Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()
	io.Copy(io.Discard, w.Body)

	return w.StatusCode
}
