package test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/plutov/paypal/v4"
	mock "github.com/stripe/stripe-mock/param"

	"github.com/rahmatfadhil/elearn/api/web"
	"github.com/rahmatfadhil/elearn/blob"
)

// mockStripe fakes the two checkout session endpoints the gateway
// talks to. Sessions start unpaid; tests flip them with markPaid to
// simulate a buyer completing the hosted checkout.
type mockStripe struct {
	expectedPrice int

	mu       sync.Mutex
	sessions map[string]bool
	next     int
}

func newMockStripe() *mockStripe {
	return &mockStripe{sessions: make(map[string]bool)}
}

func (m *mockStripe) markPaid(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = true
}

func (m *mockStripe) handle() http.Handler {
	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params, _ := mock.ParseParams(r)
		lines := params["line_items"].(map[string]any)

		if len(lines) != 1 {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		for _, li := range lines {
			it := li.(map[string]any)

			if it["quantity"] != "1" {
				web.Respond(context.Background(), w, nil, 400)
				return
			}

			pd := it["price_data"].(map[string]any)
			s := pd["unit_amount"].(string)
			amount, err := strconv.ParseInt(s, 10, 0)
			if err != nil {
				web.Respond(context.Background(), w, err, 400)
				return
			}

			if int(amount/100) != m.expectedPrice {
				web.Respond(context.Background(), w, nil, 400)
				return
			}
		}

		m.mu.Lock()
		m.next++
		id := fmt.Sprintf("cs_test_%d", m.next)
		m.sessions[id] = false
		m.mu.Unlock()

		session := map[string]any{
			"id":  id,
			"url": "https://checkout.stripe.test/pay/" + id,
		}
		web.Respond(context.Background(), w, session, 201)
	})

	show := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		m.mu.Lock()
		paid, ok := m.sessions[id]
		m.mu.Unlock()

		if !ok {
			web.Respond(context.Background(), w, nil, 404)
			return
		}

		status := "unpaid"
		if paid {
			status = "paid"
		}

		session := map[string]any{
			"id":             id,
			"payment_status": status,
		}
		web.Respond(context.Background(), w, session, 200)
	})

	r := mux.NewRouter()
	r.Handle("/v1/checkout/sessions", checkout).Methods("POST")
	r.Handle("/v1/checkout/sessions/{id}", show).Methods("GET")
	return r
}

type mockPaypal struct {
	expectedPrice int

	mu   sync.Mutex
	next int
}

func newMockPaypal() *mockPaypal {
	return &mockPaypal{}
}

func (m *mockPaypal) handle() http.Handler {
	token := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		web.Respond(context.Background(), w, resp, 200)
	})

	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var pu struct {
			Units []paypal.PurchaseUnitRequest `json:"purchase_units"`
		}
		if err := web.Decode(w, r, &pu); err != nil {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		if len(pu.Units) != 1 || len(pu.Units[0].Items) != 1 {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		if pu.Units[0].Amount.Value != strconv.Itoa(m.expectedPrice) {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		m.mu.Lock()
		m.next++
		id := fmt.Sprintf("paypal-%d", m.next)
		m.mu.Unlock()

		ord := paypal.Order{ID: id}
		web.Respond(context.Background(), w, ord, 201)
	})

	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ord := paypal.CaptureOrderResponse{
			ID:     mux.Vars(r)["id"],
			Status: "COMPLETED",
		}
		web.Respond(context.Background(), w, ord, 200)
	})

	r := mux.NewRouter()
	r.Handle("/v1/oauth2/token", token).Methods("POST")
	r.Handle("/v2/checkout/orders", checkout).Methods("POST")
	r.Handle("/v2/checkout/orders/{id}/capture", capture).Methods("POST")
	return r
}

// fakeBlob is an in-memory blob.Store. Deletes are recorded so tests
// can assert the background cleanup ran, and can be forced to fail to
// prove row deletion never waits on blob deletion.
type fakeBlob struct {
	mu         sync.Mutex
	objects    map[string][]byte
	deleted    []string
	failDelete bool
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{objects: make(map[string][]byte)}
}

func (f *fakeBlob) Upload(ctx context.Context, kind blob.Kind, key string, r io.Reader, contentType string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = b
	return "https://blobs.test/" + key, nil
}

func (f *fakeBlob) Delete(ctx context.Context, kind blob.Kind, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, key)
	if f.failDelete {
		return fmt.Errorf("blob store unavailable")
	}

	delete(f.objects, key)
	return nil
}

func (f *fakeBlob) deletedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}
