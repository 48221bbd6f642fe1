package test

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
	mock "github.com/stripe/stripe-mock/param"
)

// mockStripe serves the checkout session endpoints the Stripe gateway uses.
type mockStripe struct {
	mu       sync.Mutex
	sessions map[string]map[string]any
	amounts  []int64
}

func newMockStripe() *mockStripe {
	return &mockStripe{sessions: make(map[string]map[string]any)}
}

func respond(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func firstItem(v any) map[string]any {
	switch vv := v.(type) {
	case map[string]any:
		it, _ := vv["0"].(map[string]any)
		return it
	case []any:
		if len(vv) > 0 {
			it, _ := vv[0].(map[string]any)
			return it
		}
	}
	return nil
}

func (m *mockStripe) handle() http.Handler {
	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params, err := mock.ParseParams(r)
		if err != nil {
			respond(w, map[string]any{"error": map[string]any{"message": err.Error()}}, 400)
			return
		}

		it := firstItem(params["line_items"])
		if it == nil || it["quantity"] != "1" {
			respond(w, map[string]any{"error": map[string]any{"message": "one item expected"}}, 400)
			return
		}

		pd, _ := it["price_data"].(map[string]any)
		s, _ := pd["unit_amount"].(string)
		amount, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			respond(w, map[string]any{"error": map[string]any{"message": err.Error()}}, 400)
			return
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		m.amounts = append(m.amounts, amount)

		id := "cs_test_" + strconv.Itoa(len(m.amounts))
		sess := map[string]any{
			"id":             id,
			"object":         "checkout.session",
			"url":            "https://checkout.stripe.test/pay/" + id,
			"status":         "open",
			"payment_status": "unpaid",
			"mode":           "payment",
			"amount_total":   amount,
			"currency":       pd["currency"],
			"customer_email": params["customer_email"],
			"metadata":       params["metadata"],
		}
		m.sessions[id] = sess
		respond(w, sess, 200)
	})

	retrieve := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		sess, ok := m.sessions[mux.Vars(r)["id"]]
		if !ok {
			respond(w, map[string]any{"error": map[string]any{"type": "invalid_request_error", "message": "no such session"}}, 404)
			return
		}
		respond(w, sess, 200)
	})

	r := mux.NewRouter()
	r.Handle("/v1/checkout/sessions", checkout).Methods(http.MethodPost)
	r.Handle("/v1/checkout/sessions/{id}", retrieve).Methods(http.MethodGet)
	return r
}

func (m *mockStripe) pay(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id]["status"] = "complete"
	m.sessions[id]["payment_status"] = "paid"
}

func (m *mockStripe) charged() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.amounts...)
}

// completedEvent builds a signed checkout.session.completed delivery.
func completedEvent(sessionID string, secret string) ([]byte, string, error) {
	raw, err := json.Marshal(map[string]any{"id": sessionID, "object": "checkout.session", "mode": "payment"})
	if err != nil {
		return nil, "", err
	}

	evt := stripe.Event{
		APIVersion: stripe.APIVersion,
		Type:       "checkout.session.completed",
		Data:       &stripe.EventData{Raw: json.RawMessage(raw)},
	}

	b, err := json.Marshal(evt)
	if err != nil {
		return nil, "", err
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   b,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return b, signed.Header, nil
}
