package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-saga.git/internal/payments"
)

func newPaymentsServer(t *testing.T) *httptest.Server {
	t.Helper()
	r := NewRouter(nil)
	h := &PaymentsHandler{
		Svc: &payments.Service{Store: payments.NewMemStore(), Log: zap.NewNop()},
		Log: zap.NewNop(),
	}
	h.Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestChargeEndpointCaptureAndDecline(t *testing.T) {
	srv := newPaymentsServer(t)

	resp := postJSON(t, srv.URL+"/payments/charge",
		`{"payment_id":"p-o1-2","amount_cents":2500,"order_id":"o1"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var p payments.Payment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	require.Equal(t, payments.StatusCaptured, p.Status)
	require.Equal(t, "USD", p.Currency, "currency defaults to USD")

	resp = postJSON(t, srv.URL+"/payments/charge",
		`{"payment_id":"p-o1-1","amount_cents":2500,"order_id":"o1"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	// the declined charge is still queryable
	got, err := http.Get(srv.URL + "/payments/p-o1-1")
	require.NoError(t, err)
	defer got.Body.Close()
	require.Equal(t, http.StatusOK, got.StatusCode)
}

func TestChargeEndpointValidation(t *testing.T) {
	srv := newPaymentsServer(t)

	resp := postJSON(t, srv.URL+"/payments/charge", `{"amount_cents":100}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/payments/charge", `{"payment_id":"p-1-2","amount_cents":0}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/payments/charge", `not json`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRefundEndpoint(t *testing.T) {
	srv := newPaymentsServer(t)

	resp := postJSON(t, srv.URL+"/payments/refund", `{"payment_id":"missing"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	postJSON(t, srv.URL+"/payments/charge", `{"payment_id":"p-o1-1","amount_cents":100}`).Body.Close()
	resp = postJSON(t, srv.URL+"/payments/refund", `{"payment_id":"p-o1-1"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode, "failed payments are not refundable")

	postJSON(t, srv.URL+"/payments/charge", `{"payment_id":"p-o1-2","amount_cents":100}`).Body.Close()
	resp = postJSON(t, srv.URL+"/payments/refund", `{"payment_id":"p-o1-2"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var p payments.Payment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	require.Equal(t, payments.StatusRefunded, p.Status)
}

func TestGetByOrderEndpointEmpty(t *testing.T) {
	srv := newPaymentsServer(t)

	resp, err := http.Get(srv.URL + "/payments/order/nothing")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []payments.Payment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Empty(t, out)
}
