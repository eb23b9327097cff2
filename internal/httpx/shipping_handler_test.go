package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-saga.git/internal/shipping"
)

func newShippingServer(t *testing.T) *httptest.Server {
	t.Helper()
	r := NewRouter(nil)
	h := &ShippingHandler{
		Svc: &shipping.Service{Store: shipping.NewMemStore(), Log: zap.NewNop()},
		Log: zap.NewNop(),
	}
	h.Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestFulfillAndAdvanceEndpoints(t *testing.T) {
	srv := newShippingServer(t)

	resp := postJSON(t, srv.URL+"/shipping/fulfill", `{"order_id":"o1","user_id":"u1"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created struct {
		TrackingID string `json:"tracking_id"`
		Status     string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.TrackingID)
	require.Equal(t, shipping.StageProcessing, created.Status)

	advance := func() (string, bool) {
		body := fmt.Sprintf(`{"tracking_id":%q}`, created.TrackingID)
		resp := postJSON(t, srv.URL+"/shipping/advance", body)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out struct {
			Status string `json:"status"`
			Done   bool   `json:"done"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out.Status, out.Done
	}

	st, done := advance()
	require.Equal(t, shipping.StageCollected, st)
	require.False(t, done)
	st, done = advance()
	require.Equal(t, shipping.StageInTransit, st)
	require.False(t, done)
	st, done = advance()
	require.Equal(t, shipping.StageDeliveredToPickup, st)
	require.True(t, done)

	// extra advances stay terminal
	st, done = advance()
	require.Equal(t, shipping.StageDeliveredToPickup, st)
	require.True(t, done)

	track, err := http.Get(srv.URL + "/shipping/track/" + created.TrackingID)
	require.NoError(t, err)
	defer track.Body.Close()
	require.Equal(t, http.StatusOK, track.StatusCode)

	var sh shipping.Shipment
	require.NoError(t, json.NewDecoder(track.Body).Decode(&sh))
	require.Len(t, sh.Stages, 4)
}

func TestAdvanceEndpointUnknownShipment(t *testing.T) {
	srv := newShippingServer(t)

	resp := postJSON(t, srv.URL+"/shipping/advance", `{"tracking_id":"trk-nope"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	track, err := http.Get(srv.URL + "/shipping/track/trk-nope")
	require.NoError(t, err)
	defer track.Body.Close()
	require.Equal(t, http.StatusNotFound, track.StatusCode)
}

func TestFulfillEndpointValidation(t *testing.T) {
	srv := newShippingServer(t)

	resp := postJSON(t, srv.URL+"/shipping/fulfill", `{}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
