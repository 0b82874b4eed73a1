package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BearBump/ShipWatch/internal/models"
	"github.com/BearBump/ShipWatch/internal/notify"
	"github.com/stretchr/testify/require"
)

func TestNotifier_Notify_OK(t *testing.T) {
	var got notify.Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := New(srv.URL)
	ok := n.Notify(context.Background(), "u1", notify.Payload{
		UserID:       "u1",
		Snapshot:     models.StatusSnapshot{Code: "BR123456789BR", Status: models.StatusDelivered},
		IsTransition: true,
	})
	require.True(t, ok)
	require.Equal(t, "u1", got.UserID)
	require.Equal(t, models.StatusDelivered, got.Snapshot.Status)
	require.True(t, got.IsTransition)
}

func TestNotifier_Notify_HTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := New(srv.URL)
	require.False(t, n.Notify(context.Background(), "u1", notify.Payload{UserID: "u1"}))
}

func TestNotifier_Notify_Unreachable(t *testing.T) {
	n := New("http://127.0.0.1:1")
	require.False(t, n.Notify(context.Background(), "u1", notify.Payload{UserID: "u1"}))
}
