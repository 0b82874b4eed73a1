package shopeeapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BearBump/ShipWatch/internal/models"
	"github.com/stretchr/testify/require"
)

func TestClient_Fetch_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/shopee-tracker/BR123456789BR", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "success": true,
  "tracking": {
    "status": "Em trânsito",
    "events": [
      {"date":"2025-09-13","time":"17:41:16","description":"Pacote em trânsito"},
      {"date":"2025-09-12","time":"09:00:00","description":"Objeto postado"}
    ]
  }
}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/shopee-tracker", nil)
	snap, err := c.Fetch(context.Background(), "BR123456789BR")
	require.NoError(t, err)
	require.Equal(t, "BR123456789BR", snap.Code)
	require.Equal(t, models.StatusInTransit, snap.Status)
	require.Equal(t, "Em trânsito", snap.StatusRaw)
	require.Len(t, snap.Events, 2)
	require.Equal(t, "Pacote em trânsito", snap.Events[0].Description)
	require.WithinDuration(t, time.Date(2025, 9, 13, 17, 41, 16, 0, time.UTC), snap.Events[0].Time, time.Second)
	require.False(t, snap.FetchedAt.IsZero())
}

func TestClient_Fetch_APIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": false, "error": "tracking not found"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	_, err := c.Fetch(context.Background(), "BR123456789BR")
	require.Error(t, err)
	require.Contains(t, err.Error(), "tracking not found")
}

func TestClient_Fetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	_, err := c.Fetch(context.Background(), "BR123456789BR")
	require.Error(t, err)
	require.Contains(t, err.Error(), "http 502")
}
