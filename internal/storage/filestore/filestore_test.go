package filestore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BearBump/ShipWatch/internal/models"
	"github.com/stretchr/testify/require"
)

func TestStore_LoadMissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "subs.json"))
	m, err := s.Load()
	require.NoError(t, err)
	require.Empty(t, m)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.json")
	s := New(path)

	created := time.Date(2025, 9, 13, 17, 41, 16, 0, time.UTC)
	in := map[string]*models.SubscriptionRecord{
		"BR123456789BR": {
			Code:        "BR123456789BR",
			Subscribers: []string{"u1", "u2"},
			LastStatus:  models.StatusInTransit,
			LastEvents: []models.StatusEvent{
				{Time: created, Description: "Em trânsito"},
			},
			IsTerminal: false,
			CreatedAt:  created,
		},
		"LX987654321US": {
			Code:        "LX987654321US",
			Subscribers: []string{"u3"},
			LastStatus:  models.StatusDelivered,
			IsTerminal:  true,
			CreatedAt:   created,
		},
	}
	require.NoError(t, s.Save(in))

	out, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, in, out)

	// Никаких временных файлов после успешного Save.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestStore_SaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.json")
	s := New(path)

	require.NoError(t, s.Save(map[string]*models.SubscriptionRecord{
		"BR123456789BR": {Code: "BR123456789BR", Subscribers: []string{"u1"}},
	}))
	require.NoError(t, s.Save(map[string]*models.SubscriptionRecord{}))

	out, err := s.Load()
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestStore_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := New(path)
	_, err := s.Load()
	require.Error(t, err)
}
