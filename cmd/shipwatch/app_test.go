package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/BearBump/ShipWatch/config"
	"github.com/BearBump/ShipWatch/internal/cache"
	"github.com/BearBump/ShipWatch/internal/engine"
	"github.com/BearBump/ShipWatch/internal/models"
	"github.com/BearBump/ShipWatch/internal/notify"
	"github.com/BearBump/ShipWatch/internal/notify/webhook"
	"github.com/BearBump/ShipWatch/internal/provider/fake"
	"github.com/BearBump/ShipWatch/internal/storage"
	"github.com/BearBump/ShipWatch/internal/storage/filestore"
	"github.com/stretchr/testify/require"
)

type emptyStore struct{}

func (emptyStore) Load() (map[string]*models.SubscriptionRecord, error) {
	return map[string]*models.SubscriptionRecord{}, nil
}

func (emptyStore) Save(map[string]*models.SubscriptionRecord) error { return nil }

func TestDefaultAppFactories_SelectStore(t *testing.T) {
	f := defaultAppFactories()

	cfg := &config.Config{
		Store: config.StoreConfig{
			Backend:  "file",
			FilePath: filepath.Join(t.TempDir(), "subs.json"),
		},
	}
	st, closeFn, err := f.newStore(cfg)
	require.NoError(t, err)
	require.Nil(t, closeFn)
	_, ok := st.(*filestore.Store)
	require.True(t, ok)
}

func TestDefaultAppFactories_SelectNotifier(t *testing.T) {
	f := defaultAppFactories()

	withURL := &config.Config{
		ShipWatch: config.ShipWatchConfig{NotifyWebhookURL: "https://hooks.local/x"},
	}
	n1 := f.newNotifier(withURL)
	_, ok := n1.(*webhook.Notifier)
	require.True(t, ok)

	n2 := f.newNotifier(&config.Config{})
	_, ok = n2.(logNotifier)
	require.True(t, ok)
}

func TestDefaultAppFactories_OptionalDeps(t *testing.T) {
	f := defaultAppFactories()

	bare := &config.Config{}
	require.Nil(t, f.newProducer(bare))
	require.Nil(t, f.newRateLimiter(bare))
	require.Nil(t, f.newCache(bare))

	full := &config.Config{
		Kafka: config.KafkaConfig{Host: "localhost", Port: 9092},
		Redis: config.RedisConfig{Host: "localhost", Port: 6379},
	}
	require.NotNil(t, f.newProducer(full))
	require.NotNil(t, f.newRateLimiter(full))
	require.NotNil(t, f.newCache(full))
}

func TestRunShipWatch_ContextCanceled(t *testing.T) {
	calledClose := false

	f := appFactories{
		newStore: func(cfg *config.Config) (storage.Store, func(), error) {
			return emptyStore{}, func() { calledClose = true }, nil
		},
		newFetcher: func(cfg *config.Config) engine.Fetcher {
			return fake.New()
		},
		newNotifier: func(cfg *config.Config) notify.Notifier {
			return logNotifier{}
		},
		newProducer:    func(cfg *config.Config) engine.Producer { return nil },
		newRateLimiter: func(cfg *config.Config) engine.RateLimiter { return nil },
		newCache:       func(cfg *config.Config) cache.BytesCache { return nil },
	}

	cfg := &config.Config{
		ShipWatch: config.ShipWatchConfig{
			HTTPAddr:            "127.0.0.1:0",
			PollIntervalSeconds: 1,
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunShipWatch(ctx, cfg, f)
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, calledClose)
}
