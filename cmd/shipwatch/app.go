package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/ShipWatch/config"
	"github.com/BearBump/ShipWatch/internal/broker/kafka"
	"github.com/BearBump/ShipWatch/internal/cache"
	"github.com/BearBump/ShipWatch/internal/cache/rediscache"
	"github.com/BearBump/ShipWatch/internal/engine"
	"github.com/BearBump/ShipWatch/internal/notify"
	"github.com/BearBump/ShipWatch/internal/notify/webhook"
	"github.com/BearBump/ShipWatch/internal/provider"
	"github.com/BearBump/ShipWatch/internal/provider/fake"
	"github.com/BearBump/ShipWatch/internal/provider/shopeeapi"
	"github.com/BearBump/ShipWatch/internal/provider/spxscrape"
	"github.com/BearBump/ShipWatch/internal/registry"
	"github.com/BearBump/ShipWatch/internal/status"
	"github.com/BearBump/ShipWatch/internal/storage"
	"github.com/BearBump/ShipWatch/internal/storage/filestore"
	"github.com/BearBump/ShipWatch/internal/storage/pgstore"
	"github.com/BearBump/ShipWatch/internal/api/subscriptions_api"
)

type appFactories struct {
	newStore       func(cfg *config.Config) (st storage.Store, closeFn func(), err error)
	newFetcher     func(cfg *config.Config) engine.Fetcher
	newNotifier    func(cfg *config.Config) notify.Notifier
	newProducer    func(cfg *config.Config) engine.Producer
	newRateLimiter func(cfg *config.Config) engine.RateLimiter
	newCache       func(cfg *config.Config) cache.BytesCache
}

// logNotifier — fallback, когда webhook не настроен: переходы просто
// пишутся в лог, подписки при этом продолжают работать.
type logNotifier struct{}

func (logNotifier) Notify(_ context.Context, userID string, p notify.Payload) bool {
	slog.Info("status notification",
		"userID", userID,
		"code", p.Snapshot.Code,
		"status", p.Snapshot.Status,
		"transition", p.IsTransition,
	)
	return true
}

func defaultAppFactories() appFactories {
	return appFactories{
		newStore: func(cfg *config.Config) (storage.Store, func(), error) {
			if cfg.Store.Backend == "postgres" {
				sslMode := cfg.Store.Database.SSLMode
				if sslMode == "" {
					sslMode = "disable"
				}
				connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
					cfg.Store.Database.Username, cfg.Store.Database.Password,
					cfg.Store.Database.Host, cfg.Store.Database.Port,
					cfg.Store.Database.DBName, sslMode)
				st, err := pgstore.New(connString)
				if err != nil {
					return nil, nil, err
				}
				return st, st.Close, nil
			}
			path := cfg.Store.FilePath
			if path == "" {
				path = "subscriptions.json"
			}
			return filestore.New(path), nil, nil
		},
		newFetcher: func(cfg *config.Config) engine.Fetcher {
			timeout := time.Duration(cfg.ShipWatch.ProviderTimeoutSeconds) * time.Second
			if timeout <= 0 {
				timeout = 15 * time.Second
			}
			if cfg.ShipWatch.ProviderMode == "api" && cfg.ShipWatch.TrackerAPIBaseURL != "" {
				cls := status.Default()
				providers := []provider.Provider{shopeeapi.New(cfg.ShipWatch.TrackerAPIBaseURL, cls)}
				if cfg.ShipWatch.ScrapeBaseURL != "" {
					providers = append(providers, spxscrape.New(cfg.ShipWatch.ScrapeBaseURL, cls))
				}
				return provider.NewChain(timeout, providers...)
			}
			return provider.NewChain(timeout, fake.New())
		},
		newNotifier: func(cfg *config.Config) notify.Notifier {
			if cfg.ShipWatch.NotifyWebhookURL != "" {
				return webhook.New(cfg.ShipWatch.NotifyWebhookURL)
			}
			return logNotifier{}
		},
		newProducer: func(cfg *config.Config) engine.Producer {
			if cfg.Kafka.Host == "" {
				return nil
			}
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewProducer(brokers)
		},
		newRateLimiter: func(cfg *config.Config) engine.RateLimiter {
			if cfg.Redis.Host == "" {
				return nil
			}
			return rediscache.NewRateLimiter(fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port))
		},
		newCache: func(cfg *config.Config) cache.BytesCache {
			if cfg.Redis.Host == "" {
				return nil
			}
			return rediscache.New(fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port))
		},
	}
}

func RunShipWatch(ctx context.Context, cfg *config.Config, f appFactories) error {
	topic := cfg.Kafka.StatusChangedTopicName
	if topic == "" {
		topic = "shipment.status.changed"
	}

	pollInterval := time.Duration(cfg.ShipWatch.PollIntervalSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = 5 * time.Minute
	}
	startupDelay := time.Duration(cfg.ShipWatch.StartupDelaySeconds) * time.Second
	if startupDelay <= 0 {
		startupDelay = 10 * time.Second
	}
	concurrency := cfg.ShipWatch.PollConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	rlPerMin := int64(cfg.ShipWatch.RateLimitPerMinute)
	if rlPerMin <= 0 {
		rlPerMin = 120
	}
	cacheTTL := time.Duration(cfg.ShipWatch.CurrentStatusTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}

	st, closeFn, err := f.newStore(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	fetcher := f.newFetcher(cfg)

	reg, err := registry.New(st, fetcher)
	if err != nil {
		return err
	}

	eng := engine.New(reg, fetcher, f.newNotifier(cfg)).
		WithSettings(pollInterval, startupDelay, concurrency, rlPerMin)
	if p := f.newProducer(cfg); p != nil {
		eng = eng.WithProducer(p, topic)
	}
	if rl := f.newRateLimiter(cfg); rl != nil {
		eng = eng.WithRateLimiter(rl)
	}

	api := subscriptions_api.New(reg, fetcher, f.newCache(cfg), cacheTTL)

	errCh := make(chan error, 2)
	go func() {
		errCh <- runHTTPServer(ctx, httpOpts{
			httpAddr: cfg.ShipWatch.HTTPAddr,
			api:      api,
			engine:   eng,
		})
	}()
	go func() {
		errCh <- eng.Run(ctx)
	}()

	err = <-errCh
	if err == nil || err == context.Canceled {
		// Даём второй горутине завершиться по отменённому контексту.
		return <-errCh
	}
	return err
}
