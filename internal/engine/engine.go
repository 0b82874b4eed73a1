package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/ShipWatch/internal/broker/messages"
	"github.com/BearBump/ShipWatch/internal/models"
	"github.com/BearBump/ShipWatch/internal/notify"
)

// Registrar — то, что движку нужно от реестра подписок.
type Registrar interface {
	ActiveSnapshot() []*models.SubscriptionRecord
	ApplyTransition(snap models.StatusSnapshot) bool
	RefreshEvents(code string, events []models.StatusEvent)
}

// Fetcher — цепочка провайдеров статуса.
type Fetcher interface {
	Fetch(ctx context.Context, code string) (models.StatusSnapshot, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Engine — цикл сверки: по тику снимает срез активных подписок,
// опрашивает провайдеров вне блокировки реестра и на каждом переходе
// канонического статуса рассылает уведомления подписчикам.
type Engine struct {
	registry Registrar
	fetcher  Fetcher
	notifier notify.Notifier
	producer Producer
	rl       RateLimiter

	topic string

	pollInterval       time.Duration
	startupDelay       time.Duration
	concurrency        int
	rateLimitPerMinute int64

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalPolled         atomic.Int64
	totalTransitions    atomic.Int64
	totalNotified       atomic.Int64
	totalErrors         atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(registry Registrar, fetcher Fetcher, notifier notify.Notifier) *Engine {
	return &Engine{
		registry:           registry,
		fetcher:            fetcher,
		notifier:           notifier,
		pollInterval:       5 * time.Minute,
		startupDelay:       10 * time.Second,
		concurrency:        4,
		rateLimitPerMinute: 120,
		triggerCh:          make(chan struct{}, 1),
		startedAtUnixNano:  time.Now().UTC().UnixNano(),
	}
}

func (e *Engine) WithSettings(pollInterval, startupDelay time.Duration, concurrency int, rlPerMin int64) *Engine {
	if pollInterval > 0 {
		e.pollInterval = pollInterval
	}
	if startupDelay > 0 {
		e.startupDelay = startupDelay
	}
	if concurrency > 0 {
		e.concurrency = concurrency
	}
	if rlPerMin > 0 {
		e.rateLimitPerMinute = rlPerMin
	}
	return e
}

func (e *Engine) WithProducer(p Producer, topic string) *Engine {
	e.producer = p
	e.topic = topic
	return e
}

func (e *Engine) WithRateLimiter(rl RateLimiter) *Engine {
	e.rl = rl
	return e
}

// Trigger форсирует немедленный цикл (best-effort, без блокировки).
func (e *Engine) Trigger() {
	e.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case e.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt        time.Time  `json:"startedAt"`
	LastCycleAt      *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt    *time.Time `json:"lastTriggerAt,omitempty"`
	TotalPolled      int64      `json:"totalPolled"`
	TotalTransitions int64      `json:"totalTransitions"`
	TotalNotified    int64      `json:"totalNotified"`
	TotalErrors      int64      `json:"totalErrors"`
	InFlight         int64      `json:"inFlight"`
	LastError        string     `json:"lastError,omitempty"`
}

func (e *Engine) Stats() Stats {
	st := Stats{
		StartedAt:        time.Unix(0, e.startedAtUnixNano).UTC(),
		TotalPolled:      e.totalPolled.Load(),
		TotalTransitions: e.totalTransitions.Load(),
		TotalNotified:    e.totalNotified.Load(),
		TotalErrors:      e.totalErrors.Load(),
		InFlight:         e.inFlight.Load(),
	}
	if n := e.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := e.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	e.lastErrorMu.Lock()
	st.LastError = e.lastError
	e.lastErrorMu.Unlock()
	return st
}

// Run крутит цикл до отмены контекста: один ранний прогон после старта,
// дальше по интервалу. Текущий прогон дорабатывает до конца.
func (e *Engine) Run(ctx context.Context) error {
	t := time.NewTicker(e.pollInterval)
	defer t.Stop()

	startup := time.After(e.startupDelay)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-startup:
			e.runOnce(ctx)
		case <-t.C:
			e.runOnce(ctx)
		case <-e.triggerCh:
			e.runOnce(ctx)
		}
	}
}

func (e *Engine) runOnce(ctx context.Context) {
	now := time.Now().UTC()
	e.lastCycleUnixNano.Store(now.UnixNano())

	// Срез реестра берётся под его блокировкой; всё дальнейшее — по копиям.
	items := e.registry.ActiveSnapshot()

	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup
	for _, rec := range items {
		sem <- struct{}{}
		wg.Add(1)
		recCopy := rec
		e.inFlight.Add(1)
		go func() {
			defer func() {
				e.inFlight.Add(-1)
				<-sem
				wg.Done()
			}()
			if err := e.processOne(ctx, recCopy); err != nil {
				e.totalErrors.Add(1)
				e.lastErrorMu.Lock()
				e.lastError = err.Error()
				e.lastErrorMu.Unlock()
				slog.Error("poll tracking code", "code", recCopy.Code, "error", err.Error())
			}
			e.totalPolled.Add(1)
		}()
	}
	wg.Wait()
}

func (e *Engine) processOne(ctx context.Context, rec *models.SubscriptionRecord) error {
	now := time.Now().UTC()

	if e.rl != nil && e.rateLimitPerMinute > 0 {
		minuteKey := fmt.Sprintf("rl:provider:%s", now.Format("200601021504"))
		allowed, n, err := e.rl.Allow(ctx, minuteKey, e.rateLimitPerMinute, 70*time.Second)
		if err != nil {
			return err
		}
		if !allowed {
			// Слишком много запросов в минуту: подождём немного, чтобы разгрузить источник.
			slog.Warn("rate limit exceeded", "count", n)
			time.Sleep(500 * time.Millisecond)
		}
	}

	snap, err := e.fetcher.Fetch(ctx, rec.Code)
	if err != nil {
		// Упали все провайдеры: запись не трогаем, попробуем на следующем тике.
		return err
	}

	// Сравниваем только канонический enum, не сырой текст: разница в
	// оформлении не должна выглядеть как смена статуса.
	if rec.LastStatus == "" {
		// Первое успешное наблюдение — сид, не переход.
		e.registry.ApplyTransition(snap)
		return nil
	}
	if snap.Status == rec.LastStatus {
		e.registry.RefreshEvents(rec.Code, snap.Events)
		return nil
	}

	slog.Info("status transition",
		"code", rec.Code, "from", rec.LastStatus, "to", snap.Status, "subscribers", len(rec.Subscribers))
	e.totalTransitions.Add(1)

	// Сначала рассылка, потом фиксация в реестре: при падении между ними
	// повтор уведомления возможен, потеря перехода — нет.
	for _, userID := range rec.Subscribers {
		ok := e.notifier.Notify(ctx, userID, notify.Payload{
			UserID:       userID,
			Snapshot:     snap,
			IsTransition: true,
		})
		if ok {
			e.totalNotified.Add(1)
		} else {
			slog.Warn("notify subscriber failed", "code", rec.Code, "user_id", userID)
		}
	}

	if !e.registry.ApplyTransition(snap) {
		slog.Warn("record gone before transition applied", "code", rec.Code)
		return nil
	}

	e.publishTransition(ctx, rec, snap, now)
	return nil
}

// publishTransition шлёт событие в Kafka для внешних потребителей.
// Брокер может быть не готов; делаем короткий retry и не считаем
// неудачу ошибкой цикла.
func (e *Engine) publishTransition(ctx context.Context, rec *models.SubscriptionRecord, snap models.StatusSnapshot, now time.Time) {
	if e.producer == nil {
		return
	}

	msg := messages.StatusChanged{
		Code:           snap.Code,
		PreviousStatus: rec.LastStatus,
		NewStatus:      snap.Status,
		StatusRaw:      snap.StatusRaw,
		IsTerminal:     snap.IsTerminal(),
		Subscribers:    len(rec.Subscribers),
		CheckedAt:      now,
		Events:         snap.Events,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal status.changed", "code", snap.Code, "error", err.Error())
		return
	}

	var pubErr error
	for i := 0; i < 5; i++ {
		if pubErr = e.producer.Publish(ctx, e.topic, []byte(snap.Code), b); pubErr == nil {
			return
		}
		time.Sleep(time.Duration(150*(i+1)) * time.Millisecond)
	}
	slog.Warn("publish status.changed", "code", snap.Code, "error", pubErr.Error())
}
