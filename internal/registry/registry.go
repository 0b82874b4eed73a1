package registry

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/BearBump/ShipWatch/internal/models"
	"github.com/BearBump/ShipWatch/internal/storage"
	"github.com/pkg/errors"
)

// Seeder — источник первого снапшота для нового кода (обычно цепочка
// провайдеров). Ошибка сида не мешает подписке: статус заполнит опрос.
type Seeder interface {
	Fetch(ctx context.Context, code string) (models.StatusSnapshot, error)
}

// Registry — единственный владелец карты подписок. Все чтения и записи
// идут под одним мьютексом; сетевые вызовы и запись в Store — вне его.
type Registry struct {
	mu      sync.Mutex
	records map[string]*models.SubscriptionRecord

	store  storage.Store
	seeder Seeder
}

func New(store storage.Store, seeder Seeder) (*Registry, error) {
	records, err := store.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load subscriptions")
	}
	if records == nil {
		records = map[string]*models.SubscriptionRecord{}
	}
	return &Registry{
		records: records,
		store:   store,
		seeder:  seeder,
	}, nil
}

type SubscribeResult struct {
	Record            *models.SubscriptionRecord
	AlreadySubscribed bool
}

func (r *Registry) Subscribe(ctx context.Context, code, userID string) (SubscribeResult, error) {
	if !models.ValidTrackingCode(code) {
		return SubscribeResult{}, models.ErrInvalidCode
	}

	r.mu.Lock()
	if rec, ok := r.records[code]; ok {
		if rec.HasSubscriber(userID) {
			out := rec.Clone()
			r.mu.Unlock()
			return SubscribeResult{Record: out, AlreadySubscribed: true}, nil
		}
		rec.Subscribers = append(rec.Subscribers, userID)
		out := rec.Clone()
		snapshot := r.cloneAllLocked()
		r.mu.Unlock()

		r.persist(snapshot)
		return SubscribeResult{Record: out}, nil
	}
	r.mu.Unlock()

	// Новый код: сидируем статус до подтверждения подписки.
	// Сетевой вызов — строго вне блокировки.
	var seed models.StatusSnapshot
	if r.seeder != nil {
		snap, err := r.seeder.Fetch(ctx, code)
		if err != nil {
			slog.Warn("seed fetch failed", "code", code, "error", err.Error())
		} else {
			seed = snap
		}
	}

	r.mu.Lock()
	rec, ok := r.records[code]
	if ok {
		// Кто-то успел создать запись, пока мы ходили за сидом.
		if !rec.HasSubscriber(userID) {
			rec.Subscribers = append(rec.Subscribers, userID)
		}
	} else {
		rec = &models.SubscriptionRecord{
			Code:        code,
			Subscribers: []string{userID},
			LastStatus:  seed.Status,
			LastEvents:  seed.Events,
			IsTerminal:  seed.IsTerminal(),
			CreatedAt:   time.Now().UTC(),
		}
		r.records[code] = rec
	}
	out := rec.Clone()
	snapshot := r.cloneAllLocked()
	r.mu.Unlock()

	r.persist(snapshot)
	return SubscribeResult{Record: out}, nil
}

// Unsubscribe возвращает false, если кода или подписки не было;
// в этом случае ничего не сохраняется.
func (r *Registry) Unsubscribe(code, userID string) bool {
	r.mu.Lock()
	rec, ok := r.records[code]
	if !ok || !rec.HasSubscriber(userID) {
		r.mu.Unlock()
		return false
	}

	keep := rec.Subscribers[:0]
	for _, id := range rec.Subscribers {
		if id != userID {
			keep = append(keep, id)
		}
	}
	rec.Subscribers = keep
	if len(rec.Subscribers) == 0 {
		delete(r.records, code)
	}
	snapshot := r.cloneAllLocked()
	r.mu.Unlock()

	r.persist(snapshot)
	return true
}

func (r *Registry) GetSubscription(code string) (*models.SubscriptionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[code]
	if !ok {
		return nil, models.ErrNotFound
	}
	return rec.Clone(), nil
}

func (r *Registry) ListForUser(userID string) []models.UserSubscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.UserSubscription{}
	for _, rec := range r.records {
		if rec.HasSubscriber(userID) {
			out = append(out, models.UserSubscription{
				Code:       rec.Code,
				LastStatus: rec.LastStatus,
				CreatedAt:  rec.CreatedAt,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// ActiveSnapshot отдаёт копии записей, подлежащих опросу: не терминальные
// и с хотя бы одним подписчиком. Движок работает с копиями и не видит
// конкурентных мутаций реестра.
func (r *Registry) ActiveSnapshot() []*models.SubscriptionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.SubscriptionRecord, 0, len(r.records))
	for _, rec := range r.records {
		if rec.IsTerminal || len(rec.Subscribers) == 0 {
			continue
		}
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// ApplyTransition атомарно записывает результат перехода и сохраняет
// реестр. Возвращает false, если запись исчезла, пока шёл опрос.
// isTerminal монотонен: однажды true назад не сбрасывается.
func (r *Registry) ApplyTransition(snap models.StatusSnapshot) bool {
	r.mu.Lock()
	rec, ok := r.records[snap.Code]
	if !ok {
		r.mu.Unlock()
		return false
	}
	rec.LastStatus = snap.Status
	rec.LastEvents = snap.Events
	rec.IsTerminal = rec.IsTerminal || snap.IsTerminal()
	snapshot := r.cloneAllLocked()
	r.mu.Unlock()

	r.persist(snapshot)
	return true
}

// RefreshEvents обновляет историю событий без смены статуса.
// Только память: на диск такие наблюдения не пишем.
func (r *Registry) RefreshEvents(code string, events []models.StatusEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.records[code]; ok {
		rec.LastEvents = events
	}
}

func (r *Registry) cloneAllLocked() map[string]*models.SubscriptionRecord {
	out := make(map[string]*models.SubscriptionRecord, len(r.records))
	for code, rec := range r.records {
		out[code] = rec.Clone()
	}
	return out
}

// persist пишет снапшот реестра в Store. Ошибка записи не валит процесс:
// память остаётся авторитетной до следующего успешного сохранения,
// но в лог это попадает как ошибка.
func (r *Registry) persist(snapshot map[string]*models.SubscriptionRecord) {
	if err := r.store.Save(snapshot); err != nil {
		slog.Error("persist subscriptions", "records", len(snapshot), "error", err.Error())
	}
}
