package subscriptions_api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BearBump/ShipWatch/internal/cache"
	"github.com/BearBump/ShipWatch/internal/models"
	"github.com/BearBump/ShipWatch/internal/registry"
	"github.com/go-chi/chi/v5"
)

// Fetcher — живой запрос статуса для GET /track (через цепочку провайдеров).
type Fetcher interface {
	Fetch(ctx context.Context, code string) (models.StatusSnapshot, error)
}

// API — входной HTTP-адаптер над реестром. Логики переходов здесь нет,
// только разбор запросов и сериализация ответов.
type API struct {
	registry *registry.Registry
	fetcher  Fetcher

	cache    cache.BytesCache
	cacheTTL time.Duration
}

func New(reg *registry.Registry, fetcher Fetcher, c cache.BytesCache, cacheTTL time.Duration) *API {
	return &API{registry: reg, fetcher: fetcher, cache: c, cacheTTL: cacheTTL}
}

func (a *API) Routes(r chi.Router) {
	r.Post("/subscriptions", a.subscribe)
	r.Delete("/subscriptions/{code}/users/{userID}", a.unsubscribe)
	r.Get("/subscriptions/{code}", a.getSubscription)
	r.Get("/users/{userID}/subscriptions", a.listForUser)
	r.Get("/track/{code}", a.track)
}

type subscribeRequest struct {
	Code   string `json:"code"`
	UserID string `json:"user_id"`
}

type subscribeResponse struct {
	Record            *models.SubscriptionRecord `json:"record"`
	AlreadySubscribed bool                       `json:"already_subscribed"`
}

func (a *API) subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	res, err := a.registry.Subscribe(r.Context(), req.Code, req.UserID)
	if errors.Is(err, models.ErrInvalidCode) {
		writeError(w, http.StatusBadRequest, "invalid tracking code: length must be 10..20")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, subscribeResponse{
		Record:            res.Record,
		AlreadySubscribed: res.AlreadySubscribed,
	})
}

func (a *API) unsubscribe(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	userID := chi.URLParam(r, "userID")

	found := a.registry.Unsubscribe(code, userID)
	writeJSON(w, http.StatusOK, map[string]bool{"found": found})
}

func (a *API) getSubscription(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	rec, err := a.registry.GetSubscription(code)
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "subscription not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) listForUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	writeJSON(w, http.StatusOK, a.registry.ListForUser(userID))
}

// track отдаёт живой статус без подписки. Ответ кэшируется, чтобы частые
// GET не превращались в шквал запросов к провайдерам.
func (a *API) track(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if !models.ValidTrackingCode(code) {
		writeError(w, http.StatusBadRequest, "invalid tracking code: length must be 10..20")
		return
	}

	key := "track:" + code + ":current"
	if a.cache != nil && a.cacheTTL > 0 {
		if b, ok, err := a.cache.Get(r.Context(), key); err == nil && ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(b)
			return
		}
	}

	snap, err := a.fetcher.Fetch(r.Context(), code)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if a.cache != nil && a.cacheTTL > 0 {
		if b, err := json.Marshal(snap); err == nil {
			if err := a.cache.Set(r.Context(), key, b, a.cacheTTL); err != nil {
				slog.Warn("cache snapshot", "code", code, "error", err.Error())
			}
		}
	}
	writeJSON(w, http.StatusOK, snap)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
