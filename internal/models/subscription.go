package models

import (
	"errors"
	"time"
)

// Нормализованные статусы (можно расширять).
const (
	StatusProcessing     = "PROCESSING"
	StatusPosted         = "POSTED"
	StatusInTransit      = "IN_TRANSIT"
	StatusOutForDelivery = "OUT_FOR_DELIVERY"
	StatusDelivered      = "DELIVERED"
	StatusUnknown        = "UNKNOWN"
)

var (
	ErrInvalidCode = errors.New("invalid tracking code")
	ErrNotFound    = errors.New("subscription not found")
)

const (
	TrackingCodeMinLen = 10
	TrackingCodeMaxLen = 20
)

// ValidTrackingCode проверяет только длину: сам формат кода для нас непрозрачен.
func ValidTrackingCode(code string) bool {
	return len(code) >= TrackingCodeMinLen && len(code) <= TrackingCodeMaxLen
}

type StatusEvent struct {
	Time        time.Time `json:"time"`
	Description string    `json:"description"`
}

// StatusSnapshot — одно наблюдение статуса от провайдера.
// Events упорядочены от самого свежего к старому и движком не меняются.
type StatusSnapshot struct {
	Code      string        `json:"code"`
	Status    string        `json:"status"`
	StatusRaw string        `json:"status_raw"`
	Events    []StatusEvent `json:"events,omitempty"`
	FetchedAt time.Time     `json:"fetched_at"`
}

func (s StatusSnapshot) IsTerminal() bool {
	return s.Status == StatusDelivered
}

// SubscriptionRecord — единственный владелец записи — реестр.
// LastStatus пустой, пока не было ни одного успешного опроса.
type SubscriptionRecord struct {
	Code        string        `json:"code"`
	Subscribers []string      `json:"subscribers"`
	LastStatus  string        `json:"last_status,omitempty"`
	LastEvents  []StatusEvent `json:"last_events,omitempty"`
	IsTerminal  bool          `json:"is_terminal"`
	CreatedAt   time.Time     `json:"created_at"`
}

func (r *SubscriptionRecord) HasSubscriber(userID string) bool {
	for _, id := range r.Subscribers {
		if id == userID {
			return true
		}
	}
	return false
}

// Clone возвращает глубокую копию, чтобы снапшот реестра можно было
// читать вне блокировки.
func (r *SubscriptionRecord) Clone() *SubscriptionRecord {
	cp := *r
	cp.Subscribers = append([]string(nil), r.Subscribers...)
	cp.LastEvents = append([]StatusEvent(nil), r.LastEvents...)
	return &cp
}

// UserSubscription — строка выдачи ListForUser.
type UserSubscription struct {
	Code       string    `json:"code"`
	LastStatus string    `json:"last_status,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
