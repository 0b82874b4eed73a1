package messages

import (
	"time"

	"github.com/BearBump/ShipWatch/internal/models"
)

// StatusChanged публикуется в Kafka на каждый переход канонического статуса.
// Это событие для внешних потребителей; доставка уведомлений подписчикам
// от него не зависит.
type StatusChanged struct {
	Code string `json:"code"`

	PreviousStatus string `json:"previous_status,omitempty"`
	NewStatus      string `json:"new_status"`
	StatusRaw      string `json:"status_raw,omitempty"`
	IsTerminal     bool   `json:"is_terminal"`

	Subscribers int       `json:"subscribers"`
	CheckedAt   time.Time `json:"checked_at"`

	Events []models.StatusEvent `json:"events,omitempty"`
}
