package notify

import (
	"context"

	"github.com/BearBump/ShipWatch/internal/models"
)

// Payload — то, что уходит одному подписчику при доставке уведомления.
type Payload struct {
	UserID       string                `json:"user_id"`
	Snapshot     models.StatusSnapshot `json:"snapshot"`
	IsTransition bool                  `json:"is_transition"`
}

// Notifier доставляет уведомление одному пользователю. Best-effort:
// false означает "не доставлено", движок это только логирует.
type Notifier interface {
	Notify(ctx context.Context, userID string, payload Payload) bool
}
