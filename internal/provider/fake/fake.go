package fake

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/BearBump/ShipWatch/internal/models"
)

// Client — детерминированная заглушка источника для локального запуска.
// Статус считается по хэшу кода: часть посылок сразу DELIVERED.
type Client struct{}

func New() *Client { return &Client{} }

func (f *Client) Name() string { return "fake" }

func (f *Client) Fetch(ctx context.Context, code string) (models.StatusSnapshot, error) {
	now := time.Now().UTC()

	h := fnv.New32a()
	_, _ = h.Write([]byte(code))
	v := h.Sum32()

	// 20% посылок считаем доставленными.
	st := models.StatusInTransit
	raw := "in transit"
	if v%5 == 0 {
		st = models.StatusDelivered
		raw = "delivered"
	}

	return models.StatusSnapshot{
		Code:      code,
		Status:    st,
		StatusRaw: raw,
		Events: []models.StatusEvent{
			{Time: now, Description: "fake tracking update"},
		},
		FetchedAt: now,
	}, nil
}
