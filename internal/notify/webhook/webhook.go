package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/BearBump/ShipWatch/internal/notify"
)

// Notifier доставляет уведомления POST-ом на настроенный webhook
// (бот-гейтвей, который знает, как достучаться до пользователя в чате).
type Notifier struct {
	url   string
	httpc *http.Client
}

func New(url string) *Notifier {
	return &Notifier{
		url: url,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (n *Notifier) Notify(ctx context.Context, userID string, payload notify.Payload) bool {
	b, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal notification", "user_id", userID, "error", err.Error())
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(b))
	if err != nil {
		slog.Error("build notification request", "user_id", userID, "error", err.Error())
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpc.Do(req)
	if err != nil {
		slog.Warn("deliver notification", "user_id", userID, "error", err.Error())
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		slog.Warn("deliver notification", "user_id", userID, "status", resp.StatusCode)
		return false
	}
	return true
}
