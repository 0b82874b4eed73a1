package shopeeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/BearBump/ShipWatch/internal/models"
	"github.com/BearBump/ShipWatch/internal/status"
	"github.com/pkg/errors"
)

// Client — основной источник: JSON API трекера (vercel-прокси над Shopee).
type Client struct {
	baseURL    string
	classifier status.Classifier
	httpc      *http.Client
}

func New(baseURL string, cls status.Classifier) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:9000"
	}
	if cls == nil {
		cls = status.Default()
	}
	return &Client{
		baseURL:    baseURL,
		classifier: cls,
		httpc: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *Client) Name() string { return "shopee-api" }

type respEvent struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	Description string `json:"description"`
	Timestamp   int64  `json:"timestamp,omitempty"`
}

type respBody struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	Tracking struct {
		Status string      `json:"status"`
		Events []respEvent `json:"events"`
	} `json:"tracking"`
}

func (c *Client) Fetch(ctx context.Context, code string) (models.StatusSnapshot, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return models.StatusSnapshot{}, errors.Wrap(err, "parse base url")
	}
	u.Path = u.Path + "/" + url.PathEscape(code)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.StatusSnapshot{}, errors.Wrap(err, "new request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return models.StatusSnapshot{}, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return models.StatusSnapshot{}, fmt.Errorf("tracker api http %d", resp.StatusCode)
	}

	var rb respBody
	if err := json.NewDecoder(resp.Body).Decode(&rb); err != nil {
		return models.StatusSnapshot{}, errors.Wrap(err, "decode")
	}
	if !rb.Success {
		if rb.Error == "" {
			rb.Error = "tracker api reported failure"
		}
		return models.StatusSnapshot{}, fmt.Errorf("tracker api: %s", rb.Error)
	}

	now := time.Now().UTC()
	events := make([]models.StatusEvent, 0, len(rb.Tracking.Events))
	for _, e := range rb.Tracking.Events {
		evTime := now
		if e.Timestamp > 0 {
			evTime = time.UnixMilli(e.Timestamp).UTC()
		} else if t, perr := time.Parse("2006-01-02 15:04:05", e.Date+" "+e.Time); perr == nil {
			evTime = t.UTC()
		}
		events = append(events, models.StatusEvent{
			Time:        evTime,
			Description: e.Description,
		})
	}

	return models.StatusSnapshot{
		Code:      code,
		Status:    c.classifier.Classify(rb.Tracking.Status),
		StatusRaw: rb.Tracking.Status,
		Events:    events,
		FetchedAt: now,
	}, nil
}
