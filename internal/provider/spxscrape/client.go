package spxscrape

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BearBump/ShipWatch/internal/models"
	"github.com/BearBump/ShipWatch/internal/status"
	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

// Client — запасной источник: разбор страницы трекинга перевозчика напрямую.
// Используется, когда основной API недоступен.
type Client struct {
	baseURL    string
	classifier status.Classifier
	httpc      *http.Client
}

func New(baseURL string, cls status.Classifier) *Client {
	if baseURL == "" {
		baseURL = "https://spx.com.br/track"
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

func (c *Client) Name() string { return "spx-scrape" }

func (c *Client) Fetch(ctx context.Context, code string) (models.StatusSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+code, nil)
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
		return models.StatusSnapshot{}, fmt.Errorf("tracking page http %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return models.StatusSnapshot{}, errors.Wrap(err, "parse html")
	}

	now := time.Now().UTC()
	var events []models.StatusEvent
	doc.Find(".nss-comp-tracking-item").Each(func(_ int, sel *goquery.Selection) {
		msg := strings.TrimSpace(sel.Find(".message").Text())
		raw := strings.TrimSpace(sel.Find(".time").Text())
		events = append(events, models.StatusEvent{
			Time:        parseEventTime(raw, now),
			Description: msg,
		})
	})

	if len(events) == 0 {
		return models.StatusSnapshot{}, fmt.Errorf("no tracking events on page")
	}

	// На странице нет отдельного поля статуса: классифицируем по самому
	// свежему событию (первому в списке).
	latest := events[0].Description
	return models.StatusSnapshot{
		Code:      code,
		Status:    c.classifier.Classify(latest),
		StatusRaw: latest,
		Events:    events,
		FetchedAt: now,
	}, nil
}

// parseEventTime разбирает формат страницы вида "13 Sep 2025\n17:41:16".
func parseEventTime(raw string, fallback time.Time) time.Time {
	raw = strings.ReplaceAll(raw, "\n", " ")
	raw = strings.Join(strings.Fields(raw), " ")
	if t, err := time.Parse("2 Jan 2006 15:04:05", raw); err == nil {
		return t.UTC()
	}
	return fallback
}
