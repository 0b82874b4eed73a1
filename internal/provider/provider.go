package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/ShipWatch/internal/models"
)

// Provider — один источник статуса посылки.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, code string) (models.StatusSnapshot, error)
}

// FetchError — типизированная ошибка одной попытки Fetch.
type FetchError struct {
	Provider string
	Code     string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: fetch %s: %v", e.Provider, e.Code, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Chain опрашивает провайдеров по рангу: первый успешный ответ
// останавливает цепочку. Повторных попыток внутри одного цикла нет —
// если упали все, код будет опрошен заново на следующем тике.
type Chain struct {
	providers []Provider
	timeout   time.Duration
}

const defaultFetchTimeout = 15 * time.Second

func NewChain(timeout time.Duration, providers ...Provider) *Chain {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Chain{providers: providers, timeout: timeout}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Fetch(ctx context.Context, code string) (models.StatusSnapshot, error) {
	var lastErr error
	for _, p := range c.providers {
		cctx, cancel := context.WithTimeout(ctx, c.timeout)
		snap, err := p.Fetch(cctx, code)
		cancel()
		if err == nil {
			return snap, nil
		}
		lastErr = &FetchError{Provider: p.Name(), Code: code, Err: err}
		slog.Warn("provider fetch failed", "provider", p.Name(), "code", code, "error", err.Error())
	}
	if lastErr == nil {
		lastErr = &FetchError{Provider: "chain", Code: code, Err: fmt.Errorf("no providers configured")}
	}
	return models.StatusSnapshot{}, lastErr
}
