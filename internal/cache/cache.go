package cache

import (
	"context"
	"time"
)

// BytesCache — кэш "как есть" для сериализованных снапшотов статуса.
// Кэш не обязан быть всегда доступен: промах и ошибка равнозначны.
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
