package storage

import "github.com/BearBump/ShipWatch/internal/models"

// Store — долговременное хранилище реестра подписок целиком.
// Save вызывается после каждой мутации; Load — один раз на старте.
type Store interface {
	Load() (map[string]*models.SubscriptionRecord, error)
	Save(records map[string]*models.SubscriptionRecord) error
}
