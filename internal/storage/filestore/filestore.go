package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/BearBump/ShipWatch/internal/models"
	"github.com/pkg/errors"
)

// Store хранит реестр одним JSON-документом.
// Запись идёт во временный файл с последующим rename, чтобы падение
// посреди записи не трогало уже сохранённое состояние.
type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Load() (map[string]*models.SubscriptionRecord, error) {
	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]*models.SubscriptionRecord{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read store file")
	}

	out := map[string]*models.SubscriptionRecord{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, errors.Wrap(err, "unmarshal store file")
	}
	return out, nil
}

func (s *Store) Save(records map[string]*models.SubscriptionRecord) error {
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal records")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "mkdir store dir")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "close temp file")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "replace store file")
	}
	return nil
}
