package pgstore

import (
	"context"
	"encoding/json"

	"github.com/BearBump/ShipWatch/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Store — вариант хранилища реестра в Postgres. Контракт тот же, что у
// файлового стора: Load всего реестра на старте, Save после мутаций.
type Store struct {
	db *pgxpool.Pool
}

func New(connString string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "parse pg config")
	}

	db, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect pg")
	}

	s := &Store{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
CREATE TABLE IF NOT EXISTS subscriptions (
  code TEXT PRIMARY KEY,
  subscribers JSONB NOT NULL,
  last_status TEXT NOT NULL DEFAULT '',
  last_events JSONB NULL,
  is_terminal BOOLEAN NOT NULL DEFAULT FALSE,
  created_at TIMESTAMPTZ NOT NULL
)`)
	return errors.Wrap(err, "init schema")
}

func (s *Store) Load() (map[string]*models.SubscriptionRecord, error) {
	ctx := context.Background()

	rows, err := s.db.Query(ctx, `
SELECT code, subscribers, last_status, last_events, is_terminal, created_at
FROM subscriptions
`)
	if err != nil {
		return nil, errors.Wrap(err, "select subscriptions")
	}
	defer rows.Close()

	out := map[string]*models.SubscriptionRecord{}
	for rows.Next() {
		var r models.SubscriptionRecord
		var subscribers []byte
		var lastEvents []byte
		if err := rows.Scan(&r.Code, &subscribers, &r.LastStatus, &lastEvents, &r.IsTerminal, &r.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan subscription")
		}
		if err := json.Unmarshal(subscribers, &r.Subscribers); err != nil {
			return nil, errors.Wrap(err, "unmarshal subscribers")
		}
		if len(lastEvents) > 0 {
			if err := json.Unmarshal(lastEvents, &r.LastEvents); err != nil {
				return nil, errors.Wrap(err, "unmarshal events")
			}
		}
		out[r.Code] = &r
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Store) Save(records map[string]*models.SubscriptionRecord) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	codes := make([]string, 0, len(records))
	for code, r := range records {
		codes = append(codes, code)

		subscribers, err := json.Marshal(r.Subscribers)
		if err != nil {
			return errors.Wrap(err, "marshal subscribers")
		}
		var lastEvents []byte
		if len(r.LastEvents) > 0 {
			lastEvents, err = json.Marshal(r.LastEvents)
			if err != nil {
				return errors.Wrap(err, "marshal events")
			}
		}

		_, err = tx.Exec(ctx, `
INSERT INTO subscriptions (code, subscribers, last_status, last_events, is_terminal, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (code)
DO UPDATE SET
  subscribers = EXCLUDED.subscribers,
  last_status = EXCLUDED.last_status,
  last_events = EXCLUDED.last_events,
  is_terminal = EXCLUDED.is_terminal
`, r.Code, subscribers, r.LastStatus, lastEvents, r.IsTerminal, r.CreatedAt.UTC())
		if err != nil {
			return errors.Wrap(err, "upsert subscription")
		}
	}

	// Подписки, удалённые из реестра, убираем и из таблицы.
	if _, err := tx.Exec(ctx, `DELETE FROM subscriptions WHERE NOT (code = ANY($1))`, codes); err != nil {
		return errors.Wrap(err, "prune subscriptions")
	}

	return errors.Wrap(tx.Commit(ctx), "commit tx")
}
