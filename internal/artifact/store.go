package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Skufu/GlucoRisk/internal/features"
	"github.com/Skufu/GlucoRisk/internal/risk"
)

const (
	kindModel  = "model"
	kindSchema = "schema"

	createTableSQL = `CREATE TABLE IF NOT EXISTS model_artifacts (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT        NOT NULL,
	kind       TEXT        NOT NULL CHECK (kind IN ('model', 'schema')),
	format     TEXT        NOT NULL,
	payload    BYTEA       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	latestSQL = `SELECT format, payload FROM model_artifacts
WHERE name = $1 AND kind = $2
ORDER BY created_at DESC, id DESC
LIMIT 1`

	insertSQL = `INSERT INTO model_artifacts (name, kind, format, payload) VALUES ($1, $2, $3, $4)`
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// Store keeps published artifacts in Postgres, keyed by artifact name.
type Store struct {
	db   DB
	name string
}

func NewStore(db DB, name string) *Store {
	return &Store{db: db, name: name}
}

// Connect opens a pool and verifies it answers within five seconds.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) FetchModel(ctx context.Context) (string, []byte, error) {
	return s.latest(ctx, kindModel)
}

func (s *Store) FetchSchema(ctx context.Context) ([]byte, error) {
	_, payload, err := s.latest(ctx, kindSchema)
	return payload, err
}

func (s *Store) String() string {
	return "postgres:" + s.name
}

func (s *Store) latest(ctx context.Context, kind string) (string, []byte, error) {
	var (
		format  string
		payload []byte
	)
	err := s.db.QueryRow(ctx, latestSQL, s.name, kind).Scan(&format, &payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, fmt.Errorf("no %s artifact named %q", kind, s.name)
	}
	if err != nil {
		return "", nil, fmt.Errorf("query %s artifact: %w", kind, err)
	}
	return format, payload, nil
}

// Publish validates a model/schema pair and stores both as the newest
// version of the store's name.
func (s *Store) Publish(ctx context.Context, modelFormat string, model, schema []byte) error {
	m, err := risk.DecodeModel(modelFormat, model)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	sc, err := features.DecodeSchema(schema)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	if _, err := risk.NewAdapter(m, sc); err != nil {
		return fmt.Errorf("model and schema disagree: %w", err)
	}

	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
		if _, err := tx.Exec(ctx, insertSQL, s.name, kindModel, modelFormat, model); err != nil {
			return fmt.Errorf("insert model: %w", err)
		}
		if _, err := tx.Exec(ctx, insertSQL, s.name, kindSchema, "json", schema); err != nil {
			return fmt.Errorf("insert schema: %w", err)
		}
		return nil
	})
}
