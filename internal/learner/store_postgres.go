package learner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

const learnerSchema = `
CREATE TABLE IF NOT EXISTS learners (
	id             BIGSERIAL PRIMARY KEY,
	username       TEXT NOT NULL UNIQUE,
	display_name   TEXT NOT NULL DEFAULT '',
	password_hash  TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// PostgresStore is a PostgreSQL-backed learner registry.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates the learner store and ensures its schema exists.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	if _, err := pool.Exec(ctx, learnerSchema); err != nil {
		return nil, fmt.Errorf("ensure learner schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) ByID(ctx context.Context, id int64) (Learner, error) {
	return s.get(ctx,
		`SELECT id, username, display_name, password_hash, created_at
		 FROM learners WHERE id = $1`,
		id,
	)
}

func (s *PostgresStore) ByUsername(ctx context.Context, username string) (Learner, error) {
	return s.get(ctx,
		`SELECT id, username, display_name, password_hash, created_at
		 FROM learners WHERE username = $1`,
		username,
	)
}

func (s *PostgresStore) Create(ctx context.Context, username, displayName, password string) (Learner, error) {
	if username == "" {
		return Learner{}, fmt.Errorf("username is required")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return Learner{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	l := Learner{Username: username, DisplayName: displayName, PasswordHash: hash}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO learners (username, display_name, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		username, displayName, hash,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return Learner{}, fmt.Errorf("create learner: %w", err)
	}
	return l, nil
}

func (s *PostgresStore) get(ctx context.Context, query string, arg any) (Learner, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var l Learner
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&l.ID, &l.Username, &l.DisplayName, &l.PasswordHash, &l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Learner{}, ErrNotFound
		}
		return Learner{}, fmt.Errorf("get learner: %w", err)
	}
	return l, nil
}
