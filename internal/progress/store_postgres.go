package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

const progressSchema = `
CREATE TABLE IF NOT EXISTS mastery_records (
	learner_id        BIGINT NOT NULL,
	topic_id          BIGINT NOT NULL,
	knowledge         DOUBLE PRECISION NOT NULL,
	slip              DOUBLE PRECISION NOT NULL,
	guess             DOUBLE PRECISION NOT NULL,
	learn             DOUBLE PRECISION NOT NULL,
	total_attempts    INT NOT NULL DEFAULT 0,
	correct_attempts  INT NOT NULL DEFAULT 0,
	status            TEXT NOT NULL,
	next_review_at    TIMESTAMPTZ,
	last_accessed_at  TIMESTAMPTZ NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (learner_id, topic_id)
);

CREATE INDEX IF NOT EXISTS idx_mastery_due
	ON mastery_records (learner_id, next_review_at);
`

// PostgresStore is a PostgreSQL-backed mastery store. Update runs the whole
// get-or-create-and-mutate cycle inside one transaction with a row lock, so
// overlapping submissions for the same (learner, topic) serialize instead of
// racing last-writer-wins.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore creates the mastery store and ensures its schema exists.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	if _, err := pool.Exec(ctx, progressSchema); err != nil {
		return nil, fmt.Errorf("ensure progress schema: %w", err)
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

// SetNow overrides the clock used to stamp lazily created records.
func (s *PostgresStore) SetNow(now func() time.Time) {
	s.now = now
}

func (s *PostgresStore) Update(ctx context.Context, learnerID, topicID int64, mutate func(*MasteryRecord) error) (MasteryRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return MasteryRecord{}, fmt.Errorf("begin mastery update: %w", err)
	}
	defer tx.Rollback(ctx)

	// Upsert-then-lock keeps create-on-first-use free of the
	// read-then-insert race.
	seed := NewRecord(learnerID, topicID, s.now())
	_, err = tx.Exec(ctx,
		`INSERT INTO mastery_records
		 (learner_id, topic_id, knowledge, slip, guess, learn, status, last_accessed_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (learner_id, topic_id) DO NOTHING`,
		learnerID, topicID,
		seed.Knowledge, seed.Slip, seed.Guess, seed.Learn,
		string(seed.Status), seed.LastAccessedAt, seed.CreatedAt,
	)
	if err != nil {
		return MasteryRecord{}, fmt.Errorf("seed mastery record: %w", err)
	}

	rec := MasteryRecord{LearnerID: learnerID, TopicID: topicID}
	var status string
	err = tx.QueryRow(ctx,
		`SELECT knowledge, slip, guess, learn, total_attempts, correct_attempts,
		        status, next_review_at, last_accessed_at, created_at
		 FROM mastery_records
		 WHERE learner_id = $1 AND topic_id = $2
		 FOR UPDATE`,
		learnerID, topicID,
	).Scan(
		&rec.Knowledge, &rec.Slip, &rec.Guess, &rec.Learn,
		&rec.TotalAttempts, &rec.CorrectAttempts,
		&status, &rec.NextReviewAt, &rec.LastAccessedAt, &rec.CreatedAt,
	)
	if err != nil {
		return MasteryRecord{}, fmt.Errorf("lock mastery record: %w", err)
	}
	rec.Status = Status(status)

	if err := mutate(&rec); err != nil {
		return MasteryRecord{}, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE mastery_records
		 SET knowledge = $3, slip = $4, guess = $5, learn = $6,
		     total_attempts = $7, correct_attempts = $8,
		     status = $9, next_review_at = $10, last_accessed_at = $11
		 WHERE learner_id = $1 AND topic_id = $2`,
		learnerID, topicID,
		rec.Knowledge, rec.Slip, rec.Guess, rec.Learn,
		rec.TotalAttempts, rec.CorrectAttempts,
		string(rec.Status), rec.NextReviewAt, rec.LastAccessedAt,
	)
	if err != nil {
		return MasteryRecord{}, fmt.Errorf("write mastery record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return MasteryRecord{}, fmt.Errorf("commit mastery update: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ForLearner(ctx context.Context, learnerID int64) ([]MasteryRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT topic_id, knowledge, slip, guess, learn, total_attempts, correct_attempts,
		        status, next_review_at, last_accessed_at, created_at
		 FROM mastery_records
		 WHERE learner_id = $1
		 ORDER BY topic_id ASC`,
		learnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query mastery records: %w", err)
	}
	defer rows.Close()

	var out []MasteryRecord
	for rows.Next() {
		rec := MasteryRecord{LearnerID: learnerID}
		var status string
		if err := rows.Scan(
			&rec.TopicID, &rec.Knowledge, &rec.Slip, &rec.Guess, &rec.Learn,
			&rec.TotalAttempts, &rec.CorrectAttempts,
			&status, &rec.NextReviewAt, &rec.LastAccessedAt, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan mastery record: %w", err)
		}
		rec.Status = Status(status)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mastery records: %w", err)
	}

	return out, nil
}
