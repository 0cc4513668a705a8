package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

const catalogSchema = `
CREATE TABLE IF NOT EXISTS topics (
	id          BIGINT PRIMARY KEY,
	name        TEXT NOT NULL,
	content     TEXT NOT NULL DEFAULT '',
	difficulty  TEXT NOT NULL DEFAULT 'beginner',
	order_hint  INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS projects (
	id        BIGSERIAL PRIMARY KEY,
	topic_id  BIGINT NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
	title     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS quiz_questions (
	id           BIGINT PRIMARY KEY,
	topic_id     BIGINT NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
	prompt       TEXT NOT NULL,
	explanation  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS quiz_options (
	question_id  BIGINT NOT NULL REFERENCES quiz_questions(id) ON DELETE CASCADE,
	position     INT NOT NULL,
	option_key   TEXT NOT NULL,
	label        TEXT NOT NULL,
	is_correct   BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (question_id, option_key)
);

CREATE INDEX IF NOT EXISTS idx_quiz_questions_topic ON quiz_questions (topic_id);
`

// PostgresStore is a PostgreSQL-backed catalog.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates the catalog store and ensures its schema exists.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	if _, err := pool.Exec(ctx, catalogSchema); err != nil {
		return nil, fmt.Errorf("ensure catalog schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Topic(ctx context.Context, id int64) (Topic, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var t Topic
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, content, difficulty, order_hint
		 FROM topics
		 WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Name, &t.Content, &t.Difficulty, &t.OrderHint)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Topic{}, ErrTopicNotFound
		}
		return Topic{}, fmt.Errorf("get topic: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, title FROM projects WHERE topic_id = $1 ORDER BY id ASC`,
		id,
	)
	if err != nil {
		return Topic{}, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Title); err != nil {
			return Topic{}, fmt.Errorf("scan project: %w", err)
		}
		t.Projects = append(t.Projects, p)
	}
	if err := rows.Err(); err != nil {
		return Topic{}, fmt.Errorf("iterate projects: %w", err)
	}

	return t, nil
}

func (s *PostgresStore) AllTopics(ctx context.Context) ([]Topic, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT t.id, t.name, t.content, t.difficulty, t.order_hint,
		        COALESCE(p.id, 0), COALESCE(p.title, '')
		 FROM topics t
		 LEFT JOIN projects p ON p.topic_id = t.id
		 ORDER BY t.id ASC, p.id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	var topics []Topic
	for rows.Next() {
		var t Topic
		var p Project
		if err := rows.Scan(&t.ID, &t.Name, &t.Content, &t.Difficulty, &t.OrderHint, &p.ID, &p.Title); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		if n := len(topics); n > 0 && topics[n-1].ID == t.ID {
			if p.Title != "" {
				topics[n-1].Projects = append(topics[n-1].Projects, p)
			}
			continue
		}
		if p.Title != "" {
			t.Projects = append(t.Projects, p)
		}
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topics: %w", err)
	}

	return topics, nil
}

func (s *PostgresStore) Questions(ctx context.Context, topicID int64) ([]QuizQuestion, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT q.id, q.topic_id, q.prompt, q.explanation,
		        o.option_key, o.label, o.is_correct
		 FROM quiz_questions q
		 JOIN quiz_options o ON o.question_id = q.id
		 WHERE q.topic_id = $1
		 ORDER BY q.id ASC, o.position ASC`,
		topicID,
	)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var questions []QuizQuestion
	for rows.Next() {
		var q QuizQuestion
		var opt QuizOption
		if err := rows.Scan(&q.ID, &q.TopicID, &q.Prompt, &q.Explanation, &opt.Key, &opt.Label, &opt.Correct); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if n := len(questions); n > 0 && questions[n-1].ID == q.ID {
			questions[n-1].Options = append(questions[n-1].Options, opt)
			continue
		}
		q.Options = append(q.Options, opt)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}

	return questions, nil
}

// Empty reports whether the catalog has no topics, used to decide whether
// seed files should be imported at startup.
func (s *PostgresStore) Empty(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var count int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM topics`).Scan(&count); err != nil {
		return false, fmt.Errorf("count topics: %w", err)
	}
	return count == 0, nil
}

// ImportTopic writes one topic and its question bank in a single transaction,
// replacing any previous content for the same topic id.
func (s *PostgresStore) ImportTopic(ctx context.Context, topic Topic, questions []QuizQuestion) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO topics (id, name, content, difficulty, order_hint)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name, content = EXCLUDED.content,
		     difficulty = EXCLUDED.difficulty, order_hint = EXCLUDED.order_hint`,
		topic.ID, topic.Name, topic.Content, topic.Difficulty, topic.OrderHint,
	)
	if err != nil {
		return fmt.Errorf("upsert topic: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM projects WHERE topic_id = $1`, topic.ID); err != nil {
		return fmt.Errorf("clear projects: %w", err)
	}
	for _, p := range topic.Projects {
		if _, err := tx.Exec(ctx,
			`INSERT INTO projects (topic_id, title) VALUES ($1, $2)`,
			topic.ID, p.Title,
		); err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM quiz_questions WHERE topic_id = $1`, topic.ID); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}
	for _, q := range questions {
		if _, err := tx.Exec(ctx,
			`INSERT INTO quiz_questions (id, topic_id, prompt, explanation)
			 VALUES ($1, $2, $3, $4)`,
			q.ID, topic.ID, q.Prompt, q.Explanation,
		); err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		for pos, opt := range q.Options {
			if _, err := tx.Exec(ctx,
				`INSERT INTO quiz_options (question_id, position, option_key, label, is_correct)
				 VALUES ($1, $2, $3, $4, $5)`,
				q.ID, pos, opt.Key, opt.Label, opt.Correct,
			); err != nil {
				return fmt.Errorf("insert option: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}
