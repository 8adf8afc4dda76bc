package history

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Souma061/quizmaster/internal/domain"
	"github.com/Souma061/quizmaster/internal/event"
)

type Config struct {
	DB       *pgxpool.Pool
	EventBus *event.Bus
}

// Service archives completed games to postgres. It subscribes to the
// game-ended event; archiving is best-effort and never blocks game flow.
type Service struct {
	db *pgxpool.Pool
	eb *event.Bus
}

func NewService(c Config) *Service {
	s := &Service{
		db: c.DB,
		eb: c.EventBus,
	}

	s.eb.Subscribe(domain.EventNameGameEnded, func(ctx context.Context, e event.Event) error {
		return s.ArchiveGame(ctx, e.(domain.EventGameEnded))
	})

	return s
}

// ArchiveGame inserts the completed game and its review log in one transaction.
func (s *Service) ArchiveGame(ctx context.Context, e domain.EventGameEnded) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("history: begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const (
		insGameStmt = `
INSERT INTO games (game_id, category, difficulty, score, question_count, ended_at)
VALUES ($1, $2, $3, $4, $5, $6);`
		insReviewStmt = `
INSERT INTO review_entries (game_id, position, question, correct_answer, given_answer)
VALUES ($1, $2, $3, $4, $5);`
	)

	_, err = tx.Exec(ctx, insGameStmt, e.GameID, e.Category, e.Difficulty, e.Score, len(e.Review), e.EndedAt)
	if err != nil {
		return fmt.Errorf("history: insert game: %w", err)
	}

	for i, r := range e.Review {
		_, err = tx.Exec(ctx, insReviewStmt, e.GameID, i, r.Question, r.CorrectAnswer, r.GivenAnswer)
		if err != nil {
			return fmt.Errorf("history: insert review entry: %w", err)
		}
	}

	return tx.Commit(ctx)
}

type ArchivedGame struct {
	GameID        string    `json:"gameId"`
	Category      string    `json:"category"`
	Difficulty    string    `json:"difficulty"`
	Score         int       `json:"score"`
	QuestionCount int       `json:"questionCount"`
	EndedAt       time.Time `json:"endedAt"`
}

// ListRecent returns the most recently completed games, newest first.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]ArchivedGame, error) {
	if limit <= 0 {
		limit = 20
	}

	const stmt = `
SELECT game_id, category, difficulty, score, question_count, ended_at
FROM games
ORDER BY ended_at DESC
LIMIT $1;`

	rows, err := s.db.Query(ctx, stmt, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list games: %w", err)
	}

	games, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (ArchivedGame, error) {
		var g ArchivedGame
		if err := r.Scan(&g.GameID, &g.Category, &g.Difficulty, &g.Score, &g.QuestionCount, &g.EndedAt); err != nil {
			return ArchivedGame{}, err
		}
		return g, nil
	})
	if err != nil {
		return nil, fmt.Errorf("history: collect games: %w", err)
	}

	return games, nil
}

// Migrate creates the archive tables if they do not exist.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS games (
	game_id        UUID PRIMARY KEY,
	category       TEXT NOT NULL,
	difficulty     TEXT NOT NULL,
	score          INTEGER NOT NULL,
	question_count INTEGER NOT NULL,
	ended_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS review_entries (
	game_id        UUID NOT NULL REFERENCES games (game_id),
	position       INTEGER NOT NULL,
	question       TEXT NOT NULL,
	correct_answer TEXT NOT NULL,
	given_answer   TEXT NOT NULL,
	PRIMARY KEY (game_id, position)
);`

	if _, err := db.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}

	return nil
}
