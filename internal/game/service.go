package game

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Souma061/quizmaster/internal/domain"
	"github.com/Souma061/quizmaster/internal/errors"
	"github.com/Souma061/quizmaster/internal/event"
	"github.com/Souma061/quizmaster/internal/leaderboard"
	"github.com/Souma061/quizmaster/internal/telemetry"
)

const maxQuestions = 50

// Provider supplies shuffled, entity-decoded questions for a game.
// An empty result and an error are both treated as "cannot start".
type Provider interface {
	FetchQuestions(ctx context.Context, amount int, category, difficulty string) ([]domain.Question, error)
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type tickerWrap struct{ t *time.Ticker }

func (t tickerWrap) C() <-chan time.Time { return t.t.C }
func (t tickerWrap) Stop()               { t.t.Stop() }

type Config struct {
	Provider    Provider
	Leaderboard *leaderboard.Service
	EventBus    *event.Bus

	// NewTickerFunc lets tests drive the countdown deterministically.
	NewTickerFunc func(d time.Duration) Ticker

	// QuestionTime is the countdown units per question, TickInterval the
	// wall-clock length of one unit, AdvanceDelay the reveal pause before
	// a timed-out question auto-advances.
	QuestionTime int
	TickInterval time.Duration
	AdvanceDelay time.Duration

	Now func() time.Time
}

// Service owns all running game sessions, keyed by game ID.
type Service struct {
	c Config

	mu    sync.RWMutex
	games map[string]*Session
}

func NewService(c Config) *Service {
	if c.NewTickerFunc == nil {
		c.NewTickerFunc = func(d time.Duration) Ticker {
			return tickerWrap{time.NewTicker(d)}
		}
	}
	if c.QuestionTime == 0 {
		c.QuestionTime = 15
	}
	if c.TickInterval == 0 {
		c.TickInterval = time.Second
	}
	if c.AdvanceDelay == 0 {
		c.AdvanceDelay = 900 * time.Millisecond
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.EventBus == nil {
		c.EventBus = event.NewBus()
	}

	return &Service{
		c:     c,
		games: make(map[string]*Session),
	}
}

type StartRequest struct {
	Amount     int
	Category   string
	Difficulty string
}

// Start fetches questions and begins a new game. A provider error or an
// empty result leaves no session behind.
func (s *Service) Start(ctx context.Context, req StartRequest) (*Snapshot, error) {
	if req.Amount < 1 || req.Amount > maxQuestions {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("amount must be between 1 and %d, got %d", maxQuestions, req.Amount))
	}
	switch req.Difficulty {
	case "", "any", "easy", "medium", "hard":
	default:
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("unknown difficulty %q", req.Difficulty))
	}

	questions, err := s.c.Provider.FetchQuestions(ctx, req.Amount, req.Category, req.Difficulty)
	if err != nil {
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("fetch questions failed"),
			errors.WithCause(err))
	}
	if len(questions) == 0 {
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("no questions available for the selected options"))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, errors.Internal(err)
	}

	category := req.Category
	if category == "" {
		category = "any"
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = "any"
	}

	sess := &Session{
		svc:        s,
		id:         id.String(),
		category:   category,
		difficulty: difficulty,
		state:      StateInProgress,
		questions:  questions,
	}

	sess.mu.Lock()
	sess.loadQuestionLocked()
	snap := sess.snapshotLocked()
	sess.mu.Unlock()

	s.mu.Lock()
	s.games[sess.id] = sess
	s.mu.Unlock()

	telemetry.GamesStarted.Inc()
	slog.InfoContext(ctx, "game: started",
		"game", sess.id,
		"questions", len(questions),
		"category", category,
		"difficulty", difficulty,
	)

	return snap, nil
}

// Get returns the current snapshot of a game.
func (s *Service) Get(_ context.Context, id string) (*Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshotLocked(), nil
}

// SelectOption resolves the current question with the player's pick.
func (s *Service) SelectOption(ctx context.Context, id string, option int) (*Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != StateInProgress {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("game %s is not in progress", id))
	}
	if sess.resolved {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("question already resolved"))
	}

	q := sess.questions[sess.current]
	if option < 0 || option >= len(q.Options) {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("option index %d out of range", option))
	}
	if sess.removed[option] {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("option %d was removed by fifty-fifty", option))
	}

	pick := q.Options[option]
	outcome := "incorrect"
	if pick == q.CorrectAnswer {
		outcome = "correct"
		if sess.hintOnCurrent {
			sess.score += pointsHinted
		} else {
			sess.score += pointsFull
		}
	}
	sess.resolveLocked(pick, outcome)

	return sess.snapshotLocked(), nil
}

// UseFiftyFifty hides two random incorrect options on the current question.
// Invalid use (already spent, question resolved, nothing left to hide) is a
// silent no-op.
func (s *Service) UseFiftyFifty(ctx context.Context, id string) (*Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != StateInProgress || sess.resolved || sess.fiftyUsed {
		return sess.snapshotLocked(), nil
	}
	if len(sess.removableWrongsLocked()) <= 1 {
		return sess.snapshotLocked(), nil
	}

	sess.applyFiftyFiftyLocked()
	telemetry.LifelinesUsed.WithLabelValues("fifty_fifty").Inc()

	return sess.snapshotLocked(), nil
}

// UseSkip resolves the current question as skipped and advances immediately.
// Invalid use is a silent no-op.
func (s *Service) UseSkip(ctx context.Context, id string) (*Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != StateInProgress || sess.resolved || sess.skipUsed {
		return sess.snapshotLocked(), nil
	}

	sess.skipUsed = true
	sess.resolveLocked(domain.AnswerSkipped, "skipped")
	telemetry.LifelinesUsed.WithLabelValues("skip").Inc()
	sess.advanceLocked(ctx)

	return sess.snapshotLocked(), nil
}

// Next advances past a resolved question, loading the next one or ending
// the game.
func (s *Service) Next(ctx context.Context, id string) (*Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != StateInProgress {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("game %s is not in progress", id))
	}
	if !sess.resolved {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("current question is not resolved yet"))
	}

	sess.advanceLocked(ctx)
	return sess.snapshotLocked(), nil
}

// SaveScore records the final score on the global and per-category boards.
// Only the first successful save per game takes effect; later attempts are
// silently ignored. Persistence failure is logged, never propagated.
func (s *Service) SaveScore(ctx context.Context, id, name string) (*Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("player name must not be empty"))
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != StateEnded {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("game %s has not ended", id))
	}
	if sess.saved {
		return sess.snapshotLocked(), nil
	}

	global, err := s.c.Leaderboard.Upsert(ctx, leaderboard.UpsertRequest{
		Key:   leaderboard.GlobalKey(),
		Name:  name,
		Score: sess.score,
	})
	if err != nil {
		slog.ErrorContext(ctx, "game: save to global board failed", "game", id, "error", err)
		return sess.snapshotLocked(), nil
	}

	byCategory, err := s.c.Leaderboard.Upsert(ctx, leaderboard.UpsertRequest{
		Key:   leaderboard.CategoryKey(sess.category),
		Name:  name,
		Score: sess.score,
	})
	if err != nil {
		slog.ErrorContext(ctx, "game: save to category board failed", "game", id, "error", err)
		return sess.snapshotLocked(), nil
	}

	sess.saved = true

	s.c.EventBus.Publish(ctx, domain.EventLeaderboardSaved{
		Player: name,
		Boards: []domain.Board{global, byCategory},
	})

	return sess.snapshotLocked(), nil
}

// Restart discards a game, cancelling any running timer. Discarding an
// unknown game is a no-op.
func (s *Service) Restart(_ context.Context, id string) {
	s.mu.Lock()
	sess, ok := s.games[id]
	if ok {
		delete(s.games, id)
	}
	s.mu.Unlock()

	if !ok {
		return
	}

	sess.mu.Lock()
	sess.discardLocked()
	sess.mu.Unlock()
}

// Close discards every running game. Used on server shutdown.
func (s *Service) Close() {
	s.mu.Lock()
	games := s.games
	s.games = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range games {
		sess.mu.Lock()
		sess.discardLocked()
		sess.mu.Unlock()
	}
}

func (s *Service) lookup(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.games[id]
	s.mu.RUnlock()

	if !ok {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("game not found: %s", id))
	}

	return sess, nil
}
