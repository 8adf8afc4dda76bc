package game

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Souma061/quizmaster/internal/domain"
	"github.com/Souma061/quizmaster/internal/telemetry"
)

// State of a game session. A session object only exists once its questions
// loaded; a failed start leaves no session behind, so every session is
// either in progress or ended.
type State string

const (
	StateInProgress State = "in_progress"
	StateEnded      State = "ended"
)

const (
	pointsFull   = 10
	pointsHinted = 5

	// fiftyFiftyRemoves is how many incorrect options one activation hides.
	fiftyFiftyRemoves = 2
)

// Session is a single running game. All fields are guarded by mu; every
// mutation runs to completion under the lock before the next trigger is
// processed, so no two triggers ever interleave.
type Session struct {
	svc        *Service
	id         string
	category   string
	difficulty string

	mu        sync.Mutex
	state     State
	questions []domain.Question
	current   int
	score     int
	timeLeft  int

	fiftyUsed     bool
	skipUsed      bool
	hintOnCurrent bool

	resolved bool
	given    string
	removed  map[int]bool

	review []domain.ReviewEntry
	saved  bool

	// epoch invalidates outstanding timer ticks and scheduled advances.
	// Bumped on every resolution, advance and discard.
	epoch     uint64
	timerStop chan struct{}
}

// loadQuestionLocked resets the per-question state and starts the countdown.
func (s *Session) loadQuestionLocked() {
	s.resolved = false
	s.given = ""
	s.hintOnCurrent = false
	s.removed = make(map[int]bool)
	s.timeLeft = s.svc.c.QuestionTime
	s.startTimerLocked()
}

func (s *Session) startTimerLocked() {
	s.cancelTimerLocked()

	stop := make(chan struct{})
	s.timerStop = stop
	tk := s.svc.c.NewTickerFunc(s.svc.c.TickInterval)

	go func() {
		defer tk.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tk.C():
				if s.tick(stop) {
					return
				}
			}
		}
	}()
}

// tick handles one countdown unit. Returns true when the timer is done,
// either because time ran out or because the tick is stale.
func (s *Session) tick(stop chan struct{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timerStop != stop || s.state != StateInProgress || s.resolved {
		return true
	}

	s.timeLeft--
	if s.timeLeft > 0 {
		return false
	}

	s.resolveLocked(domain.AnswerTimedOut, "timeout")
	s.scheduleAdvanceLocked()
	return true
}

func (s *Session) cancelTimerLocked() {
	if s.timerStop != nil {
		close(s.timerStop)
		s.timerStop = nil
	}
}

// resolveLocked finalizes the current question's outcome. Exactly one review
// entry is appended per resolved question.
func (s *Session) resolveLocked(given, outcome string) {
	q := s.questions[s.current]
	s.review = append(s.review, domain.ReviewEntry{
		Question:      q.Text,
		CorrectAnswer: q.CorrectAnswer,
		GivenAnswer:   given,
	})
	s.given = given
	s.resolved = true
	s.epoch++
	s.cancelTimerLocked()

	telemetry.QuestionsResolved.WithLabelValues(outcome).Inc()
}

// scheduleAdvanceLocked moves to the next question after the reveal delay,
// unless something else (a manual next, a restart) advanced the session first.
func (s *Session) scheduleAdvanceLocked() {
	e := s.epoch
	time.AfterFunc(s.svc.c.AdvanceDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.epoch != e || s.state != StateInProgress || !s.resolved {
			return
		}
		s.advanceLocked(context.Background())
	})
}

func (s *Session) advanceLocked(ctx context.Context) {
	s.epoch++
	s.cancelTimerLocked()
	s.current++

	if s.current >= len(s.questions) {
		s.state = StateEnded
		s.resolved = false
		s.given = ""
		s.saved = false
		telemetry.GamesCompleted.Inc()

		s.svc.c.EventBus.Publish(ctx, domain.EventGameEnded{
			GameID:     s.id,
			Category:   s.category,
			Difficulty: s.difficulty,
			Score:      s.score,
			Review:     append([]domain.ReviewEntry(nil), s.review...),
			EndedAt:    s.svc.c.Now(),
		})
		return
	}

	s.loadQuestionLocked()
}

// removableWrongsLocked lists option indexes fifty-fifty may still hide.
func (s *Session) removableWrongsLocked() []int {
	q := s.questions[s.current]
	var wrongs []int
	for i, opt := range q.Options {
		if opt != q.CorrectAnswer && !s.removed[i] {
			wrongs = append(wrongs, i)
		}
	}
	return wrongs
}

func (s *Session) applyFiftyFiftyLocked() {
	wrongs := s.removableWrongsLocked()
	rand.Shuffle(len(wrongs), func(i, j int) {
		wrongs[i], wrongs[j] = wrongs[j], wrongs[i]
	})
	for i := 0; i < fiftyFiftyRemoves && i < len(wrongs); i++ {
		s.removed[wrongs[i]] = true
	}

	s.hintOnCurrent = true
	s.fiftyUsed = true
}

func (s *Session) discardLocked() {
	s.epoch++
	s.cancelTimerLocked()
	s.state = StateEnded
}
