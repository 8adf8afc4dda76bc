package game

import "github.com/Souma061/quizmaster/internal/domain"

// Snapshot is the externally visible view of a session after any action.
// The correct answer is only revealed once the current question is resolved.
type Snapshot struct {
	ID         string `json:"id"`
	State      State  `json:"state"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`

	QuestionNumber int           `json:"questionNumber"`
	TotalQuestions int           `json:"totalQuestions"`
	Question       *QuestionView `json:"question,omitempty"`
	TimeLeft       int           `json:"timeLeft"`

	Score               int  `json:"score"`
	FiftyFiftyAvailable bool `json:"fiftyFiftyAvailable"`
	SkipAvailable       bool `json:"skipAvailable"`

	Resolved      bool   `json:"resolved"`
	CorrectAnswer string `json:"correctAnswer,omitempty"`
	GivenAnswer   string `json:"givenAnswer,omitempty"`

	Saved  bool                 `json:"saved"`
	Review []domain.ReviewEntry `json:"review,omitempty"`
}

type QuestionView struct {
	Text    string       `json:"text"`
	Options []OptionView `json:"options"`
}

type OptionView struct {
	Index   int    `json:"index"`
	Text    string `json:"text"`
	Removed bool   `json:"removed"`
}

func (s *Session) snapshotLocked() *Snapshot {
	snap := &Snapshot{
		ID:                  s.id,
		State:               s.state,
		Category:            s.category,
		Difficulty:          s.difficulty,
		TotalQuestions:      len(s.questions),
		Score:               s.score,
		FiftyFiftyAvailable: !s.fiftyUsed,
		SkipAvailable:       !s.skipUsed,
		Resolved:            s.resolved,
		Saved:               s.saved,
	}

	if s.state == StateEnded {
		snap.Review = append([]domain.ReviewEntry(nil), s.review...)
		return snap
	}

	q := s.questions[s.current]
	snap.QuestionNumber = s.current + 1
	snap.TimeLeft = s.timeLeft

	view := &QuestionView{Text: q.Text}
	for i, opt := range q.Options {
		view.Options = append(view.Options, OptionView{
			Index:   i,
			Text:    opt,
			Removed: s.removed[i],
		})
	}
	snap.Question = view

	if s.resolved {
		snap.CorrectAnswer = q.CorrectAnswer
		snap.GivenAnswer = s.given
	}

	return snap
}
