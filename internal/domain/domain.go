package domain

import "time"

// Question is a single multiple-choice trivia question. Once produced by the
// provider it is never mutated; the correct answer is always one of Options.
type Question struct {
	Text          string
	Options       []string
	CorrectAnswer string
}

// ReviewEntry records the outcome of one resolved question.
type ReviewEntry struct {
	Question      string `json:"question"`
	CorrectAnswer string `json:"correctAnswer"`
	GivenAnswer   string `json:"givenAnswer"`
}

// Sentinel answers recorded when a question resolves without a pick.
const (
	AnswerSkipped  = "(skipped)"
	AnswerTimedOut = "(no answer)"
)

// Board is a bounded, sorted leaderboard stored under a single key.
// Entries are ordered by score descending, ties broken by earlier SavedAt.
type Board struct {
	Key     string
	Entries []BoardEntry
}

type BoardEntry struct {
	Name    string    `json:"name"`
	Score   int       `json:"score"`
	SavedAt time.Time `json:"savedAt"`
}
