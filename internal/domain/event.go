package domain

import "time"

const (
	EventNameGameEnded        = "game.ended"
	EventNameLeaderboardSaved = "leaderboard.saved"
)

type EventGameEnded struct {
	GameID     string
	Category   string
	Difficulty string
	Score      int
	Review     []ReviewEntry
	EndedAt    time.Time
}

func (EventGameEnded) Name() string { return EventNameGameEnded }

type EventLeaderboardSaved struct {
	Player string
	Boards []Board
}

func (EventLeaderboardSaved) Name() string { return EventNameLeaderboardSaved }
