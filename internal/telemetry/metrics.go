package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GamesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizmaster_games_started_total",
		Help: "Number of game sessions started.",
	})

	GamesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizmaster_games_completed_total",
		Help: "Number of game sessions that reached the end.",
	})

	// QuestionsResolved counts question resolutions by outcome:
	// correct, incorrect, skipped, timeout.
	QuestionsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quizmaster_questions_resolved_total",
		Help: "Number of questions resolved, by outcome.",
	}, []string{"outcome"})

	LifelinesUsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quizmaster_lifelines_used_total",
		Help: "Number of lifeline activations, by kind.",
	}, []string{"kind"})
)
