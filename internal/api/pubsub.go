package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Souma061/quizmaster/internal/domain"
)

const maxConcurrentPublishes = 16

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	BoardView struct {
		Key     string           `json:"key"`
		Entries []BoardEntryView `json:"entries"`
	}

	BoardEntryView struct {
		Name    string `json:"name"`
		Score   int    `json:"score"`
		SavedAt string `json:"savedAt"`
	}
)

func boardView(b domain.Board) BoardView {
	v := BoardView{
		Key:     b.Key,
		Entries: make([]BoardEntryView, 0, len(b.Entries)),
	}

	for _, e := range b.Entries {
		v.Entries = append(v.Entries, BoardEntryView{
			Name:    e.Name,
			Score:   e.Score,
			SavedAt: e.SavedAt.Format(time.RFC3339),
		})
	}

	return v
}

// PublishBoardSaved pushes each updated board to its redis channel so
// scoreboard viewers can refresh without polling.
func (a *API) PublishBoardSaved(ctx context.Context, e domain.EventLeaderboardSaved) error {
	var eg errgroup.Group
	eg.SetLimit(maxConcurrentPublishes)

	for _, board := range e.Boards {
		eg.Go(func() error {
			return a.publishNotification(ctx, board.Key, e.Name(), boardView(board))
		})
	}

	return eg.Wait()
}

func (a *API) publishNotification(ctx context.Context, key, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, fmt.Sprintf("%s:board:%s", a.prefix, key), b).Err()
}
