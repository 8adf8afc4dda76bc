//go:build integration_test

package demo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Souma061/quizmaster/internal/api"
	"github.com/Souma061/quizmaster/internal/domain"
	"github.com/Souma061/quizmaster/internal/game"
)

const (
	baseURL = "http://localhost:8080"
)

// TestQuiz plays a full game against a running server: answers every
// question, saves the score and watches the leaderboard notification
// arrive over redis. Run with a server and redis up:
//
//	go test -tags integration_test ./test/demo/...
func TestQuiz(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	wg := new(sync.WaitGroup)
	watchBoard(t, makeRedis(t), wg, "leaderBoard")

	// Start a new game.
	var snap game.Snapshot
	doJSON(t, ctx, http.MethodPost, "/v1/games", map[string]any{
		"amount":     3,
		"difficulty": "easy",
	}, &snap)
	t.Logf("Started game %s with %d questions", snap.ID, snap.TotalQuestions)

	// Answer every question with the first option left standing.
	for snap.State == game.StateInProgress {
		t.Logf("Question %d/%d: %s", snap.QuestionNumber, snap.TotalQuestions, snap.Question.Text)

		option := snap.Question.Options[0].Index
		doJSON(t, ctx, http.MethodPost, fmt.Sprintf("/v1/games/%s/answer", snap.ID), map[string]any{
			"option": option,
		}, &snap)
		t.Logf("Answered %q: correct=%q score=%d", snap.GivenAnswer, snap.CorrectAnswer, snap.Score)

		doJSON(t, ctx, http.MethodPost, fmt.Sprintf("/v1/games/%s/next", snap.ID), nil, &snap)
	}

	require.Equal(t, game.StateEnded, snap.State)
	t.Logf("Game over, final score %d", snap.Score)

	// Save the score and wait for the leaderboard notification.
	doJSON(t, ctx, http.MethodPost, fmt.Sprintf("/v1/games/%s/score", snap.ID), map[string]any{
		"name": "demo",
	}, &snap)
	require.True(t, snap.Saved)

	wg.Wait()
}

func doJSON(t *testing.T, ctx context.Context, method, path string, body, out any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Less(t, resp.StatusCode, 300, "%s %s", method, path)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func watchBoard(t *testing.T, rc redis.UniversalClient, wg *sync.WaitGroup, key string) {
	wg.Add(1)
	sub := subscribeRedis(t, rc, fmt.Sprintf("quizmaster:board:%s", key))
	go func() {
		defer wg.Done()

		for msg := range sub {
			var n struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				t.Logf("unmarshal notification: %v", err)
				continue
			}

			switch n.Event {
			case domain.EventNameLeaderboardSaved:
				var b api.BoardView
				if err := json.Unmarshal(n.Data, &b); err != nil {
					t.Logf("unmarshal board: %v", err)
					continue
				}

				t.Logf("%s:\n%s", key, formatBoard(b))
				return
			}
		}
	}()
}

func subscribeRedis(t *testing.T, rc redis.UniversalClient, channel string) <-chan *redis.Message {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	sub := rc.Subscribe(ctx, channel)
	t.Cleanup(func() { sub.Close() })

	c := make(chan *redis.Message)
	go func() {
		defer close(c)

		for {
			msg, err := sub.ReceiveMessage(ctx)
			if err != nil {
				t.Log(err)
				return
			}

			c <- msg
		}
	}()

	return c
}

func makeRedis(t *testing.T) redis.UniversalClient {
	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{"localhost:6379"},
	})
	t.Cleanup(func() { r.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.Ping(ctx).Err(); err != nil {
		t.Fatal(err)
	}

	return r
}

func formatBoard(b api.BoardView) string {
	var s string
	for _, e := range b.Entries {
		s += fmt.Sprintf("%s: %d\n", e.Name, e.Score)
	}
	return s
}
