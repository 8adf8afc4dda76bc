package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Souma061/quizmaster/internal/domain"
	"github.com/Souma061/quizmaster/internal/errors"
)

// Capacity bounds every board to its top entries.
const Capacity = 5

const globalKey = "leaderBoard"

// GlobalKey is the board key shared by all games regardless of category.
func GlobalKey() string { return globalKey }

// CategoryKey partitions boards by an opaque category identifier.
func CategoryKey(category string) string {
	if category == "" {
		category = "any"
	}
	return globalKey + "_" + category
}

// KV is the durable key-value backend a board is persisted in. Get returns
// (nil, nil) when the key is absent.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
}

type Config struct {
	KV  KV
	Now func() time.Time
}

// Service maintains bounded sorted leaderboards. Ordering and truncation
// happen here; the KV backend only ever sees an opaque JSON array.
type Service struct {
	kv  KV
	now func() time.Time

	// mu serializes board writes: an upsert is a whole-board
	// read-modify-write against the KV, and boards are shared
	// across concurrently running games.
	mu sync.Mutex
}

func NewService(c Config) *Service {
	if c.Now == nil {
		c.Now = time.Now
	}

	return &Service{
		kv:  c.KV,
		now: c.Now,
	}
}

type UpsertRequest struct {
	Key   string
	Name  string
	Score int
}

// Upsert records a score on the board under req.Key. An existing entry for
// the same name (case-insensitive) is only replaced when the new score is
// strictly higher, in which case its timestamp updates too. The board is
// re-sorted and truncated to Capacity before persisting. Concurrent
// upserts are serialized.
func (s *Service) Upsert(ctx context.Context, req UpsertRequest) (domain.Board, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Board{}, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("leaderboard: empty player name"))
	}
	if req.Score < 0 {
		return domain.Board{}, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("leaderboard: negative score %d", req.Score))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.loadEntries(ctx, req.Key)

	found := false
	for i := range entries {
		if strings.EqualFold(entries[i].Name, name) {
			if req.Score > entries[i].Score {
				entries[i].Score = req.Score
				entries[i].SavedAt = s.now()
			}
			found = true
			break
		}
	}
	if !found {
		entries = append(entries, domain.BoardEntry{
			Name:    name,
			Score:   req.Score,
			SavedAt: s.now(),
		})
	}

	entries = sortAndTruncate(entries)

	b, err := json.Marshal(entries)
	if err != nil {
		return domain.Board{}, fmt.Errorf("leaderboard: marshal board %s: %w", req.Key, err)
	}
	if err := s.kv.Set(ctx, req.Key, b); err != nil {
		return domain.Board{}, fmt.Errorf("leaderboard: persist board %s: %w", req.Key, err)
	}

	return domain.Board{Key: req.Key, Entries: entries}, nil
}

// Load returns the board stored under key. Absent or corrupt data degrades
// to an empty board, never an error.
func (s *Service) Load(ctx context.Context, key string) domain.Board {
	return domain.Board{
		Key:     key,
		Entries: s.loadEntries(ctx, key),
	}
}

// Clear deletes the board stored under key.
func (s *Service) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Del(ctx, key); err != nil {
		return fmt.Errorf("leaderboard: clear board %s: %w", key, err)
	}
	return nil
}

func (s *Service) loadEntries(ctx context.Context, key string) []domain.BoardEntry {
	b, err := s.kv.Get(ctx, key)
	if err != nil {
		slog.ErrorContext(ctx, "leaderboard: load board failed", "key", key, "error", err)
		return nil
	}
	if len(b) == 0 {
		return nil
	}

	var entries []domain.BoardEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		slog.ErrorContext(ctx, "leaderboard: stored board is corrupt", "key", key, "error", err)
		return nil
	}

	return sortAndTruncate(entries)
}

func sortAndTruncate(entries []domain.BoardEntry) []domain.BoardEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].SavedAt.Before(entries[j].SavedAt)
	})

	if len(entries) > Capacity {
		entries = entries[:Capacity]
	}

	return entries
}
