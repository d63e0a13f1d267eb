package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"farmfeed/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Entry is one recorded recommendation.
type Entry struct {
	Conditions Conditions `json:"conditions"`
	Prediction Prediction `json:"prediction"`
	At         time.Time  `json:"at"`
}

// History keeps each user's most recent recommendations, newest first.
// It lives in a Redis list per user; without Redis it falls back to an
// in-process map.
type History struct {
	rdb   *redis.Client
	limit int

	mu    sync.Mutex
	local map[string][]Entry
}

// NewHistory creates a History keeping at most limit entries per user.
func NewHistory(rdb *redis.Client, limit int) *History {
	if limit <= 0 {
		limit = 20
	}
	return &History{rdb: rdb, limit: limit, local: make(map[string][]Entry)}
}

func historyKey(userID string) string {
	return "history:" + userID
}

// Record prepends e to the user's history and trims it to the limit.
func (h *History) Record(ctx context.Context, userID string, e Entry) error {
	if h.rdb == nil {
		h.mu.Lock()
		defer h.mu.Unlock()
		entries := append([]Entry{e}, h.local[userID]...)
		if len(entries) > h.limit {
			entries = entries[:h.limit]
		}
		h.local[userID] = entries
		return nil
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	key := historyKey(userID)
	_, err = h.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, int64(h.limit-1))
		return nil
	})
	if err != nil {
		observability.RedisErrors.WithLabelValues("history_record").Inc()
		return fmt.Errorf("record history: %w", err)
	}
	return nil
}

// List returns the user's history, newest first. Unreadable entries are skipped.
func (h *History) List(ctx context.Context, userID string) ([]Entry, error) {
	if h.rdb == nil {
		h.mu.Lock()
		defer h.mu.Unlock()
		return append(make([]Entry, 0, len(h.local[userID])), h.local[userID]...), nil
	}

	raw, err := h.rdb.LRange(ctx, historyKey(userID), 0, -1).Result()
	if err != nil {
		observability.RedisErrors.WithLabelValues("history_list").Inc()
		return nil, fmt.Errorf("list history: %w", err)
	}
	out := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			observability.Logger.WarnContext(ctx, "skipping unreadable history entry", "user_id", userID, "error", err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
