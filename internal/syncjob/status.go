// AngelaMos | 2026
// status.go

package syncjob

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/gotitgames/catalog/internal/core"
)

// StatusStore keeps the latest Summary per job.
type StatusStore interface {
	Save(ctx context.Context, s Summary) error
	All(ctx context.Context) (map[string]Summary, error)
}

var statusKey = core.Key("sync", "status")

type RedisStatusStore struct {
	client *redis.Client
}

func NewRedisStatusStore(client *redis.Client) *RedisStatusStore {
	return &RedisStatusStore{client: client}
}

func (s *RedisStatusStore) Save(ctx context.Context, summary Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	if err := s.client.HSet(ctx, statusKey, summary.Job, data).Err(); err != nil {
		return fmt.Errorf("save sync status: %w", err)
	}
	return nil
}

func (s *RedisStatusStore) All(ctx context.Context) (map[string]Summary, error) {
	raw, err := s.client.HGetAll(ctx, statusKey).Result()
	if err != nil {
		return nil, fmt.Errorf("load sync status: %w", err)
	}

	out := make(map[string]Summary, len(raw))
	for job, data := range raw {
		var summary Summary
		if err := json.Unmarshal([]byte(data), &summary); err != nil {
			return nil, fmt.Errorf("decode sync status %s: %w", job, err)
		}
		out[job] = summary
	}
	return out, nil
}

// MemoryStatusStore is used when no redis is reachable.
type MemoryStatusStore struct {
	mu   sync.Mutex
	runs map[string]Summary
}

func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{runs: make(map[string]Summary)}
}

func (s *MemoryStatusStore) Save(_ context.Context, summary Summary) error {
	s.mu.Lock()
	s.runs[summary.Job] = summary
	s.mu.Unlock()
	return nil
}

func (s *MemoryStatusStore) All(context.Context) (map[string]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Summary, len(s.runs))
	for k, v := range s.runs {
		out[k] = v
	}
	return out, nil
}
