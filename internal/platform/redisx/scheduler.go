package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phrazzld/taskward/internal/schedule"
	"github.com/phrazzld/taskward/internal/store"
)

// ScheduleStore implements schedule.Store on Redis. Fire-at instants live in
// a sorted set scored by Unix time; entry bodies live in per-name keys. The
// sorted-set membership is the single source of truth for claiming: a poller
// owns an entry only if its ZREM removed the member.
type ScheduleStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewScheduleStore creates a ScheduleStore. The prefix namespaces all keys
// (e.g. "taskward:"). If logger is nil, a default logger will be used.
func NewScheduleStore(client *redis.Client, prefix string, logger *slog.Logger) *ScheduleStore {
	if client == nil {
		panic("redis client cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &ScheduleStore{
		client: client,
		prefix: prefix,
		logger: logger.With(slog.String("component", "redis_schedule_store")),
	}
}

// Ensure ScheduleStore implements schedule.Store
var _ schedule.Store = (*ScheduleStore)(nil)

func (s *ScheduleStore) indexKey() string {
	return s.prefix + "schedules"
}

func (s *ScheduleStore) entryKey(name string) string {
	return s.prefix + "schedule:" + name
}

// Put stores a one-shot schedule, replacing any previous entry by the same
// name.
func (s *ScheduleStore) Put(ctx context.Context, entry schedule.Entry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to serialize schedule entry: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(entry.FireAt.Unix()),
		Member: entry.Name,
	})
	pipe.Set(ctx, s.entryKey(entry.Name), body, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store schedule %q: %w", entry.Name, err)
	}

	return nil
}

// Delete removes the named schedule.
// Returns store.ErrScheduleNotFound when the name is not scheduled.
func (s *ScheduleStore) Delete(ctx context.Context, name string) error {
	removed, err := s.client.ZRem(ctx, s.indexKey(), name).Result()
	if err != nil {
		return fmt.Errorf("failed to delete schedule %q: %w", name, err)
	}
	if removed == 0 {
		return store.ErrScheduleNotFound
	}

	if err := s.client.Del(ctx, s.entryKey(name)).Err(); err != nil {
		// Index membership is gone, so the schedule can no longer fire;
		// a leaked body key is only garbage.
		s.logger.Warn("failed to delete schedule body",
			slog.String("schedule", name),
			slog.String("error", err.Error()))
	}

	return nil
}

// PopDue claims and removes entries due at or before now, up to limit.
// Entries another poller claimed concurrently are skipped.
func (s *ScheduleStore) PopDue(ctx context.Context, now time.Time, limit int) ([]schedule.Entry, error) {
	names, err := s.client.ZRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.Unix()),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range due schedules: %w", err)
	}

	entries := make([]schedule.Entry, 0, len(names))
	for _, name := range names {
		removed, err := s.client.ZRem(ctx, s.indexKey(), name).Result()
		if err != nil {
			s.logger.Error("failed to claim due schedule",
				slog.String("schedule", name),
				slog.String("error", err.Error()))
			continue
		}
		if removed == 0 {
			// Another poller claimed it first.
			continue
		}

		body, err := s.client.GetDel(ctx, s.entryKey(name)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				s.logger.Warn("claimed schedule has no body", slog.String("schedule", name))
				continue
			}
			s.logger.Error("failed to load claimed schedule body",
				slog.String("schedule", name),
				slog.String("error", err.Error()))
			continue
		}

		var entry schedule.Entry
		if err := json.Unmarshal(body, &entry); err != nil {
			s.logger.Error("failed to decode schedule body",
				slog.String("schedule", name),
				slog.String("error", err.Error()))
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
