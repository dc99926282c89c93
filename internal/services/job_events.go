package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/paperforge-backend/internal/logger"
)

// JobEvent is one observable render-job lifecycle transition.
type JobEvent struct {
	JobID      uuid.UUID `json:"job_id"`
	PaperID    uuid.UUID `json:"paper_id"`
	Event      string    `json:"event"` // started|succeeded|failed
	Attempt    int       `json:"attempt"`
	Error      string    `json:"error,omitempty"`
	TotalBytes int64     `json:"total_bytes,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	At         time.Time `json:"at"`
}

// JobEventPublisher broadcasts render-job lifecycle events for operational
// diagnosis. Publishing is fire-and-forget; a down bus never fails a job.
type JobEventPublisher interface {
	Publish(ctx context.Context, event JobEvent)
	Close() error
}

type redisJobEvents struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewRedisJobEvents(log *logger.Logger) (JobEventPublisher, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	channel := strings.TrimSpace(os.Getenv("REDIS_JOB_EVENTS_CHANNEL"))
	if channel == "" {
		channel = "render_jobs"
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &redisJobEvents{
		log:     log.With("service", "RedisJobEvents"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *redisJobEvents) Publish(ctx context.Context, event JobEvent) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		b.log.Warn("Failed to marshal job event", "error", err)
		return
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.log.Warn("Failed to publish job event", "event", event.Event, "job_id", event.JobID, "error", err)
	}
}

func (b *redisJobEvents) Close() error {
	return b.rdb.Close()
}

// NopJobEvents is used when no redis is configured; events still land in the
// structured log at the call sites.
type NopJobEvents struct{}

func (NopJobEvents) Publish(ctx context.Context, event JobEvent) {}
func (NopJobEvents) Close() error                                { return nil }
