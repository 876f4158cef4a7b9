package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the tracker.
const (
	EventTutorialCreated   = "tutorial_created"
	EventTutorialStarted   = "tutorial_started"
	EventLessonCompleted   = "lesson_completed"
	EventChapterCompleted  = "chapter_completed"
	EventPartCompleted     = "part_completed"
	EventTutorialCompleted = "tutorial_completed"
	EventReviewAnswered    = "review_answered"
	EventQueueReplenished  = "queue_replenished"
	EventProgressReset     = "progress_reset"
)

// Event is a progress transition published for analytics.
type Event struct {
	ID         string
	TutorialID int64
	Type       string
	Data       map[string]any
	CreatedAt  time.Time
}

// EventLogger defines event logging behavior.
type EventLogger interface {
	LogEvent(ctx context.Context, event Event) error
}

// NopEventLogger ignores all events.
type NopEventLogger struct{}

func (NopEventLogger) LogEvent(context.Context, Event) error {
	return nil
}

// MemoryEventLogger stores events in memory for tests.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{
		events: []Event{},
	}
}

func (l *MemoryEventLogger) LogEvent(_ context.Context, event Event) error {
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

func (l *MemoryEventLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// Types returns the type of every recorded event, in order.
func (l *MemoryEventLogger) Types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	types := make([]string, 0, len(l.events))
	for _, e := range l.events {
		types = append(types, e.Type)
	}
	return types
}

// StreamAppender appends entries to a capped stream. *cache.Cache
// implements it.
type StreamAppender interface {
	AppendStream(ctx context.Context, stream string, maxLen int64, values map[string]any) (string, error)
}

// RedisEventLogger appends events to a capped Redis stream.
type RedisEventLogger struct {
	streams StreamAppender
	stream  string
	maxLen  int64
}

func NewRedisEventLogger(streams StreamAppender, stream string, maxLen int64) *RedisEventLogger {
	return &RedisEventLogger{streams: streams, stream: stream, maxLen: maxLen}
}

func (l *RedisEventLogger) LogEvent(ctx context.Context, event Event) error {
	if l == nil || l.streams == nil {
		return fmt.Errorf("event logger client is nil")
	}
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}

	payload := event.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := l.streams.AppendStream(ctx, l.stream, l.maxLen, map[string]any{
		"id":          event.ID,
		"type":        event.Type,
		"tutorial_id": strconv.FormatInt(event.TutorialID, 10),
		"data":        string(data),
		"created_at":  createdAt.UTC().Format(time.RFC3339Nano),
	}); err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	slog.Debug("event logged",
		"type", event.Type,
		"tutorial_id", event.TutorialID,
		"stream", l.stream,
	)
	return nil
}
