// Package tracker implements a learner's progress through a curriculum: the
// position state machine, the FIFO review queue, result logs and the stats
// derived from them.
//
// Query operations signal a missing tutorial with a nil result rather than
// an error; errors are reserved for invalid input and storage failures.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/learning-tracker/internal/curriculum"
)

var (
	ErrTutorialExists = errors.New("a tutorial already exists in this project")
	ErrNoLessons      = errors.New("tutorial has no lessons")
	ErrUnknownLesson  = errors.New("lesson does not belong to the tutorial")
	ErrUnknownChapter = errors.New("chapter does not belong to the tutorial")
	ErrUnknownPart    = errors.New("part does not belong to the tutorial")
	ErrUnknownConcept = errors.New("concept does not belong to the lesson")
	ErrInvalidScore   = errors.New("score must be between 0 and total, and total at least 1")
)

// Tracker is the entry point for every learner-facing operation. Mutating
// operations are serialised so queue positions stay monotonic.
type Tracker struct {
	store  Store
	events EventLogger
	now    func() time.Time
	mu     sync.Mutex
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithEventLogger sets the sink for progress events.
func WithEventLogger(l EventLogger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.events = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// New creates a tracker over store.
func New(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		events: NopEventLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CreateTutorial validates def and persists it as the store's tutorial.
func (t *Tracker) CreateTutorial(ctx context.Context, def curriculum.Definition) (*curriculum.Tutorial, error) {
	if err := curriculum.Validate(def); err != nil {
		return nil, err
	}
	prefs := Preferences(def.Preferences)
	if prefs == nil {
		prefs = Preferences{}
	}
	if err := normalizePreferences(prefs); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	state, err := t.load(ctx)
	if err != nil {
		return nil, err
	}
	if state != nil {
		return nil, ErrTutorialExists
	}

	tut := def.Build()
	now := t.now()
	tut.CreatedAt = now
	tut.UpdatedAt = now
	if err := t.store.CreateTutorial(ctx, &tut, prefs); err != nil {
		return nil, fmt.Errorf("create tutorial: %w", err)
	}

	slog.Info("tutorial created", "tutorial_id", tut.ID, "name", tut.Name, "lessons", len(tut.Walk()))
	t.emit(ctx, tut.ID, EventTutorialCreated, map[string]any{"name": tut.Name})
	return &tut, nil
}

// load returns the stored state, or nil when no tutorial exists.
func (t *Tracker) load(ctx context.Context) (*State, error) {
	state, err := t.store.LoadState(ctx)
	if errors.Is(err, ErrNoTutorial) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	return state, nil
}

// emit publishes an event; failures are logged and never surface.
func (t *Tracker) emit(ctx context.Context, tutorialID int64, eventType string, data map[string]any) {
	event := Event{
		ID:         uuid.NewString(),
		TutorialID: tutorialID,
		Type:       eventType,
		Data:       data,
		CreatedAt:  t.now(),
	}
	if err := t.events.LogEvent(ctx, event); err != nil {
		slog.Warn("failed to log event", "type", eventType, "tutorial_id", tutorialID, "error", err)
	}
}
