package tracker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/p-n-ai/learning-tracker/internal/curriculum"
)

// QueueItem is a queued lesson with the concepts to quiz it on.
type QueueItem struct {
	Lesson   curriculum.Lesson    `json:"lesson"`
	Concepts []curriculum.Concept `json:"concepts"`
	Position int64                `json:"queue_position"`
}

// Queue is a read of the review queue, oldest entry first.
type Queue struct {
	// Count is the queue size before any limit was applied.
	Count       int         `json:"count"`
	Items       []QueueItem `json:"queue"`
	Replenished bool        `json:"queue_replenished"`
}

// ReviewResult reports what a review did to the queue.
type ReviewResult struct {
	Removed     bool   `json:"removed"`
	NewPosition *int64 `json:"new_position"`
}

// ReviewQueue returns up to limit entries (limit <= 0 means all). When the
// tutorial is complete and the queue is empty, every lesson is first queued
// again in canonical order. It returns nil when no tutorial exists.
func (t *Tracker) ReviewQueue(ctx context.Context, limit int) (*Queue, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, err := t.load(ctx)
	if err != nil || state == nil {
		return nil, err
	}
	tut := &state.Tutorial

	entries, err := t.store.QueueEntries(ctx, tut.ID)
	if err != nil {
		return nil, fmt.Errorf("read review queue: %w", err)
	}

	q := &Queue{Items: []QueueItem{}}
	if len(entries) == 0 && tut.Completed {
		refs := tut.Walk()
		ids := make([]int64, 0, len(refs))
		for _, r := range refs {
			ids = append(ids, r.Lesson.ID)
		}
		if len(ids) > 0 {
			if entries, err = t.store.Enqueue(ctx, tut.ID, ids, t.now()); err != nil {
				return nil, fmt.Errorf("replenish review queue: %w", err)
			}
			q.Replenished = true
			slog.Info("review queue replenished", "tutorial_id", tut.ID, "lessons", len(ids))
			t.emit(ctx, tut.ID, EventQueueReplenished, map[string]any{"lessons": len(ids)})
		}
	}

	q.Count = len(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for _, e := range entries {
		ref, ok := tut.Locate(e.LessonID)
		if !ok {
			continue
		}
		lesson := *ref.Lesson
		concepts := lesson.Concepts
		if concepts == nil {
			concepts = []curriculum.Concept{}
		}
		lesson.Concepts = nil
		q.Items = append(q.Items, QueueItem{Lesson: lesson, Concepts: concepts, Position: e.Position})
	}
	return q, nil
}

// LogReview records a review answer. A correct answer removes the lesson
// from the queue; an incorrect one moves it to the tail, adding it if it was
// not queued. It returns nil when no tutorial exists.
func (t *Tracker) LogReview(ctx context.Context, lessonID int64, correct bool) (*ReviewResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, err := t.load(ctx)
	if err != nil || state == nil {
		return nil, err
	}
	if _, ok := state.Tutorial.Locate(lessonID); !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLesson, lessonID)
	}

	result := &ReviewResult{}
	if correct {
		if result.Removed, err = t.store.Dequeue(ctx, state.Tutorial.ID, lessonID); err != nil {
			return nil, fmt.Errorf("log review: %w", err)
		}
	} else {
		entries, err := t.store.Enqueue(ctx, state.Tutorial.ID, []int64{lessonID}, t.now())
		if err != nil {
			return nil, fmt.Errorf("log review: %w", err)
		}
		pos := entries[0].Position
		result.NewPosition = &pos
	}

	t.emit(ctx, state.Tutorial.ID, EventReviewAnswered, map[string]any{
		"lesson_id": lessonID,
		"correct":   correct,
	})
	return result, nil
}
