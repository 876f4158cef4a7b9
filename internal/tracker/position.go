package tracker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/p-n-ai/learning-tracker/internal/curriculum"
)

// Position describes where the learner is. Part, Chapter and Lesson are nil
// when the tutorial has no lessons.
type Position struct {
	TutorialName   string                 `json:"tutorial_name"`
	Status         Status                 `json:"status"`
	Part           *curriculum.Part       `json:"current_part"`
	Chapter        *curriculum.Chapter    `json:"current_chapter"`
	Lesson         *curriculum.Lesson     `json:"current_lesson"`
	Coordinate     *curriculum.Coordinate `json:"position"`
	IsChapterStart bool                   `json:"is_chapter_start"`
}

// AdvanceResult reports the outcome of an advance. Every field is zero when
// there was no active lesson.
type AdvanceResult struct {
	PreviousLesson    *curriculum.Lesson `json:"previous_lesson"`
	NewLesson         *curriculum.Lesson `json:"new_lesson"`
	ChapterCompleted  bool               `json:"chapter_completed"`
	PartCompleted     bool               `json:"part_completed"`
	TutorialCompleted bool               `json:"tutorial_completed"`
}

// CurrentPosition resolves the current lesson, defaulting to the first
// lesson when none is set. It returns nil when no tutorial exists.
func (t *Tracker) CurrentPosition(ctx context.Context) (*Position, error) {
	state, err := t.load(ctx)
	if err != nil || state == nil {
		return nil, err
	}

	pos := &Position{TutorialName: state.Tutorial.Name, Status: state.Progress.Status}
	ref, ok := currentRef(&state.Tutorial, state.Progress)
	if !ok {
		return pos, nil
	}

	pos.Part = partSummary(ref.Part)
	pos.Chapter = chapterSummary(ref.Chapter)
	pos.Lesson = lessonCopy(ref.Lesson)
	coord := ref.Coordinate
	pos.Coordinate = &coord
	pos.IsChapterStart = ref.ChapterStart()
	return pos, nil
}

func currentRef(tut *curriculum.Tutorial, p Progress) (curriculum.Ref, bool) {
	if p.CurrentLessonID != nil {
		if ref, ok := tut.Locate(*p.CurrentLessonID); ok {
			return ref, true
		}
	}
	return tut.First()
}

// Start points progress at the first lesson. It returns nil when no tutorial
// exists and ErrNoLessons, before writing anything, when the tree is empty.
func (t *Tracker) Start(ctx context.Context) (*Progress, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, err := t.load(ctx)
	if err != nil || state == nil {
		return nil, err
	}

	first, ok := state.Tutorial.First()
	if !ok {
		return nil, ErrNoLessons
	}

	now := t.now()
	lessonID := first.Lesson.ID
	progress := Progress{
		TutorialID:      state.Tutorial.ID,
		CurrentLessonID: &lessonID,
		Status:          StatusInProgress,
		StartedAt:       &now,
		UpdatedAt:       now,
	}
	if err := t.store.SaveProgress(ctx, progress); err != nil {
		return nil, fmt.Errorf("start tutorial: %w", err)
	}

	t.emit(ctx, state.Tutorial.ID, EventTutorialStarted, map[string]any{"lesson_id": lessonID})
	return &progress, nil
}

// Advance completes the current lesson and moves to its canonical successor.
// The completed lesson is pushed to the tail of the review queue. With no
// active lesson it changes nothing and returns an empty result.
func (t *Tracker) Advance(ctx context.Context) (*AdvanceResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, err := t.load(ctx)
	if err != nil || state == nil {
		return nil, err
	}
	tut := &state.Tutorial

	if state.Progress.CurrentLessonID == nil {
		return &AdvanceResult{}, nil
	}
	cur, ok := tut.Locate(*state.Progress.CurrentLessonID)
	if !ok {
		return &AdvanceResult{}, nil
	}
	next, hasNext := tut.Next(cur.Lesson.ID)

	now := t.now()
	result := &AdvanceResult{
		ChapterCompleted:  !hasNext || next.Chapter.ID != cur.Chapter.ID,
		PartCompleted:     !hasNext || next.Part.ID != cur.Part.ID,
		TutorialCompleted: !hasNext,
	}

	progress := state.Progress
	progress.UpdatedAt = now
	if progress.StartedAt == nil {
		progress.StartedAt = &now
	}
	if hasNext {
		id := next.Lesson.ID
		progress.CurrentLessonID = &id
		progress.Status = StatusInProgress
		result.NewLesson = lessonCopy(next.Lesson)
	} else {
		progress.CurrentLessonID = nil
		progress.Status = StatusCompleted
	}

	adv := Advance{
		Progress:          progress,
		CompletedLessonID: cur.Lesson.ID,
		Now:               now,
	}
	if result.ChapterCompleted {
		adv.CompletedChapterID = cur.Chapter.ID
	}
	if result.PartCompleted {
		adv.CompletedPartID = cur.Part.ID
	}
	if result.TutorialCompleted {
		adv.TutorialCompletedAt = &now
	}
	if err := t.store.ApplyAdvance(ctx, adv); err != nil {
		return nil, fmt.Errorf("advance position: %w", err)
	}

	result.PreviousLesson = lessonCopy(cur.Lesson)
	result.PreviousLesson.Completed = true

	slog.Info("position advanced",
		"tutorial_id", tut.ID,
		"completed_lesson_id", cur.Lesson.ID,
		"chapter_completed", result.ChapterCompleted,
		"part_completed", result.PartCompleted,
		"tutorial_completed", result.TutorialCompleted,
	)
	t.emit(ctx, tut.ID, EventLessonCompleted, map[string]any{"lesson_id": cur.Lesson.ID})
	if result.ChapterCompleted {
		t.emit(ctx, tut.ID, EventChapterCompleted, map[string]any{"chapter_id": cur.Chapter.ID})
	}
	if result.PartCompleted {
		t.emit(ctx, tut.ID, EventPartCompleted, map[string]any{"part_id": cur.Part.ID})
	}
	if result.TutorialCompleted {
		t.emit(ctx, tut.ID, EventTutorialCompleted, nil)
	}
	return result, nil
}

// Reset clears all progress, completion flags, the review queue and every
// result log. The curriculum and preferences are kept. It reports false when
// no tutorial exists.
func (t *Tracker) Reset(ctx context.Context) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, err := t.load(ctx)
	if err != nil || state == nil {
		return false, err
	}
	if err := t.store.ResetProgress(ctx, state.Tutorial.ID, t.now()); err != nil {
		return false, fmt.Errorf("reset progress: %w", err)
	}

	slog.Info("progress reset", "tutorial_id", state.Tutorial.ID)
	t.emit(ctx, state.Tutorial.ID, EventProgressReset, nil)
	return true, nil
}

func lessonCopy(l *curriculum.Lesson) *curriculum.Lesson {
	c := *l
	return &c
}

func chapterSummary(c *curriculum.Chapter) *curriculum.Chapter {
	s := *c
	s.Lessons = nil
	return &s
}

func partSummary(p *curriculum.Part) *curriculum.Part {
	s := *p
	s.Chapters = nil
	return &s
}
