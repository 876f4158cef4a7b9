package tracker

import (
	"context"
	"fmt"
	"slices"

	"github.com/p-n-ai/learning-tracker/internal/curriculum"
)

// LogQuiz appends a lesson quiz result. It returns nil when no tutorial
// exists.
func (t *Tracker) LogQuiz(ctx context.Context, lessonID int64, score, total int, missedConceptIDs []int64) (*QuizResult, error) {
	if err := checkScore(score, total); err != nil {
		return nil, err
	}
	state, err := t.load(ctx)
	if err != nil || state == nil {
		return nil, err
	}

	ref, ok := state.Tutorial.Locate(lessonID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLesson, lessonID)
	}
	for _, id := range missedConceptIDs {
		if !slices.ContainsFunc(ref.Lesson.Concepts, func(c curriculum.Concept) bool { return c.ID == id }) {
			return nil, fmt.Errorf("%w: %d", ErrUnknownConcept, id)
		}
	}

	r := &QuizResult{
		LessonID:         lessonID,
		Score:            score,
		Total:            total,
		MissedConceptIDs: missedConceptIDs,
		CompletedAt:      t.now(),
	}
	if r.MissedConceptIDs == nil {
		r.MissedConceptIDs = []int64{}
	}
	if err := t.store.AddQuizResult(ctx, r); err != nil {
		return nil, fmt.Errorf("log quiz result: %w", err)
	}
	return r, nil
}

// LogInterview appends a chapter interview result. It returns nil when no
// tutorial exists.
func (t *Tracker) LogInterview(ctx context.Context, chapterID int64, score, total int, notes string) (*InterviewResult, error) {
	if err := checkScore(score, total); err != nil {
		return nil, err
	}
	state, err := t.load(ctx)
	if err != nil || state == nil {
		return nil, err
	}
	if state.Tutorial.Chapter(chapterID) == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChapter, chapterID)
	}

	r := &InterviewResult{
		ChapterID:   chapterID,
		Score:       score,
		Total:       total,
		Notes:       notes,
		CompletedAt: t.now(),
	}
	if err := t.store.AddInterviewResult(ctx, r); err != nil {
		return nil, fmt.Errorf("log interview result: %w", err)
	}
	return r, nil
}

// LogCapstone appends a part capstone result. It returns nil when no
// tutorial exists.
func (t *Tracker) LogCapstone(ctx context.Context, partID int64, completed bool, notes string) (*CapstoneResult, error) {
	state, err := t.load(ctx)
	if err != nil || state == nil {
		return nil, err
	}
	if state.Tutorial.Part(partID) == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPart, partID)
	}

	r := &CapstoneResult{
		PartID:      partID,
		Completed:   completed,
		Notes:       notes,
		CompletedAt: t.now(),
	}
	if err := t.store.AddCapstoneResult(ctx, r); err != nil {
		return nil, fmt.Errorf("log capstone result: %w", err)
	}
	return r, nil
}

func checkScore(score, total int) error {
	if total < 1 || score < 0 || score > total {
		return fmt.Errorf("%w: got %d/%d", ErrInvalidScore, score, total)
	}
	return nil
}
