package toolapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/p-n-ai/learning-tracker/internal/curriculum"
	"github.com/p-n-ai/learning-tracker/internal/tracker"
)

// ReviewInstructions tells the calling agent how to use the review queue.
const ReviewInstructions = "For each lesson in the queue, randomly pick ONE concept and ask a review question about it."

type quizArgs struct {
	LessonID         *int64  `json:"lesson_id" validate:"required"`
	Score            *int    `json:"score" validate:"required,min=0"`
	Total            *int    `json:"total" validate:"required,min=1"`
	MissedConceptIDs []int64 `json:"missed_concept_ids"`
}

type interviewArgs struct {
	ChapterID *int64 `json:"chapter_id" validate:"required"`
	Score     *int   `json:"score" validate:"required,min=0"`
	Total     *int   `json:"total" validate:"required,min=1"`
	Notes     string `json:"notes" validate:"max=4000"`
}

type capstoneArgs struct {
	PartID    *int64 `json:"part_id" validate:"required"`
	Completed *bool  `json:"completed" validate:"required"`
	Notes     string `json:"notes" validate:"max=4000"`
}

type queueArgs struct {
	Limit int `json:"limit" validate:"min=0"`
}

type reviewArgs struct {
	LessonID *int64 `json:"lesson_id" validate:"required"`
	Correct  *bool  `json:"correct" validate:"required"`
}

type preferencesArgs struct {
	Preferences map[string]any `json:"preferences" validate:"required"`
}

type noArgs struct{}

func (d *Dispatcher) registerTrackerTools() {
	d.Register(Tool{
		Name:        "create_tutorial",
		Description: "Create the project's tutorial from a curriculum of parts, chapters, lessons and concepts.",
		InputSchema: curriculum.Schema(),
	}, d.createTutorial)
	d.Register(Tool{Name: "get_tutorial", Description: "Get the tutorial tree with progress, preferences, stats and the latest result per node."}, d.getTutorial)
	d.Register(Tool{Name: "start_tutorial", Description: "Start (or restart) the tutorial at its first lesson."}, d.startTutorial)
	d.Register(Tool{Name: "get_current_position", Description: "Get the current part, chapter and lesson."}, d.currentPosition)
	d.Register(Tool{Name: "advance_position", Description: "Complete the current lesson, queue it for review and move to the next one."}, d.advancePosition)
	d.Register(Tool{Name: "log_quiz_result", Description: "Record a lesson quiz score and the concepts that were missed."}, d.logQuiz)
	d.Register(Tool{Name: "log_interview_result", Description: "Record a chapter interview score."}, d.logInterview)
	d.Register(Tool{Name: "log_capstone_result", Description: "Record whether a part's capstone project was completed."}, d.logCapstone)
	d.Register(Tool{Name: "get_review_queue", Description: "Get the lessons waiting for review, oldest first."}, d.reviewQueue)
	d.Register(Tool{Name: "log_review_result", Description: "Record a review answer: correct removes the lesson, incorrect moves it to the end of the queue."}, d.logReview)
	d.Register(Tool{Name: "reset_progress", Description: "Clear all progress, results and the review queue, keeping the curriculum."}, d.resetProgress)
	d.Register(Tool{Name: "get_preferences", Description: "Get the learner's preferences."}, d.getPreferences)
	d.Register(Tool{Name: "update_preferences", Description: "Merge new values into the learner's preferences."}, d.updatePreferences)
}

func (d *Dispatcher) createTutorial(ctx context.Context, args json.RawMessage) (map[string]any, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	def, err := curriculum.Decode(args)
	if err != nil {
		return nil, err
	}
	tut, err := d.tracker.CreateTutorial(ctx, def)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"message":     fmt.Sprintf("Tutorial '%s' created", tut.Name),
		"tutorial_id": tut.ID,
		"tutorial":    tut,
	}, nil
}

func (d *Dispatcher) getTutorial(ctx context.Context, args json.RawMessage) (map[string]any, error) {
	if err := d.validator.decode(args, &noArgs{}); err != nil {
		return nil, err
	}
	detail, err := d.tracker.Tutorial(ctx)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return map[string]any{"tutorial": nil}, nil
	}
	return flatten(detail)
}

func (d *Dispatcher) startTutorial(ctx context.Context, args json.RawMessage) (map[string]any, error) {
	if err := d.validator.decode(args, &noArgs{}); err != nil {
		return nil, err
	}
	progress, err := d.tracker.Start(ctx)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, errNoTutorial
	}
	return map[string]any{"message": "Tutorial started", "progress": progress}, nil
}

func (d *Dispatcher) currentPosition(ctx context.Context, args json.RawMessage) (map[string]any, error) {
	if err := d.validator.decode(args, &noArgs{}); err != nil {
		return nil, err
	}
	pos, err := d.tracker.CurrentPosition(ctx)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return nil, errNoTutorial
	}
	return flatten(pos)
}

func (d *Dispatcher) advancePosition(ctx context.Context, args json.RawMessage) (map[string]any, error) {
	if err := d.validator.decode(args, &noArgs{}); err != nil {
		return nil, err
	}
	res, err := d.tracker.Advance(ctx)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errNoTutorial
	}
	out, err := flatten(res)
	if err != nil {
		return nil, err
	}
	switch {
	case res.PreviousLesson == nil:
		out["message"] = "No active lesson to advance"
	case res.TutorialCompleted:
		out["message"] = "Tutorial completed!"
	default:
		out["message"] = fmt.Sprintf("Advanced to lesson: %s", res.NewLesson.Name)
	}
	return out, nil
}

func (d *Dispatcher) logQuiz(ctx context.Context, args json.RawMessage) (map[string]any, error) {
	var a quizArgs
	if err := d.validator.decode(args, &a); err != nil {
		return nil, err
	}
	r, err := d.tracker.LogQuiz(ctx, *a.LessonID, *a.Score, *a.Total, a.MissedConceptIDs)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errNoTutorial
	}
	return map[string]any{
		"message": fmt.Sprintf("Quiz result logged: %d/%d", r.Score, r.Total),
		"result":  r,
	}, nil
}

func (d *Dispatcher) logInterview(ctx context.Context, args json.RawMessage) (map[string]any, error) {
	var a interviewArgs
	if err := d.validator.decode(args, &a); err != nil {
		return nil, err
	}
	r, err := d.tracker.LogInterview(ctx, *a.ChapterID, *a.Score, *a.Total, a.Notes)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errNoTutorial
	}
	return map[string]any{
		"message": fmt.Sprintf("Interview result logged: %d/%d", r.Score, r.Total),
		"result":  r,
	}, nil
}

func (d *Dispatcher) logCapstone(ctx context.Context, args json.RawMessage) (map[string]any, error) {
	var a capstoneArgs
	if err := d.validator.decode(args, &a); err != nil {
		return nil, err
	}
	r, err := d.tracker.LogCapstone(ctx, *a.PartID, *a.Completed, a.Notes)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errNoTutorial
	}
	status := "incomplete"
	if r.Completed {
		status = "completed"
	}
	return map[string]any{
		"message": "Capstone result logged: " + status,
		"result":  r,
	}, nil
}

func (d *Dispatcher) reviewQueue(ctx context.Context, args json.RawMessage) (map[string]any, error) {
	var a queueArgs
	if err := d.validator.decode(args, &a); err != nil {
		return nil, err
	}
	q, err := d.tracker.ReviewQueue(ctx, a.Limit)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, errNoTutorial
	}
	out, err := flatten(q)
	if err != nil {
		return nil, err
	}
	out["instructions"] = ReviewInstructions
	return out, nil
}

func (d *Dispatcher) logReview(ctx context.Context, args json.RawMessage) (map[string]any, error) {
	var a reviewArgs
	if err := d.validator.decode(args, &a); err != nil {
		return nil, err
	}
	res, err := d.tracker.LogReview(ctx, *a.LessonID, *a.Correct)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errNoTutorial
	}
	out, err := flatten(res)
	if err != nil {
		return nil, err
	}
	if *a.Correct {
		out["message"] = "Correct! Lesson removed from review queue."
	} else {
		out["message"] = "Incorrect. Lesson moved to end of queue for later review."
	}
	return out, nil
}

func (d *Dispatcher) resetProgress(ctx context.Context, args json.RawMessage) (map[string]any, error) {
	if err := d.validator.decode(args, &noArgs{}); err != nil {
		return nil, err
	}
	ok, err := d.tracker.Reset(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNoTutorial
	}
	return map[string]any{"message": "Progress reset. The curriculum and preferences were kept."}, nil
}

func (d *Dispatcher) getPreferences(ctx context.Context, args json.RawMessage) (map[string]any, error) {
	if err := d.validator.decode(args, &noArgs{}); err != nil {
		return nil, err
	}
	prefs, err := d.tracker.Preferences(ctx)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		return nil, errNoTutorial
	}
	return map[string]any{"preferences": prefs}, nil
}

func (d *Dispatcher) updatePreferences(ctx context.Context, args json.RawMessage) (map[string]any, error) {
	var a preferencesArgs
	if err := d.validator.decode(args, &a); err != nil {
		return nil, err
	}
	prefs, err := d.tracker.UpdatePreferences(ctx, tracker.Preferences(a.Preferences))
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		return nil, errNoTutorial
	}
	return map[string]any{"message": "Preferences updated", "preferences": prefs}, nil
}
