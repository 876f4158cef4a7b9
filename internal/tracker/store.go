package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/p-n-ai/learning-tracker/internal/curriculum"
)

// ErrNoTutorial is returned by Store.LoadState when the store is empty.
var ErrNoTutorial = errors.New("no tutorial exists")

// Status is the state of a learner's progress through a tutorial.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Progress is the singleton position record of a tutorial.
type Progress struct {
	TutorialID      int64      `json:"tutorial_id"`
	CurrentLessonID *int64     `json:"current_lesson_id"`
	Status          Status     `json:"status"`
	StartedAt       *time.Time `json:"started_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// QueueEntry is one lesson waiting in the review queue.
type QueueEntry struct {
	LessonID int64     `json:"lesson_id"`
	Position int64     `json:"queue_position"`
	AddedAt  time.Time `json:"added_at"`
}

// QuizResult is a logged lesson quiz.
type QuizResult struct {
	ID               int64     `json:"id"`
	LessonID         int64     `json:"lesson_id"`
	Score            int       `json:"score"`
	Total            int       `json:"total"`
	MissedConceptIDs []int64   `json:"missed_concept_ids"`
	CompletedAt      time.Time `json:"completed_at"`
}

// InterviewResult is a logged end-of-chapter interview.
type InterviewResult struct {
	ID          int64     `json:"id"`
	ChapterID   int64     `json:"chapter_id"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	Notes       string    `json:"notes,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// CapstoneResult is a logged end-of-part capstone project.
type CapstoneResult struct {
	ID          int64     `json:"id"`
	PartID      int64     `json:"part_id"`
	Completed   bool      `json:"completed"`
	Notes       string    `json:"notes,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Results holds every result logged against a tutorial.
type Results struct {
	Quizzes    []QuizResult
	Interviews []InterviewResult
	Capstones  []CapstoneResult
}

// Preferences are free-form learner settings.
type Preferences map[string]any

// State is the tutorial aggregate: the tree with its progress and
// preferences singletons.
type State struct {
	Tutorial    curriculum.Tutorial
	Progress    Progress
	Preferences Preferences
}

// Advance is the set of writes produced by one position advance. A zero
// chapter or part ID means that node did not complete.
type Advance struct {
	Progress           Progress
	CompletedLessonID  int64
	CompletedChapterID int64
	CompletedPartID    int64
	// TutorialCompletedAt is set when the last lesson was completed.
	TutorialCompletedAt *time.Time
	Now                 time.Time
}

// Store persists a single tutorial and everything hanging off it.
type Store interface {
	// CreateTutorial writes the tree, a not_started progress row and the
	// preferences in one transaction, filling in the generated IDs.
	CreateTutorial(ctx context.Context, t *curriculum.Tutorial, prefs Preferences) error
	// LoadState returns ErrNoTutorial when nothing has been created.
	LoadState(ctx context.Context) (*State, error)
	SaveProgress(ctx context.Context, p Progress) error
	// ApplyAdvance flags completions, moves the pointer and enqueues the
	// completed lesson atomically.
	ApplyAdvance(ctx context.Context, a Advance) error
	ResetProgress(ctx context.Context, tutorialID int64, now time.Time) error

	QueueEntries(ctx context.Context, tutorialID int64) ([]QueueEntry, error)
	// Enqueue moves each lesson to the tail in the given order, inserting it
	// if absent. All lessons are written in one transaction.
	Enqueue(ctx context.Context, tutorialID int64, lessonIDs []int64, now time.Time) ([]QueueEntry, error)
	// Dequeue reports whether an entry was deleted.
	Dequeue(ctx context.Context, tutorialID, lessonID int64) (bool, error)

	AddQuizResult(ctx context.Context, r *QuizResult) error
	AddInterviewResult(ctx context.Context, r *InterviewResult) error
	AddCapstoneResult(ctx context.Context, r *CapstoneResult) error
	Results(ctx context.Context, tutorialID int64) (Results, error)

	SavePreferences(ctx context.Context, tutorialID int64, prefs Preferences, now time.Time) error
	Close() error
}

// assembleTree hangs flat node lists under their parents and puts every
// level into canonical order.
func assembleTree(t *curriculum.Tutorial, parts []curriculum.Part, chapters []curriculum.Chapter, lessons []curriculum.Lesson, concepts []curriculum.Concept) {
	conceptsByLesson := make(map[int64][]curriculum.Concept)
	for _, c := range concepts {
		conceptsByLesson[c.LessonID] = append(conceptsByLesson[c.LessonID], c)
	}
	lessonsByChapter := make(map[int64][]curriculum.Lesson)
	for _, l := range lessons {
		l.Concepts = conceptsByLesson[l.ID]
		lessonsByChapter[l.ChapterID] = append(lessonsByChapter[l.ChapterID], l)
	}
	chaptersByPart := make(map[int64][]curriculum.Chapter)
	for _, c := range chapters {
		c.Lessons = lessonsByChapter[c.ID]
		chaptersByPart[c.PartID] = append(chaptersByPart[c.PartID], c)
	}
	t.Parts = t.Parts[:0]
	for _, p := range parts {
		p.Chapters = chaptersByPart[p.ID]
		t.Parts = append(t.Parts, p)
	}
	t.Sort()
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
