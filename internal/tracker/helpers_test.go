package tracker_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/learning-tracker/internal/curriculum"
	"github.com/p-n-ai/learning-tracker/internal/platform/database"
	"github.com/p-n-ai/learning-tracker/internal/tracker"
)

// testClock ticks one second per call so timestamps are ordered.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newSQLiteStore(t *testing.T) *tracker.SQLiteStore {
	t.Helper()
	db, err := database.OpenSQLiteDSN(t.Context(), database.MemoryDSN)
	require.NoError(t, err)
	store, err := tracker.NewSQLiteStore(t.Context(), db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestTracker(t *testing.T, opts ...tracker.Option) *tracker.Tracker {
	t.Helper()
	opts = append([]tracker.Option{tracker.WithClock(newTestClock().Now)}, opts...)
	return tracker.New(newSQLiteStore(t), opts...)
}

// twoLessonDef is one part with one chapter of two lessons.
func twoLessonDef() curriculum.Definition {
	return curriculum.Definition{
		Name: "Go Basics",
		Parts: []curriculum.PartDefinition{{
			Name:       "Foundations",
			Difficulty: 1,
			Chapters: []curriculum.ChapterDefinition{{
				Name: "Syntax",
				Lessons: []curriculum.LessonDefinition{
					{Name: "Variables", Concepts: []curriculum.ConceptDefinition{{Name: "var"}, {Name: ":="}}},
					{Name: "Functions", Concepts: []curriculum.ConceptDefinition{{Name: "func"}}},
				},
			}},
		}},
	}
}

// fiveLessonDef spans two parts and three chapters:
// P1{C1{L1,L2}, C2{L3}}, P2{C1{L4,L5}}.
func fiveLessonDef() curriculum.Definition {
	lesson := func(name string) curriculum.LessonDefinition {
		return curriculum.LessonDefinition{Name: name, Concepts: []curriculum.ConceptDefinition{{Name: name + " concept"}}}
	}
	return curriculum.Definition{
		Name:            "Distributed Systems",
		Type:            curriculum.TypeProgramming,
		DifficultyLevel: curriculum.LevelIntermediate,
		Parts: []curriculum.PartDefinition{
			{
				Name:       "Basics",
				Difficulty: 1,
				Chapters: []curriculum.ChapterDefinition{
					{Name: "Clocks", Lessons: []curriculum.LessonDefinition{lesson("L1"), lesson("L2")}},
					{Name: "Ordering", Lessons: []curriculum.LessonDefinition{lesson("L3")}},
				},
			},
			{
				Name:       "Consensus",
				Difficulty: 3,
				Chapters: []curriculum.ChapterDefinition{
					{Name: "Raft", Lessons: []curriculum.LessonDefinition{lesson("L4"), lesson("L5")}},
				},
			},
		},
	}
}

// lessonIDs returns the lesson IDs of a created tutorial in canonical order.
func lessonIDs(tut *curriculum.Tutorial) []int64 {
	var ids []int64
	for _, r := range tut.Walk() {
		ids = append(ids, r.Lesson.ID)
	}
	return ids
}

func queueLessonIDs(t *testing.T, q *tracker.Queue) []int64 {
	t.Helper()
	require.NotNil(t, q)
	ids := make([]int64, 0, len(q.Items))
	for _, item := range q.Items {
		ids = append(ids, item.Lesson.ID)
	}
	return ids
}

// exerciseStore drives a tracker over store through a full learning cycle.
func exerciseStore(t *testing.T, store tracker.Store) {
	t.Helper()
	ctx := t.Context()
	tr := tracker.New(store, tracker.WithClock(newTestClock().Now))

	tut, err := tr.CreateTutorial(ctx, fiveLessonDef())
	require.NoError(t, err)
	ids := lessonIDs(tut)
	require.Len(t, ids, 5)

	_, err = tr.Start(ctx)
	require.NoError(t, err)
	for range ids {
		_, err := tr.Advance(ctx)
		require.NoError(t, err)
	}

	q, err := tr.ReviewQueue(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, ids, queueLessonIDs(t, q))

	review, err := tr.LogReview(ctx, ids[0], false)
	require.NoError(t, err)
	require.NotNil(t, review.NewPosition)
	assert.Equal(t, int64(6), *review.NewPosition)

	_, err = tr.LogQuiz(ctx, ids[0], 7, 9, nil)
	require.NoError(t, err)

	detail, err := tr.Tutorial(ctx)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.True(t, detail.Tutorial.Completed)
	assert.Equal(t, tracker.StatusCompleted, detail.Progress.Status)
	require.NotNil(t, detail.Stats.QuizAverage)
	assert.InDelta(t, 77.8, *detail.Stats.QuizAverage, 1e-9)
	assert.Equal(t, 5, detail.Stats.CompletedLessons)

	ok, err := tr.Reset(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	detail, err = tr.Tutorial(ctx)
	require.NoError(t, err)
	assert.False(t, detail.Tutorial.Completed)
	assert.Equal(t, 0, detail.Stats.CompletedLessons)
	assert.Nil(t, detail.Stats.QuizAverage)

	q, err = tr.ReviewQueue(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, q.Items)
}
