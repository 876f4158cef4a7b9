package tracker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/learning-tracker/internal/curriculum"
	"github.com/p-n-ai/learning-tracker/internal/tracker"
)

func TestCreateTutorial(t *testing.T) {
	tr := newTestTracker(t)
	ctx := t.Context()

	tut, err := tr.CreateTutorial(ctx, fiveLessonDef())
	require.NoError(t, err)
	assert.NotZero(t, tut.ID)
	assert.Equal(t, curriculum.TypeProgramming, tut.Type)
	assert.Len(t, lessonIDs(tut), 5)

	detail, err := tr.Tutorial(ctx)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, "Distributed Systems", detail.Tutorial.Name)
	assert.Equal(t, tracker.StatusNotStarted, detail.Progress.Status)
	assert.Nil(t, detail.Progress.CurrentLessonID)
	require.Len(t, detail.Tutorial.Parts, 2)
	assert.Equal(t, "Consensus", detail.Tutorial.Parts[1].Name)
	assert.Equal(t, 3, detail.Tutorial.Parts[1].Difficulty)
	assert.Equal(t, 5, detail.Stats.TotalLessons)
	assert.Equal(t, 5, detail.Stats.TotalConcepts)
	assert.Equal(t, 3, detail.Stats.TotalChapters)
}

func TestCreateTutorial_AlreadyExists(t *testing.T) {
	tr := newTestTracker(t)
	ctx := t.Context()

	_, err := tr.CreateTutorial(ctx, twoLessonDef())
	require.NoError(t, err)

	_, err = tr.CreateTutorial(ctx, fiveLessonDef())
	assert.ErrorIs(t, err, tracker.ErrTutorialExists)
}

func TestCreateTutorial_Invalid(t *testing.T) {
	tr := newTestTracker(t)

	def := twoLessonDef()
	def.Parts[0].Difficulty = 4

	_, err := tr.CreateTutorial(t.Context(), def)
	var verr *curriculum.ValidationError
	require.ErrorAs(t, err, &verr)

	detail, err := tr.Tutorial(t.Context())
	require.NoError(t, err)
	assert.Nil(t, detail, "nothing should be written for an invalid payload")
}

func TestNoTutorial_ReturnsNil(t *testing.T) {
	tr := newTestTracker(t)
	ctx := t.Context()

	detail, err := tr.Tutorial(ctx)
	require.NoError(t, err)
	assert.Nil(t, detail)

	pos, err := tr.CurrentPosition(ctx)
	require.NoError(t, err)
	assert.Nil(t, pos)

	progress, err := tr.Start(ctx)
	require.NoError(t, err)
	assert.Nil(t, progress)

	adv, err := tr.Advance(ctx)
	require.NoError(t, err)
	assert.Nil(t, adv)

	q, err := tr.ReviewQueue(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, q)

	review, err := tr.LogReview(ctx, 1, true)
	require.NoError(t, err)
	assert.Nil(t, review)

	ok, err := tr.Reset(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	prefs, err := tr.Preferences(ctx)
	require.NoError(t, err)
	assert.Nil(t, prefs)
}

// Create 1 part → 1 chapter → 2 lessons, start, advance twice.
func TestScenario_TwoLessons(t *testing.T) {
	tr := newTestTracker(t)
	ctx := t.Context()

	tut, err := tr.CreateTutorial(ctx, twoLessonDef())
	require.NoError(t, err)
	ids := lessonIDs(tut)
	l1, l2 := ids[0], ids[1]

	progress, err := tr.Start(ctx)
	require.NoError(t, err)
	require.NotNil(t, progress.CurrentLessonID)
	assert.Equal(t, l1, *progress.CurrentLessonID)
	assert.Equal(t, tracker.StatusInProgress, progress.Status)
	assert.NotNil(t, progress.StartedAt)

	adv, err := tr.Advance(ctx)
	require.NoError(t, err)
	require.NotNil(t, adv.PreviousLesson)
	require.NotNil(t, adv.NewLesson)
	assert.Equal(t, l1, adv.PreviousLesson.ID)
	assert.True(t, adv.PreviousLesson.Completed)
	assert.Equal(t, l2, adv.NewLesson.ID)
	assert.False(t, adv.ChapterCompleted)
	assert.False(t, adv.PartCompleted)
	assert.False(t, adv.TutorialCompleted)

	q, err := tr.ReviewQueue(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{l1}, queueLessonIDs(t, q))

	adv, err = tr.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, l2, adv.PreviousLesson.ID)
	assert.Nil(t, adv.NewLesson)
	assert.True(t, adv.ChapterCompleted)
	assert.True(t, adv.PartCompleted)
	assert.True(t, adv.TutorialCompleted)

	q, err = tr.ReviewQueue(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{l1, l2}, queueLessonIDs(t, q))
	assert.False(t, q.Replenished)

	detail, err := tr.Tutorial(ctx)
	require.NoError(t, err)
	assert.True(t, detail.Tutorial.Completed)
	assert.NotNil(t, detail.Tutorial.CompletedAt)
	assert.True(t, detail.Tutorial.Parts[0].Completed)
	assert.True(t, detail.Tutorial.Parts[0].Chapters[0].Completed)
	assert.Equal(t, tracker.StatusCompleted, detail.Progress.Status)
	assert.Nil(t, detail.Progress.CurrentLessonID)
}

func TestAdvance_BoundaryFlags(t *testing.T) {
	tr := newTestTracker(t)
	ctx := t.Context()

	tut, err := tr.CreateTutorial(ctx, fiveLessonDef())
	require.NoError(t, err)
	ids := lessonIDs(tut)
	_, err = tr.Start(ctx)
	require.NoError(t, err)

	tests := []struct {
		previous int64
		chapter  bool
		part     bool
		tutorial bool
	}{
		{ids[0], false, false, false},
		{ids[1], true, false, false},
		{ids[2], true, true, false},
		{ids[3], false, false, false},
		{ids[4], true, true, true},
	}
	for i, tt := range tests {
		adv, err := tr.Advance(ctx)
		require.NoError(t, err)
		require.NotNil(t, adv.PreviousLesson, "advance %d", i+1)
		assert.Equal(t, tt.previous, adv.PreviousLesson.ID, "advance %d", i+1)
		assert.Equal(t, tt.chapter, adv.ChapterCompleted, "advance %d chapter", i+1)
		assert.Equal(t, tt.part, adv.PartCompleted, "advance %d part", i+1)
		assert.Equal(t, tt.tutorial, adv.TutorialCompleted, "advance %d tutorial", i+1)
	}
}

func TestAdvance_NTimesCompletesThenNoop(t *testing.T) {
	tr := newTestTracker(t)
	ctx := t.Context()

	tut, err := tr.CreateTutorial(ctx, fiveLessonDef())
	require.NoError(t, err)
	ids := lessonIDs(tut)
	_, err = tr.Start(ctx)
	require.NoError(t, err)

	for i := range ids {
		_, err := tr.Advance(ctx)
		require.NoError(t, err)

		q, err := tr.ReviewQueue(ctx, 0)
		require.NoError(t, err)
		got := queueLessonIDs(t, q)
		assert.Equal(t, ids[:i+1], got, "each advance enqueues exactly the completed lesson")
	}

	pos, err := tr.CurrentPosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, tracker.StatusCompleted, pos.Status)

	detail, err := tr.Tutorial(ctx)
	require.NoError(t, err)
	assert.Nil(t, detail.Progress.CurrentLessonID)

	adv, err := tr.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, &tracker.AdvanceResult{}, adv)

	q, err := tr.ReviewQueue(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, q.Items, len(ids))
}

// Advancing with no active lesson succeeds with an empty result instead of
// failing, even though the tutorial was never started.
func TestAdvance_WithoutActiveLessonIsNoop(t *testing.T) {
	tr := newTestTracker(t)
	ctx := t.Context()

	_, err := tr.CreateTutorial(ctx, twoLessonDef())
	require.NoError(t, err)

	adv, err := tr.Advance(ctx)
	require.NoError(t, err)
	require.NotNil(t, adv)
	assert.Nil(t, adv.PreviousLesson)
	assert.Nil(t, adv.NewLesson)
	assert.False(t, adv.ChapterCompleted)
	assert.False(t, adv.PartCompleted)
	assert.False(t, adv.TutorialCompleted)

	pos, err := tr.CurrentPosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, tracker.StatusNotStarted, pos.Status)

	q, err := tr.ReviewQueue(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, q.Items)
}

func TestStart_NoLessons(t *testing.T) {
	tr := newTestTracker(t)
	ctx := t.Context()

	def := curriculum.Definition{
		Name:  "Empty",
		Parts: []curriculum.PartDefinition{{Name: "Nothing yet", Difficulty: 1, Chapters: []curriculum.ChapterDefinition{}}},
	}
	_, err := tr.CreateTutorial(ctx, def)
	require.NoError(t, err)

	_, err = tr.Start(ctx)
	assert.ErrorIs(t, err, tracker.ErrNoLessons)

	pos, err := tr.CurrentPosition(ctx)
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, tracker.StatusNotStarted, pos.Status)
	assert.Nil(t, pos.Lesson)
	assert.Nil(t, pos.Chapter)
	assert.Nil(t, pos.Part)
	assert.Nil(t, pos.Coordinate)
	assert.False(t, pos.IsChapterStart)
}

func TestStart_RewindsToFirstLesson(t *testing.T) {
	tr := newTestTracker(t)
	ctx := t.Context()

	tut, err := tr.CreateTutorial(ctx, fiveLessonDef())
	require.NoError(t, err)
	ids := lessonIDs(tut)

	_, err = tr.Start(ctx)
	require.NoError(t, err)
	_, err = tr.Advance(ctx)
	require.NoError(t, err)
	_, err = tr.Advance(ctx)
	require.NoError(t, err)

	progress, err := tr.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids[0], *progress.CurrentLessonID)

	// Completing L1 again relocates it instead of duplicating it.
	_, err = tr.Advance(ctx)
	require.NoError(t, err)
	q, err := tr.ReviewQueue(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[1], ids[0]}, queueLessonIDs(t, q))
}

func TestCurrentPosition(t *testing.T) {
	tr := newTestTracker(t)
	ctx := t.Context()

	tut, err := tr.CreateTutorial(ctx, fiveLessonDef())
	require.NoError(t, err)
	ids := lessonIDs(tut)

	pos, err := tr.CurrentPosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Distributed Systems", pos.TutorialName)
	assert.Equal(t, tracker.StatusNotStarted, pos.Status)
	require.NotNil(t, pos.Lesson)
	assert.Equal(t, ids[0], pos.Lesson.ID, "defaults to the first lesson")
	assert.Equal(t, curriculum.Coordinate{Part: 1, Chapter: 1, Lesson: 1}, *pos.Coordinate)
	assert.True(t, pos.IsChapterStart)
	assert.Empty(t, pos.Chapter.Lessons, "chapter is returned without children")
	assert.Len(t, pos.Lesson.Concepts, 1)

	_, err = tr.Start(ctx)
	require.NoError(t, err)
	_, err = tr.Advance(ctx)
	require.NoError(t, err)

	pos, err = tr.CurrentPosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids[1], pos.Lesson.ID)
	assert.Equal(t, curriculum.Coordinate{Part: 1, Chapter: 1, Lesson: 2}, *pos.Coordinate)
	assert.False(t, pos.IsChapterStart)

	_, err = tr.Advance(ctx)
	require.NoError(t, err)
	_, err = tr.Advance(ctx)
	require.NoError(t, err)

	pos, err = tr.CurrentPosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids[3], pos.Lesson.ID)
	assert.Equal(t, "Consensus", pos.Part.Name)
	assert.Equal(t, curriculum.Coordinate{Part: 2, Chapter: 1, Lesson: 1}, *pos.Coordinate)
	assert.True(t, pos.IsChapterStart)
}

func TestReset(t *testing.T) {
	tr := newTestTracker(t)
	ctx := t.Context()

	tut, err := tr.CreateTutorial(ctx, twoLessonDef())
	require.NoError(t, err)
	ids := lessonIDs(tut)

	_, err = tr.UpdatePreferences(ctx, tracker.Preferences{"offline_book": true})
	require.NoError(t, err)
	_, err = tr.Start(ctx)
	require.NoError(t, err)
	_, err = tr.Advance(ctx)
	require.NoError(t, err)
	_, err = tr.Advance(ctx)
	require.NoError(t, err)
	_, err = tr.LogQuiz(ctx, ids[0], 3, 4, nil)
	require.NoError(t, err)
	_, err = tr.LogInterview(ctx, tut.Parts[0].Chapters[0].ID, 4, 5, "solid")
	require.NoError(t, err)
	_, err = tr.LogCapstone(ctx, tut.Parts[0].ID, true, "")
	require.NoError(t, err)

	for i := range 2 {
		ok, err := tr.Reset(ctx)
		require.NoError(t, err)
		assert.True(t, ok, "reset %d", i+1)

		detail, err := tr.Tutorial(ctx)
		require.NoError(t, err)
		assert.Equal(t, tracker.StatusNotStarted, detail.Progress.Status)
		assert.Nil(t, detail.Progress.CurrentLessonID)
		assert.Nil(t, detail.Progress.StartedAt)
		assert.False(t, detail.Tutorial.Completed)
		assert.Nil(t, detail.Tutorial.CompletedAt)
		for _, p := range detail.Tutorial.Parts {
			assert.False(t, p.Completed)
			assert.Nil(t, p.LatestCapstone)
			for _, c := range p.Chapters {
				assert.False(t, c.Completed)
				assert.Nil(t, c.LatestInterview)
				for _, l := range c.Lessons {
					assert.False(t, l.Completed)
					assert.Nil(t, l.LatestQuiz)
				}
			}
		}
		assert.Nil(t, detail.Stats.QuizAverage)
		assert.Nil(t, detail.Stats.InterviewAverage)
		assert.Equal(t, true, detail.Preferences["offline_book"], "preferences survive a reset")

		q, err := tr.ReviewQueue(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, q.Items)
	}
}

func TestSQLiteStore_FullCycle(t *testing.T) {
	exerciseStore(t, newSQLiteStore(t))
}
