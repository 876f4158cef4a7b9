package tracker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/learning-tracker/internal/tracker"
)

func TestLogQuiz_Validation(t *testing.T) {
	tr := newTestTracker(t)
	ctx := t.Context()

	tut, err := tr.CreateTutorial(ctx, twoLessonDef())
	require.NoError(t, err)
	lesson := tut.Parts[0].Chapters[0].Lessons[0]
	other := tut.Parts[0].Chapters[0].Lessons[1]

	tests := []struct {
		name     string
		lessonID int64
		score    int
		total    int
		missed   []int64
		wantErr  error
	}{
		{"valid", lesson.ID, 2, 3, []int64{lesson.Concepts[0].ID}, nil},
		{"perfect", lesson.ID, 3, 3, nil, nil},
		{"score above total", lesson.ID, 4, 3, nil, tracker.ErrInvalidScore},
		{"negative score", lesson.ID, -1, 3, nil, tracker.ErrInvalidScore},
		{"zero total", lesson.ID, 0, 0, nil, tracker.ErrInvalidScore},
		{"unknown lesson", 9999, 1, 2, nil, tracker.ErrUnknownLesson},
		{"concept of another lesson", lesson.ID, 1, 2, []int64{other.Concepts[0].ID}, tracker.ErrUnknownConcept},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := tr.LogQuiz(ctx, tt.lessonID, tt.score, tt.total, tt.missed)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, r.ID)
			assert.NotNil(t, r.MissedConceptIDs)
		})
	}
}

func TestLogInterviewAndCapstone_UnknownIDs(t *testing.T) {
	tr := newTestTracker(t)
	ctx := t.Context()

	_, err := tr.CreateTutorial(ctx, twoLessonDef())
	require.NoError(t, err)

	_, err = tr.LogInterview(ctx, 9999, 1, 2, "")
	assert.ErrorIs(t, err, tracker.ErrUnknownChapter)

	_, err = tr.LogCapstone(ctx, 9999, true, "")
	assert.ErrorIs(t, err, tracker.ErrUnknownPart)
}

func TestTutorial_LatestResultWins(t *testing.T) {
	tr := newTestTracker(t)
	ctx := t.Context()

	tut, err := tr.CreateTutorial(ctx, twoLessonDef())
	require.NoError(t, err)
	part := tut.Parts[0]
	chapter := part.Chapters[0]
	lesson := chapter.Lessons[0]

	_, err = tr.LogQuiz(ctx, lesson.ID, 1, 4, []int64{lesson.Concepts[1].ID})
	require.NoError(t, err)
	_, err = tr.LogQuiz(ctx, lesson.ID, 4, 4, nil)
	require.NoError(t, err)
	_, err = tr.LogInterview(ctx, chapter.ID, 2, 5, "shaky on closures")
	require.NoError(t, err)
	_, err = tr.LogInterview(ctx, chapter.ID, 5, 5, "great")
	require.NoError(t, err)
	_, err = tr.LogCapstone(ctx, part.ID, false, "missing tests")
	require.NoError(t, err)
	_, err = tr.LogCapstone(ctx, part.ID, true, "")
	require.NoError(t, err)

	detail, err := tr.Tutorial(ctx)
	require.NoError(t, err)

	pd := detail.Tutorial.Parts[0]
	require.NotNil(t, pd.LatestCapstone)
	assert.True(t, pd.LatestCapstone.Completed)

	cd := pd.Chapters[0]
	require.NotNil(t, cd.LatestInterview)
	assert.Equal(t, "great", cd.LatestInterview.Notes)

	ld := cd.Lessons[0]
	require.NotNil(t, ld.LatestQuiz)
	assert.Equal(t, 4, ld.LatestQuiz.Score)
	assert.Empty(t, ld.LatestQuiz.MissedConceptIDs)
	assert.Nil(t, cd.Lessons[1].LatestQuiz)

	require.NotNil(t, detail.Stats.QuizAverage)
	assert.InDelta(t, 62.5, *detail.Stats.QuizAverage, 1e-9)
	require.NotNil(t, detail.Stats.InterviewAverage)
	assert.InDelta(t, 70.0, *detail.Stats.InterviewAverage, 1e-9)
	assert.Equal(t, 1, detail.Stats.ChaptersInterviewed)
}
