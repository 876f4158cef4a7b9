package tracker

import (
	"math"

	"github.com/p-n-ai/learning-tracker/internal/curriculum"
)

// Stats summarises completion and scores for a tutorial.
type Stats struct {
	TotalLessons        int      `json:"total_lessons"`
	CompletedLessons    int      `json:"completed_lessons"`
	TotalConcepts       int      `json:"total_concepts"`
	QuizAverage         *float64 `json:"average_quiz_score"`
	TotalChapters       int      `json:"total_interviews"`
	ChaptersInterviewed int      `json:"completed_interviews"`
	InterviewAverage    *float64 `json:"average_interview_score"`
}

// ComputeStats derives stats from a loaded tree and its result logs.
// Averages are percentages rounded to one decimal and nil when nothing has
// been logged.
func ComputeStats(tut *curriculum.Tutorial, results Results) Stats {
	var s Stats
	for _, ref := range tut.Walk() {
		s.TotalLessons++
		if ref.Lesson.Completed {
			s.CompletedLessons++
		}
		s.TotalConcepts += len(ref.Lesson.Concepts)
	}
	s.TotalChapters = tut.ChapterCount()

	quiz := make([][2]int, 0, len(results.Quizzes))
	for _, q := range results.Quizzes {
		quiz = append(quiz, [2]int{q.Score, q.Total})
	}
	s.QuizAverage = averagePercent(quiz)

	interviewed := make(map[int64]struct{})
	interview := make([][2]int, 0, len(results.Interviews))
	for _, r := range results.Interviews {
		interviewed[r.ChapterID] = struct{}{}
		interview = append(interview, [2]int{r.Score, r.Total})
	}
	s.ChaptersInterviewed = len(interviewed)
	s.InterviewAverage = averagePercent(interview)

	return s
}

// averagePercent averages score/total*100 over attempts, rounded to one
// decimal.
func averagePercent(attempts [][2]int) *float64 {
	var sum float64
	n := 0
	for _, a := range attempts {
		if a[1] <= 0 {
			continue
		}
		sum += float64(a[0]) / float64(a[1]) * 100
		n++
	}
	if n == 0 {
		return nil
	}
	avg := math.Round(sum/float64(n)*10) / 10
	return &avg
}
