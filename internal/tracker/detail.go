package tracker

import (
	"context"
	"fmt"

	"github.com/p-n-ai/learning-tracker/internal/curriculum"
)

// Detail is the full read model of a tutorial.
type Detail struct {
	Tutorial    TutorialDetail `json:"tutorial"`
	Progress    Progress       `json:"progress"`
	Preferences Preferences    `json:"preferences"`
	Stats       Stats          `json:"stats"`
	ReviewQueue []QueueEntry   `json:"review_queue"`
}

// TutorialDetail is the tree annotated with the latest result of each node.
type TutorialDetail struct {
	curriculum.Tutorial
	Parts []PartDetail `json:"parts"`
}

type PartDetail struct {
	curriculum.Part
	Chapters       []ChapterDetail `json:"chapters"`
	LatestCapstone *CapstoneResult `json:"latest_capstone"`
}

type ChapterDetail struct {
	curriculum.Chapter
	Lessons         []LessonDetail   `json:"lessons"`
	LatestInterview *InterviewResult `json:"latest_interview"`
}

type LessonDetail struct {
	curriculum.Lesson
	LatestQuiz *QuizResult `json:"latest_quiz"`
}

// Tutorial returns the tutorial with progress, preferences, stats and the
// pending review queue, or nil when none exists. It never replenishes the
// queue.
func (t *Tracker) Tutorial(ctx context.Context) (*Detail, error) {
	state, err := t.load(ctx)
	if err != nil || state == nil {
		return nil, err
	}
	results, err := t.store.Results(ctx, state.Tutorial.ID)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	entries, err := t.store.QueueEntries(ctx, state.Tutorial.ID)
	if err != nil {
		return nil, fmt.Errorf("read review queue: %w", err)
	}
	d := buildDetail(state, results)
	d.ReviewQueue = entries
	if d.ReviewQueue == nil {
		d.ReviewQueue = []QueueEntry{}
	}
	return d, nil
}

func buildDetail(state *State, results Results) *Detail {
	quizzes := latestBy(results.Quizzes, func(r QuizResult) (int64, resultKey) {
		return r.LessonID, resultKey{r.CompletedAt.UnixNano(), r.ID}
	})
	interviews := latestBy(results.Interviews, func(r InterviewResult) (int64, resultKey) {
		return r.ChapterID, resultKey{r.CompletedAt.UnixNano(), r.ID}
	})
	capstones := latestBy(results.Capstones, func(r CapstoneResult) (int64, resultKey) {
		return r.PartID, resultKey{r.CompletedAt.UnixNano(), r.ID}
	})

	tut := state.Tutorial
	td := TutorialDetail{Tutorial: tut, Parts: make([]PartDetail, 0, len(tut.Parts))}
	td.Tutorial.Parts = nil
	for _, p := range tut.Parts {
		pd := PartDetail{Part: p, Chapters: make([]ChapterDetail, 0, len(p.Chapters)), LatestCapstone: capstones[p.ID]}
		pd.Part.Chapters = nil
		for _, c := range p.Chapters {
			cd := ChapterDetail{Chapter: c, Lessons: make([]LessonDetail, 0, len(c.Lessons)), LatestInterview: interviews[c.ID]}
			cd.Chapter.Lessons = nil
			for _, l := range c.Lessons {
				cd.Lessons = append(cd.Lessons, LessonDetail{Lesson: l, LatestQuiz: quizzes[l.ID]})
			}
			pd.Chapters = append(pd.Chapters, cd)
		}
		td.Parts = append(td.Parts, pd)
	}

	prefs := state.Preferences
	if prefs == nil {
		prefs = Preferences{}
	}
	return &Detail{
		Tutorial:    td,
		Progress:    state.Progress,
		Preferences: prefs,
		Stats:       ComputeStats(&state.Tutorial, results),
	}
}

type resultKey struct {
	at int64
	id int64
}

func (k resultKey) after(o resultKey) bool {
	if k.at != o.at {
		return k.at > o.at
	}
	return k.id > o.id
}

// latestBy indexes the most recent result per owner, breaking timestamp
// ties by ID.
func latestBy[T any](results []T, key func(T) (int64, resultKey)) map[int64]*T {
	latest := make(map[int64]*T)
	keys := make(map[int64]resultKey)
	for i := range results {
		owner, k := key(results[i])
		if prev, ok := keys[owner]; ok && !k.after(prev) {
			continue
		}
		keys[owner] = k
		latest[owner] = &results[i]
	}
	return latest
}
