package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"

	"github.com/p-n-ai/learning-tracker/internal/curriculum"
	"github.com/p-n-ai/learning-tracker/internal/toolapi"
	"github.com/p-n-ai/learning-tracker/internal/tracker"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	noticeColor  = color.New(color.FgYellow)
	faintColor   = color.New(color.Faint)
)

type printer struct {
	w    io.Writer
	json bool
}

// raw prints resp as indented JSON when --json is set and reports whether it
// did.
func (p *printer) raw(resp toolapi.Response) bool {
	if !p.json {
		return false
	}
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(resp)
	return true
}

func (p *printer) success(format string, args ...any) {
	successColor.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) notice(format string, args ...any) {
	noticeColor.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) position(pos tracker.Position) {
	headingColor.Fprintf(p.w, "%s", pos.TutorialName)
	faintColor.Fprintf(p.w, " [%s]\n", pos.Status)
	if pos.Lesson == nil || pos.Coordinate == nil {
		p.notice("The tutorial has no lessons yet.")
		return
	}
	c := pos.Coordinate
	fmt.Fprintf(p.w, "Part %d: %s\n", c.Part, pos.Part.Name)
	fmt.Fprintf(p.w, "  Chapter %d.%d: %s\n", c.Part, c.Chapter, pos.Chapter.Name)
	fmt.Fprintf(p.w, "    Lesson %d.%d.%d: %s", c.Part, c.Chapter, c.Lesson, pos.Lesson.Name)
	if pos.IsChapterStart {
		faintColor.Fprint(p.w, " (start of chapter)")
	}
	fmt.Fprintln(p.w)
	p.concepts("      ", pos.Lesson.Concepts)
}

func (p *printer) concepts(indent string, concepts []curriculum.Concept) {
	for _, c := range concepts {
		if c.Description != "" {
			fmt.Fprintf(p.w, "%s- %s: %s\n", indent, c.Name, c.Description)
		} else {
			fmt.Fprintf(p.w, "%s- %s\n", indent, c.Name)
		}
	}
}

func (p *printer) advance(res tracker.AdvanceResult) {
	if res.PreviousLesson == nil {
		p.notice("No active lesson to advance. Run 'tracker start' first.")
		return
	}
	p.success("Completed: %s", res.PreviousLesson.Name)
	if res.ChapterCompleted {
		p.success("Chapter completed!")
	}
	if res.PartCompleted {
		p.success("Part completed!")
	}
	if res.TutorialCompleted {
		p.success("Tutorial completed!")
		return
	}
	if res.NewLesson != nil {
		fmt.Fprintf(p.w, "Next: %s\n", res.NewLesson.Name)
	}
}

func (p *printer) queue(q tracker.Queue) {
	if q.Replenished {
		p.notice("The tutorial is complete, so every lesson was queued for review again.")
	}
	if q.Count == 0 {
		p.success("Nothing to review.")
		return
	}
	headingColor.Fprintf(p.w, "%d lesson(s) awaiting review\n", q.Count)
	for _, item := range q.Items {
		names := make([]string, 0, len(item.Concepts))
		for _, c := range item.Concepts {
			names = append(names, c.Name)
		}
		fmt.Fprintf(p.w, "  #%d  [lesson %d] %s", item.Position, item.Lesson.ID, item.Lesson.Name)
		if len(names) > 0 {
			faintColor.Fprintf(p.w, " (concepts: %s)", strings.Join(names, ", "))
		}
		fmt.Fprintln(p.w)
	}
	if len(q.Items) < q.Count {
		faintColor.Fprintf(p.w, "  ... and %d more\n", q.Count-len(q.Items))
	}
}

func (p *printer) stats(d tracker.Detail) {
	s := d.Stats
	headingColor.Fprintf(p.w, "%s\n", d.Tutorial.Name)
	fmt.Fprintf(p.w, "Status:        %s\n", d.Progress.Status)
	fmt.Fprintf(p.w, "Lessons:       %d/%d completed\n", s.CompletedLessons, s.TotalLessons)
	fmt.Fprintf(p.w, "Concepts:      %d\n", s.TotalConcepts)
	fmt.Fprintf(p.w, "Quizzes:       %s average\n", percent(s.QuizAverage))
	fmt.Fprintf(p.w, "Interviews:    %d/%d chapters, %s average\n", s.ChaptersInterviewed, s.TotalChapters, percent(s.InterviewAverage))
	fmt.Fprintf(p.w, "Review queue:  %d lesson(s)\n", len(d.ReviewQueue))
}

func (p *printer) tree(d tracker.Detail) {
	headingColor.Fprintf(p.w, "%s", d.Tutorial.Name)
	faintColor.Fprintf(p.w, " [%s, %s, %s]\n", d.Tutorial.Type, d.Tutorial.DifficultyLevel, d.Progress.Status)
	var current int64
	if d.Progress.CurrentLessonID != nil {
		current = *d.Progress.CurrentLessonID
	}
	for _, part := range d.Tutorial.Parts {
		fmt.Fprintf(p.w, "%s Part %d: %s (difficulty %d, id %d)\n", mark(part.Completed), part.SortOrder, part.Name, part.Difficulty, part.ID)
		for _, ch := range part.Chapters {
			fmt.Fprintf(p.w, "  %s Chapter %d: %s (id %d)", mark(ch.Completed), ch.SortOrder, ch.Name, ch.ID)
			if ch.LatestInterview != nil {
				faintColor.Fprintf(p.w, " interview %d/%d", ch.LatestInterview.Score, ch.LatestInterview.Total)
			}
			fmt.Fprintln(p.w)
			for _, l := range ch.Lessons {
				line := fmt.Sprintf("    %s Lesson %d: %s (id %d)", mark(l.Completed), l.SortOrder, l.Name, l.ID)
				if l.ID == current {
					successColor.Fprint(p.w, line+" <- current")
				} else {
					fmt.Fprint(p.w, line)
				}
				if l.LatestQuiz != nil {
					faintColor.Fprintf(p.w, " quiz %d/%d", l.LatestQuiz.Score, l.LatestQuiz.Total)
				}
				fmt.Fprintln(p.w)
			}
		}
		if part.LatestCapstone != nil {
			status := "incomplete"
			if part.LatestCapstone.Completed {
				status = "completed"
			}
			faintColor.Fprintf(p.w, "  capstone: %s\n", status)
		}
	}
}

func (p *printer) preferences(prefs map[string]any) {
	if len(prefs) == 0 {
		faintColor.Fprintln(p.w, "No preferences set.")
		return
	}
	keys := make([]string, 0, len(prefs))
	for k := range prefs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(p.w, "%s = %v\n", k, prefs[k])
	}
}

func mark(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func percent(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *v)
}
