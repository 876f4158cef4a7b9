// Package export renders a tutorial's progress as an XLSX workbook and as an
// offline Markdown or PDF book.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/learning-tracker/internal/tracker"
)

// Sheet names in the progress workbook.
const (
	SheetCurriculum = "Curriculum"
	SheetQueue      = "Review Queue"
	SheetStats      = "Stats"
)

// Workbook builds the progress workbook. The caller must Close the file.
func Workbook(d *tracker.Detail) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetCurriculum); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetQueue, SheetStats} {
		if _, err := f.NewSheet(name); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for _, fill := range []func(*excelize.File, *tracker.Detail, int) error{
		fillCurriculum, fillQueue, fillStats,
	} {
		if err := fill(f, d, header); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return f, nil
}

// WriteWorkbook streams the progress workbook to w.
func WriteWorkbook(w io.Writer, d *tracker.Detail) error {
	f, err := Workbook(d)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func fillCurriculum(f *excelize.File, d *tracker.Detail, header int) error {
	rows := [][]any{{"Part", "Difficulty", "Chapter", "Lesson", "Concepts", "Completed", "Latest quiz", "Chapter interview", "Part capstone"}}
	for _, p := range d.Tutorial.Parts {
		capstone := ""
		if p.LatestCapstone != nil {
			capstone = completedLabel(p.LatestCapstone.Completed)
		}
		for _, c := range p.Chapters {
			interview := ""
			if c.LatestInterview != nil {
				interview = scoreLabel(c.LatestInterview.Score, c.LatestInterview.Total)
			}
			for _, l := range c.Lessons {
				quiz := ""
				if l.LatestQuiz != nil {
					quiz = scoreLabel(l.LatestQuiz.Score, l.LatestQuiz.Total)
				}
				names := make([]string, 0, len(l.Concepts))
				for _, cc := range l.Concepts {
					names = append(names, cc.Name)
				}
				rows = append(rows, []any{
					p.Name, p.Difficulty, c.Name, l.Name, strings.Join(names, ", "),
					yesNo(l.Completed), quiz, interview, capstone,
				})
			}
		}
	}
	if err := writeRows(f, SheetCurriculum, rows); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetCurriculum, "A", "E", 28); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return styleHeader(f, SheetCurriculum, header)
}

func fillQueue(f *excelize.File, d *tracker.Detail, header int) error {
	names := lessonNames(d)
	rows := [][]any{{"Position", "Lesson", "Added at"}}
	for _, e := range d.ReviewQueue {
		rows = append(rows, []any{e.Position, names[e.LessonID], e.AddedAt.UTC().Format(time.RFC3339)})
	}
	if err := writeRows(f, SheetQueue, rows); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetQueue, "B", "C", 28); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return styleHeader(f, SheetQueue, header)
}

func fillStats(f *excelize.File, d *tracker.Detail, header int) error {
	s := d.Stats
	rows := [][]any{
		{"Metric", "Value"},
		{"Tutorial", d.Tutorial.Name},
		{"Status", string(d.Progress.Status)},
		{"Lessons completed", fmt.Sprintf("%d/%d", s.CompletedLessons, s.TotalLessons)},
		{"Concepts", s.TotalConcepts},
		{"Average quiz score", percentLabel(s.QuizAverage)},
		{"Chapters interviewed", fmt.Sprintf("%d/%d", s.ChaptersInterviewed, s.TotalChapters)},
		{"Average interview score", percentLabel(s.InterviewAverage)},
		{"Lessons awaiting review", len(d.ReviewQueue)},
	}
	if err := writeRows(f, SheetStats, rows); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetStats, "A", "B", 28); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return styleHeader(f, SheetStats, header)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to resolve cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func styleHeader(f *excelize.File, sheet string, style int) error {
	if err := f.SetRowStyle(sheet, 1, 1, style); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}
	return nil
}

func lessonNames(d *tracker.Detail) map[int64]string {
	names := make(map[int64]string)
	for _, p := range d.Tutorial.Parts {
		for _, c := range p.Chapters {
			for _, l := range c.Lessons {
				names[l.ID] = l.Name
			}
		}
	}
	return names
}

func scoreLabel(score, total int) string {
	return fmt.Sprintf("%d/%d", score, total)
}

func percentLabel(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func completedLabel(b bool) string {
	if b {
		return "completed"
	}
	return "incomplete"
}
