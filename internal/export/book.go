package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mandolyte/mdtopdf"

	"github.com/p-n-ai/learning-tracker/internal/tracker"
)

// Book renders the curriculum as a Markdown document the learner can read
// offline, with completion marks and the latest result of each node.
func Book(d *tracker.Detail) []byte {
	var b bytes.Buffer
	t := d.Tutorial

	fmt.Fprintf(&b, "# %s\n\n", t.Name)
	if t.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", t.Description)
	}
	fmt.Fprintf(&b, "- Level: %s\n", t.DifficultyLevel)
	fmt.Fprintf(&b, "- Progress: %d/%d lessons completed\n", d.Stats.CompletedLessons, d.Stats.TotalLessons)
	if d.Stats.QuizAverage != nil {
		fmt.Fprintf(&b, "- Average quiz score: %.1f%%\n", *d.Stats.QuizAverage)
	}
	if d.Stats.InterviewAverage != nil {
		fmt.Fprintf(&b, "- Average interview score: %.1f%%\n", *d.Stats.InterviewAverage)
	}
	b.WriteString("\n")

	for i, p := range t.Parts {
		fmt.Fprintf(&b, "## Part %d: %s%s\n\n", i+1, p.Name, doneMark(p.Completed))
		fmt.Fprintf(&b, "Difficulty: %d/3\n\n", p.Difficulty)
		if p.LatestCapstone != nil {
			fmt.Fprintf(&b, "Capstone: %s\n\n", completedLabel(p.LatestCapstone.Completed))
		}
		for j, c := range p.Chapters {
			fmt.Fprintf(&b, "### %d.%d %s%s\n\n", i+1, j+1, c.Name, doneMark(c.Completed))
			if c.Description != "" {
				fmt.Fprintf(&b, "%s\n\n", c.Description)
			}
			if c.LatestInterview != nil {
				fmt.Fprintf(&b, "Interview: %s\n\n", scoreLabel(c.LatestInterview.Score, c.LatestInterview.Total))
			}
			for k, l := range c.Lessons {
				fmt.Fprintf(&b, "#### %d.%d.%d %s%s\n\n", i+1, j+1, k+1, l.Name, doneMark(l.Completed))
				if l.Description != "" {
					fmt.Fprintf(&b, "%s\n\n", l.Description)
				}
				for _, cc := range l.Concepts {
					if cc.Description != "" {
						fmt.Fprintf(&b, "- **%s**: %s\n", cc.Name, cc.Description)
					} else {
						fmt.Fprintf(&b, "- **%s**\n", cc.Name)
					}
				}
				if len(l.Concepts) > 0 {
					b.WriteString("\n")
				}
				if l.LatestQuiz != nil {
					fmt.Fprintf(&b, "Quiz: %s\n\n", scoreLabel(l.LatestQuiz.Score, l.LatestQuiz.Total))
				}
			}
		}
	}

	if len(d.ReviewQueue) > 0 {
		names := lessonNames(d)
		b.WriteString("## Review queue\n\n")
		for i, e := range d.ReviewQueue {
			fmt.Fprintf(&b, "%d. %s\n", i+1, names[e.LessonID])
		}
		b.WriteString("\n")
	}
	return b.Bytes()
}

// WritePDF renders Markdown to a PDF file at path and returns its absolute
// path.
func WritePDF(markdown []byte, path string) (string, error) {
	if !strings.HasSuffix(path, ".pdf") {
		return "", fmt.Errorf("output file must have .pdf extension: %s", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating output directory: %w", err)
		}
	}

	renderer := mdtopdf.NewPdfRenderer("P", "A4", path, "", nil, mdtopdf.LIGHT)
	if err := renderer.Process(markdown); err != nil {
		return "", fmt.Errorf("rendering PDF: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

func doneMark(done bool) string {
	if done {
		return " (completed)"
	}
	return ""
}
