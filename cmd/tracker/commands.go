package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/learning-tracker/internal/curriculum"
	"github.com/p-n-ai/learning-tracker/internal/export"
	"github.com/p-n-ai/learning-tracker/internal/toolapi"
	"github.com/p-n-ai/learning-tracker/internal/tracker"
)

// runWithSession opens a session for the duration of fn.
func runWithSession(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, s *session, p *printer) error) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s, &printer{w: cmd.OutOrStdout(), json: opts.jsonOutput})
}

func newCreateCommand(opts *rootOptions) *cobra.Command {
	var file string

	command := &cobra.Command{
		Use:   "create",
		Short: "Create the tutorial from a YAML or JSON curriculum file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			def, err := curriculum.LoadFile(file)
			if err != nil {
				return err
			}
			return runWithSession(cmd, opts, func(ctx context.Context, s *session, p *printer) error {
				resp, err := s.call(ctx, "create_tutorial", def)
				if err != nil {
					return err
				}
				if p.raw(resp) {
					return nil
				}
				p.success("%v", resp["message"])
				fmt.Fprintf(p.w, "Run 'tracker start' to begin.\n")
				return nil
			})
		},
	}

	command.Flags().StringVarP(&file, "file", "f", "", "Curriculum file (.yaml, .yml or .json)")
	_ = command.MarkFlagRequired("file")
	return command
}

func newTemplateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "template",
		Short: "Print an example curriculum file to start from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := curriculum.MarshalYAML(templateDefinition())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func templateDefinition() curriculum.Definition {
	return curriculum.Definition{
		Name:            "Introduction to Go",
		Description:     "Learn the Go programming language from the ground up.",
		Type:            curriculum.TypeProgramming,
		DifficultyLevel: curriculum.LevelBeginner,
		Preferences:     map[string]any{tracker.PrefLanguage: "en", tracker.PrefOfflineBook: false},
		Parts: []curriculum.PartDefinition{{
			Name:       "Foundations",
			Difficulty: 1,
			Chapters: []curriculum.ChapterDefinition{{
				Name:        "Basics",
				Description: "Syntax and the toolchain.",
				Lessons: []curriculum.LessonDefinition{
					{
						Name: "Hello, world",
						Concepts: []curriculum.ConceptDefinition{
							{Name: "package main", Description: "Executable programs start in package main."},
							{Name: "go run"},
						},
					},
					{
						Name: "Variables",
						Concepts: []curriculum.ConceptDefinition{
							{Name: "var declarations"},
							{Name: "short variable declarations"},
						},
					},
				},
			}},
		}},
	}
}

func newStartCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the tutorial at its first lesson",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithSession(cmd, opts, func(ctx context.Context, s *session, p *printer) error {
				resp, err := s.call(ctx, "start_tutorial", nil)
				if err != nil {
					return err
				}
				if p.raw(resp) {
					return nil
				}
				p.success("%v", resp["message"])
				return showPosition(ctx, s, p)
			})
		},
	}
}

func newPositionCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "position",
		Aliases: []string{"where"},
		Short:   "Show the current part, chapter and lesson",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithSession(cmd, opts, func(ctx context.Context, s *session, p *printer) error {
				return showPosition(ctx, s, p)
			})
		},
	}
}

func showPosition(ctx context.Context, s *session, p *printer) error {
	resp, err := s.call(ctx, "get_current_position", nil)
	if err != nil {
		return err
	}
	if p.raw(resp) {
		return nil
	}
	var pos tracker.Position
	if err := decode(resp, &pos); err != nil {
		return err
	}
	p.position(pos)
	return nil
}

func newAdvanceCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "advance",
		Aliases: []string{"next"},
		Short:   "Complete the current lesson and move to the next one",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithSession(cmd, opts, func(ctx context.Context, s *session, p *printer) error {
				resp, err := s.call(ctx, "advance_position", nil)
				if err != nil {
					return err
				}
				if p.raw(resp) {
					return nil
				}
				var res tracker.AdvanceResult
				if err := decode(resp, &res); err != nil {
					return err
				}
				p.advance(res)
				return nil
			})
		},
	}
}

func newQueueCommand(opts *rootOptions) *cobra.Command {
	var limit int

	command := &cobra.Command{
		Use:   "queue",
		Short: "List the lessons waiting for review, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithSession(cmd, opts, func(ctx context.Context, s *session, p *printer) error {
				resp, err := s.call(ctx, "get_review_queue", map[string]any{"limit": limit})
				if err != nil {
					return err
				}
				if p.raw(resp) {
					return nil
				}
				var q tracker.Queue
				if err := decode(resp, &q); err != nil {
					return err
				}
				p.queue(q)
				return nil
			})
		},
	}

	command.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many lessons (0 shows all)")
	return command
}

func newReviewCommand(opts *rootOptions) *cobra.Command {
	var correct, incorrect bool

	command := &cobra.Command{
		Use:   "review <lesson-id>",
		Short: "Record a review answer for a lesson",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lessonID, err := parseID("lesson", args[0])
			if err != nil {
				return err
			}
			return runWithSession(cmd, opts, func(ctx context.Context, s *session, p *printer) error {
				resp, err := s.call(ctx, "log_review_result", map[string]any{"lesson_id": lessonID, "correct": correct})
				if err != nil {
					return err
				}
				if p.raw(resp) {
					return nil
				}
				if correct {
					p.success("%v", resp["message"])
				} else {
					p.notice("%v", resp["message"])
				}
				return nil
			})
		},
	}

	command.Flags().BoolVar(&correct, "correct", false, "The answer was correct")
	command.Flags().BoolVar(&incorrect, "incorrect", false, "The answer was incorrect")
	command.MarkFlagsMutuallyExclusive("correct", "incorrect")
	command.MarkFlagsOneRequired("correct", "incorrect")
	return command
}

func newQuizCommand(opts *rootOptions) *cobra.Command {
	var missed []int64

	command := &cobra.Command{
		Use:   "quiz <lesson-id> <score> <total>",
		Short: "Record a lesson quiz score",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			lessonID, err := parseID("lesson", args[0])
			if err != nil {
				return err
			}
			score, total, err := parseScore(args[1], args[2])
			if err != nil {
				return err
			}
			return runWithSession(cmd, opts, func(ctx context.Context, s *session, p *printer) error {
				resp, err := s.call(ctx, "log_quiz_result", map[string]any{
					"lesson_id":          lessonID,
					"score":              score,
					"total":              total,
					"missed_concept_ids": missed,
				})
				if err != nil {
					return err
				}
				if !p.raw(resp) {
					p.success("%v", resp["message"])
				}
				return nil
			})
		},
	}

	command.Flags().Int64SliceVar(&missed, "missed", nil, "IDs of the concepts answered incorrectly")
	return command
}

func newInterviewCommand(opts *rootOptions) *cobra.Command {
	var notes string

	command := &cobra.Command{
		Use:   "interview <chapter-id> <score> <total>",
		Short: "Record a chapter interview score",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			chapterID, err := parseID("chapter", args[0])
			if err != nil {
				return err
			}
			score, total, err := parseScore(args[1], args[2])
			if err != nil {
				return err
			}
			return runWithSession(cmd, opts, func(ctx context.Context, s *session, p *printer) error {
				resp, err := s.call(ctx, "log_interview_result", map[string]any{
					"chapter_id": chapterID,
					"score":      score,
					"total":      total,
					"notes":      notes,
				})
				if err != nil {
					return err
				}
				if !p.raw(resp) {
					p.success("%v", resp["message"])
				}
				return nil
			})
		},
	}

	command.Flags().StringVar(&notes, "notes", "", "Interviewer notes")
	return command
}

func newCapstoneCommand(opts *rootOptions) *cobra.Command {
	var (
		incomplete bool
		notes      string
	)

	command := &cobra.Command{
		Use:   "capstone <part-id>",
		Short: "Record a part's capstone project as completed (or --incomplete)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			partID, err := parseID("part", args[0])
			if err != nil {
				return err
			}
			return runWithSession(cmd, opts, func(ctx context.Context, s *session, p *printer) error {
				resp, err := s.call(ctx, "log_capstone_result", map[string]any{
					"part_id":   partID,
					"completed": !incomplete,
					"notes":     notes,
				})
				if err != nil {
					return err
				}
				if !p.raw(resp) {
					p.success("%v", resp["message"])
				}
				return nil
			})
		},
	}

	command.Flags().BoolVar(&incomplete, "incomplete", false, "The capstone was not completed")
	command.Flags().StringVar(&notes, "notes", "", "Reviewer notes")
	return command
}

// loadDetail fetches the tutorial read model, failing when none exists.
func loadDetail(ctx context.Context, s *session, p *printer) (*tracker.Detail, bool, error) {
	resp, err := s.call(ctx, "get_tutorial", nil)
	if err != nil {
		return nil, false, err
	}
	if resp["tutorial"] == nil {
		return nil, false, errors.New(toolapi.NoTutorialMessage)
	}
	if p.raw(resp) {
		return nil, true, nil
	}
	var d tracker.Detail
	if err := decode(resp, &d); err != nil {
		return nil, false, err
	}
	return &d, false, nil
}

func newStatsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show completion counts and average scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithSession(cmd, opts, func(ctx context.Context, s *session, p *printer) error {
				d, printed, err := loadDetail(ctx, s, p)
				if err != nil || printed {
					return err
				}
				p.stats(*d)
				return nil
			})
		},
	}
}

func newShowCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the curriculum with completion marks and IDs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithSession(cmd, opts, func(ctx context.Context, s *session, p *printer) error {
				d, printed, err := loadDetail(ctx, s, p)
				if err != nil || printed {
					return err
				}
				p.tree(*d)
				return nil
			})
		},
	}
}

func newResetCommand(opts *rootOptions) *cobra.Command {
	var yes bool

	command := &cobra.Command{
		Use:   "reset",
		Short: "Clear all progress, results and the review queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("reset discards all progress; pass --yes to confirm")
			}
			return runWithSession(cmd, opts, func(ctx context.Context, s *session, p *printer) error {
				resp, err := s.call(ctx, "reset_progress", nil)
				if err != nil {
					return err
				}
				if !p.raw(resp) {
					p.success("%v", resp["message"])
				}
				return nil
			})
		},
	}

	command.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the reset")
	return command
}

func newPrefsCommand(opts *rootOptions) *cobra.Command {
	command := &cobra.Command{
		Use:   "prefs",
		Short: "Show the learner's preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithSession(cmd, opts, func(ctx context.Context, s *session, p *printer) error {
				resp, err := s.call(ctx, "get_preferences", nil)
				if err != nil {
					return err
				}
				return printPreferences(resp, p)
			})
		},
	}

	command.AddCommand(&cobra.Command{
		Use:   "set <key=value>...",
		Short: "Set one or more preferences; values are parsed as JSON when possible",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parseAssignments(args)
			if err != nil {
				return err
			}
			return runWithSession(cmd, opts, func(ctx context.Context, s *session, p *printer) error {
				resp, err := s.call(ctx, "update_preferences", map[string]any{"preferences": patch})
				if err != nil {
					return err
				}
				return printPreferences(resp, p)
			})
		},
	})
	return command
}

func printPreferences(resp toolapi.Response, p *printer) error {
	if p.raw(resp) {
		return nil
	}
	var out struct {
		Preferences map[string]any `json:"preferences"`
	}
	if err := decode(resp, &out); err != nil {
		return err
	}
	p.preferences(out.Preferences)
	return nil
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var format, output string

	command := &cobra.Command{
		Use:   "export",
		Short: "Export progress as a workbook (xlsx) or an offline book (md, pdf)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output == "" {
				output = defaultExportPath(format)
			}
			return runWithSession(cmd, opts, func(ctx context.Context, s *session, p *printer) error {
				var path string
				switch format {
				case "xlsx":
					data, err := s.workbook(ctx)
					if err != nil {
						return err
					}
					path, err = writeFile(output, data)
					if err != nil {
						return err
					}
				case "md":
					data, err := s.book(ctx)
					if err != nil {
						return err
					}
					path, err = writeFile(output, data)
					if err != nil {
						return err
					}
				case "pdf":
					data, err := s.book(ctx)
					if err != nil {
						return err
					}
					path, err = export.WritePDF(data, output)
					if err != nil {
						return err
					}
				default:
					return fmt.Errorf("unsupported export format %q (want xlsx, md or pdf)", format)
				}
				p.success("Exported %s", path)
				return nil
			})
		},
	}

	command.Flags().StringVar(&format, "format", "xlsx", "Export format: xlsx, md or pdf")
	command.Flags().StringVarP(&output, "output", "o", "", "Output file (default: progress.xlsx, book.md or book.pdf)")
	return command
}

func defaultExportPath(format string) string {
	switch format {
	case "md":
		return "book.md"
	case "pdf":
		return "book.pdf"
	default:
		return "progress.xlsx"
	}
}

func writeFile(path string, data []byte) (string, error) {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

func newToolsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools the tracker exposes to agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithSession(cmd, opts, func(ctx context.Context, s *session, p *printer) error {
				var tools []toolapi.Tool
				if s.remote != nil {
					var err error
					if tools, err = s.remote.Tools(ctx); err != nil {
						return err
					}
				} else {
					tools = s.local.Dispatcher.Tools()
				}
				if p.json {
					enc := json.NewEncoder(p.w)
					enc.SetIndent("", "  ")
					return enc.Encode(tools)
				}
				for _, t := range tools {
					headingColor.Fprintf(p.w, "%-22s", t.Name)
					fmt.Fprintf(p.w, " %s\n", t.Description)
				}
				return nil
			})
		},
	}
}

func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, s)
	}
	return id, nil
}

func parseScore(scoreArg, totalArg string) (int, int, error) {
	score, err := strconv.Atoi(scoreArg)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid score %q", scoreArg)
	}
	total, err := strconv.Atoi(totalArg)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid total %q", totalArg)
	}
	return score, total, nil
}

// parseAssignments turns key=value arguments into a preference patch.
// Values that are valid JSON keep their type; anything else is a string.
func parseAssignments(args []string) (map[string]any, error) {
	patch := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid preference %q, want key=value", arg)
		}
		var v any
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			v = value
		}
		patch[key] = v
	}
	return patch, nil
}
