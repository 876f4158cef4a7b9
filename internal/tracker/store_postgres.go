package tracker

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/learning-tracker/internal/curriculum"
)

//go:embed schema_postgres.sql
var postgresSchema string

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// pgExecer is satisfied by both the pool and a transaction.
type pgExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPostgresStore applies the schema and returns a store over pool.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("apply postgres schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) CreateTutorial(ctx context.Context, t *curriculum.Tutorial, prefs Preferences) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	prefsJSON, err := marshalPreferences(prefs)
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO tutorials (name, description, type, difficulty_level, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			t.Name, nullIfEmpty(t.Description), string(t.Type), string(t.DifficultyLevel), t.CreatedAt, t.UpdatedAt,
		).Scan(&t.ID); err != nil {
			return fmt.Errorf("insert tutorial: %w", err)
		}

		for pi := range t.Parts {
			p := &t.Parts[pi]
			p.TutorialID = t.ID
			if err := tx.QueryRow(ctx,
				`INSERT INTO parts (tutorial_id, name, difficulty, sort_order) VALUES ($1, $2, $3, $4) RETURNING id`,
				p.TutorialID, p.Name, p.Difficulty, p.SortOrder,
			).Scan(&p.ID); err != nil {
				return fmt.Errorf("insert part %q: %w", p.Name, err)
			}
			for ci := range p.Chapters {
				c := &p.Chapters[ci]
				c.PartID = p.ID
				if err := tx.QueryRow(ctx,
					`INSERT INTO chapters (part_id, name, description, sort_order) VALUES ($1, $2, $3, $4) RETURNING id`,
					c.PartID, c.Name, nullIfEmpty(c.Description), c.SortOrder,
				).Scan(&c.ID); err != nil {
					return fmt.Errorf("insert chapter %q: %w", c.Name, err)
				}
				for li := range c.Lessons {
					l := &c.Lessons[li]
					l.ChapterID = c.ID
					if err := tx.QueryRow(ctx,
						`INSERT INTO lessons (chapter_id, name, description, sort_order) VALUES ($1, $2, $3, $4) RETURNING id`,
						l.ChapterID, l.Name, nullIfEmpty(l.Description), l.SortOrder,
					).Scan(&l.ID); err != nil {
						return fmt.Errorf("insert lesson %q: %w", l.Name, err)
					}
					for ki := range l.Concepts {
						k := &l.Concepts[ki]
						k.LessonID = l.ID
						if err := tx.QueryRow(ctx,
							`INSERT INTO concepts (lesson_id, name, description) VALUES ($1, $2, $3) RETURNING id`,
							k.LessonID, k.Name, nullIfEmpty(k.Description),
						).Scan(&k.ID); err != nil {
							return fmt.Errorf("insert concept %q: %w", k.Name, err)
						}
					}
				}
			}
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO progress (tutorial_id, status, updated_at) VALUES ($1, $2, $3)`,
			t.ID, string(StatusNotStarted), t.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert progress: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO preferences (tutorial_id, data, updated_at) VALUES ($1, $2::jsonb, $3)`,
			t.ID, prefsJSON, t.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert preferences: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) LoadState(ctx context.Context) (*State, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var tut curriculum.Tutorial
	var description *string
	var tutType, level string
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, description, type, difficulty_level, completed, created_at, updated_at, completed_at
		 FROM tutorials ORDER BY id LIMIT 1`,
	).Scan(&tut.ID, &tut.Name, &description, &tutType, &level, &tut.Completed, &tut.CreatedAt, &tut.UpdatedAt, &tut.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoTutorial
		}
		return nil, fmt.Errorf("get tutorial: %w", err)
	}
	tut.Description = deref(description)
	tut.Type = curriculum.TutorialType(tutType)
	tut.DifficultyLevel = curriculum.DifficultyLevel(level)

	parts, err := queryRows(ctx, s.pool,
		`SELECT id, tutorial_id, name, difficulty, completed, sort_order FROM parts WHERE tutorial_id = $1`,
		tut.ID, func(row pgx.CollectableRow) (curriculum.Part, error) {
			var p curriculum.Part
			err := row.Scan(&p.ID, &p.TutorialID, &p.Name, &p.Difficulty, &p.Completed, &p.SortOrder)
			return p, err
		})
	if err != nil {
		return nil, fmt.Errorf("query parts: %w", err)
	}

	chapters, err := queryRows(ctx, s.pool,
		`SELECT c.id, c.part_id, c.name, c.description, c.completed, c.sort_order
		 FROM chapters c JOIN parts p ON p.id = c.part_id
		 WHERE p.tutorial_id = $1`,
		tut.ID, func(row pgx.CollectableRow) (curriculum.Chapter, error) {
			var c curriculum.Chapter
			var desc *string
			err := row.Scan(&c.ID, &c.PartID, &c.Name, &desc, &c.Completed, &c.SortOrder)
			c.Description = deref(desc)
			return c, err
		})
	if err != nil {
		return nil, fmt.Errorf("query chapters: %w", err)
	}

	lessons, err := queryRows(ctx, s.pool,
		`SELECT l.id, l.chapter_id, l.name, l.description, l.completed, l.sort_order
		 FROM lessons l
		 JOIN chapters c ON c.id = l.chapter_id
		 JOIN parts p ON p.id = c.part_id
		 WHERE p.tutorial_id = $1`,
		tut.ID, func(row pgx.CollectableRow) (curriculum.Lesson, error) {
			var l curriculum.Lesson
			var desc *string
			err := row.Scan(&l.ID, &l.ChapterID, &l.Name, &desc, &l.Completed, &l.SortOrder)
			l.Description = deref(desc)
			return l, err
		})
	if err != nil {
		return nil, fmt.Errorf("query lessons: %w", err)
	}

	concepts, err := queryRows(ctx, s.pool,
		`SELECT k.id, k.lesson_id, k.name, k.description
		 FROM concepts k
		 JOIN lessons l ON l.id = k.lesson_id
		 JOIN chapters c ON c.id = l.chapter_id
		 JOIN parts p ON p.id = c.part_id
		 WHERE p.tutorial_id = $1`,
		tut.ID, func(row pgx.CollectableRow) (curriculum.Concept, error) {
			var k curriculum.Concept
			var desc *string
			err := row.Scan(&k.ID, &k.LessonID, &k.Name, &desc)
			k.Description = deref(desc)
			return k, err
		})
	if err != nil {
		return nil, fmt.Errorf("query concepts: %w", err)
	}

	assembleTree(&tut, parts, chapters, lessons, concepts)

	var progress Progress
	var status string
	if err := s.pool.QueryRow(ctx,
		`SELECT tutorial_id, current_lesson_id, status, started_at, updated_at
		 FROM progress WHERE tutorial_id = $1`, tut.ID,
	).Scan(&progress.TutorialID, &progress.CurrentLessonID, &status, &progress.StartedAt, &progress.UpdatedAt); err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	progress.Status = Status(status)

	var prefsJSON []byte
	if err := s.pool.QueryRow(ctx,
		`SELECT data FROM preferences WHERE tutorial_id = $1`, tut.ID,
	).Scan(&prefsJSON); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	prefs, err := unmarshalPreferences(prefsJSON)
	if err != nil {
		return nil, err
	}

	return &State{Tutorial: tut, Progress: progress, Preferences: prefs}, nil
}

func (s *PostgresStore) SaveProgress(ctx context.Context, p Progress) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return saveProgressPostgres(ctx, s.pool, p)
}

func saveProgressPostgres(ctx context.Context, db pgExecer, p Progress) error {
	cmd, err := db.Exec(ctx,
		`UPDATE progress SET current_lesson_id = $1, status = $2, started_at = $3, updated_at = $4
		 WHERE tutorial_id = $5`,
		p.CurrentLessonID, string(p.Status), p.StartedAt, p.UpdatedAt, p.TutorialID,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("progress not found for tutorial %d", p.TutorialID)
	}
	return nil
}

func (s *PostgresStore) ApplyAdvance(ctx context.Context, a Advance) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE lessons SET completed = TRUE WHERE id = $1`, a.CompletedLessonID); err != nil {
			return fmt.Errorf("complete lesson: %w", err)
		}
		if a.CompletedChapterID != 0 {
			if _, err := tx.Exec(ctx, `UPDATE chapters SET completed = TRUE WHERE id = $1`, a.CompletedChapterID); err != nil {
				return fmt.Errorf("complete chapter: %w", err)
			}
		}
		if a.CompletedPartID != 0 {
			if _, err := tx.Exec(ctx, `UPDATE parts SET completed = TRUE WHERE id = $1`, a.CompletedPartID); err != nil {
				return fmt.Errorf("complete part: %w", err)
			}
		}
		if a.TutorialCompletedAt != nil {
			if _, err := tx.Exec(ctx,
				`UPDATE tutorials SET completed = TRUE, completed_at = $1, updated_at = $2 WHERE id = $3`,
				*a.TutorialCompletedAt, a.Now, a.Progress.TutorialID,
			); err != nil {
				return fmt.Errorf("complete tutorial: %w", err)
			}
		}
		if err := saveProgressPostgres(ctx, tx, a.Progress); err != nil {
			return err
		}
		_, err := enqueuePostgres(ctx, tx, a.Progress.TutorialID, a.CompletedLessonID, a.Now)
		return err
	})
}

func (s *PostgresStore) ResetProgress(ctx context.Context, tutorialID int64, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		stmts := []struct {
			what  string
			query string
			args  []any
		}{
			{"reset progress", `UPDATE progress SET current_lesson_id = NULL, status = 'not_started', started_at = NULL, updated_at = $2 WHERE tutorial_id = $1`, []any{tutorialID, now}},
			{"reset tutorial", `UPDATE tutorials SET completed = FALSE, completed_at = NULL, updated_at = $2 WHERE id = $1`, []any{tutorialID, now}},
			{"reset parts", `UPDATE parts SET completed = FALSE WHERE tutorial_id = $1`, []any{tutorialID}},
			{"reset chapters", `UPDATE chapters c SET completed = FALSE FROM parts p WHERE p.id = c.part_id AND p.tutorial_id = $1`, []any{tutorialID}},
			{"reset lessons", `UPDATE lessons l SET completed = FALSE FROM chapters c JOIN parts p ON p.id = c.part_id
				WHERE c.id = l.chapter_id AND p.tutorial_id = $1`, []any{tutorialID}},
			{"clear review queue", `DELETE FROM review_queue WHERE tutorial_id = $1`, []any{tutorialID}},
			{"clear quiz results", `DELETE FROM quiz_results q USING lessons l, chapters c, parts p
				WHERE l.id = q.lesson_id AND c.id = l.chapter_id AND p.id = c.part_id AND p.tutorial_id = $1`, []any{tutorialID}},
			{"clear interview results", `DELETE FROM interview_results i USING chapters c, parts p
				WHERE c.id = i.chapter_id AND p.id = c.part_id AND p.tutorial_id = $1`, []any{tutorialID}},
			{"clear capstone results", `DELETE FROM capstone_results k USING parts p
				WHERE p.id = k.part_id AND p.tutorial_id = $1`, []any{tutorialID}},
		}
		for _, st := range stmts {
			if _, err := tx.Exec(ctx, st.query, st.args...); err != nil {
				return fmt.Errorf("%s: %w", st.what, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) QueueEntries(ctx context.Context, tutorialID int64) ([]QueueEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	entries, err := queryRows(ctx, s.pool,
		`SELECT lesson_id, position, added_at FROM review_queue
		 WHERE tutorial_id = $1 ORDER BY position ASC`,
		tutorialID, func(row pgx.CollectableRow) (QueueEntry, error) {
			var e QueueEntry
			err := row.Scan(&e.LessonID, &e.Position, &e.AddedAt)
			return e, err
		})
	if err != nil {
		return nil, fmt.Errorf("query review queue: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) Enqueue(ctx context.Context, tutorialID int64, lessonIDs []int64, now time.Time) ([]QueueEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var entries []QueueEntry
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		entries = entries[:0]
		for _, id := range lessonIDs {
			e, err := enqueuePostgres(ctx, tx, tutorialID, id, now)
			if err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func enqueuePostgres(ctx context.Context, db pgExecer, tutorialID, lessonID int64, now time.Time) (QueueEntry, error) {
	e := QueueEntry{LessonID: lessonID, AddedAt: now}
	err := db.QueryRow(ctx,
		`INSERT INTO review_queue (tutorial_id, lesson_id, position, added_at)
		 VALUES ($1, $2, (SELECT COALESCE(MAX(position), 0) + 1 FROM review_queue WHERE tutorial_id = $1), $3)
		 ON CONFLICT (tutorial_id, lesson_id) DO UPDATE SET position = EXCLUDED.position, added_at = EXCLUDED.added_at
		 RETURNING position`,
		tutorialID, lessonID, now,
	).Scan(&e.Position)
	if err != nil {
		return QueueEntry{}, fmt.Errorf("enqueue lesson %d: %w", lessonID, err)
	}
	return e, nil
}

func (s *PostgresStore) Dequeue(ctx context.Context, tutorialID, lessonID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`DELETE FROM review_queue WHERE tutorial_id = $1 AND lesson_id = $2`, tutorialID, lessonID)
	if err != nil {
		return false, fmt.Errorf("dequeue lesson %d: %w", lessonID, err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *PostgresStore) AddQuizResult(ctx context.Context, r *QuizResult) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	missed := r.MissedConceptIDs
	if missed == nil {
		missed = []int64{}
	}
	if err := s.pool.QueryRow(ctx,
		`INSERT INTO quiz_results (lesson_id, score, total, missed_concepts, completed_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		r.LessonID, r.Score, r.Total, missed, r.CompletedAt,
	).Scan(&r.ID); err != nil {
		return fmt.Errorf("insert quiz result: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddInterviewResult(ctx context.Context, r *InterviewResult) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := s.pool.QueryRow(ctx,
		`INSERT INTO interview_results (chapter_id, score, total, notes, completed_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		r.ChapterID, r.Score, r.Total, nullIfEmpty(r.Notes), r.CompletedAt,
	).Scan(&r.ID); err != nil {
		return fmt.Errorf("insert interview result: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddCapstoneResult(ctx context.Context, r *CapstoneResult) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := s.pool.QueryRow(ctx,
		`INSERT INTO capstone_results (part_id, completed, notes, completed_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		r.PartID, r.Completed, nullIfEmpty(r.Notes), r.CompletedAt,
	).Scan(&r.ID); err != nil {
		return fmt.Errorf("insert capstone result: %w", err)
	}
	return nil
}

func (s *PostgresStore) Results(ctx context.Context, tutorialID int64) (Results, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var out Results
	var err error

	out.Quizzes, err = queryRows(ctx, s.pool,
		`SELECT q.id, q.lesson_id, q.score, q.total, q.missed_concepts, q.completed_at
		 FROM quiz_results q
		 JOIN lessons l ON l.id = q.lesson_id
		 JOIN chapters c ON c.id = l.chapter_id
		 JOIN parts p ON p.id = c.part_id
		 WHERE p.tutorial_id = $1 ORDER BY q.id`,
		tutorialID, func(row pgx.CollectableRow) (QuizResult, error) {
			var q QuizResult
			err := row.Scan(&q.ID, &q.LessonID, &q.Score, &q.Total, &q.MissedConceptIDs, &q.CompletedAt)
			return q, err
		})
	if err != nil {
		return Results{}, fmt.Errorf("query quiz results: %w", err)
	}

	out.Interviews, err = queryRows(ctx, s.pool,
		`SELECT i.id, i.chapter_id, i.score, i.total, i.notes, i.completed_at
		 FROM interview_results i
		 JOIN chapters c ON c.id = i.chapter_id
		 JOIN parts p ON p.id = c.part_id
		 WHERE p.tutorial_id = $1 ORDER BY i.id`,
		tutorialID, func(row pgx.CollectableRow) (InterviewResult, error) {
			var i InterviewResult
			var notes *string
			err := row.Scan(&i.ID, &i.ChapterID, &i.Score, &i.Total, &notes, &i.CompletedAt)
			i.Notes = deref(notes)
			return i, err
		})
	if err != nil {
		return Results{}, fmt.Errorf("query interview results: %w", err)
	}

	out.Capstones, err = queryRows(ctx, s.pool,
		`SELECT k.id, k.part_id, k.completed, k.notes, k.completed_at
		 FROM capstone_results k
		 JOIN parts p ON p.id = k.part_id
		 WHERE p.tutorial_id = $1 ORDER BY k.id`,
		tutorialID, func(row pgx.CollectableRow) (CapstoneResult, error) {
			var k CapstoneResult
			var notes *string
			err := row.Scan(&k.ID, &k.PartID, &k.Completed, &notes, &k.CompletedAt)
			k.Notes = deref(notes)
			return k, err
		})
	if err != nil {
		return Results{}, fmt.Errorf("query capstone results: %w", err)
	}

	return out, nil
}

func (s *PostgresStore) SavePreferences(ctx context.Context, tutorialID int64, prefs Preferences, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	data, err := marshalPreferences(prefs)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO preferences (tutorial_id, data, updated_at) VALUES ($1, $2::jsonb, $3)
		 ON CONFLICT (tutorial_id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		tutorialID, data, now,
	); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *PostgresStore) Close() error {
	return nil
}

// queryRows runs a single-argument query and collects every row with scan.
func queryRows[T any](ctx context.Context, pool *pgxpool.Pool, query string, arg any, scan pgx.RowToFunc[T]) ([]T, error) {
	rows, err := pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scan)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
