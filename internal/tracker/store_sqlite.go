package tracker

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/p-n-ai/learning-tracker/internal/curriculum"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

const sqliteTimeLayout = time.RFC3339Nano

// SQLiteStore is the default Store, backed by a local SQLite file.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore applies the schema and returns a store over db. The caller
// keeps ownership of db only until Close is called on the store.
func NewSQLiteStore(ctx context.Context, db *sqlx.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

type sqliteTutorialRow struct {
	ID              int64          `db:"id"`
	Name            string         `db:"name"`
	Description     sql.NullString `db:"description"`
	Type            string         `db:"type"`
	DifficultyLevel string         `db:"difficulty_level"`
	Completed       bool           `db:"completed"`
	CreatedAt       string         `db:"created_at"`
	UpdatedAt       string         `db:"updated_at"`
	CompletedAt     sql.NullString `db:"completed_at"`
}

type sqlitePartRow struct {
	ID         int64  `db:"id"`
	TutorialID int64  `db:"tutorial_id"`
	Name       string `db:"name"`
	Difficulty int    `db:"difficulty"`
	Completed  bool   `db:"completed"`
	SortOrder  int    `db:"sort_order"`
}

type sqliteNodeRow struct {
	ID          int64          `db:"id"`
	ParentID    int64          `db:"parent_id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	Completed   bool           `db:"completed"`
	SortOrder   int            `db:"sort_order"`
}

type sqliteConceptRow struct {
	ID          int64          `db:"id"`
	LessonID    int64          `db:"lesson_id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
}

type sqliteProgressRow struct {
	TutorialID      int64          `db:"tutorial_id"`
	CurrentLessonID sql.NullInt64  `db:"current_lesson_id"`
	Status          string         `db:"status"`
	StartedAt       sql.NullString `db:"started_at"`
	UpdatedAt       string         `db:"updated_at"`
}

func (s *SQLiteStore) CreateTutorial(ctx context.Context, t *curriculum.Tutorial, prefs Preferences) error {
	prefsJSON, err := marshalPreferences(prefs)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO tutorials (name, description, type, difficulty_level, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			t.Name, nullIfEmpty(t.Description), string(t.Type), string(t.DifficultyLevel),
			formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert tutorial: %w", err)
		}
		if t.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("tutorial id: %w", err)
		}

		for pi := range t.Parts {
			p := &t.Parts[pi]
			p.TutorialID = t.ID
			if p.ID, err = insertID(ctx, tx,
				`INSERT INTO parts (tutorial_id, name, difficulty, sort_order) VALUES (?, ?, ?, ?)`,
				p.TutorialID, p.Name, p.Difficulty, p.SortOrder,
			); err != nil {
				return fmt.Errorf("insert part %q: %w", p.Name, err)
			}
			for ci := range p.Chapters {
				c := &p.Chapters[ci]
				c.PartID = p.ID
				if c.ID, err = insertID(ctx, tx,
					`INSERT INTO chapters (part_id, name, description, sort_order) VALUES (?, ?, ?, ?)`,
					c.PartID, c.Name, nullIfEmpty(c.Description), c.SortOrder,
				); err != nil {
					return fmt.Errorf("insert chapter %q: %w", c.Name, err)
				}
				for li := range c.Lessons {
					l := &c.Lessons[li]
					l.ChapterID = c.ID
					if l.ID, err = insertID(ctx, tx,
						`INSERT INTO lessons (chapter_id, name, description, sort_order) VALUES (?, ?, ?, ?)`,
						l.ChapterID, l.Name, nullIfEmpty(l.Description), l.SortOrder,
					); err != nil {
						return fmt.Errorf("insert lesson %q: %w", l.Name, err)
					}
					for ki := range l.Concepts {
						k := &l.Concepts[ki]
						k.LessonID = l.ID
						if k.ID, err = insertID(ctx, tx,
							`INSERT INTO concepts (lesson_id, name, description) VALUES (?, ?, ?)`,
							k.LessonID, k.Name, nullIfEmpty(k.Description),
						); err != nil {
							return fmt.Errorf("insert concept %q: %w", k.Name, err)
						}
					}
				}
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO progress (tutorial_id, status, updated_at) VALUES (?, ?, ?)`,
			t.ID, string(StatusNotStarted), formatTime(t.CreatedAt),
		); err != nil {
			return fmt.Errorf("insert progress: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO preferences (tutorial_id, data, updated_at) VALUES (?, ?, ?)`,
			t.ID, prefsJSON, formatTime(t.CreatedAt),
		); err != nil {
			return fmt.Errorf("insert preferences: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) LoadState(ctx context.Context) (*State, error) {
	var tr sqliteTutorialRow
	err := s.db.GetContext(ctx, &tr,
		`SELECT id, name, description, type, difficulty_level, completed, created_at, updated_at, completed_at
		 FROM tutorials ORDER BY id LIMIT 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoTutorial
		}
		return nil, fmt.Errorf("get tutorial: %w", err)
	}

	tut := curriculum.Tutorial{
		ID:              tr.ID,
		Name:            tr.Name,
		Description:     tr.Description.String,
		Type:            curriculum.TutorialType(tr.Type),
		DifficultyLevel: curriculum.DifficultyLevel(tr.DifficultyLevel),
		Completed:       tr.Completed,
	}
	if tut.CreatedAt, err = parseTime(tr.CreatedAt); err != nil {
		return nil, err
	}
	if tut.UpdatedAt, err = parseTime(tr.UpdatedAt); err != nil {
		return nil, err
	}
	if tut.CompletedAt, err = parseNullTime(tr.CompletedAt); err != nil {
		return nil, err
	}

	var partRows []sqlitePartRow
	if err := s.db.SelectContext(ctx, &partRows,
		`SELECT id, tutorial_id, name, difficulty, completed, sort_order
		 FROM parts WHERE tutorial_id = ?`, tut.ID); err != nil {
		return nil, fmt.Errorf("query parts: %w", err)
	}
	var chapterRows []sqliteNodeRow
	if err := s.db.SelectContext(ctx, &chapterRows,
		`SELECT c.id, c.part_id AS parent_id, c.name, c.description, c.completed, c.sort_order
		 FROM chapters c JOIN parts p ON p.id = c.part_id
		 WHERE p.tutorial_id = ?`, tut.ID); err != nil {
		return nil, fmt.Errorf("query chapters: %w", err)
	}
	var lessonRows []sqliteNodeRow
	if err := s.db.SelectContext(ctx, &lessonRows,
		`SELECT l.id, l.chapter_id AS parent_id, l.name, l.description, l.completed, l.sort_order
		 FROM lessons l
		 JOIN chapters c ON c.id = l.chapter_id
		 JOIN parts p ON p.id = c.part_id
		 WHERE p.tutorial_id = ?`, tut.ID); err != nil {
		return nil, fmt.Errorf("query lessons: %w", err)
	}
	var conceptRows []sqliteConceptRow
	if err := s.db.SelectContext(ctx, &conceptRows,
		`SELECT k.id, k.lesson_id, k.name, k.description
		 FROM concepts k
		 JOIN lessons l ON l.id = k.lesson_id
		 JOIN chapters c ON c.id = l.chapter_id
		 JOIN parts p ON p.id = c.part_id
		 WHERE p.tutorial_id = ?`, tut.ID); err != nil {
		return nil, fmt.Errorf("query concepts: %w", err)
	}

	parts := make([]curriculum.Part, 0, len(partRows))
	for _, r := range partRows {
		parts = append(parts, curriculum.Part{
			ID: r.ID, TutorialID: r.TutorialID, Name: r.Name, Difficulty: r.Difficulty,
			Completed: r.Completed, SortOrder: r.SortOrder,
		})
	}
	chapters := make([]curriculum.Chapter, 0, len(chapterRows))
	for _, r := range chapterRows {
		chapters = append(chapters, curriculum.Chapter{
			ID: r.ID, PartID: r.ParentID, Name: r.Name, Description: r.Description.String,
			Completed: r.Completed, SortOrder: r.SortOrder,
		})
	}
	lessons := make([]curriculum.Lesson, 0, len(lessonRows))
	for _, r := range lessonRows {
		lessons = append(lessons, curriculum.Lesson{
			ID: r.ID, ChapterID: r.ParentID, Name: r.Name, Description: r.Description.String,
			Completed: r.Completed, SortOrder: r.SortOrder,
		})
	}
	concepts := make([]curriculum.Concept, 0, len(conceptRows))
	for _, r := range conceptRows {
		concepts = append(concepts, curriculum.Concept{
			ID: r.ID, LessonID: r.LessonID, Name: r.Name, Description: r.Description.String,
		})
	}
	assembleTree(&tut, parts, chapters, lessons, concepts)

	progress, err := s.loadProgress(ctx, tut.ID)
	if err != nil {
		return nil, err
	}

	var prefsJSON string
	if err := s.db.GetContext(ctx, &prefsJSON,
		`SELECT data FROM preferences WHERE tutorial_id = ?`, tut.ID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	prefs, err := unmarshalPreferences([]byte(prefsJSON))
	if err != nil {
		return nil, err
	}

	return &State{Tutorial: tut, Progress: progress, Preferences: prefs}, nil
}

func (s *SQLiteStore) loadProgress(ctx context.Context, tutorialID int64) (Progress, error) {
	var r sqliteProgressRow
	err := s.db.GetContext(ctx, &r,
		`SELECT tutorial_id, current_lesson_id, status, started_at, updated_at
		 FROM progress WHERE tutorial_id = ?`, tutorialID)
	if err != nil {
		return Progress{}, fmt.Errorf("get progress: %w", err)
	}

	p := Progress{TutorialID: r.TutorialID, Status: Status(r.Status)}
	if r.CurrentLessonID.Valid {
		id := r.CurrentLessonID.Int64
		p.CurrentLessonID = &id
	}
	if p.StartedAt, err = parseNullTime(r.StartedAt); err != nil {
		return Progress{}, err
	}
	if p.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return Progress{}, err
	}
	return p, nil
}

func (s *SQLiteStore) SaveProgress(ctx context.Context, p Progress) error {
	return saveProgressSQLite(ctx, s.db, p)
}

func saveProgressSQLite(ctx context.Context, ext sqlx.ExecerContext, p Progress) error {
	var current any
	if p.CurrentLessonID != nil {
		current = *p.CurrentLessonID
	}
	var started any
	if p.StartedAt != nil {
		started = formatTime(*p.StartedAt)
	}

	res, err := ext.ExecContext(ctx,
		`UPDATE progress SET current_lesson_id = ?, status = ?, started_at = ?, updated_at = ?
		 WHERE tutorial_id = ?`,
		current, string(p.Status), started, formatTime(p.UpdatedAt), p.TutorialID,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("progress not found for tutorial %d", p.TutorialID)
	}
	return nil
}

func (s *SQLiteStore) ApplyAdvance(ctx context.Context, a Advance) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE lessons SET completed = 1 WHERE id = ?`, a.CompletedLessonID); err != nil {
			return fmt.Errorf("complete lesson: %w", err)
		}
		if a.CompletedChapterID != 0 {
			if _, err := tx.ExecContext(ctx, `UPDATE chapters SET completed = 1 WHERE id = ?`, a.CompletedChapterID); err != nil {
				return fmt.Errorf("complete chapter: %w", err)
			}
		}
		if a.CompletedPartID != 0 {
			if _, err := tx.ExecContext(ctx, `UPDATE parts SET completed = 1 WHERE id = ?`, a.CompletedPartID); err != nil {
				return fmt.Errorf("complete part: %w", err)
			}
		}
		if a.TutorialCompletedAt != nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE tutorials SET completed = 1, completed_at = ?, updated_at = ? WHERE id = ?`,
				formatTime(*a.TutorialCompletedAt), formatTime(a.Now), a.Progress.TutorialID,
			); err != nil {
				return fmt.Errorf("complete tutorial: %w", err)
			}
		}
		if err := saveProgressSQLite(ctx, tx, a.Progress); err != nil {
			return err
		}
		if _, err := enqueueSQLite(ctx, tx, a.Progress.TutorialID, a.CompletedLessonID, a.Now); err != nil {
			return err
		}
		return nil
	})
}

func (s *SQLiteStore) ResetProgress(ctx context.Context, tutorialID int64, now time.Time) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		stmts := []struct {
			what  string
			query string
			args  []any
		}{
			{"reset progress", `UPDATE progress SET current_lesson_id = NULL, status = 'not_started', started_at = NULL, updated_at = ? WHERE tutorial_id = ?`, []any{formatTime(now), tutorialID}},
			{"reset tutorial", `UPDATE tutorials SET completed = 0, completed_at = NULL, updated_at = ? WHERE id = ?`, []any{formatTime(now), tutorialID}},
			{"reset parts", `UPDATE parts SET completed = 0 WHERE tutorial_id = ?`, []any{tutorialID}},
			{"reset chapters", `UPDATE chapters SET completed = 0 WHERE part_id IN (SELECT id FROM parts WHERE tutorial_id = ?)`, []any{tutorialID}},
			{"reset lessons", `UPDATE lessons SET completed = 0 WHERE chapter_id IN (
				SELECT c.id FROM chapters c JOIN parts p ON p.id = c.part_id WHERE p.tutorial_id = ?)`, []any{tutorialID}},
			{"clear review queue", `DELETE FROM review_queue WHERE tutorial_id = ?`, []any{tutorialID}},
			{"clear quiz results", `DELETE FROM quiz_results WHERE lesson_id IN (
				SELECT l.id FROM lessons l JOIN chapters c ON c.id = l.chapter_id JOIN parts p ON p.id = c.part_id
				WHERE p.tutorial_id = ?)`, []any{tutorialID}},
			{"clear interview results", `DELETE FROM interview_results WHERE chapter_id IN (
				SELECT c.id FROM chapters c JOIN parts p ON p.id = c.part_id WHERE p.tutorial_id = ?)`, []any{tutorialID}},
			{"clear capstone results", `DELETE FROM capstone_results WHERE part_id IN (
				SELECT id FROM parts WHERE tutorial_id = ?)`, []any{tutorialID}},
		}
		for _, st := range stmts {
			if _, err := tx.ExecContext(ctx, st.query, st.args...); err != nil {
				return fmt.Errorf("%s: %w", st.what, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) QueueEntries(ctx context.Context, tutorialID int64) ([]QueueEntry, error) {
	var rows []struct {
		LessonID int64  `db:"lesson_id"`
		Position int64  `db:"position"`
		AddedAt  string `db:"added_at"`
	}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT lesson_id, position, added_at FROM review_queue
		 WHERE tutorial_id = ? ORDER BY position ASC`, tutorialID); err != nil {
		return nil, fmt.Errorf("query review queue: %w", err)
	}

	entries := make([]QueueEntry, 0, len(rows))
	for _, r := range rows {
		added, err := parseTime(r.AddedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, QueueEntry{LessonID: r.LessonID, Position: r.Position, AddedAt: added})
	}
	return entries, nil
}

func (s *SQLiteStore) Enqueue(ctx context.Context, tutorialID int64, lessonIDs []int64, now time.Time) ([]QueueEntry, error) {
	var entries []QueueEntry
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		entries = entries[:0]
		for _, id := range lessonIDs {
			e, err := enqueueSQLite(ctx, tx, tutorialID, id, now)
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

func enqueueSQLite(ctx context.Context, q sqlx.QueryerContext, tutorialID, lessonID int64, now time.Time) (QueueEntry, error) {
	e := QueueEntry{LessonID: lessonID, AddedAt: now}
	err := q.QueryRowxContext(ctx,
		`INSERT INTO review_queue (tutorial_id, lesson_id, position, added_at)
		 VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM review_queue WHERE tutorial_id = ?), ?)
		 ON CONFLICT (tutorial_id, lesson_id) DO UPDATE SET position = excluded.position, added_at = excluded.added_at
		 RETURNING position`,
		tutorialID, lessonID, tutorialID, formatTime(now),
	).Scan(&e.Position)
	if err != nil {
		return QueueEntry{}, fmt.Errorf("enqueue lesson %d: %w", lessonID, err)
	}
	return e, nil
}

func (s *SQLiteStore) Dequeue(ctx context.Context, tutorialID, lessonID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM review_queue WHERE tutorial_id = ? AND lesson_id = ?`, tutorialID, lessonID)
	if err != nil {
		return false, fmt.Errorf("dequeue lesson %d: %w", lessonID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("dequeue lesson %d: %w", lessonID, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) AddQuizResult(ctx context.Context, r *QuizResult) error {
	missed := r.MissedConceptIDs
	if missed == nil {
		missed = []int64{}
	}
	data, err := json.Marshal(missed)
	if err != nil {
		return fmt.Errorf("marshal missed concepts: %w", err)
	}
	r.ID, err = insertID(ctx, s.db,
		`INSERT INTO quiz_results (lesson_id, score, total, missed_concepts, completed_at) VALUES (?, ?, ?, ?, ?)`,
		r.LessonID, r.Score, r.Total, string(data), formatTime(r.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert quiz result: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AddInterviewResult(ctx context.Context, r *InterviewResult) error {
	var err error
	r.ID, err = insertID(ctx, s.db,
		`INSERT INTO interview_results (chapter_id, score, total, notes, completed_at) VALUES (?, ?, ?, ?, ?)`,
		r.ChapterID, r.Score, r.Total, nullIfEmpty(r.Notes), formatTime(r.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert interview result: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AddCapstoneResult(ctx context.Context, r *CapstoneResult) error {
	var err error
	r.ID, err = insertID(ctx, s.db,
		`INSERT INTO capstone_results (part_id, completed, notes, completed_at) VALUES (?, ?, ?, ?)`,
		r.PartID, r.Completed, nullIfEmpty(r.Notes), formatTime(r.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert capstone result: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Results(ctx context.Context, tutorialID int64) (Results, error) {
	var out Results

	var quizRows []struct {
		ID          int64  `db:"id"`
		LessonID    int64  `db:"lesson_id"`
		Score       int    `db:"score"`
		Total       int    `db:"total"`
		Missed      string `db:"missed_concepts"`
		CompletedAt string `db:"completed_at"`
	}
	if err := s.db.SelectContext(ctx, &quizRows,
		`SELECT q.id, q.lesson_id, q.score, q.total, q.missed_concepts, q.completed_at
		 FROM quiz_results q
		 JOIN lessons l ON l.id = q.lesson_id
		 JOIN chapters c ON c.id = l.chapter_id
		 JOIN parts p ON p.id = c.part_id
		 WHERE p.tutorial_id = ? ORDER BY q.id`, tutorialID); err != nil {
		return Results{}, fmt.Errorf("query quiz results: %w", err)
	}
	for _, r := range quizRows {
		q := QuizResult{ID: r.ID, LessonID: r.LessonID, Score: r.Score, Total: r.Total}
		if err := json.Unmarshal([]byte(r.Missed), &q.MissedConceptIDs); err != nil {
			return Results{}, fmt.Errorf("decode missed concepts of quiz %d: %w", r.ID, err)
		}
		var err error
		if q.CompletedAt, err = parseTime(r.CompletedAt); err != nil {
			return Results{}, err
		}
		out.Quizzes = append(out.Quizzes, q)
	}

	var interviewRows []struct {
		ID          int64          `db:"id"`
		ChapterID   int64          `db:"chapter_id"`
		Score       int            `db:"score"`
		Total       int            `db:"total"`
		Notes       sql.NullString `db:"notes"`
		CompletedAt string         `db:"completed_at"`
	}
	if err := s.db.SelectContext(ctx, &interviewRows,
		`SELECT i.id, i.chapter_id, i.score, i.total, i.notes, i.completed_at
		 FROM interview_results i
		 JOIN chapters c ON c.id = i.chapter_id
		 JOIN parts p ON p.id = c.part_id
		 WHERE p.tutorial_id = ? ORDER BY i.id`, tutorialID); err != nil {
		return Results{}, fmt.Errorf("query interview results: %w", err)
	}
	for _, r := range interviewRows {
		completed, err := parseTime(r.CompletedAt)
		if err != nil {
			return Results{}, err
		}
		out.Interviews = append(out.Interviews, InterviewResult{
			ID: r.ID, ChapterID: r.ChapterID, Score: r.Score, Total: r.Total,
			Notes: r.Notes.String, CompletedAt: completed,
		})
	}

	var capstoneRows []struct {
		ID          int64          `db:"id"`
		PartID      int64          `db:"part_id"`
		Completed   bool           `db:"completed"`
		Notes       sql.NullString `db:"notes"`
		CompletedAt string         `db:"completed_at"`
	}
	if err := s.db.SelectContext(ctx, &capstoneRows,
		`SELECT k.id, k.part_id, k.completed, k.notes, k.completed_at
		 FROM capstone_results k
		 JOIN parts p ON p.id = k.part_id
		 WHERE p.tutorial_id = ? ORDER BY k.id`, tutorialID); err != nil {
		return Results{}, fmt.Errorf("query capstone results: %w", err)
	}
	for _, r := range capstoneRows {
		completed, err := parseTime(r.CompletedAt)
		if err != nil {
			return Results{}, err
		}
		out.Capstones = append(out.Capstones, CapstoneResult{
			ID: r.ID, PartID: r.PartID, Completed: r.Completed,
			Notes: r.Notes.String, CompletedAt: completed,
		})
	}

	return out, nil
}

func (s *SQLiteStore) SavePreferences(ctx context.Context, tutorialID int64, prefs Preferences, now time.Time) error {
	data, err := marshalPreferences(prefs)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (tutorial_id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (tutorial_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		tutorialID, data, formatTime(now),
	); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertID(ctx context.Context, ext sqlx.ExecerContext, query string, args ...any) (int64, error) {
	res, err := ext.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func marshalPreferences(prefs Preferences) (string, error) {
	if prefs == nil {
		prefs = Preferences{}
	}
	data, err := json.Marshal(prefs)
	if err != nil {
		return "", fmt.Errorf("marshal preferences: %w", err)
	}
	return string(data), nil
}

func unmarshalPreferences(data []byte) (Preferences, error) {
	prefs := Preferences{}
	if len(data) == 0 {
		return prefs, nil
	}
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	return prefs, nil
}
