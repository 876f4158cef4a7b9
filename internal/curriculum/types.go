package curriculum

import "time"

// TutorialType classifies the subject matter of a tutorial.
type TutorialType string

const (
	TypeGeneral     TutorialType = "general"
	TypeProgramming TutorialType = "programming"
)

// DifficultyLevel is the overall level a tutorial is pitched at.
type DifficultyLevel string

const (
	LevelBeginner     DifficultyLevel = "beginner"
	LevelIntermediate DifficultyLevel = "intermediate"
	LevelAdvanced     DifficultyLevel = "advanced"
)

// Tutorial is the root of a curriculum tree. Children are kept in canonical
// order (ascending sort_order) once Sort has been called.
type Tutorial struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Type            TutorialType    `json:"type"`
	DifficultyLevel DifficultyLevel `json:"difficulty_level"`
	Completed       bool            `json:"completed"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	Parts           []Part          `json:"parts,omitempty"`
}

// Part is a difficulty band within a tutorial.
type Part struct {
	ID         int64     `json:"id"`
	TutorialID int64     `json:"tutorial_id"`
	Name       string    `json:"name"`
	Difficulty int       `json:"difficulty"`
	Completed  bool      `json:"completed"`
	SortOrder  int       `json:"sort_order"`
	Chapters   []Chapter `json:"chapters,omitempty"`
}

// Chapter groups lessons within a part.
type Chapter struct {
	ID          int64    `json:"id"`
	PartID      int64    `json:"part_id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Completed   bool     `json:"completed"`
	SortOrder   int      `json:"sort_order"`
	Lessons     []Lesson `json:"lessons,omitempty"`
}

// Lesson is the leaf unit of progress.
type Lesson struct {
	ID          int64     `json:"id"`
	ChapterID   int64     `json:"chapter_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	SortOrder   int       `json:"sort_order"`
	Concepts    []Concept `json:"concepts,omitempty"`
}

// Concept is a descriptive item taught by a lesson.
type Concept struct {
	ID          int64  `json:"id"`
	LessonID    int64  `json:"lesson_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Definition is the payload used to create a tutorial.
type Definition struct {
	Name            string           `json:"name" yaml:"name"`
	Description     string           `json:"description,omitempty" yaml:"description"`
	Type            TutorialType     `json:"type,omitempty" yaml:"type"`
	DifficultyLevel DifficultyLevel  `json:"difficulty_level,omitempty" yaml:"difficulty_level"`
	Preferences     map[string]any   `json:"preferences,omitempty" yaml:"preferences"`
	Parts           []PartDefinition `json:"parts" yaml:"parts"`
}

// PartDefinition describes one part of a Definition.
type PartDefinition struct {
	Name       string              `json:"name" yaml:"name"`
	Difficulty int                 `json:"difficulty" yaml:"difficulty"`
	Chapters   []ChapterDefinition `json:"chapters" yaml:"chapters"`
}

// ChapterDefinition describes one chapter of a PartDefinition.
type ChapterDefinition struct {
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description,omitempty" yaml:"description"`
	Lessons     []LessonDefinition `json:"lessons" yaml:"lessons"`
}

// LessonDefinition describes one lesson of a ChapterDefinition.
type LessonDefinition struct {
	Name        string              `json:"name" yaml:"name"`
	Description string              `json:"description,omitempty" yaml:"description"`
	Concepts    []ConceptDefinition `json:"concepts" yaml:"concepts"`
}

// ConceptDefinition describes one concept of a LessonDefinition.
type ConceptDefinition struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// Build turns a definition into an unsaved tree. Sort orders are assigned
// 1..n from payload order and missing enums take their defaults.
func (d Definition) Build() Tutorial {
	t := Tutorial{
		Name:            d.Name,
		Description:     d.Description,
		Type:            d.Type,
		DifficultyLevel: d.DifficultyLevel,
	}
	if t.Type == "" {
		t.Type = TypeGeneral
	}
	if t.DifficultyLevel == "" {
		t.DifficultyLevel = LevelBeginner
	}

	for pi, pd := range d.Parts {
		part := Part{Name: pd.Name, Difficulty: pd.Difficulty, SortOrder: pi + 1}
		for ci, cd := range pd.Chapters {
			chapter := Chapter{Name: cd.Name, Description: cd.Description, SortOrder: ci + 1}
			for li, ld := range cd.Lessons {
				lesson := Lesson{Name: ld.Name, Description: ld.Description, SortOrder: li + 1}
				for _, con := range ld.Concepts {
					lesson.Concepts = append(lesson.Concepts, Concept{Name: con.Name, Description: con.Description})
				}
				chapter.Lessons = append(chapter.Lessons, lesson)
			}
			part.Chapters = append(part.Chapters, chapter)
		}
		t.Parts = append(t.Parts, part)
	}
	return t
}
