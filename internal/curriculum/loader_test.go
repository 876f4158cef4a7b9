package curriculum_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/learning-tracker/internal/curriculum"
)

const pythonYAML = `
name: Python
description: Python from scratch
type: programming
difficulty_level: beginner
preferences:
  language: en
parts:
  - name: Beginner
    difficulty: 1
    chapters:
      - name: Basics
        lessons:
          - name: Variables
            concepts:
              - name: Assignment
              - name: Naming
          - name: Types
            concepts:
              - name: int
  - name: Intermediate
    difficulty: 2
    chapters:
      - name: Functions
        description: Defining and calling functions
        lessons:
          - name: def
            concepts:
              - name: Parameters
`

func TestLoadFile_YAML(t *testing.T) {
	path := writeFile(t, "python.yaml", pythonYAML)

	def, err := curriculum.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if def.Name != "Python" {
		t.Errorf("Name = %q, want Python", def.Name)
	}
	if def.Type != curriculum.TypeProgramming {
		t.Errorf("Type = %q, want programming", def.Type)
	}
	if len(def.Parts) != 2 {
		t.Fatalf("len(Parts) = %d, want 2", len(def.Parts))
	}
	if def.Parts[1].Difficulty != 2 {
		t.Errorf("Parts[1].Difficulty = %d, want 2", def.Parts[1].Difficulty)
	}
	if got := len(def.Parts[0].Chapters[0].Lessons[0].Concepts); got != 2 {
		t.Errorf("concepts of first lesson = %d, want 2", got)
	}
	if def.Preferences["language"] != "en" {
		t.Errorf("Preferences[language] = %v, want en", def.Preferences["language"])
	}
}

func TestLoadFile_JSON(t *testing.T) {
	path := writeFile(t, "go.json", `{"name":"Go","parts":[{"name":"Start","difficulty":1,"chapters":[{"name":"Hello","lessons":[{"name":"main","concepts":[]}]}]}]}`)

	def, err := curriculum.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if def.Parts[0].Chapters[0].Lessons[0].Name != "main" {
		t.Errorf("lesson name = %q, want main", def.Parts[0].Chapters[0].Lessons[0].Name)
	}
}

func TestLoadFile_InvalidDifficulty(t *testing.T) {
	path := writeFile(t, "bad.yaml", `
name: Broken
parts:
  - name: Too hard
    difficulty: 4
`)

	_, err := curriculum.LoadFile(path)
	if err == nil {
		t.Fatal("LoadFile() should reject difficulty 4")
	}
	var verr *curriculum.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %T, want *ValidationError", err)
	}
	if len(verr.Problems) == 0 {
		t.Error("ValidationError has no problems listed")
	}
}

func TestLoadFile_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, "notes.txt", "name: x")

	if _, err := curriculum.LoadFile(path); err == nil {
		t.Fatal("LoadFile() should reject .txt files")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := curriculum.LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("LoadFile() should fail for a missing file")
	}
}

func TestMarshalYAML_RoundTrip(t *testing.T) {
	def, err := curriculum.Parse([]byte(pythonYAML), ".yaml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	out, err := curriculum.MarshalYAML(def)
	if err != nil {
		t.Fatalf("MarshalYAML() error = %v", err)
	}

	again, err := curriculum.Parse(out, ".yml")
	if err != nil {
		t.Fatalf("Parse(MarshalYAML()) error = %v", err)
	}
	if again.Parts[1].Chapters[0].Description != "Defining and calling functions" {
		t.Errorf("chapter description lost: %q", again.Parts[1].Chapters[0].Description)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}
