package curriculum_test

import (
	"testing"

	"github.com/p-n-ai/learning-tracker/internal/curriculum"
)

func TestValidateJSON(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"empty parts", `{"name":"Rust","parts":[]}`, false},
		{"empty children", `{"name":"Rust","parts":[{"name":"P","difficulty":1,"chapters":[{"name":"C","lessons":[{"name":"L","concepts":[]}]}]}]}`, false},
		{"full", `{"name":"Rust","type":"programming","difficulty_level":"advanced","parts":[{"name":"P","difficulty":3,"chapters":[{"name":"C","lessons":[{"name":"L","concepts":[{"name":"K"}]}]}]}]}`, false},
		{"missing name", `{"parts":[]}`, true},
		{"empty name", `{"name":""}`, true},
		{"bad type", `{"name":"Rust","type":"cooking"}`, true},
		{"bad level", `{"name":"Rust","difficulty_level":"expert"}`, true},
		{"difficulty zero", `{"name":"Rust","parts":[{"name":"P","difficulty":0}]}`, true},
		{"difficulty string", `{"name":"Rust","parts":[{"name":"P","difficulty":"1"}]}`, true},
		{"lesson without name", `{"name":"Rust","parts":[{"name":"P","difficulty":1,"chapters":[{"name":"C","lessons":[{"concepts":[]}]}]}]}`, true},
		{"missing parts", `{"name":"Rust"}`, true},
		{"null parts", `{"name":"Rust","parts":null}`, true},
		{"part without chapters", `{"name":"Rust","parts":[{"name":"P","difficulty":1}]}`, true},
		{"chapter without lessons", `{"name":"Rust","parts":[{"name":"P","difficulty":1,"chapters":[{"name":"C"}]}]}`, true},
		{"lesson without concepts", `{"name":"Rust","parts":[{"name":"P","difficulty":1,"chapters":[{"name":"C","lessons":[{"name":"L"}]}]}]}`, true},
		{"not json", `{name`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := curriculum.ValidateJSON([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Definition(t *testing.T) {
	def := curriculum.Definition{
		Name: "Go",
		Parts: []curriculum.PartDefinition{
			{Name: "Start", Difficulty: 1, Chapters: []curriculum.ChapterDefinition{}},
		},
	}
	if err := curriculum.Validate(def); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	def.Parts[0].Chapters = nil
	if err := curriculum.Validate(def); err == nil {
		t.Fatal("Validate() should reject a part without chapters")
	}
	def.Parts[0].Chapters = []curriculum.ChapterDefinition{}

	def.Parts[0].Difficulty = 5
	if err := curriculum.Validate(def); err == nil {
		t.Fatal("Validate() should reject difficulty 5")
	}
}
