package curriculum

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON []byte

var loadSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

// ValidationError lists every problem found in a curriculum payload.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid curriculum: " + strings.Join(e.Problems, "; ")
}

// Schema returns the JSON Schema curriculum payloads are checked against.
func Schema() json.RawMessage {
	return json.RawMessage(schemaJSON)
}

// ValidateJSON checks a raw JSON payload against the curriculum schema.
func ValidateJSON(data []byte) error {
	return validate(gojsonschema.NewBytesLoader(data))
}

// Validate checks a decoded definition against the curriculum schema.
func Validate(d Definition) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding definition: %w", err)
	}
	return ValidateJSON(data)
}

func validate(doc gojsonschema.JSONLoader) error {
	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("loading curriculum schema: %w", err)
	}

	result, err := schema.Validate(doc)
	if err != nil {
		return &ValidationError{Problems: []string{err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", re.Field(), re.Description()))
	}
	return &ValidationError{Problems: problems}
}
