package curriculum

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a curriculum definition from a YAML or JSON file.
func LoadFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("reading curriculum: %w", err)
	}

	d, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return Definition{}, fmt.Errorf("loading %s: %w", path, err)
	}

	slog.Info("curriculum loaded", "path", path, "name", d.Name, "parts", len(d.Parts))
	return d, nil
}

// Parse decodes a definition. ext selects the format (".yaml", ".yml" or
// ".json"); an empty ext means JSON.
func Parse(data []byte, ext string) (Definition, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		// Round-trip through JSON so both formats share one schema check.
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Definition{}, fmt.Errorf("parsing YAML: %w", err)
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return Definition{}, fmt.Errorf("converting YAML: %w", err)
		}
		data = converted
	case ".json", "":
	default:
		return Definition{}, fmt.Errorf("unsupported curriculum format %q", ext)
	}
	return Decode(data)
}

// Decode validates a JSON payload and decodes it into a Definition.
func Decode(data []byte) (Definition, error) {
	if err := ValidateJSON(data); err != nil {
		return Definition{}, err
	}

	var d Definition
	if err := json.Unmarshal(data, &d); err != nil {
		return Definition{}, fmt.Errorf("decoding curriculum: %w", err)
	}
	return d, nil
}

// MarshalYAML renders a definition as YAML, the format curriculum authors
// usually edit by hand.
func MarshalYAML(d Definition) ([]byte, error) {
	out, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encoding curriculum YAML: %w", err)
	}
	return out, nil
}
