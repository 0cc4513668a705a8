package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// seedSchema validates the structure of a topic seed document before it is
// accepted into the catalog. Correctness flags are deliberately not required
// here: a question without a correct option is an authoring error the grader
// reports as an invalid-configuration condition, not a load failure.
const seedSchema = `{
	"type": "object",
	"required": ["id", "name"],
	"properties": {
		"id": {"type": "integer", "minimum": 1},
		"name": {"type": "string", "minLength": 1},
		"content": {"type": "string"},
		"difficulty": {"type": "string"},
		"order": {"type": "integer", "minimum": 0},
		"projects": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["title"],
				"properties": {
					"id": {"type": "integer"},
					"title": {"type": "string", "minLength": 1}
				}
			}
		},
		"questions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "prompt", "options"],
				"properties": {
					"id": {"type": "integer", "minimum": 1},
					"prompt": {"type": "string", "minLength": 1},
					"explanation": {"type": "string"},
					"options": {
						"type": "array",
						"minItems": 2,
						"items": {
							"type": "object",
							"required": ["key", "label"],
							"properties": {
								"key": {"type": "string", "minLength": 1},
								"label": {"type": "string", "minLength": 1},
								"correct": {"type": "boolean"}
							}
						}
					}
				}
			}
		}
	}
}`

// seedDocument is the on-disk shape of one topic seed file.
type seedDocument struct {
	Topic     `yaml:",inline"`
	Questions []QuizQuestion `yaml:"questions"`
}

// Seeder accepts topics discovered by LoadSeedDir.
type Seeder interface {
	PutTopic(topic Topic, questions []QuizQuestion)
}

// LoadSeedDir walks rootDir and loads every topic seed YAML into dst.
// Invalid documents are skipped with a warning so one bad file cannot
// take the whole catalog down.
func LoadSeedDir(rootDir string, dst Seeder) (int, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(seedSchema))
	if err != nil {
		return 0, fmt.Errorf("compiling seed schema: %w", err)
	}

	loaded := 0
	err = filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}

		doc, err := loadSeedFile(path, schema)
		if err != nil {
			slog.Warn("skipping topic seed", "path", path, "error", err)
			return nil
		}

		dst.PutTopic(doc.Topic, doc.Questions)
		loaded++
		return nil
	})
	if err != nil {
		return loaded, fmt.Errorf("walking seed dir: %w", err)
	}

	slog.Info("catalog seeds loaded", "dir", rootDir, "topics", loaded)
	return loaded, nil
}

func loadSeedFile(path string, schema *gojsonschema.Schema) (seedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return seedDocument{}, err
	}

	// Validate the generic document first so authoring mistakes produce
	// schema paths instead of unmarshal panics downstream.
	var generic map[string]any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return seedDocument{}, fmt.Errorf("parsing YAML: %w", err)
	}
	jsonDoc, err := json.Marshal(generic)
	if err != nil {
		return seedDocument{}, fmt.Errorf("converting to JSON: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(jsonDoc))
	if err != nil {
		return seedDocument{}, fmt.Errorf("validating: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return seedDocument{}, fmt.Errorf("schema violations: %s", strings.Join(msgs, "; "))
	}

	var doc seedDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return seedDocument{}, fmt.Errorf("decoding topic: %w", err)
	}
	if err := checkOptionKeys(doc.Questions); err != nil {
		return seedDocument{}, err
	}
	return doc, nil
}

// checkOptionKeys enforces the option-key uniqueness invariant at load time.
func checkOptionKeys(questions []QuizQuestion) error {
	for _, q := range questions {
		seen := make(map[string]bool, len(q.Options))
		for _, opt := range q.Options {
			if seen[opt.Key] {
				return fmt.Errorf("question %d: duplicate option key %q", q.ID, opt.Key)
			}
			seen[opt.Key] = true
		}
	}
	return nil
}
