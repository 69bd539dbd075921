package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// semesterSchema is the structural contract a semester file must satisfy
// before it is accepted into the catalog.
const semesterSchema = `{
	"type": "object",
	"required": ["id", "chapters"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"chapters": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "units"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"title": {"type": "string"},
					"units": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["id", "video"],
							"properties": {
								"id": {"type": "string", "minLength": 1},
								"title": {"type": "string"},
								"video": {
									"type": "object",
									"required": ["id"],
									"properties": {
										"id": {"type": "string", "minLength": 1},
										"questions": {
											"type": "array",
											"items": {
												"type": "object",
												"required": ["id", "correct_answer", "options"],
												"properties": {
													"id": {"type": "string", "minLength": 1},
													"text": {"type": "string"},
													"options": {"type": "array", "items": {"type": "string"}, "minItems": 2},
													"correct_answer": {"type": "string", "minLength": 1}
												}
											}
										}
									}
								}
							}
						}
					}
				}
			}
		}
	}
}`

// Load reads all semester YAML files under rootDir and builds the catalog.
// Files that fail schema validation are skipped with a warning rather than
// failing the whole load. Semesters are ordered by file name.
func Load(rootDir string) (*Catalog, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(semesterSchema))
	if err != nil {
		return nil, fmt.Errorf("compiling semester schema: %w", err)
	}

	var paths []string
	err = filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking catalog dir: %w", err)
	}
	sort.Strings(paths)

	var semesters []Semester
	for _, path := range paths {
		sem, ok := loadSemester(path, schema)
		if ok {
			semesters = append(semesters, sem)
		}
	}

	if len(semesters) == 0 {
		return nil, fmt.Errorf("no valid semester files under %s", rootDir)
	}

	c := New(semesters)
	slog.Info("catalog loaded", "semesters", len(semesters), "units", c.Len())
	return c, nil
}

func loadSemester(path string, schema *gojsonschema.Schema) (Semester, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("skipping unreadable catalog file", "path", path, "error", err)
		return Semester{}, false
	}

	// Validate the generic document before the typed unmarshal so schema
	// violations produce a named reason instead of a zero-valued tree.
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		slog.Warn("skipping invalid catalog YAML", "path", path, "error", err)
		return Semester{}, false
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		slog.Warn("skipping unvalidatable catalog file", "path", path, "error", err)
		return Semester{}, false
	}
	if !result.Valid() {
		for _, desc := range result.Errors() {
			slog.Warn("catalog file failed validation", "path", path, "problem", desc.String())
		}
		return Semester{}, false
	}

	var sem Semester
	if err := yaml.Unmarshal(data, &sem); err != nil {
		slog.Warn("skipping invalid semester YAML", "path", path, "error", err)
		return Semester{}, false
	}
	if sem.ID == "" {
		return Semester{}, false
	}
	return sem, true
}
