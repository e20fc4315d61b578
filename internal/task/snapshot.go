package task

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed tasks.schema.json
var snapshotSchemaJSON string

var (
	snapshotSchemaOnce sync.Once
	snapshotSchema     *jsonschema.Schema
	snapshotSchemaErr  error
)

// ValidationError describes a single problem in a persisted snapshot.
type ValidationError struct {
	Path string // JSON path to the error location
	Err  error  // Underlying error
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidationResult contains snapshot validation results.
type ValidationResult struct {
	Valid      bool
	Errors     []error
	UsedSchema bool // true if JSON Schema validation was performed
}

// ValidateSnapshot checks raw snapshot bytes (a JSON array of tasks) before
// they are trusted as a cached collection. JSON Schema validation runs when
// the embedded schema compiles; otherwise minimal structural checks apply.
func ValidateSnapshot(data []byte) *ValidationResult {
	result := &ValidationResult{Valid: true}

	schema := compiledSnapshotSchema()
	if schema != nil {
		var doc interface{}
		if err := json.Unmarshal(data, &doc); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, &ValidationError{
				Err: fmt.Errorf("parse snapshot: %w", err),
			})
			return result
		}
		result.UsedSchema = true
		if err := schema.Validate(doc); err != nil {
			result.Valid = false
			appendSchemaErrors(result, err)
		}
		return result
	}

	// Minimal fallback checks
	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{
			Err: fmt.Errorf("parse snapshot: %w", err),
		})
		return result
	}
	for i, t := range tasks {
		path := fmt.Sprintf("[%d]", i)
		if err := validateTaskMinimal(&t, path); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, err)
		}
	}
	return result
}

func compiledSnapshotSchema() *jsonschema.Schema {
	snapshotSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("tasks.schema.json", strings.NewReader(snapshotSchemaJSON)); err != nil {
			snapshotSchemaErr = err
			return
		}
		snapshotSchema, snapshotSchemaErr = compiler.Compile("tasks.schema.json")
	})
	if snapshotSchemaErr != nil {
		return nil
	}
	return snapshotSchema
}

func validateTaskMinimal(t *Task, path string) *ValidationError {
	if t.ID <= 0 {
		return &ValidationError{
			Path: path + ".id",
			Err:  fmt.Errorf("must be a positive integer, got %d", t.ID),
		}
	}
	if t.Title == "" {
		return &ValidationError{
			Path: path + ".title",
			Err:  fmt.Errorf("missing required field"),
		}
	}
	if !t.Status.Valid() {
		return &ValidationError{
			Path: path + ".status",
			Err:  fmt.Errorf("invalid status %q, must be one of: Pending, In Progress, Completed", t.Status),
		}
	}
	if t.Completed != (t.Status == StatusCompleted) || t.Editable == t.Completed {
		return &ValidationError{
			Path: path,
			Err:  fmt.Errorf("derived fields out of sync with status %q", t.Status),
		}
	}
	return nil
}

func appendSchemaErrors(result *ValidationResult, err error) {
	if err == nil {
		return
	}

	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		result.Errors = append(result.Errors, err)
		return
	}

	collectSchemaErrors(result, ve)
}

func collectSchemaErrors(result *ValidationResult, err *jsonschema.ValidationError) {
	if err == nil {
		return
	}

	if len(err.Causes) == 0 {
		result.Errors = append(result.Errors, &ValidationError{
			Path: jsonPointerToPath(err.InstanceLocation),
			Err:  fmt.Errorf("%s", err.Message),
		})
		return
	}

	for _, cause := range err.Causes {
		collectSchemaErrors(result, cause)
	}
}

func jsonPointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}

	parts := strings.Split(ptr, "/")
	path := ""
	for _, part := range parts {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil {
			path += fmt.Sprintf("[%d]", idx)
			continue
		}
		if path == "" {
			path = part
		} else {
			path += "." + part
		}
	}

	return path
}
