// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"precision-engine/internal/common/validation"
)

// invalidInputCode is thrown by the worker wrapper when variables fail InputSchema.
const invalidInputCode = "INVALID_INPUT"

//go:embed activities.json
var builtin []byte

// Default returns the activity registry shipped with the binary.
func Default() (*ActivityRegistry, error) {
	return parse(builtin)
}

// LoadRegistry reads a registry file, for deployments that override the built-in one.
func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decode activity registry: %w", err)
	}
	return &reg, nil
}

// Find returns the activity bound to taskType.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// Validate checks required fields, unique ids, timeouts and that every input
// schema compiles.
func (r *ActivityRegistry) Validate() error {
	if len(r.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool)
	for _, a := range r.Activities {
		if a.ID == "" {
			return fmt.Errorf("activity missing required field: ID")
		}
		if ids[a.ID] {
			return fmt.Errorf("duplicate activity ID: %s", a.ID)
		}
		ids[a.ID] = true

		if a.DisplayName == "" {
			return fmt.Errorf("activity %s missing required field: DisplayName", a.ID)
		}
		if a.TaskType == "" {
			return fmt.Errorf("activity %s missing required field: TaskType", a.ID)
		}
		if a.Category == "" {
			return fmt.Errorf("activity %s missing required field: Category", a.ID)
		}
		if _, err := a.TimeoutDuration(); err != nil {
			return err
		}
		if _, err := a.CompileInputSchema(); err != nil {
			return err
		}
		if len(a.InputSchema) > 0 && !a.Throws(invalidInputCode) {
			return fmt.Errorf("activity %s validates input but does not declare %s", a.ID, invalidInputCode)
		}
	}
	return nil
}

// TimeoutDuration parses Timeout; an empty value means no timeout is set.
func (a *Activity) TimeoutDuration() (time.Duration, error) {
	if a.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return 0, fmt.Errorf("activity %s has invalid timeout %q: %w", a.ID, a.Timeout, err)
	}
	return d, nil
}

// CompileInputSchema returns nil when the activity declares no input schema.
func (a *Activity) CompileInputSchema() (*validation.Schema, error) {
	if len(a.InputSchema) == 0 {
		return nil, nil
	}
	return validation.NewSchemaFromMap(a.ID+".input", a.InputSchema)
}
