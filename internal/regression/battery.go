// Package regression runs batteries of checker invocations.
// A battery is a YAML file listing dump/source pairs with the target
// architecture and mode to check each one in, so a whole test tree can be
// verified with one command.
package regression

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Battery is a collection of regression tasks.
type Battery struct {
	Version int    `yaml:"version"`
	Tasks   []Task `yaml:"tasks"`
}

// Task is a single checker invocation.
type Task struct {
	ID         string `yaml:"id"`
	Dump       string `yaml:"dump"`
	Source     string `yaml:"source"`
	Arch       string `yaml:"arch,omitempty"`
	Debuggable bool   `yaml:"debuggable,omitempty"`
	TimeoutSec int    `yaml:"timeout_sec,omitempty"`
}

// Result captures execution outcome for a task.
type Result struct {
	TaskID     string
	Success    bool
	Error      string
	DurationMs int64
}

// CheckFunc runs one task. A nil error means every selected test case passed.
type CheckFunc func(ctx context.Context, task Task) error

// LoadBattery reads a YAML battery file from disk. Relative dump and source
// paths are resolved against the battery's directory.
func LoadBattery(path string) (*Battery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b Battery
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse battery YAML: %w", err)
	}

	base := filepath.Dir(path)
	for i := range b.Tasks {
		t := &b.Tasks[i]
		if t.ID == "" {
			t.ID = fmt.Sprintf("task-%d", i+1)
		}
		if t.Dump == "" || t.Source == "" {
			return nil, fmt.Errorf("task %s: dump and source are required", t.ID)
		}
		if !filepath.IsAbs(t.Dump) {
			t.Dump = filepath.Join(base, t.Dump)
		}
		if !filepath.IsAbs(t.Source) {
			t.Source = filepath.Join(base, t.Source)
		}
	}
	return &b, nil
}

// RunBattery executes all tasks in order. With failFast it stops at the first
// failing task.
func RunBattery(ctx context.Context, b *Battery, check CheckFunc, failFast bool) ([]Result, error) {
	if b == nil || len(b.Tasks) == 0 {
		return nil, nil
	}

	results := make([]Result, 0, len(b.Tasks))

	for _, task := range b.Tasks {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		start := time.Now()

		timeout := time.Duration(task.TimeoutSec) * time.Second
		if timeout <= 0 {
			timeout = 5 * time.Minute
		}
		tctx, cancel := context.WithTimeout(ctx, timeout)
		err := check(tctx, task)
		cancel()

		res := Result{TaskID: task.ID, Success: err == nil}
		if err != nil {
			res.Error = err.Error()
		}
		res.DurationMs = time.Since(start).Milliseconds()
		results = append(results, res)

		if !res.Success && failFast {
			break
		}
	}

	return results, nil
}

// DefaultBatteryPath returns the canonical battery path for a test tree.
func DefaultBatteryPath(root string) string {
	return filepath.Join(root, "checker-battery.yaml")
}
