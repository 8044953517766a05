package regression

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadBattery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "battery.yaml")
	content := `version: 1
tasks:
  - id: smoke
    dump: out/graph.cfg
    source: src
    arch: ARM64
  - dump: /abs/graph.cfg
    source: /abs/Main.java
    debuggable: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write battery: %v", err)
	}

	b, err := LoadBattery(path)
	if err != nil {
		t.Fatalf("LoadBattery failed: %v", err)
	}
	if b.Version != 1 {
		t.Fatalf("Version = %d, want 1", b.Version)
	}
	if len(b.Tasks) != 2 || b.Tasks[0].ID != "smoke" {
		t.Fatalf("unexpected tasks: %+v", b.Tasks)
	}
	if got, want := b.Tasks[0].Dump, filepath.Join(dir, "out", "graph.cfg"); got != want {
		t.Fatalf("Dump = %q, want %q", got, want)
	}
	if b.Tasks[0].Arch != "ARM64" {
		t.Fatalf("Arch = %q, want ARM64", b.Tasks[0].Arch)
	}
	if b.Tasks[1].ID != "task-2" || b.Tasks[1].Source != "/abs/Main.java" || !b.Tasks[1].Debuggable {
		t.Fatalf("unexpected second task: %+v", b.Tasks[1])
	}
}

func TestLoadBatteryMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battery.yaml")
	if err := os.WriteFile(path, []byte("tasks:\n  - id: broken\n    dump: a.cfg\n"), 0o644); err != nil {
		t.Fatalf("write battery: %v", err)
	}
	if _, err := LoadBattery(path); err == nil {
		t.Fatalf("expected error for task without source")
	}
}

func TestRunBattery(t *testing.T) {
	b := &Battery{
		Version: 1,
		Tasks: []Task{
			{ID: "ok", Dump: "a.cfg", Source: "a.java", TimeoutSec: 5},
			{ID: "bad", Dump: "b.cfg", Source: "b.java"},
			{ID: "after", Dump: "c.cfg", Source: "c.java"},
		},
	}
	var seen []string
	check := func(ctx context.Context, task Task) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("task %s has no deadline", task.ID)
		}
		seen = append(seen, task.ID)
		if task.ID == "bad" {
			return errors.New("checks failed")
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := RunBattery(ctx, b, check, false)
	if err != nil {
		t.Fatalf("RunBattery failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Success || results[1].Success || !results[2].Success {
		t.Fatalf("unexpected results: %+v", results)
	}
	if results[1].Error != "checks failed" {
		t.Fatalf("Error = %q", results[1].Error)
	}

	seen = nil
	results, err = RunBattery(ctx, b, check, true)
	if err != nil {
		t.Fatalf("RunBattery failed: %v", err)
	}
	if len(results) != 2 || len(seen) != 2 {
		t.Fatalf("fail-fast should stop after the failing task, got %+v", results)
	}
}

func TestRunBatteryCancelled(t *testing.T) {
	b := &Battery{Tasks: []Task{{ID: "x"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunBattery(ctx, b, func(context.Context, Task) error { return nil }, false)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunBatteryEmpty(t *testing.T) {
	results, err := RunBattery(context.Background(), nil, nil, false)
	if err != nil || results != nil {
		t.Fatalf("expected nil results, got %v, %v", results, err)
	}
}
