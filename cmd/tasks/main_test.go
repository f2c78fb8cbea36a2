package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type cli struct {
	t      *testing.T
	config string
	db     string
}

func setupCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	return &cli{
		t:      t,
		config: filepath.Join(dir, "config.yaml"),
		db:     filepath.Join(dir, "tasks.db"),
	}
}

// run executes one invocation against the test database.
func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", c.config, "--db", c.db}, args...))
	err := root.Execute()
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	if err != nil {
		c.t.Fatalf("tasks %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func (c *cli) item(args ...string) ItemJSON {
	c.t.Helper()
	out := c.mustRun(append(args, "--json")...)
	var item ItemJSON
	if err := json.Unmarshal([]byte(out), &item); err != nil {
		c.t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	return item
}

func (c *cli) list(args ...string) []ItemJSON {
	c.t.Helper()
	out := c.mustRun(append(args, "--json")...)
	var items []ItemJSON
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		c.t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	return items
}

func TestAddTask_Overlap(t *testing.T) {
	c := setupCLI(t)

	first := c.item("add", "task", "Write report", "--start", "2024-09-02T08:00:00Z", "--duration", "48h")
	if first.ID != 1 || first.Duration != "48h0m0s" {
		t.Errorf("unexpected task: %+v", first)
	}

	_, err := c.run("add", "task", "Overlapping", "--start", "2024-09-03T08:00:00Z", "--duration", "1h")
	if err == nil || !strings.Contains(err.Error(), "schedule conflict") {
		t.Fatalf("expected schedule conflict, got %v", err)
	}

	// Touching the end is fine.
	c.mustRun("add", "task", "Follow up", "--start", "2024-09-04T08:00:00Z", "--duration", "1h")

	if got := c.list("prioritized"); len(got) != 2 || got[1].Name != "Follow up" {
		t.Errorf("unexpected prioritized list: %+v", got)
	}
}

func TestAddTask_BlankName(t *testing.T) {
	c := setupCLI(t)
	if _, err := c.run("add", "task", "  "); err == nil {
		t.Fatal("expected error for blank name")
	}
	if got := c.list("list"); len(got) != 0 {
		t.Errorf("expected no items, got %d", len(got))
	}
}

func TestEpicLifecycle(t *testing.T) {
	c := setupCLI(t)

	epic := c.item("add", "epic", "Release", "--desc", "v1")
	c.mustRun("add", "subtask", "Draft notes", "--epic", "1", "--status", "done",
		"--start", "2024-09-02 08:00", "--duration", "2h")
	c.mustRun("add", "subtask", "Tag build", "--epic", "1")

	got := c.item("show", "1")
	if got.ID != epic.ID || got.Status != "IN_PROGRESS" {
		t.Errorf("expected IN_PROGRESS epic, got %+v", got)
	}
	if len(got.SubtaskIDs) != 2 || got.Duration != "2h0m0s" {
		t.Errorf("unexpected derived fields: %+v", got)
	}

	subs := c.list("subtasks", "1")
	if len(subs) != 2 || subs[0].EpicID != 1 {
		t.Errorf("unexpected subtasks: %+v", subs)
	}

	c.mustRun("update", "3", "--status", "done")
	if got := c.item("show", "1"); got.Status != "DONE" {
		t.Errorf("expected DONE epic, got %s", got.Status)
	}

	c.mustRun("rm", "1")
	if got := c.list("list"); len(got) != 0 {
		t.Errorf("expected cascade delete, got %+v", got)
	}
}

func TestRemovedIDNotReused(t *testing.T) {
	c := setupCLI(t)
	c.mustRun("add", "task", "a")
	c.mustRun("add", "task", "b")
	c.mustRun("rm", "2")

	if got := c.item("add", "task", "c"); got.ID != 3 {
		t.Errorf("expected id 3, got %d", got.ID)
	}
	if _, err := c.run("show", "2"); err == nil {
		t.Error("expected removed id to stay missing")
	}
}

func TestAddSubtask_RequiresEpic(t *testing.T) {
	c := setupCLI(t)
	if _, err := c.run("add", "subtask", "orphan"); err == nil {
		t.Fatal("expected error without --epic")
	}
	if _, err := c.run("add", "subtask", "orphan", "--epic", "9"); err == nil {
		t.Fatal("expected error for missing epic")
	}
}

func TestUpdate(t *testing.T) {
	c := setupCLI(t)
	c.mustRun("add", "task", "Draft", "--start", "2024-09-02T08:00:00Z", "--duration", "1h")

	got := c.item("update", "1", "--name", "Final", "--status", "in_progress")
	if got.Name != "Final" || got.Status != "IN_PROGRESS" || got.StartTime == nil {
		t.Errorf("unexpected update result: %+v", got)
	}

	got = c.item("update", "1", "--unschedule")
	if got.StartTime != nil || got.Duration != "" {
		t.Errorf("expected unscheduled task, got %+v", got)
	}
	if list := c.list("prioritized"); len(list) != 0 {
		t.Errorf("expected empty schedule, got %+v", list)
	}

	if _, err := c.run("update", "42", "--name", "x"); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestHistory(t *testing.T) {
	c := setupCLI(t)
	c.mustRun("add", "task", "A")
	c.mustRun("add", "task", "B")

	c.mustRun("show", "1")
	c.mustRun("show", "2")
	c.mustRun("show", "1")
	// Listing does not count as a view.
	c.mustRun("list")

	got := c.list("history")
	if len(got) != 2 || got[0].Name != "B" || got[1].Name != "A" {
		t.Errorf("unexpected history: %+v", got)
	}

	c.mustRun("rm", "1")
	if got := c.list("history"); len(got) != 1 || got[0].Name != "B" {
		t.Errorf("expected removed item to leave history, got %+v", got)
	}
}

func TestListKindAndClear(t *testing.T) {
	c := setupCLI(t)
	c.mustRun("add", "task", "T")
	c.mustRun("add", "epic", "E")
	c.mustRun("add", "subtask", "S", "--epic", "2")

	if got := c.list("list", "--kind", "subtask"); len(got) != 1 || got[0].Name != "S" {
		t.Errorf("unexpected subtask list: %+v", got)
	}
	if _, err := c.run("list", "--kind", "story"); err == nil {
		t.Error("expected error for unknown kind")
	}

	c.mustRun("clear", "subtask")
	if got := c.item("show", "2"); got.Status != "NEW" || len(got.SubtaskIDs) != 0 {
		t.Errorf("expected empty epic, got %+v", got)
	}
	c.mustRun("clear", "task")
	if got := c.list("list"); len(got) != 1 || got[0].Kind != "EPIC" {
		t.Errorf("expected only the epic, got %+v", got)
	}
}

func TestPlainOutput(t *testing.T) {
	c := setupCLI(t)
	out := c.mustRun("add", "task", "Plain")
	if !strings.Contains(out, "Created") || !strings.Contains(out, "Plain") {
		t.Errorf("unexpected output: %q", out)
	}
	out = c.mustRun("show", "1")
	if !strings.Contains(out, "Name:") || !strings.Contains(out, "TASK") {
		t.Errorf("unexpected show output: %q", out)
	}
	if out := c.mustRun("prioritized"); !strings.Contains(out, "No items") {
		t.Errorf("unexpected empty list output: %q", out)
	}
}

func TestConfigCmd(t *testing.T) {
	c := setupCLI(t)
	out := c.mustRun("config")
	if !strings.Contains(out, "shutdown_timeout: 5s") {
		t.Errorf("unexpected config output: %q", out)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2024-09-02T08:00:00Z", time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC), false},
		{"2024-09-02 08:00", time.Date(2024, 9, 2, 8, 0, 0, 0, time.Local), false},
		{"2024-09-02T08:00", time.Date(2024, 9, 2, 8, 0, 0, 0, time.Local), false},
		{"tomorrow", time.Time{}, true},
	}
	for _, tt := range tests {
		got, err := parseTime(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseTime(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !got.Equal(tt.want) {
			t.Errorf("parseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	if d, err := parseDuration("2h30m"); err != nil || d != 150*time.Minute {
		t.Errorf("parseDuration = %v, %v", d, err)
	}
	for _, bad := range []string{"", "soon", "-1h"} {
		if _, err := parseDuration(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID("#12"); err != nil || id != 12 {
		t.Errorf("parseID(#12) = %d, %v", id, err)
	}
	for _, bad := range []string{"0", "-3", "abc"} {
		if _, err := parseID(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
