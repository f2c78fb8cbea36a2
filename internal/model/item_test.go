package model

import (
	"testing"
	"time"
)

func TestKind_IsValid(t *testing.T) {
	tests := []struct {
		kind  Kind
		valid bool
	}{
		{KindTask, true},
		{KindEpic, true},
		{KindSubtask, true},
		{Kind("TASK"), true},
		{Kind(""), false},
		{Kind("invalid"), false},
		{Kind("task"), false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"task", KindTask, false},
		{"Epic", KindEpic, false},
		{" subtask ", KindSubtask, false},
		{"story", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKind(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStatus_IsValid(t *testing.T) {
	tests := []struct {
		status Status
		valid  bool
	}{
		{StatusNew, true},
		{StatusInProgress, true},
		{StatusDone, true},
		{Status("IN_PROGRESS"), true},
		{Status(""), false},
		{Status("open"), false},
		{Status("New"), false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"new", StatusNew, false},
		{"in-progress", StatusInProgress, false},
		{"in progress", StatusInProgress, false},
		{"DONE", StatusDone, false},
		{"blocked", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStatus(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseStatus(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStatus_Next(t *testing.T) {
	if got := StatusNew.Next(); got != StatusInProgress {
		t.Errorf("NEW.Next() = %s", got)
	}
	if got := StatusInProgress.Next(); got != StatusDone {
		t.Errorf("IN_PROGRESS.Next() = %s", got)
	}
	if got := StatusDone.Next(); got != StatusNew {
		t.Errorf("DONE.Next() = %s", got)
	}
}

func TestItem_TimeBoxed(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		item Item
		want bool
	}{
		{"both", Item{StartTime: &start, Duration: DurationPtr(time.Hour)}, true},
		{"start only", Item{StartTime: &start}, false},
		{"duration only", Item{Duration: DurationPtr(time.Hour)}, false},
		{"neither", Item{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.TimeBoxed(); got != tt.want {
				t.Errorf("TimeBoxed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestItem_EndTime(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	item := Item{StartTime: &start, Duration: DurationPtr(48 * time.Hour)}

	end, ok := item.EndTime()
	if !ok {
		t.Fatal("expected end time for time-boxed item")
	}
	if want := start.Add(48 * time.Hour); !end.Equal(want) {
		t.Errorf("EndTime() = %v, want %v", end, want)
	}

	if _, ok := (Item{StartTime: &start}).EndTime(); ok {
		t.Error("expected no end time without a duration")
	}
}

func TestItem_Validate(t *testing.T) {
	tests := []struct {
		name    string
		item    Item
		wantErr bool
	}{
		{"ok", Item{Name: "Write report", Status: StatusNew}, false},
		{"empty name", Item{Name: "", Status: StatusNew}, true},
		{"blank name", Item{Name: "   ", Status: StatusNew}, true},
		{"tab name", Item{Name: "\t\n", Status: StatusNew}, true},
		{"bad status", Item{Name: "x", Status: Status("open")}, true},
		{"missing status", Item{Name: "x"}, true},
		{"negative duration", Item{Name: "x", Status: StatusNew, Duration: DurationPtr(-time.Minute)}, true},
		{"zero duration", Item{Name: "x", Status: StatusNew, Duration: DurationPtr(0)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEpic_StatusDefaultsToNew(t *testing.T) {
	var e Epic
	if e.Aggregate().Status != StatusNew {
		t.Errorf("zero epic status = %q, want NEW", e.Aggregate().Status)
	}
}

func TestEpic_CloneDoesNotShareSubtaskIDs(t *testing.T) {
	e := NewEpic("E", "")
	e.SubtaskIDs = []int{1, 2}

	c := e.Clone()
	c.SubtaskIDs[0] = 99

	if e.SubtaskIDs[0] != 1 {
		t.Errorf("clone mutated original: %v", e.SubtaskIDs)
	}
}
