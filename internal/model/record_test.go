package model

import (
	"testing"
	"time"
)

func TestSubtaskRecord(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s := Subtask{
		Item: Item{
			ID: 4, Name: "Draft", Description: "first pass", Status: StatusInProgress,
			StartTime: &start, Duration: DurationPtr(2 * time.Hour),
		},
		EpicID: 1,
	}

	r := s.Record()
	if r.Kind != KindSubtask {
		t.Errorf("kind = %s, want SUBTASK", r.Kind)
	}
	if r.EpicID != 1 {
		t.Errorf("epic id = %d, want 1", r.EpicID)
	}
	if r.EndTime == nil || !r.EndTime.Equal(start.Add(2*time.Hour)) {
		t.Errorf("end time = %v, want %v", r.EndTime, start.Add(2*time.Hour))
	}

	// Record must not alias the source pointers.
	*r.StartTime = start.Add(time.Hour)
	if !s.StartTime.Equal(start) {
		t.Error("record aliases subtask start time")
	}

	back, err := r.Subtask()
	if err != nil {
		t.Fatalf("Subtask(): %v", err)
	}
	if back.EpicID != 1 || back.Name != "Draft" || back.Status != StatusInProgress {
		t.Errorf("round trip = %+v", back)
	}
}

func TestRecord_WrongKind(t *testing.T) {
	r := Record{ID: 1, Kind: KindTask, Name: "x", Status: StatusNew}
	if _, err := r.Epic(); err == nil {
		t.Error("expected error converting TASK record to epic")
	}
	if _, err := r.Subtask(); err == nil {
		t.Error("expected error converting TASK record to subtask")
	}
	if _, err := r.Task(); err != nil {
		t.Errorf("Task(): %v", err)
	}
}

func TestEpicRecord_UsesAggregate(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(5 * time.Hour)
	e := NewEpic("Launch", "").WithAggregate(Aggregate{
		Status:    StatusInProgress,
		StartTime: &start,
		EndTime:   &end,
		Duration:  3 * time.Hour,
		Scheduled: 2,
	})
	e.ID = 7
	e.SubtaskIDs = []int{8, 9}

	r := e.Record()
	if r.Status != StatusInProgress {
		t.Errorf("status = %s", r.Status)
	}
	if r.Duration == nil || *r.Duration != 3*time.Hour {
		t.Errorf("duration = %v, want 3h", r.Duration)
	}
	if len(r.SubtaskIDs) != 2 {
		t.Errorf("subtask ids = %v", r.SubtaskIDs)
	}

	back, err := r.Epic()
	if err != nil {
		t.Fatalf("Epic(): %v", err)
	}
	if back.ID != 7 || back.Aggregate().Status != StatusNew || len(back.SubtaskIDs) != 0 {
		t.Errorf("epic from record should drop derived state, got %+v", back)
	}
}

func TestEpicRecord_NoScheduledSubtasks(t *testing.T) {
	r := NewEpic("Empty", "").Record()
	if r.Duration != nil || r.StartTime != nil || r.EndTime != nil {
		t.Errorf("unscheduled epic record should carry no times: %+v", r)
	}
}

func TestRefString(t *testing.T) {
	if got := (Ref{Kind: KindSubtask, ID: 3}).String(); got != "subtask#3" {
		t.Errorf("String() = %q", got)
	}
}
