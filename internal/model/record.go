package model

import (
	"fmt"
	"time"
)

// Record is the flattened form of any item. It is what gets persisted,
// serialized to JSON and returned from ordered listings.
type Record struct {
	ID          int
	Kind        Kind
	Name        string
	Description string
	Status      Status
	StartTime   *time.Time
	Duration    *time.Duration
	EndTime     *time.Time
	EpicID      int
	SubtaskIDs  []int
}

// State is everything needed to rebuild a store: every item, the access
// history oldest first, and the highest identifier ever issued. LastID can
// exceed every record id once the newest items have been removed.
type State struct {
	Records []Record
	History []Ref
	LastID  int
}

// Ref returns the record's kind and id.
func (r Record) Ref() Ref {
	return Ref{Kind: r.Kind, ID: r.ID}
}

func (i Item) record(kind Kind) Record {
	r := Record{
		ID:          i.ID,
		Kind:        kind,
		Name:        i.Name,
		Description: i.Description,
		Status:      i.Status,
		StartTime:   copyTime(i.StartTime),
		Duration:    copyDuration(i.Duration),
	}
	if end, ok := i.EndTime(); ok {
		r.EndTime = &end
	}
	return r
}

func (t Task) Record() Record {
	return t.Item.record(KindTask)
}

func (s Subtask) Record() Record {
	r := s.Item.record(KindSubtask)
	r.EpicID = s.EpicID
	return r
}

func (e Epic) Record() Record {
	a := e.Aggregate()
	r := Record{
		ID:          e.ID,
		Kind:        KindEpic,
		Name:        e.Name,
		Description: e.Description,
		Status:      a.Status,
		StartTime:   copyTime(a.StartTime),
		EndTime:     copyTime(a.EndTime),
	}
	if a.Scheduled > 0 {
		d := a.Duration
		r.Duration = &d
	}
	if len(e.SubtaskIDs) > 0 {
		r.SubtaskIDs = append([]int(nil), e.SubtaskIDs...)
	}
	return r
}

func (r Record) item() Item {
	return Item{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Status:      r.Status,
		StartTime:   copyTime(r.StartTime),
		Duration:    copyDuration(r.Duration),
	}
}

// Task converts a TASK record.
func (r Record) Task() (Task, error) {
	if r.Kind != KindTask {
		return Task{}, fmt.Errorf("record %d is %s, not %s", r.ID, r.Kind, KindTask)
	}
	return Task{Item: r.item()}, nil
}

// Subtask converts a SUBTASK record.
func (r Record) Subtask() (Subtask, error) {
	if r.Kind != KindSubtask {
		return Subtask{}, fmt.Errorf("record %d is %s, not %s", r.ID, r.Kind, KindSubtask)
	}
	return Subtask{Item: r.item(), EpicID: r.EpicID}, nil
}

// Epic converts an EPIC record. Derived fields and subtask ids are dropped;
// the manager rebuilds both from the subtasks that reference the epic, using
// r.SubtaskIDs only as the attach order.
func (r Record) Epic() (Epic, error) {
	if r.Kind != KindEpic {
		return Epic{}, fmt.Errorf("record %d is %s, not %s", r.ID, r.Kind, KindEpic)
	}
	e := NewEpic(r.Name, r.Description)
	e.ID = r.ID
	return e, nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyDuration(d *time.Duration) *time.Duration {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

// TimePtr and DurationPtr are conveniences for building time-boxed items.
func TimePtr(t time.Time) *time.Time { return &t }

func DurationPtr(d time.Duration) *time.Duration { return &d }
