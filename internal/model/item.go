// Package model defines the task, epic and subtask types shared by the
// manager, persistence and transport layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindTask    Kind = "TASK"
	KindEpic    Kind = "EPIC"
	KindSubtask Kind = "SUBTASK"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindTask, KindEpic, KindSubtask:
		return true
	}
	return false
}

// ParseKind accepts kinds case-insensitively ("task", "Epic", "SUBTASK").
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("invalid kind: %q (want task, epic or subtask)", s)
	}
	return k, nil
}

type Status string

const (
	StatusNew        Status = "NEW"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// ParseStatus accepts statuses case-insensitively, with '-' or ' ' in place of '_'.
func ParseStatus(s string) (Status, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	st := Status(norm)
	if !st.IsValid() {
		return "", fmt.Errorf("invalid status: %q (want new, in_progress or done)", s)
	}
	return st, nil
}

// Next cycles NEW -> IN_PROGRESS -> DONE -> NEW.
func (s Status) Next() Status {
	switch s {
	case StatusNew:
		return StatusInProgress
	case StatusInProgress:
		return StatusDone
	default:
		return StatusNew
	}
}

// Ref names an item of any kind.
type Ref struct {
	Kind Kind
	ID   int
}

func (r Ref) String() string {
	return fmt.Sprintf("%s#%d", strings.ToLower(string(r.Kind)), r.ID)
}

// Item is the shape shared by tasks and subtasks.
type Item struct {
	ID          int
	Name        string
	Description string
	Status      Status
	StartTime   *time.Time
	Duration    *time.Duration
}

// TimeBoxed reports whether the item has both a start time and a duration.
func (i Item) TimeBoxed() bool {
	return i.StartTime != nil && i.Duration != nil
}

// EndTime returns start + duration. ok is false for items that are not time-boxed.
func (i Item) EndTime() (end time.Time, ok bool) {
	if !i.TimeBoxed() {
		return time.Time{}, false
	}
	return i.StartTime.Add(*i.Duration), true
}

// Clone returns a copy that shares no pointers with i.
func (i Item) Clone() Item {
	i.StartTime = copyTime(i.StartTime)
	i.Duration = copyDuration(i.Duration)
	return i
}

// Validate checks the fields every stored item must satisfy.
func (i Item) Validate() error {
	if err := ValidateName(i.Name); err != nil {
		return err
	}
	if !i.Status.IsValid() {
		return fmt.Errorf("invalid status: %q", i.Status)
	}
	if i.Duration != nil && *i.Duration < 0 {
		return fmt.Errorf("negative duration: %s", *i.Duration)
	}
	return nil
}

// ValidateName rejects empty and whitespace-only names.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name must not be blank")
	}
	return nil
}

// Task is a standalone item.
type Task struct {
	Item
}

// Subtask is an item owned by exactly one epic.
type Subtask struct {
	Item
	EpicID int
}

// Aggregate holds the values an epic derives from its subtasks.
type Aggregate struct {
	Status    Status
	StartTime *time.Time
	EndTime   *time.Time
	Duration  time.Duration
	// Scheduled counts the time-boxed subtasks that contributed to the times.
	Scheduled int
}

// Epic groups subtasks. Its status and time span are derived, never set.
type Epic struct {
	ID          int
	Name        string
	Description string
	SubtaskIDs  []int

	derived Aggregate
}

// NewEpic builds an epic value ready to be passed to the manager.
func NewEpic(name, description string) Epic {
	return Epic{Name: name, Description: description, derived: Aggregate{Status: StatusNew}}
}

// Aggregate returns the cached derived values.
func (e Epic) Aggregate() Aggregate {
	a := e.derived
	if a.Status == "" {
		a.Status = StatusNew
	}
	return a
}

// WithAggregate returns a copy of e carrying a. Only the manager should call it.
func (e Epic) WithAggregate(a Aggregate) Epic {
	e.derived = a
	return e
}

// Clone returns a copy that shares no slices with e.
func (e Epic) Clone() Epic {
	if e.SubtaskIDs != nil {
		e.SubtaskIDs = append([]int(nil), e.SubtaskIDs...)
	}
	return e
}

// Validate checks the caller-supplied fields of an epic.
func (e Epic) Validate() error {
	return ValidateName(e.Name)
}
