package manager

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/baiirun/tasks/internal/model"
	"github.com/baiirun/tasks/internal/schedule"
)

var (
	// ErrNotFound is returned when an identifier is absent from the relevant collection.
	ErrNotFound = errors.New("not found")
	// ErrInvalid is returned for items that fail validation: blank name,
	// unknown status, negative duration or a missing owning epic.
	ErrInvalid = errors.New("invalid item")
	// ErrConflict is matched by every *ConflictError.
	ErrConflict = errors.New("schedule conflict")
	// ErrUnscheduled is returned by derived epic time queries when none of the
	// epic's subtasks has a start time and duration.
	ErrUnscheduled = errors.New("epic has no scheduled subtasks")
)

// ConflictError describes a candidate booking that overlaps an existing one.
type ConflictError struct {
	Candidate schedule.Booking
	Existing  schedule.Booking
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("schedule conflict: [%s, %s) overlaps %s [%s, %s)",
		e.Candidate.Start.Format(time.RFC3339), e.Candidate.End.Format(time.RFC3339),
		e.Existing.Ref, e.Existing.Start.Format(time.RFC3339), e.Existing.End.Format(time.RFC3339))
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalid, err)
}

func notFound(kind model.Kind, id int) error {
	return fmt.Errorf("%w: %s %d", ErrNotFound, strings.ToLower(string(kind)), id)
}

func itemNotFound(id int) error {
	return fmt.Errorf("%w: item %d", ErrNotFound, id)
}

func unscheduled(epicID int) error {
	return fmt.Errorf("%w: epic %d", ErrUnscheduled, epicID)
}
