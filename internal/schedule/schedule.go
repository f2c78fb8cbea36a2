// Package schedule keeps the time-ordered set of booked items and decides
// whether a new booking conflicts with it.
package schedule

import (
	"time"

	"github.com/google/btree"

	"github.com/baiirun/tasks/internal/model"
)

// Booking is the [Start, End) interval occupied by a time-boxed item.
type Booking struct {
	model.Ref
	Start time.Time
	End   time.Time
}

// BookingFor returns the booking for item. ok is false when the item is not
// time-boxed and therefore never enters the index.
func BookingFor(ref model.Ref, item model.Item) (b Booking, ok bool) {
	end, ok := item.EndTime()
	if !ok {
		return Booking{}, false
	}
	return Booking{Ref: ref, Start: *item.StartTime, End: end}, true
}

// Overlaps reports whether two bookings share any instant. Intervals that
// only touch (one ends exactly when the other starts) do not overlap.
func Overlaps(a, b Booking) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// less orders by start time, then id so simultaneous starts stay distinct.
func less(a, b Booking) bool {
	if !a.Start.Equal(b.Start) {
		return a.Start.Before(b.Start)
	}
	return a.ID < b.ID
}

// Index is the prioritized view: every booked item ordered by start time.
// It is not safe for concurrent use.
type Index struct {
	tree *btree.BTreeG[Booking]
	byID map[int]Booking
}

const degree = 16

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		tree: btree.NewG(degree, less),
		byID: make(map[int]Booking),
	}
}

// Insert adds b, replacing any existing booking with the same id. It does not
// check for conflicts; call Conflict first.
func (ix *Index) Insert(b Booking) {
	ix.Remove(b.ID)
	ix.tree.ReplaceOrInsert(b)
	ix.byID[b.ID] = b
}

// Remove drops the booking for id. Removing an id that is not booked is a no-op.
func (ix *Index) Remove(id int) bool {
	b, ok := ix.byID[id]
	if !ok {
		return false
	}
	ix.tree.Delete(b)
	delete(ix.byID, id)
	return true
}

// Len returns the number of bookings.
func (ix *Index) Len() int {
	return ix.tree.Len()
}

// Bookings returns every booking, earliest start first. Each call returns a
// fresh slice.
func (ix *Index) Bookings() []Booking {
	out := make([]Booking, 0, ix.tree.Len())
	ix.tree.Ascend(func(b Booking) bool {
		out = append(out, b)
		return true
	})
	return out
}

// Conflict returns the first existing booking that overlaps candidate. The
// candidate's own id is skipped so an update can be checked against
// everything but its previous booking.
func (ix *Index) Conflict(candidate Booking) (Booking, bool) {
	var hit Booking
	found := false
	// Nothing starting at or after the candidate's end can overlap it.
	ix.tree.AscendLessThan(Booking{Start: candidate.End}, func(b Booking) bool {
		if b.ID == candidate.ID {
			return true
		}
		if Overlaps(candidate, b) {
			hit, found = b, true
			return false
		}
		return true
	})
	return hit, found
}
