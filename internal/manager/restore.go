package manager

import (
	"errors"
	"fmt"

	"github.com/baiirun/tasks/internal/model"
	"github.com/baiirun/tasks/internal/schedule"
)

// Restore repopulates an empty manager from persisted state. Create-time
// validation (names, overlaps) is skipped since persisted data was validated
// when it was written, but every subtask must still reference an epic present
// in the records. Each epic's subtasks are attached in the order its record
// lists them, with unlisted members following in record order. The id counter
// resumes after the larger of state.LastID and the highest restored id, so ids
// of removed items are never issued again.
//
// History references to items absent from the records are dropped.
func (m *Manager) Restore(state model.State) error {
	if len(m.tasks)+len(m.epics)+len(m.subtasks) > 0 || m.lastID != 0 {
		return errors.New("restore: manager is not empty")
	}
	if state.LastID < 0 {
		return fmt.Errorf("restore: invalid last id %d", state.LastID)
	}

	tasks := make(map[int]model.Task)
	epics := make(map[int]model.Epic)
	subtasks := make(map[int]model.Subtask)
	listed := make(map[int][]int)
	seen := make(map[int]bool, len(state.Records))
	lastID := state.LastID

	for _, r := range state.Records {
		if r.ID <= 0 {
			return fmt.Errorf("restore: invalid id %d", r.ID)
		}
		if seen[r.ID] {
			return fmt.Errorf("restore: duplicate id %d", r.ID)
		}
		seen[r.ID] = true
		lastID = max(lastID, r.ID)

		switch r.Kind {
		case model.KindTask:
			t, err := r.Task()
			if err != nil {
				return fmt.Errorf("restore: %w", err)
			}
			tasks[t.ID] = t
		case model.KindEpic:
			e, err := r.Epic()
			if err != nil {
				return fmt.Errorf("restore: %w", err)
			}
			epics[e.ID] = e
			listed[e.ID] = r.SubtaskIDs
		case model.KindSubtask:
			s, err := r.Subtask()
			if err != nil {
				return fmt.Errorf("restore: %w", err)
			}
			subtasks[s.ID] = s
		default:
			return fmt.Errorf("restore: record %d has unknown kind %q", r.ID, r.Kind)
		}
	}

	members := make(map[int][]int)
	for _, r := range state.Records {
		if r.Kind != model.KindSubtask {
			continue
		}
		if _, ok := epics[r.EpicID]; !ok {
			return fmt.Errorf("restore: subtask %d references missing epic %d", r.ID, r.EpicID)
		}
		members[r.EpicID] = append(members[r.EpicID], r.ID)
	}
	for id, epic := range epics {
		epic.SubtaskIDs = attachOrder(listed[id], members[id])
		epics[id] = epic
	}

	m.tasks, m.epics, m.subtasks = tasks, epics, subtasks
	m.lastID = lastID
	for id, t := range tasks {
		if b, ok := schedule.BookingFor(model.Ref{Kind: model.KindTask, ID: id}, t.Item); ok {
			m.index.Insert(b)
		}
	}
	for id, s := range subtasks {
		if b, ok := schedule.BookingFor(model.Ref{Kind: model.KindSubtask, ID: id}, s.Item); ok {
			m.index.Insert(b)
		}
	}
	for id := range epics {
		m.reaggregate(id)
	}
	for _, ref := range state.History {
		if _, ok := m.record(ref); ok {
			m.history.Record(ref.ID, ref)
		}
	}

	m.log.Debug().Int("items", len(state.Records)).Int("booked", m.index.Len()).Int("history", m.history.Len()).Int("last_id", lastID).Msg("restored")
	return nil
}

// attachOrder returns members in the order listed names them, then any
// members listed missed. Listed ids that are not members are ignored.
func attachOrder(listed, members []int) []int {
	if len(members) == 0 {
		return nil
	}
	pending := make(map[int]bool, len(members))
	for _, id := range members {
		pending[id] = true
	}
	out := make([]int, 0, len(members))
	for _, id := range listed {
		if pending[id] {
			out = append(out, id)
			delete(pending, id)
		}
	}
	for _, id := range members {
		if pending[id] {
			out = append(out, id)
		}
	}
	return out
}
