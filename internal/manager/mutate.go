package manager

import (
	"fmt"
	"slices"

	"github.com/baiirun/tasks/internal/model"
	"github.com/baiirun/tasks/internal/schedule"
)

// CreateTask stores t under a new identifier. Time-boxed tasks must not
// overlap anything already scheduled.
func (m *Manager) CreateTask(t model.Task) (int, error) {
	item := normalize(t.Item)
	if err := item.Validate(); err != nil {
		return 0, m.reject("create task", invalid(err))
	}
	booking, boxed := schedule.BookingFor(model.Ref{Kind: model.KindTask}, item)
	if boxed {
		if err := m.checkConflict(booking); err != nil {
			return 0, m.reject("create task", err)
		}
	}

	item.ID = m.nextID()
	m.tasks[item.ID] = model.Task{Item: item}
	if boxed {
		booking.ID = item.ID
		m.index.Insert(booking)
	}
	return item.ID, nil
}

// CreateEpic stores e under a new identifier. Subtask ids and derived state
// supplied by the caller are discarded.
func (m *Manager) CreateEpic(e model.Epic) (int, error) {
	if err := e.Validate(); err != nil {
		return 0, m.reject("create epic", invalid(err))
	}
	epic := model.NewEpic(e.Name, e.Description)
	epic.ID = m.nextID()
	m.epics[epic.ID] = epic
	m.reaggregate(epic.ID)
	return epic.ID, nil
}

// CreateSubtask stores s under a new identifier, attaches it to its epic and
// re-aggregates the epic.
func (m *Manager) CreateSubtask(s model.Subtask) (int, error) {
	item := normalize(s.Item)
	if err := item.Validate(); err != nil {
		return 0, m.reject("create subtask", invalid(err))
	}
	epic, ok := m.epics[s.EpicID]
	if !ok {
		return 0, m.reject("create subtask", invalid(fmt.Errorf("epic %d does not exist", s.EpicID)))
	}
	booking, boxed := schedule.BookingFor(model.Ref{Kind: model.KindSubtask}, item)
	if boxed {
		if err := m.checkConflict(booking); err != nil {
			return 0, m.reject("create subtask", err)
		}
	}

	item.ID = m.nextID()
	m.subtasks[item.ID] = model.Subtask{Item: item, EpicID: epic.ID}
	epic.SubtaskIDs = append(slices.Clone(epic.SubtaskIDs), item.ID)
	m.epics[epic.ID] = epic
	if boxed {
		booking.ID = item.ID
		m.index.Insert(booking)
	}
	m.reaggregate(epic.ID)
	return item.ID, nil
}

// UpdateTask replaces the stored task with the same id. The task's previous
// booking is ignored when checking for overlaps and stays in place on failure.
func (m *Manager) UpdateTask(t model.Task) (int, error) {
	if _, ok := m.tasks[t.ID]; !ok {
		return 0, m.reject("update task", notFound(model.KindTask, t.ID))
	}
	item := normalize(t.Item)
	if err := item.Validate(); err != nil {
		return 0, m.reject("update task", invalid(err))
	}
	ref := model.Ref{Kind: model.KindTask, ID: item.ID}
	booking, boxed := schedule.BookingFor(ref, item)
	if boxed {
		if err := m.checkConflict(booking); err != nil {
			return 0, m.reject("update task", err)
		}
	}

	m.tasks[item.ID] = model.Task{Item: item}
	m.rebook(ref, booking, boxed)
	return item.ID, nil
}

// UpdateEpic replaces the epic's name and description. Subtask membership and
// derived state remain owned by the manager.
func (m *Manager) UpdateEpic(e model.Epic) (int, error) {
	stored, ok := m.epics[e.ID]
	if !ok {
		return 0, m.reject("update epic", notFound(model.KindEpic, e.ID))
	}
	if err := e.Validate(); err != nil {
		return 0, m.reject("update epic", invalid(err))
	}
	stored.Name = e.Name
	stored.Description = e.Description
	m.epics[e.ID] = stored
	m.reaggregate(e.ID)
	return e.ID, nil
}

// UpdateSubtask replaces the stored subtask with the same id. A changed
// EpicID moves the subtask to that epic; both epics are re-aggregated.
func (m *Manager) UpdateSubtask(s model.Subtask) (int, error) {
	old, ok := m.subtasks[s.ID]
	if !ok {
		return 0, m.reject("update subtask", notFound(model.KindSubtask, s.ID))
	}
	item := normalize(s.Item)
	if err := item.Validate(); err != nil {
		return 0, m.reject("update subtask", invalid(err))
	}
	if _, ok := m.epics[s.EpicID]; !ok {
		return 0, m.reject("update subtask", invalid(fmt.Errorf("epic %d does not exist", s.EpicID)))
	}
	ref := model.Ref{Kind: model.KindSubtask, ID: item.ID}
	booking, boxed := schedule.BookingFor(ref, item)
	if boxed {
		if err := m.checkConflict(booking); err != nil {
			return 0, m.reject("update subtask", err)
		}
	}

	m.subtasks[item.ID] = model.Subtask{Item: item, EpicID: s.EpicID}
	m.rebook(ref, booking, boxed)
	if old.EpicID != s.EpicID {
		m.detach(old.EpicID, item.ID)
		epic := m.epics[s.EpicID]
		epic.SubtaskIDs = append(slices.Clone(epic.SubtaskIDs), item.ID)
		m.epics[s.EpicID] = epic
		m.reaggregate(old.EpicID)
	}
	m.reaggregate(s.EpicID)
	return item.ID, nil
}

// RemoveTask deletes the task and its booking and history entry.
func (m *Manager) RemoveTask(id int) error {
	if _, ok := m.tasks[id]; !ok {
		return m.reject("remove task", notFound(model.KindTask, id))
	}
	delete(m.tasks, id)
	m.index.Remove(id)
	m.history.Remove(id)
	return nil
}

// RemoveEpic deletes the epic together with every one of its subtasks.
func (m *Manager) RemoveEpic(id int) error {
	epic, ok := m.epics[id]
	if !ok {
		return m.reject("remove epic", notFound(model.KindEpic, id))
	}
	for _, sid := range epic.SubtaskIDs {
		m.dropSubtask(sid)
	}
	delete(m.epics, id)
	m.history.Remove(id)
	m.log.Debug().Int("epic", id).Int("subtasks", len(epic.SubtaskIDs)).Msg("epic removed with subtasks")
	return nil
}

// RemoveSubtask deletes the subtask, detaches it from its epic and
// re-aggregates the epic.
func (m *Manager) RemoveSubtask(id int) error {
	s, ok := m.subtasks[id]
	if !ok {
		return m.reject("remove subtask", notFound(model.KindSubtask, id))
	}
	m.dropSubtask(id)
	m.detach(s.EpicID, id)
	m.reaggregate(s.EpicID)
	return nil
}

// RemoveAllTasks deletes every task.
func (m *Manager) RemoveAllTasks() {
	for id := range m.tasks {
		m.index.Remove(id)
		m.history.Remove(id)
	}
	m.tasks = make(map[int]model.Task)
}

// RemoveAllEpics deletes every epic and, with them, every subtask.
func (m *Manager) RemoveAllEpics() {
	for id := range m.subtasks {
		m.dropSubtask(id)
	}
	for id := range m.epics {
		m.history.Remove(id)
	}
	m.epics = make(map[int]model.Epic)
}

// RemoveAllSubtasks deletes every subtask and resets each epic to an empty,
// NEW epic.
func (m *Manager) RemoveAllSubtasks() {
	for id := range m.subtasks {
		m.dropSubtask(id)
	}
	for id, epic := range m.epics {
		epic.SubtaskIDs = nil
		m.epics[id] = epic
		m.reaggregate(id)
	}
}

// dropSubtask removes a subtask from the store, index and history without
// touching its epic.
func (m *Manager) dropSubtask(id int) {
	delete(m.subtasks, id)
	m.index.Remove(id)
	m.history.Remove(id)
}

func (m *Manager) detach(epicID, subtaskID int) {
	epic, ok := m.epics[epicID]
	if !ok {
		return
	}
	epic.SubtaskIDs = slices.DeleteFunc(slices.Clone(epic.SubtaskIDs), func(id int) bool { return id == subtaskID })
	m.epics[epicID] = epic
}

// rebook moves ref's booking to b, or drops it when the item is no longer
// time-boxed.
func (m *Manager) rebook(ref model.Ref, b schedule.Booking, boxed bool) {
	if boxed {
		m.index.Insert(b)
		return
	}
	m.index.Remove(ref.ID)
}

func (m *Manager) checkConflict(candidate schedule.Booking) error {
	if existing, found := m.index.Conflict(candidate); found {
		return &ConflictError{Candidate: candidate, Existing: existing}
	}
	return nil
}

func (m *Manager) reject(op string, err error) error {
	m.log.Debug().Err(err).Str("op", op).Msg("mutation rejected")
	return err
}

// normalize copies item so the store never aliases caller pointers, and
// defaults an unset status to NEW.
func normalize(item model.Item) model.Item {
	item = item.Clone()
	if item.Status == "" {
		item.Status = model.StatusNew
	}
	return item
}
