// Package manager is the in-memory store for tasks, epics and subtasks.
//
// It owns the identifier counter, validates every time-boxed item against the
// prioritized schedule, derives each epic's status and span from its
// subtasks, and records get-by-id accesses in the history.
//
// A Manager is not safe for concurrent use. Hosts that serve concurrent
// requests must serialize calls (see the tracker package).
package manager

import (
	"cmp"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/baiirun/tasks/internal/history"
	"github.com/baiirun/tasks/internal/model"
	"github.com/baiirun/tasks/internal/schedule"
)

type Manager struct {
	tasks    map[int]model.Task
	epics    map[int]model.Epic
	subtasks map[int]model.Subtask

	index   *schedule.Index
	history *history.Tracker[int, model.Ref]

	lastID int
	log    zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for rejected mutations and cascades.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log.With().Str("component", "manager").Logger() }
}

// WithHistoryLimit caps the history length. 0 keeps every access.
func WithHistoryLimit(n int) Option {
	return func(m *Manager) { m.history = history.New[int, model.Ref](n) }
}

// New returns an empty manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		tasks:    make(map[int]model.Task),
		epics:    make(map[int]model.Epic),
		subtasks: make(map[int]model.Subtask),
		index:    schedule.NewIndex(),
		history:  history.New[int, model.Ref](0),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) nextID() int {
	m.lastID++
	return m.lastID
}

// Tasks returns every task ordered by id.
func (m *Manager) Tasks() []model.Task {
	out := make([]model.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, model.Task{Item: t.Item.Clone()})
	}
	slices.SortFunc(out, func(a, b model.Task) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Epics returns every epic ordered by id.
func (m *Manager) Epics() []model.Epic {
	out := make([]model.Epic, 0, len(m.epics))
	for _, e := range m.epics {
		out = append(out, e.Clone())
	}
	slices.SortFunc(out, func(a, b model.Epic) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Subtasks returns every subtask ordered by id.
func (m *Manager) Subtasks() []model.Subtask {
	out := make([]model.Subtask, 0, len(m.subtasks))
	for _, s := range m.subtasks {
		out = append(out, cloneSubtask(s))
	}
	slices.SortFunc(out, func(a, b model.Subtask) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// EpicSubtasks returns the epic's subtasks in the order they were attached.
func (m *Manager) EpicSubtasks(epicID int) ([]model.Subtask, error) {
	epic, ok := m.epics[epicID]
	if !ok {
		return nil, notFound(model.KindEpic, epicID)
	}
	out := make([]model.Subtask, 0, len(epic.SubtaskIDs))
	for _, sid := range epic.SubtaskIDs {
		if s, ok := m.subtasks[sid]; ok {
			out = append(out, cloneSubtask(s))
		}
	}
	return out, nil
}

// Task returns the task with id and records the access.
func (m *Manager) Task(id int) (model.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return model.Task{}, notFound(model.KindTask, id)
	}
	m.history.Record(id, model.Ref{Kind: model.KindTask, ID: id})
	return model.Task{Item: t.Item.Clone()}, nil
}

// Epic returns the epic with id and records the access.
func (m *Manager) Epic(id int) (model.Epic, error) {
	e, ok := m.epics[id]
	if !ok {
		return model.Epic{}, notFound(model.KindEpic, id)
	}
	m.history.Record(id, model.Ref{Kind: model.KindEpic, ID: id})
	return e.Clone(), nil
}

// Subtask returns the subtask with id and records the access.
func (m *Manager) Subtask(id int) (model.Subtask, error) {
	s, ok := m.subtasks[id]
	if !ok {
		return model.Subtask{}, notFound(model.KindSubtask, id)
	}
	m.history.Record(id, model.Ref{Kind: model.KindSubtask, ID: id})
	return cloneSubtask(s), nil
}

// Lookup finds an item of any kind by id without recording history.
func (m *Manager) Lookup(id int) (model.Record, error) {
	for _, kind := range []model.Kind{model.KindTask, model.KindEpic, model.KindSubtask} {
		if r, ok := m.record(model.Ref{Kind: kind, ID: id}); ok {
			return r, nil
		}
	}
	return model.Record{}, itemNotFound(id)
}

// Prioritized returns every time-boxed task and subtask, earliest start first.
func (m *Manager) Prioritized() []model.Record {
	bookings := m.index.Bookings()
	out := make([]model.Record, 0, len(bookings))
	for _, b := range bookings {
		if r, ok := m.record(b.Ref); ok {
			out = append(out, r)
		}
	}
	return out
}

// History returns the accessed items, oldest access first.
func (m *Manager) History() []model.Record {
	refs := m.history.Values()
	out := make([]model.Record, 0, len(refs))
	for _, ref := range refs {
		if r, ok := m.record(ref); ok {
			out = append(out, r)
		}
	}
	return out
}

// HistoryRefs returns the history as bare references, oldest first.
func (m *Manager) HistoryRefs() []model.Ref {
	return m.history.Values()
}

// EpicStartTime returns the earliest start among the epic's time-boxed subtasks.
func (m *Manager) EpicStartTime(epicID int) (time.Time, error) {
	agg, err := m.scheduledAggregate(epicID)
	if err != nil {
		return time.Time{}, err
	}
	return *agg.StartTime, nil
}

// EpicEndTime returns the latest end among the epic's time-boxed subtasks.
func (m *Manager) EpicEndTime(epicID int) (time.Time, error) {
	agg, err := m.scheduledAggregate(epicID)
	if err != nil {
		return time.Time{}, err
	}
	return *agg.EndTime, nil
}

// EpicDuration returns the summed duration of the epic's time-boxed subtasks.
func (m *Manager) EpicDuration(epicID int) (time.Duration, error) {
	agg, err := m.scheduledAggregate(epicID)
	if err != nil {
		return 0, err
	}
	return agg.Duration, nil
}

func (m *Manager) scheduledAggregate(epicID int) (model.Aggregate, error) {
	epic, ok := m.epics[epicID]
	if !ok {
		return model.Aggregate{}, notFound(model.KindEpic, epicID)
	}
	agg := epic.Aggregate()
	if agg.Scheduled == 0 {
		return model.Aggregate{}, unscheduled(epicID)
	}
	return agg, nil
}

// Snapshot returns every item as a record, ordered by id.
func (m *Manager) Snapshot() []model.Record {
	out := make([]model.Record, 0, len(m.tasks)+len(m.epics)+len(m.subtasks))
	for _, t := range m.tasks {
		out = append(out, t.Record())
	}
	for _, e := range m.epics {
		out = append(out, e.Record())
	}
	for _, s := range m.subtasks {
		out = append(out, s.Record())
	}
	slices.SortFunc(out, func(a, b model.Record) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// State returns everything Restore needs to rebuild this manager.
func (m *Manager) State() model.State {
	return model.State{Records: m.Snapshot(), History: m.HistoryRefs(), LastID: m.lastID}
}

func (m *Manager) record(ref model.Ref) (model.Record, bool) {
	switch ref.Kind {
	case model.KindTask:
		if t, ok := m.tasks[ref.ID]; ok {
			return t.Record(), true
		}
	case model.KindEpic:
		if e, ok := m.epics[ref.ID]; ok {
			return e.Record(), true
		}
	case model.KindSubtask:
		if s, ok := m.subtasks[ref.ID]; ok {
			return s.Record(), true
		}
	}
	return model.Record{}, false
}

func cloneSubtask(s model.Subtask) model.Subtask {
	return model.Subtask{Item: s.Item.Clone(), EpicID: s.EpicID}
}
