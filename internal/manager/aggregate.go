package manager

import "github.com/baiirun/tasks/internal/model"

// deriveStatus computes an epic's status from its subtasks.
//
// Rules:
//   - No subtasks: NEW.
//   - All subtasks DONE: DONE.
//   - All subtasks NEW: NEW.
//   - Anything else: IN_PROGRESS.
func deriveStatus(subtasks []model.Subtask) model.Status {
	if len(subtasks) == 0 {
		return model.StatusNew
	}

	var fresh, done int
	for _, s := range subtasks {
		switch s.Status {
		case model.StatusNew:
			fresh++
		case model.StatusDone:
			done++
		}
	}

	if done == len(subtasks) {
		return model.StatusDone
	}
	if fresh == len(subtasks) {
		return model.StatusNew
	}
	return model.StatusInProgress
}

// aggregate derives status and the time span covered by the time-boxed
// subtasks. Subtasks without a start time or duration only affect status.
func aggregate(subtasks []model.Subtask) model.Aggregate {
	agg := model.Aggregate{Status: deriveStatus(subtasks)}
	for _, s := range subtasks {
		end, ok := s.EndTime()
		if !ok {
			continue
		}
		start := *s.StartTime
		if agg.StartTime == nil || start.Before(*agg.StartTime) {
			agg.StartTime = &start
		}
		if agg.EndTime == nil || end.After(*agg.EndTime) {
			agg.EndTime = &end
		}
		agg.Duration += *s.Duration
		agg.Scheduled++
	}
	return agg
}

// reaggregate recomputes and caches the derived state of one epic. Missing
// epics are ignored so callers can pass the epic of a just-removed subtask.
func (m *Manager) reaggregate(epicID int) {
	epic, ok := m.epics[epicID]
	if !ok {
		return
	}
	subs := make([]model.Subtask, 0, len(epic.SubtaskIDs))
	for _, sid := range epic.SubtaskIDs {
		if s, ok := m.subtasks[sid]; ok {
			subs = append(subs, s)
		}
	}
	agg := aggregate(subs)
	m.epics[epicID] = epic.WithAggregate(agg)
	m.log.Debug().Int("epic", epicID).Str("status", string(agg.Status)).Int("subtasks", len(subs)).Msg("epic aggregated")
}
