package db

import (
	"cmp"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/baiirun/tasks/internal/model"
)

const lastIDKey = "last_id"

// Save replaces the stored items, history and id counter with state in a
// single transaction. Epics are written without start or duration since both
// are derived from their subtasks on load. A subtask's position within its
// epic comes from the epic record's SubtaskIDs.
func (db *DB) Save(state model.State) (err error) {
	if err := checkSnapshot(state); err != nil {
		return err
	}

	positions := make(map[int]int)
	lastID := state.LastID
	for _, r := range state.Records {
		lastID = max(lastID, r.ID)
		if r.Kind != model.KindEpic {
			continue
		}
		for pos, sid := range r.SubtaskIDs {
			positions[sid] = pos
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM history`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	if _, err = tx.Exec(`DELETE FROM items`); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO items (id, kind, name, description, status, start_time, duration_ns, epic_id, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare item insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range state.Records {
		var start sql.NullString
		var duration, epicID, position sql.NullInt64
		if r.Kind != model.KindEpic {
			if r.StartTime != nil {
				// Keep the caller's offset; the instant is the same either way.
				start = sql.NullString{String: r.StartTime.Format(time.RFC3339Nano), Valid: true}
			}
			if r.Duration != nil {
				duration = sql.NullInt64{Int64: int64(*r.Duration), Valid: true}
			}
		}
		if r.Kind == model.KindSubtask {
			epicID = sql.NullInt64{Int64: int64(r.EpicID), Valid: true}
			if pos, ok := positions[r.ID]; ok {
				position = sql.NullInt64{Int64: int64(pos), Valid: true}
			}
		}
		if _, err = stmt.Exec(r.ID, r.Kind, r.Name, r.Description, r.Status, start, duration, epicID, position); err != nil {
			return fmt.Errorf("failed to save item %d: %w", r.ID, err)
		}
	}

	for pos, ref := range state.History {
		if _, err = tx.Exec(`INSERT INTO history (position, item_id) VALUES (?, ?)`, pos, ref.ID); err != nil {
			return fmt.Errorf("failed to save history entry %d: %w", ref.ID, err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, lastIDKey, lastID)
	if err != nil {
		return fmt.Errorf("failed to save last id: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// checkSnapshot rejects snapshots the schema would refuse, before any rows
// are touched.
func checkSnapshot(state model.State) error {
	if state.LastID < 0 {
		return fmt.Errorf("invalid last id: %d", state.LastID)
	}
	kinds := make(map[int]model.Kind, len(state.Records))
	for _, r := range state.Records {
		if !r.Kind.IsValid() {
			return fmt.Errorf("invalid kind for item %d: %s", r.ID, r.Kind)
		}
		if !r.Status.IsValid() {
			return fmt.Errorf("invalid status for item %d: %s", r.ID, r.Status)
		}
		kinds[r.ID] = r.Kind
	}
	for _, r := range state.Records {
		if r.Kind == model.KindSubtask && kinds[r.EpicID] != model.KindEpic {
			return fmt.Errorf("subtask %d references missing epic %d", r.ID, r.EpicID)
		}
	}
	for _, ref := range state.History {
		if _, ok := kinds[ref.ID]; !ok {
			return fmt.Errorf("history references missing item %d", ref.ID)
		}
	}
	return nil
}

// member is a subtask's place in its epic as stored.
type member struct {
	id       int
	position sql.NullInt64
}

// Load returns every stored item ordered by id, the history oldest first and
// the highest id ever issued. Epic records list their subtasks in stored
// order; subtasks saved without a position follow in id order.
func (db *DB) Load() (model.State, error) {
	rows, err := db.Query(`
		SELECT id, kind, name, description, status, start_time, duration_ns, epic_id, position
		FROM items ORDER BY id`)
	if err != nil {
		return model.State{}, fmt.Errorf("failed to query items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var state model.State
	kinds := make(map[int]model.Kind)
	members := make(map[int][]member)
	for rows.Next() {
		r, position, err := scanRecord(rows)
		if err != nil {
			return model.State{}, err
		}
		state.Records = append(state.Records, r)
		state.LastID = max(state.LastID, r.ID)
		kinds[r.ID] = r.Kind
		if r.Kind == model.KindSubtask {
			members[r.EpicID] = append(members[r.EpicID], member{id: r.ID, position: position})
		}
	}
	if err := rows.Err(); err != nil {
		return model.State{}, fmt.Errorf("failed to read items: %w", err)
	}

	for i, r := range state.Records {
		if r.Kind == model.KindEpic {
			state.Records[i].SubtaskIDs = orderMembers(members[r.ID])
		}
	}

	if state.History, err = db.loadHistory(kinds); err != nil {
		return model.State{}, err
	}

	lastID, err := db.loadLastID()
	if err != nil {
		return model.State{}, err
	}
	state.LastID = max(state.LastID, lastID)
	return state, nil
}

// orderMembers sorts positioned subtasks first by position, then the rest by
// id. ms arrives in id order.
func orderMembers(ms []member) []int {
	if len(ms) == 0 {
		return nil
	}
	slices.SortStableFunc(ms, func(a, b member) int {
		switch {
		case a.position.Valid && b.position.Valid:
			return cmp.Compare(a.position.Int64, b.position.Int64)
		case a.position.Valid:
			return -1
		case b.position.Valid:
			return 1
		}
		return 0
	})
	ids := make([]int, len(ms))
	for i, m := range ms {
		ids[i] = m.id
	}
	return ids
}

func (db *DB) loadLastID() (int, error) {
	var id int
	err := db.QueryRow(`SELECT value FROM meta WHERE key = ?`, lastIDKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load last id: %w", err)
	}
	return id, nil
}

func (db *DB) loadHistory(kinds map[int]model.Kind) ([]model.Ref, error) {
	rows, err := db.Query(`SELECT item_id FROM history ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var refs []model.Ref
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		kind, ok := kinds[id]
		if !ok {
			continue
		}
		refs = append(refs, model.Ref{Kind: kind, ID: id})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return refs, nil
}

func scanRecord(rows *sql.Rows) (model.Record, sql.NullInt64, error) {
	var r model.Record
	var kind, status string
	var description, start sql.NullString
	var duration, epicID, position sql.NullInt64
	if err := rows.Scan(&r.ID, &kind, &r.Name, &description, &status, &start, &duration, &epicID, &position); err != nil {
		return r, position, fmt.Errorf("failed to scan item: %w", err)
	}

	r.Kind = model.Kind(kind)
	if !r.Kind.IsValid() {
		return r, position, fmt.Errorf("item %d has invalid kind: %s", r.ID, kind)
	}
	r.Status = model.Status(status)
	if !r.Status.IsValid() {
		return r, position, fmt.Errorf("item %d has invalid status: %s", r.ID, status)
	}
	r.Description = description.String
	if start.Valid {
		t, err := time.Parse(time.RFC3339Nano, start.String)
		if err != nil {
			return r, position, fmt.Errorf("item %d has invalid start time: %w", r.ID, err)
		}
		r.StartTime = model.TimePtr(t)
	}
	if duration.Valid {
		r.Duration = model.DurationPtr(time.Duration(duration.Int64))
	}
	if end, ok := endOf(r); ok {
		r.EndTime = &end
	}
	if epicID.Valid {
		r.EpicID = int(epicID.Int64)
	}
	return r, position, nil
}

func endOf(r model.Record) (time.Time, bool) {
	if r.StartTime == nil || r.Duration == nil {
		return time.Time{}, false
	}
	return r.StartTime.Add(*r.Duration), true
}
