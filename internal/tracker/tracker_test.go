package tracker

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/baiirun/tasks/internal/db"
	"github.com/baiirun/tasks/internal/manager"
	"github.com/baiirun/tasks/internal/model"
)

// memStore records every save.
type memStore struct {
	state   model.State
	saves   int
	loadErr error
	saveErr error
}

func (s *memStore) Save(state model.State) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.state = state
	s.saves++
	return nil
}

func (s *memStore) Load() (model.State, error) {
	return s.state, s.loadErr
}

func setupTracker(t *testing.T, store Store) *Tracker {
	t.Helper()
	tr, err := Open(store, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to open tracker: %v", err)
	}
	return tr
}

func createTask(t *testing.T, tr *Tracker, name string) int {
	t.Helper()
	var id int
	err := tr.Update(func(m *manager.Manager) error {
		var err error
		id, err = m.CreateTask(model.Task{Item: model.Item{Name: name}})
		return err
	})
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	return id
}

func TestUpdate_SavesOnSuccess(t *testing.T) {
	store := &memStore{}
	tr := setupTracker(t, store)

	createTask(t, tr, "first")

	if store.saves != 1 {
		t.Errorf("expected 1 save, got %d", store.saves)
	}
	if len(store.state.Records) != 1 || store.state.Records[0].Name != "first" {
		t.Errorf("unexpected saved records: %+v", store.state.Records)
	}
	if store.state.LastID != 1 {
		t.Errorf("expected saved last id 1, got %d", store.state.LastID)
	}
}

func TestUpdate_NoSaveOnError(t *testing.T) {
	store := &memStore{}
	tr := setupTracker(t, store)

	err := tr.Update(func(m *manager.Manager) error {
		_, err := m.CreateTask(model.Task{Item: model.Item{Name: ""}})
		return err
	})
	if !errors.Is(err, manager.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if store.saves != 0 {
		t.Errorf("expected no saves, got %d", store.saves)
	}
}

func TestUpdate_SaveFailure(t *testing.T) {
	store := &memStore{saveErr: errors.New("disk full")}
	tr := setupTracker(t, store)

	err := tr.Update(func(m *manager.Manager) error {
		_, err := m.CreateTask(model.Task{Item: model.Item{Name: "x"}})
		return err
	})
	if err == nil {
		t.Fatal("expected save error")
	}
}

func TestView_DoesNotSave(t *testing.T) {
	store := &memStore{}
	tr := setupTracker(t, store)
	createTask(t, tr, "first")

	var n int
	_ = tr.View(func(m *manager.Manager) error {
		n = len(m.Tasks())
		return nil
	})
	if n != 1 {
		t.Errorf("expected 1 task, got %d", n)
	}
	if store.saves != 1 {
		t.Errorf("expected view not to save, got %d saves", store.saves)
	}
}

func TestOpen_LoadError(t *testing.T) {
	if _, err := Open(&memStore{loadErr: errors.New("corrupt")}, zerolog.Nop()); err == nil {
		t.Fatal("expected load error")
	}
}

func TestOpen_NilStore(t *testing.T) {
	tr := setupTracker(t, nil)
	createTask(t, tr, "in memory")
}

// openDB opens a tracker on the SQLite file at path.
func openDB(t *testing.T, path string) (*db.DB, *Tracker) {
	t.Helper()
	database, err := db.Open(path)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := database.Init(); err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	return database, setupTracker(t, database)
}

func TestReopen_RestoresState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	database, tr := openDB(t, path)
	start := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)
	err := tr.Update(func(m *manager.Manager) error {
		epicID, err := m.CreateEpic(model.NewEpic("Release", ""))
		if err != nil {
			return err
		}
		_, err = m.CreateSubtask(model.Subtask{
			Item: model.Item{
				Name: "Ship", Status: model.StatusDone,
				StartTime: model.TimePtr(start), Duration: model.DurationPtr(time.Hour),
			},
			EpicID: epicID,
		})
		if err != nil {
			return err
		}
		_, err = m.Epic(epicID)
		return err
	})
	if err != nil {
		t.Fatalf("failed to populate: %v", err)
	}
	_ = database.Close()

	database, tr = openDB(t, path)
	defer func() { _ = database.Close() }()

	err = tr.View(func(m *manager.Manager) error {
		epics := m.Epics()
		if len(epics) != 1 || epics[0].Aggregate().Status != model.StatusDone {
			t.Errorf("unexpected epics after reopen: %+v", epics)
		}
		if p := m.Prioritized(); len(p) != 1 || p[0].Name != "Ship" {
			t.Errorf("unexpected prioritized after reopen: %+v", p)
		}
		if h := m.HistoryRefs(); len(h) != 1 || h[0].Kind != model.KindEpic {
			t.Errorf("unexpected history after reopen: %v", h)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	// The counter continues past restored ids.
	if id := createTask(t, tr, "next"); id != 3 {
		t.Errorf("expected id 3, got %d", id)
	}
}

func TestReopen_NeverReusesRemovedID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	database, tr := openDB(t, path)

	createTask(t, tr, "a")
	b := createTask(t, tr, "b")
	err := tr.Update(func(m *manager.Manager) error {
		return m.RemoveTask(b)
	})
	if err != nil {
		t.Fatalf("failed to remove: %v", err)
	}
	_ = database.Close()

	database, tr = openDB(t, path)
	defer func() { _ = database.Close() }()

	if id := createTask(t, tr, "c"); id != b+1 {
		t.Errorf("expected id %d after reopen, got %d", b+1, id)
	}
}

func TestConcurrentUpdates(t *testing.T) {
	tr := setupTracker(t, &memStore{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = tr.Update(func(m *manager.Manager) error {
				_, err := m.CreateTask(model.Task{Item: model.Item{Name: "t"}})
				return err
			})
		}()
	}
	wg.Wait()

	_ = tr.View(func(m *manager.Manager) error {
		if n := len(m.Tasks()); n != 20 {
			t.Errorf("expected 20 tasks, got %d", n)
		}
		return nil
	})
}
