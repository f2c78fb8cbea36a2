package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/baiirun/tasks/internal/manager"
	"github.com/baiirun/tasks/internal/model"
)

func kindPath(kind model.Kind) string {
	return strings.ToLower(string(kind))
}

func (s *Server) handleList(kind model.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var records []model.Record
		_ = s.tr.View(func(m *manager.Manager) error {
			records = listKind(m, kind)
			return nil
		})
		c.JSON(http.StatusOK, toResponses(records))
	}
}

func (s *Server) handleGet(kind model.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		var rec model.Record
		err := s.tr.Update(func(m *manager.Manager) error {
			var err error
			rec, err = getKind(m, kind, id)
			return err
		})
		if err != nil {
			s.writeError(c, kind, err)
			return
		}
		c.JSON(http.StatusOK, toResponse(rec))
	}
}

func (s *Server) handleSave(kind model.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req itemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				s.writeError(c, kind, fmt.Errorf("%w: %v", manager.ErrInvalid, err))
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		item, err := req.item()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var rec model.Record
		err = s.tr.Update(func(m *manager.Manager) error {
			id, err := saveKind(m, kind, item, req.EpicID)
			if err != nil {
				return err
			}
			rec, err = m.Lookup(id)
			return err
		})
		if err != nil {
			s.writeError(c, kind, err)
			return
		}

		status := http.StatusOK
		if req.ID == 0 {
			status = http.StatusCreated
		}
		c.JSON(status, toResponse(rec))
	}
}

func (s *Server) handleRemove(kind model.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		err := s.tr.Update(func(m *manager.Manager) error {
			switch kind {
			case model.KindEpic:
				return m.RemoveEpic(id)
			case model.KindSubtask:
				return m.RemoveSubtask(id)
			default:
				return m.RemoveTask(id)
			}
		})
		if err != nil {
			s.writeError(c, kind, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": id})
	}
}

func (s *Server) handleClear(kind model.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := s.tr.Update(func(m *manager.Manager) error {
			switch kind {
			case model.KindEpic:
				m.RemoveAllEpics()
			case model.KindSubtask:
				m.RemoveAllSubtasks()
			default:
				m.RemoveAllTasks()
			}
			return nil
		})
		if err != nil {
			s.writeError(c, kind, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"cleared": kindPath(kind)})
	}
}

func (s *Server) handleEpicSubtasks(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var records []model.Record
	err := s.tr.View(func(m *manager.Manager) error {
		subs, err := m.EpicSubtasks(id)
		if err != nil {
			return err
		}
		for _, sub := range subs {
			records = append(records, sub.Record())
		}
		return nil
	})
	if err != nil {
		s.writeError(c, model.KindEpic, err)
		return
	}
	c.JSON(http.StatusOK, toResponses(records))
}

func (s *Server) handlePrioritized(c *gin.Context) {
	var records []model.Record
	_ = s.tr.View(func(m *manager.Manager) error {
		records = m.Prioritized()
		return nil
	})
	c.JSON(http.StatusOK, toResponses(records))
}

func (s *Server) handleHistory(c *gin.Context) {
	var records []model.Record
	_ = s.tr.View(func(m *manager.Manager) error {
		records = m.History()
		return nil
	})
	c.JSON(http.StatusOK, toResponses(records))
}

// writeError maps manager errors to status codes.
func (s *Server) writeError(c *gin.Context, kind model.Kind, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, manager.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, manager.ErrConflict):
		status = http.StatusConflict
		conflictsTotal.WithLabelValues(kindPath(kind)).Inc()
	case errors.Is(err, manager.ErrInvalid):
		status = http.StatusConflict
	default:
		s.log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid id %q", c.Param("id"))})
		return 0, false
	}
	return id, true
}

func listKind(m *manager.Manager, kind model.Kind) []model.Record {
	var out []model.Record
	switch kind {
	case model.KindEpic:
		for _, e := range m.Epics() {
			out = append(out, e.Record())
		}
	case model.KindSubtask:
		for _, s := range m.Subtasks() {
			out = append(out, s.Record())
		}
	default:
		for _, t := range m.Tasks() {
			out = append(out, t.Record())
		}
	}
	return out
}

func getKind(m *manager.Manager, kind model.Kind, id int) (model.Record, error) {
	switch kind {
	case model.KindEpic:
		e, err := m.Epic(id)
		return e.Record(), err
	case model.KindSubtask:
		s, err := m.Subtask(id)
		return s.Record(), err
	default:
		t, err := m.Task(id)
		return t.Record(), err
	}
}

// saveKind creates item when its id is 0 and updates it otherwise.
func saveKind(m *manager.Manager, kind model.Kind, item model.Item, epicID int) (int, error) {
	create := item.ID == 0
	switch kind {
	case model.KindEpic:
		e := model.NewEpic(item.Name, item.Description)
		e.ID = item.ID
		if create {
			return m.CreateEpic(e)
		}
		return m.UpdateEpic(e)
	case model.KindSubtask:
		s := model.Subtask{Item: item, EpicID: epicID}
		if create {
			return m.CreateSubtask(s)
		}
		return m.UpdateSubtask(s)
	default:
		t := model.Task{Item: item}
		if create {
			return m.CreateTask(t)
		}
		return m.UpdateTask(t)
	}
}
