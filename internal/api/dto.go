package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/baiirun/tasks/internal/model"
)

// itemRequest is the body of POST /tasks/{kind}. ID 0 creates, any other id
// updates. Epics ignore status and scheduling fields.
type itemRequest struct {
	ID          int        `json:"id" binding:"gte=0"`
	Name        string     `json:"name" binding:"notblank"`
	Description string     `json:"description"`
	Status      string     `json:"status" binding:"omitempty,oneof=NEW IN_PROGRESS DONE"`
	StartTime   *time.Time `json:"start_time"`
	Duration    string     `json:"duration"`
	EpicID      int        `json:"epic_id" binding:"gte=0"`
}

func (r itemRequest) item() (model.Item, error) {
	item := model.Item{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Status:      model.Status(r.Status),
		StartTime:   r.StartTime,
	}
	if s := strings.TrimSpace(r.Duration); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return item, fmt.Errorf("invalid duration %q: %w", r.Duration, err)
		}
		item.Duration = &d
	}
	return item, nil
}

// itemResponse is the JSON form of a record.
type itemResponse struct {
	ID          int        `json:"id"`
	Kind        model.Kind `json:"kind"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	Duration    string     `json:"duration,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	EpicID      int        `json:"epic_id,omitempty"`
	SubtaskIDs  []int      `json:"subtask_ids,omitempty"`
}

func toResponse(r model.Record) itemResponse {
	resp := itemResponse{
		ID:          r.ID,
		Kind:        r.Kind,
		Name:        r.Name,
		Description: r.Description,
		Status:      string(r.Status),
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		EpicID:      r.EpicID,
		SubtaskIDs:  r.SubtaskIDs,
	}
	if r.Duration != nil {
		resp.Duration = r.Duration.String()
	}
	return resp
}

func toResponses(records []model.Record) []itemResponse {
	out := make([]itemResponse, 0, len(records))
	for _, r := range records {
		out = append(out, toResponse(r))
	}
	return out
}
