package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/baiirun/tasks/internal/model"
)

// ItemJSON is the --json form of an item.
type ItemJSON struct {
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

func toJSON(r model.Record) ItemJSON {
	out := ItemJSON{
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
		out.Duration = r.Duration.String()
	}
	return out
}

var (
	statusStyles = map[model.Status]lipgloss.Style{
		model.StatusNew:        lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		model.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		model.StatusDone:       lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	labelStyle = lipgloss.NewStyle().Bold(true)
)

const displayTime = "2006-01-02 15:04"

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printList writes one line per record, or a JSON array with --json.
func printList(w io.Writer, records []model.Record) error {
	if flagJSON {
		out := make([]ItemJSON, 0, len(records))
		for _, r := range records {
			out = append(out, toJSON(r))
		}
		return printJSON(w, out)
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, dimStyle.Render("No items"))
		return err
	}
	for _, r := range records {
		if _, err := fmt.Fprintln(w, formatLine(r)); err != nil {
			return err
		}
	}
	return nil
}

func formatLine(r model.Record) string {
	status := fmt.Sprintf("%-11s", r.Status)
	if style, ok := statusStyles[r.Status]; ok {
		status = style.Render(status)
	}
	line := fmt.Sprintf("%-5s %-7s %s %s", fmt.Sprintf("#%d", r.ID), strings.ToLower(string(r.Kind)), status, r.Name)
	if r.StartTime != nil {
		span := r.StartTime.Local().Format(displayTime)
		if r.EndTime != nil {
			span += " → " + r.EndTime.Local().Format(displayTime)
		}
		line += "  " + dimStyle.Render(span)
	}
	return line
}

// printItem writes every field of one record.
func printItem(w io.Writer, r model.Record) error {
	if flagJSON {
		return printJSON(w, toJSON(r))
	}

	var b strings.Builder
	field := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-12s", label+":")), value)
	}
	field("ID", fmt.Sprintf("%d", r.ID))
	field("Kind", string(r.Kind))
	field("Name", r.Name)
	field("Status", string(r.Status))
	if r.Description != "" {
		field("Description", r.Description)
	}
	if r.StartTime != nil {
		field("Start", r.StartTime.Local().Format(displayTime))
	}
	if r.Duration != nil {
		field("Duration", r.Duration.String())
	}
	if r.EndTime != nil {
		field("End", r.EndTime.Local().Format(displayTime))
	}
	if r.Kind == model.KindSubtask {
		field("Epic", fmt.Sprintf("#%d", r.EpicID))
	}
	if r.Kind == model.KindEpic {
		ids := make([]string, len(r.SubtaskIDs))
		for i, id := range r.SubtaskIDs {
			ids[i] = fmt.Sprintf("#%d", id)
		}
		if len(ids) == 0 {
			ids = append(ids, dimStyle.Render("none"))
		}
		field("Subtasks", strings.Join(ids, " "))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
