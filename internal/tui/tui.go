// Package tui provides an interactive terminal UI for the tracker using Bubble Tea.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/baiirun/tasks/internal/manager"
	"github.com/baiirun/tasks/internal/model"
	"github.com/baiirun/tasks/internal/tracker"
)

// ViewMode represents the current view state.
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
)

// Source selects which records the list shows.
type Source int

const (
	SourceAll Source = iota
	SourceSchedule
	SourceHistory
)

var sourceNames = [...]string{"all", "schedule", "history"}

func (s Source) String() string { return sourceNames[s] }

func (s Source) next() Source { return (s + 1) % Source(len(sourceNames)) }

// Status icons
const (
	iconNew        = "○"
	iconInProgress = "◐"
	iconDone       = "●"
)

// Layout constants
const (
	minSplitWidth = 80 // Minimum terminal width for split view
	timeLayout    = "2006-01-02 15:04"
)

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	tr     *tracker.Tracker
	source Source
	items  []model.Record
	cursor int
	// follow is the id the cursor moves to on the next load; 0 for none.
	follow int

	viewMode ViewMode

	// UI state
	width   int
	height  int
	err     error
	message string // temporary status message
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))

	statusColors = map[model.Status]lipgloss.Color{
		model.StatusNew:        lipgloss.Color("252"),
		model.StatusInProgress: lipgloss.Color("214"),
		model.StatusDone:       lipgloss.Color("42"),
	}

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	// Content area padding
	contentPadding = 2
)

func statusIcon(s model.Status) string {
	switch s {
	case model.StatusNew:
		return iconNew
	case model.StatusInProgress:
		return iconInProgress
	case model.StatusDone:
		return iconDone
	default:
		return "?"
	}
}

// New creates a new TUI model backed by the tracker.
func New(tr *tracker.Tracker) Model {
	return Model{tr: tr, viewMode: ViewList}
}

// Messages
type itemsMsg struct {
	source Source
	items  []model.Record
	err    error
}

type openedMsg struct {
	item model.Record
	err  error
}

type actionMsg struct {
	message string
	err     error
}

// loadItems reads the current source without touching history.
func (m Model) loadItems() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		var items []model.Record
		err := m.tr.View(func(mgr *manager.Manager) error {
			switch source {
			case SourceSchedule:
				items = mgr.Prioritized()
			case SourceHistory:
				items = mgr.History()
			default:
				items = mgr.Snapshot()
			}
			return nil
		})
		return itemsMsg{source: source, items: items, err: err}
	}
}

func (m Model) selected() (model.Record, bool) {
	if len(m.items) == 0 || m.cursor >= len(m.items) {
		return model.Record{}, false
	}
	return m.items[m.cursor], true
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.loadItems()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Clear message on any key
		m.message = ""
		m.err = nil
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Narrow modal → Wide: close modal, show split view
		if m.viewMode == ViewDetail && m.width >= minSplitWidth {
			m.viewMode = ViewList
		}
		return m, nil

	case itemsMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		// Ignore results for a source we already switched away from
		if msg.source != m.source {
			return m, nil
		}
		m.items = msg.items
		if m.follow != 0 {
			for i, item := range m.items {
				if item.ID == m.follow {
					m.cursor = i
					break
				}
			}
			m.follow = 0
		}
		if m.cursor >= len(m.items) {
			m.cursor = max(0, len(m.items)-1)
		}
		return m, nil

	case openedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, m.loadItems()
		}
		if m.width < minSplitWidth {
			m.viewMode = ViewDetail
		}
		// Opening reorders the history source; keep the opened item selected.
		m.follow = msg.item.ID
		m.message = "Opened " + msg.item.Ref().String()
		return m, m.loadItems()

	case actionMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.message = msg.message
		}
		return m, m.loadItems()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.viewMode == ViewDetail {
		return m.handleDetailKey(msg)
	}
	return m.handleListKey(msg)
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab":
		m.source = m.source.next()
		m.cursor = 0
		m.items = nil
		return m, m.loadItems()

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case "g", "home":
		m.cursor = 0

	case "G", "end":
		m.cursor = max(0, len(m.items)-1)

	case "enter":
		return m.doOpen()

	case "s":
		return m.doCycleStatus()

	case "d":
		return m.doDelete()

	case "r":
		return m, m.loadItems()
	}
	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.viewMode = ViewList
	case "s":
		return m.doCycleStatus()
	case "d":
		m.viewMode = ViewList
		return m.doDelete()
	}
	return m, nil
}

// doOpen reads the selected item through its by-id getter so the access
// lands in the history.
func (m Model) doOpen() (Model, tea.Cmd) {
	item, ok := m.selected()
	if !ok {
		return m, nil
	}
	return m, func() tea.Msg {
		var opened model.Record
		err := m.tr.Update(func(mgr *manager.Manager) error {
			switch item.Kind {
			case model.KindEpic:
				e, err := mgr.Epic(item.ID)
				opened = e.Record()
				return err
			case model.KindSubtask:
				s, err := mgr.Subtask(item.ID)
				opened = s.Record()
				return err
			default:
				t, err := mgr.Task(item.ID)
				opened = t.Record()
				return err
			}
		})
		return openedMsg{item: opened, err: err}
	}
}

func (m Model) doCycleStatus() (Model, tea.Cmd) {
	item, ok := m.selected()
	if !ok {
		return m, nil
	}
	if item.Kind == model.KindEpic {
		m.message = "Epic status is derived from its subtasks"
		return m, nil
	}
	next := item.Status.Next()
	return m, func() tea.Msg {
		err := m.tr.Update(func(mgr *manager.Manager) error {
			switch item.Kind {
			case model.KindSubtask:
				s, err := item.Subtask()
				if err != nil {
					return err
				}
				s.Status = next
				_, err = mgr.UpdateSubtask(s)
				return err
			default:
				t, err := item.Task()
				if err != nil {
					return err
				}
				t.Status = next
				_, err = mgr.UpdateTask(t)
				return err
			}
		})
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{message: fmt.Sprintf("%s is now %s", item.Ref(), next)}
	}
}

func (m Model) doDelete() (Model, tea.Cmd) {
	item, ok := m.selected()
	if !ok {
		return m, nil
	}
	return m, func() tea.Msg {
		err := m.tr.Update(func(mgr *manager.Manager) error {
			switch item.Kind {
			case model.KindEpic:
				return mgr.RemoveEpic(item.ID)
			case model.KindSubtask:
				return mgr.RemoveSubtask(item.ID)
			default:
				return mgr.RemoveTask(item.ID)
			}
		})
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{message: "Deleted " + item.Ref().String()}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	switch m.viewMode {
	case ViewList:
		b.WriteString(m.listView())
	case ViewDetail:
		b.WriteString(m.detailView(0)) // 0 = full width
	}

	// Status message
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	} else if m.message != "" {
		b.WriteString("\n")
		b.WriteString(messageStyle.Render(m.message))
	}

	// Apply padding to entire content
	padStyle := lipgloss.NewStyle().
		PaddingLeft(contentPadding).
		PaddingRight(contentPadding).
		PaddingTop(1)

	return padStyle.Render(b.String())
}

func (m Model) listView() string {
	if m.width >= minSplitWidth {
		return m.splitView()
	}
	return m.renderListPane(m.width-(contentPadding*2), m.listHeight())
}

func (m Model) listHeight() int {
	height := m.height - 8
	if height < 10 {
		height = 15
	}
	return height
}

// splitView renders the list on the left and the selected item on the right.
func (m Model) splitView() string {
	gap := 1
	borderChars := 4 // 2 per pane (left + right borders)
	availableWidth := m.width - borderChars - gap - (contentPadding * 2)
	leftContentWidth := availableWidth / 2
	rightContentWidth := availableWidth - leftContentWidth

	// Account for: outer padding top (1), border top (1), border bottom (1), padding bottom (1)
	contentHeight := max(m.height-4, 10)

	leftLines := normalizeLines(strings.Split(m.renderListPane(leftContentWidth, contentHeight), "\n"), contentHeight, leftContentWidth)
	rightLines := normalizeLines(strings.Split(m.detailView(rightContentWidth), "\n"), contentHeight, rightContentWidth)

	leftBox := buildBorderedBox(leftLines, leftContentWidth, lipgloss.Color("39"))
	rightBox := buildBorderedBox(rightLines, rightContentWidth, lipgloss.Color("241"))

	return lipgloss.JoinHorizontal(lipgloss.Top, leftBox, strings.Repeat(" ", gap), rightBox)
}

// normalizeLines ensures the slice has exactly `height` lines, each padded to `width`.
func normalizeLines(lines []string, height, width int) []string {
	result := make([]string, height)
	for i := 0; i < height; i++ {
		if i < len(lines) {
			result[i] = padToWidth(lines[i], width)
		} else {
			result[i] = strings.Repeat(" ", width)
		}
	}
	return result
}

// buildBorderedBox creates a box with rounded borders around content lines.
func buildBorderedBox(lines []string, contentWidth int, borderColor lipgloss.Color) string {
	style := lipgloss.NewStyle().Foreground(borderColor)
	horizontal := style.Render("─")
	vertical := style.Render("│")

	var b strings.Builder
	b.WriteString(style.Render("╭") + strings.Repeat(horizontal, contentWidth) + style.Render("╮") + "\n")
	for _, line := range lines {
		b.WriteString(vertical + line + vertical + "\n")
	}
	b.WriteString(style.Render("╰") + strings.Repeat(horizontal, contentWidth) + style.Render("╯"))
	return b.String()
}

// padToWidth pads a string to the specified width with spaces.
// Accounts for ANSI escape codes when calculating visible width.
func padToWidth(s string, width int) string {
	visibleLen := lipgloss.Width(s)
	if visibleLen >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visibleLen)
}

func (m Model) renderListPane(width, height int) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("tasks"))
	b.WriteString("  ")
	b.WriteString(sourceStyle.Render(m.source.String()))
	b.WriteString(fmt.Sprintf("  %d items", len(m.items)))
	b.WriteString("\n\n")

	// Header takes 2 lines, footer 3
	itemsHeight := max(height-5, 3)
	rowWidth := max(width, 40)

	if len(m.items) == 0 {
		b.WriteString("Nothing here yet\n")
	} else {
		// Keep cursor in view
		start := 0
		if m.cursor >= itemsHeight {
			start = m.cursor - itemsHeight + 1
		}
		end := min(start+itemsHeight, len(m.items))

		for i := start; i < end; i++ {
			item := m.items[i]
			if i == m.cursor {
				b.WriteString(selectedRowStyle.Width(rowWidth).Render(formatItemLine(item, rowWidth, false)))
			} else {
				b.WriteString(lipgloss.NewStyle().Width(rowWidth).Render(formatItemLine(item, rowWidth, true)))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("j/k:nav  enter:open  s:status  d:delete"))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab:all/schedule/history  r:refresh  q:quit"))
	return b.String()
}

// truncate shortens s to at most width terminal cells, ending in "..." when
// cut. Wide and multi-byte characters are never split.
func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "...")
}

// formatItemLine renders one list row. Selected rows are plain so the
// highlight style applies to the whole line.
func formatItemLine(item model.Record, width int, styled bool) string {
	icon := statusIcon(item.Status)
	id := fmt.Sprintf("%-4d", item.ID)
	kind := fmt.Sprintf("%-7s", strings.ToLower(string(item.Kind)))
	when := ""
	if item.StartTime != nil {
		when = item.StartTime.Local().Format(timeLayout)
	}

	// icon(1) + space(1) + id(4) + space(2) + kind(7) + space(1) + when(16) + space(1)
	nameWidth := width - 33
	if nameWidth < 20 {
		nameWidth = 20
	}
	name := truncate(item.Name, nameWidth)

	if styled {
		icon = lipgloss.NewStyle().Foreground(statusColors[item.Status]).Render(icon)
		id = dimStyle.Render(id)
		kind = dimStyle.Render(kind)
		when = dimStyle.Render(when)
	}
	return fmt.Sprintf("%s %s  %s %s %s", icon, id, kind, padToWidth(name, nameWidth), when)
}

// detailView renders the selected item. If width is 0, uses full terminal width.
func (m Model) detailView(width int) string {
	item, ok := m.selected()
	if !ok {
		return "Nothing selected"
	}

	effectiveWidth := width
	if effectiveWidth == 0 {
		effectiveWidth = m.width - (contentPadding * 2)
	}
	effectiveWidth = max(effectiveWidth, 40)

	clip := func(s string, maxLen int) string {
		if width == 0 {
			return s
		}
		return truncate(s, maxLen)
	}

	color := statusColors[item.Status]
	var lines []string
	lines = append(lines, lipgloss.NewStyle().Foreground(color).Render(statusIcon(item.Status))+" "+
		titleStyle.Render(clip(item.Name, effectiveWidth-4)))
	lines = append(lines, "")

	lines = append(lines, detailLabelStyle.Render("ID:       ")+fmt.Sprintf("%d", item.ID))
	lines = append(lines, detailLabelStyle.Render("Kind:     ")+string(item.Kind))
	lines = append(lines, detailLabelStyle.Render("Status:   ")+lipgloss.NewStyle().Foreground(color).Render(string(item.Status)))

	if item.StartTime != nil {
		lines = append(lines, detailLabelStyle.Render("Start:    ")+item.StartTime.Local().Format(timeLayout))
	}
	if item.Duration != nil {
		lines = append(lines, detailLabelStyle.Render("Duration: ")+item.Duration.String())
	}
	if item.EndTime != nil {
		lines = append(lines, detailLabelStyle.Render("End:      ")+item.EndTime.Local().Format(timeLayout))
	}
	if item.Kind == model.KindSubtask {
		lines = append(lines, detailLabelStyle.Render("Epic:     ")+fmt.Sprintf("%d", item.EpicID))
	}
	if len(item.SubtaskIDs) > 0 {
		ids := make([]string, len(item.SubtaskIDs))
		for i, id := range item.SubtaskIDs {
			ids[i] = fmt.Sprintf("%d", id)
		}
		lines = append(lines, detailLabelStyle.Render("Subtasks: ")+clip(strings.Join(ids, ", "), effectiveWidth-10))
	}

	if item.Description != "" {
		lines = append(lines, "")
		lines = append(lines, detailLabelStyle.Render("Description:"))
		for _, dl := range strings.Split(item.Description, "\n") {
			lines = append(lines, clip(dl, effectiveWidth))
		}
	}

	if width == 0 {
		lines = append(lines, "")
		lines = append(lines, helpStyle.Render("esc:back  s:status d:delete  q:quit"))
	}
	return strings.Join(lines, "\n")
}

// Run starts the TUI.
func Run(tr *tracker.Tracker) error {
	p := tea.NewProgram(New(tr), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

