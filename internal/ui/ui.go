package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"daybook/internal/calendar"
	"daybook/internal/config"
	"daybook/internal/day"
	"daybook/internal/daystore"
	"daybook/internal/planner"
	"daybook/internal/tasks"
)

type mode int

const (
	modeBrowse mode = iota
	modeAdd
	modeNote
	modeRemind
	modeSearch
)

type focus int

const (
	focusCalendar focus = iota
	focusDay
)

// saveNoteKey commits the note editor; enter inserts a newline there.
const saveNoteKey = "ctrl+s"

type alertMsg string

type tickMsg time.Time

type Model struct {
	ctx     context.Context
	planner *planner.Planner
	cfg     config.Config
	alerts  <-chan string
	now     func() time.Time

	month    calendar.Month
	selected time.Time
	days     map[day.Key]day.Record
	rec      day.Record
	visible  []day.Todo
	query    string
	cursor   int
	focus    focus
	mode     mode
	clock    time.Time

	input      textinput.Model
	editor     textarea.Model
	status     string
	confirmDel bool
	pendingDel *day.Todo
	alert      string
	width      int
	unreadable bool
}

// Run starts the calendar TUI and blocks until the user quits or ctx is
// cancelled. Messages sent on alerts are shown as a modal.
func Run(ctx context.Context, p *planner.Planner, cfg config.Config, alerts <-chan string) error {
	m, err := newModel(ctx, p, cfg, alerts, time.Now)
	if err != nil {
		return err
	}
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func newModel(ctx context.Context, p *planner.Planner, cfg config.Config, alerts <-chan string, now func() time.Time) (Model, error) {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 40

	ta := textarea.New()
	ta.Placeholder = "Write a note for this day"
	ta.SetWidth(48)
	ta.SetHeight(6)

	today := now().In(p.Location())
	m := Model{
		ctx:     ctx,
		planner: p,
		cfg:     cfg,
		alerts:  alerts,
		now:     now,
		clock:   today,
		input:   ti,
		editor:  ta,
		mode:    modeBrowse,
		focus:   focusCalendar,
		status:  fmt.Sprintf("Press '%s' to add, '%s' to write a note, '%s' to switch panels.", cfg.Keys.Add, cfg.Keys.Note, cfg.Keys.Focus),
	}
	if err := m.selectDay(today); err != nil {
		return m, err
	}
	return m, nil
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForAlert(m.alerts), tick())
}

func waitForAlert(ch <-chan string) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return alertMsg(msg)
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case alertMsg:
		m.alert = string(msg)
		return m, waitForAlert(m.alerts)
	case tickMsg:
		m.clock = time.Time(msg).In(m.planner.Location())
		return m, tick()
	case tea.KeyMsg:
		if m.alert != "" {
			// Any key dismisses the alert.
			m.alert = ""
			return m, nil
		}
		if m.confirmDel {
			return m.updateDeleteConfirm(msg.String())
		}
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = clampWidth(msg.Width/2 - 10)
		m.editor.SetWidth(clampWidth(msg.Width/2 - 6))
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch m.mode {
	case modeAdd, modeRemind:
		return m.updatePromptMode(key, msg)
	case modeNote:
		return m.updateNoteMode(key, msg)
	case modeSearch:
		return m.updateSearchMode(key, msg)
	}
	return m.updateBrowseMode(key)
}

func (m Model) updateBrowseMode(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	if m.unreadable && isEditKey(k, key) {
		m.status = fmt.Sprintf("%s is unreadable; import a good copy before editing it", m.key())
		return m, nil
	}
	switch key {
	case "ctrl+c", k.Quit:
		return m, tea.Quit
	case k.Focus, "tab":
		if m.focus == focusCalendar {
			m.focus = focusDay
		} else {
			m.focus = focusCalendar
		}
	case k.PrevMonth:
		m.moveTo(sameDayIn(m.selected, calendar.MonthOf(m.selected).Prev()))
	case k.NextMonth:
		m.moveTo(sameDayIn(m.selected, calendar.MonthOf(m.selected).Next()))
	case k.Today:
		m.moveTo(m.now().In(m.planner.Location()))
	case k.Left, "left":
		if m.focus == focusCalendar {
			m.moveTo(m.selected.AddDate(0, 0, -1))
		}
	case k.Right, "right":
		if m.focus == focusCalendar {
			m.moveTo(m.selected.AddDate(0, 0, 1))
		}
	case k.Up, "up":
		if m.focus == focusCalendar {
			m.moveTo(m.selected.AddDate(0, 0, -7))
		} else if m.cursor > 0 {
			m.cursor = clampCursor(m.cursor-1, len(m.visible))
		}
	case k.Down, "down":
		if m.focus == focusCalendar {
			m.moveTo(m.selected.AddDate(0, 0, 7))
		} else {
			m.cursor = clampCursor(m.cursor+1, len(m.visible))
		}
	case k.Add:
		m.mode = modeAdd
		m.input.SetValue("")
		m.input.Placeholder = "What needs doing?"
		m.input.Focus()
		m.status = "Add mode: type a task and press Enter"
	case k.Note:
		m.mode = modeNote
		m.editor.SetValue(m.rec.Note())
		m.editor.Focus()
		m.status = fmt.Sprintf("Editing note: %s to save, %s to cancel", saveNoteKey, k.Cancel)
	case k.Search:
		m.mode = modeSearch
		m.focus = focusDay
		m.input.SetValue(m.query)
		m.input.Placeholder = "Filter tasks"
		m.input.Focus()
		m.status = "Search: type to filter, Enter to keep, Esc to clear"
	case k.Cancel:
		if m.query != "" {
			m.setQuery("")
			m.status = "Filter cleared"
		}
	case k.Toggle:
		t := m.current()
		if t == nil {
			return m, nil
		}
		rec, err := m.planner.ToggleTodo(m.ctx, m.key(), t.ID)
		if err != nil {
			m.status = fmt.Sprintf("toggle failed: %v", err)
			return m, nil
		}
		m.apply(rec)
		m.status = "Toggled task"
	case k.Delete:
		t := m.current()
		if t == nil {
			return m, nil
		}
		todo := *t
		m.confirmDel = true
		m.pendingDel = &todo
		m.status = fmt.Sprintf("Delete \"%s\"? y/n", todo.Text)
	case k.Remind:
		t := m.current()
		if t == nil {
			m.status = "Select a task to attach a reminder"
			return m, nil
		}
		value := m.cfg.ReminderDefault
		if t.Reminder != nil {
			value = tasks.FormatClock(t.Reminder.In(m.planner.Location()))
		}
		m.mode = modeRemind
		m.input.SetValue(value)
		m.input.Placeholder = "HH:MM"
		m.input.Focus()
		m.status = fmt.Sprintf("Reminder for \"%s\" (HH:MM)", t.Text)
	}
	return m, nil
}

// updatePromptMode drives the single-line prompt shared by add and remind.
func (m Model) updatePromptMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		m.mode = modeBrowse
		m.input.SetValue("")
		m.input.Blur()
		m.status = "Cancelled"
		return m, nil
	case m.cfg.Keys.Confirm:
		if m.mode == modeAdd {
			return m.submitAdd()
		}
		return m.submitReminder()
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) submitAdd() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		m.status = "Task cannot be empty"
		return m, nil
	}
	rec, err := m.planner.AddTodo(m.ctx, m.key(), text)
	if err != nil {
		m.status = fmt.Sprintf("save failed: %v", err)
		return m, nil
	}
	m.apply(rec)
	m.cursor = clampCursor(len(m.visible)-1, len(m.visible))
	m.focus = focusDay
	m.leavePrompt("Added task")
	return m, nil
}

func (m Model) submitReminder() (tea.Model, tea.Cmd) {
	t := m.current()
	if t == nil {
		m.leavePrompt("No task selected")
		return m, nil
	}
	rec, at, err := m.planner.SetReminder(m.ctx, m.key(), t.ID, m.input.Value())
	switch {
	case errors.Is(err, tasks.ErrMalformedTime):
		m.status = "Invalid time, use HH:MM"
		return m, nil
	case errors.Is(err, tasks.ErrReminderInPast):
		m.status = "Reminder time must be in the future"
		return m, nil
	case err != nil:
		m.status = fmt.Sprintf("reminder failed: %v", err)
		return m, nil
	}
	m.apply(rec)
	m.leavePrompt("Reminder set for " + tasks.FormatClock(at))
	return m, nil
}

func (m Model) updateNoteMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		m.mode = modeBrowse
		m.editor.Blur()
		m.status = "Note unchanged"
		return m, nil
	case saveNoteKey:
		rec, err := m.planner.SetNote(m.ctx, m.key(), m.editor.Value())
		if err != nil {
			m.status = fmt.Sprintf("save failed: %v", err)
			return m, nil
		}
		m.apply(rec)
		m.mode = modeBrowse
		m.editor.Blur()
		m.status = "Note saved"
		return m, nil
	default:
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return m, cmd
	}
}

func (m Model) updateSearchMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		m.setQuery("")
		m.leavePrompt("Filter cleared")
		return m, nil
	case m.cfg.Keys.Confirm:
		m.leavePrompt(fmt.Sprintf("%d of %d tasks match \"%s\"", len(m.visible), len(m.rec.Todos), m.query))
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.setQuery(m.input.Value())
		return m, cmd
	}
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", m.cfg.Keys.Cancel:
		m.status = "Delete cancelled"
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	case "y", "Y", m.cfg.Keys.Confirm:
		if m.pendingDel == nil {
			m.status = "Nothing to delete"
			m.confirmDel = false
			return m, nil
		}
		rec, err := m.planner.DeleteTodo(m.ctx, m.key(), m.pendingDel.ID)
		if err != nil {
			m.status = fmt.Sprintf("delete failed: %v", err)
		} else {
			m.apply(rec)
			m.status = "Deleted task"
		}
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	default:
		return m, nil
	}
}

// moveTo selects t, reloading the month when it changes.
func (m *Model) moveTo(t time.Time) {
	if err := m.selectDay(t); err != nil {
		m.status = fmt.Sprintf("load failed: %v", err)
	}
}

// selectDay loads t's month and record. Days that cannot be decoded do not
// stop the calendar: they are reported on the status line, and an unreadable
// selected day is shown empty and locked against edits so the stored value
// is not overwritten.
func (m *Model) selectDay(t time.Time) error {
	var warning string
	month := calendar.MonthOf(t)
	if m.days == nil || month != m.month {
		days, err := m.planner.Month(m.ctx, month)
		switch {
		case errors.Is(err, daystore.ErrMalformedRecord):
			warning = fmt.Sprintf("Some days could not be read: %v", err)
		case err != nil:
			return err
		}
		m.days = days
		m.month = month
	}
	key := day.KeyOf(t)
	rec, err := m.planner.Day(m.ctx, key)
	m.unreadable = errors.Is(err, daystore.ErrMalformedRecord)
	switch {
	case m.unreadable:
		rec = day.NewRecord(key)
		warning = fmt.Sprintf("%s could not be read: %v", key, err)
	case err != nil:
		return err
	}
	m.selected = t
	m.query = ""
	m.cursor = 0
	m.apply(rec)
	if warning != "" {
		m.status = warning
	}
	return nil
}

// apply installs rec as the selected day's record and refreshes the month
// markers and the filtered list.
func (m *Model) apply(rec day.Record) {
	m.rec = rec
	switch {
	case m.unreadable:
	case rec.IsEmpty():
		delete(m.days, rec.DateKey)
	default:
		m.days[rec.DateKey] = rec
	}
	m.setQuery(m.query)
}

func (m *Model) setQuery(q string) {
	m.query = strings.TrimSpace(q)
	m.visible = tasks.Filter(m.rec, m.query)
	m.cursor = clampCursor(m.cursor, len(m.visible))
}

func (m *Model) leavePrompt(status string) {
	m.mode = modeBrowse
	m.input.SetValue("")
	m.input.Blur()
	m.status = status
}

func (m Model) key() day.Key {
	return day.KeyOf(m.selected)
}

// current is the highlighted todo, or nil when the list is empty.
func (m Model) current() *day.Todo {
	if len(m.visible) == 0 {
		return nil
	}
	t := m.visible[clampCursor(m.cursor, len(m.visible))]
	return &t
}

func isEditKey(k config.Keymap, key string) bool {
	switch key {
	case k.Add, k.Note, k.Toggle, k.Delete, k.Remind:
		return true
	}
	return false
}

// sameDayIn moves t into month, keeping its day of month where the month is
// long enough and clamping to the last day otherwise.
func sameDayIn(t time.Time, month calendar.Month) time.Time {
	d := t.Day()
	if n := month.Days(); d > n {
		d = n
	}
	return time.Date(month.Year, month.Month, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}

func clampWidth(w int) int {
	if w < 20 {
		return 20
	}
	return w
}
