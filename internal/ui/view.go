package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"daybook/internal/calendar"
	"daybook/internal/config"
	"daybook/internal/day"
	"daybook/internal/notes"
	"daybook/internal/tasks"
)

const (
	notePreviewWidth = 44
	cellWidth        = 4
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	headerStyle   = lipgloss.NewStyle().Faint(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	todayStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	doneStyle     = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	activeStyle   = panelStyle.BorderForeground(lipgloss.Color("5"))
	alertStyle    = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).Padding(1, 3).Bold(true)
)

func (m Model) View() string {
	if m.alert != "" {
		body := m.alert + "\n\n" + headerStyle.Render("press any key")
		return alertStyle.Render(body) + "\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Daybook"))
	b.WriteString("  ")
	b.WriteString(headerStyle.Render(m.clock.Format("Mon Jan 2 15:04:05")))
	b.WriteString("\n\n")

	cal, dayPanel := panelStyle, panelStyle
	if m.focus == focusCalendar {
		cal = activeStyle
	} else {
		dayPanel = activeStyle
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		cal.Render(m.renderMonth()),
		" ",
		dayPanel.Render(m.renderDay()),
	))
	b.WriteString("\n")

	switch m.mode {
	case modeAdd, modeRemind, modeSearch:
		b.WriteString(m.input.View())
		b.WriteString("\n")
	case modeNote:
		b.WriteString(m.editor.View())
		b.WriteString("\n")
	}

	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(renderHelp(m.cfg.Keys)))
	return b.String()
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s/%s/%s move • %s/%s month • %s today • %s panel • %s add • %s toggle • %s delete • %s note • %s remind • %s search • %s quit",
		k.Left, k.Down, k.Up, k.Right, k.PrevMonth, k.NextMonth, k.Today, k.Focus, k.Add, keyName(k.Toggle), k.Delete, k.Note, k.Remind, k.Search, k.Quit)
}

func keyName(k string) string {
	if k == " " {
		return "space"
	}
	return k
}

func (m Model) renderMonth() string {
	weekStart := m.cfg.FirstWeekday()
	var b strings.Builder

	title := m.month.First().Format("January 2006")
	b.WriteString(lipgloss.PlaceHorizontal(cellWidth*7, lipgloss.Center, titleStyle.Render(title)))
	b.WriteString("\n")
	for _, name := range calendar.WeekdayNames(weekStart) {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-*s", cellWidth, name[:2])))
	}
	b.WriteString("\n")

	today := m.clock
	for _, week := range m.month.Grid(weekStart) {
		for _, d := range week {
			b.WriteString(m.renderCell(d, today))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderCell draws one grid cell. A trailing mark flags days with open
// tasks (+) or only a note or finished tasks (*).
func (m Model) renderCell(d, today time.Time) string {
	if d.IsZero() {
		return strings.Repeat(" ", cellWidth)
	}
	mark := " "
	if rec, ok := m.days[day.KeyOf(d)]; ok && !rec.IsEmpty() {
		mark = "*"
		if rec.OpenCount() > 0 {
			mark = "+"
		}
	}
	label := fmt.Sprintf("%2d%s", d.Day(), mark)
	switch {
	case calendar.SameDay(d, m.selected):
		label = selectedStyle.Render(label)
	case calendar.SameDay(d, today):
		label = todayStyle.Render(label)
	}
	return label + " "
}

func (m Model) renderDay() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.selected.Format("Monday, January 2")))
	b.WriteString("\n\n")

	if note := m.rec.Note(); note != "" {
		b.WriteString(notes.Preview(note, notePreviewWidth))
	} else {
		b.WriteString(headerStyle.Render("No notes for this day yet."))
	}
	b.WriteString("\n\n")

	if m.query != "" {
		b.WriteString(headerStyle.Render(fmt.Sprintf("filter: %s", m.query)))
		b.WriteString("\n")
	}
	if len(m.rec.Todos) == 0 {
		b.WriteString(headerStyle.Render("No tasks for this day yet."))
		return b.String()
	}
	if len(m.visible) == 0 {
		b.WriteString(headerStyle.Render("No tasks match."))
		return b.String()
	}
	b.WriteString(m.renderTaskList())
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderTaskList() string {
	var b strings.Builder
	for i, t := range m.visible {
		cursor := " "
		if m.cursor == i && m.focus == focusDay {
			cursor = ">"
		}

		checkbox := "[ ]"
		text := t.Text
		if t.Completed {
			checkbox = "[x]"
			text = doneStyle.Render(text)
		}

		body := fmt.Sprintf("%s %s %s", cursor, checkbox, text)
		if t.Reminder != nil {
			body += headerStyle.Render(" ⏰ " + tasks.FormatClock(t.Reminder.In(m.planner.Location())))
		}
		b.WriteString(body)
		b.WriteString("\n")
	}
	return b.String()
}
