// Package calendar does the date arithmetic behind the month picker.
package calendar

import "time"

// Month is a calendar month in a location.
type Month struct {
	Year  int
	Month time.Month
	Loc   *time.Location
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month(), Loc: t.Location()}
}

// First is midnight on the first day of the month.
func (m Month) First() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, m.location())
}

// Days is the number of days in the month.
func (m Month) Days() int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, m.location()).Day()
}

// Next rolls December over into January of the following year.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January, Loc: m.Loc}
	}
	return Month{Year: m.Year, Month: m.Month + 1, Loc: m.Loc}
}

// Prev rolls January back into December of the previous year.
func (m Month) Prev() Month {
	if m.Month == time.January {
		return Month{Year: m.Year - 1, Month: time.December, Loc: m.Loc}
	}
	return Month{Year: m.Year, Month: m.Month - 1, Loc: m.Loc}
}

// Contains reports whether t falls in the month.
func (m Month) Contains(t time.Time) bool {
	t = t.In(m.location())
	return t.Year() == m.Year && t.Month() == m.Month
}

// Offset is the number of blank cells before day 1 in a week row starting on
// weekStart.
func (m Month) Offset(weekStart time.Weekday) int {
	return (int(m.First().Weekday()) - int(weekStart) + 7) % 7
}

// Grid lays the month out in week rows. Cells outside the month are zero
// times.
func (m Month) Grid(weekStart time.Weekday) [][]time.Time {
	offset := m.Offset(weekStart)
	days := m.Days()
	cells := offset + days
	rows := (cells + 6) / 7

	grid := make([][]time.Time, rows)
	for r := range grid {
		grid[r] = make([]time.Time, 7)
	}
	first := m.First()
	for d := 0; d < days; d++ {
		idx := offset + d
		grid[idx/7][idx%7] = first.AddDate(0, 0, d)
	}
	return grid
}

// WeekdayNames returns short weekday names in grid column order.
func WeekdayNames(weekStart time.Weekday) []string {
	names := make([]string, 7)
	for i := range names {
		names[i] = time.Weekday((int(weekStart) + i) % 7).String()[:3]
	}
	return names
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (m Month) location() *time.Location {
	if m.Loc == nil {
		return time.Local
	}
	return m.Loc
}
