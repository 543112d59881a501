package tasks

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"

	"daybook/internal/day"
)

var (
	ErrReminderInPast = errors.New("cannot set reminder in the past")
	ErrTodoNotFound   = errors.New("todo not found")
	ErrMalformedTime  = errors.New("time must be HH:MM")
)

// Service applies todo operations to day records. Every operation returns a
// new record and leaves its input untouched; persisting the result is up to
// the caller.
type Service struct {
	now   func() time.Time
	newID func() string
}

type Option func(*Service)

// WithClock overrides the time source used to reject past reminders.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDs overrides todo id generation.
func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(opts ...Option) *Service {
	s := &Service{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add appends a todo. Blank text is ignored and rec is returned as is.
func (s *Service) Add(rec day.Record, text string) day.Record {
	text = strings.TrimSpace(text)
	if text == "" {
		return rec
	}
	out := rec.Clone()
	out.Todos = append(out.Todos, day.Todo{
		ID:   s.newID(),
		Text: text,
	})
	return out
}

// Toggle flips completion of the todo with id. Unknown ids are ignored.
func (s *Service) Toggle(rec day.Record, id string) day.Record {
	idx := rec.FindTodo(id)
	if idx < 0 {
		return rec
	}
	out := rec.Clone()
	out.Todos[idx].Completed = !out.Todos[idx].Completed
	return out
}

// Delete removes the todo with id. Unknown ids are ignored.
func (s *Service) Delete(rec day.Record, id string) day.Record {
	idx := rec.FindTodo(id)
	if idx < 0 {
		return rec
	}
	out := rec.Clone()
	out.Todos = append(out.Todos[:idx], out.Todos[idx+1:]...)
	return out
}

// AttachReminder sets the reminder time of the todo with id. It does not
// schedule delivery.
func (s *Service) AttachReminder(rec day.Record, id string, at time.Time) (day.Record, error) {
	if !at.After(s.now()) {
		return rec, ErrReminderInPast
	}
	idx := rec.FindTodo(id)
	if idx < 0 {
		return rec, fmt.Errorf("%w: %s", ErrTodoNotFound, id)
	}
	out := rec.Clone()
	out.Todos[idx].Reminder = &at
	return out, nil
}

// ParseClock reads an "HH:MM" wall-clock time and places it on the day k in
// loc. Each field is one or two digits; surrounding space is ignored.
func ParseClock(input string, k day.Key, loc *time.Location) (time.Time, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(input), ":")
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTime, input)
	}
	hour, ok := clockField(hh, 23)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTime, input)
	}
	minute, ok := clockField(mm, 59)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTime, input)
	}
	midnight, err := k.Time(loc)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(midnight.Year(), midnight.Month(), midnight.Day(), hour, minute, 0, 0, loc), nil
}

func clockField(s string, max int) (int, bool) {
	if len(s) == 0 || len(s) > 2 {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n > max {
		return 0, false
	}
	return n, true
}

// FormatClock renders a reminder the way ParseClock reads it.
func FormatClock(t time.Time) string {
	return t.Format("15:04")
}

// Filter returns the todos whose text fuzzily matches query, best first.
// An empty query returns every todo in display order.
func Filter(rec day.Record, query string) []day.Todo {
	query = strings.TrimSpace(query)
	if query == "" {
		return rec.Todos
	}
	names := make([]string, len(rec.Todos))
	for i, t := range rec.Todos {
		names[i] = t.Text
	}
	matches := fuzzy.Find(query, names)
	out := make([]day.Todo, len(matches))
	for i, match := range matches {
		out[i] = rec.Todos[match.Index]
	}
	return out
}
