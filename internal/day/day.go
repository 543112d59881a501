// Package day holds the per-day record model and the date key that
// identifies a calendar day.
package day

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	keyLayout = "2006-01-02"

	// StoragePrefix namespaces every persisted day record.
	StoragePrefix = "calendar-day-"
)

var ErrInvalidKey = errors.New("invalid date key")

// Key identifies a calendar day as YYYY-MM-DD.
type Key string

// KeyOf derives the key of the calendar day t falls on, in t's own location.
// The time of day is ignored.
func KeyOf(t time.Time) Key {
	return Key(fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day()))
}

// ParseKey validates a YYYY-MM-DD string.
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	t, err := time.Parse(keyLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return KeyOf(t), nil
}

// Time returns midnight of the keyed day in loc.
func (k Key) Time(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(keyLayout, string(k), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidKey, string(k))
	}
	return t, nil
}

func (k Key) String() string {
	return string(k)
}

// StorageKey is the backend key a day record is persisted under.
func StorageKey(k Key) string {
	return StoragePrefix + string(k)
}

// KeyFromStorage reverses StorageKey.
func KeyFromStorage(s string) (Key, bool) {
	if !strings.HasPrefix(s, StoragePrefix) {
		return "", false
	}
	return Key(strings.TrimPrefix(s, StoragePrefix)), true
}

type Note struct {
	ID           string
	Content      string
	LastModified time.Time
}

type Todo struct {
	ID        string
	Text      string
	Completed bool
	Reminder  *time.Time
}

// HasReminder reports whether a reminder time is attached.
func (t Todo) HasReminder() bool {
	return t.Reminder != nil
}

// Record is everything stored for one calendar day.
type Record struct {
	DateKey Key
	Notes   []Note
	Todos   []Todo
}

// NewRecord returns the empty record for k.
func NewRecord(k Key) Record {
	return Record{DateKey: k, Notes: []Note{}, Todos: []Todo{}}
}

// Clone returns a deep copy; reminder pointers are not shared.
func (r Record) Clone() Record {
	out := Record{
		DateKey: r.DateKey,
		Notes:   make([]Note, len(r.Notes)),
		Todos:   make([]Todo, len(r.Todos)),
	}
	copy(out.Notes, r.Notes)
	for i, t := range r.Todos {
		if t.Reminder != nil {
			at := *t.Reminder
			t.Reminder = &at
		}
		out.Todos[i] = t
	}
	return out
}

// FindTodo returns the index of the todo with id, or -1.
func (r Record) FindTodo(id string) int {
	for i, t := range r.Todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Note returns the day's note content, or "" when there is none.
func (r Record) Note() string {
	if len(r.Notes) == 0 {
		return ""
	}
	return r.Notes[0].Content
}

// IsEmpty reports whether the record has neither notes nor todos.
func (r Record) IsEmpty() bool {
	return len(r.Todos) == 0 && strings.TrimSpace(r.Note()) == ""
}

// OpenCount returns the number of todos not yet completed.
func (r Record) OpenCount() int {
	n := 0
	for _, t := range r.Todos {
		if !t.Completed {
			n++
		}
	}
	return n
}
