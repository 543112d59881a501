// Package daystore persists day records as JSON in a key/value backend.
//
// Timestamps are written as RFC 3339 with nanoseconds in UTC and read back in
// UTC, so a saved record loads equal to what was saved. A stored value that
// cannot be decoded is reported as ErrMalformedRecord rather than replaced
// with an empty day.
package daystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"daybook/internal/day"
	"daybook/internal/logs"
	"daybook/internal/storage"
)

const timeLayout = time.RFC3339Nano

var (
	ErrUnavailable     = errors.New("day storage unavailable")
	ErrMalformedRecord = errors.New("malformed day record")
	ErrKeyMismatch     = errors.New("record date does not match key")
)

// Backend is the key/value persistence a Store writes through.
// *storage.Store satisfies it.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Scan(ctx context.Context, from, to string) ([]storage.Entry, error)
}

type Store struct {
	backend Backend
	log     *logs.Logger
}

func New(backend Backend, log *logs.Logger) *Store {
	if log == nil {
		log = logs.Nop()
	}
	return &Store{backend: backend, log: log.WithComponent("daystore")}
}

// Load returns the record stored for key, or an empty record if none exists.
func (s *Store) Load(ctx context.Context, key day.Key) (day.Record, error) {
	if key == "" {
		return day.Record{}, fmt.Errorf("%w: empty", day.ErrInvalidKey)
	}
	raw, err := s.backend.Get(ctx, day.StorageKey(key))
	if errors.Is(err, storage.ErrNotFound) {
		return day.NewRecord(key), nil
	}
	if err != nil {
		s.log.Errorw("load failed", "day", key, "error", err)
		return day.Record{}, fmt.Errorf("%w: load %s: %v", ErrUnavailable, key, err)
	}
	rec, err := decode(raw)
	if err != nil {
		s.log.Warnw("stored day is malformed", "day", key, "error", err)
		return day.Record{}, fmt.Errorf("load %s: %w", key, err)
	}
	if rec.DateKey != key {
		return day.Record{}, fmt.Errorf("load %s: %w: stored date %q", key, ErrMalformedRecord, rec.DateKey)
	}
	return rec, nil
}

// Save overwrites whatever is stored for key with rec.
func (s *Store) Save(ctx context.Context, key day.Key, rec day.Record) error {
	if key == "" {
		return fmt.Errorf("%w: empty", day.ErrInvalidKey)
	}
	if rec.DateKey != key {
		return fmt.Errorf("save %s: %w (%q)", key, ErrKeyMismatch, rec.DateKey)
	}
	raw, err := encode(rec)
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	if err := s.backend.Put(ctx, day.StorageKey(key), raw); err != nil {
		s.log.Errorw("save failed", "day", key, "error", err)
		return fmt.Errorf("%w: save %s: %v", ErrUnavailable, key, err)
	}
	s.log.Debugw("saved day", "day", key, "notes", len(rec.Notes), "todos", len(rec.Todos))
	return nil
}

// MalformedDaysError reports the days Range skipped because their stored
// value could not be decoded.
type MalformedDaysError struct {
	Keys []day.Key
}

func (e *MalformedDaysError) Error() string {
	return fmt.Sprintf("%s: %v", ErrMalformedRecord, e.Keys)
}

func (e *MalformedDaysError) Unwrap() error {
	return ErrMalformedRecord
}

// Range returns every stored record with from <= key <= to, ascending.
// Days with nothing stored are skipped. Days that fail to decode are left
// out of the result and listed in a *MalformedDaysError returned alongside
// the healthy records.
func (s *Store) Range(ctx context.Context, from, to day.Key) ([]day.Record, error) {
	entries, err := s.backend.Scan(ctx, day.StorageKey(from), day.StorageKey(to))
	if err != nil {
		return nil, fmt.Errorf("%w: scan %s..%s: %v", ErrUnavailable, from, to, err)
	}
	records := make([]day.Record, 0, len(entries))
	var bad []day.Key
	for _, e := range entries {
		key, ok := day.KeyFromStorage(e.Key)
		if !ok {
			continue
		}
		rec, err := decode(e.Value)
		if err == nil && rec.DateKey != key {
			err = fmt.Errorf("%w: stored date %q", ErrMalformedRecord, rec.DateKey)
		}
		if err != nil {
			s.log.Warnw("stored day is malformed", "day", key, "error", err)
			bad = append(bad, key)
			continue
		}
		records = append(records, rec)
	}
	if len(bad) > 0 {
		return records, &MalformedDaysError{Keys: bad}
	}
	return records, nil
}

type storedNote struct {
	ID           string `json:"id"`
	Content      string `json:"content"`
	LastModified string `json:"lastModified"`
}

type storedTodo struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	Completed bool    `json:"completed"`
	Reminder  *string `json:"reminder,omitempty"`
}

type storedRecord struct {
	Date  string       `json:"date"`
	Notes []storedNote `json:"notes"`
	Todos []storedTodo `json:"todos"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func encode(rec day.Record) ([]byte, error) {
	out := storedRecord{
		Date:  string(rec.DateKey),
		Notes: make([]storedNote, 0, len(rec.Notes)),
		Todos: make([]storedTodo, 0, len(rec.Todos)),
	}
	for _, n := range rec.Notes {
		out.Notes = append(out.Notes, storedNote{
			ID:           n.ID,
			Content:      n.Content,
			LastModified: formatTime(n.LastModified),
		})
	}
	for _, t := range rec.Todos {
		st := storedTodo{ID: t.ID, Text: t.Text, Completed: t.Completed}
		if t.Reminder != nil {
			at := formatTime(*t.Reminder)
			st.Reminder = &at
		}
		out.Todos = append(out.Todos, st)
	}
	return json.Marshal(out)
}

func decode(raw []byte) (day.Record, error) {
	var in storedRecord
	if err := json.Unmarshal(raw, &in); err != nil {
		return day.Record{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if in.Date == "" {
		return day.Record{}, fmt.Errorf("%w: missing date", ErrMalformedRecord)
	}
	rec := day.NewRecord(day.Key(in.Date))
	for i, n := range in.Notes {
		if n.ID == "" {
			return day.Record{}, fmt.Errorf("%w: note %d has no id", ErrMalformedRecord, i)
		}
		modified, err := parseTime(n.LastModified)
		if err != nil {
			return day.Record{}, fmt.Errorf("%w: note %s lastModified: %v", ErrMalformedRecord, n.ID, err)
		}
		rec.Notes = append(rec.Notes, day.Note{ID: n.ID, Content: n.Content, LastModified: modified})
	}
	for i, t := range in.Todos {
		if t.ID == "" {
			return day.Record{}, fmt.Errorf("%w: todo %d has no id", ErrMalformedRecord, i)
		}
		todo := day.Todo{ID: t.ID, Text: t.Text, Completed: t.Completed}
		if t.Reminder != nil {
			at, err := parseTime(*t.Reminder)
			if err != nil {
				return day.Record{}, fmt.Errorf("%w: todo %s reminder: %v", ErrMalformedRecord, t.ID, err)
			}
			todo.Reminder = &at
		}
		rec.Todos = append(rec.Todos, todo)
	}
	return rec, nil
}
