package daystore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"daybook/internal/day"
	"daybook/internal/storage"
)

func newTestStore(t *testing.T) (*Store, *storage.Store) {
	t.Helper()
	backend, err := storage.Open(filepath.Join(t.TempDir(), "daybook.db"))
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return New(backend, nil), backend
}

func sampleRecord(key day.Key) day.Record {
	at := time.Date(2026, time.October, 17, 9, 30, 0, 123456789, time.UTC)
	rec := day.NewRecord(key)
	rec.Notes = append(rec.Notes, day.Note{
		ID:           "note-1",
		Content:      "# Plan\nbuy milk",
		LastModified: time.Date(2026, time.October, 16, 22, 1, 2, 3, time.UTC),
	})
	rec.Todos = append(rec.Todos,
		day.Todo{ID: "t1", Text: "buy milk"},
		day.Todo{ID: "t2", Text: "call mum", Completed: true, Reminder: &at},
	)
	return rec
}

func TestLoadMissingReturnsEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	rec, err := s.Load(context.Background(), "2026-10-17")
	require.NoError(t, err)
	require.Equal(t, day.Key("2026-10-17"), rec.DateKey)
	require.NotNil(t, rec.Notes)
	require.NotNil(t, rec.Todos)
	require.Empty(t, rec.Notes)
	require.Empty(t, rec.Todos)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	rec := sampleRecord("2026-10-17")

	require.NoError(t, s.Save(ctx, rec.DateKey, rec))
	got, err := s.Load(ctx, rec.DateKey)
	require.NoError(t, err)
	require.Equal(t, rec, got)
	require.True(t, rec.Todos[1].Reminder.Equal(*got.Todos[1].Reminder))
}

func TestRoundTripNormalisesToUTC(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	zone := time.FixedZone("UTC+5", 5*60*60)
	at := time.Date(2026, time.October, 17, 14, 0, 0, 0, zone)

	rec := day.NewRecord("2026-10-17")
	rec.Todos = append(rec.Todos, day.Todo{ID: "t", Text: "x", Reminder: &at})
	require.NoError(t, s.Save(ctx, rec.DateKey, rec))

	got, err := s.Load(ctx, rec.DateKey)
	require.NoError(t, err)
	require.True(t, at.Equal(*got.Todos[0].Reminder))
	require.Equal(t, time.UTC, got.Todos[0].Reminder.Location())
}

func TestLoadReturnsIndependentCopies(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	rec := sampleRecord("2026-10-17")
	require.NoError(t, s.Save(ctx, rec.DateKey, rec))

	first, err := s.Load(ctx, rec.DateKey)
	require.NoError(t, err)
	first.Todos[0].Text = "mutated"

	second, err := s.Load(ctx, rec.DateKey)
	require.NoError(t, err)
	require.Equal(t, "buy milk", second.Todos[0].Text)
}

func TestSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	rec := sampleRecord("2026-10-17")
	require.NoError(t, s.Save(ctx, rec.DateKey, rec))

	empty := day.NewRecord(rec.DateKey)
	require.NoError(t, s.Save(ctx, rec.DateKey, empty))

	got, err := s.Load(ctx, rec.DateKey)
	require.NoError(t, err)
	require.Equal(t, empty, got)
}

func TestSaveRejectsKeyMismatch(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.Save(context.Background(), "2026-10-18", day.NewRecord("2026-10-17"))
	require.ErrorIs(t, err, ErrKeyMismatch)
}

func TestEmptyKeyRejected(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Load(context.Background(), "")
	require.ErrorIs(t, err, day.ErrInvalidKey)
	err = s.Save(context.Background(), "", day.NewRecord(""))
	require.ErrorIs(t, err, day.ErrInvalidKey)
}

func TestStoredFormat(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)
	rec := sampleRecord("2026-10-17")
	require.NoError(t, s.Save(ctx, rec.DateKey, rec))

	raw, err := backend.Get(ctx, "calendar-day-2026-10-17")
	require.NoError(t, err)
	require.JSONEq(t, `{
		"date": "2026-10-17",
		"notes": [{"id": "note-1", "content": "# Plan\nbuy milk", "lastModified": "2026-10-16T22:01:02.000000003Z"}],
		"todos": [
			{"id": "t1", "text": "buy milk", "completed": false},
			{"id": "t2", "text": "call mum", "completed": true, "reminder": "2026-10-17T09:30:00.123456789Z"}
		]
	}`, string(raw))
}

func TestMalformedRecords(t *testing.T) {
	tests := map[string]string{
		"not json":       `{"date":`,
		"missing date":   `{"notes":[],"todos":[]}`,
		"other date":     `{"date":"2026-01-01","notes":[],"todos":[]}`,
		"bad timestamp":  `{"date":"2026-10-17","notes":[{"id":"n","content":"","lastModified":"yesterday"}],"todos":[]}`,
		"bad reminder":   `{"date":"2026-10-17","notes":[],"todos":[{"id":"t","text":"x","completed":false,"reminder":"9am"}]}`,
		"todo without id": `{"date":"2026-10-17","notes":[],"todos":[{"text":"x"}]}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s, backend := newTestStore(t)
			require.NoError(t, backend.Put(ctx, "calendar-day-2026-10-17", []byte(raw)))

			_, err := s.Load(ctx, "2026-10-17")
			require.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestMissingListsDecodeEmpty(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)
	require.NoError(t, backend.Put(ctx, "calendar-day-2026-10-17", []byte(`{"date":"2026-10-17"}`)))

	rec, err := s.Load(ctx, "2026-10-17")
	require.NoError(t, err)
	require.Equal(t, day.NewRecord("2026-10-17"), rec)
}

func TestRange(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)
	for _, k := range []day.Key{"2026-10-01", "2026-10-15", "2026-11-01"} {
		require.NoError(t, s.Save(ctx, k, sampleRecord(k)))
	}
	require.NoError(t, backend.Put(ctx, "theme", []byte("dark")))

	recs, err := s.Range(ctx, "2026-10-01", "2026-10-31")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, day.Key("2026-10-01"), recs[0].DateKey)
	require.Equal(t, day.Key("2026-10-15"), recs[1].DateKey)
}

func TestRangeSkipsMalformedDays(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)
	require.NoError(t, s.Save(ctx, "2026-10-01", sampleRecord("2026-10-01")))
	require.NoError(t, s.Save(ctx, "2026-10-20", sampleRecord("2026-10-20")))
	require.NoError(t, backend.Put(ctx, day.StorageKey("2026-10-05"), []byte("{not json")))
	moved, err := encode(sampleRecord("2026-10-09"))
	require.NoError(t, err)
	require.NoError(t, backend.Put(ctx, day.StorageKey("2026-10-10"), moved))

	recs, err := s.Range(ctx, "2026-10-01", "2026-10-31")
	require.ErrorIs(t, err, ErrMalformedRecord)
	var malformed *MalformedDaysError
	require.ErrorAs(t, err, &malformed)
	require.Equal(t, []day.Key{"2026-10-05", "2026-10-10"}, malformed.Keys)

	require.Len(t, recs, 2)
	require.Equal(t, day.Key("2026-10-01"), recs[0].DateKey)
	require.Equal(t, day.Key("2026-10-20"), recs[1].DateKey)
}

type brokenBackend struct{ err error }

func (b brokenBackend) Get(context.Context, string) ([]byte, error)          { return nil, b.err }
func (b brokenBackend) Put(context.Context, string, []byte) error            { return b.err }
func (b brokenBackend) Scan(context.Context, string, string) ([]storage.Entry, error) {
	return nil, b.err
}

func TestBackendFailureIsUnavailable(t *testing.T) {
	ctx := context.Background()
	s := New(brokenBackend{err: errors.New("disk gone")}, nil)

	_, err := s.Load(ctx, "2026-10-17")
	require.ErrorIs(t, err, ErrUnavailable)

	err = s.Save(ctx, "2026-10-17", day.NewRecord("2026-10-17"))
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = s.Range(ctx, "2026-10-01", "2026-10-31")
	require.ErrorIs(t, err, ErrUnavailable)
}
