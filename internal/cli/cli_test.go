package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"daybook/internal/day"
	"daybook/internal/tasks"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
db_path = "days.db"
notify = "off"

[log]
file = ""
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, cfgPath, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func addTodo(t *testing.T, cfgPath, date, text string) string {
	t.Helper()
	out, err := run(t, cfgPath, "", "--date", date, "todo", "add", text)
	require.NoError(t, err)
	fields := strings.Fields(out)
	require.GreaterOrEqual(t, len(fields), 2, out)
	require.Equal(t, "added", fields[0])
	return fields[1]
}

func TestTodoLifecycle(t *testing.T) {
	cfg := writeConfig(t)
	id := addTodo(t, cfg, "2026-10-17", "buy milk")
	require.Len(t, id, 8)

	out, err := run(t, cfg, "", "--date", "2026-10-17", "show")
	require.NoError(t, err)
	require.Contains(t, out, "[ ] buy milk")
	require.Contains(t, out, "No notes for this day yet.")

	out, err = run(t, cfg, "", "--date", "2026-10-17", "todo", "done", id[:4])
	require.NoError(t, err)
	require.Equal(t, "done buy milk\n", out)

	out, err = run(t, cfg, "", "--date", "2026-10-17", "show")
	require.NoError(t, err)
	require.Contains(t, out, "[x] buy milk")

	_, err = run(t, cfg, "", "--date", "2026-10-17", "todo", "rm", id)
	require.NoError(t, err)

	out, err = run(t, cfg, "", "--date", "2026-10-17", "show")
	require.NoError(t, err)
	require.Contains(t, out, "No tasks for this day yet.")
}

func TestTodoOnOtherDayIsIsolated(t *testing.T) {
	cfg := writeConfig(t)
	addTodo(t, cfg, "2026-10-17", "only here")

	out, err := run(t, cfg, "", "--date", "2026-10-18", "show")
	require.NoError(t, err)
	require.NotContains(t, out, "only here")
}

func TestTodoUnknownID(t *testing.T) {
	cfg := writeConfig(t)
	_, err := run(t, cfg, "", "--date", "2026-10-17", "todo", "rm", "nope")
	require.ErrorIs(t, err, tasks.ErrTodoNotFound)
}

func TestRemind(t *testing.T) {
	cfg := writeConfig(t)

	past := addTodo(t, cfg, "2020-01-01", "too late")
	_, err := run(t, cfg, "", "--date", "2020-01-01", "todo", "remind", past, "09:00")
	require.ErrorIs(t, err, tasks.ErrReminderInPast)

	future := addTodo(t, cfg, "2099-03-04", "dentist")
	_, err = run(t, cfg, "", "--date", "2099-03-04", "todo", "remind", future, "9am")
	require.ErrorIs(t, err, tasks.ErrMalformedTime)

	out, err := run(t, cfg, "", "--date", "2099-03-04", "todo", "remind", future)
	require.NoError(t, err)
	require.Contains(t, out, "at 2099-03-04 09:00", "the configured default time is used")

	out, err = run(t, cfg, "", "--date", "2099-03-04", "show")
	require.NoError(t, err)
	require.Contains(t, out, "dentist (reminder 09:00)")
}

func TestNoteFromArgsAndStdin(t *testing.T) {
	cfg := writeConfig(t)

	_, err := run(t, cfg, "", "--date", "2026-10-17", "note", "set", "call", "mom")
	require.NoError(t, err)
	out, err := run(t, cfg, "", "--date", "2026-10-17", "note", "show")
	require.NoError(t, err)
	require.Equal(t, "call mom\n", out)

	_, err = run(t, cfg, "# Plan\n\nbig day\n", "--date", "2026-10-17", "note", "set")
	require.NoError(t, err)
	out, err = run(t, cfg, "", "--date", "2026-10-17", "show")
	require.NoError(t, err)
	require.Contains(t, out, "Note: Plan")
}

func TestExportImport(t *testing.T) {
	src := writeConfig(t)
	addTodo(t, src, "2026-10-17", "pack bags")
	_, err := run(t, src, "", "--date", "2026-10-18", "note", "set", "flight at noon")
	require.NoError(t, err)

	out, err := run(t, src, "", "export", "--from", "2026-10-01", "--to", "2026-10-31")
	require.NoError(t, err)
	require.Contains(t, out, "pack bags")
	require.Contains(t, out, "flight at noon")

	file := filepath.Join(t.TempDir(), "days.yaml")
	require.NoError(t, os.WriteFile(file, []byte(out), 0o644))

	dst := writeConfig(t)
	msg, err := run(t, dst, "", "import", file)
	require.NoError(t, err)
	require.Equal(t, "imported 2 days\n", msg)

	shown, err := run(t, dst, "", "--date", "2026-10-17", "show")
	require.NoError(t, err)
	require.Contains(t, shown, "[ ] pack bags")
}

func TestExportRejectsBadBound(t *testing.T) {
	cfg := writeConfig(t)
	_, err := run(t, cfg, "", "export", "--from", "17/10/2026")
	require.ErrorIs(t, err, day.ErrInvalidKey)
}

func TestInvalidDateFlag(t *testing.T) {
	cfg := writeConfig(t)
	_, err := run(t, cfg, "", "--date", "2026-13-01", "show")
	require.ErrorIs(t, err, day.ErrInvalidKey)
}

func TestFindByPrefix(t *testing.T) {
	rec := day.NewRecord("2026-10-17")
	rec.Todos = []day.Todo{
		{ID: "abc123", Text: "one"},
		{ID: "abd456", Text: "two"},
		{ID: "ab", Text: "exact"},
	}

	got, err := findByPrefix(rec, "abc")
	require.NoError(t, err)
	require.Equal(t, "one", got.Text)

	got, err = findByPrefix(rec, "ab")
	require.NoError(t, err)
	require.Equal(t, "exact", got.Text, "an exact id wins over prefixes")

	_, err = findByPrefix(rec, "a")
	require.ErrorIs(t, err, errAmbiguousID)
}
