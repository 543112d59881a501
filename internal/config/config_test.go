package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daybook", "config.toml")

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, filepath.Join(dir, "daybook", DefaultDBName), cfg.DBPath)
	require.Equal(t, filepath.Join(dir, "daybook", DefaultLogName), cfg.Log.File)
	require.Equal(t, "09:00", cfg.ReminderDefault)
	require.True(t, cfg.NotificationsEnabled())
	require.Equal(t, time.Sunday, cfg.FirstWeekday())

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(written), "key_prefix", "the storage key prefix is fixed, not a setting")

	again, err := LoadOrCreate(path)
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}

func TestLoadOrCreateReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
db_path = "/var/lib/daybook/days.db"
notify = "off"
reminder_default = "07:30"
week_start = "monday"

[keys]
quit = "x"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/daybook/days.db", cfg.DBPath)
	require.False(t, cfg.NotificationsEnabled())
	require.Equal(t, "07:30", cfg.ReminderDefault)
	require.Equal(t, time.Monday, cfg.FirstWeekday())
	require.Equal(t, "x", cfg.Keys.Quit)
	require.Equal(t, "a", cfg.Keys.Add, "unset keys keep their defaults")
}

func TestLoadOrCreateRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"notify":   `notify = "sometimes"`,
		"reminder": `reminder_default = "9am"`,
		"week":     `week_start = "friday"`,
		"level":    "[log]\nlevel = \"loud\"",
		"syntax":   `db_path = `,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := LoadOrCreate(path)
			require.Error(t, err)
		})
	}
}

func TestResolveConfigPathEnv(t *testing.T) {
	t.Setenv(EnvConfigPath, "/tmp/custom.toml")
	require.Equal(t, "/tmp/custom.toml", ResolveConfigPath())
}
