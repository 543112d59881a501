package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "daybook.db"
	DefaultLogName        = "daybook.log"

	// EnvConfigPath overrides where the config file is looked up.
	EnvConfigPath = "DAYBOOK_CONFIG"
)

type Keymap struct {
	Quit      string `toml:"quit" validate:"required"`
	Left      string `toml:"left" validate:"required"`
	Right     string `toml:"right" validate:"required"`
	Up        string `toml:"up" validate:"required"`
	Down      string `toml:"down" validate:"required"`
	PrevMonth string `toml:"prev_month" validate:"required"`
	NextMonth string `toml:"next_month" validate:"required"`
	Today     string `toml:"today" validate:"required"`
	Focus     string `toml:"focus" validate:"required"`
	Add       string `toml:"add" validate:"required"`
	Toggle    string `toml:"toggle" validate:"required"`
	Delete    string `toml:"delete" validate:"required"`
	Note      string `toml:"note" validate:"required"`
	Remind    string `toml:"remind" validate:"required"`
	Search    string `toml:"search" validate:"required"`
	Confirm   string `toml:"confirm" validate:"required"`
	Cancel    string `toml:"cancel" validate:"required"`
}

type LogConfig struct {
	Level string `toml:"level" validate:"omitempty,oneof=debug info warn error"`
	File  string `toml:"file"`
}

type Config struct {
	DBPath          string    `toml:"db_path" validate:"required"`
	Notify          string    `toml:"notify" validate:"oneof=auto off"`
	ReminderDefault string    `toml:"reminder_default" validate:"datetime=15:04"`
	WeekStart       string    `toml:"week_start" validate:"oneof=sunday monday"`
	Log             LogConfig `toml:"log"`
	Keys            Keymap    `toml:"keys"`
}

// ResolveConfigPath returns $DAYBOOK_CONFIG, or config.toml under the user
// config directory.
func ResolveConfigPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(dir, "daybook", DefaultConfigFileName)
}

// LoadOrCreate reads the config at path, writing the defaults there first if
// the file does not exist. Relative paths inside the file are resolved
// against the file's directory.
func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg.resolve(filepath.Dir(path)), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBName
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg.resolve(filepath.Dir(path)), nil
}

var validate = validator.New()

func (c Config) Validate() error {
	return validate.Struct(c)
}

// NotificationsEnabled reports whether desktop notifications may be tried.
func (c Config) NotificationsEnabled() bool {
	return c.Notify != "off"
}

// FirstWeekday is the first column of the month grid.
func (c Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

func (c Config) resolve(dir string) Config {
	if c.DBPath != "" && !filepath.IsAbs(c.DBPath) {
		c.DBPath = filepath.Join(dir, c.DBPath)
	}
	if c.Log.File != "" && !filepath.IsAbs(c.Log.File) {
		c.Log.File = filepath.Join(dir, c.Log.File)
	}
	return c
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() Config {
	return Config{
		DBPath:          DefaultDBName,
		Notify:          "auto",
		ReminderDefault: "09:00",
		WeekStart:       "sunday",
		Log: LogConfig{
			Level: "info",
			File:  DefaultLogName,
		},
		Keys: Keymap{
			Quit:      "q",
			Left:      "h",
			Right:     "l",
			Up:        "k",
			Down:      "j",
			PrevMonth: "[",
			NextMonth: "]",
			Today:     "t",
			Focus:     "tab",
			Add:       "a",
			Toggle:    " ",
			Delete:    "d",
			Note:      "n",
			Remind:    "r",
			Search:    "/",
			Confirm:   "enter",
			Cancel:    "esc",
		},
	}
}
