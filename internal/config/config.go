// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/spellcardmanager/spellcards/internal/errors"
	"github.com/spellcardmanager/spellcards/internal/logger"
)

// Deck formats accepted by DECK_FORMAT.
const (
	FormatJSON       = "json"
	FormatCompressed = "scdeck"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Data    DataConfig
	Deck    DeckConfig
	View    ViewConfig
	Watch   WatchConfig
	History HistoryConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level   string
	NoColor bool
}

// DataConfig holds the location of local application state.
type DataConfig struct {
	// Path is the root data directory (default: ~/.spellcards).
	Path string
}

// StatePath is the badger directory for recent decks and snapshots.
func (d DataConfig) StatePath() string {
	return filepath.Join(d.Path, "state")
}

// DeckConfig holds defaults for writing deck files.
type DeckConfig struct {
	// Format is used when a target path has no recognised extension.
	Format string
	// Pretty indents uncompressed JSON output.
	Pretty bool
}

// ViewConfig holds card list projection settings.
type ViewConfig struct {
	SearchDebounce time.Duration // quiesce window before refiltering (default: 200ms)
}

// WatchConfig holds deck file watcher settings.
type WatchConfig struct {
	Settle time.Duration // wait after the last write event (default: 100ms)
}

// HistoryConfig holds recent-deck settings.
type HistoryConfig struct {
	RecentLimit int
}

// Flags holds the raw values of the global command-line flags.
// Empty strings mean "not set on the command line".
type Flags struct {
	Env            string
	LogLevel       string
	DataPath       string
	DeckFormat     string
	Pretty         string
	SearchDebounce string
	WatchSettle    string
	RecentLimit    string
	NoColor        bool
	EnvFile        string
}

// RegisterFlags defines the global flags on fs.
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Env, "env", "", "Environment (development, staging, production)")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.DataPath, "data-path", "", "Directory for local state (default: ~/.spellcards)")
	fs.StringVar(&f.DeckFormat, "format", "", "Deck format for paths without a known extension (json, scdeck)")
	fs.StringVar(&f.Pretty, "pretty", "", "Indent uncompressed JSON output (true, false)")
	fs.StringVar(&f.SearchDebounce, "search-debounce", "", "Quiet period before refiltering (default: 200ms)")
	fs.StringVar(&f.WatchSettle, "watch-settle", "", "Settle delay for file change events (default: 100ms)")
	fs.StringVar(&f.RecentLimit, "recent-limit", "", "Number of recent decks to keep (default: 10)")
	fs.BoolVar(&f.NoColor, "no-color", false, "Disable coloured output")
	fs.StringVar(&f.EnvFile, "env-file", ".env", "Path to .env file")
	return f
}

// Load builds configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
//
// A nil f behaves like an empty flag set.
func Load(f *Flags) (*Config, error) {
	if f == nil {
		f = &Flags{EnvFile: ".env"}
	}

	// Missing .env files are fine; malformed ones are not.
	if err := loadEnvFile(f.EnvFile); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, errors.CodeValidation, "load %s", f.EnvFile)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(f.Env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:   getConfigValue(f.LogLevel, "LOG_LEVEL", "info"),
			NoColor: f.NoColor || os.Getenv("NO_COLOR") != "",
		},
		Data: DataConfig{
			Path: getConfigValue(f.DataPath, "DATA_PATH", ""),
		},
		Deck: DeckConfig{
			Format: strings.ToLower(getConfigValue(f.DeckFormat, "DECK_FORMAT", FormatJSON)),
			Pretty: getBoolConfigValue(f.Pretty, "DECK_PRETTY", false),
		},
	}

	var err error
	if cfg.View.SearchDebounce, err = getDurationConfigValue(f.SearchDebounce, "SEARCH_DEBOUNCE", 200*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.Watch.Settle, err = getDurationConfigValue(f.WatchSettle, "WATCH_SETTLE", 100*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.History.RecentLimit, err = getIntConfigValue(f.RecentLimit, "RECENT_LIMIT", 10); err != nil {
		return nil, err
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidation, "invalid data path")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case "development", "staging", "production":
	default:
		return errors.Validationf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	if !logger.ValidLevel(c.Logger.Level) {
		return errors.Validationf("invalid log level: %q (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.Path == "" {
		return errors.Validation("data path cannot be empty after expansion")
	}

	if c.Deck.Format != FormatJSON && c.Deck.Format != FormatCompressed {
		return errors.Validationf("invalid deck format: %q (must be %s or %s)", c.Deck.Format, FormatJSON, FormatCompressed)
	}

	if c.View.SearchDebounce < 0 {
		return errors.Validation("search debounce cannot be negative")
	}
	if c.Watch.Settle < 0 {
		return errors.Validation("watch settle delay cannot be negative")
	}
	if c.History.RecentLimit < 1 {
		return errors.Validationf("recent limit must be at least 1, got %d", c.History.RecentLimit)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandDataPath() error {
	defaultPath := ""
	if c.Data.Path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		defaultPath = filepath.Join(homeDir, ".spellcards")
	}

	expanded, err := expandPath(c.Data.Path, defaultPath)
	if err != nil {
		return err
	}
	c.Data.Path = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) (int, error) {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strValue)
	if err != nil {
		return 0, errors.Validationf("invalid %s %q: not an integer", envKey, strValue)
	}
	return n, nil
}

// getDurationConfigValue returns a duration from flag, env var, or default.
func getDurationConfigValue(flagValue, envKey string, defaultValue time.Duration) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, errors.Validationf("invalid %s %q: %v", envKey, strValue, err)
	}
	return d, nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment variables win over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
