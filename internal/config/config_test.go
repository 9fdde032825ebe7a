package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spellcardmanager/spellcards/internal/errors"
)

func validConfig() *Config {
	return &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Data:    DataConfig{Path: "/some/path"},
		Deck:    DeckConfig{Format: FormatJSON},
		View:    ViewConfig{SearchDebounce: 200 * time.Millisecond},
		Watch:   WatchConfig{Settle: 100 * time.Millisecond},
		History: HistoryConfig{RecentLimit: 10},
	}
}

// clearEnv blanks every key Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"ENV", "LOG_LEVEL", "DATA_PATH", "DECK_FORMAT", "DECK_PRETTY", "SEARCH_DEBOUNCE", "WATCH_SETTLE", "RECENT_LIMIT", "NO_COLOR"} {
		t.Setenv(key, "")
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown environment", func(c *Config) { c.App.Environment = "test" }},
		{"environment is case sensitive", func(c *Config) { c.App.Environment = "DEVELOPMENT" }},
		{"unknown level", func(c *Config) { c.Logger.Level = "verbose" }},
		{"empty data path", func(c *Config) { c.Data.Path = "" }},
		{"unknown format", func(c *Config) { c.Deck.Format = "yaml" }},
		{"negative debounce", func(c *Config) { c.View.SearchDebounce = -time.Second }},
		{"negative settle", func(c *Config) { c.Watch.Settle = -time.Second }},
		{"zero recent limit", func(c *Config) { c.History.RecentLimit = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrValidation))
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(&Flags{})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, filepath.Join(home, ".spellcards"), cfg.Data.Path)
	assert.Equal(t, filepath.Join(home, ".spellcards", "state"), cfg.Data.StatePath())
	assert.Equal(t, FormatJSON, cfg.Deck.Format)
	assert.False(t, cfg.Deck.Pretty)
	assert.Equal(t, 200*time.Millisecond, cfg.View.SearchDebounce)
	assert.Equal(t, 100*time.Millisecond, cfg.Watch.Settle)
	assert.Equal(t, 10, cfg.History.RecentLimit)
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LOG_LEVEL=debug\nDECK_FORMAT=scdeck\nRECENT_LIMIT=3\n"), 0o600))

	t.Setenv("DECK_FORMAT", "json")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--env-file", envFile, "--data-path", dir, "--recent-limit", "5", "--pretty", "yes"}))

	cfg, err := Load(flags)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level, ".env fills unset keys")
	assert.Equal(t, FormatJSON, cfg.Deck.Format, "environment beats .env")
	assert.Equal(t, 5, cfg.History.RecentLimit, "flag beats .env")
	assert.True(t, cfg.Deck.Pretty)
	assert.Equal(t, dir, cfg.Data.Path)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		flags Flags
	}{
		{"duration", Flags{SearchDebounce: "soon"}},
		{"settle", Flags{WatchSettle: "10"}},
		{"integer", Flags{RecentLimit: "ten"}},
		{"format", Flags{DeckFormat: "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			tt.flags.DataPath = t.TempDir()
			_, err := Load(&tt.flags)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrValidation))
		})
	}
}

func TestLoad_MalformedEnvFile(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("NOT A PAIR\n"), 0o600))

	_, err := Load(&Flags{EnvFile: envFile, DataPath: t.TempDir()})
	assert.Error(t, err)
}

func TestLoad_NoColor(t *testing.T) {
	clearEnv(t)
	t.Setenv("NO_COLOR", "1")

	cfg, err := Load(&Flags{DataPath: t.TempDir()})
	require.NoError(t, err)
	assert.True(t, cfg.Logger.NoColor)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/decks", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "decks"), got)

	got, err = expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)

	got, err = expandPath("/abs/../abs/path", "")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)

	got, err = expandPath("relative", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestGetBoolConfigValue(t *testing.T) {
	t.Setenv("TEST_BOOL", "")

	assert.True(t, getBoolConfigValue("YES", "TEST_BOOL", false))
	assert.True(t, getBoolConfigValue("1", "TEST_BOOL", false))
	assert.False(t, getBoolConfigValue("nope", "TEST_BOOL", true))
	assert.True(t, getBoolConfigValue("", "TEST_BOOL", true))
}

func TestLoadEnvFile(t *testing.T) {
	t.Setenv("SC_TEST_QUOTED", "")
	t.Setenv("SC_TEST_EXISTING", "original")

	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\n\n  SC_TEST_QUOTED = \"hello world\"  \nSC_TEST_EXISTING=replaced\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "hello world", os.Getenv("SC_TEST_QUOTED"))
	assert.Equal(t, "original", os.Getenv("SC_TEST_EXISTING"))

	assert.True(t, os.IsNotExist(loadEnvFile(filepath.Join(t.TempDir(), "missing"))))
	assert.NoError(t, loadEnvFile(""))
}
