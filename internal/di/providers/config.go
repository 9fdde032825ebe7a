// Package providers contains dependency injection providers for the spelldeck tools.
package providers

import (
	"io"

	"github.com/samber/do/v2"

	"github.com/spellcardmanager/spellcards/internal/config"
	"github.com/spellcardmanager/spellcards/internal/fileservice"
	"github.com/spellcardmanager/spellcards/internal/logger"
	"github.com/spellcardmanager/spellcards/internal/session"
)

// Invocation carries what one run of a command brings to the container:
// parsed global flags, the log destination and the stand-ins for dialogs.
type Invocation struct {
	Flags *config.Flags
	// Stderr receives log output. Nil means os.Stderr.
	Stderr io.Writer
	// Chooser answers the open and save-as dialogs. Nil cancels them.
	Chooser fileservice.PathChooser
	// Prompter answers unsaved-changes questions. Nil skips them.
	Prompter session.Prompter
}

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	inv := do.MustInvoke[*Invocation](i)
	return config.Load(inv.Flags)
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	inv := do.MustInvoke[*Invocation](i)

	log := logger.New(logger.Config{
		Writer:      inv.Stderr,
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
		NoColor:     cfg.Logger.NoColor,
	})

	log.Debug("Starting spelldeck",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Data.Path,
		"deck_format", cfg.Deck.Format,
	)

	return log, nil
}
