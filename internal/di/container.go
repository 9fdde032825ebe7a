// Package di provides dependency injection configuration for the spelldeck tools.
package di

import (
	"github.com/samber/do/v2"

	"github.com/spellcardmanager/spellcards/internal/config"
	"github.com/spellcardmanager/spellcards/internal/di/providers"
	"github.com/spellcardmanager/spellcards/internal/logger"
)

// NewContainer creates and configures the DI container with all providers.
// Services are built lazily, so a command only opens what it invokes.
func NewContainer(inv providers.Invocation) *do.RootScope {
	injector := do.New()

	// Per-run inputs
	do.ProvideValue(injector, &inv)

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Local state
	do.Provide(injector, providers.ProvideStore)

	// Document layer
	do.Provide(injector, providers.ProvideFileService)
	do.Provide(injector, providers.ProvideRenderer)
	do.Provide(injector, providers.ProvideFileWatcher)
	do.Provide(injector, providers.ProvideSession)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)

	return injector
}

// Bootstrap initializes the configuration and logger so that bad flags or
// environment values fail before any command runs.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return err
	}
	return nil
}
