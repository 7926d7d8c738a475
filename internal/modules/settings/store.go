// Package settings owns the account configuration that valuation depends on.
package settings

import (
	"fmt"
	"sync"

	"github.com/aristath/tradelog/internal/domain"
	"github.com/aristath/tradelog/internal/events"
	"github.com/rs/zerolog"
)

// Compile-time check that Store can feed the valuation cache
var _ domain.SettingsSource = (*Store)(nil)

// Store holds the account settings.
// A change bumps the version, invalidates the valuation cache and emits SETTINGS_CHANGED.
type Store struct {
	mu          sync.RWMutex
	settings    domain.AccountSettings
	version     uint64
	invalidator domain.Invalidator
	events      *events.Manager
	log         zerolog.Logger
}

// NewStore creates a settings store seeded with defaults.
// The defaults must be valid; a non-positive starting size is an error.
func NewStore(defaults domain.AccountSettings, invalidator domain.Invalidator, eventManager *events.Manager, log zerolog.Logger) (*Store, error) {
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default settings: %w", err)
	}
	if invalidator == nil {
		invalidator = domain.InvalidatorFunc(func() {})
	}
	return &Store{
		settings:    defaults,
		invalidator: invalidator,
		events:      eventManager,
		log:         log.With().Str("repository", "settings").Logger(),
	}, nil
}

// SetInvalidator replaces the invalidation target
func (s *Store) SetInvalidator(invalidator domain.Invalidator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidator = invalidator
}

// Get returns the current settings
func (s *Store) Get() domain.AccountSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Version returns a counter that increases on every change
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// SetStartingAccountSize changes the starting balance
func (s *Store) SetStartingAccountSize(size float64) error {
	next := domain.AccountSettings{StartingAccountSize: size}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("failed to set starting account size: %w", err)
	}

	s.mu.Lock()
	previous := s.settings.StartingAccountSize
	s.settings = next
	s.version++
	invalidator := s.invalidator
	s.mu.Unlock()

	s.log.Info().
		Float64("previous", previous).
		Float64("starting_account_size", size).
		Msg("Starting account size changed")

	invalidator.Invalidate()
	if s.events != nil {
		s.events.EmitTyped(events.SettingsChanged, "settings", &events.SettingsChangedData{
			Key:   "starting_account_size",
			Value: size,
		})
	}
	return nil
}

// Restore replaces the settings with persisted values without emitting events
func (s *Store) Restore(settings domain.AccountSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("failed to restore settings: %w", err)
	}

	s.mu.Lock()
	s.settings = settings
	s.version++
	invalidator := s.invalidator
	s.mu.Unlock()

	invalidator.Invalidate()
	return nil
}
