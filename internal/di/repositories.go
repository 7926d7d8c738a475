package di

import (
	"fmt"

	"github.com/aristath/tradelog/internal/config"
	"github.com/aristath/tradelog/internal/domain"
	"github.com/aristath/tradelog/internal/events"
	"github.com/aristath/tradelog/internal/modules/cash_flows"
	"github.com/aristath/tradelog/internal/modules/settings"
	"github.com/aristath/tradelog/internal/modules/snapshots"
	"github.com/aristath/tradelog/internal/modules/trading"
	"github.com/aristath/tradelog/internal/modules/valuation"
	"github.com/rs/zerolog"
)

// InitializeRepositories builds the event bus, the owning stores and the valuation cache.
// The cache is created after the stores and then installed as their invalidator.
func InitializeRepositories(container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.EventBus = events.NewBus()
	container.EventManager = events.NewManager(container.EventBus, log)

	container.TradeLedger = trading.NewLedger(nil, container.EventManager, log)
	container.CashFlowLedger = cash_flows.NewLedger(nil, container.EventManager, log)

	settingsStore, err := settings.NewStore(
		domain.AccountSettings{StartingAccountSize: cfg.StartingAccountSize},
		nil,
		container.EventManager,
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to create settings store: %w", err)
	}
	container.Settings = settingsStore

	mode, err := valuation.ParseMode(cfg.CacheFingerprint)
	if err != nil {
		return err
	}
	container.Valuation = valuation.NewCache(container.TradeLedger, container.CashFlowLedger, container.Settings, mode, log)
	container.TradeLedger.SetInvalidator(container.Valuation)
	container.CashFlowLedger.SetInvalidator(container.Valuation)
	container.Settings.SetInvalidator(container.Valuation)

	container.SnapshotRepo = snapshots.NewRepository(container.DB, log)

	log.Debug().Str("fingerprint", string(mode)).Msg("Repositories initialized")
	return nil
}
