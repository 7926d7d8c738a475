package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/tradelog/internal/config"
	"github.com/aristath/tradelog/internal/modules/trading"
	"github.com/aristath/tradelog/internal/modules/trimming"
	"github.com/aristath/tradelog/internal/modules/valuation"
	"github.com/aristath/tradelog/internal/persistence"
	"github.com/rs/zerolog"
)

// InitializeServices builds the services, restores persisted state and registers listeners.
// State is restored before any listener exists so restoring never schedules a write.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.TrimEngine = trimming.NewEngine()
	container.TradeService = trading.NewTradeService(container.TradeLedger, container.TrimEngine, log)

	codec, err := persistence.NewCodec(cfg.StoreCodec)
	if err != nil {
		return err
	}
	container.Store = persistence.NewSQLiteStore(container.DB, codec.Name(), log)
	container.Snapshotter = persistence.NewSnapshotter(
		container.Store,
		codec,
		container.TradeLedger,
		container.CashFlowLedger,
		container.Settings,
		container.EventManager,
		log,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := container.Snapshotter.LoadAll(ctx); err != nil {
		return fmt.Errorf("failed to restore persisted state: %w", err)
	}

	container.WriteBack = persistence.NewWriteBack(container.Snapshotter, cfg.PersistDebounce, container.EventManager, log)

	valuation.RegisterListeners(container.EventBus, container.EventManager, container.Valuation)
	persistence.RegisterListeners(container.EventBus, container.WriteBack)

	return nil
}
