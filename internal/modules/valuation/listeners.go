package valuation

import (
	"github.com/aristath/tradelog/internal/events"
)

// RegisterListeners re-reads the account size after every committed mutation
// and announces it with ACCOUNT_SIZE_CHANGED.
// The ledgers have already invalidated the cache by the time these run.
func RegisterListeners(bus *events.Bus, manager *events.Manager, cache *Cache) {
	bus.SubscribeAll(events.CommitEvents, func(event *events.Event) {
		v := cache.Valuation()
		manager.EmitTyped(events.AccountSizeChanged, "valuation", &events.AccountSizeChangedData{
			NewSize:     v.CurrentSize,
			RealizedPnL: v.RealizedPnL,
			Fallback:    v.Fallback,
		})
	})
}
