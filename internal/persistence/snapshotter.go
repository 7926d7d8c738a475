package persistence

import (
	"context"
	"fmt"

	"github.com/aristath/tradelog/internal/domain"
	"github.com/aristath/tradelog/internal/events"
	"github.com/rs/zerolog"
)

// TradeState is the part of the trade ledger the snapshotter needs
type TradeState interface {
	List() []domain.Trade
	Restore(trades []domain.Trade) error
}

// CashFlowState is the part of the cash flow ledger the snapshotter needs
type CashFlowState interface {
	List() []domain.CashFlowTransaction
	Restore(flows []domain.CashFlowTransaction) error
}

// SettingsState is the part of the settings store the snapshotter needs
type SettingsState interface {
	Get() domain.AccountSettings
	Restore(settings domain.AccountSettings) error
}

// Snapshotter serializes the ledgers into a Store and restores them from it
type Snapshotter struct {
	store     Store
	codec     Codec
	trades    TradeState
	cashFlows CashFlowState
	settings  SettingsState
	events    *events.Manager
	log       zerolog.Logger
}

// NewSnapshotter creates a snapshotter
func NewSnapshotter(store Store, codec Codec, trades TradeState, cashFlows CashFlowState, settings SettingsState, eventManager *events.Manager, log zerolog.Logger) *Snapshotter {
	return &Snapshotter{
		store:     store,
		codec:     codec,
		trades:    trades,
		cashFlows: cashFlows,
		settings:  settings,
		events:    eventManager,
		log:       log.With().Str("service", "persistence").Str("codec", codec.Name()).Logger(),
	}
}

// SaveAll writes the current state of every ledger in one batch, so a
// failed save never mixes keys from different bursts
func (s *Snapshotter) SaveAll(ctx context.Context) error {
	records := []struct {
		key   string
		value interface{}
	}{
		{KeyTrades, s.trades.List()},
		{KeyCashFlows, s.cashFlows.List()},
		{KeySettings, s.settings.Get()},
	}

	total := 0
	keys := make([]string, 0, len(records))
	batch := make(map[string][]byte, len(records))
	for _, r := range records {
		data, err := s.codec.Marshal(r.value)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", r.key, err)
		}
		batch[r.key] = data
		total += len(data)
		keys = append(keys, r.key)
	}
	if err := s.store.SaveBatch(ctx, batch); err != nil {
		return err
	}

	s.log.Debug().Int("bytes", total).Msg("State persisted")
	if s.events != nil {
		s.events.EmitTyped(events.StatePersisted, "persistence", &events.StatePersistedData{Keys: keys, Bytes: total})
	}
	return nil
}

// LoadAll restores every ledger from the store. Missing keys leave that ledger as it is.
// Values written by either codec are accepted.
func (s *Snapshotter) LoadAll(ctx context.Context) error {
	var trades []domain.Trade
	found, err := s.load(ctx, KeyTrades, &trades)
	if err != nil {
		return err
	}
	if found {
		if err := s.trades.Restore(trades); err != nil {
			return err
		}
	}

	var flows []domain.CashFlowTransaction
	found, err = s.load(ctx, KeyCashFlows, &flows)
	if err != nil {
		return err
	}
	if found {
		if err := s.cashFlows.Restore(flows); err != nil {
			return err
		}
	}

	var settings domain.AccountSettings
	found, err = s.load(ctx, KeySettings, &settings)
	if err != nil {
		return err
	}
	if found {
		if err := s.settings.Restore(settings); err != nil {
			return err
		}
	}

	s.log.Info().
		Int("trades", len(trades)).
		Int("cash_flows", len(flows)).
		Msg("State restored")
	return nil
}

func (s *Snapshotter) load(ctx context.Context, key string, into interface{}) (bool, error) {
	data, found, err := s.store.Load(ctx, key)
	if err != nil || !found {
		return false, err
	}
	codec := DetectCodec(data)
	if err := codec.Unmarshal(data, into); err != nil {
		return false, fmt.Errorf("failed to decode %s as %s: %w", key, codec.Name(), err)
	}
	return true, nil
}
