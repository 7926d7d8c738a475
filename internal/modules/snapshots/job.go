package snapshots

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/tradelog/internal/domain"
	"github.com/aristath/tradelog/internal/events"
	"github.com/aristath/tradelog/internal/modules/valuation"
	"github.com/rs/zerolog"
)

// Valuer provides the derived account values
type Valuer interface {
	Valuation() valuation.Valuation
}

// Job records an account snapshot each time it runs
type Job struct {
	repo   *Repository
	valuer Valuer
	trades domain.TradeSource
	events *events.Manager
	now    func() time.Time
	log    zerolog.Logger
}

// NewJob creates a new snapshot job
func NewJob(repo *Repository, valuer Valuer, trades domain.TradeSource, eventManager *events.Manager, log zerolog.Logger) *Job {
	return &Job{
		repo:   repo,
		valuer: valuer,
		trades: trades,
		events: eventManager,
		now:    time.Now,
		log:    log.With().Str("job", "account_snapshot").Logger(),
	}
}

// Name returns the job name
func (j *Job) Name() string {
	return "account_snapshot"
}

// Run records the current account size. A fallback valuation is not recorded.
func (j *Job) Run() error {
	v := j.valuer.Valuation()
	if v.Fallback {
		return fmt.Errorf("valuation unavailable, snapshot skipped")
	}

	open := 0
	for _, t := range j.trades.List() {
		if t.Status != domain.TradeStatusClosed {
			open++
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snap, err := j.repo.Insert(ctx, AccountSnapshot{
		TakenAt:     j.now(),
		CurrentSize: v.CurrentSize,
		RealizedPnL: v.RealizedPnL,
		NetCashFlow: v.NetCashFlow(),
		OpenTrades:  open,
	})
	if err != nil {
		return err
	}

	j.log.Info().
		Float64("current_size", snap.CurrentSize).
		Int("open_trades", open).
		Msg("Account snapshot recorded")

	if j.events != nil {
		j.events.EmitTyped(events.SnapshotRecorded, "snapshots", &events.SnapshotRecordedData{
			TakenAt:     snap.TakenAt,
			CurrentSize: snap.CurrentSize,
		})
	}
	return nil
}
