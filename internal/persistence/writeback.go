package persistence

import (
	"context"
	"time"

	"github.com/aristath/tradelog/internal/events"
	"github.com/rs/zerolog"
)

// WriteBack batches persistence behind a trailing debounce.
// In-memory state is always current; only the final state after a burst of commits is written.
type WriteBack struct {
	snapshotter *Snapshotter
	debouncer   *Debouncer
	timeout     time.Duration
	events      *events.Manager
	log         zerolog.Logger
}

// NewWriteBack creates a debounced write-back over the snapshotter
func NewWriteBack(snapshotter *Snapshotter, delay time.Duration, eventManager *events.Manager, log zerolog.Logger) *WriteBack {
	w := &WriteBack{
		snapshotter: snapshotter,
		timeout:     10 * time.Second,
		events:      eventManager,
		log:         log.With().Str("component", "write_back").Logger(),
	}
	w.debouncer = NewDebouncer(delay, w.save)
	return w
}

// Trigger schedules a write after the quiet period
func (w *WriteBack) Trigger() {
	w.debouncer.Trigger()
}

// Pending reports whether a write is scheduled
func (w *WriteBack) Pending() bool {
	return w.debouncer.Pending()
}

// Flush writes a scheduled write immediately; used on shutdown
func (w *WriteBack) Flush() {
	w.debouncer.Flush()
}

// Stop cancels any scheduled write
func (w *WriteBack) Stop() {
	w.debouncer.Stop()
}

func (w *WriteBack) save() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.snapshotter.SaveAll(ctx); err != nil {
		w.log.Error().Err(err).Msg("Failed to persist state")
		if w.events != nil {
			w.events.EmitError("persistence", err, map[string]interface{}{"operation": "save_all"})
		}
	}
}

// RegisterListeners schedules a write after every committed mutation
func RegisterListeners(bus *events.Bus, writeBack *WriteBack) {
	bus.SubscribeAll(events.CommitEvents, func(event *events.Event) {
		writeBack.Trigger()
	})
}
