package worker

import (
	"context"
	"log/slog"
	"time"

	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// FlushWorker periodically serializes the in-memory store to its snapshot
// file. A failed flush is logged and retried on the next tick; the server
// keeps serving from memory in the meantime.
type FlushWorker struct {
	store    *storage.Store
	interval time.Duration
}

func NewFlushWorker(store *storage.Store, interval time.Duration) *FlushWorker {
	return &FlushWorker{
		store:    store,
		interval: interval,
	}
}

// Run flushes on every tick until ctx is cancelled, then performs one final
// flush so a clean shutdown never loses acknowledged writes.
func (w *FlushWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("Flush worker started",
		applog.FieldComponent, applog.ComponentFlush,
		"interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			if err := w.store.Flush(context.Background()); err != nil {
				slog.Error("Final snapshot flush failed",
					applog.FieldComponent, applog.ComponentFlush,
					applog.FieldOperation, applog.OpShutdown,
					applog.FieldError, err)
				return err
			}
			slog.Info("Final snapshot flush completed",
				applog.FieldComponent, applog.ComponentFlush,
				applog.FieldOperation, applog.OpShutdown)
			return nil
		case <-ticker.C:
			if err := w.store.Flush(ctx); err != nil {
				slog.Error("Periodic snapshot flush failed",
					applog.FieldComponent, applog.ComponentFlush,
					applog.FieldOperation, applog.OpFlush,
					applog.FieldError, err)
			}
		}
	}
}
