package container

import (
	"context"
	"log/slog"
	"time"
)

const reaperInterval = 5 * time.Minute

// StartReaper runs a background goroutine that periodically removes sandbox
// containers older than maxAge. Normal runs remove their own container;
// the reaper catches leftovers from crashes and canceled cleanups.
func StartReaper(ctx context.Context, mgr Manager, maxAge time.Duration) {
	ticker := time.NewTicker(reaperInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Sandbox reaper started", "interval", reaperInterval, "max_age", maxAge)

		for {
			select {
			case <-ticker.C:
				reapSandboxes(ctx, mgr, time.Now().Add(-maxAge))
			case <-ctx.Done():
				slog.Info("Sandbox reaper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func reapSandboxes(ctx context.Context, mgr Manager, olderThan time.Time) int {
	ids, err := mgr.ListSandboxes(ctx, olderThan)
	if err != nil {
		slog.Error("Sandbox reaper failed to list containers", "error", err)
		return 0
	}
	if len(ids) == 0 {
		return 0
	}

	slog.Info("Sandbox reaper found stale containers", "count", len(ids))

	removed := 0
	for _, id := range ids {
		if err := mgr.StopContainer(ctx, id); err != nil {
			slog.Error("Sandbox reaper failed to remove container", "container_id", id, "error", err)
			continue
		}
		removed++
	}

	slog.Info("Sandbox reaper cleanup completed", "removed", removed)
	return removed
}
