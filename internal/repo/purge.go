package repo

import (
	"context"
	"log/slog"
	"time"
)

// RunPurge deletes expired revocations every interval until ctx is done.
func RunPurge(ctx context.Context, r Revocations, every time.Duration, l *slog.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := r.Purge(ctx, now)
			if err != nil {
				l.Warn("revocation_purge_failed", "error", err)
				continue
			}
			if n > 0 {
				l.Info("revocation_purged", "rows", n)
			}
		}
	}
}
