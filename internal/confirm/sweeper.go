package confirm

import (
	"context"
	"time"
)

// RunSweeper expires overdue tokens on a fixed interval until ctx is done.
// Expiry is also checked lazily at confirm time; the sweeper's real job is
// eviction, deleting resolved tokens once their retention window passes.
func (g *Gate) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			g.Sweep(now)
		}
	}
}
