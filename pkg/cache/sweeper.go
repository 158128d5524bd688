package cache

import (
	"context"
	"time"

	"github.com/ashpect/tiercache/pkg/utils"
)

// StartCleanupDaemon starts a background goroutine that waits for the sweep
// delay and then calls Sweep every sweep interval. Calling it while the daemon
// is already running does nothing.
func (c *Tiered[K, V]) StartCleanupDaemon() {
	c.daemonMu.Lock()
	defer c.daemonMu.Unlock()

	if c.daemonCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.daemonCancel = cancel

	c.daemonWG.Add(1)
	go c.sweepLoop(ctx)
}

// StopCleanupDaemon stops the daemon if running and waits for it to exit.
func (c *Tiered[K, V]) StopCleanupDaemon() {
	c.daemonMu.Lock()
	defer c.daemonMu.Unlock()

	if c.daemonCancel == nil {
		return
	}
	c.daemonCancel()
	c.daemonCancel = nil
	c.daemonWG.Wait()
}

func (c *Tiered[K, V]) sweepLoop(ctx context.Context) {
	defer c.daemonWG.Done()

	delay := time.NewTimer(c.sweepDelay)
	defer delay.Stop()
	select {
	case <-ctx.Done():
		return
	case <-delay.C:
	}

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		if n := c.Sweep(); n > 0 {
			utils.Debug("sweep removed %d expired entries", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
