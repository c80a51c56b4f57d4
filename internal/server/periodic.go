package server

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// gcLoop evicts expired seen-set entries every GCInterval.
func (n *Node) gcLoop(ctx context.Context) {
	defer n.wg.Done()

	ticker := time.NewTicker(n.cfg.GCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.collectSeen(n.now())
		}
	}
}

// collectSeen runs one GC cycle against the snapshot time now.
func (n *Node) collectSeen(now time.Time) int {
	removed := n.seen.Sweep(now, n.cfg.SeenWindow())
	n.metrics.SeenEntries.Set(float64(n.seen.Len()))
	if removed > 0 {
		n.metrics.SeenEvicted.Add(float64(removed))
		n.logger.Info("cleaned old message IDs", zap.Int("count", removed))
	}
	return removed
}

// heartbeatLoop pings all peers every HeartbeatInterval.
func (n *Node) heartbeatLoop(ctx context.Context) {
	defer n.wg.Done()

	ticker := time.NewTicker(n.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := n.PingPeers(); err != nil && ctx.Err() == nil {
				n.logger.Warn("heartbeat failed", zap.Error(err))
			}
		}
	}
}
