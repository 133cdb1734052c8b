package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cipherbet/engine/coordinator"
	"github.com/cipherbet/engine/log"
	"github.com/cipherbet/engine/storage"
	"github.com/cipherbet/engine/types"
)

// DeadlineMonitor represents a service that watches market voting
// deadlines and locks every active market whose window has closed, so the
// closing sweep and the final odds snapshot do not depend on the authority
// being awake.
type DeadlineMonitor struct {
	coordinator *coordinator.Coordinator
	storage     *storage.Storage
	interval    time.Duration
	mu          sync.Mutex
	cancel      context.CancelFunc
}

// NewDeadlineMonitor creates a new DeadlineMonitor service.
func NewDeadlineMonitor(coord *coordinator.Coordinator, stg *storage.Storage, interval time.Duration) *DeadlineMonitor {
	return &DeadlineMonitor{
		coordinator: coord,
		storage:     stg,
		interval:    interval,
	}
}

// Start begins watching the deadlines. It returns an error if the service
// is already running.
func (dm *DeadlineMonitor) Start(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.cancel != nil {
		return fmt.Errorf("service already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	dm.cancel = cancel

	go dm.monitorDeadlines(ctx)
	return nil
}

// Stop halts the monitoring service.
func (dm *DeadlineMonitor) Stop() {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.cancel != nil {
		dm.cancel()
		dm.cancel = nil
	}
}

func (dm *DeadlineMonitor) monitorDeadlines(ctx context.Context) {
	ticker := time.NewTicker(dm.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dm.lockExpired(time.Now())
		}
	}
}

// lockExpired locks every active market whose voting deadline has passed.
func (dm *DeadlineMonitor) lockExpired(now time.Time) {
	ids, err := dm.storage.ListMarkets()
	if err != nil {
		log.Warnw("failed to list markets", "error", err.Error())
		return
	}
	for _, id := range ids {
		market, err := dm.storage.Market(id)
		if err != nil {
			log.Warnw("failed to load market", "market", id, "error", err.Error())
			continue
		}
		if market.Status != types.MarketActive || market.Rules == nil {
			continue
		}
		if now.Before(market.Rules.VotingEndsAt) {
			continue
		}
		log.Infow("voting deadline reached, locking market",
			"market", id,
			"votingEndsAt", market.Rules.VotingEndsAt.String(),
		)
		if err := dm.coordinator.LockMarket(id); err != nil {
			log.Warnw("failed to lock expired market", "market", id, "error", err.Error())
		}
	}
}
