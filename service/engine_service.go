package service

import (
	"context"
	"fmt"
	"sync"

	"go.vocdoni.io/dvote/db"

	"github.com/cipherbet/engine/coordinator"
	"github.com/cipherbet/engine/engine"
	"github.com/cipherbet/engine/log"
	"github.com/cipherbet/engine/storage"
)

// EngineService represents a service that runs the sealed computation
// engine and the coordinator around it: the engine drains the job queue,
// the coordinator drains the result queue and applies the outcomes to the
// market ledger.
type EngineService struct {
	engine      *engine.Engine
	coordinator *coordinator.Coordinator
	mu          sync.Mutex
	cancel      context.CancelFunc
}

// NewEngine creates the engine and the coordinator over the given storage.
func NewEngine(stg *storage.Storage, database db.Database) *EngineService {
	eng, err := engine.New(stg, database)
	if err != nil {
		log.Fatalf("failed to create engine: %v", err)
	}
	coord, err := coordinator.New(stg, eng)
	if err != nil {
		log.Fatalf("failed to create coordinator: %v", err)
	}
	return &EngineService{
		engine:      eng,
		coordinator: coord,
	}
}

// Coordinator returns the coordinator, for wiring the API service and the
// deadline monitor.
func (es *EngineService) Coordinator() *coordinator.Coordinator {
	return es.coordinator
}

// Start begins the job and result processors. It returns an error if the
// service is already running.
func (es *EngineService) Start(ctx context.Context) error {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.cancel != nil {
		return fmt.Errorf("service already running")
	}

	ctx, cancel := context.WithCancel(ctx)

	if err := es.engine.Start(ctx); err != nil {
		cancel()
		return err
	}
	if err := es.coordinator.Start(ctx); err != nil {
		cancel()
		if serr := es.engine.Stop(); serr != nil {
			log.Warnw("engine stopped", "error", serr)
		}
		return err
	}
	es.cancel = cancel
	return nil
}

// Stop halts the job and result processors.
func (es *EngineService) Stop() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.cancel == nil {
		return
	}
	if err := es.coordinator.Stop(); err != nil {
		log.Warnw("coordinator stopped", "error", err)
	}
	if err := es.engine.Stop(); err != nil {
		log.Warnw("engine stopped", "error", err)
	}
	es.cancel()
	es.cancel = nil
}
