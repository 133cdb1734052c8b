package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/cipherbet/engine/api"
	"github.com/cipherbet/engine/coordinator"
	"github.com/cipherbet/engine/storage"
)

// APIService owns the HTTP API server plus the storage handle every other
// service reads through.
type APIService struct {
	storage     *storage.Storage
	coordinator *coordinator.Coordinator
	api         *api.API
	mu          sync.Mutex
	cancel      context.CancelFunc
	host        string
	port        int
}

// NewAPI prepares an API service bound to the given storage and
// coordinator; nothing listens until Start.
func NewAPI(stg *storage.Storage, coord *coordinator.Coordinator, host string, port int) *APIService {
	return &APIService{
		storage:     stg,
		coordinator: coord,
		host:        host,
		port:        port,
	}
}

// Start brings up the HTTP server. Calling Start on a running service is
// an error.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		return fmt.Errorf("service already running")
	}

	_, as.cancel = context.WithCancel(ctx)

	var err error
	as.api, err = api.New(&api.APIConfig{
		Host:        as.host,
		Port:        as.port,
		Storage:     as.storage,
		Coordinator: as.coordinator,
	})
	if err != nil {
		as.cancel = nil
		return fmt.Errorf("failed to start API server: %w", err)
	}

	return nil
}

// Stop halts the API server and closes the storage. It must be the last
// service stopped, everything else still reads through the same storage.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		as.cancel()
		as.cancel = nil
	}
	as.storage.Close()
}

// HostPort returns the host and port of the API server.
func (as *APIService) HostPort() (string, int) {
	return as.host, as.port
}
