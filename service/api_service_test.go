package service

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/arbo/memdb"

	"github.com/cipherbet/engine/storage"
)

func TestAPIService(t *testing.T) {
	c := qt.New(t)

	kv := memdb.New()
	store := storage.New(kv)
	engineService := NewEngine(store, kv)

	// port 0 lets the OS choose a free port
	apiService := NewAPI(store, engineService.Coordinator(), "127.0.0.1", 0)
	host, port := apiService.HostPort()
	c.Assert(host, qt.Equals, "127.0.0.1")
	c.Assert(port, qt.Equals, 0)

	c.Assert(apiService.Start(context.Background()), qt.IsNil)

	// a second Start on a running service must refuse
	c.Assert(apiService.Start(context.Background()), qt.ErrorMatches, "service already running")

	// Stop owns the storage close, so no separate store.Close here
	apiService.Stop()
}
