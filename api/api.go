package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cipherbet/engine/coordinator"
	"github.com/cipherbet/engine/log"
	stg "github.com/cipherbet/engine/storage"
)

// APIConfig type represents the configuration for the API HTTP server.
// It includes the host, port and the storage and coordinator instances.
type APIConfig struct {
	Host        string
	Port        int
	Storage     *stg.Storage
	Coordinator *coordinator.Coordinator
}

// API type represents the API HTTP server. Write paths go through the
// coordinator; read paths go straight to storage.
type API struct {
	router      *chi.Mux
	storage     *stg.Storage
	coordinator *coordinator.Coordinator
}

// New creates a new API instance with the given configuration and starts
// the HTTP server.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Storage == nil {
		return nil, fmt.Errorf("missing storage instance")
	}
	if conf.Coordinator == nil {
		return nil, fmt.Errorf("missing coordinator instance")
	}
	a := &API{
		storage:     conf.Storage,
		coordinator: conf.Coordinator,
	}

	// Initialize router
	a.initRouter()
	go func() {
		log.Infow("Starting API server", "host", conf.Host, "port", conf.Port)
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.Host, conf.Port), a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", InfoEndpoint, "method", "GET")
	a.router.Get(InfoEndpoint, a.info)
	log.Infow("register handler", "endpoint", MarketsEndpoint, "method", "POST")
	a.router.Post(MarketsEndpoint, a.newMarket)
	log.Infow("register handler", "endpoint", MarketEndpoint, "method", "GET")
	a.router.Get(MarketEndpoint, a.market)
	log.Infow("register handler", "endpoint", MarketVotesEndpoint, "method", "POST")
	a.router.Post(MarketVotesEndpoint, a.submitVote)
	log.Infow("register handler", "endpoint", VoteEndpoint, "method", "GET")
	a.router.Get(VoteEndpoint, a.vote)
	log.Infow("register handler", "endpoint", MarketOddsEndpoint, "method", "GET")
	a.router.Get(MarketOddsEndpoint, a.marketOdds)
	log.Infow("register handler", "endpoint", MarketLockEndpoint, "method", "POST")
	a.router.Post(MarketLockEndpoint, a.authorityHandler(coordinator.OpLock))
	log.Infow("register handler", "endpoint", MarketResolveEndpoint, "method", "POST")
	a.router.Post(MarketResolveEndpoint, a.authorityHandler(coordinator.OpResolve))
	log.Infow("register handler", "endpoint", MarketCancelEndpoint, "method", "POST")
	a.router.Post(MarketCancelEndpoint, a.authorityHandler(coordinator.OpCancel))
	log.Infow("register handler", "endpoint", MarketFinalizeEndpoint, "method", "POST")
	a.router.Post(MarketFinalizeEndpoint, a.authorityHandler(coordinator.OpFinalize))
	log.Infow("register handler", "endpoint", MarketClearReviewEndpoint, "method", "POST")
	a.router.Post(MarketClearReviewEndpoint, a.authorityHandler(coordinator.OpClearReview))
	log.Infow("register handler", "endpoint", MarketClaimsEndpoint, "method", "POST")
	a.router.Post(MarketClaimsEndpoint, a.newClaim)
	log.Infow("register handler", "endpoint", ClaimEndpoint, "method", "GET")
	a.router.Get(ClaimEndpoint, a.claim)
	log.Infow("register handler", "endpoint", RiskEndpoint, "method", "POST")
	a.router.Post(RiskEndpoint, a.newRisk)
	log.Infow("register handler", "endpoint", RiskJobEndpoint, "method", "GET")
	a.router.Get(RiskJobEndpoint, a.riskReport)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	// Register the API handlers
	a.registerHandlers()
}

// info returns the engine cluster sealing key.
// GET /info
func (a *API) info(w http.ResponseWriter, _ *http.Request) {
	httpWriteJSON(w, &Info{SealingKey: a.coordinator.EnginePublicKey()})
}
