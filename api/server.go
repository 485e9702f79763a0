package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/openalpha/clearing-core/api/handlers"
	"github.com/openalpha/clearing-core/api/middleware"
	"github.com/openalpha/clearing-core/api/types"
	"github.com/openalpha/clearing-core/api/websocket"
	"github.com/openalpha/clearing-core/metrics"
)

// Server represents the API server
type Server struct {
	httpServer *http.Server
	wsServer   *websocket.Server
	config     *Config

	// Services
	accountService     types.AccountService
	marginService      types.MarginService
	liquidationService types.LiquidationService
	backstopService    types.BackstopService

	// Handlers
	accountHandler     *handlers.AccountHandler
	marginHandler      *handlers.MarginHandler
	liquidationHandler *handlers.LiquidationHandler
	backstopHandler    *handlers.BackstopHandler

	// Rate limiter
	rateLimiter *middleware.RateLimiter
}

// Config contains server configuration
type Config struct {
	Host             string
	Port             int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	DisableRateLimit bool // For testing purposes
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// NewServer creates a new API server backed by an empty state service
func NewServer(config *Config) *Server {
	state := NewStateService()
	return NewServerWithServices(config, state, state, state, state)
}

// NewServerWithServices creates a new API server with custom services
func NewServerWithServices(
	config *Config,
	accountSvc types.AccountService,
	marginSvc types.MarginService,
	liquidationSvc types.LiquidationService,
	backstopSvc types.BackstopService,
) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	wsConfig := websocket.DefaultServerConfig()
	wsConfig.Port = config.Port

	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())

	s := &Server{
		config:             config,
		wsServer:           websocket.NewServer(wsConfig),
		accountService:     accountSvc,
		marginService:      marginSvc,
		liquidationService: liquidationSvc,
		backstopService:    backstopSvc,
		rateLimiter:        rateLimiter,
	}

	s.accountHandler = handlers.NewAccountHandler(s.accountService)
	s.marginHandler = handlers.NewMarginHandler(s.marginService)
	s.liquidationHandler = handlers.NewLiquidationHandler(s.liquidationService)
	s.backstopHandler = handlers.NewBackstopHandler(s.backstopService)

	return s
}

// Start starts the API server
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/health", s.handleHealth)

	// Prometheus metrics
	mux.Handle("/metrics", metrics.Handler())

	// Account endpoints
	mux.HandleFunc("/v1/account", s.accountHandler.HandleAccount)
	mux.HandleFunc("/v1/accounts", s.accountHandler.HandleOwnerAccounts)

	// Margin endpoints
	mux.HandleFunc("/v1/margin", s.marginHandler.HandleMarginInfo)
	mux.HandleFunc("/v1/margin/deltas", s.marginHandler.HandleDeltas)

	// Liquidation endpoints
	mux.HandleFunc("/v1/liquidations", s.liquidationHandler.HandleHistory)
	mux.HandleFunc("/v1/liquidations/queue", s.liquidationHandler.HandleQueue)
	mux.HandleFunc("/v1/liquidations/insurance", s.liquidationHandler.HandleInsuranceFund)

	// Backstop endpoints
	mux.HandleFunc("/v1/backstop/pools", s.backstopHandler.HandlePools)
	mux.HandleFunc("/v1/backstop/pools/", s.backstopHandler.HandlePool)
	mux.HandleFunc("/v1/backstop/withdrawals/", s.backstopHandler.HandleWithdrawal)

	// WebSocket
	mux.HandleFunc("/ws", s.wsServer.GetHub().ServeWS)

	// Apply middleware chain: CORS -> RateLimit -> Handler
	var handler http.Handler
	if s.config.DisableRateLimit {
		handler = corsMiddleware(mux)
	} else {
		handler = corsMiddleware(
			middleware.RateLimitMiddleware(s.rateLimiter)(mux),
		)
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	// Start WebSocket hub
	go s.wsServer.GetHub().Run()

	log.Printf("API server starting on %s", addr)
	if s.config.DisableRateLimit {
		log.Printf("Rate limiting DISABLED (for testing)")
	}
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Hub returns the WebSocket hub for event broadcasting
func (s *Server) Hub() *websocket.Hub {
	return s.wsServer.GetHub()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Owner-Address")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
