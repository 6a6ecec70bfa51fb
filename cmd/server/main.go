package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/xtrntr/kaspay/internal/api"
	"github.com/xtrntr/kaspay/internal/auth"
	"github.com/xtrntr/kaspay/internal/chain"
	"github.com/xtrntr/kaspay/internal/config"
	"github.com/xtrntr/kaspay/internal/ledger"
	"github.com/xtrntr/kaspay/internal/quote"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

type WSClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

var (
	clients   = make(map[*WSClient]bool)
	clientsMu sync.RWMutex
)

// broadcastLedger pushes the current order list to every connected
// websocket client, so a dashboard can refresh without polling
func broadcastLedger(l *ledger.Ledger, logger *zap.Logger) {
	snapshot := struct {
		Orders interface{} `json:"orders"`
	}{
		Orders: l.List(""),
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		logger.Error("failed to marshal ledger snapshot", zap.Error(err))
		return
	}

	clientsMu.RLock()
	stale := make([]*WSClient, 0)
	for client := range clients {
		client.mu.Lock()
		err := client.conn.WriteMessage(websocket.TextMessage, data)
		client.mu.Unlock()
		if err != nil {
			stale = append(stale, client)
		}
	}
	clientsMu.RUnlock()

	if len(stale) > 0 {
		clientsMu.Lock()
		for _, client := range stale {
			delete(clients, client)
		}
		clientsMu.Unlock()
	}
}

func handleWebSocket(l *ledger.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("failed to upgrade connection", zap.Error(err))
			return
		}

		client := &WSClient{conn: conn}
		clientsMu.Lock()
		clients[client] = true
		clientsMu.Unlock()

		// Send initial snapshot
		broadcastLedger(l, logger)

		// Keep connection alive and handle disconnection
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				clientsMu.Lock()
				delete(clients, client)
				clientsMu.Unlock()
				break
			}
		}
	}
}

// Main entry point: loads config, builds the ledger, quote source and
// HTTP server, and runs the expiry sweeper until shutdown
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	var logger *zap.Logger
	if cfg.Server.Mode == "release" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	assets := cfg.AssetTable()

	// Seed the price cache so order creation works even if the quote
	// source is down from the very first request
	fallbacks := make(map[string]float64, len(assets))
	for _, a := range assets {
		fallbacks[a.QuoteID] = a.FallbackPrice
	}
	quotes := quote.NewSource(cfg.Quote.BaseURL, cfg.QuoteTimeout(), fallbacks, logger)

	led := ledger.NewLedger(cfg.OrderTTL())

	authService, err := auth.NewAuthService(cfg.Merchant.Username, cfg.Merchant.Password, cfg.JWT.Secret, cfg.TokenExpiry())
	if err != nil {
		logger.Fatal("failed to initialize auth service", zap.Error(err))
	}

	handler := api.NewHandler(led, quotes, authService, chain.StubChecker{}, assets, logger)

	// Set up HTTP router
	r := chi.NewRouter()

	// Enable CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ws", handleWebSocket(led, logger))
	r.Mount("/", handler.Routes())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Sweep expired orders and broadcast the ledger on a cancellable
	// schedule; there is no blocking sleep anywhere in the request path
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if swept := led.SweepExpired(); swept > 0 {
					logger.Info("swept expired orders", zap.Int("count", swept))
				}
				broadcastLedger(led, logger)
			}
		}
	}()

	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: r}

	// Closed once Shutdown has finished draining in-flight requests, so
	// main does not exit the moment ListenAndServe unblocks
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server failed", zap.Error(err))
	}
	<-done
	logger.Info("server stopped")
}
