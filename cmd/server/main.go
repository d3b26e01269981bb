/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the POS customer module server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and load the config file
  2. Initialize SQLite store
  3. Wire the customer directory and loyalty engine
  4. Configure HTTP router and the expiration sweeper
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config file path (default: pos.yaml; missing file
           means defaults)
  -port    HTTP server port (overrides config)
  -db      SQLite database path (overrides config)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the expiration sweeper
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/pos.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port with a config file
  ./server -port=3000 -config=./deploy/pos.yaml

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Config file format
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kaely/pos-customer/api"
	"github.com/kaely/pos-customer/config"
	"github.com/kaely/pos-customer/customer"
	"github.com/kaely/pos-customer/event"
	"github.com/kaely/pos-customer/loyalty"
	"github.com/kaely/pos-customer/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "pos.yaml", "YAML config file path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Server.DBPath = *dbPath
	}

	// Initialize store
	store, err := sqlite.New(cfg.Server.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Wire domain services
	sink := event.LogSink{}
	engine := loyalty.NewEngine(store, cfg.Loyalty.ToLoyaltyConfig(), sink)
	directory := customer.NewService(store, cfg.Customers.ToSettings(), sink)

	// Create router
	handler := api.NewHandler(directory, engine)
	router := api.NewRouter(handler)

	// Start the expiration sweeper
	sweeper := api.NewSweeper(engine)
	if interval, err := time.ParseDuration(cfg.Server.SweepInterval); err == nil {
		sweeper.Interval = interval
	} else {
		log.Printf("Warning: invalid sweep_interval %q, using %v", cfg.Server.SweepInterval, sweeper.Interval)
	}
	sweeper.Start()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", cfg.Server.Port)
		log.Printf("API available at http://localhost:%d/api/v1/pos", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
