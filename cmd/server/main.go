/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the client engine server. Handles configuration,
  the optional batch load, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and load config.yaml (env vars override)
  2. Initialize SQLite store
  3. Run CSV batch loads if requested
  4. Discover the clients schema (fatal if the table is missing and no
     load was requested)
  5. Configure HTTP router and start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config        Config file path (default: config.yaml)
  -port          HTTP server port (overrides config)
  -db            SQLite database path (overrides config)
  -load-clients  Clients CSV to load before serving
  -load-catalog  Catalog CSV (products + offers) to load before serving

EXAMPLES:
  # First run: load data, then serve
  ./server -db=./data/clients.db \
      -load-clients=./data/clustered_clients.csv \
      -load-catalog=./data/cluster_offers.csv

  # Subsequent runs
  ./server -db=./data/clients.db

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait up to 30s for active
  requests, close the database, exit.
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

	"github.com/vantage/client-engine/api"
	"github.com/vantage/client-engine/config"
	"github.com/vantage/client-engine/stats"
	"github.com/vantage/client-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "config.yaml", "Config file path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	clientsCSV := flag.String("load-clients", "", "Clients CSV to load before serving")
	catalogCSV := flag.String("load-catalog", "", "Catalog CSV to load before serving")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	// Optional batch loads
	if *clientsCSV != "" {
		if err := loadClients(ctx, store, *clientsCSV); err != nil {
			log.Fatalf("Failed to load clients: %v", err)
		}
	}
	if *catalogCSV != "" {
		if err := loadCatalog(ctx, store, *catalogCSV); err != nil {
			log.Fatalf("Failed to load catalog: %v", err)
		}
	}

	// Schema discovery is fatal when the clients table is missing: the
	// engine cannot operate without its backing tables.
	statsSvc, err := stats.New(ctx, store)
	if err != nil {
		log.Fatalf("Failed to discover clients schema: %v", err)
	}

	auth := api.NewAuth(cfg.JWTSecret, time.Duration(cfg.TokenTTLMinutes)*time.Minute)
	mortgage := api.NewMortgageClient(cfg.MortgageAPIURL, cfg.APINinjasKey)
	handler := api.NewHandler(store, statsSvc, auth, mortgage, cfg.Users)
	router := api.NewRouter(handler, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", cfg.Port)
		log.Printf("API available at http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func loadClients(ctx context.Context, store *sqlite.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := store.LoadClients(ctx, f)
	if err != nil {
		return err
	}
	log.Printf("Loaded %d client records from %s", n, path)
	return nil
}

func loadCatalog(ctx context.Context, store *sqlite.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	products, offers, err := store.LoadCatalog(ctx, f)
	if err != nil {
		return err
	}
	log.Printf("Loaded %d products and %d offers from %s", products, offers, path)
	return nil
}
