package main

import (
	"net/http"

	"zzpboek/internal/shared/config"
	"zzpboek/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with
// middleware applied.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Probes
	mux.HandleFunc("/health", deps.HealthHandler.HandleHealth)
	mux.HandleFunc("/ready", deps.HealthHandler.HandleReady)

	// Bank connection lifecycle
	mux.HandleFunc("/api/bank/connections", deps.ConnectionHandler.HandleConnections)
	mux.HandleFunc("/api/bank/connections/{id}", deps.ConnectionHandler.HandleConnectionByID)
	mux.HandleFunc("/api/bank/connections/{id}/sync", deps.ConnectionHandler.HandleSync)
	mux.HandleFunc("/api/bank/connections/{id}/retry", deps.ConnectionHandler.HandleRetry)
	mux.HandleFunc("/api/bank/callback", deps.ConnectionHandler.HandleCallback)
	if deps.SyncHandler != nil {
		mux.HandleFunc("/api/bank/sync", deps.SyncHandler.HandleSyncAll)
	}

	// Synced data
	mux.HandleFunc("/api/bank/accounts", deps.AccountHandler.HandleListAccounts)
	mux.HandleFunc("/api/bank/accounts/summary", deps.AccountHandler.HandleBalanceSummary)
	mux.HandleFunc("/api/bank/accounts/{id}/transactions", deps.AccountHandler.HandleAccountTransactions)

	// User edits
	mux.HandleFunc("/api/bank/transactions/{id}/category", deps.TransactionHandler.HandleCategory)
	mux.HandleFunc("/api/bank/transactions/{id}/reconcile", deps.TransactionHandler.HandleReconcile)

	handler := middleware.Logging(middleware.CORS(cfg.Server.AllowedHosts)(mux))
	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(middleware.Metrics(handler))
	}

	return handler
}
