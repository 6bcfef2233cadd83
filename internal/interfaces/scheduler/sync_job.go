package scheduler

import (
	"context"
	"fmt"
	"log"

	"zzpboek/internal/domain/connection"
)

// ConnectionSyncJob refreshes the token if needed and syncs one connected
// bank connection.
type ConnectionSyncJob struct {
	connectionID string
	connections  *connection.Service
}

// NewConnectionSyncJob creates a sync job for one connection.
func NewConnectionSyncJob(connectionID string, connections *connection.Service) *ConnectionSyncJob {
	return &ConnectionSyncJob{connectionID: connectionID, connections: connections}
}

// Execute runs the sync. A run that finished but skipped individual records
// is reported as an error so the next scheduled run retries them.
func (j *ConnectionSyncJob) Execute(ctx context.Context) error {
	result, err := j.connections.SyncNow(ctx, j.connectionID)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if len(result.Errors) > 0 {
		log.Printf("Connection %s: sync completed with errors: accounts=%d transactions=%d errors=%d",
			j.connectionID, result.AccountsSynced, result.TransactionsSynced, len(result.Errors))
		return fmt.Errorf("sync completed with %d errors", len(result.Errors))
	}

	log.Printf("Connection %s: sync completed: accounts=%d transactions=%d",
		j.connectionID, result.AccountsSynced, result.TransactionsSynced)
	return nil
}

func (j *ConnectionSyncJob) ConnectionID() string {
	return j.connectionID
}

func (j *ConnectionSyncJob) Description() string {
	return fmt.Sprintf("Bank sync for connection %s", j.connectionID)
}

// ConnectedSyncJobs lists all connected connections and builds a sync job
// for each. Used as the scheduler's job provider.
func ConnectedSyncJobs(connections *connection.Service) func(context.Context) ([]Job, error) {
	return func(ctx context.Context) ([]Job, error) {
		conns, err := connections.List(ctx, connection.StatusConnected)
		if err != nil {
			return nil, fmt.Errorf("failed to list connected connections: %w", err)
		}

		jobs := make([]Job, 0, len(conns))
		for _, conn := range conns {
			jobs = append(jobs, NewConnectionSyncJob(conn.ID, connections))
		}
		return jobs, nil
	}
}
