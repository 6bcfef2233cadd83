package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"zzpboek/internal/domain/connection"
)

type ConnectionRepository struct {
	db *DB
}

func NewConnectionRepository(db *DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

const connectionColumns = `id, provider, provider_id, status,
	       access_token_encrypted, refresh_token_encrypted, token_expires_at,
	       last_sync_at, error_message, market, test_mode, initiated_at,
	       created_at, updated_at`

func (r *ConnectionRepository) Create(ctx context.Context, params connection.CreateParams) (*connection.Connection, error) {
	query := `
		INSERT INTO bank_connections (id, provider, provider_id, status, market, test_mode, initiated_at)
		VALUES ($1, $2, $3, 'pending', $4, $5, $6)
		RETURNING ` + connectionColumns

	row := r.db.QueryRowContext(
		ctx, query,
		params.ID, params.Provider, params.ProviderID, params.Market, params.TestMode, params.InitiatedAt,
	)
	conn, err := scanConnection(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}
	return conn, nil
}

func (r *ConnectionRepository) GetByID(ctx context.Context, id string) (*connection.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM bank_connections WHERE id = $1`

	conn, err := scanConnection(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, connection.ErrConnectionNotFound
		}
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return conn, nil
}

func (r *ConnectionRepository) ListByStatus(ctx context.Context, status connection.Status) ([]*connection.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM bank_connections WHERE status = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	var connections []*connection.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		connections = append(connections, conn)
	}
	return connections, rows.Err()
}

// SetConnected stores the token ciphertext and moves the row to connected.
// The WHERE clause enforces the pending -> connected transition; updating a
// row in any other status is an invalid transition.
func (r *ConnectionRepository) SetConnected(ctx context.Context, id string, tokens connection.TokenParams) error {
	query := `
		UPDATE bank_connections
		SET status = 'connected',
		    access_token_encrypted = $2,
		    refresh_token_encrypted = $3,
		    token_expires_at = $4,
		    error_message = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`
	return r.guardedUpdate(ctx, id, query,
		id, tokens.AccessTokenEncrypted, tokens.RefreshTokenEncrypted, tokens.ExpiresAt)
}

func (r *ConnectionRepository) SetError(ctx context.Context, id, message string) error {
	query := `
		UPDATE bank_connections
		SET status = 'error', error_message = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'connected')
	`
	return r.guardedUpdate(ctx, id, query, id, message)
}

func (r *ConnectionRepository) SetPending(ctx context.Context, id string) error {
	query := `
		UPDATE bank_connections
		SET status = 'pending', error_message = NULL, initiated_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'error'
	`
	return r.guardedUpdate(ctx, id, query, id)
}

func (r *ConnectionRepository) UpdateTokens(ctx context.Context, id string, tokens connection.TokenParams) error {
	query := `
		UPDATE bank_connections
		SET access_token_encrypted = $2,
		    refresh_token_encrypted = $3,
		    token_expires_at = $4,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'connected'
	`
	return r.guardedUpdate(ctx, id, query,
		id, tokens.AccessTokenEncrypted, tokens.RefreshTokenEncrypted, tokens.ExpiresAt)
}

func (r *ConnectionRepository) UpdateLastSyncAt(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE bank_connections SET last_sync_at = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to update last sync time: %w", err)
	}
	return requireRow(result)
}

// Disconnect clears tokens, marks the connection disconnected and
// deactivates its accounts in one transaction so no partial state is ever
// observable.
func (r *ConnectionRepository) Disconnect(ctx context.Context, id string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE bank_connections
			SET status = 'disconnected',
			    access_token_encrypted = NULL,
			    refresh_token_encrypted = NULL,
			    token_expires_at = NULL,
			    updated_at = NOW()
			WHERE id = $1 AND status = 'connected'
		`, id)
		if err != nil {
			return fmt.Errorf("failed to disconnect connection: %w", err)
		}
		if err := requireRow(result); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE bank_accounts
			SET is_active = FALSE, updated_at = NOW()
			WHERE connection_id = $1
		`, id); err != nil {
			return fmt.Errorf("failed to deactivate accounts: %w", err)
		}
		return nil
	})
}

// guardedUpdate runs a status-guarded UPDATE and maps a zero row count to
// not-found or invalid-transition depending on whether the row exists.
func (r *ConnectionRepository) guardedUpdate(ctx context.Context, id, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update connection: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM bank_connections WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check connection: %w", err)
	}
	if !exists {
		return connection.ErrConnectionNotFound
	}
	return connection.ErrInvalidTransition
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return connection.ErrConnectionNotFound
	}
	return nil
}

type connectionScanner interface {
	Scan(dest ...any) error
}

func scanConnection(s connectionScanner) (*connection.Connection, error) {
	var conn connection.Connection
	var providerID sql.NullString
	var accessToken, refreshToken, errorMessage sql.NullString
	var tokenExpiresAt, lastSyncAt sql.NullTime

	err := s.Scan(
		&conn.ID, &conn.Provider, &providerID, &conn.Status,
		&accessToken, &refreshToken, &tokenExpiresAt,
		&lastSyncAt, &errorMessage, &conn.Market, &conn.TestMode, &conn.InitiatedAt,
		&conn.CreatedAt, &conn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	conn.ProviderID = providerID.String
	if accessToken.Valid {
		conn.AccessTokenEncrypted = &accessToken.String
	}
	if refreshToken.Valid {
		conn.RefreshTokenEncrypted = &refreshToken.String
	}
	if tokenExpiresAt.Valid {
		conn.TokenExpiresAt = &tokenExpiresAt.Time
	}
	if lastSyncAt.Valid {
		conn.LastSyncAt = &lastSyncAt.Time
	}
	if errorMessage.Valid {
		conn.ErrorMessage = &errorMessage.String
	}
	return &conn, nil
}
