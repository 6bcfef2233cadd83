package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"zzpboek/internal/domain/account"
)

type AccountRepository struct {
	db *DB
}

func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `external_id, connection_id, name, account_type, masked_number,
	       balance, available_balance, currency, bank_name, bic, is_active,
	       created_at, updated_at`

// Upsert inserts the account or refreshes it in place, keyed on the
// provider's external id. A re-synced account is re-activated.
func (r *AccountRepository) Upsert(ctx context.Context, params account.UpsertParams) (*account.Account, error) {
	query := `
		INSERT INTO bank_accounts (external_id, connection_id, name, account_type, masked_number,
		                           balance, available_balance, currency, bank_name, bic, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE)
		ON CONFLICT (external_id) DO UPDATE SET
			connection_id = EXCLUDED.connection_id,
			name = EXCLUDED.name,
			account_type = EXCLUDED.account_type,
			masked_number = EXCLUDED.masked_number,
			balance = EXCLUDED.balance,
			available_balance = EXCLUDED.available_balance,
			currency = EXCLUDED.currency,
			bank_name = EXCLUDED.bank_name,
			bic = EXCLUDED.bic,
			is_active = TRUE,
			updated_at = NOW()
		RETURNING ` + accountColumns

	row := r.db.QueryRowContext(
		ctx, query,
		params.ExternalID, params.ConnectionID, params.Name, params.AccountType, params.MaskedNumber,
		params.Balance, params.AvailableBalance, params.Currency, params.BankName, params.BIC,
	)
	acc, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert account: %w", err)
	}
	return acc, nil
}

func (r *AccountRepository) GetByExternalID(ctx context.Context, externalID string) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM bank_accounts WHERE external_id = $1`

	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acc, nil
}

func (r *AccountRepository) ListByConnectionID(ctx context.Context, connectionID string) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM bank_accounts WHERE connection_id = $1 ORDER BY name`
	return r.list(ctx, query, connectionID)
}

func (r *AccountRepository) ListActive(ctx context.Context) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM bank_accounts WHERE is_active = TRUE ORDER BY bank_name, name`
	return r.list(ctx, query)
}

func (r *AccountRepository) DeactivateByConnectionID(ctx context.Context, connectionID string) error {
	query := `UPDATE bank_accounts SET is_active = FALSE, updated_at = NOW() WHERE connection_id = $1`

	if _, err := r.db.ExecContext(ctx, query, connectionID); err != nil {
		return fmt.Errorf("failed to deactivate accounts: %w", err)
	}
	return nil
}

func (r *AccountRepository) list(ctx context.Context, query string, args ...any) ([]*account.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

func scanAccount(s connectionScanner) (*account.Account, error) {
	var acc account.Account
	var bic sql.NullString

	err := s.Scan(
		&acc.ExternalID, &acc.ConnectionID, &acc.Name, &acc.AccountType, &acc.MaskedNumber,
		&acc.Balance, &acc.AvailableBalance, &acc.Currency, &acc.BankName, &bic, &acc.IsActive,
		&acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	acc.BIC = bic.String
	return &acc, nil
}
