package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"zzpboek/internal/domain/transaction"
)

type TransactionRepository struct {
	db *DB
}

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `external_id, account_id, amount, currency, description,
	       transaction_date, value_date, counterpart_name, counterpart_account, reference,
	       category, status, is_reconciled, reconciled_with, created_at, updated_at`

// transactionUpsertQuery refreshes provider-owned fields on conflict only.
// category, is_reconciled and reconciled_with are user-owned: set on first
// insert and never touched by a re-sync.
const transactionUpsertQuery = `
	INSERT INTO transactions (external_id, account_id, amount, currency, description,
	                          transaction_date, value_date, counterpart_name, counterpart_account,
	                          reference, category, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (external_id) DO UPDATE SET
		account_id = EXCLUDED.account_id,
		amount = EXCLUDED.amount,
		currency = EXCLUDED.currency,
		description = EXCLUDED.description,
		transaction_date = EXCLUDED.transaction_date,
		value_date = EXCLUDED.value_date,
		counterpart_name = EXCLUDED.counterpart_name,
		counterpart_account = EXCLUDED.counterpart_account,
		reference = EXCLUDED.reference,
		status = EXCLUDED.status,
		updated_at = NOW()
	RETURNING ` + transactionColumns

// Upsert inserts the transaction or refreshes its provider-owned fields,
// keyed on the external id.
func (r *TransactionRepository) Upsert(ctx context.Context, params transaction.UpsertParams) (*transaction.Transaction, error) {
	row := r.db.QueryRowContext(
		ctx, transactionUpsertQuery,
		params.ExternalID, params.AccountID, params.Amount, params.Currency, params.Description,
		params.TransactionDate, params.ValueDate, params.CounterpartName, params.CounterpartAccount,
		params.Reference, params.Category, params.Status,
	)
	tx, err := scanTransaction(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert transaction: %w", err)
	}
	return tx, nil
}

func (r *TransactionRepository) GetByExternalID(ctx context.Context, externalID string) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE external_id = $1`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

func (r *TransactionRepository) ListByAccountID(ctx context.Context, accountID string, limit, offset int) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1
		ORDER BY transaction_date DESC, external_id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*transaction.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

// UpdateCategory sets the user's bookkeeping category.
func (r *TransactionRepository) UpdateCategory(ctx context.Context, externalID, category string) (*transaction.Transaction, error) {
	query := `
		UPDATE transactions
		SET category = $2, updated_at = NOW()
		WHERE external_id = $1
		RETURNING ` + transactionColumns

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, externalID, category))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return tx, nil
}

// UpdateReconciliation links the transaction to an invoice or expense, or
// clears the link when reconciledWith is nil.
func (r *TransactionRepository) UpdateReconciliation(ctx context.Context, externalID string, reconciledWith *string) (*transaction.Transaction, error) {
	query := `
		UPDATE transactions
		SET reconciled_with = $2,
		    is_reconciled = $2 IS NOT NULL,
		    updated_at = NOW()
		WHERE external_id = $1
		RETURNING ` + transactionColumns

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, externalID, reconciledWith))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to update reconciliation: %w", err)
	}
	return tx, nil
}

func scanTransaction(s connectionScanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	var valueDate sql.NullTime
	var counterpartName, counterpartAccount, reference, reconciledWith sql.NullString

	err := s.Scan(
		&tx.ExternalID, &tx.AccountID, &tx.Amount, &tx.Currency, &tx.Description,
		&tx.TransactionDate, &valueDate, &counterpartName, &counterpartAccount, &reference,
		&tx.Category, &tx.Status, &tx.IsReconciled, &reconciledWith, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if valueDate.Valid {
		tx.ValueDate = &valueDate.Time
	}
	tx.CounterpartName = counterpartName.String
	tx.CounterpartAccount = counterpartAccount.String
	tx.Reference = reference.String
	if reconciledWith.Valid {
		tx.ReconciledWith = &reconciledWith.String
	}
	return &tx, nil
}
