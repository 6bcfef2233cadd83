// Package banksync pulls accounts and transactions from the aggregation
// provider and upserts them into local storage.
package banksync

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"zzpboek/internal/domain/account"
	"zzpboek/internal/domain/transaction"
	"zzpboek/internal/infrastructure/tink"
)

var (
	syncMeter             = otel.Meter("zzpboek/banksync")
	syncedAccounts, _     = syncMeter.Int64Counter("banksync.accounts.synced", metric.WithDescription("Accounts upserted during sync"))
	syncedTransactions, _ = syncMeter.Int64Counter("banksync.transactions.synced", metric.WithDescription("Transactions upserted during sync"))
	syncItemErrors, _     = syncMeter.Int64Counter("banksync.item_errors", metric.WithDescription("Per-item sync failures by kind"))
)

// DataClient is the subset of the provider client the synchronizer needs.
type DataClient interface {
	ListAccounts(ctx context.Context, accessToken string) ([]tink.Account, error)
	ListTransactions(ctx context.Context, accessToken, accountID, pageToken string) (*tink.TransactionPage, error)
}

// Result aggregates what one sync run accomplished. Per-item failures are
// collected in Errors; only a failure to list accounts aborts the run.
type Result struct {
	ConnectionID       string
	AccountsFound      int
	AccountsSynced     int
	TransactionsSynced int
	Errors             []string
}

// Service syncs remote accounts and transactions into local storage.
type Service struct {
	client          DataClient
	accountRepo     account.Repository
	transactionRepo transaction.Repository
}

// NewService creates a synchronizer.
func NewService(client DataClient, accountRepo account.Repository, transactionRepo transaction.Repository) *Service {
	return &Service{
		client:          client,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
	}
}

// Sync fetches all accounts for the token and their transactions, and
// upserts them keyed on the provider's external ids.
//
// A failure to list accounts aborts the whole run. Failures on an individual
// account or transaction are logged, counted and skipped so one malformed
// remote record cannot sink the rest. An account whose transaction fetch
// fails stays in the result with zero transactions.
func (s *Service) Sync(ctx context.Context, connectionID, accessToken string) (*Result, error) {
	result := &Result{ConnectionID: connectionID, Errors: []string{}}

	remoteAccounts, err := s.client.ListAccounts(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	result.AccountsFound = len(remoteAccounts)

	log.Printf("Connection %s: syncing %d accounts", connectionID, result.AccountsFound)

	for _, remote := range remoteAccounts {
		if err := s.syncAccount(ctx, connectionID, accessToken, remote, result); err != nil {
			msg := fmt.Sprintf("account %s: %v", remote.ID, err)
			result.Errors = append(result.Errors, msg)
			syncItemErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "account")))
			log.Printf("Connection %s: %s", connectionID, msg)
		}
	}

	log.Printf("Connection %s: sync complete - accounts=%d transactions=%d errors=%d",
		connectionID, result.AccountsSynced, result.TransactionsSynced, len(result.Errors))

	return result, nil
}

// syncAccount maps and upserts one account, then pulls its transactions.
func (s *Service) syncAccount(ctx context.Context, connectionID, accessToken string, remote tink.Account, result *Result) error {
	balance, err := remote.Balance.Decimal()
	if err != nil {
		return fmt.Errorf("failed to parse balance: %w", err)
	}

	available := balance
	if remote.AvailableBalance != nil {
		available, err = remote.AvailableBalance.Decimal()
		if err != nil {
			return fmt.Errorf("failed to parse available balance: %w", err)
		}
	}

	params := account.UpsertParams{
		ExternalID:       remote.ID,
		ConnectionID:     connectionID,
		Name:             remote.Name,
		AccountType:      MapAccountType(remote.Type),
		MaskedNumber:     MaskAccountNumber(remote.AccountNumber),
		Balance:          balance,
		AvailableBalance: available,
		Currency:         remote.Balance.Currency,
		BankName:         remote.BankName,
		BIC:              remote.BIC,
	}
	if err := params.Validate(); err != nil {
		return err
	}

	if _, err := s.accountRepo.Upsert(ctx, params); err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	result.AccountsSynced++
	syncedAccounts.Add(ctx, 1)

	// Transaction failures are per-account: they leave the account synced
	// with zero transactions and never abort sibling accounts.
	if err := s.syncTransactions(ctx, connectionID, accessToken, remote.ID, result); err != nil {
		msg := fmt.Sprintf("account %s transactions: %v", remote.ID, err)
		result.Errors = append(result.Errors, msg)
		syncItemErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "transaction_fetch")))
		log.Printf("Connection %s: %s", connectionID, msg)
	}

	return nil
}

// syncTransactions walks all pages for one account.
func (s *Service) syncTransactions(ctx context.Context, connectionID, accessToken, accountID string, result *Result) error {
	pageToken := ""
	for {
		page, err := s.client.ListTransactions(ctx, accessToken, accountID, pageToken)
		if err != nil {
			return err
		}

		for _, remote := range page.Transactions {
			if err := s.upsertTransaction(ctx, accountID, remote); err != nil {
				msg := fmt.Sprintf("transaction %s: %v", remote.ID, err)
				result.Errors = append(result.Errors, msg)
				syncItemErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "transaction")))
				log.Printf("Connection %s: %s", connectionID, msg)
				continue
			}
			result.TransactionsSynced++
			syncedTransactions.Add(ctx, 1)
		}

		if page.NextPageToken == "" {
			return nil
		}
		pageToken = page.NextPageToken
	}
}

// upsertTransaction maps one remote transaction and upserts it. The repo is
// responsible for never overwriting user-set category/reconciliation fields.
func (s *Service) upsertTransaction(ctx context.Context, accountID string, remote tink.Transaction) error {
	amount, err := remote.Amount.Decimal()
	if err != nil {
		return err
	}
	booked, err := remote.Booked()
	if err != nil {
		return err
	}
	valueDate, err := remote.Value()
	if err != nil {
		return err
	}

	params := transaction.UpsertParams{
		ExternalID:         remote.ID,
		AccountID:          accountID,
		Amount:             amount,
		Currency:           remote.Amount.Currency,
		Description:        remote.Description,
		TransactionDate:    booked,
		ValueDate:          valueDate,
		CounterpartName:    remote.CounterpartName,
		CounterpartAccount: remote.CounterpartAccount,
		Reference:          remote.Reference,
		Category:           MapCategory(remote.Category),
		Status:             MapStatus(remote.Status),
	}
	if err := params.Validate(); err != nil {
		return err
	}

	if _, err := s.transactionRepo.Upsert(ctx, params); err != nil {
		return fmt.Errorf("failed to upsert: %w", err)
	}
	return nil
}
