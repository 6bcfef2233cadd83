// Package account holds the bank account domain entity synced from the
// aggregation provider.
package account

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Account types as stored locally. Unknown provider types map to checking
// during sync, see the banksync package.
const (
	TypeChecking = "checking"
	TypeSavings  = "savings"
	TypeCredit   = "credit"
	TypeBusiness = "business"
)

var accountTypes = map[string]struct{}{
	TypeChecking: {},
	TypeSavings:  {},
	TypeCredit:   {},
	TypeBusiness: {},
}

// Domain errors
var (
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidInput       = errors.New("invalid input")
)

// Account represents a synced bank account.
type Account struct {
	ExternalID       string          `json:"id"`
	ConnectionID     string          `json:"connectionId"`
	Name             string          `json:"name"`
	AccountType      string          `json:"accountType"`
	MaskedNumber     string          `json:"maskedNumber"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	Currency         string          `json:"currency"`
	BankName         string          `json:"bankName"`
	BIC              string          `json:"bic"`
	IsActive         bool            `json:"isActive"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// UpsertParams contains parameters for the sync upsert, keyed on ExternalID.
type UpsertParams struct {
	ExternalID       string
	ConnectionID     string
	Name             string
	AccountType      string
	MaskedNumber     string
	Balance          decimal.Decimal
	AvailableBalance decimal.Decimal
	Currency         string
	BankName         string
	BIC              string
}

// Validate validates the upsert parameters.
func (p UpsertParams) Validate() error {
	if p.ExternalID == "" {
		return errors.New("external account ID is required")
	}
	if p.ConnectionID == "" {
		return errors.New("connection ID is required")
	}
	if p.Name == "" {
		return errors.New("account name is required")
	}
	if !IsValidAccountType(p.AccountType) {
		return ErrInvalidAccountType
	}
	if p.Currency == "" {
		return errors.New("currency is required")
	}
	return nil
}

// IsValidAccountType reports whether t is one of the local account types.
func IsValidAccountType(t string) bool {
	_, ok := accountTypes[t]
	return ok
}

// Repository defines persistence operations for bank accounts.
type Repository interface {
	Upsert(ctx context.Context, params UpsertParams) (*Account, error)
	GetByExternalID(ctx context.Context, externalID string) (*Account, error)
	ListByConnectionID(ctx context.Context, connectionID string) ([]*Account, error)
	ListActive(ctx context.Context) ([]*Account, error)
	DeactivateByConnectionID(ctx context.Context, connectionID string) error
}

// BalanceSummary aggregates balances per currency over active accounts.
type BalanceSummary struct {
	Currency  string          `json:"currency"`
	Total     decimal.Decimal `json:"total"`
	Available decimal.Decimal `json:"available"`
	Accounts  int             `json:"accounts"`
}

// Summarize aggregates balances per currency. Inactive accounts are excluded;
// they must never contribute to user-facing totals.
func Summarize(accounts []*Account) []BalanceSummary {
	index := make(map[string]int)
	var summaries []BalanceSummary

	for _, a := range accounts {
		if !a.IsActive {
			continue
		}
		i, ok := index[a.Currency]
		if !ok {
			i = len(summaries)
			index[a.Currency] = i
			summaries = append(summaries, BalanceSummary{Currency: a.Currency})
		}
		summaries[i].Total = summaries[i].Total.Add(a.Balance)
		summaries[i].Available = summaries[i].Available.Add(a.AvailableBalance)
		summaries[i].Accounts++
	}

	return summaries
}
