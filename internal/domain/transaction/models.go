// Package transaction holds the bank transaction entity and its closed
// category/status enums.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category is the closed set of local bookkeeping categories.
// Provider categories outside this set map to CategoryOther during sync.
const (
	CategoryIncome    = "income"
	CategoryOffice    = "office"
	CategoryTravel    = "travel"
	CategoryMeals     = "meals"
	CategorySoftware  = "software"
	CategoryInsurance = "insurance"
	CategoryTax       = "tax"
	CategoryTransfer  = "transfer"
	CategoryOther     = "other"
)

// Status is the closed set of local transaction statuses.
// Unknown provider statuses map to StatusCompleted during sync.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var categories = map[string]struct{}{
	CategoryIncome:    {},
	CategoryOffice:    {},
	CategoryTravel:    {},
	CategoryMeals:     {},
	CategorySoftware:  {},
	CategoryInsurance: {},
	CategoryTax:       {},
	CategoryTransfer:  {},
	CategoryOther:     {},
}

var statuses = map[string]struct{}{
	StatusPending:   {},
	StatusCompleted: {},
	StatusFailed:    {},
}

// Domain errors
var (
	ErrInvalidCategory       = errors.New("invalid transaction category")
	ErrInvalidStatus         = errors.New("invalid transaction status")
	ErrInvalidReconciliation = errors.New("invalid reconciliation reference")
	ErrTransactionNotFound   = errors.New("transaction not found")
)

// Transaction represents a synced bank transaction. Amounts are signed,
// positive means inflow.
type Transaction struct {
	ExternalID         string          `json:"id"`
	AccountID          string          `json:"accountId"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	Description        string          `json:"description"`
	TransactionDate    time.Time       `json:"transactionDate"`
	ValueDate          *time.Time      `json:"valueDate,omitempty"`
	CounterpartName    string          `json:"counterpartName,omitempty"`
	CounterpartAccount string          `json:"counterpartAccount,omitempty"`
	Reference          string          `json:"reference,omitempty"`
	Category           string          `json:"category"`
	Status             string          `json:"status"`
	IsReconciled       bool            `json:"isReconciled"`
	ReconciledWith     *string         `json:"reconciledWith,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// UpsertParams contains sync upsert parameters, keyed on ExternalID.
// Category is only applied on first insert; re-syncs never overwrite a
// category or reconciliation the user has set.
type UpsertParams struct {
	ExternalID         string
	AccountID          string
	Amount             decimal.Decimal
	Currency           string
	Description        string
	TransactionDate    time.Time
	ValueDate          *time.Time
	CounterpartName    string
	CounterpartAccount string
	Reference          string
	Category           string
	Status             string
}

// Validate validates the upsert parameters.
func (p UpsertParams) Validate() error {
	if p.ExternalID == "" {
		return errors.New("external transaction ID is required")
	}
	if p.AccountID == "" {
		return errors.New("account ID is required")
	}
	if p.TransactionDate.IsZero() {
		return errors.New("transaction date is required")
	}
	if !IsValidCategory(p.Category) {
		return ErrInvalidCategory
	}
	if !IsValidStatus(p.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// IsValidCategory reports whether c is one of the local categories.
func IsValidCategory(c string) bool {
	_, ok := categories[c]
	return ok
}

// IsValidStatus reports whether s is one of the local statuses.
func IsValidStatus(s string) bool {
	_, ok := statuses[s]
	return ok
}

// ParseReconciledWith validates a "<entity-type>:<entity-id>" reference.
func ParseReconciledWith(ref string) (entityType, entityID string, err error) {
	parts := strings.SplitN(ref, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q (expected \"<entity-type>:<entity-id>\")", ErrInvalidReconciliation, ref)
	}
	switch parts[0] {
	case "invoice", "expense":
		return parts[0], parts[1], nil
	default:
		return "", "", fmt.Errorf("%w: unknown entity type %q", ErrInvalidReconciliation, parts[0])
	}
}

// Repository defines persistence operations for transactions.
type Repository interface {
	Upsert(ctx context.Context, params UpsertParams) (*Transaction, error)
	GetByExternalID(ctx context.Context, externalID string) (*Transaction, error)
	ListByAccountID(ctx context.Context, accountID string, limit, offset int) ([]*Transaction, error)
	UpdateCategory(ctx context.Context, externalID, category string) (*Transaction, error)
	UpdateReconciliation(ctx context.Context, externalID string, reconciledWith *string) (*Transaction, error)
}
