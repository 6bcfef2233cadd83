package tink

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TokenResponse is the provider token endpoint response for both the
// authorization_code and refresh_token grants.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// Amount represents a monetary value. The API returns the value as a string.
type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currencyCode"`
}

// Decimal parses the amount value.
func (a Amount) Decimal() (decimal.Decimal, error) {
	if a.Value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(a.Value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount %q: %w", a.Value, err)
	}
	return d, nil
}

// Account is an account as returned by the provider accounts endpoint.
type Account struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	AccountNumber    string  `json:"accountNumber"`
	Balance          Amount  `json:"balance"`
	AvailableBalance *Amount `json:"availableBalance,omitempty"`
	BankName         string  `json:"financialInstitutionName"`
	BIC              string  `json:"bic,omitempty"`
}

// AccountsResponse wraps the accounts list endpoint payload.
type AccountsResponse struct {
	Accounts []Account `json:"accounts"`
}

// Transaction is a transaction as returned by the provider.
type Transaction struct {
	ID                 string `json:"id"`
	AccountID          string `json:"accountId"`
	Amount             Amount `json:"amount"`
	Description        string `json:"description"`
	BookedDate         string `json:"bookedDate"`
	ValueDate          string `json:"valueDate,omitempty"`
	CounterpartName    string `json:"counterpartName,omitempty"`
	CounterpartAccount string `json:"counterpartAccount,omitempty"`
	Reference          string `json:"reference,omitempty"`
	Category           string `json:"category,omitempty"`
	Status             string `json:"status,omitempty"`
}

// Booked parses the booked date (YYYY-MM-DD).
func (t Transaction) Booked() (time.Time, error) {
	if t.BookedDate == "" {
		return time.Time{}, fmt.Errorf("transaction %s has no booked date", t.ID)
	}
	d, err := time.Parse("2006-01-02", t.BookedDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse booked date %q: %w", t.BookedDate, err)
	}
	return d, nil
}

// Value parses the optional value date (YYYY-MM-DD).
func (t Transaction) Value() (*time.Time, error) {
	if t.ValueDate == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", t.ValueDate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse value date %q: %w", t.ValueDate, err)
	}
	return &d, nil
}

// TransactionPage is one page of the paginated transactions endpoint.
type TransactionPage struct {
	Transactions  []Transaction `json:"transactions"`
	NextPageToken string        `json:"nextPageToken,omitempty"`
}

// errorResponse is the provider error payload shape.
type errorResponse struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}
