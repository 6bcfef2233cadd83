package banksync

import (
	"strings"
	"testing"

	"zzpboek/internal/domain/account"
	"zzpboek/internal/domain/transaction"
)

func TestMapAccountType(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"CHECKING", account.TypeChecking},
		{"checking", account.TypeChecking},
		{"CURRENT", account.TypeChecking},
		{"SAVINGS", account.TypeSavings},
		{"CREDIT_CARD", account.TypeCredit},
		{"BUSINESS", account.TypeBusiness},
		{"MORTGAGE", account.TypeChecking}, // unknown falls back
		{"", account.TypeChecking},
	}

	for _, tt := range tests {
		if got := MapAccountType(tt.provider); got != tt.want {
			t.Errorf("MapAccountType(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestMapCategory(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"INCOME", transaction.CategoryIncome},
		{"salary", transaction.CategoryIncome},
		{"TRAVEL", transaction.CategoryTravel},
		{"TRANSPORT", transaction.CategoryTravel},
		{"SOFTWARE", transaction.CategorySoftware},
		{"TAXES", transaction.CategoryTax},
		{"TRANSFERS", transaction.CategoryTransfer},
		{"ENTERTAINMENT", transaction.CategoryOther}, // unknown falls back
		{"", transaction.CategoryOther},
	}

	for _, tt := range tests {
		if got := MapCategory(tt.provider); got != tt.want {
			t.Errorf("MapCategory(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"BOOKED", transaction.StatusCompleted},
		{"PENDING", transaction.StatusPending},
		{"RESERVED", transaction.StatusPending},
		{"FAILED", transaction.StatusFailed},
		{"CANCELLED", transaction.StatusFailed},
		{"UNDEFINED", transaction.StatusCompleted}, // unknown falls back
		{"", transaction.StatusCompleted},
	}

	for _, tt := range tests {
		if got := MapStatus(tt.provider); got != tt.want {
			t.Errorf("MapStatus(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestMaskAccountNumber(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"iban", "NL91ABNA0417164300", "**************4300"},
		{"exactly four", "4300", "4300"},
		{"three chars unchanged", "430", "430"},
		{"empty unchanged", "", ""},
		{"five chars", "54300", "*4300"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaskAccountNumber(tt.input)
			if got != tt.want {
				t.Errorf("MaskAccountNumber(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if len(tt.input) >= 4 {
				if !strings.HasSuffix(got, tt.input[len(tt.input)-4:]) {
					t.Errorf("masked value %q does not preserve last 4 of %q", got, tt.input)
				}
			}
		})
	}
}
