package banksync

import (
	"strings"

	"zzpboek/internal/domain/account"
	"zzpboek/internal/domain/transaction"
)

// accountTypeMap translates provider account types to the local enum.
// Anything not listed falls back to checking.
var accountTypeMap = map[string]string{
	"CHECKING":    account.TypeChecking,
	"CURRENT":     account.TypeChecking,
	"SAVINGS":     account.TypeSavings,
	"CREDIT":      account.TypeCredit,
	"CREDIT_CARD": account.TypeCredit,
	"BUSINESS":    account.TypeBusiness,
}

// categoryMap translates provider transaction categories to the local closed
// enum. Unknown values fall back to other; a wrong guess here is worse than
// an honest "other" the user can recategorize.
var categoryMap = map[string]string{
	"INCOME":         transaction.CategoryIncome,
	"SALARY":         transaction.CategoryIncome,
	"OFFICE":         transaction.CategoryOffice,
	"SUPPLIES":       transaction.CategoryOffice,
	"TRAVEL":         transaction.CategoryTravel,
	"TRANSPORT":      transaction.CategoryTravel,
	"RESTAURANTS":    transaction.CategoryMeals,
	"FOOD_AND_DRINK": transaction.CategoryMeals,
	"SOFTWARE":       transaction.CategorySoftware,
	"SUBSCRIPTIONS":  transaction.CategorySoftware,
	"INSURANCE":      transaction.CategoryInsurance,
	"TAX":            transaction.CategoryTax,
	"TAXES":          transaction.CategoryTax,
	"TRANSFER":       transaction.CategoryTransfer,
	"TRANSFERS":      transaction.CategoryTransfer,
}

// statusMap translates provider transaction statuses to the local closed
// enum. Unknown values fall back to completed.
var statusMap = map[string]string{
	"BOOKED":    transaction.StatusCompleted,
	"SETTLED":   transaction.StatusCompleted,
	"PENDING":   transaction.StatusPending,
	"RESERVED":  transaction.StatusPending,
	"FAILED":    transaction.StatusFailed,
	"CANCELLED": transaction.StatusFailed,
}

// MapAccountType maps a provider account type to the local enum.
func MapAccountType(providerType string) string {
	if t, ok := accountTypeMap[strings.ToUpper(providerType)]; ok {
		return t
	}
	return account.TypeChecking
}

// MapCategory maps a provider category to the local enum.
func MapCategory(providerCategory string) string {
	if c, ok := categoryMap[strings.ToUpper(providerCategory)]; ok {
		return c
	}
	return transaction.CategoryOther
}

// MapStatus maps a provider status to the local enum.
func MapStatus(providerStatus string) string {
	if s, ok := statusMap[strings.ToUpper(providerStatus)]; ok {
		return s
	}
	return transaction.StatusCompleted
}

const maskRune = '*'

// MaskAccountNumber keeps the last 4 characters and masks the rest.
// Inputs shorter than 4 characters are returned unchanged.
func MaskAccountNumber(number string) string {
	runes := []rune(number)
	if len(runes) < 4 {
		return number
	}
	masked := make([]rune, len(runes))
	for i := range runes {
		if i < len(runes)-4 {
			masked[i] = maskRune
		} else {
			masked[i] = runes[i]
		}
	}
	return string(masked)
}
