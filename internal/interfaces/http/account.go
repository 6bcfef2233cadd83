package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"zzpboek/internal/domain/account"
	"zzpboek/internal/domain/transaction"
)

const (
	defaultTransactionLimit = 50
	maxTransactionLimit     = 500
)

// AccountHandler serves synced bank accounts and their transactions.
type AccountHandler struct {
	accounts     account.Repository
	transactions transaction.Repository
}

func NewAccountHandler(accounts account.Repository, transactions transaction.Repository) *AccountHandler {
	return &AccountHandler{accounts: accounts, transactions: transactions}
}

// HandleListAccounts returns all active bank accounts.
func (h *AccountHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accounts, err := h.accounts.ListActive(r.Context())
	if err != nil {
		log.Printf("Error listing accounts: %v", err)
		http.Error(w, "Failed to list accounts", http.StatusInternalServerError)
		return
	}
	if accounts == nil {
		accounts = []*account.Account{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(accounts)
}

// HandleBalanceSummary returns per-currency balance totals over active
// accounts.
func (h *AccountHandler) HandleBalanceSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accounts, err := h.accounts.ListActive(r.Context())
	if err != nil {
		log.Printf("Error listing accounts for summary: %v", err)
		http.Error(w, "Failed to compute balance summary", http.StatusInternalServerError)
		return
	}

	summaries := account.Summarize(accounts)
	if summaries == nil {
		summaries = []account.BalanceSummary{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summaries)
}

// HandleAccountTransactions returns a page of transactions for one account,
// newest first.
func (h *AccountHandler) HandleAccountTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accountID := r.PathValue("id")
	if accountID == "" {
		http.Error(w, "Account ID is required", http.StatusBadRequest)
		return
	}

	limit := defaultTransactionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxTransactionLimit {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid offset", http.StatusBadRequest)
			return
		}
		offset = n
	}

	transactions, err := h.transactions.ListByAccountID(r.Context(), accountID, limit, offset)
	if err != nil {
		log.Printf("Error listing transactions for account %s: %v", accountID, err)
		http.Error(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}
	if transactions == nil {
		transactions = []*transaction.Transaction{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transactions)
}
