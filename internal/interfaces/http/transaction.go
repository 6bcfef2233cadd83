package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"zzpboek/internal/domain/transaction"
)

// TransactionHandler serves user edits on synced transactions. These fields
// are user-owned; a later re-sync never reverts them.
type TransactionHandler struct {
	transactions transaction.Repository
}

func NewTransactionHandler(transactions transaction.Repository) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

type updateCategoryRequest struct {
	Category string `json:"category"`
}

// HandleCategory sets the bookkeeping category of one transaction.
func (h *TransactionHandler) HandleCategory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Transaction ID is required", http.StatusBadRequest)
		return
	}

	var req updateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !transaction.IsValidCategory(req.Category) {
		http.Error(w, "Invalid category", http.StatusBadRequest)
		return
	}

	tx, err := h.transactions.UpdateCategory(r.Context(), id, req.Category)
	if err != nil {
		if errors.Is(err, transaction.ErrTransactionNotFound) {
			http.Error(w, "Transaction not found", http.StatusNotFound)
			return
		}
		log.Printf("Error updating category for transaction %s: %v", id, err)
		http.Error(w, "Failed to update category", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tx)
}

type reconcileRequest struct {
	// ReconciledWith is "<entity-type>:<entity-id>", or null to clear the
	// reconciliation.
	ReconciledWith *string `json:"reconciledWith"`
}

// HandleReconcile links a transaction to an invoice or expense, or clears
// the link.
func (h *TransactionHandler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Transaction ID is required", http.StatusBadRequest)
		return
	}

	var req reconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ReconciledWith != nil {
		if _, _, err := transaction.ParseReconciledWith(*req.ReconciledWith); err != nil {
			http.Error(w, "Invalid reconciliation reference", http.StatusBadRequest)
			return
		}
	}

	tx, err := h.transactions.UpdateReconciliation(r.Context(), id, req.ReconciledWith)
	if err != nil {
		if errors.Is(err, transaction.ErrTransactionNotFound) {
			http.Error(w, "Transaction not found", http.StatusNotFound)
			return
		}
		log.Printf("Error reconciling transaction %s: %v", id, err)
		http.Error(w, "Failed to update reconciliation", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tx)
}
