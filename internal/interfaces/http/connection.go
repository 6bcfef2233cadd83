// Package http exposes the bank connection and bookkeeping API over HTTP.
package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"zzpboek/internal/domain/connection"
	"zzpboek/internal/infrastructure/tink"
)

// sessionCookieName carries the callback session token across the redirect
// to the bank and back.
const sessionCookieName = "bank_connect_session"

// ConnectionHandler serves the bank connection lifecycle endpoints.
type ConnectionHandler struct {
	connections *connection.Service
	sessionTTL  time.Duration
}

// NewConnectionHandler creates a connection handler. sessionTTL bounds the
// callback session cookie lifetime.
func NewConnectionHandler(connections *connection.Service, sessionTTL time.Duration) *ConnectionHandler {
	return &ConnectionHandler{connections: connections, sessionTTL: sessionTTL}
}

// HandleConnections starts a new link flow (POST) or lists connections by
// status (GET).
func (h *ConnectionHandler) HandleConnections(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleStart(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ConnectionHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	result, err := h.connections.Start(r.Context())
	if err != nil {
		if errors.Is(err, connection.ErrMisconfigured) {
			http.Error(w, "Bank linking is not configured", http.StatusServiceUnavailable)
			return
		}
		log.Printf("Error starting bank connection: %v", err)
		http.Error(w, "Failed to start bank connection", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    result.SessionToken,
		Path:     "/api/bank",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

func (h *ConnectionHandler) handleList(w http.ResponseWriter, r *http.Request) {
	status := connection.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = connection.StatusConnected
	}
	switch status {
	case connection.StatusPending, connection.StatusConnected, connection.StatusError, connection.StatusDisconnected:
	default:
		http.Error(w, "Invalid status", http.StatusBadRequest)
		return
	}

	conns, err := h.connections.List(r.Context(), status)
	if err != nil {
		log.Printf("Error listing connections: %v", err)
		http.Error(w, "Failed to list connections", http.StatusInternalServerError)
		return
	}
	if conns == nil {
		conns = []*connection.Connection{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conns)
}

// HandleCallback finishes the link flow when the provider redirects the
// user back. The pending connection is found through the session cookie set
// by handleStart; the redirect itself carries no connection reference.
func (h *ConnectionHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var sessionToken string
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		sessionToken = cookie.Value
	}

	code := r.URL.Query().Get("code")
	errParam := r.URL.Query().Get("error")

	conn, err := h.connections.HandleCallback(r.Context(), sessionToken, code, errParam)

	// The session is spent either way.
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Path:     "/api/bank",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	if err != nil {
		switch {
		case errors.Is(err, connection.ErrInvalidCallback):
			http.Error(w, "Callback must carry exactly one of code or error", http.StatusBadRequest)
		case errors.Is(err, connection.ErrMissingConnectionContext):
			http.Error(w, "No pending bank connection for this callback", http.StatusBadRequest)
		case errors.Is(err, connection.ErrUserDenied):
			http.Error(w, "Bank authorization was denied", http.StatusForbidden)
		default:
			log.Printf("Error handling bank callback: %v", err)
			http.Error(w, "Failed to complete bank connection", http.StatusBadGateway)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conn)
}

// HandleConnectionByID serves one connection: GET returns it, DELETE
// disconnects it.
func (h *ConnectionHandler) HandleConnectionByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Connection ID is required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		conn, err := h.connections.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, connection.ErrConnectionNotFound) {
				http.Error(w, "Connection not found", http.StatusNotFound)
				return
			}
			log.Printf("Error getting connection %s: %v", id, err)
			http.Error(w, "Failed to get connection", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(conn)

	case http.MethodDelete:
		if err := h.connections.Disconnect(r.Context(), id); err != nil {
			switch {
			case errors.Is(err, connection.ErrConnectionNotFound):
				http.Error(w, "Connection not found", http.StatusNotFound)
			case errors.Is(err, connection.ErrInvalidTransition):
				http.Error(w, "Connection cannot be disconnected in its current state", http.StatusConflict)
			default:
				log.Printf("Error disconnecting connection %s: %v", id, err)
				http.Error(w, "Failed to disconnect", http.StatusInternalServerError)
			}
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleSync triggers an immediate sync for one connection.
func (h *ConnectionHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Connection ID is required", http.StatusBadRequest)
		return
	}

	result, err := h.connections.SyncNow(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, connection.ErrConnectionNotFound):
			http.Error(w, "Connection not found", http.StatusNotFound)
		case errors.Is(err, connection.ErrNotConnected):
			http.Error(w, "Connection is not connected", http.StatusConflict)
		case errors.Is(err, tink.ErrTimeout):
			http.Error(w, "Bank provider timed out", http.StatusGatewayTimeout)
		default:
			log.Printf("Error syncing connection %s: %v", id, err)
			http.Error(w, "Sync failed", http.StatusBadGateway)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandleRetry re-arms an errored connection for a new link attempt.
func (h *ConnectionHandler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Connection ID is required", http.StatusBadRequest)
		return
	}

	conn, err := h.connections.Retry(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, connection.ErrConnectionNotFound):
			http.Error(w, "Connection not found", http.StatusNotFound)
		case errors.Is(err, connection.ErrInvalidTransition):
			http.Error(w, "Only errored connections can be retried", http.StatusConflict)
		default:
			log.Printf("Error retrying connection %s: %v", id, err)
			http.Error(w, "Failed to retry connection", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conn)
}
