package connection

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrSessionNotFound means the session token is unknown, expired or tampered.
var ErrSessionNotFound = errors.New("connect session not found")

// SessionStore holds the short-lived continuation record between the outbound
// redirect to the bank and the inbound provider callback. The browser
// round-trip loses in-memory state, so the pending connection id is parked
// here keyed by a random nonce. Tokens are HMAC-signed so a forged nonce is
// rejected before the map lookup. Concurrent link attempts by the same user
// get independent sessions and cannot clobber each other.
type SessionStore struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]sessionEntry
}

type sessionEntry struct {
	connectionID string
	expiresAt    time.Time
}

// NewSessionStore creates a session store with the given signing secret and TTL.
func NewSessionStore(secret string, ttl time.Duration) *SessionStore {
	return &SessionStore{
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]sessionEntry),
	}
}

// Create registers a session for a pending connection and returns its token.
func (s *SessionStore) Create(connectionID string) (string, error) {
	nonceBytes := make([]byte, 16)
	if _, err := rand.Read(nonceBytes); err != nil {
		return "", err
	}
	nonce := hex.EncodeToString(nonceBytes)

	s.mu.Lock()
	s.sessions[nonce] = sessionEntry{
		connectionID: connectionID,
		expiresAt:    s.now().Add(s.ttl),
	}
	s.pruneLocked()
	s.mu.Unlock()

	return nonce + "." + s.sign(nonce), nil
}

// Resolve returns the connection id for a session token. The session stays
// registered until Delete so a failed callback can be diagnosed.
func (s *SessionStore) Resolve(token string) (string, error) {
	nonce, ok := s.verify(token)
	if !ok {
		return "", ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[nonce]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.sessions, nonce)
		return "", ErrSessionNotFound
	}
	return entry.connectionID, nil
}

// Delete removes a session once the callback flow has finished with it.
func (s *SessionStore) Delete(token string) {
	nonce, ok := s.verify(token)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.sessions, nonce)
	s.mu.Unlock()
}

func (s *SessionStore) sign(nonce string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(nonce))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *SessionStore) verify(token string) (nonce string, ok bool) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return "", false
	}
	if !hmac.Equal([]byte(s.sign(parts[0])), []byte(parts[1])) {
		return "", false
	}
	return parts[0], true
}

// pruneLocked drops expired sessions. Called with s.mu held.
func (s *SessionStore) pruneLocked() {
	now := s.now()
	for nonce, entry := range s.sessions {
		if now.After(entry.expiresAt) {
			delete(s.sessions, nonce)
		}
	}
}
