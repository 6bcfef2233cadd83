package connection

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"zzpboek/internal/domain/banksync"
	"zzpboek/internal/infrastructure/crypto"
	"zzpboek/internal/infrastructure/tink"
)

const providerName = "tink"

// Provider is the subset of the aggregation provider client the lifecycle
// manager needs.
type Provider interface {
	ConnectURL(p tink.ConnectParams) (string, error)
	ExchangeCode(ctx context.Context, code string) (*tink.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*tink.TokenResponse, error)
	Revoke(ctx context.Context, accessToken string) error
}

// Syncer pulls accounts and transactions for a connected connection.
type Syncer interface {
	Sync(ctx context.Context, connectionID, accessToken string) (*banksync.Result, error)
}

// Service manages the bank connection lifecycle.
type Service struct {
	provider  Provider
	repo      Repository
	sessions  *SessionStore
	encryptor *crypto.Encryptor
	syncer    Syncer

	market   string
	locale   string
	testMode bool

	now func() time.Time

	// Serializes token refresh and sync per connection so concurrent
	// requests cannot race a refresh-token rotation.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a connection lifecycle service. Market and locale are
// the defaults passed to the hosted link flow.
func NewService(provider Provider, repo Repository, sessions *SessionStore, encryptor *crypto.Encryptor, syncer Syncer, market, locale string, testMode bool) *Service {
	return &Service{
		provider:  provider,
		repo:      repo,
		sessions:  sessions,
		encryptor: encryptor,
		syncer:    syncer,
		market:    market,
		locale:    locale,
		testMode:  testMode,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (s *Service) lockFor(connectionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[connectionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[connectionID] = l
	}
	return l
}

// StartResult is what a new link attempt hands back to the caller: where to
// send the user, and the session token that ties the eventual callback to
// the pending connection.
type StartResult struct {
	ConnectionID string `json:"connectionId"`
	RedirectURL  string `json:"redirectUrl"`
	SessionToken string `json:"-"`
}

// Start begins a new bank link attempt: it creates a pending connection row,
// parks its id in a callback session and returns the provider's hosted link
// URL. Returns ErrMisconfigured when provider credentials are absent.
func (s *Service) Start(ctx context.Context) (*StartResult, error) {
	redirectURL, err := s.provider.ConnectURL(tink.ConnectParams{
		Market:   s.market,
		Locale:   s.locale,
		TestMode: s.testMode,
	})
	if err != nil {
		if errors.Is(err, tink.ErrNotConfigured) {
			return nil, ErrMisconfigured
		}
		return nil, fmt.Errorf("failed to build connect URL: %w", err)
	}

	conn, err := s.repo.Create(ctx, CreateParams{
		ID:          uuid.New().String(),
		Provider:    providerName,
		Market:      s.market,
		TestMode:    s.testMode,
		InitiatedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}

	token, err := s.sessions.Create(conn.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create connect session: %w", err)
	}

	log.Printf("Connection %s: link flow started", conn.ID)

	return &StartResult{
		ConnectionID: conn.ID,
		RedirectURL:  redirectURL,
		SessionToken: token,
	}, nil
}

// HandleCallback finishes a link attempt when the provider redirects back.
// Exactly one of code and errParam must be set; anything else is
// ErrInvalidCallback. A resolvable session is required before any provider
// call is made.
//
// On success the connection ends up connected with encrypted tokens stored,
// and an initial sync is attempted. A failed initial sync leaves the
// connection connected; the tokens are good and the next scheduled sync
// will retry.
func (s *Service) HandleCallback(ctx context.Context, sessionToken, code, errParam string) (*Connection, error) {
	if (code == "") == (errParam == "") {
		return nil, ErrInvalidCallback
	}

	connectionID, err := s.sessions.Resolve(sessionToken)
	if err != nil {
		return nil, ErrMissingConnectionContext
	}

	if errParam != "" {
		// The user denied consent at the bank. No provider call is made and
		// the single-use session is spent.
		if err := s.repo.SetError(ctx, connectionID, "authorization denied: "+errParam); err != nil {
			log.Printf("Connection %s: failed to record denial: %v", connectionID, err)
		}
		s.sessions.Delete(sessionToken)
		return nil, fmt.Errorf("%w: %s", ErrUserDenied, errParam)
	}

	// Any failure between here and SetConnected must not strand the
	// connection in pending: record the error and spend the session.
	fail := func(reason string, err error) (*Connection, error) {
		if setErr := s.repo.SetError(ctx, connectionID, reason); setErr != nil {
			log.Printf("Connection %s: failed to record %s: %v", connectionID, reason, setErr)
		}
		s.sessions.Delete(sessionToken)
		return nil, fmt.Errorf("%s: %w", reason, err)
	}

	tokens, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return fail("code exchange failed", err)
	}

	params, err := s.encryptTokens(tokens)
	if err != nil {
		return fail("token encryption failed", err)
	}
	if err := s.repo.SetConnected(ctx, connectionID, params); err != nil {
		return fail("token storage failed", err)
	}
	s.sessions.Delete(sessionToken)

	log.Printf("Connection %s: connected", connectionID)

	if s.syncer != nil {
		if result, syncErr := s.syncer.Sync(ctx, connectionID, tokens.AccessToken); syncErr != nil {
			log.Printf("Connection %s: initial sync failed: %v", connectionID, syncErr)
		} else {
			if err := s.repo.UpdateLastSyncAt(ctx, connectionID, s.now()); err != nil {
				log.Printf("Connection %s: failed to record sync time: %v", connectionID, err)
			}
			log.Printf("Connection %s: initial sync done - accounts=%d transactions=%d",
				connectionID, result.AccountsSynced, result.TransactionsSynced)
		}
	}

	return s.repo.GetByID(ctx, connectionID)
}

// Get returns a connection by id.
func (s *Service) Get(ctx context.Context, id string) (*Connection, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all connections with the given status.
func (s *Service) List(ctx context.Context, status Status) ([]*Connection, error) {
	return s.repo.ListByStatus(ctx, status)
}

// Retry re-arms an errored connection so a new link attempt can be made
// against the same row.
func (s *Service) Retry(ctx context.Context, id string) (*Connection, error) {
	conn, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(conn.Status, StatusPending) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, conn.Status, StatusPending)
	}
	if err := s.repo.SetPending(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Disconnect revokes provider access best-effort and then atomically clears
// tokens, marks the connection disconnected and deactivates its accounts.
// Already-disconnected connections are a no-op.
func (s *Service) Disconnect(ctx context.Context, id string) error {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	conn, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if conn.Status == StatusDisconnected {
		return nil
	}
	if !CanTransition(conn.Status, StatusDisconnected) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, conn.Status, StatusDisconnected)
	}

	if conn.AccessTokenEncrypted != nil {
		accessToken, decErr := s.encryptor.Decrypt(*conn.AccessTokenEncrypted)
		if decErr == nil {
			s.revokeBestEffort(ctx, id, accessToken)
		} else {
			log.Printf("Connection %s: could not decrypt token for revocation: %v", id, decErr)
		}
	}

	if err := s.repo.Disconnect(ctx, id); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	log.Printf("Connection %s: disconnected", id)
	return nil
}

// revokeBestEffort tries to revoke the remote token, retrying once. Failure
// never blocks local teardown; the provider token lapses on its own.
func (s *Service) revokeBestEffort(ctx context.Context, id, accessToken string) {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			time.Sleep(500 * time.Millisecond)
		}
		if err = s.provider.Revoke(ctx, accessToken); err == nil {
			return
		}
		if ctx.Err() != nil {
			break
		}
	}
	log.Printf("Connection %s: revoke failed: %v", id, err)
}

// SyncNow runs a sync for one connection, refreshing the access token first
// if it has expired. Only a failed token refresh moves the connection to
// error; sync failures leave it connected for the next attempt.
func (s *Service) SyncNow(ctx context.Context, id string) (*banksync.Result, error) {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	accessToken, err := s.ensureToken(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := s.syncer.Sync(ctx, id, accessToken)
	if err != nil {
		return nil, fmt.Errorf("sync failed: %w", err)
	}
	if err := s.repo.UpdateLastSyncAt(ctx, id, s.now()); err != nil {
		log.Printf("Connection %s: failed to record sync time: %v", id, err)
	}
	return result, nil
}

// ensureToken returns a valid plaintext access token for a connected
// connection, refreshing via the provider when the stored one has expired.
// Caller must hold the per-connection lock.
func (s *Service) ensureToken(ctx context.Context, id string) (string, error) {
	conn, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if conn.Status != StatusConnected || conn.AccessTokenEncrypted == nil || conn.RefreshTokenEncrypted == nil {
		return "", ErrNotConnected
	}

	if !conn.TokenExpired(s.now()) {
		return s.encryptor.Decrypt(*conn.AccessTokenEncrypted)
	}

	refreshToken, err := s.encryptor.Decrypt(*conn.RefreshTokenEncrypted)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	tokens, err := s.provider.RefreshToken(ctx, refreshToken)
	if err != nil {
		if setErr := s.repo.SetError(ctx, id, "token refresh failed"); setErr != nil {
			log.Printf("Connection %s: failed to record refresh failure: %v", id, setErr)
		}
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}

	// Some providers rotate the refresh token on every grant; keep the old
	// one when the response omits it.
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refreshToken
	}

	params, err := s.encryptTokens(tokens)
	if err != nil {
		return "", err
	}
	if err := s.repo.UpdateTokens(ctx, id, params); err != nil {
		return "", fmt.Errorf("failed to store refreshed tokens: %w", err)
	}

	log.Printf("Connection %s: access token refreshed", id)
	return tokens.AccessToken, nil
}

func (s *Service) encryptTokens(tokens *tink.TokenResponse) (TokenParams, error) {
	accessEnc, err := s.encryptor.Encrypt(tokens.AccessToken)
	if err != nil {
		return TokenParams{}, fmt.Errorf("failed to encrypt access token: %w", err)
	}
	refreshEnc, err := s.encryptor.Encrypt(tokens.RefreshToken)
	if err != nil {
		return TokenParams{}, fmt.Errorf("failed to encrypt refresh token: %w", err)
	}
	return TokenParams{
		AccessTokenEncrypted:  accessEnc,
		RefreshTokenEncrypted: refreshEnc,
		ExpiresAt:             s.now().Add(time.Duration(tokens.ExpiresIn) * time.Second),
	}, nil
}
