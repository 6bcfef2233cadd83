// Package tink implements the HTTP client for the bank aggregation provider:
// the hosted bank-link URL, OAuth token grants, revocation and the paginated
// account/transaction data endpoints.
package tink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL  = "https://api.tink.com"
	defaultLinkURL  = "https://link.tink.com"
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 100

	tokenPath        = "/api/v1/oauth/token"
	revokePath       = "/api/v1/oauth/token/revoke"
	accountsPath     = "/data/v2/accounts"
	transactionsPath = "/data/v2/transactions"

	connectScope = "accounts:read,transactions:read"
)

// ErrNotConfigured is returned when the client id or secret is missing.
// This must fail loudly instead of producing a malformed link URL.
var ErrNotConfigured = errors.New("tink client credentials are not configured")

// ErrTimeout marks a provider call that exceeded its deadline. Callers can
// distinguish a slow provider from a rejecting one.
var ErrTimeout = errors.New("provider request timed out")

// StatusError reports a non-success HTTP response from the provider.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tink %s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Client talks to the aggregation provider API.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	linkBaseURL  string
	clientID     string
	clientSecret string
	redirectURL  string
	pageSize     int
}

// Config configures the provider client.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	BaseURL      string // override for tests
	LinkBaseURL  string // override for tests
	PageSize     int
	HTTPClient   *http.Client
}

// NewClient creates a provider client. Credentials are validated on first
// use, not here, so read-only commands can run without them.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	linkBaseURL := cfg.LinkBaseURL
	if linkBaseURL == "" {
		linkBaseURL = defaultLinkURL
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &Client{
		httpClient:   httpClient,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		linkBaseURL:  strings.TrimSuffix(linkBaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURL:  cfg.RedirectURL,
		pageSize:     pageSize,
	}
}

// ConnectParams selects market, locale and test mode for the hosted flow.
type ConnectParams struct {
	Market   string
	Locale   string
	TestMode bool
}

// ConnectURL builds the URL for the provider's hosted bank-selection flow.
// Pure construction, no network calls.
func (c *Client) ConnectURL(p ConnectParams) (string, error) {
	if c.clientID == "" {
		return "", ErrNotConfigured
	}

	params := url.Values{
		"client_id":     {c.clientID},
		"redirect_uri":  {c.redirectURL},
		"scope":         {connectScope},
		"response_type": {"code"},
		"market":        {p.Market},
		"locale":        {p.Locale},
		"test":          {strconv.FormatBool(p.TestMode)},
	}

	return c.linkBaseURL + "/1.0/transactions/connect-accounts?" + params.Encode(), nil
}

// ExchangeCode trades a one-time authorization code for a token pair.
// Never retried here: a code is single-use and must not be replayed.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {c.redirectURL},
	}
	return c.tokenRequest(ctx, "token exchange", form)
}

// RefreshToken renews an access token using the refresh_token grant.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	return c.tokenRequest(ctx, "token refresh", form)
}

func (c *Client) tokenRequest(ctx context.Context, op string, form url.Values) (*TokenResponse, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	body, err := c.do(req, op)
	if err != nil {
		return nil, err
	}

	var tokens TokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token response: %w", err)
	}
	if tokens.AccessToken == "" {
		return nil, fmt.Errorf("%s returned no access token", op)
	}

	return &tokens, nil
}

// Revoke invalidates an access token at the provider. Callers treat failure
// as non-fatal.
func (c *Client) Revoke(ctx context.Context, accessToken string) error {
	if c.clientID == "" || c.clientSecret == "" {
		return ErrNotConfigured
	}

	form := url.Values{"token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+revokePath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	_, err = c.do(req, "revoke")
	return err
}

// ListAccounts fetches all accounts visible to the access token.
func (c *Client) ListAccounts(ctx context.Context, accessToken string) ([]Account, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+accountsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	body, err := c.do(req, "list accounts")
	if err != nil {
		return nil, err
	}

	var resp AccountsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal accounts response: %w", err)
	}

	return resp.Accounts, nil
}

// ListTransactions fetches one page of transactions for an account.
// Pass the previous page's NextPageToken to continue; an empty token in the
// response means the last page.
func (c *Client) ListTransactions(ctx context.Context, accessToken, accountID, pageToken string) (*TransactionPage, error) {
	params := url.Values{
		"accountIdIn": {accountID},
		"pageSize":    {strconv.Itoa(c.pageSize)},
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+transactionsPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	body, err := c.do(req, "list transactions")
	if err != nil {
		return nil, err
	}

	var page TransactionPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transactions response: %w", err)
	}

	return &page, nil
}

// do executes the request and returns the body for 2xx responses.
// Timeouts surface as ErrTimeout, other non-2xx responses as *StatusError.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%s: %w", op, ErrTimeout)
		}
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(body)
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.ErrorMessage != "" {
			msg = errResp.ErrorCode + ": " + errResp.ErrorMessage
		}
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: msg}
	}

	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
