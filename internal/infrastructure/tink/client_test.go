package tink

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	return NewClient(Config{
		ClientID:     "client-123",
		ClientSecret: "secret-456",
		RedirectURL:  "https://app.example.nl/api/bank/callback",
		BaseURL:      serverURL,
		LinkBaseURL:  serverURL,
		PageSize:     2,
	})
}

func TestConnectURL(t *testing.T) {
	c := newTestClient("https://link.example.test")

	raw, err := c.ConnectURL(ConnectParams{Market: "NL", Locale: "nl_NL", TestMode: true})
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "client-123", q.Get("client_id"))
	assert.Equal(t, "https://app.example.nl/api/bank/callback", q.Get("redirect_uri"))
	assert.Equal(t, "accounts:read,transactions:read", q.Get("scope"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "NL", q.Get("market"))
	assert.Equal(t, "nl_NL", q.Get("locale"))
	assert.Equal(t, "true", q.Get("test"))
}

func TestConnectURL_NotConfigured(t *testing.T) {
	c := NewClient(Config{})

	_, err := c.ConnectURL(ConnectParams{Market: "NL"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestExchangeCode(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, tokenPath, r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok, "token endpoint must use basic auth")
		assert.Equal(t, "client-123", user)
		assert.Equal(t, "secret-456", pass)

		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-1","token_type":"bearer","expires_in":1800,"refresh_token":"rt-1"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	tokens, err := c.ExchangeCode(context.Background(), "one-time-code")
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", gotForm.Get("grant_type"))
	assert.Equal(t, "one-time-code", gotForm.Get("code"))
	assert.Equal(t, "https://app.example.nl/api/bank/callback", gotForm.Get("redirect_uri"))

	assert.Equal(t, "at-1", tokens.AccessToken)
	assert.Equal(t, "rt-1", tokens.RefreshToken)
	assert.Equal(t, 1800, tokens.ExpiresIn)
}

func TestExchangeCode_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errorCode":"invalid_grant","errorMessage":"code already used"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.ExchangeCode(context.Background(), "used-code")
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "invalid_grant")
}

func TestExchangeCode_NotConfigured(t *testing.T) {
	c := NewClient(Config{})
	_, err := c.ExchangeCode(context.Background(), "code")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt-1", r.PostForm.Get("refresh_token"))

		w.Write([]byte(`{"access_token":"at-2","expires_in":1800}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	tokens, err := c.RefreshToken(context.Background(), "rt-1")
	require.NoError(t, err)
	assert.Equal(t, "at-2", tokens.AccessToken)
}

func TestRevoke(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, revokePath, r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotToken = r.PostForm.Get("token")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	require.NoError(t, c.Revoke(context.Background(), "at-1"))
	assert.Equal(t, "at-1", gotToken)
}

func TestRevoke_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	err := c.Revoke(context.Background(), "at-1")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}

func TestListAccounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, accountsPath, r.URL.Path)
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))

		w.Write([]byte(`{"accounts":[
			{"id":"acc-1","name":"Zakelijke rekening","type":"CHECKING",
			 "accountNumber":"NL91ABNA0417164300",
			 "balance":{"value":"1250.75","currencyCode":"EUR"},
			 "financialInstitutionName":"ABN AMRO","bic":"ABNANL2A"}
		]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	accounts, err := c.ListAccounts(context.Background(), "at-1")
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	assert.Equal(t, "acc-1", accounts[0].ID)
	assert.Equal(t, "CHECKING", accounts[0].Type)

	balance, err := accounts[0].Balance.Decimal()
	require.NoError(t, err)
	assert.Equal(t, "1250.75", balance.String())
}

func TestListTransactions_Pagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "acc-1", q.Get("accountIdIn"))
		assert.Equal(t, "2", q.Get("pageSize"))

		if q.Get("pageToken") == "" {
			w.Write([]byte(`{"transactions":[
				{"id":"tx-1","accountId":"acc-1","amount":{"value":"-12.50","currencyCode":"EUR"},"bookedDate":"2026-03-14"},
				{"id":"tx-2","accountId":"acc-1","amount":{"value":"100.00","currencyCode":"EUR"},"bookedDate":"2026-03-15"}
			],"nextPageToken":"page-2"}`))
			return
		}

		assert.Equal(t, "page-2", q.Get("pageToken"))
		w.Write([]byte(`{"transactions":[
			{"id":"tx-3","accountId":"acc-1","amount":{"value":"-5.00","currencyCode":"EUR"},"bookedDate":"2026-03-16"}
		]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	page1, err := c.ListTransactions(context.Background(), "at-1", "acc-1", "")
	require.NoError(t, err)
	require.Len(t, page1.Transactions, 2)
	require.Equal(t, "page-2", page1.NextPageToken)

	page2, err := c.ListTransactions(context.Background(), "at-1", "acc-1", page1.NextPageToken)
	require.NoError(t, err)
	require.Len(t, page2.Transactions, 1)
	assert.Empty(t, page2.NextPageToken)
}

func TestTimeoutIsDistinctError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(Config{
		ClientID:     "client-123",
		ClientSecret: "secret-456",
		BaseURL:      srv.URL,
		HTTPClient:   &http.Client{Timeout: 20 * time.Millisecond},
	})

	_, err := c.ListAccounts(context.Background(), "at-1")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestTransactionDateParsing(t *testing.T) {
	tx := Transaction{ID: "tx-1", BookedDate: "2026-03-14", ValueDate: "2026-03-16"}

	booked, err := tx.Booked()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), booked)

	value, err := tx.Value()
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, 16, value.Day())

	noValue := Transaction{ID: "tx-2", BookedDate: "2026-03-14"}
	v, err := noValue.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	noBooked := Transaction{ID: "tx-3"}
	_, err = noBooked.Booked()
	assert.Error(t, err)
}
