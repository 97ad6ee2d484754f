package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larsfl/trailside/internal/config"
)

func providerConfig(base string) config.FitnessProvider {
	return config.FitnessProvider{
		ClientID:     "app-123",
		ClientSecret: "shh",
		AuthURL:      base + "/oauth/authorize",
		TokenURL:     base + "/oauth/token",
		RevokeURL:    base + "/oauth/deauthorize",
		RedirectURI:  "https://trailside.example.com/connect/callback",
		Scopes:       []string{"read", "activity:read"},
		Timeout:      2 * time.Second,
	}
}

func TestHTTPFitnessProvider_AuthorizeURL(t *testing.T) {
	p := NewHTTPFitnessProvider(providerConfig("https://provider.example.com"))

	raw := p.AuthorizeURL("state-abc", "challenge-xyz")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "app-123", q.Get("client_id"))
	assert.Equal(t, "https://trailside.example.com/connect/callback", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "read,activity:read", q.Get("scope"))
	assert.Equal(t, "state-abc", q.Get("state"))
	assert.Equal(t, "challenge-xyz", q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Empty(t, q.Get("client_secret"), "the secret never appears in a browser-facing URL")
}

func TestHTTPFitnessProvider_Exchange_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "app-123", r.PostFormValue("client_id"))
		assert.Equal(t, "shh", r.PostFormValue("client_secret"))
		assert.Equal(t, "code-1", r.PostFormValue("code"))
		assert.Equal(t, "the-verifier", r.PostFormValue("code_verifier"))
		assert.Equal(t, "authorization_code", r.PostFormValue("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "at-1",
			"refresh_token": "rt-1",
			"expires_at": 1735689600,
			"scope": "read,activity:read",
			"athlete": {"id": 9912345, "username": "runner"}
		}`))
	}))
	defer srv.Close()

	p := NewHTTPFitnessProvider(providerConfig(srv.URL))

	grant, err := p.Exchange(context.Background(), "code-1", "the-verifier")
	require.NoError(t, err)
	assert.Equal(t, "at-1", grant.AccessToken)
	assert.Equal(t, "rt-1", grant.RefreshToken)
	assert.Equal(t, time.Unix(1735689600, 0).UTC(), grant.ExpiresAt)
	assert.Equal(t, "read,activity:read", grant.Scope)
	assert.Equal(t, "9912345", grant.AccountID)
	assert.JSONEq(t, `{"id": 9912345, "username": "runner"}`, string(grant.AccountMetadata))
}

func TestHTTPFitnessProvider_Exchange_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Bad Request","errors":[{"code":"invalid","field":"code"}]}`))
	}))
	defer srv.Close()

	p := NewHTTPFitnessProvider(providerConfig(srv.URL))

	_, err := p.Exchange(context.Background(), "used-code", "the-verifier")
	require.ErrorIs(t, err, ErrTokenExchangeRejected)
	// The provider body rides along for server-side logging.
	assert.Contains(t, err.Error(), "Bad Request")
}

func TestHTTPFitnessProvider_Exchange_EmptyAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"expires_at": 1735689600}`))
	}))
	defer srv.Close()

	p := NewHTTPFitnessProvider(providerConfig(srv.URL))

	_, err := p.Exchange(context.Background(), "code-1", "the-verifier")
	require.ErrorIs(t, err, ErrTokenExchangeRejected)
}

func TestHTTPFitnessProvider_Exchange_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := NewHTTPFitnessProvider(providerConfig(srv.URL))

	_, err := p.Exchange(context.Background(), "code-1", "the-verifier")
	require.ErrorIs(t, err, ErrTokenExchangeRejected)
}

func TestHTTPFitnessProvider_Revoke(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewHTTPFitnessProvider(providerConfig(srv.URL))

	require.NoError(t, p.Revoke(context.Background(), "at-1"))
	assert.Equal(t, "Bearer at-1", gotAuth)
}

func TestHTTPFitnessProvider_Revoke_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTPFitnessProvider(providerConfig(srv.URL))

	err := p.Revoke(context.Background(), "at-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned 500")
}

func TestAccountIDFromMetadata(t *testing.T) {
	assert.Equal(t, "42", accountIDFromMetadata([]byte(`{"id": 42}`)))
	assert.Equal(t, "abc", accountIDFromMetadata([]byte(`{"id": "abc"}`)))
	assert.Empty(t, accountIDFromMetadata(nil))
	assert.Empty(t, accountIDFromMetadata([]byte(`not json`)))
}
