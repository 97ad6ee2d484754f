package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/larsfl/trailside/internal/config"
)

// TokenGrant is the parsed result of a successful token exchange.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scope        string
	// AccountID is the provider's identifier for the connected account.
	AccountID string
	// AccountMetadata is the opaque account blob the provider returned
	// alongside the tokens, stored as-is.
	AccountMetadata json.RawMessage
}

// FitnessProviderClient talks to the external fitness provider. It is an
// interface so the connect service can be tested without network calls.
type FitnessProviderClient interface {
	AuthorizeURL(state, codeChallenge string) string
	Exchange(ctx context.Context, code, codeVerifier string) (*TokenGrant, error)
	Revoke(ctx context.Context, accessToken string) error
}

// HTTPFitnessProvider implements FitnessProviderClient against the real
// provider endpoints. All outbound calls share one bounded-timeout client;
// the client secret never leaves this server-to-server path.
type HTTPFitnessProvider struct {
	cfg    config.FitnessProvider
	client *http.Client
}

func NewHTTPFitnessProvider(cfg config.FitnessProvider) *HTTPFitnessProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFitnessProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// AuthorizeURL builds the provider authorization URL carrying the PKCE
// challenge and the anti-forgery state.
func (p *HTTPFitnessProvider) AuthorizeURL(state, codeChallenge string) string {
	params := url.Values{
		"client_id":             {p.cfg.ClientID},
		"redirect_uri":          {p.cfg.RedirectURI},
		"response_type":         {"code"},
		"scope":                 {strings.Join(p.cfg.Scopes, ",")},
		"state":                 {state},
		"code_challenge":        {codeChallenge},
		"code_challenge_method": {ChallengeMethodS256},
		"approval_prompt":       {"auto"},
	}
	return p.cfg.AuthURL + "?" + params.Encode()
}

// tokenResponse mirrors the provider's token endpoint payload. ExpiresAt is
// epoch seconds; the athlete blob is kept opaque.
type tokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresAt    int64           `json:"expires_at"`
	Scope        string          `json:"scope"`
	Athlete      json.RawMessage `json:"athlete"`
}

// Exchange swaps the authorization code plus the original verifier for a
// token grant. Any non-2xx provider response surfaces as
// ErrTokenExchangeRejected with the provider body attached for logging.
func (p *HTTPFitnessProvider) Exchange(ctx context.Context, code, codeVerifier string) (*TokenGrant, error) {
	data := url.Values{
		"client_id":     {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
		"code":          {code},
		"code_verifier": {codeVerifier},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: post token endpoint: %w", ErrTokenExchangeRejected, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: token endpoint returned %d: %s", ErrTokenExchangeRejected, resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrTokenExchangeRejected)
	}

	return &TokenGrant{
		AccessToken:     tok.AccessToken,
		RefreshToken:    tok.RefreshToken,
		ExpiresAt:       time.Unix(tok.ExpiresAt, 0).UTC(),
		Scope:           tok.Scope,
		AccountID:       accountIDFromMetadata(tok.Athlete),
		AccountMetadata: tok.Athlete,
	}, nil
}

// Revoke tells the provider to invalidate the access token. Only
// success/failure matters; the response body is not parsed.
func (p *HTTPFitnessProvider) Revoke(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.RevokeURL, nil)
	if err != nil {
		return fmt.Errorf("create revoke request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post revoke endpoint: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("revoke endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// accountIDFromMetadata pulls the numeric or string account id out of the
// provider's account blob. An empty result is tolerated; the connection is
// still usable without it.
func accountIDFromMetadata(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var num struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.ID.String()
	}
	var str struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &str); err == nil {
		return str.ID
	}
	return ""
}

var _ FitnessProviderClient = (*HTTPFitnessProvider)(nil)
