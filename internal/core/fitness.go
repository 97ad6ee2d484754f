package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/larsfl/trailside/internal/metrics"
	"github.com/larsfl/trailside/internal/model"
)

// ExchangeState tracks where a connect flow is in its lifecycle. BeginConnect
// moves a flow from idle to awaiting_code; CompleteConnect passes through
// exchanging and terminates in connected or failed.
type ExchangeState string

const (
	StateIdle         ExchangeState = "idle"
	StateAwaitingCode ExchangeState = "awaiting_code"
	StateExchanging   ExchangeState = "exchanging"
	StateConnected    ExchangeState = "connected"
	StateFailed       ExchangeState = "failed"
)

// ConnectResult is the terminal outcome of a callback exchange.
type ConnectResult struct {
	State      ExchangeState
	Connection *model.FitnessConnection
}

// FitnessService runs the PKCE connect flow against the fitness provider and
// owns the connection records in the community database.
type FitnessService struct {
	db        DB
	provider  FitnessProviderClient
	verifiers VerifierStore
	logger    zerolog.Logger
}

func NewFitnessService(db DB, provider FitnessProviderClient, verifiers VerifierStore, logger zerolog.Logger) *FitnessService {
	return &FitnessService{db: db, provider: provider, verifiers: verifiers, logger: logger}
}

// BeginConnect generates a verifier/challenge pair, stores the verifier
// keyed by a fresh state value, and returns the provider authorization URL
// for the member's user agent to follow.
func (s *FitnessService) BeginConnect(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", ErrUnauthenticated
	}

	params, err := GeneratePKCEParams()
	if err != nil {
		return "", fmt.Errorf("generate PKCE params: %w", err)
	}

	state, err := GenerateState()
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}

	pending := PendingAuthorization{CodeVerifier: params.CodeVerifier, UserID: userID}
	if err := s.verifiers.Store(ctx, state, pending); err != nil {
		return "", fmt.Errorf("store verifier: %w", err)
	}

	return s.provider.AuthorizeURL(state, params.CodeChallenge), nil
}

// CompleteConnect consumes the stored verifier for the callback's state,
// exchanges the authorization code for tokens, and upserts the connection.
//
// The caller's identity is checked before anything touches the network so a
// valid provider token is never obtained on behalf of an anonymous caller.
// The verifier is consumed exactly once; a replayed callback finds nothing
// and fails as missing parameters.
func (s *FitnessService) CompleteConnect(ctx context.Context, userID, code, state string) (*ConnectResult, error) {
	if userID == "" {
		return &ConnectResult{State: StateFailed}, ErrUnauthenticated
	}
	if code == "" || state == "" {
		return &ConnectResult{State: StateFailed}, ErrMissingParameters
	}

	pending, ok, err := s.verifiers.RetrieveAndClear(ctx, state)
	if err != nil {
		return &ConnectResult{State: StateFailed}, fmt.Errorf("retrieve verifier: %w", err)
	}
	if !ok {
		return &ConnectResult{State: StateFailed}, ErrMissingParameters
	}
	if pending.UserID != userID {
		s.logger.Warn().Str("user_id", userID).Msg("callback state belongs to a different user")
		return &ConnectResult{State: StateFailed}, ErrMissingParameters
	}

	grant, err := s.provider.Exchange(ctx, code, pending.CodeVerifier)
	if err != nil {
		if errors.Is(err, ErrTokenExchangeRejected) {
			// Full provider detail stays in the log; callers get a
			// generic message.
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("token exchange rejected")
			return &ConnectResult{State: StateFailed}, ErrTokenExchangeRejected
		}
		return &ConnectResult{State: StateFailed}, fmt.Errorf("token exchange: %w", err)
	}

	conn, err := s.upsertConnection(ctx, userID, grant)
	if err != nil {
		return &ConnectResult{State: StateFailed}, fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}

	s.updateProfileSummary(ctx, userID, true, grant.AccountID)

	return &ConnectResult{State: StateConnected, Connection: conn}, nil
}

// AbortConnect ends a flow the provider redirected back with an error,
// typically because the member denied consent. The pending verifier is
// discarded so the state value cannot be replayed with a fabricated code.
func (s *FitnessService) AbortConnect(ctx context.Context, userID, state, providerErr string) error {
	if userID == "" {
		return ErrUnauthenticated
	}

	if state != "" {
		if _, _, err := s.verifiers.RetrieveAndClear(ctx, state); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to clear verifier for denied flow")
		}
	}

	s.logger.Info().Str("user_id", userID).Str("provider_error", providerErr).Msg("fitness connect denied at provider")
	return nil
}

// GetActiveConnection returns the member's active connection, or nil when
// none exists.
func (s *FitnessService) GetActiveConnection(ctx context.Context, userID string) (*model.FitnessConnection, error) {
	var c model.FitnessConnection
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, provider_account_id, access_token, refresh_token, expires_at, scope, account_metadata, is_active, created_at, updated_at
		 FROM fitness_connections WHERE user_id = $1 AND is_active = true`, userID,
	).Scan(&c.ID, &c.UserID, &c.ProviderAccountID, &c.AccessToken, &c.RefreshToken,
		&c.ExpiresAt, &c.Scope, &c.AccountMetadata, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get fitness connection for user %s: %w", userID, err)
	}
	return &c, nil
}

// Disconnect revokes the provider token on a best-effort basis and then
// unconditionally deactivates the local connection. Only the local
// deactivation can fail the operation; it is the one guarantee disconnect
// makes. Disconnecting with no active connection succeeds.
func (s *FitnessService) Disconnect(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}

	conn, err := s.GetActiveConnection(ctx, userID)
	if err != nil {
		// Can't read the token, so no revoke call — but deactivation
		// below still runs.
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("connection lookup failed before disconnect")
	}
	if err == nil && conn == nil {
		return nil
	}

	if conn != nil && conn.AccessToken != "" {
		if err := s.provider.Revoke(ctx, conn.AccessToken); err != nil {
			metrics.RevokeFailures.Inc()
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("provider revoke failed, deactivating locally anyway")
		}
	}

	_, err = s.db.Exec(ctx,
		`UPDATE fitness_connections SET is_active = false, updated_at = now() WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("%w: deactivate connection for user %s: %w", ErrPersistenceFailure, userID, err)
	}

	s.updateProfileSummary(ctx, userID, false, "")

	return nil
}

// upsertConnection writes the credential keyed by user id. Reconnecting
// overwrites the credential fields of the existing row and reactivates it;
// concurrent attempts resolve to last-writer-wins inside Postgres.
func (s *FitnessService) upsertConnection(ctx context.Context, userID string, grant *TokenGrant) (*model.FitnessConnection, error) {
	var c model.FitnessConnection
	err := s.db.QueryRow(ctx,
		`INSERT INTO fitness_connections (id, user_id, provider_account_id, access_token, refresh_token, expires_at, scope, account_metadata, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true, now(), now())
		 ON CONFLICT (user_id) DO UPDATE SET
			provider_account_id = EXCLUDED.provider_account_id,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			scope = EXCLUDED.scope,
			account_metadata = EXCLUDED.account_metadata,
			is_active = true,
			updated_at = now()
		 RETURNING id, user_id, provider_account_id, access_token, refresh_token, expires_at, scope, account_metadata, is_active, created_at, updated_at`,
		uuid.New().String(), userID, grant.AccountID, grant.AccessToken, grant.RefreshToken,
		grant.ExpiresAt, grant.Scope, grant.AccountMetadata,
	).Scan(&c.ID, &c.UserID, &c.ProviderAccountID, &c.AccessToken, &c.RefreshToken,
		&c.ExpiresAt, &c.Scope, &c.AccountMetadata, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert fitness connection: %w", err)
	}
	return &c, nil
}

// updateProfileSummary mirrors the connection status onto the member's
// profile row. Best effort: a failure here is logged and never escalates to
// the caller, the connection record remains the source of truth.
func (s *FitnessService) updateProfileSummary(ctx context.Context, userID string, connected bool, accountID string) {
	var acct any
	if accountID != "" {
		acct = accountID
	}
	_, err := s.db.Exec(ctx,
		`UPDATE profiles SET fitness_connected = $1, fitness_account_id = $2, updated_at = now() WHERE user_id = $3`,
		connected, acct, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("profile summary update failed")
	}
}
