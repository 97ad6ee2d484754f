package core

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// ---------- Mock DB ----------

// mockDB implements the DB interface for testing.
type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// ---------- Mock Row ----------

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	return m.scanFunc(dest...)
}

// ---------- Mock provider ----------

// mockProvider implements FitnessProviderClient with pluggable funcs and
// call counters so tests can assert a call never happened.
type mockProvider struct {
	authorizeURLFunc func(state, challenge string) string
	exchangeFunc     func(ctx context.Context, code, verifier string) (*TokenGrant, error)
	revokeFunc       func(ctx context.Context, accessToken string) error

	exchangeCalls int
	revokeCalls   int
}

func (m *mockProvider) AuthorizeURL(state, challenge string) string {
	if m.authorizeURLFunc != nil {
		return m.authorizeURLFunc(state, challenge)
	}
	return "https://provider.example.com/oauth/authorize?state=" + state + "&code_challenge=" + challenge
}

func (m *mockProvider) Exchange(ctx context.Context, code, verifier string) (*TokenGrant, error) {
	m.exchangeCalls++
	if m.exchangeFunc != nil {
		return m.exchangeFunc(ctx, code, verifier)
	}
	return &TokenGrant{AccessToken: "access-token"}, nil
}

func (m *mockProvider) Revoke(ctx context.Context, accessToken string) error {
	m.revokeCalls++
	if m.revokeFunc != nil {
		return m.revokeFunc(ctx, accessToken)
	}
	return nil
}
