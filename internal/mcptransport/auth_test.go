package mcptransport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/ncp-run/ncp/internal/config"
)

type fakeTokenStore struct {
	tokens map[string]*oauth2.Token
	saved  map[string]*oauth2.Token
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: map[string]*oauth2.Token{}, saved: map[string]*oauth2.Token{}}
}

func (s *fakeTokenStore) Get(name string) (*oauth2.Token, error) { return s.tokens[name], nil }
func (s *fakeTokenStore) Save(name string, tok *oauth2.Token) error {
	s.saved[name] = tok
	return nil
}

type fakeAuthorizer struct {
	token *oauth2.Token
	err   error
	calls int
}

func (a *fakeAuthorizer) Authorize(ctx context.Context, cfg config.Auth) (*oauth2.Token, error) {
	a.calls++
	return a.token, a.err
}

func TestBuildAuthHeaders_NilAuthReturnsNil(t *testing.T) {
	headers, err := buildAuthHeaders(context.Background(), "mcp", nil, nil, nil)
	require.NoError(t, err)
	require.Nil(t, headers)
}

func TestBuildAuthHeaders_APIKeyDefaultsHeaderName(t *testing.T) {
	headers, err := buildAuthHeaders(context.Background(), "mcp", &config.Auth{Kind: config.AuthAPIKey, APIKeyValue: "secret"}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "secret", headers["X-API-Key"])
}

func TestBuildAuthHeaders_APIKeyHonorsCustomHeader(t *testing.T) {
	headers, err := buildAuthHeaders(context.Background(), "mcp", &config.Auth{Kind: config.AuthAPIKey, APIKeyHeader: "X-Token", APIKeyValue: "secret"}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "secret", headers["X-Token"])
}

func TestBuildAuthHeaders_BasicEncodesCredentials(t *testing.T) {
	headers, err := buildAuthHeaders(context.Background(), "mcp", &config.Auth{Kind: config.AuthBasic, Username: "u", Password: "p"}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "Basic dTpw", headers["Authorization"])
}

func TestBuildAuthHeaders_BearerUsesStaticToken(t *testing.T) {
	headers, err := buildAuthHeaders(context.Background(), "mcp", &config.Auth{Kind: config.AuthBearer, Token: "abc123"}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "Bearer abc123", headers["Authorization"])
}

func TestBuildAuthHeaders_OAuthUsesCachedValidToken(t *testing.T) {
	store := newFakeTokenStore()
	store.tokens["mcp"] = &oauth2.Token{AccessToken: "cached", Expiry: time.Now().Add(time.Hour)}

	headers, err := buildAuthHeaders(context.Background(), "mcp", &config.Auth{Kind: config.AuthOAuth}, store, nil)
	require.NoError(t, err)
	require.Equal(t, "Bearer cached", headers["Authorization"])
}

func TestBuildAuthHeaders_OAuthFallsBackToDeviceFlowAndPersists(t *testing.T) {
	store := newFakeTokenStore()
	authorizer := &fakeAuthorizer{token: &oauth2.Token{AccessToken: "fresh"}}

	headers, err := buildAuthHeaders(context.Background(), "mcp", &config.Auth{Kind: config.AuthOAuth}, store, authorizer)
	require.NoError(t, err)
	require.Equal(t, "Bearer fresh", headers["Authorization"])
	require.Equal(t, 1, authorizer.calls)
	require.Equal(t, "fresh", store.saved["mcp"].AccessToken)
}

func TestBuildAuthHeaders_OAuthNoAuthorizerErrors(t *testing.T) {
	_, err := buildAuthHeaders(context.Background(), "mcp", &config.Auth{Kind: config.AuthOAuth}, nil, nil)
	require.Error(t, err)
}

func TestBuildAuthHeaders_UnsupportedKindErrors(t *testing.T) {
	_, err := buildAuthHeaders(context.Background(), "mcp", &config.Auth{Kind: "bogus"}, nil, nil)
	require.Error(t, err)
}
