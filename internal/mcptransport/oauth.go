package mcptransport

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"golang.org/x/oauth2"

	"github.com/ncp-run/ncp/internal/config"
	"github.com/ncp-run/ncp/internal/fsutil"
)

// TokenStore persists OAuth tokens keyed by MCP server name, so a refreshed
// or device-flow-obtained token survives process restarts (spec §4.1
// "Side effects: may persist OAuth tokens to a token store keyed by MCP
// name").
type TokenStore interface {
	Get(mcpName string) (*oauth2.Token, error)
	Save(mcpName string, token *oauth2.Token) error
}

// FileTokenStore persists one JSON file per MCP under <baseDir>/oauth/.
type FileTokenStore struct {
	baseDir string
}

// NewFileTokenStore returns a TokenStore rooted at <baseDir>/oauth/.
func NewFileTokenStore(baseDir string) *FileTokenStore {
	return &FileTokenStore{baseDir: filepath.Join(baseDir, "oauth")}
}

func (s *FileTokenStore) path(mcpName string) string {
	return filepath.Join(s.baseDir, mcpName+".json")
}

func (s *FileTokenStore) Get(mcpName string) (*oauth2.Token, error) {
	data, err := fsutil.ReadFileOrEmpty(s.path(mcpName))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("mcptransport: corrupt oauth token for %q: %w", mcpName, err)
	}
	return &tok, nil
}

func (s *FileTokenStore) Save(mcpName string, token *oauth2.Token) error {
	return fsutil.AtomicWriteJSON(s.path(mcpName), token)
}

// DeviceAuthorizer launches an OAuth 2.0 device-authorization flow and
// returns the resulting token. Treated as an external collaborator: the
// orchestrator core only needs the resulting token, not the flow's user-
// facing presentation (spec §1 lists authorization concerns out of core
// scope). deviceFlowAuthorizer below supplies a reference implementation
// sufficient to exercise golang.org/x/oauth2's device-flow support end to
// end; a production deployment would swap in its own verification-URI
// presentation.
type DeviceAuthorizer interface {
	Authorize(ctx context.Context, cfg config.Auth) (*oauth2.Token, error)
}

// deviceFlowAuthorizer drives golang.org/x/oauth2's DeviceAuth/
// DeviceAccessToken exchange against the MCP's configured token endpoint.
type deviceFlowAuthorizer struct{}

// NewDeviceFlowAuthorizer returns the reference DeviceAuthorizer.
func NewDeviceFlowAuthorizer() DeviceAuthorizer { return deviceFlowAuthorizer{} }

func (deviceFlowAuthorizer) Authorize(ctx context.Context, auth config.Auth) (*oauth2.Token, error) {
	oc := &oauth2.Config{
		ClientID: auth.OAuthClientID,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: auth.OAuthTokenURL,
			TokenURL:      auth.OAuthTokenURL,
		},
	}
	resp, err := oc.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("mcptransport: device authorization request: %w", err)
	}
	// A real front-end would print resp.VerificationURI/UserCode to the
	// operator; the core only waits on the exchange.
	return oc.DeviceAccessToken(ctx, resp)
}

// resolveToken returns a usable access token for auth: the static token if
// set, else a still-valid cached token, else a refresh of the cached token
// when it has a refresh token, else the device flow. A refreshed or
// device-flow token is persisted to store.
func resolveToken(ctx context.Context, mcpName string, auth config.Auth, store TokenStore, authorizer DeviceAuthorizer) (string, error) {
	if auth.Token != "" {
		return auth.Token, nil
	}
	if store != nil {
		cached, err := store.Get(mcpName)
		if err == nil && cached != nil && cached.Valid() {
			return cached.AccessToken, nil
		}
		if err == nil && cached != nil && cached.RefreshToken != "" {
			oc := &oauth2.Config{ClientID: auth.OAuthClientID, Endpoint: oauth2.Endpoint{TokenURL: auth.OAuthTokenURL}}
			if refreshed, rerr := oc.TokenSource(ctx, cached).Token(); rerr == nil {
				_ = store.Save(mcpName, refreshed)
				return refreshed.AccessToken, nil
			}
		}
	}
	if authorizer == nil {
		return "", fmt.Errorf("mcptransport: oauth token for %q expired and no device authorizer configured", mcpName)
	}
	tok, err := authorizer.Authorize(ctx, auth)
	if err != nil {
		return "", err
	}
	if store != nil {
		_ = store.Save(mcpName, tok)
	}
	return tok.AccessToken, nil
}
