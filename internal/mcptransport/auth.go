package mcptransport

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/ncp-run/ncp/internal/config"
)

// buildAuthHeaders implements the header-construction rule of spec §4.1 for
// a remote MCPServerConfig's auth block.
func buildAuthHeaders(ctx context.Context, mcpName string, auth *config.Auth, store TokenStore, authorizer DeviceAuthorizer) (map[string]string, error) {
	if auth == nil {
		return nil, nil
	}

	switch auth.Kind {
	case config.AuthBearer, config.AuthOAuth:
		token, err := resolveToken(ctx, mcpName, *auth, store, authorizer)
		if err != nil {
			return nil, err
		}
		return map[string]string{"Authorization": "Bearer " + token}, nil

	case config.AuthAPIKey:
		header := auth.APIKeyHeader
		if header == "" {
			header = "X-API-Key"
		}
		return map[string]string{header: auth.APIKeyValue}, nil

	case config.AuthBasic:
		raw := auth.Username + ":" + auth.Password
		encoded := base64.StdEncoding.EncodeToString([]byte(raw))
		return map[string]string{"Authorization": "Basic " + encoded}, nil

	default:
		return nil, fmt.Errorf("mcptransport: unsupported auth kind %q", auth.Kind)
	}
}
