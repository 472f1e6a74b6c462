package mcpclient

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ncp-run/ncp/internal/backoff"
	"github.com/ncp-run/ncp/internal/config"
	"github.com/ncp-run/ncp/internal/mcptransport"
)

// ConnectWithReconnectPolicy connects like Connect, but for streamableHttp
// servers retries the initial connect under the fixed reconnection policy
// spec §4.1 mandates (initial 1s, growth 1.5x, cap 30s, max 5 retries).
// Other transports connect once, matching spec §4.1's scoping of the
// reconnection policy to streamableHttp alone.
func ConnectWithReconnectPolicy(ctx context.Context, name string, cfg config.MCPServerConfig, deps mcptransport.Dependencies, timeout time.Duration, logger zerolog.Logger) (*Client, error) {
	if cfg.IsRemote() && cfg.EffectiveTransport() == config.TransportStreamableHTTP {
		policy := mcptransport.StreamableReconnectPolicy
		cfgBackoff := backoff.Config{
			MaxRetries:     policy.MaxRetries,
			InitialBackoff: time.Duration(policy.Initial * float64(time.Second)),
			MaxBackoff:     time.Duration(policy.Cap * float64(time.Second)),
			Multiplier:     policy.Growth,
			Jitter:         0.1,
		}

		var client *Client
		err := backoff.Do(ctx, cfgBackoff, func(attemptCtx context.Context) error {
			c, err := Connect(attemptCtx, name, cfg, deps, timeout, logger)
			if err != nil {
				return err
			}
			client = c
			return nil
		}, func(err error) bool { return true })
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	return Connect(ctx, name, cfg, deps, timeout, logger)
}
