package mcpclient

import (
	"github.com/rs/zerolog"
)

// outputFilter adapts a zerolog.Logger to mcptransport.CommandLogger,
// routing the stray log lines a stdio child writes outside the JSON-RPC
// frame stream into structured logs instead of stdout (spec §4.2).
type outputFilter struct {
	name   string
	logger zerolog.Logger
}

func newOutputFilter(name string) *outputFilter {
	return &outputFilter{name: name}
}

// withLogger attaches the component logger, tagged with the MCP name.
// Connect calls it right after newOutputFilter.
func (f *outputFilter) withLogger(logger zerolog.Logger) *outputFilter {
	f.logger = logger.With().Str("mcp", f.name).Logger()
	return f
}

func (f *outputFilter) Errorf(format string, v ...any) {
	f.logger.Error().Msgf(format, v...)
}

func (f *outputFilter) Infof(format string, v ...any) {
	f.logger.Debug().Msgf(format, v...)
}
