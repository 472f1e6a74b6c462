package ncperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigError_WrapsErrConfig(t *testing.T) {
	err := ConfigError("mcp %q: %v", "filesystem", "bad shape")
	require.True(t, errors.Is(err, ErrConfig))
	require.Contains(t, err.Error(), "filesystem")
}

func TestToolNotFoundError_MessageWithAndWithoutSuggestions(t *testing.T) {
	bare := &ToolNotFoundError{Identifier: "raed_file"}
	require.Contains(t, bare.Error(), "raed_file")
	require.True(t, errors.Is(bare, ErrMCPNotFound))

	withSuggestions := &ToolNotFoundError{Identifier: "raed_file", Suggestions: []string{"read_file"}}
	require.Contains(t, withSuggestions.Error(), "read_file")
}

func TestValidationError_JoinsFields(t *testing.T) {
	err := &ValidationError{Tool: "github:create_issue", Fields: []string{"title", "body"}}
	require.Equal(t, "Missing required parameters: title, body", err.Error())
	require.True(t, errors.Is(err, ErrValidation))
}

func TestMCPNotFoundError_ListsAvailable(t *testing.T) {
	err := &MCPNotFoundError{Name: "bogus", Available: []string{"filesystem", "github"}}
	require.Contains(t, err.Error(), "bogus")
	require.Contains(t, err.Error(), "filesystem")
	require.True(t, errors.Is(err, ErrMCPNotFound))
}

func TestClassifyError_NilIsUnknown(t *testing.T) {
	require.Equal(t, KindUnknown, ClassifyError(nil))
}

func TestClassifyError_SentinelWrapped(t *testing.T) {
	require.Equal(t, KindTimeout, ClassifyError(ErrTimeout))
}

func TestClassifyError_MessageHeuristics(t *testing.T) {
	require.Equal(t, KindTimeout, ClassifyError(errors.New("context deadline exceeded")))
	require.Equal(t, KindConnectionRefused, ClassifyError(errors.New("dial tcp: connection refused")))
	require.Equal(t, KindCommandNotFound, ClassifyError(errors.New(`exec: "npx": executable file not found in $PATH`)))
	require.Equal(t, KindUnknown, ClassifyError(errors.New("something unexpected")))
}

func TestClassifyError_ConnectionSentinelDistinguishesCommandNotFound(t *testing.T) {
	refused := fmt.Errorf("%w: dial tcp 127.0.0.1:8080", ErrConnection)
	require.Equal(t, KindConnectionRefused, ClassifyError(refused))

	notFound := fmt.Errorf("%w: executable file not found", ErrConnection)
	require.Equal(t, KindCommandNotFound, ClassifyError(notFound))
}
