//go:build windows

package scheduler

import (
	"fmt"

	"github.com/ncp-run/ncp/internal/ncperr"
)

// NewOSRegistrar refuses to construct an OSRegistrar on Windows, per spec
// §4.11: "on Windows the manager MUST refuse initialization with
// UnsupportedPlatform."
func NewOSRegistrar(workerPath string) (OSRegistrar, error) {
	return nil, fmt.Errorf("scheduler: %w: windows", ncperr.ErrUnsupportedPlatform)
}
