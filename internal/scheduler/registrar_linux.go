//go:build linux

package scheduler

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// crontabRegistrar mirrors a cron entry into the invoking user's crontab,
// tagging each managed line with an identifying comment so Unregister can
// find and remove exactly one entry without disturbing lines the user
// manages by hand.
type crontabRegistrar struct {
	workerPath string
}

// NewOSRegistrar returns the crontab-backed OSRegistrar for Linux.
func NewOSRegistrar(workerPath string) (OSRegistrar, error) {
	return &crontabRegistrar{workerPath: workerPath}, nil
}

func tagFor(id string) string { return "# ncp-scheduler:" + id }

func (r *crontabRegistrar) Register(id, cronExpr string) error {
	lines, err := r.readCrontab()
	if err != nil {
		return err
	}
	lines = removeTagged(lines, id)
	lines = append(lines, tagFor(id), fmt.Sprintf("%s %s %s", cronExpr, r.workerPath, id))
	return r.writeCrontab(lines)
}

func (r *crontabRegistrar) Unregister(id string) error {
	lines, err := r.readCrontab()
	if err != nil {
		return err
	}
	lines = removeTagged(lines, id)
	return r.writeCrontab(lines)
}

func (r *crontabRegistrar) readCrontab() ([]string, error) {
	out, err := exec.Command("crontab", "-l").Output()
	if err != nil {
		// No existing crontab is not an error; "crontab -l" exits non-zero
		// when the user has none yet.
		return nil, nil
	}
	return strings.Split(strings.TrimRight(string(out), "\n"), "\n"), nil
}

func (r *crontabRegistrar) writeCrontab(lines []string) error {
	content := strings.Join(lines, "\n")
	if content != "" {
		content += "\n"
	}
	cmd := exec.Command("crontab", "-")
	cmd.Stdin = bytes.NewBufferString(content)
	return cmd.Run()
}

// removeTagged drops the tag comment for id and the line immediately
// following it (the schedule line Register wrote).
func removeTagged(lines []string, id string) []string {
	tag := tagFor(id)
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		if lines[i] == tag {
			i++ // also skip the schedule line
			continue
		}
		if lines[i] != "" {
			out = append(out, lines[i])
		}
	}
	return out
}
