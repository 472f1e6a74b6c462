//go:build darwin

package scheduler

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// launchdRegistrar mirrors a cron entry into a per-user launchd agent, the
// macOS equivalent of a crontab line.
type launchdRegistrar struct {
	agentsDir  string
	workerPath string
}

// NewOSRegistrar returns the launchd-backed OSRegistrar for macOS.
func NewOSRegistrar(workerPath string) (OSRegistrar, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("scheduler: resolve home dir: %w", err)
	}
	return &launchdRegistrar{
		agentsDir:  filepath.Join(home, "Library", "LaunchAgents"),
		workerPath: workerPath,
	}, nil
}

func (r *launchdRegistrar) plistPath(id string) string {
	return filepath.Join(r.agentsDir, "run.ncp.scheduler."+id+".plist")
}

func (r *launchdRegistrar) Register(id, cronExpr string) error {
	if err := os.MkdirAll(r.agentsDir, 0o755); err != nil {
		return err
	}

	minute, hour, day, month, weekday, err := splitCronFields(cronExpr)
	if err != nil {
		return err
	}

	plist := buildLaunchdPlist(id, r.workerPath, minute, hour, day, month, weekday)
	path := r.plistPath(id)
	if err := os.WriteFile(path, []byte(plist), 0o644); err != nil {
		return err
	}

	return exec.Command("launchctl", "load", path).Run()
}

func (r *launchdRegistrar) Unregister(id string) error {
	path := r.plistPath(id)
	_ = exec.Command("launchctl", "unload", path).Run()
	return os.Remove(path)
}

func buildLaunchdPlist(id, workerPath, minute, hour, day, month, weekday string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>run.ncp.scheduler.%s</string>
	<key>ProgramArguments</key>
	<array>
		<string>%s</string>
		<string>%s</string>
	</array>
	<key>StartCalendarInterval</key>
	<dict>
		<key>Minute</key><integer>%s</integer>
		<key>Hour</key><integer>%s</integer>
		<key>Day</key><integer>%s</integer>
		<key>Month</key><integer>%s</integer>
		<key>Weekday</key><integer>%s</integer>
	</dict>
</dict>
</plist>
`, id, workerPath, id, minute, hour, day, month, weekday)
}
