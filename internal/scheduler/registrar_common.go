package scheduler

import (
	"fmt"
	"strings"
)

// splitCronFields splits a validated 5-field cron expression into its
// individual fields, for registrars that need to re-render them into a
// platform-specific format (launchd's StartCalendarInterval, a crontab
// line).
func splitCronFields(expr string) (minute, hour, day, month, weekday string, err error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return "", "", "", "", "", fmt.Errorf("scheduler: expected 5 cron fields, got %d", len(fields))
	}
	return fields[0], fields[1], fields[2], fields[3], fields[4], nil
}
