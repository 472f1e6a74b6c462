package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParseResult mirrors spec §4.12's { success, cronExpression?, fireOnce?,
// explanation?, error? } shape.
type ParseResult struct {
	Success        bool
	CronExpression string
	FireOnce       bool
	// AbsoluteAt is set only when FireOnce is true: the computed one-shot
	// fire time the NL phrase described ("in 20 minutes").
	AbsoluteAt  time.Time
	Explanation string
	Error       string
}

var weekdayNames = map[string]int{
	"sunday": 0, "sun": 0,
	"monday": 1, "mon": 1,
	"tuesday": 2, "tue": 2,
	"wednesday": 3, "wed": 3,
	"thursday": 4, "thu": 4,
	"friday": 5, "fri": 5,
	"saturday": 6, "sat": 6,
}

var (
	reEveryMinute    = regexp.MustCompile(`^every minute$`)
	reEveryNMinutes  = regexp.MustCompile(`^every (\d+) minutes?$`)
	reHourly         = regexp.MustCompile(`^(every hour|hourly)$`)
	reDaily          = regexp.MustCompile(`^(every day|daily)(?: at (.+))?$`)
	reWeekday        = regexp.MustCompile(`^(every weekday|monday to friday)(?: at (.+))?$`)
	reWeekend        = regexp.MustCompile(`^every weekend(?: at (.+))?$`)
	reEveryWeekday   = regexp.MustCompile(`^every (sunday|sun|monday|mon|tuesday|tue|wednesday|wed|thursday|thu|friday|fri|saturday|sat)(?: at (.+))?$`)
	reMonthly        = regexp.MustCompile(`^(monthly|first day of (?:the )?month)(?: at (.+))?$`)
	reIn             = regexp.MustCompile(`^in (\d+) (minute|hour|day)s?$`)
	reTime           = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)
)

// Parse is the pure function spec §4.12 names: case-insensitive, tries
// patterns in priority (most specific first) order.
func Parse(phrase string) ParseResult {
	return parseAt(phrase, time.Now())
}

// parseAt is Parse with an injectable "now", so fireOnce phrases are
// testable without depending on the wall clock.
func parseAt(phrase string, now time.Time) ParseResult {
	p := strings.ToLower(strings.TrimSpace(phrase))

	switch {
	case reEveryMinute.MatchString(p):
		return ParseResult{Success: true, CronExpression: "* * * * *", Explanation: "runs every minute"}

	case reEveryNMinutes.MatchString(p):
		m := reEveryNMinutes.FindStringSubmatch(p)
		n := m[1]
		return ParseResult{Success: true, CronExpression: fmt.Sprintf("*/%s * * * *", n), Explanation: fmt.Sprintf("runs every %s minutes", n)}

	case reHourly.MatchString(p):
		return ParseResult{Success: true, CronExpression: "0 * * * *", Explanation: "runs every hour"}

	case reDaily.MatchString(p):
		m := reDaily.FindStringSubmatch(p)
		hour, minute, err := parseTimeOrDefault(m[2], 9, 0)
		if err != nil {
			return parseFailure(err)
		}
		return ParseResult{Success: true, CronExpression: fmt.Sprintf("%d %d * * *", minute, hour), Explanation: "runs daily"}

	case reWeekday.MatchString(p):
		m := reWeekday.FindStringSubmatch(p)
		hour, minute, err := parseTimeOrDefault(m[2], 9, 0)
		if err != nil {
			return parseFailure(err)
		}
		return ParseResult{Success: true, CronExpression: fmt.Sprintf("%d %d * * 1-5", minute, hour), Explanation: "runs on weekdays"}

	case reWeekend.MatchString(p):
		m := reWeekend.FindStringSubmatch(p)
		hour, minute, err := parseTimeOrDefault(m[1], 9, 0)
		if err != nil {
			return parseFailure(err)
		}
		return ParseResult{Success: true, CronExpression: fmt.Sprintf("%d %d * * 0,6", minute, hour), Explanation: "runs on weekends"}

	case reEveryWeekday.MatchString(p):
		m := reEveryWeekday.FindStringSubmatch(p)
		day := weekdayNames[m[1]]
		hour, minute, err := parseTimeOrDefault(m[2], 9, 0)
		if err != nil {
			return parseFailure(err)
		}
		return ParseResult{Success: true, CronExpression: fmt.Sprintf("%d %d * * %d", minute, hour, day), Explanation: fmt.Sprintf("runs every %s", m[1])}

	case reMonthly.MatchString(p):
		m := reMonthly.FindStringSubmatch(p)
		hour, minute, err := parseTimeOrDefault(m[2], 9, 0)
		if err != nil {
			return parseFailure(err)
		}
		return ParseResult{Success: true, CronExpression: fmt.Sprintf("%d %d 1 * *", minute, hour), Explanation: "runs monthly on the 1st"}

	case reIn.MatchString(p):
		m := reIn.FindStringSubmatch(p)
		n, _ := strconv.Atoi(m[1])
		var delta time.Duration
		switch m[2] {
		case "minute":
			delta = time.Duration(n) * time.Minute
		case "hour":
			delta = time.Duration(n) * time.Hour
		case "day":
			delta = time.Duration(n) * 24 * time.Hour
		}
		fireAt := now.Add(delta)
		cronExpr := fmt.Sprintf("%d %d %d %d *", fireAt.Minute(), fireAt.Hour(), fireAt.Day(), int(fireAt.Month()))
		return ParseResult{
			Success:        true,
			CronExpression: cronExpr,
			FireOnce:       true,
			AbsoluteAt:     fireAt,
			Explanation:    fmt.Sprintf("runs once in %d %s(s)", n, m[2]),
		}
	}

	return ParseResult{
		Success: false,
		Error: "unrecognized schedule phrase; supported patterns: 'every minute', 'every N minutes', " +
			"'every hour'/'hourly', 'every day'/'daily [at TIME]', 'every weekday'/'monday to friday [at TIME]', " +
			"'every weekend [at TIME]', 'every <weekday> [at TIME]', 'monthly [at TIME]', 'in N minutes/hours/days' " +
			"(example: 'every day at 9am')",
	}
}

func parseFailure(err error) ParseResult {
	return ParseResult{Success: false, Error: err.Error()}
}

// parseTimeOrDefault parses spec §4.12's TIME grammar: "Hh", "H[:MM](am|pm)?",
// "noon", "midnight". An empty raw uses (defaultHour, defaultMinute).
func parseTimeOrDefault(raw string, defaultHour, defaultMinute int) (hour, minute int, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultHour, defaultMinute, nil
	}
	switch raw {
	case "noon":
		return 12, 0, nil
	case "midnight":
		return 0, 0, nil
	}

	raw = strings.TrimSuffix(raw, "h")
	m := reTime.FindStringSubmatch(raw)
	if m == nil {
		return 0, 0, fmt.Errorf("unrecognized time %q; expected forms like '9am', '14:30', 'noon', 'midnight'", raw)
	}

	h, _ := strconv.Atoi(m[1])
	min := 0
	if m[2] != "" {
		min, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "am":
		if h == 12 {
			h = 0
		}
	case "pm":
		if h != 12 {
			h += 12
		}
	}
	if h < 0 || h > 23 || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("time %q out of range", raw)
	}
	return h, min, nil
}
