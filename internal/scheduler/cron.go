package scheduler

import (
	"fmt"
	"strconv"
	"strings"
)

// cronFieldRange is the inclusive valid range for one of a 5-field cron
// expression's fields (spec §4.11).
type cronFieldRange struct {
	name string
	min  int
	max  int
}

var cronFields = [5]cronFieldRange{
	{name: "minute", min: 0, max: 59},
	{name: "hour", min: 0, max: 23},
	{name: "day", min: 1, max: 31},
	{name: "month", min: 1, max: 12},
	{name: "weekday", min: 0, max: 7},
}

// ValidationResult mirrors spec §4.11's {valid, error} shape.
type ValidationResult struct {
	Valid bool
	Error string
}

// ValidateCron checks a 5-field cron expression's per-field ranges,
// supporting step (*/n), ranges (a-b), and lists (a,b,c) in any
// combination per field.
func ValidateCron(expr string) ValidationResult {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return ValidationResult{Valid: false, Error: fmt.Sprintf("cron expression must have 5 fields, got %d", len(fields))}
	}

	for i, field := range fields {
		spec := cronFields[i]
		if err := validateField(field, spec); err != nil {
			return ValidationResult{Valid: false, Error: fmt.Sprintf("field '%s' %s", spec.name, err.Error())}
		}
	}
	return ValidationResult{Valid: true}
}

func validateField(field string, spec cronFieldRange) error {
	if field == "*" {
		return nil
	}
	for _, part := range strings.Split(field, ",") {
		if err := validatePart(part, spec); err != nil {
			return err
		}
	}
	return nil
}

func validatePart(part string, spec cronFieldRange) error {
	base, step, hasStep := strings.Cut(part, "/")
	if hasStep {
		if _, err := strconv.Atoi(step); err != nil {
			return fmt.Errorf("out of range %d-%d", spec.min, spec.max)
		}
	}

	if base == "*" {
		return nil
	}

	lo, hi, hasRange := strings.Cut(base, "-")
	if hasRange {
		loVal, err1 := strconv.Atoi(lo)
		hiVal, err2 := strconv.Atoi(hi)
		if err1 != nil || err2 != nil || loVal < spec.min || hiVal > spec.max || loVal > hiVal {
			return fmt.Errorf("out of range %d-%d", spec.min, spec.max)
		}
		return nil
	}

	val, err := strconv.Atoi(base)
	if err != nil || val < spec.min || val > spec.max {
		return fmt.Errorf("out of range %d-%d", spec.min, spec.max)
	}
	return nil
}
